/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package speech

import "strings"

const (
	openBold    = "<b>"
	closeBold   = "</b>"
	openItalic  = "<i>"
	closeItalic = "</i>"
	openSize    = "<size="
	closeSize   = "</size>"
	openColor   = "<color="
	closeColor  = "</color>"
)

// placeholderPrefixes are token heads that never count towards a line's length,
// even when they survive into the display text.
var placeholderPrefixes = []string{"[var:", "[localvar:", "[wait:", "[continue:", "[expression:"}

type tagSpan struct {
	start, end int // rune range [start, end)
	name       string
	closing    bool
	open       string // literal opener of the pair
	close      string // literal closer of the pair
}

// richText is a line's text with its formatting tags located once.
type richText struct {
	text    []rune
	tags    []tagSpan
	byStart map[int]int
	byEnd   map[int]int
}

func newRichText(text []rune) *richText {
	rt := &richText{text: text, byStart: map[int]int{}, byEnd: map[int]int{}}
	var open []int
	for i := 0; i < len(text); i++ {
		if text[i] != '<' {
			continue
		}
		t, ok := matchTag(text, i)
		if !ok {
			continue
		}
		if t.closing {
			for j := len(open) - 1; j >= 0; j-- {
				if rt.tags[open[j]].name == t.name {
					t.open = rt.tags[open[j]].open
					open = append(open[:j], open[j+1:]...)
					break
				}
			}
		} else {
			open = append(open, len(rt.tags))
		}
		rt.byStart[t.start] = len(rt.tags)
		rt.byEnd[t.end] = len(rt.tags)
		rt.tags = append(rt.tags, t)
		i = t.end - 1
	}
	return rt
}

func matchTag(text []rune, i int) (tagSpan, bool) {
	end := -1
	for j := i + 1; j < len(text); j++ {
		if text[j] == '>' {
			end = j + 1
			break
		}
		if text[j] == '<' {
			break
		}
	}
	if end < 0 {
		return tagSpan{}, false
	}
	lit := string(text[i:end])
	t := tagSpan{start: i, end: end}
	switch {
	case lit == openBold:
		t.name, t.open, t.close = "b", lit, closeBold
	case lit == openItalic:
		t.name, t.open, t.close = "i", lit, closeItalic
	case strings.HasPrefix(lit, openSize) && len(lit) > len(openSize)+1:
		t.name, t.open, t.close = "size", lit, closeSize
	case strings.HasPrefix(lit, openColor) && len(lit) > len(openColor)+1:
		t.name, t.open, t.close = "color", lit, closeColor
	case lit == closeBold:
		t.name, t.closing, t.close = "b", true, lit
	case lit == closeItalic:
		t.name, t.closing, t.close = "i", true, lit
	case lit == closeSize:
		t.name, t.closing, t.close = "size", true, lit
	case lit == closeColor:
		t.name, t.closing, t.close = "color", true, lit
	default:
		return tagSpan{}, false
	}
	return t, true
}

// revealCursor walks a richText in one direction and keeps the tags owed to
// the revealed fragment so that it stays balanced.
type revealCursor struct {
	rt      *richText
	rtl     bool
	pos     int
	pending []string
}

func (rt *richText) cursor(rtl bool) *revealCursor {
	c := &revealCursor{rt: rt, rtl: rtl}
	if rtl {
		c.pos = len(rt.text)
	}
	return c
}

// advance moves the cursor towards target without ever moving back. Tags are
// stepped over whole, including any that start (or end, RTL) at the landing point.
func (c *revealCursor) advance(target int) int {
	n := len(c.rt.text)
	if target < 0 {
		target = 0
	}
	if target > n {
		target = n
	}
	if !c.rtl {
		for c.pos < n {
			if k, ok := c.rt.byStart[c.pos]; ok {
				t := c.rt.tags[k]
				if t.closing {
					c.drop(t.close)
				} else {
					c.pending = append(c.pending, t.close)
				}
				c.pos = t.end
				continue
			}
			if c.pos >= target {
				break
			}
			c.pos++
		}
		return c.pos
	}
	for c.pos > 0 {
		if k, ok := c.rt.byEnd[c.pos]; ok {
			t := c.rt.tags[k]
			if t.closing {
				if t.open != "" {
					c.pending = append(c.pending, t.open)
				}
			} else {
				c.drop(t.open)
			}
			c.pos = t.start
			continue
		}
		if c.pos <= target {
			break
		}
		c.pos--
	}
	return c.pos
}

func (c *revealCursor) drop(tag string) {
	for i := len(c.pending) - 1; i >= 0; i-- {
		if c.pending[i] == tag {
			c.pending = append(c.pending[:i], c.pending[i+1:]...)
			return
		}
	}
}

// fragment renders the revealed part with the owed tags attached.
func (c *revealCursor) fragment() string {
	var b strings.Builder
	if !c.rtl {
		b.WriteString(string(c.rt.text[:c.pos]))
		for i := len(c.pending) - 1; i >= 0; i-- {
			b.WriteString(c.pending[i])
		}
		return b.String()
	}
	for _, t := range c.pending {
		b.WriteString(t)
	}
	b.WriteString(string(c.rt.text[c.pos:]))
	return b.String()
}

// TextPortion returns the part of text revealed up to index (or from index
// onwards when rtl), closing or reopening any formatting tags it cuts through.
func TextPortion(text string, index int, rtl bool) string {
	c := newRichText([]rune(text)).cursor(rtl)
	c.advance(index)
	return c.fragment()
}

// StripRichText removes the recognised formatting tags from text.
func StripRichText(text string) string {
	rt := newRichText([]rune(text))
	if len(rt.tags) == 0 {
		return text
	}
	var b strings.Builder
	last := 0
	for _, t := range rt.tags {
		b.WriteString(string(rt.text[last:t.start]))
		last = t.end
	}
	b.WriteString(string(rt.text[last:]))
	return b.String()
}

// VisibleLength counts the runes of text a player actually reads: formatting
// tags and placeholder token heads are excluded.
func VisibleLength(text string) int {
	s := StripRichText(text)
	for _, p := range placeholderPrefixes {
		s = strings.ReplaceAll(s, p, "")
	}
	return len([]rune(s))
}
