/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package textlayout measures and word-wraps subtitle text.
// All measurement goes through a Provider so tests can use the fixed-width basic face
// and real runs can load OpenType fonts.
package textlayout

import (
	"unicode"
	"unicode/utf8"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
)

// FontSpec describes a requested font.
type FontSpec struct {
	Family string // logical family name
	SizePt float32
	Weight int // 100..900
	Italic bool
}

// Metrics provides font metrics in pixels for the resolved face.
type Metrics struct {
	Ascent, Descent, LineGap float32
}

// Span is a run of text with the same font and spacing.
type Span struct {
	Text     string
	Font     FontSpec
	Tracking float32 // px added between glyphs
	Leading  float32 // px added to the line height
}

// Line is a single laid out line with width and ascent/descent.
type Line struct {
	Spans   []Span
	Width   float32
	Ascent  float32
	Descent float32
}

// Text joins the spans of the line.
func (l Line) Text() string {
	var b []byte
	for _, s := range l.Spans {
		b = append(b, s.Text...)
	}
	return string(b)
}

// TextBox is the result of laying out text into a box width.
type TextBox struct {
	Lines   []Line
	Width   float32
	Height  float32
	Metrics Metrics
}

// Strings returns the text of every line with trailing spaces removed.
func (b TextBox) Strings() []string {
	out := make([]string, len(b.Lines))
	for i, l := range b.Lines {
		out[i] = trimRightSpace(l.Text())
	}
	return out
}

// Provider maps FontSpec to a concrete font.Face.
type Provider interface {
	Resolve(FontSpec) (font.Face, Metrics)
}

// Layouter performs line-breaking and measurement.
type Layouter interface {
	Layout(spans []Span, maxWidth float32) (TextBox, error)
}

// BasicProvider uses x/image/basicfont Face7x13 for deterministic tests.
type BasicProvider struct{}

func (BasicProvider) Resolve(FontSpec) (font.Face, Metrics) {
	f := basicfont.Face7x13
	return f, faceMetrics(f)
}

func faceMetrics(f font.Face) Metrics {
	m := f.Metrics()
	return Metrics{
		Ascent:  float32(m.Ascent.Round()),
		Descent: float32(m.Descent.Round()),
		LineGap: float32(m.Height.Round() - m.Ascent.Round() - m.Descent.Round()),
	}
}

// WordWrapLayouter breaks on spaces and newlines. Words wider than the box
// are split at rune boundaries. It does not shape or hyphenate.
type WordWrapLayouter struct{ Provider Provider }

func NewWordWrap(provider Provider) *WordWrapLayouter { return &WordWrapLayouter{Provider: provider} }

func (l *WordWrapLayouter) Layout(spans []Span, maxWidth float32) (TextBox, error) {
	if l.Provider == nil {
		l.Provider = BasicProvider{}
	}
	var spec FontSpec
	var leading float32
	if len(spans) > 0 {
		spec = spans[0].Font
		leading = spans[0].Leading
	}
	// One face per box; the first span decides metrics.
	_, met := l.Provider.Resolve(spec)
	box := TextBox{Metrics: met}
	cur := Line{Ascent: met.Ascent, Descent: met.Descent}
	addLine := func() {
		box.Lines = append(box.Lines, cur)
		if cur.Width > box.Width {
			box.Width = cur.Width
		}
		box.Height += met.Ascent + met.Descent + met.LineGap + leading
		cur = Line{Ascent: met.Ascent, Descent: met.Descent}
	}
	for _, sp := range spans {
		if sp.Text == "" {
			continue
		}
		face, _ := l.Provider.Resolve(sp.Font)
		d := &font.Drawer{Face: face}
		for _, tok := range splitWords(sp.Text) {
			switch tok {
			case "\n":
				addLine()
				continue
			case " ":
				if cur.Width == 0 {
					continue
				}
				cur.Spans = append(cur.Spans, Span{Text: " ", Font: sp.Font})
				cur.Width += advance(d, " ", sp.Tracking)
				continue
			}
			w := advance(d, tok, sp.Tracking)
			if maxWidth > 0 && cur.Width > 0 && cur.Width+w > maxWidth {
				addLine()
			}
			if maxWidth > 0 && w > maxWidth {
				for _, piece := range breakWord(d, tok, sp.Tracking, maxWidth) {
					if cur.Width > 0 {
						addLine()
					}
					cur.Spans = append(cur.Spans, Span{Text: piece, Font: sp.Font})
					cur.Width += advance(d, piece, sp.Tracking)
				}
				continue
			}
			cur.Spans = append(cur.Spans, Span{Text: tok, Font: sp.Font})
			cur.Width += w
		}
	}
	if len(cur.Spans) > 0 || len(box.Lines) == 0 {
		addLine()
	}
	return box, nil
}

// splitWords yields words, single spaces and newlines.
func splitWords(s string) []string {
	var out []string
	start := -1
	for i, r := range s {
		if r == '\n' || unicode.IsSpace(r) {
			if start >= 0 {
				out = append(out, s[start:i])
				start = -1
			}
			if r == '\n' {
				out = append(out, "\n")
			} else {
				out = append(out, " ")
			}
			continue
		}
		if start < 0 {
			start = i
		}
	}
	if start >= 0 {
		out = append(out, s[start:])
	}
	return out
}

func breakWord(d *font.Drawer, word string, tracking, maxWidth float32) []string {
	var out []string
	start := 0
	for i, r := range word {
		end := i + utf8.RuneLen(r)
		if i > start && advance(d, word[start:end], tracking) > maxWidth {
			out = append(out, word[start:i])
			start = i
		}
	}
	return append(out, word[start:])
}

func advance(d *font.Drawer, s string, tracking float32) float32 {
	w := float32(d.MeasureString(s) >> 6) // fixed.Int26_6 to px
	if tracking != 0 {
		if n := len([]rune(s)); n > 1 {
			w += tracking * float32(n-1)
		}
	}
	return w
}

// Measure provides a quick way to measure text width/height without line-breaks.
func Measure(provider Provider, spans []Span) (w, h float32) {
	if provider == nil {
		provider = BasicProvider{}
	}
	_, met := provider.Resolve(FontSpec{})
	var width float32
	for _, sp := range spans {
		face, _ := provider.Resolve(sp.Font)
		width += advance(&font.Drawer{Face: face}, sp.Text, sp.Tracking)
	}
	return width, met.Ascent + met.Descent
}

func trimRightSpace(s string) string {
	for len(s) > 0 && s[len(s)-1] == ' ' {
		s = s[:len(s)-1]
	}
	return s
}
