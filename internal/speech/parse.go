/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package speech

import (
	"math"
	"sort"
	"strconv"
	"strings"
	"unicode"
)

const (
	tokenWaitIndefinite = "[wait]"
	tokenWaitTimed      = "[wait:"
	tokenWait           = "[wait"
	tokenExpression     = "[expression:"
	tokenContinue       = "[continue]"
	tokenHold           = "[hold]"
	tokenSpeaker        = "[speaker]"
)

// ParseOptions controls how a raw dialogue line is tokenised.
type ParseOptions struct {
	// SpeakerName replaces [speaker]. Empty for narration.
	SpeakerName string
	// HasSpeaker enables [expression:X]; narration strips the token silently.
	HasSpeaker bool
	// EventKeys are the registered [key:value] event tokens.
	EventKeys []string
	// RTL sorts gaps in descending index order.
	RTL bool
}

// Parsed is the result of tokenising a raw line.
type Parsed struct {
	Text          string
	Gaps          []Gap
	ContinueIndex int // -1 when neither [continue] nor [hold] is present
	Hold          bool
	// Unregistered lists [key: prefixes kept as text because key is not an
	// event key, in order of appearance.
	Unregistered []string
}

// Parse strips every recognised token from raw in a single forward scan and
// records gaps at the rune offset where each token stood in the clean text.
// Unknown bracketed text is kept literally.
func Parse(raw string, opt ParseOptions) (Parsed, error) {
	src := []rune(raw)
	out := make([]rune, 0, len(src))
	res := Parsed{ContinueIndex: -1}
	hasContinue := strings.Contains(raw, tokenContinue)

	for i := 0; i < len(src); {
		if src[i] != '[' {
			out = append(out, src[i])
			i++
			continue
		}
		rest := src[i:]
		switch {
		case hasPrefix(rest, tokenWaitIndefinite):
			res.Gaps = append(res.Gaps, IndefiniteWait(len(out)))
			i += len(tokenWaitIndefinite)

		case hasPrefix(rest, tokenWaitTimed):
			payload, n, err := payloadAt(src, i, tokenWaitTimed)
			if err != nil {
				return Parsed{}, err
			}
			d, err := parseWait(payload)
			if err != nil {
				return Parsed{}, &ParseError{Offset: i, Token: tokenWaitTimed, Err: err}
			}
			res.Gaps = append(res.Gaps, TimedWait(len(out), d))
			i += n

		case hasPrefix(rest, tokenWait):
			// "[wait" followed by anything but "]" or ":".
			err := ErrInvalidWait
			if !containsRune(src[i:], ']') {
				err = ErrUnterminatedToken
			}
			return Parsed{}, &ParseError{Offset: i, Token: tokenWait, Err: err}

		case hasPrefix(rest, tokenExpression):
			payload, n, err := payloadAt(src, i, tokenExpression)
			if err != nil {
				return Parsed{}, err
			}
			if opt.HasSpeaker {
				res.Gaps = append(res.Gaps, ExpressionChange(len(out), strings.TrimSpace(payload)))
			}
			i += n

		case hasPrefix(rest, tokenContinue):
			if res.ContinueIndex < 0 {
				res.ContinueIndex = len(out)
			}
			i += len(tokenContinue)

		case !hasContinue && hasPrefix(rest, tokenHold):
			if res.ContinueIndex < 0 {
				res.ContinueIndex = len(out)
			}
			res.Hold = true
			i += len(tokenHold)

		case hasPrefix(rest, tokenSpeaker):
			out = append(out, []rune(opt.SpeakerName)...)
			i += len(tokenSpeaker)

		default:
			key, ok := matchEventKey(rest, opt.EventKeys)
			if !ok {
				if k, found := keyPrefix(rest); found {
					res.Unregistered = append(res.Unregistered, k)
				}
				out = append(out, '[')
				i++
				continue
			}
			prefix := "[" + key + ":"
			payload, n, err := payloadAt(src, i, prefix)
			if err != nil {
				return Parsed{}, err
			}
			res.Gaps = append(res.Gaps, CustomEvent(len(out), key, payload))
			i += n
		}
	}

	res.Text = string(out)
	sortGaps(res.Gaps, opt.RTL)
	return res, nil
}

// StripTokens returns raw without any inline tokens, as it would be displayed
// once fully revealed.
func StripTokens(raw, speakerName string, eventKeys []string) (string, error) {
	p, err := Parse(raw, ParseOptions{SpeakerName: speakerName, HasSpeaker: speakerName != "", EventKeys: eventKeys})
	if err != nil {
		return "", err
	}
	return p.Text, nil
}

func sortGaps(gaps []Gap, rtl bool) {
	sort.SliceStable(gaps, func(a, b int) bool {
		if rtl {
			return gaps[a].Index > gaps[b].Index
		}
		return gaps[a].Index < gaps[b].Index
	})
}

func hasPrefix(s []rune, prefix string) bool {
	p := []rune(prefix)
	if len(s) < len(p) {
		return false
	}
	for i, r := range p {
		if s[i] != r {
			return false
		}
	}
	return true
}

// payloadAt returns the text between prefix (starting at src[start]) and the
// next ']' plus the token's total rune length.
func payloadAt(src []rune, start int, prefix string) (string, int, error) {
	from := start + len([]rune(prefix))
	for j := from; j < len(src); j++ {
		if src[j] == ']' {
			return string(src[from:j]), j + 1 - start, nil
		}
	}
	return "", 0, &ParseError{Offset: start, Token: prefix, Err: ErrUnterminatedToken}
}

func parseWait(payload string) (float64, error) {
	payload = strings.TrimSpace(payload)
	if payload == "" {
		return 0, nil
	}
	d, err := strconv.ParseFloat(payload, 64)
	if err != nil || d < 0 || math.IsNaN(d) || math.IsInf(d, 0) {
		return 0, ErrInvalidWait
	}
	return d, nil
}

func matchEventKey(rest []rune, keys []string) (string, bool) {
	for _, k := range keys {
		if k == "" {
			continue
		}
		if hasPrefix(rest, "["+k+":") {
			return k, true
		}
	}
	return "", false
}

func containsRune(s []rune, r rune) bool {
	for _, c := range s {
		if c == r {
			return true
		}
	}
	return false
}

// keyPrefix reports the identifier of a "[key:" prefix.
func keyPrefix(rest []rune) (string, bool) {
	for j := 1; j < len(rest); j++ {
		c := rest[j]
		switch {
		case c == ':':
			return string(rest[1:j]), j > 1
		case c == '_' || c == '-' || unicode.IsLetter(c) || unicode.IsDigit(c):
		default:
			return "", false
		}
	}
	return "", false
}
