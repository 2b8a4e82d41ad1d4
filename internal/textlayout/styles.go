/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package textlayout

// TextStyle is a subtitle style preset: a font plus spacing in pixels.
type TextStyle struct {
	Name     string
	Font     FontSpec
	Tracking float32 // px between glyphs
	Leading  float32 // extra px added to line height
}

const (
	StyleSubtitle   = "Subtitle"
	StyleNarration  = "Narration"
	StyleBackground = "Background"
)

var builtinStyles = map[string]TextStyle{
	StyleSubtitle: {
		Name:    StyleSubtitle,
		Font:    FontSpec{Family: "Go", SizePt: 16, Weight: 400},
		Leading: 4,
	},
	StyleNarration: {
		Name:     StyleNarration,
		Font:     FontSpec{Family: "Go", SizePt: 16, Weight: 400, Italic: true},
		Tracking: 0.25,
		Leading:  4,
	},
	// Ambient chatter: smaller and tighter so it does not compete with the foreground line.
	StyleBackground: {
		Name:    StyleBackground,
		Font:    FontSpec{Family: "Go", SizePt: 12, Weight: 400},
		Leading: 2,
	},
}

// GetStyle returns a builtin style preset by name.
func GetStyle(name string) (TextStyle, bool) { s, ok := builtinStyles[name]; return s, ok }

// ListStyles lists the builtin style names in stable order.
func ListStyles() []string { return []string{StyleSubtitle, StyleNarration, StyleBackground} }

// StyleNameFor picks the builtin style for a line.
func StyleNameFor(narration, background bool) string {
	switch {
	case background:
		return StyleBackground
	case narration:
		return StyleNarration
	default:
		return StyleSubtitle
	}
}

// StyleSheet resolves styles with per-speaker overrides.
// Precedence is Speaker > Global > builtin.
type StyleSheet struct {
	Global  map[string]TextStyle
	Speaker map[string]TextStyle // keyed by speaker name; narration uses "Narrator"
}

// NewStyleSheet creates a stylesheet seeded with the builtins.
func NewStyleSheet() *StyleSheet {
	ss := &StyleSheet{Global: map[string]TextStyle{}, Speaker: map[string]TextStyle{}}
	for _, name := range ListStyles() {
		ss.Global[name], _ = GetStyle(name)
	}
	return ss
}

// Resolve returns the style for a speaker and style name.
func (s *StyleSheet) Resolve(speaker, name string) (TextStyle, bool) {
	if s != nil {
		if st, ok := s.Speaker[speaker]; ok && speaker != "" {
			return st, true
		}
		if st, ok := s.Global[name]; ok {
			return st, true
		}
	}
	return GetStyle(name)
}
