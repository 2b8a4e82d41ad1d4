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

import "gospeech/internal/speech"

// Subtitler wraps displayed speech text into lines for a subtitle box.
type Subtitler struct {
	Layouter Layouter
	Sheet    *StyleSheet
	MaxWidth float32
}

// NewSubtitler returns a subtitler measuring with provider (basic face when nil).
func NewSubtitler(provider Provider, maxWidth float32) *Subtitler {
	return &Subtitler{Layouter: NewWordWrap(provider), Sheet: NewStyleSheet(), MaxWidth: maxWidth}
}

// Wrap lays out text for speaker. Rich text tags are stripped before measuring.
func (s *Subtitler) Wrap(speaker string, narration, background bool, text string) (TextBox, error) {
	st, _ := s.Sheet.Resolve(speaker, StyleNameFor(narration, background))
	return s.Layouter.Layout([]Span{{
		Text:     speech.StripRichText(text),
		Font:     st.Font,
		Tracking: st.Tracking,
		Leading:  st.Leading,
	}}, s.MaxWidth)
}

// WrapLine lays out what a live line currently displays.
func (s *Subtitler) WrapLine(l *speech.Line) (TextBox, error) {
	who := l.SpeakerLabel()
	return s.Wrap(who, l.Speaker() == nil, l.IsBackground(), l.DisplayText())
}

// WrapSubtitle wraps text in the default subtitle style with the basic face.
func WrapSubtitle(text string, maxWidth float32) []string {
	box, _ := NewSubtitler(nil, maxWidth).Wrap("", false, false, text)
	return box.Strings()
}
