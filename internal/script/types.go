/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package script

import "fmt"

// Script is a parsed dialogue script: scenes of spoken lines.
type Script struct {
	Scenes []Scene
}

type Scene struct {
	Title string
	Lines []Line
}

// LineType indicates the kind of a script line.
// Dialogue:  NAME: text
// Narration: NARRATION: text or NARRATOR: text
// Note:      lines starting with ";" are author notes and never spoken

type LineType int

const (
	LineUnknown LineType = iota
	LineDialogue
	LineNarration
	LineNote
)

func (t LineType) String() string {
	switch t {
	case LineDialogue:
		return "dialogue"
	case LineNarration:
		return "narration"
	case LineNote:
		return "note"
	default:
		return "unknown"
	}
}

// Line captures a single logical line (possibly with continuations) in a scene.
// Text keeps inline speech tokens such as [wait:1] verbatim; metadata tags
// (@background, @noanim, @id=N, @lang=xx) are removed from it and stored in
// the fields below. Other @tags stay in Text and are listed in Tags.
type Line struct {
	Type        LineType
	Character   string
	Text        string
	Tags        []string
	LineID      int // -1 unless @id=N is given
	Language    string
	Background  bool
	NoAnimation bool
	LineNo      int // 1-based starting line number in the source
}

// Spoken reports whether the line is meant to be played.
func (l Line) Spoken() bool { return l.Type == LineDialogue || l.Type == LineNarration }

// Spoken returns every playable line of the scene in order.
func (s Scene) Spoken() []Line {
	var out []Line
	for _, l := range s.Lines {
		if l.Spoken() {
			out = append(out, l)
		}
	}
	return out
}

// Scene finds a scene by title, case-sensitively.
func (s Script) Scene(title string) (Scene, bool) {
	for _, sc := range s.Scenes {
		if sc.Title == title {
			return sc, true
		}
	}
	return Scene{}, false
}

// Error represents a parse error with position context.

type Error struct {
	Line    int
	Column  int
	Message string
}

func (e Error) Error() string { return fmt.Sprintf("line %d:%d: %s", e.Line, e.Column, e.Message) }
