/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package script

import (
	"bufio"
	"regexp"
	"strconv"
	"strings"
)

// Parse parses a script text into a structured Script.
// Supported syntax:
// - Scene headings:
//   - Lines starting with "#" or "Scene:" introduce a new scene. The rest of the line is the title.
//
// - Dialogue: NAME: text  (NAME is kept as written, trimmed)
//   - Continuation lines indented by 2+ spaces are appended to the previous Dialogue/Narration.
//
// - Narration: NARRATION: text or NARRATOR: text
// - Notes: lines starting with ';' are LineNote.
// - Metadata tags anywhere in a spoken line: @background, @noanim, @id=<n>, @lang=<code>.
// Blank lines are preserved as separators but not represented as lines.
func Parse(input string) (Script, []Error) {
	s := Script{Scenes: []Scene{}}
	var errs []Error

	scanner := bufio.NewScanner(strings.NewReader(input))
	lineNo := 0
	currentScene := Scene{}
	var lastLine *Line

	// Patterns
	reScene := regexp.MustCompile(`^(#+)\s*(.*)$`)
	reSceneAlt := regexp.MustCompile(`^(?i)\s*Scene:\s*(.+)$`)
	reName := regexp.MustCompile(`^([A-Za-z0-9_\- ]{1,64})\s*:\s*(.*)$`)
	reTag := regexp.MustCompile(`(?i)@([a-z0-9_\-]+)(?:=(\S+))?`) // tags like @tag-name or @id=12

	// applyTags moves metadata tags from text into ln and reports malformed ones.
	applyTags := func(ln *Line, text string, col int) string {
		var pieces []string
		last := 0
		for _, m := range reTag.FindAllStringSubmatchIndex(text, -1) {
			name := strings.ToLower(text[m[2]:m[3]])
			val := ""
			if m[4] >= 0 {
				val = text[m[4]:m[5]]
			}
			meta := true
			switch name {
			case "background", "bg":
				ln.Background = true
			case "noanim":
				ln.NoAnimation = true
			case "id":
				id, err := strconv.Atoi(val)
				if err != nil || id < 0 {
					errs = append(errs, Error{Line: lineNo, Column: col + m[0] + 1, Message: "invalid line id " + strconv.Quote(val)})
				} else {
					ln.LineID = id
				}
			case "lang":
				if val == "" {
					errs = append(errs, Error{Line: lineNo, Column: col + m[0] + 1, Message: "missing language code"})
				}
				ln.Language = val
			default:
				meta = false
				if !containsTag(ln.Tags, name) {
					ln.Tags = append(ln.Tags, name)
				}
			}
			if meta {
				pieces = append(pieces, text[last:m[0]])
				last = m[1]
			}
		}
		if pieces == nil {
			return text
		}
		pieces = append(pieces, text[last:])
		kept := pieces[:0]
		for _, p := range pieces {
			if p = strings.TrimSpace(p); p != "" {
				kept = append(kept, p)
			}
		}
		return strings.Join(kept, " ")
	}

	flushScene := func() {
		if strings.TrimSpace(currentScene.Title) != "" || len(currentScene.Lines) > 0 {
			s.Scenes = append(s.Scenes, currentScene)
		}
	}

	for scanner.Scan() {
		lineNo++
		raw := scanner.Text()
		line := strings.TrimRight(raw, "\r\n")

		// Continuation line (indented) -> append to last dialogue/narration
		if strings.HasPrefix(line, "  ") && lastLine != nil && lastLine.Spoken() {
			cont := strings.TrimSpace(line)
			if cont != "" {
				cont = applyTags(lastLine, cont, len(line)-len(strings.TrimLeft(line, " \t")))
				if cont != "" {
					lastLine.Text += "\n" + cont
				}
			}
			continue
		}

		trim := strings.TrimSpace(line)
		if trim == "" {
			lastLine = nil
			continue
		}

		// Scene heading
		if m := reScene.FindStringSubmatch(trim); m != nil {
			flushScene()
			currentScene = Scene{Title: strings.TrimSpace(m[2])}
			lastLine = nil
			continue
		}
		if m := reSceneAlt.FindStringSubmatch(trim); m != nil {
			flushScene()
			currentScene = Scene{Title: strings.TrimSpace(m[1])}
			lastLine = nil
			continue
		}

		// Note line
		if strings.HasPrefix(trim, ";") {
			currentScene.Lines = append(currentScene.Lines, Line{Type: LineNote, Text: strings.TrimSpace(strings.TrimPrefix(trim, ";")), LineID: -1, LineNo: lineNo})
			lastLine = nil
			continue
		}

		if len(s.Scenes) == 0 && strings.TrimSpace(currentScene.Title) == "" && len(currentScene.Lines) == 0 {
			currentScene.Title = "Untitled"
		}

		// NAME: text or NARRATION
		if m := reName.FindStringSubmatch(trim); m != nil {
			name := strings.TrimSpace(m[1])
			ln := Line{Type: LineDialogue, Character: name, LineID: -1, LineNo: lineNo}
			switch strings.ToUpper(name) {
			case "NARRATION", "NARRATOR":
				ln.Type = LineNarration
				ln.Character = ""
			}
			ln.Text = applyTags(&ln, strings.TrimSpace(m[2]), strings.Index(line, m[2]))
			currentScene.Lines = append(currentScene.Lines, ln)
			lastLine = &currentScene.Lines[len(currentScene.Lines)-1]
			continue
		}

		// Otherwise keep it as unknown to avoid data loss
		currentScene.Lines = append(currentScene.Lines, Line{Type: LineUnknown, Text: trim, LineID: -1, LineNo: lineNo})
		lastLine = nil
	}
	flushScene()

	if err := scanner.Err(); err != nil {
		errs = append(errs, Error{Line: lineNo, Column: 1, Message: err.Error()})
	}
	return s, errs
}

func containsTag(tags []string, t string) bool {
	for _, x := range tags {
		if x == t {
			return true
		}
	}
	return false
}
