/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package export writes script sheets: per-scene listings of who says what,
// with speech tokens removed, for voice recording sessions and table reads.
package export

import (
	"fmt"
	"io"
	"strings"

	"gospeech/internal/script"
	"gospeech/internal/speech"
)

// SheetOptions controls what a script sheet contains.
type SheetOptions struct {
	Title        string
	EventKeys    []string // custom event tokens to strip besides the built-in ones
	LineIDs      bool     // prefix each line with its id when it has one
	Notes        bool     // include author notes
	Tokens       bool     // keep speech tokens verbatim instead of stripping them
	PageSize     string   // "A4" (default) or "Letter"; PDF only
	SkipNarrator bool     // leave narration out, e.g. for a character recording session
}

// sheetRow is one printable entry of a sheet.
type sheetRow struct {
	Scene   string
	Speaker string
	Text    string
	LineID  int
	Note    bool
	Flags   []string
}

// sheetRows flattens a script into printable rows. Lines whose tokens are malformed keep their raw text.
func sheetRows(s script.Script, opt SheetOptions) ([]sheetRow, []error) {
	var (
		rows []sheetRow
		errs []error
	)
	for _, sc := range s.Scenes {
		for _, ln := range sc.Lines {
			switch {
			case ln.Type == script.LineNote:
				if opt.Notes {
					rows = append(rows, sheetRow{Scene: sc.Title, Text: ln.Text, LineID: -1, Note: true})
				}
				continue
			case !ln.Spoken():
				continue
			case ln.Type == script.LineNarration && opt.SkipNarrator:
				continue
			}
			speaker := ln.Character
			if ln.Type == script.LineNarration {
				speaker = "Narrator"
			}
			text := ln.Text
			if !opt.Tokens {
				clean, err := speech.StripTokens(ln.Text, ln.Character, opt.EventKeys)
				if err != nil {
					errs = append(errs, fmt.Errorf("line %d: %w", ln.LineNo, err))
				} else {
					text = speech.StripRichText(clean)
				}
			}
			var flags []string
			if ln.Background {
				flags = append(flags, "background")
			}
			if ln.Language != "" {
				flags = append(flags, ln.Language)
			}
			rows = append(rows, sheetRow{Scene: sc.Title, Speaker: speaker, Text: strings.TrimSpace(text), LineID: ln.LineID, Flags: flags})
		}
	}
	return rows, errs
}

// ScriptSheetText writes a plain-text script sheet to w.
func ScriptSheetText(w io.Writer, s script.Script, opt SheetOptions) error {
	rows, errs := sheetRows(s, opt)
	var b strings.Builder
	if opt.Title != "" {
		b.WriteString(opt.Title + "\n")
		b.WriteString(strings.Repeat("=", len([]rune(opt.Title))) + "\n\n")
	}
	scene := ""
	first := true
	for _, r := range rows {
		if first || r.Scene != scene {
			if !first {
				b.WriteString("\n")
			}
			scene = r.Scene
			first = false
			b.WriteString("## " + scene + "\n")
		}
		b.WriteString(formatRow(r, opt) + "\n")
	}
	if _, err := io.WriteString(w, b.String()); err != nil {
		return fmt.Errorf("write sheet: %w", err)
	}
	if len(errs) > 0 {
		return &SheetError{Errs: errs}
	}
	return nil
}

func formatRow(r sheetRow, opt SheetOptions) string {
	if r.Note {
		return "  ; " + r.Text
	}
	var b strings.Builder
	if opt.LineIDs && r.LineID >= 0 {
		fmt.Fprintf(&b, "[%d] ", r.LineID)
	}
	b.WriteString(r.Speaker + ": " + r.Text)
	if len(r.Flags) > 0 {
		b.WriteString(" (" + strings.Join(r.Flags, ", ") + ")")
	}
	return b.String()
}

// SheetError reports lines whose speech tokens could not be stripped.
// The sheet is still written; those lines keep their raw text.
type SheetError struct {
	Errs []error
}

func (e *SheetError) Error() string {
	if len(e.Errs) == 1 {
		return "script sheet: " + e.Errs[0].Error()
	}
	return fmt.Sprintf("script sheet: %d lines with malformed tokens (first: %v)", len(e.Errs), e.Errs[0])
}

func (e *SheetError) Unwrap() []error { return e.Errs }
