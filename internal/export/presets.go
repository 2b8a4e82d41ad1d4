/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package export

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gospeech/internal/script"
)

// PresetName represents a named export preset.
type PresetName string

const (
	// PresetRecording targets voice sessions: line ids on, notes off.
	PresetRecording PresetName = "recording"
	// PresetReading targets table reads: notes on, no ids.
	PresetReading PresetName = "reading"
)

// BatchOptions controls exporting one script in several formats.
//
// Path semantics:
//   - OutDir defaults to ./exports/<preset>.
//   - Files are named <Name>.pdf and <Name>.txt; Name defaults to "script".
//   - Character sheets go to <OutDir>/characters/<name>.(pdf|txt) when PerCharacter is set.
type BatchOptions struct {
	Preset       PresetName
	Formats      []string // allowed: pdf, txt; empty means preset defaults
	OutDir       string
	Name         string
	Title        string
	EventKeys    []string
	PerCharacter bool
}

// BatchExport writes the script according to the given preset and returns the files written.
func BatchExport(s script.Script, opt BatchOptions) ([]string, error) {
	formats := opt.Formats
	if len(formats) == 0 {
		formats = presetDefaultFormats(opt.Preset)
	}
	for i := range formats {
		formats[i] = strings.ToLower(strings.TrimSpace(formats[i]))
	}
	baseOut := opt.OutDir
	if baseOut == "" {
		p := opt.Preset
		if p == "" {
			p = PresetReading
		}
		baseOut = filepath.Join("exports", string(p))
	}
	name := opt.Name
	if name == "" {
		name = "script"
	}
	sheet := presetSheetOptions(opt.Preset)
	sheet.Title = opt.Title
	sheet.EventKeys = opt.EventKeys

	var written []string
	var partial error
	emit := func(sc script.Script, dir, base string, so SheetOptions) error {
		for _, f := range formats {
			out := filepath.Join(dir, base+"."+f)
			var err error
			switch f {
			case "pdf":
				err = ScriptSheetPDF(sc, out, so)
			case "txt":
				err = writeTextSheet(sc, out, so)
			default:
				return fmt.Errorf("unknown format: %s", f)
			}
			if err != nil && !IsPartial(err) {
				return fmt.Errorf("%s %s: %w", f, base, err)
			}
			if err != nil && partial == nil {
				partial = err
			}
			written = append(written, out)
		}
		return nil
	}
	if err := emit(s, baseOut, name, sheet); err != nil {
		return written, err
	}
	if opt.PerCharacter {
		for _, who := range Characters(s) {
			so := sheet
			so.SkipNarrator = true
			so.Title = strings.TrimSpace(opt.Title + " " + who)
			if err := emit(ForCharacter(s, who), filepath.Join(baseOut, "characters"), fileSafe(who), so); err != nil {
				return written, err
			}
		}
	}
	return written, partial
}

func writeTextSheet(s script.Script, out string, so SheetOptions) error {
	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return fmt.Errorf("ensure out dir: %w", err)
	}
	f, err := os.Create(out)
	if err != nil {
		return err
	}
	werr := ScriptSheetText(f, s, so)
	if cerr := f.Close(); cerr != nil && werr == nil {
		return cerr
	}
	return werr
}

// Characters lists the speaking characters of a script in order of first appearance.
func Characters(s script.Script) []string {
	seen := map[string]bool{}
	var out []string
	for _, sc := range s.Scenes {
		for _, ln := range sc.Lines {
			if ln.Type != script.LineDialogue || ln.Character == "" {
				continue
			}
			k := strings.ToLower(ln.Character)
			if !seen[k] {
				seen[k] = true
				out = append(out, ln.Character)
			}
		}
	}
	return out
}

// ForCharacter keeps only the dialogue lines of one character; empty scenes are dropped.
func ForCharacter(s script.Script, who string) script.Script {
	var out script.Script
	for _, sc := range s.Scenes {
		var lines []script.Line
		for _, ln := range sc.Lines {
			if ln.Type == script.LineDialogue && strings.EqualFold(ln.Character, who) {
				lines = append(lines, ln)
			}
		}
		if len(lines) > 0 {
			out.Scenes = append(out.Scenes, script.Scene{Title: sc.Title, Lines: lines})
		}
	}
	return out
}

func fileSafe(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, name)
}

func presetDefaultFormats(p PresetName) []string {
	switch p {
	case PresetRecording:
		return []string{"pdf", "txt"}
	default:
		return []string{"pdf"}
	}
}

func presetSheetOptions(p PresetName) SheetOptions {
	switch p {
	case PresetRecording:
		return SheetOptions{LineIDs: true}
	default:
		return SheetOptions{Notes: true}
	}
}
