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
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gospeech/internal/script"
)

const sample = `# Harbour
ANN: Look,[wait:1] the ship! @id=12
; Ann points at the horizon
BOB: Where?[expression:confused] I see nothing. @bg
NARRATION: The fog <b>thickens</b>.

# Dock
ANN: Come on, [speaker]!
`

func parseSample(t *testing.T) script.Script {
	t.Helper()
	s, errs := script.Parse(sample)
	if len(errs) != 0 {
		t.Fatalf("parse errors: %v", errs)
	}
	return s
}

func TestScriptSheetTextStripsTokens(t *testing.T) {
	var buf bytes.Buffer
	if err := ScriptSheetText(&buf, parseSample(t), SheetOptions{Title: "Act 1", LineIDs: true}); err != nil {
		t.Fatalf("ScriptSheetText: %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		"Act 1\n=====\n",
		"## Harbour\n",
		"[12] ANN: Look, the ship!",
		"BOB: Where? I see nothing. (background)",
		"Narrator: The fog thickens.",
		"## Dock\n",
		"ANN: Come on, ANN!",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("sheet missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "[wait") || strings.Contains(out, "<b>") || strings.Contains(out, "Ann points") {
		t.Fatalf("tokens, tags or notes leaked:\n%s", out)
	}
}

func TestScriptSheetTextNotesAndRawTokens(t *testing.T) {
	var buf bytes.Buffer
	if err := ScriptSheetText(&buf, parseSample(t), SheetOptions{Notes: true, Tokens: true}); err != nil {
		t.Fatalf("ScriptSheetText: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "  ; Ann points at the horizon") {
		t.Fatalf("note missing:\n%s", out)
	}
	if !strings.Contains(out, "ANN: Look,[wait:1] the ship!") {
		t.Fatalf("raw tokens expected:\n%s", out)
	}
}

func TestScriptSheetReportsMalformedLines(t *testing.T) {
	s, _ := script.Parse("# S\nANN: broken [wait:abc] token\nBOB: fine\n")
	var buf bytes.Buffer
	err := ScriptSheetText(&buf, s, SheetOptions{})
	var se *SheetError
	if !errors.As(err, &se) || len(se.Errs) != 1 {
		t.Fatalf("expected one SheetError entry, got %v", err)
	}
	if !IsPartial(err) {
		t.Fatalf("expected partial error")
	}
	if !strings.Contains(buf.String(), "ANN: broken [wait:abc] token") || !strings.Contains(buf.String(), "BOB: fine") {
		t.Fatalf("sheet should still be written:\n%s", buf.String())
	}
}

func TestScriptSheetPDFCreatesFile(t *testing.T) {
	out := filepath.Join(t.TempDir(), "sheets", "act1.pdf")
	if err := ScriptSheetPDF(parseSample(t), out, SheetOptions{Title: "Act 1", LineIDs: true, Notes: true, PageSize: "letter"}); err != nil {
		t.Fatalf("ScriptSheetPDF: %v", err)
	}
	b, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(b) == 0 || !bytes.HasPrefix(b, []byte("%PDF-")) {
		t.Fatalf("not a pdf file")
	}
}

func TestScriptSheetPDFEmptyScript(t *testing.T) {
	out := filepath.Join(t.TempDir(), "empty.pdf")
	if err := ScriptSheetPDF(script.Script{}, out, SheetOptions{}); err != nil {
		t.Fatalf("ScriptSheetPDF: %v", err)
	}
	if st, err := os.Stat(out); err != nil || st.Size() == 0 {
		t.Fatalf("expected pdf file, err=%v", err)
	}
}

func TestBatchExportRecordingPreset(t *testing.T) {
	dir := t.TempDir()
	files, err := BatchExport(parseSample(t), BatchOptions{Preset: PresetRecording, OutDir: dir, Name: "act1", PerCharacter: true})
	if err != nil {
		t.Fatalf("BatchExport: %v", err)
	}
	want := []string{
		filepath.Join(dir, "act1.pdf"),
		filepath.Join(dir, "act1.txt"),
		filepath.Join(dir, "characters", "ANN.pdf"),
		filepath.Join(dir, "characters", "ANN.txt"),
		filepath.Join(dir, "characters", "BOB.pdf"),
		filepath.Join(dir, "characters", "BOB.txt"),
	}
	if len(files) != len(want) {
		t.Fatalf("expected %d files, got %v", len(want), files)
	}
	for _, p := range want {
		st, err := os.Stat(p)
		if err != nil {
			t.Fatalf("missing %s: %v", p, err)
		}
		if st.Size() <= 0 {
			t.Fatalf("empty file: %s", p)
		}
	}
	txt, _ := os.ReadFile(filepath.Join(dir, "characters", "BOB.txt"))
	if strings.Contains(string(txt), "ANN:") || strings.Contains(string(txt), "Narrator") {
		t.Fatalf("character sheet leaked other speakers:\n%s", txt)
	}
}

func TestBatchExportRejectsUnknownFormat(t *testing.T) {
	if _, err := BatchExport(parseSample(t), BatchOptions{OutDir: t.TempDir(), Formats: []string{"epub"}}); err == nil {
		t.Fatalf("expected error for unknown format")
	}
}

func TestCharactersAndFileSafe(t *testing.T) {
	got := Characters(parseSample(t))
	if len(got) != 2 || got[0] != "ANN" || got[1] != "BOB" {
		t.Fatalf("unexpected characters %v", got)
	}
	if fileSafe("Dr. Who?") != "Dr__Who_" {
		t.Fatalf("unexpected file name %q", fileSafe("Dr. Who?"))
	}
}
