/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package crash

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"gospeech/internal/backlog"
	"gospeech/internal/speech"
)

func TestRecover_WritesReportAndBacklog(t *testing.T) {
	oldStderr := os.Stderr
	r, w, _ := os.Pipe()
	os.Stderr = w
	defer func() {
		_ = w.Close()
		os.Stderr = oldStderr
		_, _ = io.Copy(io.Discard, r)
	}()

	called := 0
	oldExit := exitFn
	exitFn = func(code int) { called = code }
	defer func() { exitFn = oldExit }()

	bl := backlog.New(backlog.Config{})
	bl.Push(speech.SpeechLog{FullText: "Last words", SpeakerName: "Bob", LineID: -1}, time.Now())
	st := &State{Root: t.TempDir(), Backlog: bl}

	func() {
		defer Recover(st)
		panic("boom")
	}()

	files, _ := os.ReadDir(st.Dir())
	var report, snapshot string
	for _, f := range files {
		switch {
		case strings.HasPrefix(f.Name(), "crash-") && strings.HasSuffix(f.Name(), ".log"):
			report = filepath.Join(st.Dir(), f.Name())
		case strings.HasPrefix(f.Name(), "backlog-") && strings.HasSuffix(f.Name(), ".json"):
			snapshot = filepath.Join(st.Dir(), f.Name())
		}
	}
	if report == "" || snapshot == "" {
		t.Fatalf("expected report and snapshot in %s, got %v", st.Dir(), files)
	}
	b, _ := os.ReadFile(report)
	if !bytes.Contains(b, []byte("Panic: boom")) {
		t.Fatalf("report does not contain panic: %s", b)
	}
	var entries []backlog.Entry
	data, _ := os.ReadFile(snapshot)
	if err := json.Unmarshal(data, &entries); err != nil || len(entries) != 1 || entries[0].Log.FullText != "Last words" {
		t.Fatalf("snapshot: %v %+v", err, entries)
	}
	if called != 2 {
		t.Fatalf("expected exit code 2, got %d", called)
	}
}

func TestRecoverWithoutPanicIsNoop(t *testing.T) {
	called := false
	oldExit := exitFn
	exitFn = func(int) { called = true }
	defer func() { exitFn = oldExit }()
	func() {
		defer Recover(nil)
	}()
	if called {
		t.Fatalf("exit must not be called without a panic")
	}
}
