/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package crash turns a panic into a report file and a snapshot of the
// recent speech backlog.
package crash

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"runtime/debug"
	"time"

	"gospeech/internal/backlog"
	applog "gospeech/internal/log"
	"gospeech/internal/storage"
	"gospeech/internal/telemetry"
	"gospeech/internal/version"
)

// CrashDirName is created under the catalog directory to hold reports.
const CrashDirName = "crash"

// backlogLines is how many recent lines a report quotes.
const backlogLines = 20

// exitFn is swapped in tests.
var exitFn = os.Exit

// State is what the process knew when it crashed. Every field is optional.
type State struct {
	Root    string // catalog root; reports go to <root>/.gsp/crash
	Scene   string
	Backlog *backlog.Log
}

// Dir returns where reports for s are written.
func (s *State) Dir() string {
	if s == nil || s.Root == "" {
		return os.TempDir()
	}
	return filepath.Join(s.Root, storage.CatalogDirName, CrashDirName)
}

// Recover must be deferred directly. It logs the panic, writes a report and a
// backlog snapshot, then exits with status 2.
//
// Usage: defer crash.Recover(st)
func Recover(st *State) {
	r := recover()
	if r == nil {
		return
	}
	l := applog.WithComponent("crash")
	stack := debug.Stack()
	l.Error("panic recovered", slog.Any("panic", r), slog.String("stack", string(stack)))

	reportPath, err := writeReport(st, r, stack)
	if err != nil {
		l.Error("cannot write crash report", slog.Any("err", err))
	}
	if st != nil && st.Backlog != nil {
		if path, err := writeBacklog(st, time.Now()); err != nil {
			l.Error("backlog snapshot failed", slog.Any("err", err))
		} else {
			l.Info("backlog snapshot written", slog.String("path", path))
		}
	}
	_, _ = fmt.Fprintf(os.Stderr, "A fatal error occurred. A crash report was saved to: %s\n", reportPath)
	_, _ = fmt.Fprintf(os.Stderr, "Version: %s\nOS/Arch: %s/%s\n", version.String(), runtime.GOOS, runtime.GOARCH)
	exitFn(2)
}

func stamp(t time.Time) string { return t.Format("20060102-150405") }

func writeReport(st *State, panicVal any, stack []byte) (string, error) {
	dir := st.Dir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	now := time.Now()
	path := filepath.Join(dir, fmt.Sprintf("crash-%s.log", stamp(now)))

	var buf bytes.Buffer
	_, _ = fmt.Fprintf(&buf, "GoSpeech Crash Report\n")
	_, _ = fmt.Fprintf(&buf, "Timestamp: %s\n", now.Format(time.RFC3339))
	_, _ = fmt.Fprintf(&buf, "Version: %s\n", version.String())
	_, _ = fmt.Fprintf(&buf, "OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
	if st != nil {
		if st.Root != "" {
			_, _ = fmt.Fprintf(&buf, "CatalogRoot: %s\n", st.Root)
		}
		if st.Scene != "" {
			_, _ = fmt.Fprintf(&buf, "Scene: %s\n", st.Scene)
		}
	}
	_, _ = fmt.Fprintf(&buf, "\nPanic: %v\n\n", panicVal)
	_, _ = fmt.Fprintf(&buf, "Stack:\n%s\n", string(stack))
	// The backlog is not uploaded; it holds script text.
	upload := append([]byte(nil), buf.Bytes()...)

	if st != nil && st.Backlog != nil {
		recent := st.Backlog.Recent(backlogLines)
		_, _ = fmt.Fprintf(&buf, "Recent lines (%d):\n", len(recent))
		for _, e := range recent {
			_, _ = fmt.Fprintf(&buf, "  %s [%d] %s: %s\n", e.TS.Format(time.TimeOnly), e.Log.LineID, e.Log.SpeakerName, e.Log.FullText)
		}
	}

	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return path, err
	}
	if err := telemetry.UploadCrash(context.Background(), upload); err != nil {
		applog.WithComponent("crash").Debug("crash upload failed", slog.Any("err", err))
	}
	return path, nil
}

func writeBacklog(st *State, now time.Time) (string, error) {
	dir := st.Dir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, fmt.Sprintf("backlog-%s.json", stamp(now)))
	data, err := json.MarshalIndent(st.Backlog.Recent(0), "", "  ")
	if err != nil {
		return "", err
	}
	return path, os.WriteFile(path, data, 0o644)
}
