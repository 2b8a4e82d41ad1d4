/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package log

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestFromEnv(t *testing.T) {
	t.Setenv("GSP_LOG_LEVEL", "warn")
	t.Setenv("GSP_LOG_FORMAT", "json")
	t.Setenv("GSP_LOG_SOURCE", "1")
	t.Setenv("GSP_LOG_FILE", "")

	opts := FromEnv()
	if opts.Level != "warn" || opts.Format != "json" || !opts.AddSource || opts.File != "" {
		t.Fatalf("FromEnv mismatch: %+v", opts)
	}
	t.Setenv("GSP_LOG_LEVEL", "  ")
	if got := FromEnv().Level; got != "info" {
		t.Fatalf("blank level should fall back to info, got %q", got)
	}
}

func TestLevelOf(t *testing.T) {
	cases := map[string]slog.Level{
		"debug": slog.LevelDebug, "WARNING": slog.LevelWarn, " error ": slog.LevelError,
		"": slog.LevelInfo, "chatty": slog.LevelInfo,
	}
	for in, want := range cases {
		if got := levelOf(in); got != want {
			t.Fatalf("levelOf(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestConsoleHandlerLine(t *testing.T) {
	var buf bytes.Buffer
	h := &consoleHandler{w: &buf, mu: new(sync.Mutex), min: slog.LevelWarn}

	if h.Enabled(context.Background(), slog.LevelInfo) {
		t.Fatalf("info should not be enabled at warn level")
	}
	if !h.Enabled(context.Background(), slog.LevelError) {
		t.Fatalf("error should be enabled at warn level")
	}

	h2 := h.WithAttrs([]slog.Attr{slog.String("speaker", "Ann")}).WithGroup("line")
	r := slog.NewRecord(time.Date(2026, 1, 2, 9, 30, 0, 0, time.UTC), slog.LevelError, "clip missing", 0)
	r.AddAttrs(slog.Int("id", 42), slog.Float64("end", 2.5), slog.String("text", "Ahoy there"))
	if err := h2.Handle(context.Background(), r); err != nil {
		t.Fatalf("handle: %v", err)
	}

	out := buf.String()
	for _, want := range []string{"09:30:00.000 ERR clip missing", "speaker=Ann", "line.id=42", "line.end=2.5", `line.text="Ahoy there"`} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in %q", want, out)
		}
	}
	if strings.Contains(out, "line.speaker") {
		t.Fatalf("attrs added before the group must not be prefixed: %q", out)
	}
}

func TestFormatValue(t *testing.T) {
	if got := formatValue(slog.Float64Value(10)); got != "10" {
		t.Fatalf("expected 10, got %q", got)
	}
	if got := formatValue(slog.DurationValue(1500 * time.Millisecond)); got != "1.5s" {
		t.Fatalf("expected 1.5s, got %q", got)
	}
	if got := formatValue(slog.StringValue("")); got != `""` {
		t.Fatalf("empty string should be quoted, got %q", got)
	}
}

func TestFanOutSkipsDisabledHandlers(t *testing.T) {
	var quiet, loud bytes.Buffer
	f := fanOut{
		&consoleHandler{w: &quiet, mu: new(sync.Mutex), min: slog.LevelError},
		&consoleHandler{w: &loud, mu: new(sync.Mutex), min: slog.LevelDebug},
	}
	l := slog.New(f)
	l.Info("line started")
	if quiet.Len() != 0 || !strings.Contains(loud.String(), "line started") {
		t.Fatalf("fan-out mismatch: quiet=%q loud=%q", quiet.String(), loud.String())
	}
}

func TestContextAttrsAreAppended(t *testing.T) {
	var buf bytes.Buffer
	Init(Options{Level: "info", Console: &buf})
	t.Cleanup(func() { Init(Options{Level: "info"}) })

	ctx := ContextWith(context.Background(), slog.String("scene", "Dock"))
	ctx = ContextWith(ctx, slog.Int("line_id", 4))
	WithComponent("dialog").InfoContext(ctx, "line started")

	out := buf.String()
	if !strings.Contains(out, "scene=Dock") || !strings.Contains(out, "line_id=4") || !strings.Contains(out, "component=dialog") {
		t.Fatalf("context attrs missing: %q", out)
	}
	buf.Reset()
	L().Info("plain")
	if strings.Contains(buf.String(), "scene=") {
		t.Fatalf("context attrs leaked into a plain record: %q", buf.String())
	}
}
