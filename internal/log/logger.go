/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package log sets up the process-wide slog logger: a compact console handler
// for people, JSON for machines and an optional rotated JSON file. Records
// logged with a context built by ContextWith carry the scene and line
// attributes stored on it.
package log

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"gospeech/internal/version"

	lj "gopkg.in/natefinch/lumberjack.v2"
)

// Environment variables read by FromEnv.
const (
	envLevel  = "GSP_LOG_LEVEL"
	envFormat = "GSP_LOG_FORMAT"
	envFile   = "GSP_LOG_FILE"
	envSource = "GSP_LOG_SOURCE"
)

// Options configures Init. Format is "console" (default) or "json"; a
// non-empty File adds a rotated JSON file next to the console output.
type Options struct {
	Level     string
	Format    string
	AddSource bool
	File      string
	Console   io.Writer // os.Stderr when nil
}

type state struct {
	mu     sync.RWMutex
	logger *slog.Logger
	file   *lj.Logger
}

var global state

// L returns the application logger. The first call without Init configures
// it from the environment.
func L() *slog.Logger {
	global.mu.RLock()
	l := global.logger
	global.mu.RUnlock()
	if l == nil {
		l = Init(FromEnv())
	}
	return l
}

// Init replaces the application logger and slog's default, closing the file
// writer of the previous configuration.
func Init(opts Options) *slog.Logger {
	lvl := levelOf(opts.Level)
	out := opts.Console
	if out == nil {
		out = os.Stderr
	}

	sinks := []slog.Handler{contextual(consoleFor(opts.Format, out, lvl, opts.AddSource))}
	var file *lj.Logger
	if path := strings.TrimSpace(opts.File); path != "" {
		file = &lj.Logger{Filename: path, MaxSize: 10, MaxBackups: 3, MaxAge: 28, Compress: true}
		sinks = append(sinks, contextual(slog.NewJSONHandler(file, &slog.HandlerOptions{Level: lvl, AddSource: opts.AddSource})))
	}

	l := slog.New(fanOut(sinks)).With("app", "gospeech", "ver", version.Version)

	global.mu.Lock()
	old := global.file
	global.logger, global.file = l, file
	global.mu.Unlock()
	if old != nil {
		_ = old.Close()
	}
	slog.SetDefault(l)
	return l
}

func consoleFor(format string, w io.Writer, lvl slog.Level, src bool) slog.Handler {
	if strings.EqualFold(strings.TrimSpace(format), "json") {
		return slog.NewJSONHandler(w, &slog.HandlerOptions{Level: lvl, AddSource: src})
	}
	return &consoleHandler{w: w, min: lvl, src: src, mu: new(sync.Mutex)}
}

// Close flushes the rotated log file if one is open.
func Close() error {
	global.mu.Lock()
	f := global.file
	global.file = nil
	global.mu.Unlock()
	if f == nil {
		return nil
	}
	return f.Close()
}

// FromEnv reads Options from GSP_LOG_* variables.
func FromEnv() Options {
	src := os.Getenv(envSource)
	return Options{
		Level:     envOr(envLevel, "info"),
		Format:    envOr(envFormat, "console"),
		AddSource: src == "1" || strings.EqualFold(src, "true"),
		File:      os.Getenv(envFile),
	}
}

func envOr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

// WithComponent tags records with the subsystem that emitted them.
func WithComponent(name string) *slog.Logger { return L().With("component", name) }

// WithOperation narrows a component logger to one operation.
func WithOperation(l *slog.Logger, op string) *slog.Logger { return l.With("op", op) }

func levelOf(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug", "trace":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

type attrsKey struct{}

// ContextWith stores attrs on ctx. Every record logged with the returned
// context (InfoContext and friends) gets them, after any stored earlier.
func ContextWith(ctx context.Context, attrs ...slog.Attr) context.Context {
	prev := contextAttrs(ctx)
	all := make([]slog.Attr, 0, len(prev)+len(attrs))
	all = append(append(all, prev...), attrs...)
	return context.WithValue(ctx, attrsKey{}, all)
}

func contextAttrs(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	a, _ := ctx.Value(attrsKey{}).([]slog.Attr)
	return a
}
