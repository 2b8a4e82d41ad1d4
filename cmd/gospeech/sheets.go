/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gospeech/internal/export"
	"gospeech/internal/script"
	"gospeech/internal/speech"
)

// loadScript reads and parses a script file. Parse errors are printed and
// returned as one error.
func loadScript(path string) (script.Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return script.Script{}, err
	}
	s, errs := script.Parse(string(data))
	if len(errs) > 0 {
		for _, e := range errs {
			fmt.Fprintf(os.Stderr, "%s:%v\n", path, e)
		}
		return s, fmt.Errorf("%s: %d parse errors", path, len(errs))
	}
	return s, nil
}

func cmdParse(ctx context.Context, env *appEnv, args []string) error {
	fs := newFlags("parse", "<script>")
	if err := fs.Parse(args); err != nil {
		return err
	}
	path, err := positional(fs)
	if err != nil {
		return err
	}
	s, err := loadScript(path)
	if err != nil {
		return err
	}
	bad := 0
	for _, sc := range s.Scenes {
		spoken := sc.Spoken()
		fmt.Printf("%s: %d lines\n", sceneTitle(sc), len(spoken))
		for _, l := range spoken {
			name := ""
			if l.Type == script.LineDialogue {
				name = l.Character
			}
			if _, err := speech.StripTokens(l.Text, name, env.cfg.EventTokens); err != nil {
				bad++
				fmt.Fprintf(os.Stderr, "%s:%d: %v\n", path, l.LineNo, err)
			}
		}
	}
	env.log.InfoContext(ctx, "script checked", slog.String("file", path), slog.Int("scenes", len(s.Scenes)), slog.Int("bad_lines", bad))
	if bad > 0 {
		return fmt.Errorf("%d lines have malformed tokens", bad)
	}
	return nil
}

func sceneTitle(sc script.Scene) string {
	if strings.TrimSpace(sc.Title) == "" {
		return "(untitled)"
	}
	return sc.Title
}

func cmdExport(ctx context.Context, env *appEnv, args []string) error {
	fs := newFlags("export", "[flags] <script>")
	preset := fs.String("preset", string(export.PresetRecording), "recording or reading")
	formats := fs.String("formats", "", "comma separated formats (pdf, txt); preset defaults when empty")
	out := fs.String("out", ".", "output directory")
	name := fs.String("name", "", "file name stem, the script name when empty")
	title := fs.String("title", "", "sheet title")
	perChar := fs.Bool("per-character", false, "also write one sheet per character")
	if err := fs.Parse(args); err != nil {
		return err
	}
	path, err := positional(fs)
	if err != nil {
		return err
	}
	s, err := loadScript(path)
	if err != nil {
		return err
	}
	stem := *name
	if stem == "" {
		stem = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	var fmts []string
	for _, f := range strings.Split(*formats, ",") {
		if f = strings.TrimSpace(f); f != "" {
			fmts = append(fmts, f)
		}
	}
	files, err := export.BatchExport(s, export.BatchOptions{
		Preset:       export.PresetName(*preset),
		Formats:      fmts,
		OutDir:       *out,
		Name:         stem,
		Title:        *title,
		EventKeys:    env.cfg.EventTokens,
		PerCharacter: *perChar,
	})
	for _, f := range files {
		fmt.Println(f)
	}
	if export.IsPartial(err) {
		env.log.WarnContext(ctx, "sheets written with skipped lines", slog.Any("err", err))
		return nil
	}
	return err
}
