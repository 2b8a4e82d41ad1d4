/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"gospeech/internal/speech"
)

// LineRecord is one translated line text.
type LineRecord struct {
	LineID   int    `json:"line_id"`
	Language int    `json:"language"`
	Speaker  string `json:"speaker,omitempty"`
	Text     string `json:"text"`
}

// ClipRecord is one voice clip for a line in a language.
type ClipRecord struct {
	LineID   int     `json:"line_id"`
	Language int     `json:"language"`
	Path     string  `json:"path"`
	Duration float64 `json:"duration,omitempty"`
}

// UpsertLine inserts or replaces the text of a line.
func (c *Catalog) UpsertLine(ctx context.Context, r LineRecord) error {
	if r.LineID < 0 {
		return fmt.Errorf("upsert line: invalid line id %d", r.LineID)
	}
	_, err := c.db.ExecContext(ctx, `INSERT INTO lines(line_id, language, speaker, text) VALUES(?,?,?,?)
		ON CONFLICT(line_id, language) DO UPDATE SET speaker=excluded.speaker, text=excluded.text`,
		r.LineID, r.Language, r.Speaker, r.Text)
	if err != nil {
		return fmt.Errorf("upsert line %d/%d: %w", r.LineID, r.Language, err)
	}
	return nil
}

// UpsertClip inserts or replaces the clip of a line.
func (c *Catalog) UpsertClip(ctx context.Context, r ClipRecord) error {
	if r.LineID < 0 {
		return fmt.Errorf("upsert clip: invalid line id %d", r.LineID)
	}
	if r.Path == "" {
		return fmt.Errorf("upsert clip %d/%d: empty path", r.LineID, r.Language)
	}
	_, err := c.db.ExecContext(ctx, `INSERT INTO clips(line_id, language, path, duration) VALUES(?,?,?,?)
		ON CONFLICT(line_id, language) DO UPDATE SET path=excluded.path, duration=excluded.duration`,
		r.LineID, r.Language, r.Path, r.Duration)
	if err != nil {
		return fmt.Errorf("upsert clip %d/%d: %w", r.LineID, r.Language, err)
	}
	return nil
}

// LookupLine returns the text of a line in a language.
func (c *Catalog) LookupLine(ctx context.Context, lineID, language int) (LineRecord, bool, error) {
	r := LineRecord{LineID: lineID, Language: language}
	err := c.db.QueryRowContext(ctx, `SELECT speaker, text FROM lines WHERE line_id=? AND language=?`,
		lineID, language).Scan(&r.Speaker, &r.Text)
	if errors.Is(err, sql.ErrNoRows) {
		return LineRecord{}, false, nil
	}
	if err != nil {
		return LineRecord{}, false, fmt.Errorf("lookup line %d/%d: %w", lineID, language, err)
	}
	return r, true, nil
}

// LookupClip returns the clip recorded for a line in a language.
func (c *Catalog) LookupClip(ctx context.Context, lineID, language int) (ClipRecord, bool, error) {
	r := ClipRecord{LineID: lineID, Language: language}
	err := c.db.QueryRowContext(ctx, `SELECT path, duration FROM clips WHERE line_id=? AND language=?`,
		lineID, language).Scan(&r.Path, &r.Duration)
	if errors.Is(err, sql.ErrNoRows) {
		return ClipRecord{}, false, nil
	}
	if err != nil {
		return ClipRecord{}, false, fmt.Errorf("lookup clip %d/%d: %w", lineID, language, err)
	}
	return r, true, nil
}

// Clip implements speech.AudioResolver. Lookup errors count as a missing clip.
func (c *Catalog) Clip(lineID, language int) (speech.Clip, bool) {
	if lineID < 0 {
		return speech.Clip{}, false
	}
	ctx, cancel := context.WithTimeout(context.Background(), c.Timeout)
	defer cancel()
	r, ok, err := c.LookupClip(ctx, lineID, language)
	if err != nil {
		c.log.Warn("clip lookup failed", slog.Int("line_id", lineID), slog.Int("language", language), slog.Any("err", err))
		return speech.Clip{}, false
	}
	if !ok {
		return speech.Clip{}, false
	}
	return speech.Clip{Path: r.Path, Duration: r.Duration}, true
}

// Lines lists every line record ordered by line id and language.
func (c *Catalog) Lines(ctx context.Context) ([]LineRecord, error) {
	rows, err := c.db.QueryContext(ctx, `SELECT line_id, language, speaker, text FROM lines ORDER BY line_id, language`)
	if err != nil {
		return nil, fmt.Errorf("list lines: %w", err)
	}
	defer rows.Close()
	var out []LineRecord
	for rows.Next() {
		var r LineRecord
		if err := rows.Scan(&r.LineID, &r.Language, &r.Speaker, &r.Text); err != nil {
			return nil, fmt.Errorf("scan line: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Clips lists every clip record ordered by line id and language.
func (c *Catalog) Clips(ctx context.Context) ([]ClipRecord, error) {
	rows, err := c.db.QueryContext(ctx, `SELECT line_id, language, path, duration FROM clips ORDER BY line_id, language`)
	if err != nil {
		return nil, fmt.Errorf("list clips: %w", err)
	}
	defer rows.Close()
	var out []ClipRecord
	for rows.Next() {
		var r ClipRecord
		if err := rows.Scan(&r.LineID, &r.Language, &r.Path, &r.Duration); err != nil {
			return nil, fmt.Errorf("scan clip: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
