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
	"fmt"
	"time"

	"gospeech/internal/speech"
)

// LogRecord is a persisted speech log entry.
type LogRecord struct {
	ID  int64
	TS  time.Time
	Log speech.SpeechLog
}

// AppendLog persists a finished line.
func (c *Catalog) AppendLog(ctx context.Context, l speech.SpeechLog, ts time.Time) error {
	if ts.IsZero() {
		ts = time.Now()
	}
	bg := 0
	if l.Background {
		bg = 1
	}
	_, err := c.db.ExecContext(ctx, `INSERT INTO speech_log(ts, speaker, line_id, text, background) VALUES(?,?,?,?,?)`,
		ts.UTC().Format(time.RFC3339Nano), l.SpeakerName, l.LineID, l.FullText, bg)
	if err != nil {
		return fmt.Errorf("append speech log: %w", err)
	}
	return nil
}

// RecentLog returns up to limit entries, newest first.
func (c *Catalog) RecentLog(ctx context.Context, limit int) ([]LogRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := c.db.QueryContext(ctx, `SELECT id, ts, speaker, line_id, text, background FROM speech_log ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("recent speech log: %w", err)
	}
	defer rows.Close()
	var out []LogRecord
	for rows.Next() {
		var (
			r  LogRecord
			ts string
			bg int
		)
		if err := rows.Scan(&r.ID, &ts, &r.Log.SpeakerName, &r.Log.LineID, &r.Log.FullText, &bg); err != nil {
			return nil, fmt.Errorf("scan speech log: %w", err)
		}
		r.Log.Background = bg != 0
		if t, err := time.Parse(time.RFC3339Nano, ts); err == nil {
			r.TS = t
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// ClearLog deletes every persisted speech log entry.
func (c *Catalog) ClearLog(ctx context.Context) error {
	if _, err := c.db.ExecContext(ctx, `DELETE FROM speech_log`); err != nil {
		return fmt.Errorf("clear speech log: %w", err)
	}
	return nil
}
