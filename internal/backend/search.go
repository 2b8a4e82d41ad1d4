/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package backend

import (
	"context"
	"fmt"
	"strings"

	"gospeech/internal/storage"
)

// SearchQuery filters catalog lines.
type SearchQuery struct {
	Text     string
	Speaker  string
	Language int // -1 for every language
	Limit    int
	Offset   int
}

// SearchResult is a matching line with a highlighted snippet.
type SearchResult struct {
	storage.LineRecord
	Snippet string `json:"snippet,omitempty"`
}

// SearchLines runs a full-text search over line texts.
func (s *Store) SearchLines(ctx context.Context, q SearchQuery) ([]SearchResult, error) {
	query, args := buildSearch(q)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("search lines: %w", err)
	}
	defer func() { _ = rows.Close() }()
	var out []SearchResult
	for rows.Next() {
		var r SearchResult
		if err := rows.Scan(&r.LineID, &r.Language, &r.Speaker, &r.Text, &r.Snippet); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func buildSearch(q SearchQuery) (string, []any) {
	var (
		args []any
		b    strings.Builder
	)
	place := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if text := strings.TrimSpace(q.Text); text != "" {
		p := place(text)
		b.WriteString("SELECT l.line_id, l.language, l.speaker, l.text, ")
		b.WriteString("COALESCE(ts_headline('simple', l.text, plainto_tsquery('simple', " + p + "), 'StartSel=[, StopSel=], MaxFragments=1, MaxWords=12'), '') ")
		b.WriteString("FROM lines l WHERE l.search_vector @@ plainto_tsquery('simple', " + p + ") ")
	} else {
		b.WriteString("SELECT l.line_id, l.language, l.speaker, l.text, '' FROM lines l WHERE TRUE ")
	}
	if sp := strings.TrimSpace(q.Speaker); sp != "" {
		b.WriteString(" AND lower(l.speaker) = " + place(strings.ToLower(sp)) + " ")
	}
	if q.Language >= 0 {
		b.WriteString(" AND l.language = " + place(q.Language) + " ")
	}
	limit := q.Limit
	if limit <= 0 {
		limit = 100
	}
	offset := q.Offset
	if offset < 0 {
		offset = 0
	}
	b.WriteString(" ORDER BY l.line_id, l.language ")
	b.WriteString(" LIMIT " + place(limit) + " OFFSET " + place(offset))
	return b.String(), args
}
