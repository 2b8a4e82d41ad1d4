/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package backend holds the shared Postgres speech catalog and its read-only HTTP API.
package backend

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"sort"
	"strconv"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	applog "gospeech/internal/log"
	"gospeech/internal/speech"
	"gospeech/internal/storage"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Store is an open Postgres catalog.
type Store struct {
	db  *sql.DB
	log *slog.Logger
	// Timeout bounds lookups made through the context-free AudioResolver path.
	Timeout time.Duration
}

// OpenPG connects to dsn, verifies the connection and applies pending migrations.
func OpenPG(ctx context.Context, dsn string) (*Store, error) {
	l := applog.WithOperation(applog.WithComponent("backend"), "open")
	if strings.TrimSpace(dsn) == "" {
		return nil, errors.New("postgres dsn is required")
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}
	if err := applyMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	l.Info("postgres catalog ready")
	return &Store{db: db, log: applog.WithComponent("backend"), Timeout: 2 * time.Second}, nil
}

// Close releases the connection pool.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Ping reports whether the database is reachable.
func (s *Store) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

// applyMigrations applies embedded SQL migrations in filename order and records each one.
func applyMigrations(ctx context.Context, db *sql.DB) error {
	l := applog.WithOperation(applog.WithComponent("backend"), "migrate")
	files, err := migrationFiles()
	if err != nil {
		return err
	}
	// dialect=PostgreSQL
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		version BIGINT PRIMARY KEY,
		name TEXT NOT NULL,
		applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`); err != nil {
		return fmt.Errorf("ensure schema_migrations: %w", err)
	}

	applied := map[int64]bool{}
	rows, err := db.QueryContext(ctx, `SELECT version FROM schema_migrations`)
	if err != nil {
		return fmt.Errorf("select schema_migrations: %w", err)
	}
	for rows.Next() {
		var v int64
		if err := rows.Scan(&v); err != nil {
			_ = rows.Close()
			return err
		}
		applied[v] = true
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return err
	}
	_ = rows.Close()

	for _, fname := range files {
		version, err := parseVersion(fname)
		if err != nil {
			return err
		}
		if applied[version] {
			continue
		}
		b, err := migrationsFS.ReadFile(path.Join("migrations", fname))
		if err != nil {
			return err
		}
		sqlText := string(b)
		if strings.TrimSpace(sqlText) == "" {
			continue
		}
		l.Info("applying migration", slog.String("file", fname))
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin %s: %w", fname, err)
		}
		if _, err := tx.ExecContext(ctx, sqlText); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("apply %s: %w", fname, err)
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO schema_migrations(version, name) VALUES($1, $2)`, version, fname); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("record %s: %w", fname, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit %s: %w", fname, err)
		}
	}
	return nil
}

func migrationFiles() ([]string, error) {
	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return nil, fmt.Errorf("read migrations: %w", err)
	}
	files := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if name := e.Name(); strings.HasSuffix(strings.ToLower(name), ".sql") {
			files = append(files, name)
		}
	}
	sort.Strings(files)
	return files, nil
}

func parseVersion(name string) (int64, error) {
	base := path.Base(name)
	parts := strings.SplitN(base, "_", 2)
	if len(parts) < 2 {
		return 0, errors.New("invalid migration filename: " + name)
	}
	v, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse version from %s: %w", name, err)
	}
	return v, nil
}

// UpsertLine inserts or replaces the text of a line.
func (s *Store) UpsertLine(ctx context.Context, r storage.LineRecord) error {
	if r.LineID < 0 {
		return fmt.Errorf("upsert line: invalid line id %d", r.LineID)
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO lines(line_id, language, speaker, text) VALUES($1,$2,$3,$4)
		ON CONFLICT (line_id, language) DO UPDATE SET speaker=EXCLUDED.speaker, text=EXCLUDED.text, updated_at=now()`,
		r.LineID, r.Language, r.Speaker, r.Text)
	if err != nil {
		return fmt.Errorf("upsert line %d/%d: %w", r.LineID, r.Language, err)
	}
	return nil
}

// UpsertClip inserts or replaces the clip of a line.
func (s *Store) UpsertClip(ctx context.Context, r storage.ClipRecord) error {
	if r.LineID < 0 {
		return fmt.Errorf("upsert clip: invalid line id %d", r.LineID)
	}
	if r.Path == "" {
		return fmt.Errorf("upsert clip %d/%d: empty path", r.LineID, r.Language)
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO clips(line_id, language, path, duration) VALUES($1,$2,$3,$4)
		ON CONFLICT (line_id, language) DO UPDATE SET path=EXCLUDED.path, duration=EXCLUDED.duration, updated_at=now()`,
		r.LineID, r.Language, r.Path, r.Duration)
	if err != nil {
		return fmt.Errorf("upsert clip %d/%d: %w", r.LineID, r.Language, err)
	}
	return nil
}

// LookupLine returns the text of a line in a language.
func (s *Store) LookupLine(ctx context.Context, lineID, language int) (storage.LineRecord, bool, error) {
	r := storage.LineRecord{LineID: lineID, Language: language}
	err := s.db.QueryRowContext(ctx, `SELECT speaker, text FROM lines WHERE line_id=$1 AND language=$2`,
		lineID, language).Scan(&r.Speaker, &r.Text)
	if errors.Is(err, sql.ErrNoRows) {
		return storage.LineRecord{}, false, nil
	}
	if err != nil {
		return storage.LineRecord{}, false, fmt.Errorf("lookup line %d/%d: %w", lineID, language, err)
	}
	return r, true, nil
}

// LookupClip returns the clip recorded for a line in a language.
func (s *Store) LookupClip(ctx context.Context, lineID, language int) (storage.ClipRecord, bool, error) {
	r := storage.ClipRecord{LineID: lineID, Language: language}
	err := s.db.QueryRowContext(ctx, `SELECT path, duration FROM clips WHERE line_id=$1 AND language=$2`,
		lineID, language).Scan(&r.Path, &r.Duration)
	if errors.Is(err, sql.ErrNoRows) {
		return storage.ClipRecord{}, false, nil
	}
	if err != nil {
		return storage.ClipRecord{}, false, fmt.Errorf("lookup clip %d/%d: %w", lineID, language, err)
	}
	return r, true, nil
}

// Clip implements speech.AudioResolver. Lookup errors count as a missing clip.
func (s *Store) Clip(lineID, language int) (speech.Clip, bool) {
	if lineID < 0 {
		return speech.Clip{}, false
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.Timeout)
	defer cancel()
	r, ok, err := s.LookupClip(ctx, lineID, language)
	if err != nil {
		s.log.Warn("clip lookup failed", slog.Int("line_id", lineID), slog.Int("language", language), slog.Any("err", err))
		return speech.Clip{}, false
	}
	if !ok {
		return speech.Clip{}, false
	}
	return speech.Clip{Path: r.Path, Duration: r.Duration}, true
}

// MirrorResult counts the records published by Mirror.
type MirrorResult struct {
	Lines int
	Clips int
}

// Mirror publishes every line and clip of a local catalog in one transaction.
func (s *Store) Mirror(ctx context.Context, c *storage.Catalog) (MirrorResult, error) {
	l := applog.WithOperation(applog.WithComponent("backend"), "mirror")
	lines, err := c.Lines(ctx)
	if err != nil {
		return MirrorResult{}, err
	}
	clips, err := c.Clips(ctx)
	if err != nil {
		return MirrorResult{}, err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return MirrorResult{}, fmt.Errorf("begin tx: %w", err)
	}
	var res MirrorResult
	for _, r := range lines {
		if _, err := tx.ExecContext(ctx, `INSERT INTO lines(line_id, language, speaker, text) VALUES($1,$2,$3,$4)
			ON CONFLICT (line_id, language) DO UPDATE SET speaker=EXCLUDED.speaker, text=EXCLUDED.text, updated_at=now()`,
			r.LineID, r.Language, r.Speaker, r.Text); err != nil {
			_ = tx.Rollback()
			return MirrorResult{}, fmt.Errorf("mirror line %d/%d: %w", r.LineID, r.Language, err)
		}
		res.Lines++
	}
	for _, r := range clips {
		if _, err := tx.ExecContext(ctx, `INSERT INTO clips(line_id, language, path, duration) VALUES($1,$2,$3,$4)
			ON CONFLICT (line_id, language) DO UPDATE SET path=EXCLUDED.path, duration=EXCLUDED.duration, updated_at=now()`,
			r.LineID, r.Language, r.Path, r.Duration); err != nil {
			_ = tx.Rollback()
			return MirrorResult{}, fmt.Errorf("mirror clip %d/%d: %w", r.LineID, r.Language, err)
		}
		res.Clips++
	}
	if err := tx.Commit(); err != nil {
		return MirrorResult{}, fmt.Errorf("commit: %w", err)
	}
	l.Info("catalog mirrored", slog.Int("lines", res.Lines), slog.Int("clips", res.Clips))
	return res, nil
}
