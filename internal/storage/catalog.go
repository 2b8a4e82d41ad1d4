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
	"os"
	"path/filepath"
	"strings"
	"time"

	applog "gospeech/internal/log"
	"gospeech/internal/version"

	_ "modernc.org/sqlite"
)

const (
	// CatalogDirName holds the catalog and crash reports under the catalog root.
	CatalogDirName  = ".gsp"
	CatalogFileName = "catalog.sqlite"
)

// baseSchema is applied on every open; each statement is idempotent.
var baseSchema = []string{
	`CREATE TABLE IF NOT EXISTS meta (
		key   TEXT PRIMARY KEY,
		value TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS version (
		id         INTEGER PRIMARY KEY CHECK(id=1),
		schema     INTEGER NOT NULL,
		app        TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS lines (
		line_id  INTEGER NOT NULL,
		language INTEGER NOT NULL,
		speaker  TEXT    NOT NULL DEFAULT '',
		text     TEXT    NOT NULL,
		PRIMARY KEY(line_id, language)
	)`,
	`CREATE TABLE IF NOT EXISTS clips (
		line_id  INTEGER NOT NULL,
		language INTEGER NOT NULL,
		path     TEXT    NOT NULL,
		duration REAL    NOT NULL DEFAULT 0,
		PRIMARY KEY(line_id, language)
	)`,
	`CREATE TABLE IF NOT EXISTS speech_log (
		id         INTEGER PRIMARY KEY,
		ts         TEXT    NOT NULL,
		speaker    TEXT    NOT NULL,
		line_id    INTEGER NOT NULL,
		text       TEXT    NOT NULL,
		background INTEGER NOT NULL DEFAULT 0
	)`,
	`CREATE INDEX IF NOT EXISTS idx_speech_log_ts ON speech_log(ts)`,
}

// upgrades[n] moves a catalog from schema n to n+1.
var upgrades = map[int][]string{
	1: {
		`CREATE INDEX IF NOT EXISTS idx_lines_speaker ON lines(speaker)`,
		`CREATE INDEX IF NOT EXISTS idx_speech_log_speaker ON speech_log(speaker)`,
	},
}

// schemaVersion is the schema this build writes. Add an upgrades entry when
// bumping it.
const schemaVersion = 2

// Catalog is an open local speech catalog.
type Catalog struct {
	db   *sql.DB
	path string
	log  *slog.Logger
	// Timeout bounds lookups made through the context-free AudioResolver path.
	Timeout time.Duration
}

// CatalogPath returns the catalog database under root.
func CatalogPath(root string) string {
	return filepath.Join(root, CatalogDirName, CatalogFileName)
}

// OpenCatalog opens (creating when needed) root/.gsp/catalog.sqlite in WAL
// mode and brings its schema up to date.
func OpenCatalog(root string) (*Catalog, error) {
	if strings.TrimSpace(root) == "" {
		return nil, errors.New("catalog root is required")
	}
	l := applog.WithOperation(applog.WithComponent("storage"), "catalog_open").With(slog.String("root", root))
	if err := os.MkdirAll(filepath.Join(root, CatalogDirName), 0o755); err != nil {
		return nil, fmt.Errorf("create %s: %w", CatalogDirName, err)
	}

	path := CatalogPath(root)
	// SQLite URIs want forward slashes.
	db, err := sql.Open("sqlite", fmt.Sprintf("file:%s?cache=shared&_pragma=busy_timeout(5000)", filepath.ToSlash(path)))
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One writer; modernc serialises anyway and WAL readers share it.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := prepare(ctx, db, l); err != nil {
		_ = db.Close()
		l.Error("catalog not usable", slog.Any("err", err))
		return nil, err
	}
	l.Info("catalog ready", slog.String("path", path))
	return &Catalog{db: db, path: path, log: applog.WithComponent("storage"), Timeout: 2 * time.Second}, nil
}

func prepare(ctx context.Context, db *sql.DB, l *slog.Logger) error {
	if _, err := db.ExecContext(ctx, `PRAGMA journal_mode=WAL`); err != nil {
		return fmt.Errorf("enable WAL: %w", err)
	}
	if _, err := db.ExecContext(ctx, `PRAGMA foreign_keys=ON`); err != nil {
		l.Warn("foreign keys stay off", slog.Any("err", err))
	}
	for _, q := range baseSchema {
		if _, err := db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("base schema: %w", err)
		}
	}
	cur, err := stampVersion(ctx, db)
	if err != nil {
		return err
	}
	return upgrade(ctx, db, cur, l)
}

// stampVersion records the running build and returns the stored schema. A
// fresh catalog starts at schemaVersion since baseSchema already covers it.
func stampVersion(ctx context.Context, db *sql.DB) (int, error) {
	now := time.Now().UTC().Format(time.RFC3339)
	_, err := db.ExecContext(ctx, `INSERT INTO version(id, schema, app, created_at, updated_at)
		VALUES(1, ?, ?, ?, ?) ON CONFLICT(id) DO UPDATE SET app=excluded.app, updated_at=excluded.updated_at`,
		schemaVersion, version.String(), now, now)
	if err != nil {
		return 0, fmt.Errorf("stamp version: %w", err)
	}
	var cur int
	if err := db.QueryRowContext(ctx, `SELECT schema FROM version WHERE id=1`).Scan(&cur); err != nil {
		return 0, fmt.Errorf("read schema version: %w", err)
	}
	return cur, nil
}

// upgrade runs upgrades from cur to schemaVersion, one transaction per step.
// A catalog written by a newer build is left alone.
func upgrade(ctx context.Context, db *sql.DB, cur int, l *slog.Logger) error {
	for ; cur < schemaVersion; cur++ {
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("upgrade %d: %w", cur, err)
		}
		for _, q := range upgrades[cur] {
			if _, err := tx.ExecContext(ctx, q); err != nil {
				_ = tx.Rollback()
				return fmt.Errorf("upgrade %d: %w", cur, err)
			}
		}
		if _, err := tx.ExecContext(ctx, `UPDATE version SET schema=? WHERE id=1`, cur+1); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("upgrade %d: %w", cur, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("upgrade %d: %w", cur, err)
		}
		l.Info("catalog schema upgraded", slog.Int("schema", cur+1))
	}
	return nil
}

// Path returns the database file path.
func (c *Catalog) Path() string { return c.path }

// DB exposes the underlying handle for callers that mirror the catalog elsewhere.
func (c *Catalog) DB() *sql.DB { return c.db }

// Close releases the database.
func (c *Catalog) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	return c.db.Close()
}

// SchemaVersion reports the schema recorded in the version table.
func (c *Catalog) SchemaVersion(ctx context.Context) (int, error) {
	var v int
	if err := c.db.QueryRowContext(ctx, `SELECT schema FROM version WHERE id=1`).Scan(&v); err != nil {
		return 0, fmt.Errorf("read schema version: %w", err)
	}
	return v, nil
}

// SetMeta stores a free-form key/value pair.
func (c *Catalog) SetMeta(ctx context.Context, key, value string) error {
	_, err := c.db.ExecContext(ctx, `INSERT INTO meta(key, value) VALUES(?, ?)
		ON CONFLICT(key) DO UPDATE SET value=excluded.value`, key, value)
	if err != nil {
		return fmt.Errorf("set meta %q: %w", key, err)
	}
	return nil
}

// Meta reads a key stored with SetMeta.
func (c *Catalog) Meta(ctx context.Context, key string) (string, bool, error) {
	var v string
	err := c.db.QueryRowContext(ctx, `SELECT value FROM meta WHERE key=?`, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get meta %q: %w", key, err)
	}
	return v, true, nil
}
