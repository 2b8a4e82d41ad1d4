/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	_ "modernc.org/sqlite"
)

func TestOpenCatalogCreatesWALAndMetaVersion(t *testing.T) {
	root := t.TempDir()
	c, err := OpenCatalog(root)
	if err != nil {
		t.Fatalf("OpenCatalog error: %v", err)
	}
	defer c.Close()
	if _, err := os.Stat(CatalogPath(root)); err != nil {
		t.Fatalf("catalog file missing: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	var mode string
	if err := c.DB().QueryRowContext(ctx, "PRAGMA journal_mode;").Scan(&mode); err != nil {
		t.Fatalf("read journal_mode: %v", err)
	}
	if mode != "wal" && mode != "WAL" {
		t.Fatalf("expected WAL mode, got %s", mode)
	}
	var cnt int
	if err := c.DB().QueryRowContext(ctx, "SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name IN ('meta','version','lines','clips','speech_log')").Scan(&cnt); err != nil {
		t.Fatalf("query sqlite_master: %v", err)
	}
	if cnt != 5 {
		t.Fatalf("expected 5 tables, got %d", cnt)
	}
	v, err := c.SchemaVersion(ctx)
	if err != nil {
		t.Fatalf("SchemaVersion: %v", err)
	}
	if v != schemaVersion {
		t.Fatalf("expected schema %d, got %d", schemaVersion, v)
	}
}

func TestOpenCatalogRequiresRoot(t *testing.T) {
	if _, err := OpenCatalog("  "); err == nil {
		t.Fatalf("expected error for empty root")
	}
}

func TestMigrationsUpgradeV1(t *testing.T) {
	root := t.TempDir()
	path := CatalogPath(root)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mk .gsp: %v", err)
	}
	dsn := fmt.Sprintf("file:%s?cache=shared&_pragma=busy_timeout(2000)", filepath.ToSlash(path))
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	stmts := []string{
		`PRAGMA journal_mode=WAL;`,
		`CREATE TABLE IF NOT EXISTS meta (key TEXT PRIMARY KEY, value TEXT NOT NULL);`,
		`CREATE TABLE IF NOT EXISTS version (id INTEGER PRIMARY KEY CHECK(id=1), schema INTEGER NOT NULL, app TEXT, created_at TEXT NOT NULL, updated_at TEXT NOT NULL);`,
		`INSERT INTO version(id, schema, app, created_at, updated_at) VALUES(1, 1, 'test', '2020-01-01T00:00:00Z', '2020-01-01T00:00:00Z');`,
	}
	for _, q := range stmts {
		if _, err := db.ExecContext(ctx, q); err != nil {
			t.Fatalf("seed v1 schema: %v (q=%s)", err, q)
		}
	}
	db.Close()

	c, err := OpenCatalog(root)
	if err != nil {
		t.Fatalf("OpenCatalog: %v", err)
	}
	defer c.Close()
	v, err := c.SchemaVersion(ctx)
	if err != nil {
		t.Fatalf("SchemaVersion: %v", err)
	}
	if v != schemaVersion {
		t.Fatalf("expected migrated schema %d, got %d", schemaVersion, v)
	}
	var n int
	if err := c.DB().QueryRowContext(ctx, "SELECT COUNT(*) FROM sqlite_master WHERE type='index' AND name IN ('idx_lines_speaker','idx_speech_log_speaker')").Scan(&n); err != nil {
		t.Fatalf("query indexes: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 migration indexes, got %d", n)
	}
}

func TestMetaRoundTrip(t *testing.T) {
	c := openTestCatalog(t)
	ctx := context.Background()
	if _, ok, err := c.Meta(ctx, "missing"); err != nil || ok {
		t.Fatalf("expected missing key, ok=%v err=%v", ok, err)
	}
	if err := c.SetMeta(ctx, "k", "v1"); err != nil {
		t.Fatalf("SetMeta: %v", err)
	}
	if err := c.SetMeta(ctx, "k", "v2"); err != nil {
		t.Fatalf("SetMeta overwrite: %v", err)
	}
	v, ok, err := c.Meta(ctx, "k")
	if err != nil || !ok || v != "v2" {
		t.Fatalf("Meta = %q %v %v", v, ok, err)
	}
}

func openTestCatalog(t *testing.T) *Catalog {
	t.Helper()
	c, err := OpenCatalog(t.TempDir())
	if err != nil {
		t.Fatalf("OpenCatalog: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}
