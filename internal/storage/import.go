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
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	gojsonschema "github.com/xeipuuv/gojsonschema"

	applog "gospeech/internal/log"
)

//go:embed catalog.schema.json
var catalogSchema []byte

// CatalogFile is the JSON interchange form of a catalog.
type CatalogFile struct {
	Version   int          `json:"version"`
	Languages []string     `json:"languages,omitempty"`
	Lines     []LineRecord `json:"lines,omitempty"`
	Clips     []ClipRecord `json:"clips,omitempty"`
}

// ImportResult summarises an import.
type ImportResult struct {
	Lines int
	Clips int
}

// ErrInvalidCatalog is returned when a catalog file does not match the schema.
var ErrInvalidCatalog = errors.New("invalid catalog file")

// ValidateCatalog checks a JSON catalog against the embedded schema.
func ValidateCatalog(data []byte) error {
	result, err := gojsonschema.Validate(gojsonschema.NewBytesLoader(catalogSchema), gojsonschema.NewBytesLoader(data))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidCatalog, err)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return fmt.Errorf("%w: %s", ErrInvalidCatalog, strings.Join(msgs, "; "))
	}
	return nil
}

// ImportCatalog validates data and writes all of its records in one transaction.
func (c *Catalog) ImportCatalog(ctx context.Context, data []byte) (ImportResult, error) {
	l := applog.WithOperation(applog.WithComponent("storage"), "catalog_import")
	if err := ValidateCatalog(data); err != nil {
		l.Warn("catalog rejected", slog.Any("err", err))
		return ImportResult{}, err
	}
	var f CatalogFile
	if err := json.Unmarshal(data, &f); err != nil {
		return ImportResult{}, fmt.Errorf("decode catalog: %w", err)
	}
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return ImportResult{}, fmt.Errorf("begin tx: %w", err)
	}
	insLine, err := tx.PrepareContext(ctx, `INSERT INTO lines(line_id, language, speaker, text) VALUES(?,?,?,?)
		ON CONFLICT(line_id, language) DO UPDATE SET speaker=excluded.speaker, text=excluded.text`)
	if err != nil {
		_ = tx.Rollback()
		return ImportResult{}, fmt.Errorf("prepare line insert: %w", err)
	}
	defer insLine.Close()
	insClip, err := tx.PrepareContext(ctx, `INSERT INTO clips(line_id, language, path, duration) VALUES(?,?,?,?)
		ON CONFLICT(line_id, language) DO UPDATE SET path=excluded.path, duration=excluded.duration`)
	if err != nil {
		_ = tx.Rollback()
		return ImportResult{}, fmt.Errorf("prepare clip insert: %w", err)
	}
	defer insClip.Close()

	var res ImportResult
	for _, r := range f.Lines {
		if _, err := insLine.ExecContext(ctx, r.LineID, r.Language, r.Speaker, r.Text); err != nil {
			_ = tx.Rollback()
			return ImportResult{}, fmt.Errorf("insert line %d/%d: %w", r.LineID, r.Language, err)
		}
		res.Lines++
	}
	for _, r := range f.Clips {
		if _, err := insClip.ExecContext(ctx, r.LineID, r.Language, r.Path, r.Duration); err != nil {
			_ = tx.Rollback()
			return ImportResult{}, fmt.Errorf("insert clip %d/%d: %w", r.LineID, r.Language, err)
		}
		res.Clips++
	}
	if len(f.Languages) > 0 {
		if _, err := tx.ExecContext(ctx, `INSERT INTO meta(key, value) VALUES('languages', ?)
			ON CONFLICT(key) DO UPDATE SET value=excluded.value`, strings.Join(f.Languages, ",")); err != nil {
			_ = tx.Rollback()
			return ImportResult{}, fmt.Errorf("store languages: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return ImportResult{}, fmt.Errorf("commit: %w", err)
	}
	l.Info("catalog imported", slog.Int("lines", res.Lines), slog.Int("clips", res.Clips))
	return res, nil
}

// ExportCatalog returns the catalog content as a CatalogFile.
func (c *Catalog) ExportCatalog(ctx context.Context) (CatalogFile, error) {
	f := CatalogFile{Version: 1}
	var err error
	if f.Lines, err = c.Lines(ctx); err != nil {
		return CatalogFile{}, err
	}
	if f.Clips, err = c.Clips(ctx); err != nil {
		return CatalogFile{}, err
	}
	if v, ok, err := c.Meta(ctx, "languages"); err != nil {
		return CatalogFile{}, err
	} else if ok && v != "" {
		f.Languages = strings.Split(v, ",")
	}
	return f, nil
}
