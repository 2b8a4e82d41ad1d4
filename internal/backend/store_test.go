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
	"os"
	"testing"
	"time"

	"gospeech/internal/storage"
)

func openPGForTest(t *testing.T) *Store {
	t.Helper()
	dsn := os.Getenv("GSP_PG_DSN")
	if dsn == "" {
		t.Skip("GSP_PG_DSN not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s, err := OpenPG(ctx, dsn)
	if err != nil {
		t.Skipf("postgres not available: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestPGMirrorAndLookup(t *testing.T) {
	s := openPGForTest(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	res, err := s.Mirror(ctx, seedCatalog(t))
	if err != nil {
		t.Fatalf("Mirror: %v", err)
	}
	if res.Lines != 1 || res.Clips != 1 {
		t.Fatalf("unexpected mirror result %+v", res)
	}
	clip, ok := s.Clip(3, 0)
	if !ok || clip.Path != "vo/3.ogg" {
		t.Fatalf("unexpected clip %+v ok=%v", clip, ok)
	}
	found, err := s.SearchLines(ctx, SearchQuery{Text: "hello", Language: -1})
	if err != nil {
		t.Fatalf("SearchLines: %v", err)
	}
	if len(found) == 0 || found[0].LineID != 3 {
		t.Fatalf("expected line 3 in results, got %+v", found)
	}
}

func TestPGUpsertOverwrites(t *testing.T) {
	s := openPGForTest(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.UpsertLine(ctx, storage.LineRecord{LineID: 9001, Text: "first"}); err != nil {
		t.Fatalf("UpsertLine: %v", err)
	}
	if err := s.UpsertLine(ctx, storage.LineRecord{LineID: 9001, Text: "second"}); err != nil {
		t.Fatalf("UpsertLine: %v", err)
	}
	r, ok, err := s.LookupLine(ctx, 9001, 0)
	if err != nil || !ok || r.Text != "second" {
		t.Fatalf("LookupLine = %+v %v %v", r, ok, err)
	}
	if err := s.UpsertClip(ctx, storage.ClipRecord{LineID: 9001}); err == nil {
		t.Fatalf("expected error for empty clip path")
	}
}

func TestOpenPGRequiresDSN(t *testing.T) {
	if _, err := OpenPG(context.Background(), ""); err == nil {
		t.Fatalf("expected error for empty dsn")
	}
}
