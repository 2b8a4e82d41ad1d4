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
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"gospeech/internal/backend"
	"gospeech/internal/storage"
)

// catalogFlags are shared by every command that touches a catalog.
type catalogFlags struct {
	root string
	pg   string
}

func (c *catalogFlags) register(fs *flag.FlagSet, env *appEnv) {
	fs.StringVar(&c.root, "root", env.cfg.Catalog.Root, "directory holding the local catalog (.gsp)")
	fs.StringVar(&c.pg, "pg", env.cfg.Catalog.PostgresDSN, "Postgres DSN of the shared catalog")
}

func (c *catalogFlags) open(env *appEnv) (*storage.Catalog, error) {
	abs, err := filepath.Abs(c.root)
	if err != nil {
		return nil, err
	}
	env.crash.Root = abs
	cat, err := storage.OpenCatalog(abs)
	if err != nil {
		return nil, err
	}
	if ms, err := time.ParseDuration(env.cfg.Catalog.EffectiveTimeout()); err == nil {
		cat.Timeout = ms
	}
	return cat, nil
}

// hasLocal reports whether a local catalog exists without creating one.
func (c *catalogFlags) hasLocal() bool {
	abs, err := filepath.Abs(c.root)
	if err != nil {
		return false
	}
	_, err = os.Stat(storage.CatalogPath(abs))
	return err == nil
}

func (c *catalogFlags) openPG(ctx context.Context, env *appEnv) (*backend.Store, error) {
	dsn := withPassword(c.pg, env.pgPassword)
	if dsn == "" {
		return nil, fmt.Errorf("no Postgres DSN: pass -pg or set catalog.postgres_dsn")
	}
	return backend.OpenPG(ctx, dsn)
}

// withPassword adds the keychain password to a URL DSN that has none.
func withPassword(dsn, pw string) string {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" || pw == "" {
		return dsn
	}
	u, err := url.Parse(dsn)
	if err != nil || u.User == nil || (u.Scheme != "postgres" && u.Scheme != "postgresql") {
		return dsn
	}
	if _, set := u.User.Password(); set {
		return dsn
	}
	u.User = url.UserPassword(u.User.Username(), pw)
	return u.String()
}

func cmdImport(ctx context.Context, env *appEnv, args []string) error {
	fs := newFlags("import", "[flags] <catalog.json>")
	var cf catalogFlags
	cf.register(fs, env)
	if err := fs.Parse(args); err != nil {
		return err
	}
	path, err := positional(fs)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	cat, err := cf.open(env)
	if err != nil {
		return err
	}
	defer func() { _ = cat.Close() }()
	res, err := cat.ImportCatalog(ctx, data)
	if err != nil {
		return err
	}
	env.log.InfoContext(ctx, "catalog imported", slog.String("file", path), slog.Int("lines", res.Lines), slog.Int("clips", res.Clips))
	fmt.Printf("Imported %d lines and %d clips into %s\n", res.Lines, res.Clips, cat.Path())
	return nil
}

func cmdDump(ctx context.Context, env *appEnv, args []string) error {
	fs := newFlags("dump", "[flags]")
	var cf catalogFlags
	cf.register(fs, env)
	if err := fs.Parse(args); err != nil {
		return err
	}
	cat, err := cf.open(env)
	if err != nil {
		return err
	}
	defer func() { _ = cat.Close() }()
	file, err := cat.ExportCatalog(ctx)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(file)
}

func cmdMirror(ctx context.Context, env *appEnv, args []string) error {
	fs := newFlags("mirror", "[flags]")
	var cf catalogFlags
	cf.register(fs, env)
	if err := fs.Parse(args); err != nil {
		return err
	}
	cat, err := cf.open(env)
	if err != nil {
		return err
	}
	defer func() { _ = cat.Close() }()
	store, err := cf.openPG(ctx, env)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()
	res, err := store.Mirror(ctx, cat)
	if err != nil {
		return err
	}
	fmt.Printf("Mirrored %d lines and %d clips\n", res.Lines, res.Clips)
	return nil
}

func cmdLog(ctx context.Context, env *appEnv, args []string) error {
	fs := newFlags("log", "[flags]")
	var cf catalogFlags
	cf.register(fs, env)
	n := fs.Int("n", 20, "number of entries, newest first")
	clearLog := fs.Bool("clear", false, "delete the persisted log")
	if err := fs.Parse(args); err != nil {
		return err
	}
	cat, err := cf.open(env)
	if err != nil {
		return err
	}
	defer func() { _ = cat.Close() }()
	if *clearLog {
		if err := cat.ClearLog(ctx); err != nil {
			return err
		}
		fmt.Println("Speech log cleared.")
		return nil
	}
	recs, err := cat.RecentLog(ctx, *n)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "TIME\tID\tSPEAKER\tTEXT")
	for _, r := range recs {
		text := r.Log.FullText
		if r.Log.Background {
			text += " (bg)"
		}
		_, _ = fmt.Fprintf(tw, "%s\t%d\t%s\t%s\n", r.TS.Local().Format(time.DateTime), r.Log.LineID, r.Log.SpeakerName, text)
	}
	return tw.Flush()
}
