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
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"gospeech/internal/backend"
)

func cmdServe(ctx context.Context, env *appEnv, args []string) error {
	fs := newFlags("serve", "[flags]")
	var cf catalogFlags
	cf.register(fs, env)
	addr := fs.String("addr", ":8080", "listen address")
	secret := fs.String("secret", os.Getenv("GSP_API_SECRET"), "token signing secret, empty disables auth")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var cat backend.CatalogReader
	if cf.pg != "" {
		store, err := cf.openPG(ctx, env)
		if err != nil {
			return err
		}
		defer func() { _ = store.Close() }()
		cat = store
	} else {
		local, err := cf.open(env)
		if err != nil {
			return err
		}
		defer func() { _ = local.Close() }()
		cat = local
	}

	srv := &http.Server{
		Addr:              *addr,
		Handler:           backend.Handler(cat, backend.ServerOptions{Secret: *secret}),
		ReadHeaderTimeout: 5 * time.Second,
	}
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	env.log.InfoContext(ctx, "serving catalog", slog.String("addr", *addr), slog.Bool("auth", *secret != ""))
	fmt.Printf("Serving catalog on %s\n", *addr)

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
