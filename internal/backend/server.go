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
	"crypto/hmac"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	applog "gospeech/internal/log"
	"gospeech/internal/storage"
	"gospeech/internal/version"
)

// CatalogReader is the read side shared by the local and the Postgres catalog.
type CatalogReader interface {
	LookupLine(ctx context.Context, lineID, language int) (storage.LineRecord, bool, error)
	LookupClip(ctx context.Context, lineID, language int) (storage.ClipRecord, bool, error)
}

// Searcher is implemented by catalogs that support full-text search.
type Searcher interface {
	SearchLines(ctx context.Context, q SearchQuery) ([]SearchResult, error)
}

type pinger interface {
	Ping(ctx context.Context) error
}

// ServerOptions configures Handler.
type ServerOptions struct {
	// Secret signs bearer tokens. Empty disables authentication.
	Secret string
}

// maxTokenTTL caps what POST /api/auth/token hands out.
const maxTokenTTL = 24 * time.Hour

type api struct {
	cat    CatalogReader
	tokens *tokenSigner // nil when auth is off
	log    *slog.Logger
}

// Handler serves the read-only catalog API:
//
//	GET  /healthz /readyz /version
//	POST /api/auth/token                 (only with a secret, presented as bearer)
//	GET  /api/lines/{id}/{lang}
//	GET  /api/lines/{id}/{lang}/clip
//	GET  /api/search?q=&speaker=&lang=&limit=
func Handler(cat CatalogReader, opts ServerOptions) http.Handler {
	a := &api{cat: cat, log: applog.WithComponent("backend")}
	if opts.Secret != "" {
		a.tokens = &tokenSigner{key: []byte(opts.Secret)}
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) { writeText(w, http.StatusOK, "ok") })
	mux.HandleFunc("GET /readyz", a.ready)
	mux.HandleFunc("GET /version", func(w http.ResponseWriter, _ *http.Request) { writeText(w, http.StatusOK, version.String()) })
	if a.tokens != nil {
		mux.HandleFunc("POST /api/auth/token", a.issueToken)
	}
	mux.HandleFunc("GET /api/lines/{id}/{lang}", a.guard(a.line))
	mux.HandleFunc("GET /api/lines/{id}/{lang}/clip", a.guard(a.clip))
	mux.HandleFunc("GET /api/search", a.guard(a.search))
	return mux
}

func (a *api) ready(w http.ResponseWriter, r *http.Request) {
	if p, ok := a.cat.(pinger); ok {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := p.Ping(ctx); err != nil {
			a.log.Warn("catalog not ready", slog.Any("err", err))
			writeText(w, http.StatusServiceUnavailable, "catalog not ready")
			return
		}
	}
	writeText(w, http.StatusOK, "ready")
}

// issueToken mints a token for callers that present the server secret as
// their bearer credential.
func (a *api) issueToken(w http.ResponseWriter, r *http.Request) {
	cred, ok := bearer(r)
	if !ok || !hmac.Equal([]byte(cred), a.tokens.key) {
		a.log.Warn("token request without the server secret", slog.String("remote", r.RemoteAddr))
		writeError(w, http.StatusUnauthorized, errors.New("server secret required"))
		return
	}
	var req struct {
		Subject    string `json:"subject"`
		TTLSeconds int64  `json:"ttl_seconds"`
	}
	// An empty or malformed body gets the defaults.
	_ = json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10)).Decode(&req)
	if req.Subject == "" {
		req.Subject = "anonymous"
	}
	ttl := time.Duration(req.TTLSeconds) * time.Second
	if ttl <= 0 || ttl > maxTokenTTL {
		ttl = time.Hour
	}
	exp := time.Now().Add(ttl)
	tok, err := a.tokens.sign(req.Subject, exp)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"token": tok, "expires_at": exp.UTC().Format(time.RFC3339)})
}

// guard rejects requests without a valid bearer token when auth is on.
func (a *api) guard(next http.HandlerFunc) http.HandlerFunc {
	if a.tokens == nil {
		return next
	}
	return func(w http.ResponseWriter, r *http.Request) {
		tok, ok := bearer(r)
		if !ok {
			writeError(w, http.StatusUnauthorized, errors.New("missing bearer token"))
			return
		}
		if _, err := a.tokens.verify(tok, time.Now()); err != nil {
			writeError(w, http.StatusUnauthorized, err)
			return
		}
		next(w, r)
	}
}

// bearer returns the credential of an "Authorization: Bearer <x>" header.
func bearer(r *http.Request) (string, bool) {
	scheme, cred, _ := strings.Cut(r.Header.Get("Authorization"), " ")
	cred = strings.TrimSpace(cred)
	return cred, strings.EqualFold(scheme, "bearer") && cred != ""
}

func (a *api) line(w http.ResponseWriter, r *http.Request) {
	lookup(a, w, r, "line", a.cat.LookupLine)
}

func (a *api) clip(w http.ResponseWriter, r *http.Request) {
	lookup(a, w, r, "clip", a.cat.LookupClip)
}

// lookup answers one keyed catalog read with 400, 404, 500 or the record.
func lookup[T any](a *api, w http.ResponseWriter, r *http.Request, what string,
	find func(context.Context, int, int) (T, bool, error)) {
	id, lang, err := lineKey(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	rec, ok, err := find(r.Context(), id, lang)
	switch {
	case err != nil:
		a.log.Error(what+" lookup failed", slog.Int("line_id", id), slog.Int("language", lang), slog.Any("err", err))
		writeError(w, http.StatusInternalServerError, err)
	case !ok:
		writeError(w, http.StatusNotFound, fmt.Errorf("no %s %d/%d", what, id, lang))
	default:
		writeJSON(w, http.StatusOK, rec)
	}
}

func (a *api) search(w http.ResponseWriter, r *http.Request) {
	s, ok := a.cat.(Searcher)
	if !ok {
		writeError(w, http.StatusNotImplemented, errors.New("search not supported by this catalog"))
		return
	}
	v := r.URL.Query()
	q := SearchQuery{Text: v.Get("q"), Speaker: v.Get("speaker"), Language: -1}
	if raw := v.Get("lang"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Errorf("invalid lang %q", raw))
			return
		}
		q.Language = n
	}
	if raw := v.Get("limit"); raw != "" {
		q.Limit, _ = strconv.Atoi(raw)
	}
	res, err := s.SearchLines(r.Context(), q)
	if err != nil {
		a.log.Error("search failed", slog.Any("err", err))
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func lineKey(r *http.Request) (int, int, error) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil || id < 0 {
		return 0, 0, fmt.Errorf("invalid line id %q", r.PathValue("id"))
	}
	lang, err := strconv.Atoi(r.PathValue("lang"))
	if err != nil || lang < 0 {
		return 0, 0, fmt.Errorf("invalid language %q", r.PathValue("lang"))
	}
	return id, lang, nil
}

func writeText(w http.ResponseWriter, status int, s string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(s))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
