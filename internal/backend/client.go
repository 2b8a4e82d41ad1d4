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
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	applog "gospeech/internal/log"
	"gospeech/internal/speech"
	"gospeech/internal/storage"
)

// ErrNotFound is returned by Client lookups for unknown lines or clips.
var ErrNotFound = errors.New("not found")

// Client is a minimal HTTP client for the catalog API.
type Client struct {
	BaseURL string
	Token   string // bearer token
	// Timeout bounds lookups made through the context-free AudioResolver path.
	Timeout time.Duration
	client  *http.Client
}

// NewClient creates a new catalog client. baseURL may include a trailing slash; it will be normalized.
func NewClient(baseURL string, token string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Token:   token,
		Timeout: 2 * time.Second,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *Client) doJSON(ctx context.Context, method, path string, body, dest any) error {
	return c.do(ctx, method, path, c.Token, body, dest)
}

func (c *Client) do(ctx context.Context, method, path, bearer string, body, dest any) error {
	u, err := url.Parse(c.BaseURL + path)
	if err != nil {
		return err
	}
	var rd *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rd = bytes.NewReader(b)
	} else {
		rd = bytes.NewReader(nil)
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), rd)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("server %s %s: %s", method, u.Path, resp.Status)
	}
	return json.NewDecoder(resp.Body).Decode(dest)
}

// Ping checks that the server is ready to answer lookups.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/readyz", nil)
	if err != nil {
		return err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("server not ready: %s", resp.Status)
	}
	return nil
}

// RequestToken exchanges the server secret for a bearer token and stores the
// token on the client.
func (c *Client) RequestToken(ctx context.Context, secret, subject string, ttl time.Duration) error {
	var out struct {
		Token string `json:"token"`
	}
	req := map[string]any{"subject": subject, "ttl_seconds": int64(ttl / time.Second)}
	if err := c.do(ctx, http.MethodPost, "/api/auth/token", secret, req, &out); err != nil {
		return err
	}
	c.Token = out.Token
	return nil
}

// LookupLine fetches a line record.
func (c *Client) LookupLine(ctx context.Context, lineID, language int) (storage.LineRecord, bool, error) {
	var r storage.LineRecord
	err := c.doJSON(ctx, http.MethodGet, fmt.Sprintf("/api/lines/%d/%d", lineID, language), nil, &r)
	if errors.Is(err, ErrNotFound) {
		return storage.LineRecord{}, false, nil
	}
	if err != nil {
		return storage.LineRecord{}, false, err
	}
	return r, true, nil
}

// LookupClip fetches a clip record.
func (c *Client) LookupClip(ctx context.Context, lineID, language int) (storage.ClipRecord, bool, error) {
	var r storage.ClipRecord
	err := c.doJSON(ctx, http.MethodGet, fmt.Sprintf("/api/lines/%d/%d/clip", lineID, language), nil, &r)
	if errors.Is(err, ErrNotFound) {
		return storage.ClipRecord{}, false, nil
	}
	if err != nil {
		return storage.ClipRecord{}, false, err
	}
	return r, true, nil
}

// Clip implements speech.AudioResolver over HTTP.
func (c *Client) Clip(lineID, language int) (speech.Clip, bool) {
	if lineID < 0 {
		return speech.Clip{}, false
	}
	ctx, cancel := context.WithTimeout(context.Background(), c.Timeout)
	defer cancel()
	r, ok, err := c.LookupClip(ctx, lineID, language)
	if err != nil {
		applog.WithComponent("backend").Warn("remote clip lookup failed", slog.Int("line_id", lineID), slog.Any("err", err))
		return speech.Clip{}, false
	}
	if !ok {
		return speech.Clip{}, false
	}
	return speech.Clip{Path: r.Path, Duration: r.Duration}, true
}
