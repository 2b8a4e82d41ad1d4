/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package telemetry is an opt-in, anonymous usage reporter. It counts speech
// activity and posts small JSON batches; it never sends line text or names.
package telemetry

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"

	"gospeech/internal/config"
	applog "gospeech/internal/log"
	"gospeech/internal/version"
)

// Environment variables read by FromEnv.
const (
	EnvOptIn     = config.EnvTelemetryOptIn
	EnvURL       = "GSP_TELEMETRY_URL"
	EnvCrashURL  = "GSP_CRASH_UPLOAD_URL"
	EnvTimeoutMs = "GSP_TELEMETRY_TIMEOUT_MS"
	EnvDebug     = "GSP_TELEMETRY_DEBUG"
)

// Config controls what is sent and where. Nothing leaves the process unless
// OptIn is set and the matching endpoint is configured.
type Config struct {
	OptIn         bool
	Endpoint      string // event batches
	CrashEndpoint string // plain-text crash reports
	Timeout       time.Duration
	BatchSize     int           // events per POST, 20 when zero
	Interval      time.Duration // max age of a pending batch, 5s when zero
	Verbose       bool          // log delivery failures at debug level
}

// FromEnv reads the GSP_TELEMETRY_* variables.
func FromEnv() Config {
	cfg := Config{
		OptIn:         truthy(os.Getenv(EnvOptIn)),
		Endpoint:      strings.TrimSpace(os.Getenv(EnvURL)),
		CrashEndpoint: strings.TrimSpace(os.Getenv(EnvCrashURL)),
		Timeout:       1500 * time.Millisecond,
		Verbose:       os.Getenv(EnvDebug) != "",
	}
	if ms, err := strconv.Atoi(strings.TrimSpace(os.Getenv(EnvTimeoutMs))); err == nil && ms > 0 {
		cfg.Timeout = time.Duration(ms) * time.Millisecond
	}
	return cfg
}

// FromAppConfig starts from the environment and fills the gaps from the
// user config file.
func FromAppConfig(tc config.TelemetryConfig) Config {
	cfg := FromEnv()
	if os.Getenv(EnvOptIn) == "" {
		cfg.OptIn = tc.OptIn
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = strings.TrimSpace(tc.Endpoint)
	}
	return cfg
}

func truthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

// event is one entry of a batch.
type event struct {
	Name  string         `json:"name"`
	At    time.Time      `json:"at"`
	Props map[string]any `json:"props,omitempty"`
}

// batch is the body of every POST to Config.Endpoint.
type batch struct {
	App     string  `json:"app"`
	Version string  `json:"version"`
	OS      string  `json:"os"`
	Arch    string  `json:"arch"`
	Session string  `json:"session"`
	Events  []event `json:"events"`
}

// Client collects events on a background goroutine and posts them in
// batches. Delivery errors drop the batch.
type Client struct {
	cfg     Config
	log     *slog.Logger
	http    *http.Client
	session string

	in      chan event
	flush   chan chan struct{}
	done    chan struct{}
	stopped chan struct{}
	once    sync.Once
}

// New starts a client. A disabled client starts no goroutine.
func New(cfg Config) *Client {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 20
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 5 * time.Second
	}
	c := &Client{
		cfg:     cfg,
		log:     applog.WithComponent("telemetry"),
		http:    &http.Client{Timeout: cfg.Timeout},
		session: sessionID(),
		in:      make(chan event, 64),
		flush:   make(chan chan struct{}),
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
	if c.Enabled() {
		go c.run()
	} else {
		close(c.stopped)
	}
	return c
}

func sessionID() string {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		return strconv.FormatInt(time.Now().UnixNano(), 36)
	}
	return hex.EncodeToString(b[:])
}

// Enabled reports whether events will be sent.
func (c *Client) Enabled() bool { return c != nil && c.cfg.OptIn && c.cfg.Endpoint != "" }

// Event queues a named event; it never blocks. props must not carry
// personal data or script text.
func (c *Client) Event(name string, props map[string]any) {
	if !c.Enabled() || name == "" {
		return
	}
	e := event{Name: name, At: time.Now().UTC()}
	if len(props) > 0 {
		e.Props = make(map[string]any, len(props))
		for k, v := range props {
			e.Props[k] = v
		}
	}
	select {
	case c.in <- e:
	case <-c.done:
	default:
		c.debug("telemetry queue full, event dropped", slog.String("event", name))
	}
}

// Flush posts everything queued so far and waits for the attempt to finish
// or ctx to end.
func (c *Client) Flush(ctx context.Context) {
	if !c.Enabled() {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	ack := make(chan struct{})
	select {
	case c.flush <- ack:
	case <-c.stopped:
		return
	case <-ctx.Done():
		return
	}
	select {
	case <-ack:
	case <-ctx.Done():
	}
}

// Close sends what is pending and stops the client.
func (c *Client) Close() {
	if c == nil {
		return
	}
	c.once.Do(func() { close(c.done) })
	<-c.stopped
}

func (c *Client) run() {
	defer close(c.stopped)
	tick := time.NewTicker(c.cfg.Interval)
	defer tick.Stop()
	var pending []event
	send := func() {
		if len(pending) > 0 {
			c.post(pending)
			pending = nil
		}
	}
	for {
		select {
		case e := <-c.in:
			pending = append(pending, e)
			if len(pending) >= c.cfg.BatchSize {
				send()
			}
		case ack := <-c.flush:
			pending = c.drain(pending)
			send()
			close(ack)
		case <-tick.C:
			send()
		case <-c.done:
			pending = c.drain(pending)
			send()
			return
		}
	}
}

func (c *Client) drain(pending []event) []event {
	for {
		select {
		case e := <-c.in:
			pending = append(pending, e)
		default:
			return pending
		}
	}
}

func (c *Client) post(events []event) {
	body, err := json.Marshal(batch{
		App:     "gospeech",
		Version: version.String(),
		OS:      runtime.GOOS,
		Arch:    runtime.GOARCH,
		Session: c.session,
		Events:  events,
	})
	if err != nil {
		c.debug("telemetry encode failed", slog.Any("err", err))
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), c.cfg.Timeout)
	defer cancel()
	if err := c.postTo(ctx, c.cfg.Endpoint, "application/json", body); err != nil {
		c.debug("telemetry batch dropped", slog.Int("events", len(events)), slog.Any("err", err))
		return
	}
	c.debug("telemetry batch sent", slog.Int("events", len(events)))
}

func (c *Client) postTo(ctx context.Context, url, contentType string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", contentType)
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	_ = resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("telemetry: %s answered %s", url, resp.Status)
	}
	return nil
}

func (c *Client) debug(msg string, attrs ...any) {
	if c.cfg.Verbose {
		c.log.Debug(msg, attrs...)
	}
}

// UploadCrash posts a crash report when opted in. It waits for the upload
// because the process is about to exit.
func (c *Client) UploadCrash(ctx context.Context, report []byte) error {
	if c == nil || !c.cfg.OptIn || c.cfg.CrashEndpoint == "" {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()
	return c.postTo(ctx, c.cfg.CrashEndpoint, "text/plain; charset=utf-8", report)
}

var (
	defaultMu     sync.Mutex
	defaultClient *Client
)

// Default returns the process client, creating one from the environment on
// first use.
func Default() *Client {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultClient == nil {
		defaultClient = New(FromEnv())
	}
	return defaultClient
}

// SetDefault installs c as the process client.
func SetDefault(c *Client) {
	defaultMu.Lock()
	defaultClient = c
	defaultMu.Unlock()
}

// UploadCrash uploads through the process client.
func UploadCrash(ctx context.Context, report []byte) error {
	return Default().UploadCrash(ctx, report)
}
