/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package telemetry

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"gospeech/internal/speech"
)

func TestDisabledClientSendsNothing(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
	}))
	defer srv.Close()

	off := New(Config{Endpoint: srv.URL + "/events", CrashEndpoint: srv.URL + "/crash", Timeout: time.Second})
	defer off.Close()
	if off.Enabled() {
		t.Fatalf("client without opt-in must be disabled")
	}
	off.Event("scene_played", nil)
	if err := off.UploadCrash(context.Background(), []byte("report")); err != nil {
		t.Fatalf("disabled upload should be a no-op: %v", err)
	}
	sc := NewSpeechCounter()
	sc.Notify(speech.Event{Kind: speech.EventStartSpeech, LineID: -1})
	sc.Report(off, "scene_played")
	off.Flush(nil)

	unnamed := New(Config{OptIn: true, Endpoint: srv.URL + "/events", Timeout: time.Second})
	unnamed.Event("", map[string]any{"start_speech": 1})
	unnamed.Close()

	if n := atomic.LoadInt32(&hits); n != 0 {
		t.Fatalf("expected no requests, got %d", n)
	}
	var nilClient *Client
	nilClient.Event("x", nil)
	nilClient.Close()
}

// Port 1 refuses connections, which drives the failure paths.
func TestUnreachableEndpointIsIgnored(t *testing.T) {
	c := New(Config{
		OptIn:         true,
		Endpoint:      "http://127.0.0.1:1/events",
		CrashEndpoint: "http://127.0.0.1:1/crash",
		Timeout:       50 * time.Millisecond,
		Verbose:       true,
	})
	defer c.Close()
	c.Event("scene_played", map[string]any{"start_speech": 2})
	c.Flush(context.Background())
	if err := c.UploadCrash(context.Background(), []byte("report")); err == nil {
		t.Fatalf("expected an error from a refused crash upload")
	}
}

func TestRejectedBatchIsDropped(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()
	c := New(Config{OptIn: true, Endpoint: srv.URL, Timeout: time.Second, Interval: time.Hour})
	c.Event("scene_played", nil)
	c.Flush(context.Background())
	c.Close()
	if n := atomic.LoadInt32(&hits); n != 1 {
		t.Fatalf("a rejected batch is not retried, got %d posts", n)
	}
}
