/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package dialog

import (
	"log/slog"

	"gospeech/internal/speech"
)

// MultiSink fans events out to several sinks.
type MultiSink []speech.EventSink

func (m MultiSink) Notify(e speech.Event) {
	for _, s := range m {
		if s != nil {
			s.Notify(e)
		}
	}
}

// LogSink writes events to a logger. Token events log at info, the rest at debug.
type LogSink struct{ Logger *slog.Logger }

func (s LogSink) Notify(e speech.Event) {
	if s.Logger == nil {
		return
	}
	speaker := ""
	if e.Speaker != nil {
		speaker = e.Speaker.Name()
	}
	attrs := []any{slog.String("event", e.Kind.String()), slog.Int("line_id", e.LineID), slog.String("speaker", speaker)}
	if e.Kind == speech.EventToken {
		s.Logger.Info("speech token", append(attrs, slog.String("key", e.Key), slog.String("value", e.Value))...)
		return
	}
	s.Logger.Debug("speech event", attrs...)
}
