/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package speech

// EventKind identifies a speech lifecycle notification.
type EventKind int

const (
	EventStartSpeech EventKind = iota
	EventStartScroll
	EventEndScroll
	EventCompleteScroll
	EventToken
	EventStopSpeech
)

func (k EventKind) String() string {
	switch k {
	case EventStartSpeech:
		return "start_speech"
	case EventStartScroll:
		return "start_scroll"
	case EventEndScroll:
		return "end_scroll"
	case EventCompleteScroll:
		return "complete_scroll"
	case EventToken:
		return "token"
	case EventStopSpeech:
		return "stop_speech"
	default:
		return "unknown"
	}
}

// Event is delivered to the EventSink of a line's Context.
type Event struct {
	Kind    EventKind
	Speaker Speaker
	LineID  int
	Text    string
	Key     string // EventToken only
	Value   string // EventToken only
}

// EventFunc adapts a function to EventSink.
type EventFunc func(Event)

func (f EventFunc) Notify(e Event) { f(e) }

// SpeechLog is the record kept of a spoken line.
type SpeechLog struct {
	FullText    string `json:"full_text"`
	SpeakerName string `json:"speaker_name"`
	LineID      int    `json:"line_id"`
	Background  bool   `json:"background,omitempty"`
}
