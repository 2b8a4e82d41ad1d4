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
	"sync"

	"gospeech/internal/speech"
)

// SpeechCounter is a speech event sink that tallies lifecycle events.
// It is safe for concurrent use.
type SpeechCounter struct {
	mu        sync.Mutex
	counts    map[speech.EventKind]int
	narration int
	voiced    map[int]bool
}

func NewSpeechCounter() *SpeechCounter {
	return &SpeechCounter{counts: map[speech.EventKind]int{}, voiced: map[int]bool{}}
}

func (s *SpeechCounter) Notify(e speech.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counts[e.Kind]++
	if e.Kind != speech.EventStartSpeech {
		return
	}
	if e.Speaker == nil {
		s.narration++
	}
	if e.LineID >= 0 {
		s.voiced[e.LineID] = true
	}
}

// Count returns how often kind was seen.
func (s *SpeechCounter) Count(kind speech.EventKind) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counts[kind]
}

// Props returns the tallies as event properties.
func (s *SpeechCounter) Props() map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.propsLocked()
}

func (s *SpeechCounter) propsLocked() map[string]any {
	props := map[string]any{
		"narration_lines": s.narration,
		"catalog_lines":   len(s.voiced),
	}
	for k, n := range s.counts {
		props[k.String()] = n
	}
	return props
}

// Report sends the tallies as one event and resets them.
func (s *SpeechCounter) Report(c *Client, name string) {
	s.mu.Lock()
	props := s.propsLocked()
	s.counts = map[speech.EventKind]int{}
	s.voiced = map[int]bool{}
	s.narration = 0
	s.mu.Unlock()
	c.Event(name, props)
}
