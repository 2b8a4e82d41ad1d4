/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package audio simulates voice playback. Sources are advanced by the frame
// loop rather than a device clock, so headless playback is deterministic.
package audio

import (
	"sync"

	"gospeech/internal/speech"
)

// Source is a single voice channel. It plays one clip at a time.
// It is safe for concurrent use.
type Source struct {
	Name string

	mu       sync.Mutex
	clip     speech.Clip
	pos      float64
	playing  bool
	played   int
	onFinish func(speech.Clip)
}

// NewSource returns an idle source.
func NewSource(name string) *Source { return &Source{Name: name} }

// OnFinish registers a callback run when a clip plays to its end.
func (s *Source) OnFinish(fn func(speech.Clip)) {
	s.mu.Lock()
	s.onFinish = fn
	s.mu.Unlock()
}

// Play starts c from the beginning, replacing whatever was playing.
// A clip without a duration finishes on the next Advance.
func (s *Source) Play(c speech.Clip) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clip = c
	s.pos = 0
	s.playing = true
	s.played++
}

func (s *Source) Stop() {
	s.mu.Lock()
	s.playing = false
	s.mu.Unlock()
}

func (s *Source) IsPlaying() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.playing
}

// Clip returns the current (or last) clip and the playback position.
func (s *Source) Clip() (speech.Clip, float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clip, s.pos
}

// Played counts the clips started on this source.
func (s *Source) Played() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.played
}

// Advance moves playback forward by dt seconds.
func (s *Source) Advance(dt float64) {
	s.mu.Lock()
	if !s.playing {
		s.mu.Unlock()
		return
	}
	s.pos += dt
	var done func(speech.Clip)
	if s.pos >= s.clip.Duration {
		s.pos = s.clip.Duration
		s.playing = false
		done = s.onFinish
	}
	c := s.clip
	s.mu.Unlock()
	if done != nil {
		done(c)
	}
}

// Mixer tracks every source so the frame loop can advance them together.
type Mixer struct {
	mu      sync.Mutex
	sources []*Source
}

// Add registers s and returns it.
func (m *Mixer) Add(s *Source) *Source {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, x := range m.sources {
		if x == s {
			return s
		}
	}
	m.sources = append(m.sources, s)
	return s
}

// Advance advances every registered source.
func (m *Mixer) Advance(dt float64) {
	m.mu.Lock()
	srcs := append([]*Source(nil), m.sources...)
	m.mu.Unlock()
	for _, s := range srcs {
		s.Advance(dt)
	}
}

// StopAll silences every source.
func (m *Mixer) StopAll() {
	m.mu.Lock()
	srcs := append([]*Source(nil), m.sources...)
	m.mu.Unlock()
	for _, s := range srcs {
		s.Stop()
	}
}

// Playing counts sources currently playing.
func (m *Mixer) Playing() int {
	m.mu.Lock()
	srcs := append([]*Source(nil), m.sources...)
	m.mu.Unlock()
	n := 0
	for _, s := range srcs {
		if s.IsPlaying() {
			n++
		}
	}
	return n
}
