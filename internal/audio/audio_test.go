/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package audio

import (
	"testing"

	"gospeech/internal/speech"
)

func TestSourcePlaysToEnd(t *testing.T) {
	s := NewSource("ann")
	var finished []string
	s.OnFinish(func(c speech.Clip) { finished = append(finished, c.Path) })
	s.Play(speech.Clip{Path: "a.ogg", Duration: 1})
	s.Advance(0.5)
	if !s.IsPlaying() {
		t.Fatalf("clip stopped early")
	}
	s.Advance(0.5)
	if s.IsPlaying() || len(finished) != 1 || finished[0] != "a.ogg" {
		t.Fatalf("clip should have finished once: playing=%v finished=%v", s.IsPlaying(), finished)
	}
	s.Advance(0.5)
	if len(finished) != 1 {
		t.Fatalf("finish fired twice")
	}
}

func TestSourceStopAndReplay(t *testing.T) {
	s := NewSource("bob")
	s.Play(speech.Clip{Path: "a.ogg", Duration: 2})
	s.Stop()
	s.Advance(5)
	if c, pos := s.Clip(); s.IsPlaying() || pos != 0 || c.Path != "a.ogg" {
		t.Fatalf("stopped source must not advance: pos=%v", pos)
	}
	s.Play(speech.Clip{Path: "b.ogg", Duration: 2})
	if c, _ := s.Clip(); c.Path != "b.ogg" || s.Played() != 2 {
		t.Fatalf("replay mismatch")
	}
}

func TestMixer(t *testing.T) {
	var m Mixer
	a := m.Add(NewSource("a"))
	b := m.Add(NewSource("b"))
	m.Add(a)
	a.Play(speech.Clip{Duration: 1})
	b.Play(speech.Clip{Duration: 3})
	m.Advance(1)
	if m.Playing() != 1 {
		t.Fatalf("expected one source left playing, got %d", m.Playing())
	}
	m.StopAll()
	if m.Playing() != 0 {
		t.Fatalf("StopAll left sources playing")
	}
}
