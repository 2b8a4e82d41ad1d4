/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package backlog keeps the recent history of spoken lines in memory, so a
// player can review what was said.
package backlog

import (
	"sort"
	"sync"
	"time"

	"gospeech/internal/speech"
)

// Entry is one finished line.
// Size is estimated as the byte length of its text and speaker name.
type Entry struct {
	Log speech.SpeechLog
	TS  time.Time
	Seq uint64
}

func (e Entry) size() int { return len(e.Log.FullText) + len(e.Log.SpeakerName) }

// Config controls memory and depth caps and coalescing behavior.
type Config struct {
	// MaxBytes is a soft cap; older entries are pruned when exceeded.
	MaxBytes int
	// MaxPerSpeaker limits entries kept per speaker (0 means unlimited).
	MaxPerSpeaker int
	// MinInterval coalesces an identical line from the same speaker repeated
	// within the interval, replacing the previous entry instead of pushing a new one.
	MinInterval time.Duration
}

// Log is a per-speaker bounded history.
// It is safe for concurrent use.
type Log struct {
	cfg Config
	mu  sync.Mutex
	// per-speaker stacks, oldest first
	bySpeaker map[string][]Entry
	// accounting
	totalBytes int
	seq        uint64
}

func New(cfg Config) *Log {
	// Set conservative defaults if not provided
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = 1024 * 1024 // 1 MiB
	}
	if cfg.MinInterval <= 0 {
		cfg.MinInterval = 250 * time.Millisecond
	}
	return &Log{cfg: cfg, bySpeaker: make(map[string][]Entry)}
}

// Push records a finished line. A repeat of the speaker's last line within
// MinInterval replaces it.
func (b *Log) Push(l speech.SpeechLog, ts time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.seq++
	e := Entry{Log: l, TS: ts, Seq: b.seq}
	key := l.SpeakerName
	stack := b.bySpeaker[key]
	if n := len(stack); n > 0 {
		last := stack[n-1]
		if last.Log.FullText == l.FullText && ts.Sub(last.TS) < b.cfg.MinInterval {
			// Coalesce: adjust accounting and replace
			b.totalBytes += e.size() - last.size()
			stack[n-1] = e
			b.enforceCapsLocked(key)
			return
		}
	}
	b.bySpeaker[key] = append(stack, e)
	b.totalBytes += e.size()
	b.enforceCapsLocked(key)
}

// Recent returns up to n entries across all speakers, oldest first.
// n <= 0 returns everything.
func (b *Log) Recent(n int) []Entry {
	b.mu.Lock()
	var all []Entry
	for _, stack := range b.bySpeaker {
		all = append(all, stack...)
	}
	b.mu.Unlock()
	sort.Slice(all, func(i, j int) bool { return all[i].Seq < all[j].Seq })
	if n > 0 && len(all) > n {
		all = all[len(all)-n:]
	}
	return all
}

// Speaker returns the history of one speaker, oldest first.
func (b *Log) Speaker(name string) []Entry {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Entry(nil), b.bySpeaker[name]...)
}

// Last returns the most recent line of a speaker.
func (b *Log) Last(name string) (Entry, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	stack := b.bySpeaker[name]
	if len(stack) == 0 {
		return Entry{}, false
	}
	return stack[len(stack)-1], true
}

// ClearSpeaker drops one speaker's history to free memory.
func (b *Log) ClearSpeaker(name string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, e := range b.bySpeaker[name] {
		b.totalBytes -= e.size()
	}
	delete(b.bySpeaker, name)
	if b.totalBytes < 0 {
		b.totalBytes = 0
	}
}

// Clear drops everything.
func (b *Log) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.bySpeaker = make(map[string][]Entry)
	b.totalBytes = 0
}

// Stats returns current sizes for diagnostics.
func (b *Log) Stats() (totalBytes int, speakers int, totalEntries int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	speakers = len(b.bySpeaker)
	for _, v := range b.bySpeaker {
		totalEntries += len(v)
	}
	return b.totalBytes, speakers, totalEntries
}

func (b *Log) enforceCapsLocked(speaker string) {
	// Per-speaker depth cap
	if b.cfg.MaxPerSpeaker > 0 {
		stack := b.bySpeaker[speaker]
		if len(stack) > b.cfg.MaxPerSpeaker {
			// drop the oldest extras
			toDrop := len(stack) - b.cfg.MaxPerSpeaker
			for i := 0; i < toDrop; i++ {
				b.totalBytes -= stack[i].size()
			}
			b.bySpeaker[speaker] = append([]Entry{}, stack[toDrop:]...)
		}
	}
	// Global memory cap: prune oldest across all speakers
	for b.cfg.MaxBytes > 0 && b.totalBytes > b.cfg.MaxBytes {
		oldest := ""
		var oldestSeq uint64
		found := false
		for name, stack := range b.bySpeaker {
			if len(stack) == 0 {
				continue
			}
			if !found || stack[0].Seq < oldestSeq {
				oldest, oldestSeq, found = name, stack[0].Seq, true
			}
		}
		if !found {
			break
		}
		stack := b.bySpeaker[oldest]
		b.totalBytes -= stack[0].size()
		b.bySpeaker[oldest] = stack[1:]
		if len(b.bySpeaker[oldest]) == 0 {
			delete(b.bySpeaker, oldest)
		}
	}
}
