/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package dialog owns live speech lines: it starts them, enforces the voice
// hand-off between speakers, ticks them every frame and records what was said.
package dialog

import (
	"context"
	"log/slog"
	"time"

	"gospeech/internal/audio"
	"gospeech/internal/backlog"
	applog "gospeech/internal/log"
	"gospeech/internal/speech"
)

// LogStore persists finished lines.
type LogStore interface {
	AppendLog(ctx context.Context, l speech.SpeechLog, ts time.Time) error
}

// FrameInput is an input source that wants to look at the foreground line
// before lines sample it.
type FrameInput interface {
	speech.InputSource
	BeginFrame(dt float64, foreground *speech.Line)
}

// Options configures a Player.
type Options struct {
	Context speech.Context
	// Mixer, Backlog and Store are optional.
	Mixer   *audio.Mixer
	Backlog *backlog.Log
	Store   LogStore
	Now     func() time.Time
}

// Player owns every live line. It is driven from a single goroutine.
type Player struct {
	ctx     speech.Context
	mixer   *audio.Mixer
	backlog *backlog.Log
	store   LogStore
	now     func() time.Time
	log     *slog.Logger
	lines   []*speech.Line
}

// NewPlayer returns a Player.
func NewPlayer(opt Options) *Player {
	p := &Player{
		ctx:     opt.Context,
		mixer:   opt.Mixer,
		backlog: opt.Backlog,
		store:   opt.Store,
		now:     opt.Now,
		log:     opt.Context.Logger,
	}
	if p.now == nil {
		p.now = time.Now
	}
	if p.log == nil {
		p.log = applog.WithComponent("dialog")
	}
	return p
}

// Context returns the speech context new lines are created with.
func (p *Player) Context() speech.Context { return p.ctx }

// Start creates a line. The hand-off rules apply first, since the new line
// may share a voice with an old one: the speaker's previous line ends, voiced
// background lines of other speakers fall silent, and a new foreground line
// replaces any held foreground line.
func (p *Player) Start(opt speech.LineOptions) (*speech.Line, error) {
	for _, old := range p.lines {
		if !old.Alive() {
			continue
		}
		switch {
		case old.Speaker() == opt.Speaker:
			old.Stop()
		case !opt.Background && !old.IsBackground() && old.Held():
			old.Stop()
		default:
			old.EndBackgroundSpeechAudio(opt.Speaker)
		}
	}
	l, err := speech.NewLine(p.ctx, opt)
	if err != nil {
		return nil, err
	}
	p.lines = append(p.lines, l)
	return l, nil
}

// Tick samples input and advances every live line by dt seconds, then
// advances audio and retires finished lines.
func (p *Player) Tick(ctx context.Context, dt float64) {
	if fi, ok := p.ctx.Input.(FrameInput); ok {
		fi.BeginFrame(dt, p.Foreground())
	}
	// Snapshot: skips may end lines mid-loop.
	live := append([]*speech.Line(nil), p.lines...)
	for _, l := range live {
		if l.Alive() {
			l.UpdateInput()
		}
	}
	for _, l := range live {
		l.UpdateDisplay(dt)
	}
	if p.mixer != nil {
		p.mixer.Advance(dt)
	}
	p.prune(ctx)
}

func (p *Player) prune(ctx context.Context) {
	kept := p.lines[:0]
	for _, l := range p.lines {
		if l.Alive() {
			kept = append(kept, l)
			continue
		}
		p.record(ctx, l)
	}
	for i := len(kept); i < len(p.lines); i++ {
		p.lines[i] = nil
	}
	p.lines = kept
}

func (p *Player) record(ctx context.Context, l *speech.Line) {
	entry := l.Log()
	ts := p.now()
	if p.backlog != nil {
		p.backlog.Push(entry, ts)
	}
	if p.store != nil {
		if err := p.store.AppendLog(ctx, entry, ts); err != nil {
			p.log.WarnContext(ctx, "cannot persist speech log", slog.Int("line_id", entry.LineID), slog.Any("err", err))
		}
	}
}

// Lines returns the live lines in start order.
func (p *Player) Lines() []*speech.Line { return append([]*speech.Line(nil), p.lines...) }

// Foreground returns the most recently started live foreground line.
func (p *Player) Foreground() *speech.Line {
	for i := len(p.lines) - 1; i >= 0; i-- {
		if l := p.lines[i]; l.Alive() && !l.IsBackground() {
			return l
		}
	}
	return nil
}

// Busy reports whether any line is live.
func (p *Player) Busy() bool {
	for _, l := range p.lines {
		if l.Alive() {
			return true
		}
	}
	return false
}

// KillAll stops every line and every registered voice.
func (p *Player) KillAll(ctx context.Context) {
	for _, l := range p.lines {
		l.Stop()
	}
	if p.mixer != nil {
		p.mixer.StopAll()
	}
	p.prune(ctx)
}
