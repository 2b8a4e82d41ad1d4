/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package dialog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"gospeech/internal/cast"
	applog "gospeech/internal/log"
	"gospeech/internal/script"
	"gospeech/internal/speech"
)

// ErrLineTimeout is reported when a foreground line outlives MaxLineTime.
var ErrLineTimeout = errors.New("dialog: line did not finish in time")

// Frame is reported to Runner.OnFrame whenever the visible text of a line changes.
type Frame struct {
	Time    float64
	Line    *speech.Line
	Speaker string
	Text    string
}

// LineError pairs a script line number with the reason it was not played.
type LineError struct {
	LineNo int
	Err    error
}

func (e LineError) Error() string { return fmt.Sprintf("line %d: %v", e.LineNo, e.Err) }
func (e LineError) Unwrap() error { return e.Err }

// Result summarizes a played scene.
type Result struct {
	Played  int
	Failed  []LineError
	Elapsed float64 // simulated seconds
}

// Runner plays a script scene through a Player with a fixed time step.
type Runner struct {
	Player      *Player
	Cast        *cast.Cast
	Language    string
	Step        float64 // seconds per tick, 1/60 when zero
	MaxLineTime float64 // simulated seconds before a line is abandoned, 600 when zero
	Realtime    bool    // sleep Step between ticks
	OnFrame     func(Frame)

	clock float64
	shown map[*speech.Line]string
}

// Play speaks every line of the scene in order. Background lines do not
// block the next line. A foreground line blocks until it ends or reaches its
// continue point. Lines that cannot be parsed are skipped and reported.
func (r *Runner) Play(ctx context.Context, scene script.Scene) (Result, error) {
	ctx = applog.ContextWith(ctx, slog.String("scene", scene.Title))
	log := applog.WithOperation(applog.WithComponent("dialog"), "play")
	step := r.Step
	if step <= 0 {
		step = 1.0 / 60
	}
	maxTime := r.MaxLineTime
	if maxTime <= 0 {
		maxTime = 600
	}
	r.shown = make(map[*speech.Line]string)
	start := r.clock
	var res Result

	for _, sl := range scene.Spoken() {
		if err := ctx.Err(); err != nil {
			res.Elapsed = r.clock - start
			return res, err
		}
		l, err := r.Player.Start(r.options(sl))
		if err != nil {
			log.WarnContext(ctx, "skipping line", slog.Int("line", sl.LineNo), slog.Any("err", err))
			res.Failed = append(res.Failed, LineError{LineNo: sl.LineNo, Err: err})
			continue
		}
		res.Played++
		r.report(l)
		if l.IsBackground() {
			continue
		}
		for waited := 0.0; l.Alive() && !l.ContinueFromSpeech(); waited += step {
			if waited >= maxTime {
				log.WarnContext(ctx, "abandoning line", slog.Int("line", sl.LineNo), slog.Float64("waited", waited))
				res.Failed = append(res.Failed, LineError{LineNo: sl.LineNo, Err: ErrLineTimeout})
				l.Stop()
				break
			}
			if err := r.tick(ctx, step); err != nil {
				res.Elapsed = r.clock - start
				return res, err
			}
		}
	}

	// Let trailing lines finish; held lines stay up until the scene ends.
	for waited := 0.0; r.pending() && waited < maxTime; waited += step {
		if err := r.tick(ctx, step); err != nil {
			res.Elapsed = r.clock - start
			return res, err
		}
	}
	r.Player.KillAll(ctx)
	res.Elapsed = r.clock - start
	log.InfoContext(ctx, "scene played", slog.Int("played", res.Played), slog.Int("failed", len(res.Failed)), slog.Float64("elapsed", res.Elapsed))
	return res, nil
}

func (r *Runner) options(sl script.Line) speech.LineOptions {
	opt := speech.LineOptions{
		Text:        sl.Text,
		LineID:      sl.LineID,
		Language:    r.Language,
		Background:  sl.Background,
		NoAnimation: sl.NoAnimation,
	}
	if sl.Language != "" {
		opt.Language = sl.Language
	}
	if sl.Type == script.LineDialogue && r.Cast != nil {
		ch := r.Cast.Ensure(sl.Character)
		if r.Player.mixer != nil {
			r.Player.mixer.Add(ch.Voice())
		}
		opt.Speaker = ch
	}
	return opt
}

func (r *Runner) pending() bool {
	for _, l := range r.Player.Lines() {
		if l.Alive() && !l.Held() {
			return true
		}
	}
	return false
}

func (r *Runner) tick(ctx context.Context, step float64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	live := r.Player.Lines()
	r.Player.Tick(ctx, step)
	r.clock += step
	for _, l := range live {
		r.report(l)
		if !l.Alive() {
			delete(r.shown, l)
		}
	}
	if r.Realtime {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(step * float64(time.Second))):
		}
	}
	return nil
}

func (r *Runner) report(l *speech.Line) {
	if r.OnFrame == nil || !l.Alive() {
		return
	}
	text := l.DisplayText()
	if prev, ok := r.shown[l]; ok && prev == text {
		return
	}
	r.shown[l] = text
	r.OnFrame(Frame{Time: r.clock, Line: l, Speaker: l.SpeakerLabel(), Text: text})
}
