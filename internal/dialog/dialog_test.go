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
	"io"
	"log/slog"
	"testing"
	"time"

	"gospeech/internal/audio"
	"gospeech/internal/backlog"
	"gospeech/internal/cast"
	"gospeech/internal/script"
	"gospeech/internal/speech"
)

type clips map[int]speech.Clip

func (c clips) Clip(lineID, language int) (speech.Clip, bool) {
	cl, ok := c[lineID]
	return cl, ok
}

type memStore struct{ logs []speech.SpeechLog }

func (m *memStore) AppendLog(_ context.Context, l speech.SpeechLog, _ time.Time) error {
	m.logs = append(m.logs, l)
	return nil
}

func quiet() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func staticContext() speech.Context {
	s := speech.DefaultSettings()
	s.ScrollSubtitles = false
	s.ScrollNarration = false
	return speech.Context{Settings: s, Logger: quiet()}
}

func TestStartStopsSameSpeaker(t *testing.T) {
	p := NewPlayer(Options{Context: staticContext()})
	ann := cast.NewCharacter("Ann", nil)
	first, err := p.Start(speech.LineOptions{Speaker: ann, Text: "One", LineID: -1})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	second, err := p.Start(speech.LineOptions{Speaker: ann, Text: "Two", LineID: -1})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if first.Alive() || !second.Alive() {
		t.Fatalf("a new line must replace the speaker's previous one")
	}
	nar1, _ := p.Start(speech.LineOptions{Text: "Once upon a time", LineID: -1})
	nar2, _ := p.Start(speech.LineOptions{Text: "The end", LineID: -1})
	if nar1.Alive() || !nar2.Alive() || !second.Alive() {
		t.Fatalf("narration should replace narration only")
	}
}

func TestStartSilencesOtherBackgroundVoices(t *testing.T) {
	ctx := staticContext()
	ctx.Audio = clips{1: {Path: "vo/1.ogg", Duration: 3}, 2: {Path: "vo/2.ogg", Duration: 2}}
	mixer := &audio.Mixer{}
	p := NewPlayer(Options{Context: ctx, Mixer: mixer})
	ann, bob := cast.NewCharacter("Ann", nil), cast.NewCharacter("Bob", nil)
	mixer.Add(ann.Voice())
	mixer.Add(bob.Voice())

	bg, err := p.Start(speech.LineOptions{Speaker: ann, Text: "Humming", LineID: 1, Background: true})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if !ann.Voice().IsPlaying() {
		t.Fatalf("background voice should play")
	}
	if _, err := p.Start(speech.LineOptions{Speaker: bob, Text: "Hey", LineID: 2}); err != nil {
		t.Fatalf("start: %v", err)
	}
	if ann.Voice().IsPlaying() {
		t.Fatalf("background voice should stop when someone else talks")
	}
	if !bg.Alive() || !bob.Voice().IsPlaying() {
		t.Fatalf("background line stays on screen and the new voice plays")
	}
	if mixer.Playing() != 1 {
		t.Fatalf("playing: %d", mixer.Playing())
	}
}

func TestForegroundReplacesHeldLine(t *testing.T) {
	p := NewPlayer(Options{Context: staticContext()})
	ann, bob := cast.NewCharacter("Ann", nil), cast.NewCharacter("Bob", nil)
	held, _ := p.Start(speech.LineOptions{Speaker: ann, Text: "Wait[hold]", LineID: -1})
	for i := 0; i < 20 && !held.Held(); i++ {
		p.Tick(context.Background(), 0.5)
	}
	if !held.Held() {
		t.Fatalf("line should be held")
	}
	if _, err := p.Start(speech.LineOptions{Speaker: bob, Text: "Murmur", LineID: -1, Background: true}); err != nil {
		t.Fatalf("start: %v", err)
	}
	if !held.Alive() {
		t.Fatalf("background line must not end a held line")
	}
	if _, err := p.Start(speech.LineOptions{Speaker: bob, Text: "Go on", LineID: -1}); err != nil {
		t.Fatalf("start: %v", err)
	}
	if held.Alive() {
		t.Fatalf("foreground line must end a held line")
	}
}

func TestTickRecordsFinishedLines(t *testing.T) {
	store := &memStore{}
	bl := backlog.New(backlog.Config{})
	p := NewPlayer(Options{Context: staticContext(), Backlog: bl, Store: store})
	if _, err := p.Start(speech.LineOptions{Speaker: cast.NewCharacter("Ann", nil), Text: "Hi", LineID: 4}); err != nil {
		t.Fatalf("start: %v", err)
	}
	for i := 0; i < 100 && p.Busy(); i++ {
		p.Tick(context.Background(), 0.1)
	}
	if p.Busy() || len(p.Lines()) != 0 {
		t.Fatalf("line should have ended and been pruned")
	}
	if len(store.logs) != 1 || store.logs[0].LineID != 4 || store.logs[0].SpeakerName != "Ann" {
		t.Fatalf("store: %+v", store.logs)
	}
	if got := bl.Recent(5); len(got) != 1 || got[0].Log.FullText != "Hi" {
		t.Fatalf("backlog: %+v", got)
	}
}

func TestKillAll(t *testing.T) {
	mixer := &audio.Mixer{}
	ctx := staticContext()
	ctx.Audio = clips{1: {Duration: 10}}
	p := NewPlayer(Options{Context: ctx, Mixer: mixer})
	ann := cast.NewCharacter("Ann", nil)
	mixer.Add(ann.Voice())
	_, _ = p.Start(speech.LineOptions{Speaker: ann, Text: "Long", LineID: 1})
	_, _ = p.Start(speech.LineOptions{Text: "Narration", LineID: -1})
	p.KillAll(context.Background())
	if p.Busy() || mixer.Playing() != 0 {
		t.Fatalf("everything should stop")
	}
}

func TestMultiSinkAndLogSink(t *testing.T) {
	var got []speech.EventKind
	ctx := staticContext()
	ctx.Events = MultiSink{speech.EventFunc(func(e speech.Event) { got = append(got, e.Kind) }), LogSink{Logger: quiet()}, nil}
	p := NewPlayer(Options{Context: ctx})
	l, err := p.Start(speech.LineOptions{Text: "Hi", LineID: -1})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	l.Stop()
	if len(got) != 2 || got[0] != speech.EventStartSpeech || got[1] != speech.EventStopSpeech {
		t.Fatalf("events: %v", got)
	}
}

func TestAutoInputReleasesPause(t *testing.T) {
	ctx := staticContext()
	in := NewAutoInput(ctx.Settings, 0.5)
	ctx.Input, ctx.State = in, in
	p := NewPlayer(Options{Context: ctx})
	l, err := p.Start(speech.LineOptions{Speaker: cast.NewCharacter("Ann", nil), Text: "Hello[wait] there", LineID: -1})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	for i := 0; i < 3; i++ {
		p.Tick(context.Background(), 0.1)
	}
	if !l.IsPaused() || l.DisplayText() != "Hello" {
		t.Fatalf("expected pause, got %q paused=%v", l.DisplayText(), l.IsPaused())
	}
	for i := 0; i < 10 && l.IsPaused(); i++ {
		p.Tick(context.Background(), 0.1)
	}
	if l.IsPaused() || in.Presses() != 1 {
		t.Fatalf("auto input should release the pause once, presses=%d", in.Presses())
	}
}

func TestRunnerPlaysScene(t *testing.T) {
	ctx := staticContext()
	in := NewAutoInput(ctx.Settings, 0.2)
	ctx.Input, ctx.State = in, in
	store := &memStore{}
	p := NewPlayer(Options{Context: ctx, Mixer: &audio.Mixer{}, Store: store})
	scene := script.Scene{Title: "Dock", Lines: []script.Line{
		{Type: script.LineNarration, Text: "Morning.", LineID: -1},
		{Type: script.LineDialogue, Character: "Ann", Text: "Hello[wait] there", LineID: 1},
		{Type: script.LineNote, Text: "stage direction", LineID: -1},
		{Type: script.LineDialogue, Character: "Bob", Text: "Broken [wait:x]", LineID: 2, LineNo: 9},
		{Type: script.LineDialogue, Character: "Bob", Text: "Hum", LineID: 3, Background: true},
		{Type: script.LineDialogue, Character: "Ann", Text: "Bye", LineID: 4},
	}}
	var frames []Frame
	r := &Runner{Player: p, Cast: cast.New(nil), Step: 0.05, OnFrame: func(f Frame) { frames = append(frames, f) }}
	res, err := r.Play(context.Background(), scene)
	if err != nil {
		t.Fatalf("play: %v", err)
	}
	if res.Played != 4 || len(res.Failed) != 1 || res.Failed[0].LineNo != 9 {
		t.Fatalf("result: %+v", res)
	}
	if p.Busy() {
		t.Fatalf("scene end should leave no live lines")
	}
	if len(store.logs) != 4 {
		t.Fatalf("logged %d lines", len(store.logs))
	}
	if _, ok := r.Cast.Get("bob"); !ok {
		t.Fatalf("unknown speakers should join the cast")
	}
	seen := map[string]bool{}
	for _, f := range frames {
		seen[f.Text] = true
	}
	for _, want := range []string{"Morning.", "Hello", "Hello there", "Bye"} {
		if !seen[want] {
			t.Fatalf("missing frame %q in %+v", want, frames)
		}
	}
}

func TestRunnerHonoursContext(t *testing.T) {
	ctx := staticContext()
	ctx.Settings.DisplayForever = true
	p := NewPlayer(Options{Context: ctx})
	scene := script.Scene{Lines: []script.Line{{Type: script.LineDialogue, Character: "Ann", Text: "Forever", LineID: -1}}}
	c, cancel := context.WithCancel(context.Background())
	cancel()
	r := &Runner{Player: p, Cast: cast.New(nil)}
	if _, err := r.Play(c, scene); err == nil {
		t.Fatalf("cancelled context should stop playback")
	}
}

func TestRunnerAbandonsStuckLine(t *testing.T) {
	ctx := staticContext()
	ctx.Settings.DisplayForever = true
	p := NewPlayer(Options{Context: ctx})
	scene := script.Scene{Lines: []script.Line{{Type: script.LineDialogue, Character: "Ann", Text: "Forever", LineID: -1, LineNo: 7}}}
	r := &Runner{Player: p, Cast: cast.New(nil), Step: 0.5, MaxLineTime: 2}
	res, err := r.Play(context.Background(), scene)
	if err != nil {
		t.Fatalf("play: %v", err)
	}
	if len(res.Failed) != 1 || res.Failed[0].LineNo != 7 {
		t.Fatalf("result: %+v", res)
	}
}
