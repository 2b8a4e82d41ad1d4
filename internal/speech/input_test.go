/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package speech

import (
	"math"
	"testing"
)

type fakeInput struct {
	skip   bool
	mouse  MouseState
	resets int
}

func (f *fakeInput) SkipPressed() bool      { return f.skip }
func (f *fakeInput) MouseState() MouseState { return f.mouse }
func (f *fakeInput) ResetMouseClick()       { f.mouse = MouseNormal; f.resets++ }

type fixedState GameState

func (s fixedState) GameState() GameState { return GameState(s) }

func TestSkipRunsToNextIndefiniteWait(t *testing.T) {
	s := DefaultSettings()
	s.TextScrollSpeed = 16
	ctx, _ := testContext(s)
	in := &fakeInput{skip: true}
	ctx.Input = in
	ctx.State = fixedState(GameCutscene)
	l := mustLine(t, ctx, LineOptions{Speaker: newSpeaker("Ann"), Text: "One[wait:2] two[wait] three"})

	if a := l.UpdateInput(); a != SkipStoppedScroll {
		t.Fatalf("expected scroll to stop, got %v", a)
	}
	if !l.IsPaused() || l.DisplayText() != "One two" {
		t.Fatalf("expected pause at indefinite wait, got %q paused=%v", l.DisplayText(), l.IsPaused())
	}
	if a := l.UpdateInput(); a != SkipEndedPause || l.IsPaused() {
		t.Fatalf("expected pause to end, got %v", a)
	}
	if a := l.UpdateInput(); a != SkipStoppedScroll || l.DisplayText() != "One two three" {
		t.Fatalf("expected full text, got %v %q", a, l.DisplayText())
	}
	if math.Abs(l.endTime-0.6) > 1e-9 {
		t.Fatalf("expected end time extended to 0.6, got %v", l.endTime)
	}
	if a := l.UpdateInput(); a != SkipEndedLine || l.Alive() {
		t.Fatalf("expected line to end, got %v", a)
	}
	if in.resets != 4 {
		t.Fatalf("expected each accepted skip to reset the click, got %d", in.resets)
	}
}

func TestSkipDisplayForeverNeedsCutscene(t *testing.T) {
	s := DefaultSettings()
	s.DisplayForever = true
	ctx, rec := testContext(s)
	ctx.EventKeys = []string{"sound"}
	spk := newSpeaker("Ann")
	l := mustLine(t, ctx, LineOptions{Speaker: spk, Text: "A[sound:x]B[expression:sad]C[expression:happy]D"})

	if a := l.HandleSkip(GameNormal); a != SkipRefused {
		t.Fatalf("expected refusal outside a cutscene, got %v", a)
	}
	if !l.Alive() || l.DisplayText() != "" {
		t.Fatalf("refused skip must not change the line")
	}
	if a := l.HandleSkip(GameCutscene); a != SkipStoppedScroll {
		t.Fatalf("expected snap to end, got %v", a)
	}
	if l.DisplayText() != "ABCD" {
		t.Fatalf("expected full text, got %q", l.DisplayText())
	}
	if rec.count(EventToken) != 1 {
		t.Fatalf("expected the skipped event to fire once, got %d", rec.count(EventToken))
	}
	if spk.expr != 2 {
		t.Fatalf("expected the last expression to apply, got %d", spk.expr)
	}
	if a := l.HandleSkip(GameCutscene); a != SkipEndedLine || l.Alive() {
		t.Fatalf("expected second skip to end the line, got %v", a)
	}
}

func TestSkipTimedPauseRespectsSettings(t *testing.T) {
	s := staticSettings()
	s.AllowSpeechSkipping = false
	ctx, _ := testContext(s)
	l := mustLine(t, ctx, LineOptions{Speaker: newSpeaker("Ann"), Text: "A[wait:5]B[wait]C"})
	l.UpdateDisplay(0.25)
	if a := l.HandleSkip(GameCutscene); a != SkipNone || !l.IsPaused() {
		t.Fatalf("timed wait must not be skippable, got %v", a)
	}
	l.EndPause()
	l.UpdateDisplay(0.25)
	if !l.IsPaused() || l.DisplayText() != "AB" {
		t.Fatalf("expected indefinite pause, got %q", l.DisplayText())
	}
	if a := l.HandleSkip(GameNormal); a != SkipEndedPause {
		t.Fatalf("indefinite wait is always releasable, got %v", a)
	}
}

func TestSkipThreshold(t *testing.T) {
	s := staticSettings()
	s.SkipThresholdTime = 0.5
	ctx, _ := testContext(s)
	l := mustLine(t, ctx, LineOptions{Speaker: newSpeaker("Ann"), Text: "Hello there"})
	if a := l.HandleSkip(GameCutscene); a != SkipNone {
		t.Fatalf("skip accepted before threshold: %v", a)
	}
	l.UpdateDisplay(0.5)
	if a := l.HandleSkip(GameCutscene); a != SkipEndedLine {
		t.Fatalf("skip refused after threshold: %v", a)
	}
}

func TestSkipGameplayGating(t *testing.T) {
	s := staticSettings()
	ctx, _ := testContext(s)
	fg := mustLine(t, ctx, LineOptions{Speaker: newSpeaker("Ann"), Text: "Hello"})
	if a := fg.HandleSkip(GameNormal); a != SkipNone || !fg.Alive() {
		t.Fatalf("gameplay skip should need permission, got %v", a)
	}
	bg := mustLine(t, ctx, LineOptions{Speaker: newSpeaker("Bob"), Text: "Hmm", Background: true})
	if a := bg.HandleSkip(GameCutscene); a != SkipNone {
		t.Fatalf("background line should not be skippable, got %v", a)
	}

	ctx.Settings.AllowGameplaySpeechSkipping = true
	fg = mustLine(t, ctx, LineOptions{Speaker: newSpeaker("Ann"), Text: "Hello"})
	if a := fg.HandleSkip(GameNormal); a != SkipEndedLine {
		t.Fatalf("expected gameplay skip, got %v", a)
	}
	bg = mustLine(t, ctx, LineOptions{Speaker: newSpeaker("Bob"), Text: "Hmm", Background: true})
	if a := bg.HandleSkip(GameNormal); a != SkipEndedLine {
		t.Fatalf("expected background skip, got %v", a)
	}
	if a := bg.HandleSkip(GameNormal); a != SkipNone {
		t.Fatalf("dead line must ignore skips, got %v", a)
	}
}

func TestSkipWithMouse(t *testing.T) {
	ctx, _ := testContext(staticSettings())
	in := &fakeInput{mouse: MouseSingleClick}
	ctx.Input = in
	ctx.State = fixedState(GameCutscene)
	l := mustLine(t, ctx, LineOptions{Speaker: newSpeaker("Ann"), Text: "Hello"})
	if a := l.UpdateInput(); a != SkipEndedLine {
		t.Fatalf("click should skip, got %v", a)
	}

	ctx.Settings.CanSkipWithMouseClicks = false
	in.mouse = MouseSingleClick
	l = mustLine(t, ctx, LineOptions{Speaker: newSpeaker("Ann"), Text: "Hello"})
	if a := l.UpdateInput(); a != SkipNone {
		t.Fatalf("click must be ignored, got %v", a)
	}
}

func TestHeldLineIgnoresSkipOnceRevealed(t *testing.T) {
	s := staticSettings()
	s.DisplayForever = true
	ctx, _ := testContext(s)
	l := mustLine(t, ctx, LineOptions{Speaker: newSpeaker("Ann"), Text: "Stay[hold]"})
	l.UpdateDisplay(0.25)
	if a := l.HandleSkip(GameCutscene); a != SkipNone || !l.Alive() {
		t.Fatalf("held line should ignore skips, got %v", a)
	}
}

func TestMatchesFilter(t *testing.T) {
	ctx, _ := testContext(staticSettings())
	p := newSpeaker("Guybrush")
	p.player = true
	player := mustLine(t, ctx, LineOptions{Speaker: p, Text: "Hi"})
	elaine := mustLine(t, ctx, LineOptions{Speaker: newSpeaker("Elaine"), Text: "Hi", Background: true})
	narr := mustLine(t, ctx, LineOptions{Text: "Later"})

	cases := []struct {
		l     *Line
		bg    BackgroundFilter
		who   SpeakerFilter
		names []string
		want  bool
	}{
		{player, FilterAll, SpeakersAll, nil, true},
		{elaine, FilterBlockingOnly, SpeakersAll, nil, false},
		{elaine, FilterBackgroundOnly, SpeakersAll, nil, true},
		{narr, FilterAll, SpeakersCharactersOnly, nil, false},
		{narr, FilterAll, SpeakersNarrationOnly, nil, true},
		{player, FilterAll, SpeakersSpecific, []string{"player"}, true},
		{elaine, FilterAll, SpeakersSpecific, []string{"Player"}, false},
		{elaine, FilterAll, SpeakersSpecific, []string{"elaine"}, true},
		{elaine, FilterAll, SpeakersAllExcept, []string{"Elaine"}, false},
		{narr, FilterAll, SpeakersAllExcept, []string{"Elaine"}, true},
	}
	for i, c := range cases {
		if got := c.l.MatchesFilter(c.bg, c.who, c.names); got != c.want {
			t.Fatalf("case %d: got %v want %v", i, got, c.want)
		}
	}
}

func TestSkipBackgroundLinePastTimedPause(t *testing.T) {
	s := DefaultSettings()
	s.TextScrollSpeed = 16
	s.AllowGameplaySpeechSkipping = true
	s.AllowSpeechSkipping = true
	s.SkipThresholdTime = 0
	s.MinimumDisplayTime = 0
	ctx, _ := testContext(s)
	l := mustLine(t, ctx, LineOptions{Speaker: newSpeaker("Bob"), Text: "Hi[wait:5] there", Background: true})
	l.UpdateDisplay(0.25)
	if !l.IsPaused() || l.DisplayText() != "Hi" {
		t.Fatalf("expected pause at the timed wait, got %q paused=%v", l.DisplayText(), l.IsPaused())
	}

	if a := l.HandleSkip(GameNormal); a != SkipStoppedScroll {
		t.Fatalf("expected the scroll to snap, got %v", a)
	}
	if l.IsPaused() || l.DisplayText() != "Hi there" {
		t.Fatalf("skipping past the wait must release it, got %q paused=%v", l.DisplayText(), l.IsPaused())
	}
	for i := 0; i < 20 && l.Alive(); i++ {
		l.UpdateDisplay(0.1)
	}
	if l.Alive() {
		t.Fatalf("line should end long before the skipped 5s wait")
	}
}
