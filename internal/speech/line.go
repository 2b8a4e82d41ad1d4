/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package speech

import (
	"log/slog"
	"math"

	applog "gospeech/internal/log"
)

const (
	playerName   = "Player"
	narratorName = "Narrator"
)

// LineOptions describe a line to be spoken.
type LineOptions struct {
	Speaker     Speaker // nil for narration
	Text        string
	LineID      int // -1 when the line has no catalog entry
	Language    string
	Background  bool
	NoAnimation bool
}

// Line is one spoken line: its display text, gaps, timers and reveal state.
// A Line is not safe for concurrent use; its owner drives it from one loop.
type Line struct {
	ctx     Context
	log     *slog.Logger
	speaker Speaker
	entry   SpeechLog
	rich    *richText
	cursor  *revealCursor

	displayText string
	language    string
	langIndex   int
	background  bool
	animate     bool
	alive       bool
	skippable   bool
	rtl         bool
	scrolls     bool

	gaps          []Gap
	gapIndex      int
	continueIndex int
	continueTime  float64
	continueFrom  bool
	hold          bool

	endTime        float64
	minSkipTime    float64
	minDisplayTime float64

	scrollAmount float64
	scrollDone   bool

	pauseGap        bool
	pauseIndefinite bool
	pauseEndTime    float64

	audio    AudioSource
	hasAudio bool
	elapsed  float64
}

// NewLine parses opt.Text, resolves the voice clip and starts the line.
func NewLine(ctx Context, opt LineOptions) (*Line, error) {
	l := &Line{
		ctx:           ctx,
		speaker:       opt.Speaker,
		language:      opt.Language,
		background:    opt.Background,
		animate:       !opt.NoAnimation,
		gapIndex:      -1,
		continueIndex: -1,
	}
	if l.ctx.Logger == nil {
		l.ctx.Logger = applog.WithComponent("speech")
	}
	if opt.LineID < 0 {
		opt.LineID = -1
	}
	l.log = l.ctx.Logger.With(slog.Int("line_id", opt.LineID))

	if ctx.Languages != nil {
		l.rtl = ctx.Languages.ReadsRightToLeft(opt.Language)
		l.langIndex = ctx.Languages.Index(opt.Language)
	}

	s := ctx.Settings
	realName, logName := "", narratorName
	if l.speaker != nil {
		realName = l.speaker.Name()
		logName = realName
		if l.speaker.IsPlayer() && (s.PlayerSwitching || !s.UsePlayerRealName) {
			logName = playerName
		}
	}

	parsed, err := Parse(opt.Text, ParseOptions{
		SpeakerName: realName,
		HasSpeaker:  l.speaker != nil,
		EventKeys:   ctx.EventKeys,
		RTL:         l.rtl,
	})
	if err != nil {
		l.log.Warn("cannot parse speech line", slog.Any("err", err))
		return nil, err
	}
	for _, k := range parsed.Unregistered {
		l.log.Debug("unregistered event token kept as text", slog.String("key", k))
	}
	l.gaps = parsed.Gaps
	l.continueIndex = parsed.ContinueIndex
	l.hold = parsed.Hold
	if len(l.gaps) > 0 {
		l.gapIndex = 0
	}
	l.rich = newRichText([]rune(parsed.Text))
	l.cursor = l.rich.cursor(l.rtl)
	l.entry = SpeechLog{FullText: parsed.Text, SpeakerName: logName, LineID: opt.LineID, Background: opt.Background}

	if l.speaker != nil {
		for i := range l.gaps {
			if l.gaps[i].Kind == GapExpression {
				l.gaps[i].ExpressionID = l.speaker.ExpressionID(l.gaps[i].Expression)
			}
		}
		l.speaker.ClearExpression()
		l.speaker.StartSpeaking(SpeakingCue{LineID: opt.LineID, Language: opt.Language, Text: parsed.Text, Animate: l.animate})
	}

	l.startAudio(logName)
	l.scrolls = s.Scrolls(l.speaker == nil)
	l.endTime = DisplayDuration(s, parsed.Text, l.gaps, l.hasAudio, l.scrolls)

	l.alive = true
	l.skippable = true
	l.notify(Event{Kind: EventStartSpeech})

	if l.scrolls {
		l.displayText = ""
		l.notify(Event{Kind: EventStartScroll})
	} else {
		if l.continueIndex >= 0 && s.TextScrollSpeed > 0 {
			l.continueTime = float64(l.continueIndex) / s.TextScrollSpeed
		}
		l.displayText = string(l.rich.text)
		if l.gapIndex >= 0 {
			l.displayText = l.portion(l.gaps[0].Index)
		}
	}

	l.minSkipTime = s.SkipThresholdTime
	l.minDisplayTime = math.Max(0, s.MinimumDisplayTime)
	l.log.Debug("speech started",
		slog.String("speaker", logName),
		slog.Int("gaps", len(l.gaps)),
		slog.Bool("audio", l.hasAudio),
		slog.Bool("scroll", l.scrolls),
		slog.Float64("end_time", l.endTime))
	return l, nil
}

func (l *Line) startAudio(speakerName string) {
	s := l.ctx.Settings
	if l.entry.LineID < 0 || speakerName == "" || !s.SearchAudioFiles || l.ctx.Audio == nil {
		return
	}
	clip, ok := l.ctx.Audio.Clip(l.entry.LineID, l.langIndex)
	if !ok && s.FallbackAudio && l.langIndex > 0 {
		clip, ok = l.ctx.Audio.Clip(l.entry.LineID, 0)
	}
	if !ok {
		l.log.Info("no voice clip for line", slog.Int("language", l.langIndex))
		return
	}
	var src AudioSource
	if l.speaker != nil {
		src = l.speaker.SpeechAudio()
		if src == nil {
			l.log.Warn("speaker has no audio source", slog.String("speaker", speakerName))
		}
	} else {
		src = l.ctx.NarratorAudio
		if src == nil {
			l.log.Warn("no narrator audio source configured")
		}
	}
	if src == nil {
		return
	}
	src.Play(clip)
	l.audio = src
	l.hasAudio = true
}

// UpdateDisplay advances the line by dt seconds.
func (l *Line) UpdateDisplay(dt float64) {
	if !l.alive {
		return
	}
	l.elapsed += dt
	if !expired(l.minSkipTime) {
		l.minSkipTime -= dt
	}
	if !expired(l.minDisplayTime) {
		l.minDisplayTime -= dt
	}
	if !expired(l.pauseEndTime) {
		l.pauseEndTime -= dt
	}

	if l.pauseGap {
		if l.pauseIndefinite || !expired(l.pauseEndTime) {
			return
		}
		l.EndPause()
	} else if l.countsDown() && !expired(l.endTime) {
		l.endTime -= dt
	}

	if l.scrolls {
		if !l.scrollDone {
			l.advanceScroll(dt)
			return
		}
		l.displayText = string(l.rich.text)
	} else {
		l.advanceStatic(dt)
		if l.pauseGap {
			return
		}
	}

	if expired(l.endTime) && expired(l.minDisplayTime) {
		s := l.ctx.Settings
		switch {
		case s.DisplayForever:
			if l.background {
				l.endMessage(false)
			}
		case s.DisplayNarrationForever && l.speaker == nil:
		default:
			l.endMessage(false)
		}
	}
}

func (l *Line) countsDown() bool {
	if l.hasAudio {
		return !l.audio.IsPlaying()
	}
	return !l.scrolls || l.scrollDone
}

func (l *Line) advanceStatic(dt float64) {
	if l.continueIndex >= 0 {
		l.continueTime -= dt
		if expired(l.continueTime) {
			l.continueIndex = -1
			l.continueFrom = true
		}
	}
	for {
		if l.gapIndex < 0 || l.gapIndex >= len(l.gaps) {
			l.displayText = string(l.rich.text)
			return
		}
		g := l.gaps[l.gapIndex]
		l.displayText = l.portion(g.Index)
		switch g.Kind {
		case GapTimedWait:
			l.pauseGap, l.pauseIndefinite, l.pauseEndTime = true, false, g.Duration
			return
		case GapIndefiniteWait:
			l.pauseGap, l.pauseIndefinite, l.pauseEndTime = true, true, 0
			return
		default:
			l.applyGap(g)
			l.gapIndex++
		}
	}
}

func (l *Line) advanceScroll(dt float64) {
	n := len(l.rich.text)
	speed := l.ctx.Settings.TextScrollSpeed
	if n == 0 || speed <= 0 {
		l.stopScrolling()
		return
	}
	l.scrollAmount += speed * dt / 2 / float64(n)
	if l.scrollAmount > 1 {
		l.scrollAmount = 1
	}
	idx := l.scrollIndex()

	// Non-pausing gaps fire as they are passed; the first pausing one clamps the reveal.
	for l.gapIndex >= 0 && l.gapIndex < len(l.gaps) {
		g := l.gaps[l.gapIndex]
		if !l.passed(idx, g.Index) {
			break
		}
		if g.Pauses() {
			l.show(l.revealTo(g.Index, true))
			l.setPauseGap(g)
			return
		}
		l.applyGap(g)
		l.gapIndex++
	}

	l.show(l.revealTo(idx, false))
	l.checkContinue(idx)
	if l.scrollAmount >= 1 {
		l.stopScrolling()
	}
}

func (l *Line) show(text string) {
	if text != l.displayText && !l.hasAudio && l.ctx.ScrollSound != nil {
		l.ctx.ScrollSound.PlayScrollSound(l.speaker)
	}
	l.displayText = text
}

func (l *Line) checkContinue(idx int) {
	if l.continueIndex >= 0 && l.passed(idx, l.continueIndex) {
		l.continueIndex = -1
		l.continueFrom = true
	}
}

func (l *Line) scrollIndex() int {
	n := float64(len(l.rich.text))
	if l.rtl {
		return int((1 - l.scrollAmount) * n)
	}
	return int(l.scrollAmount * n)
}

func (l *Line) passed(idx, target int) bool {
	if l.rtl {
		return idx <= target
	}
	return idx >= target
}

// revealTo moves the reveal cursor to idx and returns the balanced fragment.
// The scroll amount follows the cursor over skipped tags; a clamped reveal
// pins it to the boundary.
func (l *Line) revealTo(idx int, clamped bool) string {
	pos := l.cursor.advance(idx)
	n := float64(len(l.rich.text))
	at := float64(pos) / n
	if l.rtl {
		at = 1 - at
	}
	if clamped || at > l.scrollAmount {
		l.scrollAmount = at
	}
	return l.cursor.fragment()
}

// portion renders a fragment without touching the reveal cursor.
func (l *Line) portion(idx int) string {
	c := l.rich.cursor(l.rtl)
	c.advance(idx)
	return c.fragment()
}

func (l *Line) setPauseGap(g Gap) {
	l.pauseGap = true
	switch g.Kind {
	case GapIndefiniteWait:
		l.pauseIndefinite, l.pauseEndTime = true, 0
	case GapTimedWait:
		l.pauseIndefinite, l.pauseEndTime = false, g.Duration
	}
	if l.pauseEndTime > 0 || l.pauseIndefinite {
		l.notify(Event{Kind: EventEndScroll})
	}
}

// timerEpsilon absorbs the rounding left after subtracting many frame
// deltas, so a 10s timer ends on the frame that reaches 10s.
const timerEpsilon = 1e-9

func expired(t float64) bool { return t <= timerEpsilon }

// EndPause releases the current pause and moves on to the next gap. It does
// nothing when the line is not paused.
func (l *Line) EndPause() {
	if !l.pauseGap {
		return
	}
	l.pauseGap = false
	l.pauseIndefinite = false
	l.pauseEndTime = 0
	if l.gapIndex >= 0 && l.gapIndex < len(l.gaps) {
		l.gapIndex++
	}
	if l.scrolls && !l.scrollDone {
		l.notify(Event{Kind: EventStartScroll})
	}
}

func (l *Line) stopScrolling() {
	l.scrollAmount = 1
	if l.rtl {
		l.cursor.advance(0)
	} else {
		l.cursor.advance(len(l.rich.text))
	}
	l.displayText = string(l.rich.text)
	if l.hold {
		l.continueFrom = true
	}
	if l.scrollDone {
		return
	}
	l.scrollDone = true
	l.notify(Event{Kind: EventEndScroll})
	l.notify(Event{Kind: EventCompleteScroll})
}

// ExtendTime makes sure a scrolling line that is cut short still stays on
// screen for as long as the unrevealed part would have taken to read.
func (l *Line) ExtendTime() {
	s := l.ctx.Settings
	if !l.scrolls || s.ScrollingTextFactorsLength || l.hasAudio {
		return
	}
	ext := (1 - l.scrollAmount) * s.ScreenTimeFactor * float64(VisibleLength(l.entry.FullText))
	l.endTime = math.Max(l.endTime, ext)
}

func (l *Line) applyGap(g Gap) {
	switch g.Kind {
	case GapExpression:
		if l.speaker != nil && g.ExpressionID >= 0 {
			l.speaker.SetExpression(g.ExpressionID)
		}
	case GapEvent:
		l.notify(Event{Kind: EventToken, Key: g.Key, Value: g.Value})
	}
}

func (l *Line) endMessage(force bool) {
	if l.hold {
		l.continueFrom = true
		return
	}
	if !force && l.gapIndex >= 0 && l.gapIndex < len(l.gaps) {
		l.gapIndex++
		return
	}
	l.finish()
}

// Stop ends the line at once, ignoring [hold].
func (l *Line) Stop() {
	if !l.alive {
		return
	}
	l.hold = false
	l.finish()
}

func (l *Line) finish() {
	l.endTime = 0
	l.skippable = false
	if l.speaker != nil {
		l.speaker.StopSpeaking()
	}
	l.EndSpeechAudio()
	l.alive = false
	l.notify(Event{Kind: EventStopSpeech})
	l.log.Debug("speech ended", slog.Float64("elapsed", l.elapsed))
}

// EndSpeechAudio stops the voice clip of this line, if any.
func (l *Line) EndSpeechAudio() {
	if l.audio != nil {
		l.audio.Stop()
	}
}

// EndBackgroundSpeechAudio silences a voiced background line when a
// different speaker starts talking.
func (l *Line) EndBackgroundSpeechAudio(next Speaker) {
	if !l.background || !l.hasAudio || l.speaker == nil || l.speaker == next {
		return
	}
	if src := l.speaker.SpeechAudio(); src != nil {
		src.Stop()
	}
}

func (l *Line) notify(e Event) {
	if l.ctx.Events == nil {
		return
	}
	e.Speaker = l.speaker
	e.LineID = l.entry.LineID
	if e.Text == "" {
		e.Text = l.entry.FullText
	}
	l.ctx.Events.Notify(e)
}

// DisplayText is the currently revealed, tag-balanced text.
func (l *Line) DisplayText() string { return l.displayText }

// FullText is the token-free text of the line.
func (l *Line) FullText() string { return l.entry.FullText }

func (l *Line) Alive() bool              { return l.alive }
func (l *Line) HasAudio() bool           { return l.hasAudio }
func (l *Line) IsBackground() bool       { return l.background }
func (l *Line) IsPaused() bool           { return l.pauseGap }
func (l *Line) IsScrolling() bool        { return l.scrolls && !l.scrollDone }
func (l *Line) ReadsRightToLeft() bool   { return l.rtl }
func (l *Line) ScrollAmount() float64    { return l.scrollAmount }
func (l *Line) Speaker() Speaker         { return l.speaker }
func (l *Line) Language() string         { return l.language }
func (l *Line) ContinueFromSpeech() bool { return l.continueFrom }

// Held reports a [hold] line that has released its owner and now stays on
// screen until Stop is called.
func (l *Line) Held() bool { return l.alive && l.hold && l.continueFrom }

// Gaps returns a copy of the line's gaps in reveal order.
func (l *Line) Gaps() []Gap { return append([]Gap(nil), l.gaps...) }

// Log returns the record kept of this line.
func (l *Line) Log() SpeechLog { return l.entry }

// SpeakerLabel returns the speaker's display name in the line's language,
// or "" for narration.
func (l *Line) SpeakerLabel() string {
	if l.speaker == nil {
		return ""
	}
	return l.speaker.DisplayName(l.langIndex)
}

// Portrait returns the speaker's portrait, nil for narration.
func (l *Line) Portrait() *Portrait {
	if l.speaker == nil {
		return nil
	}
	return l.speaker.Portrait()
}

// AnimatedFrame returns the portrait frame to draw now. Lip sync wins over
// the timed talking animation, which only runs while the line is alive.
func (l *Line) AnimatedFrame() Rect {
	p := l.Portrait()
	if p == nil {
		return Rect{}
	}
	if f, ok := l.speaker.LipSyncFrame(); ok {
		return p.FrameRect(f)
	}
	if !l.alive || !l.animate || p.FPS <= 0 || p.Frames <= 1 {
		return p.FrameRect(0)
	}
	return p.FrameRect(int(l.elapsed * p.FPS))
}
