/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package speech

import "log/slog"

// SkipAction reports what a skip request did to a line.
type SkipAction int

const (
	SkipNone SkipAction = iota
	SkipEndedPause
	SkipStoppedScroll
	SkipEndedLine
	// SkipRefused means the request was consumed but the line cannot be skipped
	// in the current game state.
	SkipRefused
)

func (a SkipAction) String() string {
	switch a {
	case SkipNone:
		return "none"
	case SkipEndedPause:
		return "ended_pause"
	case SkipStoppedScroll:
		return "stopped_scroll"
	case SkipEndedLine:
		return "ended_line"
	case SkipRefused:
		return "refused"
	default:
		return "unknown"
	}
}

// UpdateInput samples the input source once and applies a skip if one was
// requested.
func (l *Line) UpdateInput() SkipAction {
	if !l.alive || !l.skippable || l.ctx.Input == nil || !expired(l.minSkipTime) {
		return SkipNone
	}
	if !l.skipRequested() {
		return SkipNone
	}
	state := GameNormal
	if l.ctx.State != nil {
		state = l.ctx.State.GameState()
	}
	return l.HandleSkip(state)
}

func (l *Line) skipRequested() bool {
	in := l.ctx.Input
	if in.SkipPressed() {
		return true
	}
	if !l.ctx.Settings.CanSkipWithMouseClicks {
		return false
	}
	switch in.MouseState() {
	case MouseSingleClick, MouseRightClick:
		return true
	}
	return false
}

func (l *Line) resetClick() {
	if l.ctx.Input != nil {
		l.ctx.Input.ResetMouseClick()
	}
}

// HandleSkip applies a skip request under the given game state.
//
// A paused foreground line is released. A line that would otherwise stay on
// screen forever may only be skipped inside a cutscene. Any other line is
// skipped if the skipping settings allow it for its kind.
func (l *Line) HandleSkip(state GameState) SkipAction {
	if !l.alive || !l.skippable || !expired(l.minSkipTime) {
		return SkipNone
	}
	s := l.ctx.Settings
	full := string(l.rich.text)

	switch {
	case l.pauseGap && !l.background:
		g := l.gaps[l.gapIndex]
		if g.Kind == GapIndefiniteWait || s.AllowSpeechSkipping {
			l.resetClick()
			l.EndPause()
			return SkipEndedPause
		}
		return SkipNone

	case l.staysForever():
		if l.hold && l.displayText == full {
			return SkipNone
		}
		l.resetClick()
		if state != GameCutscene {
			l.log.Warn("cannot skip a line shown forever outside a cutscene", slog.String("state", state.String()))
			return SkipRefused
		}
		if s.EndScrollBeforeSkip && l.scrolls && l.displayText != full {
			l.snapToEnd()
			return SkipStoppedScroll
		}
		return l.forceEnd()

	case l.gameplaySkippable():
		l.resetClick()
		if state != GameCutscene && !(s.AllowGameplaySpeechSkipping && state == GameNormal) {
			return SkipNone
		}
		if s.EndScrollBeforeSkip && l.scrolls && l.displayText != full {
			l.skipToNextStop()
			return SkipStoppedScroll
		}
		return l.forceEnd()
	}
	return SkipNone
}

func (l *Line) staysForever() bool {
	s := l.ctx.Settings
	return !l.background && (s.DisplayForever || (s.DisplayNarrationForever && l.speaker == nil))
}

func (l *Line) gameplaySkippable() bool {
	s := l.ctx.Settings
	if !l.background {
		return s.AllowSpeechSkipping
	}
	if !s.AllowGameplaySpeechSkipping {
		return false
	}
	return s.AllowSpeechSkipping || s.DisplayForever || (s.DisplayNarrationForever && l.speaker == nil)
}

func (l *Line) forceEnd() SkipAction {
	l.endMessage(true)
	if l.alive {
		return SkipNone
	}
	return SkipEndedLine
}

// snapToEnd reveals everything at once. Events of unreached gaps fire in
// order and the last unreached expression is applied.
func (l *Line) snapToEnd() {
	from := l.gapIndex
	l.stopScrolling()
	if from >= 0 && from < len(l.gaps) {
		for _, g := range l.gaps[from:] {
			if g.Kind == GapEvent {
				l.applyGap(g)
			}
		}
		for i := len(l.gaps) - 1; i >= from; i-- {
			if l.gaps[i].Kind == GapExpression {
				l.applyGap(l.gaps[i])
				break
			}
		}
		l.gapIndex = len(l.gaps)
	}
	if l.continueIndex >= 0 {
		l.continueIndex = -1
		l.continueFrom = true
	}
}

// skipToNextStop runs through timed waits, expressions and events up to the
// next indefinite wait and pauses there. Without one the scroll completes.
func (l *Line) skipToNextStop() {
	for l.gapIndex >= 0 && l.gapIndex < len(l.gaps) {
		g := l.gaps[l.gapIndex]
		if g.Kind == GapIndefiniteWait {
			l.displayText = l.revealTo(g.Index, true)
			l.checkContinue(g.Index)
			l.setPauseGap(g)
			return
		}
		if l.pauseGap {
			// Moving past the timed wait this line is paused on releases it.
			l.pauseGap, l.pauseIndefinite, l.pauseEndTime = false, false, 0
		}
		l.applyGap(g)
		l.gapIndex++
	}
	l.ExtendTime()
	l.stopScrolling()
	if l.continueIndex >= 0 {
		l.continueIndex = -1
		l.continueFrom = true
	}
}
