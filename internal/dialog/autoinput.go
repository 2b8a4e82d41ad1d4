/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package dialog

import "gospeech/internal/speech"

// AutoInput stands in for a player in unattended playback. It presses skip
// for a single frame once the foreground line has shown the same text for
// Delay seconds while waiting on input.
type AutoInput struct {
	Settings speech.Settings
	Delay    float64
	State    speech.GameState

	pressed bool
	idle    float64
	last    *speech.Line
	text    string
	presses int
}

// NewAutoInput returns an AutoInput that reports a cutscene.
func NewAutoInput(s speech.Settings, delay float64) *AutoInput {
	return &AutoInput{Settings: s, Delay: delay, State: speech.GameCutscene}
}

func (a *AutoInput) BeginFrame(dt float64, fg *speech.Line) {
	a.pressed = false
	if fg == nil {
		a.last, a.idle = nil, 0
		return
	}
	if fg != a.last || fg.DisplayText() != a.text {
		a.last, a.text, a.idle = fg, fg.DisplayText(), 0
		return
	}
	if !a.waiting(fg) {
		a.idle = 0
		return
	}
	a.idle += dt
	if a.idle >= a.Delay {
		a.pressed = true
		a.presses++
		a.idle = 0
	}
}

func (a *AutoInput) waiting(fg *speech.Line) bool {
	if fg.IsScrolling() {
		return false
	}
	if fg.IsPaused() {
		return true
	}
	if fg.Speaker() == nil {
		return a.Settings.DisplayNarrationForever
	}
	return a.Settings.DisplayForever
}

func (a *AutoInput) SkipPressed() bool { return a.pressed }
func (a *AutoInput) MouseState() speech.MouseState { return speech.MouseNormal }
func (a *AutoInput) ResetMouseClick() {}
func (a *AutoInput) GameState() speech.GameState { return a.State }

// Presses returns how many skips were issued.
func (a *AutoInput) Presses() int { return a.presses }
