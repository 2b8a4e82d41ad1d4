/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package speech

import "log/slog"

// MouseState is the pointer state sampled once per frame.
type MouseState int

const (
	MouseNormal MouseState = iota
	MouseSingleClick
	MouseRightClick
	MouseDoubleClick
	MouseHeldDown
)

// GameState is the coarse state of the host game.
type GameState int

const (
	GameNormal GameState = iota
	GameCutscene
	GameDialogOptions
	GamePaused
)

func (g GameState) String() string {
	switch g {
	case GameNormal:
		return "normal"
	case GameCutscene:
		return "cutscene"
	case GameDialogOptions:
		return "dialog_options"
	case GamePaused:
		return "paused"
	default:
		return "unknown"
	}
}

// Clip is a resolved voice recording.
type Clip struct {
	Path     string
	Duration float64
}

// SpeakingCue tells a speaker that it started talking.
type SpeakingCue struct {
	LineID   int
	Language string
	Text     string
	Animate  bool
}

// Rect is a portrait frame in texture space.
type Rect struct {
	X, Y, W, H float64
}

// Portrait describes a speaker's animated talking graphic as a horizontal strip.
type Portrait struct {
	Texture     string
	FrameWidth  float64
	FrameHeight float64
	Frames      int
	FPS         float64
}

// FrameRect returns the rectangle of frame i, wrapping around the strip.
func (p Portrait) FrameRect(i int) Rect {
	if p.Frames <= 0 {
		return Rect{W: p.FrameWidth, H: p.FrameHeight}
	}
	i %= p.Frames
	if i < 0 {
		i += p.Frames
	}
	return Rect{X: float64(i) * p.FrameWidth, W: p.FrameWidth, H: p.FrameHeight}
}

// Speaker is a character that can be given lines.
type Speaker interface {
	Name() string
	DisplayName(language int) string
	IsPlayer() bool
	// ExpressionID resolves an expression label, -1 when unknown.
	ExpressionID(name string) int
	SetExpression(id int)
	ClearExpression()
	StartSpeaking(cue SpeakingCue)
	StopSpeaking()
	// LipSyncFrame returns the current lip-sync frame when lip sync drives the portrait.
	LipSyncFrame() (int, bool)
	Portrait() *Portrait
	SpeechAudio() AudioSource
}

// AudioSource plays voice clips.
type AudioSource interface {
	Play(c Clip)
	Stop()
	IsPlaying() bool
}

// AudioResolver finds the voice clip for a line in a language.
type AudioResolver interface {
	Clip(lineID, language int) (Clip, bool)
}

// Languages answers per-language questions.
type Languages interface {
	Index(name string) int
	ReadsRightToLeft(name string) bool
}

// InputSource is sampled by UpdateInput.
type InputSource interface {
	SkipPressed() bool
	MouseState() MouseState
	ResetMouseClick()
}

// StateSource reports the host game state.
type StateSource interface {
	GameState() GameState
}

// ScrollSounder plays the typewriter sound while text scrolls without voice.
type ScrollSounder interface {
	PlayScrollSound(s Speaker)
}

// EventSink receives speech lifecycle notifications.
type EventSink interface {
	Notify(e Event)
}

// Context bundles everything a Line collaborates with. All fields except
// Settings may be nil.
type Context struct {
	Settings      Settings
	Languages     Languages
	Audio         AudioResolver
	NarratorAudio AudioSource
	Events        EventSink
	Input         InputSource
	State         StateSource
	ScrollSound   ScrollSounder
	EventKeys     []string
	Logger        *slog.Logger
}
