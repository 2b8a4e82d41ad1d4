/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package speech

// Settings are the project-wide speech options a line reads at construction
// and on every update.
type Settings struct {
	// ScreenTimeFactor is seconds of screen time per visible character.
	ScreenTimeFactor float64 `yaml:"screen_time_factor"`
	// TextScrollSpeed is characters per second, halved by the reveal.
	TextScrollSpeed    float64 `yaml:"text_scroll_speed"`
	SkipThresholdTime  float64 `yaml:"skip_threshold_time"`
	MinimumDisplayTime float64 `yaml:"minimum_display_time"`

	ScrollSubtitles bool `yaml:"scroll_subtitles"`
	ScrollNarration bool `yaml:"scroll_narration"`

	DisplayForever          bool `yaml:"display_forever"`
	DisplayNarrationForever bool `yaml:"display_narration_forever"`

	AllowSpeechSkipping         bool `yaml:"allow_speech_skipping"`
	AllowGameplaySpeechSkipping bool `yaml:"allow_gameplay_speech_skipping"`
	EndScrollBeforeSkip         bool `yaml:"end_scroll_before_skip"`
	ScrollingTextFactorsLength  bool `yaml:"scrolling_text_factors_length"`
	CanSkipWithMouseClicks      bool `yaml:"can_skip_with_mouse_clicks"`

	SearchAudioFiles bool `yaml:"search_audio_files"`
	FallbackAudio    bool `yaml:"fallback_audio"`

	PlayerSwitching   bool `yaml:"player_switching"`
	UsePlayerRealName bool `yaml:"use_player_real_name"`
}

// DefaultSettings mirrors a freshly created project.
func DefaultSettings() Settings {
	return Settings{
		ScreenTimeFactor:       0.1,
		TextScrollSpeed:        50,
		ScrollSubtitles:        true,
		AllowSpeechSkipping:    true,
		EndScrollBeforeSkip:    true,
		CanSkipWithMouseClicks: true,
		SearchAudioFiles:       true,
		FallbackAudio:          true,
	}
}

// Scrolls reports whether a line from (or without) a speaker is revealed
// progressively.
func (s Settings) Scrolls(narration bool) bool {
	if narration {
		return s.ScrollNarration
	}
	return s.ScrollSubtitles
}
