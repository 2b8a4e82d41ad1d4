/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package speech

import "strings"

// BackgroundFilter selects lines by whether they block gameplay.
type BackgroundFilter int

const (
	FilterAll BackgroundFilter = iota
	FilterBlockingOnly
	FilterBackgroundOnly
)

// SpeakerFilter selects lines by who speaks them.
type SpeakerFilter int

const (
	SpeakersAll SpeakerFilter = iota
	SpeakersCharactersOnly
	SpeakersNarrationOnly
	SpeakersSpecific
	SpeakersAllExcept
)

// MatchesFilter reports whether the line passes both filters. names are
// compared case-insensitively against the speaker's name; "Player" matches
// whichever character is the player.
func (l *Line) MatchesFilter(bg BackgroundFilter, who SpeakerFilter, names []string) bool {
	switch bg {
	case FilterBlockingOnly:
		if l.background {
			return false
		}
	case FilterBackgroundOnly:
		if !l.background {
			return false
		}
	}

	switch who {
	case SpeakersCharactersOnly:
		return l.speaker != nil
	case SpeakersNarrationOnly:
		return l.speaker == nil
	case SpeakersSpecific:
		return l.speaker != nil && l.namedIn(names)
	case SpeakersAllExcept:
		return l.speaker == nil || !l.namedIn(names)
	}
	return true
}

func (l *Line) namedIn(names []string) bool {
	for _, n := range names {
		n = strings.TrimSpace(n)
		if strings.EqualFold(n, playerName) && l.speaker.IsPlayer() {
			return true
		}
		if strings.EqualFold(n, l.speaker.Name()) {
			return true
		}
	}
	return false
}
