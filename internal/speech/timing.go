/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package speech

import "math"

const (
	audioScreenTime    = 5.0
	minDisplayDuration = 0.1
)

// DisplayDuration returns the screen time of a line once it is fully revealed.
// Voiced lines and scrolling lines that don't factor their length get a flat
// five characters' worth; everything else pays per visible rune, minus the
// seconds already spent in timed waits.
func DisplayDuration(s Settings, text string, gaps []Gap, hasAudio, scrolls bool) float64 {
	var d float64
	switch {
	case hasAudio:
		d = s.ScreenTimeFactor * audioScreenTime
	case !scrolls || s.ScrollingTextFactorsLength:
		length := float64(VisibleLength(text)) - totalWait(gaps)
		d = s.ScreenTimeFactor * math.Max(minDisplayDuration, length)
	default:
		d = s.ScreenTimeFactor * audioScreenTime
	}
	return math.Max(d, minDisplayDuration)
}

func totalWait(gaps []Gap) float64 {
	var sum float64
	for _, g := range gaps {
		if g.Kind == GapTimedWait && g.Duration > 0 {
			sum += g.Duration
		}
	}
	return sum
}
