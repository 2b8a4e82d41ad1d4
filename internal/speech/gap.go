/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package speech

// GapKind discriminates the variants of a Gap.
type GapKind int

const (
	// GapTimedWait pauses the reveal for Duration seconds.
	GapTimedWait GapKind = iota
	// GapIndefiniteWait pauses the reveal until released by input.
	GapIndefiniteWait
	// GapExpression changes the speaker's expression without pausing.
	GapExpression
	// GapEvent fires a custom token event without pausing.
	GapEvent
)

func (k GapKind) String() string {
	switch k {
	case GapTimedWait:
		return "TimedWait"
	case GapIndefiniteWait:
		return "IndefiniteWait"
	case GapExpression:
		return "Expression"
	case GapEvent:
		return "CustomEvent"
	default:
		return "Unknown"
	}
}

// Gap is a positional marker inside a line's display text.
// Index is a rune offset into the token-free text. Only the fields that
// belong to Kind carry meaning:
//
//	GapTimedWait      Duration
//	GapIndefiniteWait -
//	GapExpression     Expression, ExpressionID (-1 until resolved by a speaker)
//	GapEvent          Key, Value
type Gap struct {
	Kind  GapKind
	Index int

	Duration float64

	Expression   string
	ExpressionID int

	Key   string
	Value string
}

// TimedWait returns a gap pausing for d seconds at index.
func TimedWait(index int, d float64) Gap {
	return Gap{Kind: GapTimedWait, Index: index, Duration: d}
}

// IndefiniteWait returns a gap pausing until externally released.
func IndefiniteWait(index int) Gap { return Gap{Kind: GapIndefiniteWait, Index: index} }

// ExpressionChange returns a gap switching the speaker to the named expression.
func ExpressionChange(index int, name string) Gap {
	return Gap{Kind: GapExpression, Index: index, Expression: name, ExpressionID: -1}
}

// CustomEvent returns a gap firing a registered token event.
func CustomEvent(index int, key, value string) Gap {
	return Gap{Kind: GapEvent, Index: index, Key: key, Value: value}
}

// Pauses reports whether reaching the gap suspends the reveal.
func (g Gap) Pauses() bool { return g.Kind == GapTimedWait || g.Kind == GapIndefiniteWait }
