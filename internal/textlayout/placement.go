/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package textlayout

import (
	"math"
	"sort"
)

// Rect is a box in screen pixels, origin top left.
type Rect struct{ X, Y, W, H float32 }

func (r Rect) intersects(o Rect) bool {
	return r.X < o.X+o.W && r.X+r.W > o.X && r.Y < o.Y+o.H && r.Y+r.H > o.Y
}

func (r Rect) overlap(o Rect) float32 {
	if !r.intersects(o) {
		return 0
	}
	w := min(r.X+r.W, o.X+o.W) - max(r.X, o.X)
	h := min(r.Y+r.H, o.Y+o.H) - max(r.Y, o.Y)
	return w * h
}

func (r Rect) center() (float32, float32) { return r.X + r.W/2, r.Y + r.H/2 }

// PlaceOptions controls subtitle placement. Zero values pick defaults.
type PlaceOptions struct {
	Padding float32 // around the text, 8 by default
	Margin  float32 // clearance from the screen edge, 8 by default
	Step    float32 // search grid in pixels, 8 by default
	RTL     bool    // scan right to left
	Top     bool    // prefer the top of the screen, as for background chatter
	// Anchor, when set, pulls the box toward a point such as the speaker's head.
	Anchor *[2]float32
}

// Place finds a spot for a subtitle box of the given content size that
// avoids the boxes already on screen. Rows are scanned from the preferred edge
// and the first free candidate wins; if none is free the least overlapping one
// is used. The result always lies inside the screen minus the margin.
func Place(screen Rect, contentW, contentH float32, taken []Rect, opt PlaceOptions) Rect {
	if opt.Padding <= 0 {
		opt.Padding = 8
	}
	if opt.Margin <= 0 {
		opt.Margin = 8
	}
	if opt.Step <= 0 {
		opt.Step = 8
	}
	inner := Rect{screen.X + opt.Margin, screen.Y + opt.Margin, screen.W - 2*opt.Margin, screen.H - 2*opt.Margin}
	w := min(max(0, contentW+2*opt.Padding), max(0, inner.W))
	h := min(max(0, contentH+2*opt.Padding), max(0, inner.H))
	xs := steps(inner.X, inner.X+inner.W-w, opt.Step, opt.RTL)
	ys := steps(inner.Y, inner.Y+inner.H-h, opt.Step, !opt.Top)

	candidates := make([]Rect, 0, len(xs)*len(ys))
	for _, y := range ys {
		for _, x := range xs {
			candidates = append(candidates, Rect{x, y, w, h})
		}
	}
	if a := opt.Anchor; a != nil {
		sort.SliceStable(candidates, func(i, j int) bool {
			return dist(candidates[i], a) < dist(candidates[j], a)
		})
	}

	best, bestCost := candidates[0], float32(math.MaxFloat32)
	for i, c := range candidates {
		var cost float32
		for _, t := range taken {
			cost += c.overlap(t)
		}
		if cost == 0 {
			return c
		}
		// Earlier candidates are preferred on ties.
		cost = cost*10_000 + float32(i)*0.001
		if cost < bestCost {
			best, bestCost = c, cost
		}
	}
	return best
}

// steps lists grid positions from lo to hi inclusive, or hi to lo when reverse.
func steps(lo, hi, step float32, reverse bool) []float32 {
	if hi < lo {
		hi = lo
	}
	var out []float32
	for v := lo; ; v += step {
		if v > hi {
			v = hi
		}
		out = append(out, v)
		if v == hi {
			break
		}
	}
	if reverse {
		for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
			out[i], out[j] = out[j], out[i]
		}
	}
	return out
}

func dist(r Rect, a *[2]float32) float32 {
	cx, cy := r.center()
	return float32(math.Hypot(float64(cx-a[0]), float64(cy-a[1])))
}
