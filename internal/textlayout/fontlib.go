/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package textlayout

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/opentype"
)

// FontLibrary stores parsed OpenType fonts by family, weight and italic flag.
// Faces are cached per size. Safe for concurrent use.
type FontLibrary struct {
	mu    sync.Mutex
	fonts map[fontKey]*opentype.Font
	faces map[faceKey]font.Face
}

type fontKey struct {
	family string
	weight int
	italic bool
}

type faceKey struct {
	fontKey
	size float32
	dpi  float64
}

func NewFontLibrary() *FontLibrary {
	return &FontLibrary{fonts: map[fontKey]*opentype.Font{}, faces: map[faceKey]font.Face{}}
}

// LoadTTF reads a font file into the library.
func (fl *FontLibrary) LoadTTF(family string, weight int, italic bool, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read font %s: %w", path, err)
	}
	if err := fl.Load(family, weight, italic, data); err != nil {
		return fmt.Errorf("font %s: %w", path, err)
	}
	return nil
}

// Load parses font data into the library.
func (fl *FontLibrary) Load(family string, weight int, italic bool, data []byte) error {
	f, err := opentype.Parse(data)
	if err != nil {
		return fmt.Errorf("parse font: %w", err)
	}
	fl.mu.Lock()
	defer fl.mu.Unlock()
	if fl.fonts == nil {
		fl.fonts = map[fontKey]*opentype.Font{}
		fl.faces = map[faceKey]font.Face{}
	}
	k := fontKey{family: strings.ToLower(family), weight: weight, italic: italic}
	fl.fonts[k] = f
	for fk := range fl.faces {
		if fk.fontKey == k {
			delete(fl.faces, fk)
		}
	}
	return nil
}

// Families lists loaded family names.
func (fl *FontLibrary) Families() []string {
	fl.mu.Lock()
	defer fl.mu.Unlock()
	seen := map[string]bool{}
	var out []string
	for k := range fl.fonts {
		if !seen[k.family] {
			seen[k.family] = true
			out = append(out, k.family)
		}
	}
	return out
}

func (fl *FontLibrary) face(spec FontSpec, dpi float64) (font.Face, bool) {
	if fl == nil {
		return nil, false
	}
	fl.mu.Lock()
	defer fl.mu.Unlock()
	want := fontKey{family: strings.ToLower(spec.Family), weight: spec.Weight, italic: spec.Italic}
	key, f := want, fl.fonts[want]
	if f == nil {
		// Same family, closest weight, italic preferred to match.
		best := -1
		for k, cand := range fl.fonts {
			if k.family != want.family {
				continue
			}
			score := abs(k.weight - want.weight)
			if k.italic != want.italic {
				score += 1000
			}
			if best < 0 || score < best {
				best, key, f = score, k, cand
			}
		}
	}
	if f == nil {
		return nil, false
	}
	fk := faceKey{fontKey: key, size: spec.SizePt, dpi: dpi}
	if face, ok := fl.faces[fk]; ok {
		return face, true
	}
	face, err := opentype.NewFace(f, &opentype.FaceOptions{Size: float64(spec.SizePt), DPI: dpi, Hinting: font.HintingFull})
	if err != nil {
		return nil, false
	}
	fl.faces[fk] = face
	return face, true
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// OTProvider resolves FontSpec using a FontLibrary and falls back to another Provider.
// Kerning comes from opentype.Face through font.Drawer.
type OTProvider struct {
	Lib      *FontLibrary
	DPI      float64 // default 72 if zero
	Fallback Provider
}

func (p OTProvider) Resolve(spec FontSpec) (font.Face, Metrics) {
	if spec.SizePt <= 0 {
		spec.SizePt = 12
	}
	dpi := p.DPI
	if dpi <= 0 {
		dpi = 72
	}
	if face, ok := p.Lib.face(spec, dpi); ok {
		return face, faceMetrics(face)
	}
	fb := p.Fallback
	if fb == nil {
		fb = BasicProvider{}
	}
	return fb.Resolve(spec)
}
