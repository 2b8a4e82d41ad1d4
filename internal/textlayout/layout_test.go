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
	"testing"

	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/gofont/goregular"
)

func TestWordWrapBreaksOnSpaces(t *testing.T) {
	l := NewWordWrap(BasicProvider{})
	// Face7x13 advances 7px per glyph.
	box, err := l.Layout([]Span{{Text: "Hello world from Go"}}, 50)
	if err != nil {
		t.Fatalf("layout: %v", err)
	}
	got := box.Strings()
	want := []string{"Hello", "world", "from Go"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("line %d: expected %q, got %q", i, want[i], got[i])
		}
	}
	if box.Width > 50 {
		t.Fatalf("box wider than max: %v", box.Width)
	}
}

func TestWordWrapKeepsShortTextOnOneLine(t *testing.T) {
	box, _ := NewWordWrap(nil).Layout([]Span{{Text: "Hi there"}}, 0)
	if len(box.Lines) != 1 || box.Strings()[0] != "Hi there" {
		t.Fatalf("unexpected lines %v", box.Strings())
	}
	if box.Width != 56 {
		t.Fatalf("expected width 56, got %v", box.Width)
	}
}

func TestWordWrapHardNewlinesAndLongWords(t *testing.T) {
	box, _ := NewWordWrap(BasicProvider{}).Layout([]Span{{Text: "ab\nabcdefghij"}}, 28)
	got := box.Strings()
	// "abcdefghij" is 70px and splits into 4-rune pieces.
	want := []string{"ab", "abcd", "efgh", "ij"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("line %d: expected %q, got %q", i, want[i], got[i])
		}
	}
}

func TestWordWrapEmptyTextHasOneLine(t *testing.T) {
	box, _ := NewWordWrap(BasicProvider{}).Layout(nil, 100)
	if len(box.Lines) != 1 || box.Height <= 0 {
		t.Fatalf("expected one empty line, got %+v", box)
	}
}

func TestTrackingIncreasesWidth(t *testing.T) {
	w0, _ := Measure(BasicProvider{}, []Span{{Text: "ABCD"}})
	w1, _ := Measure(BasicProvider{}, []Span{{Text: "ABCD", Tracking: 1}})
	if w1 != w0+3 {
		t.Fatalf("expected tracking to add 3px: w0=%v w1=%v", w0, w1)
	}
}

func TestLeadingIncreasesHeight(t *testing.T) {
	l := NewWordWrap(BasicProvider{})
	b0, _ := l.Layout([]Span{{Text: "Hello world from Go"}}, 50)
	b1, _ := l.Layout([]Span{{Text: "Hello world from Go", Leading: 4}}, 50)
	if b1.Height != b0.Height+12 {
		t.Fatalf("expected 4px leading on 3 lines: h0=%v h1=%v", b0.Height, b1.Height)
	}
}

func TestOTProviderFallback(t *testing.T) {
	otp := OTProvider{Lib: NewFontLibrary()}
	w, h := Measure(otp, []Span{{Text: "Hello", Font: FontSpec{Family: "Nonexistent", SizePt: 12}}})
	if w != 35 || h <= 0 {
		t.Fatalf("expected basic face fallback: w=%v h=%v", w, h)
	}
}

func TestOTProviderLoadedFont(t *testing.T) {
	lib := NewFontLibrary()
	if err := lib.Load("Go", 400, false, goregular.TTF); err != nil {
		t.Fatalf("load regular: %v", err)
	}
	if err := lib.Load("Go", 400, true, goitalic.TTF); err != nil {
		t.Fatalf("load italic: %v", err)
	}
	if err := lib.Load("Broken", 400, false, []byte("nope")); err == nil {
		t.Fatalf("expected parse error")
	}
	otp := OTProvider{Lib: lib}
	small, _ := Measure(otp, []Span{{Text: "Hello", Font: FontSpec{Family: "go", SizePt: 12}}})
	big, _ := Measure(otp, []Span{{Text: "Hello", Font: FontSpec{Family: "Go", SizePt: 24}}})
	if small <= 0 || big <= small {
		t.Fatalf("expected larger size to be wider: small=%v big=%v", small, big)
	}
	// Unknown weight falls back to the closest loaded one.
	bold, _ := Measure(otp, []Span{{Text: "Hello", Font: FontSpec{Family: "Go", SizePt: 12, Weight: 700}}})
	if bold != small {
		t.Fatalf("expected closest weight match: %v vs %v", bold, small)
	}
	if len(lib.Families()) != 1 {
		t.Fatalf("expected one family, got %v", lib.Families())
	}
}

func TestStyleSheetResolution(t *testing.T) {
	for _, n := range ListStyles() {
		if _, ok := GetStyle(n); !ok {
			t.Fatalf("builtin %s missing", n)
		}
	}
	ss := NewStyleSheet()
	ss.Speaker["Ann"] = TextStyle{Name: "Ann", Font: FontSpec{SizePt: 20}}
	st, _ := ss.Resolve("Ann", StyleSubtitle)
	if st.Name != "Ann" {
		t.Fatalf("speaker override not applied: %+v", st)
	}
	st, _ = ss.Resolve("Bob", StyleNameFor(false, true))
	if st.Name != StyleBackground {
		t.Fatalf("expected background style, got %+v", st)
	}
	if StyleNameFor(true, false) != StyleNarration || StyleNameFor(false, false) != StyleSubtitle {
		t.Fatalf("unexpected style names")
	}
	var nilSheet *StyleSheet
	if _, ok := nilSheet.Resolve("x", StyleSubtitle); !ok {
		t.Fatalf("nil sheet should fall back to builtins")
	}
}

func TestWrapSubtitleStripsRichText(t *testing.T) {
	got := WrapSubtitle("<b>Hello</b> <color=red>world</color>", 50)
	if len(got) != 2 || got[0] != "Hello" || got[1] != "world" {
		t.Fatalf("unexpected wrap %v", got)
	}
}
