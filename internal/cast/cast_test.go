/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package cast

import (
	"os"
	"path/filepath"
	"testing"

	"gospeech/internal/audio"
	"gospeech/internal/lang"
	"gospeech/internal/speech"
)

const sample = `characters:
  - name: Guybrush
    player: true
    display_names: {de: Gaibrasch}
    expressions: [happy, Sad]
    lip_sync: true
    portrait: {texture: guy.png, frame_width: 32, frame_height: 48, frames: 4, fps: 8}
  - name: Elaine
`

func TestParseCast(t *testing.T) {
	langs := lang.FromCodes("en", "de")
	c, err := Parse([]byte(sample), langs)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	g, ok := c.Get("guybrush")
	if !ok || !g.IsPlayer() {
		t.Fatalf("player not found")
	}
	if g.DisplayName(1) != "Gaibrasch" || g.DisplayName(0) != "Guybrush" {
		t.Fatalf("display names wrong: %q %q", g.DisplayName(1), g.DisplayName(0))
	}
	if g.ExpressionID("sad") != 1 || g.ExpressionID("angry") != -1 {
		t.Fatalf("expression lookup wrong")
	}
	if p := g.Portrait(); p == nil || p.Frames != 4 || p.FrameWidth != 32 {
		t.Fatalf("portrait not loaded: %+v", p)
	}
	if p, ok := c.Player(); !ok || p != g {
		t.Fatalf("Player() mismatch")
	}
	if len(c.Characters()) != 2 {
		t.Fatalf("expected 2 characters")
	}
	var _ speech.Speaker = g
}

func TestParseCastErrors(t *testing.T) {
	if _, err := Parse([]byte("characters:\n  - name: ''\n"), nil); err == nil {
		t.Fatalf("expected error for nameless character")
	}
	if _, err := Parse([]byte("characters:\n  - name: A\n  - name: a\n"), nil); err == nil {
		t.Fatalf("expected error for duplicate")
	}
	if _, err := Parse([]byte("characters:\n  - {name: A, player: true}\n  - {name: B, player: true}\n"), nil); err == nil {
		t.Fatalf("expected error for two players")
	}
}

func TestLoadAndEnsure(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cast.yaml")
	if err := os.WriteFile(path, []byte(sample), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	c, err := Load(path, nil)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	stan := c.Ensure("Stan")
	if again := c.Ensure("STAN"); again != stan {
		t.Fatalf("Ensure should reuse the character")
	}
	if _, err := Load(filepath.Join(t.TempDir(), "none.yaml"), nil); err == nil {
		t.Fatalf("expected missing file error")
	}
}

func TestExpressionsAndLipSync(t *testing.T) {
	c, _ := Parse([]byte(sample), nil)
	g, _ := c.Get("Guybrush")
	g.SetExpression(g.ExpressionID("happy"))
	if g.Expression() != "happy" {
		t.Fatalf("expression not set")
	}
	g.SetExpression(99)
	if g.Expression() != "happy" {
		t.Fatalf("invalid id must be ignored")
	}
	g.ClearExpression()
	if g.Expression() != "" {
		t.Fatalf("expression not cleared")
	}

	var m audio.Mixer
	c.Register(&m)
	g.StartSpeaking(speech.SpeakingCue{Animate: true})
	if _, ok := g.LipSyncFrame(); ok {
		t.Fatalf("no lip sync without voice")
	}
	g.Voice().Play(speech.Clip{Path: "g.ogg", Duration: 2})
	m.Advance(0.5)
	if f, ok := g.LipSyncFrame(); !ok || f != 6 {
		t.Fatalf("expected lip sync frame 6, got %d %v", f, ok)
	}
	g.StopSpeaking()
	if g.Talking() {
		t.Fatalf("still talking")
	}
}
