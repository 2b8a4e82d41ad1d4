/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package cast loads the characters that speak lines from a YAML cast file.
package cast

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"gospeech/internal/audio"
	"gospeech/internal/lang"
	"gospeech/internal/speech"
)

// lipSyncFPS is the mouth-shape rate derived from the voice clip position.
const lipSyncFPS = 12.0

type portraitFile struct {
	Texture     string  `yaml:"texture"`
	FrameWidth  float64 `yaml:"frame_width"`
	FrameHeight float64 `yaml:"frame_height"`
	Frames      int     `yaml:"frames"`
	FPS         float64 `yaml:"fps"`
}

type characterFile struct {
	Name         string            `yaml:"name"`
	DisplayNames map[string]string `yaml:"display_names"`
	Player       bool              `yaml:"player"`
	Expressions  []string          `yaml:"expressions"`
	Portrait     *portraitFile     `yaml:"portrait"`
	LipSync      bool              `yaml:"lip_sync"`
}

type castFile struct {
	Characters []characterFile `yaml:"characters"`
}

// Character is a speaker with its own voice channel.
type Character struct {
	name         string
	displayNames map[string]string
	player       bool
	expressions  []string
	expression   int
	portrait     *speech.Portrait
	lipSync      bool
	talking      bool
	animate      bool
	voice        *audio.Source
	langs        *lang.Set
}

// NewCharacter returns a plain character with no expressions or portrait.
func NewCharacter(name string, langs *lang.Set) *Character {
	if langs == nil {
		langs = lang.New(nil)
	}
	return &Character{name: name, expression: -1, voice: audio.NewSource(name), langs: langs}
}

func (c *Character) Name() string { return c.name }

// DisplayName returns the translated name for a language index, or the
// plain name when no translation exists.
func (c *Character) DisplayName(language int) string {
	codes := c.langs.Codes()
	if language > 0 && language < len(codes) {
		if n, ok := c.displayNames[codes[language]]; ok && n != "" {
			return n
		}
	}
	return c.name
}

func (c *Character) IsPlayer() bool { return c.player }

func (c *Character) ExpressionID(name string) int {
	for i, e := range c.expressions {
		if strings.EqualFold(e, name) {
			return i
		}
	}
	return -1
}

func (c *Character) SetExpression(id int) {
	if id >= 0 && id < len(c.expressions) {
		c.expression = id
	}
}

func (c *Character) ClearExpression() { c.expression = -1 }

// Expression returns the current expression label, "" for the neutral face.
func (c *Character) Expression() string {
	if c.expression < 0 {
		return ""
	}
	return c.expressions[c.expression]
}

func (c *Character) StartSpeaking(cue speech.SpeakingCue) {
	c.talking = true
	c.animate = cue.Animate
}

func (c *Character) StopSpeaking() { c.talking = false }

// Talking reports whether a line of this character is on screen.
func (c *Character) Talking() bool { return c.talking }

// LipSyncFrame follows the voice clip while it plays.
func (c *Character) LipSyncFrame() (int, bool) {
	if !c.lipSync || !c.animate || c.portrait == nil || !c.voice.IsPlaying() {
		return 0, false
	}
	_, pos := c.voice.Clip()
	return int(pos * lipSyncFPS), true
}

func (c *Character) Portrait() *speech.Portrait { return c.portrait }

func (c *Character) SpeechAudio() speech.AudioSource {
	if c.voice == nil {
		return nil
	}
	return c.voice
}

// Voice returns the character's audio channel.
func (c *Character) Voice() *audio.Source { return c.voice }

// Cast is the set of known characters, looked up case-insensitively.
type Cast struct {
	byName map[string]*Character
	order  []*Character
	langs  *lang.Set
}

// New returns an empty cast.
func New(langs *lang.Set) *Cast {
	if langs == nil {
		langs = lang.New(nil)
	}
	return &Cast{byName: map[string]*Character{}, langs: langs}
}

// Load reads a cast file.
func Load(path string, langs *lang.Set) (*Cast, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read cast %s: %w", path, err)
	}
	c, err := Parse(data, langs)
	if err != nil {
		return nil, fmt.Errorf("cast %s: %w", path, err)
	}
	return c, nil
}

// Parse decodes cast YAML.
func Parse(data []byte, langs *lang.Set) (*Cast, error) {
	var f castFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, err
	}
	c := New(langs)
	players := 0
	for i, cf := range f.Characters {
		name := strings.TrimSpace(cf.Name)
		if name == "" {
			return nil, fmt.Errorf("character %d has no name", i+1)
		}
		if _, dup := c.byName[strings.ToLower(name)]; dup {
			return nil, fmt.Errorf("duplicate character %q", name)
		}
		ch := NewCharacter(name, c.langs)
		ch.player = cf.Player
		ch.expressions = cf.Expressions
		ch.lipSync = cf.LipSync
		ch.displayNames = map[string]string{}
		for code, n := range cf.DisplayNames {
			ch.displayNames[lang.Canonical(code)] = n
		}
		if p := cf.Portrait; p != nil {
			ch.portrait = &speech.Portrait{Texture: p.Texture, FrameWidth: p.FrameWidth, FrameHeight: p.FrameHeight, Frames: p.Frames, FPS: p.FPS}
		}
		if cf.Player {
			players++
		}
		c.add(ch)
	}
	if players > 1 {
		return nil, errors.New("more than one player character")
	}
	return c, nil
}

func (c *Cast) add(ch *Character) {
	c.byName[strings.ToLower(ch.name)] = ch
	c.order = append(c.order, ch)
}

// Get looks a character up by name.
func (c *Cast) Get(name string) (*Character, bool) {
	ch, ok := c.byName[strings.ToLower(strings.TrimSpace(name))]
	return ch, ok
}

// Ensure returns the named character, adding a plain one if unknown.
func (c *Cast) Ensure(name string) *Character {
	if ch, ok := c.Get(name); ok {
		return ch
	}
	ch := NewCharacter(strings.TrimSpace(name), c.langs)
	c.add(ch)
	return ch
}

// Player returns the player character, if any.
func (c *Cast) Player() (*Character, bool) {
	for _, ch := range c.order {
		if ch.player {
			return ch, true
		}
	}
	return nil, false
}

// Characters lists the cast in file order.
func (c *Cast) Characters() []*Character { return append([]*Character(nil), c.order...) }

// Register adds every character's voice to m.
func (c *Cast) Register(m *audio.Mixer) {
	for _, ch := range c.order {
		m.Add(ch.voice)
	}
}
