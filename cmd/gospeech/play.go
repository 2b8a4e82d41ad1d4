/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/gofont/goregular"

	"gospeech/internal/audio"
	"gospeech/internal/backend"
	"gospeech/internal/backlog"
	"gospeech/internal/cast"
	"gospeech/internal/dialog"
	applog "gospeech/internal/log"
	"gospeech/internal/script"
	"gospeech/internal/speech"
	"gospeech/internal/telemetry"
	"gospeech/internal/textlayout"
)

type playFlags struct {
	catalogFlags
	scene    string
	language string
	step     float64
	castFile string
	width    float64
	fontFile string
	auto     float64
	realtime bool
	remote   string
	token    string
	noLog    bool
	screen   string
}

func cmdPlay(ctx context.Context, env *appEnv, args []string) error {
	fs := newFlags("play", "[flags] <script>")
	var pf playFlags
	pf.register(fs, env)
	fs.StringVar(&pf.scene, "scene", "", "play only the scene with this title")
	fs.StringVar(&pf.language, "lang", "", "language code, the first configured language when empty")
	fs.Float64Var(&pf.step, "dt", 1.0/30, "simulated seconds per frame")
	fs.StringVar(&pf.castFile, "cast", "", "cast YAML file")
	fs.Float64Var(&pf.width, "width", 480, "subtitle box width in pixels, 0 disables wrapping")
	fs.StringVar(&pf.fontFile, "font", "", "TrueType font for measuring subtitles, Go Regular when empty")
	fs.Float64Var(&pf.auto, "auto", 1, "seconds before an automatic click releases a waiting line")
	fs.BoolVar(&pf.realtime, "realtime", false, "pace frames in wall-clock time")
	fs.StringVar(&pf.remote, "remote", "", "base URL of a catalog server for voice clips")
	fs.StringVar(&pf.token, "token", os.Getenv("GSP_API_TOKEN"), "bearer token for -remote")
	fs.BoolVar(&pf.noLog, "no-log", false, "do not persist spoken lines")
	fs.StringVar(&pf.screen, "screen", "640x360", "screen size used to place subtitle boxes")
	if err := fs.Parse(args); err != nil {
		return err
	}
	path, err := positional(fs)
	if err != nil {
		return err
	}
	s, err := loadScript(path)
	if err != nil {
		return err
	}
	scenes := s.Scenes
	if pf.scene != "" {
		sc, ok := s.Scene(pf.scene)
		if !ok {
			return fmt.Errorf("no scene titled %q", pf.scene)
		}
		scenes = []script.Scene{sc}
	}

	langs := env.cfg.LanguageSet()
	if pf.language == "" {
		if codes := langs.Codes(); len(codes) > 0 {
			pf.language = codes[0]
		}
	} else if !langs.Has(pf.language) {
		env.log.WarnContext(ctx, "language not configured, falling back to the first", slog.String("lang", pf.language))
	}

	troupe := cast.New(langs)
	if pf.castFile != "" {
		if troupe, err = cast.Load(pf.castFile, langs); err != nil {
			return err
		}
	}
	mixer := &audio.Mixer{}
	troupe.Register(mixer)
	narrator := mixer.Add(audio.NewSource("narrator"))

	resolver, store, closeAll, err := pf.openSources(ctx, env)
	if err != nil {
		return err
	}
	defer closeAll()

	bl := backlog.New(backlog.Config{MaxPerSpeaker: 200})
	env.crash.Backlog = bl
	counter := telemetry.NewSpeechCounter()
	input := dialog.NewAutoInput(env.cfg.Speech, pf.auto)
	sctx := speech.Context{
		Settings:      env.cfg.SpeechSettings(),
		Languages:     langs,
		Audio:         resolver,
		NarratorAudio: narrator,
		Events:        dialog.MultiSink{dialog.LogSink{Logger: applog.WithComponent("speech.events")}, counter},
		Input:         input,
		State:         input,
		EventKeys:     env.cfg.EventTokens,
	}
	opts := dialog.Options{Context: sctx, Mixer: mixer, Backlog: bl}
	if store != nil && !pf.noLog {
		opts.Store = store
	}
	player := dialog.NewPlayer(opts)

	pr := &printer{w: os.Stdout, boxes: map[*speech.Line]textlayout.Rect{}}
	if pf.width > 0 {
		if pr.sub, err = subtitler(pf.fontFile, float32(pf.width)); err != nil {
			return err
		}
		var sw, sh float32
		if _, err := fmt.Sscanf(pf.screen, "%gx%g", &sw, &sh); err != nil || sw <= 0 || sh <= 0 {
			return fmt.Errorf("bad -screen %q, want WxH", pf.screen)
		}
		pr.screen = textlayout.Rect{W: sw, H: sh}
	}
	runner := &dialog.Runner{
		Player:   player,
		Cast:     troupe,
		Language: pf.language,
		Step:     pf.step,
		Realtime: pf.realtime,
		OnFrame:  pr.frame,
	}
	for _, sc := range scenes {
		env.crash.Scene = sc.Title
		fmt.Printf("== %s ==\n", sceneTitle(sc))
		res, err := runner.Play(ctx, sc)
		if err != nil {
			return err
		}
		for _, f := range res.Failed {
			fmt.Fprintf(os.Stderr, "%s:%v\n", path, f)
		}
		fmt.Printf("-- %d lines in %.2fs, %d skipped, %d clicks\n", res.Played, res.Elapsed, len(res.Failed), input.Presses())
		counter.Report(env.telemetry, "scene_played")
	}
	return nil
}

// openSources picks the voice clip resolver (remote server, Postgres or the
// local catalog, in that order) and the local catalog for the speech log.
func (pf *playFlags) openSources(ctx context.Context, env *appEnv) (speech.AudioResolver, dialog.LogStore, func(), error) {
	var closers []io.Closer
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			_ = closers[i].Close()
		}
	}
	var resolver speech.AudioResolver
	var store dialog.LogStore
	if pf.hasLocal() {
		cat, err := pf.open(env)
		if err != nil {
			return nil, nil, closeAll, err
		}
		closers = append(closers, cat)
		resolver, store = cat, cat
	}
	switch {
	case pf.remote != "":
		cl := backend.NewClient(pf.remote, pf.token)
		if err := cl.Ping(ctx); err != nil {
			closeAll()
			return nil, nil, func() {}, fmt.Errorf("catalog server: %w", err)
		}
		resolver = cl
	case pf.pg != "":
		pg, err := pf.openPG(ctx, env)
		if err != nil {
			closeAll()
			return nil, nil, func() {}, err
		}
		closers = append(closers, pg)
		resolver = pg
	}
	return resolver, store, closeAll, nil
}

func subtitler(fontFile string, width float32) (*textlayout.Subtitler, error) {
	lib := textlayout.NewFontLibrary()
	if fontFile != "" {
		if err := lib.LoadTTF("Go", 400, false, fontFile); err != nil {
			return nil, err
		}
	} else {
		if err := lib.Load("Go", 400, false, goregular.TTF); err != nil {
			return nil, err
		}
		if err := lib.Load("Go", 400, true, goitalic.TTF); err != nil {
			return nil, err
		}
	}
	return textlayout.NewSubtitler(textlayout.OTProvider{Lib: lib}, width), nil
}

// printer writes each visible change of a line. With a subtitler it also
// wraps the text and places its box on the screen.
type printer struct {
	w      io.Writer
	sub    *textlayout.Subtitler
	screen textlayout.Rect
	boxes  map[*speech.Line]textlayout.Rect
}

func (p *printer) frame(f dialog.Frame) {
	who := f.Speaker
	if who == "" {
		who = "~"
	}
	var flags []string
	if f.Line.IsBackground() {
		flags = append(flags, "bg")
	}
	if f.Line.IsPaused() {
		flags = append(flags, "waiting")
	}
	if f.Line.ReadsRightToLeft() {
		flags = append(flags, "rtl")
	}
	head := fmt.Sprintf("%8.2fs %s", f.Time, who)
	if len(flags) > 0 {
		head += " (" + strings.Join(flags, ", ") + ")"
	}
	text := speech.StripRichText(f.Text)
	if p.sub == nil || text == "" {
		_, _ = fmt.Fprintf(p.w, "%s: %s\n", head, text)
		return
	}
	box, err := p.sub.WrapLine(f.Line)
	if err != nil {
		_, _ = fmt.Fprintf(p.w, "%s: %s\n", head, text)
		return
	}
	r := p.place(f.Line, box)
	_, _ = fmt.Fprintf(p.w, "%s @%.0f,%.0f:\n", head, r.X, r.Y)
	for _, l := range box.Strings() {
		_, _ = fmt.Fprintf(p.w, "          | %s\n", l)
	}
}

// place keeps a line's box where it was first put unless it grew.
func (p *printer) place(l *speech.Line, box textlayout.TextBox) textlayout.Rect {
	var taken []textlayout.Rect
	for other, r := range p.boxes {
		if !other.Alive() {
			delete(p.boxes, other)
			continue
		}
		if other != l {
			taken = append(taken, r)
		}
	}
	if r, ok := p.boxes[l]; ok && box.Width+16 <= r.W && box.Height+16 <= r.H {
		return r
	}
	r := textlayout.Place(p.screen, box.Width, box.Height, taken, textlayout.PlaceOptions{
		RTL: l.ReadsRightToLeft(),
		Top: l.IsBackground(),
	})
	p.boxes[l] = r
	return r
}
