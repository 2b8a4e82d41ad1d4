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
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"gospeech/internal/config"
	"gospeech/internal/crash"
	applog "gospeech/internal/log"
	"gospeech/internal/telemetry"
	"gospeech/internal/version"
)

func usage() {
	fmt.Println("GoSpeech: speech line engine")
	fmt.Printf("Version: %s\n", version.String())
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  gospeech version|-v|--version               Show version")
	fmt.Println("  gospeech parse <script>                      Check a script and list its scenes")
	fmt.Println("  gospeech play [flags] <script>               Play scenes and print what would be shown")
	fmt.Println("  gospeech export [flags] <script>             Write recording or reading sheets")
	fmt.Println("  gospeech import [flags] <catalog.json>       Load lines and clips into the local catalog")
	fmt.Println("  gospeech dump [flags]                        Print the local catalog as JSON")
	fmt.Println("  gospeech mirror [flags]                      Publish the local catalog to Postgres")
	fmt.Println("  gospeech log [flags]                         Show or clear the persisted speech log")
	fmt.Println("  gospeech serve [flags]                       Serve the catalog over HTTP")
	fmt.Println()
	fmt.Println("Run a command with -h for its flags.")
}

// errUsage makes run exit with status 2.
var errUsage = errors.New("usage")

type command func(ctx context.Context, env *appEnv, args []string) error

var commands = map[string]command{
	"parse":  cmdParse,
	"play":   cmdPlay,
	"export": cmdExport,
	"import": cmdImport,
	"dump":   cmdDump,
	"mirror": cmdMirror,
	"log":    cmdLog,
	"serve":  cmdServe,
}

// appEnv is what every command shares.
type appEnv struct {
	cfg        config.AppConfig
	pgPassword string
	log        *slog.Logger
	crash      *crash.State
	telemetry  *telemetry.Client
}

func main() { os.Exit(run(os.Args[1:])) }

func run(args []string) int {
	cfg, pw, cfgErr := config.Load()
	applog.Init(applog.Options{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		AddSource: cfg.Logging.Source,
		File:      cfg.Logging.File,
	})
	defer func() { _ = applog.Close() }()
	l := applog.WithComponent("cli")
	if cfgErr != nil {
		l.Warn("config not loaded, using defaults", slog.Any("err", cfgErr))
	}

	tc := telemetry.New(telemetry.FromAppConfig(cfg.Telemetry))
	telemetry.SetDefault(tc)
	defer tc.Close()

	env := &appEnv{cfg: cfg, pgPassword: pw, log: l, crash: &crash.State{Root: cfg.Catalog.Root}, telemetry: tc}
	defer crash.Recover(env.crash)

	if len(args) == 0 {
		usage()
		return 2
	}
	name := args[0]
	switch name {
	case "version", "--version", "-v":
		fmt.Println(version.String())
		return 0
	case "help", "-h", "--help":
		usage()
		return 0
	}
	cmd, ok := commands[name]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown command %q\n", name)
		usage()
		return 2
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = applog.ContextWith(ctx, slog.String("cmd", name))
	l.DebugContext(ctx, "start", slog.Int("args", len(args)-1))

	err := cmd(ctx, env, args[1:])
	tc.Flush(ctx)
	switch {
	case err == nil:
		return 0
	case errors.Is(err, flag.ErrHelp):
		return 0
	case errors.Is(err, errUsage):
		return 2
	case errors.Is(err, context.Canceled):
		l.Info("interrupted")
		return 130
	default:
		l.ErrorContext(ctx, "command failed", slog.Any("err", err))
		fmt.Fprintln(os.Stderr, "Error:", err)
		return 1
	}
}

// newFlags returns a flag set whose usage line names the command.
func newFlags(name, synopsis string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: gospeech %s %s\n", name, synopsis)
		fs.PrintDefaults()
	}
	return fs
}

// positional returns the single positional argument or errUsage.
func positional(fs *flag.FlagSet) (string, error) {
	if fs.NArg() != 1 || strings.TrimSpace(fs.Arg(0)) == "" {
		fs.Usage()
		return "", errUsage
	}
	return fs.Arg(0), nil
}
