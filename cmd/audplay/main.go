// SPDX-License-Identifier: EPL-2.0

// Command audplay plays and converts AAC, MP4, Ogg Vorbis and MP3 files.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/rs/zerolog/log"

	"github.com/ik5/audplay/config"
)

// version is set via ldflags at build time
var version = "dev"

var CLI struct {
	config.Config `embed:""`

	Version kong.VersionFlag `help:"Show version information."`

	Play    playCmd    `cmd:"" help:"Play files one after another."`
	Info    infoCmd    `cmd:"" help:"Show the tags and length of a file."`
	Probe   probeCmd   `cmd:"" help:"Report which backend claims each file."`
	Convert convertCmd `cmd:"" help:"Decode a file into a WAV file."`
}

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name("audplay"),
		kong.Description("Play AAC, MP4, Ogg Vorbis and MP3 files and streams."),
		kong.Vars{"version": version},
		kong.UsageOnError(),
	)

	cfg := CLI.Config
	ctx.FatalIfErrorf(cfg.Validate())

	log.Logger = cfg.Logger(os.Stderr)

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := ctx.Run(newApp(sigCtx, cfg, log.Logger))
	stop()
	ctx.FatalIfErrorf(err)
}
