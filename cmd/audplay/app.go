// SPDX-License-Identifier: EPL-2.0

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/ik5/audplay"
	"github.com/ik5/audplay/audio"
	"github.com/ik5/audplay/config"
	"github.com/ik5/audplay/formats/wav"
	"github.com/ik5/audplay/output"
	"github.com/ik5/audplay/player"
	"github.com/ik5/audplay/vfs"
)

// app is bound into every command's Run.
type app struct {
	ctx context.Context
	cfg config.Config
	log zerolog.Logger
	reg *audio.Registry
	out io.Writer

	// positionEvery is the period of the position log line while playing.
	positionEvery time.Duration
}

func newApp(ctx context.Context, cfg config.Config, l zerolog.Logger) *app {
	return &app{
		ctx:           ctx,
		cfg:           cfg,
		log:           l,
		reg:           audplay.DefaultRegistry(l),
		out:           os.Stdout,
		positionEvery: time.Second,
	}
}

func (a *app) player(newSink func() output.Sink) *player.Player {
	l := a.log

	return player.New(player.Options{
		Registry:      a.reg,
		NewSink:       newSink,
		Logger:        &l,
		DrainInterval: a.cfg.DrainInterval,
		GainMode:      a.cfg.GainMode(),
		Preamp:        a.cfg.Preamp,
	})
}

// sinks returns a sink factory for the configured output. With wav output
// the n-th session writes to its own numbered file.
func (a *app) sinks() func() output.Sink {
	n := 0

	return func() output.Sink {
		defer func() { n++ }()

		switch a.cfg.Output {
		case config.OutputWAV:
			return &wav.Sink{Path: itemPath(a.cfg.WavPath, n), Log: a.log}
		default:
			return &output.Device{
				Rate:     a.cfg.Rate,
				Channels: a.cfg.Channels,
				Buffer:   a.cfg.Buffer,
				Log:      a.log,
			}
		}
	}
}

// itemPath is path for the first item and "NN-name" next to it after that.
func itemPath(path string, n int) string {
	if n == 0 {
		return path
	}

	dir, base := filepath.Split(path)

	return filepath.Join(dir, fmt.Sprintf("%02d-%s", n+1, base))
}

// wait blocks until the session of p ends or the command is interrupted.
// It reports false on interrupt.
func (a *app) wait(p *player.Player, name string) bool {
	ticker := time.NewTicker(a.positionEvery)
	defer ticker.Stop()

	for {
		select {
		case <-p.Done():
			return true
		case <-a.ctx.Done():
			a.log.Info().Str("file", name).Msg("interrupted")
			p.Stop()

			return false
		case <-ticker.C:
			if pos := p.Position(); pos != player.NotPlaying {
				a.log.Debug().Str("file", name).Dur("position", pos).Msg("playing")
			}
		}
	}
}

func formatDuration(d time.Duration) string {
	if d < 0 {
		return "unknown"
	}

	return d.Round(time.Millisecond).String()
}

type playCmd struct {
	Start time.Duration `help:"Seek to this position at the start of every file." default:"0s"`
	Paths []string      `arg:"" name:"path" help:"Files or URLs to play."`
}

func (c *playCmd) Run(a *app) error {
	p := a.player(a.sinks())

	var failed []string
	for _, name := range c.Paths {
		if err := p.Play(name); err != nil {
			return err
		}

		if c.Start > 0 {
			p.Seek(c.Start)
		}

		if !a.wait(p, name) {
			return nil
		}

		if err := p.Err(); err != nil {
			a.log.Error().Err(err).Str("file", name).Msg("playback failed")
			failed = append(failed, name)

			continue
		}

		info := p.Info()
		a.log.Info().
			Str("file", name).
			Str("title", info.Title).
			Str("duration", formatDuration(info.Duration)).
			Bool("eof", p.EOF()).
			Msg("finished")
	}

	if len(failed) > 0 {
		return fmt.Errorf("%d of %d files failed: %s", len(failed), len(c.Paths), strings.Join(failed, ", "))
	}

	return nil
}

type infoCmd struct {
	Path string `arg:"" name:"path" help:"File or URL to inspect."`
}

func (c *infoCmd) Run(a *app) error {
	md, err := a.player(nil).Metadata(c.Path)
	if err != nil {
		return err
	}

	rows := []struct {
		name, value string
	}{
		{"Title", md.Title},
		{"Artist", md.Artist},
		{"Album", md.Album},
		{"Date", md.Date},
		{"Genre", md.Genre},
		{"Comment", md.Comment},
		{"Codec", md.Codec},
		{"Duration", formatDuration(md.Duration)},
	}
	if md.Track > 0 {
		rows = append(rows, struct{ name, value string }{"Track", strconv.Itoa(md.Track)})
	}
	if md.Bitrate > 0 {
		rows = append(rows, struct{ name, value string }{"Bitrate", fmt.Sprintf("%d kbps", md.Bitrate/1000)})
	}
	if md.SampleRate > 0 {
		rows = append(rows, struct{ name, value string }{"Sample rate", fmt.Sprintf("%d Hz", md.SampleRate)})
	}
	if md.Channels > 0 {
		rows = append(rows, struct{ name, value string }{"Channels", strconv.Itoa(md.Channels)})
	}

	for _, r := range rows {
		if r.value == "" {
			continue
		}
		fmt.Fprintf(a.out, "%-12s %s\n", r.name+":", r.value)
	}

	return nil
}

type probeCmd struct {
	Paths []string `arg:"" name:"path" help:"Files or URLs to probe."`
}

// probeWorkers bounds the files probed at once.
const probeWorkers = 4

func (c *probeCmd) Run(a *app) error {
	results := make([]string, len(c.Paths))

	g, ctx := errgroup.WithContext(a.ctx)
	g.SetLimit(probeWorkers)
	for i, name := range c.Paths {
		g.Go(func() error {
			results[i] = a.probe(ctx, name)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for i, name := range c.Paths {
		fmt.Fprintf(a.out, "%s: %s\n", name, results[i])
	}

	return nil
}

func (a *app) probe(ctx context.Context, name string) string {
	f, err := vfs.Open(ctx, name)
	if err != nil {
		return "unavailable"
	}
	defer f.Close()

	b, err := a.reg.ProbeFile(f)
	if err != nil {
		return "not recognized"
	}

	return b.Name()
}

type convertCmd struct {
	Input  string `arg:"" name:"input" help:"File or URL to decode."`
	Output string `arg:"" name:"output" help:"WAV file to write." type:"path"`
}

func (c *convertCmd) Run(a *app) error {
	sink := &wav.Sink{Path: c.Output, Log: a.log}
	p := a.player(func() output.Sink { return sink })

	if err := p.Play(c.Input); err != nil {
		return err
	}

	if !a.wait(p, c.Input) {
		return nil
	}

	if err := p.Err(); err != nil {
		return err
	}

	for _, name := range sink.Files() {
		fmt.Fprintln(a.out, name)
	}

	return nil
}
