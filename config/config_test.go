// SPDX-License-Identifier: EPL-2.0

package config

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/alecthomas/kong"
	"github.com/rs/zerolog"

	"github.com/ik5/audplay/audio"
)

func TestDefault_Valid(t *testing.T) {
	t.Parallel()

	if err := Default().Validate(); err != nil {
		t.Fatalf("Default().Validate() error = %v", err)
	}
}

// TestDefault_MatchesTags verifies that Default agrees with the defaults
// kong applies from the struct tags.
func TestDefault_MatchesTags(t *testing.T) {
	t.Parallel()

	var cli struct {
		Config `embed:""`
	}

	parser, err := kong.New(&cli, kong.Name("audplay"), kong.Exit(func(int) {}))
	if err != nil {
		t.Fatalf("kong.New() error = %v", err)
	}

	if _, err := parser.Parse(nil); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if cli.Config != Default() {
		t.Errorf("parsed defaults = %+v, want %+v", cli.Config, Default())
	}
}

func TestFlags(t *testing.T) {
	t.Parallel()

	var cli struct {
		Config `embed:""`
	}

	parser, err := kong.New(&cli, kong.Name("audplay"), kong.Exit(func(int) {}))
	if err != nil {
		t.Fatalf("kong.New() error = %v", err)
	}

	_, err = parser.Parse([]string{
		"--output=wav", "--wav-path=/tmp/x.wav", "--rate=48000", "--channels=1",
		"--buffer=250ms", "--gain=album", "--preamp=-3.5", "--drain-interval=5ms",
		"--log-level=debug",
	})
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	want := Config{
		Output:        OutputWAV,
		WavPath:       "/tmp/x.wav",
		Rate:          48000,
		Channels:      1,
		Buffer:        250 * time.Millisecond,
		Gain:          "album",
		Preamp:        -3.5,
		DrainInterval: 5 * time.Millisecond,
		LogLevel:      "debug",
	}
	if cli.Config != want {
		t.Errorf("parsed = %+v, want %+v", cli.Config, want)
	}

	if _, err := parser.Parse([]string{"--gain=loud"}); err == nil {
		t.Error("Parse(--gain=loud) error = nil, want enum error")
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr error
	}{
		{name: "default", modify: func(*Config) {}},
		{name: "wav", modify: func(c *Config) { c.Output = OutputWAV }},
		{name: "unknown output", modify: func(c *Config) { c.Output = "pulse" }, wantErr: ErrOutput},
		{name: "wav without path", modify: func(c *Config) { c.Output, c.WavPath = OutputWAV, "" }, wantErr: ErrWavPath},
		{name: "empty path on device", modify: func(c *Config) { c.WavPath = "" }},
		{name: "negative rate", modify: func(c *Config) { c.Rate = -1 }, wantErr: ErrRate},
		{name: "huge rate", modify: func(c *Config) { c.Rate = MaxRate + 1 }, wantErr: ErrRate},
		{name: "rate 48k", modify: func(c *Config) { c.Rate = 48000 }},
		{name: "no channels", modify: func(c *Config) { c.Channels = 0 }, wantErr: ErrChannels},
		{name: "surround", modify: func(c *Config) { c.Channels = 6 }, wantErr: ErrChannels},
		{name: "negative buffer", modify: func(c *Config) { c.Buffer = -time.Second }, wantErr: ErrBuffer},
		{name: "zero drain", modify: func(c *Config) { c.DrainInterval = 0 }, wantErr: ErrDrainInterval},
		{name: "bad gain", modify: func(c *Config) { c.Gain = "loud" }, wantErr: ErrGain},
		{name: "preamp too high", modify: func(c *Config) { c.Preamp = 30 }, wantErr: ErrGain},
		{name: "preamp low edge", modify: func(c *Config) { c.Preamp = -MaxPreamp }},
		{name: "bad level", modify: func(c *Config) { c.LogLevel = "loud" }, wantErr: ErrLogLevel},
		{name: "empty level", modify: func(c *Config) { c.LogLevel = "" }, wantErr: ErrLogLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			c := Default()
			tt.modify(&c)

			err := c.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("Validate() error = %v, want nil", err)
				}
				return
			}

			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Validate() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestGainMode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		gain string
		want audio.GainMode
	}{
		{gain: "off", want: audio.GainOff},
		{gain: "track", want: audio.GainTrack},
		{gain: "album", want: audio.GainAlbum},
		{gain: "bogus", want: audio.GainOff},
	}

	for _, tt := range tests {
		c := Config{Gain: tt.gain}
		if got := c.GainMode(); got != tt.want {
			t.Errorf("Config{Gain: %q}.GainMode() = %v, want %v", tt.gain, got, tt.want)
		}
	}
}

func TestLogger(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	c := Default()
	c.LogLevel = "warn"
	l := c.Logger(&buf)

	l.Info().Msg("hidden")
	l.Warn().Str("file", "a.ogg").Msg("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info line written at warn level: %q", out)
	}
	if !strings.Contains(out, "shown") || !strings.Contains(out, "a.ogg") {
		t.Errorf("warn line missing: %q", out)
	}

	if got := (Config{LogLevel: "nope"}).Level(); got != zerolog.InfoLevel {
		t.Errorf("Level() = %v, want %v", got, zerolog.InfoLevel)
	}
}
