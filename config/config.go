// SPDX-License-Identifier: EPL-2.0

// Package config holds the settings of the audplay command. The struct
// tags are read by kong, so a Config can be embedded into a command line
// grammar directly.
package config

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"

	"github.com/ik5/audplay/audio"
)

// Output kinds
const (
	OutputDevice = "device"
	OutputWAV    = "wav"
)

// Limits
const (
	MaxRate   = 384000
	MaxPreamp = 24.0 // dB
)

var (
	ErrOutput        = errors.New("config: unknown output")
	ErrWavPath       = errors.New("config: wav output needs a path")
	ErrRate          = errors.New("config: invalid sample rate")
	ErrChannels      = errors.New("config: channels must be 1 or 2")
	ErrBuffer        = errors.New("config: negative buffer duration")
	ErrDrainInterval = errors.New("config: drain interval must be positive")
	ErrGain          = errors.New("config: invalid replay gain")
	ErrLogLevel      = errors.New("config: invalid log level")
)

type Config struct {
	Output  string `help:"Where decoded audio goes: device or wav." enum:"device,wav" default:"device" env:"AUDPLAY_OUTPUT"`
	WavPath string `name:"wav-path" help:"File written by the wav output. Later output formats get -N suffixes." default:"out.wav" env:"AUDPLAY_WAV_PATH"`

	Rate     int           `help:"Device sample rate in Hz, 0 for the rate of the first stream." default:"0" env:"AUDPLAY_RATE"`
	Channels int           `help:"Device channels: 1 (mono) or 2 (stereo)." default:"2" env:"AUDPLAY_CHANNELS"`
	Buffer   time.Duration `help:"Device buffer duration, 0 for the driver default." default:"0s" env:"AUDPLAY_BUFFER"`

	Gain   string  `help:"Replay gain mode: off, track or album." enum:"off,track,album" default:"off" env:"AUDPLAY_GAIN"`
	Preamp float64 `help:"Replay gain preamp in dB." default:"0" env:"AUDPLAY_PREAMP"`

	DrainInterval time.Duration `name:"drain-interval" help:"Poll period while waiting for the output to play out." default:"10ms" env:"AUDPLAY_DRAIN_INTERVAL"`
	LogLevel      string        `name:"log-level" help:"Log level." enum:"trace,debug,info,warn,error" default:"info" env:"AUDPLAY_LOG_LEVEL"`
}

// Default returns the values kong fills in when no flag is given.
func Default() Config {
	return Config{
		Output:        OutputDevice,
		WavPath:       "out.wav",
		Channels:      2,
		Gain:          "off",
		DrainInterval: 10 * time.Millisecond,
		LogLevel:      "info",
	}
}

// Validate checks c for values the flag enums cannot catch.
func (c Config) Validate() error {
	switch c.Output {
	case OutputDevice:
	case OutputWAV:
		if c.WavPath == "" {
			return ErrWavPath
		}
	default:
		return fmt.Errorf("%w: %q", ErrOutput, c.Output)
	}

	if c.Rate < 0 || c.Rate > MaxRate {
		return fmt.Errorf("%w: %d", ErrRate, c.Rate)
	}

	if c.Channels != 1 && c.Channels != 2 {
		return fmt.Errorf("%w: %d", ErrChannels, c.Channels)
	}

	if c.Buffer < 0 {
		return ErrBuffer
	}

	if c.DrainInterval <= 0 {
		return ErrDrainInterval
	}

	if _, err := audio.ParseGainMode(c.Gain); err != nil {
		return fmt.Errorf("%w: %w", ErrGain, err)
	}

	if c.Preamp < -MaxPreamp || c.Preamp > MaxPreamp {
		return fmt.Errorf("%w: preamp %.1f dB out of range", ErrGain, c.Preamp)
	}

	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil || c.LogLevel == "" {
		return fmt.Errorf("%w: %q", ErrLogLevel, c.LogLevel)
	}

	return nil
}

// GainMode is the parsed Gain. Invalid values select audio.GainOff.
func (c Config) GainMode() audio.GainMode {
	mode, err := audio.ParseGainMode(c.Gain)
	if err != nil {
		return audio.GainOff
	}

	return mode
}

// Level is the parsed LogLevel, zerolog.InfoLevel when invalid.
func (c Config) Level() zerolog.Level {
	lvl, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil || c.LogLevel == "" {
		return zerolog.InfoLevel
	}

	return lvl
}

// Logger writes human readable lines to w at the configured level.
func (c Config) Logger(w io.Writer) zerolog.Logger {
	return zerolog.New(zerolog.ConsoleWriter{Out: w, TimeFormat: time.TimeOnly}).
		Level(c.Level()).
		With().
		Timestamp().
		Logger()
}
