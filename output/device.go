// SPDX-License-Identifier: EPL-2.0

package output

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"
	"github.com/rs/zerolog"
	"go.uber.org/atomic"

	"github.com/ik5/audplay/audio"
	"github.com/ik5/audplay/utils"
)

// player is the part of *oto.Player the device drives.
type player interface {
	Play()
	Pause()
	IsPlaying() bool
	BufferedSize() int
	Close() error
}

type playerFactory func(r io.Reader) player

// oto allows a single context per process, so the first device fixes the
// hardware format for every later one.
var (
	otoMu    sync.Mutex
	otoCtx   *oto.Context
	otoRate  int
	otoChans int
)

func otoPlayers(rate, channels int, buffer time.Duration) (playerFactory, int, int, error) {
	otoMu.Lock()
	defer otoMu.Unlock()

	if otoCtx == nil {
		ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
			SampleRate:   rate,
			ChannelCount: channels,
			Format:       oto.FormatSignedInt16LE,
			BufferSize:   buffer,
		})
		if err != nil {
			return nil, 0, 0, fmt.Errorf("%w: %w", audio.ErrOutputUnavailable, err)
		}
		<-ready

		otoCtx, otoRate, otoChans = ctx, rate, channels
	}

	ctx := otoCtx
	factory := func(r io.Reader) player { return ctx.NewPlayer(r) }

	return factory, otoRate, otoChans, nil
}

// Device plays through the system audio device. Streams are converted to
// the device rate and channel count.
type Device struct {
	// Rate and Channels request the hardware format. They only take effect
	// for the first device opened in the process.
	Rate     int
	Channels int
	// Buffer is the device buffer duration, 0 for the driver default.
	Buffer time.Duration
	Log    zerolog.Logger

	newPlayer func(rate, channels int) (playerFactory, int, int, error)

	mu        sync.Mutex
	factory   playerFactory
	player    player
	pw        *io.PipeWriter
	srcRate   int
	srcChans  int
	devRate   int
	devChans  int
	resampler *audio.Resampler
	paused    *atomic.Bool
	clock     *Clock
	// drained is set once the pipe was closed by Drain.
	drained bool

	f32   []float32
	mixed []float32
	pcm   []byte
}

func (d *Device) players(rate, channels int) (playerFactory, int, int, error) {
	if d.newPlayer != nil {
		return d.newPlayer(rate, channels)
	}

	return otoPlayers(rate, channels, d.Buffer)
}

func (d *Device) Open(format audio.SampleFormat, rate, channels int) error {
	if !ValidFormat(format, rate, channels) {
		return fmt.Errorf("%w: %v %d Hz %d ch", ErrInvalidFormat, format, rate, channels)
	}

	wantRate, wantChans := d.Rate, d.Channels
	if wantRate <= 0 {
		wantRate = rate
	}
	if wantChans <= 0 {
		wantChans = 2
	}

	factory, devRate, devChans, err := d.players(wantRate, wantChans)
	if err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.clock == nil {
		d.clock = NewClock()
		d.paused = atomic.NewBool(false)
	}

	d.factory = factory
	d.srcRate, d.srcChans = rate, channels
	d.devRate, d.devChans = devRate, devChans
	d.resampler = nil
	if rate != devRate {
		d.resampler = audio.NewResampler(devChans, rate, devRate)
	}
	d.clock.Reset(0, rate)
	d.startLocked()

	d.Log.Debug().
		Int("rate", rate).
		Int("channels", channels).
		Int("device_rate", devRate).
		Int("device_channels", devChans).
		Msg("audio device opened")

	return nil
}

// startLocked replaces the pipe and player, dropping whatever the old
// player still buffered.
func (d *Device) startLocked() {
	d.stopLocked()

	pr, pw := io.Pipe()
	d.pw = pw
	d.drained = false
	d.player = d.factory(pr)
	if !d.paused.Load() {
		d.player.Play()
	}
}

func (d *Device) stopLocked() {
	if d.pw != nil {
		d.pw.Close()
		d.pw = nil
	}
	if d.player != nil {
		if err := d.player.Close(); err != nil {
			d.Log.Debug().Err(err).Msg("closing device player")
		}
		d.player = nil
	}
}

// Write converts b to the device format and writes it. A cancelled ctx
// aborts a write blocked on a full device buffer.
func (d *Device) Write(ctx context.Context, b audio.Block) error {
	d.mu.Lock()
	if d.factory == nil {
		d.mu.Unlock()
		return ErrNotOpen
	}
	if d.drained {
		d.startLocked()
	}
	pw := d.pw
	if b.Channels != d.srcChans {
		d.mu.Unlock()
		return fmt.Errorf("%w: block has %d channels, sink %d", ErrInvalidFormat, b.Channels, d.srcChans)
	}

	pcm, err := d.convertLocked(b)
	d.mu.Unlock()
	if err != nil {
		return err
	}

	stop := context.AfterFunc(ctx, func() { pw.CloseWithError(context.Cause(ctx)) })
	defer stop()

	if _, err := pw.Write(pcm); err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("device write: %w", context.Cause(ctx))
		}
		return fmt.Errorf("device write: %w", err)
	}

	d.clock.Advance(b.Frames())

	return nil
}

func (d *Device) convertLocked(b audio.Block) ([]byte, error) {
	d.f32 = b.Float32(d.f32)
	d.mixed = audio.MixChannels(d.mixed, d.f32, d.srcChans, d.devChans)

	samples := d.mixed
	if d.resampler != nil {
		out, err := d.resampler.Process(d.mixed)
		if err != nil {
			return nil, fmt.Errorf("resample: %w", err)
		}
		samples = out
	}

	d.pcm = utils.AppendInt16LE(d.pcm[:0], samples)

	return d.pcm, nil
}

// Flush restarts the player so buffered audio is dropped.
func (d *Device) Flush(at time.Duration) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.clock == nil || d.factory == nil {
		return
	}

	d.clock.Reset(at, d.srcRate)
	if d.resampler != nil {
		d.resampler.Reset()
	}
	d.startLocked()
}

func (d *Device) Pause(paused bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.paused == nil {
		return
	}

	d.paused.Store(paused)
	if d.player == nil {
		return
	}
	if paused {
		d.player.Pause()
	} else {
		d.player.Play()
	}
}

func (d *Device) bufferedLocked() time.Duration {
	if d.player == nil || d.devRate <= 0 || d.devChans <= 0 {
		return 0
	}

	frames := d.player.BufferedSize() / (2 * d.devChans)

	return time.Duration(frames) * time.Second / time.Duration(d.devRate)
}

// Drain ends the written audio so the player can play out what it holds.
// oto only starts a player once its buffer is full or the source ended,
// so audio shorter than the buffer is never heard without it. A Write
// after Drain starts a new player.
func (d *Device) Drain() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.pw == nil || d.drained {
		return
	}

	d.pw.Close()
	d.drained = true
}

func (d *Device) BufferPlaying() bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.player == nil {
		return false
	}
	if !d.drained || d.paused.Load() {
		return d.player.BufferedSize() > 0
	}

	return d.player.IsPlaying()
}

func (d *Device) WrittenTime() time.Duration {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.clock == nil {
		return 0
	}

	return d.clock.Time()
}

func (d *Device) OutputTime() time.Duration {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.clock == nil {
		return 0
	}

	return max(d.clock.Time()-d.bufferedLocked(), 0)
}

// Close stops the player. The process-wide oto context stays alive.
func (d *Device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopLocked()
	d.factory = nil

	return nil
}
