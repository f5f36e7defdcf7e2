// SPDX-License-Identifier: EPL-2.0

package output

import (
	"context"
	"errors"
	"time"

	"go.uber.org/atomic"

	"github.com/ik5/audplay/audio"
)

var (
	ErrNotOpen       = errors.New("output: sink is not open")
	ErrInvalidFormat = errors.New("output: invalid format")
)

// Sink receives decoded PCM from the player. Open may be called again
// after Close to change the format.
type Sink interface {
	Open(format audio.SampleFormat, rate, channels int) error
	// Write blocks until the block is accepted or ctx is done.
	Write(ctx context.Context, b audio.Block) error
	// Flush drops buffered audio and restarts the clocks at stream time at.
	Flush(at time.Duration)
	Pause(paused bool)
	// Drain marks the end of the written audio. Buffered audio keeps
	// playing until BufferPlaying reports false.
	Drain()
	// BufferPlaying reports whether written audio is still waiting to be
	// heard.
	BufferPlaying() bool
	// WrittenTime is the stream time after the last written sample.
	WrittenTime() time.Duration
	// OutputTime is the stream time currently being heard.
	OutputTime() time.Duration
	Close() error
}

// ValidFormat checks the parameters passed to Sink.Open.
func ValidFormat(format audio.SampleFormat, rate, channels int) bool {
	return (format == audio.FormatS16 || format == audio.FormatFloat) && rate > 0 && channels > 0
}

// Clock counts written sample frames from a stream time base. It is safe
// for concurrent use.
type Clock struct {
	base   *atomic.Duration
	frames *atomic.Int64
	rate   *atomic.Int64
}

func NewClock() *Clock {
	return &Clock{
		base:   atomic.NewDuration(0),
		frames: atomic.NewInt64(0),
		rate:   atomic.NewInt64(0),
	}
}

// Reset restarts the clock at stream time at for the given sample rate.
func (c *Clock) Reset(at time.Duration, rate int) {
	c.rate.Store(int64(rate))
	c.frames.Store(0)
	c.base.Store(at)
}

func (c *Clock) Advance(frames int) { c.frames.Add(int64(frames)) }

func (c *Clock) Time() time.Duration {
	rate := c.rate.Load()
	if rate <= 0 {
		return c.base.Load()
	}

	return c.base.Load() + time.Duration(c.frames.Load())*time.Second/time.Duration(rate)
}
