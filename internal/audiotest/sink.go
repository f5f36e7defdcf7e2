// SPDX-License-Identifier: EPL-2.0

package audiotest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ik5/audplay/audio"
)

var ErrSinkClosed = errors.New("audiotest: sink closed")

// Sink records every call as an event string such as "open f32 44100 2",
// "write 1024", "flush 1s", "pause true", "drain" or "close".
type Sink struct {
	mu       sync.Mutex
	events   []string
	open     bool
	rate     int
	base     time.Duration
	frames   int
	samples  []float32
	opens    int
	closes   int
	polls    int
	released chan struct{}

	// OpenErr fails Open.
	OpenErr error
	// DrainPolls is how many BufferPlaying calls report true after the
	// last write.
	DrainPolls int
	// Block makes Write wait for ctx or Release.
	Block bool
	// Delay is slept by every Write, as a device consuming in real time.
	Delay time.Duration
	// Keep stores written samples for Samples.
	Keep bool
}

func NewSink() *Sink {
	return &Sink{released: make(chan struct{})}
}

func (s *Sink) record(format string, args ...any) {
	s.events = append(s.events, fmt.Sprintf(format, args...))
}

func (s *Sink) Open(format audio.SampleFormat, rate, channels int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.record("open %v %d %d", format, rate, channels)
	if s.OpenErr != nil {
		return s.OpenErr
	}

	s.open = true
	s.opens++
	s.rate = rate
	s.base, s.frames = 0, 0

	return nil
}

func (s *Sink) Write(ctx context.Context, b audio.Block) error {
	s.mu.Lock()
	if !s.open {
		s.mu.Unlock()
		return ErrSinkClosed
	}
	block, delay := s.Block, s.Delay
	s.mu.Unlock()

	if block {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.released:
		}
	}
	if delay > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.open {
		return ErrSinkClosed
	}

	s.record("write %d", b.Frames())
	s.frames += b.Frames()
	if s.Keep {
		s.samples = append(s.samples, b.Float32(nil)...)
	}
	s.polls = 0

	return nil
}

// Release unblocks all pending and future writes.
func (s *Sink) Release() { close(s.released) }

func (s *Sink) Flush(at time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.record("flush %v", at)
	s.base, s.frames = at, 0
}

func (s *Sink) Pause(paused bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.record("pause %v", paused)
}

func (s *Sink) Drain() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.record("drain")
}

func (s *Sink) BufferPlaying() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.polls++

	return s.polls <= s.DrainPolls
}

func (s *Sink) WrittenTime() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.rate <= 0 {
		return s.base
	}

	return s.base + time.Duration(s.frames)*time.Second/time.Duration(s.rate)
}

func (s *Sink) OutputTime() time.Duration { return s.WrittenTime() }

func (s *Sink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.record("close")
	s.closes++
	s.open = false

	return nil
}

// Events returns a copy of the recorded calls.
func (s *Sink) Events() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]string(nil), s.events...)
}

// Samples returns everything written while Keep was set, as float32.
func (s *Sink) Samples() []float32 {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]float32(nil), s.samples...)
}

func (s *Sink) Opens() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.opens
}

func (s *Sink) Closes() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.closes
}
