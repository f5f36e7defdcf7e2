// SPDX-License-Identifier: EPL-2.0

package player

import (
	"context"
	"sync"
	"time"

	"github.com/ik5/audplay/audio"
	"github.com/ik5/audplay/output"
)

// session is the state shared between the control methods and one
// worker.
type session struct {
	mu   sync.Mutex
	cond *sync.Cond

	playing bool
	paused  bool
	// seekSet is cleared by the worker once the target with seekSeq has
	// been applied.
	seekSet    bool
	seekTarget time.Duration
	seekSeq    uint64

	info audio.StreamInfo
	err  error
	eof  bool

	sink   output.Sink
	cancel context.CancelFunc
	done   chan struct{}
}

func newSession(cancel context.CancelFunc, sink output.Sink) *session {
	s := &session{
		playing: true,
		sink:    sink,
		cancel:  cancel,
		done:    make(chan struct{}),
		info:    audio.StreamInfo{Duration: audio.UnknownDuration},
	}
	s.cond = sync.NewCond(&s.mu)

	return s
}

func (s *session) isPlaying() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.playing
}

func (s *session) stop() {
	s.mu.Lock()
	s.playing = false
	s.cond.Broadcast()
	s.mu.Unlock()

	s.cancel()
}

func (s *session) pause(paused bool) {
	s.mu.Lock()
	s.paused = paused
	playing := s.playing
	s.mu.Unlock()

	if playing {
		s.sink.Pause(paused)
	}
}

func (s *session) isPaused() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.paused
}

// seekTo publishes a target and waits for the worker. A newer target
// replaces one that was not applied yet.
func (s *session) seekTo(t time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.playing {
		return
	}

	s.seekTarget = t
	s.seekSet = true
	s.seekSeq++

	for s.seekSet && s.playing {
		s.cond.Wait()
	}
}

func (s *session) pendingSeek() (time.Duration, uint64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.seekTarget, s.seekSeq, s.seekSet
}

// seekDone acknowledges the target with seq unless a newer one arrived.
func (s *session) seekDone(seq uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.seekSeq == seq {
		s.seekSet = false
		s.cond.Broadcast()
	}
}

func (s *session) position() time.Duration {
	if !s.isPlaying() {
		return NotPlaying
	}

	return s.sink.OutputTime()
}

func (s *session) publish(info audio.StreamInfo) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.info = info
}

// finish records the outcome and clears the playing flag. It runs after
// teardown.
func (s *session) finish(err error, eof bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.err = err
	s.eof = eof
	s.playing = false
	s.seekSet = false
	s.cond.Broadcast()
}
