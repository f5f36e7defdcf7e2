// SPDX-License-Identifier: EPL-2.0

package player

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/ik5/audplay/audio"
	"github.com/ik5/audplay/output"
	"github.com/ik5/audplay/vfs"
)

// NotPlaying is the position reported while no session is active.
const NotPlaying time.Duration = -1

const DefaultDrainInterval = 10 * time.Millisecond

var ErrNoRegistry = errors.New("player: no backend registry")

// Options configure a Player. Registry and NewSink are required.
type Options struct {
	Registry *audio.Registry
	// NewSink is called once per session.
	NewSink func() output.Sink
	// Open defaults to vfs.Open.
	Open func(ctx context.Context, name string) (vfs.File, error)
	// Logger defaults to the global zerolog logger.
	Logger *zerolog.Logger
	// DrainInterval is the poll period while waiting for the sink to play
	// out at the end of a stream.
	DrainInterval time.Duration
	GainMode      audio.GainMode
	// Preamp is added to the replay gain, in dB.
	Preamp float64
}

// Player plays one file at a time. All methods are safe for concurrent
// use.
type Player struct {
	opts Options
	log  zerolog.Logger

	mu   sync.Mutex
	sess *session
}

func New(opts Options) *Player {
	if opts.Open == nil {
		opts.Open = vfs.Open
	}
	if opts.DrainInterval <= 0 {
		opts.DrainInterval = DefaultDrainInterval
	}

	l := log.Logger
	if opts.Logger != nil {
		l = *opts.Logger
	}

	return &Player{opts: opts, log: l}
}

// Play stops the current session, if any, and starts playing name in the
// background. Failures of the session are reported by Err.
func (p *Player) Play(name string) error {
	if p.opts.Registry == nil || p.opts.NewSink == nil {
		return ErrNoRegistry
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.stopLocked()

	ctx, cancel := context.WithCancel(context.Background())
	s := newSession(cancel, p.opts.NewSink())
	p.sess = s

	w := &worker{
		sess: s,
		opts: p.opts,
		log:  p.log.With().Str("session", uuid.New().String()).Str("file", name).Logger(),
	}
	go w.run(ctx, name)

	return nil
}

// Stop ends the session and waits for its teardown.
func (p *Player) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.stopLocked()
}

func (p *Player) stopLocked() {
	if p.sess == nil {
		return
	}

	p.sess.stop()
	<-p.sess.done
}

func (p *Player) current() *session {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.sess
}

// Pause pauses or resumes the output.
func (p *Player) Pause(paused bool) {
	if s := p.current(); s != nil {
		s.pause(paused)
	}
}

// Seek asks the session to move to t and blocks until the worker applied
// it or playback ended. Targets past the end are clamped to one second
// before it.
func (p *Player) Seek(t time.Duration) {
	if s := p.current(); s != nil {
		s.seekTo(t)
	}
}

// Position is the stream time being heard, or NotPlaying.
func (p *Player) Position() time.Duration {
	s := p.current()
	if s == nil {
		return NotPlaying
	}

	return s.position()
}

// Playing reports whether a session is active.
func (p *Player) Playing() bool {
	s := p.current()

	return s != nil && s.isPlaying()
}

// Info is the stream info published by the current session.
func (p *Player) Info() audio.StreamInfo {
	s := p.current()
	if s == nil {
		return audio.StreamInfo{Duration: audio.UnknownDuration}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.info
}

var closedChan = func() chan struct{} {
	c := make(chan struct{})
	close(c)

	return c
}()

// Done is closed when the current session has been torn down.
func (p *Player) Done() <-chan struct{} {
	if s := p.current(); s != nil {
		return s.done
	}

	return closedChan
}

// Err is the error that ended the last session, nil after a normal end or
// Stop.
func (p *Player) Err() error {
	s := p.current()
	if s == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.err
}

// EOF reports whether the last session played to the end.
func (p *Player) EOF() bool {
	s := p.current()
	if s == nil {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.eof
}

func (p *Player) openFile(name string) (vfs.File, error) {
	f, err := p.opts.Open(context.Background(), name)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", audio.ErrSourceUnavailable, err)
	}

	return f, nil
}

// Probe reports whether any backend claims name.
func (p *Player) Probe(name string) bool {
	if p.opts.Registry == nil {
		return false
	}

	f, err := p.openFile(name)
	if err != nil {
		return false
	}
	defer f.Close()

	return p.ProbeFile(f)
}

// ProbeFile reports whether any backend claims f. f's position is kept.
func (p *Player) ProbeFile(f vfs.File) bool {
	if p.opts.Registry == nil {
		return false
	}

	_, err := p.opts.Registry.ProbeFile(f)

	return err == nil
}

// Metadata reads tags and length of name without playing it.
func (p *Player) Metadata(name string) (audio.Metadata, error) {
	if p.opts.Registry == nil {
		return audio.Metadata{}, ErrNoRegistry
	}

	f, err := p.openFile(name)
	if err != nil {
		return audio.Metadata{}, err
	}
	defer f.Close()

	b, err := p.opts.Registry.ProbeFile(f)
	if err != nil {
		return audio.Metadata{}, err
	}

	return b.Metadata(f)
}
