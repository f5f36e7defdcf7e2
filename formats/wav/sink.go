// SPDX-License-Identifier: EPL-2.0

package wav

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	goaudio "github.com/go-audio/audio"
	gowav "github.com/go-audio/wav"
	"github.com/rs/zerolog"

	"github.com/ik5/audplay/audio"
	"github.com/ik5/audplay/output"
)

const bitDepth = 16

type writeSeekCloser interface {
	io.WriteSeeker
	io.Closer
}

// Sink writes 16-bit PCM WAV files. Every Open starts a new file: the
// first uses Path, later ones get a numeric suffix (song.wav, song-1.wav).
type Sink struct {
	Path string
	Log  zerolog.Logger

	create func(name string) (writeSeekCloser, error)

	mu       sync.Mutex
	opens    int
	file     writeSeekCloser
	enc      *gowav.Encoder
	buf      *goaudio.IntBuffer
	channels int
	clock    *output.Clock
	files    []string
}

var _ output.Sink = (*Sink)(nil)

func createFile(name string) (writeSeekCloser, error) {
	return os.Create(name)
}

// FileName returns the file written by the n-th Open, counting from 0.
func FileName(path string, n int) string {
	if n == 0 {
		return path
	}

	ext := filepath.Ext(path)

	return strings.TrimSuffix(path, ext) + "-" + strconv.Itoa(n) + ext
}

// Files lists the files written so far.
func (s *Sink) Files() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]string(nil), s.files...)
}

func (s *Sink) Open(format audio.SampleFormat, rate, channels int) error {
	if !output.ValidFormat(format, rate, channels) {
		return fmt.Errorf("%w: %v %d Hz %d ch", ErrBadFormat, format, rate, channels)
	}
	if s.Path == "" {
		return ErrNoPath
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.closeLocked(); err != nil {
		return err
	}

	create := s.create
	if create == nil {
		create = createFile
	}

	name := FileName(s.Path, s.opens)
	f, err := create(name)
	if err != nil {
		return fmt.Errorf("%w: %w", audio.ErrOutputUnavailable, err)
	}

	s.opens++
	s.files = append(s.files, name)
	s.file = f
	s.channels = channels
	s.enc = gowav.NewEncoder(f, rate, bitDepth, channels, 1)
	s.buf = &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: channels, SampleRate: rate},
		SourceBitDepth: bitDepth,
	}
	if s.clock == nil {
		s.clock = output.NewClock()
	}
	s.clock.Reset(0, rate)

	s.Log.Debug().Str("file", name).Int("rate", rate).Int("channels", channels).Msg("wav output opened")

	return nil
}

func (s *Sink) Write(ctx context.Context, b audio.Block) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("wav write: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.enc == nil {
		return ErrNotOpen
	}
	if b.Channels != s.channels {
		return fmt.Errorf("%w: block has %d channels, file %d", ErrBadFormat, b.Channels, s.channels)
	}

	pcm := b.Int16(nil)
	data := s.buf.Data[:0]
	for _, v := range pcm {
		data = append(data, int(v))
	}
	s.buf.Data = data

	if err := s.enc.Write(s.buf); err != nil {
		return fmt.Errorf("wav write: %w", err)
	}
	s.clock.Advance(b.Frames())

	return nil
}

// Flush moves the clock; audio already in the file stays.
func (s *Sink) Flush(at time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.clock != nil && s.buf != nil {
		s.clock.Reset(at, s.buf.Format.SampleRate)
	}
}

func (s *Sink) Pause(bool)          {}
func (s *Sink) Drain()              {}
func (s *Sink) BufferPlaying() bool { return false }

func (s *Sink) WrittenTime() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.clock == nil {
		return 0
	}

	return s.clock.Time()
}

func (s *Sink) OutputTime() time.Duration { return s.WrittenTime() }

// Close finalizes the WAV header and closes the file.
func (s *Sink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.closeLocked()
}

func (s *Sink) closeLocked() error {
	if s.enc == nil {
		return nil
	}

	encErr := s.enc.Close()
	fileErr := s.file.Close()
	s.enc, s.file = nil, nil

	if encErr != nil {
		return fmt.Errorf("wav close: %w", encErr)
	}
	if fileErr != nil {
		return fmt.Errorf("wav close: %w", fileErr)
	}

	return nil
}
