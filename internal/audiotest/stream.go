// SPDX-License-Identifier: EPL-2.0

// Package audiotest provides scripted streams, backends and sinks for
// player tests.
package audiotest

import (
	"io"
	"math"
	"sync"
	"time"

	"github.com/ik5/audplay/audio"
	"github.com/ik5/audplay/vfs"
)

// Section is one format segment of a Stream.
type Section struct {
	SampleRate int
	Channels   int
	Format     audio.SampleFormat
	// Frames is the number of blocks in the section.
	Frames int
	// BlockSize is the sample frames per block.
	BlockSize int
	Title     string
}

// Stream replays a script of sections. Blocks of section s, index i hold
// the value waveform(i, channel).
type Stream struct {
	mu       sync.Mutex
	sections []Section
	cur      int
	index    int
	info     audio.StreamInfo
	waveform func(block, channel int) float32

	// FailAt makes ReadFrame return Err once the cursor reaches it within
	// the first section. Negative disables it.
	FailAt int
	Err    error
	// SeekErr is returned by Seek.
	SeekErr error

	seeks  []time.Duration
	closes int
	reads  int
}

// NewStream builds a stream over sections. duration may be
// audio.UnknownDuration.
func NewStream(duration time.Duration, sections ...Section) *Stream {
	s := &Stream{
		sections: sections,
		FailAt:   -1,
		waveform: func(block, _ int) float32 { return float32(block%100) / 100 },
	}
	s.info.Duration = duration
	s.info.Seekable = duration > 0
	s.setSection(0)

	return s
}

// NewSineStream is a single section stream of a sine wave.
func NewSineStream(rate, channels, blocks, blockSize int, freq float64) *Stream {
	s := NewStream(time.Duration(blocks*blockSize)*time.Second/time.Duration(rate), Section{
		SampleRate: rate,
		Channels:   channels,
		Format:     audio.FormatFloat,
		Frames:     blocks,
		BlockSize:  blockSize,
	})
	s.waveform = func(block, _ int) float32 {
		t := float64(block*blockSize) / float64(rate)
		return float32(math.Sin(2 * math.Pi * freq * t))
	}

	return s
}

func (s *Stream) setSection(i int) {
	sec := s.sections[i]
	s.cur = i
	s.index = 0
	s.info.Section = i
	s.info.SampleRate = sec.SampleRate
	s.info.Channels = sec.Channels
	s.info.Format = sec.Format
	s.info.FrameSize = sec.BlockSize
	s.info.Title = sec.Title
}

// SetGain sets the replay gain reported by Info.
func (s *Stream) SetGain(g audio.ReplayGain) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.info.Gain = g
}

func (s *Stream) Info() audio.StreamInfo {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.info
}

// start is the stream time of block index in section cur.
func (s *Stream) start(cur, index int) time.Duration {
	var t time.Duration
	for i := range cur {
		sec := s.sections[i]
		t += time.Duration(sec.Frames*sec.BlockSize) * time.Second / time.Duration(sec.SampleRate)
	}

	sec := s.sections[cur]

	return t + time.Duration(index*sec.BlockSize)*time.Second/time.Duration(sec.SampleRate)
}

func (s *Stream) ReadFrame() (audio.Frame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.reads++
	if s.cur == 0 && s.FailAt >= 0 && s.index >= s.FailAt {
		return audio.Frame{}, s.Err
	}

	for s.index >= s.sections[s.cur].Frames {
		if s.cur+1 >= len(s.sections) {
			return audio.Frame{}, io.EOF
		}
		s.setSection(s.cur + 1)
	}

	sec := s.sections[s.cur]
	i := s.index
	s.index++

	n := sec.BlockSize * sec.Channels
	b := audio.Block{Format: sec.Format, Channels: sec.Channels}
	if sec.Format == audio.FormatFloat {
		b.F32 = make([]float32, n)
		for j := range b.F32 {
			b.F32[j] = s.waveform(i, j%sec.Channels)
		}
	} else {
		b.S16 = make([]int16, n)
		for j := range b.S16 {
			b.S16[j] = int16(s.waveform(i, j%sec.Channels) * 32767)
		}
	}

	return audio.Frame{
		Block:      b,
		SampleRate: sec.SampleRate,
		Section:    s.cur,
		Start:      s.start(s.cur, i),
	}, nil
}

// Seek moves to the block holding t in the first section.
func (s *Stream) Seek(t time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seeks = append(s.seeks, t)
	if s.SeekErr != nil {
		return s.SeekErr
	}

	sec := s.sections[0]
	s.setSection(0)
	s.index = min(int(t*time.Duration(sec.SampleRate)/time.Second)/sec.BlockSize, sec.Frames)

	return nil
}

func (s *Stream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closes++

	return nil
}

func (s *Stream) Seeks() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]time.Duration(nil), s.seeks...)
}

func (s *Stream) Closes() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.closes
}

func (s *Stream) Reads() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.reads
}

// Backend opens a fixed stream for files whose header starts with Magic.
type Backend struct {
	Magic   string
	Stream  *Stream
	OpenErr error

	mu    sync.Mutex
	opens int
}

func (b *Backend) Name() string { return "test" }

func (b *Backend) Probe(_ string, header []byte) bool {
	return len(header) >= len(b.Magic) && string(header[:len(b.Magic)]) == b.Magic
}

func (b *Backend) Open(vfs.File) (audio.Stream, error) {
	b.mu.Lock()
	b.opens++
	b.mu.Unlock()

	if b.OpenErr != nil {
		return nil, b.OpenErr
	}

	return b.Stream, nil
}

func (b *Backend) Metadata(f vfs.File) (audio.Metadata, error) {
	info := b.Stream.Info()

	return audio.Metadata{
		Tags:       audio.Tags{Title: audio.FormatTitle(audio.Tags{}, f.Name())},
		Duration:   info.Duration,
		SampleRate: info.SampleRate,
		Channels:   info.Channels,
	}, nil
}

func (b *Backend) Opens() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.opens
}
