// SPDX-License-Identifier: EPL-2.0

package mp3

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"time"

	gomp3 "github.com/hajimehoshi/go-mp3"
	"github.com/rs/zerolog"

	"github.com/ik5/audplay/audio"
	"github.com/ik5/audplay/vfs"
)

const (
	// go-mp3 always produces 16-bit little-endian stereo.
	channels    = 2
	bytesPerPCM = 2 * channels

	// readBytes is the PCM read size per frame, one MPEG-1 layer III
	// frame of 1152 samples.
	readBytes = 1152 * bytesPerPCM
)

// mp3Reader is the part of gomp3.Decoder the stream uses.
type mp3Reader interface {
	io.ReadSeeker
	SampleRate() int
	Length() int64
}

// Backend plays MPEG audio layer III files and streams.
type Backend struct {
	Log zerolog.Logger

	newReader func(io.Reader) (mp3Reader, error)
}

func (Backend) Name() string { return "mp3" }

func newLibraryReader(r io.Reader) (mp3Reader, error) {
	dec, err := gomp3.NewDecoder(r)
	if err != nil {
		return nil, fmt.Errorf("%w", err)
	}

	return dec, nil
}

func (b Backend) readerFactory() func(io.Reader) (mp3Reader, error) {
	if b.newReader != nil {
		return b.newReader
	}

	return newLibraryReader
}

// Probe claims ID3-tagged files named .mp3 and anything starting with an
// MPEG audio frame sync of layer I, II or III.
func (Backend) Probe(name string, header []byte) bool {
	if bytes.HasPrefix(header, []byte("ID3")) {
		return vfs.Ext(name) == ".mp3"
	}

	if len(header) < 2 || header[0] != 0xFF || header[1]&0xE0 != 0xE0 {
		return false
	}

	// Layer bits 00 are reserved, and 0xFFF with layer 00 is ADTS.
	return header[1]&0x06 != 0
}

// plainReader hides Seek from go-mp3, which otherwise tries to measure
// network streams.
type plainReader struct{ io.Reader }

func (b Backend) Open(f vfs.File) (audio.Stream, error) {
	var src io.Reader = f
	if f.Streaming() {
		src = plainReader{f}
	}

	dec, err := b.readerFactory()(src)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", audio.ErrNotOurFormat, err)
	}

	rate := dec.SampleRate()
	if rate <= 0 {
		return nil, fmt.Errorf("%w: sample rate %d", audio.ErrConfigInit, rate)
	}

	s := &stream{
		dec: dec,
		buf: make([]byte, readBytes),
		info: audio.StreamInfo{
			Title:      audio.FormatTitle(audio.Tags{}, f.Name()),
			Duration:   pcmDuration(dec.Length(), rate),
			SampleRate: rate,
			Channels:   channels,
			Format:     audio.FormatS16,
			FrameSize:  1152,
			Seekable:   !f.Streaming(),
			Tags:       audio.Tags{Codec: "MPEG Layer 3"},
		},
	}

	b.Log.Debug().Int("rate", rate).Dur("duration", s.info.Duration).Msg("mp3 stream opened")

	return s, nil
}

// Metadata opens the file to read its format and length. MP3 tags are not
// parsed.
func (b Backend) Metadata(f vfs.File) (audio.Metadata, error) {
	s, err := b.Open(f)
	if err != nil {
		return audio.Metadata{}, err
	}
	defer s.Close()

	info := s.Info()

	return audio.Metadata{
		Tags:       audio.Tags{Title: info.Title, Codec: info.Tags.Codec},
		Duration:   info.Duration,
		SampleRate: info.SampleRate,
		Channels:   info.Channels,
	}, nil
}

func pcmDuration(length int64, rate int) time.Duration {
	if length <= 0 || rate <= 0 {
		return audio.UnknownDuration
	}

	return time.Duration(length/bytesPerPCM) * time.Second / time.Duration(rate)
}

type stream struct {
	dec  mp3Reader
	info audio.StreamInfo
	buf  []byte
	// pos is the PCM byte offset of the next read.
	pos int64
}

func (s *stream) Info() audio.StreamInfo { return s.info }

func (s *stream) ReadFrame() (audio.Frame, error) {
	n, err := io.ReadFull(s.dec, s.buf)
	if n == 0 {
		if err == nil || errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return audio.Frame{}, io.EOF
		}
		return audio.Frame{}, fmt.Errorf("%w: %w", audio.ErrDecode, err)
	}
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) {
		return audio.Frame{}, fmt.Errorf("%w: %w", audio.ErrDecode, err)
	}

	n -= n % bytesPerPCM
	pcm := make([]int16, n/2)
	for i := range pcm {
		pcm[i] = int16(binary.LittleEndian.Uint16(s.buf[2*i:]))
	}

	start := s.pos
	s.pos += int64(n)

	return audio.Frame{
		Block:      audio.Block{Format: audio.FormatS16, Channels: channels, S16: pcm},
		SampleRate: s.info.SampleRate,
		Start:      time.Duration(start/bytesPerPCM) * time.Second / time.Duration(s.info.SampleRate),
	}, nil
}

// Seek moves to the PCM byte offset of t.
func (s *stream) Seek(t time.Duration) error {
	if !s.info.Seekable {
		return audio.ErrSeekUnsupported
	}

	off := int64(t.Seconds()*float64(s.info.SampleRate)) * bytesPerPCM
	pos, err := s.dec.Seek(max(off, 0), io.SeekStart)
	if err != nil {
		return fmt.Errorf("%w: %w", audio.ErrSourceUnavailable, err)
	}
	s.pos = pos

	return nil
}

func (s *stream) Close() error { return nil }
