// SPDX-License-Identifier: EPL-2.0

package aac

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"

	"github.com/ik5/audplay/audio"
	"github.com/ik5/audplay/vfs"
)

// rawStream decodes ADTS/ADIF data through a sliding window of
// MaxFrameSize bytes.
type rawStream struct {
	f   vfs.File
	dec *Decoder
	log zerolog.Logger

	buf      []byte
	valid    int
	consumed int
	srcEOF   bool
	done     bool

	dataStart int64
	info      audio.StreamInfo
	// coreRate is the ADTS header rate. SBR makes the decoder output rate
	// twice this.
	coreRate int
	// decoded is the sample count per channel delivered so far.
	decoded int64
}

func (b Backend) openRaw(f vfs.File) (*rawStream, error) {
	s := &rawStream{
		f:   f,
		log: b.Log,
		buf: make([]byte, MaxFrameSize),
	}

	if err := s.fill(); err != nil {
		return nil, err
	}
	if s.valid == 0 {
		return nil, fmt.Errorf("%w: empty stream", audio.ErrSourceUnavailable)
	}

	if n := ID3Size(s.buf[:s.valid]); n > 0 {
		if err := s.skip(n); err != nil {
			return nil, err
		}
		s.dataStart = int64(n)
		b.Log.Debug().Int("bytes", n).Msg("skipped ID3v2 tag")
	}

	s.dec = newDecoder(b.codecFactory())
	rate, channels, consumed, err := s.dec.InitStream(s.buf[:s.valid])
	if err != nil {
		s.dec.Close()
		return nil, err
	}
	s.consumed = consumed

	s.info = audio.StreamInfo{
		Title:      audio.FormatTitle(audio.Tags{}, f.Name()),
		Duration:   audio.UnknownDuration,
		SampleRate: rate,
		Channels:   channels,
		Format:     audio.FormatS16,
		FrameSize:  1024,
		Seekable:   !f.Streaming(),
	}

	if !f.Streaming() {
		if scan, err := s.scan(0); err == nil && scan.First.SampleRate > 0 {
			s.coreRate = scan.First.SampleRate
			s.info.Duration = time.Duration(scan.Samples()) * time.Second / time.Duration(scan.First.SampleRate)
			if secs := s.info.Duration.Seconds(); secs > 0 {
				s.info.Bitrate = int(float64(scan.Bytes*8) / secs)
			}
		}
	}

	return s, nil
}

// skip drops n bytes from the front of the stream and refills.
func (s *rawStream) skip(n int) error {
	if n <= s.valid {
		s.consumed = n
		return s.fill()
	}

	rest := int64(n - s.valid)
	s.valid, s.consumed = 0, 0

	if !s.f.Streaming() {
		if _, err := s.f.Seek(int64(n), io.SeekStart); err != nil {
			return fmt.Errorf("%w: %w", audio.ErrSourceUnavailable, err)
		}
	} else if _, err := io.CopyN(io.Discard, s.f, rest); err != nil {
		return fmt.Errorf("%w: %w", audio.ErrSourceUnavailable, err)
	}

	return s.fill()
}

// fill drops consumed bytes and tops the window up from the source.
func (s *rawStream) fill() error {
	if s.consumed > 0 {
		if s.consumed > s.valid {
			s.consumed = s.valid
		}
		copy(s.buf, s.buf[s.consumed:s.valid])
		s.valid -= s.consumed
		s.consumed = 0
	}

	for !s.srcEOF && s.valid < len(s.buf) {
		n, err := s.f.Read(s.buf[s.valid:])
		s.valid += n
		if errors.Is(err, io.EOF) {
			s.srcEOF = true
			break
		}
		if err != nil {
			return fmt.Errorf("%w: %w", audio.ErrSourceUnavailable, err)
		}
	}

	return nil
}

// scan walks ADTS frames from the data start, stopping at stopAt samples,
// and restores the read position.
func (s *rawStream) scan(stopAt int64) (adtsScan, error) {
	pos, err := s.f.Tell()
	if err != nil {
		return adtsScan{}, err
	}
	defer s.f.Seek(pos, io.SeekStart)

	if _, err := s.f.Seek(s.dataStart, io.SeekStart); err != nil {
		return adtsScan{}, err
	}

	return scanADTS(s.f, stopAt)
}

func (s *rawStream) Info() audio.StreamInfo { return s.info }

// ReadFrame decodes the next frame from the window. On the first decode
// error the decoder is reopened in legacy ADTS framing and the same bytes
// are retried; a second error ends the stream.
func (s *rawStream) ReadFrame() (audio.Frame, error) {
	for {
		if s.done {
			return audio.Frame{}, io.EOF
		}

		if err := s.fill(); err != nil {
			return audio.Frame{}, err
		}
		if s.valid == 0 {
			s.done = true
			return audio.Frame{}, io.EOF
		}

		res, err := s.dec.Decode(s.buf[:s.valid])
		if err != nil {
			if !s.dec.Legacy() {
				s.log.Debug().Err(err).Msg("retrying with legacy ADTS framing")
				if _, _, _, err := s.dec.ReopenLegacy(s.buf[:s.valid]); err != nil {
					s.log.Debug().Err(err).Msg("legacy init failed")
				}
				continue
			}

			s.log.Warn().Err(err).Msg("aac decode failed, ending stream")
			s.done = true
			return audio.Frame{}, io.EOF
		}

		s.consumed = res.Consumed
		if res.Frames == 0 {
			if res.Consumed == 0 {
				// Nothing consumed and nothing produced: the window cannot
				// make progress.
				s.done = true
				return audio.Frame{}, io.EOF
			}
			continue
		}

		start := s.sampleTime()
		s.decoded += int64(res.Frames)

		return audio.Frame{
			Block: audio.Block{
				Format:   audio.FormatS16,
				Channels: res.Channels,
				S16:      res.Samples,
			},
			SampleRate: s.info.SampleRate,
			Start:      start,
		}, nil
	}
}

func (s *rawStream) sampleTime() time.Duration {
	if s.info.SampleRate <= 0 {
		return 0
	}

	return time.Duration(s.decoded) * time.Second / time.Duration(s.info.SampleRate)
}

// Seek skips whole ADTS frames from the data start. Network streams and
// non-ADTS data cannot seek.
func (s *rawStream) Seek(t time.Duration) error {
	if s.f.Streaming() || s.coreRate == 0 {
		return audio.ErrSeekUnsupported
	}

	// ADTS frames count core-rate samples.
	target := int64(t.Seconds() * float64(s.coreRate))

	// A zero stop would scan to the end, so the start needs no scan.
	var scan adtsScan
	if target > 0 {
		var err error
		if scan, err = s.scan(target); err != nil {
			return fmt.Errorf("%w: %w", audio.ErrSourceUnavailable, err)
		}
		if scan.First.SampleRate == 0 {
			return audio.ErrSeekUnsupported
		}
	}

	if _, err := s.f.Seek(s.dataStart+scan.Bytes, io.SeekStart); err != nil {
		return fmt.Errorf("%w: %w", audio.ErrSourceUnavailable, err)
	}

	s.valid, s.consumed = 0, 0
	s.srcEOF, s.done = false, false
	s.decoded = scan.Samples() * int64(s.info.SampleRate) / int64(s.coreRate)
	s.dec.PostSeekReset(scan.Frames)

	return nil
}

func (s *rawStream) Close() error { return s.dec.Close() }
