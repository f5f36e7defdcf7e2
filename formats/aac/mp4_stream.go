// SPDX-License-Identifier: EPL-2.0

package aac

import (
	"fmt"
	"io"
	"time"

	"github.com/ik5/audplay/audio"
	"github.com/ik5/audplay/formats/mp4"
	"github.com/ik5/audplay/vfs"
)

// sampleTrack is the part of mp4.Track the stream reads from.
type sampleTrack interface {
	SampleCount() int
	SampleSize(i int) (int, error)
	ReadSample(i int) ([]byte, error)
}

// mp4Stream plays one AAC track sample by sample.
type mp4Stream struct {
	track sampleTrack
	dec   *Decoder
	info  audio.StreamInfo
	count int
	// index is the next sample to read. Playback starts at 1.
	index int
}

// mp4Duration estimates the track length the same way seeks are mapped to
// sample indices.
func mp4Duration(samples, frameSize, sampleRate int) time.Duration {
	if sampleRate <= 0 || frameSize <= 1 {
		return audio.UnknownDuration
	}

	secs := float64(samples) * float64(frameSize-1) / float64(sampleRate)

	return time.Duration(secs * float64(time.Second)).Round(time.Millisecond)
}

// seekIndex maps a stream time to a sample index, never before the first
// played sample.
func seekIndex(t time.Duration, frameSize, sampleRate int) int {
	if t <= 0 || frameSize <= 1 {
		return 1
	}

	return max(int(t.Seconds()*float64(sampleRate)/float64(frameSize-1)), 1)
}

func (b Backend) openMP4(f vfs.File, file *mp4.File) (*mp4Stream, error) {
	track, err := file.AACTrack()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", audio.ErrNotOurFormat, err)
	}

	asc := track.DecoderConfig()
	cfg, err := ParseASC(asc)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", audio.ErrConfigInit, err)
	}

	dec := newDecoder(b.codecFactory())
	rate, channels, err := dec.InitConfig(asc)
	if err != nil {
		dec.Close()
		return nil, err
	}

	tags := tagsOf(file.Tags())
	frameSize := cfg.FrameSize()

	s := &mp4Stream{
		track: track,
		dec:   dec,
		count: track.SampleCount(),
		index: 1,
		info: audio.StreamInfo{
			Title:      audio.FormatTitle(tags, f.Name()),
			Duration:   mp4Duration(track.SampleCount(), frameSize, rate),
			Bitrate:    track.AvgBitrate(),
			SampleRate: rate,
			Channels:   channels,
			Format:     audio.FormatS16,
			FrameSize:  frameSize,
			Seekable:   !f.Streaming(),
			Tags:       tags,
		},
	}

	b.Log.Debug().
		Int("samples", s.count).
		Int("frame_size", frameSize).
		Int("rate", rate).
		Int("channels", channels).
		Bool("sbr", cfg.SBR).
		Msg("mp4 track opened")

	return s, nil
}

func (s *mp4Stream) Info() audio.StreamInfo { return s.info }

// ReadFrame reads and decodes the sample at the cursor, then advances it.
func (s *mp4Stream) ReadFrame() (audio.Frame, error) {
	if s.index >= s.count {
		return audio.Frame{}, io.EOF
	}

	i := s.index
	s.index++

	size, err := s.track.SampleSize(i)
	if err != nil {
		return audio.Frame{}, fmt.Errorf("%w: %w", audio.ErrReadSanity, err)
	}
	if size == 0 || size > MaxFrameSize {
		return audio.Frame{}, fmt.Errorf("%w: sample %d is %d bytes", audio.ErrReadSanity, i, size)
	}

	buf, err := s.track.ReadSample(i)
	if err != nil {
		return audio.Frame{}, fmt.Errorf("%w: %w", audio.ErrReadSanity, err)
	}
	if len(buf) == 0 {
		return audio.Frame{}, fmt.Errorf("%w: sample %d is empty", audio.ErrReadSanity, i)
	}

	res, err := s.dec.Decode(buf)
	if err != nil {
		return audio.Frame{}, fmt.Errorf("sample %d: %w", i, err)
	}

	return audio.Frame{
		Block: audio.Block{
			Format:   audio.FormatS16,
			Channels: res.Channels,
			S16:      res.Samples,
		},
		SampleRate: s.info.SampleRate,
		Start:      s.sampleTime(i),
	}, nil
}

func (s *mp4Stream) sampleTime(i int) time.Duration {
	if s.info.SampleRate <= 0 {
		return 0
	}

	return time.Duration(float64(i) * float64(s.info.FrameSize-1) / float64(s.info.SampleRate) * float64(time.Second))
}

// Seek moves the cursor. An index past the end makes the next read EOF.
func (s *mp4Stream) Seek(t time.Duration) error {
	i := seekIndex(t, s.info.FrameSize, s.info.SampleRate)
	if i > s.count {
		i = s.count
	}

	s.index = i
	s.dec.PostSeekReset(int64(i))

	return nil
}

func (s *mp4Stream) Close() error { return s.dec.Close() }
