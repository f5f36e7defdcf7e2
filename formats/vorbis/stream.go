// SPDX-License-Identifier: EPL-2.0

package vorbis

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"

	"github.com/ik5/audplay/audio"
	"github.com/ik5/audplay/internal/ogg"
	"github.com/ik5/audplay/vfs"
)

const maxChannels = 2

// stream decodes a possibly chained Ogg Vorbis file.
type stream struct {
	f      vfs.File
	log    zerolog.Logger
	newDec func() packetDecoder

	packets *ogg.PacketReader
	dec     packetDecoder
	info    audio.StreamInfo

	seekable bool
	// sections is only indexed for seekable sources.
	sections []section
	cur      int
	serial   uint32
	// started is set once the current section decoded an audio packet.
	started bool
	ended   bool
	// pos is the sample position within the current section after the
	// last decoded packet.
	pos int64
	// base is the stream time the current section starts at.
	base time.Duration
	// skip is the number of sample frames still to drop after a seek.
	skip int64

	streamName string
}

func (b Backend) open(f vfs.File) (*stream, error) {
	s := &stream{
		f:      f,
		log:    b.Log,
		newDec: b.decoderFactory(),
		cur:    -1,
	}
	if n, ok := f.(vfs.StreamNamer); ok {
		s.streamName = n.StreamName()
	}

	if !f.Streaming() {
		sections, err := scanSections(f)
		if err != nil {
			b.Log.Debug().Err(err).Msg("ogg scan stopped early")
		}
		if _, err := f.Seek(0, io.SeekStart); err != nil {
			return nil, fmt.Errorf("%w: %w", audio.ErrSourceUnavailable, err)
		}
		s.sections = sections
		s.seekable = len(sections) > 0
	}

	s.packets = ogg.NewPacketReader(f, 0)

	first, err := s.nextBOS()
	if err != nil {
		return nil, fmt.Errorf("%w: no vorbis stream: %w", audio.ErrNotOurFormat, err)
	}
	if err := s.startSection(first); err != nil {
		return nil, err
	}

	b.Log.Debug().
		Int("sections", len(s.sections)).
		Int("rate", s.info.SampleRate).
		Int("channels", s.info.Channels).
		Dur("duration", s.info.Duration).
		Msg("vorbis stream opened")

	return s, nil
}

// nextBOS skips to the next identification packet.
func (s *stream) nextBOS() (ogg.Packet, error) {
	for {
		p, err := s.packets.NextPacket()
		if err != nil {
			return ogg.Packet{}, err
		}
		if p.BOS && isIdentification(p.Data) {
			return p, nil
		}
	}
}

// startSection sets up a fresh decoder from the identification packet and
// the two header packets that follow it.
func (s *stream) startSection(id ogg.Packet) error {
	dec := s.newDec()
	if err := dec.ReadHeader(id.Data); err != nil {
		return fmt.Errorf("%w: identification header: %w", audio.ErrConfigInit, err)
	}

	for read := 1; read < 3; {
		p, err := s.packets.NextPacket()
		if err != nil {
			return fmt.Errorf("%w: header %d: %w", audio.ErrConfigInit, read, err)
		}
		if p.Serial != id.Serial {
			continue
		}
		if err := dec.ReadHeader(p.Data); err != nil {
			return fmt.Errorf("%w: header %d: %w", audio.ErrConfigInit, read, err)
		}
		read++
	}

	if ch := dec.Channels(); ch > maxChannels {
		return fmt.Errorf("%w: %d", audio.ErrUnsupportedChannels, ch)
	}

	if s.dec != nil {
		// Streaming sources have no index; carry the time forward.
		if !s.seekable && s.info.SampleRate > 0 {
			s.base += time.Duration(s.pos) * time.Second / time.Duration(s.info.SampleRate)
		}
		s.info.Section++
	}

	s.dec = dec
	s.serial = id.Serial
	s.started = false
	s.ended = false
	s.pos = 0
	s.skip = 0

	if s.seekable {
		s.cur = s.sectionIndex(id.PageOffset)
		if s.cur >= 0 {
			s.base = s.sections[s.cur].start
		}
	}

	s.updateInfo(id.Data)

	return nil
}

func (s *stream) sectionIndex(offset int64) int {
	for i, sec := range s.sections {
		if sec.offset == offset {
			return i
		}
	}

	return -1
}

func (s *stream) updateInfo(idPacket []byte) {
	vendor, list := s.dec.Comments()
	c := parseComments(list)
	tags := c.tags(vendor)

	title := audio.FormatTitle(tags, s.f.Name())
	if s.streamName != "" {
		title = fmt.Sprintf("%s (%s)", title, s.streamName)
	}

	duration := audio.UnknownDuration
	if s.seekable {
		duration = totalDuration(s.sections)
	}

	id, _ := parseIdentification(idPacket)

	s.info.Title = title
	s.info.Duration = duration
	s.info.Bitrate = id.Bitrate
	s.info.SampleRate = s.dec.SampleRate()
	s.info.Channels = s.dec.Channels()
	s.info.Format = audio.FormatFloat
	s.info.Seekable = s.seekable
	s.info.Gain = c.replayGain()
	s.info.Tags = tags
}

func (s *stream) Info() audio.StreamInfo { return s.info }

// ReadFrame decodes packets until one yields samples. Packets that fail to
// decode are skipped.
func (s *stream) ReadFrame() (audio.Frame, error) {
	for {
		p, err := s.packets.NextPacket()
		if errors.Is(err, io.EOF) || errors.Is(err, ogg.ErrNoCapture) {
			return audio.Frame{}, io.EOF
		}
		if err != nil {
			return audio.Frame{}, fmt.Errorf("%w: %w", audio.ErrSourceUnavailable, err)
		}

		if p.Serial != s.serial {
			if p.BOS && isIdentification(p.Data) && (s.started || s.ended) {
				s.log.Debug().Uint32("serial", p.Serial).Msg("new vorbis section")
				if err := s.startSection(p); err != nil {
					return audio.Frame{}, err
				}
			}
			continue
		}

		// Header packets have the low bit of the type byte set.
		if len(p.Data) == 0 || p.Data[0]&1 == 1 {
			continue
		}

		pcm, err := s.dec.Decode(p.Data)
		s.started = true
		if p.EOS {
			s.ended = true
		}
		if err != nil {
			s.log.Debug().Err(err).Int64("page", p.PageOffset).Msg("skipping undecodable packet")
			continue
		}

		if frame, ok := s.frame(p, pcm); ok {
			return frame, nil
		}
	}
}

// frame positions decoded samples using the page granule, trims the end
// of the stream and drops samples still owed to a seek.
func (s *stream) frame(p ogg.Packet, pcm []float32) (audio.Frame, bool) {
	ch := s.info.Channels
	if ch <= 0 {
		return audio.Frame{}, false
	}

	n := int64(len(pcm) / ch)
	start := s.pos

	if p.Granule != ogg.NoGranule {
		switch {
		case p.EOS:
			if start+n > p.Granule {
				n = max(p.Granule-start, 0)
			}
		case p.Granule-n >= 0:
			start = p.Granule - n
		}
	}
	s.pos = start + n

	if s.skip > 0 {
		drop := min(s.skip, n)
		s.skip -= drop
		start += drop
		n -= drop
		pcm = pcm[drop*int64(ch):]
	}

	if n == 0 {
		return audio.Frame{}, false
	}

	rate := s.info.SampleRate

	return audio.Frame{
		Block: audio.Block{
			Format:   audio.FormatFloat,
			Channels: ch,
			F32:      pcm[:n*int64(ch)],
		},
		SampleRate: rate,
		Section:    s.info.Section,
		Start:      s.base + time.Duration(start)*time.Second/time.Duration(rate),
	}, true
}

// Seek finds the section holding t and restarts decoding at the page
// before the target, dropping samples up to it.
func (s *stream) Seek(t time.Duration) error {
	if !s.seekable {
		return audio.ErrSeekUnsupported
	}

	t = max(t, 0)
	k := sectionAt(s.sections, t)
	sec := s.sections[k]
	target := int64((t - sec.start).Seconds() * float64(sec.id.SampleRate))

	if k != s.cur {
		if err := s.restart(sec); err != nil {
			return err
		}
	}

	j := sec.pageFor(target) + 1
	if j >= len(sec.pages) {
		j = len(sec.pages) - 1
	}

	if j <= 0 {
		if k == s.cur && (s.started || s.ended) {
			if err := s.restart(sec); err != nil {
				return err
			}
		}
		s.skip = target

		return nil
	}

	if err := s.reposition(sec.pages[j].offset); err != nil {
		return err
	}

	s.dec.Clear()
	s.pos = sec.pages[j-1].granule
	s.skip = max(target-s.pos, 0)
	s.started = true
	s.ended = false

	return nil
}

// restart rereads the headers of sec from its BOS page.
func (s *stream) restart(sec section) error {
	if err := s.reposition(sec.offset); err != nil {
		return err
	}

	id, err := s.nextBOS()
	if err != nil {
		return fmt.Errorf("%w: section at %d: %w", audio.ErrSourceUnavailable, sec.offset, err)
	}

	return s.startSection(id)
}

func (s *stream) reposition(offset int64) error {
	if _, err := s.f.Seek(offset, io.SeekStart); err != nil {
		return fmt.Errorf("%w: %w", audio.ErrSourceUnavailable, err)
	}

	s.packets = ogg.NewPacketReader(s.f, offset)

	return nil
}

func (s *stream) Close() error { return nil }
