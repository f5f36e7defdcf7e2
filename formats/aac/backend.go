// SPDX-License-Identifier: EPL-2.0

package aac

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/ik5/audplay/audio"
	"github.com/ik5/audplay/formats/mp4"
	"github.com/ik5/audplay/vfs"
)

// rawSync is the ADTS header prefix this backend claims at offset 0.
var rawSync = []byte{0xFF, 0xF9, 0x5C, 0x80}

// Backend plays AAC in MP4/M4A containers and raw ADTS streams.
type Backend struct {
	Log zerolog.Logger

	newCodec func() codec
}

func (Backend) Name() string { return "aac" }

func (b Backend) codecFactory() func() codec {
	if b.newCodec != nil {
		return b.newCodec
	}

	return newLibraryCodec
}

func isMP4(header []byte) bool {
	return len(header) >= 8 && string(header[4:8]) == "ftyp"
}

// Probe claims MP4 files, raw AAC starting with the ADTS sync FF F9 5C 80,
// and ID3-tagged files with an .mp4, .m4a or .aac extension.
func (Backend) Probe(name string, header []byte) bool {
	if bytes.HasPrefix(header, rawSync) || isMP4(header) {
		return true
	}

	if bytes.HasPrefix(header, []byte("ID3")) {
		switch vfs.Ext(name) {
		case ".mp4", ".m4a", ".aac":
			return true
		}
	}

	return false
}

// Open picks the MP4 path for files with an ftyp box and the raw path for
// everything else.
func (b Backend) Open(f vfs.File) (audio.Stream, error) {
	header, err := f.Peek(audio.HeaderSize)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", audio.ErrSourceUnavailable, err)
	}

	if isMP4(header) {
		if f.Streaming() {
			return nil, fmt.Errorf("%w: mp4 needs a seekable source", audio.ErrSourceUnavailable)
		}

		file, err := mp4.Open(f)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", audio.ErrNotOurFormat, err)
		}

		return b.openMP4(f, file)
	}

	return b.openRaw(f)
}

// Metadata reads tags and length without creating a playback session.
func (b Backend) Metadata(f vfs.File) (audio.Metadata, error) {
	header, err := f.Peek(audio.HeaderSize)
	if err != nil {
		return audio.Metadata{}, fmt.Errorf("%w: %w", audio.ErrSourceUnavailable, err)
	}

	if isMP4(header) && !f.Streaming() {
		file, err := mp4.Open(f)
		if err != nil {
			return audio.Metadata{}, fmt.Errorf("%w: %w", audio.ErrNotOurFormat, err)
		}

		track, err := file.AACTrack()
		if err != nil {
			return audio.Metadata{}, fmt.Errorf("%w: %w", audio.ErrNotOurFormat, err)
		}

		md := audio.Metadata{
			Tags:       tagsOf(file.Tags()),
			Bitrate:    track.AvgBitrate(),
			SampleRate: track.SampleRate,
			Channels:   track.Channels,
			Duration:   audio.UnknownDuration,
		}
		if cfg, err := ParseASC(track.DecoderConfig()); err == nil {
			md.SampleRate = cfg.OutputRate()
			md.Channels = cfg.ChannelConfig
			md.Duration = mp4Duration(track.SampleCount(), cfg.FrameSize(), md.SampleRate)
		}
		if md.Title == "" {
			md.Title = audio.FormatTitle(audio.Tags{}, f.Name())
		}

		return md, nil
	}

	s, err := b.openRaw(f)
	if err != nil {
		return audio.Metadata{}, err
	}
	defer s.Close()

	info := s.Info()

	return audio.Metadata{
		Tags:       audio.Tags{Title: info.Title, Codec: "AAC"},
		Duration:   info.Duration,
		Bitrate:    info.Bitrate,
		SampleRate: info.SampleRate,
		Channels:   info.Channels,
	}, nil
}

func tagsOf(t mp4.Tags) audio.Tags {
	tags := audio.Tags{
		Title:   t.Title,
		Artist:  t.Artist,
		Album:   t.Album,
		Date:    t.Date,
		Genre:   t.Genre,
		Comment: t.Comment,
		Track:   t.Track,
		Codec:   "MPEG-4 AAC",
	}

	if len(t.Date) >= 4 {
		if y, err := strconv.Atoi(t.Date[:4]); err == nil {
			tags.Year = y
		}
	}

	return tags
}
