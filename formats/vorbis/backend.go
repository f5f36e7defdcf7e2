// SPDX-License-Identifier: EPL-2.0

package vorbis

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jfreymuth/oggvorbis"
	"github.com/rs/zerolog"

	"github.com/ik5/audplay/audio"
	"github.com/ik5/audplay/vfs"
)

// Backend plays Ogg Vorbis, including chained streams.
type Backend struct {
	Log zerolog.Logger

	newDecoder func() packetDecoder
}

func (Backend) Name() string { return "vorbis" }

func (b Backend) decoderFactory() func() packetDecoder {
	if b.newDecoder != nil {
		return b.newDecoder
	}

	return newLibraryDecoder
}

// Probe claims files starting with an Ogg page that carries a Vorbis
// identification header, and Ogg files with a Vorbis-typical extension.
func (Backend) Probe(name string, header []byte) bool {
	if !bytes.HasPrefix(header, []byte("OggS")) {
		return false
	}

	if len(header) >= 35 && bytes.Equal(header[28:35], idMagic) {
		return true
	}

	switch vfs.Ext(name) {
	case ".ogg", ".oga", ".ogm":
		return true
	}

	return false
}

func (b Backend) Open(f vfs.File) (audio.Stream, error) {
	return b.open(f)
}

// Metadata reads the comment header of the first section.
func (b Backend) Metadata(f vfs.File) (audio.Metadata, error) {
	r, err := oggvorbis.NewReader(f)
	if err != nil {
		return audio.Metadata{}, fmt.Errorf("%w: %w", audio.ErrNotOurFormat, err)
	}

	ch := r.CommentHeader()
	tags := parseComments(ch.Comments).tags(ch.Vendor)

	md := audio.Metadata{
		Tags:       tags,
		Duration:   audio.UnknownDuration,
		SampleRate: r.SampleRate(),
		Channels:   r.Channels(),
	}
	if br := r.Bitrate(); br.Nominal > 0 {
		md.Bitrate = br.Nominal
	}
	if !f.Streaming() && r.SampleRate() > 0 {
		if n := r.Length(); n > 0 {
			md.Duration = time.Duration(n) * time.Second / time.Duration(r.SampleRate())
		}
	}
	if md.Title == "" {
		md.Title = audio.FormatTitle(audio.Tags{}, f.Name())
	}

	return md, nil
}

