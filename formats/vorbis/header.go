// SPDX-License-Identifier: EPL-2.0

package vorbis

import (
	"encoding/binary"
	"strconv"
	"strings"

	"github.com/ik5/audplay/audio"
)

const idHeaderSize = 30

var idMagic = []byte("\x01vorbis")

// identification is the part of the first Vorbis header needed before the
// decoder is set up.
type identification struct {
	Channels   int
	SampleRate int
	// Nominal bitrate in bits per second, 0 when unset.
	Bitrate int
}

func isIdentification(p []byte) bool {
	return len(p) >= idHeaderSize && string(p[:7]) == string(idMagic)
}

func parseIdentification(p []byte) (identification, bool) {
	if !isIdentification(p) {
		return identification{}, false
	}

	id := identification{
		Channels:   int(p[11]),
		SampleRate: int(binary.LittleEndian.Uint32(p[12:16])),
	}
	if nominal := int32(binary.LittleEndian.Uint32(p[20:24])); nominal > 0 {
		id.Bitrate = int(nominal)
	}
	if id.Channels == 0 || id.SampleRate == 0 {
		return identification{}, false
	}

	return id, true
}

// comments indexes "KEY=value" pairs by lower-cased key. The first value
// of a repeated key wins.
type comments map[string]string

func parseComments(list []string) comments {
	c := make(comments, len(list))
	for _, kv := range list {
		k, v, ok := strings.Cut(kv, "=")
		if !ok {
			continue
		}

		k = strings.ToLower(k)
		if _, dup := c[k]; !dup {
			c[k] = v
		}
	}

	return c
}

func (c comments) first(keys ...string) (string, bool) {
	for _, k := range keys {
		if v, ok := c[k]; ok && v != "" {
			return v, true
		}
	}

	return "", false
}

func (c comments) tags(vendor string) audio.Tags {
	t := audio.Tags{
		Title:   c["title"],
		Artist:  c["artist"],
		Album:   c["album"],
		Date:    c["date"],
		Genre:   c["genre"],
		Comment: c["comment"],
		Codec:   "Ogg Vorbis",
	}
	if vendor != "" {
		t.Codec = "Ogg Vorbis [" + vendor + "]"
	}

	if n, ok := c.first("tracknumber"); ok {
		t.Track = atoi(n)
	}
	if len(t.Date) >= 4 {
		t.Year = atoi(t.Date[:4])
	}

	return t
}

// atoi parses a leading decimal number, so "3/12" gives 3.
func atoi(s string) int {
	s = strings.TrimSpace(s)
	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}

	n, _ := strconv.Atoi(s[:end])

	return n
}

// replayGain reads the ReplayGain tags, falling back to the older
// rg_audiophile/rg_radio/rg_peak names.
func (c comments) replayGain() audio.ReplayGain {
	var g audio.ReplayGain

	set := func(dst *float64, keys ...string) {
		v, ok := c.first(keys...)
		if !ok {
			return
		}
		if f, ok := audio.ParseGain(v); ok {
			*dst = f
			g.Present = true
		}
	}

	set(&g.AlbumGain, "replaygain_album_gain", "rg_audiophile")
	set(&g.TrackGain, "replaygain_track_gain", "rg_radio")
	set(&g.AlbumPeak, "replaygain_album_peak")
	set(&g.TrackPeak, "replaygain_track_peak", "rg_peak")

	return g
}
