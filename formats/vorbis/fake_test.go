// SPDX-License-Identifier: EPL-2.0

package vorbis

import (
	"bytes"
	"encoding/binary"
	"errors"
	"strings"
	"testing"

	"github.com/ik5/audplay/internal/ogg"
	"github.com/ik5/audplay/vfs"
)

var errBadPacket = errors.New("bad packet")

// fakeDecoder understands the packets built by oggFile: the identification
// header, a comment header holding newline separated comments, and audio
// packets {0, frames hi, frames lo, level}.
type fakeDecoder struct {
	stats    *decoderStats
	headers  int
	rate     int
	channels int
	vendor   string
	comments []string
}

type decoderStats struct {
	created int
	clears  int
	decodes int
}

func (d *fakeDecoder) ReadHeader(p []byte) error {
	switch d.headers {
	case 0:
		id, ok := parseIdentification(p)
		if !ok {
			return errBadPacket
		}
		d.rate, d.channels = id.SampleRate, id.Channels
	case 1:
		if !bytes.HasPrefix(p, []byte("\x03vorbis")) {
			return errBadPacket
		}
		lines := strings.Split(string(p[7:]), "\n")
		d.vendor, d.comments = lines[0], lines[1:]
	case 2:
		if !bytes.HasPrefix(p, []byte("\x05vorbis")) {
			return errBadPacket
		}
	}
	d.headers++

	return nil
}

func (d *fakeDecoder) Decode(p []byte) ([]float32, error) {
	d.stats.decodes++
	if len(p) < 4 || p[1] == 0xff {
		return nil, errBadPacket
	}

	n := int(binary.BigEndian.Uint16(p[1:3]))
	out := make([]float32, n*d.channels)
	for i := range out {
		out[i] = float32(p[3]) / 255
	}

	return out, nil
}

func (d *fakeDecoder) Clear()                       { d.stats.clears++ }
func (d *fakeDecoder) SampleRate() int              { return d.rate }
func (d *fakeDecoder) Channels() int                { return d.channels }
func (d *fakeDecoder) Comments() (string, []string) { return d.vendor, d.comments }

func fakeBackend(stats *decoderStats) Backend {
	return Backend{newDecoder: func() packetDecoder {
		stats.created++
		return &fakeDecoder{stats: stats}
	}}
}

func idPacket(rate, channels, nominal int) []byte {
	p := make([]byte, idHeaderSize)
	copy(p, idMagic)
	p[11] = byte(channels)
	binary.LittleEndian.PutUint32(p[12:16], uint32(rate))
	binary.LittleEndian.PutUint32(p[20:24], uint32(nominal))
	p[28] = 0xb8
	p[29] = 1

	return p
}

func commentPacket(vendor string, comments ...string) []byte {
	return []byte("\x03vorbis" + strings.Join(append([]string{vendor}, comments...), "\n"))
}

func audioPacket(frames int, level byte) []byte {
	return []byte{0, byte(frames >> 8), byte(frames), level}
}

// chain describes one logical bitstream: pages of audio packets with the
// granule each page ends on.
type chain struct {
	serial   uint32
	rate     int
	channels int
	comments []string
	pages    []page
}

type page struct {
	granule int64
	packets [][]byte
}

func oggFile(t *testing.T, chains ...chain) []byte {
	t.Helper()

	var buf bytes.Buffer
	w := ogg.NewWriter(&buf)
	for _, c := range chains {
		must(t, w.WritePage(c.serial, ogg.FlagBOS, 0, idPacket(c.rate, c.channels, 96000)))
		must(t, w.WritePage(c.serial, 0, 0, commentPacket("fake encoder", c.comments...), []byte("\x05vorbis setup")))
		for i, p := range c.pages {
			var flags byte
			if i == len(c.pages)-1 {
				flags = ogg.FlagEOS
			}
			must(t, w.WritePage(c.serial, flags, p.granule, p.packets...))
		}
	}

	return buf.Bytes()
}

// monoChain is 8 kHz mono: four pages of two 100 frame packets, with the
// last page trimmed to 750 samples.
func monoChain(serial uint32, comments ...string) chain {
	return chain{
		serial:   serial,
		rate:     8000,
		channels: 1,
		comments: comments,
		pages: []page{
			{200, [][]byte{audioPacket(100, 10), audioPacket(100, 20)}},
			{400, [][]byte{audioPacket(100, 30), audioPacket(100, 40)}},
			{600, [][]byte{audioPacket(100, 50), audioPacket(100, 60)}},
			{750, [][]byte{audioPacket(100, 70), audioPacket(100, 80)}},
		},
	}
}

func must(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatal(err)
	}
}

// namedFile is a network source announcing a station name.
type namedFile struct {
	*vfs.MemFile
	station string
}

func (f namedFile) StreamName() string { return f.station }

func bytesReader(b []byte) *bytes.Reader { return bytes.NewReader(b) }
