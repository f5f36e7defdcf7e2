// SPDX-License-Identifier: EPL-2.0

// Package mp4test builds small MP4 files in memory for tests.
package mp4test

import (
	"bytes"
	"encoding/binary"
)

// Options describe the single audio track of a built file.
type Options struct {
	SampleRate int
	Channels   int
	Timescale  uint32
	ASC        []byte
	OTI        byte
	AvgBitrate uint32
	Handler    string // defaults to "soun"
	Codec      string // defaults to "mp4a"
	// SamplesPerChunk defaults to 2.
	SamplesPerChunk int
	// Tags maps ilst item types (e.g. "\xa9nam") to text values.
	Tags map[string]string
	// Genre sets a numeric gnre item when non-zero.
	Genre uint16
	// MoovLast places moov after mdat.
	MoovLast bool
}

// Box encodes a box with a 32-bit size.
func Box(typ string, payload ...[]byte) []byte {
	var body bytes.Buffer
	for _, p := range payload {
		body.Write(p)
	}

	out := make([]byte, 8, 8+body.Len())
	binary.BigEndian.PutUint32(out, uint32(8+body.Len()))
	copy(out[4:], typ)

	return append(out, body.Bytes()...)
}

func u16(v uint16) []byte { return binary.BigEndian.AppendUint16(nil, v) }
func u32(v uint32) []byte { return binary.BigEndian.AppendUint32(nil, v) }

// descriptor encodes an MPEG-4 descriptor with a 4-byte size field.
func descriptor(tag byte, body []byte) []byte {
	n := len(body)
	out := []byte{tag, byte(n>>21) | 0x80, byte(n>>14) | 0x80, byte(n>>7) | 0x80, byte(n & 0x7f)}

	return append(out, body...)
}

// ESDS encodes an esds box around asc.
func ESDS(oti byte, avgBitrate uint32, asc []byte) []byte {
	dsi := descriptor(0x05, asc)

	dcd := []byte{oti, 0x15, 0, 0, 0}
	dcd = append(dcd, u32(avgBitrate)...)
	dcd = append(dcd, u32(avgBitrate)...)
	dcd = append(dcd, dsi...)

	es := []byte{0, 1, 0}
	es = append(es, descriptor(0x04, dcd)...)
	es = append(es, descriptor(0x06, []byte{2})...)

	return Box("esds", u32(0), descriptor(0x03, es))
}

func (o Options) sampleEntry() []byte {
	entry := make([]byte, 28)
	binary.BigEndian.PutUint16(entry[6:], 1)
	binary.BigEndian.PutUint16(entry[16:], uint16(o.Channels))
	binary.BigEndian.PutUint16(entry[18:], 16)
	binary.BigEndian.PutUint32(entry[24:], uint32(o.SampleRate)<<16)

	codec := o.Codec
	if codec == "" {
		codec = "mp4a"
	}

	return Box(codec, entry, ESDS(o.OTI, o.AvgBitrate, o.ASC))
}

func (o Options) ilst() []byte {
	var items [][]byte
	for typ, val := range o.Tags {
		data := Box("data", u32(1), u32(0), []byte(val))
		items = append(items, Box(typ, data))
	}
	if o.Genre != 0 {
		items = append(items, Box("gnre", Box("data", u32(0), u32(0), u16(o.Genre))))
	}

	hdlr := Box("hdlr", u32(0), u32(0), []byte("mdir"), make([]byte, 13))

	return Box("udta", Box("meta", u32(0), hdlr, Box("ilst", items...)))
}

// Build returns a complete file with the given samples in mdat.
func Build(o Options, samples [][]byte) []byte {
	if o.Timescale == 0 {
		o.Timescale = uint32(o.SampleRate)
	}
	if o.OTI == 0 {
		o.OTI = 0x40
	}
	per := o.SamplesPerChunk
	if per <= 0 {
		per = 2
	}
	handler := o.Handler
	if handler == "" {
		handler = "soun"
	}

	ftyp := Box("ftyp", []byte("M4A "), u32(0), []byte("M4A mp42isom"))

	var mdatBody bytes.Buffer
	for _, s := range samples {
		mdatBody.Write(s)
	}

	build := func(mdatStart int) []byte {
		stsz := []byte{}
		stsz = append(stsz, u32(0)...)
		stsz = append(stsz, u32(0)...)
		stsz = append(stsz, u32(uint32(len(samples)))...)
		for _, s := range samples {
			stsz = append(stsz, u32(uint32(len(s)))...)
		}

		stsc := append(u32(0), u32(1)...)
		stsc = append(stsc, u32(1)...)
		stsc = append(stsc, u32(uint32(per))...)
		stsc = append(stsc, u32(1)...)

		var chunkOffsets []uint32
		off := mdatStart + 8
		for i, s := range samples {
			if i%per == 0 {
				chunkOffsets = append(chunkOffsets, uint32(off))
			}
			off += len(s)
		}
		stco := append(u32(0), u32(uint32(len(chunkOffsets)))...)
		for _, c := range chunkOffsets {
			stco = append(stco, u32(c)...)
		}

		stsd := Box("stsd", u32(0), u32(1), o.sampleEntry())
		stbl := Box("stbl", stsd, Box("stts", u32(0), u32(0)), Box("stsz", stsz), Box("stsc", stsc), Box("stco", stco))

		mdhd := Box("mdhd", u32(0), u32(0), u32(0), u32(o.Timescale), u32(uint32(len(samples)*1024)), u32(0))
		hdlr := Box("hdlr", u32(0), u32(0), []byte(handler), make([]byte, 13))
		trak := Box("trak", Box("mdia", mdhd, hdlr, Box("minf", stbl)))

		return Box("moov", trak, o.ilst())
	}

	mdat := Box("mdat", mdatBody.Bytes())

	if o.MoovLast {
		return append(append(ftyp, mdat...), build(len(ftyp))...)
	}

	// moov size does not depend on the offsets it stores.
	moov := build(0)
	moov = build(len(ftyp) + len(moov))

	return append(append(ftyp, moov...), mdat...)
}
