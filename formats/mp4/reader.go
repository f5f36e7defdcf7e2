// SPDX-License-Identifier: EPL-2.0

package mp4

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// maxMoovSize bounds the in-memory movie header.
const maxMoovSize = 64 << 20

// MPEG-4 object type indications that carry AAC.
const (
	otiMPEG4Audio   = 0x40
	otiMPEG2AACMain = 0x66
	otiMPEG2AACLC   = 0x67
	otiMPEG2AACSSR  = 0x68
)

// File is an opened MP4/M4A container. Only the movie header is kept in
// memory; samples are read from r on demand.
type File struct {
	r      io.ReadSeeker
	tracks []*Track
	tags   Tags
}

// Track is one audio track and its precomputed sample table.
type Track struct {
	r io.ReadSeeker

	Handler    string
	Codec      string
	Timescale  uint32
	Duration   uint64
	Channels   int
	SampleRate int

	oti        byte
	asc        []byte
	avgBitrate uint32
	maxBitrate uint32

	sizes   []uint32
	offsets []int64
}

// Open reads the box structure of r. It fails with ErrNotFound when r is
// not an MP4 container.
func Open(r io.ReadSeeker) (*File, error) {
	moov, err := readMoov(r)
	if err != nil {
		return nil, err
	}

	f := &File{r: r}

	kids, err := children(moov)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNotFound, err)
	}

	for _, b := range kids {
		switch b.typ {
		case "trak":
			t, err := parseTrak(b.payload)
			if err != nil {
				// Unknown or damaged tracks are skipped; the AAC lookup
				// decides whether the file is usable.
				continue
			}
			t.r = r
			f.tracks = append(f.tracks, t)
		case "udta":
			f.tags = parseTags(b.payload)
		}
	}

	return f, nil
}

// readMoov scans top-level boxes and returns the moov payload.
func readMoov(r io.ReadSeeker) ([]byte, error) {
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNotFound, err)
	}

	var (
		pos    int64
		header [16]byte
	)
	for first := true; ; first = false {
		if _, err := io.ReadFull(r, header[:8]); err != nil {
			return nil, fmt.Errorf("%w: no moov box", ErrNotFound)
		}

		size := int64(binary.BigEndian.Uint32(header[:4]))
		typ := string(header[4:8])
		hlen := int64(8)

		if first && typ != "ftyp" && typ != "moov" && typ != "free" && typ != "skip" && typ != "wide" && typ != "mdat" {
			return nil, fmt.Errorf("%w: leading box %q", ErrNotFound, typ)
		}

		switch size {
		case 1:
			if _, err := io.ReadFull(r, header[8:16]); err != nil {
				return nil, fmt.Errorf("%w: %w", ErrNotFound, err)
			}
			size = int64(binary.BigEndian.Uint64(header[8:16]))
			hlen = 16
		case 0:
			if typ != "moov" {
				return nil, fmt.Errorf("%w: no moov box", ErrNotFound)
			}
			data, err := io.ReadAll(io.LimitReader(r, maxMoovSize))
			if err != nil {
				return nil, fmt.Errorf("%w: %w", ErrNotFound, err)
			}
			return data, nil
		}

		if size < hlen {
			return nil, fmt.Errorf("%w: %q box size %d", ErrNotFound, typ, size)
		}

		if typ == "moov" {
			if size-hlen > maxMoovSize {
				return nil, fmt.Errorf("%w: moov too large", ErrNotFound)
			}
			data := make([]byte, size-hlen)
			if _, err := io.ReadFull(r, data); err != nil {
				return nil, fmt.Errorf("%w: %w", ErrNotFound, err)
			}
			return data, nil
		}

		pos += size
		if _, err := r.Seek(pos, io.SeekStart); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrNotFound, err)
		}
	}
}

func parseTrak(trak []byte) (*Track, error) {
	mdia, ok := path(trak, "mdia")
	if !ok {
		return nil, errors.New("trak without mdia")
	}

	t := &Track{}

	if hdlr, ok := path(mdia, "hdlr"); ok {
		c := &cursor{b: hdlr}
		c.skip(8) // version/flags, pre_defined
		t.Handler = string(c.bytes(4))
	}

	if mdhd, ok := path(mdia, "mdhd"); ok {
		c := &cursor{b: mdhd}
		if c.u8() == 1 {
			c.skip(3 + 16)
			t.Timescale = c.u32()
			t.Duration = c.u64()
		} else {
			c.skip(3 + 8)
			t.Timescale = c.u32()
			t.Duration = uint64(c.u32())
		}
	}

	stbl, ok := path(mdia, "minf", "stbl")
	if !ok {
		return nil, errors.New("track without sample table")
	}

	if err := t.parseStbl(stbl); err != nil {
		return nil, err
	}

	return t, nil
}

func (t *Track) parseStbl(stbl []byte) error {
	kids, err := children(stbl)
	if err != nil {
		return err
	}

	var (
		chunkOffsets []int64
		stsc         []chunkRun
	)

	for _, b := range kids {
		c := &cursor{b: b.payload}

		switch b.typ {
		case "stsd":
			c.skip(8) // version/flags, entry_count
			entries, err := children(c.rest())
			if err != nil || len(entries) == 0 {
				return errors.New("empty stsd")
			}
			t.parseSampleEntry(entries[0])
		case "stsz":
			c.skip(4)
			fixed := c.u32()
			count := c.u32()
			if c.err != nil {
				return c.err
			}
			if fixed == 0 && int(count)*4 > len(c.rest()) {
				return fmt.Errorf("%w: stsz table truncated", ErrMalformed)
			}
			t.sizes = make([]uint32, count)
			for i := range t.sizes {
				if fixed != 0 {
					t.sizes[i] = fixed
				} else {
					t.sizes[i] = c.u32()
				}
			}
		case "stsc":
			c.skip(4)
			count := int(c.u32())
			if count*12 > len(c.rest()) {
				return fmt.Errorf("%w: stsc table truncated", ErrMalformed)
			}
			stsc = make([]chunkRun, count)
			for i := range stsc {
				stsc[i] = chunkRun{first: c.u32(), samples: c.u32()}
				c.skip(4) // sample_description_index
			}
		case "stco", "co64":
			c.skip(4)
			count := int(c.u32())
			width := 4
			if b.typ == "co64" {
				width = 8
			}
			if count*width > len(c.rest()) {
				return fmt.Errorf("%w: %s table truncated", ErrMalformed, b.typ)
			}
			chunkOffsets = make([]int64, count)
			for i := range chunkOffsets {
				if width == 8 {
					chunkOffsets[i] = int64(c.u64())
				} else {
					chunkOffsets[i] = int64(c.u32())
				}
			}
		}

		if c.err != nil {
			return c.err
		}
	}

	t.offsets = sampleOffsets(t.sizes, stsc, chunkOffsets)

	return nil
}

// parseSampleEntry reads an mp4a audio sample entry and its esds.
func (t *Track) parseSampleEntry(entry box) {
	t.Codec = entry.typ

	c := &cursor{b: entry.payload}
	c.skip(8) // reserved, data_reference_index
	version := c.u16()
	c.skip(6) // revision, vendor
	t.Channels = int(c.u16())
	c.skip(6) // sample size, pre_defined, reserved
	t.SampleRate = int(c.u32() >> 16)

	switch version {
	case 1:
		c.skip(16)
	case 2:
		c.skip(36)
	}
	if c.err != nil {
		return
	}

	kids, _ := children(c.rest())
	esds, ok := find(kids, "esds")
	if !ok {
		// QuickTime nests esds inside a wave box.
		if wave, ok := find(kids, "wave"); ok {
			wk, _ := children(wave.payload)
			esds, ok = find(wk, "esds")
			if !ok {
				return
			}
		} else {
			return
		}
	}

	t.parseESDS(esds.payload)
}

// chunkRun is one stsc entry.
type chunkRun struct {
	first   uint32 // 1-based chunk number
	samples uint32
}

// sampleOffsets maps every sample to its file offset. Samples that the
// chunk tables do not reach get offset -1.
func sampleOffsets(sizes []uint32, runs []chunkRun, chunks []int64) []int64 {
	offsets := make([]int64, len(sizes))
	for i := range offsets {
		offsets[i] = -1
	}

	sample := 0
	for ci := 0; ci < len(chunks) && sample < len(sizes); ci++ {
		perChunk := uint32(0)
		for _, run := range runs {
			if run.first > uint32(ci+1) {
				break
			}
			perChunk = run.samples
		}

		off := chunks[ci]
		for n := uint32(0); n < perChunk && sample < len(sizes); n++ {
			offsets[sample] = off
			off += int64(sizes[sample])
			sample++
		}
	}

	return offsets
}

// Tracks returns all parsed tracks.
func (f *File) Tracks() []*Track { return f.tracks }

// Tags returns the iTunes-style metadata of the file.
func (f *File) Tags() Tags { return f.tags }

// AACTrack returns the first sound track carrying AAC with a decoder
// configuration.
func (f *File) AACTrack() (*Track, error) {
	for _, t := range f.tracks {
		if t.Handler != "soun" || t.Codec != "mp4a" || len(t.asc) == 0 {
			continue
		}

		switch t.oti {
		case otiMPEG4Audio, otiMPEG2AACMain, otiMPEG2AACLC, otiMPEG2AACSSR:
			return t, nil
		}
	}

	return nil, ErrNotFound
}

func (t *Track) SampleCount() int { return len(t.sizes) }

// DecoderConfig is the AudioSpecificConfig from the esds box.
func (t *Track) DecoderConfig() []byte { return t.asc }

// AvgBitrate in bits per second as declared by the decoder config.
func (t *Track) AvgBitrate() int { return int(t.avgBitrate) }

func (t *Track) MaxBitrate() int { return int(t.maxBitrate) }

// SampleSize returns the stored size of sample i.
func (t *Track) SampleSize(i int) (int, error) {
	if i < 0 || i >= len(t.sizes) {
		return 0, fmt.Errorf("%w: sample %d out of range", ErrRead, i)
	}

	return int(t.sizes[i]), nil
}

// ReadSample reads sample i (0-based) into a new buffer.
func (t *Track) ReadSample(i int) ([]byte, error) {
	if i < 0 || i >= len(t.sizes) {
		return nil, fmt.Errorf("%w: sample %d out of range", ErrRead, i)
	}

	off := t.offsets[i]
	if off < 0 {
		return nil, fmt.Errorf("%w: sample %d has no chunk", ErrRead, i)
	}

	if _, err := t.r.Seek(off, io.SeekStart); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRead, err)
	}

	buf := make([]byte, t.sizes[i])
	if _, err := io.ReadFull(t.r, buf); err != nil {
		return nil, fmt.Errorf("%w: sample %d: %w", ErrRead, i, err)
	}

	return buf, nil
}
