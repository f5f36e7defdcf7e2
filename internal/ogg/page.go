// SPDX-License-Identifier: EPL-2.0

package ogg

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

const (
	headerSize = 27
	maxPage    = headerSize + 255 + 255*255

	// resyncLimit bounds how far the reader searches for the next capture
	// pattern.
	resyncLimit = 1 << 20
)

// Header type flags.
const (
	FlagContinued = 0x01
	FlagBOS       = 0x02
	FlagEOS       = 0x04
)

var (
	ErrCorruptPage = errors.New("ogg: corrupt page")
	ErrNoCapture   = errors.New("ogg: capture pattern not found")
)

var capture = []byte("OggS")

// Page is one Ogg page.
type Page struct {
	Flags   byte
	Granule int64
	Serial  uint32
	Seq     uint32
	Lacing  []byte
	Data    []byte
	// Offset of the page in the underlying stream.
	Offset int64
}

func (p Page) Continued() bool { return p.Flags&FlagContinued != 0 }
func (p Page) BOS() bool       { return p.Flags&FlagBOS != 0 }
func (p Page) EOS() bool       { return p.Flags&FlagEOS != 0 }

// Reader reads pages from a byte stream, skipping garbage and pages with a
// bad checksum.
type Reader struct {
	r   *bufio.Reader
	pos int64
	// skipData leaves Data empty and discards payloads without checking
	// the checksum, except on BOS pages; used for fast scans.
	skipData bool
	buf      [maxPage]byte
}

// NewReader reads pages from r. base is the stream offset of r's first
// byte, so page offsets stay absolute after a seek.
func NewReader(r io.Reader, base int64) *Reader {
	return &Reader{r: bufio.NewReaderSize(r, 64*1024), pos: base}
}

// NewScanner is a Reader that only decodes page headers. BOS pages keep
// their data so the stream type can be identified.
func NewScanner(r io.Reader, base int64) *Reader {
	pr := NewReader(r, base)
	pr.skipData = true

	return pr
}

// Offset is the stream position of the next unread byte.
func (r *Reader) Offset() int64 { return r.pos }

func (r *Reader) sync() error {
	for skipped := 0; skipped < resyncLimit; skipped++ {
		head, err := r.r.Peek(4)
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, bufio.ErrBufferFull) {
				return io.EOF
			}
			return fmt.Errorf("%w", err)
		}
		if bytes.Equal(head, capture) {
			return nil
		}

		if _, err := r.r.Discard(1); err != nil {
			return fmt.Errorf("%w", err)
		}
		r.pos++
	}

	return ErrNoCapture
}

// NextPage returns the next valid page, or io.EOF.
func (r *Reader) NextPage() (Page, error) {
	for {
		if err := r.sync(); err != nil {
			return Page{}, err
		}

		start := r.pos
		p, n, err := r.readPage()
		if errors.Is(err, ErrCorruptPage) {
			// Skip the capture pattern and look for the next page.
			if _, derr := r.r.Discard(1); derr != nil {
				return Page{}, io.EOF
			}
			r.pos = start + 1
			continue
		}
		if err != nil {
			return Page{}, err
		}

		p.Offset = start
		r.pos = start + int64(n)

		return p, nil
	}
}

// readPage decodes the page at the reader head. On ErrCorruptPage nothing
// has been consumed.
func (r *Reader) readPage() (Page, int, error) {
	hdr, err := r.r.Peek(headerSize)
	if err != nil {
		return Page{}, 0, io.EOF
	}
	if hdr[4] != 0 {
		return Page{}, 0, ErrCorruptPage
	}

	nseg := int(hdr[26])
	full, err := r.r.Peek(headerSize + nseg)
	if err != nil {
		return Page{}, 0, io.EOF
	}

	lacing := full[headerSize:]
	size := 0
	for _, l := range lacing {
		size += int(l)
	}
	total := headerSize + nseg + size

	p := Page{
		Flags:   full[5],
		Granule: int64(binary.LittleEndian.Uint64(full[6:14])),
		Serial:  binary.LittleEndian.Uint32(full[14:18]),
		Seq:     binary.LittleEndian.Uint32(full[18:22]),
		Lacing:  append([]byte(nil), lacing...),
	}

	if r.skipData && p.Flags&FlagBOS == 0 {
		if _, err := r.r.Discard(total); err != nil {
			return Page{}, 0, io.EOF
		}
		return p, total, nil
	}

	raw, err := r.r.Peek(total)
	if err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return Page{}, 0, io.EOF
		}
		return Page{}, 0, fmt.Errorf("%w", err)
	}

	copy(r.buf[:total], raw)
	page := r.buf[:total]
	want := binary.LittleEndian.Uint32(page[22:26])
	page[22], page[23], page[24], page[25] = 0, 0, 0, 0
	if crcUpdate(0, page) != want {
		return Page{}, 0, ErrCorruptPage
	}

	p.Data = append([]byte(nil), page[headerSize+nseg:]...)

	if _, err := r.r.Discard(total); err != nil {
		return Page{}, 0, fmt.Errorf("%w", err)
	}

	return p, total, nil
}
