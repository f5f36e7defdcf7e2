// SPDX-License-Identifier: EPL-2.0

package ogg

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

var ErrPageTooLarge = errors.New("ogg: packets do not fit in one page")

// Writer produces Ogg pages. Sequence numbers are kept per serial.
type Writer struct {
	w   io.Writer
	seq map[uint32]uint32
}

func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w, seq: make(map[uint32]uint32)}
}

// WritePage writes complete packets in a single page.
func (w *Writer) WritePage(serial uint32, flags byte, granule int64, packets ...[]byte) error {
	var (
		lacing []byte
		body   []byte
	)
	for _, p := range packets {
		n := len(p)
		for n >= 255 {
			lacing = append(lacing, 255)
			n -= 255
		}
		lacing = append(lacing, byte(n))
		body = append(body, p...)
	}
	if len(lacing) > 255 {
		return ErrPageTooLarge
	}

	page := make([]byte, headerSize+len(lacing)+len(body))
	copy(page, capture)
	page[5] = flags
	binary.LittleEndian.PutUint64(page[6:14], uint64(granule))
	binary.LittleEndian.PutUint32(page[14:18], serial)
	binary.LittleEndian.PutUint32(page[18:22], w.seq[serial])
	page[26] = byte(len(lacing))
	copy(page[headerSize:], lacing)
	copy(page[headerSize+len(lacing):], body)
	binary.LittleEndian.PutUint32(page[22:26], crcUpdate(0, page))

	w.seq[serial]++

	if _, err := w.w.Write(page); err != nil {
		return fmt.Errorf("ogg: write page: %w", err)
	}

	return nil
}
