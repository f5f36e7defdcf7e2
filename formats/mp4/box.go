// SPDX-License-Identifier: EPL-2.0

package mp4

import (
	"encoding/binary"
	"fmt"
)

// box is one parsed atom whose payload is held in memory.
type box struct {
	typ     string
	payload []byte
}

// cursor walks big-endian fields of an in-memory payload.
type cursor struct {
	b   []byte
	off int
	err error
}

func (c *cursor) need(n int) bool {
	if c.err != nil {
		return false
	}
	if n < 0 || c.off+n > len(c.b) {
		c.err = fmt.Errorf("%w: need %d bytes at %d of %d", ErrMalformed, n, c.off, len(c.b))
		return false
	}

	return true
}

func (c *cursor) skip(n int) {
	if c.need(n) {
		c.off += n
	}
}

func (c *cursor) u8() uint8 {
	if !c.need(1) {
		return 0
	}
	v := c.b[c.off]
	c.off++

	return v
}

func (c *cursor) u16() uint16 {
	if !c.need(2) {
		return 0
	}
	v := binary.BigEndian.Uint16(c.b[c.off:])
	c.off += 2

	return v
}

func (c *cursor) u32() uint32 {
	if !c.need(4) {
		return 0
	}
	v := binary.BigEndian.Uint32(c.b[c.off:])
	c.off += 4

	return v
}

func (c *cursor) u64() uint64 {
	if !c.need(8) {
		return 0
	}
	v := binary.BigEndian.Uint64(c.b[c.off:])
	c.off += 8

	return v
}

func (c *cursor) bytes(n int) []byte {
	if !c.need(n) {
		return nil
	}
	v := c.b[c.off : c.off+n]
	c.off += n

	return v
}

func (c *cursor) rest() []byte {
	if c.err != nil {
		return nil
	}

	return c.b[c.off:]
}

// children splits a payload into its child boxes.
func children(payload []byte) ([]box, error) {
	var out []box

	c := &cursor{b: payload}
	for c.err == nil && len(c.rest()) >= 8 {
		start := c.off
		size := int64(c.u32())
		typ := string(c.bytes(4))
		header := int64(8)

		switch size {
		case 0:
			size = int64(len(payload) - start)
		case 1:
			size = int64(c.u64())
			header = 16
		}

		if c.err != nil {
			break
		}
		if size < header || int64(start)+size > int64(len(payload)) {
			return out, fmt.Errorf("%w: %q size %d at %d", ErrMalformed, typ, size, start)
		}

		out = append(out, box{typ: typ, payload: payload[start+int(header) : start+int(size)]})
		c.off = start + int(size)
	}

	return out, c.err
}

func find(boxes []box, typ string) (box, bool) {
	for _, b := range boxes {
		if b.typ == typ {
			return b, true
		}
	}

	return box{}, false
}

// path descends through nested boxes, e.g. path(moov, "udta", "meta").
func path(payload []byte, types ...string) ([]byte, bool) {
	for _, typ := range types {
		kids, err := children(payload)
		if err != nil {
			return nil, false
		}

		b, ok := find(kids, typ)
		if !ok {
			return nil, false
		}
		payload = b.payload

		// meta is a full box
		if typ == "meta" {
			if len(payload) < 4 {
				return nil, false
			}
			payload = metaPayload(payload)
		}
	}

	return payload, true
}

// metaPayload skips the version/flags of a meta box. QuickTime files omit
// them, which shows as a child box header in the first 8 bytes.
func metaPayload(p []byte) []byte {
	if len(p) >= 8 && string(p[4:8]) == "hdlr" {
		return p
	}

	return p[4:]
}
