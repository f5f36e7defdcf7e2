// SPDX-License-Identifier: EPL-2.0

package mp4

// Descriptor tags inside esds.
const (
	tagESDescriptor    = 0x03
	tagDecoderConfig   = 0x04
	tagDecoderSpecific = 0x05
)

// descriptor reads a tag and its variable-length size.
func descriptor(c *cursor) (tag byte, size int) {
	tag = c.u8()
	for range 4 {
		b := c.u8()
		size = size<<7 | int(b&0x7f)
		if b&0x80 == 0 {
			break
		}
	}

	return tag, size
}

func (t *Track) parseESDS(p []byte) {
	c := &cursor{b: p}
	c.skip(4) // version/flags

	tag, _ := descriptor(c)
	if tag == tagESDescriptor {
		c.skip(2) // ES_ID
		flags := c.u8()
		if flags&0x80 != 0 {
			c.skip(2) // dependsOn_ES_ID
		}
		if flags&0x40 != 0 {
			c.skip(int(c.u8())) // URL
		}
		if flags&0x20 != 0 {
			c.skip(2) // OCR_ES_ID
		}
		tag, _ = descriptor(c)
	}

	if tag != tagDecoderConfig || c.err != nil {
		return
	}

	t.oti = c.u8()
	c.skip(4) // streamType, bufferSizeDB
	t.maxBitrate = c.u32()
	t.avgBitrate = c.u32()

	tag, size := descriptor(c)
	if tag != tagDecoderSpecific || c.err != nil {
		return
	}

	if asc := c.bytes(size); c.err == nil {
		t.asc = append([]byte(nil), asc...)
	}
}
