// SPDX-License-Identifier: EPL-2.0

package ogg

import "io"

// NoGranule marks a packet that does not end a page.
const NoGranule = -1

// Packet is one logical packet reassembled from pages.
type Packet struct {
	Data []byte
	// Granule is the page granule position for the last packet finished on
	// a page and NoGranule for the others.
	Granule int64
	Serial  uint32
	BOS     bool
	EOS     bool
	// PageOffset is the offset of the page the packet was finished on.
	PageOffset int64
}

// PacketReader splits pages into packets. Packets of interleaved logical
// streams are reassembled independently.
type PacketReader struct {
	pages   *Reader
	partial map[uint32][]byte
	queue   []Packet
}

func NewPacketReader(r io.Reader, base int64) *PacketReader {
	return &PacketReader{
		pages:   NewReader(r, base),
		partial: make(map[uint32][]byte),
	}
}

// Offset is the stream position after the last page read.
func (r *PacketReader) Offset() int64 { return r.pages.Offset() }

// NextPacket returns the next complete packet, or io.EOF.
func (r *PacketReader) NextPacket() (Packet, error) {
	for len(r.queue) == 0 {
		p, err := r.pages.NextPage()
		if err != nil {
			return Packet{}, err
		}
		r.split(p)
	}

	pkt := r.queue[0]
	r.queue = r.queue[1:]

	return pkt, nil
}

func (r *PacketReader) split(p Page) {
	buf, hasPartial := r.partial[p.Serial]
	skip := false
	switch {
	case p.Continued() && !hasPartial:
		// Tail of a packet whose head we never saw, e.g. after a seek.
		skip = true
	case !p.Continued() && hasPartial:
		buf = nil
	}
	delete(r.partial, p.Serial)

	var (
		done []Packet
		off  int
	)
	for _, l := range p.Lacing {
		buf = append(buf, p.Data[off:off+int(l)]...)
		off += int(l)
		if l == 255 {
			continue
		}

		if !skip {
			done = append(done, Packet{
				Data:       buf,
				Granule:    NoGranule,
				Serial:     p.Serial,
				PageOffset: p.Offset,
			})
		}
		skip = false
		buf = nil
	}

	if len(p.Lacing) > 0 && p.Lacing[len(p.Lacing)-1] == 255 && !skip {
		r.partial[p.Serial] = buf
	}

	if len(done) == 0 {
		return
	}

	done[0].BOS = p.BOS()
	last := &done[len(done)-1]
	last.Granule = p.Granule
	last.EOS = p.EOS()

	r.queue = append(r.queue, done...)
}
