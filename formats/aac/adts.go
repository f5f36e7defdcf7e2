// SPDX-License-Identifier: EPL-2.0

package aac

import (
	"bufio"
	"errors"
	"fmt"
	"io"
)

const adtsHeaderSize = 7

// adtsHeader is the fixed plus variable part of an ADTS frame header.
type adtsHeader struct {
	Profile     int
	SampleRate  int
	Channels    int
	FrameLength int // header included
	Blocks      int // raw data blocks in the frame
}

// parseADTS decodes the 7-byte header at the start of b.
func parseADTS(b []byte) (adtsHeader, bool) {
	if len(b) < adtsHeaderSize || b[0] != 0xFF || b[1]&0xF6 != 0xF0 {
		return adtsHeader{}, false
	}

	h := adtsHeader{
		Profile:     int(b[2] >> 6),
		SampleRate:  SampleRateIndex(int(b[2]>>2) & 0x0F),
		Channels:    int(b[2]&0x01)<<2 | int(b[3]>>6),
		FrameLength: int(b[3]&0x03)<<11 | int(b[4])<<3 | int(b[5]>>5),
		Blocks:      int(b[6]&0x03) + 1,
	}

	if h.SampleRate == 0 || h.FrameLength < adtsHeaderSize {
		return adtsHeader{}, false
	}

	return h, true
}

// adtsScan summarizes consecutive ADTS frames.
type adtsScan struct {
	First  adtsHeader
	Frames int64 // raw data blocks
	Bytes  int64
}

// Samples per channel, assuming 1024 per raw data block.
func (s adtsScan) Samples() int64 { return s.Frames * 1024 }

// scanADTS walks frames from r until the sync is lost, EOF, or the
// accumulated sample count reaches stopAt (when stopAt > 0). Bytes is the
// offset just past the last whole frame read.
func scanADTS(r io.Reader, stopAt int64) (adtsScan, error) {
	var (
		s   adtsScan
		hdr [adtsHeaderSize]byte
	)

	br := bufio.NewReaderSize(r, 32*1024)
	for stopAt <= 0 || s.Samples() < stopAt {
		if _, err := io.ReadFull(br, hdr[:]); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				break
			}
			return s, fmt.Errorf("%w", err)
		}

		h, ok := parseADTS(hdr[:])
		if !ok {
			break
		}
		if s.Frames == 0 {
			s.First = h
		}

		if _, err := br.Discard(h.FrameLength - adtsHeaderSize); err != nil {
			break
		}

		s.Frames += int64(h.Blocks)
		s.Bytes += int64(h.FrameLength)
	}

	return s, nil
}
