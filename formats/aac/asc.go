// SPDX-License-Identifier: EPL-2.0

package aac

import (
	"errors"
	"fmt"
)

var errShortConfig = errors.New("audio specific config truncated")

// sampleRates is indexed by the 4-bit sampling frequency index.
var sampleRates = [...]int{
	96000, 88200, 64000, 48000, 44100, 32000, 24000,
	22050, 16000, 12000, 11025, 8000, 7350,
}

// SampleRateIndex returns the rate for a sampling frequency index, or 0.
func SampleRateIndex(i int) int {
	if i < 0 || i >= len(sampleRates) {
		return 0
	}

	return sampleRates[i]
}

// AudioSpecificConfig holds the fields of an MPEG-4 AudioSpecificConfig
// that affect framing.
type AudioSpecificConfig struct {
	ObjectType      int
	SampleRate      int
	ChannelConfig   int
	FrameLengthFlag bool
	SBR             bool
	ExtSampleRate   int
}

// FrameSize is the nominal number of output samples per channel per
// frame: 1024, or 960 with the short frame flag, doubled with SBR.
func (a AudioSpecificConfig) FrameSize() int {
	n := 1024
	if a.FrameLengthFlag {
		n = 960
	}
	if a.SBR {
		n *= 2
	}

	return n
}

// OutputRate is the decoded sample rate: the extension rate with SBR, the
// core rate otherwise.
func (a AudioSpecificConfig) OutputRate() int {
	if a.SBR && a.ExtSampleRate > 0 {
		return a.ExtSampleRate
	}

	return a.SampleRate
}

// bitReader reads MSB first.
type bitReader struct {
	b   []byte
	pos int // in bits
}

func (r *bitReader) left() int { return len(r.b)*8 - r.pos }

func (r *bitReader) read(n int) (int, error) {
	if n > r.left() {
		return 0, errShortConfig
	}

	v := 0
	for range n {
		bit := (r.b[r.pos>>3] >> (7 - uint(r.pos&7))) & 1
		v = v<<1 | int(bit)
		r.pos++
	}

	return v, nil
}

func (r *bitReader) objectType() (int, error) {
	ot, err := r.read(5)
	if err != nil || ot != 31 {
		return ot, err
	}

	ext, err := r.read(6)

	return 32 + ext, err
}

func (r *bitReader) sampleRate() (int, error) {
	idx, err := r.read(4)
	if err != nil {
		return 0, err
	}
	if idx == 0xF {
		return r.read(24)
	}

	return SampleRateIndex(idx), nil
}

// gaObjectTypes carry a GASpecificConfig.
var gaObjectTypes = map[int]bool{
	1: true, 2: true, 3: true, 4: true, 6: true, 7: true,
	17: true, 19: true, 20: true, 21: true, 22: true, 23: true,
}

// ParseASC decodes an AudioSpecificConfig.
func ParseASC(b []byte) (AudioSpecificConfig, error) {
	var (
		a   AudioSpecificConfig
		err error
	)

	r := &bitReader{b: b}

	if a.ObjectType, err = r.objectType(); err != nil {
		return a, err
	}
	if a.SampleRate, err = r.sampleRate(); err != nil {
		return a, err
	}
	if a.ChannelConfig, err = r.read(4); err != nil {
		return a, err
	}
	if a.SampleRate == 0 {
		return a, fmt.Errorf("invalid sampling frequency index in %x", b)
	}

	// Explicit hierarchical SBR signalling.
	if a.ObjectType == 5 || a.ObjectType == 29 {
		a.SBR = true
		if a.ExtSampleRate, err = r.sampleRate(); err != nil {
			return a, err
		}
		if a.ObjectType, err = r.objectType(); err != nil {
			return a, err
		}
	}

	if gaObjectTypes[a.ObjectType] {
		flag, err := r.read(1)
		if err != nil {
			return a, err
		}
		a.FrameLengthFlag = flag == 1

		dependsOnCore, err := r.read(1)
		if err != nil {
			return a, err
		}
		if dependsOnCore == 1 {
			if _, err := r.read(14); err != nil {
				return a, err
			}
		}
		if _, err := r.read(1); err != nil { // extensionFlag
			return a, err
		}

		// A program config element follows for channel config 0; the
		// backward compatible extension cannot be located after it.
		if a.ChannelConfig == 0 {
			return a, nil
		}
	}

	// Backward compatible SBR signalling.
	if !a.SBR && r.left() >= 16 {
		sync, _ := r.read(11)
		if sync == 0x2b7 {
			ext, err := r.objectType()
			if err == nil && ext == 5 {
				present, err := r.read(1)
				if err == nil && present == 1 {
					a.SBR = true
					a.ExtSampleRate, _ = r.sampleRate()
				}
			}
		}
	}

	return a, nil
}
