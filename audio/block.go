// SPDX-License-Identifier: EPL-2.0

package audio

import (
	"github.com/ik5/audplay/utils"
)

// SampleFormat is the PCM encoding of a Block.
type SampleFormat int

const (
	FormatS16 SampleFormat = iota + 1
	FormatFloat
)

func (f SampleFormat) String() string {
	switch f {
	case FormatS16:
		return "s16"
	case FormatFloat:
		return "f32"
	default:
		return "unknown"
	}
}

// Block is interleaved PCM in one of the two supported encodings. Only the
// slice matching Format is set.
type Block struct {
	Format   SampleFormat
	Channels int
	S16      []int16
	F32      []float32
}

// Samples is the number of interleaved values.
func (b Block) Samples() int {
	if b.Format == FormatFloat {
		return len(b.F32)
	}

	return len(b.S16)
}

// Frames is the number of sample frames (samples per channel).
func (b Block) Frames() int {
	if b.Channels <= 0 {
		return 0
	}

	return b.Samples() / b.Channels
}

// Float32 returns the samples as float32 in [-1,1], converting S16 into dst.
func (b Block) Float32(dst []float32) []float32 {
	if b.Format == FormatFloat {
		return b.F32
	}

	return utils.Int16sToFloat32(dst, b.S16)
}

// Int16 returns the samples as int16, converting float data into dst.
func (b Block) Int16(dst []int16) []int16 {
	if b.Format == FormatS16 {
		return b.S16
	}

	return utils.Float32sToInt16(dst, b.F32)
}

// Scale multiplies float samples in place. S16 blocks are left untouched.
func (b Block) Scale(factor float32) {
	if b.Format != FormatFloat || factor == 1 {
		return
	}

	for i := range b.F32 {
		b.F32[i] *= factor
	}
}

func grow(buf []float32, n int) []float32 {
	if cap(buf) < n {
		return make([]float32, n)
	}

	return buf[:n]
}
