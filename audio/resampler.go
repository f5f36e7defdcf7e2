// SPDX-License-Identifier: EPL-2.0

package audio

import (
	"github.com/ik5/audplay/utils"
)

// Resampler converts interleaved float32 blocks to a target sample rate
// using cubic interpolation. Blocks are pushed one after another and the
// interpolation history carries across calls.
// Includes basic anti-aliasing filtering when downsampling.
type Resampler struct {
	srcRate  int
	dstRate  int
	ratio    float64 // srcRate / dstRate - how many source samples per output sample
	channels int

	// Ring buffer holding 4 frames for cubic interpolation
	// frames[0] = t-1, frames[1] = t0, frames[2] = t+1, frames[3] = t+2
	frames [4][]float32
	primed bool

	// Position between frames[1] and frames[2]
	pos float64

	out []float32

	// Simple low-pass filter state for anti-aliasing (when downsampling)
	filterState []float32
	useFilter   bool
	filterAlpha float32
}

func NewResampler(channels, srcRate, dstRate int) *Resampler {
	ratio := float64(srcRate) / float64(dstRate)

	// Enable simple low-pass filter when downsampling
	useFilter := ratio > 1.0
	var filterAlpha float32
	if useFilter {
		// One-pole low-pass, cutoff near the destination Nyquist
		filterAlpha = 0.5
	}

	r := &Resampler{
		srcRate:     srcRate,
		dstRate:     dstRate,
		ratio:       ratio,
		channels:    channels,
		useFilter:   useFilter,
		filterAlpha: filterAlpha,
		filterState: make([]float32, channels),
	}

	for i := range r.frames {
		r.frames[i] = make([]float32, channels)
	}

	return r
}

func (r *Resampler) SrcRate() int  { return r.srcRate }
func (r *Resampler) DstRate() int  { return r.dstRate }
func (r *Resampler) Channels() int { return r.channels }

// Reset drops the interpolation history, e.g. after a seek.
func (r *Resampler) Reset() {
	r.primed = false
	r.pos = 0
	for c := range r.filterState {
		r.filterState[c] = 0
	}
}

// push shifts the ring and stores one source frame in frames[3].
func (r *Resampler) push(frame []float32) {
	if !r.primed {
		// Initialize filter state and history with the first frame to
		// avoid warm-up transients
		for i := range r.frames {
			copy(r.frames[i], frame)
		}
		copy(r.filterState, frame)
		r.primed = true
		return
	}

	// Shift frames: [0,1,2,3] -> [1,2,3,?]
	r.frames[0], r.frames[1], r.frames[2], r.frames[3] = r.frames[1], r.frames[2], r.frames[3], r.frames[0]
	copy(r.frames[3], frame)

	if r.useFilter {
		for c := 0; c < r.channels; c++ {
			// y[n] = alpha * x[n] + (1-alpha) * y[n-1]
			r.frames[3][c] = r.filterAlpha*r.frames[3][c] + (1-r.filterAlpha)*r.filterState[c]
			r.filterState[c] = r.frames[3][c]
		}
	}
}

// Process resamples in and returns the output, which is only valid until
// the next call. len(in) must be a multiple of the channel count.
func (r *Resampler) Process(in []float32) ([]float32, error) {
	if len(in)%r.channels != 0 {
		return nil, ErrInvalidDstSize
	}

	if r.ratio == 1 {
		return in, nil
	}

	out := r.out[:0]
	for f := 0; f+r.channels <= len(in); f += r.channels {
		r.push(in[f : f+r.channels])

		for r.pos < 1.0 {
			alpha := float32(r.pos)
			for c := 0; c < r.channels; c++ {
				out = append(out, utils.CubicInterpolate(
					r.frames[0][c], r.frames[1][c], r.frames[2][c], r.frames[3][c], alpha))
			}
			r.pos += r.ratio
		}
		r.pos -= 1.0
	}

	r.out = out

	return out, nil
}
