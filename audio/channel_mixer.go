// SPDX-License-Identifier: EPL-2.0

package audio

// MixChannels maps interleaved samples from srcCh to dstCh channels into
// dst, growing it as needed. Downmixing to mono averages the channels;
// upmixing repeats source channels in order.
func MixChannels(dst, in []float32, srcCh, dstCh int) []float32 {
	if srcCh == dstCh {
		return in
	}

	frames := len(in) / srcCh
	dst = grow(dst, frames*dstCh)

	if dstCh == 1 {
		invChannels := float32(1.0) / float32(srcCh)

		switch srcCh {
		case 2: // Stereo (most common)
			for f := range frames {
				idx := f << 1
				dst[f] = (in[idx] + in[idx+1]) * 0.5
			}
		default:
			for f := range frames {
				sum := float32(0)
				base := f * srcCh
				for c := range srcCh {
					sum += in[base+c]
				}
				dst[f] = sum * invChannels
			}
		}

		return dst
	}

	for f := range frames {
		for c := range dstCh {
			dst[f*dstCh+c] = in[f*srcCh+c%srcCh]
		}
	}

	return dst
}
