// SPDX-License-Identifier: EPL-2.0

package audio

import (
	"errors"
	"math"
	"testing"
)

func sine(rate, channels, frames int, freq float64) []float32 {
	out := make([]float32, frames*channels)
	for i := range frames {
		v := float32(math.Sin(2 * math.Pi * freq * float64(i) / float64(rate)))
		for c := range channels {
			out[i*channels+c] = v
		}
	}

	return out
}

// run pushes src through r in chunks of chunk frames.
func run(t *testing.T, r *Resampler, src []float32, chunk int) []float32 {
	t.Helper()

	var out []float32
	step := chunk * r.Channels()
	for i := 0; i < len(src); i += step {
		end := min(i+step, len(src))
		got, err := r.Process(src[i:end])
		if err != nil {
			t.Fatalf("Process() error = %v", err)
		}
		out = append(out, got...)
	}

	return out
}

func TestResampler_SameRate(t *testing.T) {
	t.Parallel()

	r := NewResampler(1, 8000, 8000)
	in := []float32{0.5, 0.5, 0.5}

	got, err := r.Process(in)
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if len(got) != len(in) {
		t.Errorf("Process() returned %d samples, want %d", len(got), len(in))
	}
}

func TestResampler_Rates(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		src, dst  int
		channels  int
		tolerance int
	}{
		{"downsample 44.1k to 8k", 44100, 8000, 1, 10},
		{"upsample 8k to 44.1k", 8000, 44100, 1, 10},
		{"upsample stereo 22.05k to 48k", 22050, 48000, 2, 10},
		{"downsample stereo 48k to 44.1k", 48000, 44100, 2, 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			r := NewResampler(tt.channels, tt.src, tt.dst)
			out := run(t, r, sine(tt.src, tt.channels, tt.src, 440), 1000)

			frames := len(out) / tt.channels
			if frames < tt.dst-tt.tolerance || frames > tt.dst+tt.tolerance {
				t.Errorf("resampled %d frames, want ≈%d", frames, tt.dst)
			}

			for i, s := range out {
				if s < -1.5 || s > 1.5 {
					t.Fatalf("out[%d] = %v, outside reasonable range", i, s)
				}
			}
		})
	}
}

func TestResampler_ChunkingIndependent(t *testing.T) {
	t.Parallel()

	src := sine(22050, 1, 4000, 300)

	whole := run(t, NewResampler(1, 22050, 44100), src, len(src))
	chunked := run(t, NewResampler(1, 22050, 44100), src, 37)

	if len(whole) != len(chunked) {
		t.Fatalf("lengths differ: %d vs %d", len(whole), len(chunked))
	}
	for i := range whole {
		if whole[i] != chunked[i] {
			t.Fatalf("sample %d differs: %v vs %v", i, whole[i], chunked[i])
		}
	}
}

func TestResampler_ConstantSignal(t *testing.T) {
	t.Parallel()

	in := make([]float32, 2000)
	for i := range in {
		in[i] = 0.5
	}

	out := run(t, NewResampler(1, 8000, 11025), in, 256)
	for i, s := range out {
		if math.Abs(float64(s-0.5)) > 1e-4 {
			t.Fatalf("out[%d] = %v, want 0.5", i, s)
		}
	}
}

func TestResampler_InvalidSize(t *testing.T) {
	t.Parallel()

	r := NewResampler(2, 8000, 16000)
	if _, err := r.Process(make([]float32, 3)); !errors.Is(err, ErrInvalidDstSize) {
		t.Errorf("Process() error = %v, want ErrInvalidDstSize", err)
	}
}

func TestResampler_Reset(t *testing.T) {
	t.Parallel()

	r := NewResampler(1, 8000, 16000)
	first, _ := r.Process([]float32{1, 1, 1})
	n := len(first)

	r.Reset()
	again, _ := r.Process([]float32{1, 1, 1})
	if len(again) != n {
		t.Errorf("after Reset got %d samples, want %d", len(again), n)
	}
}

func BenchmarkResampler_Process(b *testing.B) {
	in := sine(44100, 2, 4096, 440)
	r := NewResampler(2, 44100, 48000)

	b.ReportAllocs()
	b.ResetTimer()
	for b.Loop() {
		_, _ = r.Process(in)
	}
}
