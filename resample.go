// SPDX-License-Identifier: EPL-2.0

package audplay

import (
	"errors"
	"fmt"
	"io"

	"github.com/ik5/audplay/audio"
	"github.com/ik5/audplay/utils"
)

// DecodeToMono16 reads s to the end, downmixes it to mono, resamples it to
// targetRate and returns the result as 16-bit PCM.
//
// A targetRate of 0 keeps the rate of the stream. Sections with another
// sample rate get a fresh resampler. On a read error the samples decoded
// so far are returned together with the error.
//
// Example:
//
//	stream, _ := backend.Open(f)
//	defer stream.Close()
//	pcm16, err := audplay.DecodeToMono16(stream, 8000)
//	// pcm16 now contains mono 16-bit PCM at 8kHz
func DecodeToMono16(s audio.Stream, targetRate int) ([]int16, error) {
	if targetRate <= 0 {
		targetRate = s.Info().SampleRate
	}

	var (
		resampler *audio.Resampler
		f32       []float32
		mono      []float32
	)

	// Assume ~2 seconds initially
	pcm16 := make([]int16, 0, targetRate*2)

	for {
		frame, err := s.ReadFrame()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return pcm16, fmt.Errorf("%w", err)
		}

		if frame.Frames() == 0 || frame.SampleRate <= 0 {
			continue
		}

		if resampler == nil || resampler.SrcRate() != frame.SampleRate {
			resampler = audio.NewResampler(1, frame.SampleRate, targetRate)
		}

		in := frame.Float32(f32)
		if frame.Format == audio.FormatS16 {
			f32 = in
		}
		mixed := audio.MixChannels(mono, in, frame.Channels, 1)
		if frame.Channels != 1 {
			mono = mixed
		}

		out, err := resampler.Process(mixed[:frame.Frames()])
		if err != nil {
			return pcm16, err
		}

		for _, x := range out {
			pcm16 = append(pcm16, utils.Float32ToInt16(x))
		}
	}

	return pcm16, nil
}
