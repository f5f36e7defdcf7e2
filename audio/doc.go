// SPDX-License-Identifier: EPL-2.0

// Package audio defines the types shared by the decoders, the output sinks
// and the player.
//
// # Streams and Backends
//
// A Backend recognizes one family of formats from the first bytes of a file
// and its name, and opens it as a Stream. A Stream yields decoded Frames
// until io.EOF:
//
//	reg := audio.NewRegistry()
//	reg.Register(aac.Backend{})
//	reg.Register(vorbis.Backend{})
//
//	backend, err := reg.ProbeFile(f)
//	if errors.Is(err, audio.ErrNotOurFormat) {
//	    // try something else
//	}
//	stream, err := backend.Open(f)
//
// Backends are tried in registration order.
//
// # PCM Blocks
//
// Frames carry a Block of interleaved PCM, either 16-bit signed integers
// (AAC, MP3) or float32 in [-1,1] (Vorbis). Block.Float32 and Block.Int16
// convert between the two.
//
// # Conversion
//
// Resampler changes the sample rate of consecutive blocks using Catmull-Rom
// cubic interpolation with a one-pole low-pass filter when downsampling.
// MixChannels maps between channel counts. Both are used by output sinks
// whose device format differs from the stream.
//
// # Errors
//
// The sentinel errors in this package classify session failures. Use
// errors.Is to test for them; backends wrap them with context.
package audio
