// SPDX-License-Identifier: EPL-2.0

// Package output defines the Sink the player writes decoded PCM to and
// the audio device implementation.
//
// Device feeds a github.com/ebitengine/oto/v3 player through a pipe, in
// 16-bit little-endian at a fixed hardware format. Blocks in another rate
// or channel count are converted with audio.Resampler and
// audio.MixChannels. Flush drops buffered audio by replacing the player.
//
// The WAV file sink lives in formats/wav.
package output
