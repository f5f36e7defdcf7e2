// SPDX-License-Identifier: EPL-2.0

// Package aac plays AAC audio from MP4/M4A containers and raw ADTS streams.
//
// Decoding is done by github.com/llehouerou/go-aac. Decoder wraps it with
// the two initialization paths the player needs: InitConfig for the
// AudioSpecificConfig stored in an MP4 track, and InitStream for the first
// bytes of a raw stream.
//
// # MP4
//
// The first sound track with an AAC decoder config is played sample by
// sample starting at sample index 1. The nominal frame size comes from the
// AudioSpecificConfig (1024, 960 with short frames, doubled with SBR) and
// is used for the duration estimate and to map seek times to indices:
//
//	duration = samples * (frameSize-1) / sampleRate
//	index    = seconds * sampleRate / (frameSize-1)
//
// Samples that are empty, unreadable or larger than MaxFrameSize are
// reported as audio.ErrReadSanity.
//
// # Raw AAC
//
// Raw streams are decoded through a sliding window of MaxFrameSize bytes.
// A leading ID3v2 tag is skipped. On the first decode error the
// decoder is reopened with the old ADTS framing and the same bytes are
// retried; another failure ends the stream without an error. Seekable files
// get a duration estimate and frame-accurate seeking from an ADTS scan.
package aac
