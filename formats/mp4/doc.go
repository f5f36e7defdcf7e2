// SPDX-License-Identifier: EPL-2.0

// Package mp4 reads the parts of an MP4/M4A container needed to play one
// AAC audio track.
//
// Open loads the movie header (moov) into memory and builds a sample table
// mapping every sample index to its file offset. Samples are then read
// directly by index, which makes seeking a matter of picking a new index:
//
//	f, err := mp4.Open(file)
//	if err != nil {
//	    return err // mp4.ErrNotFound for anything that is not an MP4
//	}
//	track, err := f.AACTrack()
//	asc := track.DecoderConfig()
//	for i := 0; i < track.SampleCount(); i++ {
//	    frame, err := track.ReadSample(i)
//	    ...
//	}
//
// Only sound tracks with an mp4a sample entry, an AAC object type
// indication and a decoder specific config are returned by AACTrack.
// Fragmented files (moof) are not supported.
//
// Tags reads iTunes-style metadata from moov/udta/meta/ilst.
package mp4
