// SPDX-License-Identifier: EPL-2.0

// Package vorbis plays Ogg Vorbis files and streams.
//
// The Ogg layer is read with internal/ogg and packets are decoded with
// github.com/jfreymuth/vorbis. Metadata reads the first comment header with
// github.com/jfreymuth/oggvorbis.
//
// # Usage
//
//	f, err := vfs.Open(ctx, "album.ogg")
//	if err != nil {
//	    return err
//	}
//	defer f.Close()
//
//	b := vorbis.Backend{Log: log.Logger}
//	stream, err := b.Open(f)
//	if err != nil {
//	    return err
//	}
//	defer stream.Close()
//
//	for {
//	    frame, err := stream.ReadFrame()
//	    if err == io.EOF {
//	        break
//	    }
//	    if err != nil {
//	        return err
//	    }
//	    // frame.F32 holds interleaved float samples
//	}
//
// # Probing
//
// Probe accepts a header starting with an Ogg page whose first packet is a
// Vorbis identification header. Ogg files named .ogg, .oga or .ogm are
// accepted even when the first page is too short to tell.
//
// # Chained Streams
//
// Chained files, where several logical bitstreams follow each other, are
// played as one stream. Every new section bumps Frame.Section and
// refreshes the StreamInfo with its rate, channels, title and replay gain,
// so the caller can reopen its output when the format changes:
//
//	if frame.Section != section {
//	    section = frame.Section
//	    info := stream.Info()
//	    // reopen the output at info.SampleRate and info.Channels
//	}
//
// Frame.Start counts from the start of the whole chain.
//
// # Seeking
//
// Seekable files are indexed once at open. Seeking finds the section that
// holds the target, restarts decoding at the page before it and drops
// samples up to the target:
//
//	if err := stream.Seek(2 * time.Minute); err != nil {
//	    return err
//	}
//
// Streaming sources report audio.ErrSeekUnsupported and have an unknown
// duration.
//
// # Replay Gain
//
// Replay gain is read from REPLAYGAIN_* comments with the older
// RG_AUDIOPHILE, RG_RADIO and RG_PEAK names as fallback. The values are
// in StreamInfo.Gain; the player applies them:
//
//	scale := stream.Info().Gain.Scale(audio.GainTrack, 0)
//
// # Error Handling
//
// A packet that fails to decode is skipped. Data without a Vorbis
// identification packet fails Open with audio.ErrNotOurFormat, and read
// errors from the source are wrapped in audio.ErrSourceUnavailable.
package vorbis
