// SPDX-License-Identifier: EPL-2.0

// Package mp3 plays MPEG audio files with github.com/hajimehoshi/go-mp3.
//
// # Usage
//
// Register the backend with an audio.Registry, or use it directly:
//
//	f, err := vfs.Open(ctx, "song.mp3")
//	if err != nil {
//	    return err
//	}
//	defer f.Close()
//
//	b := mp3.Backend{Log: log.Logger}
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
//	    // frame.S16 holds interleaved stereo samples
//	}
//
// # Probing
//
// Probe accepts a header starting with an MPEG audio frame sync of layer
// I, II or III. The ADTS sync used by raw AAC shares the first 12 bits
// and is rejected by its layer bits. An ID3v2 tag hides the sync, so
// tagged files are accepted only when named .mp3.
//
// # Output Format
//
// The decoder always produces 16-bit stereo, so every Frame is a
// FormatS16 block with two channels and mono files are duplicated to both.
// The rate is the rate of the first frame.
//
// # Duration and Seeking
//
// Seekable files are measured when opened, which gives the duration and
// allows seeking by PCM offset:
//
//	if err := stream.Seek(30 * time.Second); err != nil {
//	    return err
//	}
//
// Network streams are handed to the decoder without Seek, so they play
// without a duration and Seek reports audio.ErrSeekUnsupported.
//
// # Metadata
//
// ID3 tags are skipped, not parsed; the title comes from the file name.
// Metadata opens the stream to read the rate and length:
//
//	md, err := b.Metadata(f)
//	fmt.Println(md.Title, md.Duration, md.SampleRate)
//
// # Error Handling
//
// A header go-mp3 rejects fails Open with audio.ErrNotOurFormat. Read
// errors in the middle of the stream are wrapped in audio.ErrDecode; a
// truncated last frame still delivers its samples before io.EOF.
package mp3
