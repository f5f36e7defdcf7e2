// SPDX-License-Identifier: EPL-2.0

// Package wav provides a WAV file output sink.
//
// Sink implements output.Sink on top of github.com/go-audio/wav, writing
// 16-bit PCM at the stream's own rate and channel count. It stands in for
// the sound device wherever decoded audio should be kept instead of heard.
//
// # Usage
//
// Give the player a Sink in place of an output.Device:
//
//	sink := &wav.Sink{Path: "out.wav", Log: log.Logger}
//	p := player.New(player.Options{
//	    Registry: reg,
//	    NewSink:  func() output.Sink { return sink },
//	})
//	if err := p.Play("song.ogg"); err != nil {
//	    return err
//	}
//	<-p.Done()
//	fmt.Println(sink.Files())
//
// The sink can also be driven directly:
//
//	if err := sink.Open(audio.FormatFloat, 44100, 2); err != nil {
//	    return err
//	}
//	if err := sink.Write(ctx, block); err != nil {
//	    return err
//	}
//	if err := sink.Close(); err != nil {
//	    return err
//	}
//
// # Sample Conversion
//
// FormatS16 blocks are written as they are. FormatFloat blocks are
// scaled to 16 bits with clamping, so samples outside [-1, 1] saturate
// instead of wrapping.
//
// # Format Changes
//
// Every Open starts a new file. The first uses Path and later ones get a
// numeric suffix, so a chained stream that changes format mid-way is split
// into song.wav, song-1.wav and so on:
//
//	wav.FileName("song.wav", 0) // song.wav
//	wav.FileName("song.wav", 2) // song-2.wav
//
// Files lists every name written, in order.
//
// # Clocks
//
// There is no device buffer: BufferPlaying is always false, Drain and
// Pause do nothing, and OutputTime equals WrittenTime. Flush only moves
// the clock, as audio already in the file stays.
//
// # Closing
//
// Close finalizes the header with the data length and closes the file.
// Closing a sink that was never opened, or closing twice, is a no-op.
//
// # Errors
//
// Open fails with ErrNoPath when Path is empty and with ErrBadFormat for
// a format output.ValidFormat rejects. A file that cannot be created is
// reported as audio.ErrOutputUnavailable.
package wav
