// SPDX-License-Identifier: EPL-2.0

// Package audplay is a streaming decode and playback engine for AAC (raw
// ADTS and MP4/M4A), Ogg Vorbis and MP3 files.
//
// The engine is split into small packages:
//   - vfs opens local files, file:// URLs and HTTP streams as byte sources
//   - audio holds the Stream and Backend interfaces, the Registry that
//     probes files, PCM blocks and the channel/rate converters
//   - formats/aac, formats/vorbis and formats/mp3 are the decoder backends
//   - formats/mp4 reads the MP4 container for the AAC backend
//   - output and formats/wav are the sinks decoded PCM is written to
//   - player runs one playback session at a time on a worker goroutine
//
// # Quick Start
//
// DefaultRegistry returns a registry with every backend in this module:
//
//	reg := audplay.DefaultRegistry(log.Logger)
//	p := player.New(player.Options{
//	    Registry: reg,
//	    NewSink:  func() output.Sink { return &output.Device{} },
//	})
//	if err := p.Play("song.m4a"); err != nil {
//	    return err
//	}
//	<-p.Done()
//
// Play returns at once. Opening, probing and decoding run on the session
// worker and their failures are reported by Err. A second Play stops the
// current session first.
//
// # Controlling Playback
//
// The player is safe for use from several goroutines:
//
//	p.Pause(true)
//	p.Seek(90 * time.Second)
//	fmt.Println(p.Position(), p.Info().Duration)
//	p.Pause(false)
//	p.Stop()
//
// Seeks are applied by the worker before its next frame, so Position may
// report the old time for a moment. Seeking past the end lands one second
// before it.
//
// # Results
//
// When Done is closed, Err and EOF tell how the session ended:
//
//	<-p.Done()
//	switch {
//	case p.Err() != nil:
//	    // decode, source or output failure
//	case p.EOF():
//	    // played to the end
//	default:
//	    // stopped
//	}
//
// Errors wrap the sentinels in package audio, so errors.Is works on them:
//
//	if errors.Is(p.Err(), audio.ErrOutputUnavailable) {
//	    // no sound device
//	}
//
// # Probing and Metadata
//
// Probe and Metadata work without starting a session:
//
//	if p.Probe("radio.aac") {
//	    md, err := p.Metadata("radio.aac")
//	    ...
//	}
//
// # Decoding Without Playback
//
// A Stream can be read directly. DecodeToMono16 collects a whole stream as
// mono 16-bit PCM at a fixed rate:
//
//	f, _ := vfs.Open(ctx, "track.ogg")
//	backend, _ := reg.ProbeFile(f)
//	stream, _ := backend.Open(f)
//	pcm, err := audplay.DecodeToMono16(stream, 16000)
//
// # Writing WAV Files
//
// A formats/wav Sink takes the place of the sound device to render a file
// instead of playing it:
//
//	sink := &wav.Sink{Path: "out.wav"}
//	p := player.New(player.Options{
//	    Registry: reg,
//	    NewSink:  func() output.Sink { return sink },
//	})
//
// # Logging
//
// Backends and the player log with zerolog. DefaultRegistry gives every
// backend a sub-logger tagged with its name; the player uses
// Options.Logger or the global logger.
//
// See the individual subpackages for more detailed documentation.
package audplay
