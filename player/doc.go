// SPDX-License-Identifier: EPL-2.0

// Package player runs playback sessions.
//
// A session opens a file, probes it against an audio.Registry, opens an
// output.Sink in the stream's format and then loops: apply a pending seek,
// read a frame, reopen the sink if a chained stream changed format, and
// write. At the end of the stream it waits for the sink to play out. The
// sink, the stream and the file are closed exactly once however the
// session ends.
//
//	p := player.New(player.Options{
//	    Registry: audplay.DefaultRegistry(),
//	    NewSink:  func() output.Sink { return &output.Device{} },
//	})
//	p.Play("song.m4a")
//	<-p.Done()
//	if err := p.Err(); err != nil {
//	    ...
//	}
//
// Seek blocks until the worker applied the target. Targets at or past the
// duration are moved to one second before the end. Sources that cannot
// seek log a warning and keep playing.
package player
