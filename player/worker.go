// SPDX-License-Identifier: EPL-2.0

package player

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"

	"github.com/ik5/audplay/audio"
	"github.com/ik5/audplay/output"
	"github.com/ik5/audplay/vfs"
)

const maxChannels = 2

// worker runs one session: open, decode loop, teardown.
type worker struct {
	sess *session
	opts Options
	log  zerolog.Logger

	file   vfs.File
	stream audio.Stream
	sink   output.Sink

	format   audio.SampleFormat
	rate     int
	channels int
	section  int
	gain     float32
}

func (w *worker) run(ctx context.Context, name string) {
	defer close(w.sess.done)

	w.sink = w.sess.sink
	w.log.Debug().Msg("session started")

	eof, err := w.play(ctx, name)
	w.teardown()

	switch {
	case err != nil:
		w.log.Error().Err(err).Msg("playback failed")
	case eof:
		w.log.Debug().Msg("end of stream")
	default:
		w.log.Debug().Msg("playback stopped")
	}

	w.sess.finish(err, eof)
}

// teardown closes the sink once on every exit path, opened or not, then
// the stream and the file if they were opened.
func (w *worker) teardown() {
	if err := w.sink.Close(); err != nil {
		w.log.Warn().Err(err).Msg("closing output")
	}
	if w.stream != nil {
		if err := w.stream.Close(); err != nil {
			w.log.Warn().Err(err).Msg("closing decoder")
		}
		w.stream = nil
	}
	if w.file != nil {
		if err := w.file.Close(); err != nil {
			w.log.Warn().Err(err).Msg("closing source")
		}
		w.file = nil
	}
}

func (w *worker) play(ctx context.Context, name string) (bool, error) {
	if err := w.open(ctx, name); err != nil {
		return false, err
	}

	for {
		if ctx.Err() != nil || !w.sess.isPlaying() {
			return false, nil
		}

		if t, seq, ok := w.sess.pendingSeek(); ok {
			err := w.seek(t)
			w.sess.seekDone(seq)
			if err != nil {
				return false, err
			}
		}

		frame, err := w.stream.ReadFrame()
		if errors.Is(err, io.EOF) {
			w.drain(ctx)
			w.sink.Flush(w.sink.WrittenTime())
			return ctx.Err() == nil, nil
		}
		if err != nil {
			if errors.Is(err, audio.ErrReadSanity) {
				w.log.Error().Err(err).Msg("read error")
			}
			return false, err
		}

		if frame.Section != w.section {
			if err := w.switchSection(ctx, frame); err != nil {
				return false, err
			}
		}

		if frame.Samples() == 0 {
			continue
		}

		frame.Scale(w.gain)
		if err := w.sink.Write(ctx, frame.Block); err != nil {
			if ctx.Err() != nil {
				return false, nil
			}
			return false, fmt.Errorf("%w: %w", audio.ErrOutputUnavailable, err)
		}
	}
}

func (w *worker) open(ctx context.Context, name string) error {
	f, err := w.opts.Open(ctx, name)
	if err != nil {
		return fmt.Errorf("%w: %w", audio.ErrSourceUnavailable, err)
	}
	w.file = f

	backend, err := w.opts.Registry.ProbeFile(f)
	if err != nil {
		return err
	}

	stream, err := backend.Open(f)
	if err != nil {
		return err
	}
	w.stream = stream

	info := stream.Info()
	if info.Channels < 1 || info.Channels > maxChannels {
		return fmt.Errorf("%w: %d", audio.ErrUnsupportedChannels, info.Channels)
	}

	if err := w.openSink(info.Format, info.SampleRate, info.Channels); err != nil {
		return err
	}
	w.sink.Flush(0)

	w.section = info.Section
	w.setGain(info)
	w.sess.publish(info)

	w.log.Info().
		Str("backend", backend.Name()).
		Str("title", info.Title).
		Dur("duration", info.Duration).
		Int("rate", info.SampleRate).
		Int("channels", info.Channels).
		Msg("playing")

	return nil
}

func (w *worker) openSink(format audio.SampleFormat, rate, channels int) error {
	if err := w.sink.Open(format, rate, channels); err != nil {
		if errors.Is(err, audio.ErrOutputUnavailable) {
			return err
		}
		return fmt.Errorf("%w: %w", audio.ErrOutputUnavailable, err)
	}

	w.format, w.rate, w.channels = format, rate, channels

	if w.sess.isPaused() {
		w.sink.Pause(true)
	}

	return nil
}

func (w *worker) setGain(info audio.StreamInfo) {
	w.gain = float32(info.Gain.Scale(w.opts.GainMode, w.opts.Preamp))
}

// seek clamps t to the stream, repositions it and flushes the output.
func (w *worker) seek(t time.Duration) error {
	info := w.stream.Info()
	if info.Duration > 0 && t >= info.Duration {
		t = info.Duration - time.Second
	}
	t = max(t, 0)

	err := w.stream.Seek(t)
	if errors.Is(err, audio.ErrSeekUnsupported) {
		w.log.Warn().Dur("to", t).Msg("stream does not support seeking")
		return nil
	}
	if err != nil {
		return fmt.Errorf("seek to %v: %w", t, err)
	}

	w.sink.Flush(t)
	w.log.Debug().Dur("to", t).Msg("seek applied")

	return nil
}

// switchSection handles a chained stream moving to a new section. The
// output is reopened before the first block of the section when the
// format changed.
func (w *worker) switchSection(ctx context.Context, frame audio.Frame) error {
	info := w.stream.Info()
	w.section = frame.Section

	if frame.Channels < 1 || frame.Channels > maxChannels {
		return fmt.Errorf("%w: %d", audio.ErrUnsupportedChannels, frame.Channels)
	}

	if frame.SampleRate != w.rate || frame.Channels != w.channels || frame.Format != w.format {
		w.log.Info().
			Int("rate", frame.SampleRate).
			Int("channels", frame.Channels).
			Msg("format changed, reopening output")

		w.drain(ctx)
		if err := w.sink.Close(); err != nil {
			w.log.Warn().Err(err).Msg("closing output")
		}

		if err := w.openSink(frame.Format, frame.SampleRate, frame.Channels); err != nil {
			return err
		}
		w.sink.Flush(frame.Start)
	}

	w.setGain(info)
	w.sess.publish(info)

	return nil
}

// drain ends the written audio and waits until the output played it or
// ctx ends.
func (w *worker) drain(ctx context.Context) {
	w.sink.Drain()

	t := time.NewTicker(w.opts.DrainInterval)
	defer t.Stop()

	for w.sink.BufferPlaying() {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
	}
}
