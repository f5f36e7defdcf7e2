// SPDX-License-Identifier: EPL-2.0

package vorbis

import (
	"errors"
	"io"
	"testing"
	"time"

	"github.com/ik5/audplay/audio"
	"github.com/ik5/audplay/vfs"
)

func openFake(t *testing.T, f vfs.File) (audio.Stream, *decoderStats) {
	t.Helper()

	stats := &decoderStats{}
	s, err := fakeBackend(stats).Open(f)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}

	return s, stats
}

func readAll(t *testing.T, s audio.Stream) []audio.Frame {
	t.Helper()

	var frames []audio.Frame
	for range 10000 {
		f, err := s.ReadFrame()
		if errors.Is(err, io.EOF) {
			return frames
		}
		if err != nil {
			t.Fatalf("ReadFrame() error = %v", err)
		}
		frames = append(frames, f)
	}

	t.Fatal("stream never ended")
	return nil
}

func totalFrames(frames []audio.Frame) int {
	n := 0
	for _, f := range frames {
		n += f.Frames()
	}

	return n
}

func TestStream_SingleSection(t *testing.T) {
	t.Parallel()

	data := oggFile(t, monoChain(1, "TITLE=Tune", "ARTIST=Someone", "REPLAYGAIN_TRACK_GAIN=-3.5 dB"))
	s, _ := openFake(t, vfs.NewMemFile("tune.ogg", data, false))
	defer s.Close()

	info := s.Info()
	if info.Title != "Someone - Tune" || info.SampleRate != 8000 || info.Channels != 1 {
		t.Errorf("info = %+v", info)
	}
	if info.Duration != 93750*time.Microsecond || !info.Seekable {
		t.Errorf("Duration/Seekable = %v/%v", info.Duration, info.Seekable)
	}
	if info.Format != audio.FormatFloat || info.Bitrate != 96000 {
		t.Errorf("Format/Bitrate = %v/%d", info.Format, info.Bitrate)
	}
	if !info.Gain.Present || info.Gain.TrackGain != -3.5 {
		t.Errorf("Gain = %+v", info.Gain)
	}

	frames := readAll(t, s)
	if got := totalFrames(frames); got != 750 {
		t.Errorf("decoded %d frames, want 750 after end trim", got)
	}
	if frames[1].Start != 12500*time.Microsecond {
		t.Errorf("second block starts at %v, want 12.5ms", frames[1].Start)
	}
	if last := frames[len(frames)-1]; last.Frames() != 50 {
		t.Errorf("last block has %d frames, want 50", last.Frames())
	}
}

func TestStream_Chained(t *testing.T) {
	t.Parallel()

	second := chain{
		serial:   2,
		rate:     16000,
		channels: 2,
		comments: []string{"TITLE=Second"},
		pages:    []page{{320, [][]byte{audioPacket(160, 1), audioPacket(160, 2)}}},
	}
	data := oggFile(t, monoChain(1, "TITLE=First"), second)

	s, _ := openFake(t, vfs.NewMemFile("chain.ogg", data, false))
	defer s.Close()

	if d := s.Info().Duration; d != 93750*time.Microsecond+20*time.Millisecond {
		t.Errorf("Duration = %v, want the sum of both sections", d)
	}

	var (
		sawSecond bool
		frames    int
	)
	for {
		f, err := s.ReadFrame()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.Fatalf("ReadFrame() error = %v", err)
		}
		frames++

		if f.Section == 0 {
			continue
		}

		info := s.Info()
		if !sawSecond {
			sawSecond = true
			if f.Start != 93750*time.Microsecond {
				t.Errorf("second section starts at %v", f.Start)
			}
			if info.Title != "Second" || info.SampleRate != 16000 || info.Channels != 2 || info.Section != 1 {
				t.Errorf("info after switch = %+v", info)
			}
		}
		if f.Channels != 2 || f.SampleRate != 16000 {
			t.Errorf("frame format = %d ch @ %d", f.Channels, f.SampleRate)
		}
	}

	if !sawSecond || frames != 10 {
		t.Errorf("sawSecond = %v, frames = %d", sawSecond, frames)
	}
}

func TestStream_SectionWithTooManyChannels(t *testing.T) {
	t.Parallel()

	surround := chain{serial: 2, rate: 48000, channels: 6, pages: []page{{100, [][]byte{audioPacket(100, 1)}}}}
	data := oggFile(t, monoChain(1), surround)

	s, _ := openFake(t, vfs.NewMemFile("chain.ogg", data, false))
	defer s.Close()

	var err error
	for range 100 {
		if _, err = s.ReadFrame(); err != nil {
			break
		}
	}
	if !errors.Is(err, audio.ErrUnsupportedChannels) {
		t.Errorf("err = %v, want ErrUnsupportedChannels", err)
	}
}

func TestOpen_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		data []byte
		want error
	}{
		{name: "not ogg", data: []byte("plain text, no pages here"), want: audio.ErrNotOurFormat},
		{
			name: "six channels",
			data: oggFile(t, chain{serial: 1, rate: 48000, channels: 6}),
			want: audio.ErrUnsupportedChannels,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := fakeBackend(&decoderStats{}).Open(vfs.NewMemFile("x.ogg", tt.data, false))
			if !errors.Is(err, tt.want) {
				t.Errorf("Open() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestStream_SkipsUndecodablePackets(t *testing.T) {
	t.Parallel()

	c := monoChain(1)
	c.pages[1].packets[0] = []byte{0, 0xff, 0xff, 0}
	s, stats := openFake(t, vfs.NewMemFile("hole.ogg", oggFile(t, c), false))
	defer s.Close()

	if got := totalFrames(readAll(t, s)); got != 650 {
		t.Errorf("decoded %d frames, want 650", got)
	}
	if stats.decodes != 8 {
		t.Errorf("decodes = %d, want 8", stats.decodes)
	}
}

func TestStream_Seek(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		to        time.Duration
		wantStart time.Duration
		wantLevel float32
		clears    int
		created   int
	}{
		// 400 samples: resume at the page after granule 400.
		{name: "page boundary", to: 50 * time.Millisecond, wantStart: 50 * time.Millisecond, wantLevel: 50, clears: 1, created: 1},
		// 520 samples: 120 frames dropped from the page after granule 400.
		{name: "inside page", to: 65 * time.Millisecond, wantStart: 65 * time.Millisecond, wantLevel: 60, clears: 1, created: 1},
		// Before the first granule the section restarts from its headers.
		{name: "first page", to: 10 * time.Millisecond, wantStart: 10 * time.Millisecond, wantLevel: 10, created: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			s, stats := openFake(t, vfs.NewMemFile("seek.ogg", oggFile(t, monoChain(1)), false))
			defer s.Close()

			if _, err := s.ReadFrame(); err != nil {
				t.Fatalf("ReadFrame() error = %v", err)
			}

			if err := s.Seek(tt.to); err != nil {
				t.Fatalf("Seek() error = %v", err)
			}

			f, err := s.ReadFrame()
			if err != nil {
				t.Fatalf("ReadFrame() after seek error = %v", err)
			}
			if f.Start != tt.wantStart {
				t.Errorf("Start = %v, want %v", f.Start, tt.wantStart)
			}
			if got := f.F32[0] * 255; got < tt.wantLevel-0.01 || got > tt.wantLevel+0.01 {
				t.Errorf("level = %v, want %v", got, tt.wantLevel)
			}
			if stats.clears != tt.clears || stats.created != tt.created {
				t.Errorf("clears/created = %d/%d, want %d/%d", stats.clears, stats.created, tt.clears, tt.created)
			}
		})
	}
}

func TestStream_SeekIntoOtherSection(t *testing.T) {
	t.Parallel()

	second := chain{
		serial:   2,
		rate:     8000,
		channels: 1,
		pages: []page{
			{80, [][]byte{audioPacket(80, 1)}},
			{160, [][]byte{audioPacket(80, 2)}},
		},
	}
	s, _ := openFake(t, vfs.NewMemFile("chain.ogg", oggFile(t, monoChain(1), second), false))
	defer s.Close()

	if err := s.Seek(93750*time.Microsecond + 10*time.Millisecond); err != nil {
		t.Fatalf("Seek() error = %v", err)
	}

	f, err := s.ReadFrame()
	if err != nil {
		t.Fatalf("ReadFrame() error = %v", err)
	}
	if f.Section != 1 || f.Start != 93750*time.Microsecond+10*time.Millisecond {
		t.Errorf("frame section %d start %v", f.Section, f.Start)
	}
}

func TestStream_Streaming(t *testing.T) {
	t.Parallel()

	f := namedFile{
		MemFile: vfs.NewMemFile("http://radio.example/live", oggFile(t, monoChain(1, "TITLE=Live Show")), true),
		station: "Radio X",
	}
	s, _ := openFake(t, f)
	defer s.Close()

	info := s.Info()
	if info.Title != "Live Show (Radio X)" {
		t.Errorf("Title = %q", info.Title)
	}
	if info.Duration != audio.UnknownDuration || info.Seekable {
		t.Errorf("Duration/Seekable = %v/%v", info.Duration, info.Seekable)
	}
	if err := s.Seek(time.Second); !errors.Is(err, audio.ErrSeekUnsupported) {
		t.Errorf("Seek() error = %v, want ErrSeekUnsupported", err)
	}
	if got := totalFrames(readAll(t, s)); got != 750 {
		t.Errorf("decoded %d frames, want 750", got)
	}
}
