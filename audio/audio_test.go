// SPDX-License-Identifier: EPL-2.0

package audio

import (
	"errors"
	"testing"
	"time"

	"github.com/ik5/audplay/vfs"
)

// mockBackend claims headers starting with its magic.
type mockBackend struct {
	name  string
	magic string
}

func (b *mockBackend) Name() string { return b.name }

func (b *mockBackend) Probe(_ string, header []byte) bool {
	return len(header) >= len(b.magic) && string(header[:len(b.magic)]) == b.magic
}

func (b *mockBackend) Open(vfs.File) (Stream, error)       { return nil, errors.New("not implemented") }
func (b *mockBackend) Metadata(vfs.File) (Metadata, error) { return Metadata{}, nil }

func TestRegistry_RegisterAndGet(t *testing.T) {
	t.Parallel()

	registry := NewRegistry()
	backend := &mockBackend{name: "aac", magic: "ADTS"}

	registry.Register(backend)

	got, ok := registry.Get("aac")
	if !ok {
		t.Fatal("Registry.Get() failed to retrieve registered backend")
	}

	if got != backend {
		t.Error("Registry.Get() returned different backend instance")
	}

	if _, ok := registry.Get("flac"); ok {
		t.Error("Registry.Get() returned ok=true for non-existent backend")
	}
}

func TestRegistry_ProbeOrder(t *testing.T) {
	t.Parallel()

	registry := NewRegistry()
	first := &mockBackend{name: "first", magic: "Og"}
	second := &mockBackend{name: "second", magic: "OggS"}
	registry.Register(first)
	registry.Register(second)

	tests := []struct {
		name    string
		header  string
		want    Backend
		wantErr error
	}{
		{"first registered wins", "OggS....", first, nil},
		{"nothing matches", "RIFF....", nil, ErrNotOurFormat},
		{"empty header", "", nil, ErrNotOurFormat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := registry.Probe("x.ogg", []byte(tt.header))
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Probe() error = %v, want %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("Probe() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRegistry_ProbeFileKeepsPosition(t *testing.T) {
	t.Parallel()

	registry := NewRegistry()
	registry.Register(&mockBackend{name: "aac", magic: "\xFF\xF9"})

	f := vfs.NewMemFile("a.aac", []byte{0xFF, 0xF9, 0x5C, 0x80, 1, 2, 3}, false)
	b, err := registry.ProbeFile(f)
	if err != nil || b.Name() != "aac" {
		t.Fatalf("ProbeFile() = %v, %v", b, err)
	}

	if pos, _ := f.Tell(); pos != 0 {
		t.Errorf("position after probe = %d, want 0", pos)
	}
}

func TestFormatTitle(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		tags Tags
		file string
		want string
	}{
		{"title only", Tags{Title: "Song"}, "/a/b.m4a", "Song"},
		{"artist and title", Tags{Title: "Song", Artist: "Band"}, "/a/b.m4a", "Band - Song"},
		{"fallback to file name", Tags{}, "/music/Track 01.ogg", "Track 01"},
		{"blank title falls back", Tags{Title: "  "}, "x.aac", "x"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := FormatTitle(tt.tags, tt.file); got != tt.want {
				t.Errorf("FormatTitle() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFrame_Duration(t *testing.T) {
	t.Parallel()

	f := Frame{
		Block:      Block{Format: FormatS16, Channels: 2, S16: make([]int16, 2048)},
		SampleRate: 44100,
	}

	want := time.Duration(1024) * time.Second / 44100
	if got := f.Duration(); got != want {
		t.Errorf("Duration() = %v, want %v", got, want)
	}

	if (Frame{}).Duration() != 0 {
		t.Error("zero frame should have zero duration")
	}
}

func TestBlock_Conversions(t *testing.T) {
	t.Parallel()

	s16 := Block{Format: FormatS16, Channels: 2, S16: []int16{0, 16384, -32768, 32767}}
	if s16.Frames() != 2 || s16.Samples() != 4 {
		t.Fatalf("Frames/Samples = %d/%d", s16.Frames(), s16.Samples())
	}

	f := s16.Float32(nil)
	if f[0] != 0 || f[1] != 0.5 || f[2] != -1 {
		t.Errorf("Float32() = %v", f)
	}

	flt := Block{Format: FormatFloat, Channels: 1, F32: []float32{0.5, -2}}
	i := flt.Int16(nil)
	if i[0] != 16383 || i[1] != -32767 {
		t.Errorf("Int16() = %v", i)
	}

	flt.Scale(0.5)
	if flt.F32[0] != 0.25 {
		t.Errorf("Scale() = %v", flt.F32)
	}
}
