// SPDX-License-Identifier: EPL-2.0

package audio

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/ik5/audplay/vfs"
)

// HeaderSize is how many leading bytes are peeked for format probing.
const HeaderSize = 64

// UnknownDuration marks streams whose length cannot be determined.
const UnknownDuration time.Duration = -1

// Frame is one decoded block as it leaves a Stream.
type Frame struct {
	Block

	SampleRate int
	// Section is bumped by streams that switch to a new logical bitstream
	// (chained Ogg).
	Section int
	// Start is the stream time of the first sample in the block.
	Start time.Duration
}

// Duration of the block at its sample rate.
func (f Frame) Duration() time.Duration {
	if f.SampleRate <= 0 {
		return 0
	}

	return time.Duration(f.Frames()) * time.Second / time.Duration(f.SampleRate)
}

// Tags holds the textual metadata a backend could extract.
type Tags struct {
	Title   string
	Artist  string
	Album   string
	Date    string
	Genre   string
	Comment string
	Codec   string
	Year    int
	Track   int
}

// StreamInfo describes an opened stream. Streams update it when a new
// section starts.
type StreamInfo struct {
	Title      string
	Duration   time.Duration // UnknownDuration when not known
	Bitrate    int           // bits per second, 0 when not known
	SampleRate int
	Channels   int
	Format     SampleFormat
	FrameSize  int
	Seekable   bool
	Section    int
	Gain       ReplayGain
	Tags       Tags
}

// Metadata is what a backend reports about a file without playing it.
type Metadata struct {
	Tags

	Duration   time.Duration
	Bitrate    int
	SampleRate int
	Channels   int
}

// Stream is an opened, decoding audio stream. It is used from a single
// goroutine.
type Stream interface {
	Info() StreamInfo
	// ReadFrame returns the next decoded block, or io.EOF at the end.
	ReadFrame() (Frame, error)
	// Seek repositions to t. Streams that cannot seek return
	// ErrSeekUnsupported.
	Seek(t time.Duration) error
	// Close releases the decoder. The byte source is owned by the caller.
	Close() error
}

// Backend recognizes and opens one family of formats.
type Backend interface {
	Name() string
	// Probe reports whether header (the first HeaderSize bytes or fewer)
	// together with the file name belongs to this backend.
	Probe(name string, header []byte) bool
	Open(f vfs.File) (Stream, error)
	Metadata(f vfs.File) (Metadata, error)
}

// Registry keeps backends in registration order.
type Registry struct {
	backends []Backend

	mtx *sync.Mutex
}

func NewRegistry() *Registry {
	return &Registry{
		mtx: &sync.Mutex{},
	}
}

func (r *Registry) Register(b Backend) {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	r.backends = append(r.backends, b)
}

func (r *Registry) Get(name string) (Backend, bool) {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	for _, b := range r.backends {
		if b.Name() == name {
			return b, true
		}
	}

	return nil, false
}

// Backends returns a snapshot of the registered backends.
func (r *Registry) Backends() []Backend {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	out := make([]Backend, len(r.backends))
	copy(out, r.backends)

	return out
}

// Probe returns the first backend claiming the header, or ErrNotOurFormat.
func (r *Registry) Probe(name string, header []byte) (Backend, error) {
	for _, b := range r.Backends() {
		if b.Probe(name, header) {
			return b, nil
		}
	}

	return nil, fmt.Errorf("%w: %s", ErrNotOurFormat, filepath.Base(name))
}

// ProbeFile peeks at f without consuming it and probes the header.
func (r *Registry) ProbeFile(f vfs.File) (Backend, error) {
	header, err := f.Peek(HeaderSize)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSourceUnavailable, err)
	}

	return r.Probe(f.Name(), header)
}

// FormatTitle builds the display title from tags, falling back to the file
// name without its extension.
func FormatTitle(tags Tags, name string) string {
	title := strings.TrimSpace(tags.Title)
	if title == "" {
		base := filepath.Base(name)
		title = strings.TrimSuffix(base, filepath.Ext(base))
	}

	if artist := strings.TrimSpace(tags.Artist); artist != "" {
		return artist + " - " + title
	}

	return title
}
