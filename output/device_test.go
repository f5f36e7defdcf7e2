// SPDX-License-Identifier: EPL-2.0

package output

import (
	"context"
	"encoding/binary"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/ik5/audplay/audio"
)

// fakePlayer reads the pipe like oto does, unless blocked is set. With
// prefill set it holds that many bytes before it starts and plays them out
// at once, so a source shorter than prefill only plays once it ends.
type fakePlayer struct {
	mu       sync.Mutex
	data     []byte
	playing  bool
	started  bool
	closed   bool
	buffered int
	prefill  int
	done     chan struct{}
}

type fakeHardware struct {
	mu      sync.Mutex
	rate    int
	chans   int
	block   bool
	prefill int
	players []*fakePlayer
}

func (h *fakeHardware) factory(int, int) (playerFactory, int, int, error) {
	return func(r io.Reader) player {
		h.mu.Lock()
		p := &fakePlayer{prefill: h.prefill, done: make(chan struct{})}
		h.players = append(h.players, p)
		block := h.block
		h.mu.Unlock()

		go func() {
			defer close(p.done)
			if block {
				return
			}
			buf := make([]byte, 512)
			for {
				n, err := r.Read(buf)
				p.mu.Lock()
				p.data = append(p.data, buf[:n]...)
				if p.prefill > 0 && !p.started {
					p.buffered += n
					if p.buffered >= p.prefill {
						p.started, p.buffered = true, 0
					}
				}
				if err != nil {
					p.started, p.playing = true, false
					if p.prefill > 0 {
						p.buffered = 0
					}
				}
				p.mu.Unlock()
				if err != nil {
					return
				}
			}
		}()

		return p
	}, h.rate, h.chans, nil
}

func (h *fakeHardware) last() *fakePlayer {
	h.mu.Lock()
	defer h.mu.Unlock()

	return h.players[len(h.players)-1]
}

func (p *fakePlayer) Play()  { p.mu.Lock(); p.playing = true; p.mu.Unlock() }
func (p *fakePlayer) Pause() { p.mu.Lock(); p.playing = false; p.mu.Unlock() }

func (p *fakePlayer) IsPlaying() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.playing
}

func (p *fakePlayer) BufferedSize() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.buffered
}

func (p *fakePlayer) Close() error {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()

	return nil
}

func (p *fakePlayer) bytes() []byte {
	p.mu.Lock()
	defer p.mu.Unlock()

	return append([]byte(nil), p.data...)
}

func waitUntil(t *testing.T, what string, cond func() bool) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(time.Millisecond)
	}
}

func s16(channels int, samples ...int16) audio.Block {
	return audio.Block{Format: audio.FormatS16, Channels: channels, S16: samples}
}

func TestDevice_WritesStereoS16(t *testing.T) {
	t.Parallel()

	hw := &fakeHardware{rate: 8000, chans: 2}
	d := &Device{newPlayer: hw.factory}

	if err := d.Open(audio.FormatS16, 8000, 2); err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if err := d.Write(context.Background(), s16(2, 16384, -16384, 0, 0)); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	p := hw.last()
	if err := d.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	<-p.done

	got := p.bytes()
	if len(got) != 8 {
		t.Fatalf("device got %d bytes, want 8", len(got))
	}
	if v := int16(binary.LittleEndian.Uint16(got)); v < 16380 || v > 16384 {
		t.Errorf("first sample = %d", v)
	}
	if !p.closed {
		t.Error("player not closed")
	}
	if d.WrittenTime() != 250*time.Microsecond {
		t.Errorf("WrittenTime = %v, want 250µs", d.WrittenTime())
	}
}

func TestDevice_ConvertsMonoAndRate(t *testing.T) {
	t.Parallel()

	hw := &fakeHardware{rate: 16000, chans: 2}
	d := &Device{newPlayer: hw.factory}

	if err := d.Open(audio.FormatFloat, 8000, 1); err != nil {
		t.Fatalf("Open() error = %v", err)
	}

	block := audio.Block{Format: audio.FormatFloat, Channels: 1, F32: make([]float32, 100)}
	if err := d.Write(context.Background(), block); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	p := hw.last()
	d.Close()
	<-p.done

	// 100 mono frames at 8 kHz become 200 stereo frames at 16 kHz.
	if got := len(p.bytes()); got != 200*2*2 {
		t.Errorf("device got %d bytes, want 800", got)
	}
	if d.WrittenTime() != 12500*time.Microsecond {
		t.Errorf("WrittenTime = %v, want 12.5ms", d.WrittenTime())
	}
}

func TestDevice_WriteUnblocksOnCancel(t *testing.T) {
	t.Parallel()

	hw := &fakeHardware{rate: 44100, chans: 2, block: true}
	d := &Device{newPlayer: hw.factory}
	if err := d.Open(audio.FormatS16, 44100, 2); err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer d.Close()

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- d.Write(ctx, s16(2, 1, 2)) }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-errc:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Write() error = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Write did not return after cancel")
	}
}

func TestDevice_FlushAndClocks(t *testing.T) {
	t.Parallel()

	hw := &fakeHardware{rate: 1000, chans: 1}
	d := &Device{newPlayer: hw.factory}
	if err := d.Open(audio.FormatS16, 1000, 1); err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer d.Close()

	first := hw.last()
	d.Flush(5 * time.Second)
	if !first.closed {
		t.Error("flush kept the old player")
	}

	if err := d.Write(context.Background(), s16(1, make([]int16, 500)...)); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	p := hw.last()
	p.mu.Lock()
	p.buffered = 200 // 100 frames of 16-bit mono
	p.mu.Unlock()

	if got := d.WrittenTime(); got != 5500*time.Millisecond {
		t.Errorf("WrittenTime = %v, want 5.5s", got)
	}
	if got := d.OutputTime(); got != 5400*time.Millisecond {
		t.Errorf("OutputTime = %v, want 5.4s", got)
	}
	if !d.BufferPlaying() {
		t.Error("BufferPlaying = false with buffered data")
	}
}

func TestDevice_DrainShortStream(t *testing.T) {
	t.Parallel()

	hw := &fakeHardware{rate: 1000, chans: 1, prefill: 1000}
	d := &Device{newPlayer: hw.factory}
	if err := d.Open(audio.FormatS16, 1000, 1); err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer d.Close()

	// 100 frames are less than the player holds before it starts.
	if err := d.Write(context.Background(), s16(1, make([]int16, 100)...)); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	first := hw.last()
	waitUntil(t, "buffered audio", func() bool { return first.BufferedSize() == 200 })
	if !d.BufferPlaying() {
		t.Error("BufferPlaying = false with audio still held")
	}

	d.Drain()
	d.Drain()
	waitUntil(t, "playout", func() bool { return !d.BufferPlaying() })
	if got := len(first.bytes()); got != 200 {
		t.Errorf("player got %d bytes, want 200", got)
	}

	if err := d.Write(context.Background(), s16(1, 1, 2)); err != nil {
		t.Fatalf("Write() after Drain error = %v", err)
	}
	if hw.last() == first {
		t.Error("write after Drain reused the ended player")
	}
	if !first.closed {
		t.Error("ended player not closed")
	}
	if got := d.WrittenTime(); got != 102*time.Millisecond {
		t.Errorf("WrittenTime = %v, want 102ms", got)
	}
}

func TestDevice_Pause(t *testing.T) {
	t.Parallel()

	hw := &fakeHardware{rate: 8000, chans: 2}
	d := &Device{newPlayer: hw.factory}
	d.Pause(true) // before Open is a no-op

	if err := d.Open(audio.FormatS16, 8000, 2); err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer d.Close()

	p := hw.last()
	d.Pause(true)
	if p.IsPlaying() {
		t.Error("player still playing after Pause(true)")
	}

	// A flush while paused keeps the new player paused.
	d.Flush(0)
	if hw.last().IsPlaying() {
		t.Error("new player started while paused")
	}

	d.Pause(false)
	if !hw.last().IsPlaying() {
		t.Error("player not resumed")
	}
}

func TestDevice_Errors(t *testing.T) {
	t.Parallel()

	hw := &fakeHardware{rate: 8000, chans: 2}
	d := &Device{newPlayer: hw.factory}

	if err := d.Write(context.Background(), s16(2, 1, 1)); !errors.Is(err, ErrNotOpen) {
		t.Errorf("Write before Open = %v, want ErrNotOpen", err)
	}
	d.Drain()
	if d.BufferPlaying() {
		t.Error("BufferPlaying = true before Open")
	}
	if err := d.Close(); err != nil {
		t.Errorf("Close before Open = %v", err)
	}
	if err := d.Open(audio.FormatS16, 0, 2); !errors.Is(err, ErrInvalidFormat) {
		t.Errorf("Open(rate 0) = %v, want ErrInvalidFormat", err)
	}

	if err := d.Open(audio.FormatS16, 8000, 2); err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer d.Close()

	if err := d.Write(context.Background(), s16(1, 1)); !errors.Is(err, ErrInvalidFormat) {
		t.Errorf("Write(mono block) = %v, want ErrInvalidFormat", err)
	}
}

func TestClock(t *testing.T) {
	t.Parallel()

	c := NewClock()
	if c.Time() != 0 {
		t.Errorf("zero clock = %v", c.Time())
	}

	c.Reset(time.Second, 48000)
	c.Advance(24000)
	if got := c.Time(); got != 1500*time.Millisecond {
		t.Errorf("Time = %v, want 1.5s", got)
	}
}
