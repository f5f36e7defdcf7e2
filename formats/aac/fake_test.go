// SPDX-License-Identifier: EPL-2.0

package aac

import (
	"errors"
	"sync"

	aacdec "github.com/llehouerou/go-aac"
)

// codecLog records what every fake codec created by one factory saw.
type codecLog struct {
	mu      sync.Mutex
	opened  int
	closed  int
	inits   [][]byte
	resets  []int64
	decodes int
}

// fakeCodec decodes ADTS frames by their header: it consumes one frame and
// returns 1024 samples per channel.
type fakeCodec struct {
	log      *codecLog
	cfg      aacdec.Config
	rate     uint32
	channels uint8
	initErr  error
	// fail makes Decode report a bitstream error while it returns true.
	fail func(legacy bool, call int) bool
	// produce overrides the decoded sample count per channel.
	produce *int
	// consume overrides the bytes consumed.
	consume *int
}

func (f *fakeCodec) Config() aacdec.Config              { return f.cfg }
func (f *fakeCodec) SetConfiguration(cfg aacdec.Config) { f.cfg = cfg }

func (f *fakeCodec) Init(buf []byte) (aacdec.InitResult, error) {
	f.log.mu.Lock()
	f.log.inits = append(f.log.inits, append([]byte(nil), buf...))
	f.log.mu.Unlock()

	if f.initErr != nil {
		return aacdec.InitResult{}, f.initErr
	}

	return aacdec.InitResult{SampleRate: f.rate, Channels: f.channels}, nil
}

func (f *fakeCodec) Init2(asc []byte) (aacdec.InitResult, error) {
	return f.Init(asc)
}

func (f *fakeCodec) Decode(buf []byte) (interface{}, *aacdec.FrameInfo, error) {
	f.log.mu.Lock()
	f.log.decodes++
	call := f.log.decodes
	f.log.mu.Unlock()

	if f.fail != nil && f.fail(f.cfg.UseOldADTSFormat, call) {
		return nil, &aacdec.FrameInfo{Error: aacdec.ErrADTSSyncwordNotFound}, nil
	}

	consumed := len(buf)
	if h, ok := parseADTS(buf); ok && h.FrameLength <= len(buf) {
		consumed = h.FrameLength
	}
	if f.consume != nil {
		consumed = *f.consume
	}

	frames := 1024
	if f.produce != nil {
		frames = *f.produce
	}

	samples := make([]int16, frames*int(f.channels))
	for i := range samples {
		samples[i] = int16(i)
	}

	return samples, &aacdec.FrameInfo{
		BytesConsumed: uint32(consumed),
		Samples:       uint32(len(samples)),
		Channels:      f.channels,
		SampleRate:    f.rate,
	}, nil
}

func (f *fakeCodec) PostSeekReset(frame int64) {
	f.log.mu.Lock()
	f.log.resets = append(f.log.resets, frame)
	f.log.mu.Unlock()
}

func (f *fakeCodec) Close() {
	f.log.mu.Lock()
	f.log.closed++
	f.log.mu.Unlock()
}

// factory returns a codec constructor cloning proto for every open.
func (l *codecLog) factory(proto fakeCodec) func() codec {
	return func() codec {
		l.mu.Lock()
		l.opened++
		l.mu.Unlock()

		c := proto
		c.log = l

		return &c
	}
}

type codecStats struct {
	opened, closed, decodes int
	inits                   [][]byte
	resets                  []int64
}

func (l *codecLog) snapshot() codecStats {
	l.mu.Lock()
	defer l.mu.Unlock()

	return codecStats{
		opened:  l.opened,
		closed:  l.closed,
		decodes: l.decodes,
		inits:   l.inits,
		resets:  l.resets,
	}
}

var errFakeInit = errors.New("fake init failure")

// adtsFrame builds one ADTS frame (no CRC) with a payload of n bytes.
func adtsFrame(sfIndex, channels, n int) []byte {
	length := adtsHeaderSize + n
	h := []byte{
		0xFF,
		0xF1,
		byte(1<<6 | sfIndex<<2 | channels>>2),
		byte((channels&3)<<6 | (length>>11)&0x03),
		byte(length >> 3),
		byte((length&7)<<5 | 0x1F),
		0xFC,
	}

	return append(h, make([]byte, n)...)
}

func adtsStream(frames, payload int) []byte {
	var out []byte
	for range frames {
		out = append(out, adtsFrame(4, 2, payload)...)
	}

	return out
}
