// SPDX-License-Identifier: EPL-2.0

package aac

import (
	"fmt"

	aacdec "github.com/llehouerou/go-aac"

	"github.com/ik5/audplay/audio"
	"github.com/ik5/audplay/utils"
)

// MaxFrameSize bounds a single compressed unit handed to the decoder, and
// the raw AAC fill buffer.
const MaxFrameSize = aacdec.MinStreamSize * 64

// codec is an interface for aacdec.Decoder to allow testing
type codec interface {
	Config() aacdec.Config
	SetConfiguration(aacdec.Config)
	Init([]byte) (aacdec.InitResult, error)
	Init2([]byte) (aacdec.InitResult, error)
	Decode([]byte) (interface{}, *aacdec.FrameInfo, error)
	PostSeekReset(int64)
	Close()
}

func newLibraryCodec() codec { return aacdec.NewDecoder() }

// Result is one decoded frame.
type Result struct {
	Samples  []int16 // interleaved
	Consumed int     // compressed bytes used
	Frames   int     // samples per channel
	Channels int
}

// Decoder adapts the AAC library to the playback loop: configuration from
// an MP4 decoder config or from the leading bytes of a raw stream, frame
// decoding to 16-bit PCM, and the legacy ADTS fallback.
type Decoder struct {
	c        codec
	newCodec func() codec
	legacy   bool
	closed   bool
	channels int
}

// NewDecoder opens a decoder producing 16-bit output.
func NewDecoder() *Decoder {
	return newDecoder(newLibraryCodec)
}

func newDecoder(factory func() codec) *Decoder {
	d := &Decoder{newCodec: factory}
	d.c = d.open(false)

	return d
}

func (d *Decoder) open(legacy bool) codec {
	c := d.newCodec()
	cfg := c.Config()
	cfg.OutputFormat = aacdec.OutputFormat16Bit
	cfg.UseOldADTSFormat = legacy
	c.SetConfiguration(cfg)

	return c
}

// Legacy reports whether the decoder runs with the old ADTS framing.
func (d *Decoder) Legacy() bool { return d.legacy }

// InitConfig initializes from an AudioSpecificConfig.
func (d *Decoder) InitConfig(asc []byte) (sampleRate, channels int, err error) {
	res, err := d.c.Init2(asc)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %w", audio.ErrConfigInit, err)
	}

	d.channels = int(res.Channels)

	return int(res.SampleRate), int(res.Channels), nil
}

// InitStream initializes from the first bytes of a raw stream and reports
// how many of them the decoder consumed.
func (d *Decoder) InitStream(buf []byte) (sampleRate, channels, consumed int, err error) {
	res, err := d.c.Init(buf)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("%w: %w", audio.ErrConfigInit, err)
	}

	d.channels = int(res.Channels)

	return int(res.SampleRate), int(res.Channels), int(res.BytesRead), nil
}

// ReopenLegacy closes the decoder, reopens it with the old ADTS framing and
// initializes it again from buf.
func (d *Decoder) ReopenLegacy(buf []byte) (sampleRate, channels, consumed int, err error) {
	d.c.Close()
	d.c = d.open(true)
	d.legacy = true

	return d.InitStream(buf)
}

// Decode decodes one frame from the start of buf.
func (d *Decoder) Decode(buf []byte) (Result, error) {
	out, info, err := d.c.Decode(buf)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %w", audio.ErrDecode, err)
	}
	if info == nil {
		return Result{}, fmt.Errorf("%w: no frame info", audio.ErrDecode)
	}
	if info.Error != aacdec.ErrNone {
		return Result{}, fmt.Errorf("%w: %w", audio.ErrDecode, info.Error)
	}

	res := Result{
		Consumed: int(info.BytesConsumed),
		Channels: int(info.Channels),
	}
	if res.Channels == 0 {
		res.Channels = d.channels
	}

	switch s := out.(type) {
	case []int16:
		res.Samples = s
	case []float32:
		res.Samples = utils.Float32sToInt16(nil, s)
	}

	if n := int(info.Samples); n < len(res.Samples) {
		res.Samples = res.Samples[:n]
	}
	if res.Channels > 0 {
		res.Frames = len(res.Samples) / res.Channels
	}

	return res, nil
}

// PostSeekReset tells the decoder the next frame is not contiguous.
func (d *Decoder) PostSeekReset(frame int64) {
	d.c.PostSeekReset(frame)
}

// Close releases the decoder. It is safe to call more than once.
func (d *Decoder) Close() error {
	if d.closed {
		return nil
	}

	d.closed = true
	d.c.Close()

	return nil
}
