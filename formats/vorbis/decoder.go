// SPDX-License-Identifier: EPL-2.0

package vorbis

import (
	"fmt"

	"github.com/jfreymuth/vorbis"
)

// packetDecoder is the part of vorbis.Decoder the stream drives, so tests
// can script decoded output.
type packetDecoder interface {
	ReadHeader(packet []byte) error
	Decode(packet []byte) ([]float32, error)
	Clear()
	SampleRate() int
	Channels() int
	Comments() (vendor string, list []string)
}

type libraryDecoder struct {
	dec vorbis.Decoder
}

func newLibraryDecoder() packetDecoder { return &libraryDecoder{} }

func (d *libraryDecoder) ReadHeader(p []byte) error {
	if err := d.dec.ReadHeader(p); err != nil {
		return fmt.Errorf("%w", err)
	}

	return nil
}

func (d *libraryDecoder) Decode(p []byte) ([]float32, error) {
	out, err := d.dec.Decode(p)
	if err != nil {
		return nil, fmt.Errorf("%w", err)
	}

	return out, nil
}

func (d *libraryDecoder) Clear()          { d.dec.Clear() }
func (d *libraryDecoder) SampleRate() int { return d.dec.SampleRate() }
func (d *libraryDecoder) Channels() int   { return d.dec.Channels() }

func (d *libraryDecoder) Comments() (string, []string) {
	return d.dec.CommentHeader.Vendor, d.dec.CommentHeader.Comments
}
