// SPDX-License-Identifier: EPL-2.0

package audplay

import (
	"github.com/rs/zerolog"

	"github.com/ik5/audplay/audio"
	"github.com/ik5/audplay/formats/aac"
	"github.com/ik5/audplay/formats/mp3"
	"github.com/ik5/audplay/formats/vorbis"
)

// DefaultRegistry registers the AAC, Vorbis and MP3 backends, in that
// order, logging to l.
func DefaultRegistry(l zerolog.Logger) *audio.Registry {
	reg := audio.NewRegistry()
	reg.Register(aac.Backend{Log: l.With().Str("backend", "aac").Logger()})
	reg.Register(vorbis.Backend{Log: l.With().Str("backend", "vorbis").Logger()})
	reg.Register(mp3.Backend{Log: l.With().Str("backend", "mp3").Logger()})

	return reg
}
