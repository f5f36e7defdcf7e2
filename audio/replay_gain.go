// SPDX-License-Identifier: EPL-2.0

package audio

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ReplayGain holds gain in dB and peak as a linear amplitude.
type ReplayGain struct {
	TrackGain float64
	TrackPeak float64
	AlbumGain float64
	AlbumPeak float64
	Present   bool
}

// GainMode selects which replay gain value is applied.
type GainMode int

const (
	GainOff GainMode = iota
	GainTrack
	GainAlbum
)

func (m GainMode) String() string {
	switch m {
	case GainTrack:
		return "track"
	case GainAlbum:
		return "album"
	default:
		return "off"
	}
}

func ParseGainMode(s string) (GainMode, error) {
	switch strings.ToLower(s) {
	case "", "off", "none":
		return GainOff, nil
	case "track":
		return GainTrack, nil
	case "album":
		return GainAlbum, nil
	default:
		return GainOff, fmt.Errorf("unknown replay gain mode %q", s)
	}
}

// Scale returns the linear factor for mode plus preamp dB, limited so the
// peak does not clip. Missing album values fall back to track values.
func (g ReplayGain) Scale(mode GainMode, preampDB float64) float64 {
	if mode == GainOff || !g.Present {
		return 1
	}

	gain, peak := g.TrackGain, g.TrackPeak
	if mode == GainAlbum && (g.AlbumGain != 0 || g.AlbumPeak != 0) {
		gain, peak = g.AlbumGain, g.AlbumPeak
	}

	scale := math.Pow(10, (gain+preampDB)/20)
	if peak > 0 && scale*peak > 1 {
		scale = 1 / peak
	}

	return scale
}

// ParseGain reads values like "-6.54 dB" or "0.98".
func ParseGain(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	s = strings.TrimSpace(strings.TrimSuffix(strings.TrimSuffix(s, "dB"), "db"))
	if s == "" {
		return 0, false
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}

	return v, true
}
