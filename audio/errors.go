// SPDX-License-Identifier: EPL-2.0

package audio

import "errors"

var (
	ErrInvalidDstSize = errors.New("dst size must be multiple of channels")

	ErrNotOurFormat        = errors.New("not our format")
	ErrSourceUnavailable   = errors.New("source unavailable")
	ErrConfigInit          = errors.New("decoder configuration failed")
	ErrOutputUnavailable   = errors.New("output unavailable")
	ErrDecode              = errors.New("decode error")
	ErrUnsupportedChannels = errors.New("unsupported channel layout")
	ErrReadSanity          = errors.New("read sanity violation")
	ErrSeekUnsupported     = errors.New("seek not supported")
)
