// SPDX-License-Identifier: EPL-2.0

package mp4

import "errors"

var (
	ErrNotFound  = errors.New("mp4: no playable AAC track")
	ErrRead      = errors.New("mp4: sample read failed")
	ErrMalformed = errors.New("mp4: malformed box")
)
