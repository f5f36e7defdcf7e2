// SPDX-License-Identifier: EPL-2.0

package wav

import "errors"

var (
	ErrNoPath    = errors.New("wav: no output path")
	ErrNotOpen   = errors.New("wav: sink is not open")
	ErrBadFormat = errors.New("wav: invalid output format")
)
