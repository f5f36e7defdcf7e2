// SPDX-License-Identifier: EPL-2.0

package aac

// id3HeaderSize is the fixed ID3v2 header length.
const id3HeaderSize = 10

// ID3Size returns the number of bytes taken by a leading ID3v2 tag, header
// included, or 0 when b does not start with one. The size is a 28-bit
// syncsafe integer in bytes 6..9.
func ID3Size(b []byte) int {
	if len(b) < id3HeaderSize || b[0] != 'I' || b[1] != 'D' || b[2] != '3' {
		return 0
	}

	size := int(b[6]&0x7f)<<21 | int(b[7]&0x7f)<<14 | int(b[8]&0x7f)<<7 | int(b[9]&0x7f)

	return size + id3HeaderSize
}
