// SPDX-License-Identifier: EPL-2.0

package ogg

// Ogg uses CRC-32 with polynomial 0x04c11db7, no reflection, zero initial
// value and no final xor, which hash/crc32 does not provide.
var crcTable = func() (t [256]uint32) {
	for i := range t {
		r := uint32(i) << 24
		for range 8 {
			if r&0x80000000 != 0 {
				r = r<<1 ^ 0x04c11db7
			} else {
				r <<= 1
			}
		}
		t[i] = r
	}

	return t
}()

func crcUpdate(crc uint32, b []byte) uint32 {
	for _, v := range b {
		crc = crc<<8 ^ crcTable[byte(crc>>24)^v]
	}

	return crc
}
