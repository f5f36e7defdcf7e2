// SPDX-License-Identifier: EPL-2.0

// Package utils converts PCM samples between 16-bit integers and float32.
package utils

import "encoding/binary"

const (
	int16Scale   float32 = 32767
	float32Scale float32 = 1.0 / 32768
)

// Float32ToInt16 clamps x to [-1,1] and scales it by 32767.
func Float32ToInt16(x float32) int16 {
	switch {
	case x >= 1:
		return 32767
	case x <= -1:
		return -32767
	}

	return int16(x * int16Scale)
}

// Int16ToFloat32 scales a 16-bit sample to [-1,1).
func Int16ToFloat32(x int16) float32 {
	return float32(x) * float32Scale
}

// Float32sToInt16 converts src into dst, growing dst as needed.
func Float32sToInt16(dst []int16, src []float32) []int16 {
	if cap(dst) < len(src) {
		dst = make([]int16, len(src))
	}
	dst = dst[:len(src)]

	for i, x := range src {
		dst[i] = Float32ToInt16(x)
	}

	return dst
}

// Int16sToFloat32 converts src into dst, growing dst as needed.
func Int16sToFloat32(dst []float32, src []int16) []float32 {
	if cap(dst) < len(src) {
		dst = make([]float32, len(src))
	}
	dst = dst[:len(src)]

	for i, x := range src {
		dst[i] = float32(x) * float32Scale
	}

	return dst
}

// AppendInt16LE appends src as signed 16-bit little endian PCM.
func AppendInt16LE(dst []byte, src []float32) []byte {
	for _, x := range src {
		dst = binary.LittleEndian.AppendUint16(dst, uint16(Float32ToInt16(x)))
	}

	return dst
}
