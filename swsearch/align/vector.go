// Copyright © 2023-2024 Wei Shen <shenwei356@gmail.com>
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.

package align

import "math"

// VectorOps abstracts the lane-wise 16-bit operations used by the striped kernel,
// so the same recurrence can run with different vector widths.
// All vectors passed to one VectorOps have exactly Lanes() elements.
type VectorOps interface {
	// Lanes returns the number of 16-bit lanes in a vector.
	Lanes() int

	// Set sets all lanes of dst to v.
	Set(dst []int16, v int16)

	// AddSat sets dst = a + b with signed saturation.
	AddSat(dst, a, b []int16)

	// SubFloor sets dst = max(a - s, 0).
	SubFloor(dst, a []int16, s int16)

	// Max sets dst = max(a, b).
	Max(dst, a, b []int16)

	// ShiftLanes moves every lane of a one lane up into dst, lane 0 becomes 0.
	// It's the inter-lane carry of the striped layout. dst and a may be the same.
	ShiftLanes(dst, a []int16)

	// AnyGreater reports if a > b in any lane.
	AnyGreater(a, b []int16) bool

	// HMax returns the maximum lane value.
	HMax(a []int16) int16
}

// Word8 processes 8 lanes of 16-bit words, the width of a 128-bit register.
var Word8 VectorOps = words(8)

// Word16 processes 16 lanes of 16-bit words, the width of a 256-bit register.
var Word16 VectorOps = words(16)

// words is a portable implementation of VectorOps with a given number of lanes.
type words int

func (w words) Lanes() int { return int(w) }

func (w words) Set(dst []int16, v int16) {
	dst = dst[:w]
	for k := range dst {
		dst[k] = v
	}
}

func (w words) AddSat(dst, a, b []int16) {
	dst, a, b = dst[:w], a[:w], b[:w]
	var v int32
	for k := range dst {
		v = int32(a[k]) + int32(b[k])
		if v > math.MaxInt16 {
			v = math.MaxInt16
		} else if v < math.MinInt16 {
			v = math.MinInt16
		}
		dst[k] = int16(v)
	}
}

func (w words) SubFloor(dst, a []int16, s int16) {
	dst, a = dst[:w], a[:w]
	var v int32
	for k := range dst {
		v = int32(a[k]) - int32(s)
		if v < 0 {
			v = 0
		}
		dst[k] = int16(v)
	}
}

func (w words) Max(dst, a, b []int16) {
	dst, a, b = dst[:w], a[:w], b[:w]
	for k := range dst {
		if a[k] >= b[k] {
			dst[k] = a[k]
		} else {
			dst[k] = b[k]
		}
	}
}

func (w words) ShiftLanes(dst, a []int16) {
	dst, a = dst[:w], a[:w]
	for k := len(dst) - 1; k > 0; k-- {
		dst[k] = a[k-1]
	}
	dst[0] = 0
}

func (w words) AnyGreater(a, b []int16) bool {
	a, b = a[:w], b[:w]
	for k := range a {
		if a[k] > b[k] {
			return true
		}
	}
	return false
}

func (w words) HMax(a []int16) int16 {
	a = a[:w]
	m := a[0]
	for _, v := range a[1:] {
		if v > m {
			m = v
		}
	}
	return m
}
