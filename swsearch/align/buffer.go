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

import "unsafe"

// BufferAlignment is the byte alignment of vector buffers.
const BufferAlignment = 64

// vecBuffer is a 16-bit buffer whose first element is aligned to
// BufferAlignment bytes, viewed as consecutive vectors of a fixed width.
type vecBuffer struct {
	raw   []int16 // the allocated memory
	data  []int16 // the aligned window of raw
	lanes int
}

// newVecBuffer allocates a buffer holding n vectors.
func newVecBuffer(n, lanes int) *vecBuffer {
	size := n * lanes
	pad := BufferAlignment / 2 // in int16
	raw := make([]int16, size+pad)

	var offset int
	if rem := uintptr(unsafe.Pointer(&raw[0])) % BufferAlignment; rem != 0 {
		offset = int(BufferAlignment-rem) / 2
	}
	return &vecBuffer{
		raw:   raw,
		data:  raw[offset : offset+size : offset+size],
		lanes: lanes,
	}
}

// Vectors returns the number of vectors the buffer holds.
func (b *vecBuffer) Vectors() int { return len(b.data) / b.lanes }

// vec returns the i-th vector.
func (b *vecBuffer) vec(i int) []int16 {
	s := i * b.lanes
	return b.data[s : s+b.lanes : s+b.lanes]
}

// vecs returns n vectors starting from the i-th one.
func (b *vecBuffer) vecs(i, n int) []int16 {
	s := i * b.lanes
	e := s + n*b.lanes
	return b.data[s:e:e]
}

// reset zeroes n vectors starting from the i-th one.
func (b *vecBuffer) reset(i, n int) {
	clear(b.vecs(i, n))
}
