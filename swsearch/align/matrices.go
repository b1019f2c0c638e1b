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

import (
	"errors"
	"fmt"
	"math/bits"
	"sync"
)

// ErrMatrixTooLarge means the DP matrices of a pair exceed the memory limit
// or could not be allocated.
var ErrMatrixTooLarge = errors.New("align: DP matrices too large")

// AllocError is returned when the DP matrices of a sequence pair can not be allocated.
type AllocError struct {
	QueryLen  int
	TargetLen int
	Bytes     int64 // requested bytes of the three matrices
	Limit     int64

	Err error
}

func (e *AllocError) Error() string {
	if e.Limit > 0 && e.Bytes > e.Limit {
		return fmt.Sprintf("%s: query length %d, target length %d, %d bytes needed, limit: %d bytes",
			e.Err, e.QueryLen, e.TargetLen, e.Bytes, e.Limit)
	}
	return fmt.Sprintf("%s: query length %d, target length %d, %d bytes needed",
		e.Err, e.QueryLen, e.TargetLen, e.Bytes)
}

func (e *AllocError) Unwrap() error { return e.Err }

// dpMatrices holds the H, E and F matrices of one sequence pair.
// Each has segLen vectors per target position, stored column by column.
type dpMatrices struct {
	H, E, F []int16

	class int // size class, -1 for unpooled
}

// buffers larger than 1<<maxPooledClass elements are not kept in pools.
const maxPooledClass = 24

var poolMatrices [maxPooledClass + 1]sync.Pool

// acquireMatrices returns matrices of n elements each, from a pool of
// power-of-two size classes. Please call releaseMatrices after using.
func acquireMatrices(n int) (mat *dpMatrices, err error) {
	class := bits.Len(uint(n - 1))
	if class <= maxPooledClass {
		if v := poolMatrices[class].Get(); v != nil {
			mat = v.(*dpMatrices)
			mat.H, mat.E, mat.F = mat.H[:n], mat.E[:n], mat.F[:n]
			return mat, nil
		}
	}

	defer func() {
		if r := recover(); r != nil {
			mat = nil
			err = fmt.Errorf("%w: %v", ErrMatrixTooLarge, r)
		}
	}()

	size := n
	if class <= maxPooledClass {
		size = 1 << class
	} else {
		class = -1
	}
	mat = &dpMatrices{
		H:     make([]int16, n, size),
		E:     make([]int16, n, size),
		F:     make([]int16, n, size),
		class: class,
	}
	return mat, nil
}

// releaseMatrices returns matrices to the pool.
func releaseMatrices(mat *dpMatrices) {
	if mat == nil || mat.class < 0 {
		return
	}
	poolMatrices[mat.class].Put(mat)
}
