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

package sequence

import (
	"errors"
	"fmt"
)

// ErrIllegalChar means a character can not be mapped to the alphabet.
var ErrIllegalChar = errors.New("sequence: illegal character")

// ErrSeqTooLong means the sequence does not fit into the buffer.
var ErrSeqTooLong = errors.New("sequence: sequence too long")

// EncodingError describes where and why mapping a record failed.
type EncodingError struct {
	ID   int
	Key  string
	Char byte // the offending character, 0 for ErrSeqTooLong
	Pos  int  // 0-based position in the raw text
	Max  int  // buffer capacity, only for ErrSeqTooLong

	Err error // ErrIllegalChar or ErrSeqTooLong
}

func (e *EncodingError) Error() string {
	if errors.Is(e.Err, ErrSeqTooLong) {
		return fmt.Sprintf("%s: %s (id: %d) at position %d, max length allowed: %d",
			e.Err, e.Key, e.ID, e.Pos, e.Max-1)
	}
	return fmt.Sprintf("%s %q in sequence %s (id: %d) at position %d",
		e.Err, e.Char, e.Key, e.ID, e.Pos)
}

func (e *EncodingError) Unwrap() error { return e.Err }
