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

// Package scoring provides substitution score tables.
package scoring

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/shenwei356/swsearch/swsearch/sequence"
)

// DefaultBitFactor is used when a matrix file does not specify one.
var DefaultBitFactor = 2.0

// ErrNotSquare means the number of scores does not match the alphabet size.
var ErrNotSquare = errors.New("scoring: matrix is not square")

// ErrAsymmetric means score(a, b) != score(b, a) for some a, b.
var ErrAsymmetric = errors.New("scoring: matrix is not symmetric")

// ErrInvalidBitFactor means the bit factor is not a positive number.
var ErrInvalidBitFactor = errors.New("scoring: bit factor should be positive")

// ErrScoreOverflow means a score does not fit into 16 bits.
var ErrScoreOverflow = errors.New("scoring: score out of 16-bit range")

// Matrix is a substitution score table over an alphabet.
// It is immutable after creation and safe for concurrent reading.
type Matrix struct {
	Name      string
	Alphabet  string
	Kind      sequence.MoleculeType
	BitFactor float64 // raw score units per bit

	size   int
	scores []int16 // size * size
}

// NewMatrix creates a Matrix from a square table whose rows and columns
// follow the order of the alphabet. Nucleotide alphabets are stored in
// lower case, the same as sequence codecs.
func NewMatrix(name, alphabet string, kind sequence.MoleculeType, bitFactor float64, table [][]int) (*Matrix, error) {
	if kind == sequence.Nucleotide {
		alphabet = strings.ToLower(alphabet)
	}
	n := len(alphabet)
	if len(table) != n {
		return nil, fmt.Errorf("%w: %d rows for %d letters", ErrNotSquare, len(table), n)
	}
	m := &Matrix{
		Name:      name,
		Alphabet:  alphabet,
		Kind:      kind,
		BitFactor: bitFactor,
		size:      n,
		scores:    make([]int16, n*n),
	}
	for i, row := range table {
		if len(row) != n {
			return nil, fmt.Errorf("%w: row %d has %d columns", ErrNotSquare, i, len(row))
		}
		for j, v := range row {
			if v > math.MaxInt16 || v < math.MinInt16 {
				return nil, fmt.Errorf("%w: %d at (%c, %c)", ErrScoreOverflow, v, alphabet[i], alphabet[j])
			}
			m.scores[i*n+j] = int16(v)
		}
	}
	return m, m.Validate()
}

// Validate checks the shape, symmetry and bit factor.
func (m *Matrix) Validate() error {
	if m.size != len(m.Alphabet) || len(m.scores) != m.size*m.size {
		return ErrNotSquare
	}
	if !(m.BitFactor > 0) {
		return ErrInvalidBitFactor
	}
	var i, j int
	for i = 0; i < m.size; i++ {
		for j = i + 1; j < m.size; j++ {
			if m.scores[i*m.size+j] != m.scores[j*m.size+i] {
				return fmt.Errorf("%w: (%c, %c)", ErrAsymmetric, m.Alphabet[i], m.Alphabet[j])
			}
		}
	}
	return nil
}

// Size returns the alphabet size.
func (m *Matrix) Size() int { return m.size }

// Score returns the substitution score of two codes.
func (m *Matrix) Score(a, b uint8) int {
	return int(m.scores[int(a)*m.size+int(b)])
}

// Row returns the scores of code a against all codes. Do not modify it.
func (m *Matrix) Row(a uint8) []int16 {
	i := int(a) * m.size
	return m.scores[i : i+m.size : i+m.size]
}

// Codec creates a sequence codec for the alphabet of the matrix.
func (m *Matrix) Codec() (*sequence.Codec, error) {
	return sequence.NewCodec(m.Alphabet, m.Kind)
}

func (m *Matrix) String() string {
	return fmt.Sprintf("%s (%s, %d letters, bit factor: %g)", m.Name, m.Kind, m.size, m.BitFactor)
}
