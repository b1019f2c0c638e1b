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
	"github.com/shenwei356/swsearch/swsearch/scoring"
)

// Profile is a striped query profile. For every symbol a of the alphabet,
// it stores segLen vectors, where lane k of vector i holds the score
// between a and the query residue at position i + k*segLen,
// or 0 if the position is beyond the query.
type Profile struct {
	buf    *vecBuffer
	lanes  int
	size   int // alphabet size
	segLen int
	qlen   int
}

// NewProfile allocates a profile for queries of up to maxSeqLen residues.
func NewProfile(alphabetSize, maxSeqLen, lanes int) *Profile {
	maxSegLen := segmentLength(maxSeqLen, lanes)
	return &Profile{
		buf:   newVecBuffer(alphabetSize*maxSegLen, lanes),
		lanes: lanes,
		size:  alphabetSize,
	}
}

// segmentLength returns ceil(l / lanes).
func segmentLength(l, lanes int) int {
	return (l + lanes - 1) / lanes
}

// Build fills the profile with a query. It must be called before
// aligning any target against the query.
func (p *Profile) Build(query []uint8, m *scoring.Matrix) {
	n := p.lanes
	l := len(query)
	segLen := segmentLength(l, n)
	p.segLen = segLen
	p.qlen = l

	data := p.buf.vecs(0, p.size*segLen)
	var a, h, i, j, k int
	var row []int16
	for a = 0; a < p.size; a++ {
		h = a * segLen * n
		row = m.Row(uint8(a)) // symmetric, row a == column a
		for i = 0; i < segLen; i++ {
			j = i
			for k = 0; k < n; k++ {
				if j >= l {
					data[h] = 0
				} else {
					data[h] = row[query[j]]
				}
				h++
				j += segLen
			}
		}
	}
}

// SegLen returns the segment length of the current query.
func (p *Profile) SegLen() int { return p.segLen }

// QueryLen returns the length of the current query.
func (p *Profile) QueryLen() int { return p.qlen }

// Lanes returns the vector width.
func (p *Profile) Lanes() int { return p.lanes }

// Symbol returns the segLen vectors of symbol a.
func (p *Profile) Symbol(a uint8) []int16 {
	return p.buf.vecs(int(a)*p.segLen, p.segLen)
}
