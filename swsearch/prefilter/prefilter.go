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

// Package prefilter skips targets sharing too few k-mers with a query,
// before the expensive Smith-Waterman alignment.
package prefilter

import (
	"errors"
	"slices"

	"github.com/shenwei356/swsearch/swsearch/sequence"
	"github.com/shenwei356/swsearch/swsearch/util"
)

// ErrInvalidK means the k-mer size is not positive.
var ErrInvalidK = errors.New("prefilter: k should be positive")

// Filter holds the hash values of all k-mers of a query.
// A Filter is not safe for concurrent use.
type Filter struct {
	k        int
	minHits  int
	codeBits int

	hashes []uint64 // sorted and unique
}

// New creates a Filter for k-mers of size k. A target passes
// the filter when it shares at least minShared distinct k-mers with the query.
func New(k, minShared int) (*Filter, error) {
	if k <= 0 {
		return nil, ErrInvalidK
	}
	return &Filter{
		k:       k,
		minHits: minShared,
		hashes:  make([]uint64, 0, 1024),
	}, nil
}

// Kmers returns the number of distinct k-mers of the query.
func (f *Filter) Kmers() int { return len(f.hashes) }

// SetQuery collects the k-mers of the query.
func (f *Filter) SetQuery(query *sequence.Sequence) {
	f.hashes = f.hashes[:0]
	f.codeBits = util.CodeBits(query.Codec().Size())

	query.ResetKmers()
	for query.HasNextKmer(f.k) {
		f.hashes = append(f.hashes, util.KmerHash(query.NextKmer(f.k), f.codeBits))
	}
	query.ResetKmers()

	util.UniqUint64s(&f.hashes)
}

// Shared returns the number of distinct k-mers in the target
// that also appear in the query. The target is only read, so it can be
// shared by Filters in different goroutines.
func (f *Filter) Shared(target *sequence.Sequence) int {
	codes := target.Codes()
	if len(f.hashes) == 0 || len(codes) < f.k {
		return 0
	}

	hits := make([]uint64, 0, 64)
	var h uint64
	var found bool
	k := f.k
	for i := 0; i+k <= len(codes); i++ {
		h = util.KmerHash(codes[i:i+k], f.codeBits)
		if _, found = slices.BinarySearch(f.hashes, h); found {
			hits = append(hits, h)
		}
	}

	util.UniqUint64s(&hits)
	return len(hits)
}

// Pass tells if the target shares enough k-mers with the query.
// A Filter with minShared <= 0 passes all targets.
func (f *Filter) Pass(target *sequence.Sequence) bool {
	if f.minHits <= 0 {
		return true
	}
	return f.Shared(target) >= f.minHits
}
