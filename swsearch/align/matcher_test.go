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
	"testing"

	"github.com/shenwei356/swsearch/swsearch/scoring"
	"github.com/shenwei356/swsearch/swsearch/sequence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelfAlignment(t *testing.T) {
	m := scoring.Blosum62()
	mt, err := NewMatcher(m, 64, nil)
	require.NoError(t, err)

	q := newSeq(t, m, 64, "q", "ACDEFGHIKL")
	tg := newSeq(t, m, 64, "t", "ACDEFGHIKL")

	var expected int
	for _, c := range q.Codes() {
		expected += m.Score(c, c)
	}
	require.Equal(t, 57, expected)

	r, err := mt.Align(q, tg, 100)
	require.NoError(t, err)
	assert.Equal(t, "t", r.TargetKey)
	assert.Equal(t, expected, r.Score)
	assert.Equal(t, 1.0, r.QueryCoverage)
	assert.Equal(t, 1.0, r.TargetCoverage)
	assert.Equal(t, 0, r.QueryStart)
	assert.Equal(t, 10, r.QueryEnd)
	assert.Equal(t, 0, r.TargetStart)
	assert.Equal(t, 10, r.TargetEnd)
	assert.False(t, r.Saturated)
	assert.InDelta(t, 28.5, r.BitScore, 1e-9)

	// a weaker hit of the same lengths has a larger e-value
	weak := newSeq(t, m, 64, "w", "ACDEFGWWWW")
	r2, err := mt.Align(q, weak, 100)
	require.NoError(t, err)
	assert.Less(t, r2.Score, r.Score)
	assert.Greater(t, r2.EValue, r.EValue)
}

func TestNoSimilarity(t *testing.T) {
	m := scoring.Blosum62()
	mt, err := NewMatcher(m, 64, nil)
	require.NoError(t, err)

	q := newSeq(t, m, 64, "q", "WWWWW")
	tg := newSeq(t, m, 64, "t", "PPP")

	r, err := mt.Align(q, tg, 10)
	require.NoError(t, err)
	assert.Equal(t, Result{TargetKey: "t", EValue: 150}, r)
}

func TestAlignIsIdempotent(t *testing.T) {
	m := scoring.Blosum62()
	for _, ops := range []VectorOps{Word8, Word16} {
		mt, err := NewMatcher(m, 128, &MatcherOptions{Ops: ops})
		require.NoError(t, err)

		q := newSeq(t, m, 128, "q", "MKTAYIAKQRQISFVKSHFSRQLEERLGLIEVQAPILSRVGDGTQDNLSGAEKAVQVKVKALPDAQFEVV")
		tg := newSeq(t, m, 128, "t", "MKTAYIAKQRQISFVKSHFSRQDILDLWIYHTQGYFPDWQNYTPGPGVRYPLTFGWCYKLVPVEPDKVEEANKGENTSLLHPVSLHGMDDPEREVLEWRFDS")

		r1, err := mt.Align(q, tg, 1000)
		require.NoError(t, err)
		r2, err := mt.Align(q, tg, 1000)
		require.NoError(t, err)
		assert.Equal(t, r1, r2)
		assert.True(t, r1.Score > 0)
		assert.GreaterOrEqual(t, r1.QueryCoverage, 0.0)
		assert.LessOrEqual(t, r1.QueryCoverage, 1.0)
		assert.GreaterOrEqual(t, r1.TargetCoverage, 0.0)
		assert.LessOrEqual(t, r1.TargetCoverage, 1.0)
	}
}

func TestQueryRebinding(t *testing.T) {
	m := scoring.Blosum62()
	mt, err := NewMatcher(m, 64, nil)
	require.NoError(t, err)

	codec, err := m.Codec()
	require.NoError(t, err)
	q := sequence.New(64, codec)
	tg := newSeq(t, m, 64, "t", "ACDEFGHIKL")

	require.NoError(t, q.MapSequence(0, "q1", []byte("ACDEFGHIKL")))
	r, err := mt.Align(q, tg, 1)
	require.NoError(t, err)
	assert.Equal(t, 57, r.Score)

	// the same slot with another record, the profile has to follow
	require.NoError(t, q.MapSequence(1, "q2", []byte("PPPPP")))
	r, err = mt.Align(q, tg, 1)
	require.NoError(t, err)
	assert.Equal(t, 0, r.Score)

	// a failed mapping leaves an empty query
	require.Error(t, q.MapSequence(2, "q3", []byte("ACD*")))
	_, err = mt.Align(q, tg, 1)
	assert.True(t, errors.Is(err, ErrEmptySequence))
}

func TestMatcherErrors(t *testing.T) {
	m := scoring.Blosum62()
	mt, err := NewMatcher(m, 8, nil)
	require.NoError(t, err)

	short := newSeq(t, m, 64, "s", "ACDE")
	long := newSeq(t, m, 64, "l", "ACDEFGHIKL")
	_, err = mt.Align(short, long, 1)
	assert.True(t, errors.Is(err, ErrSeqLongerThanMax))
	_, err = mt.Align(long, short, 1)
	assert.True(t, errors.Is(err, ErrSeqLongerThanMax))

	codec, err := m.Codec()
	require.NoError(t, err)
	empty := sequence.New(64, codec)
	_, err = mt.Align(short, empty, 1)
	assert.True(t, errors.Is(err, ErrEmptySequence))

	nuc := newSeq(t, scoring.Nucleotide(), 64, "n", "acgt")
	_, err = mt.Align(short, nuc, 1)
	assert.True(t, errors.Is(err, ErrAlphabetMismatch))

	_, err = NewMatcher(m, 0, nil)
	assert.Error(t, err)
}

func TestUpperCaseNucleotideAlphabet(t *testing.T) {
	table := [][]int{{2, -3, -3, -3}, {-3, 2, -3, -3}, {-3, -3, 2, -3}, {-3, -3, -3, 2}}
	m, err := scoring.NewMatrix("dna", "ACGT", sequence.Nucleotide, 2, table)
	require.NoError(t, err)

	mt, err := NewMatcher(m, 64, nil)
	require.NoError(t, err)

	q := newSeq(t, m, 64, "q", "ACGTACGT")
	r, err := mt.Align(q, q, 1)
	require.NoError(t, err)
	assert.Equal(t, 16, r.Score)
	assert.Equal(t, 1.0, r.QueryCoverage)
	assert.Equal(t, 1.0, r.TargetCoverage)
}

func TestMatrixLimit(t *testing.T) {
	m := scoring.Blosum62()
	mt, err := NewMatcher(m, 64, &MatcherOptions{Ops: Word8, MaxMatrixBytes: 100})
	require.NoError(t, err)

	q := newSeq(t, m, 64, "q", "ACDEFGHIKL")
	_, err = mt.Align(q, q, 1)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMatrixTooLarge))

	var e *AllocError
	require.True(t, errors.As(err, &e))
	assert.Equal(t, 10, e.QueryLen)
	assert.Equal(t, 10, e.TargetLen)
	assert.Equal(t, int64(16*10*2*3), e.Bytes)
	assert.Equal(t, int64(100), e.Limit)
}

func TestSaturation(t *testing.T) {
	table := make([][]int, 5)
	for i := range table {
		table[i] = make([]int, 5)
		for j := range table[i] {
			if i == j {
				table[i][j] = 5000
			} else {
				table[i][j] = -1
			}
		}
	}
	m, err := scoring.NewMatrix("big", scoring.AlphabetNucleotide, sequence.Nucleotide, 1, table)
	require.NoError(t, err)

	mt, err := NewMatcher(m, 64, nil)
	require.NoError(t, err)

	q := newSeq(t, m, 64, "q", "aaaaaaaaaa")
	r, err := mt.Align(q, q, 1)
	assert.True(t, errors.Is(err, ErrScoreSaturated))
	assert.True(t, r.Saturated)
	assert.Equal(t, ScoreCeiling, r.Score)

	// below the ceiling
	q2 := newSeq(t, m, 64, "q2", "aaaaaa")
	r, err = mt.Align(q2, q2, 1)
	require.NoError(t, err)
	assert.False(t, r.Saturated)
	assert.Equal(t, 30000, r.Score)
}

func TestMatrixPool(t *testing.T) {
	for _, n := range []int{1, 2, 3, 1000, 1 << 12} {
		mat, err := acquireMatrices(n)
		require.NoError(t, err)
		assert.Equal(t, n, len(mat.H))
		assert.Equal(t, n, len(mat.E))
		assert.Equal(t, n, len(mat.F))
		releaseMatrices(mat)

		mat, err = acquireMatrices(n)
		require.NoError(t, err)
		assert.Equal(t, n, len(mat.H))
		releaseMatrices(mat)
	}
}
