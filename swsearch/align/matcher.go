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

	"github.com/shenwei356/swsearch/swsearch/scoring"
	"github.com/shenwei356/swsearch/swsearch/sequence"
)

// ErrEmptySequence means the query or the target has no residues.
var ErrEmptySequence = errors.New("align: empty sequence")

// ErrSeqLongerThanMax means the sequence is longer than the maximum length of the Matcher.
var ErrSeqLongerThanMax = errors.New("align: sequence longer than the maximum length")

// ErrAlphabetMismatch means a sequence is encoded with another alphabet than the matrix.
var ErrAlphabetMismatch = errors.New("align: alphabet mismatch between sequence and matrix")

// ErrScoreSaturated means the score reached ScoreCeiling and might be clamped.
// The returned Result still holds the clamped score, with Saturated set.
var ErrScoreSaturated = errors.New("align: score saturated at the 16-bit ceiling")

// MatcherOptions contains the options of a Matcher.
type MatcherOptions struct {
	// vector operations, which decide the number of lanes
	Ops VectorOps

	// limit of memory of the DP matrices of one pair, <= 0 for no limit.
	MaxMatrixBytes int64
}

// DefaultMatcherOptions is the default MatcherOptions.
var DefaultMatcherOptions = MatcherOptions{
	Ops:            Word8,
	MaxMatrixBytes: 4 << 30,
}

// Result is the alignment result of a query and a target.
type Result struct {
	TargetKey string

	Score          int
	QueryCoverage  float64
	TargetCoverage float64
	EValue         float64
	BitScore       float64

	// 0-based, starts are inclusive and ends are exclusive
	QueryStart, QueryEnd   int
	TargetStart, TargetEnd int

	Saturated bool
}

// Matcher computes Smith-Waterman alignments of a query against targets.
// The query profile and the workspace are allocated once.
// A Matcher is not safe for concurrent use, please create one for each goroutine.
type Matcher struct {
	options   *MatcherOptions
	ops       VectorOps
	matrix    *scoring.Matrix
	maxSeqLen int

	profile *Profile
	ws      *vecBuffer

	// the query the profile is built for
	query    *sequence.Sequence
	queryGen uint64
}

// NewMatcher creates a Matcher for sequences of up to maxSeqLen residues.
// options can be nil for DefaultMatcherOptions.
func NewMatcher(m *scoring.Matrix, maxSeqLen int, options *MatcherOptions) (*Matcher, error) {
	if options == nil {
		options = &DefaultMatcherOptions
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	if maxSeqLen < 1 {
		return nil, fmt.Errorf("align: invalid maximum sequence length: %d", maxSeqLen)
	}

	ops := options.Ops
	if ops == nil {
		ops = Word8
	}
	n := ops.Lanes()
	maxSegLen := segmentLength(maxSeqLen, n)

	return &Matcher{
		options:   options,
		ops:       ops,
		matrix:    m,
		maxSeqLen: maxSeqLen,
		profile:   NewProfile(m.Size(), maxSeqLen, n),
		ws:        newVecBuffer(wsFixed+2*maxSegLen, n),
	}, nil
}

// Matrix returns the score matrix.
func (mt *Matcher) Matrix() *scoring.Matrix { return mt.matrix }

// MaxSeqLen returns the maximum sequence length.
func (mt *Matcher) MaxSeqLen() int { return mt.maxSeqLen }

func (mt *Matcher) check(s *sequence.Sequence) error {
	if s.Len() == 0 {
		return fmt.Errorf("%w: %s", ErrEmptySequence, s.Key())
	}
	if s.Len() > mt.maxSeqLen {
		return fmt.Errorf("%w: %s (%d > %d)", ErrSeqLongerThanMax, s.Key(), s.Len(), mt.maxSeqLen)
	}
	if s.Codec().Alphabet() != mt.matrix.Alphabet {
		return fmt.Errorf("%w: %s", ErrAlphabetMismatch, s.Key())
	}
	return nil
}

// SetQuery binds a query and builds its profile. Align calls it when
// the query is a different one or has been re-mapped since the last call.
func (mt *Matcher) SetQuery(query *sequence.Sequence) error {
	if err := mt.check(query); err != nil {
		return err
	}
	mt.profile.Build(query.Codes(), mt.matrix)
	mt.query = query
	mt.queryGen = query.Generation()
	return nil
}

// Align aligns the query against the target. dbSize is the number of
// sequences in the database, used for computing the e-value.
//
// When the error is ErrScoreSaturated, the result is still returned with the clamped score.
func (mt *Matcher) Align(query, target *sequence.Sequence, dbSize int) (Result, error) {
	if query != mt.query || query.Generation() != mt.queryGen {
		if err := mt.SetQuery(query); err != nil {
			return Result{}, err
		}
	} else if err := mt.check(query); err != nil {
		return Result{}, err
	}
	if err := mt.check(target); err != nil {
		return Result{}, err
	}

	qlen, tlen := query.Len(), target.Len()
	n := mt.ops.Lanes()
	cells := mt.profile.SegLen() * n * tlen

	bytes := int64(cells) * 2 * 3
	if mt.options.MaxMatrixBytes > 0 && bytes > mt.options.MaxMatrixBytes {
		return Result{}, &AllocError{QueryLen: qlen, TargetLen: tlen, Bytes: bytes,
			Limit: mt.options.MaxMatrixBytes, Err: ErrMatrixTooLarge}
	}
	mat, err := acquireMatrices(cells)
	if err != nil {
		return Result{}, &AllocError{QueryLen: qlen, TargetLen: tlen, Bytes: bytes, Err: err}
	}
	defer releaseMatrices(mat)

	kr := forward(mt.ops, mt.ws, mt.profile, target.Codes(), mat)
	qStart, tStart := traceback(mt.profile, mt.matrix.Score, query.Codes(), target.Codes(), mat, kr)

	r := Result{
		TargetKey:      target.Key(),
		Score:          kr.score,
		QueryCoverage:  QueryCoverage(qlen, qStart, kr.qEnd),
		TargetCoverage: TargetCoverage(tlen, tStart, kr.tEnd),
		EValue:         EValue(dbSize, qlen, tlen, kr.score, mt.matrix.BitFactor),
		BitScore:       BitScore(kr.score, mt.matrix.BitFactor),
		QueryStart:     qStart,
		QueryEnd:       kr.qEnd,
		TargetStart:    tStart,
		TargetEnd:      kr.tEnd,
		Saturated:      kr.score >= ScoreCeiling,
	}
	if r.Saturated {
		return r, fmt.Errorf("%w: %s vs %s", ErrScoreSaturated, query.Key(), target.Key())
	}
	return r, nil
}
