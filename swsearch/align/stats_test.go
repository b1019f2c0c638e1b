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
	"math"
	"testing"
)

func TestCoverage(t *testing.T) {
	tests := []struct {
		l, start, end int
		expected      float64
	}{
		{10, 0, 10, 1},
		{10, 0, 0, 0},
		{10, 2, 7, 0.5},
		{4, 1, 2, 0.25},
		{0, 0, 0, 0},
	}
	for _, test := range tests {
		if c := QueryCoverage(test.l, test.start, test.end); c != test.expected {
			t.Errorf("query coverage of (%d, %d, %d): expected %f, returned %f",
				test.l, test.start, test.end, test.expected, c)
		}
		if c := TargetCoverage(test.l, test.start, test.end); c != test.expected {
			t.Errorf("target coverage of (%d, %d, %d): expected %f, returned %f",
				test.l, test.start, test.end, test.expected, c)
		}
	}
}

func TestEValue(t *testing.T) {
	if e := EValue(10, 5, 3, 0, 2); e != 150 {
		t.Errorf("e-value of a zero score: expected 150, returned %f", e)
	}
	if e := EValue(1, 100, 100, 20, 2); math.Abs(e-10000.0/1024) > 1e-12 {
		t.Errorf("unexpected e-value: %f", e)
	}

	// larger scores, smaller e-values
	prev := math.Inf(1)
	for s := 0; s < 200; s += 7 {
		e := EValue(1000, 300, 400, s, 2)
		if !(e < prev) {
			t.Errorf("e-value not decreasing at score %d: %g >= %g", s, e, prev)
		}
		prev = e
	}

	// at a fixed score, more sequences or longer ones, larger e-values
	for _, score := range []int{0, 40, 400} {
		prev := 0.0
		for n := 1; n <= 1<<20; n <<= 2 {
			e := EValue(n, 300, 400, score, 2)
			if !(e > prev) {
				t.Errorf("e-value not increasing with db size %d at score %d: %g <= %g", n, score, e, prev)
			}
			prev = e
		}
		prev = 0.0
		for n := 1; n <= 1<<20; n <<= 2 {
			e := EValue(1000, n, 400, score, 2)
			if !(e > prev) {
				t.Errorf("e-value not increasing with query length %d at score %d: %g <= %g", n, score, e, prev)
			}
			prev = e
		}
		prev = 0.0
		for n := 1; n <= 1<<20; n <<= 2 {
			e := EValue(1000, 300, n, score, 2)
			if !(e > prev) {
				t.Errorf("e-value not increasing with target length %d at score %d: %g <= %g", n, score, e, prev)
			}
			prev = e
		}
	}

	// scores beyond 1074 bits still give tiny positive e-values
	if e := EValue(1, 1000, 1000, 2150, 2); !(e > 0) {
		t.Errorf("e-value of score 2150 should be positive, returned %g", e)
	}
	if e := EValue(1, 10, 10, ScoreCeiling, 2); e != 0 || math.IsNaN(e) {
		t.Errorf("e-value of the score ceiling should underflow to 0, returned %g", e)
	}
	if e := EValue(1, 10, 10, 20, 2.5); math.Abs(e-100*math.Exp2(-8)) > 1e-15 {
		t.Errorf("unexpected e-value with a fractional bit factor: %g", e)
	}

	// no overflow with long sequences and a big database
	if e := EValue(1<<30, 1<<20, 1<<20, 0, 2); math.IsInf(e, 0) || e <= 0 {
		t.Errorf("unexpected e-value: %g", e)
	}
}

func TestBitScore(t *testing.T) {
	if b := BitScore(57, 2); b != 28.5 {
		t.Errorf("bit score: expected 28.5, returned %f", b)
	}
}
