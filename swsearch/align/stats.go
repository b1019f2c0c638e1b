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

// QueryCoverage returns the fraction of the query covered by the alignment.
// qEnd is exclusive.
func QueryCoverage(qlen, qStart, qEnd int) float64 {
	return coverage(qlen, qStart, qEnd)
}

// TargetCoverage returns the fraction of the target covered by the alignment.
// tEnd is exclusive.
func TargetCoverage(tlen, tStart, tEnd int) float64 {
	return coverage(tlen, tStart, tEnd)
}

func coverage(l, start, end int) float64 {
	if l <= 0 {
		return 0
	}
	return float64(min(l, end)-start) / float64(l)
}

// BitScore converts a raw score into bits.
func BitScore(score int, bitFactor float64) float64 {
	return float64(score) / bitFactor
}

// EValue returns the expected number of chance hits with a score at least
// as high, in a database of dbSize sequences:
//
//	dbSize * qlen * tlen * 2^(-score/bitFactor)
//
// The power of two is applied as a binary exponent, so the result stays
// positive down to the smallest subnormal float64. It is 0 only when the
// bit score exceeds about 1074 + log2(dbSize * qlen * tlen).
func EValue(dbSize, qlen, tlen, score int, bitFactor float64) float64 {
	ip, frac := math.Modf(BitScore(score, bitFactor))
	n := float64(dbSize) * float64(qlen) * float64(tlen)
	return math.Ldexp(n*math.Exp2(-frac), -int(ip))
}
