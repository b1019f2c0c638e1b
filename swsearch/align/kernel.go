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

// Gap penalties of the kernel. Opening a gap costs GapOpen,
// each further gap position costs GapExtend.
const (
	GapOpen   = 10
	GapExtend = 1
)

// ScoreCeiling is the largest score the 16-bit kernel can represent.
// A best score reaching it may be clamped. With a bit factor of 2, the
// e-value of such a score is 0, see EValue.
const ScoreCeiling = math.MaxInt16

// workspace vectors
const (
	wsH = iota
	wsF
	wsMax
	wsTmp
	wsZero
	wsFixed // the number of fixed vectors, followed by 2*segLen vectors
)

// kernelResult is the output of the forward pass.
type kernelResult struct {
	score int
	qEnd  int // exclusive, 0 if score is 0
	tEnd  int // exclusive, 0 if score is 0
}

// forward computes the local alignment score of the profiled query against
// target with the striped algorithm of Farrar (2007), and fills the matrices.
//
// Cells are H[i,j] = max(H[i-1,j-1] + s(q_i,t_j), E[i,j], F[i,j], 0),
// E[i,j] = max(H[i,j-1] - GapOpen, E[i,j-1] - GapExtend, 0) and
// F[i,j] = max(H[i-1,j] - GapOpen, F[i-1,j] - GapExtend, 0).
//
// The end position is the first target position where the running maximum
// increases, and the smallest query position holding it.
func forward(ops VectorOps, ws *vecBuffer, prof *Profile, target []uint8, mat *dpMatrices) kernelResult {
	n := ops.Lanes()
	segLen := prof.SegLen()
	qlen := prof.QueryLen()
	colSize := segLen * n

	vH := ws.vec(wsH)
	vF := ws.vec(wsF)
	vMax := ws.vec(wsMax)
	vTmp := ws.vec(wsTmp)

	pvE := ws.vecs(wsFixed, segLen)
	zeroCol := ws.vecs(wsFixed+segLen, segLen)
	ws.reset(wsFixed, 2*segLen)

	var r kernelResult
	var best int16

	var i, j, o, q int
	var prof1, hCol, eCol, fCol, prevCol, e, h, f []int16
	var colMax int16

	prevCol = zeroCol
	for j = 0; j < len(target); j++ {
		prof1 = prof.Symbol(target[j])
		hCol = mat.H[j*colSize : (j+1)*colSize]
		eCol = mat.E[j*colSize : (j+1)*colSize]
		fCol = mat.F[j*colSize : (j+1)*colSize]

		ops.Set(vF, 0)
		ops.Set(vMax, 0)

		// diagonal of the first segment comes from the last one, one lane down
		ops.ShiftLanes(vH, prevCol[colSize-n:])

		for i = 0; i < segLen; i++ {
			o = i * n
			e = pvE[o : o+n]

			ops.AddSat(vH, vH, prof1[o:o+n])
			ops.Max(vH, vH, e) // E >= 0, so H >= 0 too
			ops.Max(vH, vH, vF)
			ops.Max(vMax, vMax, vH)

			copy(hCol[o:o+n], vH)
			copy(eCol[o:o+n], e)
			copy(fCol[o:o+n], vF)

			// E and F of the next cells
			ops.SubFloor(vTmp, vH, GapOpen)
			ops.SubFloor(e, e, GapExtend)
			ops.Max(e, e, vTmp)
			ops.SubFloor(vF, vF, GapExtend)
			ops.Max(vF, vF, vTmp)

			copy(vH, prevCol[o:o+n])
		}

		// lazy F loop: carry F across lanes until it can't change H any more
		ops.ShiftLanes(vF, vF)
		i = 0
		for {
			o = i * n
			h = hCol[o : o+n]
			f = fCol[o : o+n]
			ops.Max(f, f, vF)

			ops.SubFloor(vTmp, h, GapOpen)
			if !ops.AnyGreater(vF, vTmp) {
				break
			}

			ops.Max(h, h, vF)
			ops.Max(vMax, vMax, h)

			e = pvE[o : o+n]
			ops.SubFloor(vTmp, h, GapOpen)
			ops.Max(e, e, vTmp)

			ops.SubFloor(vF, vF, GapExtend)
			i++
			if i == segLen {
				i = 0
				ops.ShiftLanes(vF, vF)
			}
		}

		colMax = ops.HMax(vMax)
		if colMax > best {
			best = colMax
			r.tEnd = j + 1
			for q = 0; q < qlen; q++ {
				if hCol[(q%segLen)*n+q/segLen] == colMax {
					r.qEnd = q + 1
					break
				}
			}
		}

		prevCol = hCol
	}

	r.score = int(best)
	return r
}

// traceback walks back from the end cell over the filled matrices and returns
// the 0-based start positions of the alignment. It stops at the first cell,
// walking backward, whose diagonal predecessor has a score of 0.
// Ties are broken in the order: diagonal, gap in query (E), gap in target (F).
func traceback(prof *Profile, m scoreFunc, query, target []uint8, mat *dpMatrices, kr kernelResult) (qStart, tStart int) {
	if kr.score == 0 {
		return 0, 0
	}

	n := prof.Lanes()
	segLen := prof.SegLen()
	at := func(data []int16, q, t int) int {
		if q < 0 || t < 0 {
			return 0
		}
		return int(data[(t*segLen+q%segLen)*n+q/segLen])
	}
	floor := func(v int) int {
		if v < 0 {
			return 0
		}
		return v
	}

	const (
		inH = iota
		inE
		inF
	)

	q, t := kr.qEnd-1, kr.tEnd-1
	state := inH
	var v, d int
	for q >= 0 && t >= 0 {
		switch state {
		case inH:
			v = at(mat.H, q, t)
			d = at(mat.H, q-1, t-1)
			if v == d+m(query[q], target[t]) {
				if d == 0 {
					return q, t
				}
				q--
				t--
			} else if v == at(mat.E, q, t) {
				state = inE
			} else if v == at(mat.F, q, t) {
				state = inF
			} else { // only when scores are clamped
				return q, t
			}
		case inE: // gap in query, from the left
			v = at(mat.E, q, t)
			if v == floor(at(mat.H, q, t-1)-GapOpen) {
				state = inH
			}
			t--
		case inF: // gap in target, from above
			v = at(mat.F, q, t)
			if v == floor(at(mat.H, q-1, t)-GapOpen) {
				state = inH
			}
			q--
		}
	}
	return max(q, 0), max(t, 0)
}

type scoreFunc func(a, b uint8) int
