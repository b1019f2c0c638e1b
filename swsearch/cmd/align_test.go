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

package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/shenwei356/bio/seq"
	"github.com/shenwei356/swsearch/swsearch/align"
	"github.com/shenwei356/swsearch/swsearch/scoring"
	"github.com/shenwei356/swsearch/swsearch/sequence"
)

func TestSearch(t *testing.T) {
	seq.ValidateSeq = false
	dir := t.TempDir()
	file := filepath.Join(dir, "targets.fasta")
	data := ">t1 self\nACDEFGHIKL\n>t2 weak\nACDEFGWWWW\n>t3 none\nPPP\n>t4 empty\n\n"
	if err := os.WriteFile(file, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	m := scoring.Blosum62()
	codec, err := m.Codec()
	if err != nil {
		t.Fatal(err)
	}

	targets, nInvalid := readTargets([]string{file}, codec, 100, false, false)
	if nInvalid != 0 {
		t.Errorf("unexpected invalid sequences: %d", nInvalid)
	}
	if len(targets) != 3 {
		t.Fatalf("expected 3 non-empty targets, returned %d", len(targets))
	}
	if targets[0].Key() != "t1" || targets[0].String() != "ACDEFGHIKL" {
		t.Errorf("unexpected first target: %s %s", targets[0].Key(), targets[0])
	}

	opt := &searchOptions{
		targets:   targets,
		dbSize:    len(targets),
		minScore:  1,
		maxEvalue: 10,
	}

	for _, minShared := range []int{0, 2} {
		s, err := newSearcher(m, codec, 100, &align.MatcherOptions{Ops: align.Word16}, 3, minShared)
		if err != nil {
			t.Fatal(err)
		}
		if err = s.query.MapSequence(1, "q", []byte("WWWACDEFGHIKLWWW")); err != nil {
			t.Fatal(err)
		}

		r := &queryResult{}
		s.search(opt, r)
		if r.key != "q" || r.qlen != 16 {
			t.Errorf("unexpected query info: %s %d", r.key, r.qlen)
		}
		if len(r.hits) != 2 {
			t.Fatalf("min shared k-mers %d: expected 2 hits, returned %d", minShared, len(r.hits))
		}
		h := r.hits[0]
		if h.target != 0 || h.r.Score != 57 {
			t.Errorf("unexpected first hit: %d %d", h.target, h.r.Score)
		}
		if h.r.QueryStart != 3 || h.r.QueryEnd != 13 || h.r.TargetStart != 0 || h.r.TargetEnd != 10 {
			t.Errorf("unexpected coordinates: %+v", h.r)
		}
		if r.hits[1].target != 1 || r.hits[1].r.Score >= h.r.Score {
			t.Errorf("unexpected second hit: %+v", r.hits[1])
		}
	}
}

func TestReadTargetsSkipInvalid(t *testing.T) {
	seq.ValidateSeq = false
	dir := t.TempDir()
	file := filepath.Join(dir, "targets.fa")
	data := ">t1\nACDE\n>t2\nAC*DE\n>t3\nACDEFGHIKLMNPQRSTVWY\n>t4\nKLMN\n"
	if err := os.WriteFile(file, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	codec, err := sequence.NewCodec(scoring.AlphabetProtein, sequence.Protein)
	if err != nil {
		t.Fatal(err)
	}

	// t2 has an illegal character, t3 is too long
	targets, nInvalid := readTargets([]string{file}, codec, 10, true, false)
	if nInvalid != 2 {
		t.Errorf("expected 2 invalid sequences, returned %d", nInvalid)
	}
	if len(targets) != 2 || targets[0].Key() != "t1" || targets[1].Key() != "t4" {
		t.Errorf("unexpected targets: %d", len(targets))
	}
}

func TestGetVectorOps(t *testing.T) {
	if getVectorOps(8).Lanes() != 8 {
		t.Errorf("expected 8 lanes")
	}
	if getVectorOps(16).Lanes() != 16 {
		t.Errorf("expected 16 lanes")
	}
}
