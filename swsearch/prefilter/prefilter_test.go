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

package prefilter

import (
	"testing"

	"github.com/shenwei356/swsearch/swsearch/scoring"
	"github.com/shenwei356/swsearch/swsearch/sequence"
)

func newProtein(t *testing.T, key, text string) *sequence.Sequence {
	codec, err := scoring.Blosum62().Codec()
	if err != nil {
		t.Fatal(err)
	}
	s := sequence.New(1024, codec)
	if err = s.MapSequence(0, key, []byte(text)); err != nil {
		t.Fatal(err)
	}
	return s
}

func TestShared(t *testing.T) {
	f, err := New(3, 2)
	if err != nil {
		t.Fatal(err)
	}

	q := newProtein(t, "q", "ACDEFGHIK")
	f.SetQuery(q)
	if f.Kmers() != 7 {
		t.Errorf("expected 7 k-mers, returned %d", f.Kmers())
	}

	tests := []struct {
		target string
		shared int
		pass   bool
	}{
		{"ACDEFGHIK", 7, true},
		{"WWACDWW", 1, false},
		{"ACDACDACD", 1, false},
		{"WWACDEWW", 2, true},
		{"WWWWW", 0, false},
		{"AC", 0, false},
	}
	for _, test := range tests {
		tg := newProtein(t, "t", test.target)
		if n := f.Shared(tg); n != test.shared {
			t.Errorf("%s: expected %d shared k-mers, returned %d", test.target, test.shared, n)
		}
		if p := f.Pass(tg); p != test.pass {
			t.Errorf("%s: expected pass: %v, returned %v", test.target, test.pass, p)
		}
		if tg.KmerPos() != -1 {
			t.Errorf("%s: k-mer iterator of the target moved", test.target)
		}
	}
}

func TestLongKmers(t *testing.T) {
	// 5 bits * 15 > 64, hashed with wyhash
	f, err := New(15, 1)
	if err != nil {
		t.Fatal(err)
	}
	f.SetQuery(newProtein(t, "q", "ACDEFGHIKLMNPQRSTVWY"))
	if f.Kmers() != 6 {
		t.Errorf("expected 6 k-mers, returned %d", f.Kmers())
	}
	if n := f.Shared(newProtein(t, "t", "WWWDEFGHIKLMNPQRSTVWWW")); n != 3 {
		t.Errorf("expected 3 shared k-mers, returned %d", n)
	}
}

func TestDisabled(t *testing.T) {
	f, err := New(3, 0)
	if err != nil {
		t.Fatal(err)
	}
	f.SetQuery(newProtein(t, "q", "ACDEFGHIK"))
	if !f.Pass(newProtein(t, "t", "WWWW")) {
		t.Errorf("a filter with no threshold should pass all targets")
	}

	if _, err = New(0, 1); err != ErrInvalidK {
		t.Errorf("expected ErrInvalidK, returned %v", err)
	}
}
