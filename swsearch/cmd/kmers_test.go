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
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/shenwei356/bio/seq"
	"github.com/shenwei356/bio/seqio/fastx"
	"github.com/shenwei356/swsearch/swsearch/scoring"
	"github.com/shenwei356/swsearch/swsearch/sequence"
	"github.com/shenwei356/swsearch/swsearch/util"
)

func TestWriteKmersNucleotide(t *testing.T) {
	seq.ValidateSeq = false
	dir := t.TempDir()
	file := filepath.Join(dir, "seqs.fasta")
	data := ">s1 ambiguous\nACGUNr\n>s2\nggg\n>s3 short\nac\n"
	if err := os.WriteFile(file, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	m := scoring.Nucleotide()
	codec, err := m.Codec()
	if err != nil {
		t.Fatal(err)
	}
	k := 3
	codeBits := util.CodeBits(codec.Size())
	hash := func(codes ...uint8) string {
		return fmt.Sprintf("%016x", util.KmerHash(codes, codeBits))
	}

	// a c g t n a
	expected := []string{
		"s1\t1\tacg\t" + hash(0, 1, 2) + "\t6",
		"s1\t2\tcgt\t" + hash(1, 2, 3) + "\t27",
		"s1\t3\tgtn\t" + hash(2, 3, 4) + "\t-",
		"s1\t4\ttna\t" + hash(3, 4, 0) + "\t-",
		"s2\t1\tggg\t" + hash(2, 2, 2) + "\t42",
	}

	s := sequence.New(100, codec)
	kmer := make([]byte, k)
	upper := make([]byte, k)
	var buf bytes.Buffer
	var nKmers, id int

	fastxReader, err := fastx.NewReader(nil, file, "")
	if err != nil {
		t.Fatal(err)
	}
	defer fastxReader.Close()
	for {
		record, err := fastxReader.Read()
		if err != nil {
			if err == io.EOF {
				break
			}
			t.Fatal(err)
		}
		id++
		if err = s.MapSequence(id, string(record.ID), record.Seq.Seq); err != nil {
			t.Fatal(err)
		}
		nKmers += writeKmers(&buf, s, k, codeBits, true, kmer, upper)
	}

	if nKmers != len(expected) {
		t.Errorf("expected %d k-mers, returned %d", len(expected), nKmers)
	}
	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	if len(lines) != len(expected) {
		t.Fatalf("expected %d lines, returned %d:\n%s", len(expected), len(lines), buf.String())
	}
	for i, line := range lines {
		if line != expected[i] {
			t.Errorf("line %d: expected %q, returned %q", i+1, expected[i], line)
		}
	}
}

func TestWriteKmersProtein(t *testing.T) {
	m := scoring.Blosum62()
	codec, err := m.Codec()
	if err != nil {
		t.Fatal(err)
	}
	s := sequence.New(100, codec)
	if err = s.MapSequence(1, "p", []byte("ACDJ")); err != nil {
		t.Fatal(err)
	}

	k := 2
	codeBits := util.CodeBits(codec.Size())
	var buf bytes.Buffer
	n := writeKmers(&buf, s, k, codeBits, false, make([]byte, k), make([]byte, k))
	if n != 3 {
		t.Fatalf("expected 3 k-mers, returned %d", n)
	}

	// listing again starts from the first k-mer
	var buf2 bytes.Buffer
	writeKmers(&buf2, s, k, codeBits, false, make([]byte, k), make([]byte, k))
	if buf2.String() != buf.String() {
		t.Errorf("second listing differs:\n%s\n%s", buf.String(), buf2.String())
	}

	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	kmers := []string{"AC", "CD", "DL"}
	for i, line := range lines {
		items := strings.Split(line, "\t")
		if len(items) != 4 {
			t.Fatalf("line %d: expected 4 columns, returned %d", i+1, len(items))
		}
		if items[0] != "p" || items[1] != fmt.Sprintf("%d", i+1) || items[2] != kmers[i] {
			t.Errorf("line %d: unexpected k-mer: %q", i+1, line)
		}
		if items[3] != fmt.Sprintf("%016x", util.KmerHash(s.Codes()[i:i+k], codeBits)) {
			t.Errorf("line %d: unexpected hash: %s", i+1, items[3])
		}
	}
}
