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
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/shenwei356/bio/seq"
	"github.com/shenwei356/bio/seqio/fastx"
	"github.com/shenwei356/kmers"
	"github.com/shenwei356/swsearch/swsearch/sequence"
	"github.com/shenwei356/swsearch/swsearch/util"
	"github.com/spf13/cobra"
)

var kmersCmd = &cobra.Command{
	Use:   "kmers",
	Short: "list k-mers of encoded sequences",
	Long: `list k-mers of encoded sequences

Attentions:
  1. Input format should be (gzipped) FASTA or FASTQ from files or stdin.
  2. Sequences are encoded in the same way as "swsearch align", so rare or
     ambiguous residues are replaced, e.g., J->L for proteins, r->a for nucleotides.
  3. K-mer positions (column pos) are 1-based.
  4. The column hash is the value used by the k-mer prefilter of "swsearch align".
  5. For nucleotide sequences with k <= 32, the column code is the 2-bit
     integer code of a k-mer, "-" for k-mers containing n.

`,
	Run: func(cmd *cobra.Command, args []string) {
		opt := getOptions(cmd)
		seq.ValidateSeq = false

		var fhLog *os.File
		if opt.Log2File {
			fhLog = addLog(opt.LogFile, opt.Verbose)
		}

		outputLog := opt.Verbose || opt.Log2File

		timeStart := time.Now()
		defer func() {
			if outputLog {
				log.Info()
				log.Infof("elapsed time: %s", time.Since(timeStart))
				log.Info()
			}
			if opt.Log2File {
				fhLog.Close()
			}
		}()

		// ---------------------------------------------------------------

		outFile := getFlagString(cmd, "out-file")
		k := getFlagPositiveInt(cmd, "kmer")
		maxLen := getFlagPositiveInt(cmd, "max-seq-len")
		skipInvalid := getFlagBool(cmd, "skip-invalid")

		m := getMatrix(cmd)
		codec, err := m.Codec()
		checkError(err)

		withCode := codec.Kind() == sequence.Nucleotide && k <= 32
		codeBits := util.CodeBits(codec.Size())

		files := getFileListFromArgsAndFile(cmd, args, true, "infile-list", true)

		// ---------------------------------------------------------------

		outfh, gw, w, err := outStream(outFile, strings.HasSuffix(outFile, ".gz"), opt.CompressionLevel)
		checkError(err)
		defer func() {
			outfh.Flush()
			if gw != nil {
				gw.Close()
			}
			w.Close()
		}()

		if withCode {
			fmt.Fprintf(outfh, "seq\tpos\tkmer\thash\tcode\n")
		} else {
			fmt.Fprintf(outfh, "seq\tpos\tkmer\thash\n")
		}

		s := sequence.New(maxLen, codec)
		kmer := make([]byte, k)
		upper := make([]byte, k)
		var record *fastx.Record
		var nSeqs, nKmers int
		var id int

		for _, file := range files {
			fastxReader, err := fastx.NewReader(nil, file, "")
			checkError(errors.Wrap(err, file))

			for {
				record, err = fastxReader.Read()
				if err != nil {
					if err == io.EOF {
						break
					}
					checkError(errors.Wrap(err, file))
					break
				}

				id++
				if err = s.MapSequence(id, string(record.ID), record.Seq.Seq); err != nil {
					if !skipInvalid {
						checkError(errors.Wrap(err, file))
					}
					log.Warningf("skip invalid sequence: %s", err)
					continue
				}
				nSeqs++

				nKmers += writeKmers(outfh, s, k, codeBits, withCode, kmer, upper)
			}
			fastxReader.Close()
		}

		if outputLog {
			log.Infof("%d k-mers from %d sequences", nKmers, nSeqs)
		}
	},
}

// writeKmers writes all k-mers of s, and returns the number of k-mers.
// kmer and upper are buffers of size k.
func writeKmers(w io.Writer, s *sequence.Sequence, k, codeBits int, withCode bool, kmer, upper []byte) int {
	codec := s.Codec()
	var codes []uint8
	var code uint64
	var err error
	var i, n int
	var c uint8
	var b byte

	s.ResetKmers()
	for s.HasNextKmer(k) {
		codes = s.NextKmer(k)
		for i, c = range codes {
			kmer[i] = codec.Char(c)
		}
		n++

		fmt.Fprintf(w, "%s\t%d\t%s\t%016x", s.Key(), s.KmerPos()+1, kmer, util.KmerHash(codes, codeBits))
		if !withCode {
			fmt.Fprintln(w)
			continue
		}
		if bytes.IndexByte(kmer, 'n') >= 0 {
			fmt.Fprintf(w, "\t-\n")
			continue
		}
		for i, b = range kmer {
			if b >= 'a' && b <= 'z' {
				b -= 'a' - 'A'
			}
			upper[i] = b
		}
		if code, err = kmers.Encode(upper); err != nil {
			fmt.Fprintf(w, "\t-\n")
		} else {
			fmt.Fprintf(w, "\t%d\n", code)
		}
	}
	return n
}

func init() {
	RootCmd.AddCommand(kmersCmd)

	kmersCmd.Flags().StringP("out-file", "o", "-",
		formatFlagUsage(`Out file, supports a ".gz" suffix ("-" for stdout).`))

	kmersCmd.Flags().IntP("kmer", "k", 3,
		formatFlagUsage(`K-mer size.`))

	kmersCmd.Flags().StringP("seq-type", "t", "protein",
		formatFlagUsage(`Sequence type: protein or nucleotide.`))

	kmersCmd.Flags().StringP("matrix", "M", "",
		formatFlagUsage(`Score matrix file, only its alphabet is used.`))

	kmersCmd.Flags().IntP("max-seq-len", "L", 10000,
		formatFlagUsage(`Maximum sequence length. Sequences should be shorter than it.`))

	kmersCmd.Flags().BoolP("skip-invalid", "", false,
		formatFlagUsage(`Skip sequences with illegal characters or longer than -L/--max-seq-len, instead of exiting.`))

	kmersCmd.SetUsageTemplate(usageTemplate("[seqs.fasta ...] [-o kmers.tsv.gz]"))
}
