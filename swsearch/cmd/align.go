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
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/shenwei356/bio/seq"
	"github.com/shenwei356/bio/seqio/fastx"
	"github.com/shenwei356/swsearch/swsearch/align"
	"github.com/shenwei356/swsearch/swsearch/prefilter"
	"github.com/shenwei356/swsearch/swsearch/scoring"
	"github.com/shenwei356/swsearch/swsearch/sequence"
	"github.com/spf13/cobra"
	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
	"gonum.org/v1/gonum/stat"
)

var alignCmd = &cobra.Command{
	Use:   "align",
	Short: "align query sequences against target sequences",
	Long: `align query sequences against target sequences

Attentions:
  1. Input format should be (gzipped) FASTA or FASTQ from files or stdin.
     Queries are given as positional arguments, and targets via -d/--db or -D/--db-dir.
  2. All target sequences are loaded into memory.
  3. Every query is aligned against every target with the striped
     Smith-Waterman algorithm (gap open: 10, gap extension: 1).
     Use -m/--min-shared-kmers to skip targets sharing few k-mers with a query.
  4. E-values are computed with the database size, i.e., the number
     of target sequences by default (-N/--db-size).
  5. Positions are 1-based. Hits of a query are in the order of targets.

Output format:
  Tab-delimited format with 13 columns:

    1.  query,    Query sequence ID.
    2.  qlen,     Query sequence length.
    3.  target,   Target sequence ID.
    4.  tlen,     Target sequence length.
    5.  score,    Raw alignment score.
    6.  bitscore, Bit score.
    7.  evalue,   E-value.
    8.  qcovs,    Query coverage (percentage).
    9.  tcovs,    Target coverage (percentage).
    10. qstart,   Query start position.
    11. qend,     Query end position.
    12. tstart,   Target start position.
    13. tend,     Target end position.

`,
	Run: func(cmd *cobra.Command, args []string) {
		opt := getOptions(cmd)
		seq.ValidateSeq = false

		var fhLog *os.File
		if opt.Log2File {
			fhLog = addLog(opt.LogFile, opt.Verbose)
		}

		verbose := opt.Verbose
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

		var err error

		// ---------------------------------------------------------------

		dbFiles := getFlagStringSlice(cmd, "db")
		dbDir := getFlagString(cmd, "db-dir")
		reFile := getFlagString(cmd, "file-regexp")
		if len(dbFiles) == 0 && dbDir == "" {
			checkError(fmt.Errorf("flag -d/--db or -D/--db-dir needed"))
		}
		outFile := getFlagString(cmd, "out-file")

		maxLen := getFlagPositiveInt(cmd, "max-seq-len")
		ops := getVectorOps(getFlagPositiveInt(cmd, "lanes"))
		maxMem := getFlagNonNegativeFloat64(cmd, "max-matrix-mem")

		k := getFlagPositiveInt(cmd, "kmer")
		minShared := getFlagNonNegativeInt(cmd, "min-shared-kmers")

		minScore := getFlagNonNegativeInt(cmd, "min-score")
		maxEvalue := getFlagNonNegativeFloat64(cmd, "max-evalue")
		dbSize := getFlagNonNegativeInt(cmd, "db-size")
		skipInvalid := getFlagBool(cmd, "skip-invalid")

		m := getMatrix(cmd)
		codec, err := m.Codec()
		checkError(err)

		// ---------------------------------------------------------------

		if outputLog {
			log.Infof("SWSearch v%s", VERSION)
			log.Info("  https://github.com/shenwei356/swsearch")
			log.Info()
			log.Infof("score matrix: %s", m)
		}

		// ---------------------------------------------------------------
		// input files

		if outputLog {
			log.Info("checking input files ...")
		}

		files := getFileListFromArgsAndFile(cmd, args, true, "infile-list", true)

		if outputLog {
			if len(files) == 1 && isStdin(files[0]) {
				log.Info("  no query files given, reading from stdin")
			} else {
				log.Infof("  %d query file(s) given", len(files))
			}
		}

		if dbDir != "" {
			re, err := regexp.Compile(reFile)
			checkError(errors.Wrapf(err, "failed to parse regular expression for matching file: %s", reFile))

			_files, err := getFileListFromDir(dbDir, re, opt.NumCPUs)
			checkError(errors.Wrapf(err, "walking dir: %s", dbDir))
			if len(_files) == 0 {
				log.Warningf("  no files in %s matching regular expression: %s", dbDir, reFile)
			}
			dbFiles = append(dbFiles, _files...)
		}
		if len(dbFiles) == 0 {
			checkError(fmt.Errorf("no target files given"))
		}
		dbFiles = getFileList(dbFiles, true)

		outFileClean := filepath.Clean(outFile)
		for _, file := range append(files, dbFiles...) {
			if !isStdin(file) && filepath.Clean(file) == outFileClean {
				checkError(fmt.Errorf("out file should not be one of the input file"))
			}
		}

		// ---------------------------------------------------------------
		// loading targets

		if outputLog {
			log.Info()
			log.Infof("loading target sequences from %d file(s) ...", len(dbFiles))
		}

		targets, nInvalid := readTargets(dbFiles, codec, maxLen, skipInvalid, verbose)
		if len(targets) == 0 {
			checkError(fmt.Errorf("no valid target sequences"))
		}
		if dbSize == 0 {
			dbSize = len(targets)
		}

		if outputLog {
			log.Infof("  %d target sequences loaded in %s", len(targets), time.Since(timeStart))
			if nInvalid > 0 {
				log.Infof("  %d invalid sequences skipped", nInvalid)
			}
			log.Infof("  database size for e-values: %d", dbSize)
			log.Info()
			log.Info("searching ...")
		}

		// ---------------------------------------------------------------
		// workers

		matcherOpt := &align.MatcherOptions{
			Ops:            ops,
			MaxMatrixBytes: int64(maxMem * (1 << 30)),
		}

		workers := make(chan *searcher, opt.NumCPUs)
		for i := 0; i < opt.NumCPUs; i++ {
			s, err := newSearcher(m, codec, maxLen, matcherOpt, k, minShared)
			checkError(err)
			workers <- s
		}

		sopt := &searchOptions{
			targets:   targets,
			dbSize:    dbSize,
			minScore:  minScore,
			maxEvalue: maxEvalue,
		}

		// ---------------------------------------------------------------
		// searching

		timeStart1 := time.Now()

		outfh, gw, w, err := outStream(outFile, strings.HasSuffix(outFile, ".gz"), opt.CompressionLevel)
		checkError(err)
		defer func() {
			outfh.Flush()
			if gw != nil {
				gw.Close()
			}
			w.Close()
		}()

		var total, matched, nHits, saturated, skippedPairs uint64
		var speed float64 // k queries/second
		scores := make([]float64, 0, 1024)

		fmt.Fprintf(outfh, "query\tqlen\ttarget\ttlen\tscore\tbitscore\tevalue\tqcovs\ttcovs\tqstart\tqend\ttstart\ttend\n")

		printResult := func(q *queryResult) {
			total++

			if verbose {
				if (total < 4096 && total&63 == 0) || total&4095 == 0 {
					speed = float64(total) / 1000 / time.Since(timeStart1).Seconds()
					fmt.Fprintf(os.Stderr, "processed queries: %d, speed: %.3f thousand queries per second\r", total, speed)
				}
			}

			saturated += uint64(q.saturated)
			skippedPairs += uint64(q.skipped)

			if len(q.hits) == 0 {
				poolQueryResult.Put(q)
				return
			}
			matched++
			nHits += uint64(len(q.hits))

			var t *sequence.Sequence
			for _, h := range q.hits {
				t = targets[h.target]
				r := &h.r
				fmt.Fprintf(outfh, "%s\t%d\t%s\t%d\t%d\t%.1f\t%.2e\t%.3f\t%.3f\t%d\t%d\t%d\t%d\n",
					q.key, q.qlen, t.Key(), t.Len(),
					r.Score, r.BitScore, r.EValue,
					r.QueryCoverage*100, r.TargetCoverage*100,
					r.QueryStart+1, r.QueryEnd,
					r.TargetStart+1, r.TargetEnd)
				scores = append(scores, float64(r.Score))
			}

			poolQueryResult.Put(q)
		}

		// outputter, keeping the order of queries
		ch := make(chan *queryResult, opt.NumCPUs)
		done := make(chan int)
		go func() {
			var next uint64 = 1
			buf := make(map[uint64]*queryResult, 128)

			var q, q1 *queryResult
			var ok bool
			for q = range ch {
				if q.id != next {
					buf[q.id] = q
					continue
				}
				printResult(q)
				next++

				for {
					if q1, ok = buf[next]; !ok {
						break
					}
					delete(buf, next)
					printResult(q1)
					next++
				}
			}

			done <- 1
		}()

		var wg sync.WaitGroup
		var record *fastx.Record
		var id uint64
		var s *searcher

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
				q := poolQueryResult.Get().(*queryResult)
				q.Reset()
				q.id = id

				s = <-workers // it also limits the number of goroutines

				// the record is copied into the encoded query, so we can read the next one.
				err = s.query.MapSequence(int(id), string(record.ID), record.Seq.Seq)
				if err != nil {
					if !skipInvalid {
						checkError(errors.Wrap(err, file))
					}
					log.Warningf("skip invalid query: %s", err)
					workers <- s
					ch <- q
					continue
				}
				if s.query.Len() == 0 {
					workers <- s
					ch <- q
					continue
				}

				wg.Add(1)
				go func(s *searcher, q *queryResult) {
					defer func() {
						workers <- s
						wg.Done()
					}()

					s.search(sopt, q)

					ch <- q
				}(s, q)
			}
			fastxReader.Close()
		}
		wg.Wait()
		close(ch)
		<-done

		if outputLog {
			if verbose {
				fmt.Fprintf(os.Stderr, "\n")
			}

			speed = float64(total) / 1000 / time.Since(timeStart1).Seconds()
			log.Infof("")
			log.Infof("processed queries: %d, speed: %.3f thousand queries per second", total, speed)
			if total > 0 {
				log.Infof("%.4f%% (%d/%d) queries matched", float64(matched)/float64(total)*100, matched, total)
			}
			log.Infof("hits: %d", nHits)
			if len(scores) > 1 {
				mean, std := stat.MeanStdDev(scores, nil)
				log.Infof("scores of hits: mean: %.2f, stdev: %.2f", mean, std)
			}
			if saturated > 0 {
				log.Warningf("%d alignments reached the score ceiling %d, their scores might be clamped", saturated, align.ScoreCeiling)
			}
			if skippedPairs > 0 {
				log.Warningf("%d sequence pairs skipped for the memory limit (--max-matrix-mem)", skippedPairs)
			}
			log.Infof("done searching")
			if outFile != "-" {
				log.Infof("search results saved to: %s", outFile)
			}
		}
	},
}

func init() {
	RootCmd.AddCommand(alignCmd)

	alignCmd.Flags().StringSliceP("db", "d", []string{},
		formatFlagUsage(`Target sequence file(s) in (gzipped) FASTA/Q format. Multiple values supported.`))

	alignCmd.Flags().StringP("db-dir", "D", "",
		formatFlagUsage(`Directory containing target sequence files. Directory symlinks are followed.`))

	alignCmd.Flags().StringP("file-regexp", "r", `(?i)\.(f[aq](st[aq])?|fna)(\.gz|\.xz|\.zst|\.bz2)?$`,
		formatFlagUsage(`Regular expression for matching sequence files in -D/--db-dir, case ignored.`))

	alignCmd.Flags().StringP("out-file", "o", "-",
		formatFlagUsage(`Out file, supports a ".gz" suffix ("-" for stdout).`))

	alignCmd.Flags().StringP("seq-type", "t", "protein",
		formatFlagUsage(`Sequence type: protein or nucleotide.`))

	alignCmd.Flags().StringP("matrix", "M", "",
		formatFlagUsage(`Score matrix file, in NCBI text format or TOML format (".toml" suffix). `+
			`By default, BLOSUM62 for proteins and +5/-4 for nucleotides.`))

	alignCmd.Flags().IntP("max-seq-len", "L", 10000,
		formatFlagUsage(`Maximum sequence length. Sequences should be shorter than it.`))

	alignCmd.Flags().IntP("lanes", "", 8,
		formatFlagUsage(`Number of 16-bit lanes of a vector, 8 or 16.`))

	alignCmd.Flags().Float64P("max-matrix-mem", "", 4,
		formatFlagUsage(`Maximum memory (GiB) of dynamic programming matrices for a sequence pair, 0 for no limit. `+
			`Pairs exceeding it are skipped with a warning.`))

	alignCmd.Flags().IntP("kmer", "k", 3,
		formatFlagUsage(`K-mer size for the prefilter.`))

	alignCmd.Flags().IntP("min-shared-kmers", "m", 0,
		formatFlagUsage(`Minimum number of distinct k-mers shared by a query and a target, 0 for aligning all pairs.`))

	alignCmd.Flags().IntP("min-score", "s", 1,
		formatFlagUsage(`Minimum alignment score.`))

	alignCmd.Flags().Float64P("max-evalue", "e", 10,
		formatFlagUsage(`Maximum e-value.`))

	alignCmd.Flags().IntP("db-size", "N", 0,
		formatFlagUsage(`Database size for computing e-values, 0 for the number of target sequences.`))

	alignCmd.Flags().BoolP("skip-invalid", "", false,
		formatFlagUsage(`Skip sequences with illegal characters or longer than -L/--max-seq-len, instead of exiting.`))

	alignCmd.SetUsageTemplate(usageTemplate("{-d <targets.fasta> | -D <dir>} [queries.fasta ...] [-o result.tsv.gz]"))
}

// readTargets reads all sequences from the files.
func readTargets(files []string, codec *sequence.Codec, maxLen int, skipInvalid bool, showProgress bool) ([]*sequence.Sequence, int) {
	// process bar
	var pbs *mpb.Progress
	var bar *mpb.Bar
	var chDuration chan time.Duration
	var doneDuration chan int
	if showProgress {
		pbs = mpb.New(mpb.WithWidth(40), mpb.WithOutput(os.Stderr))
		bar = pbs.AddBar(int64(len(files)),
			mpb.PrependDecorators(
				decor.Name("loaded files: ", decor.WC{W: len("loaded files: "), C: decor.DindentRight}),
				decor.Name("", decor.WCSyncSpaceR),
				decor.CountersNoUnit("%d / %d", decor.WCSyncWidth),
			),
			mpb.AppendDecorators(
				decor.Name("ETA: ", decor.WC{W: len("ETA: ")}),
				decor.EwmaETA(decor.ET_STYLE_GO, 10),
				decor.OnComplete(decor.Name(""), ". done"),
			),
		)

		chDuration = make(chan time.Duration, 8)
		doneDuration = make(chan int)
		go func() {
			for t := range chDuration {
				bar.EwmaIncrBy(1, t)
			}
			doneDuration <- 1
		}()
	}

	targets := make([]*sequence.Sequence, 0, 1024)
	var nInvalid int
	var fastxReader *fastx.Reader
	var record *fastx.Record
	var err error
	var startTime time.Time
	for _, file := range files {
		startTime = time.Now()

		fastxReader, err = fastx.NewReader(nil, file, "")
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

			// only allocate what the sequence needs
			s := sequence.New(min(len(record.Seq.Seq)+1, maxLen), codec)
			if err = s.MapSequence(len(targets), string(record.ID), record.Seq.Seq); err != nil {
				if !skipInvalid {
					checkError(errors.Wrap(err, file))
				}
				log.Warningf("skip invalid target: %s", err)
				nInvalid++
				continue
			}
			if s.Len() == 0 {
				continue
			}

			targets = append(targets, s)
		}
		fastxReader.Close()

		if showProgress {
			chDuration <- time.Since(startTime)
		}
	}
	if showProgress {
		close(chDuration)
		<-doneDuration
		pbs.Wait()
	}

	return targets, nInvalid
}

type searchOptions struct {
	targets   []*sequence.Sequence
	dbSize    int
	minScore  int
	maxEvalue float64
}

// searcher holds the per-goroutine data for searching a query.
type searcher struct {
	query   *sequence.Sequence
	matcher *align.Matcher
	filter  *prefilter.Filter // nil for no prefiltering
}

func newSearcher(m *scoring.Matrix, codec *sequence.Codec, maxLen int, opt *align.MatcherOptions, k, minShared int) (*searcher, error) {
	mt, err := align.NewMatcher(m, maxLen, opt)
	if err != nil {
		return nil, err
	}
	s := &searcher{
		query:   sequence.New(maxLen, codec),
		matcher: mt,
	}
	if minShared > 0 {
		s.filter, err = prefilter.New(k, minShared)
		if err != nil {
			return nil, err
		}
	}
	return s, nil
}

// search aligns the query against all targets.
func (s *searcher) search(opt *searchOptions, r *queryResult) {
	q := s.query
	r.key = q.Key()
	r.qlen = q.Len()

	if s.filter != nil {
		s.filter.SetQuery(q)
	}

	var res align.Result
	var err error
	var ae *align.AllocError
	for i, t := range opt.targets {
		if s.filter != nil && !s.filter.Pass(t) {
			continue
		}

		res, err = s.matcher.Align(q, t, opt.dbSize)
		if err != nil {
			if errors.As(err, &ae) {
				log.Warningf("skip pair: %s", err)
				r.skipped++
				continue
			}
			if !errors.Is(err, align.ErrScoreSaturated) {
				checkError(err)
			}
			r.saturated++
		}

		if res.Score < opt.minScore || res.EValue > opt.maxEvalue {
			continue
		}
		r.hits = append(r.hits, hit{target: i, r: res})
	}
}

type hit struct {
	target int // index of the target
	r      align.Result
}

type queryResult struct {
	id   uint64 // 1-based
	key  string
	qlen int

	hits      []hit
	saturated int
	skipped   int
}

func (q *queryResult) Reset() {
	q.key = ""
	q.qlen = 0
	q.hits = q.hits[:0]
	q.saturated = 0
	q.skipped = 0
}

var poolQueryResult = &sync.Pool{New: func() interface{} {
	return &queryResult{
		hits: make([]hit, 0, 128),
	}
}}
