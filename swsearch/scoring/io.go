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

package scoring

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"
	"github.com/shenwei356/swsearch/swsearch/sequence"
	"github.com/shenwei356/xopen"
)

// ErrMissingLetter means a letter of the alphabet is absent in the matrix file.
var ErrMissingLetter = errors.New("scoring: letter missing in matrix")

// ErrInvalidFormat means the matrix file can not be parsed.
var ErrInvalidFormat = errors.New("scoring: invalid matrix format")

// ParseNCBIMatrix parses a matrix in NCBI/BLAST text format:
//
//	# comments, "# bit-factor: 2.0" sets the bit factor
//	   A  R  N ...
//	A  4 -1 -2 ...
//
// Only letters of the given alphabet are kept. If alphabet is empty,
// all letters in the header except '*' are used.
// Letters are compared case-insensitively for nucleotide matrices.
func ParseNCBIMatrix(r io.Reader, name, alphabet string, kind sequence.MoleculeType) (*Matrix, error) {
	norm := func(b byte) byte {
		if kind == sequence.Nucleotide && b >= 'A' && b <= 'Z' {
			return b + 'a' - 'A'
		}
		return b
	}

	bitFactor := DefaultBitFactor
	var header []byte
	rows := make(map[byte][]int, 32)

	scanner := bufio.NewScanner(r)
	var line string
	var lineNum int
	var items []string
	for scanner.Scan() {
		lineNum++
		line = strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line[0] == '#' {
			i := strings.Index(strings.ToLower(line), "bit-factor:")
			if i >= 0 {
				v, err := strconv.ParseFloat(strings.TrimSpace(line[i+11:]), 64)
				if err != nil {
					return nil, fmt.Errorf("%w: line %d: bad bit factor: %s", ErrInvalidFormat, lineNum, line)
				}
				bitFactor = v
			}
			continue
		}

		items = strings.Fields(line)
		if header == nil {
			header = make([]byte, 0, len(items))
			for _, item := range items {
				if len(item) != 1 || bytes.IndexByte(header, norm(item[0])) >= 0 {
					return nil, fmt.Errorf("%w: line %d: bad or duplicated letter in header: %s", ErrInvalidFormat, lineNum, item)
				}
				header = append(header, norm(item[0]))
			}
			continue
		}

		if len(items[0]) != 1 || len(items)-1 != len(header) {
			return nil, fmt.Errorf("%w: line %d: %d scores for %d letters", ErrInvalidFormat, lineNum, len(items)-1, len(header))
		}
		row := make([]int, len(header))
		for j, item := range items[1:] {
			v, err := strconv.Atoi(item)
			if err != nil {
				return nil, fmt.Errorf("%w: line %d: bad score: %s", ErrInvalidFormat, lineNum, item)
			}
			row[j] = v
		}
		if _, ok := rows[norm(items[0][0])]; ok {
			return nil, fmt.Errorf("%w: line %d: duplicated row: %s", ErrInvalidFormat, lineNum, items[0])
		}
		rows[norm(items[0][0])] = row
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if header == nil {
		return nil, fmt.Errorf("%w: no header line", ErrInvalidFormat)
	}

	if alphabet == "" {
		var buf bytes.Buffer
		for _, b := range header {
			if b != '*' {
				buf.WriteByte(b)
			}
		}
		alphabet = buf.String()
	}

	col := make(map[byte]int, len(header))
	for j, b := range header {
		col[b] = j
	}

	table := make([][]int, len(alphabet))
	for i := 0; i < len(alphabet); i++ {
		row, ok := rows[norm(alphabet[i])]
		if !ok {
			return nil, fmt.Errorf("%w: row %c", ErrMissingLetter, alphabet[i])
		}
		table[i] = make([]int, len(alphabet))
		for j := 0; j < len(alphabet); j++ {
			c, ok := col[norm(alphabet[j])]
			if !ok {
				return nil, fmt.Errorf("%w: column %c", ErrMissingLetter, alphabet[j])
			}
			table[i][j] = row[c]
		}
	}

	return NewMatrix(name, alphabet, kind, bitFactor, table)
}

// ReadNCBIMatrix reads a (compressed) NCBI-format matrix file.
func ReadNCBIMatrix(file, alphabet string, kind sequence.MoleculeType) (*Matrix, error) {
	fh, err := xopen.Ropen(file)
	if err != nil {
		return nil, errors.Wrapf(err, "open matrix file: %s", file)
	}
	defer fh.Close()

	m, err := ParseNCBIMatrix(fh, matrixName(file), alphabet, kind)
	if err != nil {
		return nil, errors.Wrap(err, file)
	}
	return m, nil
}

// tomlMatrix is the layout of a matrix in TOML format.
//
//	name = "DNA"
//	alphabet = "acgt"
//	kind = "nucleotide"
//	bit-factor = 2.0
//	scores = [
//	  [ 2, -3, -3, -3],
//	  ...
//	]
type tomlMatrix struct {
	Name      string  `toml:"name"`
	Alphabet  string  `toml:"alphabet"`
	Kind      string  `toml:"kind"`
	BitFactor float64 `toml:"bit-factor"`
	Scores    [][]int `toml:"scores"`
}

// ParseTOMLMatrix parses a matrix in TOML format.
func ParseTOMLMatrix(data []byte) (*Matrix, error) {
	var t tomlMatrix
	err := toml.Unmarshal(data, &t)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidFormat, err)
	}

	kind := sequence.Protein
	if t.Kind != "" {
		kind, err = sequence.ParseMoleculeType(t.Kind)
		if err != nil {
			return nil, err
		}
	}
	if t.BitFactor == 0 {
		t.BitFactor = DefaultBitFactor
	}
	return NewMatrix(t.Name, t.Alphabet, kind, t.BitFactor, t.Scores)
}

// ReadTOMLMatrix reads a (compressed) TOML-format matrix file.
func ReadTOMLMatrix(file string) (*Matrix, error) {
	fh, err := xopen.Ropen(file)
	if err != nil {
		return nil, errors.Wrapf(err, "open matrix file: %s", file)
	}
	defer fh.Close()

	data, err := io.ReadAll(fh)
	if err != nil {
		return nil, errors.Wrap(err, file)
	}
	m, err := ParseTOMLMatrix(data)
	if err != nil {
		return nil, errors.Wrap(err, file)
	}
	if m.Name == "" {
		m.Name = matrixName(file)
	}
	return m, nil
}

// ReadMatrix reads a matrix file, files with a ".toml" extension (before
// any compression suffix) are parsed as TOML, others as NCBI format.
// For NCBI files, all letters in the header except '*' form the alphabet.
func ReadMatrix(file string, kind sequence.MoleculeType) (*Matrix, error) {
	if filepath.Ext(trimCompressionExt(file)) == ".toml" {
		return ReadTOMLMatrix(file)
	}
	return ReadNCBIMatrix(file, "", kind)
}

var compressionExts = []string{".gz", ".xz", ".zst", ".bz2"}

func trimCompressionExt(file string) string {
	f := strings.ToLower(file)
	for _, e := range compressionExts {
		if strings.HasSuffix(f, e) {
			return file[:len(file)-len(e)]
		}
	}
	return file
}

func matrixName(file string) string {
	base := filepath.Base(trimCompressionExt(file))
	return strings.TrimSuffix(base, filepath.Ext(base))
}
