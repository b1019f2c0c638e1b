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

// Package sequence maps raw residue text into a dense numeric alphabet.
package sequence

import (
	"errors"
	"fmt"
)

// MoleculeType is the kind of molecule a sequence is made of.
type MoleculeType uint8

const (
	Protein MoleculeType = iota
	Nucleotide
)

func (t MoleculeType) String() string {
	switch t {
	case Protein:
		return "protein"
	case Nucleotide:
		return "nucleotide"
	}
	return "unknown"
}

// ParseMoleculeType parses "protein"/"prot"/"aa" or "nucleotide"/"nucl"/"dna"/"rna".
func ParseMoleculeType(s string) (MoleculeType, error) {
	switch s {
	case "protein", "prot", "aa":
		return Protein, nil
	case "nucleotide", "nucl", "dna", "rna":
		return Nucleotide, nil
	}
	return Protein, fmt.Errorf("sequence: unknown molecule type: %s", s)
}

// MaxAlphabetSize is the largest alphabet a Codec can hold.
const MaxAlphabetSize = 64

// ErrInvalidAlphabet means the alphabet is empty, too large or has duplicated letters.
var ErrInvalidAlphabet = errors.New("sequence: invalid alphabet")

// Codec holds the character-to-code and code-to-character tables of an alphabet.
// A Codec is immutable after creation and can be shared by any number of sequences.
type Codec struct {
	kind     MoleculeType
	char2int [256]int16 // -1 for unmapped characters
	int2char []byte
}

// NewCodec creates a Codec from the letters of an alphabet, the code of a
// letter is its index in the alphabet. Letters of nucleotide alphabets are
// stored in lower case.
func NewCodec(alphabet string, kind MoleculeType) (*Codec, error) {
	if len(alphabet) == 0 || len(alphabet) > MaxAlphabetSize {
		return nil, fmt.Errorf("%w: size %d", ErrInvalidAlphabet, len(alphabet))
	}

	c := &Codec{kind: kind, int2char: make([]byte, len(alphabet))}
	for i := range c.char2int {
		c.char2int[i] = -1
	}

	var b byte
	for i := 0; i < len(alphabet); i++ {
		b = alphabet[i]
		if kind == Nucleotide && b >= 'A' && b <= 'Z' {
			b += 'a' - 'A'
		}
		if c.char2int[b] >= 0 {
			return nil, fmt.Errorf("%w: duplicated letter %q", ErrInvalidAlphabet, b)
		}
		c.char2int[b] = int16(i)
		c.int2char[i] = b
	}
	return c, nil
}

// Kind returns the molecule type of the alphabet.
func (c *Codec) Kind() MoleculeType { return c.kind }

// Size returns the number of letters.
func (c *Codec) Size() int { return len(c.int2char) }

// Code returns the code of a character, and false for unmapped ones.
func (c *Codec) Code(b byte) (uint8, bool) {
	v := c.char2int[b]
	if v < 0 {
		return 0, false
	}
	return uint8(v), true
}

// Char returns the character of a code.
func (c *Codec) Char(code uint8) byte {
	return c.int2char[code]
}

// Alphabet returns the letters in code order.
func (c *Codec) Alphabet() string {
	return string(c.int2char)
}

// canonical forms of rare or ambiguous amino acids.
var aaReplacements = [256]byte{
	'J': 'L',
	'O': 'X',
	'Z': 'E',
	'B': 'D',
	'U': 'X',
}

// canonical forms of ambiguous bases, after lower-casing.
var baseReplacements = [256]byte{
	'u': 't',
	'w': 'a',
	's': 'c',
	'm': 'a',
	'k': 'g',
	'r': 'a',
	'y': 'c',
	'b': 'c',
	'd': 'a',
	'h': 'a',
	'v': 'a',
}

// encode returns the code of one input character after normalization.
func (c *Codec) encode(b byte) (uint8, bool) {
	if c.kind == Nucleotide {
		if b >= 'A' && b <= 'Z' {
			b += 'a' - 'A'
		}
		if b < 'a' || b > 'z' {
			return 0, false
		}
		if r := baseReplacements[b]; r != 0 {
			b = r
		}
		return c.Code(b)
	}

	if b < 'A' || b > 'Z' {
		return 0, false
	}
	if r := aaReplacements[b]; r != 0 {
		b = r
	}
	return c.Code(b)
}
