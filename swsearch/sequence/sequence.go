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

package sequence

// Sequence is a reusable slot holding one encoded sequence.
// The code buffer is allocated once and never resized.
type Sequence struct {
	id    int
	key   string
	codes []uint8 // len(codes) == L, cap(codes) == maxLen

	codec *Codec

	// incremented by every MapSequence call,
	// for consumers caching data derived from the sequence.
	gen uint64

	kmerPos int // k-mer iterator cursor
}

// New creates a Sequence able to hold up to maxLen-1 residues.
func New(maxLen int, codec *Codec) *Sequence {
	if maxLen < 1 {
		maxLen = 1
	}
	return &Sequence{
		codes:   make([]uint8, 0, maxLen),
		codec:   codec,
		kmerPos: -1,
	}
}

// MapSequence encodes a record into the sequence. Newline characters are skipped.
// On error, the sequence is left empty.
func (s *Sequence) MapSequence(id int, key string, text []byte) error {
	s.id = id
	s.key = key
	s.kmerPos = -1
	s.gen++

	codes := s.codes[:0]
	maxLen := cap(codes)

	var code uint8
	var ok bool
	for pos, b := range text {
		if b == '\n' || b == '\r' {
			continue
		}

		code, ok = s.codec.encode(b)
		if !ok {
			s.codes = codes[:0]
			return &EncodingError{ID: id, Key: key, Char: b, Pos: pos, Err: ErrIllegalChar}
		}
		codes = append(codes, code)

		if len(codes) >= maxLen {
			s.codes = codes[:0]
			return &EncodingError{ID: id, Key: key, Pos: pos, Max: maxLen, Err: ErrSeqTooLong}
		}
	}

	s.codes = codes
	return nil
}

// ID returns the numeric identifier of the record.
func (s *Sequence) ID() int { return s.id }

// Key returns the database key of the record.
func (s *Sequence) Key() string { return s.key }

// Len returns the number of encoded residues.
func (s *Sequence) Len() int { return len(s.codes) }

// Codes returns the encoded residues. Do not modify it.
func (s *Sequence) Codes() []uint8 { return s.codes }

// Codec returns the codec of the sequence.
func (s *Sequence) Codec() *Codec { return s.codec }

// Kind returns the molecule type.
func (s *Sequence) Kind() MoleculeType { return s.codec.kind }

// Generation changes every time a new record is mapped into the slot.
func (s *Sequence) Generation() uint64 { return s.gen }

// String decodes the sequence back to text.
func (s *Sequence) String() string {
	buf := make([]byte, len(s.codes))
	for i, c := range s.codes {
		buf[i] = s.codec.int2char[c]
	}
	return string(buf)
}

// HasNextKmer tells if there is one more k-mer of size k.
func (s *Sequence) HasNextKmer(k int) bool {
	return k > 0 && s.kmerPos+1+k <= len(s.codes)
}

// NextKmer returns the next k-mer of size k, or nil if there's no more.
// The returned slice shares memory with the sequence.
func (s *Sequence) NextKmer(k int) []uint8 {
	if !s.HasNextKmer(k) {
		return nil
	}
	s.kmerPos++
	return s.codes[s.kmerPos : s.kmerPos+k : s.kmerPos+k]
}

// KmerPos returns the 0-based position of the last returned k-mer, -1 before the first one.
func (s *Sequence) KmerPos() int { return s.kmerPos }

// ResetKmers rewinds the k-mer iterator.
func (s *Sequence) ResetKmers() { s.kmerPos = -1 }
