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

package util

import (
	"github.com/twotwotwo/sorts/sortutil"
	"github.com/zeebo/wyhash"
)

// https://gist.github.com/badboy/6267743 .
// version with mask: https://gist.github.com/lh3/974ced188be2f90422cc .
func Hash64(key uint64) uint64 {
	key = (^key) + (key << 21) // key = (key << 21) - key - 1
	key = key ^ (key >> 24)
	key = (key + (key << 3)) + (key << 8) // key * 265
	key = key ^ (key >> 14)
	key = (key + (key << 2)) + (key << 4) // key * 21
	key = key ^ (key >> 28)
	key = key + (key << 31)
	return key
}

// CodeBits returns the number of bits to store a code of an alphabet.
func CodeBits(alphabetSize int) int {
	var b int
	for (1 << b) < alphabetSize {
		b++
	}
	if b == 0 {
		b = 1
	}
	return b
}

// PackKmer packs the codes of a k-mer into a uint64, with codeBits bits for each code.
// It returns false if the k-mer does not fit in 64 bits.
func PackKmer(kmer []uint8, codeBits int) (uint64, bool) {
	if len(kmer)*codeBits > 64 {
		return 0, false
	}
	var code uint64
	for _, c := range kmer {
		code = code<<codeBits | uint64(c)
	}
	return code, true
}

// WyhashSeed is the seed of KmerHash for long k-mers.
var WyhashSeed uint64 = 1

// KmerHash returns the hash value of a k-mer of codes.
// Short k-mers are packed and hashed with Hash64, long ones are hashed with wyhash.
func KmerHash(kmer []uint8, codeBits int) uint64 {
	if code, ok := PackKmer(kmer, codeBits); ok {
		return Hash64(code)
	}
	return wyhash.Hash(kmer, WyhashSeed)
}

// UniqUint64s removes duplicates in a uint64 list, the list is sorted too.
func UniqUint64s(list *[]uint64) {
	if len(*list) == 0 || len(*list) == 1 {
		return
	}

	sortutil.Uint64s(*list)

	var i, j int
	var p, v uint64
	var flag bool
	p = (*list)[0]
	for i = 1; i < len(*list); i++ {
		v = (*list)[i]
		if v == p {
			if !flag {
				j = i // mark insertion position
				flag = true
			}
			continue
		}

		if flag { // need to insert to previous position
			(*list)[j] = v
			j++
		}
		p = v
	}
	if j > 0 {
		*list = (*list)[:j]
	}
}
