// Package randutil implements the two uniform-randomness primitives the
// node selector relies on: a uniform index in [0,max) and a uniform
// permutation of [0,n). Both are backed by crypto/rand rather than math/rand
// because node selection is a security-relevant decision (an attacker who
// can predict which node a client will try next can target it), and
// crypto/rand is the standard library's own answer to "I need an unbiased
// random byte stream" — no third-party library in the reference corpus does
// this job any better.
package randutil

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
)

// RandomRange returns a uniform random integer in [0, max). It panics if
// max <= 0, mirroring the precondition every caller in this module already
// guarantees (a non-empty host list, a non-empty shuffle).
func RandomRange(max int) int {
	if max <= 0 {
		panic(fmt.Sprintf("randutil: RandomRange called with max=%d", max))
	}
	if max == 1 {
		return 0
	}
	if max <= 256 {
		if isPowerOfTwo(max) {
			return int(randByte()) & (max - 1)
		}
		if rejectionRate(max) < 0.05 {
			return rangeByRejectionByte(max)
		}
	}
	return rangeByFloatScaling(max)
}

func isPowerOfTwo(n int) bool {
	return n&(n-1) == 0
}

// rejectionRate is the fraction of single-byte draws that would be thrown
// away by rangeByRejectionByte for the given max.
func rejectionRate(max int) float64 {
	limit := 256 - (256 % max)
	return float64(256-limit) / 256
}

// rangeByRejectionByte draws single bytes and rejects any that would bias
// the modulo-max reduction, looping until an unbiased byte is found. Only
// safe to call when rejectionRate(max) is small — callers check that first.
func rangeByRejectionByte(max int) int {
	limit := byte(256 - (256 % max))
	for {
		b := randByte()
		if b < limit {
			return int(b) % max
		}
	}
}

// rangeByFloatScaling is the fallback for large max (or small max with an
// uncomfortably high single-byte rejection rate): draw 53 random bits,
// scale into [0,1), multiply by max. A result that lands exactly on max due
// to floating point rounding is rejected and redrawn; this is astronomically
// rare and only exists for correctness at the boundary.
func rangeByFloatScaling(max int) int {
	const mantissaBits = 53
	for {
		bits := random53Bits()
		f := float64(bits) / float64(uint64(1)<<mantissaBits)
		n := int(f * float64(max))
		if n < max {
			return n
		}
	}
}

func randByte() byte {
	var b [1]byte
	if _, err := rand.Read(b[:]); err != nil {
		panic(fmt.Sprintf("randutil: crypto/rand unavailable: %v", err))
	}
	return b[0]
}

func random53Bits() uint64 {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		panic(fmt.Sprintf("randutil: crypto/rand unavailable: %v", err))
	}
	return binary.BigEndian.Uint64(buf[:]) >> (64 - 53)
}

// RandomShuffle returns a uniform random permutation of [0, n). It is
// uniform over all n! outcomes.
func RandomShuffle(n int) []int {
	switch {
	case n == 0:
		return []int{}
	case n == 1:
		return []int{0}
	case n == 2:
		if RandomRange(2) == 0 {
			return []int{0, 1}
		}
		return []int{1, 0}
	case n < 16:
		return shuffleInsideOut(n)
	default:
		return shuffleFisherYates(n)
	}
}

// shuffleInsideOut builds the permutation incrementally: each new index is
// inserted either at its own position or swapped in for a previous one,
// drawing exactly one range generator call per step. Precomputing the
// sequence of range calls up front (rather than interleaving them with the
// writes) keeps the hot loop branch-free for the small-n case a typical
// cluster host list falls into.
func shuffleInsideOut(n int) []int {
	draws := make([]int, n-1)
	for i := 1; i < n; i++ {
		draws[i-1] = RandomRange(i + 1)
	}
	a := make([]int, n)
	a[0] = 0
	for i := 1; i < n; i++ {
		j := draws[i-1]
		a[i] = a[j]
		a[j] = i
	}
	return a
}

// shuffleFisherYates is the classic in-place Fisher-Yates shuffle, used once
// the host list is large enough that the inside-out variant's extra slice
// isn't worth it.
func shuffleFisherYates(n int) []int {
	a := make([]int, n)
	for i := range a {
		a[i] = i
	}
	for i := n - 1; i > 0; i-- {
		j := RandomRange(i + 1)
		a[i], a[j] = a[j], a[i]
	}
	return a
}
