package randutil

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRandomRangeStaysInBounds(t *testing.T) {
	for _, max := range []int{1, 2, 3, 5, 7, 8, 16, 100, 255, 256, 1000, 1 << 20} {
		for i := 0; i < 200; i++ {
			n := RandomRange(max)
			require.GreaterOrEqual(t, n, 0)
			require.Less(t, n, max)
		}
	}
}

func TestRandomRangeMaxOneIsAlwaysZero(t *testing.T) {
	for i := 0; i < 50; i++ {
		require.Equal(t, 0, RandomRange(1))
	}
}

func TestRandomRangeCoversEveryValue(t *testing.T) {
	const max = 5
	seen := make(map[int]bool)
	for i := 0; i < 2000 && len(seen) < max; i++ {
		seen[RandomRange(max)] = true
	}
	require.Len(t, seen, max)
}

func TestRandomShuffleIsAPermutation(t *testing.T) {
	for _, n := range []int{0, 1, 2, 3, 5, 15, 16, 40} {
		perm := RandomShuffle(n)
		require.Len(t, perm, n)

		sorted := append([]int(nil), perm...)
		sort.Ints(sorted)
		for i, v := range sorted {
			require.Equal(t, i, v, "shuffle of %d is not a permutation: %v", n, perm)
		}
	}
}

// TestRandomShuffleIsRoughlyUniform samples many 3-element shuffles and
// checks every one of the 3! = 6 orderings shows up at a frequency near
// 1/6. The tolerance is generous (±40% relative) so the test never flakes
// while still catching a systematically biased shuffle, which would skew
// some orderings by integer factors.
func TestRandomShuffleIsRoughlyUniform(t *testing.T) {
	const samples = 6000
	counts := make(map[[3]int]int)
	for i := 0; i < samples; i++ {
		p := RandomShuffle(3)
		counts[[3]int{p[0], p[1], p[2]}]++
	}
	require.Len(t, counts, 6, "all 6 orderings of 3 elements must be reachable")

	expected := samples / 6
	for perm, count := range counts {
		require.Greater(t, count, expected*6/10, "ordering %v underrepresented: %d of %d", perm, count, samples)
		require.Less(t, count, expected*14/10, "ordering %v overrepresented: %d of %d", perm, count, samples)
	}
}
