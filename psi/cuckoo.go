package psi

import (
	"encoding/binary"
	"math"
	"slices"

	"github.com/cespare/xxhash/v2"
	"github.com/spaolacci/murmur3"
)

// Cuckoo packing constants
const (
	binExpansion    = 1.5
	numBinChoices   = 3
	maxEvictionWalk = 500
	maxPackAttempts = 8
)

// Compute the candidate bins for `item`. Candidates are distinct; if the
// table has fewer bins than `numBinChoices` we return as many as exist.
func binChoices(item Item, seed, binCount uint64) []uint32 {
	want := uint64(numBinChoices)
	if binCount < want {
		want = binCount
	}

	buf := make([]byte, len(item)+9)
	copy(buf, item[:])
	binary.LittleEndian.PutUint64(buf[16:], seed)

	choices := make([]uint32, 0, want)
	nonce := byte(0)
	for uint64(len(choices)) < want {
		// Compute the next candidate bin
		buf[24] = nonce
		candidate := uint32(xxhash.Sum64(buf) % binCount)
		nonce++

		// Add if the candidate is new
		if !slices.Contains(choices, candidate) {
			choices = append(choices, candidate)
		}
	}
	return choices
}

// Insert item index `idx` into `bins`, evicting and re-inserting existing
// entries up to a bounded walk length. The eviction choice is derived from
// the item and walk depth, so packing is deterministic for a fixed seed.
func cuckooInsert(
	bins map[uint32]uint32,
	choices [][]uint32,
	items []Item,
	idx uint32,
	depth uint64,
) bool {
	if depth >= maxEvictionWalk {
		return false
	}

	// If any candidate bin is empty, insert there
	for _, bin := range choices[idx] {
		if _, contains := bins[bin]; !contains {
			bins[bin] = idx
			return true
		}
	}

	// Otherwise evict one of the candidates and re-insert it recursively
	c := choices[idx]
	pick := c[murmur3.Sum32WithSeed(items[idx][:], uint32(depth))%uint32(len(c))]
	old := bins[pick]
	bins[pick] = idx
	return cuckooInsert(bins, choices, items, old, depth+1)
}

// Attempt to pack every item into a bin table of `binCount` bins using the
// given hash seed. Returns nil if some eviction walk exceeded its bound.
func tryPack(items []Item, seed, binCount uint64) map[uint32]uint32 {
	choices := make([][]uint32, len(items))
	for i := range items {
		choices[i] = binChoices(items[i], seed, binCount)
	}

	bins := make(map[uint32]uint32, len(items))
	for i := range items {
		if !cuckooInsert(bins, choices, items, uint32(i), 0) {
			return nil
		}
	}
	return bins
}

// Pack `items` into bins, retrying with fresh hash seeds on failure.
// Returns the bin table, the bin count, and the seed that worked.
func packBins(items []Item) (map[uint32]uint32, uint64, uint64, bool) {
	binCount := uint64(math.Ceil(float64(len(items)) * binExpansion))
	for seed := uint64(0); seed < maxPackAttempts; seed++ {
		if bins := tryPack(items, seed, binCount); bins != nil {
			return bins, binCount, seed, true
		}
	}
	return nil, 0, 0, false
}
