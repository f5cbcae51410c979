// Package dedup implements a fixed-size, single-threaded filter that
// suppresses repeat keys within one run at the cost of a small,
// acceptable false-negative rate.
package dedup

import (
	"encoding/binary"

	"github.com/zeebo/blake3"

	"github.com/lbloecher/chatload/internal/constants"
)

// domainKey separates this cache's hash domain from any other user of
// BLAKE3 keyed hashing elsewhere in the program.
var domainKey = [32]byte{
	'c', 'h', 'a', 't', 'l', 'o', 'a', 'd', '.', 'd', 'e', 'd', 'u', 'p',
}

// Cache is a fixed N = 2^K slot table, each slot holding a single
// W-bit tag derived from a 64-bit hash of the candidate key. It is not
// safe for concurrent use; one Cache is reused across every log parsed
// in a run.
type Cache struct {
	indexBits uint
	valueMask uint64
	slots     []uint64
	hasher    *blake3.Hasher
	sumBuf    [32]byte
}

// New constructs a Cache with 2^indexBits slots, each storing a
// valueBits-wide tag.
func New(indexBits, valueBits int) *Cache {
	hasher, err := blake3.NewKeyed(domainKey[:])
	if err != nil {
		panic("dedup: BLAKE3 keyed hash initialization failed: " + err.Error())
	}

	return &Cache{
		indexBits: uint(indexBits),
		valueMask: mask(valueBits),
		slots:     make([]uint64, 1<<uint(indexBits)),
		hasher:    hasher,
	}
}

// NewDefault constructs a Cache using the package's default sizing
// (k=18 index bits, w=32 value bits), the general-purpose tuning for
// this domain's deduplication workload.
func NewDefault() *Cache {
	return New(constants.DedupDefaultIndexBits, constants.DedupDefaultValueBits)
}

func mask(bits int) uint64 {
	if bits >= 64 {
		return ^uint64(0)
	}
	return (uint64(1) << uint(bits)) - 1
}

// AddIfAbsent reports whether key's derived tag differs from what is
// currently stored at its slot, storing the new tag either way. A
// false negative (returning false for an unseen key) is possible on
// hash collision; this is an accepted tradeoff, not a bug.
func (c *Cache) AddIfAbsent(key []byte) bool {
	h := c.hash64(key)
	idx := h & ((uint64(1) << c.indexBits) - 1)
	val := (h >> c.indexBits) & c.valueMask

	if c.slots[idx] == val {
		return false
	}
	c.slots[idx] = val
	return true
}

// hash64 reuses the Cache's own long-lived hasher and output buffer,
// resetting the hasher between queries instead of allocating a fresh one
// per lookup.
func (c *Cache) hash64(key []byte) uint64 {
	c.hasher.Reset()
	c.hasher.Write(key)
	sum := c.hasher.Sum(c.sumBuf[:0])
	return binary.LittleEndian.Uint64(sum[:8])
}
