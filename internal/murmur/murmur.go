// Package murmur implements the exact 64-bit hash used to place keys in the
// extendible hash index: two interleaved 32-bit MurmurHash2-A passes over the
// key bytes, combined as (h1<<32)|h2. The algorithm, seed and magic constants
// are fixed so that the same key always maps to the same hash across runs.
package murmur

import "encoding/binary"

const (
	seed uint32 = 0xEE6B27EB
	m    uint32 = 0x5bd1e995
	r           = 24
)

// Hash64 computes the 64-bit hash of key. It is deterministic and has no
// dependency on process or platform (unlike Go's map seed or hash/maphash).
func Hash64(key []byte) uint64 {
	h1 := seed ^ uint32(len(key))
	h2 := uint32(0)

	data := key
	for len(data) >= 8 {
		k1 := binary.LittleEndian.Uint32(data)
		k1 *= m
		k1 ^= k1 >> r
		k1 *= m
		h1 *= m
		h1 ^= k1
		data = data[4:]

		k2 := binary.LittleEndian.Uint32(data)
		k2 *= m
		k2 ^= k2 >> r
		k2 *= m
		h2 *= m
		h2 ^= k2
		data = data[4:]
	}

	if len(data) >= 4 {
		k1 := binary.LittleEndian.Uint32(data)
		k1 *= m
		k1 ^= k1 >> r
		k1 *= m
		h1 *= m
		h1 ^= k1
		data = data[4:]
	}

	switch len(data) {
	case 3:
		h2 ^= uint32(data[2]) << 16
		fallthrough
	case 2:
		h2 ^= uint32(data[1]) << 8
		fallthrough
	case 1:
		h2 ^= uint32(data[0])
		h2 *= m
	}

	h1 ^= h2 >> 18
	h1 *= m
	h2 ^= h1 >> 22
	h2 *= m
	h1 ^= h2 >> 17
	h1 *= m
	h2 ^= h1 >> 19
	h2 *= m

	return uint64(h1)<<32 | uint64(h2)
}

// Prefix returns the top bits leading bits of hash, used to index a
// directory of global depth bits. bits must be in [0, 64].
func Prefix(hash uint64, bits uint32) uint64 {
	if bits == 0 {
		return 0
	}
	return hash >> (64 - bits)
}
