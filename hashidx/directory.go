package hashidx

import "github.com/IvanBrykalov/kvindex/internal/murmur"

// maxGlobalBits bounds the global depth at the width of the hash itself:
// once every bit of a 64-bit hash is already used to route the directory,
// no further double can separate two keys that hash identically.
const maxGlobalBits = 64

// directory is the per-instance table mapping a hash prefix to a page
// number. It is only ever mutated while the owning Index holds mu in
// exclusive mode.
type directory struct {
	bits     uint32
	table    []uint32
	nextPage uint32
}

// newDirectory allocates a fresh directory of the given global depth with
// table[i] = i, i.e. one page per prefix, and nextPage set just past the
// last allocated page.
func newDirectory(bits uint32) *directory {
	table := make([]uint32, 1<<bits)
	for i := range table {
		table[i] = uint32(i)
	}
	return &directory{bits: bits, table: table, nextPage: uint32(len(table))}
}

// prefixOf returns the directory index a hash routes to under the current
// global depth.
func (d *directory) prefixOf(hash uint64) uint64 {
	return murmur.Prefix(hash, d.bits)
}

// pageFor returns the page number currently assigned to hash's prefix.
func (d *directory) pageFor(hash uint64) uint32 {
	return d.table[d.prefixOf(hash)]
}

// allocPage returns the next free page number and advances the counter.
func (d *directory) allocPage() uint32 {
	n := d.nextPage
	d.nextPage++
	return n
}

// double grows the directory to bits+1, duplicating every entry
// (new[j] = old[j>>1]) so both halves of a doubled index still point at the
// same page until a split separates them.
func (d *directory) double() {
	newTable := make([]uint32, len(d.table)*2)
	for j := range newTable {
		newTable[j] = d.table[j>>1]
	}
	d.bits++
	d.table = newTable
}
