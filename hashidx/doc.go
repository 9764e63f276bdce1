// Package hashidx is the engineering core of kvindex: an extendible hash
// index over a fixed-size page file, backed by a sharded LRU page buffer
// pool (see package cache) with a write-back eviction hook.
//
// Design
//
//   - Directory: table[hash prefix] -> page number. Multiple prefixes may
//     share a page until that page's local depth catches up to the global
//     depth (see directory.go).
//
//   - Pages: fixed 8192-byte images (page.go) holding up to MaxNodes
//     (hash, offset) pairs. A page never shrinks or is freed; split carves
//     its nodes into two pages and double widens the directory without
//     moving any node.
//
//   - Buffer pool: pages are read/written through a cache.Cache[uint32,*Page]
//     (see index.go's New) whose Loader performs the page read and whose
//     OnEvict performs the write-back (PageFlush). Both are single
//     positional I/O calls (ReadAt/WriteAt) so concurrent flushes of
//     different pages never race on the file's cursor.
//
//   - Concurrency: one sync.RWMutex per Index serializes directory/page
//     mutation. SetOffset holds it exclusively (including the split/double
//     protocol); GetValue holds it shared for the whole lookup, including
//     the data-file read, so it never observes a half-split page.
//
// See Sharded for the S=16 top-level partition that routes each key to an
// independent Index by a hash distinct from the in-page MurmurHash2-A.
package hashidx
