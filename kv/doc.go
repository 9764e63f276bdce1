// Package kv ties together the pieces in package hashidx: a sharded LRU
// value cache (package cache) fronts a hashidx.Sharded index, and a
// bounded worker pool rebuilds that index from a data file's records.
//
//   - Get consults the value cache first; on miss it calls through to the
//     index and caches whatever it finds, including a miss itself (spec's
//     documented negative-caching choice).
//   - SetOffset writes through to the index and evicts any cached value
//     for the key, so a stale value never survives a write.
//   - Load walks a data file once and fans SetOffset calls out across a
//     bounded pool of goroutines (golang.org/x/sync/errgroup), mirroring
//     the source's fixed-size thread pool.
package kv
