package hashidx

import (
	"fmt"
	"io"
	"os"

	"github.com/cespare/xxhash/v2"
)

// ShardCount is the fixed number of top-level extendible-hash instances
// (spec.md §3 "Top level", S=16).
const ShardCount = 16

// shardBits is log2(ShardCount), the number of high bits of the top-level
// routing hash used to select an instance.
const shardBits = 4

// Sharded is a fixed array of ShardCount independent Index instances, each
// with its own directory, page buffer pool and index file. Routing uses a
// platform-neutral string hash (xxhash) deliberately distinct from the
// MurmurHash2-A used inside an instance (spec.md §9): cross-shard
// distribution doesn't need to agree with in-page distribution.
type Sharded struct {
	shards [ShardCount]*Index
}

// topShard selects the instance a key routes to.
func topShard(key []byte) int {
	h := xxhash.Sum64(key)
	return int(h >> (64 - shardBits))
}

// NewSharded builds a Sharded index from ShardCount already-open index
// files sharing one data file. Every shard gets an independent directory
// and buffer pool built from the same Options.
func NewSharded(dataFile io.ReaderAt, indexFiles [ShardCount]*os.File, opts Options) (*Sharded, error) {
	var s Sharded
	for i := 0; i < ShardCount; i++ {
		idx, err := New(dataFile, indexFiles[i], opts)
		if err != nil {
			return nil, fmt.Errorf("hashidx: shard %d: %w", i, err)
		}
		s.shards[i] = idx
	}
	return &s, nil
}

// OpenSharded opens (truncating, per spec.md §6 — the index is always
// rebuilt from the data file) ShardCount index files named
// "<indexPathPrefix>.<n>" and wraps them in a Sharded index reading from
// dataFile.
func OpenSharded(dataFile io.ReaderAt, indexPathPrefix string, opts Options) (*Sharded, error) {
	var files [ShardCount]*os.File
	for i := 0; i < ShardCount; i++ {
		f, err := os.OpenFile(fmt.Sprintf("%s.%d", indexPathPrefix, i), os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
		if err != nil {
			for j := 0; j < i; j++ {
				_ = files[j].Close()
			}
			return nil, fmt.Errorf("hashidx: opening index file %d: %w", i, err)
		}
		files[i] = f
	}
	return NewSharded(dataFile, files, opts)
}

// SetOffset routes key to its top-level shard and records offset there.
func (s *Sharded) SetOffset(key []byte, offset uint64) error {
	return s.shards[topShard(key)].SetOffset(key, offset)
}

// GetValue routes key to its top-level shard and looks up its value.
func (s *Sharded) GetValue(key []byte) ([]byte, error) {
	return s.shards[topShard(key)].GetValue(key)
}

// ShardDepth returns the current global depth of shard n, for diagnostics.
func (s *Sharded) ShardDepth(n int) uint32 {
	return s.shards[n].GlobalDepth()
}

// Close closes every shard's index file, returning the first error.
func (s *Sharded) Close() error {
	var firstErr error
	for _, idx := range s.shards {
		if idx == nil {
			continue
		}
		if err := idx.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
