// Package kv is the public facade: a value cache in front of the sharded
// extendible hash index (package hashidx), plus the parallel loader that
// rebuilds the index from a data file on startup.
package kv

import (
	"context"
	"io"

	"github.com/IvanBrykalov/kvindex/cache"
	"github.com/IvanBrykalov/kvindex/hashidx"
)

const defaultValueCacheBytes = 1 << 30 // 1 GiB, per spec.md §4.7

// defaultValueCacheCapacity bounds the value cache's entry count so
// cache.New's per-shard lists have a concrete size. With the 1 GiB default
// cost budget, this entry cap is the limit that binds first whenever the
// average cached value is under about 1 KiB (1 GiB / 1,000,000); cached
// misses cost 0 and are bounded by this cap alone.
const defaultValueCacheCapacity = 1_000_000

// Options configures a KV instance.
type Options struct {
	// Index configures the underlying sharded hash index (pool size,
	// policy, metrics). Zero value uses hashidx's own defaults.
	Index hashidx.Options

	// ValueCacheBytes is the value cache's total cost budget, charged per
	// entry as len(value). 0 => defaultValueCacheBytes (1 GiB).
	ValueCacheBytes int64
	// ValueCacheCapacity is the value cache's entry count limit. 0 =>
	// defaultValueCacheCapacity.
	ValueCacheCapacity int
	// ValueCacheShards is the value cache's shard count. 0 => auto.
	ValueCacheShards int
	// ValueCacheMetrics receives Hit/Miss/Evict/Size signals for the value
	// cache, distinct from the page pool's metrics.
	ValueCacheMetrics cache.Metrics

	// LoaderConcurrency bounds the number of in-flight SetOffset calls Load
	// dispatches concurrently. 0 => defaultLoaderConcurrency (10).
	LoaderConcurrency int
}

// KV is the value-cache-fronted, sharded hash index: the top-level type
// callers construct and drive.
type KV struct {
	idx   *hashidx.Sharded
	cache cache.Cache[string, []byte]

	loaderConcurrency int
}

// Open builds a KV reading records from dataFile and storing its S=16
// shard index files as "<indexPathPrefix>.<n>" (always rebuilt from
// scratch — see hashidx.OpenSharded). Callers typically follow Open with a
// call to Load to populate the index from dataFile's existing records.
func Open(dataFile io.ReaderAt, indexPathPrefix string, opts Options) (*KV, error) {
	idx, err := hashidx.OpenSharded(dataFile, indexPathPrefix, opts.Index)
	if err != nil {
		return nil, err
	}
	return newKV(idx, opts), nil
}

func newKV(idx *hashidx.Sharded, opts Options) *KV {
	maxCost := opts.ValueCacheBytes
	if maxCost <= 0 {
		maxCost = defaultValueCacheBytes
	}
	capacity := opts.ValueCacheCapacity
	if capacity <= 0 {
		capacity = defaultValueCacheCapacity
	}
	concurrency := opts.LoaderConcurrency
	if concurrency <= 0 {
		concurrency = defaultLoaderConcurrency
	}

	metrics := opts.ValueCacheMetrics
	if metrics == nil {
		metrics = cache.NoopMetrics{}
	}

	kv := &KV{idx: idx, loaderConcurrency: concurrency}
	kv.cache = cache.New[string, []byte](cache.Options[string, []byte]{
		Capacity: capacity,
		Shards:   opts.ValueCacheShards,
		Cost:     func(v []byte) int { return len(v) },
		MaxCost:  maxCost,
		Metrics:  metrics,
		Loader: func(_ context.Context, key string) ([]byte, error) {
			return kv.idx.GetValue([]byte(key))
		},
	})
	return kv
}

// Get returns key's value. A miss in the hash index is cached too (as a nil
// slice), matching spec.md §4.7's documented "negative caching" choice: the
// literal result, found or not, occupies a cache slot.
func (kv *KV) Get(key string) ([]byte, error) {
	return kv.cache.GetOrLoad(context.Background(), key)
}

// SetOffset records offset as key's record location in the data file, and
// invalidates any cached value for key so a subsequent Get observes it.
// This strengthens spec.md §9's "value cache vs writes" note: the source
// left the value cache unlinked from SetOffset, which it called a latent
// bug; a from-scratch rewrite closes it rather than reproduce it.
func (kv *KV) SetOffset(key string, offset uint64) error {
	if err := kv.idx.SetOffset([]byte(key), offset); err != nil {
		return err
	}
	kv.cache.Remove(key)
	return nil
}

// GlobalDepths returns each shard's current directory global depth, for
// diagnostics and tests.
func (kv *KV) GlobalDepths() [hashidx.ShardCount]uint32 {
	var out [hashidx.ShardCount]uint32
	for i := range out {
		out[i] = kv.idx.ShardDepth(i)
	}
	return out
}

// Close releases the underlying index files.
func (kv *KV) Close() error {
	return kv.idx.Close()
}
