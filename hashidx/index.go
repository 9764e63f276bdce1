// Package hashidx implements the extendible hash index: a directory that
// maps a hash prefix to a fixed-size on-disk page, a page buffer pool built
// on the sharded LRU cache, and the split/double protocol that grows pages
// and the directory on overflow.
package hashidx

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/IvanBrykalov/kvindex/cache"
	"github.com/IvanBrykalov/kvindex/internal/murmur"
	"github.com/IvanBrykalov/kvindex/policy"
	"github.com/IvanBrykalov/kvindex/record"
)

const (
	defaultInitialBits = 10
	defaultPoolBytes   = 300 * 1024 * 1024
	defaultPoolPages   = defaultPoolBytes / PageSize // 38400
)

// Options configures an Index. Zero value is safe; defaults are applied in
// New(): InitialBits=10 (spec g0), PoolPages sized for 300MiB of pages.
type Options struct {
	// InitialBits is the initial global depth g0. 0 => defaultInitialBits.
	InitialBits uint32

	// PoolPages is the page buffer pool capacity, in pages. 0 => enough
	// pages for 300MiB (the spec's fixed pool size).
	PoolPages int
	// PoolShards is the number of buffer-pool LRU shards. 0 => auto.
	PoolShards int
	// PoolPolicy selects the page buffer pool's eviction policy; nil => LRU.
	// policy/twoq.New can be plugged in for scan-resistant workloads.
	PoolPolicy policy.Policy[uint32, *Page]

	// Metrics receives Hit/Miss/Evict/Size signals from the page pool.
	Metrics cache.Metrics

	// OnFlushError is called (from the eviction callback, under the
	// pool-shard lock) when a write-back of an evicted page to the index file fails. If nil,
	// flush errors are silently dropped, matching the source's lack of a
	// flush error path — callers that need durability guarantees should
	// set this.
	OnFlushError func(pageNumber uint32, err error)
}

func (o Options) withDefaults() Options {
	if o.InitialBits == 0 {
		o.InitialBits = defaultInitialBits
	}
	if o.PoolPages <= 0 {
		o.PoolPages = defaultPoolPages
	}
	return o
}

// Index is one extendible-hash instance: its own directory, page buffer
// pool, and a read/write lock serializing directory mutation. A single
// Index is typically one shard of a Sharded; see sharded.go.
type Index struct {
	dataFile  io.ReaderAt
	indexFile *os.File

	mu  sync.RWMutex
	dir *directory

	pool         cache.Cache[uint32, *Page]
	onFlushError func(pageNumber uint32, err error)
}

// New constructs an Index backed by dataFile (for record lookups) and
// indexFile (for page storage). It allocates and persists the initial
// 2^InitialBits empty pages before returning.
func New(dataFile io.ReaderAt, indexFile *os.File, opts Options) (*Index, error) {
	opts = opts.withDefaults()

	idx := &Index{
		dataFile:     dataFile,
		indexFile:    indexFile,
		dir:          newDirectory(opts.InitialBits),
		onFlushError: opts.OnFlushError,
	}

	metrics := opts.Metrics
	if metrics == nil {
		metrics = cache.NoopMetrics{}
	}

	idx.pool = cache.New[uint32, *Page](cache.Options[uint32, *Page]{
		Capacity: opts.PoolPages,
		Shards:   opts.PoolShards,
		Policy:   opts.PoolPolicy,
		Metrics:  metrics,
		OnEvict: func(pageNo uint32, page *Page, _ cache.EvictReason) {
			idx.flushPage(page)
		},
		Loader: func(_ context.Context, pageNo uint32) (*Page, error) {
			return idx.readPageFromFile(pageNo)
		},
	})

	buf := make([]byte, PageSize)
	for i, pageNo := range idx.dir.table {
		page := newPage(pageNo, idx.dir.bits)
		if err := page.Marshal(buf); err != nil {
			return nil, err
		}
		if _, err := indexFile.WriteAt(buf, int64(pageNo)*PageSize); err != nil {
			return nil, fmt.Errorf("hashidx: writing initial page %d: %w", i, err)
		}
	}
	return idx, nil
}

// SetOffset records the byte offset of key's record in the data file.
// It retries internally across split/double protocol steps; each retry
// re-acquires the lock fresh, so progress is always guaranteed.
func (idx *Index) SetOffset(key []byte, offset uint64) error {
	return idx.setOffsetHash(murmur.Hash64(key), offset)
}

// setOffsetHash is SetOffset's implementation, parameterized on an
// already-computed hash so tests can drive the split/double protocol with
// synthetic hashes without depending on MurmurHash2-A's distribution.
func (idx *Index) setOffsetHash(h, offset uint64) error {
	for {
		done, err := idx.trySetOffset(h, offset)
		if err != nil {
			return err
		}
		if done {
			return nil
		}
	}
}

// trySetOffset attempts one insertion attempt under the exclusive lock. It
// returns done=true on success, or done=false after performing exactly one
// split or double (having released the lock), signaling the caller to retry.
func (idx *Index) trySetOffset(h, offset uint64) (done bool, err error) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	oldIdx := idx.dir.prefixOf(h)
	pageNo := idx.dir.table[oldIdx]
	page, err := idx.loadPageLocked(pageNo)
	if err != nil {
		return false, err
	}

	if !page.Full() {
		page.append(Node{Hash: h, Offset: offset})
		idx.pool.Set(pageNo, page)
		return true, nil
	}

	// A full page whose nodes all carry h cannot be relieved by any split
	// or double: every node would land on the same side again.
	sameHash := true
	for i := uint64(0); i < page.Num; i++ {
		if page.Nodes[i].Hash != h {
			sameHash = false
			break
		}
	}
	if sameHash {
		return false, ErrOverflowUnresolvable
	}

	if page.Bits == idx.dir.bits {
		if idx.dir.bits >= maxGlobalBits {
			return false, ErrOverflowUnresolvable
		}
		if err := idx.double(oldIdx); err != nil {
			return false, err
		}
		return false, nil
	}

	if err := idx.split(oldIdx, page); err != nil {
		return false, err
	}
	return false, nil
}

// GetValue looks up key and returns its stored value, or (nil, nil) if
// absent. The shared lock is held for the full operation, including the
// data-file read, so a concurrent SetOffset never observes a half-updated
// page mid-lookup.
func (idx *Index) GetValue(key []byte) ([]byte, error) {
	return idx.getValueHash(murmur.Hash64(key), key)
}

// getValueHash is GetValue's implementation, parameterized on an
// already-computed hash so tests can drive hash-collision scenarios with
// synthetic hashes without depending on MurmurHash2-A producing one.
func (idx *Index) getValueHash(h uint64, key []byte) ([]byte, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	pageNo := idx.dir.pageFor(h)
	page, err := idx.loadPageLocked(pageNo)
	if err != nil {
		return nil, err
	}

	for i := uint64(0); i < page.Num; i++ {
		if page.Nodes[i].Hash != h {
			continue
		}
		rec, err := record.DecodeAt(idx.dataFile, int64(page.Nodes[i].Offset))
		if err != nil {
			return nil, err
		}
		if bytes.Equal(rec.Key, key) {
			return rec.Value, nil
		}
	}
	return nil, nil
}

// double grows the directory from g to g+1 and splits the now-divisible
// page at the doubled index, per spec.md §4.5.
func (idx *Index) double(oldIdx uint64) error {
	idx.dir.double()
	newIdx := oldIdx << 1
	pageNo := idx.dir.table[newIdx]
	page, err := idx.loadPageLocked(pageNo)
	if err != nil {
		return err
	}
	return idx.split(newIdx, page)
}

// split divides page's nodes between it (reused, local depth ℓ+1) and a new
// sibling page, and repoints every directory entry in the two half-ranges
// spec.md §4.5 describes.
func (idx *Index) split(tableIdx uint64, page *Page) error {
	g := idx.dir.bits
	ell := page.Bits
	newBits := ell + 1

	oldPrefix := tableIdx >> (uint64(g) - uint64(ell))
	siblingNo := idx.dir.allocPage()

	oldNodes := make([]Node, page.Num)
	copy(oldNodes, page.Nodes[:page.Num])

	pageA := page
	pageA.Bits = newBits
	pageA.Num = 0
	pageB := newPage(siblingNo, newBits)

	for _, n := range oldNodes {
		if (n.Hash>>(64-newBits))&1 == 0 {
			pageA.append(n)
		} else {
			pageB.append(n)
		}
	}

	span := uint64(1) << (uint64(g) - uint64(newBits))
	baseA := (oldPrefix << 1) * span
	baseB := ((oldPrefix << 1) + 1) * span
	for i := uint64(0); i < span; i++ {
		idx.dir.table[baseA+i] = pageA.Number
		idx.dir.table[baseB+i] = pageB.Number
	}

	idx.pool.Set(pageA.Number, pageA)
	idx.pool.Set(pageB.Number, pageB)
	return nil
}

// loadPageLocked returns the page for pageNo, pinning it through the buffer
// pool. Must be called with mu held (shared or exclusive).
func (idx *Index) loadPageLocked(pageNo uint32) (*Page, error) {
	return idx.pool.GetOrLoad(context.Background(), pageNo)
}

// readPageFromFile is the pool's Loader: a pread-equivalent positional read
// of one page image from the index file.
func (idx *Index) readPageFromFile(pageNo uint32) (*Page, error) {
	buf := make([]byte, PageSize)
	if _, err := idx.indexFile.ReadAt(buf, int64(pageNo)*PageSize); err != nil {
		return nil, fmt.Errorf("hashidx: reading page %d: %w", pageNo, err)
	}
	page := &Page{}
	if err := page.Unmarshal(buf); err != nil {
		return nil, err
	}
	return page, nil
}

// flushPage is the pool's eviction callback (PageFlush): a pwrite-equivalent
// positional write of the page image back to its slot. It runs under a
// pool-shard lock and must never re-enter idx.mu.
func (idx *Index) flushPage(page *Page) {
	buf := make([]byte, PageSize)
	if err := page.Marshal(buf); err != nil {
		idx.reportFlushErr(page.Number, err)
		return
	}
	if _, err := idx.indexFile.WriteAt(buf, int64(page.Number)*PageSize); err != nil {
		idx.reportFlushErr(page.Number, err)
	}
}

func (idx *Index) reportFlushErr(pageNumber uint32, err error) {
	if idx.onFlushError != nil {
		idx.onFlushError(pageNumber, err)
	}
}

// GlobalDepth returns the current directory global depth (for tests/metrics).
func (idx *Index) GlobalDepth() uint32 {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.dir.bits
}

// Close closes the index file.
func (idx *Index) Close() error {
	return idx.indexFile.Close()
}
