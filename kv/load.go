package kv

import (
	"os"

	"golang.org/x/sync/errgroup"

	"github.com/IvanBrykalov/kvindex/record"
)

// defaultLoaderConcurrency bounds the number of in-flight SetOffset calls
// Load dispatches at once, matching original_source/kvindex.cc's
// ThreadPool(10) worker pool.
const defaultLoaderConcurrency = 10

// Load rescans dataPath sequentially with record.Walk and dispatches one
// SetOffset call per record onto a bounded worker pool, rebuilding the
// index from scratch. It returns the first error encountered by any
// worker, after all in-flight work has drained.
func (kv *KV) Load(dataPath string) error {
	f, err := os.Open(dataPath)
	if err != nil {
		return err
	}
	defer f.Close()

	g := new(errgroup.Group)
	g.SetLimit(kv.loaderConcurrency)

	walkErr := record.Walk(f, func(rec record.Record, offset int64) error {
		key := string(rec.Key)
		off := uint64(offset)
		g.Go(func() error {
			return kv.idx.SetOffset([]byte(key), off)
		})
		return nil
	})
	if walkErr != nil {
		_ = g.Wait()
		return walkErr
	}
	return g.Wait()
}
