// Command bench runs a synthetic workload against a kv.KV instance and
// exposes optional pprof/Prometheus endpoints.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	_ "net/http/pprof" // registers /debug/pprof/* on DefaultServeMux
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/IvanBrykalov/kvindex/hashidx"
	"github.com/IvanBrykalov/kvindex/kv"
	pmet "github.com/IvanBrykalov/kvindex/metrics/prom"
	"github.com/IvanBrykalov/kvindex/policy/twoq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	// ---- Flags ----
	var (
		keys       = flag.Int("keys", 200_000, "keyspace size (records generated into the data file)")
		valueSize  = flag.Int("valsize", 64, "synthetic value size in bytes")
		poolPages  = flag.Int("pool_pages", 0, "page buffer pool capacity in pages (0=hashidx default)")
		poolShards = flag.Int("pool_shards", 0, "page buffer pool shard count (0=auto)")
		policyName = flag.String("policy", "lru", "page pool eviction policy: lru | 2q")

		workers  = flag.Int("workers", 2*runtime.GOMAXPROCS(0), "number of worker goroutines")
		duration = flag.Duration("duration", 10*time.Second, "benchmark duration")
		readPct  = flag.Int("reads", 80, "read percentage [0..100]")

		zipfS = flag.Float64("zipf_s", 1.1, "Zipf s > 1 (skew)")
		zipfV = flag.Float64("zipf_v", 1.0, "Zipf v")
		seed  = flag.Int64("seed", time.Now().UnixNano(), "random seed")

		pprofAddr   = flag.String("pprof", "", "serve pprof at addr (e.g. :6060); empty = disabled")
		metricsAddr = flag.String("http", ":8080", "serve Prometheus metrics at addr")
	)
	flag.Parse()

	// ---- pprof server (on DefaultServeMux) ----
	if *pprofAddr != "" {
		go func() {
			log.Printf("pprof: serving at %s", *pprofAddr)
			log.Println(http.ListenAndServe(*pprofAddr, nil))
		}()
	}

	// ---- Prometheus metrics (on DefaultServeMux) ----
	pagePoolMetrics := pmet.New(nil, "kvindex", "pagepool", nil)
	valueCacheMetrics := pmet.New(nil, "kvindex", "valuecache", nil)
	http.Handle("/metrics", promhttp.Handler())
	go func() {
		log.Printf("metrics: serving at %s", *metricsAddr)
		log.Println(http.ListenAndServe(*metricsAddr, nil))
	}()

	// ---- Generate a synthetic data file and build the index over it ----
	dir, err := os.MkdirTemp("", "kvindex-bench-*")
	if err != nil {
		log.Fatalf("mkdir temp: %v", err)
	}
	defer os.RemoveAll(dir)

	dataPath := filepath.Join(dir, "data.dat")
	records := *keys
	offsets := generateDataFile(dataPath, records, *valueSize)

	dataFile, err := os.Open(dataPath)
	if err != nil {
		log.Fatalf("opening data file: %v", err)
	}
	defer dataFile.Close()

	indexOpts := hashidx.Options{
		PoolPages:  *poolPages,
		PoolShards: *poolShards,
		Metrics:    pagePoolMetrics,
	}
	switch *policyName {
	case "lru":
		// nil => LRU by default
	case "2q":
		poolCap := *poolPages
		if poolCap <= 0 {
			poolCap = 38400
		}
		indexOpts.PoolPolicy = twoq.New[uint32, *hashidx.Page](poolCap/4, poolCap/2)
	default:
		log.Fatalf("unknown policy: %q (use lru or 2q)", *policyName)
	}

	store, err := kv.Open(dataFile, filepath.Join(dir, "index"), kv.Options{
		Index:             indexOpts,
		ValueCacheMetrics: valueCacheMetrics,
	})
	if err != nil {
		log.Fatalf("opening index: %v", err)
	}
	defer store.Close()

	log.Println("loading synthetic data file...")
	if err := store.Load(dataPath); err != nil {
		log.Fatalf("loading: %v", err)
	}
	log.Println("load complete, starting workload")

	// ---- Snapshot flags for goroutines ----
	readPctVal := *readPct
	keysMax := uint64(records - 1)
	seedBase := *seed
	zipfSVal := *zipfS
	zipfVVal := *zipfV
	workersN := *workers
	if workersN <= 0 {
		workersN = 1
	}

	// ---- Load generation ----
	var reads, writes, hits, misses, total uint64
	ctx, cancel := context.WithTimeout(context.Background(), *duration)
	defer cancel()

	start := time.Now()
	var wg sync.WaitGroup
	wg.Add(workersN)
	for w := 0; w < workersN; w++ {
		go func(id int) {
			defer wg.Done()

			// Each worker gets its own RNG + Zipf (rand.Rand is NOT goroutine-safe).
			localR := rand.New(rand.NewSource(seedBase + int64(id)*9973))
			localZipf := rand.NewZipf(localR, zipfSVal, zipfVVal, keysMax)

			for {
				select {
				case <-ctx.Done():
					return
				default:
				}

				i := localZipf.Uint64()
				key := "k:" + strconv.FormatUint(i, 10)

				atomic.AddUint64(&total, 1)
				if int(localR.Int31n(100)) < readPctVal {
					atomic.AddUint64(&reads, 1)
					v, err := store.Get(key)
					if err != nil {
						log.Printf("get %q: %v", key, err)
						continue
					}
					if v != nil {
						atomic.AddUint64(&hits, 1)
					} else {
						atomic.AddUint64(&misses, 1)
					}
				} else {
					atomic.AddUint64(&writes, 1)
					if err := store.SetOffset(key, uint64(offsets[i])); err != nil {
						log.Printf("set_offset %q: %v", key, err)
					}
				}
			}
		}(w)
	}
	wg.Wait()
	elapsed := time.Since(start)

	// ---- Report ----
	ops := atomic.LoadUint64(&total)
	readsN := atomic.LoadUint64(&reads)
	writesN := atomic.LoadUint64(&writes)
	hitsN := atomic.LoadUint64(&hits)
	missesN := atomic.LoadUint64(&misses)

	hitRate := 0.0
	if readsN > 0 {
		hitRate = float64(hitsN) / float64(readsN) * 100
	}

	fmt.Printf("policy=%s keys=%d workers=%d dur=%v seed=%d\n",
		*policyName, records, workersN, elapsed, seedBase)
	fmt.Printf("ops=%d (%.0f ops/s)  reads=%d  writes=%d\n",
		ops, float64(ops)/elapsed.Seconds(), readsN, writesN)
	fmt.Printf("hits=%d  misses=%d  hit-rate=%.2f%%\n", hitsN, missesN, hitRate)
	depths := store.GlobalDepths()
	fmt.Printf("shard global depths: %v\n", depths)
}

// generateDataFile writes n records of the form key="k:<i>" with a random
// value of size valueSize bytes, returning each record's starting offset.
func generateDataFile(path string, n, valueSize int) []int64 {
	f, err := os.Create(path)
	if err != nil {
		log.Fatalf("creating data file: %v", err)
	}
	defer f.Close()

	r := rand.New(rand.NewSource(1))
	offsets := make([]int64, n)
	var offset int64
	value := make([]byte, valueSize)
	for i := 0; i < n; i++ {
		offsets[i] = offset
		key := []byte("k:" + strconv.Itoa(i))
		r.Read(value)

		var header [4]byte
		writeU32 := func(v int) {
			header[0] = byte(v)
			header[1] = byte(v >> 8)
			header[2] = byte(v >> 16)
			header[3] = byte(v >> 24)
			if _, err := f.WriteAt(header[:], offset); err != nil {
				log.Fatalf("writing record header: %v", err)
			}
			offset += 4
		}
		writeU32(len(key))
		if _, err := f.WriteAt(key, offset); err != nil {
			log.Fatalf("writing record key: %v", err)
		}
		offset += int64(len(key))
		writeU32(len(value))
		if _, err := f.WriteAt(value, offset); err != nil {
			log.Fatalf("writing record value: %v", err)
		}
		offset += int64(len(value))
	}
	return offsets
}
