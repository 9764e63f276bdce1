// Command kv is a minimal driver: it loads a data file into a fresh index
// and looks up one key, mirroring the thin client the engineering core was
// originally embedded in.
package main

import (
	"flag"
	"log"
	"os"

	"github.com/IvanBrykalov/kvindex/hashidx"
	"github.com/IvanBrykalov/kvindex/kv"
)

func main() {
	var (
		dataPath    = flag.String("data", "data.dat", "path to the data file to load")
		indexPrefix = flag.String("index", "data.idx", "path prefix for the S=16 shard index files")
		lookupKey   = flag.String("key", "jkvLfNTuJejW4x8jqVNymd", "key to look up after loading")
	)
	flag.Parse()

	dataFile, err := os.Open(*dataPath)
	if err != nil {
		log.Fatalf("opening data file: %v", err)
	}
	defer dataFile.Close()

	store, err := kv.Open(dataFile, *indexPrefix, kv.Options{
		Index: hashidx.Options{},
	})
	if err != nil {
		log.Fatalf("opening index: %v", err)
	}
	defer store.Close()

	log.Println("Loading...")
	if err := store.Load(*dataPath); err != nil {
		log.Fatalf("loading: %v", err)
	}
	log.Println("Loading completed")

	value, err := store.Get(*lookupKey)
	if err != nil {
		log.Fatalf("get %q: %v", *lookupKey, err)
	}
	log.Printf("%s %s\n", *lookupKey, value)
	log.Println("exit")
}
