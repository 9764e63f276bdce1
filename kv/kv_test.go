package kv

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/IvanBrykalov/kvindex/hashidx"
)

func encodeRecord(key, value string) []byte {
	var buf bytes.Buffer
	var lenBuf [4]byte
	binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(key)))
	buf.Write(lenBuf[:])
	buf.WriteString(key)
	binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(value)))
	buf.Write(lenBuf[:])
	buf.WriteString(value)
	return buf.Bytes()
}

// writeDataFile writes records sequentially to a fresh file under the test's
// temp dir and returns its path.
func writeDataFile(t *testing.T, records [][2]string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data.dat")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	var offset int64
	for _, kvp := range records {
		enc := encodeRecord(kvp[0], kvp[1])
		if _, err := f.WriteAt(enc, offset); err != nil {
			t.Fatal(err)
		}
		offset += int64(len(enc))
	}
	return path
}

func openKV(t *testing.T, dataPath string) *KV {
	t.Helper()
	dataFile, err := os.Open(dataPath)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = dataFile.Close() })

	prefix := filepath.Join(t.TempDir(), "hash")
	kv, err := Open(dataFile, prefix, Options{
		Index: hashidx.Options{InitialBits: 2, PoolPages: 256},
	})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = kv.Close() })
	return kv
}

func TestLoadThenGet(t *testing.T) {
	t.Parallel()

	const n = 300
	records := make([][2]string, n)
	for i := 0; i < n; i++ {
		records[i] = [2]string{fmt.Sprintf("load-key-%04d", i), fmt.Sprintf("load-value-%04d", i)}
	}
	path := writeDataFile(t, records)
	kv := openKV(t, path)

	if err := kv.Load(path); err != nil {
		t.Fatal(err)
	}

	for i, rec := range records {
		v, err := kv.Get(rec[0])
		if err != nil {
			t.Fatalf("Get(%q): %v", rec[0], err)
		}
		if string(v) != rec[1] {
			t.Fatalf("record %d: Get(%q) = %q, want %q", i, rec[0], v, rec[1])
		}
	}
}

func TestGetMissIsCachedAndReturnsNil(t *testing.T) {
	t.Parallel()

	path := writeDataFile(t, nil)
	kv := openKV(t, path)

	v, err := kv.Get("absent")
	if err != nil {
		t.Fatal(err)
	}
	if v != nil {
		t.Fatalf("Get(absent) = %q, want nil", v)
	}

	// Second call should be served from the (negative) cache entry, not the
	// index, and still report a miss.
	v, err = kv.Get("absent")
	if err != nil {
		t.Fatal(err)
	}
	if v != nil {
		t.Fatalf("Get(absent) second call = %q, want nil", v)
	}
}

func TestSetOffsetInvalidatesValueCache(t *testing.T) {
	t.Parallel()

	path := writeDataFile(t, [][2]string{{"k", "first"}})
	kv := openKV(t, path)

	if err := kv.SetOffset("k", 0); err != nil {
		t.Fatal(err)
	}
	v, err := kv.Get("k")
	if err != nil {
		t.Fatal(err)
	}
	if string(v) != "first" {
		t.Fatalf("Get(k) = %q, want %q", v, "first")
	}

	// Rewrite the data file in place with a second record at a new offset
	// and repoint the key via SetOffset; the cached "first" must not stick.
	f, err := os.OpenFile(path, os.O_RDWR, 0o644)
	if err != nil {
		t.Fatal(err)
	}
	enc := encodeRecord("k", "second")
	secondOffset := int64(len(encodeRecord("k", "first")))
	if _, err := f.WriteAt(enc, secondOffset); err != nil {
		t.Fatal(err)
	}
	f.Close()

	if err := kv.SetOffset("k", uint64(secondOffset)); err != nil {
		t.Fatal(err)
	}

	v, err = kv.Get("k")
	if err != nil {
		t.Fatal(err)
	}
	if string(v) != "second" {
		t.Fatalf("Get(k) after SetOffset = %q, want %q (stale value-cache entry survived)", v, "second")
	}
}

func TestGlobalDepths(t *testing.T) {
	t.Parallel()

	path := writeDataFile(t, nil)
	kv := openKV(t, path)

	depths := kv.GlobalDepths()
	for i, d := range depths {
		if d != 2 {
			t.Fatalf("shard %d global depth = %d, want 2 (InitialBits)", i, d)
		}
	}
}
