package hashidx

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

func TestOpenShardedCreatesAllShardFiles(t *testing.T) {
	t.Parallel()

	dataFile, _ := buildDataFile(t, nil)
	prefix := filepath.Join(t.TempDir(), "hash")

	s, err := OpenSharded(dataFile, prefix, Options{InitialBits: 2, PoolPages: 64})
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	for i := 0; i < ShardCount; i++ {
		path := fmt.Sprintf("%s.%d", prefix, i)
		if _, err := os.Stat(path); err != nil {
			t.Fatalf("shard file %d missing: %v", i, err)
		}
	}
}

func TestShardedRoutingIsConsistent(t *testing.T) {
	t.Parallel()

	for _, key := range [][]byte{[]byte("alpha"), []byte("beta"), []byte(""), []byte("a long key with spaces")} {
		s1 := topShard(key)
		s2 := topShard(key)
		if s1 != s2 {
			t.Fatalf("topShard(%q) not stable: %d vs %d", key, s1, s2)
		}
		if s1 < 0 || s1 >= ShardCount {
			t.Fatalf("topShard(%q) = %d out of range [0,%d)", key, s1, ShardCount)
		}
	}
}

func TestShardedEndToEnd(t *testing.T) {
	t.Parallel()

	const n = 500
	records := make([][2]string, n)
	for i := 0; i < n; i++ {
		records[i] = [2]string{fmt.Sprintf("shard-key-%04d", i), fmt.Sprintf("shard-value-%04d", i)}
	}
	dataFile, offsets := buildDataFile(t, records)
	prefix := filepath.Join(t.TempDir(), "hash")

	s, err := OpenSharded(dataFile, prefix, Options{InitialBits: 2, PoolPages: 256})
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	for i, rec := range records {
		if err := s.SetOffset([]byte(rec[0]), uint64(offsets[i])); err != nil {
			t.Fatalf("SetOffset(%q): %v", rec[0], err)
		}
	}

	for i, rec := range records {
		v, err := s.GetValue([]byte(rec[0]))
		if err != nil {
			t.Fatalf("GetValue(%q): %v", rec[0], err)
		}
		if string(v) != rec[1] {
			t.Fatalf("key %d: GetValue(%q) = %q, want %q", i, rec[0], v, rec[1])
		}
	}

	if v, err := s.GetValue([]byte("nonexistent-key")); err != nil || v != nil {
		t.Fatalf("GetValue(missing) = %q, %v, want nil, nil", v, err)
	}
}

func TestShardedUsesMultipleShards(t *testing.T) {
	t.Parallel()

	seen := make(map[int]bool)
	for i := 0; i < 1000; i++ {
		key := []byte(fmt.Sprintf("distribution-key-%d", i))
		seen[topShard(key)] = true
		if len(seen) == ShardCount {
			return
		}
	}
	if len(seen) < 2 {
		t.Fatalf("topShard used only %d distinct shard(s) across 1000 keys", len(seen))
	}
}
