package hashidx

import (
	"bytes"
	"encoding/binary"
	"os"
	"testing"
)

// encodedRecord returns the on-disk encoding of one (key, value) record.
func encodedRecord(key, value string) []byte {
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

// buildDataFile writes records sequentially to a temp file and returns the
// open file plus each record's starting offset.
func buildDataFile(t *testing.T, records [][2]string) (*os.File, []int64) {
	t.Helper()

	f, err := os.CreateTemp(t.TempDir(), "data-*.dat")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = f.Close() })

	offsets := make([]int64, len(records))
	var offset int64
	for i, kv := range records {
		offsets[i] = offset
		enc := encodedRecord(kv[0], kv[1])
		if _, err := f.WriteAt(enc, offset); err != nil {
			t.Fatal(err)
		}
		offset += int64(len(enc))
	}
	return f, offsets
}

// newTestIndexFile opens a fresh temp file to back one Index's page file.
func newTestIndexFile(t *testing.T) *os.File {
	t.Helper()
	f, err := os.CreateTemp(t.TempDir(), "hash-*.idx")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = f.Close() })
	return f
}

// newTestIndex builds an Index with a small initial depth so split/double
// scenarios are reachable without millions of keys.
func newTestIndex(t *testing.T, dataFile *os.File, initialBits uint32) *Index {
	t.Helper()
	idx, err := New(dataFile, newTestIndexFile(t), Options{
		InitialBits: initialBits,
		PoolPages:   64,
	})
	if err != nil {
		t.Fatal(err)
	}
	return idx
}
