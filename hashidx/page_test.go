package hashidx

import "testing"

func TestPageMarshalUnmarshalRoundTrip(t *testing.T) {
	t.Parallel()

	p := newPage(7, 10)
	p.append(Node{Hash: 0x1122334455667788, Offset: 42})
	p.append(Node{Hash: 0xaabbccddeeff0011, Offset: 99})

	buf := make([]byte, PageSize)
	if err := p.Marshal(buf); err != nil {
		t.Fatal(err)
	}

	got := &Page{}
	if err := got.Unmarshal(buf); err != nil {
		t.Fatal(err)
	}

	if got.Bits != p.Bits || got.Number != p.Number || got.Num != p.Num {
		t.Fatalf("header mismatch: got %+v, want %+v", got, p)
	}
	for i := uint64(0); i < p.Num; i++ {
		if got.Nodes[i] != p.Nodes[i] {
			t.Fatalf("node %d mismatch: got %+v, want %+v", i, got.Nodes[i], p.Nodes[i])
		}
	}
}

func TestPageMarshalWrongSize(t *testing.T) {
	t.Parallel()

	p := newPage(0, 10)
	if err := p.Marshal(make([]byte, PageSize-1)); err == nil {
		t.Fatal("expected error for undersized buffer")
	}
}

func TestPageFullAndAppend(t *testing.T) {
	t.Parallel()

	p := newPage(0, 10)
	for i := 0; i < MaxNodes; i++ {
		if p.Full() {
			t.Fatalf("page reports full early at i=%d", i)
		}
		p.append(Node{Hash: uint64(i), Offset: uint64(i)})
	}
	if !p.Full() {
		t.Fatal("page should report full after MaxNodes appends")
	}
	if p.Num != MaxNodes {
		t.Fatalf("Num = %d, want %d", p.Num, MaxNodes)
	}
}

func TestMaxNodesMatchesLayout(t *testing.T) {
	t.Parallel()
	// N = (P - 128) / 128 per spec.md §3.
	want := (PageSize - 128) / 128
	if MaxNodes != want {
		t.Fatalf("MaxNodes = %d, want %d", MaxNodes, want)
	}
	if headerSize+MaxNodes*nodeSlotSize != PageSize {
		t.Fatalf("layout does not sum to PageSize: %d + %d*%d != %d",
			headerSize, MaxNodes, nodeSlotSize, PageSize)
	}
}
