package hashidx

import "encoding/binary"

// PageSize is the fixed size, in bytes, of one index page on disk.
const PageSize = 8192

// headerSize is the padded size of a page's three header fields (bits,
// number, num), chosen so every node begins on a 128-byte boundary.
const headerSize = 128

// nodeSlotSize is the reserved size of one node's slot within a page; only
// the first 16 bytes (hash, offset) are meaningful, the rest is padding.
const nodeSlotSize = 128

// MaxNodes is the number of node slots a page can hold.
const MaxNodes = (PageSize - headerSize) / nodeSlotSize

// Node is one (hash, offset) entry in a page: hash is the 64-bit
// MurmurHash2-A of a key, offset is the key's record's byte offset in the
// data file.
type Node struct {
	Hash   uint64
	Offset uint64
}

// Page is one fixed-size directory-owned bucket: a local depth (Bits), its
// own slot number in the index file (Number), and up to MaxNodes entries.
type Page struct {
	Bits   uint32
	Number uint32
	Num    uint64
	Nodes  [MaxNodes]Node
}

// newPage returns an empty page for the given slot number and local depth.
func newPage(number, bits uint32) *Page {
	return &Page{Bits: bits, Number: number}
}

// Full reports whether the page cannot accept another node without a
// split/double.
func (p *Page) Full() bool { return p.Num >= MaxNodes }

// append adds a node assuming the page is not full.
func (p *Page) append(n Node) {
	p.Nodes[p.Num] = n
	p.Num++
}

// Marshal encodes p into buf, which must be exactly PageSize bytes.
func (p *Page) Marshal(buf []byte) error {
	if len(buf) != PageSize {
		return errInvalidPageBuffer
	}
	for i := range buf {
		buf[i] = 0
	}
	binary.LittleEndian.PutUint32(buf[0:4], p.Bits)
	binary.LittleEndian.PutUint32(buf[4:8], p.Number)
	binary.LittleEndian.PutUint64(buf[8:16], p.Num)

	for i := uint64(0); i < p.Num && i < MaxNodes; i++ {
		slot := buf[headerSize+int(i)*nodeSlotSize:]
		binary.LittleEndian.PutUint64(slot[0:8], p.Nodes[i].Hash)
		binary.LittleEndian.PutUint64(slot[8:16], p.Nodes[i].Offset)
	}
	return nil
}

// Unmarshal decodes p from buf, which must be exactly PageSize bytes.
func (p *Page) Unmarshal(buf []byte) error {
	if len(buf) != PageSize {
		return errInvalidPageBuffer
	}
	p.Bits = binary.LittleEndian.Uint32(buf[0:4])
	p.Number = binary.LittleEndian.Uint32(buf[4:8])
	p.Num = binary.LittleEndian.Uint64(buf[8:16])
	if p.Num > MaxNodes {
		return errCorruptPage
	}
	for i := uint64(0); i < p.Num; i++ {
		slot := buf[headerSize+int(i)*nodeSlotSize:]
		p.Nodes[i] = Node{
			Hash:   binary.LittleEndian.Uint64(slot[0:8]),
			Offset: binary.LittleEndian.Uint64(slot[8:16]),
		}
	}
	return nil
}
