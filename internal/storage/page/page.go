package page

import (
	"encoding/binary"
	"fmt"

	"github.com/OneOfOne/xxhash"
	util "github.com/bietkhonhungvandi212/pagedb/internal/utils"
	"github.com/pkg/errors"
)

const (
	HEADER_SIZE = 16 // Size of PageHeader on disk: PageID(8) + Checksum(4) + Variant(2) + padding(2)
	DATA_SIZE   = util.BlockSize - HEADER_SIZE
)

// Variant tags what a page stores
type Variant uint16

const (
	VariantRelation Variant = iota + 1
	VariantDictionary
)

func (v Variant) String() string {
	switch v {
	case VariantRelation:
		return "relation"
	case VariantDictionary:
		return "dictionary"
	}
	return fmt.Sprintf("Variant(%d)", uint16(v))
}

func (v Variant) valid() bool {
	return v == VariantRelation || v == VariantDictionary
}

// Page is the in-memory copy of one block
type Page struct {
	Header PageHeader
	Data   [DATA_SIZE]byte

	pinCount int32
	dirty    bool
}

type PageHeader struct {
	PageID   util.PageID // 8 bytes on disk
	Checksum uint32      // 4 bytes
	Variant  Variant     // 2 bytes
	_        uint16      // 2 bytes (padding)
}

func New(id util.PageID, variant Variant) *Page {
	return &Page{Header: PageHeader{PageID: id, Variant: variant}}
}

func NewRelationPage(id util.PageID) *Page {
	return New(id, VariantRelation)
}

func (p *Page) ID() util.PageID {
	return p.Header.PageID
}

func (p *Page) Variant() Variant {
	return p.Header.Variant
}

func (p *Page) PinCount() int32 {
	return p.pinCount
}

func (p *Page) IncrPinCount() int32 {
	p.pinCount++
	return p.pinCount
}

// DecrPinCount fails with ErrPageNotPinned instead of going negative
func (p *Page) DecrPinCount() (int32, error) {
	if p.pinCount <= 0 {
		return 0, util.ErrPageNotPinned
	}
	p.pinCount--
	return p.pinCount, nil
}

func (p *Page) IsDirty() bool {
	return p.dirty
}

func (p *Page) SetDirty() {
	p.dirty = true
}

func (p *Page) ClearDirty() {
	p.dirty = false
}

// Serialize packs the page into a block and stamps the checksum
func (p *Page) Serialize() []byte {
	buf := make([]byte, util.BlockSize)
	binary.LittleEndian.PutUint64(buf[0:8], uint64(p.Header.PageID))
	binary.LittleEndian.PutUint16(buf[12:14], uint16(p.Header.Variant))
	copy(buf[HEADER_SIZE:], p.Data[:])

	p.Header.Checksum = checksum(buf)
	binary.LittleEndian.PutUint32(buf[8:12], p.Header.Checksum)
	return buf
}

// Deserialize unpacks from bytes, validates checksum
func Deserialize(data []byte) (*Page, error) {
	if len(data) != util.BlockSize {
		return nil, errors.Wrapf(util.ErrInvalidBlockSize, "got %d bytes", len(data))
	}

	p := &Page{}
	p.Header.PageID = util.PageID(binary.LittleEndian.Uint64(data[0:8]))
	p.Header.Checksum = binary.LittleEndian.Uint32(data[8:12])
	p.Header.Variant = Variant(binary.LittleEndian.Uint16(data[12:14]))

	// A hole in the file reads back as zeroes.
	if p.Header.Variant == 0 && p.Header.Checksum == 0 {
		return nil, util.ErrBlockNotWritten
	}
	if !p.Header.Variant.valid() {
		return nil, errors.Wrapf(util.ErrUnknownVariant, "page %d: %d", p.Header.PageID, p.Header.Variant)
	}
	if sum := checksum(data); sum != p.Header.Checksum {
		return nil, errors.Wrapf(util.ErrChecksumMismatch, "page %d: stored %08x computed %08x",
			p.Header.PageID, p.Header.Checksum, sum)
	}

	copy(p.Data[:], data[HEADER_SIZE:])
	return p, nil
}

// checksum covers everything except the checksum field itself
func checksum(block []byte) uint32 {
	h := xxhash.New32()
	h.Write(block[0:8])
	h.Write(block[12:])
	return h.Sum32()
}
