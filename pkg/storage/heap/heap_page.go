// Package heap implements the unordered heap file: the fixed-size heap
// page byte format (slot bitmap + tuple codec) and the file-to-page
// mapping with find-free-slot and extend-on-full insert policy, per spec
// §3 ("Heap page layout") and §4.3.
package heap

import (
	"simpledb/pkg/dbconfig"
	"simpledb/pkg/dbtype"
	"simpledb/pkg/storage/page"
	"simpledb/pkg/txn"
)

// Page is the heap page: a bitmap header of N bits (bit i set iff slot i
// is occupied) followed by N fixed-width tuple slots, padded with zeros.
// N is the largest value such that header+N*tupleSize <= pageSize.
type Page struct {
	id        page.ID
	desc      dbtype.Schema
	buf       []byte
	numSlots  int
	headerLen int
	dirty     bool
	owner     txn.ID
}

// numSlotsFor computes N, the max number of fixed-width tupleSize slots
// that fit alongside their ceil(N/8)-byte bitmap header in pageSize bytes.
func numSlotsFor(tupleSize, pageSize int) int {
	n := (pageSize * 8) / (tupleSize*8 + 1)
	for headerLenFor(n)+n*tupleSize > pageSize {
		n--
	}
	return n
}

func headerLenFor(n int) int {
	return (n + 7) / 8
}

// NewPage builds a heap page of identity id conforming to desc. If data
// is nil, an empty page is allocated (all slots clear); otherwise data
// must be exactly dbconfig.PageSize() bytes, as read from disk.
func NewPage(id page.ID, desc dbtype.Schema, data []byte) *Page {
	pageSize := dbconfig.PageSize()
	tupleSize := desc.ByteSize()
	n := numSlotsFor(tupleSize, pageSize)
	hl := headerLenFor(n)

	buf := data
	if buf == nil {
		buf = make([]byte, pageSize)
	}
	return &Page{id: id, desc: desc, buf: buf, numSlots: n, headerLen: hl}
}

func (p *Page) ID() page.ID   { return p.id }
func (p *Page) Bytes() []byte { return p.buf }
func (p *Page) IsDirty() (bool, txn.ID) { return p.dirty, p.owner }
func (p *Page) MarkDirty(dirty bool, tid txn.ID) {
	p.dirty = dirty
	p.owner = tid
}

// NumSlots is the slot capacity N.
func (p *Page) NumSlots() int { return p.numSlots }

func (p *Page) slotUsed(i int) bool {
	byteIdx := i / 8
	bitIdx := uint(i % 8)
	return p.buf[byteIdx]&(1<<bitIdx) != 0
}

func (p *Page) setSlotUsed(i int, used bool) {
	byteIdx := i / 8
	bitIdx := uint(i % 8)
	if used {
		p.buf[byteIdx] |= 1 << bitIdx
	} else {
		p.buf[byteIdx] &^= 1 << bitIdx
	}
}

// NumEmptySlots is the number of slots whose bit is cleared.
func (p *Page) NumEmptySlots() int {
	empty := 0
	for i := 0; i < p.numSlots; i++ {
		if !p.slotUsed(i) {
			empty++
		}
	}
	return empty
}

func (p *Page) slotOffset(i int) int {
	return p.headerLen + i*p.desc.ByteSize()
}

// Tuple decodes the tuple stored at slot i and assigns it a record
// identity. Returns db-exception if the slot is empty.
func (p *Page) Tuple(i int) (*dbtype.Tuple, error) {
	if !p.slotUsed(i) {
		return nil, errSlotEmpty(i)
	}
	off := p.slotOffset(i)
	t, err := dbtype.Decode(p.desc, p.buf[off:off+p.desc.ByteSize()])
	if err != nil {
		return nil, err
	}
	t.SetRecordID(dbtype.RecordID{PID: p.id, Slot: i})
	return t, nil
}

// InsertTuple writes t into the lowest-numbered cleared slot, sets that
// slot's bit, and assigns t the resulting record identity.
func (p *Page) InsertTuple(t *dbtype.Tuple) error {
	for i := 0; i < p.numSlots; i++ {
		if p.slotUsed(i) {
			continue
		}
		off := p.slotOffset(i)
		encoded := t.Encode()
		copy(p.buf[off:off+p.desc.ByteSize()], encoded)
		p.setSlotUsed(i, true)
		t.SetRecordID(dbtype.RecordID{PID: p.id, Slot: i})
		return nil
	}
	return errPageFull()
}

// DeleteTuple clears rid's slot and zeroes its payload, so a subsequent
// insert-then-delete of the same tuple leaves the page byte-identical to
// before the insert.
func (p *Page) DeleteTuple(rid dbtype.RecordID) error {
	if rid.PID != p.id {
		return errWrongPage(rid.PID, p.id)
	}
	if rid.Slot < 0 || rid.Slot >= p.numSlots || !p.slotUsed(rid.Slot) {
		return errSlotEmpty(rid.Slot)
	}
	off := p.slotOffset(rid.Slot)
	for i := off; i < off+p.desc.ByteSize(); i++ {
		p.buf[i] = 0
	}
	p.setSlotUsed(rid.Slot, false)
	return nil
}
