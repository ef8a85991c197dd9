// Package btree implements the B+ tree file's external contract (spec
// §4.4): ordered point and range iteration by key, insert and delete
// maintaining B+ tree invariants, while leaving the on-disk node format
// unspecified beyond what the engine needs. Page layout and split
// logic are adapted from the teacher's pin-based B+ tree (bptree.go),
// rehomed onto the NO-STEAL buffer pool's GetPage contract instead of
// pin/unpin.
package btree

import (
	"encoding/binary"

	"simpledb/pkg/dbconfig"
	"simpledb/pkg/dberrors"
	"simpledb/pkg/dbtype"
	"simpledb/pkg/storage/page"
	"simpledb/pkg/txn"
)

type kind uint8

const (
	kindMeta kind = iota
	kindLeaf
	kindInternal
)

const (
	noPage       int32 = -1
	metaHeaderSz       = 1 + 4 // kind, rootPageNo
	nodeHeaderSz       = 1 + 4 + 4 + 4 // kind, parent, count, next (next unused on internal)
	leafEntrySz        = 4 + 4 + 4     // key, pageNo, slot
	internalEntrySz    = 4 + 4         // key, childPageNo
)

// Page is a single node of the B+ tree file: the meta page (page 0,
// holding the root pointer), a leaf page (ordered key + record-identity
// pairs plus a right-sibling link), or an internal page (parallel
// key/child-pointer arrays indexed the same way the teacher's
// GetKey(i)/GetValueAsPageID(i) did: entry i's key is the separator for
// entry i's child subtree).
type Page struct {
	id    page.ID
	buf   []byte
	kind  kind
	dirty bool
	owner txn.ID
}

func capacityFor(entrySz int) int {
	return (dbconfig.PageSize() - nodeHeaderSz) / entrySz
}

func newBlankPage(id page.ID, k kind) *Page {
	buf := make([]byte, dbconfig.PageSize())
	buf[0] = byte(k)
	p := &Page{id: id, buf: buf, kind: k}
	if k != kindMeta {
		p.setParent(noPage)
		p.setCount(0)
		p.setNext(noPage)
	} else {
		p.setRoot(noPage)
	}
	return p
}

// decodePage interprets data (as read from disk) according to its
// leading kind byte.
func decodePage(id page.ID, data []byte) *Page {
	buf := data
	if buf == nil {
		buf = make([]byte, dbconfig.PageSize())
	}
	return &Page{id: id, buf: buf, kind: kind(buf[0])}
}

func (p *Page) ID() page.ID   { return p.id }
func (p *Page) Bytes() []byte { return p.buf }
func (p *Page) IsDirty() (bool, txn.ID) { return p.dirty, p.owner }
func (p *Page) MarkDirty(dirty bool, tid txn.ID) {
	p.dirty = dirty
	p.owner = tid
}

func (p *Page) isLeaf() bool     { return p.kind == kindLeaf }
func (p *Page) isInternal() bool { return p.kind == kindInternal }
func (p *Page) isMeta() bool     { return p.kind == kindMeta }

// --- meta page ---

func (p *Page) root() int32 {
	return int32(binary.BigEndian.Uint32(p.buf[1:5]))
}

func (p *Page) setRoot(pageNo int32) {
	binary.BigEndian.PutUint32(p.buf[1:5], uint32(pageNo))
}

// --- common node fields ---

func (p *Page) parent() int32 {
	return int32(binary.BigEndian.Uint32(p.buf[1:5]))
}

func (p *Page) setParent(pageNo int32) {
	binary.BigEndian.PutUint32(p.buf[1:5], uint32(pageNo))
}

func (p *Page) count() int {
	return int(int32(binary.BigEndian.Uint32(p.buf[5:9])))
}

func (p *Page) setCount(n int) {
	binary.BigEndian.PutUint32(p.buf[5:9], uint32(int32(n)))
}

func (p *Page) next() int32 {
	return int32(binary.BigEndian.Uint32(p.buf[9:13]))
}

func (p *Page) setNext(pageNo int32) {
	binary.BigEndian.PutUint32(p.buf[9:13], uint32(pageNo))
}

// --- leaf entries: key(4) + pageNo(4) + slot(4), sorted by key ---

func (p *Page) leafCapacity() int { return capacityFor(leafEntrySz) }

func (p *Page) leafOffset(i int) int { return nodeHeaderSz + i*leafEntrySz }

func (p *Page) leafKey(i int) int32 {
	off := p.leafOffset(i)
	return int32(binary.BigEndian.Uint32(p.buf[off : off+4]))
}

func (p *Page) leafRID(i int) dbtype.RecordID {
	off := p.leafOffset(i)
	pageNo := int32(binary.BigEndian.Uint32(p.buf[off+4 : off+8]))
	slot := int32(binary.BigEndian.Uint32(p.buf[off+8 : off+12]))
	return dbtype.RecordID{PID: page.ID{TableID: p.id.TableID, PageNo: pageNo}, Slot: int(slot)}
}

func (p *Page) setLeafEntry(i int, key int32, rid dbtype.RecordID) {
	off := p.leafOffset(i)
	binary.BigEndian.PutUint32(p.buf[off:off+4], uint32(key))
	binary.BigEndian.PutUint32(p.buf[off+4:off+8], uint32(rid.PID.PageNo))
	binary.BigEndian.PutUint32(p.buf[off+8:off+12], uint32(int32(rid.Slot)))
}

// leafInsert inserts (key, rid) in sorted position. Caller must have
// checked there is room.
func (p *Page) leafInsert(key int32, rid dbtype.RecordID) {
	n := p.count()
	i := n
	for i > 0 && p.leafKey(i-1) > key {
		i--
	}
	for j := n; j > i; j-- {
		k := p.leafKey(j - 1)
		r := p.leafRID(j - 1)
		p.setLeafEntry(j, k, r)
	}
	p.setLeafEntry(i, key, rid)
	p.setCount(n + 1)
}

// leafRemoveAt removes the entry at index i, shifting subsequent
// entries down.
func (p *Page) leafRemoveAt(i int) {
	n := p.count()
	for j := i; j < n-1; j++ {
		p.setLeafEntry(j, p.leafKey(j+1), p.leafRID(j+1))
	}
	off := p.leafOffset(n - 1)
	for k := off; k < off+leafEntrySz; k++ {
		p.buf[k] = 0
	}
	p.setCount(n - 1)
}

// leafFind returns the live index of the entry originally inserted as
// (key, rid). leafInsert/leafRemoveAt always shift whole (key, rid)
// pairs together, so the pair's *content* is stable even though its
// index moves as siblings are inserted or removed around it — unlike
// the index a RecordID was stamped with at insert time, which can go
// stale the moment a later insert lands before it in sorted order.
func (p *Page) leafFind(key int32, rid dbtype.RecordID) (int, bool) {
	for i := 0; i < p.count(); i++ {
		if p.leafKey(i) == key && p.leafRID(i) == rid {
			return i, true
		}
	}
	return -1, false
}

// --- internal entries: key(4) + childPageNo(4) ---

func (p *Page) internalCapacity() int { return capacityFor(internalEntrySz) }

func (p *Page) internalOffset(i int) int { return nodeHeaderSz + i*internalEntrySz }

func (p *Page) internalKey(i int) int32 {
	off := p.internalOffset(i)
	return int32(binary.BigEndian.Uint32(p.buf[off : off+4]))
}

func (p *Page) internalChild(i int) int32 {
	off := p.internalOffset(i)
	return int32(binary.BigEndian.Uint32(p.buf[off+4 : off+8]))
}

func (p *Page) setInternalEntry(i int, key, child int32) {
	off := p.internalOffset(i)
	binary.BigEndian.PutUint32(p.buf[off:off+4], uint32(key))
	binary.BigEndian.PutUint32(p.buf[off+4:off+8], uint32(child))
}

// internalFindChild returns the child pointer for key per the teacher's
// rule: the largest i with key[i] <= target, else entry 0.
func (p *Page) internalFindChild(key int32) int32 {
	n := p.count()
	for i := n - 1; i >= 0; i-- {
		if p.internalKey(i) <= key {
			return p.internalChild(i)
		}
	}
	if n > 0 {
		return p.internalChild(0)
	}
	return noPage
}

// internalInsert adds (key, child) in key order. Entry 0's child also
// holds keys below entry 0's key, so a key below it lowers entry 0's
// key first and the new entry lands right after entry 0.
func (p *Page) internalInsert(key, child int32) {
	n := p.count()
	if n > 0 && key < p.internalKey(0) {
		p.setInternalEntry(0, key, p.internalChild(0))
	}
	i := n
	for i > 0 && p.internalKey(i-1) > key {
		i--
	}
	for j := n; j > i; j-- {
		p.setInternalEntry(j, p.internalKey(j-1), p.internalChild(j-1))
	}
	p.setInternalEntry(i, key, child)
	p.setCount(n + 1)
}

func (p *Page) internalRemoveAt(i int) {
	n := p.count()
	for j := i; j < n-1; j++ {
		p.setInternalEntry(j, p.internalKey(j+1), p.internalChild(j+1))
	}
	off := p.internalOffset(n - 1)
	for k := off; k < off+internalEntrySz; k++ {
		p.buf[k] = 0
	}
	p.setCount(n - 1)
}

func errCorrupt(reason string) error {
	return dberrors.DBException("btree: %s", reason)
}
