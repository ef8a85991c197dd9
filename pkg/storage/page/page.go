// Package page defines the page identity and the capability set shared
// by every concrete page kind (heap pages, B+ tree pages). It knows
// nothing about tuple encoding — that lives with the concrete page types
// in pkg/storage/heap and pkg/storage/btree — so the buffer pool can stay
// agnostic to what a page's bytes actually mean.
package page

import (
	"fmt"

	"simpledb/pkg/txn"
)

// ID identifies a page by the table it belongs to and its zero-based,
// dense page number within that table's file.
type ID struct {
	TableID uint64
	PageNo  int32
}

func (p ID) String() string {
	return fmt.Sprintf("page{table:%d,no:%d}", p.TableID, p.PageNo)
}

// Invalid is a sentinel page id (page number -1) for "no page"; it
// differs from the zero-value ID, which names page 0 of table 0.
var Invalid = ID{PageNo: -1}

// Page is the capability set the buffer pool operates on: identity, raw
// bytes for I/O, and in-memory-only dirty tracking. Heap pages and B+
// tree pages both satisfy this; the pool never inspects their contents.
type Page interface {
	ID() ID
	// Bytes returns the page's backing byte slice, exactly
	// dbconfig.PageSize long. Mutating it in place is how operators write
	// through a page; the caller must already hold the X lock on this
	// page's ID.
	Bytes() []byte
	// IsDirty reports whether any transaction has dirtied this page since
	// its last flush, and if so, which one.
	IsDirty() (bool, txn.ID)
	// MarkDirty records that tid has (or, with dirty=false, no longer
	// has) outstanding changes to this page.
	MarkDirty(dirty bool, tid txn.ID)
}
