// Package dbfile defines the on-disk file contract shared by heap files
// and B+ tree files. The buffer pool and catalog only ever see a file
// through this interface — they never know whether a given table is
// heap- or tree-backed.
package dbfile

import (
	"simpledb/pkg/dbtype"
	"simpledb/pkg/storage/page"
	"simpledb/pkg/txn"
)

// DbFile is the contract every storage-file implementation (HeapFile,
// BTreeFile) provides to the buffer pool and the operator layer.
type DbFile interface {
	// ID is this file's stable table id, derived once from the absolute
	// file path and unchanged for the file's lifetime.
	ID() uint64
	// TupleDesc is the schema every tuple in this file conforms to.
	TupleDesc() dbtype.Schema
	// ReadPage performs a positioned read of exactly one page's worth of
	// bytes and returns the decoded page. Reading past the end of the
	// file is a caller error; it yields a zero-filled page, not an error.
	ReadPage(pid page.ID) (page.Page, error)
	// WritePage performs a positioned write of p at its own page number.
	WritePage(p page.Page) error
	// InsertTuple finds room for t (via the buffer pool, under txn's X
	// lock discipline) and returns the pages it dirtied.
	InsertTuple(tid txn.ID, bp BufferPool, t *dbtype.Tuple) ([]page.Page, error)
	// DeleteTuple removes the tuple identified by t.RecordID() and
	// returns the page it dirtied.
	DeleteTuple(tid txn.ID, bp BufferPool, t *dbtype.Tuple) (page.Page, error)
	// Iterator yields every tuple in the file under txn's S locks.
	Iterator(tid txn.ID, bp BufferPool) DbFileIterator
	// NumPages reports the file's current page count.
	NumPages() int
}

// DbFileIterator is the pull protocol every storage-file scan implements;
// it is the file-level analogue of exec.OpIterator, without a schema
// (the file already knows its own).
type DbFileIterator interface {
	Open() error
	HasNext() (bool, error)
	Next() (*dbtype.Tuple, error)
	Rewind() error
	Close()
}

// Permission is the lock strength a buffer-pool access requests.
type Permission int

const (
	ReadOnly Permission = iota
	ReadWrite
)

// BufferPool is the subset of the buffer pool's interface that storage
// files need, kept as an interface here so pkg/storage/heap and
// pkg/storage/btree don't need to import the concrete pkg/buffer type
// (which in turn depends on this package for DbFile lookups).
type BufferPool interface {
	GetPage(tid txn.ID, pid page.ID, perm Permission) (page.Page, error)
}
