package heap

import (
	"path/filepath"
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/spf13/afero"

	"simpledb/pkg/dbconfig"
	"simpledb/pkg/dberrors"
	"simpledb/pkg/dbtype"
	"simpledb/pkg/storage/dbfile"
	"simpledb/pkg/storage/page"
	"simpledb/pkg/storage/pagefile"
	"simpledb/pkg/txn"
)

// File is a single OS file holding a table's pages back to back, with
// file length always an exact multiple of the page size (spec §4.3, §6).
type File struct {
	fs   afero.Fs
	path string
	id   uint64
	desc dbtype.Schema

	// extendMu serializes the insert-path's find-free-slot-or-extend
	// decision: scanning every page for room, then appending a new one,
	// must be atomic with respect to other inserters on this file, since
	// page-level X locks alone don't protect "the file has no room".
	extendMu sync.Mutex
}

// TableIDFromPath hashes the absolute file path into a stable table id,
// per spec §3: "Table id is stable for the file's lifetime and is
// derived from the absolute file path (hash)."
func TableIDFromPath(path string) uint64 {
	return xxhash.Sum64String(filepath.Clean(path))
}

// NewFile opens (creating if necessary) the heap file at path on fs.
func NewFile(fs afero.Fs, path string, desc dbtype.Schema) (*File, error) {
	if err := pagefile.EnsureDir(fs, path); err != nil {
		return nil, err
	}
	return &File{fs: fs, path: path, id: TableIDFromPath(path), desc: desc}, nil
}

func (h *File) ID() uint64               { return h.id }
func (h *File) TupleDesc() dbtype.Schema { return h.desc }

// NumPages reports the file's current page count, derived from its
// length (an exact multiple of the page size).
func (h *File) NumPages() int {
	return pagefile.NumPages(h.fs, h.path, dbconfig.PageSize())
}

// ReadPage performs a positioned read of exactly one page's worth of
// bytes and decodes it as a heap page.
func (h *File) ReadPage(pid page.ID) (page.Page, error) {
	buf, err := pagefile.ReadPage(h.fs, h.path, pid.PageNo, dbconfig.PageSize())
	if err != nil {
		return nil, err
	}
	return NewPage(pid, h.desc, buf), nil
}

// WritePage performs a positioned write at the page's own page number.
func (h *File) WritePage(p page.Page) error {
	return pagefile.WritePage(h.fs, h.path, p.ID().PageNo, p.Bytes())
}

// InsertTuple scans pages 0..N-1 under X-mode looking for an empty slot.
// If every page is full, it allocates page N, inserts there, and writes
// it directly via WritePage — note that this extend path does NOT
// install the new page into the buffer pool; the next scan simply reads
// it back through the normal cache-miss path.
func (h *File) InsertTuple(tid txn.ID, bp dbfile.BufferPool, t *dbtype.Tuple) ([]page.Page, error) {
	h.extendMu.Lock()
	defer h.extendMu.Unlock()

	n := h.NumPages()
	for i := 0; i < n; i++ {
		pid := page.ID{TableID: h.id, PageNo: int32(i)}
		pg, err := bp.GetPage(tid, pid, dbfile.ReadWrite)
		if err != nil {
			return nil, err
		}
		hp := pg.(*Page)
		if hp.NumEmptySlots() == 0 {
			continue
		}
		if err := hp.InsertTuple(t); err != nil {
			return nil, err
		}
		return []page.Page{hp}, nil
	}

	newPage := NewPage(page.ID{TableID: h.id, PageNo: int32(n)}, h.desc, nil)
	if err := newPage.InsertTuple(t); err != nil {
		return nil, err
	}
	if err := h.WritePage(newPage); err != nil {
		return nil, err
	}
	return nil, nil
}

// DeleteTuple clears t's slot via the page it lives on. Fails with
// db-exception if t's table id doesn't match this file's.
func (h *File) DeleteTuple(tid txn.ID, bp dbfile.BufferPool, t *dbtype.Tuple) (page.Page, error) {
	rid, ok := t.RecordID()
	if !ok {
		return nil, dberrors.DBException("cannot delete a tuple with no record identity")
	}
	if rid.PID.TableID != h.id {
		return nil, dberrors.DBException("tuple belongs to table %d, not %d", rid.PID.TableID, h.id)
	}
	pg, err := bp.GetPage(tid, rid.PID, dbfile.ReadWrite)
	if err != nil {
		return nil, err
	}
	hp := pg.(*Page)
	if err := hp.DeleteTuple(rid); err != nil {
		return nil, err
	}
	return hp, nil
}

// Iterator yields every tuple in page-number order.
func (h *File) Iterator(tid txn.ID, bp dbfile.BufferPool) dbfile.DbFileIterator {
	return &fileIterator{file: h, tid: tid, bp: bp}
}
