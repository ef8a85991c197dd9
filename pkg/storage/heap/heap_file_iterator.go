package heap

import (
	"simpledb/pkg/dbtype"
	"simpledb/pkg/storage/dbfile"
	"simpledb/pkg/storage/page"
	"simpledb/pkg/txn"
)

// fileIterator walks a heap file page by page, lazily advancing: it
// holds only the current page's decoded tuples in memory and does not
// pin every page in the buffer pool up front (supplemented feature,
// grounded on original HeapFileIterator's lazy page advancement).
type fileIterator struct {
	file *File
	tid  txn.ID
	bp   dbfile.BufferPool

	open     bool
	pageNo   int
	slot     int
	curPage  *Page
	nextTup  *dbtype.Tuple
	hasNext  bool
}

func (it *fileIterator) Open() error {
	it.open = true
	it.pageNo = 0
	it.slot = 0
	it.curPage = nil
	return it.advance()
}

// advance finds the next populated slot, starting from it.slot on
// it.curPage (or loading page it.pageNo if curPage is nil), and caches
// the decoded tuple in it.nextTup. It crosses page boundaries lazily,
// only loading a page once the prior one is exhausted.
func (it *fileIterator) advance() error {
	it.hasNext = false
	it.nextTup = nil

	for {
		if it.curPage == nil {
			if it.pageNo >= it.file.NumPages() {
				return nil
			}
			pid := page.ID{TableID: it.file.id, PageNo: int32(it.pageNo)}
			pg, err := it.bp.GetPage(it.tid, pid, dbfile.ReadOnly)
			if err != nil {
				return err
			}
			it.curPage = pg.(*Page)
			it.slot = 0
		}

		for it.slot < it.curPage.NumSlots() {
			s := it.slot
			it.slot++
			if !it.curPage.slotUsed(s) {
				continue
			}
			t, err := it.curPage.Tuple(s)
			if err != nil {
				return err
			}
			it.nextTup = t
			it.hasNext = true
			return nil
		}

		it.curPage = nil
		it.pageNo++
	}
}

func (it *fileIterator) HasNext() (bool, error) {
	if !it.open {
		return false, nil
	}
	return it.hasNext, nil
}

func (it *fileIterator) Next() (*dbtype.Tuple, error) {
	if !it.hasNext {
		return nil, errNoSuchElement()
	}
	t := it.nextTup
	if err := it.advance(); err != nil {
		return nil, err
	}
	return t, nil
}

func (it *fileIterator) Rewind() error {
	return it.Open()
}

func (it *fileIterator) Close() {
	it.open = false
	it.curPage = nil
	it.nextTup = nil
	it.hasNext = false
}
