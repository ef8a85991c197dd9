package btree

import (
	"sync"

	"github.com/spf13/afero"

	"simpledb/pkg/dbconfig"
	"simpledb/pkg/dberrors"
	"simpledb/pkg/dbtype"
	"simpledb/pkg/storage/dbfile"
	"simpledb/pkg/storage/heap"
	"simpledb/pkg/storage/page"
	"simpledb/pkg/storage/pagefile"
	"simpledb/pkg/txn"
)

// File is a clustered B+ tree index file: page 0 is a meta page holding
// the root pointer, every other page is a leaf or internal node. It
// implements dbfile.DbFile so the engine can treat it interchangeably
// with a heap.File, plus IndexIterator for the indexed point/range scans
// spec §4.4 requires on top of the plain ordered scan.
type File struct {
	fs   afero.Fs
	path string
	id   uint64
	desc dbtype.Schema

	// keyField is the schema index of the indexed (clustering) column;
	// the index only supports int keys.
	keyField int

	// structMu serializes tree-structure mutations (split/root change): unlike the heap file's simple append-on-full, a B+ tree
	// insert or delete can touch an unbounded chain of ancestor pages, so
	// correctness needs a single mutator at a time rather than per-page
	// locking alone.
	structMu sync.Mutex
}

// NewFile opens (creating if necessary) the B+ tree file at path,
// indexed on the schema field named keyField (must be IntType).
func NewFile(fs afero.Fs, path string, desc dbtype.Schema, keyField string) (*File, error) {
	idx, err := desc.FieldIndex(keyField)
	if err != nil {
		return nil, err
	}
	if desc.FieldType(idx) != dbtype.IntType {
		return nil, dberrors.DBException("btree index field %q must be an int field", keyField)
	}
	if err := pagefile.EnsureDir(fs, path); err != nil {
		return nil, err
	}

	tableID := heap.TableIDFromPath(path)
	f := &File{fs: fs, path: path, id: tableID, desc: desc, keyField: idx}

	if f.numPagesOnDisk() == 0 {
		meta := newBlankPage(page.ID{TableID: tableID, PageNo: 0}, kindMeta)
		if err := f.writeRaw(meta); err != nil {
			return nil, err
		}
	}
	return f, nil
}

func (f *File) ID() uint64               { return f.id }
func (f *File) TupleDesc() dbtype.Schema { return f.desc }

func (f *File) numPagesOnDisk() int {
	return pagefile.NumPages(f.fs, f.path, dbconfig.PageSize())
}

// NumPages reports the file's page count, including the meta page.
func (f *File) NumPages() int { return f.numPagesOnDisk() }

func (f *File) ReadPage(pid page.ID) (page.Page, error) {
	buf, err := pagefile.ReadPage(f.fs, f.path, pid.PageNo, dbconfig.PageSize())
	if err != nil {
		return nil, err
	}
	return decodePage(pid, buf), nil
}

func (f *File) WritePage(p page.Page) error {
	return f.writeRaw(p.(*Page))
}

func (f *File) writeRaw(p *Page) error {
	return pagefile.WritePage(f.fs, f.path, p.ID().PageNo, p.Bytes())
}

func (f *File) allocatePage(k kind) (*Page, error) {
	pid := page.ID{TableID: f.id, PageNo: int32(f.numPagesOnDisk())}
	p := newBlankPage(pid, k)
	if err := f.writeRaw(p); err != nil {
		return nil, err
	}
	return p, nil
}

func (f *File) metaPage(tid txn.ID, bp dbfile.BufferPool) (*Page, error) {
	pg, err := bp.GetPage(tid, page.ID{TableID: f.id, PageNo: 0}, dbfile.ReadWrite)
	if err != nil {
		return nil, err
	}
	return pg.(*Page), nil
}

func (f *File) keyOf(t *dbtype.Tuple) int32 {
	return t.Field(f.keyField).(dbtype.IntField).Value
}

// findLeaf descends from the root to the leaf that would hold key.
func (f *File) findLeaf(tid txn.ID, bp dbfile.BufferPool, root int32, key int32) (*Page, error) {
	pg, err := bp.GetPage(tid, page.ID{TableID: f.id, PageNo: root}, dbfile.ReadWrite)
	if err != nil {
		return nil, err
	}
	node := pg.(*Page)
	for node.isInternal() {
		child := node.internalFindChild(key)
		if child == noPage {
			return nil, errCorrupt("internal node has no children")
		}
		pg, err := bp.GetPage(tid, page.ID{TableID: f.id, PageNo: child}, dbfile.ReadWrite)
		if err != nil {
			return nil, err
		}
		node = pg.(*Page)
	}
	return node, nil
}

// InsertTuple adds t to the tree, keyed on f.keyField, splitting leaves
// and internal nodes bottom-up as needed. Returns every page it dirtied
// so the caller installs them into the buffer pool.
func (f *File) InsertTuple(tid txn.ID, bp dbfile.BufferPool, t *dbtype.Tuple) ([]page.Page, error) {
	f.structMu.Lock()
	defer f.structMu.Unlock()

	key := f.keyOf(t)
	meta, err := f.metaPage(tid, bp)
	if err != nil {
		return nil, err
	}

	dirtied := []page.Page{meta}

	if meta.root() == noPage {
		leaf, err := f.allocatePage(kindLeaf)
		if err != nil {
			return nil, err
		}
		rid := dbtype.RecordID{PID: page.ID{TableID: f.id, PageNo: leaf.id.PageNo}, Slot: 0}
		leaf.leafInsert(key, rid)
		t.SetRecordID(rid)
		meta.setRoot(leaf.id.PageNo)
		return append(dirtied, leaf), nil
	}

	leaf, err := f.findLeaf(tid, bp, meta.root(), key)
	if err != nil {
		return nil, err
	}
	rid := dbtype.RecordID{PID: leaf.id, Slot: leaf.count()}

	if leaf.count() < leaf.leafCapacity() {
		leaf.leafInsert(key, rid)
		t.SetRecordID(rid)
		return append(dirtied, leaf), nil
	}

	sibling, err := f.allocatePage(kindLeaf)
	if err != nil {
		return nil, err
	}
	sibling.setParent(leaf.parent())
	sibling.setNext(leaf.next())
	leaf.setNext(sibling.id.PageNo)

	mid := leaf.count() / 2
	for i := mid; i < leaf.count(); i++ {
		sibling.leafInsert(leaf.leafKey(i), leaf.leafRID(i))
	}
	for i := leaf.count() - 1; i >= mid; i-- {
		leaf.leafRemoveAt(i)
	}

	target := leaf
	if key >= sibling.leafKey(0) {
		target = sibling
	}
	newRID := dbtype.RecordID{PID: target.id, Slot: target.count()}
	target.leafInsert(key, newRID)
	t.SetRecordID(newRID)

	splitKey := sibling.leafKey(0)
	more, err := f.insertIntoParent(tid, bp, meta, leaf, splitKey, sibling)
	if err != nil {
		return nil, err
	}
	dirtied = append(dirtied, leaf, sibling)
	dirtied = append(dirtied, more...)
	return dirtied, nil
}

// insertIntoParent wires a newly split-off sibling into left's parent,
// recursing (and splitting the parent) as needed, per the teacher's
// InsertIntoParent/insertInternal.
func (f *File) insertIntoParent(tid txn.ID, bp dbfile.BufferPool, meta *Page, left *Page, key int32, right *Page) ([]page.Page, error) {
	if left.id.PageNo == meta.root() {
		newRoot, err := f.allocatePage(kindInternal)
		if err != nil {
			return nil, err
		}
		newRoot.internalInsert(minInt32(f.firstKeyOf(left), key), left.id.PageNo)
		newRoot.internalInsert(key, right.id.PageNo)
		left.setParent(newRoot.id.PageNo)
		right.setParent(newRoot.id.PageNo)
		meta.setRoot(newRoot.id.PageNo)
		return []page.Page{newRoot}, nil
	}

	parentPg, err := bp.GetPage(tid, page.ID{TableID: f.id, PageNo: left.parent()}, dbfile.ReadWrite)
	if err != nil {
		return nil, err
	}
	parent := parentPg.(*Page)

	if parent.count() < parent.internalCapacity() {
		parent.internalInsert(key, right.id.PageNo)
		return []page.Page{parent}, nil
	}

	siblingPg, err := f.allocatePage(kindInternal)
	if err != nil {
		return nil, err
	}
	sibling := siblingPg
	sibling.setParent(parent.parent())

	n := parent.count()
	splitIdx := n / 2
	var moved []page.Page
	for i := splitIdx; i < n; i++ {
		sibling.internalInsert(parent.internalKey(i), parent.internalChild(i))
		child, err := bp.GetPage(tid, page.ID{TableID: f.id, PageNo: parent.internalChild(i)}, dbfile.ReadWrite)
		if err == nil {
			child.(*Page).setParent(sibling.id.PageNo)
			moved = append(moved, child)
		}
	}
	for i := n - 1; i >= splitIdx; i-- {
		parent.internalRemoveAt(i)
	}

	target := parent
	if key >= sibling.internalKey(0) {
		target = sibling
	}
	target.internalInsert(key, right.id.PageNo)
	right.setParent(target.id.PageNo)

	splitKey := sibling.internalKey(0)
	more, err := f.insertIntoParent(tid, bp, meta, parent, splitKey, sibling)
	if err != nil {
		return nil, err
	}
	out := append([]page.Page{parent, sibling}, moved...)
	return append(out, more...), nil
}

func (f *File) firstKeyOf(node *Page) int32 {
	if node.isLeaf() {
		return node.leafKey(0)
	}
	return node.internalKey(0)
}

func minInt32(a, b int32) int32 {
	if a < b {
		return a
	}
	return b
}

// DeleteTuple removes t's entry from its leaf, locating it by matching
// key and record identity rather than trusting rid.Slot as a live
// index (leafInsert places entries in sorted order, so a tuple's slot
// at insert time is not generally its current physical position).
// When a later split has moved the entry out of the leaf named by its
// record identity, the search follows the leaf chain to the right.
// It does not borrow from or merge with a sibling on underflow;
// orphaned and underfull pages are left in place rather than reclaimed
// (the file never shrinks, matching the heap file's append-only page
// model).
func (f *File) DeleteTuple(tid txn.ID, bp dbfile.BufferPool, t *dbtype.Tuple) (page.Page, error) {
	f.structMu.Lock()
	defer f.structMu.Unlock()

	rid, ok := t.RecordID()
	if !ok {
		return nil, dberrors.DBException("cannot delete a tuple with no record identity")
	}
	pg, err := bp.GetPage(tid, rid.PID, dbfile.ReadWrite)
	if err != nil {
		return nil, err
	}
	leaf := pg.(*Page)
	idx, found := leaf.leafFind(f.keyOf(t), rid)
	for !found && leaf.next() != noPage {
		pg, err = bp.GetPage(tid, page.ID{TableID: f.id, PageNo: leaf.next()}, dbfile.ReadWrite)
		if err != nil {
			return nil, err
		}
		leaf = pg.(*Page)
		idx, found = leaf.leafFind(f.keyOf(t), rid)
	}
	if !found {
		return nil, dberrors.DBException("btree: record identity %v not found in leaf", rid)
	}
	leaf.leafRemoveAt(idx)
	return leaf, nil
}

// Iterator yields every tuple in ascending key order, following the
// leftmost path to the first leaf and then the leaf sibling chain.
func (f *File) Iterator(tid txn.ID, bp dbfile.BufferPool) dbfile.DbFileIterator {
	return &scanIterator{file: f, tid: tid, bp: bp}
}

// IndexIterator yields tuples satisfying `key op literal` in ascending
// key order, per spec §4.4.
func (f *File) IndexIterator(tid txn.ID, bp dbfile.BufferPool, pred IndexPredicate) dbfile.DbFileIterator {
	return &predicateIterator{file: f, tid: tid, bp: bp, pred: pred}
}
