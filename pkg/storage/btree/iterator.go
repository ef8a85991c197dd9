package btree

import (
	"simpledb/pkg/dberrors"
	"simpledb/pkg/dbtype"
	"simpledb/pkg/storage/dbfile"
	"simpledb/pkg/storage/page"
	"simpledb/pkg/txn"
)

// IndexOp is the comparison operator of an index predicate. EQUALS,
// GREATER_THAN, GREATER_THAN_OR_EQ, LESS_THAN and LESS_THAN_OR_EQ are
// supported per spec §4.4; there is no NOT_EQUALS operator, since it has
// no ordered-scan realization over a B+ tree.
type IndexOp int

const (
	Equals IndexOp = iota
	GreaterThan
	GreaterThanOrEq
	LessThan
	LessThanOrEq
)

// IndexPredicate is `key op value` evaluated against the tree's indexed
// field.
type IndexPredicate struct {
	Op    IndexOp
	Value int32
}

func (p IndexPredicate) matches(key int32) bool {
	switch p.Op {
	case Equals:
		return key == p.Value
	case GreaterThan:
		return key > p.Value
	case GreaterThanOrEq:
		return key >= p.Value
	case LessThan:
		return key < p.Value
	case LessThanOrEq:
		return key <= p.Value
	default:
		return false
	}
}

// startsAtLeftmost reports whether this predicate must scan from the
// tree's leftmost leaf (true for LESS_THAN / LESS_THAN_OR_EQ) rather
// than descending directly to a key.
func (p IndexPredicate) startsAtLeftmost() bool {
	return p.Op == LessThan || p.Op == LessThanOrEq
}

// leafWalker walks leaves left to right starting from a given leaf,
// shared by the full scan and predicate iterators.
type leafWalker struct {
	file    *File
	tid     txn.ID
	bp      dbfile.BufferPool
	leaf    *Page
	slot    int
	nextTup *dbtype.Tuple
	hasNext bool
}

func (w *leafWalker) loadTuple(leaf *Page, slot int) (*dbtype.Tuple, error) {
	key := leaf.leafKey(slot)
	rid := leaf.leafRID(slot)
	t := dbtype.NewTuple(w.file.desc)
	t.SetField(w.file.keyField, dbtype.IntField{Value: key})
	t.SetRecordID(rid)
	return t, nil
}

func (w *leafWalker) advance(filter func(key int32) (skip bool, stop bool)) error {
	w.hasNext = false
	w.nextTup = nil

	for w.leaf != nil {
		for w.slot < w.leaf.count() {
			key := w.leaf.leafKey(w.slot)
			if filter != nil {
				skip, stop := filter(key)
				if stop {
					w.leaf = nil
					return nil
				}
				if skip {
					w.slot++
					continue
				}
			}
			t, err := w.loadTuple(w.leaf, w.slot)
			if err != nil {
				return err
			}
			w.slot++
			w.nextTup = t
			w.hasNext = true
			return nil
		}
		next := w.leaf.next()
		if next == noPage {
			w.leaf = nil
			return nil
		}
		pg, err := w.bp.GetPage(w.tid, page.ID{TableID: w.file.id, PageNo: next}, dbfile.ReadOnly)
		if err != nil {
			return err
		}
		w.leaf = pg.(*Page)
		w.slot = 0
	}
	return nil
}

func leftmostLeaf(tid txn.ID, bp dbfile.BufferPool, f *File) (*Page, error) {
	metaPg, err := bp.GetPage(tid, page.ID{TableID: f.id, PageNo: 0}, dbfile.ReadOnly)
	if err != nil {
		return nil, err
	}
	meta := metaPg.(*Page)
	if meta.root() == noPage {
		return nil, nil
	}
	pg, err := bp.GetPage(tid, page.ID{TableID: f.id, PageNo: meta.root()}, dbfile.ReadOnly)
	if err != nil {
		return nil, err
	}
	node := pg.(*Page)
	for node.isInternal() {
		child := node.internalChild(0)
		pg, err := bp.GetPage(tid, page.ID{TableID: f.id, PageNo: child}, dbfile.ReadOnly)
		if err != nil {
			return nil, err
		}
		node = pg.(*Page)
	}
	return node, nil
}

// scanIterator is the plain full ascending scan (dbfile.DbFileIterator).
type scanIterator struct {
	file   *File
	tid    txn.ID
	bp     dbfile.BufferPool
	walker *leafWalker
}

func (it *scanIterator) Open() error {
	leaf, err := leftmostLeaf(it.tid, it.bp, it.file)
	if err != nil {
		return err
	}
	it.walker = &leafWalker{file: it.file, tid: it.tid, bp: it.bp, leaf: leaf}
	return it.walker.advance(nil)
}

func (it *scanIterator) HasNext() (bool, error) {
	if it.walker == nil {
		return false, nil
	}
	return it.walker.hasNext, nil
}

func (it *scanIterator) Next() (*dbtype.Tuple, error) {
	if it.walker == nil || !it.walker.hasNext {
		return nil, dberrors.NoSuchElement("btree iterator: no more tuples")
	}
	t := it.walker.nextTup
	if err := it.walker.advance(nil); err != nil {
		return nil, err
	}
	return t, nil
}

func (it *scanIterator) Rewind() error { return it.Open() }
func (it *scanIterator) Close()        { it.walker = nil }

// predicateIterator realizes IndexIterator: for EQUALS/GREATER_THAN(_OR_EQ)
// it descends directly to the matching leaf; for LESS_THAN(_OR_EQ) it
// starts at the leftmost leaf. Either way it stops as soon as a key
// falls outside the predicate's range, since leaves are sorted.
type predicateIterator struct {
	file   *File
	tid    txn.ID
	bp     dbfile.BufferPool
	pred   IndexPredicate
	walker *leafWalker
}

func (it *predicateIterator) Open() error {
	var leaf *Page
	var err error
	if it.pred.startsAtLeftmost() {
		leaf, err = leftmostLeaf(it.tid, it.bp, it.file)
	} else {
		leaf, err = it.descendTo(it.pred.Value)
	}
	if err != nil {
		return err
	}
	it.walker = &leafWalker{file: it.file, tid: it.tid, bp: it.bp, leaf: leaf}
	return it.walker.advance(it.filter)
}

func (it *predicateIterator) descendTo(key int32) (*Page, error) {
	metaPg, err := it.bp.GetPage(it.tid, page.ID{TableID: it.file.id, PageNo: 0}, dbfile.ReadOnly)
	if err != nil {
		return nil, err
	}
	meta := metaPg.(*Page)
	if meta.root() == noPage {
		return nil, nil
	}
	pg, err := it.bp.GetPage(it.tid, page.ID{TableID: it.file.id, PageNo: meta.root()}, dbfile.ReadOnly)
	if err != nil {
		return nil, err
	}
	node := pg.(*Page)
	for node.isInternal() {
		child := node.internalFindChild(key)
		if child == noPage {
			return nil, nil
		}
		pg, err := it.bp.GetPage(it.tid, page.ID{TableID: it.file.id, PageNo: child}, dbfile.ReadOnly)
		if err != nil {
			return nil, err
		}
		node = pg.(*Page)
	}
	return node, nil
}

// filter tells leafWalker.advance whether to skip or stop at key, based
// on the predicate and leaf-ascending-order fact.
func (it *predicateIterator) filter(key int32) (skip, stop bool) {
	switch it.pred.Op {
	case Equals:
		if key < it.pred.Value {
			return true, false
		}
		if key > it.pred.Value {
			return false, true
		}
		return false, false
	case GreaterThan, GreaterThanOrEq:
		if !it.pred.matches(key) {
			return true, false
		}
		return false, false
	case LessThan, LessThanOrEq:
		if !it.pred.matches(key) {
			return false, true
		}
		return false, false
	default:
		return false, true
	}
}

func (it *predicateIterator) HasNext() (bool, error) {
	if it.walker == nil {
		return false, nil
	}
	return it.walker.hasNext, nil
}

func (it *predicateIterator) Next() (*dbtype.Tuple, error) {
	if it.walker == nil || !it.walker.hasNext {
		return nil, dberrors.NoSuchElement("btree iterator: no more tuples")
	}
	t := it.walker.nextTup
	if err := it.walker.advance(it.filter); err != nil {
		return nil, err
	}
	return t, nil
}

func (it *predicateIterator) Rewind() error { return it.Open() }
func (it *predicateIterator) Close()        { it.walker = nil }
