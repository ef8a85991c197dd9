package exec

import (
	"simpledb/pkg/dbtype"
	"simpledb/pkg/txn"
)

// Mutator is the subset of the buffer pool Insert/Delete need.
type Mutator interface {
	InsertTuple(tid txn.ID, tableID uint64, t *dbtype.Tuple) error
	DeleteTuple(tid txn.ID, t *dbtype.Tuple) error
}

var insertSchema = dbtype.NewSchema(dbtype.FieldDesc{Type: dbtype.IntType, Name: "count"})

// Insert drains child on its first fetch, inserting every tuple via the
// buffer pool, and returns a single one-field tuple holding the count.
// Subsequent fetches return EOF.
type Insert struct {
	baseIterator
	tid     txn.ID
	child   OpIterator
	tableID uint64
	bp      Mutator
	done    bool
}

func NewInsert(tid txn.ID, child OpIterator, tableID uint64, bp Mutator) *Insert {
	i := &Insert{tid: tid, child: child, tableID: tableID, bp: bp}
	i.fetchNext = i.advance
	return i
}

func (i *Insert) Open() error {
	if err := i.child.Open(); err != nil {
		return err
	}
	i.done = false
	i.reset()
	return nil
}

func (i *Insert) advance() (*dbtype.Tuple, error) {
	if i.done {
		return nil, nil
	}
	i.done = true

	count := int32(0)
	for {
		has, err := i.child.HasNext()
		if err != nil {
			return nil, err
		}
		if !has {
			break
		}
		t, err := i.child.Next()
		if err != nil {
			return nil, err
		}
		if err := i.bp.InsertTuple(i.tid, i.tableID, t); err != nil {
			return nil, err
		}
		count++
	}

	out := dbtype.NewTuple(insertSchema)
	out.SetField(0, dbtype.IntField{Value: count})
	return out, nil
}

func (i *Insert) Close() { i.child.Close() }
func (i *Insert) Rewind() error {
	i.done = false
	i.reset()
	return i.child.Rewind()
}
func (i *Insert) TupleDesc() dbtype.Schema { return insertSchema }
func (i *Insert) Children() []OpIterator   { return []OpIterator{i.child} }
func (i *Insert) SetChildren(children []OpIterator) {
	if len(children) == 1 {
		i.child = children[0]
	}
}

// Delete has the same shape as Insert, but deletes each child tuple.
type Delete struct {
	baseIterator
	tid   txn.ID
	child OpIterator
	bp    Mutator
	done  bool
}

func NewDelete(tid txn.ID, child OpIterator, bp Mutator) *Delete {
	d := &Delete{tid: tid, child: child, bp: bp}
	d.fetchNext = d.advance
	return d
}

func (d *Delete) Open() error {
	if err := d.child.Open(); err != nil {
		return err
	}
	d.done = false
	d.reset()
	return nil
}

func (d *Delete) advance() (*dbtype.Tuple, error) {
	if d.done {
		return nil, nil
	}
	d.done = true

	count := int32(0)
	for {
		has, err := d.child.HasNext()
		if err != nil {
			return nil, err
		}
		if !has {
			break
		}
		t, err := d.child.Next()
		if err != nil {
			return nil, err
		}
		if err := d.bp.DeleteTuple(d.tid, t); err != nil {
			return nil, err
		}
		count++
	}

	out := dbtype.NewTuple(insertSchema)
	out.SetField(0, dbtype.IntField{Value: count})
	return out, nil
}

func (d *Delete) Close() { d.child.Close() }
func (d *Delete) Rewind() error {
	d.done = false
	d.reset()
	return d.child.Rewind()
}
func (d *Delete) TupleDesc() dbtype.Schema { return insertSchema }
func (d *Delete) Children() []OpIterator   { return []OpIterator{d.child} }
func (d *Delete) SetChildren(children []OpIterator) {
	if len(children) == 1 {
		d.child = children[0]
	}
}
