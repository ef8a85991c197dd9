// Package exec implements the pull-based iterator pipeline of
// relational operators: SeqScan, Filter, Join, Aggregate, Insert,
// Delete (spec §4.5), grounded on the teacher's engine.go operator
// dispatch, generalized from its switch-on-opcode execution to a
// capability-set interface per operator.
package exec

import (
	"simpledb/pkg/dbtype"
)

// OpIterator is the pull-iterator protocol every operator implements:
// open/hasNext/next/close/rewind plus schema and child-wiring
// introspection, so operators can be composed into trees without
// knowing each other's concrete type.
type OpIterator interface {
	Open() error
	HasNext() (bool, error)
	Next() (*dbtype.Tuple, error)
	Close()
	Rewind() error
	TupleDesc() dbtype.Schema
	Children() []OpIterator
	SetChildren(children []OpIterator)
}

// baseIterator gives every operator the lookahead-caching hasNext/next
// pattern described in spec §4.5 ("hasNext is idempotent and may cache
// one look-ahead"), parameterized by a fetchNext function each operator
// supplies.
type baseIterator struct {
	fetchNext func() (*dbtype.Tuple, error)
	next      *dbtype.Tuple
	hasNext   bool
	fetched   bool
}

func (b *baseIterator) HasNext() (bool, error) {
	if !b.fetched {
		t, err := b.fetchNext()
		if err != nil {
			return false, err
		}
		b.next = t
		b.hasNext = t != nil
		b.fetched = true
	}
	return b.hasNext, nil
}

func (b *baseIterator) Next() (*dbtype.Tuple, error) {
	has, err := b.HasNext()
	if err != nil {
		return nil, err
	}
	if !has {
		return nil, errNoSuchElement()
	}
	t := b.next
	b.fetched = false
	b.next = nil
	return t, nil
}

func (b *baseIterator) reset() {
	b.next = nil
	b.hasNext = false
	b.fetched = false
}
