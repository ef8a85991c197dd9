package exec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"simpledb/pkg/dbtype"
)

// sliceIterator is a minimal in-memory OpIterator over a fixed slice,
// used to exercise Filter/Join/Aggregate without real storage.
type sliceIterator struct {
	desc   dbtype.Schema
	tuples []*dbtype.Tuple
	pos    int
}

func newSliceIterator(desc dbtype.Schema, tuples []*dbtype.Tuple) *sliceIterator {
	return &sliceIterator{desc: desc, tuples: tuples}
}

func (s *sliceIterator) Open() error                { s.pos = 0; return nil }
func (s *sliceIterator) HasNext() (bool, error)      { return s.pos < len(s.tuples), nil }
func (s *sliceIterator) Next() (*dbtype.Tuple, error) {
	t := s.tuples[s.pos]
	s.pos++
	return t, nil
}
func (s *sliceIterator) Close()                         {}
func (s *sliceIterator) Rewind() error                  { s.pos = 0; return nil }
func (s *sliceIterator) TupleDesc() dbtype.Schema       { return s.desc }
func (s *sliceIterator) Children() []OpIterator         { return nil }
func (s *sliceIterator) SetChildren(children []OpIterator) {}

func intSchema(names ...string) dbtype.Schema {
	fields := make([]dbtype.FieldDesc, len(names))
	for i, n := range names {
		fields[i] = dbtype.FieldDesc{Type: dbtype.IntType, Name: n}
	}
	return dbtype.NewSchema(fields...)
}

func intTuple(desc dbtype.Schema, vals ...int32) *dbtype.Tuple {
	t := dbtype.NewTuple(desc)
	for i, v := range vals {
		t.SetField(i, dbtype.IntField{Value: v})
	}
	return t
}

func drain(t *testing.T, it OpIterator) []*dbtype.Tuple {
	var out []*dbtype.Tuple
	for {
		has, err := it.HasNext()
		require.NoError(t, err)
		if !has {
			break
		}
		tup, err := it.Next()
		require.NoError(t, err)
		out = append(out, tup)
	}
	return out
}

func TestFilterKeepsOnlyMatching(t *testing.T) {
	desc := intSchema("x")
	child := newSliceIterator(desc, []*dbtype.Tuple{
		intTuple(desc, 1), intTuple(desc, 5), intTuple(desc, 10),
	})
	f := NewFilter(Predicate{Field: 0, Op: dbtype.GreaterThan, Literal: dbtype.IntField{Value: 4}}, child)
	require.NoError(t, f.Open())
	out := drain(t, f)
	require.Len(t, out, 2)
	assert.Equal(t, int32(5), out[0].Field(0).(dbtype.IntField).Value)
	assert.Equal(t, int32(10), out[1].Field(0).(dbtype.IntField).Value)
}

func TestJoinEmitsMatchingPairs(t *testing.T) {
	ldesc := intSchema("a")
	rdesc := intSchema("b")
	left := newSliceIterator(ldesc, []*dbtype.Tuple{intTuple(ldesc, 1), intTuple(ldesc, 2)})
	right := newSliceIterator(rdesc, []*dbtype.Tuple{intTuple(rdesc, 2), intTuple(rdesc, 3)})

	j := NewJoin(JoinPredicate{Field1: 0, Op: dbtype.Equals, Field2: 0}, left, right)
	require.NoError(t, j.Open())
	out := drain(t, j)
	require.Len(t, out, 1)
	assert.Equal(t, int32(2), out[0].Field(0).(dbtype.IntField).Value)
	assert.Equal(t, int32(2), out[0].Field(1).(dbtype.IntField).Value)
}

func TestAggregateGroupedSum(t *testing.T) {
	desc := intSchema("group", "val")
	child := newSliceIterator(desc, []*dbtype.Tuple{
		intTuple(desc, 1, 10),
		intTuple(desc, 1, 20),
		intTuple(desc, 2, 5),
	})
	agg := NewAggregate(child, 1, 0, Sum, false)
	require.NoError(t, agg.Open())
	out := drain(t, agg)
	require.Len(t, out, 2)

	totals := map[int32]int32{}
	for _, tup := range out {
		g := tup.Field(0).(dbtype.IntField).Value
		v := tup.Field(1).(dbtype.IntField).Value
		totals[g] = v
	}
	assert.Equal(t, int32(30), totals[1])
	assert.Equal(t, int32(5), totals[2])
}

func TestAggregateNoGroupingAvgTruncates(t *testing.T) {
	desc := intSchema("val")
	child := newSliceIterator(desc, []*dbtype.Tuple{
		intTuple(desc, 1), intTuple(desc, 2), intTuple(desc, 4),
	})
	agg := NewAggregate(child, 0, NoGrouping, Avg, false)
	require.NoError(t, agg.Open())
	out := drain(t, agg)
	require.Len(t, out, 1)
	assert.Equal(t, int32(2), out[0].Field(0).(dbtype.IntField).Value)
}
