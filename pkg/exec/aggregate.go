package exec

import (
	"simpledb/pkg/dbtype"
)

// AggOp is the aggregation function applied to the aggregate field.
type AggOp int

const (
	Min AggOp = iota
	Max
	Sum
	Count
	Avg
)

// NoGrouping is the sentinel group-field index meaning "aggregate the
// whole table into a single group".
const NoGrouping = -1

type groupState struct {
	min, max   int32
	sum        int64
	count      int64
	hasValue   bool
	groupValue dbtype.Field
}

// Aggregate consumes its child to completion on Open, merging tuples
// into one aggregator bucket per distinct group-field value (or a
// single bucket if gField = NoGrouping), then yields one tuple per group.
type Aggregate struct {
	baseIterator
	child     OpIterator
	aField    int
	gField    int
	op        AggOp
	stringAgg bool // aggregate field is a string: only Count is valid

	desc    dbtype.Schema
	groups  map[any]*groupState
	order   []any
	cursor  int
}

// NewAggregate builds an aggregate over child's aField, grouped by
// gField (or NoGrouping). stringAgg must be true when aField is a
// STRING column, since only COUNT applies to strings (spec §4.5).
func NewAggregate(child OpIterator, aField, gField int, op AggOp, stringAgg bool) *Aggregate {
	a := &Aggregate{child: child, aField: aField, gField: gField, op: op, stringAgg: stringAgg}
	a.desc = a.buildSchema(child.TupleDesc())
	a.fetchNext = a.advance
	return a
}

func (a *Aggregate) buildSchema(child dbtype.Schema) dbtype.Schema {
	if a.gField == NoGrouping {
		return dbtype.NewSchema(dbtype.FieldDesc{Type: dbtype.IntType, Name: "aggregate"})
	}
	return dbtype.NewSchema(
		dbtype.FieldDesc{Type: child.FieldType(a.gField), Name: "group"},
		dbtype.FieldDesc{Type: dbtype.IntType, Name: "aggregate"},
	)
}

func (a *Aggregate) groupKey(t *dbtype.Tuple) any {
	if a.gField == NoGrouping {
		return struct{}{}
	}
	return t.Field(a.gField).String()
}

func (a *Aggregate) Open() error {
	if err := a.child.Open(); err != nil {
		return err
	}
	a.groups = make(map[any]*groupState)
	a.order = nil
	a.cursor = 0

	for {
		has, err := a.child.HasNext()
		if err != nil {
			return err
		}
		if !has {
			break
		}
		t, err := a.child.Next()
		if err != nil {
			return err
		}
		a.merge(t)
	}
	a.reset()
	return nil
}

func (a *Aggregate) merge(t *dbtype.Tuple) {
	key := a.groupKey(t)
	g, ok := a.groups[key]
	if !ok {
		g = &groupState{min: 1<<31 - 1, max: -(1 << 31)}
		if a.gField != NoGrouping {
			g.groupValue = t.Field(a.gField)
		}
		a.groups[key] = g
		a.order = append(a.order, key)
	}

	if a.stringAgg {
		g.count++
		return
	}

	v := t.Field(a.aField).(dbtype.IntField).Value
	if v < g.min {
		g.min = v
	}
	if v > g.max {
		g.max = v
	}
	g.sum += int64(v)
	g.count++
	g.hasValue = true
}

func (g *groupState) result(op AggOp) int32 {
	switch op {
	case Min:
		return g.min
	case Max:
		return g.max
	case Sum:
		return int32(g.sum)
	case Count:
		return int32(g.count)
	case Avg:
		if g.count == 0 {
			return 0
		}
		return int32(g.sum / g.count)
	default:
		return 0
	}
}

func (a *Aggregate) advance() (*dbtype.Tuple, error) {
	if a.cursor >= len(a.order) {
		return nil, nil
	}
	key := a.order[a.cursor]
	g := a.groups[key]
	a.cursor++

	out := dbtype.NewTuple(a.desc)
	if a.gField == NoGrouping {
		out.SetField(0, dbtype.IntField{Value: g.result(a.op)})
	} else {
		out.SetField(0, g.groupValue)
		out.SetField(1, dbtype.IntField{Value: g.result(a.op)})
	}
	return out, nil
}

func (a *Aggregate) Close() { a.child.Close() }

func (a *Aggregate) Rewind() error {
	a.cursor = 0
	a.reset()
	return nil
}

func (a *Aggregate) TupleDesc() dbtype.Schema { return a.desc }
func (a *Aggregate) Children() []OpIterator   { return []OpIterator{a.child} }
func (a *Aggregate) SetChildren(children []OpIterator) {
	if len(children) == 1 {
		a.child = children[0]
	}
}
