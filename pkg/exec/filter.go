package exec

import "simpledb/pkg/dbtype"

// Predicate is the triple (fieldIndex, op, literal) Filter evaluates
// against tuples; Join uses JoinPredicate instead.
type Predicate struct {
	Field   int
	Op      dbtype.Op
	Literal dbtype.Field
}

func (p Predicate) eval(t *dbtype.Tuple) bool {
	return t.Field(p.Field).Compare(p.Op, p.Literal)
}

// Filter yields child tuples for which pred(tuple) = true. Output
// schema equals the child schema.
type Filter struct {
	baseIterator
	pred  Predicate
	child OpIterator
}

func NewFilter(pred Predicate, child OpIterator) *Filter {
	f := &Filter{pred: pred, child: child}
	f.fetchNext = f.advance
	return f
}

func (f *Filter) Open() error {
	if err := f.child.Open(); err != nil {
		return err
	}
	f.reset()
	return nil
}

func (f *Filter) advance() (*dbtype.Tuple, error) {
	for {
		has, err := f.child.HasNext()
		if err != nil || !has {
			return nil, err
		}
		t, err := f.child.Next()
		if err != nil {
			return nil, err
		}
		if f.pred.eval(t) {
			return t, nil
		}
	}
}

func (f *Filter) Close()                        { f.child.Close() }
func (f *Filter) Rewind() error                  { err := f.child.Rewind(); f.reset(); return err }
func (f *Filter) TupleDesc() dbtype.Schema       { return f.child.TupleDesc() }
func (f *Filter) Children() []OpIterator         { return []OpIterator{f.child} }
func (f *Filter) SetChildren(children []OpIterator) {
	if len(children) == 1 {
		f.child = children[0]
	}
}
