package exec

import "simpledb/pkg/dbtype"

// JoinPredicate is `field1 op field2` evaluated between a left tuple's
// field1 and a right tuple's field2.
type JoinPredicate struct {
	Field1 int
	Op     dbtype.Op
	Field2 int
}

func (p JoinPredicate) eval(left, right *dbtype.Tuple) bool {
	return left.Field(p.Field1).Compare(p.Op, right.Field(p.Field2))
}

// Join is a simple nested-loops join: for each left tuple, rewind right
// and scan, emitting merge(t1, t2) whenever pred(t1, t2) holds. Neither
// child is materialized in full.
type Join struct {
	baseIterator
	pred        JoinPredicate
	left, right OpIterator
	desc        dbtype.Schema

	curLeft  *dbtype.Tuple
	rightOn  bool
}

func NewJoin(pred JoinPredicate, left, right OpIterator) *Join {
	j := &Join{pred: pred, left: left, right: right,
		desc: dbtype.Merge(left.TupleDesc(), right.TupleDesc())}
	j.fetchNext = j.advance
	return j
}

func (j *Join) Open() error {
	if err := j.left.Open(); err != nil {
		return err
	}
	if err := j.right.Open(); err != nil {
		return err
	}
	j.curLeft = nil
	j.rightOn = false
	j.reset()
	return nil
}

func (j *Join) advance() (*dbtype.Tuple, error) {
	for {
		if j.curLeft == nil {
			has, err := j.left.HasNext()
			if err != nil || !has {
				return nil, err
			}
			t, err := j.left.Next()
			if err != nil {
				return nil, err
			}
			j.curLeft = t
			if err := j.right.Rewind(); err != nil {
				return nil, err
			}
		}

		has, err := j.right.HasNext()
		if err != nil {
			return nil, err
		}
		if !has {
			j.curLeft = nil
			continue
		}
		rt, err := j.right.Next()
		if err != nil {
			return nil, err
		}
		if j.pred.eval(j.curLeft, rt) {
			return dbtype.MergeTuples(j.curLeft, rt), nil
		}
	}
}

func (j *Join) Close() {
	j.left.Close()
	j.right.Close()
}

func (j *Join) Rewind() error {
	if err := j.left.Rewind(); err != nil {
		return err
	}
	j.curLeft = nil
	j.reset()
	return nil
}

func (j *Join) TupleDesc() dbtype.Schema { return j.desc }
func (j *Join) Children() []OpIterator   { return []OpIterator{j.left, j.right} }
func (j *Join) SetChildren(children []OpIterator) {
	if len(children) == 2 {
		j.left, j.right = children[0], children[1]
	}
}
