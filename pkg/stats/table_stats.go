package stats

import (
	"simpledb/pkg/dbconfig"
	"simpledb/pkg/dbtype"
	"simpledb/pkg/storage/dbfile"
	"simpledb/pkg/txn"
)

// ioCostPerPage is the assumed per-page disk read cost unit used by
// estimateScanCost; it has no absolute meaning, only relative ranking
// between plans.
const ioCostPerPage = 1.0

// TableStats holds one equi-width int histogram per int-typed field of
// a table, built by two passes over its heap/B+ tree file: the first
// learns each field's [min, max], the second populates the histograms.
type TableStats struct {
	numTuples int
	numPages  int
	hist      map[int]*IntHistogram // schema field index -> histogram (int fields only)
}

// NewTableStats scans file twice under a throwaway snapshot transaction
// to build per-field histograms.
func NewTableStats(file dbfile.DbFile, bp dbfile.BufferPool) (*TableStats, error) {
	desc := file.TupleDesc()
	tid := txn.New()

	mins := make(map[int]int32)
	maxs := make(map[int]int32)
	for i := 0; i < desc.NumFields(); i++ {
		if desc.FieldType(i) == dbtype.IntType {
			mins[i] = int32(1<<31 - 1)
			maxs[i] = -(1 << 31)
		}
	}

	numTuples := 0
	if err := scan(file, bp, tid, func(t *dbtype.Tuple) error {
		numTuples++
		for i := range mins {
			v := t.Field(i).(dbtype.IntField).Value
			if v < mins[i] {
				mins[i] = v
			}
			if v > maxs[i] {
				maxs[i] = v
			}
		}
		return nil
	}); err != nil {
		return nil, err
	}

	ts := &TableStats{numTuples: numTuples, numPages: file.NumPages(), hist: make(map[int]*IntHistogram)}
	for i, min := range mins {
		ts.hist[i] = NewIntHistogram(dbconfig.HistogramBuckets(), min, maxs[i])
	}

	if err := scan(file, bp, tid, func(t *dbtype.Tuple) error {
		for i, h := range ts.hist {
			h.AddValue(t.Field(i).(dbtype.IntField).Value)
		}
		return nil
	}); err != nil {
		return nil, err
	}

	return ts, nil
}

func scan(file dbfile.DbFile, bp dbfile.BufferPool, tid txn.ID, fn func(*dbtype.Tuple) error) error {
	it := file.Iterator(tid, bp)
	if err := it.Open(); err != nil {
		return err
	}
	defer it.Close()
	for {
		has, err := it.HasNext()
		if err != nil {
			return err
		}
		if !has {
			return nil
		}
		t, err := it.Next()
		if err != nil {
			return err
		}
		if err := fn(t); err != nil {
			return err
		}
	}
}

// EstimateSelectivity delegates to field's histogram, or 1.0 for
// non-indexed (non-int) fields lacking one.
func (ts *TableStats) EstimateSelectivity(field int, op dbtype.Op, v int32) float64 {
	h, ok := ts.hist[field]
	if !ok {
		return 1.0
	}
	return h.EstimateSelectivity(op, v)
}

// EstimateTableCardinality is floor(nTuples * selectivity).
func (ts *TableStats) EstimateTableCardinality(selectivity float64) int {
	return int(float64(ts.numTuples) * selectivity)
}

// EstimateScanCost is pages * ioCostPerPage.
func (ts *TableStats) EstimateScanCost() float64 {
	return float64(ts.numPages) * ioCostPerPage
}

func (ts *TableStats) NumTuples() int { return ts.numTuples }
func (ts *TableStats) NumPages() int  { return ts.numPages }
