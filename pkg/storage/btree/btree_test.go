package btree

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"simpledb/pkg/dbconfig"
	"simpledb/pkg/dbtype"
	"simpledb/pkg/storage/dbfile"
	"simpledb/pkg/storage/page"
	"simpledb/pkg/txn"
)

func testSchema() dbtype.Schema {
	return dbtype.NewSchema(
		dbtype.FieldDesc{Type: dbtype.IntType, Name: "k"},
		dbtype.FieldDesc{Type: dbtype.IntType, Name: "v"},
	)
}

// directPool is a minimal dbfile.BufferPool for these tests: it caches
// every page it hands out, and insert installs the pages InsertTuple
// reports as dirtied, as the real buffer pool does.
type directPool struct {
	file  *File
	pages map[page.ID]page.Page
}

func (d *directPool) GetPage(tid txn.ID, pid page.ID, perm dbfile.Permission) (page.Page, error) {
	if pg, ok := d.pages[pid]; ok {
		return pg, nil
	}
	pg, err := d.file.ReadPage(pid)
	if err != nil {
		return nil, err
	}
	d.install(pg)
	return pg, nil
}

func (d *directPool) install(pages ...page.Page) {
	if d.pages == nil {
		d.pages = make(map[page.ID]page.Page)
	}
	for _, pg := range pages {
		d.pages[pg.ID()] = pg
	}
}

func (d *directPool) insert(tid txn.ID, file *File, t *dbtype.Tuple) error {
	dirtied, err := file.InsertTuple(tid, d, t)
	if err != nil {
		return err
	}
	d.install(dirtied...)
	return nil
}

func TestBTreeInsertScanAscending(t *testing.T) {
	dbconfig.Reset()
	fs := afero.NewMemMapFs()
	desc := testSchema()
	file, err := NewFile(fs, "/data/idx.tbl", desc, "k")
	require.NoError(t, err)
	pool := &directPool{file: file}
	tid := txn.New()

	keys := []int32{50, 10, 40, 20, 30, 5, 90, 15, 60, 70, 80, 25, 35, 45, 55}
	for _, k := range keys {
		tup := dbtype.NewTuple(desc)
		tup.SetField(0, dbtype.IntField{Value: k})
		tup.SetField(1, dbtype.IntField{Value: k * 2})
		err := pool.insert(tid, file, tup)
		require.NoError(t, err)
	}

	it := file.Iterator(tid, pool)
	require.NoError(t, it.Open())
	var seen []int32
	for {
		has, err := it.HasNext()
		require.NoError(t, err)
		if !has {
			break
		}
		tup, err := it.Next()
		require.NoError(t, err)
		seen = append(seen, tup.Field(0).(dbtype.IntField).Value)
	}
	require.Len(t, seen, len(keys))
	for i := 1; i < len(seen); i++ {
		assert.LessOrEqual(t, seen[i-1], seen[i])
	}
}

func TestBTreeIndexIteratorEquals(t *testing.T) {
	dbconfig.Reset()
	fs := afero.NewMemMapFs()
	desc := testSchema()
	file, err := NewFile(fs, "/data/idx2.tbl", desc, "k")
	require.NoError(t, err)
	pool := &directPool{file: file}
	tid := txn.New()

	for i := int32(0); i < 100; i++ {
		tup := dbtype.NewTuple(desc)
		tup.SetField(0, dbtype.IntField{Value: i})
		tup.SetField(1, dbtype.IntField{Value: i})
		err := pool.insert(tid, file, tup)
		require.NoError(t, err)
	}

	it := file.IndexIterator(tid, pool, IndexPredicate{Op: Equals, Value: 42})
	require.NoError(t, it.Open())
	has, err := it.HasNext()
	require.NoError(t, err)
	require.True(t, has)
	tup, err := it.Next()
	require.NoError(t, err)
	assert.Equal(t, int32(42), tup.Field(0).(dbtype.IntField).Value)
	has, err = it.HasNext()
	require.NoError(t, err)
	assert.False(t, has)
}

func TestBTreeIndexIteratorGreaterThanOrEq(t *testing.T) {
	dbconfig.Reset()
	fs := afero.NewMemMapFs()
	desc := testSchema()
	file, err := NewFile(fs, "/data/idx3.tbl", desc, "k")
	require.NoError(t, err)
	pool := &directPool{file: file}
	tid := txn.New()

	for i := int32(0); i < 60; i++ {
		tup := dbtype.NewTuple(desc)
		tup.SetField(0, dbtype.IntField{Value: i})
		tup.SetField(1, dbtype.IntField{Value: i})
		err := pool.insert(tid, file, tup)
		require.NoError(t, err)
	}

	it := file.IndexIterator(tid, pool, IndexPredicate{Op: GreaterThanOrEq, Value: 55})
	require.NoError(t, it.Open())
	count := 0
	for {
		has, err := it.HasNext()
		require.NoError(t, err)
		if !has {
			break
		}
		_, err = it.Next()
		require.NoError(t, err)
		count++
	}
	assert.Equal(t, 5, count)
}

func TestBTreeSplitsPreserveOrderingAtSmallPageSize(t *testing.T) {
	dbconfig.Reset()
	dbconfig.SetPageSize(128)
	fs := afero.NewMemMapFs()
	desc := testSchema()
	file, err := NewFile(fs, "/data/idx5.tbl", desc, "k")
	require.NoError(t, err)
	pool := &directPool{file: file}
	tid := txn.New()

	const n = 200
	for i := int32(0); i < n; i++ {
		tup := dbtype.NewTuple(desc)
		tup.SetField(0, dbtype.IntField{Value: (i * 37) % n})
		tup.SetField(1, dbtype.IntField{Value: i})
		err := pool.insert(tid, file, tup)
		require.NoError(t, err)
	}
	assert.Greater(t, file.NumPages(), 3)

	it := file.Iterator(tid, pool)
	require.NoError(t, it.Open())
	var seen []int32
	for {
		has, err := it.HasNext()
		require.NoError(t, err)
		if !has {
			break
		}
		tup, err := it.Next()
		require.NoError(t, err)
		seen = append(seen, tup.Field(0).(dbtype.IntField).Value)
	}
	require.Len(t, seen, n)
	for i := 1; i < len(seen); i++ {
		assert.LessOrEqual(t, seen[i-1], seen[i])
	}
}

func TestBTreeDeleteRemovesFromScan(t *testing.T) {
	dbconfig.Reset()
	fs := afero.NewMemMapFs()
	desc := testSchema()
	file, err := NewFile(fs, "/data/idx4.tbl", desc, "k")
	require.NoError(t, err)
	pool := &directPool{file: file}
	tid := txn.New()

	var tuples []*dbtype.Tuple
	for i := int32(0); i < 20; i++ {
		tup := dbtype.NewTuple(desc)
		tup.SetField(0, dbtype.IntField{Value: i})
		tup.SetField(1, dbtype.IntField{Value: i})
		err := pool.insert(tid, file, tup)
		require.NoError(t, err)
		tuples = append(tuples, tup)
	}

	_, err = file.DeleteTuple(tid, pool, tuples[5])
	require.NoError(t, err)

	it := file.Iterator(tid, pool)
	require.NoError(t, it.Open())
	count := 0
	for {
		has, err := it.HasNext()
		require.NoError(t, err)
		if !has {
			break
		}
		tup, err := it.Next()
		require.NoError(t, err)
		assert.NotEqual(t, int32(5), tup.Field(0).(dbtype.IntField).Value)
		count++
	}
	assert.Equal(t, 19, count)
}

// TestBTreeDeleteOutOfOrderInsertRemovesCorrectKey exercises keys
// arriving out of sorted order and spanning a split: leafInsert places
// each entry at its sorted position, which is not generally the slot
// it was stamped with at insert time, so deleting one of the inserted
// tuples from such a tree must remove exactly that key and no other.
func TestBTreeDeleteOutOfOrderInsertRemovesCorrectKey(t *testing.T) {
	dbconfig.Reset()
	dbconfig.SetPageSize(128)
	fs := afero.NewMemMapFs()
	desc := testSchema()
	file, err := NewFile(fs, "/data/idx6.tbl", desc, "k")
	require.NoError(t, err)
	pool := &directPool{file: file}
	tid := txn.New()

	const n = 60
	keys := make([]int32, n)
	for i := range keys {
		keys[i] = int32((i * 17) % n)
	}

	byKey := make(map[int32]*dbtype.Tuple, n)
	for _, k := range keys {
		tup := dbtype.NewTuple(desc)
		tup.SetField(0, dbtype.IntField{Value: k})
		tup.SetField(1, dbtype.IntField{Value: k})
		err := pool.insert(tid, file, tup)
		require.NoError(t, err)
		byKey[k] = tup
	}
	require.Greater(t, file.NumPages(), 3, "test should actually exercise a split")

	scan := func() []int32 {
		it := file.Iterator(tid, pool)
		require.NoError(t, it.Open())
		var got []int32
		for {
			has, err := it.HasNext()
			require.NoError(t, err)
			if !has {
				break
			}
			tup, err := it.Next()
			require.NoError(t, err)
			got = append(got, tup.Field(0).(dbtype.IntField).Value)
		}
		return got
	}

	before := scan()
	require.Len(t, before, n)

	const deleteKey = int32(3)
	_, err = file.DeleteTuple(tid, pool, byKey[deleteKey])
	require.NoError(t, err)

	after := scan()
	require.Len(t, after, n-1)
	assert.NotContains(t, after, deleteKey)

	remaining := make(map[int32]bool, len(after))
	for _, k := range after {
		remaining[k] = true
	}
	for k := range byKey {
		if k == deleteKey {
			continue
		}
		assert.True(t, remaining[k], "key %d should still be present", k)
	}
}
