package heap

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
		dbtype.FieldDesc{Type: dbtype.IntType, Name: "id"},
		dbtype.FieldDesc{Type: dbtype.StringType, Name: "name"},
	)
}

// directPool is a trivial dbfile.BufferPool that caches every page it
// reads and never evicts, so pages dirtied in memory stay visible to
// later reads, as they do in the real buffer pool.
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
	if d.pages == nil {
		d.pages = make(map[page.ID]page.Page)
	}
	d.pages[pid] = pg
	return pg, nil
}

func TestHeapFileInsertScanRoundtrip(t *testing.T) {
	dbconfig.Reset()
	fs := afero.NewMemMapFs()
	desc := testSchema()
	file, err := NewFile(fs, "/data/t1.tbl", desc)
	require.NoError(t, err)

	pool := &directPool{file: file}
	tid := txn.New()

	for i := 0; i < 50; i++ {
		tup := dbtype.NewTuple(desc)
		tup.SetField(0, dbtype.IntField{Value: int32(i)})
		tup.SetField(1, dbtype.StringField{Value: "row"})
		_, err := file.InsertTuple(tid, pool, tup)
		require.NoError(t, err)
	}

	it := file.Iterator(tid, pool)
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
	assert.Equal(t, 50, count)
	assert.Greater(t, file.NumPages(), 1)
}

func TestHeapFileDeleteThenInsertReusesSlot(t *testing.T) {
	dbconfig.Reset()
	fs := afero.NewMemMapFs()
	desc := testSchema()
	file, err := NewFile(fs, "/data/t2.tbl", desc)
	require.NoError(t, err)
	pool := &directPool{file: file}
	tid := txn.New()

	tup := dbtype.NewTuple(desc)
	tup.SetField(0, dbtype.IntField{Value: 1})
	tup.SetField(1, dbtype.StringField{Value: "a"})
	_, err = file.InsertTuple(tid, pool, tup)
	require.NoError(t, err)

	_, err = file.DeleteTuple(tid, pool, tup)
	require.NoError(t, err)

	before := file.NumPages()
	tup2 := dbtype.NewTuple(desc)
	tup2.SetField(0, dbtype.IntField{Value: 2})
	tup2.SetField(1, dbtype.StringField{Value: "b"})
	_, err = file.InsertTuple(tid, pool, tup2)
	require.NoError(t, err)
	assert.Equal(t, before, file.NumPages())
}

func TestTableIDFromPathIsStable(t *testing.T) {
	a := TableIDFromPath("/data/foo.tbl")
	b := TableIDFromPath("/data/foo.tbl")
	c := TableIDFromPath("/data/bar.tbl")
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}
