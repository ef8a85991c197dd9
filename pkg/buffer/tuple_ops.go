package buffer

import (
	"simpledb/pkg/dberrors"
	"simpledb/pkg/dbtype"
	"simpledb/pkg/txn"
)

// InsertTuple delegates to tableID's file (which may recursively call
// GetPage in X-mode and mutate pages), then installs every page the file
// dirtied back into the pool under tid's ownership, per spec §4.2.
func (p *Pool) InsertTuple(tid txn.ID, tableID uint64, t *dbtype.Tuple) error {
	file, err := p.find.GetDbFile(tableID)
	if err != nil {
		return err
	}
	dirtied, err := file.InsertTuple(tid, p, t)
	if err != nil {
		return err
	}
	return p.InstallDirtyPages(tid, dirtied...)
}

// DeleteTuple delegates to the file owning t's record identity, then
// installs the page it dirtied back into the pool.
func (p *Pool) DeleteTuple(tid txn.ID, t *dbtype.Tuple) error {
	rid, ok := t.RecordID()
	if !ok {
		return dberrors.DBException("cannot delete a tuple with no record identity")
	}
	file, err := p.find.GetDbFile(rid.PID.TableID)
	if err != nil {
		return err
	}
	dirtied, err := file.DeleteTuple(tid, p, t)
	if err != nil {
		return err
	}
	return p.InstallDirtyPages(tid, dirtied)
}
