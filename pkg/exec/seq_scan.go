package exec

import (
	"simpledb/pkg/dbtype"
	"simpledb/pkg/storage/dbfile"
	"simpledb/pkg/txn"
)

// SeqScan wraps a table's underlying file iterator, renaming every
// output field to `alias.fieldName`.
type SeqScan struct {
	baseIterator
	tid   txn.ID
	bp    dbfile.BufferPool
	file  dbfile.DbFile
	alias string

	desc dbtype.Schema
	it   dbfile.DbFileIterator
}

// NewSeqScan builds a scan of file under tid, rewriting field names
// under alias. An empty alias is used as given, yielding names of the
// form ".fieldName".
func NewSeqScan(tid txn.ID, bp dbfile.BufferPool, file dbfile.DbFile, alias string) *SeqScan {
	s := &SeqScan{tid: tid, bp: bp, file: file, alias: alias, desc: file.TupleDesc().WithAlias(alias)}
	s.fetchNext = s.advance
	return s
}

func (s *SeqScan) Open() error {
	s.it = s.file.Iterator(s.tid, s.bp)
	if err := s.it.Open(); err != nil {
		return err
	}
	s.reset()
	return nil
}

func (s *SeqScan) advance() (*dbtype.Tuple, error) {
	has, err := s.it.HasNext()
	if err != nil || !has {
		return nil, err
	}
	t, err := s.it.Next()
	if err != nil {
		return nil, err
	}
	renamed := dbtype.NewTuple(s.desc)
	for i := 0; i < t.Schema().NumFields(); i++ {
		renamed.SetField(i, t.Field(i))
	}
	if rid, ok := t.RecordID(); ok {
		renamed.SetRecordID(rid)
	}
	return renamed, nil
}

func (s *SeqScan) Close() {
	if s.it != nil {
		s.it.Close()
	}
}

func (s *SeqScan) Rewind() error {
	if s.it == nil {
		return s.Open()
	}
	if err := s.it.Rewind(); err != nil {
		return err
	}
	s.reset()
	return nil
}

func (s *SeqScan) TupleDesc() dbtype.Schema    { return s.desc }
func (s *SeqScan) Children() []OpIterator      { return nil }
func (s *SeqScan) SetChildren(_ []OpIterator)  {}
