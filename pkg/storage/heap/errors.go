package heap

import (
	"simpledb/pkg/dberrors"
	"simpledb/pkg/storage/page"
)

func errSlotEmpty(slot int) error {
	return dberrors.DBException("heap page: slot %d is empty", slot)
}

func errPageFull() error {
	return dberrors.DBException("heap page: no empty slot")
}

func errWrongPage(got, want page.ID) error {
	return dberrors.DBException("heap page: record identity %s does not match page %s", got, want)
}

func errNoSuchElement() error {
	return dberrors.NoSuchElement("heap file iterator: no more tuples")
}
