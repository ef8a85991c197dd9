package exec

import "simpledb/pkg/dberrors"

func errNoSuchElement() error {
	return dberrors.NoSuchElement("operator: next called past end of iterator")
}
