// Package txn defines the process-lifetime transaction identifier shared
// by the lock manager, buffer pool, and every storage file.
package txn

import "github.com/google/uuid"

// ID identifies one transaction for the lifetime of the process. It is
// opaque to everything except the lock manager and buffer pool, which use
// it purely as a map key and equality-comparable value.
type ID struct {
	uuid uuid.UUID
}

// New allocates a fresh transaction identifier.
func New() ID {
	return ID{uuid: uuid.New()}
}

// Zero reports whether this is the unset ID value.
func (t ID) Zero() bool {
	return t.uuid == uuid.Nil
}

func (t ID) String() string {
	return t.uuid.String()
}

// Equal reports structural equality, satisfying Go's comparable interface
// via == as well (ID is a single fixed-size array under the hood).
func (t ID) Equal(other ID) bool {
	return t.uuid == other.uuid
}
