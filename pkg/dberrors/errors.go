// Package dberrors defines the four error kinds from the engine's error
// handling design: db-exception, transaction-aborted, io-error, and
// no-such-element. Every error surfaced above the storage layer wraps one
// of these sentinels so callers can branch on kind with errors.Is.
package dberrors

import "github.com/pkg/errors"

// Sentinel kinds. Never returned bare; always wrapped with context via the
// constructor functions below.
var (
	ErrDBException        = errors.New("db-exception")
	ErrTransactionAborted = errors.New("transaction-aborted")
	ErrIOError            = errors.New("io-error")
	ErrNoSuchElement      = errors.New("no-such-element")
)

// DBException wraps ErrDBException with a formatted message, e.g. a
// tuple-to-table mismatch or an invalid record identity.
func DBException(format string, args ...any) error {
	return errors.Wrapf(ErrDBException, format, args...)
}

// TransactionAborted wraps ErrTransactionAborted. Raised only by the lock
// manager when it picks txn as a deadlock victim.
func TransactionAborted(format string, args ...any) error {
	return errors.Wrapf(ErrTransactionAborted, format, args...)
}

// IOError wraps ErrIOError with a formatted message and folds in cause,
// so callers can both discriminate on kind (dberrors.Is(err, ErrIOError))
// and see the underlying storage failure in the message, the same as
// the other three constructors wrap their own sentinel.
func IOError(cause error, format string, args ...any) error {
	msg := errors.Errorf(format, args...)
	return errors.Wrapf(ErrIOError, "%s: %v", msg, cause)
}

// NoSuchElement wraps ErrNoSuchElement, e.g. a catalog lookup miss or a
// next() call past the end of an iterator.
func NoSuchElement(format string, args ...any) error {
	return errors.Wrapf(ErrNoSuchElement, format, args...)
}

// Is reports whether err carries the given sentinel kind anywhere in its
// chain. Thin wrapper kept so call sites don't need to import
// github.com/pkg/errors directly just to test a kind.
func Is(err, kind error) bool {
	return errors.Is(err, kind)
}
