package lock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"simpledb/pkg/dberrors"
	"simpledb/pkg/storage/page"
	"simpledb/pkg/txn"
)

func TestAcquireSharedJoinsHolders(t *testing.T) {
	m := New(nil)
	p := page.ID{TableID: 1, PageNo: 0}
	t1, t2 := txn.New(), txn.New()

	require.NoError(t, m.Acquire(t1, p, Shared))
	require.NoError(t, m.Acquire(t2, p, Shared))

	assert.True(t, m.HoldsLock(t1, p, Shared))
	assert.True(t, m.HoldsLock(t2, p, Shared))
}

func TestAcquireIsIdempotent(t *testing.T) {
	m := New(nil)
	p := page.ID{TableID: 1, PageNo: 0}
	t1 := txn.New()

	require.NoError(t, m.Acquire(t1, p, Exclusive))
	require.NoError(t, m.Acquire(t1, p, Exclusive))
	require.NoError(t, m.Acquire(t1, p, Shared))
}

func TestUpgradeInPlaceWhenSoleHolder(t *testing.T) {
	m := New(nil)
	p := page.ID{TableID: 1, PageNo: 0}
	t1 := txn.New()

	require.NoError(t, m.Acquire(t1, p, Shared))
	require.NoError(t, m.Acquire(t1, p, Exclusive))
	assert.True(t, m.HoldsLock(t1, p, Exclusive))
}

func TestReleaseOfUnheldPagePanics(t *testing.T) {
	m := New(nil)
	p := page.ID{TableID: 1, PageNo: 0}
	assert.Panics(t, func() {
		m.Release(txn.New(), p)
	})
}

func TestXLockBlocksOtherXUntilReleased(t *testing.T) {
	m := New(nil)
	p := page.ID{TableID: 1, PageNo: 0}
	t1, t2 := txn.New(), txn.New()

	require.NoError(t, m.Acquire(t1, p, Exclusive))

	done := make(chan error, 1)
	go func() {
		done <- m.Acquire(t2, p, Exclusive)
	}()

	select {
	case <-done:
		t.Fatal("t2 acquired X while t1 still holds it")
	case <-time.After(50 * time.Millisecond):
	}

	m.Release(t1, p)
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("t2 never acquired after release")
	}
}

// TestDeadlockDetection implements system test S2: two empty pages P, Q.
// T1 X-locks P; T2 X-locks Q; T1 requests X on Q; T2 requests X on P.
// Exactly one of {T1, T2} must observe transaction-aborted.
func TestDeadlockDetection(t *testing.T) {
	m := New(nil)
	p := page.ID{TableID: 1, PageNo: 0}
	q := page.ID{TableID: 1, PageNo: 1}
	t1, t2 := txn.New(), txn.New()

	require.NoError(t, m.Acquire(t1, p, Exclusive))
	require.NoError(t, m.Acquire(t2, q, Exclusive))

	err1ch := make(chan error, 1)
	err2ch := make(chan error, 1)
	go func() { err1ch <- m.Acquire(t1, q, Exclusive) }()
	go func() { err2ch <- m.Acquire(t2, p, Exclusive) }()

	// Whichever of the two aborts first releases its locks, standing in
	// for the caller's transactionComplete(txn, false); the survivor can
	// then complete its wait.
	var err1, err2 error
	var got1, got2 bool
	for !got1 || !got2 {
		select {
		case err1 = <-err1ch:
			got1 = true
			if err1 != nil {
				m.Release(t1, p)
			}
		case err2 = <-err2ch:
			got2 = true
			if err2 != nil {
				m.Release(t2, q)
			}
		case <-time.After(2 * time.Second):
			t.Fatal("deadlock not resolved in time")
		}
	}

	abortCount := 0
	for _, err := range []error{err1, err2} {
		if err != nil {
			assert.True(t, dberrors.Is(err, dberrors.ErrTransactionAborted))
			abortCount++
		}
	}
	assert.Equal(t, 1, abortCount, "exactly one transaction must abort")
}
