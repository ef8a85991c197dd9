// Package lock implements page-granularity two-phase locking with
// waits-for cycle detection for deadlock resolution, per spec §4.1.
package lock

import (
	"sync"

	"go.uber.org/zap"

	"simpledb/pkg/dberrors"
	"simpledb/pkg/storage/page"
	"simpledb/pkg/txn"
)

// Mode is a lock strength: shared (many readers) or exclusive (one
// writer).
type Mode int

const (
	Shared Mode = iota
	Exclusive
)

func (m Mode) String() string {
	if m == Exclusive {
		return "X"
	}
	return "S"
}

// pageLock is the per-page lock state: current mode plus holder set. An
// empty holder set is equivalent to "unlocked"; the entry stays in the
// manager's map once created.
type pageLock struct {
	mu      sync.Mutex
	cond    *sync.Cond
	mode    Mode
	holders map[txn.ID]bool
}

func newPageLock() *pageLock {
	pl := &pageLock{holders: make(map[txn.ID]bool)}
	pl.cond = sync.NewCond(&pl.mu)
	return pl
}

// Manager is the page lock table plus the waits-for graph used for
// deadlock detection. The zero value is not usable; construct with New.
type Manager struct {
	log *zap.Logger

	tableMu sync.Mutex
	table   map[page.ID]*pageLock

	graphMu  sync.Mutex
	waitsFor map[txn.ID]map[txn.ID]bool // waiter -> set of txns it waits on
}

// New builds an empty lock manager. A nil logger is replaced with a no-op
// logger so callers never need to configure logging just to use locking.
func New(log *zap.Logger) *Manager {
	if log == nil {
		log = zap.NewNop()
	}
	return &Manager{
		log:      log,
		table:    make(map[page.ID]*pageLock),
		waitsFor: make(map[txn.ID]map[txn.ID]bool),
	}
}

func (m *Manager) lockFor(pid page.ID) *pageLock {
	m.tableMu.Lock()
	defer m.tableMu.Unlock()
	pl, ok := m.table[pid]
	if !ok {
		pl = newPageLock()
		m.table[pid] = pl
	}
	return pl
}

// Acquire blocks until tid holds pid at >= mode, or returns
// transaction-aborted if the deadlock detector picks tid as the victim.
//
// Grant rules (spec §4.1):
//   - tid already holds >= mode: return immediately (idempotent).
//   - unlocked: grant.
//   - held S, request S: join holders.
//   - held S, request X, tid is sole holder: upgrade in place.
//   - held S, request X, other holders present: wait for them to release.
//   - held X by someone else: wait.
func (m *Manager) Acquire(tid txn.ID, pid page.ID, mode Mode) error {
	pl := m.lockFor(pid)
	pl.mu.Lock()
	defer pl.mu.Unlock()

	for {
		if pl.holders[tid] {
			if mode == Shared || pl.mode == Exclusive {
				m.clearWait(tid)
				return nil
			}
			// tid holds S, wants X.
			if len(pl.holders) == 1 {
				pl.mode = Exclusive
				m.clearWait(tid)
				return nil
			}
			// fall through to wait for the other S holders to drain.
		} else if len(pl.holders) == 0 {
			pl.mode = mode
			pl.holders[tid] = true
			m.clearWait(tid)
			return nil
		} else if pl.mode == Shared && mode == Shared {
			pl.holders[tid] = true
			m.clearWait(tid)
			return nil
		}

		// Must wait. Record edges to every current holder, then run
		// cycle detection before committing to block.
		others := make([]txn.ID, 0, len(pl.holders))
		for h := range pl.holders {
			if !h.Equal(tid) {
				others = append(others, h)
			}
		}
		if err := m.recordWaitAndDetect(tid, others); err != nil {
			m.clearWait(tid)
			return err
		}

		pl.cond.Wait()
	}
}

// recordWaitAndDetect adds waits-for edges from tid to each of others,
// then checks for a cycle reachable from tid. On a cycle, it aborts tid
// (abort-the-waiter policy, spec §4.1 policy 1) and removes the edges it
// just added.
func (m *Manager) recordWaitAndDetect(tid txn.ID, others []txn.ID) error {
	m.graphMu.Lock()
	defer m.graphMu.Unlock()

	if m.waitsFor[tid] == nil {
		m.waitsFor[tid] = make(map[txn.ID]bool)
	}
	for _, o := range others {
		m.waitsFor[tid][o] = true
	}

	if m.hasCycleLocked(tid) {
		delete(m.waitsFor, tid)
		m.log.Warn("deadlock detected, aborting waiter", zap.String("txn", tid.String()))
		return dberrors.TransactionAborted("deadlock detected for txn %s", tid)
	}
	return nil
}

// hasCycleLocked runs a DFS from start over the waits-for graph. Caller
// must hold graphMu.
func (m *Manager) hasCycleLocked(start txn.ID) bool {
	visited := make(map[txn.ID]bool)
	var dfs func(t txn.ID) bool
	dfs = func(t txn.ID) bool {
		for next := range m.waitsFor[t] {
			if next.Equal(start) {
				return true
			}
			if visited[next] {
				continue
			}
			visited[next] = true
			if dfs(next) {
				return true
			}
		}
		return false
	}
	return dfs(start)
}

func (m *Manager) clearWait(tid txn.ID) {
	m.graphMu.Lock()
	delete(m.waitsFor, tid)
	m.graphMu.Unlock()
}

// Release removes tid from pid's holder set. Does not downgrade a
// multi-holder S lock to anything but one-fewer-holder. Broadcasts so
// every waiter on this page re-checks its grant condition.
func (m *Manager) Release(tid txn.ID, pid page.ID) {
	pl := m.lockFor(pid)
	pl.mu.Lock()
	defer pl.mu.Unlock()

	if !pl.holders[tid] {
		panic("lock: release of a page not held by this transaction")
	}
	delete(pl.holders, tid)
	pl.cond.Broadcast()
}

// HoldsLock reports whether tid holds pid at or above mode.
func (m *Manager) HoldsLock(tid txn.ID, pid page.ID, mode Mode) bool {
	pl := m.lockFor(pid)
	pl.mu.Lock()
	defer pl.mu.Unlock()
	if !pl.holders[tid] {
		return false
	}
	return pl.mode >= mode || mode == Shared
}

// LockedPages returns every page currently locked by tid, paired with the
// mode the page is held at (commit needs this to decide flush vs. no-op).
func (m *Manager) LockedPages(tid txn.ID) map[page.ID]Mode {
	m.tableMu.Lock()
	pids := make([]page.ID, 0, len(m.table))
	locks := make([]*pageLock, 0, len(m.table))
	for pid, pl := range m.table {
		pids = append(pids, pid)
		locks = append(locks, pl)
	}
	m.tableMu.Unlock()

	out := make(map[page.ID]Mode)
	for i, pl := range locks {
		pl.mu.Lock()
		if pl.holders[tid] {
			out[pids[i]] = pl.mode
		}
		pl.mu.Unlock()
	}
	return out
}
