// Package buffer implements the bounded page cache: LRU eviction
// restricted to clean pages (NO-STEAL), and the transactional wrapping of
// page I/O described in spec §4.2.
package buffer

import (
	"sync"

	"go.uber.org/zap"

	"simpledb/pkg/dberrors"
	"simpledb/pkg/lock"
	"simpledb/pkg/storage/dbfile"
	"simpledb/pkg/storage/page"
	"simpledb/pkg/txn"
)

// FileLookup resolves a table id to the DbFile that owns it. The catalog
// implements this; the buffer pool only depends on the interface so it
// never needs to import the catalog package.
type FileLookup interface {
	GetDbFile(tableID uint64) (dbfile.DbFile, error)
}

type entry struct {
	page  page.Page
	stamp uint64
}

// Pool is a bounded map from page identity to (page, last-access stamp).
// Capacity is fixed at construction. All mutations serialize under mu;
// GetPage only holds mu around the cache hit/miss/installation steps, not
// across the underlying disk read.
type Pool struct {
	log  *zap.Logger
	lm   *lock.Manager
	find FileLookup

	mu       sync.Mutex
	capacity int
	stamp    uint64
	pages    map[page.ID]*entry
}

// New builds a buffer pool of the given capacity, backed by the given
// lock manager and file lookup.
func New(capacity int, lm *lock.Manager, find FileLookup, log *zap.Logger) *Pool {
	if log == nil {
		log = zap.NewNop()
	}
	return &Pool{
		log:      log,
		lm:       lm,
		find:     find,
		capacity: capacity,
		pages:    make(map[page.ID]*entry),
	}
}

// nextStamp bumps the monotonic access counter, resetting every cached
// page's stamp to a dense 1..N range on overflow. The new stamps follow
// map iteration order, so the LRU order among cached pages is not kept
// across the wraparound.
func (p *Pool) nextStamp() uint64 {
	if p.stamp == ^uint64(0) {
		renumbered := make([]*entry, 0, len(p.pages))
		for _, e := range p.pages {
			renumbered = append(renumbered, e)
		}
		for i, e := range renumbered {
			e.stamp = uint64(i + 1)
		}
		p.stamp = uint64(len(renumbered) + 1)
	} else {
		p.stamp++
	}
	return p.stamp
}

// GetPage is the universal page accessor (spec §4.2): acquire the lock,
// then serve from cache or read through to the file, evicting a clean
// page if the pool is full.
func (p *Pool) GetPage(tid txn.ID, pid page.ID, perm dbfile.Permission) (page.Page, error) {
	mode := lock.Shared
	if perm == dbfile.ReadWrite {
		mode = lock.Exclusive
	}
	if err := p.lm.Acquire(tid, pid, mode); err != nil {
		return nil, err
	}

	p.mu.Lock()
	if e, ok := p.pages[pid]; ok {
		e.stamp = p.nextStamp()
		pg := e.page
		p.mu.Unlock()
		return pg, nil
	}

	if len(p.pages) >= p.capacity {
		if err := p.evictOneLocked(); err != nil {
			p.mu.Unlock()
			return nil, err
		}
	}
	p.mu.Unlock()

	file, err := p.find.GetDbFile(pid.TableID)
	if err != nil {
		return nil, err
	}
	pg, err := file.ReadPage(pid)
	if err != nil {
		return nil, dberrors.IOError(err, "reading page %s", pid)
	}

	p.mu.Lock()
	p.pages[pid] = &entry{page: pg, stamp: p.nextStamp()}
	p.mu.Unlock()

	p.log.Debug("page fetched from disk", zap.Stringer("page", pid))
	return pg, nil
}

// evictOneLocked evicts exactly one clean page with the minimum stamp.
// Caller must hold mu. Dirty pages are never eviction candidates
// (NO-STEAL); if every cached page is dirty, fails with db-exception.
func (p *Pool) evictOneLocked() error {
	var victim page.ID
	var victimStamp uint64
	found := false
	for pid, e := range p.pages {
		if dirty, _ := e.page.IsDirty(); dirty {
			continue
		}
		if !found || e.stamp < victimStamp {
			victim = pid
			victimStamp = e.stamp
			found = true
		}
	}
	if !found {
		return dberrors.DBException("buffer pool full: no clean page available to evict")
	}
	delete(p.pages, victim)
	p.log.Debug("evicted clean page", zap.Stringer("page", victim))
	return nil
}

// installDirty re-keys a page the file just mutated into the pool,
// marking it dirty by tid, possibly evicting one previously-uncached page
// to make room.
func (p *Pool) installDirty(tid txn.ID, pg page.Page) error {
	pg.MarkDirty(true, tid)

	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.pages[pg.ID()]; !ok {
		if len(p.pages) >= p.capacity {
			if err := p.evictOneLocked(); err != nil {
				return err
			}
		}
	}
	p.pages[pg.ID()] = &entry{page: pg, stamp: p.nextStamp()}
	return nil
}

// FlushPage writes pid's bytes to disk via its file if dirty, then clears
// the dirty marker. A no-op if the page isn't dirty. Flushing a page the
// caller doesn't own is allowed — the X-lock discipline guarantees no
// concurrent writer could exist.
func (p *Pool) FlushPage(pid page.ID) error {
	p.mu.Lock()
	e, ok := p.pages[pid]
	p.mu.Unlock()
	if !ok {
		return nil
	}
	dirty, _ := e.page.IsDirty()
	if !dirty {
		return nil
	}
	file, err := p.find.GetDbFile(pid.TableID)
	if err != nil {
		return err
	}
	if err := file.WritePage(e.page); err != nil {
		return dberrors.IOError(err, "flushing page %s", pid)
	}
	e.page.MarkDirty(false, txn.ID{})
	return nil
}

// DiscardPage drops pid from the cache without writing it back —
// transaction abort's in-place discard, sound only because dirty pages
// are never evicted out from under a live transaction.
func (p *Pool) DiscardPage(pid page.ID) {
	p.mu.Lock()
	delete(p.pages, pid)
	p.mu.Unlock()
}

// TransactionComplete snapshots the pages tid locked in X-mode, then
// either flushes (commit) or discards (abort) each one that's cached,
// and finally releases every lock tid holds. The snapshot must happen
// before releasing, since releasing mutates the lock table out from under
// LockedPages.
func (p *Pool) TransactionComplete(tid txn.ID, commit bool) error {
	locked := p.lm.LockedPages(tid)

	for pid, mode := range locked {
		if mode != lock.Exclusive {
			continue
		}
		if commit {
			if err := p.FlushPage(pid); err != nil {
				return err
			}
		} else {
			p.DiscardPage(pid)
		}
	}

	for pid := range locked {
		p.lm.Release(tid, pid)
	}
	return nil
}

// FlushAllPages flushes every dirty page in the pool. Test-only per spec
// §4.2 — using it during normal operation violates the STEAL/NO-STEAL
// invariant by forcing writes outside of commit.
func (p *Pool) FlushAllPages() error {
	p.mu.Lock()
	pids := make([]page.ID, 0, len(p.pages))
	for pid := range p.pages {
		pids = append(pids, pid)
	}
	p.mu.Unlock()

	for _, pid := range pids {
		if err := p.FlushPage(pid); err != nil {
			return err
		}
	}
	return nil
}

// Size reports the number of pages currently cached, for invariant tests
// (pool size never exceeds numPages).
func (p *Pool) Size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.pages)
}

// InstallDirtyPages is the typed entry point storage files use after
// InsertTuple/DeleteTuple to hand dirtied pages back to the pool. Exported
// so pkg/storage/heap and pkg/storage/btree (which construct pages the
// pool doesn't yet know about) can re-key them without the pool needing
// to know about tuples.
func (p *Pool) InstallDirtyPages(tid txn.ID, pages ...page.Page) error {
	for _, pg := range pages {
		if err := p.installDirty(tid, pg); err != nil {
			return err
		}
	}
	return nil
}
