// Package dbcore holds the process-wide Database: the catalog, the
// buffer pool, and the table-stats map, plus the test-only reset() spec
// §6 calls for ("A process-wide Database holds the catalog, the buffer
// pool, and the table-stats map. reset() rebuilds them").
package dbcore

import (
	"sync"

	"go.uber.org/zap"

	"simpledb/pkg/buffer"
	"simpledb/pkg/catalog"
	"simpledb/pkg/lock"
	"simpledb/pkg/stats"
)

// Database is the process singleton wiring the catalog, lock manager,
// buffer pool and per-table statistics together.
type Database struct {
	Log     *zap.Logger
	Catalog *catalog.Catalog
	Locks   *lock.Manager
	Pool    *buffer.Pool

	mu        sync.RWMutex
	tableStat map[uint64]*stats.TableStats
}

var (
	instMu sync.Mutex
	inst   *Database
)

// New builds a fresh Database with a buffer pool of the given capacity.
func New(poolCapacity int, log *zap.Logger) *Database {
	if log == nil {
		log = zap.NewNop()
	}
	cat := catalog.New(log)
	lm := lock.New(log)
	pool := buffer.New(poolCapacity, lm, cat, log)
	return &Database{
		Log: log, Catalog: cat, Locks: lm, Pool: pool,
		tableStat: make(map[uint64]*stats.TableStats),
	}
}

// Instance returns the process-wide Database, creating a default one
// (capacity 50 pages) on first use.
func Instance() *Database {
	instMu.Lock()
	defer instMu.Unlock()
	if inst == nil {
		inst = New(50, nil)
	}
	return inst
}

// Reset rebuilds the process-wide Database from scratch. Test-only.
func Reset(poolCapacity int) *Database {
	instMu.Lock()
	defer instMu.Unlock()
	inst = New(poolCapacity, nil)
	return inst
}

// SetTableStats records the statistics computed for a table.
func (d *Database) SetTableStats(tableID uint64, ts *stats.TableStats) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.tableStat[tableID] = ts
}

// TableStats returns the statistics for tableID, if computed.
func (d *Database) TableStats(tableID uint64) (*stats.TableStats, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	ts, ok := d.tableStat[tableID]
	return ts, ok
}
