// Package dbconfig holds the process-global, set-once-at-init settings
// that the rest of the engine reads: page size and histogram bucket
// count. Both are constructor arguments conceptually, but since page
// byte layout is baked into every Page implementation, the spec treats
// them as process-wide knobs rather than per-instance ones.
package dbconfig

import "sync/atomic"

const (
	defaultPageSize        = 4096
	defaultHistogramBucket = 100
)

var (
	pageSize  int32 = defaultPageSize
	histBkts  int32 = defaultHistogramBucket
	pageSizeUsed atomic.Bool
)

// PageSize returns the current process-wide page size in bytes.
func PageSize() int {
	pageSizeUsed.Store(true)
	return int(atomic.LoadInt32(&pageSize))
}

// SetPageSize changes the process-wide page size. Panics if any page has
// already been sized against the previous value, since changing it after
// the fact silently corrupts on-disk layout.
func SetPageSize(n int) {
	if pageSizeUsed.Load() {
		panic("dbconfig: SetPageSize called after PageSize was already read")
	}
	atomic.StoreInt32(&pageSize, int32(n))
}

// HistogramBuckets returns the configured equi-width histogram bucket
// count (default 100, the test suite requires at least 100).
func HistogramBuckets() int {
	return int(atomic.LoadInt32(&histBkts))
}

// SetHistogramBuckets overrides the bucket count. Must be >= 100 to match
// the test suite's precision expectations.
func SetHistogramBuckets(n int) {
	if n < 100 {
		panic("dbconfig: histogram bucket count must be >= 100")
	}
	atomic.StoreInt32(&histBkts, int32(n))
}

// Reset restores defaults and clears the "already used" latch. Test-only.
func Reset() {
	atomic.StoreInt32(&pageSize, defaultPageSize)
	atomic.StoreInt32(&histBkts, defaultHistogramBucket)
	pageSizeUsed.Store(false)
}
