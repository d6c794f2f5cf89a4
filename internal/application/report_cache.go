package application

import (
	"sync"
	"time"
)

// reportCache keeps computed income reports until they expire or the ledger
// changes.
type reportCache struct {
	mu         sync.RWMutex
	now        func() time.Time
	ttl        time.Duration
	maxEntries int
	entries    map[int]reportCacheEntry
}

type reportCacheEntry struct {
	report    IncomeReport
	expiresAt time.Time
}

func newReportCache(ttl time.Duration, maxEntries int, now func() time.Time) *reportCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	if maxEntries <= 0 {
		maxEntries = 8
	}
	if now == nil {
		now = time.Now
	}
	return &reportCache{
		now:        now,
		ttl:        ttl,
		maxEntries: maxEntries,
		entries:    make(map[int]reportCacheEntry),
	}
}

func (c *reportCache) Get(year int) (IncomeReport, bool) {
	if c == nil {
		return IncomeReport{}, false
	}
	c.mu.RLock()
	entry, ok := c.entries[year]
	c.mu.RUnlock()
	if !ok {
		return IncomeReport{}, false
	}
	if c.now().After(entry.expiresAt) {
		c.mu.Lock()
		delete(c.entries, year)
		c.mu.Unlock()
		return IncomeReport{}, false
	}
	return cloneReport(entry.report), true
}

func (c *reportCache) Store(year int, report IncomeReport) {
	if c == nil {
		return
	}
	cloned := cloneReport(report)
	expiry := c.now().Add(c.ttl)

	c.mu.Lock()
	defer c.mu.Unlock()

	c.cleanupLocked()
	if _, exists := c.entries[year]; !exists && len(c.entries) >= c.maxEntries {
		c.evictOldestLocked()
	}
	c.entries[year] = reportCacheEntry{report: cloned, expiresAt: expiry}
}

func (c *reportCache) Invalidate() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.entries = make(map[int]reportCacheEntry)
	c.mu.Unlock()
}

func (c *reportCache) Len() int {
	if c == nil {
		return 0
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *reportCache) cleanupLocked() {
	now := c.now()
	for year, entry := range c.entries {
		if now.After(entry.expiresAt) {
			delete(c.entries, year)
		}
	}
}

// evictOldestLocked drops the entry closest to expiry.
func (c *reportCache) evictOldestLocked() {
	var (
		oldest int
		found  bool
		expiry time.Time
	)
	for year, entry := range c.entries {
		if !found || entry.expiresAt.Before(expiry) {
			oldest, expiry, found = year, entry.expiresAt, true
		}
	}
	if found {
		delete(c.entries, oldest)
	}
}

func cloneReport(report IncomeReport) IncomeReport {
	cloned := report
	if report.Months != nil {
		cloned.Months = make([]MonthTotal, len(report.Months))
		copy(cloned.Months, report.Months)
	}
	if report.Employers != nil {
		cloned.Employers = make([]EmployerTotal, len(report.Employers))
		copy(cloned.Employers, report.Employers)
	}
	return cloned
}
