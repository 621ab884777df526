// Package monthly computes per-account month net totals and the two
// cumulative views built on them.
//
// Cached totals in AppData.MonthlyNetTotals only ever save work: every read
// falls back to recomputing from the ledger entries, so a missing record
// returns the same answer as a present one.
package monthly

import (
	"fmt"
	"slices"
	"time"

	"github.com/shopspring/decimal"

	"khata/internal/core"
)

// RetentionYears is how long cached month totals are kept.
const RetentionYears = 2

// Key identifies one cached month.
type Key struct {
	Year      int
	Month     int // 0-11
	AccountID string
}

// String renders the key as YYYY-MM-accountId.
func (k Key) String() string {
	return fmt.Sprintf("%04d-%02d-%s", k.Year, k.Month+1, k.AccountID)
}

// TotalsCache is a read-through cache of month totals.
// Lookup misses are never errors; callers recompute.
type TotalsCache interface {
	Lookup(key Key) (core.MonthlyNetTotal, bool)
	Upsert(total core.MonthlyNetTotal)
}

// DocumentCache adapts a document's totals slice to TotalsCache.
type DocumentCache struct {
	totals []core.MonthlyNetTotal
}

var _ TotalsCache = (*DocumentCache)(nil)

// CacheOf wraps the totals held by data. Upserts write into a private copy.
func CacheOf(data core.AppData) *DocumentCache {
	return &DocumentCache{totals: slices.Clone(data.MonthlyNetTotals)}
}

func (c *DocumentCache) Lookup(key Key) (core.MonthlyNetTotal, bool) {
	if i := c.index(key); i >= 0 {
		return c.totals[i], true
	}
	return core.MonthlyNetTotal{}, false
}

func (c *DocumentCache) Upsert(total core.MonthlyNetTotal) {
	key := Key{Year: total.Year, Month: total.Month, AccountID: total.AccountID}
	if i := c.index(key); i >= 0 {
		c.totals[i] = total
		return
	}
	c.totals = append(c.totals, total)
}

// Totals returns the cached records.
func (c *DocumentCache) Totals() []core.MonthlyNetTotal {
	return c.totals
}

func (c *DocumentCache) index(key Key) int {
	return slices.IndexFunc(c.totals, func(t core.MonthlyNetTotal) bool {
		return t.Year == key.Year && t.Month == key.Month && t.AccountID == key.AccountID
	})
}

// CalculateMonthNetTotal sums the totals of one account's entries in the given
// year and zero based month.
func CalculateMonthNetTotal(entries []core.LedgerEntry, year, month int, accountID string, now time.Time) core.MonthlyNetTotal {
	net := decimal.Zero
	count := 0
	for _, e := range entries {
		if e.AccountID != accountID || e.Date.Year != year || e.Date.MonthIndex() != month {
			continue
		}
		net = net.Add(e.Total)
		count++
	}
	return core.MonthlyNetTotal{
		Year:         year,
		Month:        month,
		AccountID:    accountID,
		NetTotal:     net,
		EntriesCount: count,
		LastUpdated:  now,
	}
}

// UpdateMonthlyNetTotal recomputes one month and upserts it into a copy of data.
func UpdateMonthlyNetTotal(data core.AppData, year, month int, accountID string, now time.Time) core.AppData {
	cache := CacheOf(data)
	cache.Upsert(CalculateMonthNetTotal(data.LedgerEntries, year, month, accountID, now))
	out := data
	out.MonthlyNetTotals = cache.Totals()
	return out
}

// GetMonthlyNetTotal returns the cached total for the month, computing it
// when no record exists. The computed value is not written back.
func GetMonthlyNetTotal(data core.AppData, year, month int, accountID string) decimal.Decimal {
	return lookupOrCompute(CacheOf(data), data.LedgerEntries, year, month, accountID)
}

func lookupOrCompute(cache TotalsCache, entries []core.LedgerEntry, year, month int, accountID string) decimal.Decimal {
	if t, ok := cache.Lookup(Key{Year: year, Month: month, AccountID: accountID}); ok {
		return t.NetTotal
	}
	return CalculateMonthNetTotal(entries, year, month, accountID, time.Time{}).NetTotal
}

// GetCumulativeNetTotal sums January through month (inclusive) of a single
// year. A month of -1 yields zero.
func GetCumulativeNetTotal(data core.AppData, year, month int, accountID string) decimal.Decimal {
	cache := CacheOf(data)
	total := decimal.Zero
	for m := 0; m <= month; m++ {
		total = total.Add(lookupOrCompute(cache, data.LedgerEntries, year, m, accountID))
	}
	return total
}

// GetAllPreviousMonthsTotal sums every month with entries that falls strictly
// before (year, month), across all years.
func GetAllPreviousMonthsTotal(data core.AppData, year, month int, accountID string) decimal.Decimal {
	cache := CacheOf(data)
	total := decimal.Zero
	for _, k := range monthsWithEntries(data.LedgerEntries, accountID) {
		if k.Year > year || (k.Year == year && k.Month >= month) {
			continue
		}
		total = total.Add(lookupOrCompute(cache, data.LedgerEntries, k.Year, k.Month, accountID))
	}
	return total
}

// UpdateAllMonthlyTotalsForAccount refreshes every month in which the account
// has entries.
func UpdateAllMonthlyTotalsForAccount(data core.AppData, accountID string, now time.Time) core.AppData {
	cache := CacheOf(data)
	for _, k := range monthsWithEntries(data.LedgerEntries, accountID) {
		cache.Upsert(CalculateMonthNetTotal(data.LedgerEntries, k.Year, k.Month, accountID, now))
	}
	out := data
	out.MonthlyNetTotals = cache.Totals()
	return out
}

// CleanupOldMonthlyTotals drops records whose first day of month lies more
// than RetentionYears before now.
func CleanupOldMonthlyTotals(data core.AppData, now time.Time) core.AppData {
	cutoff := now.AddDate(-RetentionYears, 0, 0)
	kept := make([]core.MonthlyNetTotal, 0, len(data.MonthlyNetTotals))
	for _, t := range data.MonthlyNetTotals {
		start := time.Date(t.Year, time.Month(t.Month+1), 1, 0, 0, 0, 0, now.Location())
		if !start.Before(cutoff) {
			kept = append(kept, t)
		}
	}
	out := data
	out.MonthlyNetTotals = kept
	return out
}

// YearTable builds the twelve month rows of a year. Cumulative on row m
// equals GetCumulativeNetTotal(data, year, m, accountID).
func YearTable(data core.AppData, year int, accountID string) []core.MonthRow {
	cache := CacheOf(data)
	rows := make([]core.MonthRow, 0, 12)
	running := decimal.Zero
	for m := 0; m < 12; m++ {
		t, ok := cache.Lookup(Key{Year: year, Month: m, AccountID: accountID})
		if !ok {
			t = CalculateMonthNetTotal(data.LedgerEntries, year, m, accountID, time.Time{})
		}
		running = running.Add(t.NetTotal)
		rows = append(rows, core.MonthRow{
			Year:         year,
			Month:        m,
			NetTotal:     t.NetTotal,
			NetType:      core.NetType(t.NetTotal),
			Cumulative:   running,
			EntriesCount: t.EntriesCount,
		})
	}
	return rows
}

// monthsWithEntries lists the distinct months an account has entries in,
// oldest first.
func monthsWithEntries(entries []core.LedgerEntry, accountID string) []Key {
	seen := make(map[Key]struct{})
	var keys []Key
	for _, e := range entries {
		if e.AccountID != accountID {
			continue
		}
		k := Key{Year: e.Date.Year, Month: e.Date.MonthIndex(), AccountID: accountID}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		keys = append(keys, k)
	}
	slices.SortFunc(keys, func(a, b Key) int {
		if a.Year != b.Year {
			return a.Year - b.Year
		}
		return a.Month - b.Month
	})
	return keys
}
