package report

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"khata/internal/core"
	"khata/internal/monthly"
)

type FilterType string

const (
	FilterNone      FilterType = ""
	FilterDateRange FilterType = "dateRange"
	FilterMonth     FilterType = "month"
)

// Filter selects entries either by an inclusive date range or by a
// calendar month written as YYYY-MM.
type Filter struct {
	Type  FilterType `json:"type"`
	Start core.Date  `json:"startDate"`
	End   core.Date  `json:"endDate"`
	Month string     `json:"month,omitempty"`
}

// ParseMonth splits YYYY-MM into a year and a zero based month.
func ParseMonth(s string) (year, month int, err error) {
	parts := strings.Split(strings.TrimSpace(s), "-")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid month %q: want YYYY-MM", s)
	}
	year, err = strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, fmt.Errorf("invalid month %q: %w", s, err)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 1 || m > 12 {
		return 0, 0, fmt.Errorf("invalid month %q: month must be 01-12", s)
	}
	return year, m - 1, nil
}

// FormatMonth is the inverse of ParseMonth.
func FormatMonth(year, month int) string {
	return fmt.Sprintf("%04d-%02d", year, month+1)
}

// FilteredEntries applies f to one account's entries. Range and month
// filters keep the first entry of each calendar day. The result is always
// sorted by date and never aliases accountEntries.
func FilteredEntries(accountEntries []core.LedgerEntry, f Filter) []core.LedgerEntry {
	var keep func(core.LedgerEntry) bool
	switch f.Type {
	case FilterDateRange:
		if f.Start.IsZero() || f.End.IsZero() {
			break
		}
		keep = func(e core.LedgerEntry) bool {
			return !e.Date.Before(f.Start) && !e.Date.After(f.End)
		}
	case FilterMonth:
		year, month, err := ParseMonth(f.Month)
		if err != nil {
			break
		}
		keep = func(e core.LedgerEntry) bool {
			return e.Date.Year == year && e.Date.MonthIndex() == month
		}
	}

	if keep == nil {
		out := append([]core.LedgerEntry(nil), accountEntries...)
		core.SortEntries(out)
		return out
	}

	seen := make(map[core.Date]struct{})
	out := make([]core.LedgerEntry, 0)
	for _, e := range accountEntries {
		if !keep(e) {
			continue
		}
		if _, dup := seen[e.Date]; dup {
			continue
		}
		seen[e.Date] = struct{}{}
		out = append(out, e)
	}
	core.SortEntries(out)
	return out
}

// CalculateSummary sums bills and cash of the given entries.
func CalculateSummary(entries []core.LedgerEntry) core.Summary {
	bills, cash := decimal.Zero, decimal.Zero
	for _, e := range entries {
		bills = bills.Add(e.Bill)
		cash = cash.Add(e.Cash)
	}
	net := bills.Sub(cash)
	return core.Summary{
		TotalBills:    bills,
		TotalCash:     cash,
		NetProfitLoss: net,
		NetType:       core.NetType(net),
		EntriesCount:  len(entries),
	}
}

// CalculateMonthlySummary summarizes one month of an account and adds the
// total of every earlier month across all years.
func CalculateMonthlySummary(month, accountID string, data core.AppData) (core.Summary, error) {
	year, m, err := ParseMonth(month)
	if err != nil {
		return core.Summary{}, err
	}
	s := CalculateSummary(monthEntries(data, accountID, year, m))
	s.PreviousTotal = monthly.GetAllPreviousMonthsTotal(data, year, m, accountID)
	s.CurrentMonthTotal = s.NetProfitLoss
	s.CumulativeTotal = s.PreviousTotal.Add(s.CurrentMonthTotal)
	s.IsMonthlyView = true
	return s, nil
}

// CalculateCumulativeSummary summarizes January through month of a single
// year. NetProfitLoss is the year-to-date total.
func CalculateCumulativeSummary(month, accountID string, data core.AppData) (core.Summary, error) {
	year, m, err := ParseMonth(month)
	if err != nil {
		return core.Summary{}, err
	}
	var entries []core.LedgerEntry
	for i := 0; i <= m; i++ {
		entries = append(entries, monthEntries(data, accountID, year, i)...)
	}
	s := CalculateSummary(entries)

	cumulative := monthly.GetCumulativeNetTotal(data, year, m, accountID)
	s.NetProfitLoss = cumulative
	s.NetType = core.NetType(cumulative)
	s.PreviousTotal = monthly.GetCumulativeNetTotal(data, year, m-1, accountID)
	s.CurrentMonthTotal = monthly.GetMonthlyNetTotal(data, year, m, accountID)
	s.CumulativeTotal = cumulative
	s.IsMonthlyView = true
	return s, nil
}

// Summarize picks the summary that matches a filter: the monthly view for
// month filters, a plain summary of the filtered entries otherwise.
func Summarize(data core.AppData, accountID string, f Filter) (core.Summary, []core.LedgerEntry, error) {
	entries := FilteredEntries(data.EntriesForAccount(accountID), f)
	if f.Type == FilterMonth {
		s, err := CalculateMonthlySummary(f.Month, accountID, data)
		return s, entries, err
	}
	return CalculateSummary(entries), entries, nil
}

func monthEntries(data core.AppData, accountID string, year, month int) []core.LedgerEntry {
	var out []core.LedgerEntry
	for _, e := range data.LedgerEntries {
		if e.AccountID == accountID && e.Date.Year == year && e.Date.MonthIndex() == month {
			out = append(out, e)
		}
	}
	return out
}
