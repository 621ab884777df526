package report

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"khata/internal/core"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func entry(id string, y int, m time.Month, d int, bill, cash string) core.LedgerEntry {
	return core.NewLedgerEntry(id, "Main", core.NewDate(y, m, d), dec(bill), dec(cash), "")
}

func sample() core.AppData {
	d := core.DefaultAppData(time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC))
	d.LedgerEntries = []core.LedgerEntry{
		entry("3", 2024, time.February, 10, "8000", "4000"),
		entry("1", 2024, time.January, 5, "5000", "3000"),
		entry("2", 2024, time.January, 20, "2000", "2000"),
		entry("1b", 2024, time.January, 5, "1", "0"),
		entry("0", 2023, time.December, 31, "0", "500"),
	}
	return d
}

func ids(entries []core.LedgerEntry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.ID
	}
	return out
}

func TestFilteredEntries(t *testing.T) {
	all := sample().LedgerEntries
	cases := []struct {
		name   string
		filter Filter
		want   []string
	}{
		{"no filter", Filter{}, []string{"0", "1", "1b", "2", "3"}},
		{"month", Filter{Type: FilterMonth, Month: "2024-01"}, []string{"1", "2"}},
		{"range inclusive", Filter{Type: FilterDateRange, Start: core.NewDate(2024, 1, 5), End: core.NewDate(2024, 2, 10)}, []string{"1", "2", "3"}},
		{"range crossing year", Filter{Type: FilterDateRange, Start: core.NewDate(2023, 12, 1), End: core.NewDate(2024, 1, 10)}, []string{"0", "1"}},
		{"bad month falls back", Filter{Type: FilterMonth, Month: "2024-13"}, []string{"0", "1", "1b", "2", "3"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ids(FilteredEntries(all, tc.filter))
			if len(got) != len(tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, got)
			}
			for i := range got {
				if got[i] != tc.want[i] {
					t.Fatalf("expected %v, got %v", tc.want, got)
				}
			}
		})
	}
}

func TestFilteredEntriesDedupKeepsFirst(t *testing.T) {
	entries := []core.LedgerEntry{
		entry("first", 2024, time.March, 3, "1", "0"),
		entry("second", 2024, time.March, 3, "2", "0"),
	}
	got := FilteredEntries(entries, Filter{Type: FilterMonth, Month: "2024-03"})
	if len(got) != 1 || got[0].ID != "first" {
		t.Fatalf("expected only first, got %v", ids(got))
	}
}

func TestCalculateSummary(t *testing.T) {
	s := CalculateSummary([]core.LedgerEntry{
		entry("a", 2024, 1, 1, "100", "300"),
		entry("b", 2024, 1, 2, "50", "0"),
	})
	if !s.TotalBills.Equal(dec("150")) || !s.TotalCash.Equal(dec("300")) {
		t.Fatalf("unexpected totals %s %s", s.TotalBills, s.TotalCash)
	}
	if !s.NetProfitLoss.Equal(dec("-150")) || s.NetType != core.Profit || s.EntriesCount != 2 {
		t.Fatalf("unexpected summary %+v", s)
	}
	if empty := CalculateSummary(nil); empty.NetType != core.BreakEven {
		t.Fatalf("expected Break-even, got %q", empty.NetType)
	}
}

func TestCalculateMonthlySummary(t *testing.T) {
	s, err := CalculateMonthlySummary("2024-02", "Main", sample())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// January nets 2001 including the second entry on 5 Jan, December 2023 nets -500.
	if !s.PreviousTotal.Equal(dec("1501")) {
		t.Fatalf("expected previous 1501, got %s", s.PreviousTotal)
	}
	if !s.CurrentMonthTotal.Equal(dec("4000")) || !s.CumulativeTotal.Equal(dec("5501")) {
		t.Fatalf("unexpected current/cumulative %s %s", s.CurrentMonthTotal, s.CumulativeTotal)
	}
	if !s.IsMonthlyView || s.EntriesCount != 1 {
		t.Fatalf("unexpected summary %+v", s)
	}
}

func TestCalculateCumulativeSummary(t *testing.T) {
	s, err := CalculateCumulativeSummary("2024-02", "Main", sample())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Single year: December 2023 is not part of the sum.
	if !s.NetProfitLoss.Equal(dec("6001")) || !s.CumulativeTotal.Equal(dec("6001")) {
		t.Fatalf("expected 6001, got %s", s.NetProfitLoss)
	}
	if !s.PreviousTotal.Equal(dec("2001")) || !s.CurrentMonthTotal.Equal(dec("4000")) {
		t.Fatalf("unexpected previous/current %s %s", s.PreviousTotal, s.CurrentMonthTotal)
	}
	if !s.TotalBills.Equal(dec("15001")) || s.EntriesCount != 4 {
		t.Fatalf("unexpected bills/count %s %d", s.TotalBills, s.EntriesCount)
	}

	jan, _ := CalculateCumulativeSummary("2024-01", "Main", sample())
	if !jan.PreviousTotal.IsZero() {
		t.Fatalf("january previous total must be 0, got %s", jan.PreviousTotal)
	}
}

func TestParseMonth(t *testing.T) {
	y, m, err := ParseMonth("2024-12")
	if err != nil || y != 2024 || m != 11 {
		t.Fatalf("expected 2024/11, got %d/%d (err=%v)", y, m, err)
	}
	for _, bad := range []string{"", "2024", "2024-00", "2024-13", "abcd-01"} {
		if _, _, err := ParseMonth(bad); err == nil {
			t.Fatalf("%q expected error", bad)
		}
	}
	if FormatMonth(2024, 0) != "2024-01" {
		t.Fatalf("unexpected format %s", FormatMonth(2024, 0))
	}
}

func TestSummarize(t *testing.T) {
	s, entries, err := Summarize(sample(), "Main", Filter{Type: FilterMonth, Month: "2024-01"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !s.IsMonthlyView || len(entries) != 2 {
		t.Fatalf("expected monthly view with 2 entries, got %+v %d", s, len(entries))
	}
	// The summary counts every January entry, the list shows one per day.
	if s.EntriesCount != 3 {
		t.Fatalf("expected 3 entries counted, got %d", s.EntriesCount)
	}
}
