// Package reconcile builds the Good in Cart report: the ledger activity between
// two inventory checkpoints framed by an opening and a closing inventory row.
package reconcile

import (
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/shopspring/decimal"

	"khata/internal/core"
)

const (
	OpeningNote = "गाड़ी में सामान"
	ClosingNote = "Process Complete - गाड़ी में सामान"
)

var importNotePattern = regexp.MustCompile(`Imported from Excel on \d{2}/\d{2}/\d{4}`)

type Row struct {
	ID            string          `json:"id"`
	Date          core.Date       `json:"date"`
	Bill          decimal.Decimal `json:"bill"`
	Cash          decimal.Decimal `json:"cash"`
	Total         decimal.Decimal `json:"total"`
	ProfitLoss    core.ProfitLoss `json:"profitLoss"`
	Notes         string          `json:"notes,omitempty"`
	IsGoodInCart  bool            `json:"isGoodInCart,omitempty"`
	IsLedgerEntry bool            `json:"isLedgerEntry,omitempty"`
}

// Report covers the half-open window [StartDate, EndDate). EndDate is the day
// after the selected checkpoint.
type Report struct {
	Rows           []Row           `json:"reportRows"`
	OverallTotal   decimal.Decimal `json:"overallTotal"`
	OverallPL      core.ProfitLoss `json:"overallPL"`
	StartDate      core.Date       `json:"startDate"`
	EndDate        core.Date       `json:"endDate"`
	CheckpointDate core.Date       `json:"checkpointDate"`
	StartX         decimal.Decimal `json:"startX"`
	EndX           decimal.Decimal `json:"endX"`
}

// LedgerRows returns only the rows that came from ledger entries.
func (r *Report) LedgerRows() []Row {
	var out []Row
	for _, row := range r.Rows {
		if row.IsLedgerEntry {
			out = append(out, row)
		}
	}
	return out
}

// CleanNotes strips the spreadsheet import provenance note.
func CleanNotes(notes string) string {
	return strings.TrimSpace(importNotePattern.ReplaceAllString(notes, ""))
}

// PreviousCheckpoint returns the latest checkpoint date strictly before date.
// When none is earlier it falls back to the earliest checkpoint; ok is false
// only when there are no checkpoints at all.
func PreviousCheckpoint(entries []core.GoodInCartEntry, date core.Date) (core.Date, bool) {
	if len(entries) == 0 {
		return core.Date{}, false
	}
	dates := make([]core.Date, 0, len(entries))
	for _, e := range entries {
		dates = append(dates, e.Date)
	}
	slices.SortFunc(dates, core.Date.Compare)
	for i := len(dates) - 1; i >= 0; i-- {
		if dates[i].Before(date) {
			return dates[i], true
		}
	}
	return dates[0], true
}

// GenerateGoodInCartReport builds the report ending at the checkpoint dated
// endCheckpoint for accountID. It returns nil when the account has no
// checkpoints. Entries for other accounts are ignored.
func GenerateGoodInCartReport(endCheckpoint, accountID string, gicEntries []core.GoodInCartEntry, ledgerEntries []core.LedgerEntry) (*Report, error) {
	if strings.TrimSpace(endCheckpoint) == "" || accountID == "" {
		return nil, nil
	}
	checkpoint, err := core.ParseDate(endCheckpoint)
	if err != nil {
		return nil, fmt.Errorf("checkpoint date: %w", err)
	}

	checkpoints := forAccount(gicEntries, accountID)
	start, ok := PreviousCheckpoint(checkpoints, checkpoint)
	if !ok {
		return nil, nil
	}
	processEnd := checkpoint.AddDays(1)

	startX := valueAt(checkpoints, start)
	endX := valueAt(checkpoints, checkpoint)

	rows := make([]Row, 0, 2)
	rows = append(rows, Row{
		ID:           "gic-start-" + start.String(),
		Date:         start,
		Bill:         startX,
		Cash:         decimal.Zero,
		Total:        startX,
		ProfitLoss:   core.GoodInCartLabel,
		Notes:        OpeningNote,
		IsGoodInCart: true,
	})

	for _, e := range window(ledgerEntries, accountID, start, processEnd) {
		e = e.Recompute()
		rows = append(rows, Row{
			ID:            e.ID,
			Date:          e.Date,
			Bill:          e.Bill,
			Cash:          e.Cash,
			Total:         e.Total,
			ProfitLoss:    e.ProfitLoss,
			Notes:         CleanNotes(e.Notes),
			IsLedgerEntry: true,
		})
	}

	rows = append(rows, Row{
		ID:           "gic-end-" + processEnd.String(),
		Date:         processEnd,
		Bill:         decimal.Zero,
		Cash:         endX,
		Total:        endX.Neg(),
		ProfitLoss:   core.ProcessCompleteLabel,
		Notes:        ClosingNote,
		IsGoodInCart: true,
	})

	overall := decimal.Zero
	for _, r := range rows {
		overall = overall.Add(r.Total)
	}

	return &Report{
		Rows:           rows,
		OverallTotal:   overall,
		OverallPL:      core.NetType(overall),
		StartDate:      start,
		EndDate:        processEnd,
		CheckpointDate: checkpoint,
		StartX:         startX,
		EndX:           endX,
	}, nil
}

func forAccount(entries []core.GoodInCartEntry, accountID string) []core.GoodInCartEntry {
	out := make([]core.GoodInCartEntry, 0, len(entries))
	for _, e := range entries {
		if e.AccountID == accountID {
			out = append(out, e)
		}
	}
	return out
}

// valueAt returns the value of the first checkpoint on date, or zero.
func valueAt(entries []core.GoodInCartEntry, date core.Date) decimal.Decimal {
	for _, e := range entries {
		if e.Date == date {
			return e.Value
		}
	}
	return decimal.Zero
}

// window selects the account's entries with start <= date < end and sorts
// them by date. An entry is dropped when any earlier entry in the window is
// its duplicate.
func window(entries []core.LedgerEntry, accountID string, start, end core.Date) []core.LedgerEntry {
	var inWindow []core.LedgerEntry
	for _, e := range entries {
		if e.AccountID == accountID && !e.Date.Before(start) && e.Date.Before(end) {
			inWindow = append(inWindow, e)
		}
	}
	selected := make([]core.LedgerEntry, 0, len(inWindow))
	for i, e := range inWindow {
		if slices.ContainsFunc(inWindow[:i], func(prev core.LedgerEntry) bool { return duplicate(prev, e) }) {
			continue
		}
		selected = append(selected, e)
	}
	core.SortEntries(selected)
	return selected
}

// duplicate matches on id, or on the (date, bill, cash) triple.
func duplicate(a, b core.LedgerEntry) bool {
	return a.ID == b.ID || (a.Date == b.Date && a.Bill.Equal(b.Bill) && a.Cash.Equal(b.Cash))
}
