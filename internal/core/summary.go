package core

import "github.com/shopspring/decimal"

// Summary aggregates a set of entries. The monthly fields are only
// populated when IsMonthlyView is set.
type Summary struct {
	TotalBills    decimal.Decimal `json:"totalBills"`
	TotalCash     decimal.Decimal `json:"totalCash"`
	NetProfitLoss decimal.Decimal `json:"netProfitLoss"`
	NetType       ProfitLoss      `json:"netType"`
	EntriesCount  int             `json:"entriesCount"`

	PreviousTotal     decimal.Decimal `json:"previousTotal"`
	CurrentMonthTotal decimal.Decimal `json:"currentMonthTotal"`
	CumulativeTotal   decimal.Decimal `json:"cumulativeTotal"`
	IsMonthlyView     bool            `json:"isMonthlyView"`
}

// MonthRow is one line of the table-of-months view.
type MonthRow struct {
	Year         int             `json:"year"`
	Month        int             `json:"month"` // 0-11
	NetTotal     decimal.Decimal `json:"netTotal"`
	NetType      ProfitLoss      `json:"netType"`
	Cumulative   decimal.Decimal `json:"cumulative"`
	EntriesCount int             `json:"entriesCount"`
}
