// Package core provides amount parsing and the profit/loss sign convention.
//
// Amounts are decimal.Decimal values. A positive total (bill above cash) is a
// Loss and a negative total (cash above bill) is a Profit; reports and exports
// depend on this polarity.
package core

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

type ProfitLoss string

const (
	Profit    ProfitLoss = "Profit"
	Loss      ProfitLoss = "Loss"
	BreakEven ProfitLoss = "Break-even"
	NoResult  ProfitLoss = ""

	GoodInCartLabel      ProfitLoss = "Good in Cart"
	ProcessCompleteLabel ProfitLoss = "Process Complete"
)

func init() {
	// Stored documents carry amounts as plain JSON numbers.
	decimal.MarshalJSONWithoutQuotes = true
}

// EntryLabel classifies a single entry total. Zero has no label.
func EntryLabel(total decimal.Decimal) ProfitLoss {
	switch total.Sign() {
	case -1:
		return Profit
	case 1:
		return Loss
	default:
		return NoResult
	}
}

// NetType classifies an aggregate total. Zero is Break-even.
func NetType(total decimal.Decimal) ProfitLoss {
	if total.IsZero() {
		return BreakEven
	}
	return EntryLabel(total)
}

// ParseAmount parses a non-negative amount. Thousands separators are
// ignored and an empty string is zero.
//
// Examples:
//
//	ParseAmount("5,000")   -> 5000
//	ParseAmount(" 12.5 ")  -> 12.5
//	ParseAmount("")        -> 0
//	ParseAmount("-1")      -> error
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", ""))
	if s == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	if d.IsNegative() {
		return decimal.Zero, fmt.Errorf("%w: %q is negative", ErrInvalidAmount, s)
	}
	return d, nil
}

// Sum adds up the totals of the given entries.
func Sum(entries []LedgerEntry) decimal.Decimal {
	total := decimal.Zero
	for _, e := range entries {
		total = total.Add(e.Total)
	}
	return total
}
