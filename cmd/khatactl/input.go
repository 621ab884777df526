package main

import (
	"fmt"
	"math"
	"regexp"
	"strings"
	"time"

	"github.com/alfredxing/calc/compute"
	date "github.com/joyt/godate"
	"github.com/shopspring/decimal"

	"khata/internal/core"
)

// coreDateShape matches the layouts core.ParseDate owns; a bad day in one of
// them is reported as is rather than guessed at.
var coreDateShape = regexp.MustCompile(`^(\d{2}/\d{2}/\d{4}|\d{4}-\d{2}-\d{2})$`)

// parseAmountArg reads an amount typed on the command line. Plain numbers
// go through core.ParseAmount; anything else is evaluated as arithmetic,
// so "1200+350" records 1550.
func parseAmountArg(s string) (decimal.Decimal, error) {
	if d, err := core.ParseAmount(s); err == nil {
		return d, nil
	}
	expr := strings.NewReplacer(",", "", " ", "").Replace(s)
	v, err := compute.Evaluate(expr)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", core.ErrInvalidAmount, s)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return decimal.Zero, fmt.Errorf("%w: %q is not finite", core.ErrInvalidAmount, s)
	}
	d := decimal.NewFromFloat(v).Round(2)
	if d.IsNegative() {
		return decimal.Zero, fmt.Errorf("%w: %q is negative", core.ErrInvalidAmount, s)
	}
	return d, nil
}

// parseDateArg reads a date typed on the command line. Besides the layouts
// core.ParseDate accepts it understands "today", "yesterday" and the
// common layouts godate detects, such as "2006/01/02".
func parseDateArg(s string, now time.Time) (core.Date, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "today":
		return core.DateOf(now.In(core.Location())), nil
	case "yesterday":
		return core.DateOf(now.In(core.Location())).AddDays(-1), nil
	}
	d, err := core.ParseDate(s)
	if err == nil || coreDateShape.MatchString(strings.TrimSpace(s)) {
		return d, err
	}
	t, _, err := date.ParseAndGetLayout(strings.TrimSpace(s))
	if err != nil {
		return core.Date{}, fmt.Errorf("%w: %q", core.ErrInvalidDate, s)
	}
	return core.DateOf(t), nil
}
