package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"khata/internal/core"
)

func TestTotalColor(t *testing.T) {
	scale := decimal.NewFromInt(1000)
	if got := totalColor(decimal.Zero, scale); got != neutralColor {
		t.Errorf("zero total = %v, want neutral", got)
	}
	if got := totalColor(decimal.NewFromInt(-1000), scale); got.DistanceLab(profitColor) > 1e-6 {
		t.Errorf("full profit = %v, want %v", got, profitColor)
	}
	if got := totalColor(decimal.NewFromInt(5000), scale); got.DistanceLab(lossColor) > 1e-6 {
		t.Errorf("loss beyond scale = %v, want %v", got, lossColor)
	}
	half := totalColor(decimal.NewFromInt(500), scale)
	if half.DistanceLab(lossColor) < 1e-3 || half.DistanceLab(neutralColor) < 1e-3 {
		t.Errorf("half loss = %v, want a blend", half)
	}
}

func TestPaint(t *testing.T) {
	got := paint("x", lossColor)
	if !strings.HasPrefix(got, "\x1b[38;2;") || !strings.HasSuffix(got, "x\x1b[0m") {
		t.Errorf("paint = %q", got)
	}
}

func TestOutputWidthOfBuffer(t *testing.T) {
	var buf bytes.Buffer
	if got := outputWidth(&buf); got != defaultWidth {
		t.Errorf("outputWidth = %d, want %d", got, defaultWidth)
	}
	if useColor(&buf) {
		t.Error("useColor on a buffer")
	}
	if got := notesWidth(40); got != 12 {
		t.Errorf("notesWidth(40) = %d, want 12", got)
	}
	if got := notesWidth(120); got != 56 {
		t.Errorf("notesWidth(120) = %d, want 56", got)
	}
}

func TestAge(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	if got := age(now.Add(-10*time.Second), now); got != "just now" {
		t.Errorf("age = %q", got)
	}
	got := age(now.Add(-(50*time.Hour + 30*time.Minute)), now)
	if got != "2 days 2 hours ago" {
		t.Errorf("age = %q, want %q", got, "2 days 2 hours ago")
	}
}

func TestWriteMonths(t *testing.T) {
	rows := []core.MonthRow{
		{Year: 2024, Month: 0, NetTotal: decimal.NewFromInt(1000), NetType: core.Loss, Cumulative: decimal.NewFromInt(1000), EntriesCount: 2},
		{Year: 2024, Month: 1, NetTotal: decimal.NewFromInt(-400), NetType: core.Profit, Cumulative: decimal.NewFromInt(600), EntriesCount: 1},
		{Year: 2024, Month: 2, NetTotal: decimal.Zero, Cumulative: decimal.NewFromInt(600)},
	}
	var buf bytes.Buffer
	if err := writeMonths(&buf, rows, false); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{"2024-01", "1,000", "Loss", "2024-02", "Profit", "2024-03"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "\x1b[") {
		t.Error("uncolored output contains escapes")
	}
}
