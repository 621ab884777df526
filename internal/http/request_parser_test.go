package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"khata/internal/core"
	"khata/internal/report"
)

func TestAmountField(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{`5000`, "5000"},
		{`12.5`, "12.5"},
		{`"5,000"`, "5,000"},
		{`null`, ""},
	}
	for _, tt := range tests {
		var a amountField
		if err := json.Unmarshal([]byte(tt.in), &a); err != nil {
			t.Fatalf("Unmarshal(%s) error = %v", tt.in, err)
		}
		if string(a) != tt.want {
			t.Errorf("Unmarshal(%s) = %q, want %q", tt.in, a, tt.want)
		}
	}
	var a amountField
	if err := json.Unmarshal([]byte(`true`), &a); err == nil {
		t.Error("booleans should be rejected")
	}
}

func TestEntryRequest(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr error
		total   int64
	}{
		{"numbers", `{"date":"2024-01-15","bill":5000,"cash":3000}`, nil, 2000},
		{"strings with commas", `{"date":"15/01/2024","bill":"1,000","cash":"2,500"}`, nil, -1500},
		{"missing cash", `{"date":"2024-01-15","bill":10}`, nil, 10},
		{"bad date", `{"date":"2024-02-30","bill":1}`, core.ErrInvalidDate, 0},
		{"negative", `{"date":"2024-01-15","bill":-1}`, core.ErrInvalidAmount, 0},
		{"garbage amount", `{"date":"2024-01-15","cash":"abc"}`, core.ErrInvalidAmount, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var req entryRequest
			if err := json.Unmarshal([]byte(tt.body), &req); err != nil {
				t.Fatal(err)
			}
			e, err := req.entry("id-1")
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("entry() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("entry() error = %v", err)
			}
			if e.ID != "id-1" || !e.Total.Equal(decimal.NewFromInt(tt.total)) {
				t.Errorf("entry = %+v, want total %d", e, tt.total)
			}
		})
	}
}

func TestGoodInCartRequest(t *testing.T) {
	var req goodInCartRequest
	_ = json.Unmarshal([]byte(`{"date":"2024-01-31","value":"1500","notes":" stock\u0007 "}`), &req)
	g, err := req.entry("")
	if err != nil {
		t.Fatal(err)
	}
	if g.Date != core.NewDate(2024, time.January, 31) || !g.Value.Equal(decimal.NewFromInt(1500)) || g.Notes != "stock" {
		t.Errorf("entry = %+v", g)
	}
}

func TestDecodeJSON(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		allowEmpty bool
		status     int
	}{
		{"valid", `{"name":"Shop"}`, false, 0},
		{"empty allowed", ``, true, 0},
		{"empty rejected", ``, false, http.StatusBadRequest},
		{"malformed", `{"name":`, false, http.StatusBadRequest},
		{"too large", `{"name":"` + strings.Repeat("a", maxJSONBody) + `"}`, false, http.StatusRequestEntityTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPost, "/api/accounts", strings.NewReader(tt.body))
			var req nameRequest
			err := decodeJSON(httptest.NewRecorder(), r, &req, tt.allowEmpty)
			if tt.status == 0 {
				if err != nil {
					t.Errorf("decodeJSON() error = %v", err)
				}
				return
			}
			if err == nil || statusFor(err) != tt.status {
				t.Errorf("decodeJSON() error = %v, want status %d", err, tt.status)
			}
		})
	}
}

func TestParseFilter(t *testing.T) {
	tests := []struct {
		name    string
		query   url.Values
		want    report.Filter
		wantErr bool
	}{
		{"none", url.Values{}, report.Filter{Type: report.FilterNone}, false},
		{"month", url.Values{"month": {"2024-03"}}, report.Filter{Type: report.FilterMonth, Month: "2024-03"}, false},
		{"range", url.Values{"from": {"2024-01-01"}, "to": {"31/01/2024"}}, report.Filter{
			Type:  report.FilterDateRange,
			Start: core.NewDate(2024, time.January, 1),
			End:   core.NewDate(2024, time.January, 31),
		}, false},
		{"bad month", url.Values{"month": {"2024-13"}}, report.Filter{}, true},
		{"half range", url.Values{"from": {"2024-01-01"}}, report.Filter{}, true},
		{"inverted range", url.Values{"from": {"2024-02-01"}, "to": {"2024-01-01"}}, report.Filter{}, true},
		{"month and range", url.Values{"month": {"2024-01"}, "from": {"2024-01-01"}}, report.Filter{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseFilter(tt.query)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseFilter() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				if statusFor(err) != http.StatusUnprocessableEntity {
					t.Errorf("status = %d, want 422", statusFor(err))
				}
				return
			}
			if got != tt.want {
				t.Errorf("ParseFilter() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestParseYear(t *testing.T) {
	now := time.Date(2024, 2, 3, 0, 0, 0, 0, time.UTC)
	if y, err := ParseYear(url.Values{}, now); err != nil || y != 2024 {
		t.Errorf("default year = %d, %v", y, err)
	}
	if y, err := ParseYear(url.Values{"year": {"2023"}}, now); err != nil || y != 2023 {
		t.Errorf("year = %d, %v", y, err)
	}
	if _, err := ParseYear(url.Values{"year": {"abc"}}, now); err == nil {
		t.Error("non-numeric year should fail")
	}
}

func TestSanitizeInput(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"  hello  ", "hello"},
		{"line1\nline2", "line1\nline2"},
		{"bell\x07char", "bellchar"},
		{"null\x00byte", "nullbyte"},
	}
	for _, tt := range tests {
		if got := sanitizeInput(tt.in); got != tt.want {
			t.Errorf("sanitizeInput(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
