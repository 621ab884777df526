// Package http provides HTTP server and handler implementations.
//
// This file implements utilities for parsing and validating HTTP request data.

package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"khata/internal/core"
	"khata/internal/report"
)

const (
	maxJSONBody   = 1 << 20
	maxUploadBody = 32 << 20
)

// amountField accepts an amount written as a JSON number or string.
type amountField string

func (a *amountField) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*a = ""
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*a = amountField(s)
	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return err
		}
		*a = amountField(n.String())
	}
	return nil
}

// entryRequest is the body of entry create and update calls.
type entryRequest struct {
	Date      string      `json:"date"`
	Bill      amountField `json:"bill"`
	Cash      amountField `json:"cash"`
	Notes     string      `json:"notes"`
	AccountID string      `json:"accountId"`
}

func (req entryRequest) entry(id string) (core.LedgerEntry, error) {
	date, err := core.ParseDate(req.Date)
	if err != nil {
		return core.LedgerEntry{}, err
	}
	bill, err := core.ParseAmount(string(req.Bill))
	if err != nil {
		return core.LedgerEntry{}, err
	}
	cash, err := core.ParseAmount(string(req.Cash))
	if err != nil {
		return core.LedgerEntry{}, err
	}
	return core.NewLedgerEntry(id, sanitizeInput(req.AccountID), date, bill, cash, sanitizeInput(req.Notes)), nil
}

// goodInCartRequest is the body of Good in Cart create and update calls.
type goodInCartRequest struct {
	Date      string      `json:"date"`
	Value     amountField `json:"value"`
	Notes     string      `json:"notes"`
	AccountID string      `json:"accountId"`
}

func (req goodInCartRequest) entry(id string) (core.GoodInCartEntry, error) {
	date, err := core.ParseDate(req.Date)
	if err != nil {
		return core.GoodInCartEntry{}, err
	}
	value, err := core.ParseAmount(string(req.Value))
	if err != nil {
		return core.GoodInCartEntry{}, err
	}
	return core.GoodInCartEntry{
		ID:        id,
		Date:      date,
		Value:     value,
		Notes:     sanitizeInput(req.Notes),
		AccountID: sanitizeInput(req.AccountID),
	}, nil
}

type nameRequest struct {
	Name string `json:"name"`
}

type descriptionRequest struct {
	Description string `json:"description"`
}

// decodeJSON reads a size limited JSON body into v. An empty body leaves v
// untouched when allowEmpty is set.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any, allowEmpty bool) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) && allowEmpty {
			return nil
		}
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return &requestError{status: http.StatusRequestEntityTooLarge, msg: "request body too large"}
		}
		return badRequest("invalid JSON body: %v", err)
	}
	return nil
}

// ParseFilter reads the entry filter from a query string. month=YYYY-MM
// selects a calendar month, from and to an inclusive date range, and no
// parameters mean every entry.
func ParseFilter(query url.Values) (report.Filter, error) {
	month := strings.TrimSpace(query.Get("month"))
	from := strings.TrimSpace(query.Get("from"))
	to := strings.TrimSpace(query.Get("to"))

	switch {
	case month != "":
		if from != "" || to != "" {
			return report.Filter{}, invalidInput("month cannot be combined with from/to")
		}
		if _, _, err := report.ParseMonth(month); err != nil {
			return report.Filter{}, invalidInput("%v", err)
		}
		return report.Filter{Type: report.FilterMonth, Month: month}, nil
	case from != "" || to != "":
		if from == "" || to == "" {
			return report.Filter{}, invalidInput("both from and to are required for a date range")
		}
		start, err := core.ParseDate(from)
		if err != nil {
			return report.Filter{}, err
		}
		end, err := core.ParseDate(to)
		if err != nil {
			return report.Filter{}, err
		}
		if end.Before(start) {
			return report.Filter{}, invalidInput("from must not be after to")
		}
		return report.Filter{Type: report.FilterDateRange, Start: start, End: end}, nil
	default:
		return report.Filter{Type: report.FilterNone}, nil
	}
}

// ParseYear reads year from a query string, defaulting to the year of now.
func ParseYear(query url.Values, now time.Time) (int, error) {
	v := strings.TrimSpace(query.Get("year"))
	if v == "" {
		return now.Year(), nil
	}
	y, err := strconv.Atoi(v)
	if err != nil || y < 1900 || y > 9999 {
		return 0, invalidInput("invalid year %q", v)
	}
	return y, nil
}

// accountParam is the optional account query parameter; empty means the
// current account.
func accountParam(query url.Values) string {
	return sanitizeInput(query.Get("account"))
}

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}
