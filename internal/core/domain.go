package core

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	// DefaultAccountID identifies the account seeded into an empty document.
	DefaultAccountID   = "default"
	DefaultAccountName = "Main Account"
)

type (
	Account struct {
		ID        string    `json:"id"`
		Name      string    `json:"name"`
		CreatedAt time.Time `json:"createdAt"`
		LastUsed  time.Time `json:"lastUsed"`
	}

	// LedgerEntry is one dated bill/cash line. Total and ProfitLoss are derived.
	LedgerEntry struct {
		ID         string          `json:"id"`
		Date       Date            `json:"date"`
		Bill       decimal.Decimal `json:"bill"`
		Cash       decimal.Decimal `json:"cash"`
		Total      decimal.Decimal `json:"total"`
		ProfitLoss ProfitLoss      `json:"profitLoss"`
		Notes      string          `json:"notes,omitempty"`
		AccountID  string          `json:"accountId"`
	}

	// GoodInCartEntry is an inventory checkpoint value recorded on a date.
	GoodInCartEntry struct {
		ID        string          `json:"id"`
		Date      Date            `json:"date"`
		Value     decimal.Decimal `json:"value"`
		Notes     string          `json:"notes,omitempty"`
		AccountID string          `json:"accountId"`
	}

	// MonthlyNetTotal caches the summed totals of one account's month.
	// Month is zero based (January = 0).
	MonthlyNetTotal struct {
		Year         int             `json:"year"`
		Month        int             `json:"month"`
		AccountID    string          `json:"accountId"`
		NetTotal     decimal.Decimal `json:"netTotal"`
		EntriesCount int             `json:"entriesCount"`
		LastUpdated  time.Time       `json:"lastUpdated"`
	}

	// AppData is the whole persisted document.
	AppData struct {
		Accounts          []Account         `json:"accounts"`
		LedgerEntries     []LedgerEntry     `json:"ledgerEntries"`
		GoodInCartEntries []GoodInCartEntry `json:"goodInCartEntries"`
		CurrentAccountID  string            `json:"currentAccountId"`
		LastUsedDates     map[string]string `json:"lastUsedDates"`
		MonthlyNetTotals  []MonthlyNetTotal `json:"monthlyNetTotals"`
	}
)

var (
	ErrInvalidDate     = errors.New("invalid date")
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrEmptyAmounts    = errors.New("bill or cash must be non-zero")
	ErrInvalidValue    = errors.New("value must be greater than zero")
	ErrEmptyName       = errors.New("empty account name")
	ErrAccountNotFound = errors.New("account not found")
	ErrEntryNotFound   = errors.New("entry not found")
	ErrLastAccount     = errors.New("cannot delete the last account")
	ErrInvalidDocument = errors.New("invalid data format")
)

// NewID returns a fresh random identifier.
func NewID() string {
	return uuid.NewString()
}

// NewLedgerEntry builds an entry with Total and ProfitLoss computed from bill and cash.
func NewLedgerEntry(id, accountID string, date Date, bill, cash decimal.Decimal, notes string) LedgerEntry {
	return LedgerEntry{
		ID:        id,
		Date:      date,
		Bill:      bill,
		Cash:      cash,
		Notes:     notes,
		AccountID: accountID,
	}.Recompute()
}

// Recompute refreshes the derived fields.
func (e LedgerEntry) Recompute() LedgerEntry {
	e.Total = e.Bill.Sub(e.Cash)
	e.ProfitLoss = EntryLabel(e.Total)
	return e
}

func (e LedgerEntry) Validate() error {
	if err := e.Date.Validate(); err != nil {
		return err
	}
	if e.Bill.IsNegative() || e.Cash.IsNegative() {
		return fmt.Errorf("%w: amounts must not be negative", ErrInvalidAmount)
	}
	if e.Bill.IsZero() && e.Cash.IsZero() {
		return ErrEmptyAmounts
	}
	if strings.TrimSpace(e.AccountID) == "" {
		return ErrAccountNotFound
	}
	return nil
}

func (g GoodInCartEntry) Validate() error {
	if err := g.Date.Validate(); err != nil {
		return err
	}
	if !g.Value.IsPositive() {
		return ErrInvalidValue
	}
	if strings.TrimSpace(g.AccountID) == "" {
		return ErrAccountNotFound
	}
	return nil
}

// DefaultAppData returns the document used when nothing valid is stored.
func DefaultAppData(now time.Time) AppData {
	return AppData{
		Accounts: []Account{{
			ID:        DefaultAccountID,
			Name:      DefaultAccountName,
			CreatedAt: now,
			LastUsed:  now,
		}},
		LedgerEntries:     []LedgerEntry{},
		GoodInCartEntries: []GoodInCartEntry{},
		CurrentAccountID:  DefaultAccountID,
		LastUsedDates:     map[string]string{},
		MonthlyNetTotals:  []MonthlyNetTotal{},
	}
}

// Clone returns a copy that shares no slices or maps with d.
func (d AppData) Clone() AppData {
	out := d
	out.Accounts = slices.Clone(d.Accounts)
	out.LedgerEntries = slices.Clone(d.LedgerEntries)
	out.GoodInCartEntries = slices.Clone(d.GoodInCartEntries)
	out.MonthlyNetTotals = slices.Clone(d.MonthlyNetTotals)
	out.LastUsedDates = maps.Clone(d.LastUsedDates)
	if out.LastUsedDates == nil {
		out.LastUsedDates = map[string]string{}
	}
	return out
}

// Normalize repairs a loaded document: nil collections become empty, an
// empty account list gets the default account, and a dangling current
// account points at the first account.
func (d AppData) Normalize(now time.Time) AppData {
	if len(d.Accounts) == 0 {
		d.Accounts = DefaultAppData(now).Accounts
	}
	if d.LedgerEntries == nil {
		d.LedgerEntries = []LedgerEntry{}
	}
	if d.GoodInCartEntries == nil {
		d.GoodInCartEntries = []GoodInCartEntry{}
	}
	if d.MonthlyNetTotals == nil {
		d.MonthlyNetTotals = []MonthlyNetTotal{}
	}
	if d.LastUsedDates == nil {
		d.LastUsedDates = map[string]string{}
	}
	if _, ok := d.Account(d.CurrentAccountID); !ok {
		d.CurrentAccountID = d.Accounts[0].ID
	}
	d.LedgerEntries = slices.Clone(d.LedgerEntries)
	for i := range d.LedgerEntries {
		d.LedgerEntries[i] = d.LedgerEntries[i].Recompute()
	}
	return d
}

// Account looks an account up by id.
func (d AppData) Account(id string) (Account, bool) {
	for _, a := range d.Accounts {
		if a.ID == id {
			return a, true
		}
	}
	return Account{}, false
}

// EntriesForAccount returns the account's ledger entries in stored order.
func (d AppData) EntriesForAccount(accountID string) []LedgerEntry {
	out := make([]LedgerEntry, 0)
	for _, e := range d.LedgerEntries {
		if e.AccountID == accountID {
			out = append(out, e)
		}
	}
	return out
}

// GoodInCartForAccount returns the account's checkpoints in stored order.
func (d AppData) GoodInCartForAccount(accountID string) []GoodInCartEntry {
	out := make([]GoodInCartEntry, 0)
	for _, g := range d.GoodInCartEntries {
		if g.AccountID == accountID {
			out = append(out, g)
		}
	}
	return out
}

// SortEntries orders entries by date, keeping the original order within a day.
func SortEntries(entries []LedgerEntry) {
	slices.SortStableFunc(entries, func(a, b LedgerEntry) int {
		return a.Date.Compare(b.Date)
	})
}
