package store

import (
	"khata/internal/core"
)

// Action is a mutation request handled by Reduce.
type Action interface {
	// Kind names the action in logs and change messages.
	Kind() string
}

type (
	// CreateAccount adds an account and makes it current. ID is generated
	// when empty.
	CreateAccount struct {
		ID   string
		Name string
	}

	RenameAccount struct {
		ID   string
		Name string
	}

	// SwitchAccount makes an account current and stamps its last use.
	SwitchAccount struct {
		ID string
	}

	// DeleteAccount removes an account together with its ledger and
	// Good in Cart entries.
	DeleteAccount struct {
		ID string
	}

	// SaveEntry creates an entry when Entry.ID is empty and replaces the
	// entry with that id otherwise. An empty AccountID means the current
	// account.
	SaveEntry struct {
		Entry core.LedgerEntry
	}

	DeleteEntry struct {
		ID string
	}

	SaveGoodInCart struct {
		Entry core.GoodInCartEntry
	}

	DeleteGoodInCart struct {
		ID string
	}

	// ImportEntries appends already validated entries to an account.
	ImportEntries struct {
		AccountID string
		Entries   []core.LedgerEntry
	}

	// ReplaceState swaps the whole document, as done by restore and import.
	ReplaceState struct {
		Data   core.AppData
		Reason string
	}

	// PruneMonthlyTotals drops expired monthly total records.
	PruneMonthlyTotals struct{}
)

func (CreateAccount) Kind() string      { return "create_account" }
func (RenameAccount) Kind() string      { return "rename_account" }
func (SwitchAccount) Kind() string      { return "switch_account" }
func (DeleteAccount) Kind() string      { return "delete_account" }
func (SaveEntry) Kind() string          { return "save_entry" }
func (DeleteEntry) Kind() string        { return "delete_entry" }
func (SaveGoodInCart) Kind() string     { return "save_good_in_cart" }
func (DeleteGoodInCart) Kind() string   { return "delete_good_in_cart" }
func (ImportEntries) Kind() string      { return "import_entries" }
func (ReplaceState) Kind() string       { return "replace_state" }
func (PruneMonthlyTotals) Kind() string { return "prune_monthly_totals" }
