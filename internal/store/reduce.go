package store

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"khata/internal/core"
	"khata/internal/monthly"
)

// Reduce applies action to state and returns the new document. state is
// never modified.
func Reduce(state core.AppData, action Action, now time.Time) (core.AppData, error) {
	next, _, err := reduce(state, action, now)
	return next, err
}

// reduce also reports which ledger months the action touched.
func reduce(state core.AppData, action Action, now time.Time) (core.AppData, []monthly.Key, error) {
	data := state.Clone()

	switch a := action.(type) {
	case CreateAccount:
		name := strings.TrimSpace(a.Name)
		if name == "" {
			return state, nil, core.ErrEmptyName
		}
		id := a.ID
		if id == "" {
			id = core.NewID()
		}
		if _, exists := data.Account(id); exists {
			return state, nil, fmt.Errorf("account %q already exists", id)
		}
		data.Accounts = append(data.Accounts, core.Account{ID: id, Name: name, CreatedAt: now, LastUsed: now})
		data.CurrentAccountID = id
		return data, nil, nil

	case RenameAccount:
		name := strings.TrimSpace(a.Name)
		if name == "" {
			return state, nil, core.ErrEmptyName
		}
		i := accountIndex(data, a.ID)
		if i < 0 {
			return state, nil, fmt.Errorf("%w: %s", core.ErrAccountNotFound, a.ID)
		}
		data.Accounts[i].Name = name
		return data, nil, nil

	case SwitchAccount:
		i := accountIndex(data, a.ID)
		if i < 0 {
			return state, nil, fmt.Errorf("%w: %s", core.ErrAccountNotFound, a.ID)
		}
		data.Accounts[i].LastUsed = now
		data.CurrentAccountID = a.ID
		return data, nil, nil

	case DeleteAccount:
		if accountIndex(data, a.ID) < 0 {
			return state, nil, fmt.Errorf("%w: %s", core.ErrAccountNotFound, a.ID)
		}
		if len(data.Accounts) <= 1 {
			return state, nil, core.ErrLastAccount
		}
		data.Accounts = slices.DeleteFunc(data.Accounts, func(acc core.Account) bool { return acc.ID == a.ID })
		data.LedgerEntries = slices.DeleteFunc(data.LedgerEntries, func(e core.LedgerEntry) bool { return e.AccountID == a.ID })
		data.GoodInCartEntries = slices.DeleteFunc(data.GoodInCartEntries, func(g core.GoodInCartEntry) bool { return g.AccountID == a.ID })
		data.MonthlyNetTotals = slices.DeleteFunc(data.MonthlyNetTotals, func(t core.MonthlyNetTotal) bool { return t.AccountID == a.ID })
		delete(data.LastUsedDates, a.ID)
		if data.CurrentAccountID == a.ID {
			data.CurrentAccountID = data.Accounts[0].ID
		}
		return data, nil, nil

	case SaveEntry:
		return saveEntry(data, state, a.Entry, now)

	case DeleteEntry:
		i := slices.IndexFunc(data.LedgerEntries, func(e core.LedgerEntry) bool { return e.ID == a.ID })
		if i < 0 {
			return state, nil, fmt.Errorf("%w: %s", core.ErrEntryNotFound, a.ID)
		}
		old := data.LedgerEntries[i]
		data.LedgerEntries = slices.Delete(data.LedgerEntries, i, i+1)
		touched := []monthly.Key{keyOf(old)}
		return refresh(data, old.AccountID, touched, now), touched, nil

	case SaveGoodInCart:
		g := a.Entry
		if g.AccountID == "" {
			// An update keeps the checkpoint in its own account.
			g.AccountID = data.CurrentAccountID
			if i := slices.IndexFunc(data.GoodInCartEntries, func(e core.GoodInCartEntry) bool { return g.ID != "" && e.ID == g.ID }); i >= 0 {
				g.AccountID = data.GoodInCartEntries[i].AccountID
			}
		}
		if _, ok := data.Account(g.AccountID); !ok {
			return state, nil, fmt.Errorf("%w: %s", core.ErrAccountNotFound, g.AccountID)
		}
		if err := g.Validate(); err != nil {
			return state, nil, err
		}
		if g.ID == "" {
			g.ID = core.NewID()
			data.GoodInCartEntries = append(data.GoodInCartEntries, g)
			return data, nil, nil
		}
		i := slices.IndexFunc(data.GoodInCartEntries, func(e core.GoodInCartEntry) bool { return e.ID == g.ID })
		if i < 0 {
			return state, nil, fmt.Errorf("%w: %s", core.ErrEntryNotFound, g.ID)
		}
		data.GoodInCartEntries[i] = g
		return data, nil, nil

	case DeleteGoodInCart:
		i := slices.IndexFunc(data.GoodInCartEntries, func(e core.GoodInCartEntry) bool { return e.ID == a.ID })
		if i < 0 {
			return state, nil, fmt.Errorf("%w: %s", core.ErrEntryNotFound, a.ID)
		}
		data.GoodInCartEntries = slices.Delete(data.GoodInCartEntries, i, i+1)
		return data, nil, nil

	case ImportEntries:
		accountID := a.AccountID
		if accountID == "" {
			accountID = data.CurrentAccountID
		}
		if _, ok := data.Account(accountID); !ok {
			return state, nil, fmt.Errorf("%w: %s", core.ErrAccountNotFound, accountID)
		}
		var touched []monthly.Key
		for _, e := range a.Entries {
			e.AccountID = accountID
			if e.ID == "" {
				e.ID = core.NewID()
			}
			e = e.Recompute()
			data.LedgerEntries = append(data.LedgerEntries, e)
			if k := keyOf(e); !slices.Contains(touched, k) {
				touched = append(touched, k)
			}
		}
		return refresh(data, accountID, touched, now), touched, nil

	case ReplaceState:
		next := a.Data.Clone().Normalize(now)
		for _, acc := range next.Accounts {
			next = monthly.UpdateAllMonthlyTotalsForAccount(next, acc.ID, now)
		}
		return monthly.CleanupOldMonthlyTotals(next, now), nil, nil

	case PruneMonthlyTotals:
		return monthly.CleanupOldMonthlyTotals(data, now), nil, nil
	}

	return state, nil, fmt.Errorf("unknown action %T", action)
}

func saveEntry(data, state core.AppData, e core.LedgerEntry, now time.Time) (core.AppData, []monthly.Key, error) {
	if e.AccountID == "" {
		// An update keeps the entry in its own account.
		e.AccountID = data.CurrentAccountID
		if i := slices.IndexFunc(data.LedgerEntries, func(x core.LedgerEntry) bool { return e.ID != "" && x.ID == e.ID }); i >= 0 {
			e.AccountID = data.LedgerEntries[i].AccountID
		}
	}
	if _, ok := data.Account(e.AccountID); !ok {
		return state, nil, fmt.Errorf("%w: %s", core.ErrAccountNotFound, e.AccountID)
	}
	e = e.Recompute()
	if err := e.Validate(); err != nil {
		return state, nil, err
	}

	touched := []monthly.Key{keyOf(e)}
	if e.ID == "" {
		e.ID = core.NewID()
		data.LedgerEntries = append(data.LedgerEntries, e)
	} else {
		i := slices.IndexFunc(data.LedgerEntries, func(x core.LedgerEntry) bool { return x.ID == e.ID })
		if i < 0 {
			return state, nil, fmt.Errorf("%w: %s", core.ErrEntryNotFound, e.ID)
		}
		old := data.LedgerEntries[i]
		data.LedgerEntries[i] = e
		if k := keyOf(old); k != touched[0] {
			touched = append(touched, k)
		}
	}
	data.LastUsedDates[e.AccountID] = e.Date.Display()
	return refresh(data, e.AccountID, touched, now), touched, nil
}

// refresh recomputes the account's monthly totals, including months that
// may have just lost their last entry, then prunes expired records.
func refresh(data core.AppData, accountID string, touched []monthly.Key, now time.Time) core.AppData {
	for _, k := range touched {
		data = monthly.UpdateMonthlyNetTotal(data, k.Year, k.Month, k.AccountID, now)
	}
	data = monthly.UpdateAllMonthlyTotalsForAccount(data, accountID, now)
	return monthly.CleanupOldMonthlyTotals(data, now)
}

func keyOf(e core.LedgerEntry) monthly.Key {
	return monthly.Key{Year: e.Date.Year, Month: e.Date.MonthIndex(), AccountID: e.AccountID}
}

func accountIndex(data core.AppData, id string) int {
	return slices.IndexFunc(data.Accounts, func(a core.Account) bool { return a.ID == id })
}
