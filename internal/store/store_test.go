package store

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"khata/internal/core"
	"khata/internal/monthly"
)

var now = time.Date(2024, time.March, 10, 12, 0, 0, 0, time.UTC)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func newStore() *Store {
	return New(core.DefaultAppData(now), WithClock(func() time.Time { return now }))
}

func mustDispatch(t *testing.T, s *Store, a Action) core.AppData {
	t.Helper()
	d, err := s.Dispatch(a)
	if err != nil {
		t.Fatalf("%s: unexpected error: %v", a.Kind(), err)
	}
	return d
}

func TestAccountLifecycle(t *testing.T) {
	s := newStore()

	d := mustDispatch(t, s, CreateAccount{ID: "shop", Name: "  Shop  "})
	if len(d.Accounts) != 2 || d.CurrentAccountID != "shop" {
		t.Fatalf("expected new current account, got %+v", d)
	}
	if acc, _ := d.Account("shop"); acc.Name != "Shop" {
		t.Fatalf("expected trimmed name, got %q", acc.Name)
	}

	d = mustDispatch(t, s, RenameAccount{ID: "shop", Name: "Store"})
	if acc, _ := d.Account("shop"); acc.Name != "Store" {
		t.Fatalf("rename failed: %q", acc.Name)
	}

	d = mustDispatch(t, s, SwitchAccount{ID: core.DefaultAccountID})
	if d.CurrentAccountID != core.DefaultAccountID {
		t.Fatalf("switch failed")
	}

	mustDispatch(t, s, SaveEntry{Entry: core.LedgerEntry{AccountID: "shop", Date: core.NewDate(2024, 3, 1), Bill: dec("10")}})
	mustDispatch(t, s, SaveGoodInCart{Entry: core.GoodInCartEntry{AccountID: "shop", Date: core.NewDate(2024, 3, 1), Value: dec("5")}})

	d = mustDispatch(t, s, DeleteAccount{ID: "shop"})
	if len(d.Accounts) != 1 || len(d.LedgerEntries) != 0 || len(d.GoodInCartEntries) != 0 {
		t.Fatalf("account data not removed: %+v", d)
	}
	for _, tot := range d.MonthlyNetTotals {
		if tot.AccountID == "shop" {
			t.Fatalf("monthly totals of deleted account remain")
		}
	}

	if _, err := s.Dispatch(DeleteAccount{ID: core.DefaultAccountID}); !errors.Is(err, core.ErrLastAccount) {
		t.Fatalf("expected ErrLastAccount, got %v", err)
	}
}

func TestAccountErrors(t *testing.T) {
	s := newStore()
	cases := []struct {
		action Action
		want   error
	}{
		{CreateAccount{Name: "   "}, core.ErrEmptyName},
		{RenameAccount{ID: core.DefaultAccountID, Name: ""}, core.ErrEmptyName},
		{RenameAccount{ID: "missing", Name: "x"}, core.ErrAccountNotFound},
		{SwitchAccount{ID: "missing"}, core.ErrAccountNotFound},
		{DeleteAccount{ID: "missing"}, core.ErrAccountNotFound},
	}
	for i, tc := range cases {
		if _, err := s.Dispatch(tc.action); !errors.Is(err, tc.want) {
			t.Fatalf("case %d expected %v, got %v", i, tc.want, err)
		}
	}
}

func TestDeletingCurrentAccountMovesCurrent(t *testing.T) {
	s := newStore()
	mustDispatch(t, s, CreateAccount{ID: "b", Name: "B"})
	d := mustDispatch(t, s, DeleteAccount{ID: "b"})
	if d.CurrentAccountID != core.DefaultAccountID {
		t.Fatalf("expected current account to fall back, got %q", d.CurrentAccountID)
	}
}

func TestSaveEntryValidation(t *testing.T) {
	s := newStore()
	cases := []struct {
		entry core.LedgerEntry
		want  error
	}{
		{core.LedgerEntry{Date: core.NewDate(2024, 1, 1)}, core.ErrEmptyAmounts},
		{core.LedgerEntry{Date: core.NewDate(2024, 1, 1), Bill: dec("-1")}, core.ErrInvalidAmount},
		{core.LedgerEntry{Bill: dec("1")}, core.ErrInvalidDate},
		{core.LedgerEntry{Date: core.NewDate(2024, 1, 1), Bill: dec("1"), AccountID: "nope"}, core.ErrAccountNotFound},
		{core.LedgerEntry{ID: "ghost", Date: core.NewDate(2024, 1, 1), Bill: dec("1")}, core.ErrEntryNotFound},
	}
	for i, tc := range cases {
		if _, err := s.Dispatch(SaveEntry{Entry: tc.entry}); !errors.Is(err, tc.want) {
			t.Fatalf("case %d expected %v, got %v", i, tc.want, err)
		}
	}
	if d := s.GetState(); len(d.LedgerEntries) != 0 {
		t.Fatalf("rejected saves must not change state")
	}
}

func TestSaveEntryMaintainsMonthlyTotals(t *testing.T) {
	s := newStore()
	d := mustDispatch(t, s, SaveEntry{Entry: core.LedgerEntry{Date: core.NewDate(2024, 1, 5), Bill: dec("5000"), Cash: dec("3000")}})
	if len(d.LedgerEntries) != 1 {
		t.Fatalf("expected one entry")
	}
	e := d.LedgerEntries[0]
	if e.ID == "" || e.AccountID != core.DefaultAccountID || !e.Total.Equal(dec("2000")) || e.ProfitLoss != core.Loss {
		t.Fatalf("unexpected entry %+v", e)
	}
	if d.LastUsedDates[core.DefaultAccountID] != "05/01/2024" {
		t.Fatalf("expected last used date, got %v", d.LastUsedDates)
	}
	if got := monthly.GetMonthlyNetTotal(d, 2024, 0, core.DefaultAccountID); !got.Equal(dec("2000")) {
		t.Fatalf("expected cached 2000, got %s", got)
	}

	// Move the entry to February; January must drop to zero.
	e.Date = core.NewDate(2024, 2, 1)
	d = mustDispatch(t, s, SaveEntry{Entry: e})
	jan, ok := monthly.CacheOf(d).Lookup(monthly.Key{Year: 2024, Month: 0, AccountID: core.DefaultAccountID})
	if !ok || !jan.NetTotal.IsZero() || jan.EntriesCount != 0 {
		t.Fatalf("january record not refreshed: %+v", jan)
	}
	if got := monthly.GetMonthlyNetTotal(d, 2024, 1, core.DefaultAccountID); !got.Equal(dec("2000")) {
		t.Fatalf("expected february 2000, got %s", got)
	}

	d = mustDispatch(t, s, DeleteEntry{ID: e.ID})
	if got := monthly.GetMonthlyNetTotal(d, 2024, 1, core.DefaultAccountID); !got.IsZero() {
		t.Fatalf("expected february 0 after delete, got %s", got)
	}
	if _, err := s.Dispatch(DeleteEntry{ID: e.ID}); !errors.Is(err, core.ErrEntryNotFound) {
		t.Fatalf("expected ErrEntryNotFound, got %v", err)
	}
}

func TestGoodInCart(t *testing.T) {
	s := newStore()
	if _, err := s.Dispatch(SaveGoodInCart{Entry: core.GoodInCartEntry{Date: core.NewDate(2024, 1, 1), Value: dec("0")}}); !errors.Is(err, core.ErrInvalidValue) {
		t.Fatalf("expected ErrInvalidValue, got %v", err)
	}
	d := mustDispatch(t, s, SaveGoodInCart{Entry: core.GoodInCartEntry{Date: core.NewDate(2024, 1, 1), Value: dec("100")}})
	g := d.GoodInCartEntries[0]
	g.Value = dec("150")
	d = mustDispatch(t, s, SaveGoodInCart{Entry: g})
	if len(d.GoodInCartEntries) != 1 || !d.GoodInCartEntries[0].Value.Equal(dec("150")) {
		t.Fatalf("update failed: %+v", d.GoodInCartEntries)
	}
	d = mustDispatch(t, s, DeleteGoodInCart{ID: g.ID})
	if len(d.GoodInCartEntries) != 0 {
		t.Fatalf("delete failed")
	}
}

func TestUpdateKeepsOwningAccount(t *testing.T) {
	s := newStore()
	mustDispatch(t, s, CreateAccount{ID: "shop", Name: "Shop"})
	d := mustDispatch(t, s, SaveEntry{Entry: core.LedgerEntry{Date: core.NewDate(2024, 3, 1), Bill: dec("10")}})
	d = mustDispatch(t, s, SaveGoodInCart{Entry: core.GoodInCartEntry{Date: core.NewDate(2024, 3, 1), Value: dec("5")}})
	e, g := d.LedgerEntries[0], d.GoodInCartEntries[0]
	mustDispatch(t, s, SwitchAccount{ID: core.DefaultAccountID})

	e.AccountID = ""
	e.Bill = dec("25")
	d = mustDispatch(t, s, SaveEntry{Entry: e})
	if got := d.LedgerEntries[0]; got.AccountID != "shop" || !got.Bill.Equal(dec("25")) {
		t.Fatalf("entry left its account: %+v", got)
	}
	for _, tot := range d.MonthlyNetTotals {
		if tot.AccountID == core.DefaultAccountID {
			t.Fatalf("unexpected total for the current account: %+v", tot)
		}
	}

	g.AccountID = ""
	g.Value = dec("7")
	d = mustDispatch(t, s, SaveGoodInCart{Entry: g})
	if got := d.GoodInCartEntries[0]; got.AccountID != "shop" || !got.Value.Equal(dec("7")) {
		t.Fatalf("checkpoint left its account: %+v", got)
	}
	if d.CurrentAccountID != core.DefaultAccountID {
		t.Fatalf("current account changed to %q", d.CurrentAccountID)
	}
}

func TestActionKinds(t *testing.T) {
	tests := []struct {
		action Action
		want   string
	}{
		{CreateAccount{ID: "shop", Name: "Shop"}, "create_account"},
		{RenameAccount{ID: "shop", Name: "Store"}, "rename_account"},
		{SaveEntry{}, "save_entry"},
		{SaveGoodInCart{}, "save_good_in_cart"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.action.Kind(); got != tt.want {
				t.Fatalf("Kind() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestImportEntries(t *testing.T) {
	s := newStore()
	d := mustDispatch(t, s, ImportEntries{Entries: []core.LedgerEntry{
		{ID: "import-1-0", Date: core.NewDate(2024, 1, 2), Bill: dec("10")},
		{ID: "import-1-1", Date: core.NewDate(2024, 2, 2), Cash: dec("4")},
	}})
	if len(d.LedgerEntries) != 2 || d.LedgerEntries[1].ProfitLoss != core.Profit {
		t.Fatalf("unexpected entries %+v", d.LedgerEntries)
	}
	if len(d.MonthlyNetTotals) != 2 {
		t.Fatalf("expected totals for both months, got %d", len(d.MonthlyNetTotals))
	}
}

func TestReplaceStateNormalizes(t *testing.T) {
	s := newStore()
	d := mustDispatch(t, s, ReplaceState{Data: core.AppData{CurrentAccountID: "gone"}})
	if len(d.Accounts) != 1 || d.CurrentAccountID != core.DefaultAccountID {
		t.Fatalf("expected repaired document, got %+v", d)
	}
	if d.LedgerEntries == nil || d.LastUsedDates == nil {
		t.Fatalf("expected empty collections")
	}
}

func TestListeners(t *testing.T) {
	s := newStore()
	var mu sync.Mutex
	var got []Change
	unsubscribe := s.Subscribe(func(c Change) {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, c)
	})

	mustDispatch(t, s, SaveEntry{Entry: core.LedgerEntry{Date: core.NewDate(2024, 3, 3), Bill: dec("1")}})
	if _, err := s.Dispatch(DeleteEntry{ID: "missing"}); err == nil {
		t.Fatalf("expected error")
	}
	unsubscribe()
	mustDispatch(t, s, CreateAccount{Name: "After"})

	if len(got) != 1 {
		t.Fatalf("expected exactly one notification, got %d", len(got))
	}
	c := got[0]
	if c.Action.Kind() != "save_entry" || len(c.State.LedgerEntries) != 1 {
		t.Fatalf("unexpected change %+v", c)
	}
	if len(c.Months) != 1 || c.Months[0] != (monthly.Key{Year: 2024, Month: 2, AccountID: core.DefaultAccountID}) {
		t.Fatalf("unexpected months %v", c.Months)
	}
}

func TestReduceIsPure(t *testing.T) {
	state := core.DefaultAppData(now)
	next, err := Reduce(state, SaveEntry{Entry: core.LedgerEntry{Date: core.NewDate(2024, 3, 3), Bill: dec("1")}}, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(state.LedgerEntries) != 0 || len(state.LastUsedDates) != 0 {
		t.Fatalf("input state was modified")
	}
	if len(next.LedgerEntries) != 1 {
		t.Fatalf("expected new entry in result")
	}
}

func TestConcurrentDispatch(t *testing.T) {
	s := newStore()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _ = s.Dispatch(SaveEntry{Entry: core.LedgerEntry{Date: core.NewDate(2024, 1, 1+i%28), Bill: decimal.NewFromInt(int64(i + 1))}})
		}(i)
	}
	wg.Wait()
	d := s.GetState()
	if len(d.LedgerEntries) != 50 {
		t.Fatalf("expected 50 entries, got %d", len(d.LedgerEntries))
	}
	if got := monthly.GetMonthlyNetTotal(d, 2024, 0, core.DefaultAccountID); !got.Equal(decimal.NewFromInt(1275)) {
		t.Fatalf("expected 1275, got %s", got)
	}
}
