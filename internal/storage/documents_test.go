package storage_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"khata/internal/core"
	"khata/internal/storage"
	"khata/internal/storage/memory"
)

func TestLoadDefaultsWhenEmpty(t *testing.T) {
	docs := storage.NewDocuments(memory.New())
	d := docs.Load(context.Background())
	if len(d.Accounts) != 1 || d.Accounts[0].ID != core.DefaultAccountID || d.Accounts[0].Name != core.DefaultAccountName {
		t.Fatalf("expected default document, got %+v", d.Accounts)
	}
	if d.CurrentAccountID != core.DefaultAccountID {
		t.Fatalf("unexpected current account %q", d.CurrentAccountID)
	}
}

func TestLoadCorruptFallsBack(t *testing.T) {
	kv := memory.New()
	_ = kv.Put(context.Background(), storage.DataKey, []byte("{not json"))
	d := storage.NewDocuments(kv).Load(context.Background())
	if len(d.Accounts) != 1 || d.Accounts[0].ID != core.DefaultAccountID {
		t.Fatalf("expected default document, got %+v", d)
	}
}

func TestLoadRepairsDocument(t *testing.T) {
	kv := memory.New()
	raw := `{"accounts":[{"id":"a","name":"A"}],"ledgerEntries":[{"id":"1","date":"2024-01-05","bill":10,"cash":4,"accountId":"a"}],"currentAccountId":"missing"}`
	_ = kv.Put(context.Background(), storage.DataKey, []byte(raw))

	d := storage.NewDocuments(kv).Load(context.Background())
	if d.CurrentAccountID != "a" {
		t.Fatalf("expected dangling current account repaired, got %q", d.CurrentAccountID)
	}
	if d.GoodInCartEntries == nil || d.MonthlyNetTotals == nil {
		t.Fatalf("expected empty collections")
	}
	if !d.LedgerEntries[0].Total.Equal(decimal.NewFromInt(6)) {
		t.Fatalf("expected recomputed total, got %s", d.LedgerEntries[0].Total)
	}
}

func TestSaveRoundTripAndRollingBackup(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	docs := storage.NewDocuments(memory.New()).WithClock(func() time.Time { return now })

	d := core.DefaultAppData(now)
	d.LedgerEntries = append(d.LedgerEntries,
		core.NewLedgerEntry("e1", core.DefaultAccountID, core.NewDate(2024, 4, 30), decimal.NewFromInt(100), decimal.Zero, "note"))
	if err := docs.Save(ctx, d); err != nil {
		t.Fatalf("save: %v", err)
	}

	got := docs.Load(ctx)
	if len(got.LedgerEntries) != 1 || got.LedgerEntries[0].Date != core.NewDate(2024, 4, 30) {
		t.Fatalf("unexpected round trip %+v", got.LedgerEntries)
	}

	rb, err := docs.LoadRollingBackup(ctx)
	if err != nil {
		t.Fatalf("rolling backup: %v", err)
	}
	if !rb.Timestamp.Equal(now) || len(rb.Data.LedgerEntries) != 1 {
		t.Fatalf("unexpected rolling backup %+v", rb)
	}
}

func TestSnapshotKeepsNewestTen(t *testing.T) {
	ctx := context.Background()
	kv := memory.New()
	clock := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	docs := storage.NewDocuments(kv).WithClock(func() time.Time { return clock })

	var last string
	for i := 0; i < 13; i++ {
		clock = clock.Add(30 * time.Minute)
		key, err := docs.Snapshot(ctx, core.DefaultAppData(clock))
		if err != nil {
			t.Fatalf("snapshot %d: %v", i, err)
		}
		last = key
	}

	keys, err := docs.Snapshots(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(keys) != storage.SnapshotsKept {
		t.Fatalf("expected %d snapshots, got %d", storage.SnapshotsKept, len(keys))
	}
	if keys[len(keys)-1] != last {
		t.Fatalf("newest snapshot missing: %v", keys)
	}
}
