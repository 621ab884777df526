package storage

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"khata/internal/core"
	"khata/internal/log"
)

const (
	DataKey          = "ledger-app-data"
	RollingBackupKey = "ledger-app-backup"
	SnapshotPrefix   = "auto-backup-"
	SnapshotsKept    = 10
)

// RollingBackup is the copy rewritten alongside every save.
type RollingBackup struct {
	Data      core.AppData `json:"data"`
	Timestamp time.Time    `json:"timestamp"`
	Auto      bool         `json:"auto,omitempty"`
}

// Documents loads and saves the AppData document over a KV.
type Documents struct {
	kv     KV
	now    func() time.Time
	logger *log.Logger
}

func NewDocuments(kv KV) *Documents {
	return &Documents{
		kv:     kv,
		now:    time.Now,
		logger: log.DefaultLogger().WithComponent(log.ComponentStorage),
	}
}

// WithClock returns a copy of d using now as its time source.
func (d *Documents) WithClock(now func() time.Time) *Documents {
	c := *d
	c.now = now
	return &c
}

// Load returns the stored document, or the default one when nothing valid
// is stored. The result is always normalized.
func (d *Documents) Load(ctx context.Context) core.AppData {
	now := d.now()
	raw, err := d.kv.Get(ctx, DataKey)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			d.logger.ErrorContext(ctx, "Failed to read app data, using defaults",
				log.FieldOperation, log.OpRead, log.FieldError, err.Error())
		}
		return core.DefaultAppData(now)
	}

	var data core.AppData
	if err := json.Unmarshal(raw, &data); err != nil {
		d.logger.ErrorContext(ctx, "Stored app data is corrupt, using defaults",
			log.FieldOperation, log.OpParse, log.FieldError, err.Error())
		return core.DefaultAppData(now)
	}
	return data.Normalize(now)
}

// Save writes the document and refreshes the rolling backup copy.
func (d *Documents) Save(ctx context.Context, data core.AppData) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("encode app data: %w", err)
	}
	if err := d.kv.Put(ctx, DataKey, raw); err != nil {
		return fmt.Errorf("save app data: %w", err)
	}

	backup, err := json.Marshal(RollingBackup{Data: data, Timestamp: d.now().UTC()})
	if err != nil {
		return fmt.Errorf("encode rolling backup: %w", err)
	}
	if err := d.kv.Put(ctx, RollingBackupKey, backup); err != nil {
		return fmt.Errorf("save rolling backup: %w", err)
	}
	return nil
}

// LoadRollingBackup returns the copy written by the last successful Save.
func (d *Documents) LoadRollingBackup(ctx context.Context) (RollingBackup, error) {
	var b RollingBackup
	raw, err := d.kv.Get(ctx, RollingBackupKey)
	if err != nil {
		return b, err
	}
	if err := json.Unmarshal(raw, &b); err != nil {
		return b, fmt.Errorf("decode rolling backup: %w", err)
	}
	return b, nil
}

// Snapshot stores data under auto-backup-<unix ms> and keeps only the
// newest SnapshotsKept snapshots. It returns the new key.
func (d *Documents) Snapshot(ctx context.Context, data core.AppData) (string, error) {
	now := d.now()
	key := SnapshotPrefix + strconv.FormatInt(now.UnixMilli(), 10)
	raw, err := json.Marshal(RollingBackup{Data: data, Timestamp: now.UTC(), Auto: true})
	if err != nil {
		return "", fmt.Errorf("encode snapshot: %w", err)
	}
	if err := d.kv.Put(ctx, key, raw); err != nil {
		return "", fmt.Errorf("save snapshot: %w", err)
	}

	keys, err := d.Snapshots(ctx)
	if err != nil {
		return key, err
	}
	if excess := len(keys) - SnapshotsKept; excess > 0 {
		for _, old := range keys[:excess] {
			if err := d.kv.Delete(ctx, old); err != nil {
				return key, fmt.Errorf("prune snapshot %s: %w", old, err)
			}
		}
		d.logger.DebugContext(ctx, "Pruned snapshots", log.FieldCount, excess)
	}
	return key, nil
}

// Snapshots lists snapshot keys oldest first.
func (d *Documents) Snapshots(ctx context.Context) ([]string, error) {
	keys, err := d.kv.Keys(ctx, SnapshotPrefix)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	sortByNumericSuffix(keys, SnapshotPrefix)
	return keys, nil
}

func sortByNumericSuffix(keys []string, prefix string) {
	n := func(k string) int64 {
		v, _ := strconv.ParseInt(strings.TrimPrefix(k, prefix), 10, 64)
		return v
	}
	slices.SortStableFunc(keys, func(a, b string) int { return cmp.Compare(n(a), n(b)) })
}
