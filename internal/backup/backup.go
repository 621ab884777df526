// Package backup keeps a capped list of named snapshots of the ledger
// document and moves them in and out of portable JSON files.
package backup

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"slices"
	"sync"
	"time"

	"khata/internal/core"
	"khata/internal/log"
	"khata/internal/storage"
)

const (
	BackupsKey    = "ledger-backups"
	LastBackupKey = "last-backup-timestamp"

	// MaxBackups caps the list; the oldest backups are evicted first.
	MaxBackups = 20
	// AutoBackupIntervalDays is the number of whole days between automatic backups.
	AutoBackupIntervalDays = 2
)

var (
	ErrBackupNotFound = errors.New("backup not found")
	ErrInvalidBackup  = errors.New("invalid backup file format")
)

type Metadata struct {
	ID           string    `json:"id"`
	Timestamp    time.Time `json:"timestamp"`
	Description  string    `json:"description"`
	EntryCount   int       `json:"entryCount"`
	AccountCount int       `json:"accountCount"`
	IsAutomatic  bool      `json:"isAutomatic"`
}

type Backup struct {
	Metadata Metadata     `json:"metadata"`
	Data     core.AppData `json:"data"`
}

type Stats struct {
	Total      int        `json:"total"`
	Automatic  int        `json:"automatic"`
	Manual     int        `json:"manual"`
	LastBackup *time.Time `json:"lastBackup"`
}

// Manager stores backups under BackupsKey. Restores are written back
// through the Documents it was built with.
type Manager struct {
	mu     sync.Mutex
	kv     storage.KV
	docs   *storage.Documents
	now    func() time.Time
	logger *log.Logger
}

type Option func(*Manager)

func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

func WithLogger(logger *log.Logger) Option {
	return func(m *Manager) { m.logger = logger.WithComponent(log.ComponentBackup) }
}

func NewManager(kv storage.KV, docs *storage.Documents, opts ...Option) *Manager {
	m := &Manager{
		kv:     kv,
		docs:   docs,
		now:    time.Now,
		logger: log.DefaultLogger().WithComponent(log.ComponentBackup),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// List returns the stored backups, oldest first. A corrupt list reads as empty.
func (m *Manager) List(ctx context.Context) ([]Backup, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.load(ctx)
}

func (m *Manager) load(ctx context.Context) ([]Backup, error) {
	raw, err := m.kv.Get(ctx, BackupsKey)
	if errors.Is(err, storage.ErrNotFound) {
		return []Backup{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load backups: %w", err)
	}
	var backups []Backup
	if err := json.Unmarshal(raw, &backups); err != nil {
		m.logger.ErrorContext(ctx, "Stored backup list is corrupt, treating as empty",
			log.FieldOperation, log.OpParse, log.FieldError, err.Error())
		return []Backup{}, nil
	}
	now := m.now()
	for i := range backups {
		backups[i].Data = backups[i].Data.Normalize(now)
	}
	return backups, nil
}

func (m *Manager) store(ctx context.Context, backups []Backup) error {
	raw, err := json.Marshal(backups)
	if err != nil {
		return fmt.Errorf("encode backups: %w", err)
	}
	if err := m.kv.Put(ctx, BackupsKey, raw); err != nil {
		return fmt.Errorf("save backups: %w", err)
	}
	return nil
}

// Create appends a backup of data, evicting the oldest beyond MaxBackups,
// and records the time of the last backup.
func (m *Manager) Create(ctx context.Context, data core.AppData, description string, automatic bool) (Backup, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	b := Backup{
		Metadata: Metadata{
			ID:           core.NewID(),
			Timestamp:    now.UTC(),
			Description:  description,
			EntryCount:   len(data.LedgerEntries) + len(data.GoodInCartEntries),
			AccountCount: len(data.Accounts),
			IsAutomatic:  automatic,
		},
		Data: data.Clone(),
	}

	backups, err := m.load(ctx)
	if err != nil {
		return Backup{}, err
	}
	backups = append(backups, b)
	if len(backups) > MaxBackups {
		backups = slices.Delete(backups, 0, len(backups)-MaxBackups)
	}
	if err := m.store(ctx, backups); err != nil {
		return Backup{}, err
	}
	if err := m.kv.Put(ctx, LastBackupKey, []byte(now.UTC().Format(time.RFC3339Nano))); err != nil {
		return Backup{}, fmt.Errorf("save last backup timestamp: %w", err)
	}

	m.logger.InfoContext(ctx, "Backup created",
		log.FieldBackupID, b.Metadata.ID,
		log.FieldCount, b.Metadata.EntryCount,
		"automatic", automatic,
	)
	return b, nil
}

// ShouldCreateAutoBackup reports whether no backup was ever recorded or at
// least AutoBackupIntervalDays whole days passed since the last one. An
// unreadable timestamp counts as no backup.
func (m *Manager) ShouldCreateAutoBackup(ctx context.Context, now time.Time) bool {
	raw, err := m.kv.Get(ctx, LastBackupKey)
	if err != nil {
		return true
	}
	last, err := time.Parse(time.RFC3339Nano, string(raw))
	if err != nil {
		return true
	}
	days := int(now.Sub(last) / (24 * time.Hour))
	return days >= AutoBackupIntervalDays
}

// CreateAutoBackupIfNeeded creates an automatic backup when one is due and
// returns nil otherwise.
func (m *Manager) CreateAutoBackupIfNeeded(ctx context.Context, data core.AppData) (*Backup, error) {
	now := m.now()
	if !m.ShouldCreateAutoBackup(ctx, now) {
		return nil, nil
	}
	desc := "Auto backup - " + core.DateOf(now.In(core.Location())).Display()
	b, err := m.Create(ctx, data, desc, true)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// Get returns one backup by id.
func (m *Manager) Get(ctx context.Context, id string) (Backup, error) {
	backups, err := m.List(ctx)
	if err != nil {
		return Backup{}, err
	}
	i := slices.IndexFunc(backups, func(b Backup) bool { return b.Metadata.ID == id })
	if i < 0 {
		return Backup{}, fmt.Errorf("%w: %s", ErrBackupNotFound, id)
	}
	return backups[i], nil
}

// Restore persists the backup's document as the current one and returns it.
func (m *Manager) Restore(ctx context.Context, id string) (core.AppData, error) {
	b, err := m.Get(ctx, id)
	if err != nil {
		return core.AppData{}, err
	}
	data := b.Data.Normalize(m.now())
	if m.docs != nil {
		if err := m.docs.Save(ctx, data); err != nil {
			return core.AppData{}, fmt.Errorf("restore %s: %w", id, err)
		}
	}
	m.logger.InfoContext(ctx, "Backup restored", log.FieldBackupID, id, log.FieldOperation, log.OpRestore)
	return data, nil
}

// Delete removes a backup. Removing an unknown id is an ErrBackupNotFound.
func (m *Manager) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	backups, err := m.load(ctx)
	if err != nil {
		return err
	}
	n := len(backups)
	backups = slices.DeleteFunc(backups, func(b Backup) bool { return b.Metadata.ID == id })
	if len(backups) == n {
		return fmt.Errorf("%w: %s", ErrBackupNotFound, id)
	}
	return m.store(ctx, backups)
}

// Export renders a backup as an indented JSON document and names the file
// after the backup's date.
func (m *Manager) Export(ctx context.Context, id string) ([]byte, string, error) {
	b, err := m.Get(ctx, id)
	if err != nil {
		return nil, "", err
	}
	raw, err := json.MarshalIndent(b, "", "  ")
	if err != nil {
		return nil, "", fmt.Errorf("encode backup: %w", err)
	}
	return raw, Filename(b.Metadata.Timestamp), nil
}

// Import reads a backup document, assigns it a fresh id and appends it to
// the list. The file's metadata and data objects are both required.
func (m *Manager) Import(ctx context.Context, r io.Reader) (Backup, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return Backup{}, fmt.Errorf("read backup file: %w", err)
	}

	var shape struct {
		Metadata json.RawMessage `json:"metadata"`
		Data     json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(raw, &shape); err != nil {
		return Backup{}, fmt.Errorf("%w: %v", ErrInvalidBackup, err)
	}
	if isNull(shape.Metadata) || isNull(shape.Data) {
		return Backup{}, ErrInvalidBackup
	}

	var b Backup
	if err := json.Unmarshal(raw, &b); err != nil {
		return Backup{}, fmt.Errorf("%w: %v", ErrInvalidBackup, err)
	}
	b.Metadata.ID = core.NewID()
	b.Data = b.Data.Normalize(m.now())

	m.mu.Lock()
	defer m.mu.Unlock()
	backups, err := m.load(ctx)
	if err != nil {
		return Backup{}, err
	}
	backups = append(backups, b)
	if len(backups) > MaxBackups {
		backups = slices.Delete(backups, 0, len(backups)-MaxBackups)
	}
	if err := m.store(ctx, backups); err != nil {
		return Backup{}, err
	}
	m.logger.InfoContext(ctx, "Backup imported", log.FieldBackupID, b.Metadata.ID, log.FieldOperation, log.OpImport)
	return b, nil
}

// Stats counts backups by kind and reports the newest timestamp.
func (m *Manager) Stats(ctx context.Context) (Stats, error) {
	backups, err := m.List(ctx)
	if err != nil {
		return Stats{}, err
	}
	s := Stats{Total: len(backups)}
	for _, b := range backups {
		if b.Metadata.IsAutomatic {
			s.Automatic++
		} else {
			s.Manual++
		}
	}
	if len(backups) > 0 {
		ts := backups[len(backups)-1].Metadata.Timestamp
		s.LastBackup = &ts
	}
	return s, nil
}

// Filename is the download name for a backup or document taken at t.
func Filename(t time.Time) string {
	return "ledger-backup-" + t.UTC().Format("2006-01-02") + ".json"
}

func isNull(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}
