// Package services wires the ledger store to persistence, backups, the
// summary cache and change notifications.
package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"sync/atomic"
	"time"

	"khata/internal/amqp"
	"khata/internal/backup"
	"khata/internal/cache"
	"khata/internal/core"
	"khata/internal/importer"
	"khata/internal/log"
	"khata/internal/monthly"
	"khata/internal/reconcile"
	"khata/internal/report"
	"khata/internal/storage"
	"khata/internal/store"
)

const listenerTimeout = 10 * time.Second

// Publisher announces ledger changes. *amqp.Client implements it.
type Publisher interface {
	PublishLedgerChanged(ctx context.Context, msg *amqp.LedgerChangedMessage) error
}

// SummaryView is a summary together with the entries it was computed from.
type SummaryView struct {
	Summary core.Summary       `json:"summary"`
	Entries []core.LedgerEntry `json:"entries"`
}

// LedgerService owns the store and runs the side effects of every committed
// change: save the document, check the automatic backup, drop cached
// summaries and publish one message per touched month.
type LedgerService struct {
	store     *store.Store
	docs      *storage.Documents
	backups   *backup.Manager
	publisher Publisher
	summaries *cache.LRUCache[SummaryView]
	// generation counts committed changes and is part of every summary
	// key, so a summary computed before a change is never served after it.
	generation atomic.Uint64
	now        func() time.Time
	logger     *log.Logger

	unsubscribe func()
}

type Option func(*LedgerService)

// WithPublisher enables change notifications.
func WithPublisher(p Publisher) Option {
	return func(s *LedgerService) { s.publisher = p }
}

// WithSummaryCache replaces the default summary cache.
func WithSummaryCache(c *cache.LRUCache[SummaryView]) Option {
	return func(s *LedgerService) { s.summaries = c }
}

func WithClock(now func() time.Time) Option {
	return func(s *LedgerService) { s.now = now }
}

func WithLogger(logger *log.Logger) Option {
	return func(s *LedgerService) { s.logger = logger }
}

// NewLedgerService loads the stored document and starts listening for
// changes.
func NewLedgerService(ctx context.Context, docs *storage.Documents, backups *backup.Manager, opts ...Option) *LedgerService {
	s := &LedgerService{
		docs:    docs,
		backups: backups,
		now:     time.Now,
		logger:  log.DefaultLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.WithComponent(log.ComponentApp)
	if s.summaries == nil {
		s.summaries = cache.NewLRUCache[SummaryView](100, 5*time.Minute)
	}

	s.store = store.New(docs.Load(ctx), store.WithClock(s.now), store.WithLogger(s.logger))
	s.unsubscribe = s.store.Subscribe(s.onChange)
	return s
}

// SummaryCache exposes the cache so it can be registered for expiry.
func (s *LedgerService) SummaryCache() *cache.LRUCache[SummaryView] {
	return s.summaries
}

func (s *LedgerService) onChange(change store.Change) {
	ctx, cancel := context.WithTimeout(context.Background(), listenerTimeout)
	defer cancel()

	s.generation.Add(1)
	s.summaries.Purge()

	if err := s.docs.Save(ctx, change.State); err != nil {
		s.logger.ErrorContext(ctx, "Failed to persist ledger",
			log.FieldOperation, change.Action.Kind(),
			log.FieldError, err.Error(),
		)
	}

	if s.backups != nil {
		if b, err := s.backups.CreateAutoBackupIfNeeded(ctx, change.State); err != nil {
			s.logger.ErrorContext(ctx, "Automatic backup failed", log.FieldError, err.Error())
		} else if b != nil {
			s.logger.InfoContext(ctx, "Automatic backup created", log.FieldBackupID, b.Metadata.ID)
		}
	}

	if s.publisher == nil {
		return
	}
	for _, k := range change.Months {
		msg := amqp.NewLedgerChangedMessage(k.AccountID, change.Action.Kind(), k.Year, k.Month)
		if err := s.publisher.PublishLedgerChanged(ctx, msg); err != nil {
			// The change is already saved; the worker catches up on startup.
			s.logger.ErrorContext(ctx, "Failed to publish ledger change",
				log.FieldAccountID, k.AccountID,
				log.FieldYear, k.Year,
				log.FieldMonth, k.Month+1,
				log.FieldError, err.Error(),
			)
		}
	}
}

// State returns a copy of the current document.
func (s *LedgerService) State() core.AppData {
	return s.store.GetState()
}

// Dispatch applies one store action.
func (s *LedgerService) Dispatch(action store.Action) (core.AppData, error) {
	return s.store.Dispatch(action)
}

// resolveAccount maps an empty id to the current account and checks that
// the account exists.
func (s *LedgerService) resolveAccount(data core.AppData, accountID string) (core.Account, error) {
	if accountID == "" {
		accountID = data.CurrentAccountID
	}
	acc, ok := data.Account(accountID)
	if !ok {
		return core.Account{}, fmt.Errorf("%w: %s", core.ErrAccountNotFound, accountID)
	}
	return acc, nil
}

// Account returns one account; an empty id means the current one.
func (s *LedgerService) Account(accountID string) (core.Account, error) {
	return s.resolveAccount(s.State(), accountID)
}

func (s *LedgerService) CreateAccount(name string) (core.Account, error) {
	data, err := s.store.Dispatch(store.CreateAccount{Name: name})
	if err != nil {
		return core.Account{}, err
	}
	acc, _ := data.Account(data.CurrentAccountID)
	return acc, nil
}

// SaveEntry creates e when it has no id and replaces the stored entry
// otherwise. It returns the entry as stored.
func (s *LedgerService) SaveEntry(e core.LedgerEntry) (core.LedgerEntry, error) {
	data, err := s.store.Dispatch(store.SaveEntry{Entry: e})
	if err != nil {
		return core.LedgerEntry{}, err
	}
	if e.ID == "" {
		// New entries are appended.
		return data.LedgerEntries[len(data.LedgerEntries)-1], nil
	}
	for _, x := range data.LedgerEntries {
		if x.ID == e.ID {
			return x, nil
		}
	}
	return core.LedgerEntry{}, fmt.Errorf("%w: %s", core.ErrEntryNotFound, e.ID)
}

func (s *LedgerService) SaveGoodInCart(g core.GoodInCartEntry) (core.GoodInCartEntry, error) {
	data, err := s.store.Dispatch(store.SaveGoodInCart{Entry: g})
	if err != nil {
		return core.GoodInCartEntry{}, err
	}
	if g.ID == "" {
		return data.GoodInCartEntries[len(data.GoodInCartEntries)-1], nil
	}
	for _, x := range data.GoodInCartEntries {
		if x.ID == g.ID {
			return x, nil
		}
	}
	return core.GoodInCartEntry{}, fmt.Errorf("%w: %s", core.ErrEntryNotFound, g.ID)
}

// GoodInCart lists an account's checkpoints, oldest first.
func (s *LedgerService) GoodInCart(accountID string) ([]core.GoodInCartEntry, error) {
	data := s.State()
	acc, err := s.resolveAccount(data, accountID)
	if err != nil {
		return nil, err
	}
	return data.GoodInCartForAccount(acc.ID), nil
}

// GoodInCartReport reconciles the window ending at checkpoint (YYYY-MM-DD).
func (s *LedgerService) GoodInCartReport(accountID, checkpoint string) (*reconcile.Report, error) {
	data := s.State()
	acc, err := s.resolveAccount(data, accountID)
	if err != nil {
		return nil, err
	}
	return reconcile.GenerateGoodInCartReport(checkpoint, acc.ID, data.GoodInCartEntries, data.LedgerEntries)
}

// Summary projects an account through f. Results are cached until the next
// change.
func (s *LedgerService) Summary(accountID string, f report.Filter) (SummaryView, error) {
	gen := s.generation.Load()
	data := s.State()
	acc, err := s.resolveAccount(data, accountID)
	if err != nil {
		return SummaryView{}, err
	}
	key := cache.Key(strconv.FormatUint(gen, 10), acc.ID, string(f.Type), f.Start.String(), f.End.String(), f.Month)
	if v, ok := s.summaries.Get(key); ok {
		return v, nil
	}
	sum, entries, err := report.Summarize(data, acc.ID, f)
	if err != nil {
		return SummaryView{}, err
	}
	v := SummaryView{Summary: sum, Entries: entries}
	s.summaries.Set(key, v)
	return v, nil
}

// CumulativeSummary reports January through month (YYYY-MM) for an account.
func (s *LedgerService) CumulativeSummary(accountID, month string) (core.Summary, error) {
	data := s.State()
	acc, err := s.resolveAccount(data, accountID)
	if err != nil {
		return core.Summary{}, err
	}
	return report.CalculateCumulativeSummary(month, acc.ID, data)
}

// Months returns the twelve month rows of year for an account.
func (s *LedgerService) Months(accountID string, year int) ([]core.MonthRow, error) {
	data := s.State()
	acc, err := s.resolveAccount(data, accountID)
	if err != nil {
		return nil, err
	}
	return monthly.YearTable(data, year, acc.ID), nil
}

// Import reads a spreadsheet and appends its valid rows to the account.
// A result without entries changes nothing.
func (s *LedgerService) Import(ctx context.Context, im *importer.Importer, r io.Reader, filename, accountID string) (importer.Result, error) {
	acc, err := s.resolveAccount(s.State(), accountID)
	if err != nil {
		return importer.Result{}, err
	}
	res, err := im.Read(ctx, r, filename, acc.ID)
	if err != nil {
		return importer.Result{}, err
	}
	if !res.Success || len(res.Entries) == 0 {
		return res, nil
	}
	if _, err := s.store.Dispatch(store.ImportEntries{AccountID: acc.ID, Entries: res.Entries}); err != nil {
		return importer.Result{}, fmt.Errorf("import entries: %w", err)
	}
	return res, nil
}

// Backups exposes the backup manager.
func (s *LedgerService) Backups() *backup.Manager {
	return s.backups
}

// CreateBackup stores a manual backup of the current document.
func (s *LedgerService) CreateBackup(ctx context.Context, description string) (backup.Backup, error) {
	if description == "" {
		description = "Manual backup - " + core.DateOf(s.now().In(core.Location())).Display()
	}
	return s.backups.Create(ctx, s.State(), description, false)
}

// RestoreBackup replaces the document with a stored backup.
func (s *LedgerService) RestoreBackup(ctx context.Context, id string) (core.AppData, error) {
	data, err := s.backups.Restore(ctx, id)
	if err != nil {
		return core.AppData{}, err
	}
	return s.store.Dispatch(store.ReplaceState{Data: data, Reason: "restore"})
}

// ExportDocument renders the current document as JSON.
func (s *LedgerService) ExportDocument() ([]byte, error) {
	return backup.ExportDocument(s.State())
}

// ImportDocument replaces the document with the one read from r.
func (s *LedgerService) ImportDocument(r io.Reader) (core.AppData, error) {
	data, err := backup.ImportDocument(r, s.now())
	if err != nil {
		return core.AppData{}, err
	}
	return s.store.Dispatch(store.ReplaceState{Data: data, Reason: "import"})
}

// Snapshot writes the current document to a rolling snapshot key.
func (s *LedgerService) Snapshot(ctx context.Context) (string, error) {
	return s.docs.Snapshot(ctx, s.State())
}

// PruneMonthlyTotals drops expired monthly total records.
func (s *LedgerService) PruneMonthlyTotals() error {
	_, err := s.store.Dispatch(store.PruneMonthlyTotals{})
	return err
}

// Close stops listening and closes the publisher when it can be closed.
func (s *LedgerService) Close() error {
	if s.unsubscribe != nil {
		s.unsubscribe()
	}
	var errs []error
	if c, ok := s.publisher.(io.Closer); ok {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close publisher: %w", err))
		}
	}
	return errors.Join(errs...)
}
