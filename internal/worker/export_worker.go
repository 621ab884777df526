// Package worker renders monthly ledger workbooks in response to ledger
// change messages.
package worker

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"golang.org/x/sync/errgroup"

	"khata/internal/amqp"
	"khata/internal/core"
	"khata/internal/export"
	"khata/internal/log"
	"khata/internal/report"
)

// startupConcurrency bounds how many workbooks the startup pass renders at once.
const startupConcurrency = 4

var unsafePathChars = regexp.MustCompile(`[^A-Za-z0-9_-]`)

// DocumentLoader returns the current ledger document.
type DocumentLoader interface {
	Load(ctx context.Context) core.AppData
}

// SheetsAppender pushes entry rows to a spreadsheet. *sheets.Client
// implements it.
type SheetsAppender interface {
	AppendEntries(ctx context.Context, accountName string, entries []core.LedgerEntry) (string, error)
}

// ExportWorker keeps <dir>/<account>/<YYYY-MM>.xlsx in step with the ledger.
type ExportWorker struct {
	docs   DocumentLoader
	dir    string
	sheets SheetsAppender
	logger *log.Logger
}

// NewExportWorker creates a worker writing under dir. sheets may be nil.
func NewExportWorker(docs DocumentLoader, dir string, sheets SheetsAppender, logger *log.Logger) *ExportWorker {
	if logger == nil {
		logger = log.DefaultLogger()
	}
	return &ExportWorker{
		docs:   docs,
		dir:    dir,
		sheets: sheets,
		logger: logger.WithComponent(log.ComponentWorker),
	}
}

// MonthPath is where the workbook of one account month is written.
func (w *ExportWorker) MonthPath(accountID string, year, month int) string {
	return filepath.Join(w.dir, accountDir(accountID), export.MonthFilename(year, month))
}

// accountDir names the directory of an account. The hash of the raw id keeps
// ids that sanitize to the same text apart.
func accountDir(accountID string) string {
	h := fnv.New32a()
	_, _ = h.Write([]byte(accountID))
	return fmt.Sprintf("%s-%08x", unsafePathChars.ReplaceAllString(accountID, "_"), h.Sum32())
}

// HandleLedgerChanged re-renders the month named by msg. Messages for
// accounts that no longer exist are acknowledged and ignored.
func (w *ExportWorker) HandleLedgerChanged(ctx context.Context, msg *amqp.LedgerChangedMessage) error {
	start := time.Now()
	fields := log.NewFields().WithAccount(msg.AccountID, msg.Year, msg.Month).WithOperation(msg.Action)
	w.logger.InfoContext(ctx, "Processing ledger changed message", fields.ToSlice()...)

	data := w.docs.Load(ctx)
	acc, ok := data.Account(msg.AccountID)
	if !ok {
		w.logger.WarnContext(ctx, "Account no longer exists, skipping", log.FieldAccountID, msg.AccountID)
		return nil
	}

	entries, err := w.ExportMonth(ctx, data, acc.ID, msg.Year, msg.Month)
	if err != nil {
		w.logger.ErrorContext(ctx, "Month export failed", fields.WithError(err).ToSlice()...)
		return fmt.Errorf("export %s %s: %w", acc.ID, report.FormatMonth(msg.Year, msg.Month), err)
	}

	if w.sheets != nil && len(entries) > 0 {
		if _, err := w.sheets.AppendEntries(ctx, acc.Name, entries); err != nil {
			w.logger.ErrorContext(ctx, "Sheets append failed", fields.WithError(err).ToSlice()...)
			return fmt.Errorf("append to sheets: %w", err)
		}
	}

	w.logger.InfoContext(ctx, "Ledger month exported",
		log.FieldAccountID, acc.ID,
		log.FieldYear, msg.Year,
		log.FieldMonth, msg.Month+1,
		log.FieldCount, len(entries),
		log.FieldDuration, time.Since(start).Milliseconds(),
	)
	return nil
}

// ExportMonth writes the monthly workbook of one account and returns the
// entries it contains. A month without entries has its workbook removed.
func (w *ExportWorker) ExportMonth(ctx context.Context, data core.AppData, accountID string, year, month int) ([]core.LedgerEntry, error) {
	filter := report.Filter{Type: report.FilterMonth, Month: report.FormatMonth(year, month)}
	summary, entries, err := report.Summarize(data, accountID, filter)
	if err != nil {
		return nil, err
	}

	path := w.MonthPath(accountID, year, month)
	if len(entries) == 0 {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("remove empty month: %w", err)
		}
		w.logger.DebugContext(ctx, "Month has no entries, workbook removed", log.FieldFile, path)
		return nil, nil
	}

	raw, err := export.Excel(entries, summary, export.FilterInfo(filter))
	if err != nil {
		return nil, err
	}
	if err := writeFileAtomic(path, raw); err != nil {
		return nil, err
	}
	return entries, nil
}

func writeFileAtomic(path string, raw []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create export directory: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("replace workbook: %w", err)
	}
	return nil
}

// StartupExport renders every account month whose workbook is missing, to
// recover from messages lost while the worker was down. It returns how
// many workbooks were written.
func (w *ExportWorker) StartupExport(ctx context.Context) (int, error) {
	data := w.docs.Load(ctx)

	type job struct {
		accountID   string
		year, month int
	}
	var jobs []job
	seen := make(map[job]struct{})
	for _, e := range data.LedgerEntries {
		j := job{accountID: e.AccountID, year: e.Date.Year, month: e.Date.MonthIndex()}
		if _, dup := seen[j]; dup {
			continue
		}
		seen[j] = struct{}{}
		if _, err := os.Stat(w.MonthPath(j.accountID, j.year, j.month)); err == nil {
			continue
		}
		jobs = append(jobs, j)
	}

	if len(jobs) == 0 {
		w.logger.InfoContext(ctx, "All ledger months already exported", log.FieldOperation, log.OpStartup)
		return 0, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(startupConcurrency)
	for _, j := range jobs {
		g.Go(func() error {
			_, err := w.ExportMonth(gctx, data, j.accountID, j.year, j.month)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return 0, fmt.Errorf("startup export: %w", err)
	}

	w.logger.InfoContext(ctx, "Startup export completed",
		log.FieldCount, len(jobs),
		log.FieldOperation, log.OpStartup,
	)
	return len(jobs), nil
}
