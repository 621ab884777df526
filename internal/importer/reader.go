package importer

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"

	"khata/internal/log"
)

type Format string

const (
	FormatXLSX Format = "xlsx"
	FormatXLS  Format = "xls"
	FormatCSV  Format = "csv"
)

var ErrUnsupportedFormat = errors.New("unsupported file type: expected .xlsx, .xls or .csv")

// FormatFromName picks the reader from a file name's extension.
func FormatFromName(name string) (Format, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".xlsx":
		return FormatXLSX, nil
	case ".xls":
		return FormatXLS, nil
	case ".csv":
		return FormatCSV, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, name)
	}
}

// Rows reads the first sheet of a workbook (or the whole CSV) as strings.
// Spreadsheet cells are read raw, so dates formatted as dates arrive as
// serial numbers.
func Rows(r io.Reader, format Format) ([][]string, error) {
	switch format {
	case FormatXLSX:
		return xlsxRows(r)
	case FormatXLS:
		return xlsRows(r)
	case FormatCSV:
		raw, err := io.ReadAll(r)
		if err != nil {
			return nil, fmt.Errorf("failed to read csv: %w", err)
		}
		var src io.Reader = bytes.NewReader(raw)
		if !utf8.Valid(raw) {
			// Spreadsheet programs on Windows save CSV as cp1252.
			src = transform.NewReader(src, charmap.Windows1252.NewDecoder())
		}
		cr := csv.NewReader(src)
		cr.FieldsPerRecord = -1
		cr.TrimLeadingSpace = true
		rows, err := cr.ReadAll()
		if err != nil {
			return nil, fmt.Errorf("failed to read csv: %w", err)
		}
		return rows, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
}

func xlsxRows(r io.Reader) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open xlsx: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.New("workbook has no sheets")
	}
	rows, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("failed to get rows: %w", err)
	}
	return rows, nil
}

func xlsRows(r io.Reader) ([][]string, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read xls: %w", err)
	}
	book, err := xls.OpenReader(bytes.NewReader(raw), "utf-8")
	if err != nil {
		return nil, fmt.Errorf("failed to open xls: %w", err)
	}
	sheet := book.GetSheet(0)
	if sheet == nil {
		return nil, errors.New("no sheets found")
	}

	rows := make([][]string, 0, int(sheet.MaxRow)+1)
	for i := 0; i <= int(sheet.MaxRow); i++ {
		row := sheet.Row(i)
		if row == nil {
			rows = append(rows, nil)
			continue
		}
		vals := make([]string, row.LastCol())
		for j := row.FirstCol(); j < row.LastCol(); j++ {
			vals[j] = row.Col(j)
		}
		rows = append(rows, vals)
	}
	return rows, nil
}

// Read parses an uploaded file, choosing the reader from its name.
func (im *Importer) Read(ctx context.Context, r io.Reader, name, accountID string) (Result, error) {
	format, err := FormatFromName(name)
	if err != nil {
		return Result{}, err
	}
	rows, err := Rows(r, format)
	if err != nil {
		im.logger.ErrorContext(ctx, "Failed to read import file",
			log.FieldFile, name,
			log.FieldOperation, log.OpImport,
			log.FieldError, err.Error(),
		)
		return Result{}, fmt.Errorf("failed to process %s: %w", name, err)
	}
	return im.Parse(rows, accountID), nil
}

// ReadFile parses a file from disk.
func (im *Importer) ReadFile(ctx context.Context, path, accountID string) (Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return Result{}, fmt.Errorf("failed to open import file: %w", err)
	}
	defer f.Close()
	return im.Read(ctx, f, filepath.Base(path), accountID)
}
