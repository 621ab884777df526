package backup

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"khata/internal/core"
)

// ExportDocument renders the whole document as indented JSON.
func ExportDocument(data core.AppData) ([]byte, error) {
	raw, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	return raw, nil
}

// ImportDocument parses a whole-document JSON file. The accounts array is
// required; every other collection may be absent.
func ImportDocument(r io.Reader, now time.Time) (core.AppData, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return core.AppData{}, fmt.Errorf("read document: %w", err)
	}

	var shape map[string]json.RawMessage
	if err := json.Unmarshal(raw, &shape); err != nil {
		return core.AppData{}, fmt.Errorf("%w: %v", core.ErrInvalidDocument, err)
	}
	accounts := bytes.TrimSpace(shape["accounts"])
	if len(accounts) == 0 || accounts[0] != '[' {
		return core.AppData{}, fmt.Errorf("%w: accounts array is missing", core.ErrInvalidDocument)
	}

	var data core.AppData
	if err := json.Unmarshal(raw, &data); err != nil {
		return core.AppData{}, fmt.Errorf("%w: %v", core.ErrInvalidDocument, err)
	}
	return data.Normalize(now), nil
}
