package sheet

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/healthcampaign/project-factory/internal/domain"
	"github.com/healthcampaign/project-factory/internal/localization"
)

// FileFetcher downloads an uploaded file by its file-store id.
type FileFetcher interface {
	Fetch(ctx context.Context, tenantID, fileStoreID string) ([]byte, error)
}

// Table is one parsed sheet: canonical headers in column order plus rows.
type Table struct {
	SheetName string
	Headers   []string
	Rows      []domain.SheetRow
}

// HasColumn reports whether the header row contains column.
func (t Table) HasColumn(column string) bool {
	for _, h := range t.Headers {
		if h == column {
			return true
		}
	}
	return false
}

// TargetOptions controls multi-sheet target reads.
type TargetOptions struct {
	// CodeColumn is the canonical boundary code header; it and every column to its right are kept.
	CodeColumn string
	// SkipSheets lists canonical sheet keys that never carry targets.
	SkipSheets []string
}

// Reader turns uploaded workbooks into row records.
type Reader struct {
	files     FileFetcher
	localizer *localization.Localizer
}

// NewReader builds a Reader.
func NewReader(files FileFetcher, localizer *localization.Localizer) *Reader {
	return &Reader{files: files, localizer: localizer}
}

// ReadSheet downloads fileStoreID and parses the sheet identified by sheetKey.
func (r *Reader) ReadSheet(ctx context.Context, tenantID, fileStoreID, sheetKey string) (Table, error) {
	data, err := r.files.Fetch(ctx, tenantID, fileStoreID)
	if err != nil {
		return Table{}, err
	}
	return ParseWorkbook(data, sheetKey, r.localizer)
}

// ReadTargetSheets downloads fileStoreID and parses every target sheet.
func (r *Reader) ReadTargetSheets(ctx context.Context, tenantID, fileStoreID string, opts TargetOptions) ([]Table, error) {
	data, err := r.files.Fetch(ctx, tenantID, fileStoreID)
	if err != nil {
		return nil, err
	}
	return ParseTargetSheets(data, opts, r.localizer)
}

// ReadGeoJSON downloads fileStoreID and parses it as a feature collection.
func (r *Reader) ReadGeoJSON(ctx context.Context, tenantID, fileStoreID string) (Table, error) {
	data, err := r.files.Fetch(ctx, tenantID, fileStoreID)
	if err != nil {
		return Table{}, err
	}
	return ParseGeoJSON(data, r.localizer)
}

// ResolveSheetName finds the physical sheet for sheetKey. The key matches
// either directly or through its localized display name, ignoring case.
func ResolveSheetName(f *excelize.File, sheetKey string, localizer *localization.Localizer) (string, error) {
	candidates := []string{sheetKey, localizer.Localize(sheetKey)}
	for _, name := range f.GetSheetList() {
		for _, c := range candidates {
			if strings.EqualFold(strings.TrimSpace(name), strings.TrimSpace(c)) {
				return name, nil
			}
		}
	}
	return "", domain.ErrInvalidSheetName(localizer.Localize(sheetKey))
}

// ParseWorkbook parses the sheet identified by sheetKey from an xlsx payload.
func ParseWorkbook(data []byte, sheetKey string, localizer *localization.Localizer) (Table, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return Table{}, fmt.Errorf("failed to open xlsx: %w", err)
	}
	defer func() { _ = f.Close() }()

	name, err := ResolveSheetName(f, sheetKey, localizer)
	if err != nil {
		return Table{}, err
	}
	return readTable(f, name, localizer)
}

// ParseTargetSheets parses every sheet except the skipped ones, keeping only
// the code column and the columns to its right. Sheets without the code
// column are returned untrimmed so structural checks can report them.
func ParseTargetSheets(data []byte, opts TargetOptions, localizer *localization.Localizer) ([]Table, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to open xlsx: %w", err)
	}
	defer func() { _ = f.Close() }()

	skip := make(map[string]bool, len(opts.SkipSheets)*2)
	for _, key := range opts.SkipSheets {
		skip[strings.ToLower(key)] = true
		skip[strings.ToLower(localizer.Localize(key))] = true
	}

	var tables []Table
	for _, name := range f.GetSheetList() {
		if skip[strings.ToLower(strings.TrimSpace(name))] {
			continue
		}
		table, err := readTable(f, name, localizer)
		if err != nil {
			return nil, err
		}
		tables = append(tables, trimToCode(table, opts.CodeColumn))
	}
	if len(tables) == 0 {
		return nil, errors.New("workbook has no target sheets")
	}
	return tables, nil
}

func trimToCode(table Table, codeColumn string) Table {
	idx := -1
	for i, h := range table.Headers {
		if h == codeColumn {
			idx = i
			break
		}
	}
	if idx <= 0 {
		return table
	}
	keep := table.Headers[idx:]
	for i := range table.Rows {
		trimmed := make(map[string]any, len(keep))
		for _, h := range keep {
			if v, ok := table.Rows[i].Values[h]; ok {
				trimmed[h] = v
			}
		}
		table.Rows[i].Values = trimmed
	}
	table.Headers = keep
	return table
}

func readTable(f *excelize.File, sheetName string, localizer *localization.Localizer) (Table, error) {
	rows, err := f.GetRows(sheetName, excelize.Options{RawCellValue: true})
	if err != nil {
		return Table{}, fmt.Errorf("failed to read rows from sheet %s: %w", sheetName, err)
	}
	table := Table{SheetName: sheetName}
	if len(rows) == 0 {
		return table, nil
	}

	// Blank headers keep their slot so column indexes line up; they are skipped when reading values.
	headers := make([]string, len(rows[0]))
	for i, raw := range rows[0] {
		if strings.TrimSpace(raw) == "" {
			continue
		}
		headers[i] = localizer.Delocalize(raw)
	}
	for _, h := range headers {
		if h != "" {
			table.Headers = append(table.Headers, h)
		}
	}

	for idx := 1; idx < len(rows); idx++ {
		values := make(map[string]any)
		for col, raw := range rows[idx] {
			if col >= len(headers) || headers[col] == "" {
				continue
			}
			if strings.TrimSpace(raw) == "" {
				continue
			}
			cell, err := excelize.CoordinatesToCellName(col+1, idx+1)
			if err != nil {
				return Table{}, err
			}
			values[headers[col]] = coerceCell(f, sheetName, cell, raw)
		}
		if len(values) == 0 {
			continue
		}
		table.Rows = append(table.Rows, domain.SheetRow{
			Number:    idx + 1,
			SheetName: sheetName,
			Values:    values,
		})
	}
	return table, nil
}

// coerceCell turns a raw cell value into string, float64 or bool.
func coerceCell(f *excelize.File, sheetName, cell, raw string) any {
	cellType, err := f.GetCellType(sheetName, cell)
	if err != nil {
		return raw
	}
	switch cellType {
	case excelize.CellTypeBool:
		return raw == "1" || strings.EqualFold(raw, "true")
	case excelize.CellTypeSharedString, excelize.CellTypeInlineString, excelize.CellTypeFormula, excelize.CellTypeDate, excelize.CellTypeError:
		return raw
	}
	if n, err := strconv.ParseFloat(strings.TrimSpace(raw), 64); err == nil {
		return n
	}
	return raw
}
