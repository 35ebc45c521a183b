package sheet

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/healthcampaign/project-factory/internal/domain"
	"github.com/healthcampaign/project-factory/internal/localization"
)

// Reserved status columns appended to annotated sheets.
const (
	StatusColumn       = "#status#"
	ErrorDetailsColumn = "#errorDetails#"
)

// AnnotateOptions controls back-filling during annotation.
type AnnotateOptions struct {
	Localizer *localization.Localizer
	// UniqueIdentifierColumn is back-filled from resolved identifiers when the sheet has it.
	UniqueIdentifierColumn string
	UserNameColumn         string
	PasswordColumn         string
	Credentials            []domain.Credential
}

type rowAnnotation struct {
	status   domain.RowStatus
	messages []string
	uid      string
}

// Annotate writes per-row status and error details into the workbook and
// returns the new xlsx bytes. Details naming a sheet go to that sheet; the
// rest go to the sheet identified by sheetKey.
func Annotate(data []byte, sheetKey string, details []domain.SheetErrorDetail, opts AnnotateOptions) ([]byte, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to open xlsx: %w", err)
	}
	defer func() { _ = f.Close() }()

	defaultSheet, err := ResolveSheetName(f, sheetKey, opts.Localizer)
	if err != nil {
		return nil, err
	}

	bySheet := map[string][]domain.SheetErrorDetail{defaultSheet: nil}
	for _, d := range details {
		name := defaultSheet
		if d.SheetName != "" && d.SheetName != GeoJSONSheetName {
			if idx, _ := f.GetSheetIndex(d.SheetName); idx >= 0 {
				name = d.SheetName
			}
		}
		bySheet[name] = append(bySheet[name], d)
	}

	names := make([]string, 0, len(bySheet))
	for name := range bySheet {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		var creds []domain.Credential
		if name == defaultSheet {
			creds = opts.Credentials
		}
		if err := annotateSheet(f, name, bySheet[name], creds, opts); err != nil {
			return nil, err
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write annotated workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func annotateSheet(f *excelize.File, sheetName string, details []domain.SheetErrorDetail, creds []domain.Credential, opts AnnotateOptions) error {
	rows, err := f.GetRows(sheetName)
	if err != nil {
		return fmt.Errorf("failed to read rows from sheet %s: %w", sheetName, err)
	}
	var header []string
	lastUsed := 0
	for i, row := range rows {
		if i == 0 {
			header = row
		}
		if len(row) > lastUsed {
			lastUsed = len(row)
		}
	}

	locate := func(key string, appendIfMissing bool) (int, error) {
		if key == "" {
			return 0, nil
		}
		for i, cell := range header {
			if headerMatches(cell, key, opts.Localizer) {
				return i + 1, nil
			}
		}
		if !appendIfMissing {
			return 0, nil
		}
		lastUsed++
		cell, err := excelize.CoordinatesToCellName(lastUsed, 1)
		if err != nil {
			return 0, err
		}
		if err := f.SetCellStr(sheetName, cell, opts.Localizer.Localize(key)); err != nil {
			return 0, err
		}
		return lastUsed, nil
	}

	uidCol, err := locate(opts.UniqueIdentifierColumn, false)
	if err != nil {
		return err
	}
	var userCol, passCol int
	if len(creds) > 0 {
		if userCol, err = locate(opts.UserNameColumn, true); err != nil {
			return err
		}
		if passCol, err = locate(opts.PasswordColumn, true); err != nil {
			return err
		}
	}
	statusCol, err := locate(StatusColumn, true)
	if err != nil {
		return err
	}
	errorCol, err := locate(ErrorDetailsColumn, true)
	if err != nil {
		return err
	}

	for r := 2; r <= len(rows); r++ {
		if err := setCell(f, sheetName, statusCol, r, ""); err != nil {
			return err
		}
		if err := setCell(f, sheetName, errorCol, r, ""); err != nil {
			return err
		}
	}

	for rowNumber, a := range mergeDetails(details) {
		if rowNumber < 2 {
			continue
		}
		if err := setCell(f, sheetName, statusCol, rowNumber, string(a.status)); err != nil {
			return err
		}
		if err := setCell(f, sheetName, errorCol, rowNumber, strings.Join(a.messages, "; ")); err != nil {
			return err
		}
		if uidCol > 0 && a.uid != "" {
			if err := setCell(f, sheetName, uidCol, rowNumber, a.uid); err != nil {
				return err
			}
		}
	}

	for _, c := range creds {
		if c.RowNumber < 2 {
			continue
		}
		if err := setCell(f, sheetName, userCol, c.RowNumber, c.UserName); err != nil {
			return err
		}
		if err := setCell(f, sheetName, passCol, c.RowNumber, c.Password); err != nil {
			return err
		}
	}
	return nil
}

// mergeDetails folds every entry for a row into one annotation. An error
// status outranks any other; otherwise the latest status wins.
func mergeDetails(details []domain.SheetErrorDetail) map[int]*rowAnnotation {
	merged := make(map[int]*rowAnnotation)
	for _, d := range details {
		a, ok := merged[d.RowNumber]
		if !ok {
			a = &rowAnnotation{}
			merged[d.RowNumber] = a
		}
		if !a.status.IsError() || d.Status.IsError() {
			a.status = d.Status
		}
		if msg := strings.TrimSpace(d.ErrorDetails); msg != "" {
			a.messages = append(a.messages, msg)
		}
		if d.IsUniqueIdentifier && d.UniqueIdentifier != "" {
			a.uid = d.UniqueIdentifier
		}
	}
	return merged
}

func setCell(f *excelize.File, sheetName string, col, row int, value string) error {
	if col <= 0 {
		return nil
	}
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return err
	}
	return f.SetCellStr(sheetName, cell, value)
}

func headerMatches(cell, key string, localizer *localization.Localizer) bool {
	cell = strings.TrimSpace(cell)
	if cell == "" {
		return false
	}
	return strings.EqualFold(cell, key) ||
		strings.EqualFold(cell, localizer.Localize(key)) ||
		localizer.Delocalize(cell) == key
}
