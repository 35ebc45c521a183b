package domain

import (
	"encoding/json"
	"fmt"
)

const (
	// RowNumberKey marks the 1-based physical row of a record.
	RowNumberKey = "!row#number!"
	// SheetNameKey marks the sheet a record was read from.
	SheetNameKey = "!sheet#name!"
)

// SheetRow is one data row of a workbook keyed by column header.
// Number is the physical row (header is row 1) and never changes once read.
type SheetRow struct {
	Number    int
	SheetName string
	Values    map[string]any
}

// Get returns the value stored under column.
func (r SheetRow) Get(column string) (any, bool) {
	v, ok := r.Values[column]
	return v, ok
}

// String returns the column value rendered as text, or "" when absent.
func (r SheetRow) String(column string) string {
	v, ok := r.Values[column]
	if !ok || v == nil {
		return ""
	}
	return Stringify(v)
}

// MarshalJSON flattens the row with its markers, matching the shape downstream tools expect.
func (r SheetRow) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(r.Values)+2)
	for k, v := range r.Values {
		out[k] = v
	}
	out[RowNumberKey] = r.Number
	if r.SheetName != "" {
		out[SheetNameKey] = r.SheetName
	}
	return json.Marshal(out)
}

// Record is a converted row ready to be sent to or compared with a downstream service.
type Record struct {
	RowNumber int
	Data      map[string]any
}

// Stringify renders scalar cell values the way they appear in a sheet.
func Stringify(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		if val == float64(int64(val)) {
			return fmt.Sprintf("%d", int64(val))
		}
		return fmt.Sprintf("%v", val)
	case bool:
		if val {
			return "true"
		}
		return "false"
	default:
		return fmt.Sprintf("%v", val)
	}
}

// RowStatus is the per-row outcome written into the status file.
type RowStatus string

const (
	RowStatusInvalid        RowStatus = "INVALID"
	RowStatusValid          RowStatus = "VALID"
	RowStatusMismatching    RowStatus = "MISMATCHING"
	RowStatusCreated        RowStatus = "CREATED"
	RowStatusNotCreated     RowStatus = "NOT_CREATED"
	RowStatusPersisterError RowStatus = "PERSISTER_ERROR"
)

// IsError reports whether the status should fail the job.
func (s RowStatus) IsError() bool {
	return s == RowStatusInvalid || s == RowStatusMismatching
}

// SheetErrorDetail is one status/error entry for a physical row.
type SheetErrorDetail struct {
	Status             RowStatus `json:"status"`
	RowNumber          int       `json:"rowNumber"`
	SheetName          string    `json:"sheetName,omitempty"`
	ErrorDetails       string    `json:"errorDetails"`
	IsUniqueIdentifier bool      `json:"isUniqueIdentifier,omitempty"`
	UniqueIdentifier   string    `json:"uniqueIdentifier,omitempty"`
}

// HasRowErrors reports whether any entry carries an error status.
func HasRowErrors(details []SheetErrorDetail) bool {
	for _, d := range details {
		if d.Status.IsError() {
			return true
		}
	}
	return false
}

// Credential is a generated login for a created user row.
type Credential struct {
	RowNumber int    `json:"rowNumber"`
	UserName  string `json:"userName"`
	Password  string `json:"password"`
}
