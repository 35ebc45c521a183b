package validation

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/healthcampaign/project-factory/internal/domain"
	"github.com/healthcampaign/project-factory/internal/sheet"
)

var maxTarget = decimal.NewFromInt(100000000)

// PrecheckTargets verifies every target sheet carries the code column and at
// least one target column. It runs before any row level validation.
func PrecheckTargets(tables []sheet.Table, codeColumn string) error {
	if len(tables) == 0 {
		return domain.NewAppError(http.StatusBadRequest, domain.CodeValidationError, "No target sheets found",
			"the workbook has no sheet carrying boundary targets")
	}
	var problems []string
	for _, t := range tables {
		if !t.HasColumn(codeColumn) {
			problems = append(problems, fmt.Sprintf("sheet %s has no %q column", t.SheetName, codeColumn))
			continue
		}
		if len(targetColumns(t, codeColumn)) == 0 {
			problems = append(problems, fmt.Sprintf("sheet %s has no target columns", t.SheetName))
		}
	}
	if len(problems) > 0 {
		return domain.NewAppError(http.StatusBadRequest, domain.CodeValidationError, "Target sheets are malformed",
			strings.Join(problems, "; "))
	}
	return nil
}

// ValidateTargets checks every target cell is a whole number within range.
func ValidateTargets(tables []sheet.Table, codeColumn string) Result {
	result := Result{Valid: true}
	for _, t := range tables {
		columns := targetColumns(t, codeColumn)
		for _, row := range t.Rows {
			var messages []string
			for _, column := range columns {
				if msg := checkTarget(row.Values[column], column); msg != "" {
					messages = append(messages, msg)
				}
			}
			if len(messages) > 0 {
				result.Add(RowError{
					RowNumber: row.Number,
					SheetName: t.SheetName,
					Message:   strings.Join(messages, "; "),
				})
			}
		}
	}
	return result
}

func targetColumns(t sheet.Table, codeColumn string) []string {
	var columns []string
	for _, h := range t.Headers {
		if h != codeColumn {
			columns = append(columns, h)
		}
	}
	return columns
}

func checkTarget(v any, column string) string {
	var (
		d   decimal.Decimal
		err error
	)
	switch val := v.(type) {
	case nil:
		return fmt.Sprintf("Target value for %q is missing", column)
	case float64:
		d = decimal.NewFromFloat(val)
	case int:
		d = decimal.NewFromInt(int64(val))
	case string:
		if strings.TrimSpace(val) == "" {
			return fmt.Sprintf("Target value for %q is missing", column)
		}
		d, err = decimal.NewFromString(strings.TrimSpace(val))
	default:
		err = fmt.Errorf("unsupported value %v", v)
	}
	if err != nil {
		return fmt.Sprintf("Target value for %q must be a number", column)
	}
	if !d.IsInteger() {
		return fmt.Sprintf("Target value for %q must be a whole number", column)
	}
	if d.IsNegative() || d.GreaterThan(maxTarget) {
		return fmt.Sprintf("Target value for %q must be between 0 and %s", column, maxTarget.String())
	}
	return ""
}
