package validation

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/sirupsen/logrus"

	"github.com/healthcampaign/project-factory/internal/client"
	"github.com/healthcampaign/project-factory/internal/domain"
	"github.com/healthcampaign/project-factory/internal/logging"
	"github.com/healthcampaign/project-factory/internal/resource"
	"github.com/healthcampaign/project-factory/internal/sheet"
	propvalidator "github.com/healthcampaign/project-factory/pkg/validator"
)

// suggestionDistance is the largest edit distance offered as a header suggestion.
const suggestionDistance = 3

// RowError is one validation failure on a physical row.
type RowError struct {
	RowNumber int
	SheetName string
	Column    string
	Message   string
}

// Result is the outcome of validating one sheet.
type Result struct {
	Valid  bool
	Errors []RowError
}

// Add records err and marks the result invalid.
func (r *Result) Add(err RowError) {
	r.Valid = false
	r.Errors = append(r.Errors, err)
}

// Merge appends every error of other.
func (r *Result) Merge(other Result) {
	for _, e := range other.Errors {
		r.Add(e)
	}
}

// Details converts the errors into INVALID status entries.
func (r Result) Details() []domain.SheetErrorDetail {
	details := make([]domain.SheetErrorDetail, 0, len(r.Errors))
	for _, e := range r.Errors {
		details = append(details, domain.SheetErrorDetail{
			Status:       domain.RowStatusInvalid,
			RowNumber:    e.RowNumber,
			SheetName:    e.SheetName,
			ErrorDetails: e.Message,
		})
	}
	return details
}

// BoundaryValidationConfig enables the hierarchy check on Column.
type BoundaryValidationConfig struct {
	Column        string
	TenantID      string
	HierarchyType string
	RequestInfo   client.RequestInfo
}

// Enabled reports whether a boundary column is configured.
func (c BoundaryValidationConfig) Enabled() bool {
	return c.Column != "" && c.HierarchyType != ""
}

// HierarchyCodes resolves the set of boundary codes in a hierarchy.
type HierarchyCodes interface {
	Codes(ctx context.Context, info client.RequestInfo, tenantID, hierarchyType string) (map[string]bool, error)
}

// Validator checks sheet rows against a schema and the boundary hierarchy.
type Validator struct {
	props     *propvalidator.PropertyValidator
	hierarchy HierarchyCodes
	logger    *logrus.Entry
}

// Option configures a Validator.
type Option func(*Validator)

// WithLogger sets the logger.
func WithLogger(entry *logrus.Entry) Option {
	return func(v *Validator) {
		if entry != nil {
			v.logger = entry
		}
	}
}

// NewValidator builds a Validator. hierarchy may be nil when no boundary
// validation is configured.
func NewValidator(hierarchy HierarchyCodes, opts ...Option) *Validator {
	v := &Validator{
		props:     propvalidator.NewPropertyValidator(),
		hierarchy: hierarchy,
		logger:    logging.Nop(),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Validate runs schema, uniqueness and boundary checks over table. A missing
// required column is a sheet-level failure and is returned as an error.
func (v *Validator) Validate(ctx context.Context, table sheet.Table, schema domain.Schema, bcfg BoundaryValidationConfig) (Result, error) {
	result := Result{Valid: true}

	columns, err := resolveColumns(table, schema, bcfg)
	if err != nil {
		return result, err
	}

	definitions := fieldDefinitions(schema)
	for _, row := range table.Rows {
		values := make(map[string]any, len(definitions))
		for name := range definitions {
			if header, ok := columns[name]; ok {
				if val, ok := row.Values[header]; ok {
					values[name] = val
				}
			}
		}
		res := v.props.ValidateProperties(values, definitions)
		for _, e := range res.Errors {
			result.Add(RowError{RowNumber: row.Number, SheetName: row.SheetName, Column: e.Field, Message: e.Message})
		}
	}

	result.Merge(checkUnique(table.Rows, schema.Unique, columns))

	if bcfg.Enabled() {
		res, err := v.validateBoundaries(ctx, table.Rows, columns[bcfg.Column], bcfg)
		if err != nil {
			return result, err
		}
		result.Merge(res)
	}

	v.logger.WithFields(logrus.Fields{
		"sheet":  table.SheetName,
		"rows":   len(table.Rows),
		"errors": len(result.Errors),
	}).Debug("sheet validated")
	return result, nil
}

func (v *Validator) validateBoundaries(ctx context.Context, rows []domain.SheetRow, header string, bcfg BoundaryValidationConfig) (Result, error) {
	result := Result{Valid: true}
	if v.hierarchy == nil {
		return result, fmt.Errorf("boundary validation configured without a hierarchy source")
	}
	known, err := v.hierarchy.Codes(ctx, bcfg.RequestInfo, bcfg.TenantID, bcfg.HierarchyType)
	if err != nil {
		return result, err
	}
	for _, row := range rows {
		var unknown []string
		for _, code := range resource.SplitCodes(row.Values[header]) {
			if !known[code] {
				unknown = append(unknown, code)
			}
		}
		if len(unknown) > 0 {
			result.Add(RowError{
				RowNumber: row.Number,
				SheetName: row.SheetName,
				Column:    bcfg.Column,
				Message: fmt.Sprintf("Boundary codes %s do not exist in hierarchy %s",
					strings.Join(unknown, ", "), bcfg.HierarchyType),
			})
		}
	}
	return result, nil
}

// resolveColumns maps each schema column to the header carrying it, falling
// back to a case-insensitive match.
func resolveColumns(table sheet.Table, schema domain.Schema, bcfg BoundaryValidationConfig) (map[string]string, error) {
	wanted := append([]string{}, schema.Columns...)
	for _, name := range schema.Required {
		if _, ok := schema.Properties[name]; !ok {
			wanted = append(wanted, name)
		}
	}
	if bcfg.Enabled() {
		wanted = append(wanted, bcfg.Column)
	}

	columns := make(map[string]string, len(wanted))
	var missing []string
	for _, name := range wanted {
		if header, ok := findHeader(table.Headers, name); ok {
			columns[name] = header
			continue
		}
		if schema.IsRequired(name) || (bcfg.Enabled() && name == bcfg.Column) {
			missing = append(missing, describeMissing(name, table.Headers))
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, domain.NewAppError(http.StatusBadRequest, domain.CodeValidationError, "Required columns are missing",
			fmt.Sprintf("sheet %s: %s", table.SheetName, strings.Join(missing, "; ")))
	}
	return columns, nil
}

func findHeader(headers []string, name string) (string, bool) {
	for _, h := range headers {
		if h == name {
			return h, true
		}
	}
	for _, h := range headers {
		if strings.EqualFold(strings.TrimSpace(h), strings.TrimSpace(name)) {
			return h, true
		}
	}
	return "", false
}

func describeMissing(name string, headers []string) string {
	best, bestDistance := "", suggestionDistance+1
	for _, h := range headers {
		d := fuzzy.LevenshteinDistance(strings.ToLower(name), strings.ToLower(h))
		if d < bestDistance {
			best, bestDistance = h, d
		}
	}
	if best != "" {
		return fmt.Sprintf("column %q is missing, did you mean %q?", name, best)
	}
	return fmt.Sprintf("column %q is missing", name)
}

func checkUnique(rows []domain.SheetRow, unique []string, columns map[string]string) Result {
	result := Result{Valid: true}
	for _, name := range unique {
		header, ok := columns[name]
		if !ok {
			continue
		}
		firstSeen := make(map[string]int)
		for _, row := range rows {
			value := strings.TrimSpace(row.String(header))
			if value == "" {
				continue
			}
			if first, dup := firstSeen[value]; dup {
				result.Add(RowError{
					RowNumber: row.Number,
					SheetName: row.SheetName,
					Column:    name,
					Message:   fmt.Sprintf("Duplicate value %q for column %q, first seen at row %d", value, name, first),
				})
				continue
			}
			firstSeen[value] = row.Number
		}
	}
	return result
}

func fieldDefinitions(schema domain.Schema) map[string]propvalidator.FieldDefinition {
	defs := make(map[string]propvalidator.FieldDefinition, len(schema.Properties))
	for name, p := range schema.Properties {
		msg := p.ErrorMessage
		if msg == "" {
			msg = schema.ErrorMessages[name]
		}
		defs[name] = propvalidator.FieldDefinition{
			Type:         fieldType(p.Type),
			Required:     p.IsRequired || schema.IsRequired(name),
			Enum:         p.Enum,
			MinLength:    p.MinLength,
			MaxLength:    p.MaxLength,
			Minimum:      p.Minimum,
			Maximum:      p.Maximum,
			Pattern:      p.Pattern,
			ErrorMessage: msg,
		}
	}
	for _, name := range schema.Required {
		if _, ok := defs[name]; !ok {
			defs[name] = propvalidator.FieldDefinition{Type: propvalidator.FieldTypeString, Required: true}
		}
	}
	return defs
}

func fieldType(t domain.PropertyType) propvalidator.FieldType {
	switch t {
	case domain.PropertyTypeNumber:
		return propvalidator.FieldTypeNumber
	case domain.PropertyTypeBoolean:
		return propvalidator.FieldTypeBoolean
	case domain.PropertyTypeEnum:
		return propvalidator.FieldTypeEnum
	}
	return propvalidator.FieldTypeString
}
