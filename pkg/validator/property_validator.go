package validator

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"
)

// FieldType is the declared type of a property.
type FieldType string

const (
	FieldTypeString  FieldType = "string"
	FieldTypeNumber  FieldType = "number"
	FieldTypeInteger FieldType = "integer"
	FieldTypeBoolean FieldType = "boolean"
	FieldTypeEnum    FieldType = "enum"
)

// FieldDefinition represents a field definition for validation
type FieldDefinition struct {
	Type         FieldType `json:"type"`
	Required     bool      `json:"required"`
	Enum         []string  `json:"enum,omitempty"`
	MinLength    *int      `json:"minLength,omitempty"`
	MaxLength    *int      `json:"maxLength,omitempty"`
	Minimum      *float64  `json:"minimum,omitempty"`
	Maximum      *float64  `json:"maximum,omitempty"`
	Pattern      string    `json:"pattern,omitempty"`
	ErrorMessage string    `json:"errorMessage,omitempty"`
}

// ValidationError represents a validation error
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Value   any    `json:"value,omitempty"`
}

// ValidationResult represents the result of validation
type ValidationResult struct {
	IsValid bool              `json:"is_valid"`
	Errors  []ValidationError `json:"errors"`
}

// PropertyValidator checks a flat property bag against field definitions.
// Compiled patterns are cached, so one validator should be reused.
type PropertyValidator struct {
	mu       sync.Mutex
	patterns map[string]*regexp.Regexp
}

// NewPropertyValidator creates a new property validator
func NewPropertyValidator() *PropertyValidator {
	return &PropertyValidator{patterns: make(map[string]*regexp.Regexp)}
}

// ValidateProperties validates properties against field definitions. Fields
// are visited in name order so error output is stable. Properties without a
// definition are ignored.
func (pv *PropertyValidator) ValidateProperties(properties map[string]any, fieldDefinitions map[string]FieldDefinition) ValidationResult {
	result := ValidationResult{IsValid: true, Errors: []ValidationError{}}

	names := make([]string, 0, len(fieldDefinitions))
	for name := range fieldDefinitions {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, fieldName := range names {
		fieldDef := fieldDefinitions[fieldName]
		value, exists := properties[fieldName]

		// Required field missing
		if !exists || isBlank(value) {
			if fieldDef.Required {
				result.IsValid = false
				result.Errors = append(result.Errors, ValidationError{
					Field:   fieldName,
					Message: pick(fieldDef.ErrorMessage, fmt.Sprintf("required field '%s' is missing", fieldName)),
				})
			}
			continue
		}

		if err := pv.validateField(fieldName, value, fieldDef); err != nil {
			result.IsValid = false
			result.Errors = append(result.Errors, ValidationError{
				Field:   fieldName,
				Message: pick(fieldDef.ErrorMessage, err.Error()),
				Value:   value,
			})
		}
	}
	return result
}

func (pv *PropertyValidator) validateField(fieldName string, value any, def FieldDefinition) error {
	switch def.Type {
	case FieldTypeNumber, FieldTypeInteger:
		n, ok := toFloat(value)
		if !ok {
			return fmt.Errorf("field '%s' must be a number, got %v", fieldName, value)
		}
		if def.Type == FieldTypeInteger && n != float64(int64(n)) {
			return fmt.Errorf("field '%s' must be an integer, got %v", fieldName, value)
		}
		if def.Minimum != nil && n < *def.Minimum {
			return fmt.Errorf("field '%s' value %v is less than minimum %v", fieldName, value, *def.Minimum)
		}
		if def.Maximum != nil && n > *def.Maximum {
			return fmt.Errorf("field '%s' value %v is greater than maximum %v", fieldName, value, *def.Maximum)
		}
		return nil
	case FieldTypeBoolean:
		switch v := value.(type) {
		case bool:
			return nil
		case string:
			if _, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
				return nil
			}
		}
		return fmt.Errorf("field '%s' must be a boolean, got %v", fieldName, value)
	case FieldTypeEnum:
		s := toString(value)
		for _, allowed := range def.Enum {
			if s == allowed {
				return nil
			}
		}
		return fmt.Errorf("field '%s' value '%s' must be one of [%s]", fieldName, s, strings.Join(def.Enum, ", "))
	}

	s := toString(value)
	length := len([]rune(s))
	if def.MinLength != nil && length < *def.MinLength {
		return fmt.Errorf("field '%s' length %d is less than minimum %d", fieldName, length, *def.MinLength)
	}
	if def.MaxLength != nil && length > *def.MaxLength {
		return fmt.Errorf("field '%s' length %d is greater than maximum %d", fieldName, length, *def.MaxLength)
	}
	if def.Pattern != "" {
		re, err := pv.compile(def.Pattern)
		if err != nil {
			return fmt.Errorf("field '%s' has an invalid pattern: %v", fieldName, err)
		}
		if !re.MatchString(s) {
			return fmt.Errorf("field '%s' value '%s' does not match pattern '%s'", fieldName, s, def.Pattern)
		}
	}
	return nil
}

func (pv *PropertyValidator) compile(pattern string) (*regexp.Regexp, error) {
	pv.mu.Lock()
	defer pv.mu.Unlock()
	if re, ok := pv.patterns[pattern]; ok {
		return re, nil
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}
	pv.patterns[pattern] = re
	return re, nil
}

func isBlank(value any) bool {
	if value == nil {
		return true
	}
	if s, ok := value.(string); ok {
		return strings.TrimSpace(s) == ""
	}
	return false
}

func toFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case string:
		n, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return n, err == nil
	}
	return 0, false
}

func toString(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case float64:
		if v == float64(int64(v)) {
			return strconv.FormatInt(int64(v), 10)
		}
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	return fmt.Sprint(value)
}

func pick(preferred, fallback string) string {
	if preferred != "" {
		return preferred
	}
	return fallback
}
