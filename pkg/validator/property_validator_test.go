package validator

import "testing"

func intPtr(v int) *int           { return &v }
func floatPtr(v float64) *float64 { return &v }

func TestPropertyValidatorRequiredField(t *testing.T) {
	v := NewPropertyValidator()

	definitions := map[string]FieldDefinition{
		"Facility Name": {Type: FieldTypeString, Required: true},
	}

	result := v.ValidateProperties(map[string]any{"Facility Name": "   "}, definitions)
	if result.IsValid {
		t.Fatalf("expected required field to reject whitespace value")
	}
	if result.Errors[0].Message != "required field 'Facility Name' is missing" {
		t.Fatalf("unexpected message %q", result.Errors[0].Message)
	}

	result = v.ValidateProperties(map[string]any{"Facility Name": "Alpha", "Extra": 1}, definitions)
	if !result.IsValid {
		t.Fatalf("expected valid result, got errors: %+v", result.Errors)
	}
}

func TestPropertyValidatorNumbersAndEnums(t *testing.T) {
	v := NewPropertyValidator()

	definitions := map[string]FieldDefinition{
		"Capacity": {Type: FieldTypeNumber, Minimum: floatPtr(1), Maximum: floatPtr(100)},
		"Status":   {Type: FieldTypeEnum, Enum: []string{"Permanent", "Temporary"}},
		"Count":    {Type: FieldTypeInteger},
	}

	cases := []struct {
		name  string
		props map[string]any
		valid bool
	}{
		{"within range", map[string]any{"Capacity": float64(50), "Status": "Permanent", "Count": float64(3)}, true},
		{"numeric string", map[string]any{"Capacity": "12"}, true},
		{"below minimum", map[string]any{"Capacity": float64(0)}, false},
		{"above maximum", map[string]any{"Capacity": float64(101)}, false},
		{"not a number", map[string]any{"Capacity": "many"}, false},
		{"bad enum", map[string]any{"Status": "Mobile"}, false},
		{"fractional integer", map[string]any{"Count": 1.5}, false},
	}
	for _, tc := range cases {
		result := v.ValidateProperties(tc.props, definitions)
		if result.IsValid != tc.valid {
			t.Fatalf("%s: expected valid=%v, got errors %+v", tc.name, tc.valid, result.Errors)
		}
	}
}

func TestPropertyValidatorStringRules(t *testing.T) {
	v := NewPropertyValidator()

	definitions := map[string]FieldDefinition{
		"Phone": {Type: FieldTypeString, MinLength: intPtr(10), MaxLength: intPtr(10), Pattern: `^[0-9]+$`},
		"Name":  {Type: FieldTypeString, MaxLength: intPtr(3), ErrorMessage: "name too long"},
	}

	if r := v.ValidateProperties(map[string]any{"Phone": float64(9876543210)}, definitions); !r.IsValid {
		t.Fatalf("expected numeric phone to pass, got %+v", r.Errors)
	}
	if r := v.ValidateProperties(map[string]any{"Phone": "98765abcde"}, definitions); r.IsValid {
		t.Fatalf("expected pattern mismatch")
	}
	r := v.ValidateProperties(map[string]any{"Name": "Alpha"}, definitions)
	if r.IsValid || r.Errors[0].Message != "name too long" {
		t.Fatalf("expected custom error message, got %+v", r.Errors)
	}
}
