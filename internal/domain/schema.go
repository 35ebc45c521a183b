package domain

// PropertyType is the declared type of a schema column.
type PropertyType string

const (
	PropertyTypeString  PropertyType = "string"
	PropertyTypeNumber  PropertyType = "number"
	PropertyTypeBoolean PropertyType = "boolean"
	PropertyTypeEnum    PropertyType = "enum"
)

// Property describes one column in a validation schema.
type Property struct {
	Name         string       `json:"name"`
	Type         PropertyType `json:"type"`
	IsRequired   bool         `json:"isRequired"`
	IsUnique     bool         `json:"isUnique"`
	Enum         []string     `json:"enum,omitempty"`
	MinLength    *int         `json:"minLength,omitempty"`
	MaxLength    *int         `json:"maxLength,omitempty"`
	Minimum      *float64     `json:"minimum,omitempty"`
	Maximum      *float64     `json:"maximum,omitempty"`
	Pattern      string       `json:"pattern,omitempty"`
	OrderNumber  *int         `json:"orderNumber,omitempty"`
	HideColumn   bool         `json:"hideColumn,omitempty"`
	FreezeColumn bool         `json:"freezeColumn,omitempty"`
	ErrorMessage string       `json:"errorMessage,omitempty"`
	Description  string       `json:"description,omitempty"`
}

// Schema is the normalized validation schema for one resource type.
type Schema struct {
	Title              string              `json:"title"`
	Properties         map[string]Property `json:"properties"`
	Columns            []string            `json:"columns"`
	Required           []string            `json:"required"`
	Unique             []string            `json:"unique"`
	ColumnsToHide      []string            `json:"columnsToHide"`
	ColumnsToBeFreezed []string            `json:"columnsToBeFreezed"`
	ErrorMessages      map[string]string   `json:"errorMessage"`
}

// IsRequired reports whether column is mandatory.
func (s Schema) IsRequired(column string) bool {
	for _, r := range s.Required {
		if r == column {
			return true
		}
	}
	return false
}
