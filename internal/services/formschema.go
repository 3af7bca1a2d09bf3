package services

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"

	"gorm.io/datatypes"
)

// FieldSchema describes one answer field of an indicator form. Enum is
// matched against the raw value; MOVUploadSection tags the evidence section
// answers to this field must be filed under.
type FieldSchema struct {
	Type             string        `json:"type,omitempty"`
	Enum             []interface{} `json:"enum,omitempty"`
	MOVUploadSection string        `json:"mov_upload_section,omitempty"`
}

// FormSchema is the per-indicator answer contract stored on the indicator
// row. A nil or empty schema accepts any payload.
type FormSchema struct {
	Required   []string               `json:"required,omitempty"`
	Properties map[string]FieldSchema `json:"properties,omitempty"`
}

// ParseFormSchema decodes the stored schema JSON. Empty input yields an
// empty schema rather than an error so indicators without a form contract
// still work.
func ParseFormSchema(raw datatypes.JSON) (*FormSchema, error) {
	if len(raw) == 0 {
		return &FormSchema{}, nil
	}
	var fs FormSchema
	if err := json.Unmarshal(raw, &fs); err != nil {
		return nil, fmt.Errorf("parse form schema: %w", err)
	}
	return &fs, nil
}

// MOVSections returns the distinct evidence sections declared across the
// schema's fields, in no particular order.
func (fs *FormSchema) MOVSections() []string {
	if fs == nil || len(fs.Properties) == 0 {
		return nil
	}
	seen := map[string]bool{}
	var out []string
	for _, field := range fs.Properties {
		s := field.MOVUploadSection
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

// Validate checks response data against the schema and returns field-level
// error messages. An empty result means the payload is acceptable.
func (fs *FormSchema) Validate(data map[string]interface{}) []string {
	var errs []string
	if fs == nil {
		return errs
	}
	for _, field := range fs.Required {
		if _, ok := data[field]; !ok {
			errs = append(errs, fmt.Sprintf("Required field '%s' is missing", field))
		}
	}
	for field, value := range data {
		fieldSchema, ok := fs.Properties[field]
		if !ok {
			continue
		}
		errs = append(errs, validateField(field, value, fieldSchema)...)
	}
	return errs
}

func validateField(name string, value interface{}, fieldSchema FieldSchema) []string {
	var errs []string

	switch fieldSchema.Type {
	case "string":
		if _, ok := value.(string); !ok {
			errs = append(errs, fmt.Sprintf("Field '%s' must be a string", name))
		}
	case "number":
		if !isNumber(value) {
			errs = append(errs, fmt.Sprintf("Field '%s' must be a number", name))
		}
	case "boolean":
		if _, ok := value.(bool); !ok {
			errs = append(errs, fmt.Sprintf("Field '%s' must be a boolean", name))
		}
	case "array":
		if value == nil || reflect.TypeOf(value).Kind() != reflect.Slice {
			errs = append(errs, fmt.Sprintf("Field '%s' must be an array", name))
		}
	}

	if len(fieldSchema.Enum) > 0 && !enumContains(fieldSchema.Enum, value) {
		allowed := make([]string, 0, len(fieldSchema.Enum))
		for _, e := range fieldSchema.Enum {
			allowed = append(allowed, fmt.Sprint(e))
		}
		errs = append(errs, fmt.Sprintf("Field '%s' must be one of: %s", name, strings.Join(allowed, ", ")))
	}

	return errs
}

func isNumber(v interface{}) bool {
	switch v.(type) {
	case int, int32, int64, float32, float64, json.Number:
		return true
	default:
		return false
	}
}

func enumContains(enum []interface{}, value interface{}) bool {
	for _, e := range enum {
		if reflect.DeepEqual(e, value) {
			return true
		}
		// JSON decoding yields float64 for every number, so compare
		// numerics by value.
		if isNumber(e) && isNumber(value) && fmt.Sprint(e) == fmt.Sprint(value) {
			return true
		}
	}
	return false
}
