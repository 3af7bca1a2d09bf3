package services

import (
	"sort"
	"strings"
	"testing"

	"gorm.io/datatypes"
)

func TestParseFormSchema(t *testing.T) {
	t.Run("empty_raw_yields_empty_schema", func(t *testing.T) {
		fs, err := ParseFormSchema(nil)
		if err != nil {
			t.Fatalf("ParseFormSchema(nil) error: %v", err)
		}
		if len(fs.Required) != 0 || len(fs.Properties) != 0 {
			t.Fatalf("expected empty schema, got %+v", fs)
		}
	})

	t.Run("full_schema", func(t *testing.T) {
		raw := datatypes.JSON(`{
			"required": ["has_plan"],
			"properties": {
				"has_plan": {"type": "string", "enum": ["yes", "no", "na"], "mov_upload_section": "plan_documents"}
			}
		}`)
		fs, err := ParseFormSchema(raw)
		if err != nil {
			t.Fatalf("ParseFormSchema error: %v", err)
		}
		if len(fs.Required) != 1 || fs.Required[0] != "has_plan" {
			t.Fatalf("required = %v", fs.Required)
		}
		field := fs.Properties["has_plan"]
		if field.MOVUploadSection != "plan_documents" {
			t.Fatalf("mov_upload_section = %q", field.MOVUploadSection)
		}
		if len(field.Enum) != 3 {
			t.Fatalf("enum = %v", field.Enum)
		}
	})

	t.Run("malformed_json", func(t *testing.T) {
		if _, err := ParseFormSchema(datatypes.JSON(`{not json`)); err == nil {
			t.Fatal("expected parse error")
		}
	})
}

func TestFormSchemaMOVSections(t *testing.T) {
	fs := &FormSchema{Properties: map[string]FieldSchema{
		"a": {MOVUploadSection: "plan_documents"},
		"b": {MOVUploadSection: "budget_documents"},
		"c": {MOVUploadSection: "plan_documents"},
		"d": {},
	}}
	sections := fs.MOVSections()
	sort.Strings(sections)
	if len(sections) != 2 || sections[0] != "budget_documents" || sections[1] != "plan_documents" {
		t.Fatalf("MOVSections() = %v", sections)
	}
}

func TestFormSchemaValidate(t *testing.T) {
	fs := &FormSchema{
		Required: []string{"compliant"},
		Properties: map[string]FieldSchema{
			"compliant": {Type: "string", Enum: []interface{}{"yes", "no", "na"}},
			"count":     {Type: "number"},
			"flag":      {Type: "boolean"},
			"items":     {Type: "array"},
		},
	}

	cases := []struct {
		name     string
		data     map[string]interface{}
		wantErrs []string
	}{
		{
			name: "valid_payload",
			data: map[string]interface{}{"compliant": "yes", "count": float64(3), "flag": true, "items": []interface{}{"a"}},
		},
		{
			name:     "missing_required",
			data:     map[string]interface{}{"count": float64(1)},
			wantErrs: []string{"Required field 'compliant' is missing"},
		},
		{
			name:     "wrong_string_type",
			data:     map[string]interface{}{"compliant": float64(5)},
			wantErrs: []string{"Field 'compliant' must be a string", "Field 'compliant' must be one of: yes, no, na"},
		},
		{
			name:     "enum_violation",
			data:     map[string]interface{}{"compliant": "maybe"},
			wantErrs: []string{"Field 'compliant' must be one of: yes, no, na"},
		},
		{
			name:     "wrong_number_type",
			data:     map[string]interface{}{"compliant": "no", "count": "three"},
			wantErrs: []string{"Field 'count' must be a number"},
		},
		{
			name:     "wrong_boolean_type",
			data:     map[string]interface{}{"compliant": "no", "flag": "true"},
			wantErrs: []string{"Field 'flag' must be a boolean"},
		},
		{
			name:     "wrong_array_type",
			data:     map[string]interface{}{"compliant": "no", "items": "a,b"},
			wantErrs: []string{"Field 'items' must be an array"},
		},
		{
			name: "unknown_fields_pass_through",
			data: map[string]interface{}{"compliant": "na", "extra": 42},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			errs := fs.Validate(tc.data)
			if len(errs) != len(tc.wantErrs) {
				t.Fatalf("Validate() = %v, want %v", errs, tc.wantErrs)
			}
			for _, want := range tc.wantErrs {
				found := false
				for _, got := range errs {
					if strings.Contains(got, want) {
						found = true
						break
					}
				}
				if !found {
					t.Fatalf("Validate() = %v, missing %q", errs, want)
				}
			}
		})
	}
}
