package services

import (
	"strings"

	"github.com/barangaylink/sglgb-backend/internal/types"
)

var complianceValues = map[string]bool{
	"yes": true,
	"no":  true,
	"na":  true,
}

// EvaluateCompletion decides whether a response counts as complete given its
// indicator's form schema, the answer payload, and the evidence currently
// attached. Only uploaded MOVs should be passed in.
//
// With a required-field list, every required field must carry a compliance
// value (yes/no/na, case-insensitive), and any "yes" answer demands
// evidence: one MOV per declared upload section when the schema names
// sections, otherwise at least one MOV overall. Without a required list the
// check degrades to "payload present, and evidence whenever any field says
// yes".
func EvaluateCompletion(schema *FormSchema, data map[string]interface{}, movs []*types.MOV) bool {
	if len(data) == 0 {
		return false
	}
	if schema == nil {
		schema = &FormSchema{}
	}

	if len(schema.Required) == 0 {
		hasYes := false
		for _, v := range data {
			s, ok := v.(string)
			if !ok {
				continue
			}
			lower := strings.ToLower(s)
			if complianceValues[lower] && lower == "yes" {
				hasYes = true
				break
			}
		}
		if hasYes && len(movs) == 0 {
			return false
		}
		return true
	}

	hasYes := false
	for _, field := range schema.Required {
		v, ok := data[field]
		if !ok {
			return false
		}
		s, isStr := v.(string)
		if !isStr {
			return false
		}
		lower := strings.ToLower(s)
		if !complianceValues[lower] {
			return false
		}
		if lower == "yes" {
			hasYes = true
		}
	}

	if hasYes {
		sections := schema.MOVSections()
		if len(sections) > 0 {
			// Evidence keys embed their section; a section counts as
			// covered when any MOV's storage path mentions it.
			for _, section := range sections {
				covered := false
				for _, m := range movs {
					if m != nil && strings.Contains(m.StoragePath, section) {
						covered = true
						break
					}
				}
				if !covered {
					return false
				}
			}
		} else if len(movs) == 0 {
			return false
		}
	}

	return true
}

// HasYesAnswer reports whether the payload contains any affirmative answer.
// Both string "yes" (any casing) and boolean true count; this is the
// submission gate's notion of a compliance claim.
func HasYesAnswer(data map[string]interface{}) bool {
	for _, v := range data {
		switch t := v.(type) {
		case string:
			if strings.EqualFold(t, "yes") {
				return true
			}
		case bool:
			if t {
				return true
			}
		}
	}
	return false
}
