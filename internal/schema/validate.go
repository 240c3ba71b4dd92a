package schema

import (
	"fmt"

	"github.com/spf13/cast"

	"github.com/owenffff/infotransform-engine/internal/apperrors"
)

// Validate checks a decoded JSON value against a schema and returns
// pure-data validation issues — never an exception. When the schema is
// nested, Validate runs per list-element and aggregates row-indexed
// errors (each issue's Path starts with "item", <index>, ...).
func Validate(s *Schema, value interface{}) []apperrors.ValidationIssue {
	obj, ok := value.(map[string]interface{})
	if !ok {
		return []apperrors.ValidationIssue{{
			Path: []interface{}{}, Type: "object_type", Msg: "expected an object", Input: value,
		}}
	}

	var issues []apperrors.ValidationIssue
	for _, f := range s.Fields {
		issues = append(issues, validateField(f, obj[f.Name], []interface{}{f.Name}, obj)...)
	}
	return issues
}

func validateField(f Field, value interface{}, path []interface{}, parent map[string]interface{}) []apperrors.ValidationIssue {
	_, present := parent[f.Name]
	if !present || value == nil {
		if f.Kind == KindOptional || !f.Required {
			return nil
		}
		return []apperrors.ValidationIssue{{Path: path, Type: "missing", Msg: "field is required"}}
	}

	switch f.Kind {
	case KindString:
		if _, err := cast.ToStringE(value); err != nil {
			return []apperrors.ValidationIssue{{Path: path, Type: "string_type", Msg: err.Error(), Input: value}}
		}
	case KindInteger:
		if _, err := cast.ToInt64E(value); err != nil {
			return []apperrors.ValidationIssue{{Path: path, Type: "int_type", Msg: err.Error(), Input: value}}
		}
	case KindNumber:
		if _, err := cast.ToFloat64E(value); err != nil {
			return []apperrors.ValidationIssue{{Path: path, Type: "float_type", Msg: err.Error(), Input: value}}
		}
	case KindBoolean:
		if _, err := cast.ToBoolE(value); err != nil {
			return []apperrors.ValidationIssue{{Path: path, Type: "bool_type", Msg: err.Error(), Input: value}}
		}
	case KindDate, KindDatetime:
		s, err := cast.ToStringE(value)
		if err != nil || s == "" {
			return []apperrors.ValidationIssue{{Path: path, Type: string(f.Kind), Msg: "invalid date/time value", Input: value}}
		}
	case KindEnum:
		s, err := cast.ToStringE(value)
		if err != nil || !contains(f.EnumValues, s) {
			return []apperrors.ValidationIssue{{
				Path: path, Type: "enum",
				Msg:   fmt.Sprintf("value must be one of: %v", f.EnumValues),
				Input: value,
			}}
		}
	case KindOptional:
		inner := Field{Name: f.Name, Kind: f.InnerKind, Required: false, Inner: f.Inner, EnumValues: f.EnumValues}
		return validateField(inner, value, path, parent)
	case KindList:
		items, err := cast.ToSliceE(value)
		if err != nil {
			return []apperrors.ValidationIssue{{Path: path, Type: "list_type", Msg: err.Error(), Input: value}}
		}
		var issues []apperrors.ValidationIssue
		for i, item := range items {
			rowPath := append(append([]interface{}{}, path...), i)
			issues = append(issues, validateRecord(f.Inner, item, rowPath)...)
		}
		return issues
	}
	return nil
}

func validateRecord(s *Schema, value interface{}, path []interface{}) []apperrors.ValidationIssue {
	obj, ok := value.(map[string]interface{})
	if !ok {
		return []apperrors.ValidationIssue{{Path: path, Type: "object_type", Msg: "expected an object", Input: value}}
	}
	var issues []apperrors.ValidationIssue
	for _, f := range s.Fields {
		issues = append(issues, validateField(f, obj[f.Name], append(append([]interface{}{}, path...), f.Name), obj)...)
	}
	return issues
}

func contains(values []string, target string) bool {
	for _, v := range values {
		if v == target {
			return true
		}
	}
	return false
}
