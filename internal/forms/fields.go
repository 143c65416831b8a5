package forms

import (
	"fmt"
	"strconv"
	"time"

	"github.com/conduitcms/composer/internal/types"
)

// Canonical wire formats for temporal field types. Dates persist as ISO
// 8601 strings, never locale-formatted.
const (
	DateFormat     = "2006-01-02"
	TimeFormat     = "15:04"
	DateTimeFormat = time.RFC3339
)

// EmptyValue returns the canonical empty representation for a field type.
func EmptyValue(fieldType types.FieldType) any {
	switch fieldType {
	case types.FieldNumber:
		return nil
	case types.FieldToggle:
		return false
	case types.FieldImages:
		return []any{}
	case types.FieldArray:
		return []any{}
	default:
		return ""
	}
}

// IsEmpty reports whether a value is the empty representation for its type.
func IsEmpty(fieldType types.FieldType, value any) bool {
	if value == nil {
		return true
	}
	switch fieldType {
	case types.FieldToggle:
		b, ok := value.(bool)
		return ok && !b
	case types.FieldImages, types.FieldArray:
		switch v := value.(type) {
		case []any:
			return len(v) == 0
		case []string:
			return len(v) == 0
		}
		return false
	case types.FieldNumber:
		return false
	default:
		s, ok := value.(string)
		return ok && s == ""
	}
}

// Normalize coerces a raw value into the field's canonical serialized
// representation, so every type round-trips without precision or format
// loss. Invalid values are rejected rather than silently mangled.
func Normalize(def types.FieldDefinition, value any) (any, error) {
	if value == nil {
		return EmptyValue(def.Type), nil
	}

	switch def.Type {
	case types.FieldNumber:
		return normalizeNumber(def, value)
	case types.FieldToggle:
		if b, ok := value.(bool); ok {
			return b, nil
		}
		return nil, fmt.Errorf("field %s: expected bool, got %T", def.Name, value)
	case types.FieldDate:
		return normalizeTemporal(def.Name, value, DateFormat)
	case types.FieldTime:
		return normalizeTemporal(def.Name, value, TimeFormat)
	case types.FieldDateTime:
		return normalizeTemporal(def.Name, value, DateTimeFormat)
	case types.FieldSelect, types.FieldRadio:
		s, ok := value.(string)
		if !ok {
			return nil, fmt.Errorf("field %s: expected string, got %T", def.Name, value)
		}
		if s == "" || len(def.Options) == 0 {
			return s, nil
		}
		for _, opt := range def.Options {
			if opt.Value == s {
				return s, nil
			}
		}
		return nil, fmt.Errorf("field %s: %q is not a valid option", def.Name, s)
	case types.FieldImages, types.FieldArray:
		if list, ok := value.([]any); ok {
			return list, nil
		}
		return nil, fmt.Errorf("field %s: expected list, got %T", def.Name, value)
	default:
		// text, textarea, richtext, url, media, color all carry strings.
		if s, ok := value.(string); ok {
			return s, nil
		}
		return nil, fmt.Errorf("field %s: expected string, got %T", def.Name, value)
	}
}

func normalizeNumber(def types.FieldDefinition, value any) (any, error) {
	var n float64
	switch v := value.(type) {
	case float64:
		n = v
	case float32:
		n = float64(v)
	case int:
		n = float64(v)
	case int64:
		n = float64(v)
	case string:
		parsed, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, fmt.Errorf("field %s: %q is not a number", def.Name, v)
		}
		n = parsed
	default:
		return nil, fmt.Errorf("field %s: expected number, got %T", def.Name, value)
	}

	if def.Min != nil && n < *def.Min {
		return nil, fmt.Errorf("field %s: %v below minimum %v", def.Name, n, *def.Min)
	}
	if def.Max != nil && n > *def.Max {
		return nil, fmt.Errorf("field %s: %v above maximum %v", def.Name, n, *def.Max)
	}
	return n, nil
}

func normalizeTemporal(name string, value any, layout string) (any, error) {
	s, ok := value.(string)
	if !ok {
		return nil, fmt.Errorf("field %s: expected string, got %T", name, value)
	}
	if s == "" {
		return "", nil
	}
	if _, err := time.Parse(layout, s); err != nil {
		return nil, fmt.Errorf("field %s: %q does not match %s", name, s, layout)
	}
	return s, nil
}
