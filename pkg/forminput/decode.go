package forminput

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/goliatone/go-iacgen/pkg/model"
)

// Decode converts loosely typed data (a values file, --set flags) into Values
// for form. Select fields accept either an option value or its label. Toggle
// fields accept false/null (disabled), true (enabled with defaults) or an
// object of group values (enabled). Unknown keys are rejected.
func Decode(form model.FormModel, raw map[string]any) (Values, error) {
	values, err := decodeFields(form.Fields, raw, "")
	if err != nil {
		return nil, fmt.Errorf("forminput: %w", err)
	}
	return values, nil
}

func decodeFields(fields []model.Field, raw map[string]any, prefix string) (Values, error) {
	known := make(map[string]model.Field, len(fields))
	for _, field := range fields {
		known[field.Name] = field
	}

	keys := make([]string, 0, len(raw))
	for key := range raw {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	out := make(Values, len(raw))
	for _, key := range keys {
		field, ok := known[key]
		if !ok {
			return nil, fmt.Errorf("unknown field %q", joinPath(prefix, key))
		}
		value, err := decodeValue(field, raw[key], joinPath(prefix, key))
		if err != nil {
			return nil, err
		}
		out[key] = value
	}
	return out, nil
}

func decodeValue(field model.Field, raw any, path string) (any, error) {
	if raw == nil && field.Type != model.FieldTypeToggle {
		return nil, nil
	}

	switch field.Type {
	case model.FieldTypeSelect:
		if opt, ok := field.OptionByValue(raw); ok {
			return Option{Label: opt.Label, Value: opt.Value}, nil
		}
		if label, ok := raw.(string); ok {
			if opt, ok := field.OptionByLabel(label); ok {
				return Option{Label: opt.Label, Value: opt.Value}, nil
			}
		}
		return nil, fmt.Errorf("%s: %v is not one of the allowed options", path, raw)

	case model.FieldTypeToggle:
		switch typed := raw.(type) {
		case nil:
			return Off(nil), nil
		case bool:
			if !typed {
				return Off(nil), nil
			}
			return On(defaultsFor(field.Nested)), nil
		case map[string]any:
			group, err := decodeFields(field.Nested, typed, path)
			if err != nil {
				return nil, err
			}
			return On(group), nil
		case Values:
			group, err := decodeFields(field.Nested, typed, path)
			if err != nil {
				return nil, err
			}
			return On(group), nil
		case Toggle:
			return CloneValue(typed), nil
		default:
			return nil, fmt.Errorf("%s: expected true, false or an object", path)
		}

	case model.FieldTypeObject:
		nested, ok := asMap(raw)
		if !ok {
			return nil, fmt.Errorf("%s: expected an object", path)
		}
		return decodeFields(field.Nested, nested, path)

	case model.FieldTypeArray:
		items, ok := raw.([]any)
		if !ok {
			if str, isString := raw.(string); isString && !field.Repeats() {
				items = splitList(str)
			} else {
				return nil, fmt.Errorf("%s: expected a list", path)
			}
		}
		out := make([]any, 0, len(items))
		for i, item := range items {
			itemPath := path + "." + strconv.Itoa(i)
			if field.Repeats() {
				row, ok := asMap(item)
				if !ok {
					return nil, fmt.Errorf("%s: expected an object", itemPath)
				}
				decoded, err := decodeFields(field.Nested, row, itemPath)
				if err != nil {
					return nil, err
				}
				out = append(out, decoded)
				continue
			}
			if field.Items == nil {
				out = append(out, item)
				continue
			}
			decoded, err := decodeValue(*field.Items, item, itemPath)
			if err != nil {
				return nil, err
			}
			out = append(out, decoded)
		}
		return out, nil

	case model.FieldTypeBoolean:
		switch typed := raw.(type) {
		case bool:
			return typed, nil
		case string:
			parsed, err := strconv.ParseBool(strings.TrimSpace(typed))
			if err != nil {
				return nil, fmt.Errorf("%s: %q is not a boolean", path, typed)
			}
			return parsed, nil
		default:
			return nil, fmt.Errorf("%s: expected a boolean", path)
		}

	case model.FieldTypeInteger, model.FieldTypeNumber:
		switch raw.(type) {
		case string, int, int64, float64, uint64:
			return raw, nil
		default:
			return nil, fmt.Errorf("%s: expected a number", path)
		}

	default:
		switch typed := raw.(type) {
		case string:
			return typed, nil
		case map[string]any, []any:
			return nil, fmt.Errorf("%s: expected a scalar", path)
		default:
			return fmt.Sprint(typed), nil
		}
	}
}

func asMap(raw any) (map[string]any, bool) {
	switch typed := raw.(type) {
	case map[string]any:
		return typed, true
	case Values:
		return typed, true
	default:
		return nil, false
	}
}

func splitList(raw string) []any {
	parts := strings.Split(raw, ",")
	out := make([]any, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func joinPath(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + "." + key
}

// ErrInvalidAssignment reports a malformed --set entry.
var ErrInvalidAssignment = errors.New("forminput: assignment must look like key=value")
