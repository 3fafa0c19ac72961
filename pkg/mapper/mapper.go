package mapper

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/goliatone/go-iacgen/pkg/forminput"
	"github.com/goliatone/go-iacgen/pkg/model"
)

// Body is the Generation Request Body.
type Body map[string]any

// JSON encodes the body. Keys are emitted in sorted order, so equal bodies
// encode to identical bytes.
func (b Body) JSON() ([]byte, error) {
	return json.Marshal(map[string]any(b))
}

// Mapper converts Form Input into a request body.
type Mapper interface {
	Map(form model.FormModel, in forminput.Values) (Body, error)
}

// Func adapts a function into a Mapper.
type Func func(form model.FormModel, in forminput.Values) (Body, error)

// Map calls the underlying function.
func (fn Func) Map(form model.FormModel, in forminput.Values) (Body, error) {
	return fn(form, in)
}

// FieldError reports a value that cannot be mapped.
type FieldError struct {
	Field   string
	Message string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("mapper: %s: %s", e.Field, e.Message)
}

type defaultMapper struct{}

// Default returns the mapper implementing the generic rules:
//   - a disabled toggle sends its key with a null value; an enabled one sends
//     the mapped group. The toggle flag itself is never sent.
//   - a select option contributes only its value.
//   - arrays keep their order; an empty array is rejected when the field
//     requires at least one entry.
//   - integer and number text is parsed to int64 and float64.
//   - missing values fall back to the field default.
//   - body.key metadata renames a key and body.omit drops the field.
func Default() Mapper {
	return defaultMapper{}
}

func (defaultMapper) Map(form model.FormModel, in forminput.Values) (Body, error) {
	body, err := mapFields(form.Fields, in.Clone(), "")
	if err != nil {
		return nil, err
	}
	return Body(body), nil
}

// WithDefaults wraps m so that fixed keys are added to every body without
// overriding keys produced by m.
func WithDefaults(m Mapper, defaults map[string]any) Mapper {
	if len(defaults) == 0 {
		return m
	}
	fixed := forminput.Values(defaults).Clone()
	return Func(func(form model.FormModel, in forminput.Values) (Body, error) {
		body, err := m.Map(form, in)
		if err != nil {
			return nil, err
		}
		if body == nil {
			body = Body{}
		}
		for key, value := range fixed {
			if _, exists := body[key]; !exists {
				body[key] = forminput.Plain(forminput.CloneValue(value))
			}
		}
		return body, nil
	})
}

func mapFields(fields []model.Field, in forminput.Values, prefix string) (map[string]any, error) {
	out := make(map[string]any, len(fields))
	for _, field := range fields {
		if field.Omitted() {
			continue
		}
		path := joinPath(prefix, field.Name)
		value, present, err := mapField(field, in[field.Name], path)
		if err != nil {
			return nil, err
		}
		if present {
			out[field.WireName()] = value
		}
	}
	return out, nil
}

// mapField returns the wire value of one field and whether the key is sent.
func mapField(field model.Field, value any, path string) (any, bool, error) {
	if isEmpty(value) && field.Type != model.FieldTypeToggle && field.Type != model.FieldTypeArray {
		if field.Default == nil {
			return nil, false, nil
		}
		value = forminput.CloneValue(field.Default)
	}

	switch field.Type {
	case model.FieldTypeToggle:
		return mapToggle(field, value, path)

	case model.FieldTypeSelect:
		switch typed := value.(type) {
		case forminput.Option:
			return forminput.Plain(typed.Value), true, nil
		default:
			if opt, ok := field.OptionByValue(typed); ok {
				return forminput.Plain(opt.Value), true, nil
			}
			return nil, false, &FieldError{Field: path, Message: fmt.Sprintf("%v is not a listed option", typed)}
		}

	case model.FieldTypeObject:
		nested, ok := asValues(value)
		if !ok {
			return nil, false, &FieldError{Field: path, Message: "expected an object"}
		}
		mapped, err := mapFields(field.Nested, nested, path)
		if err != nil {
			return nil, false, err
		}
		return mapped, true, nil

	case model.FieldTypeArray:
		return mapArray(field, value, path)

	case model.FieldTypeInteger:
		n, err := toInt(value)
		if err != nil {
			return nil, false, &FieldError{Field: path, Message: err.Error()}
		}
		return n, true, nil

	case model.FieldTypeNumber:
		f, err := toFloat(value)
		if err != nil {
			return nil, false, &FieldError{Field: path, Message: err.Error()}
		}
		return f, true, nil

	case model.FieldTypeBoolean:
		switch typed := value.(type) {
		case bool:
			return typed, true, nil
		case string:
			parsed, err := strconv.ParseBool(strings.TrimSpace(typed))
			if err != nil {
				return nil, false, &FieldError{Field: path, Message: "expected true or false"}
			}
			return parsed, true, nil
		default:
			return nil, false, &FieldError{Field: path, Message: "expected true or false"}
		}

	default:
		return forminput.Plain(value), true, nil
	}
}

func mapToggle(field model.Field, value any, path string) (any, bool, error) {
	switch typed := value.(type) {
	case forminput.Toggle:
		if !typed.Enabled {
			return nil, true, nil
		}
		mapped, err := mapFields(field.Nested, typed.Fields, path)
		if err != nil {
			return nil, false, err
		}
		return mapped, true, nil
	case nil:
		return nil, true, nil
	case bool:
		if !typed {
			return nil, true, nil
		}
		mapped, err := mapFields(field.Nested, nil, path)
		if err != nil {
			return nil, false, err
		}
		return mapped, true, nil
	default:
		nested, ok := asValues(value)
		if !ok {
			return nil, false, &FieldError{Field: path, Message: "expected a toggle"}
		}
		mapped, err := mapFields(field.Nested, nested, path)
		if err != nil {
			return nil, false, err
		}
		return mapped, true, nil
	}
}

func mapArray(field model.Field, value any, path string) (any, bool, error) {
	if value == nil {
		if existing, ok := field.Default.([]any); ok {
			value = forminput.CloneValue(existing)
		}
	}
	items, ok := value.([]any)
	if !ok && value != nil {
		return nil, false, &FieldError{Field: path, Message: "expected a list"}
	}
	if len(items) == 0 {
		if field.MinimumItems() > 0 {
			return nil, false, &FieldError{Field: path, Message: "needs at least one entry"}
		}
		if value == nil {
			return nil, false, nil
		}
		return []any{}, true, nil
	}

	out := make([]any, 0, len(items))
	for i, item := range items {
		itemPath := path + "." + strconv.Itoa(i)
		if field.Repeats() {
			row, ok := asValues(item)
			if !ok {
				return nil, false, &FieldError{Field: itemPath, Message: "expected an object"}
			}
			mapped, err := mapFields(field.Nested, row, itemPath)
			if err != nil {
				return nil, false, err
			}
			out = append(out, mapped)
			continue
		}
		if field.Items == nil {
			out = append(out, forminput.Plain(item))
			continue
		}
		mapped, present, err := mapField(*field.Items, item, itemPath)
		if err != nil {
			return nil, false, err
		}
		if present {
			out = append(out, mapped)
		}
	}
	return out, true, nil
}

func toInt(value any) (int64, error) {
	switch n := value.(type) {
	case int:
		return int64(n), nil
	case int64:
		return n, nil
	case uint64:
		if n > math.MaxInt64 {
			return 0, fmt.Errorf("%d is out of range", n)
		}
		return int64(n), nil
	case float64:
		if n < math.MinInt64 || n >= math.MaxInt64 {
			return 0, fmt.Errorf("%v is out of range", n)
		}
		if n != math.Trunc(n) {
			return 0, fmt.Errorf("%v is not a whole number", n)
		}
		return int64(n), nil
	case string:
		parsed, err := strconv.ParseInt(strings.TrimSpace(n), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("%q is not a whole number", n)
		}
		return parsed, nil
	default:
		return 0, fmt.Errorf("expected a whole number, got %T", value)
	}
}

func toFloat(value any) (float64, error) {
	switch n := value.(type) {
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case uint64:
		return float64(n), nil
	case float64:
		return n, nil
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, fmt.Errorf("%q is not a number", n)
		}
		return parsed, nil
	default:
		return 0, fmt.Errorf("expected a number, got %T", value)
	}
}

func isEmpty(value any) bool {
	switch typed := value.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(typed) == ""
	default:
		return false
	}
}

func asValues(value any) (forminput.Values, bool) {
	switch typed := value.(type) {
	case forminput.Values:
		return typed, true
	case map[string]any:
		return typed, true
	case nil:
		return forminput.Values{}, true
	default:
		return nil, false
	}
}

func joinPath(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return prefix + "." + name
}
