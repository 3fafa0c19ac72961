package forminput

import "github.com/goliatone/go-iacgen/pkg/model"

// Defaults builds the initial Form Input of a form: field defaults, the
// default option of select fields, disabled toggles holding a draft of their
// group defaults, and arrays pre-filled up to their minimum item count.
func Defaults(form model.FormModel) Values {
	return defaultsFor(form.Fields)
}

func defaultsFor(fields []model.Field) Values {
	out := make(Values, len(fields))
	for _, field := range fields {
		if value, ok := defaultValue(field); ok {
			out[field.Name] = value
		}
	}
	return out
}

func defaultValue(field model.Field) (any, bool) {
	switch field.Type {
	case model.FieldTypeSelect:
		if field.Default == nil {
			return nil, false
		}
		opt, ok := field.OptionByValue(field.Default)
		if !ok {
			return nil, false
		}
		return Option{Label: opt.Label, Value: opt.Value}, true

	case model.FieldTypeToggle:
		draft := defaultsFor(field.Nested)
		if enabled, ok := field.Default.(bool); ok && enabled {
			return On(draft), true
		}
		return Off(draft), true

	case model.FieldTypeObject:
		return defaultsFor(field.Nested), true

	case model.FieldTypeArray:
		if existing, ok := field.Default.([]any); ok {
			return CloneValue(existing), true
		}
		rows := make([]any, 0, field.MinimumItems())
		for i := 0; i < field.MinimumItems(); i++ {
			if field.Repeats() {
				rows = append(rows, defaultsFor(field.Nested))
				continue
			}
			var item any = ""
			if field.Items != nil {
				if value, ok := defaultValue(*field.Items); ok {
					item = value
				}
			}
			rows = append(rows, item)
		}
		return rows, true

	default:
		if field.Default == nil {
			return nil, false
		}
		return CloneValue(field.Default), true
	}
}
