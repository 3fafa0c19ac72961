package forminput

// Values is the in-memory Form Input of one form.
type Values map[string]any

// Option is a selected choice of a select field.
type Option struct {
	Label string `json:"label" yaml:"label"`
	Value any    `json:"value" yaml:"value"`
}

// Toggle is the value of a toggle-gated group. When Enabled is false the
// Fields are a retained draft and carry no meaning for the request body.
type Toggle struct {
	Enabled bool
	Fields  Values
}

// On returns an enabled toggle with the given group values.
func On(fields Values) Toggle {
	return Toggle{Enabled: true, Fields: fields}
}

// Off returns a disabled toggle keeping draft as editable state.
func Off(draft Values) Toggle {
	return Toggle{Enabled: false, Fields: draft}
}

// Clone returns a deep copy of the values.
func (v Values) Clone() Values {
	if v == nil {
		return nil
	}
	out := make(Values, len(v))
	for key, value := range v {
		out[key] = CloneValue(value)
	}
	return out
}

// CloneValue deep-copies a single form value.
func CloneValue(value any) any {
	switch typed := value.(type) {
	case Values:
		return typed.Clone()
	case map[string]any:
		return Values(typed).Clone()
	case []any:
		out := make([]any, len(typed))
		for i, item := range typed {
			out[i] = CloneValue(item)
		}
		return out
	case []string:
		return append([]string(nil), typed...)
	case []Values:
		out := make([]any, len(typed))
		for i, item := range typed {
			out[i] = item.Clone()
		}
		return out
	case Toggle:
		return Toggle{Enabled: typed.Enabled, Fields: typed.Fields.Clone()}
	case Option:
		return Option{Label: typed.Label, Value: CloneValue(typed.Value)}
	default:
		return value
	}
}

// Plain strips form wrappers: options become their value and toggles become
// their group values, or nil when disabled. The result holds only
// JSON-friendly types.
func Plain(value any) any {
	switch typed := value.(type) {
	case Option:
		return Plain(typed.Value)
	case Toggle:
		if !typed.Enabled {
			return nil
		}
		return Plain(typed.Fields)
	case Values:
		out := make(map[string]any, len(typed))
		for key, item := range typed {
			out[key] = Plain(item)
		}
		return out
	case map[string]any:
		return Plain(Values(typed))
	case []any:
		out := make([]any, len(typed))
		for i, item := range typed {
			out[i] = Plain(item)
		}
		return out
	default:
		return value
	}
}
