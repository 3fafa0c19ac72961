package validation

import (
	"strconv"
	"strings"

	"github.com/goliatone/go-iacgen/pkg/forminput"
	"github.com/goliatone/go-iacgen/pkg/model"
)

// Issue is one violated rule. Field is the dotted path of the offending
// field, with row indices for arrays (pods.0.name).
type Issue struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Result is the outcome of resolving a form.
type Result struct {
	Issues []Issue `json:"issues,omitempty"`
}

// Valid reports whether no issues were found.
func (r Result) Valid() bool {
	return len(r.Issues) == 0
}

// ByField indexes the issues by field path. The first message wins.
func (r Result) ByField() map[string]string {
	out := make(map[string]string, len(r.Issues))
	for _, issue := range r.Issues {
		if _, exists := out[issue.Field]; !exists {
			out[issue.Field] = issue.Message
		}
	}
	return out
}

// Error carries a failed Result through error returns.
type Error struct {
	Result Result
}

func (e *Error) Error() string {
	parts := make([]string, 0, len(e.Result.Issues))
	for _, issue := range e.Result.Issues {
		parts = append(parts, issue.Field+" "+issue.Message)
	}
	return "validation: " + strings.Join(parts, "; ")
}

// Resolver validates Form Input against a form model.
type Resolver interface {
	Resolve(form model.FormModel, values forminput.Values) Result
}

// ResolverFunc adapts a function into a Resolver.
type ResolverFunc func(model.FormModel, forminput.Values) Result

// Resolve calls the underlying function.
func (fn ResolverFunc) Resolve(form model.FormModel, values forminput.Values) Result {
	return fn(form, values)
}

// SchemaResolver validates input using the constraints declared on the form
// fields. Fields inside a disabled toggle are not checked.
type SchemaResolver struct{}

var _ Resolver = SchemaResolver{}

// Resolve walks every field of form and collects issues.
func (SchemaResolver) Resolve(form model.FormModel, values forminput.Values) Result {
	var result Result
	checkFields(&result, form.Fields, values, "")
	return result
}

func checkFields(result *Result, fields []model.Field, values forminput.Values, prefix string) {
	for _, field := range fields {
		checkField(result, field, values[field.Name], joinPath(prefix, field.Name))
	}
}

func checkField(result *Result, field model.Field, value any, path string) {
	rules := RulesFor(field)
	add := func(message string) {
		result.Issues = append(result.Issues, Issue{Field: path, Message: message})
	}

	switch field.Type {
	case model.FieldTypeSelect:
		opt, ok := value.(forminput.Option)
		if !ok {
			if value != nil {
				add("must be one of the listed options")
			} else if field.Required {
				add("is required")
			}
			return
		}
		if _, known := field.OptionByValue(opt.Value); !known {
			add("must be one of the listed options")
		}

	case model.FieldTypeToggle:
		toggle, ok := value.(forminput.Toggle)
		if !ok {
			if value != nil {
				add("must be enabled or disabled")
			}
			return
		}
		if toggle.Enabled {
			checkFields(result, field.Nested, toggle.Fields, path)
		}

	case model.FieldTypeObject:
		nested, _ := asValues(value)
		checkFields(result, field.Nested, nested, path)

	case model.FieldTypeArray:
		items, ok := value.([]any)
		if !ok && value != nil {
			add("must be a list")
			return
		}
		if err := rules.CheckArray(len(items)); err != nil {
			add(err.Error())
		}
		for i, item := range items {
			itemPath := path + "." + strconv.Itoa(i)
			if field.Repeats() {
				row, _ := asValues(item)
				checkFields(result, field.Nested, row, itemPath)
				continue
			}
			if field.Items != nil {
				checkField(result, *field.Items, item, itemPath)
			}
		}

	case model.FieldTypeInteger, model.FieldTypeNumber:
		if err := rules.CheckNumber(value, field.Type == model.FieldTypeInteger); err != nil {
			add(err.Error())
		}

	case model.FieldTypeBoolean:
		if value == nil {
			return
		}
		if _, ok := value.(bool); !ok {
			add("must be true or false")
		}

	default:
		text, ok := value.(string)
		if !ok && value != nil {
			add("must be text")
			return
		}
		if err := rules.CheckString(text); err != nil {
			add(err.Error())
		}
	}
}

func asValues(value any) (forminput.Values, bool) {
	switch typed := value.(type) {
	case forminput.Values:
		return typed, true
	case map[string]any:
		return typed, true
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
