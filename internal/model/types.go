package model

// FieldType is the simplified enum for form-friendly field kinds.
type FieldType string

const (
	FieldTypeString  FieldType = "string"
	FieldTypeInteger FieldType = "integer"
	FieldTypeNumber  FieldType = "number"
	FieldTypeBoolean FieldType = "boolean"
	FieldTypeSelect  FieldType = "select"
	FieldTypeToggle  FieldType = "toggle"
	FieldTypeArray   FieldType = "array"
	FieldTypeObject  FieldType = "object"
)

const (
	ValidationRuleMin       = "min"
	ValidationRuleMax       = "max"
	ValidationRuleMinLength = "minLength"
	ValidationRuleMaxLength = "maxLength"
	ValidationRulePattern   = "pattern"
	ValidationRuleMinItems  = "minItems"
	ValidationRuleMaxItems  = "maxItems"
)

// Metadata keys understood by the mapper.
const (
	MetadataBodyKey  = "body.key"
	MetadataBodyOmit = "body.omit"
	MetadataSecret   = "cli.secret"
	MetadataHelp     = "cli.help"

	// Options of a select fetched at prompt time: the service to ask and a
	// path template rendered with the values collected so far.
	MetadataOptionsSource = "options.source"
	MetadataOptionsPath   = "options.path"
)

// ValidationRule represents a single validation constraint applied to a field.
// Numeric bounds and length limits encode their threshold in Params["value"]
// while pattern rules keep the expression in Params["pattern"].
type ValidationRule struct {
	Kind   string            `json:"kind" yaml:"kind"`
	Params map[string]string `json:"params,omitempty" yaml:"params,omitempty"`
}

// Option is one choice of a select field. Value is what the generation API
// receives; Label is what the user sees.
type Option struct {
	Label string `json:"label" yaml:"label"`
	Value any    `json:"value" yaml:"value"`
}

// Field models an individual input inside a form.
//
// Select fields list their choices in Options. Toggle fields gate the
// sub-fields in Nested. Array fields either repeat a scalar (Items) or a row
// of sub-fields (Nested).
type Field struct {
	Name        string            `json:"name" yaml:"name"`
	Type        FieldType         `json:"type" yaml:"type"`
	Format      string            `json:"format,omitempty" yaml:"format,omitempty"`
	Required    bool              `json:"required" yaml:"required"`
	Label       string            `json:"label,omitempty" yaml:"label,omitempty"`
	Placeholder string            `json:"placeholder,omitempty" yaml:"placeholder,omitempty"`
	Description string            `json:"description,omitempty" yaml:"description,omitempty"`
	Default     any               `json:"default,omitempty" yaml:"default,omitempty"`
	Options     []Option          `json:"options,omitempty" yaml:"options,omitempty"`
	Nested      []Field           `json:"nested,omitempty" yaml:"nested,omitempty"`
	Items       *Field            `json:"items,omitempty" yaml:"items,omitempty"`
	MinItems    int               `json:"minItems,omitempty" yaml:"min_items,omitempty"`
	MaxItems    int               `json:"maxItems,omitempty" yaml:"max_items,omitempty"`
	Validations []ValidationRule  `json:"validations,omitempty" yaml:"validations,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

// FormModel is the top-level representation of a tool's form.
type FormModel struct {
	OperationID string            `json:"operationId" yaml:"operation_id"`
	Endpoint    string            `json:"endpoint" yaml:"endpoint"`
	Method      string            `json:"method" yaml:"method"`
	Summary     string            `json:"summary,omitempty" yaml:"summary,omitempty"`
	Description string            `json:"description,omitempty" yaml:"description,omitempty"`
	Fields      []Field           `json:"fields" yaml:"fields"`
	Metadata    map[string]string `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

// Field returns the top-level field with the given name.
func (f FormModel) Field(name string) (Field, bool) {
	for _, field := range f.Fields {
		if field.Name == name {
			return field, true
		}
	}
	return Field{}, false
}

// WireName reports the key the field is sent under.
func (f Field) WireName() string {
	if key := f.Metadata[MetadataBodyKey]; key != "" {
		return key
	}
	return f.Name
}

// DynamicOptions reports whether the select options are fetched remotely.
func (f Field) DynamicOptions() bool {
	return f.Metadata[MetadataOptionsPath] != ""
}

// Omitted reports whether the field is UI-only and never sent.
func (f Field) Omitted() bool {
	return f.Metadata[MetadataBodyOmit] == "true"
}

// Repeats reports whether an array field repeats rows of sub-fields rather
// than scalar items.
func (f Field) Repeats() bool {
	return f.Type == FieldTypeArray && len(f.Nested) > 0
}

// MinimumItems returns the minimum number of entries an array field keeps.
// Field arrays always keep their first entry.
func (f Field) MinimumItems() int {
	if f.Type != FieldTypeArray {
		return 0
	}
	if f.MinItems > 0 {
		return f.MinItems
	}
	if f.Repeats() {
		return 1
	}
	if f.Required {
		return 1
	}
	return 0
}

// OptionByValue finds the select option whose value matches.
func (f Field) OptionByValue(value any) (Option, bool) {
	for _, opt := range f.Options {
		if sameValue(opt.Value, value) {
			return opt, true
		}
	}
	return Option{}, false
}

// OptionByLabel finds the select option with the given label.
func (f Field) OptionByLabel(label string) (Option, bool) {
	for _, opt := range f.Options {
		if opt.Label == label {
			return opt, true
		}
	}
	return Option{}, false
}

// Clone returns a deep copy of the form, so decorators can change the copy
// without touching the original.
func (f FormModel) Clone() FormModel {
	out := f
	out.Fields = cloneFields(f.Fields)
	out.Metadata = cloneStrings(f.Metadata)
	return out
}

// Clone returns a deep copy of the field.
func (f Field) Clone() Field {
	out := f
	out.Default = cloneAny(f.Default)
	if f.Options != nil {
		out.Options = make([]Option, len(f.Options))
		for i, opt := range f.Options {
			out.Options[i] = Option{Label: opt.Label, Value: cloneAny(opt.Value)}
		}
	}
	out.Nested = cloneFields(f.Nested)
	if f.Items != nil {
		items := f.Items.Clone()
		out.Items = &items
	}
	if f.Validations != nil {
		out.Validations = make([]ValidationRule, len(f.Validations))
		for i, rule := range f.Validations {
			out.Validations[i] = ValidationRule{Kind: rule.Kind, Params: cloneStrings(rule.Params)}
		}
	}
	out.Metadata = cloneStrings(f.Metadata)
	return out
}

func cloneFields(fields []Field) []Field {
	if fields == nil {
		return nil
	}
	out := make([]Field, len(fields))
	for i, field := range fields {
		out[i] = field.Clone()
	}
	return out
}

func cloneStrings(src map[string]string) map[string]string {
	if src == nil {
		return nil
	}
	out := make(map[string]string, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}

func cloneAny(value any) any {
	switch typed := value.(type) {
	case map[string]any:
		out := make(map[string]any, len(typed))
		for k, v := range typed {
			out[k] = cloneAny(v)
		}
		return out
	case []any:
		out := make([]any, len(typed))
		for i, v := range typed {
			out[i] = cloneAny(v)
		}
		return out
	default:
		return value
	}
}
