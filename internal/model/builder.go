package model

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	pkgopenapi "github.com/goliatone/go-iacgen/pkg/openapi"
)

const extensionNamespace = "x-iacgen"

// Extension keys read from the x-iacgen namespace.
const (
	extToggle       = "toggle"
	extOrder        = "order"
	extBodyKey      = "body-key"
	extOmit         = "omit"
	extLabel        = "label"
	extPlaceholder  = "placeholder"
	extHelp         = "help"
	extSecret       = "secret"
	extOptionLabels = "option-labels"
	extMinItems     = "min-items"
	extOptionsFrom  = "options-source"
	extOptionsPath  = "options-path"
)

// Builder converts OpenAPI operations into form models.
type Builder struct {
	opts Options
}

// New creates a Builder with the supplied options.
func New(options Options) *Builder {
	opts := defaultOptions()
	if options.Labeler != nil {
		opts.Labeler = options.Labeler
	}
	return &Builder{opts: opts}
}

// Build transforms an OpenAPI operation into a FormModel. Only the request
// body is considered; properties become fields ordered by x-iacgen order then
// name.
func (b *Builder) Build(op pkgopenapi.Operation) (FormModel, error) {
	if err := validateOperation(op); err != nil {
		return FormModel{}, err
	}

	form := FormModel{
		OperationID: op.ID,
		Endpoint:    op.Path,
		Method:      strings.ToUpper(op.Method),
		Summary:     op.Summary,
		Description: op.Description,
		Metadata:    extensionMetadata(op.Extensions),
	}
	mergeMetadata(&form.Metadata, extensionMetadata(op.RequestBody.Extensions))

	fields, err := b.fieldsFromObject(op.RequestBody)
	if err != nil {
		return FormModel{}, err
	}
	form.Fields = fields
	return form, nil
}

func (b *Builder) fieldsFromObject(schema pkgopenapi.Schema) ([]Field, error) {
	if len(schema.Properties) == 0 {
		return nil, nil
	}
	required := make(map[string]bool, len(schema.Required))
	for _, name := range schema.Required {
		required[name] = true
	}

	names := make([]string, 0, len(schema.Properties))
	for name := range schema.Properties {
		names = append(names, name)
	}
	sort.SliceStable(names, func(i, j int) bool {
		oi, oj := order(schema.Properties[names[i]]), order(schema.Properties[names[j]])
		if oi != oj {
			return oi < oj
		}
		return names[i] < names[j]
	})

	fields := make([]Field, 0, len(names))
	for _, name := range names {
		field, err := b.fieldFromSchema(name, schema.Properties[name], required[name])
		if err != nil {
			return nil, err
		}
		fields = append(fields, field)
	}
	return fields, nil
}

func (b *Builder) fieldFromSchema(name string, schema pkgopenapi.Schema, required bool) (Field, error) {
	ext := namespace(schema.Extensions)

	field := Field{
		Name:        name,
		Type:        mapType(schema.Type),
		Format:      schema.Format,
		Required:    required,
		Label:       b.opts.Labeler(name),
		Description: schema.Description,
		Default:     schema.Default,
	}
	if label, ok := ext[extLabel].(string); ok && label != "" {
		field.Label = label
	} else if schema.Title != "" {
		field.Label = schema.Title
	}
	if placeholder, ok := ext[extPlaceholder].(string); ok {
		field.Placeholder = placeholder
	}

	switch {
	case schema.Ref != "" && schema.Type == "" && len(schema.Properties) == 0:
		return Field{}, fmt.Errorf("model builder: field %q references unresolved schema %s", name, schema.Ref)
	case len(schema.Enum) > 0 && schema.Type != "array":
		field.Type = FieldTypeSelect
		field.Options = optionsFromEnum(schema.Enum, ext[extOptionLabels])
	case field.Type == FieldTypeObject:
		nested, err := b.fieldsFromObject(schema)
		if err != nil {
			return Field{}, err
		}
		field.Nested = nested
		if truthy(ext[extToggle]) {
			field.Type = FieldTypeToggle
		}
	case field.Type == FieldTypeArray:
		if schema.Items == nil {
			return Field{}, fmt.Errorf("model builder: array field %q missing items", name)
		}
		if mapType(schema.Items.Type) == FieldTypeObject {
			nested, err := b.fieldsFromObject(*schema.Items)
			if err != nil {
				return Field{}, err
			}
			field.Nested = nested
		} else {
			item, err := b.fieldFromSchema(name, *schema.Items, true)
			if err != nil {
				return Field{}, err
			}
			field.Items = &item
		}
		if schema.MinItems != nil {
			field.MinItems = *schema.MinItems
		}
		if schema.MaxItems != nil {
			field.MaxItems = *schema.MaxItems
		}
		if n, ok := intValue(ext[extMinItems]); ok {
			field.MinItems = n
		}
	}

	applyValidations(&field, schema)
	field.Metadata = fieldMetadata(ext)
	if field.Type == FieldTypeString && field.DynamicOptions() {
		field.Type = FieldTypeSelect
	}
	return field, nil
}

func mapType(schemaType string) FieldType {
	switch schemaType {
	case "integer":
		return FieldTypeInteger
	case "number":
		return FieldTypeNumber
	case "boolean":
		return FieldTypeBoolean
	case "array":
		return FieldTypeArray
	case "object":
		return FieldTypeObject
	default:
		return FieldTypeString
	}
}

func optionsFromEnum(values []any, rawLabels any) []Option {
	labels, _ := rawLabels.(map[string]any)
	options := make([]Option, 0, len(values))
	for _, value := range values {
		key := fmt.Sprint(value)
		label := key
		if custom, ok := labels[key].(string); ok && custom != "" {
			label = custom
		}
		options = append(options, Option{Label: label, Value: value})
	}
	return options
}

func applyValidations(field *Field, schema pkgopenapi.Schema) {
	if schema.Minimum != nil {
		field.Validations = append(field.Validations, valueRule(ValidationRuleMin, formatFloat(*schema.Minimum)))
	}
	if schema.Maximum != nil {
		field.Validations = append(field.Validations, valueRule(ValidationRuleMax, formatFloat(*schema.Maximum)))
	}
	if schema.MinLength != nil {
		field.Validations = append(field.Validations, valueRule(ValidationRuleMinLength, strconv.Itoa(*schema.MinLength)))
	}
	if schema.MaxLength != nil {
		field.Validations = append(field.Validations, valueRule(ValidationRuleMaxLength, strconv.Itoa(*schema.MaxLength)))
	}
	if schema.Pattern != "" {
		field.Validations = append(field.Validations, ValidationRule{
			Kind:   ValidationRulePattern,
			Params: map[string]string{"pattern": schema.Pattern},
		})
	}
}

func valueRule(kind, value string) ValidationRule {
	return ValidationRule{Kind: kind, Params: map[string]string{"value": value}}
}

func formatFloat(value float64) string {
	return strconv.FormatFloat(value, 'f', -1, 64)
}

func namespace(ext map[string]any) map[string]any {
	ns, _ := ext[extensionNamespace].(map[string]any)
	return ns
}

func order(schema pkgopenapi.Schema) int {
	if n, ok := intValue(namespace(schema.Extensions)[extOrder]); ok {
		return n
	}
	return 1 << 20
}

func fieldMetadata(ext map[string]any) map[string]string {
	meta := make(map[string]string)
	if key, ok := ext[extBodyKey].(string); ok && key != "" {
		meta[MetadataBodyKey] = key
	}
	if truthy(ext[extOmit]) {
		meta[MetadataBodyOmit] = "true"
	}
	if truthy(ext[extSecret]) {
		meta[MetadataSecret] = "true"
	}
	if help, ok := ext[extHelp].(string); ok && help != "" {
		meta[MetadataHelp] = help
	}
	if path, ok := ext[extOptionsPath].(string); ok && path != "" {
		meta[MetadataOptionsPath] = path
		meta[MetadataOptionsSource], _ = ext[extOptionsFrom].(string)
	}
	if len(meta) == 0 {
		return nil
	}
	return meta
}

// extensionMetadata flattens scalar namespace entries into string metadata.
func extensionMetadata(ext map[string]any) map[string]string {
	ns := namespace(ext)
	if len(ns) == 0 {
		return nil
	}
	meta := make(map[string]string, len(ns))
	for key, value := range ns {
		switch v := value.(type) {
		case string:
			meta[key] = v
		case bool, float64, int, int64:
			meta[key] = fmt.Sprint(v)
		}
	}
	if len(meta) == 0 {
		return nil
	}
	return meta
}

func mergeMetadata(target *map[string]string, updates map[string]string) {
	if len(updates) == 0 {
		return
	}
	if *target == nil {
		*target = make(map[string]string, len(updates))
	}
	for key, value := range updates {
		(*target)[key] = value
	}
}

func truthy(value any) bool {
	switch v := value.(type) {
	case bool:
		return v
	case string:
		parsed, err := strconv.ParseBool(v)
		return err == nil && parsed
	default:
		return false
	}
}

func intValue(value any) (int, bool) {
	switch v := value.(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	case string:
		n, err := strconv.Atoi(v)
		return n, err == nil
	default:
		return 0, false
	}
}
