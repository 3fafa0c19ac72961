package prompt

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/goliatone/go-iacgen/pkg/forminput"
	"github.com/goliatone/go-iacgen/pkg/model"
	"github.com/goliatone/go-iacgen/pkg/validation"
)

const noneLabel = "(none)"

// OptionsProvider supplies the choices of selects whose options are listed
// remotely. *catalog.OptionsFetcher implements it.
type OptionsProvider interface {
	Options(ctx context.Context, field model.Field, values forminput.Values) ([]model.Option, error)
}

// Option configures a Collector.
type Option func(*Collector)

// WithDriver swaps the terminal driver.
func WithDriver(d Driver) Option {
	return func(c *Collector) {
		if d != nil {
			c.driver = d
		}
	}
}

// WithOptionsProvider sets where remote select options come from.
func WithOptionsProvider(p OptionsProvider) Option {
	return func(c *Collector) {
		c.options = p
	}
}

// WithMissingOnly skips top-level fields that already have a value.
func WithMissingOnly(enabled bool) Option {
	return func(c *Collector) {
		c.missingOnly = enabled
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Collector) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// Collector asks for the values of a form.
type Collector struct {
	driver      Driver
	options     OptionsProvider
	missingOnly bool
	logger      *zap.Logger
}

// New returns a collector using the survey driver unless WithDriver is given.
func New(opts ...Option) *Collector {
	c := &Collector{logger: zap.NewNop()}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	if c.driver == nil {
		c.driver = NewSurveyDriver()
	}
	return c
}

// Collect prompts for every field of form. Values already in initial become
// the prompt defaults. The returned values are a new map; initial is not
// modified.
func (c *Collector) Collect(ctx context.Context, form model.FormModel, initial forminput.Values) (forminput.Values, error) {
	out := initial.Clone()
	if out == nil {
		out = forminput.Values{}
	}
	if form.Summary != "" {
		if err := c.driver.Info(ctx, form.Summary); err != nil {
			return nil, err
		}
	}
	for _, field := range form.Fields {
		if c.missingOnly && out[field.Name] != nil {
			continue
		}
		value, err := c.collectField(ctx, field, out[field.Name], out)
		if err != nil {
			return nil, err
		}
		out[field.Name] = value
	}
	return out, nil
}

func (c *Collector) collectFields(ctx context.Context, fields []model.Field, current forminput.Values, root forminput.Values) (forminput.Values, error) {
	out := current.Clone()
	if out == nil {
		out = forminput.Values{}
	}
	for _, field := range fields {
		value, err := c.collectField(ctx, field, out[field.Name], root)
		if err != nil {
			return nil, err
		}
		out[field.Name] = value
	}
	return out, nil
}

func (c *Collector) collectField(ctx context.Context, field model.Field, current any, root forminput.Values) (any, error) {
	if current == nil {
		current = field.Default
	}

	switch field.Type {
	case model.FieldTypeSelect:
		return c.collectSelect(ctx, field, current, root)
	case model.FieldTypeToggle:
		return c.collectToggle(ctx, field, current, root)
	case model.FieldTypeObject:
		nested, _ := current.(forminput.Values)
		if err := c.driver.Info(ctx, label(field)); err != nil {
			return nil, err
		}
		return c.collectFields(ctx, field.Nested, nested, root)
	case model.FieldTypeArray:
		if field.Repeats() {
			return c.collectRows(ctx, field, current, root)
		}
		return c.collectList(ctx, field, current)
	case model.FieldTypeBoolean:
		def, _ := current.(bool)
		return c.driver.Confirm(ctx, ConfirmConfig{
			Message: label(field),
			Default: def,
			Help:    help(field),
		})
	case model.FieldTypeInteger, model.FieldTypeNumber:
		return c.collectNumber(ctx, field, current)
	default:
		return c.collectText(ctx, field, current)
	}
}

func (c *Collector) collectText(ctx context.Context, field model.Field, current any) (any, error) {
	rules := validation.RulesFor(field)
	cfg := InputConfig{
		Message:   label(field),
		Help:      help(field),
		Validator: rules.CheckString,
	}
	if field.Metadata[model.MetadataSecret] == "true" {
		return c.driver.Password(ctx, cfg)
	}
	if current != nil {
		cfg.Default = fmt.Sprint(current)
	} else {
		cfg.Default = field.Placeholder
	}
	text, err := c.driver.Input(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return strings.TrimSpace(text), nil
}

func (c *Collector) collectNumber(ctx context.Context, field model.Field, current any) (any, error) {
	rules := validation.RulesFor(field)
	integer := field.Type == model.FieldTypeInteger
	cfg := InputConfig{
		Message: label(field),
		Help:    help(field),
		Validator: func(text string) error {
			return rules.CheckNumber(text, integer)
		},
	}
	if current != nil {
		cfg.Default = fmt.Sprint(current)
	}
	text, err := c.driver.Input(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return parseNumber(text, integer)
}

func (c *Collector) collectSelect(ctx context.Context, field model.Field, current any, root forminput.Values) (any, error) {
	options := field.Options
	if field.DynamicOptions() {
		if c.options == nil {
			return nil, fmt.Errorf("prompt: %s lists its options remotely but no provider is set", field.Name)
		}
		fetched, err := c.options.Options(ctx, field, root)
		if err != nil {
			return nil, err
		}
		options = fetched
		field.Options = fetched
	}
	if len(options) == 0 {
		return nil, fmt.Errorf("prompt: %s has no options to choose from", field.Name)
	}

	labels := make([]string, 0, len(options)+1)
	for _, opt := range options {
		labels = append(labels, opt.Label)
	}
	if !field.Required {
		labels = append(labels, noneLabel)
	}

	selected := 0
	switch typed := current.(type) {
	case forminput.Option:
		selected = indexOfValue(options, typed.Value)
	case nil:
		if !field.Required {
			selected = len(options)
		}
	default:
		selected = indexOfValue(options, typed)
	}

	idx, err := c.driver.Select(ctx, SelectConfig{
		Message:      label(field),
		Options:      labels,
		DefaultIndex: selected,
		Help:         help(field),
	})
	if err != nil {
		return nil, err
	}
	if idx < 0 || idx >= len(options) {
		return nil, nil
	}
	opt := options[idx]
	return forminput.Option{Label: opt.Label, Value: opt.Value}, nil
}

func (c *Collector) collectToggle(ctx context.Context, field model.Field, current any, root forminput.Values) (any, error) {
	var state forminput.Toggle
	switch typed := current.(type) {
	case forminput.Toggle:
		state = typed
	case bool:
		state.Enabled = typed
	}

	enabled, err := c.driver.Confirm(ctx, ConfirmConfig{
		Message: "Enable " + label(field) + "?",
		Default: state.Enabled,
		Help:    help(field),
	})
	if err != nil {
		return nil, err
	}
	if !enabled {
		return forminput.Off(state.Fields), nil
	}
	group, err := c.collectFields(ctx, field.Nested, state.Fields, root)
	if err != nil {
		return nil, err
	}
	return forminput.On(group), nil
}

// collectRows asks for rows of sub-fields. The first MinimumItems rows are
// mandatory; after that the user decides whether to add another.
func (c *Collector) collectRows(ctx context.Context, field model.Field, current any, root forminput.Values) (any, error) {
	existing, _ := current.([]any)
	rules := validation.RulesFor(field)
	minimum := rules.MinItems

	var rows []any
	for i := 0; ; i++ {
		if rules.MaxItems > 0 && len(rows) >= rules.MaxItems {
			break
		}
		if len(rows) >= minimum {
			more, err := c.driver.Confirm(ctx, ConfirmConfig{
				Message: fmt.Sprintf("Add %s entry #%d?", label(field), i+1),
				Default: i < len(existing),
			})
			if err != nil {
				return nil, err
			}
			if !more {
				break
			}
		}
		if err := c.driver.Info(ctx, fmt.Sprintf("%s #%d", label(field), i+1)); err != nil {
			return nil, err
		}
		var seed forminput.Values
		if i < len(existing) {
			seed, _ = existing[i].(forminput.Values)
		}
		row, err := c.collectFields(ctx, field.Nested, seed, root)
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// collectList asks for a scalar list. Lists with options use a multi-select;
// anything else is entered comma separated.
func (c *Collector) collectList(ctx context.Context, field model.Field, current any) (any, error) {
	rules := validation.RulesFor(field)
	existing, _ := current.([]any)

	if field.Items != nil && len(field.Items.Options) > 0 {
		labels := make([]string, 0, len(field.Items.Options))
		var defaults []int
		for i, opt := range field.Items.Options {
			labels = append(labels, opt.Label)
			for _, item := range existing {
				if matchesOption(opt, item) {
					defaults = append(defaults, i)
				}
			}
		}
		for {
			picked, err := c.driver.MultiSelect(ctx, SelectConfig{
				Message:  label(field),
				Options:  labels,
				Defaults: defaults,
				Help:     help(field),
			})
			if err != nil {
				return nil, err
			}
			if err := rules.CheckArray(len(picked)); err != nil {
				if infoErr := c.driver.Info(ctx, label(field)+" "+err.Error()); infoErr != nil {
					return nil, infoErr
				}
				continue
			}
			out := make([]any, 0, len(picked))
			for _, idx := range picked {
				opt := field.Items.Options[idx]
				out = append(out, forminput.Option{Label: opt.Label, Value: opt.Value})
			}
			return out, nil
		}
	}

	parts := make([]string, 0, len(existing))
	for _, item := range existing {
		parts = append(parts, fmt.Sprint(forminput.Plain(item)))
	}
	text, err := c.driver.Input(ctx, InputConfig{
		Message: label(field) + " (comma separated)",
		Default: strings.Join(parts, ", "),
		Help:    help(field),
		Validator: func(text string) error {
			return rules.CheckArray(len(splitList(text)))
		},
	})
	if err != nil {
		return nil, err
	}

	items := splitList(text)
	out := make([]any, 0, len(items))
	for _, item := range items {
		if field.Items != nil && (field.Items.Type == model.FieldTypeInteger || field.Items.Type == model.FieldTypeNumber) {
			n, err := parseNumber(item, field.Items.Type == model.FieldTypeInteger)
			if err != nil {
				return nil, fmt.Errorf("prompt: %s: %w", field.Name, err)
			}
			out = append(out, n)
			continue
		}
		out = append(out, item)
	}
	return out, nil
}

func parseNumber(text string, integer bool) (any, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}
	if integer {
		n, err := strconv.ParseInt(text, 10, 64)
		if err != nil {
			return nil, errors.New("must be a whole number")
		}
		return n, nil
	}
	n, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return nil, errors.New("must be a number")
	}
	return n, nil
}

func splitList(text string) []string {
	var out []string
	for _, part := range strings.Split(text, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func indexOfValue(options []model.Option, value any) int {
	for i, opt := range options {
		if matchesOption(opt, value) {
			return i
		}
	}
	return 0
}

func matchesOption(opt model.Option, value any) bool {
	if picked, ok := value.(forminput.Option); ok {
		value = picked.Value
	}
	return fmt.Sprint(opt.Value) == fmt.Sprint(value)
}

func label(field model.Field) string {
	text := field.Label
	if text == "" {
		text = field.Name
	}
	if field.Required {
		text += " *"
	}
	return text
}

func help(field model.Field) string {
	if text := field.Metadata[model.MetadataHelp]; text != "" {
		return text
	}
	return field.Description
}
