package catalog

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/goliatone/go-iacgen/pkg/forminput"
	"github.com/goliatone/go-iacgen/pkg/mapper"
	"github.com/goliatone/go-iacgen/pkg/model"
	"github.com/goliatone/go-iacgen/pkg/openapi"
	"github.com/goliatone/go-iacgen/pkg/workflow"
)

// ErrRouteNotFound is returned by Registry.Lookup for unknown routes.
var ErrRouteNotFound = errors.New("catalog: route not found")

// MetadataFilename is the form metadata key holding a default filename,
// set from the x-iacgen-filename operation extension.
const MetadataFilename = "filename"

// CompileOptions supplies the collaborators Compile needs. Operations and
// Source are only required when a route derives its form from an operation.
type CompileOptions struct {
	Mappers    *mapper.Registry
	Operations *openapi.OperationCache
	Source     openapi.Source
	Builder    model.Builder
	Decorators []model.Decorator
	Logger     *zap.Logger
}

// Entry is a compiled route.
type Entry struct {
	Route      Route
	Definition workflow.Definition
}

// Registry indexes compiled routes by id and path.
type Registry struct {
	entries []Entry
	index   map[string]int
}

// Compile resolves every route into a workflow definition.
func Compile(ctx context.Context, cat *Catalog, opts CompileOptions) (*Registry, error) {
	if cat == nil {
		return nil, errors.New("catalog: catalog is required")
	}
	if opts.Mappers == nil {
		opts.Mappers = mapper.NewRegistry()
	}
	if opts.Builder == nil {
		opts.Builder = model.NewBuilder()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	var operations map[string]openapi.Operation
	reg := &Registry{index: make(map[string]int, len(cat.Routes)*2)}

	for _, route := range cat.Routes {
		if err := route.Validate(); err != nil {
			return nil, err
		}

		var form model.FormModel
		if route.Operation != "" {
			if operations == nil {
				ops, err := loadOperations(ctx, opts)
				if err != nil {
					return nil, err
				}
				operations = ops
			}
			op, ok := operations[route.Operation]
			if !ok {
				return nil, fmt.Errorf("catalog: route %s: operation %q not found", route.ID, route.Operation)
			}
			built, err := opts.Builder.Build(op)
			if err != nil {
				return nil, fmt.Errorf("catalog: route %s: %w", route.ID, err)
			}
			form = built
		} else {
			form = route.Form.Clone()
		}

		decorators := opts.Decorators
		if len(route.Overrides) > 0 {
			decorators = append([]model.Decorator{overrideDecorator(route.Overrides)}, decorators...)
		}
		for _, decorator := range decorators {
			if err := decorator.Decorate(&form); err != nil {
				return nil, fmt.Errorf("catalog: route %s: decorate form: %w", route.ID, err)
			}
		}

		def, err := definitionFor(route, form, opts.Mappers)
		if err != nil {
			return nil, err
		}
		if err := def.Validate(); err != nil {
			return nil, fmt.Errorf("catalog: %w", err)
		}

		reg.index[route.ID] = len(reg.entries)
		reg.index[route.Path] = len(reg.entries)
		reg.entries = append(reg.entries, Entry{Route: route, Definition: def})
		opts.Logger.Debug("route compiled",
			zap.String("route", route.ID),
			zap.String("target", def.Primary.String()),
			zap.Int("fields", len(form.Fields)),
		)
	}
	return reg, nil
}

func loadOperations(ctx context.Context, opts CompileOptions) (map[string]openapi.Operation, error) {
	if opts.Operations == nil || opts.Source == nil {
		return nil, errors.New("catalog: an OpenAPI source is required for operation routes")
	}
	ops, err := opts.Operations.Operations(ctx, opts.Source)
	if err != nil {
		return nil, fmt.Errorf("catalog: %w", err)
	}
	return ops, nil
}

func definitionFor(route Route, form model.FormModel, mappers *mapper.Registry) (workflow.Definition, error) {
	m, err := mappers.Get(route.Mapper)
	if err != nil {
		return workflow.Definition{}, fmt.Errorf("catalog: route %s: %w", route.ID, err)
	}

	primary := route.Request
	if primary.Path == "" {
		primary.Path = form.Endpoint
	}
	if primary.Method == "" {
		primary.Method = form.Method
	}

	response := route.Response
	if response == "" {
		response = workflow.ResponseJSON
	}

	filename := route.Filename
	if filename == "" {
		filename = form.Metadata[MetadataFilename]
	}

	def := workflow.Definition{
		ID:          route.ID,
		Title:       route.Title,
		Form:        form,
		Mapper:      m,
		Defaults:    route.Defaults,
		Primary:     primary,
		Response:    response,
		OutputField: route.OutputField,
		Filename:    filename,
		ContentType: route.ContentType,
	}
	if def.Title == "" {
		def.Title = form.Summary
	}
	if route.Secondary != nil {
		def.Secondary = &workflow.Secondary{
			Target:      route.Secondary.Target,
			Field:       route.Secondary.Field,
			Filename:    route.Secondary.Filename,
			ContentType: route.Secondary.ContentType,
		}
	}
	if route.Download != nil {
		def.Download = &workflow.DownloadStep{
			Service: route.Download.Service,
			Folder:  route.Download.Folder,
			Source:  route.Download.Source,
		}
	}
	return def, nil
}

func overrideDecorator(overrides map[string]FieldOverride) model.Decorator {
	return model.DecoratorFunc(func(form *model.FormModel) error {
		paths := make([]string, 0, len(overrides))
		for path := range overrides {
			paths = append(paths, path)
		}
		sort.Strings(paths)

		for _, path := range paths {
			field := findField(form.Fields, strings.Split(path, "."))
			if field == nil {
				return fmt.Errorf("override %q matches no field", path)
			}
			override := overrides[path]
			if override.Label != "" {
				field.Label = override.Label
			}
			if override.Default != nil {
				field.Default = forminput.CloneValue(override.Default)
			}
			if override.Required != nil {
				field.Required = *override.Required
			}
			if override.Help != "" || override.Omit {
				if field.Metadata == nil {
					field.Metadata = make(map[string]string)
				}
				if override.Help != "" {
					field.Metadata[model.MetadataHelp] = override.Help
				}
				if override.Omit {
					field.Metadata[model.MetadataBodyOmit] = "true"
				}
			}
		}
		return nil
	})
}

func findField(fields []model.Field, segments []string) *model.Field {
	for i := range fields {
		if fields[i].Name != segments[0] {
			continue
		}
		if len(segments) == 1 {
			return &fields[i]
		}
		return findField(fields[i].Nested, segments[1:])
	}
	return nil
}

// Lookup finds a route by id or path.
func (r *Registry) Lookup(key string) (Entry, error) {
	if r != nil {
		if i, ok := r.index[strings.TrimSpace(key)]; ok {
			return r.entries[i], nil
		}
	}
	return Entry{}, fmt.Errorf("%w: %s", ErrRouteNotFound, key)
}

// Entries returns the routes in catalog order.
func (r *Registry) Entries() []Entry {
	if r == nil {
		return nil
	}
	return append([]Entry(nil), r.entries...)
}

// Groups lists group names in first-seen order.
func (r *Registry) Groups() []string {
	var groups []string
	seen := make(map[string]struct{})
	for _, entry := range r.Entries() {
		if _, ok := seen[entry.Route.Group]; ok {
			continue
		}
		seen[entry.Route.Group] = struct{}{}
		groups = append(groups, entry.Route.Group)
	}
	return groups
}

// InGroup returns the routes of group in catalog order.
func (r *Registry) InGroup(group string) []Entry {
	var out []Entry
	for _, entry := range r.Entries() {
		if strings.EqualFold(entry.Route.Group, group) {
			out = append(out, entry)
		}
	}
	return out
}
