package catalog

import (
	"errors"
	"fmt"
	"strings"

	"github.com/goliatone/go-iacgen/pkg/client"
	"github.com/goliatone/go-iacgen/pkg/model"
	"github.com/goliatone/go-iacgen/pkg/workflow"
)

// Catalog is a parsed route table.
type Catalog struct {
	Routes []Route `yaml:"routes" json:"routes"`
}

// Route maps a tool to its workflow.
type Route struct {
	ID          string `yaml:"id" json:"id"`
	Path        string `yaml:"path" json:"path"`
	Title       string `yaml:"title" json:"title"`
	Group       string `yaml:"group" json:"group"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`

	// Form declares fields inline. Operation derives them from the OpenAPI
	// document instead; exactly one of the two is set.
	Form      *model.FormModel         `yaml:"form,omitempty" json:"form,omitempty"`
	Operation string                   `yaml:"operation,omitempty" json:"operation,omitempty"`
	Overrides map[string]FieldOverride `yaml:"overrides,omitempty" json:"overrides,omitempty"`

	Mapper      string                `yaml:"mapper,omitempty" json:"mapper,omitempty"`
	Request     client.Target         `yaml:"request" json:"request"`
	Response    workflow.ResponseKind `yaml:"response,omitempty" json:"response,omitempty"`
	OutputField string                `yaml:"output_field,omitempty" json:"output_field,omitempty"`
	Secondary   *SecondaryRoute       `yaml:"secondary,omitempty" json:"secondary,omitempty"`
	Download    *DownloadRoute        `yaml:"download,omitempty" json:"download,omitempty"`
	Filename    string                `yaml:"filename,omitempty" json:"filename,omitempty"`
	ContentType string                `yaml:"content_type,omitempty" json:"content_type,omitempty"`
	Defaults    map[string]any        `yaml:"defaults,omitempty" json:"defaults,omitempty"`
}

// SecondaryRoute configures the multipart exchange of a two-step route.
type SecondaryRoute struct {
	client.Target `yaml:",inline"`
	Field         string `yaml:"field,omitempty" json:"field,omitempty"`
	Filename      string `yaml:"filename,omitempty" json:"filename,omitempty"`
	ContentType   string `yaml:"content_type,omitempty" json:"content_type,omitempty"`
}

// DownloadRoute locates the server side generated folder.
type DownloadRoute struct {
	Service client.Service `yaml:"service,omitempty" json:"service,omitempty"`
	Folder  string         `yaml:"folder" json:"folder"`
	Source  string         `yaml:"source" json:"source"`
}

// FieldOverride adjusts a field of a derived form. Keys of Route.Overrides
// are dotted field paths.
type FieldOverride struct {
	Label    string `yaml:"label,omitempty" json:"label,omitempty"`
	Help     string `yaml:"help,omitempty" json:"help,omitempty"`
	Default  any    `yaml:"default,omitempty" json:"default,omitempty"`
	Required *bool  `yaml:"required,omitempty" json:"required,omitempty"`
	Omit     bool   `yaml:"omit,omitempty" json:"omit,omitempty"`
}

// Validate reports structural problems of a single route.
func (r Route) Validate() error {
	if strings.TrimSpace(r.ID) == "" {
		return errors.New("catalog: route id is required")
	}
	if !strings.HasPrefix(r.Path, "/") {
		return fmt.Errorf("catalog: route %s: path %q must start with /", r.ID, r.Path)
	}
	switch {
	case r.Form == nil && r.Operation == "":
		return fmt.Errorf("catalog: route %s: form or operation is required", r.ID)
	case r.Form != nil && r.Operation != "":
		return fmt.Errorf("catalog: route %s: form and operation are mutually exclusive", r.ID)
	}
	if r.Operation == "" && r.Request.Path == "" {
		return fmt.Errorf("catalog: route %s: request path is required", r.ID)
	}
	return nil
}

func (c *Catalog) merge(other Catalog, origin string) error {
	ids := make(map[string]struct{}, len(c.Routes))
	paths := make(map[string]struct{}, len(c.Routes))
	for _, route := range c.Routes {
		ids[route.ID] = struct{}{}
		paths[route.Path] = struct{}{}
	}
	for _, route := range other.Routes {
		if err := route.Validate(); err != nil {
			return fmt.Errorf("%s: %w", origin, err)
		}
		if _, dup := ids[route.ID]; dup {
			return fmt.Errorf("catalog: %s: duplicate route id %q", origin, route.ID)
		}
		if _, dup := paths[route.Path]; dup {
			return fmt.Errorf("catalog: %s: duplicate route path %q", origin, route.Path)
		}
		ids[route.ID] = struct{}{}
		paths[route.Path] = struct{}{}
		c.Routes = append(c.Routes, route)
	}
	return nil
}
