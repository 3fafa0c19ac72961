package mapper

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/goliatone/go-iacgen/pkg/forminput"
	"github.com/goliatone/go-iacgen/pkg/model"
)

// Names of the built-in mappers.
const (
	NameDefault       = "default"
	NameDockerInstall = "docker-install"
)

// Registry resolves mappers by name. The zero value is not usable; call
// NewRegistry.
type Registry struct {
	mu      sync.RWMutex
	mappers map[string]Mapper
}

// NewRegistry returns a registry preloaded with the built-in mappers.
func NewRegistry() *Registry {
	r := &Registry{mappers: make(map[string]Mapper)}
	r.Register(NameDefault, Default())
	r.Register(NameDockerInstall, DockerInstall())
	return r
}

// Register stores a mapper under name, replacing any existing entry.
func (r *Registry) Register(name string, m Mapper) {
	if r == nil || m == nil {
		return
	}
	key := strings.ToLower(strings.TrimSpace(name))
	r.mu.Lock()
	defer r.mu.Unlock()
	r.mappers[key] = m
}

// Get returns the mapper registered under name. An empty name selects the
// default mapper.
func (r *Registry) Get(name string) (Mapper, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		key = NameDefault
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.mappers[key]
	if !ok {
		return nil, fmt.Errorf("mapper: %q is not registered", name)
	}
	return m, nil
}

// Names lists the registered mapper names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.mappers))
	for name := range r.mappers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DockerInstall maps the Docker install form. The body carries the selected
// os and environment values unchanged; both are required because the
// generator picks the script and the archive name from them.
func DockerInstall() Mapper {
	return Func(func(form model.FormModel, in forminput.Values) (Body, error) {
		body, err := Default().Map(form, in)
		if err != nil {
			return nil, err
		}
		for _, key := range []string{"os", "environment"} {
			if value, ok := body[key].(string); !ok || strings.TrimSpace(value) == "" {
				return nil, &FieldError{Field: key, Message: "is required"}
			}
		}
		return body, nil
	})
}
