package catalog

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed routes/*.yaml openapi/*.yaml
var embedded embed.FS

// DefaultOpenAPIDocument is the path of the bundled generation API document
// inside EmbeddedFS.
const DefaultOpenAPIDocument = "openapi/generator.yaml"

// EmbeddedFS exposes the bundled route table and OpenAPI document.
func EmbeddedFS() fs.FS {
	return embedded
}

// LoadEmbedded loads the bundled route table.
func LoadEmbedded() (*Catalog, error) {
	sub, err := fs.Sub(embedded, "routes")
	if err != nil {
		return nil, fmt.Errorf("catalog: embedded routes: %w", err)
	}
	return LoadFS(sub)
}

// LoadFS reads every .yaml, .yml and .json file under fsys in lexical order.
// Route ids and paths must be unique across files.
func LoadFS(fsys fs.FS) (*Catalog, error) {
	var files []string
	err := fs.WalkDir(fsys, ".", func(name string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		switch strings.ToLower(path.Ext(name)) {
		case ".yaml", ".yml", ".json":
			files = append(files, name)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("catalog: walk: %w", err)
	}
	sort.Strings(files)

	out := &Catalog{}
	for _, name := range files {
		data, err := fs.ReadFile(fsys, name)
		if err != nil {
			return nil, fmt.Errorf("catalog: read %s: %w", name, err)
		}
		parsed, err := Parse(data)
		if err != nil {
			return nil, fmt.Errorf("catalog: %s: %w", name, err)
		}
		if err := out.merge(*parsed, name); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Parse decodes one route file. JSON is accepted as a YAML subset.
func Parse(data []byte) (*Catalog, error) {
	var out Catalog
	if err := yaml.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
