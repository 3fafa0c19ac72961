package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/goliatone/go-iacgen"
	internalmodel "github.com/goliatone/go-iacgen/internal/model"
	"github.com/goliatone/go-iacgen/pkg/catalog"
	pkgopenapi "github.com/goliatone/go-iacgen/pkg/openapi"
)

type violation struct {
	file     string
	location string
	message  string
}

func main() {
	catalogDir := flag.String("catalog", "", "route catalog directory to compile against the documents (default: embedded routes)")
	flag.Usage = func() {
		out := flag.CommandLine.Output()
		fmt.Fprintf(out, "Usage: %s [-catalog dir] [openapi documents...]\n", filepath.Base(os.Args[0]))
		fmt.Fprintf(out, "\nLint OpenAPI documents for unsupported %s extensions and check that the route\ncatalog compiles against them. Without documents the embedded generator document is linted.\n\n", internalmodel.ExtensionNamespace)
		flag.PrintDefaults()
	}
	flag.Parse()

	if !runLint(context.Background(), *catalogDir, flag.Args(), os.Stderr) {
		os.Exit(1)
	}
}

// runLint reports problems to w and returns false when there were any.
func runLint(ctx context.Context, catalogDir string, paths []string, w io.Writer) bool {
	parser := iacgen.NewParser()

	var violations []violation
	if len(paths) == 0 {
		raw, err := fs.ReadFile(catalog.EmbeddedFS(), catalog.DefaultOpenAPIDocument)
		if err != nil {
			fmt.Fprintf(w, "read embedded document: %v\n", err)
			return false
		}
		doc, err := pkgopenapi.NewDocument(pkgopenapi.SourceFromFS(catalog.DefaultOpenAPIDocument), raw)
		if err != nil {
			fmt.Fprintf(w, "lint %s: %v\n", catalog.DefaultOpenAPIDocument, err)
			return false
		}
		linted, err := lintDocument(ctx, parser, doc)
		if err != nil {
			fmt.Fprintf(w, "lint %s: %v\n", catalog.DefaultOpenAPIDocument, err)
			return false
		}
		violations = append(violations, linted...)
		violations = append(violations, compileCatalog(ctx, catalogDir, nil)...)
	}

	for _, path := range paths {
		raw, err := os.ReadFile(path)
		if err != nil {
			fmt.Fprintf(w, "lint %s: %v\n", path, err)
			return false
		}
		src := pkgopenapi.SourceFromFile(path)
		doc, err := pkgopenapi.NewDocument(src, raw)
		if err != nil {
			fmt.Fprintf(w, "lint %s: %v\n", path, err)
			return false
		}
		linted, err := lintDocument(ctx, parser, doc)
		if err != nil {
			fmt.Fprintf(w, "lint %s: %v\n", path, err)
			return false
		}
		violations = append(violations, linted...)
		violations = append(violations, compileCatalog(ctx, catalogDir, src)...)
	}

	if len(violations) == 0 {
		return true
	}
	sort.Slice(violations, func(i, j int) bool {
		if violations[i].file == violations[j].file {
			if violations[i].location == violations[j].location {
				return violations[i].message < violations[j].message
			}
			return violations[i].location < violations[j].location
		}
		return violations[i].file < violations[j].file
	})
	for _, v := range violations {
		fmt.Fprintf(w, "%s: %s -> %s\n", v.file, v.location, v.message)
	}
	return false
}

func compileCatalog(ctx context.Context, dir string, src pkgopenapi.Source) []violation {
	var opts []iacgen.Option
	name := "embedded routes"
	if dir != "" {
		opts = append(opts, iacgen.WithCatalogFS(os.DirFS(dir)))
		name = dir
	}
	if src != nil {
		opts = append(opts, iacgen.WithOpenAPISource(src))
	}
	if _, err := iacgen.Open(ctx, opts...); err != nil {
		return []violation{{file: name, location: "catalog", message: err.Error()}}
	}
	return nil
}

func lintDocument(ctx context.Context, parser pkgopenapi.Parser, doc pkgopenapi.Document) ([]violation, error) {
	operations, err := parser.Operations(ctx, doc)
	if err != nil {
		return nil, fmt.Errorf("parse operations: %w", err)
	}

	ids := make([]string, 0, len(operations))
	for id := range operations {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	file := doc.Location()
	var result []violation
	for _, id := range ids {
		op := operations[id]
		base := []string{"operation", id}
		result = append(result, lintExtensions(file, base, op.Extensions)...)
		result = append(result, lintSchema(file, appendPath(base, "requestBody"), op.RequestBody)...)
	}
	return result, nil
}

func lintSchema(file string, path []string, schema pkgopenapi.Schema) []violation {
	result := lintExtensions(file, path, schema.Extensions)

	keys := make([]string, 0, len(schema.Properties))
	for key := range schema.Properties {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		result = append(result, lintSchema(file, appendPath(path, "properties."+key), schema.Properties[key])...)
	}
	if schema.Items != nil {
		result = append(result, lintSchema(file, appendPath(path, "items"), *schema.Items)...)
	}
	return result
}

// lintExtensions checks the namespace map the parser normalises both the
// nested and the flat extension spelling into.
func lintExtensions(file string, path []string, extensions map[string]any) []violation {
	value, ok := extensions[internalmodel.ExtensionNamespace]
	if !ok {
		return nil
	}
	nested, ok := value.(map[string]any)
	if !ok {
		return []violation{{
			file:     file,
			location: formatLocation(path),
			message:  fmt.Sprintf("%s must be an object, found %T", internalmodel.ExtensionNamespace, value),
		}}
	}

	keys := make([]string, 0, len(nested))
	for key := range nested {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var result []violation
	for _, key := range keys {
		location := formatLocation(appendPath(path, key))
		switch {
		case key == "":
			result = append(result, violation{file: file, location: location, message: "extension key is empty"})
		case !internalmodel.IsAllowedExtensionKey(key):
			result = append(result, violation{
				file:     file,
				location: location,
				message:  fmt.Sprintf("unsupported extension key %q (supported: %s)", key, strings.Join(internalmodel.AllowedExtensionKeys(), ", ")),
			})
		case !internalmodel.ExtensionValueValid(key, nested[key]):
			result = append(result, violation{
				file:     file,
				location: location,
				message:  fmt.Sprintf("unexpected value for %q (got %T)", key, nested[key]),
			})
		}
	}
	return result
}

func appendPath(path []string, segment string) []string {
	next := append([]string(nil), path...)
	next = append(next, segment)
	return next
}

func formatLocation(path []string) string {
	return strings.Join(path, " > ")
}
