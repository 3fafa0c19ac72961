package openapi_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"testing/fstest"
	"time"

	"github.com/goliatone/go-iacgen/internal/openapi/loader"
	"github.com/goliatone/go-iacgen/internal/openapi/parser"
	pkgopenapi "github.com/goliatone/go-iacgen/pkg/openapi"
)

const generatorYAML = `openapi: 3.0.0
info:
  title: Generator
  version: 1.0.0
paths:
  /grafana/mysql:
    post:
      operationId: grafanaMySQL
      requestBody:
        content:
          application/json:
            schema:
              type: object
              required: [name, url]
              properties:
                name: { type: string }
                url: { type: string }
                tls:
                  type: object
                  x-iacgen-toggle: true
                  properties:
                    ca_cert: { type: string }
      responses:
        "200":
          description: ok
          content:
            application/json:
              schema: { type: object }
`

func TestLoaderParserIntegration(t *testing.T) {
	ctx := context.Background()

	tmp := t.TempDir()
	filePath := filepath.Join(tmp, "generator.yaml")
	if err := os.WriteFile(filePath, []byte(generatorYAML), 0o644); err != nil {
		t.Fatalf("write temp fixture: %v", err)
	}

	p := parser.New(pkgopenapi.NewParserOptions())

	fileLoader := loader.New(pkgopenapi.NewLoaderOptions())
	docFile, err := fileLoader.Load(ctx, pkgopenapi.SourceFromFile(filePath))
	if err != nil {
		t.Fatalf("load file: %v", err)
	}
	if _, err := p.Operations(ctx, docFile); err != nil {
		t.Fatalf("parse file document: %v", err)
	}

	fsLoader := loader.New(pkgopenapi.NewLoaderOptions(pkgopenapi.WithFileSystem(fstest.MapFS{
		"specs/generator.yaml": &fstest.MapFile{Data: []byte(generatorYAML)},
	})))
	docFS, err := fsLoader.Load(ctx, pkgopenapi.SourceFromFS("specs/generator.yaml"))
	if err != nil {
		t.Fatalf("load fs: %v", err)
	}
	ops, err := p.Operations(ctx, docFS)
	if err != nil {
		t.Fatalf("parse fs document: %v", err)
	}
	if _, ok := ops["grafanaMySQL"].RequestBody.Properties["tls"]; !ok {
		t.Fatalf("expected tls property")
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/yaml")
		_, _ = w.Write([]byte(generatorYAML))
	}))
	defer server.Close()

	httpLoader := loader.New(pkgopenapi.NewLoaderOptions(pkgopenapi.WithHTTPFallback(time.Second)))
	docHTTP, err := httpLoader.Load(ctx, pkgopenapi.SourceFromURL(server.URL))
	if err != nil {
		t.Fatalf("load http: %v", err)
	}
	if _, err := p.Operations(ctx, docHTTP); err != nil {
		t.Fatalf("parse http document: %v", err)
	}
}

func TestLoaderRejectsURLWithoutHTTP(t *testing.T) {
	l := loader.New(pkgopenapi.NewLoaderOptions())
	if _, err := l.Load(context.Background(), pkgopenapi.SourceFromURL("http://example.invalid/spec.yaml")); err == nil {
		t.Fatalf("expected error when http support is disabled")
	}
}

func TestOperationCacheLoadsOnce(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte(generatorYAML))
	}))
	defer server.Close()

	cache := pkgopenapi.NewOperationCache(
		loader.New(pkgopenapi.NewLoaderOptions(pkgopenapi.WithHTTPFallback(time.Second))),
		parser.New(pkgopenapi.NewParserOptions()),
		time.Minute,
	)
	src := pkgopenapi.SourceFromURL(server.URL)

	for i := 0; i < 3; i++ {
		if _, err := cache.Operations(context.Background(), src); err != nil {
			t.Fatalf("operations: %v", err)
		}
	}
	if got := hits.Load(); got != 1 {
		t.Fatalf("expected one fetch, got %d", got)
	}

	cache.Invalidate(src)
	if _, err := cache.Operations(context.Background(), src); err != nil {
		t.Fatalf("operations after invalidate: %v", err)
	}
	if got := hits.Load(); got != 2 {
		t.Fatalf("expected refetch after invalidate, got %d", got)
	}
}
