// Package iacgen wires the catalog, the OpenAPI stack and the workflow
// engine together. Most callers only need Open to get a compiled route
// registry and NewWorkflow to run one of its routes.
package iacgen

import (
	"context"
	"fmt"
	"io/fs"
	"net/http"
	"time"

	"go.uber.org/zap"

	internalLoader "github.com/goliatone/go-iacgen/internal/openapi/loader"
	internalParser "github.com/goliatone/go-iacgen/internal/openapi/parser"
	"github.com/goliatone/go-iacgen/pkg/catalog"
	"github.com/goliatone/go-iacgen/pkg/mapper"
	"github.com/goliatone/go-iacgen/pkg/model"
	pkgopenapi "github.com/goliatone/go-iacgen/pkg/openapi"
	"github.com/goliatone/go-iacgen/pkg/workflow"
)

// NewLoader constructs a loader using the internal implementation while keeping
// the concrete type hidden from consumers.
func NewLoader(options ...pkgopenapi.LoaderOption) pkgopenapi.Loader {
	cfg := pkgopenapi.NewLoaderOptions(options...)
	return internalLoader.New(cfg)
}

// NewParser constructs a parser backed by the internal implementation.
func NewParser(options ...pkgopenapi.ParserOption) pkgopenapi.Parser {
	cfg := pkgopenapi.NewParserOptions(options...)
	return internalParser.New(cfg)
}

type settings struct {
	catalogFS  fs.FS
	source     pkgopenapi.Source
	httpClient *http.Client
	mappers    *mapper.Registry
	decorators []model.Decorator
	cacheTTL   time.Duration
	logger     *zap.Logger
}

// Option configures Open.
type Option func(*settings)

// WithCatalogFS loads routes from files instead of the embedded table.
func WithCatalogFS(files fs.FS) Option {
	return func(s *settings) {
		s.catalogFS = files
	}
}

// WithOpenAPISource reads operation schemas from src instead of the embedded
// generator document. File and URL sources are supported.
func WithOpenAPISource(src pkgopenapi.Source) Option {
	return func(s *settings) {
		s.source = src
	}
}

// WithHTTPClient is used to fetch URL sources.
func WithHTTPClient(client *http.Client) Option {
	return func(s *settings) {
		s.httpClient = client
	}
}

// WithMappers supplies the mapper registry routes are resolved against.
func WithMappers(reg *mapper.Registry) Option {
	return func(s *settings) {
		s.mappers = reg
	}
}

// WithDecorators appends form decorators applied to every route.
func WithDecorators(decorators ...model.Decorator) Option {
	return func(s *settings) {
		s.decorators = append(s.decorators, decorators...)
	}
}

// WithCacheTTL sets how long parsed OpenAPI operations are reused.
func WithCacheTTL(ttl time.Duration) Option {
	return func(s *settings) {
		s.cacheTTL = ttl
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *settings) {
		s.logger = logger
	}
}

// Open loads the route catalog and compiles it.
func Open(ctx context.Context, options ...Option) (*catalog.Registry, error) {
	cfg := settings{logger: zap.NewNop()}
	for _, opt := range options {
		if opt != nil {
			opt(&cfg)
		}
	}

	var (
		cat *catalog.Catalog
		err error
	)
	if cfg.catalogFS != nil {
		cat, err = catalog.LoadFS(cfg.catalogFS)
	} else {
		cat, err = catalog.LoadEmbedded()
	}
	if err != nil {
		return nil, fmt.Errorf("iacgen: load catalog: %w", err)
	}

	source := cfg.source
	if source == nil {
		source = pkgopenapi.SourceFromFS(catalog.DefaultOpenAPIDocument)
	}
	loaderOpts := []pkgopenapi.LoaderOption{pkgopenapi.WithFileSystem(catalog.EmbeddedFS())}
	if cfg.httpClient != nil {
		loaderOpts = append(loaderOpts, pkgopenapi.WithHTTPClient(cfg.httpClient))
	} else {
		loaderOpts = append(loaderOpts, pkgopenapi.WithHTTPFallback(30*time.Second))
	}

	return catalog.Compile(ctx, cat, catalog.CompileOptions{
		Mappers:    cfg.mappers,
		Operations: pkgopenapi.NewOperationCache(NewLoader(loaderOpts...), NewParser(), cfg.cacheTTL),
		Source:     source,
		Decorators: cfg.decorators,
		Logger:     cfg.logger,
	})
}

// NewWorkflow returns a workflow instance for a compiled route.
func NewWorkflow(entry catalog.Entry, options ...workflow.Option) (*workflow.Instance, error) {
	return workflow.New(entry.Definition, options...)
}
