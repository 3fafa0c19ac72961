package openapi

import "context"

// Parser normalises OpenAPI documents into operation wrappers keyed by
// operationId.
type Parser interface {
	Operations(ctx context.Context, doc Document) (map[string]Operation, error)
}

// ParserOptions exposes parser toggles.
type ParserOptions struct {
	// ResolveReferences controls whether the parser validates the document
	// and resolves $ref pointers eagerly. Defaults to true.
	ResolveReferences bool

	// Methods restricts which HTTP methods are collected. Generation
	// endpoints are POST only, so that is the default.
	Methods []string
}

// ParserOption mutates ParserOptions during construction.
type ParserOption func(*ParserOptions)

// WithReferenceResolution toggles eager reference resolution.
func WithReferenceResolution(enabled bool) ParserOption {
	return func(opts *ParserOptions) {
		opts.ResolveReferences = enabled
	}
}

// WithMethods overrides the collected HTTP methods.
func WithMethods(methods ...string) ParserOption {
	return func(opts *ParserOptions) {
		if len(methods) > 0 {
			opts.Methods = append([]string(nil), methods...)
		}
	}
}

// NewParserOptions applies ParserOption functions and returns the resulting
// configuration.
func NewParserOptions(options ...ParserOption) ParserOptions {
	cfg := ParserOptions{
		ResolveReferences: true,
		Methods:           []string{"POST"},
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(&cfg)
	}
	return cfg
}
