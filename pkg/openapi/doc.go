// Package openapi exposes the public contracts for loading the generation
// service's OpenAPI description and extracting its operations. Implementations
// live under internal/openapi to keep kin-openapi out of the public API.
package openapi
