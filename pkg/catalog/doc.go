// Package catalog loads the declarative route table that maps each tool to
// its form, request shape and download step, and compiles it into workflow
// definitions once at startup.
//
// Forms are either declared inline or derived from an operation of the
// generation API's OpenAPI document. A default table ships embedded.
package catalog
