// Package validation checks Form Input against its form model before any
// request is made. The SchemaResolver plays the role of a form resolver: it
// reports every violated rule as a per-field Issue instead of stopping at the
// first one.
package validation
