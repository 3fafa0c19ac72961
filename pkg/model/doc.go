// Package model defines the typed form model shared by the catalog, the
// prompt collector, the validator and the body mapper. Builders reside in
// internal/model but return the types defined here.
//
// Fields are one of string, integer, number, boolean, select, toggle, array
// or object. Select fields carry {label, value} options, toggle fields gate a
// group of nested fields, and array fields repeat either a scalar (Items) or
// a row of nested fields (Nested). Validation rules use the canonical
// identifiers min/max, minLength/maxLength, pattern and minItems/maxItems with
// string parameters. OpenAPI properties may carry an `x-iacgen` extension
// (toggle, order, body-key, omit, label, placeholder, help, secret,
// option-labels, min-items) that the builder folds into field metadata.
package model
