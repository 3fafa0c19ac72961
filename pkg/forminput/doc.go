// Package forminput holds the values a user enters into a tool form before
// they are mapped to a generation request body.
//
// Values is keyed by field name. Select fields hold an Option, toggle fields
// hold a Toggle, arrays hold []any (scalars, or Values for repeating rows) and
// object fields hold nested Values. Everything else is a scalar as entered:
// numbers may still be text at this stage.
package forminput
