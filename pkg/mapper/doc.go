// Package mapper turns Form Input into the Generation Request Body sent to
// the generation API.
//
// Mapping is pure: the same form and input always produce the same body, the
// input is never mutated, and nothing is cached between calls. The default
// mapper applies the generic rules shared by every tool form; forms with
// bespoke wire shapes register a named Func in a Registry.
package mapper
