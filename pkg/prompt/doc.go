// Package prompt collects form values interactively in the terminal. It walks
// a form model the same way the mapper does and produces the forminput.Values
// the workflow submits: selects answer with an option, toggles ask whether to
// enable their group first and field arrays keep asking for rows until the
// user stops.
//
// The terminal itself sits behind the Driver interface; the default driver
// uses survey.
package prompt
