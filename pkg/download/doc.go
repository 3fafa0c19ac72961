// Package download saves generated artifacts. An Executor acquires a
// transient handle from a Sink, triggers the save and always releases the
// handle, even when the save panics.
package download
