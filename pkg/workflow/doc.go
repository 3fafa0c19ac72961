// Package workflow runs the generate-and-download sequence for one form:
// validate the input, map it to a request body, call the generation API,
// optionally exchange the result with the template service, then save the
// artifact.
//
// Each Instance owns its state. A second Submit while one is in flight
// returns ErrPending instead of queueing.
package workflow
