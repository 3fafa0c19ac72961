// Package session holds the signed-in identity. A Manager loads the stored
// session on start, signs in with the OAuth2 device flow, signs out by
// clearing the store and hands out an HTTP client that attaches the token.
//
// There is no package-level session; callers pass the Manager or Session to
// whatever needs it.
package session
