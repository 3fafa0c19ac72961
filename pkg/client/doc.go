// Package client talks to the generation API and the external template
// service over HTTP. Each service is addressed by name so that workflow
// definitions can stay independent of deployment URLs.
package client
