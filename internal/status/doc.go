// Package status serves the health-check endpoint.
//
// GET /health returns a JSON snapshot of the connection state; every
// other path gets a static informational line. Binding failure is the
// one error in the process that is never retried.
package status
