// Package certauthority provides the HTTP client for the external
// certification authority that issues food-safety certificates for users who
// completed the course.
//
// This package is an infrastructure adapter: it translates between the
// domain's CertificationRequest/Certificate values and the authority's JSON
// API without exposing the wire format to the rest of the application.
//
// Transient failures (network errors, 429 and 5xx responses) are retried with
// exponential backoff up to the configured retry count. Every attempt carries
// the same Idempotency-Key header, derived from the completion, so the
// authority can drop duplicates. Other 4xx responses are returned immediately
// as ErrRejected.
package certauthority
