// Package middleware provides the HTTP middleware chain of the API server.
//
// The router installs, in order: RequestID, RealIP, StructuredLogger,
// Recoverer, OTelMiddleware, SecureHeaders, CORS and the RateLimiter.
// Every rejection is rendered as RFC 7807 problem details carrying the
// request's trace_id. Validator wraps validator/v10 for query parameters
// and request structs.
package middleware
