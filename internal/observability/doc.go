// Package observability provides structured logging and Prometheus metrics
// for the authentication core.
//
// Loggers are zap-based; request-scoped loggers carry the chi request ID.
// Metrics are registered on a caller-supplied registry so tests can use
// an isolated one.
package observability
