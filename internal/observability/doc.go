// Package observability builds the service logger and declares the
// Prometheus metrics recorded by the authorization gates, the login flow
// and the user cache.
package observability
