/*
Package observability exposes Prometheus metrics for render sessions.

A nil *Metrics is valid and records nothing, so components can take metrics
as an optional dependency.
*/
package observability
