// Package tracing integrates OpenTelemetry with the fixflow engine so that
// every transition attempt is recorded as a span. All instrumentation is kept
// in a separate package so that applications which do not require tracing
// never install a provider.
package tracing
