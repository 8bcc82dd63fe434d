// Package telemetry groups the observability subpackages.
//
//   - logging: slog setup (level, format) from configuration
//   - metrics: Prometheus instrumentation for the generation pipeline
//
// Both are wired in by cmd/tidings; library packages log through the
// process-default slog logger and take an optional metrics collector.
package telemetry
