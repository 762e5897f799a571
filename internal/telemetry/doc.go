// Package telemetry wires OpenTelemetry tracing and metrics export for
// thinkd.
//
// When enabled, New installs OTLP trace and metric providers as the otel
// globals, so every package that calls otel.Tracer or otel.Meter exports
// through them. When disabled, the globals stay no-op.
//
//	telemetry:
//	  enabled: true
//	  endpoint: "localhost:4317"
//	  protocol: grpc          # or http/protobuf
//	  sampling:
//	    rate: 1.0
//	  metrics:
//	    enabled: true
//	    export_interval: "15s"
//
// Export failures never stop thinkd. A provider that cannot be built marks
// the instance degraded and is skipped.
//
// Tests install in-memory providers with NewTestTelemetry.
package telemetry
