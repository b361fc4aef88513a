// Package metrics defines the sinks that record planning runs. Sinks such as
// PromSink and InfluxSink live in infra/metrics and register themselves by
// name; NewMetricsSink wraps several configured sinks in a MultiSink.
package metrics
