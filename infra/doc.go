// Package infra contains technical adapters such as metrics sinks, loggers
// and error monitoring. These packages should depend only on the interfaces
// defined in the core packages.
package infra
