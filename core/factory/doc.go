// Package factory provides a generic name → constructor registry. It backs
// constraint kinds and metrics sinks, both built from loosely typed
// configuration maps decoded with mapstructure.
package factory
