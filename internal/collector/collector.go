// Package collector samples process trees and host-level context for the
// treewatch agent. The Collector interface lets both kinds share a Registry.
package collector

import "context"

// Collector is the interface that all collectors must implement.
type Collector interface {
	// Name returns the unique identifier for this collector.
	Name() string

	// Collect gathers the data and returns it.
	// The context allows for cancellation and timeout control.
	Collect(ctx context.Context) (interface{}, error)

	// IsAvailable checks if this collector can run on the current platform.
	// Collectors that return false will not be registered.
	IsAvailable() bool
}
