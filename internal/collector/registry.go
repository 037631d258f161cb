// Collector registry — process tree collectors and host collectors are
// registered at startup; the scheduler queries the registry once per tick.
package collector

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// Registry manages all registered collectors and orchestrates concurrent collection.
type Registry struct {
	collectors []Collector
	names      map[string]struct{}
	logger     *zap.Logger
}

// NewRegistry creates a new collector registry with the given logger.
func NewRegistry(logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		collectors: make([]Collector, 0),
		names:      make(map[string]struct{}),
		logger:     logger,
	}
}

// Register adds a collector if it's available on the current platform.
// Unavailable collectors are logged and skipped. Names must be unique since
// they key the results of CollectAll.
func (r *Registry) Register(c Collector) error {
	if _, dup := r.names[c.Name()]; dup {
		return fmt.Errorf("collector %q already registered", c.Name())
	}
	if !c.IsAvailable() {
		r.logger.Warn("Collector not available, skipping", zap.String("name", c.Name()))
		return nil
	}
	r.names[c.Name()] = struct{}{}
	r.collectors = append(r.collectors, c)
	r.logger.Info("Registered collector", zap.String("name", c.Name()))
	return nil
}

// CollectAll runs all registered collectors concurrently and returns a map
// of collector name -> result data. Each collector runs in exactly one
// goroutine per call, so callers that serialize CollectAll also serialize
// every collector. Failed collectors are logged and left out of the result.
func (r *Registry) CollectAll(ctx context.Context) map[string]interface{} {
	results := make(map[string]interface{})
	var mu sync.Mutex
	var wg sync.WaitGroup

	for _, c := range r.collectors {
		wg.Add(1)
		go func(col Collector) {
			defer wg.Done()
			data, err := col.Collect(ctx)
			if err != nil {
				r.logger.Error("Collection failed",
					zap.String("collector", col.Name()),
					zap.Error(err))
				return
			}
			mu.Lock()
			results[col.Name()] = data
			mu.Unlock()
		}(c)
	}

	wg.Wait()
	return results
}

// Collectors returns a copy of all registered collectors.
func (r *Registry) Collectors() []Collector {
	result := make([]Collector, len(r.collectors))
	copy(result, r.collectors)
	return result
}
