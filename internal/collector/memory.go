// Host memory collector — total and used RAM, used to express a tree's
// resident memory as a share of the host.
package collector

import (
	"context"

	"github.com/shirou/gopsutil/v3/mem"
)

// MemoryName is the registry key of the host memory collector.
const MemoryName = "memory"

// MemoryResult holds the collected memory usage data.
type MemoryResult struct {
	Used  uint64 `json:"used"`
	Total uint64 `json:"total"`
}

// Percent returns rss as a percentage of total host memory, or false when
// the total is unknown.
func (m MemoryResult) Percent(rss uint64) (float64, bool) {
	if m.Total == 0 {
		return 0, false
	}
	return float64(rss) / float64(m.Total) * 100, true
}

// MemoryCollector collects host RAM usage.
type MemoryCollector struct{}

// NewMemoryCollector creates a new memory collector.
func NewMemoryCollector() *MemoryCollector {
	return &MemoryCollector{}
}

// Name returns the collector identifier.
func (c *MemoryCollector) Name() string { return MemoryName }

// Collect gathers memory usage data (used bytes, total bytes).
func (c *MemoryCollector) Collect(ctx context.Context) (interface{}, error) {
	v, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return nil, err
	}
	return MemoryResult{
		Used:  v.Used,
		Total: v.Total,
	}, nil
}

// IsAvailable returns true — memory metrics are available on all platforms.
func (c *MemoryCollector) IsAvailable() bool { return true }
