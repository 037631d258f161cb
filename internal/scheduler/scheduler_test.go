package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/Guliveer/vitalis/treewatch/internal/collector"
	"github.com/Guliveer/vitalis/treewatch/internal/config"
	"github.com/Guliveer/vitalis/treewatch/internal/models"
)

type staticCollector struct {
	name  string
	data  interface{}
	calls int
	mu    sync.Mutex
}

func (c *staticCollector) Name() string { return c.name }

func (c *staticCollector) Collect(context.Context) (interface{}, error) {
	c.mu.Lock()
	c.calls++
	c.mu.Unlock()
	return c.data, nil
}

func (c *staticCollector) IsAvailable() bool { return true }

func (c *staticCollector) Calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

func TestAssembleSnapshots(t *testing.T) {
	results := map[string]interface{}{
		"worker":             models.TreeSnapshot{Name: "worker", OK: true, RSS: 256},
		"api":                models.TreeSnapshot{Name: "api", OK: true, RSS: 512},
		"down":               models.TreeSnapshot{Name: "down", OK: false},
		collector.MemoryName: collector.MemoryResult{Total: 1024, Used: 800},
	}

	snaps := assembleSnapshots(results)
	require.Len(t, snaps, 3)
	assert.Equal(t, "api", snaps[0].Name)
	assert.Equal(t, "down", snaps[1].Name)
	assert.Equal(t, "worker", snaps[2].Name)

	require.NotNil(t, snaps[0].MemPercent)
	assert.Equal(t, 50.0, *snaps[0].MemPercent)
	assert.Nil(t, snaps[1].MemPercent, "degraded ticks carry no memory share")
	require.NotNil(t, snaps[2].MemPercent)
	assert.Equal(t, 25.0, *snaps[2].MemPercent)
}

func TestAssembleSnapshots_NoHostMemory(t *testing.T) {
	snaps := assembleSnapshots(map[string]interface{}{
		"api": models.TreeSnapshot{Name: "api", OK: true, RSS: 512},
	})
	require.Len(t, snaps, 1)
	assert.Nil(t, snaps[0].MemPercent)
}

func TestScheduler_FlushesOnShutdown(t *testing.T) {
	tree := &staticCollector{name: "api", data: models.TreeSnapshot{Name: "api", OK: true}}
	registry := collector.NewRegistry(zaptest.NewLogger(t))
	require.NoError(t, registry.Register(tree))

	cfg := config.DefaultConfig()
	cfg.Collection.Interval = config.Duration{Duration: 10 * time.Millisecond}
	cfg.Collection.TickTimeout = config.Duration{Duration: 10 * time.Millisecond}
	cfg.Collection.BatchInterval = config.Duration{Duration: time.Hour}

	var (
		mu      sync.Mutex
		batches []models.Batch
	)
	s := New(registry, cfg, zaptest.NewLogger(t))
	s.OnBatchReady(func(b models.Batch) {
		mu.Lock()
		batches = append(batches, b)
		mu.Unlock()
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Start(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return tree.Calls() >= 3 }, 5*time.Second, 5*time.Millisecond)
	cancel()
	<-done

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, batches, 1)
	assert.Equal(t, tree.Calls(), len(batches[0].Snapshots))
	for _, snap := range batches[0].Snapshots {
		assert.Equal(t, "api", snap.Name)
	}
}
