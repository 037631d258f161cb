// Package scheduler implements a tick-based periodic collection scheduler.
// Every tick samples all registered process trees once; snapshots are
// batched and handed to a callback. The scheduler does NOT persist data
// itself.
package scheduler

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Guliveer/vitalis/treewatch/internal/collector"
	"github.com/Guliveer/vitalis/treewatch/internal/config"
	"github.com/Guliveer/vitalis/treewatch/internal/models"
)

// Scheduler manages periodic collection and batching.
type Scheduler struct {
	registry *collector.Registry
	cfg      config.CollectionConfig
	logger   *zap.Logger

	batch   []models.TreeSnapshot
	batchMu sync.Mutex

	onBatchReady func(models.Batch)
}

// New creates a new Scheduler with the given registry, config, and logger.
func New(registry *collector.Registry, cfg *config.Config, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		registry: registry,
		cfg:      cfg.Collection,
		logger:   logger,
		batch:    make([]models.TreeSnapshot, 0),
	}
}

// OnBatchReady sets the callback invoked when a batch of snapshots is ready.
func (s *Scheduler) OnBatchReady(fn func(models.Batch)) {
	s.onBatchReady = fn
}

// Start begins the collection and batching loops. It blocks until the context
// is cancelled. On shutdown, it flushes any remaining batch. Ticks run on this
// goroutine only, so no collector is ever sampled concurrently with itself.
func (s *Scheduler) Start(ctx context.Context) {
	collectTicker := time.NewTicker(s.cfg.Interval.Duration)
	batchTicker := time.NewTicker(s.cfg.BatchInterval.Duration)

	defer collectTicker.Stop()
	defer batchTicker.Stop()

	s.collect(ctx)

	for {
		select {
		case <-ctx.Done():
			s.flushBatch()
			return
		case <-collectTicker.C:
			s.collect(ctx)
		case <-batchTicker.C:
			s.flushBatch()
		}
	}
}

// collect runs one tick under the configured timeout and queues its snapshots.
func (s *Scheduler) collect(ctx context.Context) {
	tickCtx, cancel := context.WithTimeout(ctx, s.cfg.TickTimeout.Duration)
	defer cancel()

	results := s.registry.CollectAll(tickCtx)
	snapshots := assembleSnapshots(results)

	s.batchMu.Lock()
	s.batch = append(s.batch, snapshots...)
	s.batchMu.Unlock()

	s.logger.Debug("Collected process trees", zap.Int("trees", len(snapshots)))
}

// flushBatch sends the current batch via the callback and resets the buffer.
func (s *Scheduler) flushBatch() {
	s.batchMu.Lock()
	if len(s.batch) == 0 {
		s.batchMu.Unlock()
		return
	}
	snapshots := s.batch
	s.batch = make([]models.TreeSnapshot, 0)
	s.batchMu.Unlock()

	s.logger.Info("Flushing batch", zap.Int("count", len(snapshots)))

	if s.onBatchReady != nil {
		s.onBatchReady(models.Batch{
			CreatedAt: time.Now().UTC(),
			Snapshots: snapshots,
		})
	}
}

// assembleSnapshots picks the tree snapshots out of one tick's results,
// ordered by name, and fills in the host memory share when available.
func assembleSnapshots(results map[string]interface{}) []models.TreeSnapshot {
	var hostMem *collector.MemoryResult
	if data, ok := results[collector.MemoryName]; ok {
		if mem, ok := data.(collector.MemoryResult); ok {
			hostMem = &mem
		}
	}

	snapshots := make([]models.TreeSnapshot, 0, len(results))
	for _, data := range results {
		snap, ok := data.(models.TreeSnapshot)
		if !ok {
			continue
		}
		if hostMem != nil && snap.OK {
			if pct, ok := hostMem.Percent(snap.RSS); ok {
				snap.MemPercent = &pct
			}
		}
		snapshots = append(snapshots, snap)
	}

	sort.Slice(snapshots, func(i, j int) bool {
		return snapshots[i].Name < snapshots[j].Name
	})
	return snapshots
}
