// Process tree collector — aggregates a root process and all of its
// descendants into a single sample and derives a CPU rate across ticks.
package collector

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Guliveer/vitalis/treewatch/internal/models"
)

// TreeCollector samples one process tree per call to Sample. Sample must not
// be called concurrently on the same collector; Value and Procs may be read
// from any goroutine.
type TreeCollector struct {
	name    string
	rootPID int32
	source  Source
	logger  *zap.Logger
	now     func() time.Time

	// handle is resolved on the first tick and only touched by Sample.
	handle Handle

	mu        sync.RWMutex
	snapshot  map[int32]models.ProcessSample
	aggregate models.ProcessSample
	stamp     time.Time // last successful tick, zero until then
	rate      float64
	lastTick  time.Time
	healthy   bool
}

// TreeOption configures a TreeCollector.
type TreeOption func(*TreeCollector)

// WithClock replaces time.Now as the collector's time source.
func WithClock(now func() time.Time) TreeOption {
	return func(c *TreeCollector) { c.now = now }
}

// NewTreeCollector creates a collector for the tree rooted at rootPID. No
// process lookup happens until the first Sample.
func NewTreeCollector(name string, rootPID int32, source Source, logger *zap.Logger, opts ...TreeOption) (*TreeCollector, error) {
	if rootPID <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidPID, rootPID)
	}
	if source == nil {
		return nil, errors.New("collector: nil process source")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if name == "" {
		name = fmt.Sprintf("pid-%d", rootPID)
	}

	c := &TreeCollector{
		name:      name,
		rootPID:   rootPID,
		source:    source,
		logger:    logger.With(zap.String("tree", name), zap.Int32("root_pid", rootPID)),
		now:       time.Now,
		snapshot:  map[int32]models.ProcessSample{},
		aggregate: models.EmptySample(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Name returns the collector identifier.
func (c *TreeCollector) Name() string { return c.name }

// RootPID returns the pid the tree is rooted at.
func (c *TreeCollector) RootPID() int32 { return c.rootPID }

// IsAvailable returns true — process trees can be sampled on all platforms.
func (c *TreeCollector) IsAvailable() bool { return true }

// Collect runs one tick and returns the resulting models.TreeSnapshot.
// It never returns an error: failed ticks are reported with OK set to false.
func (c *TreeCollector) Collect(ctx context.Context) (interface{}, error) {
	c.Sample(ctx)

	c.mu.RLock()
	defer c.mu.RUnlock()
	return models.NewTreeSnapshot(c.name, c.rootPID, c.healthy, len(c.snapshot),
		c.aggregate.WithRate(c.rate), c.lastTick), nil
}

// Sample performs one tick. A process that exits or cannot be read during the
// tick contributes an empty sample. If the tree itself cannot be read the
// aggregate and rate drop to zero for this tick, but the previous snapshot is
// kept as the baseline for the next rate computation.
func (c *TreeCollector) Sample(ctx context.Context) {
	samples, err := c.readTree(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	c.lastTick = now

	if err != nil {
		c.logger.Warn("Process tree sampling failed", zap.Error(err))
		c.aggregate = models.EmptySample()
		c.rate = 0
		c.healthy = false
		return
	}

	pids := sortedPIDs(samples)
	values := make([]models.ProcessSample, 0, len(pids))
	for _, pid := range pids {
		values = append(values, samples[pid])
	}
	c.aggregate = models.SumSamples(values...)

	if len(c.snapshot) > 0 && !c.stamp.IsZero() {
		c.updateRate(pids, samples, now)
	}

	c.stamp = now
	c.snapshot = samples
	c.healthy = true
}

// Value returns the aggregated sample with the interval-based CPU rate.
func (c *TreeCollector) Value() models.ProcessSample {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.aggregate.WithRate(c.rate)
}

// Procs returns the number of processes seen at the last successful tick.
func (c *TreeCollector) Procs() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.snapshot)
}

func (c *TreeCollector) readTree(ctx context.Context) (map[int32]models.ProcessSample, error) {
	if c.handle == nil {
		h, err := c.source.Resolve(ctx, c.rootPID)
		if err != nil {
			return nil, err
		}
		c.handle = h
	}
	root := c.handle

	rootSample, err := c.readProcess(ctx, root)
	if err != nil {
		return nil, err
	}

	children, err := root.Descendants(ctx)
	if err != nil {
		return nil, fmt.Errorf("list descendants: %w", err)
	}

	samples := make(map[int32]models.ProcessSample, len(children)+1)
	for _, child := range children {
		s, err := c.readProcess(ctx, child)
		if err != nil {
			return nil, err
		}
		samples[child.PID()] = s
	}
	samples[c.rootPID] = rootSample
	return samples, nil
}

// readProcess converts one process's stats into a sample. Recoverable read
// failures yield an empty sample; anything else fails the tick.
func (c *TreeCollector) readProcess(ctx context.Context, h Handle) (models.ProcessSample, error) {
	stats, err := h.Stats(ctx)
	if err != nil {
		if isRecoverable(err) {
			c.logger.Warn("Error during process sampling",
				zap.Int32("pid", h.PID()),
				zap.Error(err))
			return models.EmptySample(), nil
		}
		return models.ProcessSample{}, fmt.Errorf("read pid %d: %w", h.PID(), err)
	}
	status := stats.Status
	if status == "" {
		status = models.StatusUnknown
	}
	return models.ProcessSample{
		User:    stats.User,
		System:  stats.System,
		RSS:     stats.RSS,
		VMS:     stats.VMS,
		Nice:    stats.Nice,
		Status:  status,
		Threads: stats.Threads,
	}, nil
}

// updateRate compares this tick's CPU seconds with the previous snapshot.
// Processes that are new this tick count their whole CPU time; processes
// that disappeared are ignored. pids fixes the summation order so the same
// inputs always give the same rate. Must be called with c.mu held.
func (c *TreeCollector) updateRate(pids []int32, samples map[int32]models.ProcessSample, now time.Time) {
	elapsed := now.Sub(c.stamp).Seconds()
	if elapsed <= 0 {
		c.logger.Debug("Clock did not advance, keeping previous rate",
			zap.Time("last", c.stamp), zap.Time("now", now))
		return
	}

	var newTotal, oldTotal float64
	for _, pid := range pids {
		newTotal += samples[pid].CPUSeconds()
		if prev, ok := c.snapshot[pid]; ok {
			oldTotal += prev.CPUSeconds()
		}
	}

	rate := (newTotal - oldTotal) / elapsed
	if rate < 0 {
		// A recycled pid can report less CPU time than its predecessor.
		rate = 0
	}
	c.rate = rate
	c.logger.Debug("Calculated rate for process tree", zap.Float64("rate", rate))
}

func sortedPIDs(samples map[int32]models.ProcessSample) []int32 {
	pids := make([]int32, 0, len(samples))
	for pid := range samples {
		pids = append(pids, pid)
	}
	sort.Slice(pids, func(i, j int) bool { return pids[i] < pids[j] })
	return pids
}
