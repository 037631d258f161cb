// Package buffer provides a local file-based spool for snapshot batches.
// Each batch is written as a timestamped JSON file so data survives restarts
// until a consumer drains it. Size limits are enforced by dropping the oldest
// batch.
package buffer

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Guliveer/vitalis/treewatch/internal/models"
)

// Buffer stores snapshot batches as JSON files in one directory.
type Buffer struct {
	dir       string
	maxSizeMB int
	logger    *zap.Logger
	mu        sync.Mutex
	seq       uint64
	now       func() time.Time
}

// New creates a new file-based buffer at the given directory path.
// The directory is created if it does not exist.
func New(dir string, maxSizeMB int, logger *zap.Logger) (*Buffer, error) {
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Buffer{
		dir:       dir,
		maxSizeMB: maxSizeMB,
		logger:    logger,
		now:       time.Now,
	}, nil
}

// Dir returns the spool directory.
func (b *Buffer) Dir() string { return b.dir }

// Store saves a batch to a timestamped JSON file.
// If the buffer exceeds the configured size limit, the oldest batch is dropped.
func (b *Buffer) Store(batch models.Batch) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.currentSizeMB() >= b.maxSizeMB {
		b.logger.Warn("Spool full, dropping oldest batch")
		b.dropOldest()
	}

	data, err := json.Marshal(batch)
	if err != nil {
		return err
	}

	b.seq++
	name := fmt.Sprintf("%s-%06d.json", b.now().UTC().Format("20060102T150405.000"), b.seq)
	return os.WriteFile(filepath.Join(b.dir, name), data, 0640)
}

// RetrieveAll reads all spooled batches and removes the corresponding files.
// Corrupted files are removed and logged. Returns batches in chronological order.
func (b *Buffer) RetrieveAll() ([]models.Batch, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	entries, err := os.ReadDir(b.dir)
	if err != nil {
		return nil, err
	}

	var batches []models.Batch
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}

		path := filepath.Join(b.dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			b.logger.Warn("Failed to read spool file",
				zap.String("file", path),
				zap.Error(err))
			continue
		}

		var batch models.Batch
		if err := json.Unmarshal(data, &batch); err != nil {
			b.logger.Warn("Failed to parse spool file, removing corrupted file",
				zap.String("file", path),
				zap.Error(err))
			os.Remove(path)
			continue
		}

		batches = append(batches, batch)
		os.Remove(path)
	}

	return batches, nil
}

// Count returns the number of spooled batch files.
func (b *Buffer) Count() int {
	entries, err := os.ReadDir(b.dir)
	if err != nil {
		return 0
	}
	count := 0
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".json" {
			count++
		}
	}
	return count
}

// currentSizeMB returns the total size of all spool files in megabytes.
// Must be called with b.mu held.
func (b *Buffer) currentSizeMB() int {
	var totalSize int64
	entries, err := os.ReadDir(b.dir)
	if err != nil {
		return 0
	}
	for _, entry := range entries {
		if info, err := entry.Info(); err == nil {
			totalSize += info.Size()
		}
	}
	return int(totalSize / (1024 * 1024))
}

// dropOldest removes the oldest spool file to free space.
// Must be called with b.mu held.
func (b *Buffer) dropOldest() {
	entries, err := os.ReadDir(b.dir)
	if err != nil {
		return
	}
	for _, entry := range entries {
		if !entry.IsDir() && filepath.Ext(entry.Name()) == ".json" {
			path := filepath.Join(b.dir, entry.Name())
			if err := os.Remove(path); err != nil {
				b.logger.Warn("Failed to remove oldest spool file",
					zap.String("file", path),
					zap.Error(err))
			}
			return
		}
	}
}
