package collector

//go:generate mockgen -source=source.go -destination=mock_source_test.go -package=collector

import (
	"context"
	"errors"
)

var (
	// ErrNotFound indicates that a process no longer exists.
	ErrNotFound = errors.New("collector: process not found")

	// ErrAccessDenied indicates that the OS refused to expose a process's stats.
	ErrAccessDenied = errors.New("collector: access denied")

	// ErrInvalidPID is returned when a tree collector is built for a pid <= 0.
	ErrInvalidPID = errors.New("collector: invalid root pid")
)

// RawStats is a point-in-time reading of one process as reported by the OS.
type RawStats struct {
	User    float64 // cumulative user CPU seconds
	System  float64 // cumulative kernel CPU seconds
	RSS     uint64
	VMS     uint64
	Nice    int32
	Status  string
	Threads int32
}

// Source looks up processes by pid.
type Source interface {
	// Resolve returns a handle for pid, or ErrNotFound when it does not exist.
	Resolve(ctx context.Context, pid int32) (Handle, error)
}

// Handle is a reference to one live process.
type Handle interface {
	PID() int32

	// Stats reads the process's current resource usage. Errors matching
	// ErrNotFound or ErrAccessDenied are expected when a process exits or is
	// not readable by this user.
	Stats(ctx context.Context) (RawStats, error)

	// Descendants returns every live process below this one, recursively.
	Descendants(ctx context.Context) ([]Handle, error)
}

// isRecoverable reports whether a per-process read failure should be
// replaced by an empty sample rather than failing the tick.
func isRecoverable(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, ErrAccessDenied)
}
