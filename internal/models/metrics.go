// Package models defines the data structures used throughout the agent:
// the ProcessSample value aggregated across a process tree and the
// TreeSnapshot record that is spooled to disk as JSON.
package models

import "time"

// TreeSnapshot is one tick's aggregated reading for a monitored process tree.
type TreeSnapshot struct {
	Timestamp  time.Time `json:"timestamp"`
	Name       string    `json:"name"`
	RootPID    int32     `json:"root_pid"`
	OK         bool      `json:"ok"`
	Procs      int       `json:"procs"`
	CPURate    float64   `json:"cpu_rate"`
	CPUUser    float64   `json:"cpu_user"`
	CPUSystem  float64   `json:"cpu_system"`
	RSS        uint64    `json:"rss"`
	VMS        uint64    `json:"vms"`
	Nice       int32     `json:"nice"`
	Status     string    `json:"status"`
	Threads    int32     `json:"threads"`
	MemPercent *float64  `json:"mem_percent,omitempty"`
}

// NewTreeSnapshot flattens an aggregated sample into an export record.
func NewTreeSnapshot(name string, rootPID int32, ok bool, procs int, s ProcessSample, at time.Time) TreeSnapshot {
	return TreeSnapshot{
		Timestamp: at.UTC(),
		Name:      name,
		RootPID:   rootPID,
		OK:        ok,
		Procs:     procs,
		CPURate:   s.Rate,
		CPUUser:   s.User,
		CPUSystem: s.System,
		RSS:       s.RSS,
		VMS:       s.VMS,
		Nice:      s.Nice,
		Status:    s.Status,
		Threads:   s.Threads,
	}
}

// Batch is a group of snapshots flushed together by the scheduler.
type Batch struct {
	CreatedAt time.Time      `json:"created_at"`
	Snapshots []TreeSnapshot `json:"snapshots"`
}
