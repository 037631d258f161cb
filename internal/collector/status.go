package collector

import (
	"strings"

	"github.com/Guliveer/vitalis/treewatch/internal/models"
)

// normalizedStatuses maps raw gopsutil status strings to a consistent set of
// values used across all platforms.
var normalizedStatuses = map[string]string{
	"running":               models.StatusRunning,
	"waking":                models.StatusRunning,
	"sleeping":              models.StatusSleeping,
	"sleep":                 models.StatusSleeping,
	"wait":                  models.StatusSleeping,
	"lock":                  models.StatusSleeping,
	"disk-sleep":            models.StatusSleeping,
	"wake-kill":             models.StatusSleeping,
	"uninterruptible-sleep": models.StatusSleeping,
	"idle":                  models.StatusIdle,
	"parked":                models.StatusIdle,
	"idle-interrupt":        models.StatusIdle,
	"stopped":               models.StatusStopped,
	"stop":                  models.StatusStopped,
	"tracing-stop":          models.StatusStopped,
	"suspended":             models.StatusStopped,
	"zombie":                models.StatusZombie,
	"dead":                  models.StatusZombie,
}

// normalizeStatus maps a raw gopsutil status string to a consistent value.
// Unrecognised statuses are returned lowercased; empty ones (common on
// Windows) become StatusUnknown.
func normalizeStatus(raw string) string {
	key := strings.ToLower(strings.TrimSpace(raw))
	if key == "" {
		return models.StatusUnknown
	}
	if mapped, ok := normalizedStatuses[key]; ok {
		return mapped
	}
	return key
}
