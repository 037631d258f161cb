package models

// Normalised process statuses. StatusUnknown is the status of an empty sample
// and of any process whose state could not be read.
const (
	StatusRunning  = "running"
	StatusSleeping = "sleeping"
	StatusIdle     = "idle"
	StatusStopped  = "stopped"
	StatusZombie   = "zombie"
	StatusUnknown  = "unknown"
)

// statusRank orders statuses for Combine. Higher wins. Unranked, non-empty
// statuses sit between zombie and the empty string; StatusUnknown ranks
// lowest so that EmptySample is an identity for every status.
var statusRank = map[string]int{
	StatusRunning:  6,
	StatusSleeping: 5,
	StatusIdle:     4,
	StatusStopped:  3,
	StatusZombie:   2,
	"":             0,
	StatusUnknown:  -1,
}

const unrankedStatus = 1

// ProcessSample is one resource-usage reading for a process, or the sum of
// readings across a process tree. Values are never mutated after construction.
type ProcessSample struct {
	Rate    float64 `json:"rate"`    // fraction of one core, 1.0 = one core busy
	User    float64 `json:"user"`    // cumulative user CPU seconds
	System  float64 `json:"system"`  // cumulative kernel CPU seconds
	RSS     uint64  `json:"rss"`     // bytes
	VMS     uint64  `json:"vms"`     // bytes
	Nice    int32   `json:"nice"`
	Status  string  `json:"status"`
	Threads int32   `json:"threads"`
}

// EmptySample returns the identity element for Combine.
func EmptySample() ProcessSample {
	return ProcessSample{Status: StatusUnknown}
}

// Combine returns the elementwise sum of s and o. Status is not summable, so
// the more active of the two statuses is kept.
func (s ProcessSample) Combine(o ProcessSample) ProcessSample {
	return ProcessSample{
		Rate:    s.Rate + o.Rate,
		User:    s.User + o.User,
		System:  s.System + o.System,
		RSS:     s.RSS + o.RSS,
		VMS:     s.VMS + o.VMS,
		Nice:    s.Nice + o.Nice,
		Status:  combineStatus(s.Status, o.Status),
		Threads: s.Threads + o.Threads,
	}
}

// WithRate returns a copy of s with Rate replaced.
func (s ProcessSample) WithRate(rate float64) ProcessSample {
	s.Rate = rate
	return s
}

// CPUSeconds returns user plus system CPU time.
func (s ProcessSample) CPUSeconds() float64 {
	return s.User + s.System
}

// SumSamples folds Combine over samples, starting from EmptySample.
func SumSamples(samples ...ProcessSample) ProcessSample {
	total := EmptySample()
	for _, s := range samples {
		total = total.Combine(s)
	}
	return total
}

func combineStatus(a, b string) string {
	ra, rb := rankOf(a), rankOf(b)
	switch {
	case ra > rb:
		return a
	case rb > ra:
		return b
	case a > b:
		return a
	default:
		return b
	}
}

func rankOf(status string) int {
	if r, ok := statusRank[status]; ok {
		return r
	}
	return unrankedStatus
}
