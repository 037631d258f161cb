// gopsutil-backed process source — resolves pids and reads per-process stats.
// Uses gopsutil for cross-platform process inspection.
package collector

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/shirou/gopsutil/v3/process"
)

// PsutilSource resolves processes through gopsutil.
type PsutilSource struct{}

// NewPsutilSource creates a Source reading live processes from the OS.
func NewPsutilSource() *PsutilSource {
	return &PsutilSource{}
}

// Resolve returns a handle for pid, or ErrNotFound if no such process exists.
func (s *PsutilSource) Resolve(ctx context.Context, pid int32) (Handle, error) {
	p, err := process.NewProcessWithContext(ctx, pid)
	if err != nil {
		return nil, fmt.Errorf("resolve pid %d: %w", pid, classify(err))
	}
	return &psutilHandle{proc: p}, nil
}

type psutilHandle struct {
	proc *process.Process
}

func (h *psutilHandle) PID() int32 { return h.proc.Pid }

// Stats reads cumulative CPU times, memory, nice, status and thread count.
// CPU percent is not read; TreeCollector derives its own rate.
func (h *psutilHandle) Stats(ctx context.Context) (RawStats, error) {
	times, err := h.proc.TimesWithContext(ctx)
	if err != nil {
		return RawStats{}, h.wrap("cpu times", err)
	}
	mem, err := h.proc.MemoryInfoWithContext(ctx)
	if err != nil {
		return RawStats{}, h.wrap("memory info", err)
	}
	nice, err := h.proc.NiceWithContext(ctx)
	if err != nil {
		return RawStats{}, h.wrap("nice", err)
	}
	threads, err := h.proc.NumThreadsWithContext(ctx)
	if err != nil {
		return RawStats{}, h.wrap("threads", err)
	}

	// Status is unavailable on some platforms; treat it as unknown rather
	// than failing the read.
	rawStatus := ""
	if status, err := h.proc.StatusWithContext(ctx); err == nil && len(status) > 0 {
		rawStatus = status[0]
	}

	return RawStats{
		User:    times.User,
		System:  times.System,
		RSS:     mem.RSS,
		VMS:     mem.VMS,
		Nice:    nice,
		Status:  normalizeStatus(rawStatus),
		Threads: threads,
	}, nil
}

// Descendants lists every process once, indexes it by parent pid and walks
// down from this process. Processes that exit during the walk are still
// returned; their Stats call will report ErrNotFound.
func (h *psutilHandle) Descendants(ctx context.Context) ([]Handle, error) {
	running, err := h.proc.IsRunningWithContext(ctx)
	if err != nil {
		return nil, h.wrap("is running", err)
	}
	if !running {
		return nil, h.wrap("is running", ErrNotFound)
	}

	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return nil, h.wrap("list processes", err)
	}

	byParent := make(map[int32][]*process.Process)
	for _, p := range procs {
		ppid, err := p.PpidWithContext(ctx)
		if err != nil {
			// Exited or unreadable: with no known parent the process, and
			// anything below it, cannot be placed in the tree this tick.
			continue
		}
		byParent[ppid] = append(byParent[ppid], p)
	}

	return walkChildren(h.proc.Pid, byParent), nil
}

// walkChildren returns all processes below root, breadth first. The visited
// set guards against cycles from recycled pids.
func walkChildren(root int32, byParent map[int32][]*process.Process) []Handle {
	visited := map[int32]struct{}{root: {}}
	var out []Handle
	queue := append([]*process.Process(nil), byParent[root]...)
	for len(queue) > 0 {
		p := queue[0]
		queue = queue[1:]
		if _, seen := visited[p.Pid]; seen {
			continue
		}
		visited[p.Pid] = struct{}{}
		out = append(out, &psutilHandle{proc: p})
		queue = append(queue, byParent[p.Pid]...)
	}
	return out
}

func (h *psutilHandle) wrap(op string, err error) error {
	return fmt.Errorf("pid %d: %s: %w", h.proc.Pid, op, classify(err))
}

// classify maps OS and gopsutil errors onto ErrNotFound / ErrAccessDenied
// while keeping the original error in the chain.
func classify(err error) error {
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrAccessDenied):
		return err
	case errors.Is(err, process.ErrorProcessNotRunning), errors.Is(err, os.ErrNotExist):
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	case errors.Is(err, os.ErrPermission), isAccessDenied(err):
		return fmt.Errorf("%w: %w", ErrAccessDenied, err)
	default:
		return err
	}
}
