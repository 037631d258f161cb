package collector

import (
	"context"
	"time"
)

// fakeSource is an in-memory process table. Processes are added with set and
// linked with child; reads reflect the table at call time.
type fakeSource struct {
	stats      map[int32]RawStats
	readErrs   map[int32]error
	children   map[int32][]int32
	resolveErr error
	descErr    error
	resolves   int
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		stats:    map[int32]RawStats{},
		readErrs: map[int32]error{},
		children: map[int32][]int32{},
	}
}

func (s *fakeSource) set(pid int32, user, system float64) {
	s.stats[pid] = RawStats{
		User:    user,
		System:  system,
		RSS:     1024,
		VMS:     4096,
		Status:  "running",
		Threads: 1,
	}
}

func (s *fakeSource) child(parent, pid int32) {
	s.children[parent] = append(s.children[parent], pid)
}

// remove drops pid from the table and from its parent's child list.
func (s *fakeSource) remove(pid int32) {
	delete(s.stats, pid)
	for parent, kids := range s.children {
		kept := kids[:0]
		for _, k := range kids {
			if k != pid {
				kept = append(kept, k)
			}
		}
		s.children[parent] = kept
	}
}

func (s *fakeSource) Resolve(_ context.Context, pid int32) (Handle, error) {
	s.resolves++
	if s.resolveErr != nil {
		return nil, s.resolveErr
	}
	if _, ok := s.stats[pid]; !ok {
		return nil, ErrNotFound
	}
	return &fakeHandle{src: s, pid: pid}, nil
}

type fakeHandle struct {
	src *fakeSource
	pid int32
}

func (h *fakeHandle) PID() int32 { return h.pid }

func (h *fakeHandle) Stats(ctx context.Context) (RawStats, error) {
	if err := ctx.Err(); err != nil {
		return RawStats{}, err
	}
	if err, ok := h.src.readErrs[h.pid]; ok {
		return RawStats{}, err
	}
	st, ok := h.src.stats[h.pid]
	if !ok {
		return RawStats{}, ErrNotFound
	}
	return st, nil
}

func (h *fakeHandle) Descendants(context.Context) ([]Handle, error) {
	if h.src.descErr != nil {
		return nil, h.src.descErr
	}
	var out []Handle
	queue := append([]int32(nil), h.src.children[h.pid]...)
	for len(queue) > 0 {
		pid := queue[0]
		queue = queue[1:]
		out = append(out, &fakeHandle{src: h.src, pid: pid})
		queue = append(queue, h.src.children[pid]...)
	}
	return out, nil
}

// fakeClock returns a fixed time until advanced.
type fakeClock struct {
	t time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time { return c.t }

func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }
