//go:build unix

package ports

import (
	"sync"
	"time"

	"golang.org/x/sys/unix"
)

// UnixTimer is a reference Timer implementation for local dev/bench
// use. Firing still goes through the Go runtime timer wheel
// (time.AfterFunc); what unix.ClockGettime buys is a monotonic
// deadline that Remaining can report against without drifting if the
// wall clock is stepped underneath the process, which matters for a
// 96h/192h guard timer an operator might want to inspect mid-flight.
// Production firmware supplies its own Timer over the host RTC/OS
// timer service; this implementation is not used by the core itself.
type UnixTimer struct {
	mu       sync.Mutex
	deadline map[TimerID]monotonicTime
	pending  map[TimerID]*time.Timer
	fire     func(TimerID)
}

type monotonicTime struct {
	seconds int64
	nanos   int64
}

func monotonicNow() monotonicTime {
	var ts unix.Timespec
	if err := unix.ClockGettime(unix.CLOCK_MONOTONIC, &ts); err != nil {
		return monotonicTime{}
	}
	return monotonicTime{seconds: int64(ts.Sec), nanos: int64(ts.Nsec)}
}

func (m monotonicTime) add(seconds uint32) monotonicTime {
	return monotonicTime{seconds: m.seconds + int64(seconds), nanos: m.nanos}
}

func (m monotonicTime) sub(other monotonicTime) time.Duration {
	d := time.Duration(m.seconds-other.seconds) * time.Second
	d += time.Duration(m.nanos - other.nanos)
	return d
}

// NewUnixTimer creates a reference Timer that invokes fire(id) on
// expiry, on its own goroutine (the caller's Dispatcher must hand
// this back onto the single dispatch thread, per spec §5).
func NewUnixTimer(fire func(TimerID)) *UnixTimer {
	return &UnixTimer{
		deadline: make(map[TimerID]monotonicTime),
		pending:  make(map[TimerID]*time.Timer),
		fire:     fire,
	}
}

func (t *UnixTimer) Start(id TimerID, seconds uint32) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if pending, ok := t.pending[id]; ok {
		pending.Stop()
	}
	now := monotonicNow()
	t.deadline[id] = now.add(seconds)
	t.pending[id] = time.AfterFunc(time.Duration(seconds)*time.Second, func() {
		t.mu.Lock()
		delete(t.deadline, id)
		delete(t.pending, id)
		t.mu.Unlock()
		t.fire(id)
	})
}

func (t *UnixTimer) Stop(id TimerID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if pending, ok := t.pending[id]; ok {
		pending.Stop()
		delete(t.pending, id)
	}
	delete(t.deadline, id)
}

// Remaining reports time left until id fires, or false if it is not armed.
func (t *UnixTimer) Remaining(id TimerID) (time.Duration, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	deadline, ok := t.deadline[id]
	if !ok {
		return 0, false
	}
	return deadline.sub(monotonicNow()), true
}

var _ Timer = (*UnixTimer)(nil)
