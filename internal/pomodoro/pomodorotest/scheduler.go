// Package pomodorotest provides a manually driven scheduler for engine tests.
package pomodorotest

import (
	"sort"
	"sync"
	"time"
)

// Scheduler records callbacks and fires them only when Tick is called.
type Scheduler struct {
	mu      sync.Mutex
	next    int
	fns     map[int]func()
	started int
}

// NewScheduler returns an empty manual scheduler.
func NewScheduler() *Scheduler {
	return &Scheduler{fns: make(map[int]func())}
}

// Every implements pomodoro.Scheduler.
func (s *Scheduler) Every(_ time.Duration, fn func()) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.next
	s.next++
	s.started++
	s.fns[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.fns, id)
	}
}

// Tick fires every active callback once, in registration order.
func (s *Scheduler) Tick() {
	s.mu.Lock()
	ids := make([]int, 0, len(s.fns))
	for id := range s.fns {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	fns := make([]func(), 0, len(ids))
	for _, id := range ids {
		fns = append(fns, s.fns[id])
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

// TickN calls Tick n times.
func (s *Scheduler) TickN(n int) {
	for i := 0; i < n; i++ {
		s.Tick()
	}
}

// Active returns the number of callbacks not yet stopped.
func (s *Scheduler) Active() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.fns)
}

// Started returns how many timers were ever scheduled.
func (s *Scheduler) Started() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.started
}
