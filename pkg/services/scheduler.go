package services

import (
	"sync"
	"time"
)

// DebounceScheduler coalesces rapid repeated events on the same key: each
// Schedule call for a key cancels and replaces that key's pending task, so
// the task fires only after a quiet period. Implementations must be safe for
// concurrent use.
type DebounceScheduler interface {
	// Schedule runs fn after delay, replacing any pending task for key.
	Schedule(key string, delay time.Duration, fn func())

	// Cancel drops the pending task for key, if any.
	Cancel(key string)

	// Stop cancels all pending tasks.
	Stop()
}

type timerScheduler struct {
	mu     sync.Mutex
	timers map[string]*time.Timer
}

var _ DebounceScheduler = (*timerScheduler)(nil)

// NewTimerScheduler creates a DebounceScheduler backed by real timers.
func NewTimerScheduler() DebounceScheduler {
	return &timerScheduler{timers: make(map[string]*time.Timer)}
}

func (s *timerScheduler) Schedule(key string, delay time.Duration, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if t, ok := s.timers[key]; ok {
		t.Stop()
	}
	s.timers[key] = time.AfterFunc(delay, func() {
		s.mu.Lock()
		delete(s.timers, key)
		s.mu.Unlock()
		fn()
	})
}

func (s *timerScheduler) Cancel(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if t, ok := s.timers[key]; ok {
		t.Stop()
		delete(s.timers, key)
	}
}

func (s *timerScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key, t := range s.timers {
		t.Stop()
		delete(s.timers, key)
	}
}
