package ratelimit

import (
	"context"
	"sync"
	"time"
)

type bucket struct {
	count   int
	resetAt time.Time
}

// Memory is an in-process fixed-window limiter.
type Memory struct {
	mu      sync.Mutex
	max     int
	window  time.Duration
	windows map[string]*bucket
	now     func() time.Time

	stop     chan struct{}
	stopOnce sync.Once
}

// MemoryOption configures a Memory limiter.
type MemoryOption func(*Memory)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) MemoryOption {
	return func(m *Memory) { m.now = now }
}

// NewMemory creates a Memory limiter allowing max requests per window
// for each key. It starts a janitor goroutine that drops expired windows;
// call Close to stop it.
func NewMemory(max int, window time.Duration, opts ...MemoryOption) (*Memory, error) {
	if err := validate(max, window); err != nil {
		return nil, err
	}

	m := &Memory{
		max:     max,
		window:  window,
		windows: make(map[string]*bucket),
		now:     time.Now,
		stop:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}

	go m.janitor()

	return m, nil
}

// Allow counts one request for key.
func (m *Memory) Allow(_ context.Context, key string) (Decision, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	w, ok := m.windows[key]
	if !ok || !now.Before(w.resetAt) {
		w = &bucket{resetAt: now.Add(m.window)}
		m.windows[key] = w
	}
	w.count++

	remaining := m.max - w.count
	if remaining < 0 {
		remaining = 0
	}

	return Decision{
		Allowed:   w.count <= m.max,
		Limit:     m.max,
		Remaining: remaining,
		ResetAt:   w.resetAt,
	}, nil
}

// Size returns the number of tracked keys.
func (m *Memory) Size() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.windows)
}

// Close stops the janitor.
func (m *Memory) Close() error {
	m.stopOnce.Do(func() { close(m.stop) })
	return nil
}

func (m *Memory) janitor() {
	ticker := time.NewTicker(m.window)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.sweep()
		case <-m.stop:
			return
		}
	}
}

// sweep removes windows that have ended.
func (m *Memory) sweep() {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	for key, w := range m.windows {
		if !now.Before(w.resetAt) {
			delete(m.windows, key)
		}
	}
}
