package game

import (
	"sync"
	"time"
)

// Scheduler runs fn after delay. The returned func cancels the run if it has
// not started yet.
type Scheduler interface {
	Schedule(delay time.Duration, fn func()) (cancel func())
}

type TimerScheduler struct{}

func (TimerScheduler) Schedule(delay time.Duration, fn func()) func() {
	t := time.AfterFunc(delay, fn)
	return func() { t.Stop() }
}

// ManualScheduler queues tasks until the caller runs them. Delays are
// recorded but never waited on.
type ManualScheduler struct {
	mu    sync.Mutex
	tasks []*ManualTask
}

type ManualTask struct {
	Delay     time.Duration
	Fn        func()
	cancelled bool
}

func NewManualScheduler() *ManualScheduler {
	return &ManualScheduler{}
}

func (m *ManualScheduler) Schedule(delay time.Duration, fn func()) func() {
	task := &ManualTask{Delay: delay, Fn: fn}
	m.mu.Lock()
	m.tasks = append(m.tasks, task)
	m.mu.Unlock()
	return func() {
		m.mu.Lock()
		task.cancelled = true
		m.mu.Unlock()
	}
}

// Pending returns the number of queued tasks that were not cancelled.
func (m *ManualScheduler) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, t := range m.tasks {
		if !t.cancelled {
			n++
		}
	}
	return n
}

// Last returns the most recently scheduled task, cancelled or not.
func (m *ManualScheduler) Last() *ManualTask {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.tasks) == 0 {
		return nil
	}
	return m.tasks[len(m.tasks)-1]
}

// RunNext runs the oldest live task and reports whether there was one.
func (m *ManualScheduler) RunNext() bool {
	m.mu.Lock()
	var next *ManualTask
	for len(m.tasks) > 0 {
		t := m.tasks[0]
		m.tasks = m.tasks[1:]
		if !t.cancelled {
			next = t
			break
		}
	}
	m.mu.Unlock()
	if next == nil {
		return false
	}
	next.Fn()
	return true
}

// RunAll drains the queue, including tasks scheduled while running, and
// stops after limit runs. It returns the number of tasks run.
func (m *ManualScheduler) RunAll(limit int) int {
	n := 0
	for n < limit && m.RunNext() {
		n++
	}
	return n
}
