package schedule

import (
	"sync"
	"time"
)

// Manual is a Scheduler driven by explicit Fire calls, for tests
type Manual struct {
	mu    sync.Mutex
	tasks []*manualTask
}

// NewManual creates a manual scheduler
func NewManual() *Manual {
	return &Manual{}
}

// Every registers fn; it only runs when Fire is called
func (m *Manual) Every(interval time.Duration, fn func()) Task {
	m.mu.Lock()
	defer m.mu.Unlock()

	task := &manualTask{interval: interval, fn: fn}
	m.tasks = append(m.tasks, task)
	return task
}

// Fire runs one tick of every live task and returns how many ran
func (m *Manual) Fire() int {
	m.mu.Lock()
	tasks := make([]*manualTask, len(m.tasks))
	copy(tasks, m.tasks)
	m.mu.Unlock()

	fired := 0
	for _, task := range tasks {
		if task.fire() {
			fired++
		}
	}
	return fired
}

// Active returns the number of tasks not yet cancelled
func (m *Manual) Active() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	active := 0
	for _, task := range m.tasks {
		if !task.isCancelled() {
			active++
		}
	}
	return active
}

// LastInterval returns the interval of the most recently scheduled task
func (m *Manual) LastInterval() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.tasks) == 0 {
		return 0
	}
	return m.tasks[len(m.tasks)-1].interval
}

type manualTask struct {
	mu        sync.Mutex
	interval  time.Duration
	fn        func()
	cancelled bool
}

func (t *manualTask) fire() bool {
	if t.isCancelled() {
		return false
	}
	t.fn()
	return true
}

func (t *manualTask) isCancelled() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cancelled
}

func (t *manualTask) Cancel() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cancelled = true
}
