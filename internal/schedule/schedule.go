package schedule

import (
	"sync"
	"time"
)

// Task is a pending repeating callback
type Task interface {
	// Cancel stops the task. It is safe to call more than once, including
	// from inside the callback. Once it returns no further tick is started;
	// a callback already running is allowed to finish.
	Cancel()
}

// Scheduler runs a callback repeatedly at a fixed interval
type Scheduler interface {
	Every(interval time.Duration, fn func()) Task
}

// TickerScheduler schedules callbacks on a time.Ticker goroutine
type TickerScheduler struct{}

// NewTickerScheduler creates a scheduler backed by real time
func NewTickerScheduler() *TickerScheduler {
	return &TickerScheduler{}
}

// MinInterval is the shortest interval a TickerScheduler ticks at. Shorter
// intervals, including zero and negative ones, are raised to it.
const MinInterval = time.Millisecond

// Every starts a ticker goroutine that invokes fn once per interval
func (s *TickerScheduler) Every(interval time.Duration, fn func()) Task {
	if interval < MinInterval {
		interval = MinInterval
	}
	task := &tickerTask{
		ticker:   time.NewTicker(interval),
		stopChan: make(chan struct{}),
	}

	go func() {
		for {
			select {
			case <-task.ticker.C:
				task.run(fn)
			case <-task.stopChan:
				return
			}
		}
	}()

	return task
}

type tickerTask struct {
	mu       sync.Mutex
	ticker   *time.Ticker
	stopChan chan struct{}
	stopped  bool
}

// run drops a tick that lost the race against Cancel. The lock is released
// before fn so the callback may cancel its own task.
func (t *tickerTask) run(fn func()) {
	t.mu.Lock()
	stopped := t.stopped
	t.mu.Unlock()

	if stopped {
		return
	}
	fn()
}

func (t *tickerTask) Cancel() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.stopped {
		return
	}
	t.stopped = true
	t.ticker.Stop()
	close(t.stopChan)
}
