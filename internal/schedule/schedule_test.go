package schedule

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTickerSchedulerTicksUntilCancelled(t *testing.T) {
	var ticks atomic.Int32
	task := NewTickerScheduler().Every(5*time.Millisecond, func() {
		ticks.Add(1)
	})

	assert.Eventually(t, func() bool { return ticks.Load() >= 2 }, time.Second, time.Millisecond)

	task.Cancel()
	time.Sleep(10 * time.Millisecond)
	settled := ticks.Load()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, settled, ticks.Load(), "no tick may start after Cancel returns")

	task.Cancel()
}

func TestTickerSchedulerCancelFromCallback(t *testing.T) {
	var ticks atomic.Int32
	ready := make(chan Task, 1)
	done := make(chan struct{})

	task := NewTickerScheduler().Every(2*time.Millisecond, func() {
		if ticks.Add(1) == 1 {
			(<-ready).Cancel()
			close(done)
		}
	})
	ready <- task

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("callback never ran")
	}

	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int32(1), ticks.Load())
}

func TestTickerSchedulerRaisesShortIntervals(t *testing.T) {
	for _, interval := range []time.Duration{0, -time.Second} {
		var ticks atomic.Int32
		task := NewTickerScheduler().Every(interval, func() { ticks.Add(1) })

		assert.Eventually(t, func() bool { return ticks.Load() >= 1 }, time.Second, time.Millisecond)
		task.Cancel()
	}
}

func TestManualScheduler(t *testing.T) {
	m := NewManual()
	calls := 0
	task := m.Every(time.Second, func() { calls++ })

	assert.Equal(t, 1, m.Fire())
	assert.Equal(t, 1, m.Fire())
	assert.Equal(t, 2, calls)
	assert.Equal(t, 1, m.Active())
	assert.Equal(t, time.Second, m.LastInterval())

	task.Cancel()
	task.Cancel()
	assert.Equal(t, 0, m.Fire())
	assert.Equal(t, 2, calls)
	assert.Equal(t, 0, m.Active())
}
