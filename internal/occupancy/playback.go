package occupancy

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"slices"
	"sync"
	"time"

	"github.com/saaga0h/floorplan-dashboard/internal/records"
	"github.com/saaga0h/floorplan-dashboard/internal/schedule"
)

// State is the playback state
type State string

const (
	StateIdle     State = "idle"
	StatePlaying  State = "playing"
	StatePaused   State = "paused"
	StateFinished State = "finished"
)

// MinInterval is the shortest frame interval a speed may produce
const MinInterval = time.Millisecond

var (
	// ErrNoFrames is returned when playback is asked to move without frames
	ErrNoFrames = errors.New("no playback frames")

	// ErrFrameOutOfRange is returned by Seek for an index outside the frame list
	ErrFrameOutOfRange = errors.New("frame index out of range")

	// ErrInvalidSpeed is returned by SetSpeed for a multiplier that is not
	// positive and finite or that would tick faster than MinInterval
	ErrInvalidSpeed = errors.New("invalid playback speed")
)

// Status describes the playback position
type Status struct {
	State      State   `json:"state"`
	Index      int     `json:"index"`
	Time       int64   `json:"time"`
	Clock      string  `json:"clock"`
	Date       string  `json:"date"`
	FrameCount int     `json:"frameCount"`
	Speed      float64 `json:"speed"`
	IntervalMs int64   `json:"intervalMs"`
	FirstClock string  `json:"firstClock"`
	MidClock   string  `json:"midClock"`
	LastClock  string  `json:"lastClock"`
}

// Playback steps through the distinct start/end times of the filtered
// records one frame per tick. Reaching the last frame finishes playback.
type Playback struct {
	mu        sync.Mutex
	scheduler schedule.Scheduler
	publisher FramePublisher
	logger    *slog.Logger

	base  time.Duration
	speed float64

	records    []records.IntervalRecord
	frames     []int64
	index      int
	state      State
	generation uint64

	task    schedule.Task
	taskSeq uint64
}

// NewPlayback creates an idle playback. base is the frame interval at 1x.
func NewPlayback(scheduler schedule.Scheduler, base time.Duration, publisher FramePublisher, logger *slog.Logger) *Playback {
	if publisher == nil {
		publisher = NopPublisher{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	if base < MinInterval {
		base = MinInterval
	}
	return &Playback{
		scheduler: scheduler,
		publisher: publisher,
		logger:    logger,
		base:      base,
		speed:     1,
		state:     StateIdle,
	}
}

// SetRecords rebuilds the frame list. generation orders concurrent
// updates: one not newer than the last applied is ignored. The current
// time is kept when it is still a frame; otherwise playback moves to the
// first frame. An empty frame list stops playback.
func (p *Playback) SetRecords(generation uint64, recs []records.IntervalRecord) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if generation != 0 && generation <= p.generation {
		return
	}
	p.generation = generation

	var current int64
	hadFrame := p.index < len(p.frames)
	if hadFrame {
		current = p.frames[p.index]
	}

	p.records = recs
	p.frames = Frames(recs)

	if len(p.frames) == 0 {
		p.cancelLocked()
		p.index = 0
		p.state = StateIdle
		return
	}

	p.index = 0
	if hadFrame {
		if i, found := slices.BinarySearch(p.frames, current); found {
			p.index = i
		}
	}
	if p.state == StatePlaying && p.index == len(p.frames)-1 {
		p.cancelLocked()
		p.state = StateFinished
	}
}

// Play starts ticking from the current frame, or from the first frame when
// playback had finished
func (p *Playback) Play() (Status, error) {
	p.mu.Lock()

	if len(p.frames) == 0 {
		p.mu.Unlock()
		return p.Status(), ErrNoFrames
	}
	if p.state == StatePlaying {
		p.mu.Unlock()
		return p.Status(), nil
	}

	restarted := false
	if p.state == StateFinished || p.index >= len(p.frames)-1 {
		p.index = 0
		restarted = true
	}
	p.state = StatePlaying
	p.scheduleLocked()
	frame := p.frameLocked()
	p.mu.Unlock()

	p.logger.Debug("Playback started", "index", frame.Index, "restarted", restarted)
	if restarted {
		p.publish(frame)
	}
	return p.Status(), nil
}

// Pause stops ticking and keeps the current frame
func (p *Playback) Pause() Status {
	p.mu.Lock()
	if p.state == StatePlaying {
		p.cancelLocked()
		p.state = StatePaused
	}
	p.mu.Unlock()
	return p.Status()
}

// Stop cancels any pending tick and rewinds to the first frame. Stopping
// an already stopped playback does nothing.
func (p *Playback) Stop() Status {
	p.mu.Lock()
	p.cancelLocked()
	p.index = 0
	p.state = StateIdle
	p.mu.Unlock()
	return p.Status()
}

// Seek moves to frame index without changing whether playback is running.
// Seeking a finished playback pauses it.
func (p *Playback) Seek(index int) (Status, error) {
	p.mu.Lock()
	if len(p.frames) == 0 {
		p.mu.Unlock()
		return p.Status(), ErrNoFrames
	}
	if index < 0 || index >= len(p.frames) {
		p.mu.Unlock()
		return p.Status(), fmt.Errorf("seek to %d of %d frames: %w", index, len(p.frames), ErrFrameOutOfRange)
	}

	p.index = index
	if p.state == StateFinished {
		p.state = StatePaused
	}
	if p.state == StatePlaying && index == len(p.frames)-1 {
		p.cancelLocked()
		p.state = StateFinished
	}
	frame := p.frameLocked()
	p.mu.Unlock()

	p.publish(frame)
	return p.Status(), nil
}

// SetSpeed changes the playback multiplier; the tick interval becomes
// base / speed. A running playback is rescheduled.
func (p *Playback) SetSpeed(speed float64) (Status, error) {
	if speed <= 0 || math.IsNaN(speed) || math.IsInf(speed, 0) {
		return p.Status(), ErrInvalidSpeed
	}

	p.mu.Lock()
	if interval := time.Duration(float64(p.base) / speed); interval < MinInterval {
		p.mu.Unlock()
		return p.Status(), fmt.Errorf("speed %g gives a %s frame interval, below %s: %w", speed, interval, MinInterval, ErrInvalidSpeed)
	}
	p.speed = speed
	if p.state == StatePlaying {
		p.cancelLocked()
		p.scheduleLocked()
	}
	p.mu.Unlock()
	return p.Status(), nil
}

// Status returns the current position
func (p *Playback) Status() Status {
	p.mu.Lock()
	defer p.mu.Unlock()

	s := Status{
		State:      p.state,
		Index:      p.index,
		FrameCount: len(p.frames),
		Speed:      p.speed,
		IntervalMs: p.intervalLocked().Milliseconds(),
	}
	if len(p.frames) > 0 {
		s.Time = p.frames[p.index]
		s.Clock = records.FormatClock(s.Time)
		s.Date = DateAt(p.records, s.Time)
		s.FirstClock = records.FormatClock(p.frames[0])
		s.MidClock = records.FormatClock(p.frames[len(p.frames)/2])
		s.LastClock = records.FormatClock(p.frames[len(p.frames)-1])
	}
	return s
}

// Current returns the current frame time and whether there is one
func (p *Playback) Current() (int64, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.frames) == 0 {
		return 0, false
	}
	return p.frames[p.index], true
}

// tick advances one frame. A tick from a superseded task is ignored.
func (p *Playback) tick(seq uint64) {
	p.mu.Lock()
	if seq != p.taskSeq || p.state != StatePlaying || len(p.frames) == 0 {
		p.mu.Unlock()
		return
	}

	if p.index < len(p.frames)-1 {
		p.index++
	}
	if p.index == len(p.frames)-1 {
		p.cancelLocked()
		p.state = StateFinished
	}
	frame := p.frameLocked()
	state := p.state
	p.mu.Unlock()

	if state == StateFinished {
		p.logger.Debug("Playback finished", "frames", frame.Index+1)
	}
	p.publish(frame)
}

func (p *Playback) intervalLocked() time.Duration {
	return time.Duration(float64(p.base) / p.speed)
}

func (p *Playback) scheduleLocked() {
	p.taskSeq++
	seq := p.taskSeq
	p.task = p.scheduler.Every(p.intervalLocked(), func() { p.tick(seq) })
}

// cancelLocked cancels the pending task and invalidates its ticks
func (p *Playback) cancelLocked() {
	if p.task == nil {
		return
	}
	p.task.Cancel()
	p.task = nil
	p.taskSeq++
}

func (p *Playback) frameLocked() Frame {
	t := p.frames[p.index]
	return NewFrame(p.records, p.index, t)
}

func (p *Playback) publish(frame Frame) {
	if err := p.publisher.PublishFrame(frame); err != nil {
		p.logger.Warn("Failed to publish playback frame", "index", frame.Index, "error", err)
	}
}
