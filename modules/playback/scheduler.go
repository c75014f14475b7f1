// Package playback drives a loaded frames.Sequence over time.
//
// A Scheduler owns exactly one PlaybackState and at most one armed timer. Every
// arm is stamped with an epoch; cancelling bumps the epoch, so a callback that was
// already in flight when the timer was stopped finds a stale epoch and does nothing.
package playback

import (
	"log"
	"sync"
	"time"

	"anime-frame-server/modules/frames"
)

type Mode string

const (
	// ModePerFrame re-arms the timer with each frame's own duration.
	ModePerFrame Mode = "per-frame"
	// ModeFixed keeps the interval at the first frame's duration for the whole loop.
	ModeFixed Mode = "fixed"
)

// FrameChange is emitted every time the visible frame changes.
type FrameChange struct {
	Index      int
	Length     int
	Frame      frames.Frame
	Transition Transition
	Wrapped    bool
}

// Snapshot - 외부 노출용 재생 상태 복사본
type Snapshot struct {
	Loaded  bool
	Cursor  int
	Length  int
	Playing bool
	Frame   frames.Frame
	Mode    Mode
}

type Options struct {
	Clock      Clock
	Mode       Mode
	Transition time.Duration
	// OnFrame is called outside the scheduler lock, in frame order. It must not
	// call back into the same scheduler.
	OnFrame func(FrameChange)
}

type Scheduler struct {
	mu         sync.Mutex
	emitMu     sync.Mutex
	state      State
	clock      Clock
	mode       Mode
	transition time.Duration
	onFrame    func(FrameChange)

	timer  Timer
	epoch  uint64
	closed bool
}

func NewScheduler(opts Options) *Scheduler {
	if opts.Clock == nil {
		opts.Clock = RealClock{}
	}
	if opts.Mode != ModeFixed {
		opts.Mode = ModePerFrame
	}
	if opts.Transition <= 0 {
		opts.Transition = DefaultTransition
	}
	if opts.OnFrame == nil {
		opts.OnFrame = func(FrameChange) {}
	}
	return &Scheduler{
		clock:      opts.Clock,
		mode:       opts.Mode,
		transition: opts.Transition,
		onFrame:    opts.OnFrame,
	}
}

// Load - 기존 타이머 취소 후 시퀀스 교체, cursor 0, 재생 시작
// Returns false (no-op) for an empty sequence or a closed scheduler.
func (s *Scheduler) Load(seq *frames.Sequence) bool {
	s.mu.Lock()
	if s.closed || seq.Len() == 0 {
		s.mu.Unlock()
		return false
	}
	s.cancelLocked()
	s.state = Reduce(s.state, Event{Kind: EventLoad, Sequence: seq})
	s.armLocked()
	change := s.changeLocked(false)
	s.emit(change)
	return true
}

// Toggle flips playing and returns the new value. Pausing stops the timer at once;
// resuming arms it for the current frame. The cursor is never touched.
func (s *Scheduler) Toggle() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.state = Reduce(s.state, Event{Kind: EventToggle})
	if s.state.Playing {
		s.armLocked()
	} else {
		s.cancelLocked()
	}
	return s.state.Playing
}

// Pause stops playback without dropping the sequence.
func (s *Scheduler) Pause() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelLocked()
	s.state = Reduce(s.state, Event{Kind: EventPause})
}

// Reset drops the sequence and stops the timer.
func (s *Scheduler) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelLocked()
	s.state = Reduce(s.state, Event{Kind: EventReset})
}

// Close resets the scheduler and rejects further loads.
func (s *Scheduler) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelLocked()
	s.state = State{}
	s.closed = true
}

// Tick advances one frame. It is a no-op while unloaded or paused.
// A tick restarts the interval for the new current frame.
func (s *Scheduler) Tick() bool {
	s.mu.Lock()
	return s.advanceLocked()
}

// CurrentFrame returns sequence[cursor] or NoContent.
func (s *Scheduler) CurrentFrame() frames.Frame {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Current()
}

func (s *Scheduler) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		Loaded:  s.state.Loaded(),
		Cursor:  s.state.Cursor,
		Length:  s.state.Sequence.Len(),
		Playing: s.state.Playing,
		Frame:   s.state.Current(),
		Mode:    s.mode,
	}
}

// Sequence returns the loaded sequence, or nil.
func (s *Scheduler) Sequence() *frames.Sequence {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Sequence
}

// advanceLocked expects s.mu held and always releases it.
func (s *Scheduler) advanceLocked() bool {
	if s.closed || !s.state.Loaded() || !s.state.Playing {
		s.mu.Unlock()
		return false
	}
	s.cancelLocked()
	s.state = Reduce(s.state, Event{Kind: EventTick})
	s.armLocked()
	change := s.changeLocked(s.state.Cursor == 0)
	s.emit(change)
	return true
}

func (s *Scheduler) fire(epoch uint64) {
	s.mu.Lock()
	if epoch != s.epoch {
		// cancelled after the timer had already started running
		s.mu.Unlock()
		return
	}
	s.timer = nil
	s.advanceLocked()
}

// armLocked - cancel-before-start: 항상 하나의 타이머만 유지
func (s *Scheduler) armLocked() {
	s.cancelLocked()
	if !s.state.Loaded() || !s.state.Playing {
		return
	}
	interval := s.intervalLocked()
	epoch := s.epoch
	s.timer = s.clock.AfterFunc(interval, func() { s.fire(epoch) })
}

func (s *Scheduler) cancelLocked() {
	s.epoch++
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

func (s *Scheduler) intervalLocked() time.Duration {
	if s.mode == ModeFixed {
		return s.state.Sequence.At(0).Duration()
	}
	return s.state.Current().Duration()
}

func (s *Scheduler) changeLocked(wrapped bool) FrameChange {
	frame := s.state.Current()
	return FrameChange{
		Index:      s.state.Cursor,
		Length:     s.state.Sequence.Len(),
		Frame:      frame,
		Transition: CrossFade(s.transition, s.intervalFor(frame)),
		Wrapped:    wrapped,
	}
}

// intervalFor - 전환 효과는 실제 표시 시간보다 짧아야 함
func (s *Scheduler) intervalFor(frame frames.Frame) time.Duration {
	if s.mode == ModeFixed {
		return s.state.Sequence.At(0).Duration()
	}
	return frame.Duration()
}

// emit hands the change to OnFrame after releasing s.mu. emitMu is taken before
// the release so changes reach OnFrame in the order they were made.
func (s *Scheduler) emit(change FrameChange) {
	s.emitMu.Lock()
	s.mu.Unlock()
	defer s.emitMu.Unlock()

	defer func() {
		if r := recover(); r != nil {
			log.Printf("❌ [Playback] OnFrame panic: %v", r)
		}
	}()
	s.onFrame(change)
}
