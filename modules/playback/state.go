package playback

import "anime-frame-server/modules/frames"

// NoContent is returned by CurrentFrame when nothing is loaded.
var NoContent = frames.Frame{}

// State - 재생 상태. cursor는 시퀀스가 있을 때 항상 [0, len) 범위
type State struct {
	Sequence *frames.Sequence
	Cursor   int
	Playing  bool
}

type EventKind int

const (
	EventLoad EventKind = iota
	EventToggle
	EventTick
	EventPause
	EventReset
)

func (k EventKind) String() string {
	switch k {
	case EventLoad:
		return "load"
	case EventToggle:
		return "toggle"
	case EventTick:
		return "tick"
	case EventPause:
		return "pause"
	case EventReset:
		return "reset"
	}
	return "unknown"
}

type Event struct {
	Kind     EventKind
	Sequence *frames.Sequence // EventLoad only
}

func (s State) Loaded() bool {
	return s.Sequence.Len() > 0
}

// Current returns the frame under the cursor, or NoContent.
func (s State) Current() frames.Frame {
	if !s.Loaded() {
		return NoContent
	}
	return s.Sequence.At(s.Cursor)
}

// Reduce is the pure transition function behind the Scheduler.
//
//   - Load replaces the sequence, resets the cursor and starts playing. An empty
//     sequence leaves the state untouched.
//   - Toggle flips Playing when something is loaded. The cursor never moves.
//   - Tick advances (cursor+1) mod len, only while loaded and playing.
//   - Pause stops playback, Reset returns to the empty state.
func Reduce(s State, e Event) State {
	switch e.Kind {
	case EventLoad:
		if e.Sequence.Len() == 0 {
			return s
		}
		return State{Sequence: e.Sequence, Cursor: 0, Playing: true}
	case EventToggle:
		if !s.Loaded() {
			return s
		}
		s.Playing = !s.Playing
		return s
	case EventTick:
		if !s.Loaded() || !s.Playing {
			return s
		}
		s.Cursor = (s.Cursor + 1) % s.Sequence.Len()
		return s
	case EventPause:
		s.Playing = false
		return s
	case EventReset:
		return State{}
	}
	return s
}
