// Package frames holds the timed frame model shared by generation and playback.
//
// A Sequence is built once and never mutated afterwards. Regenerating an
// animation produces a new Sequence that replaces the old one wholesale.
package frames

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrEmptySequence   = errors.New("frame sequence must contain at least one frame")
	ErrInvalidDuration = errors.New("frame duration must be positive")
)

// Frame - one timed unit of playback (image reference + display duration)
type Frame struct {
	source     string
	durationMs int
}

// NewFrame - durationMs는 반드시 0보다 커야 함
func NewFrame(source string, durationMs int) (Frame, error) {
	if durationMs <= 0 {
		return Frame{}, fmt.Errorf("%w: %d", ErrInvalidDuration, durationMs)
	}
	return Frame{source: source, durationMs: durationMs}, nil
}

// MustFrame panics on an invalid duration. Only for package-level constants and tests.
func MustFrame(source string, durationMs int) Frame {
	f, err := NewFrame(source, durationMs)
	if err != nil {
		panic(err)
	}
	return f
}

func (f Frame) Source() string { return f.source }

func (f Frame) DurationMs() int { return f.durationMs }

// Duration - durationMs as time.Duration
func (f Frame) Duration() time.Duration {
	return time.Duration(f.durationMs) * time.Millisecond
}

// IsZero reports whether f is the zero Frame (used as the "no content" marker).
func (f Frame) IsZero() bool {
	return f.durationMs == 0 && f.source == ""
}

// Sequence is an ordered, immutable list of frames. Order defines playback order.
type Sequence struct {
	frames []Frame
}

// NewSequence copies the given frames into a new Sequence.
func NewSequence(list []Frame) (*Sequence, error) {
	if len(list) == 0 {
		return nil, ErrEmptySequence
	}
	out := make([]Frame, len(list))
	for i, f := range list {
		if f.durationMs <= 0 {
			return nil, fmt.Errorf("frame %d: %w", i, ErrInvalidDuration)
		}
		out[i] = f
	}
	return &Sequence{frames: out}, nil
}

// Repeat - 같은 source로 n개의 프레임 생성, duration은 durationAt(i)로 결정
func Repeat(source string, n int, durationAt func(i int) int) (*Sequence, error) {
	if n <= 0 {
		return nil, ErrEmptySequence
	}
	list := make([]Frame, 0, n)
	for i := 0; i < n; i++ {
		f, err := NewFrame(source, durationAt(i))
		if err != nil {
			return nil, fmt.Errorf("frame %d: %w", i, err)
		}
		list = append(list, f)
	}
	return &Sequence{frames: list}, nil
}

func (s *Sequence) Len() int {
	if s == nil {
		return 0
	}
	return len(s.frames)
}

// At returns the frame at index i. It panics when i is out of range, like a slice.
func (s *Sequence) At(i int) Frame {
	return s.frames[i]
}

// Frames returns a copy of the frames in playback order.
func (s *Sequence) Frames() []Frame {
	if s == nil {
		return nil
	}
	out := make([]Frame, len(s.frames))
	copy(out, s.frames)
	return out
}

// Durations - 재생 순서대로 프레임 duration(ms) 목록
func (s *Sequence) Durations() []int {
	if s == nil {
		return nil
	}
	out := make([]int, len(s.frames))
	for i, f := range s.frames {
		out[i] = f.durationMs
	}
	return out
}

// TotalDuration is the length of one full loop.
func (s *Sequence) TotalDuration() time.Duration {
	var total time.Duration
	for _, f := range s.Frames() {
		total += f.Duration()
	}
	return total
}

// Equal compares two sequences by value.
func (s *Sequence) Equal(other *Sequence) bool {
	if s.Len() != other.Len() {
		return false
	}
	for i := range s.Frames() {
		if s.frames[i] != other.frames[i] {
			return false
		}
	}
	return true
}
