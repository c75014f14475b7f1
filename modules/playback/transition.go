package playback

import "time"

// DefaultTransition - 프레임 전환 효과 기본 길이
const DefaultTransition = 150 * time.Millisecond

// Transition describes the cross-fade/scale effect played on a frame change.
// The incoming frame fades from FromOpacity and FromScale to full; the outgoing
// frame scales to ExitScale while fading out.
type Transition struct {
	Duration    time.Duration `json:"-"`
	DurationMs  int           `json:"durationMs"`
	FromOpacity float64       `json:"fromOpacity"`
	FromScale   float64       `json:"fromScale"`
	ExitScale   float64       `json:"exitScale"`
}

// CrossFade returns the transition for a frame shown for frameDuration.
// The effect is always strictly shorter than the frame, so at most two adjacent
// frames are ever on screen together: a base that does not fit is clamped to half
// the frame duration.
func CrossFade(base, frameDuration time.Duration) Transition {
	if base <= 0 {
		base = DefaultTransition
	}
	d := base
	if d >= frameDuration {
		d = frameDuration / 2
	}
	return Transition{
		Duration:    d,
		DurationMs:  int(d / time.Millisecond),
		FromOpacity: 0,
		FromScale:   0.95,
		ExitScale:   1.05,
	}
}
