package playback

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestReduce(t *testing.T) {
	seq := seqOf(t, 100, 200, 300)

	s := Reduce(State{}, Event{Kind: EventTick})
	assert.Equal(t, State{}, s, "tick on empty state")

	s = Reduce(State{}, Event{Kind: EventLoad})
	assert.Equal(t, State{}, s, "loading nothing is a no-op")

	s = Reduce(State{}, Event{Kind: EventLoad, Sequence: seq})
	assert.Equal(t, State{Sequence: seq, Cursor: 0, Playing: true}, s)

	s = Reduce(s, Event{Kind: EventTick})
	s = Reduce(s, Event{Kind: EventTick})
	assert.Equal(t, 2, s.Cursor)
	assert.Equal(t, "c", s.Current().Source())

	s = Reduce(s, Event{Kind: EventToggle})
	assert.False(t, s.Playing)
	assert.Equal(t, 2, s.Cursor)

	s = Reduce(s, Event{Kind: EventTick})
	assert.Equal(t, 2, s.Cursor, "paused")

	s = Reduce(s, Event{Kind: EventToggle})
	s = Reduce(s, Event{Kind: EventTick})
	assert.Equal(t, 0, s.Cursor, "wraps")

	reloaded := Reduce(s, Event{Kind: EventLoad, Sequence: seqOf(t, 10, 10)})
	assert.Equal(t, 0, reloaded.Cursor)
	assert.Equal(t, 2, reloaded.Sequence.Len())

	assert.Equal(t, State{}, Reduce(reloaded, Event{Kind: EventReset}))
	assert.False(t, Reduce(reloaded, Event{Kind: EventPause}).Playing)
	assert.Equal(t, "tick", EventTick.String())
}

func TestCrossFade(t *testing.T) {
	tr := CrossFade(DefaultTransition, 180*time.Millisecond)
	assert.Equal(t, 150, tr.DurationMs)
	assert.Equal(t, 0.95, tr.FromScale)
	assert.Equal(t, 1.05, tr.ExitScale)

	tr = CrossFade(0, 100*time.Millisecond)
	assert.Equal(t, 50, tr.DurationMs, "zero base uses the default, then clamps")
}
