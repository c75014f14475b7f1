package frames

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFrame_RejectsNonPositiveDuration(t *testing.T) {
	for _, d := range []int{0, -1, -150} {
		_, err := NewFrame("img", d)
		assert.ErrorIs(t, err, ErrInvalidDuration, "duration %d", d)
	}

	f, err := NewFrame("img", 120)
	require.NoError(t, err)
	assert.Equal(t, "img", f.Source())
	assert.Equal(t, 120, f.DurationMs())
	assert.Equal(t, 120*time.Millisecond, f.Duration())
}

func TestNewSequence_Empty(t *testing.T) {
	_, err := NewSequence(nil)
	assert.ErrorIs(t, err, ErrEmptySequence)

	_, err = Repeat("img", 0, func(int) int { return 100 })
	assert.ErrorIs(t, err, ErrEmptySequence)
}

func TestNewSequence_RejectsZeroFrame(t *testing.T) {
	_, err := NewSequence([]Frame{MustFrame("a", 100), {}})
	assert.ErrorIs(t, err, ErrInvalidDuration)
}

func TestSequence_IsImmutable(t *testing.T) {
	input := []Frame{MustFrame("a", 100), MustFrame("b", 200)}
	seq, err := NewSequence(input)
	require.NoError(t, err)

	// mutating the caller's slice or the returned copy must not leak in
	input[0] = MustFrame("x", 999)
	got := seq.Frames()
	got[1] = MustFrame("y", 999)

	assert.Equal(t, "a", seq.At(0).Source())
	assert.Equal(t, "b", seq.At(1).Source())
	assert.Equal(t, []int{100, 200}, seq.Durations())
}

func TestRepeat_DurationPattern(t *testing.T) {
	seq, err := Repeat("img", 6, func(i int) int { return 120 + (i%3)*30 })
	require.NoError(t, err)

	assert.Equal(t, 6, seq.Len())
	assert.Equal(t, []int{120, 150, 180, 120, 150, 180}, seq.Durations())
	assert.Equal(t, 900*time.Millisecond, seq.TotalDuration())
}

func TestSequence_Equal(t *testing.T) {
	a, _ := Repeat("img", 3, func(int) int { return 150 })
	b, _ := Repeat("img", 3, func(int) int { return 150 })
	c, _ := Repeat("other", 3, func(int) int { return 150 })

	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
	assert.False(t, a.Equal(nil))

	var empty *Sequence
	assert.Equal(t, 0, empty.Len())
	assert.Nil(t, empty.Frames())
}
