package fallback

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDegrade_FixedShape(t *testing.T) {
	images := []string{
		"data:image/png;base64,AAAA",
		"https://cdn.example.com/panel.png",
		"x",
	}
	for _, img := range images {
		seq := Degrade(img)
		require.NotNil(t, seq)
		assert.Equal(t, 8, seq.Len())
		for i, f := range seq.Frames() {
			assert.Equal(t, 150, f.DurationMs(), "frame %d", i)
			assert.Equal(t, img, f.Source(), "frame %d", i)
		}
	}
}

func TestDegrade_Idempotent(t *testing.T) {
	a := Degrade("data:image/png;base64,AAAA")
	b := Degrade("data:image/png;base64,AAAA")
	assert.True(t, a.Equal(b))
	assert.NotSame(t, a, b)
}

func TestDegrade_EmptyImageStillPlays(t *testing.T) {
	seq := Degrade("   ")
	require.Equal(t, 8, seq.Len())
	assert.Equal(t, PlaceholderDataURL(), seq.At(0).Source())
}

func TestPolicy_NonPositiveValuesUseDefaults(t *testing.T) {
	seq := Policy{FrameCount: 0, FrameMs: -5}.Degrade("img")
	assert.Equal(t, 8, seq.Len())
	assert.Equal(t, 150, seq.At(0).DurationMs())

	seq = Policy{FrameCount: 3, FrameMs: 90}.Degrade("img")
	assert.Equal(t, []int{90, 90, 90}, seq.Durations())
}

func TestPlaceholderBytes_IsCopy(t *testing.T) {
	a := PlaceholderBytes()
	require.NotEmpty(t, a)
	a[0] = 0
	assert.NotEqual(t, byte(0), PlaceholderBytes()[0])
}

func TestPlaceholderDataURL(t *testing.T) {
	assert.Equal(t, "data:image/png;base64,"+PlaceholderBase64(), PlaceholderDataURL())
}

func TestSafeInt(t *testing.T) {
	assert.Equal(t, 120, SafeInt(float64(120), 0))
	assert.Equal(t, 150, SafeInt(json.Number("150"), 0))
	assert.Equal(t, 180, SafeInt(" 180 ", 0))
	assert.Equal(t, 7, SafeInt(-1, 7))
	assert.Equal(t, 7, SafeInt(nil, 7))
	assert.Equal(t, 7, SafeInt("abc", 7))
}
