package export

import (
	"bytes"
	"image"
	"image/color"
	"image/gif"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"anime-frame-server/modules/common/fallback"
	"anime-frame-server/modules/common/utils"
	"anime-frame-server/modules/frames"
)

func pngDataURL(t *testing.T) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 3, 2))
	img.Set(1, 1, color.RGBA{G: 255, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return utils.EncodeDataURL("image/png", buf.Bytes())
}

func TestRender_AnimatedGIF(t *testing.T) {
	src := pngDataURL(t)
	seq, err := frames.Repeat(src, 3, func(i int) int { return 120 + i*30 })
	require.NoError(t, err)

	art, err := Render(seq, src)
	require.NoError(t, err)
	assert.Equal(t, "anime-animation.gif", art.FileName)
	assert.Equal(t, "image/gif", art.ContentType)
	assert.True(t, art.Animated)

	decoded, err := gif.DecodeAll(bytes.NewReader(art.Data))
	require.NoError(t, err)
	assert.Len(t, decoded.Image, 3)
	assert.Equal(t, []int{12, 15, 18}, decoded.Delay)
	assert.Equal(t, 0, decoded.LoopCount, "loops forever")
}

func TestRender_FallsBackToSource(t *testing.T) {
	src := pngDataURL(t)
	seq, err := frames.Repeat("https://cdn.example.com/frame.png", 2, func(int) int { return 150 })
	require.NoError(t, err)

	art, err := Render(seq, src)
	require.NoError(t, err)
	assert.False(t, art.Animated)
	assert.Equal(t, "image/png", art.ContentType)
	assert.Equal(t, "anime-animation.gif", art.FileName)
}

func TestRender_NothingLoaded(t *testing.T) {
	_, err := Render(nil, "")
	assert.ErrorIs(t, err, ErrNothingLoaded)
}

func TestRender_PlaceholderWithoutSource(t *testing.T) {
	seq := fallback.Degrade("not-a-data-url")
	art, err := Render(seq, "not-a-data-url")
	require.NoError(t, err)
	assert.True(t, art.Animated)
	assert.Equal(t, "image/gif", art.ContentType)
	assert.Equal(t, "anime-animation.gif", art.FileName)

	decoded, err := gif.DecodeAll(bytes.NewReader(art.Data))
	require.NoError(t, err)
	assert.Len(t, decoded.Image, 8)
	assert.Equal(t, 15, decoded.Delay[0])
	assert.Equal(t, image.Rect(0, 0, 1, 1), decoded.Image[0].Bounds())
}

func TestCentiseconds(t *testing.T) {
	assert.Equal(t, 15, centiseconds(150))
	assert.Equal(t, 1, centiseconds(1))
	assert.Equal(t, 12, centiseconds(120))
}
