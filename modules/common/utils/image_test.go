package utils

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestDataURL_RoundTrip(t *testing.T) {
	data := testPNG(t, 4, 3)
	url := EncodeDataURL("image/png", data)

	parsed, err := ParseDataURL(url)
	require.NoError(t, err)
	assert.Equal(t, "image/png", parsed.MimeType)
	assert.Equal(t, data, parsed.Data)
	assert.Equal(t, url, parsed.String())
}

func TestParseDataURL_Errors(t *testing.T) {
	tests := map[string]struct {
		input string
		want  error
	}{
		"plain URL":    {"https://example.com/a.png", ErrNotDataURL},
		"no comma":     {"data:image/png;base64", ErrNotDataURL},
		"not base64":   {"data:image/png,rawdata", ErrNotDataURL},
		"wrong type":   {"data:text/plain;base64,aGVsbG8=", ErrUnsupportedType},
		"empty string": {"", ErrNotDataURL},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ParseDataURL(tc.input)
			assert.ErrorIs(t, err, tc.want)
		})
	}

	_, err := ParseDataURL("data:image/png;base64,!!!")
	assert.Error(t, err)
}

func TestSniffImageType(t *testing.T) {
	mimeType, err := SniffImageType(testPNG(t, 1, 1))
	require.NoError(t, err)
	assert.Equal(t, "image/png", mimeType)

	webpHeader := append([]byte("RIFF\x00\x00\x00\x00WEBP"), make([]byte, 8)...)
	mimeType, err = SniffImageType(webpHeader)
	require.NoError(t, err)
	assert.Equal(t, "image/webp", mimeType)

	_, err = SniffImageType([]byte("hello world"))
	assert.ErrorIs(t, err, ErrUnsupportedType)
}

func TestValidateImage(t *testing.T) {
	size, err := ValidateImage("image/png", testPNG(t, 5, 7))
	require.NoError(t, err)
	assert.Equal(t, image.Point{X: 5, Y: 7}, size)

	_, err = ValidateImage("image/png", []byte("not a png"))
	assert.Error(t, err)

	_, err = ValidateImage("image/png", nil)
	assert.Error(t, err)
}

func TestDecodeImage(t *testing.T) {
	img, err := DecodeImage("image/png", testPNG(t, 2, 2))
	require.NoError(t, err)
	assert.Equal(t, 2, img.Bounds().Dx())
}
