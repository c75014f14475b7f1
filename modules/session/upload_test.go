package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"anime-frame-server/modules/common/utils"
	"anime-frame-server/modules/pipeline"
)

func TestValidateImageURL(t *testing.T) {
	src := pngDataURL(t)

	got, err := ValidateImageURL(src, 0)
	require.NoError(t, err)
	assert.Equal(t, src, got)

	_, err = ValidateImageURL("   ", 0)
	var vErr *pipeline.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, MessageNoImage, vErr.Reason)

	_, err = ValidateImageURL(src, 8)
	require.ErrorAs(t, err, &vErr)
	assert.Contains(t, vErr.Reason, "limit")
}

func TestValidateImageBytes(t *testing.T) {
	parsed, err := utils.ParseDataURL(pngDataURL(t))
	require.NoError(t, err)

	got, err := ValidateImageBytes(parsed.Data, 0)
	require.NoError(t, err)
	assert.Contains(t, got, "data:image/png;base64,")

	_, err = ValidateImageBytes(nil, 0)
	assert.True(t, pipeline.IsValidationError(err))

	_, err = ValidateImageBytes([]byte("plain text, not an image"), 0)
	assert.True(t, pipeline.IsValidationError(err))
}
