package session

import (
	"fmt"
	"log"
	"strings"

	"anime-frame-server/modules/common/utils"
	"anime-frame-server/modules/pipeline"
)

const MessageNoImage = "No image provided"

// ValidateImageURL - 업로드 게이트: data URL 검증 후 정규화된 data URL 반환
func ValidateImageURL(image string, maxBytes int64) (string, error) {
	if strings.TrimSpace(image) == "" {
		return "", pipeline.NewValidationError("image", MessageNoImage, nil)
	}

	parsed, err := utils.ParseDataURL(image)
	if err != nil {
		return "", pipeline.NewValidationError("image", "image must be a base64 data URL", err)
	}
	return validateParsed(parsed, maxBytes)
}

// ValidateImageBytes - multipart 업로드 등 raw 바이너리를 data URL로 변환
func ValidateImageBytes(data []byte, maxBytes int64) (string, error) {
	if len(data) == 0 {
		return "", pipeline.NewValidationError("image", MessageNoImage, nil)
	}
	mimeType, err := utils.SniffImageType(data)
	if err != nil {
		return "", pipeline.NewValidationError("image", "unsupported image type", err)
	}
	return validateParsed(utils.DataURL{MimeType: mimeType, Data: data}, maxBytes)
}

func validateParsed(parsed utils.DataURL, maxBytes int64) (string, error) {
	if maxBytes > 0 && int64(len(parsed.Data)) > maxBytes {
		return "", pipeline.NewValidationError("image",
			fmt.Sprintf("image is %d bytes, limit is %d", len(parsed.Data), maxBytes), nil)
	}

	size, err := utils.ValidateImage(parsed.MimeType, parsed.Data)
	if err != nil {
		return "", pipeline.NewValidationError("image", "image could not be decoded", err)
	}

	log.Printf("📥 [Upload] Accepted %s image %dx%d (%d bytes)", parsed.MimeType, size.X, size.Y, len(parsed.Data))
	return parsed.String(), nil
}
