package utils

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/gif"  // GIF 디코더 등록
	_ "image/jpeg" // JPEG 디코더 등록
	_ "image/png"  // PNG 디코더 등록
	"log"
	"net/http"
	"strings"

	"github.com/kolesa-team/go-webp/decoder"
	"github.com/kolesa-team/go-webp/webp"
)

var (
	ErrNotDataURL      = errors.New("image is not a base64 data URL")
	ErrUnsupportedType = errors.New("unsupported image type")
)

// supportedTypes - 업로드 허용 MIME 타입
var supportedTypes = map[string]bool{
	"image/png":  true,
	"image/jpeg": true,
	"image/gif":  true,
	"image/webp": true,
}

// DataURL - 파싱된 data URL
type DataURL struct {
	MimeType string
	Data     []byte
}

// String re-encodes the payload as a base64 data URL.
func (d DataURL) String() string {
	return EncodeDataURL(d.MimeType, d.Data)
}

// EncodeDataURL - 바이너리를 data:<mime>;base64,<payload> 형식으로 변환
func EncodeDataURL(mimeType string, data []byte) string {
	return "data:" + mimeType + ";base64," + ConvertImageToBase64(data)
}

// ParseDataURL - data:image/<type>;base64,<payload> 파싱
func ParseDataURL(s string) (DataURL, error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "data:") {
		return DataURL{}, ErrNotDataURL
	}
	meta, payload, ok := strings.Cut(s[len("data:"):], ",")
	if !ok {
		return DataURL{}, ErrNotDataURL
	}
	mimeType, encoding, _ := strings.Cut(meta, ";")
	if encoding != "base64" {
		return DataURL{}, fmt.Errorf("%w: encoding %q", ErrNotDataURL, encoding)
	}
	mimeType = strings.ToLower(strings.TrimSpace(mimeType))
	if !supportedTypes[mimeType] {
		return DataURL{}, fmt.Errorf("%w: %q", ErrUnsupportedType, mimeType)
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		// 일부 클라이언트는 padding 없이 전송
		data, err = base64.RawStdEncoding.DecodeString(payload)
		if err != nil {
			return DataURL{}, fmt.Errorf("failed to decode base64 payload: %w", err)
		}
	}
	return DataURL{MimeType: mimeType, Data: data}, nil
}

// SniffImageType - 바이너리에서 MIME 타입 감지
func SniffImageType(data []byte) (string, error) {
	if len(data) >= 12 && string(data[0:4]) == "RIFF" && string(data[8:12]) == "WEBP" {
		return "image/webp", nil
	}
	mimeType := http.DetectContentType(data)
	if !supportedTypes[mimeType] {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedType, mimeType)
	}
	return mimeType, nil
}

// DecodeImage - MIME 타입에 맞게 디코딩 (WebP는 go-webp 사용)
func DecodeImage(mimeType string, data []byte) (image.Image, error) {
	if mimeType == "image/webp" {
		img, err := webp.Decode(bytes.NewReader(data), &decoder.Options{})
		if err != nil {
			return nil, fmt.Errorf("failed to decode WebP: %w", err)
		}
		return img, nil
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", mimeType, err)
	}
	return img, nil
}

// ValidateImage - 이미지가 실제로 디코딩 가능한지 확인하고 크기 반환
func ValidateImage(mimeType string, data []byte) (image.Point, error) {
	if len(data) == 0 {
		return image.Point{}, fmt.Errorf("image payload is empty")
	}
	if mimeType == "image/webp" {
		img, err := DecodeImage(mimeType, data)
		if err != nil {
			return image.Point{}, err
		}
		return img.Bounds().Size(), nil
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return image.Point{}, fmt.Errorf("failed to read %s header: %w", mimeType, err)
	}
	return image.Point{X: cfg.Width, Y: cfg.Height}, nil
}

// ConvertImageToBase64 - 이미지 바이너리를 base64로 변환
func ConvertImageToBase64(imageData []byte) string {
	base64Str := base64.StdEncoding.EncodeToString(imageData)
	log.Printf("🔄 Image converted to base64: %d chars (preview: %s...)",
		len(base64Str),
		base64Str[:min(50, len(base64Str))])
	return base64Str
}
