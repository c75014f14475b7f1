package fallback

import (
	"encoding/base64"
	"encoding/json"
	"log"
	"strconv"
	"strings"

	"anime-frame-server/modules/frames"
)

const transparentPixelBase64 = "iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAQAAAC1HAwCAAAAC0lEQVR42mP8/x8AAwMB/6X+ZQAAAABJRU5ErkJggg=="

const (
	DefaultFrameCount = 8
	DefaultFrameMs    = 150
)

var transparentPixelBytes []byte

func init() {
	data, err := base64.StdEncoding.DecodeString(transparentPixelBase64)
	if err != nil {
		log.Printf("⚠️ Failed to decode placeholder pixel: %v", err)
		return
	}
	transparentPixelBytes = data
}

// PlaceholderBase64 returns a 1x1 transparent PNG in base64 for slots that have no source image.
func PlaceholderBase64() string {
	return transparentPixelBase64
}

// PlaceholderDataURL is the placeholder pixel as a data URL, usable as a frame source.
func PlaceholderDataURL() string {
	return "data:image/png;base64," + PlaceholderBase64()
}

// PlaceholderBytes returns a copy of the transparent PNG bytes.
func PlaceholderBytes() []byte {
	if len(transparentPixelBytes) == 0 {
		return []byte{}
	}
	out := make([]byte, len(transparentPixelBytes))
	copy(out, transparentPixelBytes)
	return out
}

// Policy builds the degraded sequence shown when generation fails.
type Policy struct {
	FrameCount int
	FrameMs    int
}

// DefaultPolicy - 8 frames x 150ms
func DefaultPolicy() Policy {
	return Policy{FrameCount: DefaultFrameCount, FrameMs: DefaultFrameMs}
}

// Degrade never fails: every frame shows the original image for a constant duration.
// Non-positive policy values fall back to the defaults, and an empty image reference
// is replaced by the placeholder pixel.
func (p Policy) Degrade(image string) *frames.Sequence {
	count := SafeInt(p.FrameCount, DefaultFrameCount)
	ms := SafeInt(p.FrameMs, DefaultFrameMs)
	source := SafeString(image, PlaceholderDataURL())

	seq, err := frames.Repeat(source, count, func(int) int { return ms })
	if err != nil {
		// count/ms are positive here, Repeat cannot fail
		panic(err)
	}
	return seq
}

// Degrade - DefaultPolicy로 fallback 시퀀스 생성
func Degrade(image string) *frames.Sequence {
	return DefaultPolicy().Degrade(image)
}

// SafeString returns a trimmed string or the provided fallback.
func SafeString(value interface{}, fallback string) string {
	if s, ok := value.(string); ok {
		s = strings.TrimSpace(s)
		if s != "" {
			return s
		}
	}
	return fallback
}

// SafeInt converts common number shapes into int with a fallback.
func SafeInt(value interface{}, fallback int) int {
	switch v := value.(type) {
	case float64:
		if v > 0 {
			return int(v)
		}
	case float32:
		if v > 0 {
			return int(v)
		}
	case int:
		if v > 0 {
			return v
		}
	case int64:
		if v > 0 {
			return int(v)
		}
	case json.Number:
		if n, err := strconv.Atoi(v.String()); err == nil && n > 0 {
			return n
		}
	case string:
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && n > 0 {
			return n
		}
	}
	return fallback
}
