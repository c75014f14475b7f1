// Package export turns the loaded frame sequence into a downloadable file.
package export

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color/palette"
	"image/draw"
	"image/gif"
	"log"

	"anime-frame-server/modules/common/fallback"
	"anime-frame-server/modules/common/utils"
	"anime-frame-server/modules/frames"
)

// FileName - 다운로드 파일명 (고정 확장자)
const FileName = "anime-animation.gif"

var ErrNothingLoaded = errors.New("no animation loaded")

// Artifact is a rendered download.
type Artifact struct {
	FileName    string
	ContentType string
	Data        []byte
	Animated    bool
}

// Render builds an animated GIF from seq, looping forever with each frame's own delay.
// When any frame source is not a decodable data URL, the raw source image is
// returned instead, still under FileName. Without a usable source the frames are
// rendered from the placeholder pixel.
func Render(seq *frames.Sequence, source string) (*Artifact, error) {
	if seq.Len() == 0 {
		return nil, ErrNothingLoaded
	}

	data, err := encodeGIF(seq)
	if err == nil {
		log.Printf("✅ [Export] Rendered GIF: %d frames, %d bytes", seq.Len(), len(data))
		return &Artifact{FileName: FileName, ContentType: "image/gif", Data: data, Animated: true}, nil
	}
	log.Printf("⚠️  [Export] GIF render failed, falling back to source image: %v", err)

	raw, rawErr := utils.ParseDataURL(source)
	if rawErr == nil {
		return &Artifact{FileName: FileName, ContentType: raw.MimeType, Data: raw.Data}, nil
	}

	// source도 없으면 placeholder 픽셀로 같은 타이밍의 GIF 생성
	log.Printf("⚠️  [Export] Source image unusable, rendering placeholder: %v", rawErr)
	data, phErr := encodePlaceholder(seq)
	if phErr != nil {
		return nil, fmt.Errorf("failed to export animation: %w", errors.Join(err, rawErr, phErr))
	}
	return &Artifact{FileName: FileName, ContentType: "image/gif", Data: data, Animated: true}, nil
}

func encodePlaceholder(seq *frames.Sequence) ([]byte, error) {
	img, err := utils.DecodeImage("image/png", fallback.PlaceholderBytes())
	if err != nil {
		return nil, fmt.Errorf("failed to decode placeholder: %w", err)
	}
	p := toPaletted(img)

	anim := &gif.GIF{LoopCount: 0}
	for _, f := range seq.Frames() {
		anim.Image = append(anim.Image, p)
		anim.Delay = append(anim.Delay, centiseconds(f.DurationMs()))
	}

	var buf bytes.Buffer
	if err := gif.EncodeAll(&buf, anim); err != nil {
		return nil, fmt.Errorf("failed to encode GIF: %w", err)
	}
	return buf.Bytes(), nil
}

func encodeGIF(seq *frames.Sequence) ([]byte, error) {
	// 동일한 source는 한 번만 디코딩/양자화
	cache := make(map[string]*image.Paletted)
	anim := &gif.GIF{LoopCount: 0}

	for i, f := range seq.Frames() {
		p, ok := cache[f.Source()]
		if !ok {
			img, err := decodeSource(f.Source())
			if err != nil {
				return nil, fmt.Errorf("frame %d: %w", i, err)
			}
			p = toPaletted(img)
			cache[f.Source()] = p
		}
		anim.Image = append(anim.Image, p)
		anim.Delay = append(anim.Delay, centiseconds(f.DurationMs()))
	}

	var buf bytes.Buffer
	if err := gif.EncodeAll(&buf, anim); err != nil {
		return nil, fmt.Errorf("failed to encode GIF: %w", err)
	}
	return buf.Bytes(), nil
}

func decodeSource(source string) (image.Image, error) {
	d, err := utils.ParseDataURL(source)
	if err != nil {
		return nil, err
	}
	return utils.DecodeImage(d.MimeType, d.Data)
}

func toPaletted(img image.Image) *image.Paletted {
	bounds := img.Bounds()
	p := image.NewPaletted(bounds, palette.Plan9)
	draw.FloydSteinberg.Draw(p, bounds, img, bounds.Min)
	return p
}

// centiseconds - GIF delay 단위 (최소 1)
func centiseconds(ms int) int {
	cs := (ms + 5) / 10
	if cs < 1 {
		return 1
	}
	return cs
}
