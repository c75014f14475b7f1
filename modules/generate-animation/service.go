package generateanimation

import (
	"context"
	"fmt"
	"log"
	"time"

	"anime-frame-server/modules/common/config"
	"anime-frame-server/modules/frames"
)

// Frame duration pattern: 120, 150, 180 ms repeating every 3 frames.
const (
	baseDurationMs = 120
	stepDurationMs = 30
	patternLength  = 3
)

// Service - 생성 백엔드. 실제 AI 추론 대신 입력 이미지로 프레임 목록을 만든다
type Service struct {
	frameCount int
	delay      time.Duration
}

func NewService(cfg *config.Config) *Service {
	return &Service{
		frameCount: cfg.FrameCount,
		delay:      cfg.BackendDelay,
	}
}

// FrameDuration returns the display duration of frame i.
func FrameDuration(i int) int {
	return baseDurationMs + (i%patternLength)*stepDurationMs
}

// GenerateFrames - 처리 지연 후 frameCount개의 프레임 생성
// 모든 프레임의 source는 입력 이미지와 동일 (placeholder 동작)
func (s *Service) GenerateFrames(ctx context.Context, image string) (*frames.Sequence, error) {
	log.Printf("🎬 [Generate] Generating %d frames (delay: %v)", s.frameCount, s.delay)

	if s.delay > 0 {
		timer := time.NewTimer(s.delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("generation interrupted: %w", ctx.Err())
		case <-timer.C:
		}
	}

	seq, err := frames.Repeat(image, s.frameCount, FrameDuration)
	if err != nil {
		return nil, fmt.Errorf("failed to build frames: %w", err)
	}

	log.Printf("✅ [Generate] %d frames generated (loop: %v)", seq.Len(), seq.TotalDuration())
	return seq, nil
}

// toResponse - Sequence를 wire 포맷으로 변환
func toResponse(seq *frames.Sequence) GenerateResponse {
	out := make([]FrameDTO, 0, seq.Len())
	for _, f := range seq.Frames() {
		out = append(out, FrameDTO{URL: f.Source(), Duration: f.DurationMs()})
	}
	return GenerateResponse{Frames: out, Message: MessageGenerated}
}
