// Package pipeline runs the staged generation request against the backend.
//
// Stages are narration for the caller: each one emits a StageEvent and waits its
// configured delay. The last stage issues the backend request. The result is
// atomic, either a complete frames.Sequence or a *GenerationError.
package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"anime-frame-server/modules/common/config"
	"anime-frame-server/modules/common/fallback"
	"anime-frame-server/modules/frames"
	generateanimation "anime-frame-server/modules/generate-animation"
)

// StageEvent - 파이프라인 진행 상황 (관찰용, 결과에 영향 없음)
type StageEvent struct {
	Index int    `json:"index"`
	Total int    `json:"total"`
	Name  string `json:"name"`
	Label string `json:"label"`
}

// Generator is what session controllers depend on.
type Generator interface {
	Generate(ctx context.Context, image string, onStage func(StageEvent)) (*frames.Sequence, error)
}

type Service struct {
	backendURL string
	httpClient *http.Client
	stages     []config.Stage
}

func NewService(cfg *config.Config) *Service {
	return New(cfg.BackendURL, &http.Client{Timeout: cfg.BackendTimeout}, cfg.Stages)
}

// New - 테스트에서 backend URL / client / stages를 직접 지정할 때 사용
func New(backendURL string, client *http.Client, stages []config.Stage) *Service {
	if client == nil {
		client = http.DefaultClient
	}
	if len(stages) == 0 {
		stages = config.DefaultStages()
	}
	return &Service{
		backendURL: backendURL,
		httpClient: client,
		stages:     stages,
	}
}

// Stages returns the configured stage list.
func (s *Service) Stages() []config.Stage {
	out := make([]config.Stage, len(s.stages))
	copy(out, s.stages)
	return out
}

// Generate - 단계별 진행 후 백엔드 호출
func (s *Service) Generate(ctx context.Context, image string, onStage func(StageEvent)) (*frames.Sequence, error) {
	if strings.TrimSpace(image) == "" {
		return nil, NewValidationError("image", "image is required", nil)
	}
	if onStage == nil {
		onStage = func(StageEvent) {}
	}

	for i, stage := range s.stages {
		log.Printf("🎬 [Pipeline] Stage %d/%d: %s", i+1, len(s.stages), stage.Label)
		onStage(StageEvent{Index: i, Total: len(s.stages), Name: stage.Name, Label: stage.Label})

		if err := wait(ctx, stage.Delay); err != nil {
			return nil, &GenerationError{Reason: ReasonCancelled, Err: err}
		}
	}

	seq, err := s.request(ctx, image)
	if err != nil {
		log.Printf("❌ [Pipeline] %v", err)
		return nil, err
	}

	log.Printf("✅ [Pipeline] Received %d frames", seq.Len())
	return seq, nil
}

func (s *Service) request(ctx context.Context, image string) (*frames.Sequence, error) {
	body, err := json.Marshal(generateanimation.GenerateRequest{Image: image})
	if err != nil {
		return nil, &GenerationError{Reason: ReasonTransport, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.backendURL, bytes.NewReader(body))
	if err != nil {
		return nil, &GenerationError{Reason: ReasonTransport, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, &GenerationError{Reason: ReasonTransport, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// drain so the connection can be reused
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, &GenerationError{Reason: ReasonFailed, StatusCode: resp.StatusCode}
	}

	seq, err := decodeFrames(resp.Body)
	if err != nil {
		return nil, &GenerationError{Reason: ReasonMalformed, StatusCode: resp.StatusCode, Err: err}
	}
	return seq, nil
}

// rawResponse - duration은 숫자/문자열 모두 허용
type rawResponse struct {
	Frames  []map[string]interface{} `json:"frames"`
	Message string                   `json:"message"`
}

func decodeFrames(r io.Reader) (*frames.Sequence, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	var raw rawResponse
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if len(raw.Frames) == 0 {
		return nil, frames.ErrEmptySequence
	}

	list := make([]frames.Frame, 0, len(raw.Frames))
	for i, item := range raw.Frames {
		url := fallback.SafeString(item["url"], "")
		if url == "" {
			return nil, fmt.Errorf("frame %d: missing url", i)
		}
		f, err := frames.NewFrame(url, fallback.SafeInt(item["duration"], 0))
		if err != nil {
			return nil, fmt.Errorf("frame %d: %w", i, err)
		}
		list = append(list, f)
	}
	return frames.NewSequence(list)
}

func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
