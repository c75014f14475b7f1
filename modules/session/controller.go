package session

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"anime-frame-server/modules/common/fallback"
	"anime-frame-server/modules/export"
	"anime-frame-server/modules/frames"
	"anime-frame-server/modules/pipeline"
	"anime-frame-server/modules/playback"
)

// Phase - 생성 상태 머신: idle → requesting → {succeeded, failed}
type Phase string

const (
	PhaseIdle       Phase = "idle"
	PhaseRequesting Phase = "requesting"
	PhaseSucceeded  Phase = "succeeded"
	PhaseFailed     Phase = "failed"
)

const (
	StatusComplete = "Animation complete!"
	StatusDemoMode = "Error: Generation failed. Demo mode activated."
)

var (
	ErrBusy     = errors.New("generation already in progress")
	ErrClosed   = errors.New("session closed")
	ErrNotFound = errors.New("session not found")
)

// Outcome - 한 번의 생성 요청 결과
type Outcome struct {
	Phase      Phase
	Status     string
	Degraded   bool
	FrameCount int
	Err        error
}

// View - 세션 상태 스냅샷 (HTTP 응답용)
type View struct {
	SessionID  string     `json:"sessionId"`
	Phase      Phase      `json:"phase"`
	Status     string     `json:"status"`
	Degraded   bool       `json:"degraded"`
	HasImage   bool       `json:"hasImage"`
	Playing    bool       `json:"playing"`
	Cursor     int        `json:"cursor"`
	FrameCount int        `json:"frameCount"`
	Frame      *FrameView `json:"frame,omitempty"`
	Timing     string     `json:"timing"`
}

type ControllerOptions struct {
	Generator      pipeline.Generator
	Policy         fallback.Policy
	Clock          playback.Clock
	Mode           playback.Mode
	Transition     time.Duration
	MaxUploadBytes int64
	// OnOutcome is called once per finished generation request.
	OnOutcome func(Outcome)
}

// Controller owns one session's upload, generation state machine and scheduler.
type Controller struct {
	id   string
	opts ControllerOptions
	sink Sink

	mu       sync.Mutex
	image    string
	phase    Phase
	status   string
	degraded bool
	closed   bool

	scheduler *playback.Scheduler
	ctx       context.Context
	cancel    context.CancelFunc
}

func NewController(id string, opts ControllerOptions, sink Sink) *Controller {
	if opts.Policy.FrameCount <= 0 || opts.Policy.FrameMs <= 0 {
		opts.Policy = fallback.DefaultPolicy()
	}
	if sink == nil {
		sink = SinkFunc(func(Event) {})
	}
	ctx, cancel := context.WithCancel(context.Background())
	c := &Controller{
		id:     id,
		opts:   opts,
		sink:   sink,
		phase:  PhaseIdle,
		ctx:    ctx,
		cancel: cancel,
	}
	c.scheduler = playback.NewScheduler(playback.Options{
		Clock:      opts.Clock,
		Mode:       opts.Mode,
		Transition: opts.Transition,
		OnFrame:    c.onFrame,
	})
	return c
}

func (c *Controller) ID() string { return c.id }

// Upload - 업로드 게이트 통과 후 이전 시퀀스 폐기, idle로 복귀
func (c *Controller) Upload(image string) error {
	normalized, err := ValidateImageURL(image, c.opts.MaxUploadBytes)
	if err != nil {
		return err
	}
	return c.accept(normalized)
}

// UploadBytes accepts a raw image file.
func (c *Controller) UploadBytes(data []byte) error {
	normalized, err := ValidateImageBytes(data, c.opts.MaxUploadBytes)
	if err != nil {
		return err
	}
	return c.accept(normalized)
}

func (c *Controller) accept(image string) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if c.phase == PhaseRequesting {
		c.mu.Unlock()
		return ErrBusy
	}
	c.image = image
	c.phase = PhaseIdle
	c.status = ""
	c.degraded = false
	c.mu.Unlock()

	c.scheduler.Reset()
	c.publish(Event{Type: EventReset, Phase: PhaseIdle})
	return nil
}

// Submit starts a generation request and returns a channel that receives its outcome.
// It fails fast with a *pipeline.ValidationError when no image is uploaded, and with
// ErrBusy while another request is in flight.
func (c *Controller) Submit() (<-chan Outcome, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, ErrClosed
	}
	if c.phase == PhaseRequesting {
		c.mu.Unlock()
		return nil, ErrBusy
	}
	if c.image == "" {
		c.mu.Unlock()
		return nil, pipeline.NewValidationError("image", MessageNoImage, nil)
	}
	image := c.image
	c.phase = PhaseRequesting
	c.status = ""
	c.degraded = false
	c.mu.Unlock()

	// 새 요청 시작 시 이전 시퀀스의 재생 타이머 취소
	c.scheduler.Pause()
	c.publish(Event{Type: EventStatus, Phase: PhaseRequesting})

	out := make(chan Outcome, 1)
	go func() {
		defer close(out)
		out <- c.run(image)
	}()
	return out, nil
}

// Generate is Submit followed by waiting for the outcome.
func (c *Controller) Generate(ctx context.Context) (Outcome, error) {
	ch, err := c.Submit()
	if err != nil {
		return Outcome{}, err
	}
	select {
	case o := <-ch:
		return o, nil
	case <-ctx.Done():
		return Outcome{}, ctx.Err()
	}
}

func (c *Controller) run(image string) Outcome {
	log.Printf("🚀 [Session %s] Generation started", c.id)

	seq, err := c.opts.Generator.Generate(c.ctx, image, c.onStage)

	var outcome Outcome
	if err != nil {
		// GenerationError는 여기서 복구: fallback 시퀀스로 재생 계속
		log.Printf("⚠️  [Session %s] Generation failed, using fallback: %v", c.id, err)
		seq = c.opts.Policy.Degrade(image)
		outcome = Outcome{Phase: PhaseFailed, Status: StatusDemoMode, Degraded: true, Err: err}
	} else {
		outcome = Outcome{Phase: PhaseSucceeded, Status: StatusComplete}
	}
	outcome.FrameCount = seq.Len()

	c.finish(outcome, seq)

	if c.opts.OnOutcome != nil {
		c.opts.OnOutcome(outcome)
	}
	log.Printf("✅ [Session %s] Generation settled: %s (%d frames, degraded: %v)",
		c.id, outcome.Phase, outcome.FrameCount, outcome.Degraded)
	return outcome
}

// finish loads seq while the phase is still requesting, so Upload and Submit keep
// returning ErrBusy until the new sequence is in place.
func (c *Controller) finish(outcome Outcome, seq *frames.Sequence) {
	playing := c.scheduler.Load(seq)

	c.mu.Lock()
	c.phase = outcome.Phase
	c.status = outcome.Status
	c.degraded = outcome.Degraded
	c.mu.Unlock()

	e := Event{
		Type:       EventLoaded,
		Phase:      outcome.Phase,
		Status:     outcome.Status,
		FrameCount: seq.Len(),
		Degraded:   outcome.Degraded,
		Playing:    playing,
	}
	if outcome.Err != nil {
		e.Error = pipeline.ReasonFailed
	}
	c.publish(e)
}

func (c *Controller) onStage(stage pipeline.StageEvent) {
	c.mu.Lock()
	c.status = stage.Label
	c.mu.Unlock()

	c.publish(Event{Type: EventStage, Phase: PhaseRequesting, Status: stage.Label, Stage: &stage})
}

func (c *Controller) onFrame(change playback.FrameChange) {
	transition := change.Transition
	c.publish(Event{
		Type:       EventFrame,
		Frame:      newFrameView(change.Index, change.Frame),
		Transition: &transition,
		FrameCount: change.Length,
		Playing:    true,
		Wrapped:    change.Wrapped,
	})
}

// Toggle flips playback and returns the new playing value.
func (c *Controller) Toggle() bool {
	playing := c.scheduler.Toggle()
	c.publish(Event{Type: EventPlayback, Playing: playing})
	return playing
}

// Scheduler exposes the playback scheduler (read-mostly: Snapshot, CurrentFrame).
func (c *Controller) Scheduler() *playback.Scheduler {
	return c.scheduler
}

func (c *Controller) Snapshot() View {
	snap := c.scheduler.Snapshot()

	c.mu.Lock()
	defer c.mu.Unlock()
	return View{
		SessionID:  c.id,
		Phase:      c.phase,
		Status:     c.status,
		Degraded:   c.degraded,
		HasImage:   c.image != "",
		Playing:    snap.Playing,
		Cursor:     snap.Cursor,
		FrameCount: snap.Length,
		Frame:      newFrameView(snap.Cursor, snap.Frame),
		Timing:     string(snap.Mode),
	}
}

// Download - 현재 시퀀스를 GIF로 렌더링
func (c *Controller) Download() (*export.Artifact, error) {
	c.mu.Lock()
	image := c.image
	c.mu.Unlock()
	return export.Render(c.scheduler.Sequence(), image)
}

// Close cancels any in-flight generation and stops playback for good.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.mu.Unlock()

	c.cancel()
	c.scheduler.Close()
}

func (c *Controller) publish(e Event) {
	e.SessionID = c.id
	if e.At.IsZero() {
		e.At = time.Now()
	}
	c.sink.Publish(e)
}
