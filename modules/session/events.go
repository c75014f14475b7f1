package session

import (
	"time"

	"anime-frame-server/modules/frames"
	"anime-frame-server/modules/pipeline"
	"anime-frame-server/modules/playback"
)

// 이벤트 타입
const (
	EventStage    = "stage"
	EventStatus   = "status"
	EventLoaded   = "loaded"
	EventFrame    = "frame"
	EventPlayback = "playback"
	EventReset    = "reset"
	EventSnapshot = "snapshot"
	EventError    = "error"
)

// FrameView - wire 포맷 프레임 (url + duration ms)
type FrameView struct {
	Index    int    `json:"index"`
	URL      string `json:"url"`
	Duration int    `json:"duration"`
}

func newFrameView(index int, f frames.Frame) *FrameView {
	if f.IsZero() {
		return nil
	}
	return &FrameView{Index: index, URL: f.Source(), Duration: f.DurationMs()}
}

// Event - 세션 이벤트 (WebSocket / Redis로 전달)
type Event struct {
	Type       string               `json:"type"`
	SessionID  string               `json:"sessionId"`
	Phase      Phase                `json:"phase,omitempty"`
	Status     string               `json:"status,omitempty"`
	Stage      *pipeline.StageEvent `json:"stage,omitempty"`
	Frame      *FrameView           `json:"frame,omitempty"`
	Transition *playback.Transition `json:"transition,omitempty"`
	FrameCount int                  `json:"frameCount,omitempty"`
	Playing    bool                 `json:"playing"`
	Degraded   bool                 `json:"degraded,omitempty"`
	Wrapped    bool                 `json:"wrapped,omitempty"`
	View       *View                `json:"view,omitempty"`
	Error      string               `json:"error,omitempty"`
	At         time.Time            `json:"at"`
}

// Sink receives session events. Publish must not block for long.
type Sink interface {
	Publish(e Event)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(Event)

func (f SinkFunc) Publish(e Event) { f(e) }

type multiSink []Sink

func (m multiSink) Publish(e Event) {
	for _, s := range m {
		if s != nil {
			s.Publish(e)
		}
	}
}

// MultiSink fans an event out to every non-nil sink in order.
func MultiSink(sinks ...Sink) Sink {
	return multiSink(sinks)
}
