package session

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"sync/atomic"
	"time"
)

// Publisher is the pub/sub backend RedisSink writes to.
type Publisher interface {
	Publish(ctx context.Context, channel string, payload []byte) error
}

type outbound struct {
	channel string
	payload []byte
}

// RedisSink forwards session events to a pub/sub channel per session.
// Publish only enqueues; a full queue drops the event so playback never waits on Redis.
type RedisSink struct {
	publisher Publisher
	channel   func(sessionID string) string
	timeout   time.Duration

	queue   chan outbound
	done    chan struct{}
	once    sync.Once
	wg      sync.WaitGroup
	dropped atomic.Int64
	failed  atomic.Int64
}

func NewRedisSink(p Publisher, channel func(string) string, queueSize int) *RedisSink {
	if queueSize <= 0 {
		queueSize = 256
	}
	s := &RedisSink{
		publisher: p,
		channel:   channel,
		timeout:   2 * time.Second,
		queue:     make(chan outbound, queueSize),
		done:      make(chan struct{}),
	}
	s.wg.Add(1)
	go s.loop()
	return s
}

func (s *RedisSink) Publish(e Event) {
	payload, err := json.Marshal(e)
	if err != nil {
		log.Printf("❌ [Redis] Failed to marshal event: %v", err)
		return
	}

	select {
	case <-s.done:
		return
	default:
	}

	select {
	case s.queue <- outbound{channel: s.channel(e.SessionID), payload: payload}:
	default:
		s.dropped.Add(1)
	}
}

func (s *RedisSink) loop() {
	defer s.wg.Done()
	for {
		select {
		case msg := <-s.queue:
			s.send(msg)
		case <-s.done:
			// 남은 이벤트 flush
			for {
				select {
				case msg := <-s.queue:
					s.send(msg)
				default:
					return
				}
			}
		}
	}
}

func (s *RedisSink) send(msg outbound) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	if err := s.publisher.Publish(ctx, msg.channel, msg.payload); err != nil {
		s.failed.Add(1)
		log.Printf("⚠️  [Redis] Publish failed: %v", err)
	}
}

// Dropped - 큐가 가득 차서 버려진 이벤트 수
func (s *RedisSink) Dropped() int64 { return s.dropped.Load() }

// Failed - publish 실패 수
func (s *RedisSink) Failed() int64 { return s.failed.Load() }

// Close stops accepting events and flushes what is queued.
func (s *RedisSink) Close() {
	s.once.Do(func() {
		close(s.done)
	})
	s.wg.Wait()
}
