package session

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"anime-frame-server/modules/common/config"
	"anime-frame-server/modules/common/fallback"
	"anime-frame-server/modules/pipeline"
	"anime-frame-server/modules/playback"
)

// 정리 기준
const (
	EmptyIdleThreshold = 5 * time.Minute
	ExpiredThreshold   = 24 * time.Hour
	InactiveThreshold  = 2 * time.Hour
)

// Session - 하나의 업로드/생성/재생 세션과 연결된 WebSocket 클라이언트들
type Session struct {
	id           string
	controller   *Controller
	clients      map[string]*Client
	mutex        sync.Mutex
	createdAt    time.Time
	lastActivity time.Time
	now          func() time.Time
}

func (s *Session) ID() string { return s.id }

func (s *Session) Controller() *Controller { return s.controller }

func (s *Session) touch() {
	s.mutex.Lock()
	s.lastActivity = s.now()
	s.mutex.Unlock()
}

func (s *Session) addClient(client *Client) int {
	s.mutex.Lock()
	if old, exists := s.clients[client.userID]; exists {
		close(old.send)
	}
	s.clients[client.userID] = client
	s.lastActivity = s.now()
	count := len(s.clients)
	s.mutex.Unlock()

	log.Printf("👤 Client %s joined session %s (Clients: %d)", client.userID, s.id, count)
	return count
}

func (s *Session) removeClient(client *Client) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	// 같은 userID로 재접속한 경우 새 클라이언트는 건드리지 않음
	current, exists := s.clients[client.userID]
	if !exists || current != client {
		return
	}
	close(client.send)
	delete(s.clients, client.userID)
	s.lastActivity = s.now()

	log.Printf("👋 Client %s left session %s (Remaining: %d)", client.userID, s.id, len(s.clients))
	if len(s.clients) == 0 {
		log.Printf("🗑️  Session %s has no clients, eligible for cleanup after idle", s.id)
	}
}

// Publish - 세션 이벤트를 모든 클라이언트에게 브로드캐스트
// A client whose send buffer is full is disconnected.
func (s *Session) Publish(e Event) {
	messageBytes, err := json.Marshal(e)
	if err != nil {
		log.Printf("Error marshaling event: %v", err)
		return
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	for userID, client := range s.clients {
		select {
		case client.send <- messageBytes:
		default:
			close(client.send)
			delete(s.clients, userID)
			log.Printf("⚠️  Dropped slow client %s from session %s", userID, s.id)
		}
	}
}

func (s *Session) sendTo(client *Client, e Event) {
	messageBytes, err := json.Marshal(e)
	if err != nil {
		log.Printf("Error marshaling event: %v", err)
		return
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()
	if current, ok := s.clients[client.userID]; !ok || current != client {
		return
	}
	select {
	case client.send <- messageBytes:
	default:
	}
}

func (s *Session) clientCount() int {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return len(s.clients)
}

func (s *Session) closeClients() {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	for userID, client := range s.clients {
		close(client.send)
		delete(s.clients, userID)
		log.Printf("🔌 Disconnecting client %s from session %s", userID, s.id)
	}
}

// Info - 세션 정보 (HTTP 응답용)
type Info struct {
	View
	ClientCount  int       `json:"clientCount"`
	Clients      []string  `json:"clients"`
	CreatedAt    time.Time `json:"createdAt"`
	LastActivity time.Time `json:"lastActivity"`
	Age          string    `json:"age"`
	Inactive     string    `json:"inactive"`
}

func (s *Session) Info() Info {
	view := s.controller.Snapshot()
	now := s.now()

	s.mutex.Lock()
	defer s.mutex.Unlock()
	ids := make([]string, 0, len(s.clients))
	for userID := range s.clients {
		ids = append(ids, userID)
	}
	return Info{
		View:         view,
		ClientCount:  len(s.clients),
		Clients:      ids,
		CreatedAt:    s.createdAt,
		LastActivity: s.lastActivity,
		Age:          now.Sub(s.createdAt).String(),
		Inactive:     now.Sub(s.lastActivity).String(),
	}
}

// Metrics - 서버 메트릭
type Metrics struct {
	TotalSessions    int       `json:"totalSessions"`
	ActiveSessions   int       `json:"activeSessions"`
	TotalConnections int       `json:"totalConnections"`
	Generations      int       `json:"generations"`
	Fallbacks        int       `json:"fallbacks"`
	StartTime        time.Time `json:"startTime"`
}

type ManagerOptions struct {
	Generator      pipeline.Generator
	Policy         fallback.Policy
	Clock          playback.Clock
	Mode           playback.Mode
	Transition     time.Duration
	MaxUploadBytes int64
	// Sink receives every session's events in addition to its WebSocket clients.
	Sink Sink
	Now  func() time.Time
}

// OptionsFromConfig builds manager options from cfg around the given generator.
func OptionsFromConfig(cfg *config.Config, gen pipeline.Generator) ManagerOptions {
	mode := playback.ModePerFrame
	if cfg.PlaybackTimer == config.TimingFixed {
		mode = playback.ModeFixed
	}
	return ManagerOptions{
		Generator:      gen,
		Policy:         fallback.Policy{FrameCount: cfg.FallbackFrameCount, FrameMs: cfg.FallbackFrameMs},
		Mode:           mode,
		Transition:     time.Duration(cfg.TransitionMs) * time.Millisecond,
		MaxUploadBytes: cfg.MaxUploadBytes,
	}
}

// Manager - 세션 매니저
type Manager struct {
	sessions map[string]*Session
	mutex    sync.RWMutex
	opts     ManagerOptions

	metrics      Metrics
	metricsMutex sync.Mutex
}

func NewManager(opts ManagerOptions) *Manager {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Manager{
		sessions: make(map[string]*Session),
		opts:     opts,
		metrics:  Metrics{StartTime: opts.Now()},
	}
}

// Create - 새 세션 생성 (uuid)
func (m *Manager) Create() *Session {
	return m.GetOrCreate(uuid.NewString())
}

// GetOrCreate - 세션 가져오기 또는 생성
func (m *Manager) GetOrCreate(id string) *Session {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	session, exists := m.sessions[id]
	if !exists {
		session = m.newSessionLocked(id)
		m.sessions[id] = session

		m.metricsMutex.Lock()
		m.metrics.TotalSessions++
		m.metrics.ActiveSessions++
		total, active := m.metrics.TotalSessions, m.metrics.ActiveSessions
		m.metricsMutex.Unlock()

		log.Printf("✅ Created new session: %s (Total: %d, Active: %d)", id, total, active)
	}

	session.touch()
	return session
}

func (m *Manager) newSessionLocked(id string) *Session {
	now := m.opts.Now()
	session := &Session{
		id:           id,
		clients:      make(map[string]*Client),
		createdAt:    now,
		lastActivity: now,
		now:          m.opts.Now,
	}

	var sink Sink = session
	if m.opts.Sink != nil {
		sink = MultiSink(session, m.opts.Sink)
	}
	session.controller = NewController(id, ControllerOptions{
		Generator:      m.opts.Generator,
		Policy:         m.opts.Policy,
		Clock:          m.opts.Clock,
		Mode:           m.opts.Mode,
		Transition:     m.opts.Transition,
		MaxUploadBytes: m.opts.MaxUploadBytes,
		OnOutcome:      m.recordOutcome,
	}, sink)
	return session
}

func (m *Manager) recordOutcome(o Outcome) {
	m.metricsMutex.Lock()
	defer m.metricsMutex.Unlock()
	m.metrics.Generations++
	if o.Degraded {
		m.metrics.Fallbacks++
	}
}

// Get returns the session and refreshes its activity time.
func (m *Manager) Get(id string) (*Session, bool) {
	m.mutex.RLock()
	session, exists := m.sessions[id]
	m.mutex.RUnlock()
	if exists {
		session.touch()
	}
	return session, exists
}

func (m *Manager) addConnection() {
	m.metricsMutex.Lock()
	m.metrics.TotalConnections++
	m.metricsMutex.Unlock()
}

// Metrics - 메트릭 복사본
func (m *Manager) Metrics() Metrics {
	m.metricsMutex.Lock()
	defer m.metricsMutex.Unlock()
	return m.metrics
}

// Sessions - 전체 세션 정보
func (m *Manager) Sessions() []Info {
	m.mutex.RLock()
	list := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		list = append(list, s)
	}
	m.mutex.RUnlock()

	infos := make([]Info, 0, len(list))
	for _, s := range list {
		infos = append(infos, s.Info())
	}
	return infos
}

// CleanupEmpty - 클라이언트 없고 idle 상태가 오래된 세션 정리
// Sessions with a generation in flight are kept.
func (m *Manager) CleanupEmpty() int {
	now := m.opts.Now()
	return m.cleanup("empty", func(s *Session) bool {
		s.mutex.Lock()
		empty := len(s.clients) == 0 && now.Sub(s.lastActivity) > EmptyIdleThreshold
		s.mutex.Unlock()
		return empty && s.controller.Snapshot().Phase != PhaseRequesting
	})
}

// CleanupExpired - 만료된 세션 정리 (24시간 후, 또는 클라이언트 없이 2시간 비활성)
func (m *Manager) CleanupExpired() int {
	now := m.opts.Now()
	return m.cleanup("expired", func(s *Session) bool {
		s.mutex.Lock()
		defer s.mutex.Unlock()
		isExpired := now.Sub(s.createdAt) > ExpiredThreshold
		isInactive := now.Sub(s.lastActivity) > InactiveThreshold && len(s.clients) == 0
		return isExpired || isInactive
	})
}

func (m *Manager) cleanup(reason string, shouldRemove func(*Session) bool) int {
	m.mutex.Lock()
	removed := make([]*Session, 0)
	for id, s := range m.sessions {
		if shouldRemove(s) {
			delete(m.sessions, id)
			removed = append(removed, s)
		}
	}
	m.mutex.Unlock()

	for _, s := range removed {
		s.closeClients()
		s.controller.Close()
		log.Printf("🧹 Cleaned up %s session: %s", reason, s.id)
	}

	if len(removed) > 0 {
		m.metricsMutex.Lock()
		m.metrics.ActiveSessions -= len(removed)
		active := m.metrics.ActiveSessions
		m.metricsMutex.Unlock()
		log.Printf("🗑️  Cleaned up %d %s sessions (Active: %d)", len(removed), reason, active)
	}
	return len(removed)
}

// RunCleanup - 정기적 정리 작업 (ctx 취소 시 종료)
func (m *Manager) RunCleanup(ctx context.Context) error {
	emptyTicker := time.NewTicker(5 * time.Minute)
	defer emptyTicker.Stop()
	expiredTicker := time.NewTicker(30 * time.Minute)
	defer expiredTicker.Stop()

	log.Printf("🔄 Started session cleanup routines (Empty: 5min, Expired: 30min)")
	for {
		select {
		case <-emptyTicker.C:
			m.CleanupEmpty()
		case <-expiredTicker.C:
			m.CleanupExpired()
		case <-ctx.Done():
			return nil
		}
	}
}

// Close - 모든 세션 종료
func (m *Manager) Close() {
	n := m.cleanup("shutdown", func(*Session) bool { return true })
	log.Printf("🛑 Session manager closed (%d sessions)", n)
}
