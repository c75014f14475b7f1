package session

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"anime-frame-server/modules/pipeline"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// WebSocket upgrader
var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// 개발용 - 모든 origin 허용
		return true
	},
}

// Client - 연결된 WebSocket 클라이언트
type Client struct {
	conn    *websocket.Conn
	session *Session
	userID  string
	send    chan []byte
}

// ClientMessage - 클라이언트가 보내는 명령
type ClientMessage struct {
	Type string `json:"type"`
}

const (
	CommandToggle   = "toggle"
	CommandGenerate = "generate"
	CommandSnapshot = "snapshot"
)

// HandleWebSocket - GET /ws?session=<id>&user=<id>
func (m *Manager) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session")
	userID := r.URL.Query().Get("user")
	if sessionID == "" || userID == "" {
		log.Printf("Missing session or user parameter")
		writeError(w, http.StatusBadRequest, "session and user parameters are required")
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	log.Printf("🔍 New WebSocket connection - Session: %s, User: %s", sessionID, userID)

	session := m.GetOrCreate(sessionID)
	client := &Client{
		conn:    conn,
		session: session,
		userID:  userID,
		send:    make(chan []byte, 256),
	}
	session.addClient(client)
	m.addConnection()

	go client.writePump()
	go client.readPump()

	// 현재 상태를 새 클라이언트에게 전송
	view := session.controller.Snapshot()
	session.sendTo(client, Event{Type: EventSnapshot, SessionID: sessionID, View: &view, Playing: view.Playing, At: time.Now()})
}

// 클라이언트로부터 명령 읽기
func (c *Client) readPump() {
	defer func() {
		c.session.removeClient(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(4096)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		var message ClientMessage
		if err := c.conn.ReadJSON(&message); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error: %v", err)
			}
			return
		}
		c.session.touch()
		c.handle(message)
	}
}

func (c *Client) handle(message ClientMessage) {
	controller := c.session.controller

	switch message.Type {
	case CommandToggle:
		playing := controller.Toggle()
		log.Printf("⏯️  User %s toggled playback in session %s (playing: %v)", c.userID, c.session.id, playing)

	case CommandGenerate:
		log.Printf("🎬 User %s requested generation in session %s", c.userID, c.session.id)
		if _, err := controller.Submit(); err != nil {
			c.session.sendTo(c, Event{Type: EventError, SessionID: c.session.id, Error: commandError(err), At: time.Now()})
		}

	case CommandSnapshot:
		view := controller.Snapshot()
		c.session.sendTo(c, Event{Type: EventSnapshot, SessionID: c.session.id, View: &view, Playing: view.Playing, At: time.Now()})

	default:
		log.Printf("Unknown message type '%s' from user %s", message.Type, c.userID)
		c.session.sendTo(c, Event{Type: EventError, SessionID: c.session.id, Error: "unknown message type", At: time.Now()})
	}
}

func commandError(err error) string {
	var vErr *pipeline.ValidationError
	switch {
	case errors.As(err, &vErr):
		return vErr.Reason
	case errors.Is(err, ErrBusy):
		return ErrBusy.Error()
	case errors.Is(err, context.Canceled), errors.Is(err, ErrClosed):
		return ErrClosed.Error()
	default:
		return err.Error()
	}
}

// 클라이언트로 메시지 쓰기
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Printf("WebSocket write error: %v", err)
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
