package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"anime-frame-server/modules/export"
	"anime-frame-server/modules/pipeline"
)

type Handler struct {
	manager *Manager
	maxBody int64
}

func NewHandler(m *Manager) *Handler {
	maxBody := m.opts.MaxUploadBytes
	if maxBody <= 0 {
		maxBody = 10 << 20
	}
	return &Handler{
		manager: m,
		// base64 payload + multipart/JSON envelope
		maxBody: maxBody*4/3 + 4096,
	}
}

// RegisterRoutes - 라우트 등록
func (h *Handler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/api/sessions", h.HandleCreate).Methods("POST")
	r.HandleFunc("/api/sessions/{sessionId}", h.HandleGet).Methods("GET")
	r.HandleFunc("/api/sessions/{sessionId}/upload", h.HandleUpload).Methods("POST")
	r.HandleFunc("/api/sessions/{sessionId}/generate", h.HandleGenerate).Methods("POST")
	r.HandleFunc("/api/sessions/{sessionId}/toggle", h.HandleToggle).Methods("POST")
	r.HandleFunc("/api/sessions/{sessionId}/download", h.HandleDownload).Methods("GET")
	r.HandleFunc("/ws", h.manager.HandleWebSocket)
	r.HandleFunc("/metrics", h.HandleMetrics).Methods("GET")
	r.HandleFunc("/admin/cleanup", h.HandleCleanup).Methods("POST")
	log.Println("✅ [Session] Routes registered: /api/sessions, /ws, /metrics, /admin/cleanup")
}

// HandleCreate - POST /api/sessions
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	s := h.manager.Create()
	writeJSON(w, http.StatusCreated, map[string]string{"sessionId": s.ID()})
}

// HandleGet - GET /api/sessions/{sessionId}
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	s, ok := h.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.Info())
}

// uploadRequest - JSON 업로드 본문
type uploadRequest struct {
	Image string `json:"image"`
}

// HandleUpload - POST /api/sessions/{sessionId}/upload
// JSON {image: data URL} 또는 multipart field "file"
func (h *Handler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	s, ok := h.lookup(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxBody)

	var err error
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		err = h.uploadMultipart(s, r)
	} else {
		var req uploadRequest
		if decodeErr := json.NewDecoder(r.Body).Decode(&req); decodeErr != nil {
			var maxErr *http.MaxBytesError
			if errors.As(decodeErr, &maxErr) {
				h.writeControllerError(w, s.ID(), decodeErr)
				return
			}
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		err = s.controller.Upload(req.Image)
	}
	if err != nil {
		h.writeControllerError(w, s.ID(), err)
		return
	}

	writeJSON(w, http.StatusOK, s.controller.Snapshot())
}

func (h *Handler) uploadMultipart(s *Session, r *http.Request) error {
	file, _, err := r.FormFile("file")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return pipeline.NewValidationError("image", MessageNoImage, nil)
		}
		return pipeline.NewValidationError("image", "invalid multipart upload", err)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return pipeline.NewValidationError("image", "failed to read upload", err)
	}
	return s.controller.UploadBytes(data)
}

// HandleGenerate - POST /api/sessions/{sessionId}/generate
// 202: 요청 시작, 400: 이미지 없음, 409: 이미 생성 중
func (h *Handler) HandleGenerate(w http.ResponseWriter, r *http.Request) {
	s, ok := h.lookup(w, r)
	if !ok {
		return
	}

	if _, err := s.controller.Submit(); err != nil {
		h.writeControllerError(w, s.ID(), err)
		return
	}
	writeJSON(w, http.StatusAccepted, s.controller.Snapshot())
}

// HandleToggle - POST /api/sessions/{sessionId}/toggle
func (h *Handler) HandleToggle(w http.ResponseWriter, r *http.Request) {
	s, ok := h.lookup(w, r)
	if !ok {
		return
	}
	s.controller.Toggle()
	writeJSON(w, http.StatusOK, s.controller.Snapshot())
}

// HandleDownload - GET /api/sessions/{sessionId}/download
func (h *Handler) HandleDownload(w http.ResponseWriter, r *http.Request) {
	s, ok := h.lookup(w, r)
	if !ok {
		return
	}

	art, err := s.controller.Download()
	if err != nil {
		if errors.Is(err, export.ErrNothingLoaded) {
			writeError(w, http.StatusConflict, err.Error())
			return
		}
		log.Printf("❌ [Session %s] Download failed: %v", s.ID(), err)
		writeError(w, http.StatusInternalServerError, "Failed to export animation")
		return
	}

	w.Header().Set("Content-Type", art.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", art.FileName))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(art.Data); err != nil {
		log.Printf("❌ [Session %s] Failed to write download: %v", s.ID(), err)
	}
}

// HandleMetrics - GET /metrics
func (h *Handler) HandleMetrics(w http.ResponseWriter, r *http.Request) {
	metrics := h.manager.Metrics()
	sessions := h.manager.Sessions()

	currentClients := 0
	for _, info := range sessions {
		currentClients += info.ClientCount
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"server": map[string]interface{}{
			"uptime":           time.Since(metrics.StartTime).String(),
			"startTime":        metrics.StartTime,
			"totalSessions":    metrics.TotalSessions,
			"activeSessions":   metrics.ActiveSessions,
			"totalConnections": metrics.TotalConnections,
			"currentClients":   currentClients,
			"generations":      metrics.Generations,
			"fallbacks":        metrics.Fallbacks,
		},
		"sessions": sessions,
	})
}

// HandleCleanup - POST /admin/cleanup (관리자용)
func (h *Handler) HandleCleanup(w http.ResponseWriter, r *http.Request) {
	empty := h.manager.CleanupEmpty()
	expired := h.manager.CleanupExpired()

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "Cleanup completed",
		"empty":   empty,
		"expired": expired,
	})
}

func (h *Handler) lookup(w http.ResponseWriter, r *http.Request) (*Session, bool) {
	id := mux.Vars(r)["sessionId"]
	s, ok := h.manager.Get(id)
	if !ok {
		writeError(w, http.StatusNotFound, "Session not found")
		return nil, false
	}
	return s, true
}

func (h *Handler) writeControllerError(w http.ResponseWriter, sessionID string, err error) {
	var vErr *pipeline.ValidationError
	var maxErr *http.MaxBytesError
	// MaxBytesError는 ValidationError에 감싸여 올 수 있으므로 먼저 확인
	switch {
	case errors.As(err, &maxErr):
		writeError(w, http.StatusRequestEntityTooLarge, "image too large")
	case errors.As(err, &vErr):
		writeError(w, http.StatusBadRequest, vErr.Reason)
	case errors.Is(err, ErrBusy):
		writeError(w, http.StatusConflict, ErrBusy.Error())
	case errors.Is(err, ErrClosed):
		writeError(w, http.StatusNotFound, "Session not found")
	default:
		log.Printf("❌ [Session %s] Unexpected error: %v", sessionID, err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("❌ [Session] Failed to encode response: %v", err)
	}
}
