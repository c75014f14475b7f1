package generateanimation

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"anime-frame-server/modules/common/config"
)

type Handler struct {
	service *Service
	maxBody int64
}

func NewHandler(cfg *config.Config) *Handler {
	return &Handler{
		service: NewService(cfg),
		// base64 payload + JSON envelope
		maxBody: cfg.MaxUploadBytes*4/3 + 1024,
	}
}

// RegisterRoutes - 라우트 등록
func (h *Handler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/api/generate", h.HandleGenerate).Methods("POST", "OPTIONS")
	log.Println("✅ [Generate] Routes registered: POST /api/generate")
}

// HandleGenerate - POST /api/generate
// 400: image 누락, 200: frames + message, 500: 그 외 모든 실패 (내부 정보 노출 안 함)
func (h *Handler) HandleGenerate(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}

	var req GenerateRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, h.maxBody)).Decode(&req); err != nil {
		log.Printf("❌ [Generate] Invalid request: %v", err)
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: ErrGenerateFailed})
		return
	}

	if strings.TrimSpace(req.Image) == "" {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: ErrNoImage})
		return
	}

	seq, err := h.service.GenerateFrames(r.Context(), req.Image)
	if err != nil {
		log.Printf("❌ [Generate] Generation error: %v", err)
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: ErrGenerateFailed})
		return
	}

	writeJSON(w, http.StatusOK, toResponse(seq))
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("❌ [Generate] Failed to encode response: %v", err)
	}
}
