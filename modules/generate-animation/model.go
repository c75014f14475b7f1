package generateanimation

// GenerateRequest - POST /api/generate 요청
type GenerateRequest struct {
	Image string `json:"image"`
}

// FrameDTO - 응답 프레임 (url + duration ms)
type FrameDTO struct {
	URL      string `json:"url"`
	Duration int    `json:"duration"`
}

// GenerateResponse - 성공 응답 (200)
type GenerateResponse struct {
	Frames  []FrameDTO `json:"frames"`
	Message string     `json:"message"`
}

// ErrorResponse - 실패 응답 (400 / 500)
type ErrorResponse struct {
	Error string `json:"error"`
}

const (
	MessageGenerated  = "Animation generated successfully"
	ErrNoImage        = "No image provided"
	ErrGenerateFailed = "Failed to generate animation"
)
