package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	TimingPerFrame = "per-frame"
	TimingFixed    = "fixed"
)

// Config 구조체 - 모든 환경변수를 담음
type Config struct {
	// Server
	Port string

	// Generation backend
	BackendURL     string
	BackendTimeout time.Duration
	BackendDelay   time.Duration
	FrameCount     int

	// Pipeline
	Stages []Stage

	// Fallback
	FallbackFrameCount int
	FallbackFrameMs    int

	// Playback
	TransitionMs  int
	PlaybackTimer string

	// Upload
	MaxUploadBytes int64

	// Redis (optional event sink)
	RedisHost     string
	RedisPort     string
	RedisUsername string
	RedisPassword string
	RedisUseTLS   bool
}

// Default - 기본값으로 채워진 Config (테스트 및 .env 없는 환경용)
func Default() *Config {
	return &Config{
		Port:               "8080",
		BackendURL:         "http://localhost:8080/api/generate",
		BackendTimeout:     30 * time.Second,
		BackendDelay:       2000 * time.Millisecond,
		FrameCount:         12,
		Stages:             DefaultStages(),
		FallbackFrameCount: 8,
		FallbackFrameMs:    150,
		TransitionMs:       150,
		PlaybackTimer:      TimingPerFrame,
		MaxUploadBytes:     10 << 20,
		RedisPort:          "6379",
		RedisUseTLS:        true,
	}
}

// LoadConfig - 환경변수 로드
func LoadConfig() (*Config, error) {
	// .env 파일 로드 (있으면)
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  .env file not found, using environment variables")
	}

	cfg, err := FromEnv()
	if err != nil {
		return nil, err
	}

	log.Println("✅ Configuration loaded successfully")
	log.Printf("   Backend: %s (timeout: %v, delay: %v, frames: %d)",
		cfg.BackendURL, cfg.BackendTimeout, cfg.BackendDelay, cfg.FrameCount)
	log.Printf("   Pipeline: %d stages", len(cfg.Stages))
	log.Printf("   Fallback: %d frames x %dms", cfg.FallbackFrameCount, cfg.FallbackFrameMs)
	log.Printf("   Playback: timing=%s, transition=%dms", cfg.PlaybackTimer, cfg.TransitionMs)
	if cfg.RedisEnabled() {
		log.Printf("   Redis: %s (TLS: %v)", cfg.GetRedisAddr(), cfg.RedisUseTLS)
	} else {
		log.Println("   Redis: disabled")
	}

	return cfg, nil
}

// FromEnv - .env 로드 없이 현재 환경변수만으로 Config 생성
func FromEnv() (*Config, error) {
	cfg := Default()

	cfg.Port = getEnv("PORT", cfg.Port)
	cfg.BackendURL = getEnv("BACKEND_URL", fmt.Sprintf("http://localhost:%s/api/generate", cfg.Port))
	cfg.BackendTimeout = getDuration("BACKEND_TIMEOUT", cfg.BackendTimeout)
	cfg.BackendDelay = time.Duration(getInt("BACKEND_DELAY_MS", int(cfg.BackendDelay/time.Millisecond))) * time.Millisecond
	cfg.FrameCount = getInt("FRAME_COUNT", cfg.FrameCount)

	cfg.FallbackFrameCount = getInt("FALLBACK_FRAME_COUNT", cfg.FallbackFrameCount)
	cfg.FallbackFrameMs = getInt("FALLBACK_FRAME_MS", cfg.FallbackFrameMs)

	cfg.TransitionMs = getInt("TRANSITION_MS", cfg.TransitionMs)
	cfg.PlaybackTimer = strings.ToLower(getEnv("PLAYBACK_TIMING", cfg.PlaybackTimer))
	cfg.MaxUploadBytes = int64(getInt("MAX_UPLOAD_BYTES", int(cfg.MaxUploadBytes)))

	if path := os.Getenv("PIPELINE_STAGES_FILE"); path != "" {
		stages, err := LoadStages(path)
		if err != nil {
			return nil, err
		}
		cfg.Stages = stages
	}

	// Redis UseTLS 파싱
	cfg.RedisHost = getEnv("REDIS_HOST", "")
	cfg.RedisPort = getEnv("REDIS_PORT", cfg.RedisPort)
	cfg.RedisUsername = getEnv("REDIS_USERNAME", "")
	cfg.RedisPassword = getEnv("REDIS_PASSWORD", "")
	if tlsStr := os.Getenv("REDIS_USE_TLS"); tlsStr != "" {
		if parsed, err := strconv.ParseBool(tlsStr); err == nil {
			cfg.RedisUseTLS = parsed
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// validate - 필수 값 검증
func (c *Config) validate() error {
	if c.BackendURL == "" {
		return fmt.Errorf("BACKEND_URL is required")
	}
	if c.FrameCount <= 0 {
		return fmt.Errorf("FRAME_COUNT must be positive, got %d", c.FrameCount)
	}
	if c.FallbackFrameCount <= 0 || c.FallbackFrameMs <= 0 {
		return fmt.Errorf("FALLBACK_FRAME_COUNT and FALLBACK_FRAME_MS must be positive")
	}
	if c.TransitionMs <= 0 {
		return fmt.Errorf("TRANSITION_MS must be positive, got %d", c.TransitionMs)
	}
	if c.PlaybackTimer != TimingPerFrame && c.PlaybackTimer != TimingFixed {
		return fmt.Errorf("PLAYBACK_TIMING must be %q or %q, got %q", TimingPerFrame, TimingFixed, c.PlaybackTimer)
	}
	if c.MaxUploadBytes <= 0 {
		return fmt.Errorf("MAX_UPLOAD_BYTES must be positive")
	}
	return nil
}

// getEnv - 환경변수 가져오기 (기본값 지원)
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
			return parsed
		}
		log.Printf("⚠️  Invalid %s=%q, using default %d", key, value, defaultValue)
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(strings.TrimSpace(value)); err == nil {
			return parsed
		}
		log.Printf("⚠️  Invalid %s=%q, using default %v", key, value, defaultValue)
	}
	return defaultValue
}

// RedisEnabled - REDIS_HOST가 설정된 경우에만 Redis 사용
func (c *Config) RedisEnabled() bool {
	return c.RedisHost != ""
}

// GetRedisAddr - Redis 연결 문자열 생성
func (c *Config) GetRedisAddr() string {
	return fmt.Sprintf("%s:%s", c.RedisHost, c.RedisPort)
}
