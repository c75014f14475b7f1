package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnv_Defaults(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("BACKEND_URL", "")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "http://localhost:9090/api/generate", cfg.BackendURL)
	assert.Equal(t, 12, cfg.FrameCount)
	assert.Equal(t, 8, cfg.FallbackFrameCount)
	assert.Equal(t, 150, cfg.FallbackFrameMs)
	assert.Equal(t, 150, cfg.TransitionMs)
	assert.Equal(t, TimingPerFrame, cfg.PlaybackTimer)
	assert.Equal(t, 2*time.Second, cfg.BackendDelay)
	assert.Len(t, cfg.Stages, 4)
	assert.False(t, cfg.RedisEnabled())
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("FRAME_COUNT", "24")
	t.Setenv("BACKEND_DELAY_MS", "0")
	t.Setenv("BACKEND_TIMEOUT", "5s")
	t.Setenv("PLAYBACK_TIMING", "FIXED")
	t.Setenv("REDIS_HOST", "redis.internal")
	t.Setenv("REDIS_USE_TLS", "false")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, 24, cfg.FrameCount)
	assert.Equal(t, time.Duration(0), cfg.BackendDelay)
	assert.Equal(t, 5*time.Second, cfg.BackendTimeout)
	assert.Equal(t, TimingFixed, cfg.PlaybackTimer)
	assert.True(t, cfg.RedisEnabled())
	assert.False(t, cfg.RedisUseTLS)
	assert.Equal(t, "redis.internal:6379", cfg.GetRedisAddr())
}

func TestFromEnv_InvalidValues(t *testing.T) {
	t.Setenv("PLAYBACK_TIMING", "sometimes")
	_, err := FromEnv()
	assert.Error(t, err)

	t.Setenv("PLAYBACK_TIMING", "")
	t.Setenv("FRAME_COUNT", "-3")
	_, err = FromEnv()
	assert.Error(t, err)
}

func TestParseStages(t *testing.T) {
	stages, err := ParseStages([]byte(`
stages:
  - name: analysis
    label: "Analyzing manga panels..."
    delay: 1500ms
  - name: motion
    delay: 0s
`))
	require.NoError(t, err)
	require.Len(t, stages, 2)

	assert.Equal(t, "analysis", stages[0].Name)
	assert.Equal(t, 1500*time.Millisecond, stages[0].Delay)
	assert.Equal(t, "motion", stages[1].Label, "label defaults to name")
}

func TestParseStages_Errors(t *testing.T) {
	tests := map[string]string{
		"empty":     "stages: []",
		"no name":   "stages:\n  - label: x\n",
		"duplicate": "stages:\n  - name: a\n  - name: a\n",
		"negative":  "stages:\n  - name: a\n    delay: -1s\n",
		"bad yaml":  "stages: [",
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ParseStages([]byte(doc))
			assert.Error(t, err)
		})
	}
}

func TestFromEnv_StagesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stages.yaml")
	require.NoError(t, os.WriteFile(path, []byte("stages:\n  - name: only\n    delay: 10ms\n"), 0o644))
	t.Setenv("PIPELINE_STAGES_FILE", path)

	cfg, err := FromEnv()
	require.NoError(t, err)
	require.Len(t, cfg.Stages, 1)
	assert.Equal(t, 10*time.Millisecond, cfg.Stages[0].Delay)
}
