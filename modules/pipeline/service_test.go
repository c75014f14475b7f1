package pipeline

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"anime-frame-server/modules/common/config"
	generateanimation "anime-frame-server/modules/generate-animation"
)

func instantStages() []config.Stage {
	stages := config.DefaultStages()
	for i := range stages {
		stages[i].Delay = 0
	}
	return stages
}

func newBackend(t *testing.T) *httptest.Server {
	t.Helper()
	cfg := config.Default()
	cfg.BackendDelay = 0
	r := mux.NewRouter()
	generateanimation.NewHandler(cfg).RegisterRoutes(r)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func TestGenerate_Success(t *testing.T) {
	srv := newBackend(t)
	svc := New(srv.URL+"/api/generate", srv.Client(), instantStages())

	var events []StageEvent
	seq, err := svc.Generate(context.Background(), "data:image/png;base64,AAAA", func(e StageEvent) {
		events = append(events, e)
	})
	require.NoError(t, err)

	require.Equal(t, 12, seq.Len())
	for i, f := range seq.Frames() {
		assert.Greater(t, f.DurationMs(), 0)
		assert.Equal(t, []int{120, 150, 180}[i%3], f.DurationMs())
		assert.Equal(t, "data:image/png;base64,AAAA", f.Source())
	}

	require.Len(t, events, 4)
	assert.Equal(t, "Analyzing manga panels...", events[0].Label)
	assert.Equal(t, "Extracting character features...", events[1].Label)
	assert.Equal(t, "Generating animation frames...", events[2].Label)
	assert.Equal(t, "Applying motion effects...", events[3].Label)
	for i, e := range events {
		assert.Equal(t, i, e.Index)
		assert.Equal(t, 4, e.Total)
	}
}

func TestGenerate_EmptyImageIsValidationError(t *testing.T) {
	svc := New("http://127.0.0.1:0/unused", nil, instantStages())
	called := false
	_, err := svc.Generate(context.Background(), "", func(StageEvent) { called = true })

	assert.True(t, IsValidationError(err))
	assert.False(t, IsGenerationError(err))
	assert.False(t, called, "no stage runs for invalid input")
}

func TestGenerate_NonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":"Failed to generate animation"}`))
	}))
	defer srv.Close()

	_, err := New(srv.URL, srv.Client(), instantStages()).Generate(context.Background(), "img", nil)

	var ge *GenerationError
	require.ErrorAs(t, err, &ge)
	assert.Equal(t, "generation failed", ge.Reason)
	assert.Equal(t, http.StatusInternalServerError, ge.StatusCode)
}

func TestGenerate_TransportFault(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close() // nothing listens any more

	_, err := New(url, &http.Client{Timeout: time.Second}, instantStages()).Generate(context.Background(), "img", nil)

	var ge *GenerationError
	require.ErrorAs(t, err, &ge)
	assert.Equal(t, ReasonTransport, ge.Reason)
	assert.NotNil(t, errors.Unwrap(ge), "transport fault is wrapped")
}

func TestGenerate_MalformedResponses(t *testing.T) {
	bodies := map[string]string{
		"not json":      `<html>`,
		"no frames":     `{"frames":[],"message":"ok"}`,
		"zero duration": `{"frames":[{"url":"a","duration":0}]}`,
		"missing url":   `{"frames":[{"duration":120}]}`,
	}
	for name, body := range bodies {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.Write([]byte(body))
			}))
			defer srv.Close()

			seq, err := New(srv.URL, srv.Client(), instantStages()).Generate(context.Background(), "img", nil)
			assert.Nil(t, seq, "no partial sequence")

			var ge *GenerationError
			require.ErrorAs(t, err, &ge)
			assert.Equal(t, ReasonMalformed, ge.Reason)
		})
	}
}

func TestGenerate_AcceptsStringDurations(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"frames":[{"url":"a","duration":"100"},{"url":"b","duration":200}]}`))
	}))
	defer srv.Close()

	seq, err := New(srv.URL, srv.Client(), instantStages()).Generate(context.Background(), "img", nil)
	require.NoError(t, err)
	assert.Equal(t, []int{100, 200}, seq.Durations())
	assert.Equal(t, "b", seq.At(1).Source())
}

func TestGenerate_CancelledDuringStage(t *testing.T) {
	stages := []config.Stage{{Name: "slow", Label: "Slow...", Delay: time.Hour}}
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		_, err := New("http://127.0.0.1:0/unused", nil, stages).Generate(ctx, "img", func(StageEvent) { cancel() })
		done <- err
	}()

	select {
	case err := <-done:
		var ge *GenerationError
		require.ErrorAs(t, err, &ge)
		assert.Equal(t, ReasonCancelled, ge.Reason)
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("generate did not observe cancellation")
	}
}
