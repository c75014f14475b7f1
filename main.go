package main

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"golang.org/x/sync/errgroup"

	"anime-frame-server/modules/common/config"
	"anime-frame-server/modules/common/redis"
	generateanimation "anime-frame-server/modules/generate-animation"
	"anime-frame-server/modules/pipeline"
	"anime-frame-server/modules/session"
)

// CORS 헤더 추가
func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// 헬스 체크 엔드포인트
func healthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{
		"status":  "healthy",
		"service": "anime-frame-server",
	})
}

func newRouter(cfg *config.Config, manager *session.Manager) *mux.Router {
	r := mux.NewRouter()
	r.Use(enableCORS)

	r.HandleFunc("/", healthCheck).Methods("GET")
	r.HandleFunc("/health", healthCheck).Methods("GET")

	generateanimation.NewHandler(cfg).RegisterRoutes(r)
	session.NewHandler(manager).RegisterRoutes(r)

	return r
}

func main() {
	// 환경변수 로드
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("❌ Failed to load config: %v", err)
	}

	opts := session.OptionsFromConfig(cfg, pipeline.NewService(cfg))

	// Redis 이벤트 싱크 (선택)
	var redisSink *session.RedisSink
	if cfg.RedisEnabled() {
		if rdb := redis.Connect(cfg); rdb != nil {
			publisher := redis.NewPublisher(rdb)
			defer publisher.Close()
			redisSink = session.NewRedisSink(publisher, redis.Channel, 1024)
			opts.Sink = redisSink
		} else {
			log.Printf("⚠️  Redis unavailable, events go to WebSocket clients only")
		}
	}

	manager := session.NewManager(opts)
	r := newRouter(cfg, manager)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	// 정리 루틴
	g.Go(func() error {
		return manager.RunCleanup(gctx)
	})

	g.Go(func() error {
		log.Printf("🚀 Anime Frame Server starting on port %s", cfg.Port)
		log.Printf("🎬 Generate endpoint: http://localhost:%s/api/generate", cfg.Port)
		log.Printf("📡 WebSocket endpoint: ws://localhost:%s/ws", cfg.Port)
		log.Printf("❤️  Health check: http://localhost:%s/health", cfg.Port)
		log.Printf("📊 Metrics: http://localhost:%s/metrics", cfg.Port)
		log.Printf("🧹 Admin cleanup: http://localhost:%s/admin/cleanup", cfg.Port)

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Printf("🛑 Shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		err := srv.Shutdown(shutdownCtx)

		manager.Close()
		if redisSink != nil {
			redisSink.Close()
		}
		return err
	})

	if err := g.Wait(); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
	log.Printf("👋 Server stopped")
}
