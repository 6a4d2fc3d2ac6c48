// CourseTutor browser chat server.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ashureev/coursetutor/internal/api"
	"github.com/ashureev/coursetutor/internal/backend"
	"github.com/ashureev/coursetutor/internal/bridge"
	"github.com/ashureev/coursetutor/internal/config"
	"github.com/ashureev/coursetutor/internal/identity"
	"github.com/ashureev/coursetutor/internal/middleware"
	"github.com/ashureev/coursetutor/internal/speech"
	"github.com/ashureev/coursetutor/internal/store"
	"github.com/ashureev/coursetutor/web"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	slog.Info("Starting server", "port", cfg.Port, "backend", cfg.BackendURL, "dev", cfg.IsDevelopment())

	var clips store.ClipRepository
	var cache speech.ClipCache
	if cfg.ClipCache.Enabled {
		repo, err := store.NewSQLite(cfg.ClipCache.Path)
		if err != nil {
			slog.Error("Failed to open clip cache", "error", err, "path", cfg.ClipCache.Path)
			os.Exit(1)
		}
		defer func() {
			if closeErr := repo.Close(); closeErr != nil {
				slog.Error("Failed to close clip cache", "error", closeErr)
			}
		}()
		if err := repo.Ping(context.Background()); err != nil {
			slog.Error("Clip cache health check failed", "error", err)
			os.Exit(1)
		}
		clips, cache = repo, repo
		slog.Info("Clip cache ready", "path", cfg.ClipCache.Path, "ttl", cfg.ClipCache.TTL)
	}

	sm := bridge.NewSessionManager()

	allowedOrigin := cfg.FrontendURL
	if allowedOrigin == "" {
		allowedOrigin = "*"
	}
	wsHandler := bridge.NewWebSocketHandler(bridge.HandlerConfig{
		NewTutor: func(cookies []*http.Cookie) (backend.Tutor, error) {
			return backend.NewClient(backend.ClientConfig{
				BaseURL: cfg.BackendURL,
				Timeout: cfg.BackendTimeout,
				Cookies: cookies,
			}, logger)
		},
		Cache:         cache,
		VoiceDefault:  cfg.VoiceDefault,
		AllowedOrigin: allowedOrigin,
		IsDev:         cfg.IsDevelopment(),
	}, sm)
	apiHandler := api.NewHandler(cfg, clips, sm)

	r := chi.NewRouter()

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/health"))
	r.Use(middleware.CORS([]string{allowedOrigin}))
	r.Use(identity.Middleware())

	apiHandler.RegisterRoutes(r)
	r.Get("/ws/chat", wsHandler.ServeHTTP)
	r.Handle("/*", web.SPAHandler())

	// WebSocket sessions are long-lived, so there is no WriteTimeout.
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0,
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	if clips != nil {
		g.Go(func() error {
			return store.RunSweeper(gctx, clips, cfg.ClipCache.TTL, cfg.ClipCache.SweepInterval)
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		slog.Info("Shutting down gracefully...")

		sm.CloseAll()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		slog.Error("Server stopped with error", "error", err)
		os.Exit(1)
	}

	slog.Info("Server stopped successfully")
}
