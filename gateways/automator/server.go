package automator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	config "github.com/xilidan/automator/config/automator"
	"github.com/xilidan/automator/gateways/automator/handler"
	"github.com/xilidan/automator/gateways/automator/middleware"
	"github.com/xilidan/automator/services/automator/storage"
	"github.com/xilidan/automator/services/automator/usecase"
)

const shutdownTimeout = 10 * time.Second

type Server struct {
	cfg     *config.Config
	log     *slog.Logger
	handler *handler.Handler
}

func New(cfg *config.Config, uc usecase.Usecase, log *slog.Logger) *Server {
	log.Debug("creating automator server",
		slog.Int("port", cfg.Port),
		slog.String("backend", cfg.Backend.BaseURL),
		slog.Bool("auth_enabled", cfg.Auth.JWTSecret != ""))

	h := handler.New(uc, storage.New(), cfg.Backend.AllowedFormats, log)
	return &Server{
		cfg:     cfg,
		log:     log,
		handler: h,
	}
}

// Router builds the HTTP routes with the common middleware stack.
func (s *Server) Router() http.Handler {
	router := chi.NewRouter()
	router.Use(chimw.RequestID)
	router.Use(chimw.RealIP)
	router.Use(chimw.Logger)
	router.Use(chimw.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	s.handler.RegisterRoutes(router, middleware.Auth(s.cfg.Auth.JWTSecret, s.log))
	return router
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf(":%d", s.cfg.Port)
	// a request carries up to three sequential backend calls
	writeTimeout := 3*s.cfg.Backend.Timeout + 15*time.Second
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.Router(),
		ReadTimeout:  60 * time.Second,
		WriteTimeout: writeTimeout,
		IdleTimeout:  60 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.log.Info("automator gateway started", slog.String("address", srv.Addr))
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		s.log.Error("server error received", slog.String("error", err.Error()))
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		s.log.Info("start shutdown", slog.String("reason", context.Cause(ctx).Error()))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		s.log.Error("graceful shutdown failed", slog.String("error", err.Error()))
		srv.Close()
		return fmt.Errorf("failed to gracefully shutdown server: %w", err)
	}
	s.log.Info("server stopped cleanly")
	return nil
}
