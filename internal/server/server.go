// Package server exposes analysis over an HTTP JSON API.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"github.com/rs/zerolog"

	"github.com/pable/fgframes/internal/config"
	"github.com/pable/fgframes/internal/framedata"
	"github.com/pable/fgframes/internal/storage"
)

// maxBodyBytes caps uploaded timelines.
const maxBodyBytes = 64 << 20

type Server struct {
	db     *storage.DB
	eng    *framedata.Engine
	cfg    *config.Config
	log    zerolog.Logger
	router *mux.Router
}

// New wires routes and middleware. db may be nil, in which case analyses are
// computed but never stored and the read endpoints answer 503.
func New(db *storage.DB, eng *framedata.Engine, cfg *config.Config, logger zerolog.Logger) *Server {
	s := &Server{db: db, eng: eng, cfg: cfg, log: logger, router: mux.NewRouter()}

	api := s.router.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/health", s.health).Methods(http.MethodGet)

	analyses := api.PathPrefix("/analyses").Subrouter()
	analyses.HandleFunc("", s.createAnalysis).Methods(http.MethodPost)
	analyses.HandleFunc("", s.listAnalyses).Methods(http.MethodGet)
	analyses.HandleFunc("/{hash}", s.getAnalysis).Methods(http.MethodGet)
	analyses.HandleFunc("/{hash}", s.deleteAnalysis).Methods(http.MethodDelete)
	analyses.HandleFunc("/{hash}/punish-report", s.punishReport).Methods(http.MethodGet)

	s.router.Use(s.loggingMiddleware)
	s.router.Use(s.recoveryMiddleware)
	return s
}

// Handler returns the router wrapped in CORS handling.
func (s *Server) Handler() http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins: s.cfg.Server.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"*"},
	})
	return c.Handler(s.router)
}

// Run serves until ctx is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.cfg.Server.Addr,
		Handler:      s.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("address", srv.Addr).Msg("HTTP server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.log.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}
