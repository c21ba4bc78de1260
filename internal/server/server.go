// Package server serves the vote-store HTTP API.
//
//	GET  /api/votes/{imageUrl}  counters for one identity (zeros if absent)
//	POST /api/votes             {imageUrl, isFake} -> {success, votes}
//	GET  /api/votes             every tally
//	GET  /health                {status, message}
//
// Any origin may call the API.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/nao1215/mediatrack/internal/log"
	"github.com/nao1215/mediatrack/internal/model"
	"github.com/nao1215/mediatrack/internal/votes"
)

// maxRequestSize bounds POST bodies.
const maxRequestSize = 1 << 20

// Server is the vote-store HTTP server.
type Server struct {
	store  votes.Store
	logger *slog.Logger
	router chi.Router
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		s.logger = l
	}
}

// New creates a Server backed by store.
func New(store votes.Store, opts ...Option) *Server {
	s := &Server{
		store:  store,
		logger: log.Discard(),
	}
	for _, opt := range opts {
		opt(s)
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)
	r.Use(allowAnyOrigin)

	// Identities are URLs. chi matches on the escaped path, so an escaped
	// identity stays one segment.
	r.Get("/api/votes/{imageUrl}", s.handleTally)
	r.Get("/api/votes", s.handleList)
	r.Post("/api/votes", s.handleVote)
	r.Get("/health", s.handleHealth)

	s.router = r
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// allowAnyOrigin sets the CORS headers and answers preflight requests.
func allowAnyOrigin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// requestLogger logs each request at debug level with its status.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.EscapedPath()),
			slog.Int("status", ww.Status()),
			slog.Duration("elapsed", time.Since(start)))
	})
}

// ListenAndServe serves on addr until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("vote server listen: %w", err)
	}
	return s.Serve(ctx, listener)
}

// Serve serves on listener until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, listener net.Listener) error {
	srv := &http.Server{
		Handler:           s,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	s.logger.Info("vote server listening", slog.String("address", listener.Addr().String()))
	if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleTally(w http.ResponseWriter, r *http.Request) {
	imageURL, err := url.PathUnescape(chi.URLParam(r, "imageUrl"))
	if err != nil || imageURL == "" {
		s.writeError(w, http.StatusBadRequest, "invalid image URL")
		return
	}

	tally, err := s.store.Tally(r.Context(), imageURL)
	if err != nil {
		s.logger.Error("failed to get votes", slog.String("image_url", imageURL), slog.String("error", err.Error()))
		s.writeError(w, http.StatusInternalServerError, "Failed to get votes")
		return
	}
	s.writeJSON(w, http.StatusOK, tally)
}

func (s *Server) handleVote(w http.ResponseWriter, r *http.Request) {
	var req votes.VoteRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxRequestSize)).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.ImageURL) == "" {
		s.writeError(w, http.StatusBadRequest, "imageUrl is required")
		return
	}

	tally, err := s.store.Vote(r.Context(), req.ImageURL, req.IsFake)
	if err != nil {
		s.logger.Error("failed to update votes", slog.String("image_url", req.ImageURL), slog.String("error", err.Error()))
		s.writeError(w, http.StatusInternalServerError, "Failed to update votes")
		return
	}
	s.logger.Debug("vote recorded", slog.String("image_url", req.ImageURL), slog.Bool("fake", req.IsFake))
	s.writeJSON(w, http.StatusOK, votes.VoteResponse{Success: true, Votes: &tally})
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	tallies, err := s.store.All(r.Context())
	if err != nil {
		s.logger.Error("failed to get all votes", slog.String("error", err.Error()))
		s.writeError(w, http.StatusInternalServerError, "Failed to get all votes")
		return
	}
	if tallies == nil {
		tallies = []model.Tally{}
	}
	s.writeJSON(w, http.StatusOK, tallies)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, votes.HealthResponse{Status: "OK", Message: "Server is running"})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Warn("failed to write response", slog.String("error", err.Error()))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}
