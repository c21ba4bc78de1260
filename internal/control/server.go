package control

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"

	"github.com/nao1215/mediatrack/internal/log"
)

// Path is the HTTP path of the control endpoint.
const Path = "/control"

const (
	// writeWait bounds each response write.
	writeWait = 10 * time.Second

	// maxMessageSize bounds incoming request envelopes.
	maxMessageSize = 1 << 20
)

// Server accepts control connections and answers their requests.
type Server struct {
	handler  Handler
	logger   *slog.Logger
	upgrader websocket.Upgrader
	router   chi.Router

	// conns tracks open connections so Serve can close them on shutdown.
	mu    sync.Mutex
	conns map[*websocket.Conn]struct{}
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithServerLogger sets the server logger.
func WithServerLogger(l *slog.Logger) ServerOption {
	return func(s *Server) {
		s.logger = l
	}
}

// NewServer creates a Server answering requests with h.
func NewServer(h Handler, opts ...ServerOption) *Server {
	s := &Server{
		handler: h,
		logger:  log.Discard(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 64 * 1024,
			// The listener binds loopback; local tools carry no Origin.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		conns: make(map[*websocket.Conn]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get(Path, s.handleControl)
	s.router = r
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe serves on addr until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("control listen: %w", err)
	}
	return s.Serve(ctx, listener)
}

// Serve serves on listener until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, listener net.Listener) error {
	srv := &http.Server{
		Handler:           s,
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		s.closeAll()
	}()

	s.logger.Info("control listening", slog.String("address", listener.Addr().String()))
	if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleControl(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("control upgrade failed", slog.String("error", err.Error()))
		return
	}
	s.track(conn)
	defer s.untrack(conn)

	conn.SetReadLimit(maxMessageSize)
	s.logger.Debug("control client connected", slog.String("remote", r.RemoteAddr))

	ctx := r.Context()
	for {
		var req Envelope
		if err := conn.ReadJSON(&req); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Debug("control read ended", slog.String("error", err.Error()))
			}
			return
		}

		s.logger.Debug("control request", slog.String("id", req.ID), slog.String("type", string(req.Type)))
		resp := Dispatch(ctx, s.handler, req)
		if resp.Error != "" {
			s.logger.Warn("control request failed",
				slog.String("id", req.ID),
				slog.String("type", string(req.Type)),
				slog.String("error", resp.Error))
		}

		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(resp); err != nil {
			s.logger.Debug("control write failed", slog.String("error", err.Error()))
			return
		}
	}
}

func (s *Server) track(conn *websocket.Conn) {
	s.mu.Lock()
	s.conns[conn] = struct{}{}
	s.mu.Unlock()
}

func (s *Server) untrack(conn *websocket.Conn) {
	s.mu.Lock()
	delete(s.conns, conn)
	s.mu.Unlock()
	_ = conn.Close()
}

func (s *Server) closeAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for conn := range s.conns {
		_ = conn.Close()
	}
}
