package status

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/rickgao/afkbot/internal/keeper"
	"github.com/rickgao/afkbot/internal/version"
)

// Source provides the connection state snapshot.
type Source interface {
	Status() keeper.Snapshot
}

// healthResponse is the /health payload.
type healthResponse struct {
	Status    string  `json:"status"`
	Bot       string  `json:"bot"`
	Uptime    float64 `json:"uptime"`
	Timestamp string  `json:"timestamp"`
	Version   string  `json:"version"`
}

const indexBody = "afkbot is running. See /health for connection status.\n"

// Server is the HTTP status listener.
type Server struct {
	addr   string
	source Source
	logger *slog.Logger

	ln         net.Listener
	httpServer *http.Server
}

// NewServer creates a status server listening on the given port.
func NewServer(port int, source Source, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		addr:   fmt.Sprintf(":%d", port),
		source: source,
		logger: logger,
	}
	s.httpServer = &http.Server{
		Addr:    s.addr,
		Handler: s.Handler(),
	}
	return s
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/", s.handleIndex)
	return mux
}

// Start binds the listening socket. A bind failure is returned to the
// caller and is fatal; a health endpoint that cannot start means
// misconfiguration, not a transient condition.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("bind status listener on %s: %w", s.addr, err)
	}
	s.ln = ln
	s.logger.Info("status server listening", "addr", s.addr)
	return nil
}

// Serve runs the HTTP server on the bound listener until Shutdown.
// Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Serve() error {
	return s.httpServer.Serve(s.ln)
}

// Shutdown gracefully closes the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	snap := s.source.Status()

	resp := healthResponse{
		Status:    snap.Status,
		Bot:       snap.Bot,
		Uptime:    snap.Uptime,
		Timestamp: snap.Timestamp.UTC().Format(time.RFC3339),
		Version:   version.Version,
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.logger.Debug("encode health response", "error", err)
	}
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprint(w, indexBody)
}
