// Package httpapi republishes the tool catalog as a small REST API:
// GET /tools, POST /call and GET /health, plus the MCP endpoint at /mcp.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/RobinCoderZhao/mcp-toolkit/internal/dispatch"
	"github.com/RobinCoderZhao/mcp-toolkit/internal/telemetry"
	"github.com/RobinCoderZhao/mcp-toolkit/internal/tool"
)

// Dispatcher lists and invokes tools.
type Dispatcher interface {
	ListTools() []tool.Descriptor
	Invoke(ctx context.Context, name string, args map[string]any) dispatch.Result
}

// Options tunes the HTTP surface.
type Options struct {
	MaxBodyBytes int64
	CORSOrigin   string
	// MCP, when set, is mounted at /mcp.
	MCP http.Handler
}

// Server holds the dependencies for the API.
type Server struct {
	dispatcher Dispatcher
	opts       Options
	logger     *slog.Logger
}

// NewServer creates a new API Server instance.
func NewServer(d Dispatcher, opts Options) *Server {
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = 1 << 20
	}
	return &Server{
		dispatcher: d,
		opts:       opts,
		logger:     slog.Default(),
	}
}

// Routes returns the configured http.Handler for the API.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /tools", s.handleListTools())
	mux.HandleFunc("POST /call", s.handleCall())
	mux.HandleFunc("GET /health", s.handleHealth())

	if s.opts.MCP != nil {
		mux.Handle("/mcp", s.opts.MCP)
	}

	return s.requestLogger(s.corsMiddleware(mux))
}

type callRequest struct {
	Tool      *string         `json:"tool"`
	Arguments json.RawMessage `json:"arguments"`
}

func (s *Server) handleCall() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name, args, err := decodeCall(http.MaxBytesReader(w, r.Body, s.opts.MaxBodyBytes))
		if err != nil {
			respondFailure(w, err)
			return
		}

		ctx := telemetry.WithTransport(r.Context(), "http")
		res := s.dispatcher.Invoke(ctx, name, args)
		if res.Failed() {
			respondFailure(w, res.Err)
			return
		}

		respondJSON(w, http.StatusOK, map[string]any{
			"success": true,
			"data":    res.Payload,
		})
	}
}

// decodeCall parses {"tool": string, "arguments": object}. A missing
// arguments field means no arguments; a missing tool is an error.
func decodeCall(body io.Reader) (string, map[string]any, error) {
	var req callRequest
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		return "", nil, fmt.Errorf("invalid request body: %w", err)
	}
	if req.Tool == nil {
		return "", nil, errors.New("missing required field: tool")
	}

	args := map[string]any{}
	if len(req.Arguments) > 0 && string(req.Arguments) != "null" {
		if err := json.Unmarshal(req.Arguments, &args); err != nil {
			return "", nil, fmt.Errorf("arguments must be a JSON object: %w", err)
		}
	}
	return *req.Tool, args, nil
}

func (s *Server) handleListTools() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]any{
			"success": true,
			"tools":   s.dispatcher.ListTools(),
		})
	}
}

// handleHealth performs no dependency checks.
func (s *Server) handleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
	}
}

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.opts.CORSOrigin != "" {
			w.Header().Set("Access-Control-Allow-Origin", s.opts.CORSOrigin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, Mcp-Session-Id")
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusOK)
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r)
		s.logger.Debug("http request", "request_id", id, "method", r.Method, "path", r.URL.Path, "duration", time.Since(start))
	})
}

// --- Helpers ---

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		enc := json.NewEncoder(w)
		enc.SetEscapeHTML(false)
		_ = enc.Encode(data)
	}
}

func respondFailure(w http.ResponseWriter, err error) {
	respondJSON(w, http.StatusInternalServerError, map[string]any{
		"success": false,
		"error":   err.Error(),
	})
}
