// Package mcpserver serves the tool catalog over MCP (Model Context Protocol):
// JSON-RPC 2.0 over stdio, or over HTTP with optional SSE framing.
//
//	srv := mcpserver.New("mcp-server", "1.0.0", facade)
//	srv.Use(mcpserver.RecoveryMiddleware(logger), mcpserver.LoggingMiddleware(logger))
//	srv.RunStdio(ctx, os.Stdin, os.Stdout)
package mcpserver

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/RobinCoderZhao/mcp-toolkit/internal/dispatch"
	"github.com/RobinCoderZhao/mcp-toolkit/internal/telemetry"
	"github.com/RobinCoderZhao/mcp-toolkit/internal/tool"
)

// ProtocolVersion is the MCP revision this server speaks.
const ProtocolVersion = "2024-11-05"

const maxMessageSize = 4 << 20

// DefaultSessionTTL is how long an HTTP session survives without requests.
const DefaultSessionTTL = 30 * time.Minute

// Dispatcher lists and invokes tools.
type Dispatcher interface {
	ListTools() []tool.Descriptor
	Invoke(ctx context.Context, name string, args map[string]any) dispatch.Result
}

// HandlerFunc handles one JSON-RPC request. A nil response means nothing is
// written back.
type HandlerFunc func(ctx context.Context, req *JSONRPCRequest) *JSONRPCResponse

// Middleware wraps a request handler.
type Middleware func(next HandlerFunc) HandlerFunc

// Server is the MCP front end of a Dispatcher.
type Server struct {
	name       string
	version    string
	dispatcher Dispatcher
	middleware []Middleware
	logger     *slog.Logger

	maxBodyBytes int64

	// sessions maps an HTTP session id to its last use.
	sessions   map[string]time.Time
	sessionMu  sync.Mutex
	sessionTTL time.Duration
	now        func() time.Time
}

// New creates an MCP server with the given identity.
func New(name, version string, d Dispatcher) *Server {
	return &Server{
		name:         name,
		version:      version,
		dispatcher:   d,
		logger:       slog.Default(),
		maxBodyBytes: 1 << 20,
		sessions:     make(map[string]time.Time),
		sessionTTL:   DefaultSessionTTL,
		now:          time.Now,
	}
}

// SetMaxBodyBytes bounds the size of a request body on the HTTP transport.
func (s *Server) SetMaxBodyBytes(n int64) {
	if n > 0 {
		s.maxBodyBytes = n
	}
}

// Use appends middleware; the first added runs outermost.
func (s *Server) Use(mw ...Middleware) {
	s.middleware = append(s.middleware, mw...)
}

// RunStdio serves newline-delimited JSON-RPC messages from in, writing
// responses to out, until in reaches EOF or ctx is cancelled. Cancellation
// is honoured while the loop is blocked waiting for input.
func (s *Server) RunStdio(ctx context.Context, in io.Reader, out io.Writer) error {
	s.logger.Info("starting MCP server (stdio)", "name", s.name, "version", s.version, "tools", len(s.dispatcher.ListTools()))
	ctx = telemetry.WithTransport(ctx, "stdio")

	lines := make(chan []byte)
	scanErr := make(chan error, 1)
	go func() {
		scanner := bufio.NewScanner(in)
		scanner.Buffer(make([]byte, 0, 64*1024), maxMessageSize)
		defer close(lines)
		for scanner.Scan() {
			line := append([]byte(nil), scanner.Bytes()...)
			select {
			case lines <- line:
			case <-ctx.Done():
				return
			}
		}
		scanErr <- scanner.Err()
	}()

	encoder := json.NewEncoder(out)
	for {
		var line []byte
		select {
		case <-ctx.Done():
			return ctx.Err()
		case l, ok := <-lines:
			if !ok {
				if err := ctx.Err(); err != nil {
					return err
				}
				if err := <-scanErr; err != nil {
					return fmt.Errorf("read request: %w", err)
				}
				return nil
			}
			line = l
		}
		if len(line) == 0 {
			continue
		}

		var resp *JSONRPCResponse
		var req JSONRPCRequest
		if err := json.Unmarshal(line, &req); err != nil {
			resp = errorResponse(nil, CodeParseError, "Parse error")
		} else {
			resp = s.HandleRequest(ctx, &req)
		}
		if resp == nil {
			continue
		}

		if err := encoder.Encode(resp); err != nil {
			return fmt.Errorf("encode response: %w", err)
		}
	}
}

// HandleRequest processes a single JSON-RPC request through the middleware
// chain.
func (s *Server) HandleRequest(ctx context.Context, req *JSONRPCRequest) *JSONRPCResponse {
	handler := s.coreHandler
	for i := len(s.middleware) - 1; i >= 0; i-- {
		handler = s.middleware[i](handler)
	}
	return handler(ctx, req)
}

func (s *Server) coreHandler(ctx context.Context, req *JSONRPCRequest) *JSONRPCResponse {
	if req.JSONRPC != "2.0" || req.Method == "" {
		if req.IsNotification() {
			return nil
		}
		return errorResponse(req.ID, CodeInvalidRequest, "Invalid Request")
	}

	if req.IsNotification() {
		if req.Method == "notifications/initialized" {
			s.logger.Info("client initialized")
		}
		return nil
	}

	resp := &JSONRPCResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
	}

	switch req.Method {
	case "initialize":
		resp.Result = s.handleInitialize()
	case "ping":
		resp.Result = struct{}{}
	case "tools/list":
		resp.Result = s.handleToolsList()
	case "tools/call":
		return s.handleToolCall(ctx, req)
	default:
		resp.Error = &RPCError{
			Code:    CodeMethodNotFound,
			Message: fmt.Sprintf("Method not found: %s", req.Method),
		}
	}

	return resp
}

func (s *Server) handleInitialize() *InitializeResult {
	return &InitializeResult{
		ProtocolVersion: ProtocolVersion,
		Capabilities: ServerCapabilities{
			Tools: ToolsCapability{ListChanged: false},
		},
		ServerInfo: ServerInfo{
			Name:    s.name,
			Version: s.version,
		},
	}
}

func (s *Server) handleToolsList() *ToolsListResult {
	descs := s.dispatcher.ListTools()
	tools := make([]ToolDef, 0, len(descs))
	for _, d := range descs {
		tools = append(tools, ToolDef{
			Name:        d.Name,
			Description: d.Description,
			InputSchema: d.InputSchema,
		})
	}
	return &ToolsListResult{Tools: tools}
}

// handleToolCall renders the payload, soft failures included, as one text
// block. A hard failure becomes a JSON-RPC internal error.
func (s *Server) handleToolCall(ctx context.Context, req *JSONRPCRequest) *JSONRPCResponse {
	var params ToolCallParams
	if len(req.Params) == 0 {
		return errorResponse(req.ID, CodeInvalidParams, "Invalid params: missing tool name")
	}
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return errorResponse(req.ID, CodeInvalidParams, fmt.Sprintf("Invalid params: %v", err))
	}

	res := s.dispatcher.Invoke(ctx, params.Name, params.Arguments)
	if res.Failed() {
		return errorResponse(req.ID, CodeInternalError, res.Err.Error())
	}

	result, err := JSONResult(res.Payload)
	if err != nil {
		return errorResponse(req.ID, CodeInternalError, fmt.Sprintf("encode result: %v", err))
	}
	return &JSONRPCResponse{JSONRPC: "2.0", ID: req.ID, Result: result}
}

// Session management. Only the HTTP transport issues sessions; a stdio
// connection is its own session.

func (s *Server) createSession() string {
	id := uuid.NewString()
	s.sessionMu.Lock()
	defer s.sessionMu.Unlock()

	now := s.now()
	for sid, lastUsed := range s.sessions {
		if now.Sub(lastUsed) > s.sessionTTL {
			delete(s.sessions, sid)
		}
	}
	s.sessions[id] = now
	return id
}

// CheckSession reports whether id names a live session and refreshes it.
func (s *Server) CheckSession(id string) bool {
	s.sessionMu.Lock()
	defer s.sessionMu.Unlock()

	lastUsed, ok := s.sessions[id]
	if !ok {
		return false
	}
	now := s.now()
	if now.Sub(lastUsed) > s.sessionTTL {
		delete(s.sessions, id)
		return false
	}
	s.sessions[id] = now
	return true
}

// sessionCount is the number of sessions currently held.
func (s *Server) sessionCount() int {
	s.sessionMu.Lock()
	defer s.sessionMu.Unlock()
	return len(s.sessions)
}
