package mcpserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/RobinCoderZhao/mcp-toolkit/internal/telemetry"
)

// SessionHeader carries the session id issued by initialize.
const SessionHeader = "Mcp-Session-Id"

// HTTPHandler serves JSON-RPC over HTTP POST. Every request other than
// initialize must present a session id from a previous initialize; idle
// sessions expire after DefaultSessionTTL. Bodies over the configured limit
// are rejected with 413. The
// response is SSE when the client accepts text/event-stream, JSON otherwise.
func (s *Server) HTTPHandler() http.Handler {
	return http.HandlerFunc(s.handleMCPRequest)
}

func (s *Server) handleMCPRequest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req JSONRPCRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, s.maxBodyBytes)).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			http.Error(w, "Request body too large", http.StatusRequestEntityTooLarge)
			return
		}
		sendJSON(w, errorResponse(nil, CodeParseError, "Parse error"))
		return
	}

	if req.Method != "initialize" {
		sessionID := r.Header.Get(SessionHeader)
		if sessionID == "" || !s.CheckSession(sessionID) {
			http.Error(w, "Session not found", http.StatusNotFound)
			return
		}
	}

	ctx := telemetry.WithTransport(r.Context(), "mcp-http")
	resp := s.HandleRequest(ctx, &req)
	if resp == nil {
		w.WriteHeader(http.StatusAccepted)
		return
	}

	if req.Method == "initialize" && resp.Error == nil {
		if result, ok := resp.Result.(*InitializeResult); ok {
			result.SessionID = s.createSession()
			w.Header().Set(SessionHeader, result.SessionID)
		}
	}

	if strings.Contains(r.Header.Get("Accept"), "text/event-stream") {
		sendSSE(w, resp)
	} else {
		sendJSON(w, resp)
	}
}

func sendJSON(w http.ResponseWriter, resp *JSONRPCResponse) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func sendSSE(w http.ResponseWriter, resp *JSONRPCResponse) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		sendJSON(w, resp)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	respBytes, err := json.Marshal(resp)
	if err != nil {
		respBytes, _ = json.Marshal(errorResponse(resp.ID, CodeInternalError, "encode response"))
	}
	fmt.Fprintf(w, "event: message\ndata: %s\n\n", respBytes)
	flusher.Flush()
}
