package mcp

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/erc8004/agent-gateway/internal/apierror"
)

// SessionHeader is the header MCP sessions are keyed by.
const SessionHeader = "Mcp-Session-Id"

// ProtocolVersionHeader echoes the negotiated protocol version on every
// sessioned response.
const ProtocolVersionHeader = "MCP-Protocol-Version"

// keepaliveInterval is how often the SSE endpoint writes a comment line
// to keep the connection alive through intermediate proxies.
const keepaliveInterval = 15 * time.Second

// Handler serves the JSON-RPC-over-HTTP endpoint at GET|POST|DELETE /mcp.
func Handler(s *Service) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			servePost(w, r, s)
		case http.MethodGet:
			serveSSE(w, r, s, mcpEndpointURL)
		case http.MethodDelete:
			serveDelete(w, r, s)
		default:
			w.Header().Set("Allow", "GET, POST, DELETE")
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	})
}

// SSEHandler serves the compatibility SSE endpoint at GET /sse.
func SSEHandler(s *Service) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		serveSSE(w, r, s, mcpEndpointURL)
	})
}

func servePost(w http.ResponseWriter, r *http.Request, s *Service) {
	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeRPC(w, errorResponse(nil, CodeParseError, "invalid JSON: "+err.Error(), nil), "", "")
		return
	}

	sessionID := r.Header.Get(SessionHeader)
	if sessionID != "" && req.Method != "initialize" {
		ok, err := s.TouchSession(r.Context(), sessionID)
		if err != nil {
			apierror.WriteError(w, apierror.Internal(err))
			return
		}
		if !ok {
			apierror.WriteError(w, apierror.NotFound("mcp session", sessionID))
			return
		}
	}

	resp, err := s.Dispatch(r.Context(), req, sessionID)
	if err != nil {
		apierror.WriteError(w, apierror.Internal(err))
		return
	}
	if resp == nil {
		w.WriteHeader(http.StatusAccepted)
		return
	}

	protocolVersion := ""
	if req.Method == "initialize" && resp.Error == nil {
		if result, ok := resp.Result.(initializeResult); ok {
			protocolVersion = result.ProtocolVersion
			session, openErr := s.OpenSession(r.Context(), protocolVersion)
			if openErr != nil {
				apierror.WriteError(w, apierror.Internal(openErr))
				return
			}
			sessionID = session.SessionID
		}
	}

	writeRPC(w, *resp, sessionID, protocolVersion)
}

func writeRPC(w http.ResponseWriter, resp Response, sessionID, protocolVersion string) {
	w.Header().Set("Content-Type", "application/json")
	if sessionID != "" {
		w.Header().Set(SessionHeader, sessionID)
	}
	if protocolVersion != "" {
		w.Header().Set(ProtocolVersionHeader, protocolVersion)
	}
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(resp)
}

func serveDelete(w http.ResponseWriter, r *http.Request, s *Service) {
	sessionID := r.Header.Get(SessionHeader)
	if sessionID == "" {
		apierror.WriteError(w, apierror.BadRequest("Mcp-Session-Id header is required"))
		return
	}
	s.EndSession(r.Context(), sessionID)
	w.WriteHeader(http.StatusNoContent)
}

func mcpEndpointURL(sessionID string) string {
	if sessionID == "" {
		return "/mcp"
	}
	return fmt.Sprintf("/mcp?sessionId=%s", sessionID)
}

// serveSSE emits a single "event: endpoint" announcing the JSON-RPC URL
// for this connection, then a ": keepalive" comment every 15s until the
// client disconnects.
func serveSSE(w http.ResponseWriter, r *http.Request, s *Service, endpointURL func(string) string) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		apierror.WriteError(w, apierror.Internal(fmt.Errorf("mcp: response writer does not support flushing")))
		return
	}

	sessionID := r.Header.Get(SessionHeader)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	fmt.Fprintf(w, "event: endpoint\ndata: %s\n\n", endpointURL(sessionID))
	flusher.Flush()

	ticker := time.NewTicker(keepaliveInterval)
	defer ticker.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": keepalive\n\n"); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
