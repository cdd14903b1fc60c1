package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/erc8004/agent-gateway/internal/model"
)

// ServerName and ServerVersion identify this gateway to MCP clients
// during initialize.
const (
	ServerName    = "erc8004-agent-gateway"
	ServerVersion = "1.0.0"
)

// Service is the JSON-RPC dispatcher: it owns no HTTP concerns of its
// own (those live in http.go) and depends only on the small
// collaborator interfaces declared in tools.go and session.go, the
// same DI shape the rest of the
// gateway's services use.
type Service struct {
	Searcher AgentSearcher
	Getter   AgentGetter
	Chains   ChainStatter
	Sessions SessionStore
	Now      func() time.Time
}

// New builds a Service with its collaborators wired in.
func New(searcher AgentSearcher, getter AgentGetter, chains ChainStatter, sessions SessionStore) *Service {
	return &Service{Searcher: searcher, Getter: getter, Chains: chains, Sessions: sessions, Now: time.Now}
}

// Dispatch handles a single JSON-RPC request. sessionID is the value of
// the Mcp-Session-Id header, if the caller sent one; it may be empty
// for the very first initialize call. It returns the response to
// write, or nil if the request was a notification (the caller should
// then answer with HTTP 202 and no body).
func (s *Service) Dispatch(ctx context.Context, req Request, sessionID string) (*Response, error) {
	if req.JSONRPC != "2.0" {
		resp := errorResponse(req.ID, CodeInvalidRequest, "jsonrpc must be \"2.0\"", nil)
		return &resp, nil
	}

	switch {
	case req.Method == "initialize":
		return s.handleInitialize(ctx, req)
	case req.Method == "initialized" || hasNotificationPrefix(req.Method):
		return nil, nil
	}

	if req.IsNotification() {
		return nil, nil
	}

	switch req.Method {
	case "tools/list":
		resp := resultResponse(req.ID, map[string]any{"tools": s.tools()})
		return &resp, nil
	case "tools/call":
		var params toolCallParams
		if err := json.Unmarshal(req.Params, &params); err != nil {
			resp := errorResponse(req.ID, CodeInvalidParams, err.Error(), nil)
			return &resp, nil
		}
		content, rpcErr := s.callTool(ctx, params)
		if rpcErr != nil {
			resp := errorResponse(req.ID, rpcErr.Code, rpcErr.Message, rpcErr.Data)
			return &resp, nil
		}
		resp := resultResponse(req.ID, content)
		return &resp, nil
	case "resources/list":
		resp := resultResponse(req.ID, map[string]any{"resources": s.resources()})
		return &resp, nil
	case "resources/read":
		var params struct {
			URI string `json:"uri"`
		}
		if err := json.Unmarshal(req.Params, &params); err != nil {
			resp := errorResponse(req.ID, CodeInvalidParams, err.Error(), nil)
			return &resp, nil
		}
		contents, rpcErr := s.readResource(ctx, params.URI)
		if rpcErr != nil {
			resp := errorResponse(req.ID, rpcErr.Code, rpcErr.Message, rpcErr.Data)
			return &resp, nil
		}
		resp := resultResponse(req.ID, contents)
		return &resp, nil
	case "prompts/list":
		resp := resultResponse(req.ID, map[string]any{"prompts": s.prompts()})
		return &resp, nil
	case "prompts/get":
		var params promptGetParams
		if err := json.Unmarshal(req.Params, &params); err != nil {
			resp := errorResponse(req.ID, CodeInvalidParams, err.Error(), nil)
			return &resp, nil
		}
		result, rpcErr := s.getPrompt(params)
		if rpcErr != nil {
			resp := errorResponse(req.ID, rpcErr.Code, rpcErr.Message, rpcErr.Data)
			return &resp, nil
		}
		resp := resultResponse(req.ID, result)
		return &resp, nil
	default:
		resp := errorResponse(req.ID, CodeMethodNotFound, fmt.Sprintf("unknown method %q", req.Method), nil)
		return &resp, nil
	}
}

func hasNotificationPrefix(method string) bool {
	return len(method) > len("notifications/") && method[:len("notifications/")] == "notifications/"
}

type initializeParams struct {
	ProtocolVersion string         `json:"protocolVersion"`
	ClientInfo      map[string]any `json:"clientInfo,omitempty"`
}

type initializeResult struct {
	ProtocolVersion string         `json:"protocolVersion"`
	ServerInfo      map[string]any `json:"serverInfo"`
	Capabilities    map[string]any `json:"capabilities"`
}

// handleInitialize negotiates a protocol version from
// model.SupportedMCPProtocolVersions, rejecting anything outside it
// with -32602. It does not touch the session store; the HTTP layer
// opens the session record through OpenSession.
func (s *Service) handleInitialize(ctx context.Context, req Request) (*Response, error) {
	var params initializeParams
	if len(req.Params) > 0 {
		if err := json.Unmarshal(req.Params, &params); err != nil {
			resp := errorResponse(req.ID, CodeInvalidParams, err.Error(), nil)
			return &resp, nil
		}
	}

	if !supportedVersion(params.ProtocolVersion) {
		resp := errorResponse(req.ID, CodeInvalidParams, "unsupported protocolVersion", map[string]any{
			"supported": model.SupportedMCPProtocolVersions,
		})
		return &resp, nil
	}

	result := initializeResult{
		ProtocolVersion: params.ProtocolVersion,
		ServerInfo:      map[string]any{"name": ServerName, "version": ServerVersion},
		Capabilities: map[string]any{
			"tools":     map[string]any{},
			"resources": map[string]any{},
			"prompts":   map[string]any{},
		},
	}
	resp := resultResponse(req.ID, result)
	return &resp, nil
}

func supportedVersion(v string) bool {
	for _, s := range model.SupportedMCPProtocolVersions {
		if s == v {
			return true
		}
	}
	return false
}

// OpenSession creates a new session record for a just-negotiated
// protocolVersion, called by the HTTP layer once handleInitialize
// succeeds.
func (s *Service) OpenSession(ctx context.Context, protocolVersion string) (*model.MCPSession, error) {
	now := s.Now()
	session := &model.MCPSession{
		SessionID:       NewSessionID(),
		ProtocolVersion: protocolVersion,
		ServerInfo:      map[string]any{"name": ServerName, "version": ServerVersion},
		CreatedAt:       now,
		LastActivityAt:  now,
	}
	if err := s.Sessions.Save(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

// TouchSession refreshes an existing session's activity timestamp and
// TTL. It reports false if the session is unknown or expired.
func (s *Service) TouchSession(ctx context.Context, sessionID string) (bool, error) {
	session, found, err := s.Sessions.Get(ctx, sessionID)
	if err != nil || !found {
		return false, err
	}
	session.LastActivityAt = s.Now()
	if err := s.Sessions.Save(ctx, session); err != nil {
		return false, err
	}
	return true, nil
}

// EndSession terminates a session, called on DELETE /mcp.
func (s *Service) EndSession(ctx context.Context, sessionID string) {
	s.Sessions.Delete(ctx, sessionID)
}
