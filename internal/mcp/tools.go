package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/erc8004/agent-gateway/internal/apierror"
	"github.com/erc8004/agent-gateway/internal/enrichment"
	"github.com/erc8004/agent-gateway/internal/model"
	"github.com/erc8004/agent-gateway/internal/search"
)

// Tool describes one callable tool for tools/list. InputSchema is a
// JSON Schema object, kept as map[string]any since the MCP wire format
// wants it embedded as-is rather than as a Go struct.
type Tool struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"inputSchema"`
}

// AgentSearcher is the slice of search.Engine that search_agents and
// list_agents need.
type AgentSearcher interface {
	Search(ctx context.Context, p search.ListParams) (*search.Result, error)
	ListAgents(ctx context.Context, p search.ListParams) (*search.Result, error)
}

// AgentGetter fetches one agent's full detail view.
type AgentGetter interface {
	GetAgentDetail(ctx context.Context, chainID int64, tokenID string) (*enrichment.Detail, error)
}

// ChainStatter reports per-chain registry counts.
type ChainStatter interface {
	ChainStats(ctx context.Context) ([]model.ChainStat, error)
}

func (s *Service) tools() []Tool {
	return []Tool{
		{
			Name:        "search_agents",
			Description: "Search registered agents by natural-language query, optionally scoped to one or more chain ids.",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"query":    map[string]any{"type": "string", "minLength": 1, "maxLength": 500},
					"chainIds": map[string]any{"type": "array", "items": map[string]any{"type": "integer"}},
					"limit":    map[string]any{"type": "integer", "minimum": 1, "maximum": 100},
				},
				"required": []string{"query"},
			},
		},
		{
			Name:        "get_agent",
			Description: "Fetch a single agent's full detail by its chainId:tokenId identifier.",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"agentId": map[string]any{"type": "string", "pattern": "^[0-9]+:[0-9]+$"},
				},
				"required": []string{"agentId"},
			},
		},
		{
			Name:        "list_agents",
			Description: "List registered agents, optionally scoped to one or more chain ids, without a search query.",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"chainIds": map[string]any{"type": "array", "items": map[string]any{"type": "integer"}},
					"limit":    map[string]any{"type": "integer", "minimum": 1, "maximum": 100},
				},
			},
		},
		{
			Name:        "get_chain_stats",
			Description: "Report total and active agent counts per supported chain.",
			InputSchema: map[string]any{
				"type":       "object",
				"properties": map[string]any{},
			},
		},
	}
}

// toolCallParams is the shape of tools/call's params field.
type toolCallParams struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

// toolContent is the single-text-item content block every tool result
// is wrapped in.
type toolContent struct {
	Content []contentItem `json:"content"`
	IsError bool          `json:"isError,omitempty"`
}

type contentItem struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

func textResult(v any) toolContent {
	b, err := json.Marshal(v)
	if err != nil {
		return toolContent{Content: []contentItem{{Type: "text", Text: fmt.Sprintf("error: %v", err)}}, IsError: true}
	}
	return toolContent{Content: []contentItem{{Type: "text", Text: string(b)}}}
}

func (s *Service) callTool(ctx context.Context, params toolCallParams) (toolContent, *RPCError) {
	switch params.Name {
	case "search_agents":
		return s.toolSearchAgents(ctx, params.Arguments)
	case "get_agent":
		return s.toolGetAgent(ctx, params.Arguments)
	case "list_agents":
		return s.toolListAgents(ctx, params.Arguments)
	case "get_chain_stats":
		return s.toolChainStats(ctx)
	default:
		return toolContent{}, &RPCError{Code: CodeInvalidParams, Message: fmt.Sprintf("unknown tool %q", params.Name)}
	}
}

type searchAgentsArgs struct {
	Query    string  `json:"query"`
	ChainIDs []int64 `json:"chainIds"`
	Limit    int     `json:"limit"`
}

func (s *Service) toolSearchAgents(ctx context.Context, raw json.RawMessage) (toolContent, *RPCError) {
	var args searchAgentsArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return toolContent{}, invalidParams(err)
	}
	if args.Query == "" {
		return toolContent{}, &RPCError{Code: CodeInvalidParams, Message: "query is required"}
	}
	res, err := s.Searcher.Search(ctx, search.ListParams{
		Query:   args.Query,
		Filters: search.FlatFilters{ChainIDs: args.ChainIDs},
		Limit:   args.Limit,
	})
	if err != nil {
		return toolErrorContent(err), nil
	}
	return textResult(res), nil
}

type listAgentsArgs struct {
	ChainIDs []int64 `json:"chainIds"`
	Limit    int     `json:"limit"`
}

func (s *Service) toolListAgents(ctx context.Context, raw json.RawMessage) (toolContent, *RPCError) {
	var args listAgentsArgs
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &args); err != nil {
			return toolContent{}, invalidParams(err)
		}
	}
	res, err := s.Searcher.ListAgents(ctx, search.ListParams{
		Filters: search.FlatFilters{ChainIDs: args.ChainIDs},
		Limit:   args.Limit,
	})
	if err != nil {
		return toolErrorContent(err), nil
	}
	return textResult(res), nil
}

type getAgentArgs struct {
	AgentID string `json:"agentId"`
}

func (s *Service) toolGetAgent(ctx context.Context, raw json.RawMessage) (toolContent, *RPCError) {
	var args getAgentArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return toolContent{}, invalidParams(err)
	}
	id, err := model.ParseAgentID(args.AgentID)
	if err != nil {
		return toolContent{}, &RPCError{Code: CodeInvalidParams, Message: err.Error()}
	}
	detail, getErr := s.Getter.GetAgentDetail(ctx, id.ChainID, id.TokenID)
	if getErr != nil {
		return toolErrorContent(getErr), nil
	}
	return textResult(detail), nil
}

func (s *Service) toolChainStats(ctx context.Context) (toolContent, *RPCError) {
	stats, err := s.Chains.ChainStats(ctx)
	if err != nil {
		return toolErrorContent(err), nil
	}
	return textResult(stats), nil
}

func invalidParams(err error) *RPCError {
	return &RPCError{Code: CodeInvalidParams, Message: err.Error()}
}

// toolErrorContent renders a tool-level failure (not a protocol-level
// one) as an isError content block, matching how MCP surfaces domain
// errors distinctly from malformed requests.
func toolErrorContent(err error) toolContent {
	message := err.Error()
	if apiErr, ok := apierror.As(err); ok {
		message = apiErr.Message
	}
	return toolContent{Content: []contentItem{{Type: "text", Text: message}}, IsError: true}
}
