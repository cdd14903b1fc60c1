// Package search implements the hybrid search engine: filter
// translation, backend selection between the vector index and the
// chain-registry fallback, pagination, OR-mode filtering, and the
// reputation post-filter. OR mode is a single should/minShould filter
// in one index search; the engine runs no per-filter fan-out, and
// MergeMaxScore is a standalone helper that the Engine does not call.
package search

import (
	"context"
	"fmt"

	"github.com/erc8004/agent-gateway/internal/apierror"
	"github.com/erc8004/agent-gateway/internal/chainsdk"
	"github.com/erc8004/agent-gateway/internal/circuitbreaker"
	"github.com/erc8004/agent-gateway/internal/classify"
	"github.com/erc8004/agent-gateway/internal/model"
	"github.com/erc8004/agent-gateway/internal/repository"
	"github.com/erc8004/agent-gateway/internal/vectorindex"
)

// AgentsCollection is the single Qdrant collection the gateway reads
// and writes; one agent per chain:tokenId lives here regardless of
// source chain.
const AgentsCollection = "agents"

// ReputationLookup resolves an agent's 0-100 reputation average for
// the post-filter step; the search engine never talks to Postgres
// directly.
type ReputationLookup interface {
	ReputationScore(ctx context.Context, agentID string) (*float64, error)
}

// ClassificationLookup abstracts the classification repository so
// SimilarAgents can be tested without a database.
type ClassificationLookup interface {
	GetByAgentID(ctx context.Context, agentID string) (*model.Classification, error)
}

// Engine wires the external collaborators — VectorIndex, ChainRegistry,
// Embedder — and implements the listing and search decision tables.
// VectorIndex and ChainRegistry calls go through IndexBreaker and
// ChainBreaker; Embedder calls are made directly, with no breaker.
type Engine struct {
	Index           vectorindex.Index
	Registry        chainsdk.Registry
	Embedder        classify.Embedder
	Reputation      ReputationLookup
	Classification  ClassificationLookup
	IndexBreaker    *circuitbreaker.Breaker
	ChainBreaker    *circuitbreaker.Breaker
	DefaultMinScore float64
}

// ListParams is the flat request shape for GET /agents and POST /search.
type ListParams struct {
	Query    string
	Filters  FlatFilters
	MinScore *float64
	MinRep   *int
	MaxRep   *int
	Sort     string
	Order    string
	Limit    int
	Cursor   string
	Offset   *int
	Page     *int
}

// Result is what ListAgents, Search, SimilarAgents, and CompatibleAgents
// all return.
type Result struct {
	Items      []model.AgentSummary
	NextCursor string
	HasMore    bool
	SearchMode string // "vector" | "scroll" | "fallback"
}

// ListAgents implements the listing decision table (GET /agents).
// With a query it runs a scored vector search; without one it scrolls
// the index in creation order; if the index returns nothing and the
// caller did not explicitly ask for hasRegistrationFile=false, it falls
// back to the chain registry directly.
func (e *Engine) ListAgents(ctx context.Context, p ListParams) (*Result, error) {
	limit := ClampLimit(p.Limit)
	offset, err := ResolveOffset(p.Cursor, p.Offset, p.Page, limit)
	if err != nil {
		return nil, apierror.BadRequest(err.Error())
	}

	filter := BuildFilter(p.Filters)

	if p.Query != "" {
		vec, embedErr := e.Embedder.Embed(ctx, p.Query)
		if embedErr == nil {
			minScore := e.DefaultMinScore
			if p.MinScore != nil {
				minScore = *p.MinScore
			}
			res, searchErr := e.searchVector(ctx, vec, filter, limit, offset, minScore)
			if searchErr != nil {
				return nil, searchErr
			}
			return e.finish(ctx, res, "vector", p.MinRep, p.MaxRep), nil
		}
		// Embedding failures degrade to an unscored scroll rather than
		// failing the listing outright; only the dedicated search
		// endpoint requires the query to succeed.
	}

	res, scrollErr := e.scroll(ctx, filter, limit, offset, p.Sort, p.Order)
	if scrollErr != nil {
		return nil, scrollErr
	}

	if len(res.Hits) == 0 && p.Query == "" && (p.Filters.HasRegistrationFile == nil || *p.Filters.HasRegistrationFile) {
		return e.listFallback(ctx, p, limit, offset)
	}

	return e.finish(ctx, res, "scroll", p.MinRep, p.MaxRep), nil
}

// Search always searches the vector index (POST /search); a query is
// required and there is no chain-registry fallback.
func (e *Engine) Search(ctx context.Context, p ListParams) (*Result, error) {
	if p.Query == "" {
		return nil, apierror.Validation("query is required for search")
	}
	limit := ClampLimit(p.Limit)
	offset, err := ResolveOffset(p.Cursor, p.Offset, p.Page, limit)
	if err != nil {
		return nil, apierror.BadRequest(err.Error())
	}

	vec, embedErr := e.Embedder.Embed(ctx, p.Query)
	if embedErr != nil {
		return nil, apierror.UpstreamUnavailable("embedder", embedErr)
	}

	minScore := e.DefaultMinScore
	if p.MinScore != nil {
		minScore = *p.MinScore
	}

	filter := BuildFilter(p.Filters)
	res, err := e.searchVector(ctx, vec, filter, limit, offset, minScore)
	if err != nil {
		return nil, err
	}

	return e.finish(ctx, res, "vector", p.MinRep, p.MaxRep), nil
}

// SimilarAgents implements the similarity surface: the
// source agent's own classified skills (union with its domains when
// there is room under limit) become a filter-only scroll, excluding the
// source itself. There is no query vector involved — similarity here is
// taxonomy overlap, not embedding distance.
func (e *Engine) SimilarAgents(ctx context.Context, sourceAgentID string, limit int) (*Result, error) {
	limit = ClampLimit(limit)

	classification, err := e.Classification.GetByAgentID(ctx, sourceAgentID)
	if err != nil {
		if err == repository.ErrNotFound {
			return &Result{}, nil
		}
		return nil, apierror.Internal(err)
	}

	var skills, domains []string
	for _, item := range classification.Skills {
		skills = append(skills, item.Slug)
	}
	for _, item := range classification.Domains {
		domains = append(domains, item.Slug)
	}
	if len(skills) == 0 && len(domains) == 0 {
		return &Result{}, nil
	}

	flat := FlatFilters{Skills: skills, FilterMode: FilterModeOr}
	if len(skills) < limit {
		flat.Domains = domains
	}
	filter := BuildFilter(flat)
	filter.MustNot = append(filter.MustNot, vectorindex.MatchValueCond("agent_id", sourceAgentID))

	res, err := circuitbreaker.Do(e.IndexBreaker, ctx, func(ctx context.Context) (vectorindex.SearchResult, error) {
		return e.Index.Search(ctx, AgentsCollection, vectorindex.SearchParams{
			Filter:      &filter,
			Limit:       limit,
			WithPayload: true,
		})
	})
	if err != nil {
		return nil, err
	}
	return e.finish(ctx, res, "scroll", nil, nil), nil
}

// CompatibleAgents implements the MCP-compatibility surface:
// upstream agents are those whose output_modes intersect the source's
// input_modes (they could feed it), downstream is the mirror.
func (e *Engine) CompatibleAgents(ctx context.Context, sourceAgentID string, direction string, limit int) (*Result, error) {
	limit = ClampLimit(limit)

	id, err := model.ParseAgentID(sourceAgentID)
	if err != nil {
		return nil, apierror.Validation(err.Error())
	}
	source, err := circuitbreaker.Do(e.ChainBreaker, ctx, func(ctx context.Context) (*chainsdk.AgentDetail, error) {
		a, err := e.Registry.GetAgent(ctx, id.ChainID, id.TokenID)
		if err == chainsdk.ErrNotFound {
			return nil, nil
		}
		return a, err
	})
	if err != nil {
		return nil, err
	}
	if source == nil {
		return nil, apierror.NotFound("agent", sourceAgentID)
	}

	var modes []string
	if direction == "upstream" {
		modes = source.InputModes
	} else {
		modes = source.OutputModes
	}
	if len(modes) == 0 {
		return &Result{}, nil
	}

	key := "input_modes"
	if direction == "upstream" {
		key = "output_modes"
	}
	filter := vectorindex.Filter{
		Must:    []vectorindex.Condition{vectorindex.MatchAnyCond(key, toAnySliceStr(modes))},
		MustNot: []vectorindex.Condition{vectorindex.MatchValueCond("agent_id", sourceAgentID)},
	}

	res, err := circuitbreaker.Do(e.IndexBreaker, ctx, func(ctx context.Context) (vectorindex.SearchResult, error) {
		return e.Index.Search(ctx, AgentsCollection, vectorindex.SearchParams{
			Filter:      &filter,
			Limit:       limit,
			WithPayload: true,
		})
	})
	if err != nil {
		return nil, err
	}
	return e.finish(ctx, res, "scroll", nil, nil), nil
}

func (e *Engine) searchVector(ctx context.Context, vec []float32, filter vectorindex.Filter, limit, offset int, minScore float64) (vectorindex.SearchResult, error) {
	threshold := minScore
	params := vectorindex.SearchParams{
		Vector:         vec,
		Filter:         &filter,
		Limit:          limit,
		Offset:         offset,
		ScoreThreshold: &threshold,
		WithPayload:    true,
	}
	return circuitbreaker.Do(e.IndexBreaker, ctx, func(ctx context.Context) (vectorindex.SearchResult, error) {
		return e.Index.Search(ctx, AgentsCollection, params)
	})
}

func (e *Engine) scroll(ctx context.Context, filter vectorindex.Filter, limit, offset int, sort, order string) (vectorindex.SearchResult, error) {
	orderBy := &vectorindex.OrderBy{Key: "created_at", Direction: vectorindex.Desc}
	if sort != "" && sort != "relevance" {
		orderBy.Key = sortFieldToPayloadKey(sort)
	}
	if order == "asc" {
		orderBy.Direction = vectorindex.Asc
	}

	params := vectorindex.SearchParams{
		Filter:      &filter,
		Limit:       limit,
		Offset:      offset,
		WithPayload: true,
		OrderBy:     orderBy,
	}
	return circuitbreaker.Do(e.IndexBreaker, ctx, func(ctx context.Context) (vectorindex.SearchResult, error) {
		return e.Index.Search(ctx, AgentsCollection, params)
	})
}

func sortFieldToPayloadKey(sort string) string {
	switch sort {
	case "name":
		return "name"
	case "reputation":
		return "reputation_score"
	default:
		return "created_at"
	}
}

// listFallback covers the vector-index-empty case: no query, no
// explicit hasRegistrationFile=false, zero hits. It falls back to the
// chain registry directly, marking searchMode as "fallback" so a
// caller can distinguish a degraded response.
func (e *Engine) listFallback(ctx context.Context, p ListParams, limit, offset int) (*Result, error) {
	filters := chainsdk.ListFilters{
		ChainIDs:            p.Filters.ChainIDs,
		ExcludeChainIDs:     p.Filters.ExcludeChainIDs,
		Active:              p.Filters.Active,
		MCP:                 p.Filters.MCP,
		A2A:                 p.Filters.A2A,
		X402:                p.Filters.X402,
		HasRegistrationFile: p.Filters.HasRegistrationFile,
		Skills:              p.Filters.Skills,
		Domains:             p.Filters.Domains,
		Owner:               p.Filters.Owner,
		WalletAddress:       p.Filters.WalletAddress,
		Limit:               limit,
	}
	cursor := ""
	if offset > 0 {
		cursor = fmt.Sprintf("%d", offset)
	}

	type fallbackPage struct {
		items []chainsdk.AgentDetail
		next  string
	}
	page, err := circuitbreaker.Do(e.ChainBreaker, ctx, func(ctx context.Context) (fallbackPage, error) {
		items, next, err := e.Registry.ListAgents(ctx, filters, cursor)
		return fallbackPage{items: items, next: next}, err
	})
	if err != nil {
		return nil, err
	}

	summaries := make([]model.AgentSummary, len(page.items))
	for i, d := range page.items {
		summaries[i] = d.Summary
	}
	items := e.applyReputationFilter(ctx, summaries, p.MinRep, p.MaxRep)

	var outCursor string
	if page.next != "" {
		var off int
		fmt.Sscanf(page.next, "%d", &off)
		outCursor = EncodeCursor(off)
	}
	return &Result{Items: items, NextCursor: outCursor, HasMore: page.next != "", SearchMode: "fallback"}, nil
}

func (e *Engine) finish(ctx context.Context, res vectorindex.SearchResult, mode string, minRep, maxRep *int) *Result {
	items := e.applyReputationFilter(ctx, hitsToSummaries(res.Hits), minRep, maxRep)
	var cursor string
	if res.HasMore {
		cursor = EncodeCursor(res.NextOffset)
	}
	return &Result{Items: items, NextCursor: cursor, HasMore: res.HasMore, SearchMode: mode}
}

func (e *Engine) applyReputationFilter(ctx context.Context, items []model.AgentSummary, minRep, maxRep *int) []model.AgentSummary {
	if minRep == nil && maxRep == nil {
		return items
	}
	out := make([]model.AgentSummary, 0, len(items))
	for _, item := range items {
		var score *float64
		if e.Reputation != nil {
			score, _ = e.Reputation.ReputationScore(ctx, item.ID)
		}
		if PassesReputationFilter(score, minRep, maxRep) {
			item.ReputationScore = score
			out = append(out, item)
		}
	}
	return out
}

func hitsToSummaries(hits []vectorindex.Hit) []model.AgentSummary {
	out := make([]model.AgentSummary, len(hits))
	for i, h := range hits {
		out[i] = payloadToSummary(h)
	}
	return out
}
