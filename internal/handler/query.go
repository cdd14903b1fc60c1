// Package handler implements the gateway's REST surface: agent
// listing/search/detail, feedback submission, chain stats, health, and
// the progressive-search/event-bus SSE endpoints. It wires
// internal/search, internal/enrichment, internal/reputation, and
// internal/trustgraph behind the {success,data,error} envelope.
package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/erc8004/agent-gateway/internal/search"
)

func parseCSV(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseBoolPtr(raw string) *bool {
	if raw == "" {
		return nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return nil
	}
	return &b
}

func parseIntPtr(raw string) *int {
	if raw == "" {
		return nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return nil
	}
	return &n
}

func parseInt64CSV(raw string) []int64 {
	var out []int64
	for _, p := range parseCSV(raw) {
		n, err := strconv.ParseInt(p, 10, 64)
		if err == nil {
			out = append(out, n)
		}
	}
	return out
}

func parseFloat64Ptr(raw string) *float64 {
	if raw == "" {
		return nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil
	}
	return &f
}

// parseFlatFilters reads the capability/taxonomy/identity/trust query
// params shared by GET /agents and POST /search.
func parseFlatFilters(q func(string) string) search.FlatFilters {
	filterMode := search.FilterModeAnd
	if strings.EqualFold(q("filterMode"), "OR") {
		filterMode = search.FilterModeOr
	}

	chainIDs := parseInt64CSV(q("chainIds"))
	if len(chainIDs) == 0 {
		if single := q("chainId"); single != "" {
			chainIDs = parseInt64CSV(single)
		}
	}

	return search.FlatFilters{
		ChainIDs:            chainIDs,
		ExcludeChainIDs:     parseInt64CSV(q("excludeChainIds")),
		Active:              parseBoolPtr(q("active")),
		MCP:                 parseBoolPtr(q("mcp")),
		A2A:                 parseBoolPtr(q("a2a")),
		X402:                parseBoolPtr(q("x402")),
		HasRegistrationFile: parseBoolPtr(q("hasRegistrationFile")),

		Skills:         parseCSV(q("skills")),
		Domains:        parseCSV(q("domains")),
		MCPTools:       parseCSV(q("mcpTools")),
		A2ASkills:      parseCSV(q("a2aSkills")),
		ExcludeSkills:  parseCSV(q("excludeSkills")),
		ExcludeDomains: parseCSV(q("excludeDomains")),

		ENS:           q("ens"),
		DID:           q("did"),
		Owner:         q("owner"),
		WalletAddress: q("walletAddress"),

		TrustModels: parseCSV(q("trustModels")),
		HasTrusts:   parseBoolPtr(q("hasTrusts")),

		FilterMode: filterMode,
	}
}

// parseListParams reads the full GET /agents query shape.
func parseListParams(r *http.Request) search.ListParams {
	q := r.URL.Query()
	get := func(key string) string { return q.Get(key) }

	limit := 20
	if n, err := strconv.Atoi(q.Get("limit")); err == nil {
		limit = n
	}

	return search.ListParams{
		Query:    q.Get("q"),
		Filters:  parseFlatFilters(get),
		MinScore: parseFloat64Ptr(q.Get("minScore")),
		MinRep:   parseIntPtr(q.Get("minRep")),
		MaxRep:   parseIntPtr(q.Get("maxRep")),
		Sort:     q.Get("sort"),
		Order:    q.Get("order"),
		Limit:    limit,
		Cursor:   q.Get("cursor"),
		Offset:   parseIntPtr(q.Get("offset")),
		Page:     parseIntPtr(q.Get("page")),
	}
}

// searchRequestBody is the POST /api/v1/search JSON body.
type searchRequestBody struct {
	Query    string            `json:"query"`
	Filters  searchFiltersBody `json:"filters"`
	MinScore *float64          `json:"minScore,omitempty"`
	Limit    int               `json:"limit,omitempty"`
	Cursor   string            `json:"cursor,omitempty"`
	Offset   *int              `json:"offset,omitempty"`
}

// searchFiltersBody mirrors the query-string filter shape for JSON bodies.
type searchFiltersBody struct {
	ChainIDs            []int64  `json:"chainIds,omitempty"`
	ExcludeChainIDs     []int64  `json:"excludeChainIds,omitempty"`
	Active              *bool    `json:"active,omitempty"`
	MCP                 *bool    `json:"mcp,omitempty"`
	A2A                 *bool    `json:"a2a,omitempty"`
	X402                *bool    `json:"x402,omitempty"`
	HasRegistrationFile *bool    `json:"hasRegistrationFile,omitempty"`
	Skills              []string `json:"skills,omitempty"`
	Domains             []string `json:"domains,omitempty"`
	MCPTools            []string `json:"mcpTools,omitempty"`
	A2ASkills           []string `json:"a2aSkills,omitempty"`
	ExcludeSkills       []string `json:"excludeSkills,omitempty"`
	ExcludeDomains      []string `json:"excludeDomains,omitempty"`
	ENS                 string   `json:"ens,omitempty"`
	DID                 string   `json:"did,omitempty"`
	Owner               string   `json:"owner,omitempty"`
	WalletAddress       string   `json:"walletAddress,omitempty"`
	TrustModels         []string `json:"trustModels,omitempty"`
	HasTrusts           *bool    `json:"hasTrusts,omitempty"`
	FilterMode          string   `json:"filterMode,omitempty"`
}

func (b searchFiltersBody) toFlatFilters() search.FlatFilters {
	mode := search.FilterModeAnd
	if strings.EqualFold(b.FilterMode, "OR") {
		mode = search.FilterModeOr
	}
	return search.FlatFilters{
		ChainIDs:            b.ChainIDs,
		ExcludeChainIDs:     b.ExcludeChainIDs,
		Active:              b.Active,
		MCP:                 b.MCP,
		A2A:                 b.A2A,
		X402:                b.X402,
		HasRegistrationFile: b.HasRegistrationFile,
		Skills:              b.Skills,
		Domains:             b.Domains,
		MCPTools:            b.MCPTools,
		A2ASkills:           b.A2ASkills,
		ExcludeSkills:       b.ExcludeSkills,
		ExcludeDomains:      b.ExcludeDomains,
		ENS:                 b.ENS,
		DID:                 b.DID,
		Owner:               b.Owner,
		WalletAddress:       b.WalletAddress,
		TrustModels:         b.TrustModels,
		HasTrusts:           b.HasTrusts,
		FilterMode:          mode,
	}
}

func (b searchRequestBody) toListParams() search.ListParams {
	minScore := b.MinScore
	if minScore == nil {
		defaultScore := 0.3
		minScore = &defaultScore
	}
	return search.ListParams{
		Query:    b.Query,
		Filters:  b.Filters.toFlatFilters(),
		MinScore: minScore,
		Limit:    b.Limit,
		Cursor:   b.Cursor,
		Offset:   b.Offset,
	}
}
