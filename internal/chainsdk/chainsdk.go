// Package chainsdk models the chain-reading SDK as an external
// component: it is never implemented here, only its contract and a
// stub used as the vector-index-empty fallback and by the MCP/REST
// chain-stats surfaces until a real SDK is wired in.
package chainsdk

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/erc8004/agent-gateway/internal/model"
)

// ListFilters mirrors the flat query filters a caller may pass to
// listAgents; only the fields the fallback path and the stub actually
// need are modeled, the rest pass through untouched for a real SDK.
type ListFilters struct {
	ChainIDs            []int64
	ExcludeChainIDs     []int64
	Active              *bool
	MCP                 *bool
	A2A                 *bool
	X402                *bool
	HasRegistrationFile *bool
	Skills              []string
	Domains             []string
	Owner               string
	WalletAddress       string
	Limit               int
}

// AgentDetail is the full record a registry lookup returns; a superset
// of AgentSummary since the SDK is the system of record.
type AgentDetail struct {
	Summary      model.AgentSummary
	MetadataURI  string
	InputModes   []string
	OutputModes  []string
}

// Registry is the chain-reading SDK contract named in : list
// with cursor pagination, single-record lookup, and per-chain stats.
type Registry interface {
	ListAgents(ctx context.Context, filters ListFilters, cursor string) (items []AgentDetail, nextCursor string, err error)
	GetAgent(ctx context.Context, chainID int64, tokenID string) (*AgentDetail, error)
	ChainStats(ctx context.Context) ([]model.ChainStat, error)
}

// ErrNotFound is returned by GetAgent when no matching on-chain record
// exists.
var ErrNotFound = fmt.Errorf("chainsdk: agent not found")

// StubRegistry is an in-memory Registry used in place of the real
// chain-indexing SDK, which is out of scope for this gateway. It lets
// the search engine's fallback path and the chain-stats surfaces
// function end-to-end against a small seeded fixture instead of a bare
// unimplemented interface.
type StubRegistry struct {
	mu     sync.RWMutex
	agents map[string]AgentDetail
}

// NewStubRegistry creates an empty stub. Seed populates it for tests
// and local development.
func NewStubRegistry() *StubRegistry {
	return &StubRegistry{agents: make(map[string]AgentDetail)}
}

// Seed registers or replaces an agent record.
func (s *StubRegistry) Seed(a AgentDetail) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.agents[a.Summary.ID] = a
}

func (s *StubRegistry) ListAgents(ctx context.Context, filters ListFilters, cursor string) ([]AgentDetail, string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	limit := filters.Limit
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	matched := make([]AgentDetail, 0, len(s.agents))
	for _, a := range s.agents {
		if matchesFilters(a, filters) {
			matched = append(matched, a)
		}
	}
	// Stable ordering across calls: map iteration order is randomized per
	// run, but offset-based paging requires the same slice for the same
	// (filters, offset) pair.
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].Summary.ID < matched[j].Summary.ID
	})

	offset := 0
	if cursor != "" {
		if _, err := fmt.Sscanf(cursor, "%d", &offset); err != nil {
			offset = 0
		}
	}
	if offset >= len(matched) {
		return nil, "", nil
	}

	end := offset + limit
	if end > len(matched) {
		end = len(matched)
	}
	page := matched[offset:end]

	next := ""
	if end < len(matched) {
		next = fmt.Sprintf("%d", end)
	}
	return page, next, nil
}

func (s *StubRegistry) GetAgent(ctx context.Context, chainID int64, tokenID string) (*AgentDetail, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id := (model.AgentID{ChainID: chainID, TokenID: tokenID}).String()
	a, ok := s.agents[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &a, nil
}

func (s *StubRegistry) ChainStats(ctx context.Context) ([]model.ChainStat, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[int64]int)
	active := make(map[int64]int)
	for _, a := range s.agents {
		counts[a.Summary.ChainID]++
		if a.Summary.Active {
			active[a.Summary.ChainID]++
		}
	}

	stats := make([]model.ChainStat, 0, len(counts))
	for chainID, total := range counts {
		stats = append(stats, model.ChainStat{
			ChainID:      chainID,
			TotalAgents:  total,
			ActiveAgents: active[chainID],
			UpdatedAt:    time.Now(),
		})
	}
	return stats, nil
}

func matchesFilters(a AgentDetail, f ListFilters) bool {
	if len(f.ChainIDs) > 0 && !containsInt64(f.ChainIDs, a.Summary.ChainID) {
		return false
	}
	if len(f.ExcludeChainIDs) > 0 && containsInt64(f.ExcludeChainIDs, a.Summary.ChainID) {
		return false
	}
	if f.Active != nil && a.Summary.Active != *f.Active {
		return false
	}
	if f.MCP != nil && a.Summary.HasMCP != *f.MCP {
		return false
	}
	if f.A2A != nil && a.Summary.HasA2A != *f.A2A {
		return false
	}
	if f.X402 != nil && a.Summary.X402Support != *f.X402 {
		return false
	}
	if f.Owner != "" && a.Summary.Owner != f.Owner {
		return false
	}
	return true
}

func containsInt64(haystack []int64, needle int64) bool {
	for _, v := range haystack {
		if v == needle {
			return true
		}
	}
	return false
}
