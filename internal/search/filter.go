package search

import (
	"strings"
	"time"

	"github.com/erc8004/agent-gateway/internal/vectorindex"
)

// FilterMode governs only the boolean capability filters (mcp, a2a,
// x402) and the array-slug filters; minRep/maxRep are never AND/OR'd.
type FilterMode string

const (
	FilterModeAnd FilterMode = "AND"
	FilterModeOr  FilterMode = "OR"
)

// FlatFilters is the request-level filter shape accepted by listing
// and search, before translation into the vector index's filter tree.
type FlatFilters struct {
	ChainIDs            []int64
	ExcludeChainIDs     []int64
	Active              *bool
	MCP                 *bool
	A2A                 *bool
	X402                *bool
	HasRegistrationFile *bool

	Skills        []string
	Domains       []string
	MCPTools      []string
	A2ASkills     []string
	ExcludeSkills []string
	ExcludeDomains []string

	ENS           string
	DID           string
	Owner         string
	WalletAddress string

	TrustModels []string
	HasTrusts   *bool

	CreatedAfter  *time.Time
	CreatedBefore *time.Time

	MinRep *int
	MaxRep *int

	FilterMode FilterMode
}

// BuildFilter translates FlatFilters into the vector-index filter
// tree. minRep/maxRep are deliberately excluded — they are a
// post-filter applied after payload assembly, not pushed down to the
// index.
func BuildFilter(f FlatFilters) vectorindex.Filter {
	var must, should, mustNot []vectorindex.Condition

	if len(f.ChainIDs) > 0 {
		must = append(must, vectorindex.MatchAnyCond("chain_id", toAnySlice64(f.ChainIDs)))
	}
	if len(f.ExcludeChainIDs) > 0 {
		mustNot = append(mustNot, vectorindex.MatchAnyCond("chain_id", toAnySlice64(f.ExcludeChainIDs)))
	}

	boolFilters := []struct {
		key string
		val *bool
	}{
		{"active", f.Active},
		{"mcp", f.MCP},
		{"a2a", f.A2A},
		{"x402", f.X402},
	}
	for _, bf := range boolFilters {
		if bf.val == nil {
			continue
		}
		cond := vectorindex.MatchValueCond(bf.key, *bf.val)
		if f.FilterMode == FilterModeOr {
			should = append(should, cond)
		} else {
			must = append(must, cond)
		}
	}
	if f.HasRegistrationFile != nil {
		// hasRegistrationFile is never part of the AND/OR capability
		// toggle group; it always pushes down as a plain matchValue.
		must = append(must, vectorindex.MatchValueCond("has_registration_file", *f.HasRegistrationFile))
	}

	arrayFilters := []struct {
		key    string
		values []string
	}{
		{"skills", f.Skills},
		{"domains", f.Domains},
		{"mcp_tools", f.MCPTools},
		{"a2a_skills", f.A2ASkills},
	}
	for _, af := range arrayFilters {
		if len(af.values) == 0 {
			continue
		}
		cond := vectorindex.MatchAnyCond(af.key, toAnySliceStr(af.values))
		if f.FilterMode == FilterModeOr {
			should = append(should, cond)
		} else {
			must = append(must, cond)
		}
	}
	if len(f.ExcludeSkills) > 0 {
		mustNot = append(mustNot, vectorindex.MatchAnyCond("skills", toAnySliceStr(f.ExcludeSkills)))
	}
	if len(f.ExcludeDomains) > 0 {
		mustNot = append(mustNot, vectorindex.MatchAnyCond("domains", toAnySliceStr(f.ExcludeDomains)))
	}

	if f.ENS != "" {
		must = append(must, vectorindex.MatchValueCond("ens", f.ENS))
	}
	if f.DID != "" {
		must = append(must, vectorindex.MatchValueCond("did", f.DID))
	}
	if f.Owner != "" {
		must = append(must, vectorindex.MatchValueCond("owner", strings.ToLower(f.Owner)))
	}
	if f.WalletAddress != "" {
		must = append(must, vectorindex.MatchValueCond("wallet_address", strings.ToLower(f.WalletAddress)))
	}

	if len(f.TrustModels) > 0 {
		must = append(must, vectorindex.MatchAnyCond("supported_trusts", toAnySliceStr(f.TrustModels)))
	}
	if f.HasTrusts != nil {
		if *f.HasTrusts {
			must = append(must, vectorindex.ValuesCountCond("supported_trusts", vectorindex.ValuesCountCondition{
				Gt: vectorindex.IntBound(0),
			}))
		} else {
			must = append(must, vectorindex.IsEmptyCond("supported_trusts"))
		}
	}

	if f.CreatedAfter != nil || f.CreatedBefore != nil {
		must = append(must, vectorindex.DatetimeRangeCond("created_at", vectorindex.DatetimeRangeCondition{
			Gte: f.CreatedAfter,
			Lte: f.CreatedBefore,
		}))
	}

	filter := vectorindex.Filter{Must: must, MustNot: mustNot}
	if f.FilterMode == FilterModeOr && len(should) > 0 {
		filter.Should = should
		filter.MinShould = &vectorindex.MinShould{Count: 1, Conditions: should}
	}
	return filter
}

func toAnySlice64(vals []int64) []any {
	out := make([]any, len(vals))
	for i, v := range vals {
		out[i] = v
	}
	return out
}

func toAnySliceStr(vals []string) []any {
	out := make([]any, len(vals))
	for i, v := range vals {
		out[i] = v
	}
	return out
}
