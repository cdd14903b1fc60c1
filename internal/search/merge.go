package search

import "sort"

// ScoredHit is the minimal shape merge operates over: an agent id and
// its score from one fanned-out backend search.
type ScoredHit struct {
	AgentID string
	Score   float64
}

// MergeMaxScore implements the OR-mode fan-out merge:
// one search per boolean filter, keep the max score per agent id
// across all fanned-out result sets, sort by score descending, and
// truncate to limit. The merged result carries no next cursor —
// merging breaks offset monotonicity across backends.
func MergeMaxScore(resultSets [][]ScoredHit, limit int) []ScoredHit {
	best := make(map[string]float64)
	order := make([]string, 0)
	for _, set := range resultSets {
		for _, hit := range set {
			if cur, ok := best[hit.AgentID]; !ok || hit.Score > cur {
				if !ok {
					order = append(order, hit.AgentID)
				}
				best[hit.AgentID] = hit.Score
			}
		}
	}

	merged := make([]ScoredHit, len(order))
	for i, id := range order {
		merged[i] = ScoredHit{AgentID: id, Score: best[id]}
	}
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Score > merged[j].Score
	})

	if limit > 0 && len(merged) > limit {
		merged = merged[:limit]
	}
	return merged
}
