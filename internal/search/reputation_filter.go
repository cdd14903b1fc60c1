package search

// PassesReputationFilter applies the minRep/maxRep bounds after the
// fact: reputation is not indexed in the vector store, so it's applied
// after payload assembly. An agent with no reputation record passes when
// minRep is absent or zero; otherwise it is excluded. minRep > maxRep
// yields empty results without error (the caller still calls this per
// agent; it simply never passes when the bounds are inverted).
func PassesReputationFilter(reputationScore *float64, minRep, maxRep *int) bool {
	if minRep != nil && maxRep != nil && *minRep > *maxRep {
		return false
	}

	if reputationScore == nil {
		return minRep == nil || *minRep == 0
	}

	score := *reputationScore
	if minRep != nil && score < float64(*minRep) {
		return false
	}
	if maxRep != nil && score > float64(*maxRep) {
		return false
	}
	return true
}
