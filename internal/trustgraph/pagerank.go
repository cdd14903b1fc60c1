package trustgraph

const (
	damping       = 0.85
	epsilon       = 1e-4
	maxIterations = 100
)

// pageRankResult is one agent's converged score plus the bookkeeping
// persisted alongside it.
type pageRankResult struct {
	AgentID     string
	RawPageRank float64
	InDegree    int
	Iterations  int
}

// runPageRank seeds agent scores at 1/n and wallet scores at 1.0, and
// each round redistributes
// wallet score across its outgoing edges weighted by edge weight,
// normalized by the wallet's out-degree. Iteration stops at convergence
// (max delta < epsilon) or the iteration cap, whichever comes first.
func runPageRank(edges []graphEdge) []pageRankResult {
	agentIndex := map[string]int{}
	var agents []string
	walletOutDegree := map[string]int{}
	inDegree := map[string]int{}

	for _, e := range edges {
		if _, ok := agentIndex[e.ToAgentID]; !ok {
			agentIndex[e.ToAgentID] = len(agents)
			agents = append(agents, e.ToAgentID)
		}
		walletOutDegree[e.FromWallet]++
		inDegree[e.ToAgentID]++
	}

	n := len(agents)
	if n == 0 {
		return nil
	}

	scores := make([]float64, n)
	for i := range scores {
		scores[i] = 1.0 / float64(n)
	}
	walletScore := map[string]float64{}
	for w := range walletOutDegree {
		walletScore[w] = 1.0
	}

	iteration := 0
	for ; iteration < maxIterations; iteration++ {
		next := make([]float64, n)
		base := (1 - damping) / float64(n)
		for i := range next {
			next[i] = base
		}

		for _, e := range edges {
			degree := walletOutDegree[e.FromWallet]
			if degree == 0 {
				continue
			}
			idx := agentIndex[e.ToAgentID]
			next[idx] += damping * (walletScore[e.FromWallet] * e.Weight / float64(degree))
		}

		maxDelta := 0.0
		for i := range next {
			delta := next[i] - scores[i]
			if delta < 0 {
				delta = -delta
			}
			if delta > maxDelta {
				maxDelta = delta
			}
		}
		scores = next
		if maxDelta < epsilon {
			iteration++
			break
		}
	}

	results := make([]pageRankResult, n)
	for i, agentID := range agents {
		results[i] = pageRankResult{
			AgentID:     agentID,
			RawPageRank: scores[i],
			InDegree:    inDegree[agentID],
			Iterations:  iteration,
		}
	}
	return results
}

// normalizedScore converts a raw PageRank score to the persisted
// trustScore: score / max(scores) * 100, zero when every score is
// zero.
func normalizedScore(raw, max float64) float64 {
	if max <= 0 {
		return 0
	}
	return raw / max * 100
}
