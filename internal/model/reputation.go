package model

import "time"

// Feedback is an append-only, 0-100 integer score submitted for an agent.
type Feedback struct {
	ID          string    `json:"id"`
	AgentID     string    `json:"agentId"`
	ChainID     int64     `json:"chainId"`
	Score       int       `json:"score"`
	Tags        []string  `json:"tags"`
	Context     string    `json:"context,omitempty"`
	FeedbackURI string    `json:"feedbackUri,omitempty"`
	Submitter   string    `json:"submitter"`
	EASUID      string    `json:"easUid,omitempty"`
	SubmittedAt time.Time `json:"submittedAt"`
}

// NormalizeFiveScale maps a 1-5 attestation scale to the 0-100 scale:
// 1->0, 2->25, 3->50, 4->75, 5->100.
func NormalizeFiveScale(fivePoint int) int {
	switch fivePoint {
	case 1:
		return 0
	case 2:
		return 25
	case 3:
		return 50
	case 4:
		return 75
	case 5:
		return 100
	default:
		return 0
	}
}

// Reputation is the one-per-agent aggregate.
// Invariant: LowCount+MediumCount+HighCount == FeedbackCount.
type Reputation struct {
	AgentID          string    `json:"agentId"`
	FeedbackCount    int       `json:"feedbackCount"`
	AverageScore     float64   `json:"averageScore"`
	LowCount         int       `json:"lowCount"`
	MediumCount      int       `json:"mediumCount"`
	HighCount        int       `json:"highCount"`
	LastCalculatedAt time.Time `json:"lastCalculatedAt"`
}

// Bucket classifies a 0-100 score into low (0-33), medium (34-66),
// high (67-100).
func Bucket(score int) string {
	switch {
	case score <= 33:
		return "low"
	case score <= 66:
		return "medium"
	default:
		return "high"
	}
}

// TrustEdgeWeight converts a 1-5 scale feedback score into the
// [0.2, 1.0] edge weight used by the trust graph:
// weight = 0.2 + ((s-1)/4)*0.8
func TrustEdgeWeight(fivePointScore int) float64 {
	return 0.2 + (float64(fivePointScore-1)/4.0)*0.8
}

// TrustEdge is a (fromWallet, toAgentId) edge with max-merge weight.
type TrustEdge struct {
	FromWallet string  `json:"fromWallet"`
	ToAgentID  string  `json:"toAgentId"`
	Weight     float64 `json:"weight"`
	FeedbackID string  `json:"feedbackId"`
}

// TrustScore is the persisted PageRank result for one agent.
type TrustScore struct {
	AgentID      string    `json:"agentId"`
	RawPageRank  float64   `json:"rawPagerank"`
	Score        float64   `json:"trustScore"`
	InDegree     int       `json:"inDegree"`
	Iteration    int       `json:"iteration"`
	ComputedAt   time.Time `json:"computedAt"`
}

// TrustGraphStatus is the single-writer PageRank rebuild state machine.
type TrustGraphStatus string

const (
	TrustGraphIdle      TrustGraphStatus = "idle"
	TrustGraphComputing TrustGraphStatus = "computing"
	TrustGraphCompleted TrustGraphStatus = "completed"
	TrustGraphFailed    TrustGraphStatus = "failed"
)
