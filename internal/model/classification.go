package model

import "time"

// ClassificationItem is one {slug, confidence, reasoning?} entry.
type ClassificationItem struct {
	Slug       string  `json:"slug"`
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning,omitempty"`
}

// Classification is the persisted per-agent classification record.
// Invariant: Confidence equals the mean of per-item confidences across
// Skills and Domains combined, rounded to 2 decimals.
type Classification struct {
	AgentID      string                `json:"agentId"`
	Skills       []ClassificationItem  `json:"skills"`
	Domains      []ClassificationItem  `json:"domains"`
	Confidence   float64               `json:"confidence"`
	ModelVersion string                `json:"modelVersion"`
	ClassifiedAt time.Time             `json:"classifiedAt"`
	UpdatedAt    time.Time             `json:"updatedAt"`
}

// MeanConfidence computes the overall confidence as the mean of every
// skill+domain item's confidence, rounded to 2 decimals.
func MeanConfidence(skills, domains []ClassificationItem) float64 {
	sum := 0.0
	n := 0
	for _, s := range skills {
		sum += s.Confidence
		n++
	}
	for _, d := range domains {
		sum += d.Confidence
		n++
	}
	if n == 0 {
		return 0
	}
	return round2(sum / float64(n))
}

func round2(f float64) float64 {
	return float64(int(f*100+0.5)) / 100
}

// JobStatus enumerates the classification queue job lifecycle.
type JobStatus string

const (
	JobPending    JobStatus = "pending"
	JobProcessing JobStatus = "processing"
	JobCompleted  JobStatus = "completed"
	JobFailed     JobStatus = "failed"
)

// ClassificationJob is a persisted queue row. At most one job per agent
// may be pending/processing at a time (the "active" job).
type ClassificationJob struct {
	ID          string    `json:"id"`
	AgentID     string    `json:"agentId"`
	Status      JobStatus `json:"status"`
	Attempts    int       `json:"attempts"`
	Error       string    `json:"error,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	ProcessedAt *time.Time `json:"processedAt,omitempty"`
}

func (j ClassificationJob) Active() bool {
	return j.Status == JobPending || j.Status == JobProcessing
}
