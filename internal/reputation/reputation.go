// Package reputation aggregates feedback into the one-row-per-agent
// reputation record.
package reputation

import (
	"context"
	"fmt"
	"time"

	"github.com/erc8004/agent-gateway/internal/model"
	"github.com/erc8004/agent-gateway/internal/repository"
)

// FeedbackStore abstracts the feedback repository.
type FeedbackStore interface {
	Insert(ctx context.Context, f model.Feedback) (string, error)
	ExistsByEASUID(ctx context.Context, easUID string) (bool, error)
	ScoresForAgent(ctx context.Context, agentID string) ([]int, error)
	ListByAgent(ctx context.Context, agentID string, limit, offset int) ([]model.Feedback, error)
}

// ReputationStore abstracts the reputation repository.
type ReputationStore interface {
	Upsert(ctx context.Context, rep model.Reputation) error
	GetByAgentID(ctx context.Context, agentID string) (*model.Reputation, error)
}

// Service aggregates feedback into reputation records and exposes the
// reputation lookup the search engine's post-filter needs.
type Service struct {
	Feedback   FeedbackStore
	Reputation ReputationStore
	Now        func() time.Time
}

func New(feedback FeedbackStore, rep ReputationStore) *Service {
	return &Service{Feedback: feedback, Reputation: rep, Now: time.Now}
}

// AddFeedback inserts a feedback row and recalculates the agent's
// reputation, returning the new feedback id. Deduplication against an
// EAS attestation uid is the caller's responsibility via
// FeedbackExistsByEASUID — this method does not dedup on its own.
func (s *Service) AddFeedback(ctx context.Context, f model.Feedback) (string, error) {
	if f.SubmittedAt.IsZero() {
		f.SubmittedAt = s.Now()
	}
	id, err := s.Feedback.Insert(ctx, f)
	if err != nil {
		return "", fmt.Errorf("reputation.AddFeedback: %w", err)
	}
	if err := s.RecalculateReputation(ctx, f.AgentID); err != nil {
		return "", fmt.Errorf("reputation.AddFeedback: recalculate: %w", err)
	}
	return id, nil
}

// FeedbackExistsByEASUID is the caller-side dedup check run before
// mirroring an on-chain attestation into feedback: the ingestion path
// checks this first.
func (s *Service) FeedbackExistsByEASUID(ctx context.Context, easUID string) (bool, error) {
	return s.Feedback.ExistsByEASUID(ctx, easUID)
}

// RecalculateReputation reads every feedback score for an agent,
// computes the count/mean/bucket aggregate, and upserts it.
func (s *Service) RecalculateReputation(ctx context.Context, agentID string) error {
	scores, err := s.Feedback.ScoresForAgent(ctx, agentID)
	if err != nil {
		return fmt.Errorf("reputation.RecalculateReputation: %w", err)
	}

	rep := model.Reputation{
		AgentID:          agentID,
		FeedbackCount:    len(scores),
		LastCalculatedAt: s.Now(),
	}
	if len(scores) > 0 {
		sum := 0
		for _, sc := range scores {
			sum += sc
			switch model.Bucket(sc) {
			case "low":
				rep.LowCount++
			case "medium":
				rep.MediumCount++
			case "high":
				rep.HighCount++
			}
		}
		rep.AverageScore = round2(float64(sum) / float64(len(scores)))
	}

	if err := s.Reputation.Upsert(ctx, rep); err != nil {
		return fmt.Errorf("reputation.RecalculateReputation: upsert: %w", err)
	}
	return nil
}

// ListFeedback returns the raw feedback rows for an agent, most recent
// first, for the reputation/feedback detail surface.
func (s *Service) ListFeedback(ctx context.Context, agentID string, limit, offset int) ([]model.Feedback, error) {
	return s.Feedback.ListByAgent(ctx, agentID, limit, offset)
}

// ReputationScore implements search.ReputationLookup: it returns the
// agent's average score, or nil when no reputation record exists yet.
func (s *Service) ReputationScore(ctx context.Context, agentID string) (*float64, error) {
	rep, err := s.Reputation.GetByAgentID(ctx, agentID)
	if err != nil {
		if err == repository.ErrNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &rep.AverageScore, nil
}

// GetReputation returns the full aggregate record for an agent, or nil
// when no feedback has been recorded yet.
func (s *Service) GetReputation(ctx context.Context, agentID string) (*model.Reputation, error) {
	rep, err := s.Reputation.GetByAgentID(ctx, agentID)
	if err != nil {
		if err == repository.ErrNotFound {
			return nil, nil
		}
		return nil, err
	}
	return rep, nil
}

func round2(f float64) float64 {
	return float64(int(f*100+0.5)) / 100
}
