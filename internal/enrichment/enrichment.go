// Package enrichment assembles the agent-detail response from
// heterogeneous sources (chain SDK, IPFS metadata, classification,
// reputation), and fans out background classification jobs for
// unclassified listing results.
package enrichment

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/erc8004/agent-gateway/internal/apierror"
	"github.com/erc8004/agent-gateway/internal/chainsdk"
	"github.com/erc8004/agent-gateway/internal/circuitbreaker"
	"github.com/erc8004/agent-gateway/internal/ipfsgw"
	"github.com/erc8004/agent-gateway/internal/model"
	"github.com/erc8004/agent-gateway/internal/queue"
	"github.com/erc8004/agent-gateway/internal/repository"
)

// maxBackgroundClassifications bounds how many unclassified agents a
// single listing response fans out to the classification queue.
const maxBackgroundClassifications = 10

// ClassificationLookup abstracts the classification repository.
type ClassificationLookup interface {
	GetByAgentID(ctx context.Context, agentID string) (*model.Classification, error)
	ExistsForAgents(ctx context.Context, agentIDs []string) (map[string]bool, error)
}

// ReputationLookup abstracts the reputation repository.
type ReputationLookup interface {
	GetByAgentID(ctx context.Context, agentID string) (*model.Reputation, error)
}

// Detail is the assembled agent-detail response: an AgentSummary plus
// the fields only a single-record fetch can populate.
type Detail struct {
	model.AgentSummary
	MetadataURI string   `json:"metadataUri,omitempty"`
	InputModes  []string `json:"inputModes,omitempty"`
	OutputModes []string `json:"outputModes,omitempty"`
}

// Service assembles Detail views and runs the background
// classification fan-out.
type Service struct {
	Registry       chainsdk.Registry
	IPFS           *ipfsgw.Client
	Classification ClassificationLookup
	Reputation     ReputationLookup
	Publisher      queue.Publisher
	ChainBreaker   *circuitbreaker.Breaker
}

// GetAgentDetail fetches the SDK record, then fetches IPFS metadata,
// classification, and reputation concurrently. Any of the three
// concurrent fetches may fail or come back empty without failing the
// overall response — each degrades independently. Only the initial
// SDK lookup is fatal, since without it there is no record to enrich.
func (s *Service) GetAgentDetail(ctx context.Context, chainID int64, tokenID string) (*Detail, error) {
	record, err := circuitbreaker.Do(s.ChainBreaker, ctx, func(ctx context.Context) (*chainsdk.AgentDetail, error) {
		a, err := s.Registry.GetAgent(ctx, chainID, tokenID)
		if err == chainsdk.ErrNotFound {
			return nil, nil
		}
		return a, err
	})
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, apierror.NotFound("agent", fmt.Sprintf("%d:%s", chainID, tokenID))
	}

	detail := Detail{
		AgentSummary: record.Summary,
		MetadataURI:  record.MetadataURI,
		InputModes:   record.InputModes,
		OutputModes:  record.OutputModes,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if record.MetadataURI == "" || s.IPFS == nil {
			return nil
		}
		meta := s.IPFS.FetchMetadataBestEffort(gctx, detail.ID, record.MetadataURI)
		if meta == nil {
			return nil
		}
		if meta.Image != "" {
			detail.Image = meta.Image
		}
		if meta.Description != "" {
			detail.Description = meta.Description
		}
		return nil
	})

	g.Go(func() error {
		if s.Classification == nil {
			return nil
		}
		c, err := s.Classification.GetByAgentID(gctx, detail.ID)
		if err != nil {
			if err == repository.ErrNotFound {
				return nil
			}
			// A repository error still degrades the response rather
			// than failing it; only the primary SDK lookup is fatal.
			return nil
		}
		detail.OASF = classificationToOASF(c)
		detail.OASFSource = model.OASFSourceLLM
		return nil
	})

	g.Go(func() error {
		if s.Reputation == nil {
			return nil
		}
		rep, err := s.Reputation.GetByAgentID(gctx, detail.ID)
		if err != nil {
			return nil
		}
		score := rep.AverageScore
		detail.ReputationScore = &score
		return nil
	})

	// errgroup.Group.Wait's error is always nil here since every Go
	// func above swallows its own error; kept for the idiom in case a
	// future branch needs to propagate one.
	_ = g.Wait()

	return &detail, nil
}

func classificationToOASF(c *model.Classification) *model.OASF {
	skills := make([]model.SkillScore, len(c.Skills))
	for i, item := range c.Skills {
		skills[i] = model.SkillScore{Slug: item.Slug, Confidence: item.Confidence}
	}
	domains := make([]model.DomainScore, len(c.Domains))
	for i, item := range c.Domains {
		domains[i] = model.DomainScore{Slug: item.Slug, Confidence: item.Confidence}
	}
	return &model.OASF{
		Skills:       skills,
		Domains:      domains,
		Confidence:   c.Confidence,
		ModelVersion: c.ModelVersion,
		ClassifiedAt: c.ClassifiedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}

// EnqueueUnclassified hands up to maxBackgroundClassifications
// unclassified agent ids from a listing response to the classification
// queue, best-effort and not awaited by the caller.
func (s *Service) EnqueueUnclassified(ctx context.Context, summaries []model.AgentSummary) {
	if s.Classification == nil || s.Publisher == nil {
		return
	}

	candidates := make([]model.AgentSummary, 0, len(summaries))
	for _, a := range summaries {
		if a.OASFSource == model.OASFSourceNone {
			candidates = append(candidates, a)
		}
	}
	if len(candidates) == 0 {
		return
	}

	ids := make([]string, len(candidates))
	for i, a := range candidates {
		ids[i] = a.ID
	}
	existing, err := s.Classification.ExistsForAgents(ctx, ids)
	if err != nil {
		return
	}

	sent := 0
	for _, a := range candidates {
		if sent >= maxBackgroundClassifications {
			break
		}
		if existing[a.ID] {
			continue
		}
		queue.EnqueueBestEffort(ctx, s.Publisher, queue.ClassificationJobMessage{
			AgentID:     a.ID,
			Name:        a.Name,
			Description: a.Description,
			Reason:      "unclassified",
		})
		sent++
	}
}
