// Package classify models the two LLM-backed external collaborators —
// the embedding provider and the skill/domain classifier — as Go
// interfaces, plus small stub implementations so the enrichment
// pipeline has something to call end-to-end. Each interface is served
// by one implementation; the package has no primary/fallback provider
// switching.
package classify

import (
	"context"
	"strings"
	"time"

	"github.com/erc8004/agent-gateway/internal/model"
)

// Embedder turns text into the fixed-width vector the vector index
// searches over.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// ClassificationResult is what the Classifier returns for one agent.
type ClassificationResult struct {
	Skills     []ScoredSlug
	Domains    []ScoredSlug
	Confidence float64
	Model      string
}

// ScoredSlug is a taxonomy entry with a confidence in [0,1].
type ScoredSlug struct {
	Slug       string
	Confidence float64
	Reasoning  string
}

// AgentContext is the minimal agent-facing data the classifier needs:
// name, description, and any declared registration-file metadata.
type AgentContext struct {
	AgentID     string
	Name        string
	Description string
	Metadata    map[string]any
}

// Classifier assigns OASF skills/domains to an agent. Implementations
// typically wrap a primary provider with a fallback on error.
type Classifier interface {
	Classify(ctx context.Context, agent AgentContext) (ClassificationResult, error)
}

const embeddingDimensions = 1024

// StubEmbedder deterministically hashes text into a fixed-width vector.
// It stands in for the real embedding provider, an external
// collaborator outside this package's scope.
type StubEmbedder struct{}

func NewStubEmbedder() *StubEmbedder { return &StubEmbedder{} }

func (e *StubEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vec := make([]float32, embeddingDimensions)
	if text == "" {
		return vec, nil
	}
	seed := fnv32(text)
	for i := range vec {
		seed = seed*1664525 + 1013904223
		vec[i] = float32(seed%2000-1000) / 1000.0
	}
	return vec, nil
}

func fnv32(s string) uint32 {
	var h uint32 = 2166136261
	for i := 0; i < len(s); i++ {
		h ^= uint32(s[i])
		h *= 16777619
	}
	return h
}

// StubClassifier derives a crude skill guess from the agent's name and
// description by keyword matching against a small taxonomy, falling
// back to "general-purpose" when nothing matches. It assigns no
// domains. It stands in for the real LLM classifier and has a single
// provider (itself); there is no primary/fallback switching.
type StubClassifier struct {
	modelVersion string
	taxonomy     map[string][]string // slug -> keywords
}

// NewStubClassifier builds a classifier over a small fixed taxonomy.
func NewStubClassifier() *StubClassifier {
	return &StubClassifier{
		modelVersion: "stub-keyword-v1",
		taxonomy: map[string][]string{
			"data-analysis":     {"data", "analytics", "analysis"},
			"code-generation":   {"code", "developer", "programming"},
			"customer-support":  {"support", "chat", "assistant"},
			"content-creation":  {"content", "writer", "generation"},
			"trading":           {"trading", "market", "finance"},
			"defi":              {"defi", "swap", "liquidity"},
			"nft":               {"nft", "collectible", "art"},
			"infrastructure":    {"infrastructure", "devops", "deploy"},
		},
	}
}

func (c *StubClassifier) Classify(ctx context.Context, agent AgentContext) (ClassificationResult, error) {
	text := strings.ToLower(agent.Name + " " + agent.Description)

	var skills []ScoredSlug
	for slug, keywords := range c.taxonomy {
		for _, kw := range keywords {
			if strings.Contains(text, kw) {
				skills = append(skills, ScoredSlug{Slug: slug, Confidence: 0.6})
				break
			}
		}
	}
	if len(skills) == 0 {
		skills = []ScoredSlug{{Slug: "general-purpose", Confidence: 0.3}}
	}

	confidence := model.MeanConfidence(toClassificationItems(skills), nil)

	return ClassificationResult{
		Skills:     skills,
		Domains:    nil,
		Confidence: confidence,
		Model:      c.modelVersion,
	}, nil
}

func toClassificationItems(slugs []ScoredSlug) []model.ClassificationItem {
	items := make([]model.ClassificationItem, len(slugs))
	for i, s := range slugs {
		items[i] = model.ClassificationItem{Slug: s.Slug, Confidence: s.Confidence, Reasoning: s.Reasoning}
	}
	return items
}

// WithTimeout wraps an Embedder/Classifier call with a bounded
// deadline, made explicit here since the stub has no real network
// client to impose one on its own.
func WithTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		d = 10 * time.Second
	}
	return context.WithTimeout(ctx, d)
}
