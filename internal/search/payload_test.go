package search

import (
	"testing"

	"github.com/erc8004/agent-gateway/internal/model"
	"github.com/erc8004/agent-gateway/internal/vectorindex"
)

func TestPayloadToSummary_EnrichedOASF(t *testing.T) {
	hit := vectorindex.Hit{
		ID:     "1:42",
		Scored: true,
		Score:  0.87,
		Payload: map[string]any{
			"chain_id":    int64(1),
			"token_id":    "42",
			"name":        "Agent Forty-Two",
			"description": "does things",
			"active":      true,
			"mcp":         true,
			"skills_with_confidence": []any{
				map[string]any{"slug": "data-analysis", "confidence": 0.92},
			},
			"domains_with_confidence": []any{
				map[string]any{"slug": "finance", "confidence": 0.81},
			},
			"oasf_confidence":    0.86,
			"oasf_model_version": "gpt-classify-v3",
			"match_reasons":      []any{"skill overlap"},
		},
	}

	s := payloadToSummary(hit)

	if s.ID != "1:42" {
		t.Errorf("ID = %q, want 1:42", s.ID)
	}
	if s.OASFSource != model.OASFSourceLLM {
		t.Fatalf("OASFSource = %q, want %q", s.OASFSource, model.OASFSourceLLM)
	}
	if len(s.OASF.Skills) != 1 || s.OASF.Skills[0].Slug != "data-analysis" || s.OASF.Skills[0].Confidence != 0.92 {
		t.Errorf("OASF.Skills = %+v", s.OASF.Skills)
	}
	if len(s.OASF.Domains) != 1 || s.OASF.Domains[0].Slug != "finance" {
		t.Errorf("OASF.Domains = %+v", s.OASF.Domains)
	}
	if s.OASF.ModelVersion != "gpt-classify-v3" {
		t.Errorf("ModelVersion = %q", s.OASF.ModelVersion)
	}
	if s.SearchScore == nil || *s.SearchScore != 0.87 {
		t.Errorf("SearchScore = %v, want 0.87", s.SearchScore)
	}
	if len(s.MatchReasons) != 1 || s.MatchReasons[0] != "skill overlap" {
		t.Errorf("MatchReasons = %+v", s.MatchReasons)
	}
}

func TestPayloadToSummary_BareSlugsDegradeToIPFSSource(t *testing.T) {
	hit := vectorindex.Hit{
		Payload: map[string]any{
			"chain_id": int64(137),
			"token_id": "7",
			"skills":   []any{"trading", "defi"},
			"domains":  []any{"web3"},
		},
	}

	s := payloadToSummary(hit)

	if s.OASFSource != model.OASFSourceIPFS {
		t.Fatalf("OASFSource = %q, want %q", s.OASFSource, model.OASFSourceIPFS)
	}
	if len(s.OASF.Skills) != 2 || s.OASF.Skills[0].Confidence != 1 {
		t.Errorf("OASF.Skills = %+v", s.OASF.Skills)
	}
	if s.SearchScore != nil {
		t.Errorf("SearchScore = %v, want nil for unscored hit", s.SearchScore)
	}
}

func TestPayloadToSummary_NoClassificationAtAll(t *testing.T) {
	hit := vectorindex.Hit{
		Payload: map[string]any{
			"chain_id": int64(1),
			"token_id": "1",
		},
	}

	s := payloadToSummary(hit)

	if s.OASFSource != model.OASFSourceNone {
		t.Fatalf("OASFSource = %q, want %q", s.OASFSource, model.OASFSourceNone)
	}
	if s.OASF != nil {
		t.Errorf("OASF = %+v, want nil", s.OASF)
	}
}

func TestPayloadToSummary_SupportedTrustFromPayload(t *testing.T) {
	hit := vectorindex.Hit{
		Payload: map[string]any{
			"chain_id":         int64(1),
			"token_id":         "1",
			"supported_trusts": []any{"x402", "eas"},
		},
	}

	s := payloadToSummary(hit)

	if !s.SupportedTrust[model.TrustModelX402] || !s.SupportedTrust[model.TrustModelEAS] {
		t.Errorf("SupportedTrust = %+v", s.SupportedTrust)
	}
}

func TestToInt64_HandlesJSONFloat64(t *testing.T) {
	if toInt64(float64(8453)) != 8453 {
		t.Errorf("toInt64(float64) failed")
	}
	if toInt64(int(8453)) != 8453 {
		t.Errorf("toInt64(int) failed")
	}
}

func TestToStringSlice_HandlesBothShapes(t *testing.T) {
	if got := toStringSlice([]string{"a", "b"}); len(got) != 2 {
		t.Errorf("toStringSlice([]string) = %+v", got)
	}
	if got := toStringSlice([]any{"a", "b", 1}); len(got) != 2 {
		t.Errorf("toStringSlice([]any) = %+v, want non-string entries dropped", got)
	}
	if got := toStringSlice(nil); got != nil {
		t.Errorf("toStringSlice(nil) = %+v, want nil", got)
	}
}
