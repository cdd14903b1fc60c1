package search

import (
	"fmt"

	"github.com/erc8004/agent-gateway/internal/model"
	"github.com/erc8004/agent-gateway/internal/vectorindex"
)

// payloadToSummary assembles an AgentSummary from a vector-index hit's
// payload without any detail fetch. OASF is promoted from the enriched
// `skills_with_confidence` shape when present, falling back to bare
// slug lists at confidence=1.
func payloadToSummary(hit vectorindex.Hit) model.AgentSummary {
	p := hit.Payload

	s := model.AgentSummary{
		ID:          fmt.Sprintf("%v:%v", p["chain_id"], p["token_id"]),
		ChainID:     toInt64(p["chain_id"]),
		TokenID:     toString(p["token_id"]),
		Name:        toString(p["name"]),
		Description: toString(p["description"]),
		Image:       toString(p["image"]),
		Active:      toBool(p["active"]),
		HasMCP:      toBool(p["mcp"]),
		HasA2A:      toBool(p["a2a"]),
		X402Support: toBool(p["x402"]),
		Owner:       toString(p["owner"]),
		Operators:   toStringSlice(p["operators"]),
		ENS:         toString(p["ens"]),
		DID:         toString(p["did"]),
		WalletAddress: toString(p["wallet_address"]),
	}

	trusts := toStringSlice(p["supported_trusts"])
	if len(trusts) > 0 {
		s.SupportedTrust = map[model.TrustModel]bool{}
		for _, t := range trusts {
			s.SupportedTrust[model.TrustModel(t)] = true
		}
	}

	s.OASF, s.OASFSource = oasfFromPayload(p)

	if hit.Scored {
		score := hit.Score
		s.SearchScore = &score
		s.MatchReasons = toStringSlice(p["match_reasons"])
	}

	return s
}

func oasfFromPayload(p map[string]any) (*model.OASF, model.OASFSource) {
	if enriched, ok := p["skills_with_confidence"]; ok {
		skills := scoredSlugsFromEnriched(enriched)
		domains := scoredSlugsFromEnriched(p["domains_with_confidence"])
		return &model.OASF{
			Skills:       toSkillScores(skills),
			Domains:      toDomainScores(domains),
			Confidence:   toFloat64(p["oasf_confidence"]),
			ModelVersion: toString(p["oasf_model_version"]),
		}, model.OASFSourceLLM
	}

	slugSkills := toStringSlice(p["skills"])
	slugDomains := toStringSlice(p["domains"])
	if len(slugSkills) == 0 && len(slugDomains) == 0 {
		return nil, model.OASFSourceNone
	}

	var skills []model.SkillScore
	for _, s := range slugSkills {
		skills = append(skills, model.SkillScore{Slug: s, Confidence: 1})
	}
	var domains []model.DomainScore
	for _, d := range slugDomains {
		domains = append(domains, model.DomainScore{Slug: d, Confidence: 1})
	}
	return &model.OASF{Skills: skills, Domains: domains, Confidence: 1}, model.OASFSourceIPFS
}

type scoredSlug struct {
	Slug       string
	Confidence float64
}

func scoredSlugsFromEnriched(raw any) []scoredSlug {
	list, ok := raw.([]any)
	if !ok {
		return nil
	}
	out := make([]scoredSlug, 0, len(list))
	for _, item := range list {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		out = append(out, scoredSlug{Slug: toString(m["slug"]), Confidence: toFloat64(m["confidence"])})
	}
	return out
}

func toSkillScores(slugs []scoredSlug) []model.SkillScore {
	out := make([]model.SkillScore, len(slugs))
	for i, s := range slugs {
		out[i] = model.SkillScore{Slug: s.Slug, Confidence: s.Confidence}
	}
	return out
}

func toDomainScores(slugs []scoredSlug) []model.DomainScore {
	out := make([]model.DomainScore, len(slugs))
	for i, s := range slugs {
		out[i] = model.DomainScore{Slug: s.Slug, Confidence: s.Confidence}
	}
	return out
}

func toString(v any) string {
	s, _ := v.(string)
	return s
}

func toBool(v any) bool {
	b, _ := v.(bool)
	return b
}

func toInt64(v any) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case int:
		return int64(n)
	case float64:
		return int64(n)
	default:
		return 0
	}
}

func toFloat64(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	case int64:
		return float64(n)
	default:
		return 0
	}
}

func toStringSlice(v any) []string {
	switch s := v.(type) {
	case []string:
		return s
	case []any:
		out := make([]string, 0, len(s))
		for _, item := range s {
			if str, ok := item.(string); ok {
				out = append(out, str)
			}
		}
		return out
	default:
		return nil
	}
}
