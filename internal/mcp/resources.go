package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/erc8004/agent-gateway/internal/classify"
)

// Resource describes one readable resource for resources/list.
type Resource struct {
	URI         string `json:"uri"`
	Name        string `json:"name"`
	Description string `json:"description"`
	MimeType    string `json:"mimeType"`
}

const (
	uriSkillsTaxonomy  = "8004://taxonomy/skills"
	uriDomainsTaxonomy = "8004://taxonomy/domains"
	uriChainStats      = "8004://chain-stats"
)

func (s *Service) resources() []Resource {
	return []Resource{
		{
			URI:         uriSkillsTaxonomy,
			Name:        "OASF skills taxonomy",
			Description: "The closed set of skill slugs agents are classified against.",
			MimeType:    "application/json",
		},
		{
			URI:         uriDomainsTaxonomy,
			Name:        "OASF domains taxonomy",
			Description: "The closed set of domain slugs agents are classified against.",
			MimeType:    "application/json",
		},
		{
			URI:         uriChainStats,
			Name:        "Chain statistics",
			Description: "Total and active agent counts per supported chain.",
			MimeType:    "application/json",
		},
	}
}

// resourceContents is the single-entry contents array resources/read
// returns.
type resourceContents struct {
	Contents []resourceContent `json:"contents"`
}

type resourceContent struct {
	URI      string `json:"uri"`
	MimeType string `json:"mimeType"`
	Text     string `json:"text"`
}

func (s *Service) readResource(ctx context.Context, uri string) (resourceContents, *RPCError) {
	switch uri {
	case uriSkillsTaxonomy:
		return s.jsonResource(uri, classify.SkillSlugs)
	case uriDomainsTaxonomy:
		return s.jsonResource(uri, classify.DomainSlugs)
	case uriChainStats:
		stats, err := s.Chains.ChainStats(ctx)
		if err != nil {
			return resourceContents{}, &RPCError{Code: CodeInternalError, Message: err.Error()}
		}
		return s.jsonResource(uri, stats)
	default:
		return resourceContents{}, &RPCError{Code: CodeInvalidParams, Message: fmt.Sprintf("no such resource %q", uri)}
	}
}

func (s *Service) jsonResource(uri string, v any) (resourceContents, *RPCError) {
	b, err := json.Marshal(v)
	if err != nil {
		return resourceContents{}, &RPCError{Code: CodeInternalError, Message: err.Error()}
	}
	return resourceContents{Contents: []resourceContent{{URI: uri, MimeType: "application/json", Text: string(b)}}}, nil
}
