// Package model defines the data shapes shared across the gateway:
// the agent identifier, the assembled AgentSummary response, and the
// persisted records that back classification, feedback, reputation,
// and trust.
package model

import (
	"fmt"
	"strconv"
	"strings"
)

// SupportedChainIDs is the closed set of chain ids the gateway accepts.
var SupportedChainIDs = map[int64]bool{
	1:        true,
	56:       true,
	137:      true,
	143:      true,
	8453:     true,
	97:       true,
	10143:    true,
	11155111: true,
	84532:    true,
}

// TrustModel enumerates the supported_trusts vocabulary.
type TrustModel string

const (
	TrustModelX402 TrustModel = "x402"
	TrustModelEAS  TrustModel = "eas"
)

// AgentID is the composite "chainId:tokenId" identifier. tokenId is carried
// as a string to survive values beyond float64/int53 precision in JSON.
type AgentID struct {
	ChainID int64
	TokenID string
}

// String renders the canonical "chainId:tokenId" form.
func (id AgentID) String() string {
	return fmt.Sprintf("%d:%s", id.ChainID, id.TokenID)
}

// ParseAgentID parses "chainId:tokenId", validating the chain id against
// the closed set and the token id against the closed pattern, <= 2^53-1 bound.
func ParseAgentID(s string) (AgentID, error) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return AgentID{}, fmt.Errorf("model.ParseAgentID: %q is not chainId:tokenId", s)
	}
	chainID, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return AgentID{}, fmt.Errorf("model.ParseAgentID: invalid chainId: %w", err)
	}
	if !SupportedChainIDs[chainID] {
		return AgentID{}, fmt.Errorf("model.ParseAgentID: unsupported chainId %d", chainID)
	}
	tokenID := parts[1]
	if tokenID == "" {
		return AgentID{}, fmt.Errorf("model.ParseAgentID: empty tokenId")
	}
	for _, r := range tokenID {
		if r < '0' || r > '9' {
			return AgentID{}, fmt.Errorf("model.ParseAgentID: tokenId must be numeric")
		}
	}
	n, err := strconv.ParseUint(tokenID, 10, 64)
	if err != nil || n > (1<<53)-1 {
		return AgentID{}, fmt.Errorf("model.ParseAgentID: tokenId exceeds 2^53-1")
	}
	return AgentID{ChainID: chainID, TokenID: tokenID}, nil
}

// OASFSource records where a summary's classification came from.
type OASFSource string

const (
	OASFSourceLLM      OASFSource = "llm-classification"
	OASFSourceIPFS     OASFSource = "ipfs-declared"
	OASFSourceNone     OASFSource = "none"
)

// SkillScore and DomainScore are {slug, confidence} pairs.
type SkillScore struct {
	Slug       string  `json:"slug"`
	Confidence float64 `json:"confidence"`
}

type DomainScore struct {
	Slug       string  `json:"slug"`
	Confidence float64 `json:"confidence"`
}

// OASF is the classification payload attached to an AgentSummary.
type OASF struct {
	Skills       []SkillScore `json:"skills"`
	Domains      []DomainScore `json:"domains"`
	Confidence   float64      `json:"confidence"`
	ClassifiedAt string       `json:"classifiedAt"`
	ModelVersion string       `json:"modelVersion"`
}

// AgentSummary is the response shape assembled per request; it is never
// persisted as-is.
type AgentSummary struct {
	ID          string `json:"id"`
	ChainID     int64  `json:"chainId"`
	TokenID     string `json:"tokenId"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Image       string `json:"image,omitempty"`

	Active         bool              `json:"active"`
	HasMCP         bool              `json:"hasMcp"`
	HasA2A         bool              `json:"hasA2a"`
	X402Support    bool              `json:"x402Support"`
	SupportedTrust map[TrustModel]bool `json:"supportedTrust"`

	Owner         string   `json:"owner"`
	Operators     []string `json:"operators"`
	ENS           string   `json:"ens,omitempty"`
	DID           string   `json:"did,omitempty"`
	WalletAddress string   `json:"walletAddress,omitempty"`

	OASF       *OASF      `json:"oasf,omitempty"`
	OASFSource OASFSource `json:"oasfSource"`

	SearchScore   *float64 `json:"searchScore,omitempty"`
	MatchReasons  []string `json:"matchReasons,omitempty"`

	ReputationScore *float64 `json:"reputationScore,omitempty"`
}

// SupportedTrustSlice renders the capability set as a sorted slice for
// stable JSON/cache-key output.
func (a AgentSummary) SupportedTrustSlice() []string {
	var out []string
	if a.SupportedTrust[TrustModelX402] {
		out = append(out, string(TrustModelX402))
	}
	if a.SupportedTrust[TrustModelEAS] {
		out = append(out, string(TrustModelEAS))
	}
	return out
}
