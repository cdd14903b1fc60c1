// Package ipfsgw fetches an agent's registration-file metadata from an
// IPFS HTTP gateway. A fetch failure or timeout degrades the response
// (the field is simply absent) rather than failing the request.
package ipfsgw

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// Metadata is the subset of a registration file's fields the gateway
// promotes into an AgentSummary/AgentDetail.
type Metadata struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Image       string         `json:"image"`
	Skills      []string       `json:"skills"`
	Domains     []string       `json:"domains"`
	InputModes  []string       `json:"inputModes"`
	OutputModes []string       `json:"outputModes"`
	Extra       map[string]any `json:"-"`
}

// Client fetches registration-file metadata over HTTP.
type Client struct {
	httpClient *http.Client
	gatewayURL string
	timeout    time.Duration
}

// New creates a Client. gatewayURL is the base IPFS HTTP gateway (e.g.
// "https://ipfs.io/ipfs/"); timeout bounds every fetch.
func New(gatewayURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		gatewayURL: strings.TrimSuffix(gatewayURL, "/") + "/",
		timeout:    timeout,
	}
}

// FetchMetadata resolves metadataURI (an "ipfs://CID" or bare CID) and
// decodes the registration file. A non-nil error here is always
// recoverable from the caller's point of view — enrichment should log
// and proceed without the metadata.
func (c *Client) FetchMetadata(ctx context.Context, metadataURI string) (*Metadata, error) {
	if metadataURI == "" {
		return nil, fmt.Errorf("ipfsgw: empty metadataURI")
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	url := c.resolveURL(metadataURI)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("ipfsgw: build request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ipfsgw: fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ipfsgw: %s returned status %d", url, resp.StatusCode)
	}

	var meta Metadata
	if err := json.NewDecoder(resp.Body).Decode(&meta); err != nil {
		return nil, fmt.Errorf("ipfsgw: decode %s: %w", url, err)
	}
	return &meta, nil
}

// FetchMetadataBestEffort wraps FetchMetadata, logging and returning
// nil instead of an error — the shape enrichment actually calls.
func (c *Client) FetchMetadataBestEffort(ctx context.Context, agentID, metadataURI string) *Metadata {
	meta, err := c.FetchMetadata(ctx, metadataURI)
	if err != nil {
		slog.Warn("ipfsgw: metadata fetch degraded", "agent_id", agentID, "error", err)
		return nil
	}
	return meta
}

func (c *Client) resolveURL(metadataURI string) string {
	cid := strings.TrimPrefix(metadataURI, "ipfs://")
	if strings.HasPrefix(metadataURI, "http://") || strings.HasPrefix(metadataURI, "https://") {
		return metadataURI
	}
	return c.gatewayURL + cid
}
