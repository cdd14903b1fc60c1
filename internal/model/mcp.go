package model

import "time"

// MCPSession is cache-resident with a 1-hour TTL.
type MCPSession struct {
	SessionID       string    `json:"sessionId"`
	ProtocolVersion string    `json:"protocolVersion"`
	ClientInfo      map[string]any `json:"clientInfo,omitempty"`
	ServerInfo      map[string]any `json:"serverInfo"`
	Initialized     bool      `json:"initialized"`
	CreatedAt       time.Time `json:"createdAt"`
	LastActivityAt  time.Time `json:"lastActivityAt"`
}

// MCPSessionTTL is the fixed sliding window an MCP session survives
// without activity before the cache evicts it.
const MCPSessionTTL = time.Hour

// SupportedMCPProtocolVersions is the closed set of protocol versions
// initialize will negotiate.
var SupportedMCPProtocolVersions = []string{
	"2024-11-05",
	"2025-03-26",
	"2025-06-18",
	"2025-11-25",
}

// ChainStat backs the chain_stats MCP resource and /agents/chains/stats route.
type ChainStat struct {
	ChainID      int64     `json:"chainId"`
	TotalAgents  int       `json:"totalAgents"`
	ActiveAgents int       `json:"activeAgents"`
	LastBlock    uint64    `json:"lastBlock"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// SyncState tracks the relational mirror's sync cursor per chain.
type SyncState struct {
	ChainID         int64     `json:"chainId"`
	LastSyncedBlock uint64    `json:"lastSyncedBlock"`
	LastSyncedAt    time.Time `json:"lastSyncedAt"`
}
