package mcp

import (
	"encoding/json"
	"net/http"
)

// schemaDocument is the full static catalog the schema.json endpoint
// serves, so clients can discover tools/resources/prompts without
// first negotiating a session.
type schemaDocument struct {
	Name      string     `json:"name"`
	Version   string     `json:"version"`
	Tools     []Tool     `json:"tools"`
	Resources []Resource `json:"resources"`
	Prompts   []Prompt   `json:"prompts"`
}

// SchemaHandler serves GET /mcp/schema.json.
func SchemaHandler(s *Service) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		doc := schemaDocument{
			Name:      ServerName,
			Version:   ServerVersion,
			Tools:     s.tools(),
			Resources: s.resources(),
			Prompts:   s.prompts(),
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(doc)
	})
}

const docsPage = `<!DOCTYPE html>
<html>
<head><title>` + ServerName + ` MCP</title></head>
<body>
<h1>` + ServerName + ` MCP server</h1>
<p>JSON-RPC endpoint: <code>POST /mcp</code>. SSE compatibility endpoint: <code>GET /sse</code>.</p>
<p>Supported protocol versions: 2024-11-05, 2025-03-26, 2025-06-18, 2025-11-25.</p>
<p>Tool, resource, and prompt catalog: <a href="/mcp/schema.json">/mcp/schema.json</a>.</p>
</body>
</html>
`

// DocsHandler serves GET /mcp/docs.
func DocsHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(docsPage))
	})
}
