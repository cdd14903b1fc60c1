package mcp

import (
	"fmt"
	"strings"
)

// Prompt describes one prompt template for prompts/list.
type Prompt struct {
	Name        string           `json:"name"`
	Description string           `json:"description"`
	Arguments   []PromptArgument `json:"arguments"`
}

// PromptArgument is a single named input a prompt template accepts.
type PromptArgument struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Required    bool   `json:"required"`
}

func (s *Service) prompts() []Prompt {
	return []Prompt{
		{
			Name:        "explain-agent",
			Description: "Explain what a single registered agent does, in plain language, from its classification and reputation.",
			Arguments: []PromptArgument{
				{Name: "agentId", Description: "The chainId:tokenId identifier of the agent to explain.", Required: true},
			},
		},
		{
			Name:        "compare-agents",
			Description: "Compare two or more registered agents side by side on capabilities, skills, and reputation.",
			Arguments: []PromptArgument{
				{Name: "agentIds", Description: "Comma-separated chainId:tokenId identifiers to compare.", Required: true},
			},
		},
	}
}

type promptMessage struct {
	Role    string `json:"role"`
	Content struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

type promptResult struct {
	Description string          `json:"description"`
	Messages    []promptMessage `json:"messages"`
}

type promptGetParams struct {
	Name      string            `json:"name"`
	Arguments map[string]string `json:"arguments"`
}

func (s *Service) getPrompt(params promptGetParams) (promptResult, *RPCError) {
	switch params.Name {
	case "explain-agent":
		agentID := params.Arguments["agentId"]
		if agentID == "" {
			return promptResult{}, &RPCError{Code: CodeInvalidParams, Message: "agentId is required"}
		}
		return promptResult{
			Description: fmt.Sprintf("Explain agent %s", agentID),
			Messages:    []promptMessage{userMessage(fmt.Sprintf("Using the get_agent tool, fetch agent %s and explain in plain language what it does, which skills and domains it's classified under, and how trustworthy its reputation score makes it look.", agentID))},
		}, nil
	case "compare-agents":
		raw := params.Arguments["agentIds"]
		ids := splitCSV(raw)
		if len(ids) < 2 {
			return promptResult{}, &RPCError{Code: CodeInvalidParams, Message: "agentIds must contain at least two comma-separated ids"}
		}
		return promptResult{
			Description: fmt.Sprintf("Compare agents %s", strings.Join(ids, ", ")),
			Messages:    []promptMessage{userMessage(fmt.Sprintf("Using the get_agent tool, fetch each of %s and compare them side by side on capabilities, classified skills/domains, and reputation score.", strings.Join(ids, ", ")))},
		}, nil
	default:
		return promptResult{}, &RPCError{Code: CodeInvalidParams, Message: fmt.Sprintf("no such prompt %q", params.Name)}
	}
}

func userMessage(text string) promptMessage {
	m := promptMessage{Role: "user"}
	m.Content.Type = "text"
	m.Content.Text = text
	return m
}

func splitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
