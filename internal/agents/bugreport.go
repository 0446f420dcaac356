package agents

import (
	"ai-agents/internal/convo"
	"ai-agents/internal/render"
	"ai-agents/internal/schema"
	"ai-agents/internal/types"
)

// NewBugReportAgent collects a structured bug report over as many turns as
// the user needs, then renders it as Markdown.
func NewBugReportAgent(extractor convo.Extractor, baseURL string, opts convo.Options) *ConversationalAgent {
	card := newCard("bugreport", "Bug Report Agent",
		"Collects structured bug reports through a guided conversation", baseURL,
		[]types.Skill{{
			ID:          "bug-report",
			Name:        "Bug report collection",
			Description: "Turns a free-form problem description into a structured bug report",
			Tags:        []string{"conversation", "structured"},
		}})
	return NewConversationalAgent("bugreport", "Bug Report Agent", card,
		schema.BugReport(), extractor, render.BugReport, opts)
}
