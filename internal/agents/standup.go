package agents

import (
	"ai-agents/internal/convo"
	"ai-agents/internal/render"
	"ai-agents/internal/schema"
	"ai-agents/internal/types"
)

// NewStandupAgent formats a daily status update. A complete update finishes
// in one turn; when yesterday or today is missing the agent asks for the
// specific sections instead of erroring out.
func NewStandupAgent(extractor convo.Extractor, baseURL string, opts convo.Options) *ConversationalAgent {
	card := newCard("standup", "Daily Standup Agent",
		"Formats natural-language status updates into standup sections", baseURL,
		[]types.Skill{{
			ID:          "daily-standup",
			Name:        "Standup formatting",
			Description: "Splits a status update into yesterday, today, and blockers",
			Tags:        []string{"conversation", "structured"},
		}})
	return NewConversationalAgent("standup", "Daily Standup Agent", card,
		schema.DailyStatus(), extractor, render.DailyStatus, opts)
}
