package render

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"ai-agents/internal/schema"
)

func TestBugReport(t *testing.T) {
	out := BugReport(schema.Record{
		"project_affected":   "Checkout",
		"error_message":      "500 on submit",
		"steps_to_reproduce": []string{"open cart", "press submit"},
		"severity":           "Medium",
	})

	assert.Contains(t, out, "### Bug Report")
	assert.Contains(t, out, "- **Project Affected:** Checkout")
	assert.Contains(t, out, "  1. open cart")
	assert.Contains(t, out, "  2. press submit")
	assert.Contains(t, out, "- **Severity:** Medium")
}

func TestDailyStatus(t *testing.T) {
	out := DailyStatus(schema.Record{
		"yesterday": []string{"Shipped login", "Fixed flaky test"},
		"today":     []string{"Code review"},
		"blockers":  []string{"No blockers"},
	})

	assert.Contains(t, out, "### Daily Standup Update")
	assert.Contains(t, out, "- **Yesterday:**\n  - Shipped login\n  - Fixed flaky test")
	assert.Contains(t, out, "- **Today:**\n  - Code review")
	assert.Contains(t, out, "- **Blockers:**\n  - No blockers")
}
