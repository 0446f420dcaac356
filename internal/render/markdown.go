// Package render turns completed records into human-readable Markdown.
// It only ever receives fully-validated, fully-defaulted records.
package render

import (
	"fmt"
	"strings"

	"ai-agents/internal/schema"
)

// BugReport renders a completed bug report with one section per field and
// numbered reproduction steps.
func BugReport(rec schema.Record) string {
	var b strings.Builder
	b.WriteString("### Bug Report\n")
	fmt.Fprintf(&b, "- **Project Affected:** %s\n", rec.Text("project_affected"))
	fmt.Fprintf(&b, "- **Error Message:** %s\n", rec.Text("error_message"))
	b.WriteString("- **Steps To Reproduce:**\n")
	for i, step := range rec.List("steps_to_reproduce") {
		fmt.Fprintf(&b, "  %d. %s\n", i+1, step)
	}
	fmt.Fprintf(&b, "- **Severity:** %s", rec.Text("severity"))
	return b.String()
}

// DailyStatus renders a standup update as bulleted sections.
func DailyStatus(rec schema.Record) string {
	var b strings.Builder
	b.WriteString("### Daily Standup Update\n")
	writeSection(&b, "Yesterday", rec.List("yesterday"))
	b.WriteString("\n")
	writeSection(&b, "Today", rec.List("today"))
	b.WriteString("\n")
	writeSection(&b, "Blockers", rec.List("blockers"))
	return b.String()
}

func writeSection(b *strings.Builder, title string, items []string) {
	fmt.Fprintf(b, "- **%s:**\n", title)
	lines := make([]string, 0, len(items))
	for _, item := range items {
		lines = append(lines, "  - "+item)
	}
	b.WriteString(strings.Join(lines, "\n"))
}
