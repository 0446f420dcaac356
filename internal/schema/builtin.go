package schema

// BugReport is the record collected by the bug report agent.
func BugReport() Schema {
	return Schema{
		Name:        "bug_report",
		Description: "A structured bug report collected from a user conversation",
		Fields: []Field{
			{
				Name:        "project_affected",
				Type:        FieldText,
				Required:    true,
				Description: "Name of the affected project or component.",
				Prompt:      "What project or component is affected?",
			},
			{
				Name:        "error_message",
				Type:        FieldText,
				Required:    true,
				Description: "Error message or description of the problem.",
				Prompt:      "What is the error message or problem?",
			},
			{
				Name:        "steps_to_reproduce",
				Type:        FieldList,
				Required:    true,
				Description: "List of steps to reproduce the issue.",
				Prompt:      "List the steps to reproduce the issue.",
			},
			{
				Name:        "severity",
				Type:        FieldEnum,
				Required:    false,
				Description: "Severity of the bug.",
				Prompt:      "What is the severity? (Low, Medium, High)",
				Values:      []string{"Low", "Medium", "High"},
				Default:     "Medium",
			},
		},
	}
}

// DailyStatus is the record collected by the standup agent.
func DailyStatus() Schema {
	return Schema{
		Name:        "daily_status",
		Description: "A daily standup update split into yesterday, today, and blockers",
		Fields: []Field{
			{
				Name:        "yesterday",
				Type:        FieldList,
				Required:    true,
				Description: "What was accomplished yesterday, one item per entry.",
				Prompt:      "What did you work on yesterday?",
			},
			{
				Name:        "today",
				Type:        FieldList,
				Required:    true,
				Description: "What is planned for today, one item per entry.",
				Prompt:      "What are you working on today?",
			},
			{
				Name:        "blockers",
				Type:        FieldList,
				Required:    false,
				Description: "Anything blocking progress.",
				Prompt:      "Do you have any blockers?",
				Default:     []string{"No blockers"},
			},
		},
	}
}
