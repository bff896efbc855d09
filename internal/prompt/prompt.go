// Package prompt builds the fixed instructions that pin the model to the
// task list output contract.
package prompt

import "strings"

const (
	// MinTasks and MaxTasks bound the number of tasks the model is asked for.
	// They are instructions only; the validator does not enforce them.
	MinTasks = 5
	MaxTasks = 12
)

const systemPrompt = `You are an assistant that extracts a concise, prioritized list of actionable tasks from a user story or free-text description.

Return a compact JSON object of the form:
{
  "tasks": [
    { "id": "string", "title": "string", "done": false, "priority": "low|medium|high" }
  ]
}

Rules:
- 5–12 tasks.
- Titles should be short action phrases (imperative), no trailing punctuation.
- Prefer specificity; avoid duplicates.
- Assign reasonable priority based on impact/urgency.
- Always include an 'id' (use a short stable slug).
- Do not include any additional commentary outside JSON.
`

// BuildSystemPrompt returns the system instruction describing the output contract.
// It is deterministic and has no side effects.
func BuildSystemPrompt() string {
	return systemPrompt
}

// BuildUserMessage embeds the story verbatim followed by the JSON-only reminder
func BuildUserMessage(story string) string {
	var b strings.Builder
	b.Grow(len(story) + 40)
	b.WriteString("Story:\n\n")
	b.WriteString(story)
	b.WriteString("\n\nReturn only JSON.")
	return b.String()
}
