package chatbot

import (
	"fmt"
	"html"
	"strings"

	"story-tasker-api/internal/events"
	"story-tasker-api/internal/tasks"
)

// FormatTasks renders a task list as HTML check boxes with priority badges
func FormatTasks(list []tasks.Task) string {
	if len(list) == 0 {
		return "📝 <b>No tasks</b>\n\nThe model did not find anything actionable in your story."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "📝 <b>Your Tasks</b> (%d)\n\n", len(list))
	for _, task := range list {
		box := "⬜️"
		if task.Done {
			box = "✅"
		}
		b.WriteString(box)
		b.WriteString(" ")
		b.WriteString(html.EscapeString(task.Title))
		if task.HasPriority() {
			fmt.Fprintf(&b, " <code>[%s]</code>", task.Priority)
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// FormatFailure renders a generation failure for the chat
func FormatFailure(reason, message string) string {
	switch reason {
	case events.ReasonInvalidInput:
		return "✏️ <b>Empty story</b>\n\nPlease send a story as a text message."
	case events.ReasonInvalidFormat:
		return "🤔 <b>Could not read the model's answer</b>\n\nThe model returned an invalid format. Please try again."
	case events.ReasonEngineFailed:
		return fmt.Sprintf("🔧 <b>Model unavailable</b>\n\n%s\n\nPlease try again in a few moments.", html.EscapeString(message))
	default:
		if message != "" {
			return fmt.Sprintf("⚠️ <b>Something went wrong</b>\n\nError: %s\n\nPlease try again.", html.EscapeString(message))
		}
		return "⚠️ <b>Something went wrong</b>\n\nPlease try again."
	}
}

// FormatProgress renders an engine initialization report
func FormatProgress(text string, progress float64) string {
	return fmt.Sprintf("⏳ %s… %d%%", html.EscapeString(text), int(progress*100))
}
