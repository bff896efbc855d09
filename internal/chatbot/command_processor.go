package chatbot

import (
	"go.uber.org/zap"
)

// CommandProcessor handles bot command processing
type CommandProcessor struct {
	logger *zap.Logger
}

// NewCommandProcessor creates a new CommandProcessor instance
func NewCommandProcessor(logger *zap.Logger) *CommandProcessor {
	return &CommandProcessor{logger: logger}
}

// Process returns the reply for command
func (cp *CommandProcessor) Process(command Command, chatID int64) string {
	cp.logger.Info("Processing command",
		zap.String("command", string(command)),
		zap.Int64("chat_id", chatID))

	switch command {
	case CommandStart:
		return welcomeText
	case CommandHelp:
		return helpText
	default:
		return "Unknown command. Type /help for available commands."
	}
}

const welcomeText = `🤖 <b>Welcome to Story Tasker!</b>

Send me a user story or a free-text description of what you want to build and I'll break it down into a short, prioritized task list.

<b>For example:</b>
"As a user I want to reset my password by email so that I can regain access to my account"

The first request may take a while: the model is downloaded and loaded on first use.

Use /help to see all available commands.`

const helpText = `🆘 <b>Story Tasker Help</b>

<b>Available Commands:</b>
/start - Start or restart the bot
/help - Show this help message

<b>How to use:</b>
• Send any text message and it is treated as a story
• You get back 5 to 12 tasks, each with a priority when the model assigns one
• Tap 🔁 Regenerate under a result to ask again for the same story

Your last story is kept in memory only for the 🔁 button; stories and tasks are never written to disk.`
