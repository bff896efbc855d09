package chatbot

import (
	"time"
)

// MessageType represents the type of message received
type MessageType string

const (
	MessageTypeCommand  MessageType = "command"
	MessageTypeText     MessageType = "text"
	MessageTypeCallback MessageType = "callback"
)

// Message represents a message from a user
type Message struct {
	ID          int         `json:"id" validate:"required"`
	UserID      int64       `json:"user_id" validate:"required"`
	ChatID      int64       `json:"chat_id" validate:"required"`
	Text        string      `json:"text"`
	Timestamp   time.Time   `json:"timestamp" validate:"required"`
	MessageType MessageType `json:"message_type" validate:"required"`
}

// Command represents supported bot commands
type Command string

const (
	CommandStart Command = "/start"
	CommandHelp  Command = "/help"
)

// Callback actions carried by inline keyboard buttons
const (
	CallbackActionRegenerate = "regenerate"
)

// IsValid checks if the message type is valid
func (mt MessageType) IsValid() bool {
	switch mt {
	case MessageTypeCommand, MessageTypeText, MessageTypeCallback:
		return true
	default:
		return false
	}
}

// IsValid checks if the command is valid
func (c Command) IsValid() bool {
	switch c {
	case CommandStart, CommandHelp:
		return true
	default:
		return false
	}
}
