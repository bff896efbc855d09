package mocks

import (
	"sync"
	"time"

	"story-tasker-api/internal/chatbot"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

var _ chatbot.TelegramProvider = (*MockTelegramProvider)(nil)

// MockTelegramProvider implements the TelegramProvider interface for testing
type MockTelegramProvider struct {
	mutex             sync.RWMutex
	sentMessages      []MockMessage
	answeredCallbacks []string
	webhookURL        string
	botInfo           *tgbotapi.User
	sendMessageError  error
	sendKeyboardError error
	setWebhookError   error
	callCounts        map[string]int
}

// MockMessage represents a sent message for testing verification
type MockMessage struct {
	ChatID    int64
	Text      string
	Timestamp time.Time
	MessageID int
	Keyboard  *tgbotapi.InlineKeyboardMarkup
}

// NewMockTelegramProvider creates a new mock Telegram provider
func NewMockTelegramProvider() *MockTelegramProvider {
	return &MockTelegramProvider{
		botInfo: &tgbotapi.User{
			ID:        123456789,
			UserName:  "story_tasker_bot",
			FirstName: "Story Tasker",
			IsBot:     true,
		},
		callCounts: make(map[string]int),
	}
}

// SendMessage implements the TelegramProvider interface
func (m *MockTelegramProvider) SendMessage(chatID int64, text string) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.callCounts["SendMessage"]++
	if m.sendMessageError != nil {
		return m.sendMessageError
	}

	m.sentMessages = append(m.sentMessages, MockMessage{
		ChatID:    chatID,
		Text:      text,
		Timestamp: time.Now(),
		MessageID: len(m.sentMessages) + 1,
	})
	return nil
}

// SendMessageWithKeyboard implements the TelegramProvider interface
func (m *MockTelegramProvider) SendMessageWithKeyboard(chatID int64, text string, keyboard tgbotapi.InlineKeyboardMarkup) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.callCounts["SendMessageWithKeyboard"]++
	if m.sendKeyboardError != nil {
		return m.sendKeyboardError
	}

	m.sentMessages = append(m.sentMessages, MockMessage{
		ChatID:    chatID,
		Text:      text,
		Timestamp: time.Now(),
		MessageID: len(m.sentMessages) + 1,
		Keyboard:  &keyboard,
	})
	return nil
}

// AnswerCallback implements the TelegramProvider interface
func (m *MockTelegramProvider) AnswerCallback(callbackID, text string) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.callCounts["AnswerCallback"]++
	m.answeredCallbacks = append(m.answeredCallbacks, callbackID)
	return nil
}

// SetWebhook implements the TelegramProvider interface
func (m *MockTelegramProvider) SetWebhook(webhookURL string) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.callCounts["SetWebhook"]++
	if m.setWebhookError != nil {
		return m.setWebhookError
	}

	m.webhookURL = webhookURL
	return nil
}

// DeleteWebhook implements the TelegramProvider interface
func (m *MockTelegramProvider) DeleteWebhook() error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.callCounts["DeleteWebhook"]++
	m.webhookURL = ""
	return nil
}

// GetMe implements the TelegramProvider interface
func (m *MockTelegramProvider) GetMe() (*tgbotapi.User, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.callCounts["GetMe"]++
	return m.botInfo, nil
}

// GetSentMessages returns all sent messages
func (m *MockTelegramProvider) GetSentMessages() []MockMessage {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	messages := make([]MockMessage, len(m.sentMessages))
	copy(messages, m.sentMessages)
	return messages
}

// GetLastMessage returns the last sent message
func (m *MockTelegramProvider) GetLastMessage() *MockMessage {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	if len(m.sentMessages) == 0 {
		return nil
	}
	msg := m.sentMessages[len(m.sentMessages)-1]
	return &msg
}

// GetAnsweredCallbacks returns the ids of acknowledged callback queries
func (m *MockTelegramProvider) GetAnsweredCallbacks() []string {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	answered := make([]string, len(m.answeredCallbacks))
	copy(answered, m.answeredCallbacks)
	return answered
}

// GetWebhookURL returns the currently set webhook URL
func (m *MockTelegramProvider) GetWebhookURL() string {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return m.webhookURL
}

// GetCallCount returns the number of times a method was called
func (m *MockTelegramProvider) GetCallCount(method string) int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return m.callCounts[method]
}

// SetSendMessageError configures the provider to return an error on SendMessage
func (m *MockTelegramProvider) SetSendMessageError(err error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.sendMessageError = err
}

// SetSendKeyboardError configures the provider to return an error on SendMessageWithKeyboard
func (m *MockTelegramProvider) SetSendKeyboardError(err error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.sendKeyboardError = err
}

// SetWebhookError configures the provider to return an error on SetWebhook
func (m *MockTelegramProvider) SetWebhookError(err error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.setWebhookError = err
}

// ClearHistory clears all sent messages and call counts
func (m *MockTelegramProvider) ClearHistory() {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.sentMessages = nil
	m.answeredCallbacks = nil
	m.callCounts = make(map[string]int)
}
