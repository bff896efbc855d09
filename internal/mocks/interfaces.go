package mocks

import (
	"story-tasker-api/internal/chatbot"

	"github.com/stretchr/testify/mock"
)

//go:generate mockgen -source=../engine/provider.go -destination=engine_mocks.go -package=mocks

var _ chatbot.ChatbotService = (*MockChatbotService)(nil)

// MockChatbotService is a testify mock of chatbot.ChatbotService
type MockChatbotService struct {
	mock.Mock
}

// SendMessage implements chatbot.ChatbotService
func (m *MockChatbotService) SendMessage(chatID int64, text string) error {
	args := m.Called(chatID, text)
	return args.Error(0)
}

// HandleWebhook implements chatbot.ChatbotService
func (m *MockChatbotService) HandleWebhook(webhookData []byte) error {
	args := m.Called(webhookData)
	return args.Error(0)
}
