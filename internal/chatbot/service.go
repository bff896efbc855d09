package chatbot

import (
	"fmt"
	"strconv"
	"sync"

	"story-tasker-api/internal/config"
	"story-tasker-api/internal/events"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// ChatbotService defines the interface for chatbot operations
type ChatbotService interface {
	SendMessage(chatID int64, text string) error
	HandleWebhook(webhookData []byte) error
}

// chatbotService implements the ChatbotService interface
type chatbotService struct {
	eventBus         events.EventBus
	logger           *zap.Logger
	provider         TelegramProvider
	parser           *WebhookParser
	keyboardBuilder  *KeyboardBuilder
	commandProcessor *CommandProcessor
	progress         *progressThrottle
	config           config.ChatbotConfig

	// last story per chat, for the regenerate button
	storiesMu sync.Mutex
	stories   map[int64]string
}

// NewChatbotService creates a new instance of ChatbotService on top of provider
func NewChatbotService(eventBus events.EventBus, logger *zap.Logger, provider TelegramProvider, cfg config.ChatbotConfig) (ChatbotService, error) {
	if provider == nil {
		return nil, NewConfigurationError("provider", "telegram provider is required", "")
	}

	service := &chatbotService{
		eventBus:         eventBus,
		logger:           logger,
		provider:         provider,
		parser:           NewWebhookParser(),
		keyboardBuilder:  NewKeyboardBuilder(),
		commandProcessor: NewCommandProcessor(logger),
		progress:         newProgressThrottle(),
		config:           cfg,
		stories:          make(map[int64]string),
	}

	if err := service.setupEventSubscriptions(); err != nil {
		return nil, err
	}

	if cfg.WebhookURL != "" {
		if err := provider.SetWebhook(cfg.WebhookURL); err != nil {
			logger.Warn("Failed to set webhook", zap.Error(err))
		}
	}

	return service, nil
}

// setupEventSubscriptions sets up event subscriptions for the chatbot service
func (s *chatbotService) setupEventSubscriptions() error {
	subscriptions := []struct {
		topic   string
		handler interface{}
	}{
		{events.TopicTasksGenerated, s.handleTasksGenerated},
		{events.TopicGenerationFailed, s.handleGenerationFailed},
		{events.TopicGenerationProgress, s.handleGenerationProgress},
	}

	for _, sub := range subscriptions {
		if err := s.eventBus.SubscribeAsync(sub.topic, sub.handler); err != nil {
			s.logger.Error("Failed to subscribe", zap.String("topic", sub.topic), zap.Error(err))
			return fmt.Errorf("failed to subscribe to %s: %w", sub.topic, err)
		}
	}
	return nil
}

// SendMessage sends a text message to the specified chat
func (s *chatbotService) SendMessage(chatID int64, text string) error {
	return s.provider.SendMessage(chatID, text)
}

// HandleWebhook processes incoming webhook data from Telegram
func (s *chatbotService) HandleWebhook(webhookData []byte) error {
	update, err := s.parser.ParseUpdate(webhookData)
	if err != nil {
		s.logger.Error("Failed to parse webhook update", zap.Error(err))
		return WrapParsingError(err, "telegram_update")
	}

	userID, err := s.parser.GetUserID(update)
	if err != nil {
		s.logger.Debug("Ignoring update without user", zap.Int("update_id", update.UpdateID))
		return nil
	}

	chatID, err := s.parser.GetChatID(update)
	if err != nil {
		return WrapParsingError(err, "chat_id")
	}

	correlationID := s.parser.BuildCorrelationID(update)

	switch s.parser.DetermineMessageType(update) {
	case MessageTypeCommand:
		return s.handleCommand(update, chatID)
	case MessageTypeCallback:
		return s.handleCallbackQuery(update, userID, chatID, correlationID)
	default:
		return s.handleTextMessage(update, userID, chatID, correlationID)
	}
}

// handleCommand processes bot commands
func (s *chatbotService) handleCommand(update *tgbotapi.Update, chatID int64) error {
	command, err := s.parser.ExtractCommand(update.Message)
	if err != nil {
		s.logger.Debug("Unknown command", zap.Error(err))
		return s.SendMessage(chatID, "Unknown command. Type /help for available commands.")
	}

	return s.SendMessage(chatID, s.commandProcessor.Process(command, chatID))
}

// handleTextMessage treats a text message as a story to generate tasks for
func (s *chatbotService) handleTextMessage(update *tgbotapi.Update, userID, chatID int64, correlationID string) error {
	message, err := s.parser.ExtractMessage(update)
	if err != nil {
		return WrapParsingError(err, "message")
	}

	if message.Text == "" {
		return s.SendMessage(chatID, FormatFailure(events.ReasonInvalidInput, ""))
	}

	s.logger.Info("Processing story",
		zap.String("correlation_id", correlationID),
		zap.Int64("chat_id", chatID),
		zap.Int("text_length", len(message.Text)))

	s.rememberStory(chatID, message.Text)
	return s.publishStory(correlationID, userID, chatID, message.Text)
}

// handleCallbackQuery processes inline keyboard button presses
func (s *chatbotService) handleCallbackQuery(update *tgbotapi.Update, userID, chatID int64, correlationID string) error {
	action, err := s.parser.ExtractCallbackAction(update)
	if err != nil {
		return WrapParsingError(err, "callback_query")
	}

	_ = s.provider.AnswerCallback(update.CallbackQuery.ID, "")

	if action != CallbackActionRegenerate {
		s.logger.Warn("Unknown callback action", zap.String("action", action))
		return nil
	}

	story, ok := s.lastStory(chatID)
	if !ok {
		return s.SendMessage(chatID, "Send me a story first.")
	}

	s.logger.Info("Regenerating tasks",
		zap.String("correlation_id", correlationID),
		zap.Int64("chat_id", chatID))

	return s.publishStory(correlationID, userID, chatID, story)
}

func (s *chatbotService) publishStory(correlationID string, userID, chatID int64, story string) error {
	event := events.StoryReceived{
		Event:  events.NewEventWithCorrelation(correlationID),
		Source: events.SourceTelegram,
		UserID: strconv.FormatInt(userID, 10),
		ChatID: strconv.FormatInt(chatID, 10),
		Story:  story,
	}

	if err := s.eventBus.Publish(events.TopicStoryReceived, event); err != nil {
		s.logger.Error("Failed to publish StoryReceived event",
			zap.String("correlation_id", correlationID),
			zap.Error(err))
		return err
	}
	return nil
}

func (s *chatbotService) rememberStory(chatID int64, story string) {
	s.storiesMu.Lock()
	defer s.storiesMu.Unlock()
	s.stories[chatID] = story
}

func (s *chatbotService) lastStory(chatID int64) (string, bool) {
	s.storiesMu.Lock()
	defer s.storiesMu.Unlock()
	story, ok := s.stories[chatID]
	return story, ok
}

// telegramChat returns the numeric chat of an event, or false when the
// event did not come from Telegram
func telegramChat(source, chatID string) (int64, bool) {
	if source != "" && source != events.SourceTelegram {
		return 0, false
	}
	id, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

// handleTasksGenerated handles TasksGenerated events from the generation service
func (s *chatbotService) handleTasksGenerated(event events.TasksGenerated) {
	chatID, ok := telegramChat(event.Source, event.ChatID)
	if !ok {
		return
	}
	s.progress.done(event.CorrelationID)

	s.logger.Info("Handling TasksGenerated event",
		zap.String("correlation_id", event.CorrelationID),
		zap.Int64("chat_id", chatID),
		zap.Int("task_count", len(event.Tasks)))

	err := s.provider.SendMessageWithKeyboard(chatID, FormatTasks(event.Tasks), s.keyboardBuilder.BuildResultKeyboard())
	if err != nil {
		s.logger.Error("Failed to send task list",
			zap.String("correlation_id", event.CorrelationID),
			zap.Error(err))
	}
}

// handleGenerationFailed handles GenerationFailed events from the generation service
func (s *chatbotService) handleGenerationFailed(event events.GenerationFailed) {
	chatID, ok := telegramChat(event.Source, event.ChatID)
	if !ok {
		return
	}
	s.progress.done(event.CorrelationID)

	s.logger.Info("Handling GenerationFailed event",
		zap.String("correlation_id", event.CorrelationID),
		zap.Int64("chat_id", chatID),
		zap.String("reason", event.Reason))

	text := FormatFailure(event.Reason, event.Message)

	var err error
	if event.Reason == events.ReasonInvalidInput {
		err = s.provider.SendMessage(chatID, text)
	} else {
		err = s.provider.SendMessageWithKeyboard(chatID, text, s.keyboardBuilder.BuildRetryKeyboard())
	}
	if err != nil {
		s.logger.Error("Failed to send failure message",
			zap.String("correlation_id", event.CorrelationID),
			zap.Error(err))
	}
}

// handleGenerationProgress relays engine progress of a run, throttled
func (s *chatbotService) handleGenerationProgress(event events.EngineProgress) {
	chatID, err := strconv.ParseInt(event.ChatID, 10, 64)
	if err != nil {
		return
	}

	text, send := s.progress.next(event.CorrelationID, event.Text, event.Progress)
	if !send {
		return
	}

	if err := s.provider.SendMessage(chatID, text); err != nil {
		s.logger.Warn("Failed to send progress message",
			zap.String("correlation_id", event.CorrelationID),
			zap.Error(err))
	}
}
