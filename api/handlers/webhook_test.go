package handlers

import (
	"errors"
	"net/http"
	"testing"

	"story-tasker-api/internal/mocks"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func newWebhookRouter(t *testing.T, service *mocks.MockChatbotService) *gin.Engine {
	router := newRouter()
	router.POST("/api/v1/telegram/webhook", NewWebhookHandler(service, testLogger(t)).HandleTelegramWebhook)
	return router
}

func TestWebhookHandler_HandleTelegramWebhook(t *testing.T) {
	update := `{"update_id":1,"message":{"message_id":2,"date":1,"text":"hi","chat":{"id":5,"type":"private"}}}`

	tests := []struct {
		name       string
		body       string
		serviceErr error
		wantCalled bool
	}{
		{"valid update", update, nil, true},
		{"service error still acknowledged", update, errors.New("parse failed"), true},
		{"empty body skipped", "", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service := &mocks.MockChatbotService{}
			if tt.wantCalled {
				service.On("HandleWebhook", []byte(tt.body)).Return(tt.serviceErr)
			}

			w := doRequest(newWebhookRouter(t, service), http.MethodPost, "/api/v1/telegram/webhook", tt.body)

			assert.Equal(t, http.StatusOK, w.Code)
			assert.JSONEq(t, `{"ok":true}`, w.Body.String())
			if tt.wantCalled {
				service.AssertExpectations(t)
			} else {
				service.AssertNotCalled(t, "HandleWebhook", mock.Anything)
			}
		})
	}
}
