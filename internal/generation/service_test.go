package generation_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"story-tasker-api/internal/engine"
	"story-tasker-api/internal/events"
	"story-tasker-api/internal/generation"
	"story-tasker-api/internal/journal"
	"story-tasker-api/internal/mocks"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap/zaptest"
)

type serviceFixture struct {
	service *generation.Service
	bus     *events.MockEventBus
	journal *journal.MemoryRepository
}

func newServiceFixture(t *testing.T, ctrl *gomock.Controller, eng engine.Engine, createErr error) serviceFixture {
	t.Helper()

	bus := events.NewMockEventBus()
	bus.SetSynchronousMode(true)
	repo := journal.NewMemoryRepository()

	service := generation.NewService(newClient(t, ctrl, eng, createErr), bus, repo, zaptest.NewLogger(t))
	require.NoError(t, service.Start())

	return serviceFixture{service: service, bus: bus, journal: repo}
}

func onlyRecord(t *testing.T, repo *journal.MemoryRepository) journal.Record {
	t.Helper()
	records, err := repo.ListRecent(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, records, 1)
	return records[0]
}

func TestService_RunRecordsSuccess(t *testing.T) {
	ctrl := gomock.NewController(t)
	eng := mocks.NewMockEngine(ctrl)
	eng.EXPECT().ChatCompletion(gomock.Any(), gomock.Any()).
		Return(reply(`{"tasks":[{"id":"a","title":"A"},{"id":"b","title":"B","priority":"low"}]}`), nil)

	f := newServiceFixture(t, ctrl, eng, nil)

	got, err := f.service.Run(context.Background(), generation.Request{
		CorrelationID: "corr-1",
		Source:        events.SourceHTTP,
		Story:         "Plan the release",
	}, nil)
	require.NoError(t, err)
	assert.Len(t, got, 2)

	rec := onlyRecord(t, f.journal)
	assert.Equal(t, "corr-1", rec.CorrelationID)
	assert.Equal(t, events.SourceHTTP, rec.Source)
	assert.Equal(t, testModel, rec.Model)
	assert.Equal(t, journal.StatusSucceeded, rec.Status)
	assert.Equal(t, 2, rec.TaskCount)
	assert.Equal(t, len("Plan the release"), rec.StoryChars)
	assert.Empty(t, rec.ErrorMessage)
}

func TestService_RunRejectsBlankStory(t *testing.T) {
	ctrl := gomock.NewController(t)
	eng := mocks.NewMockEngine(ctrl)

	f := newServiceFixture(t, ctrl, eng, nil)

	_, err := f.service.Run(context.Background(), generation.Request{Source: events.SourceHTTP, Story: "  \n"}, nil)
	require.Error(t, err)
	assert.True(t, generation.IsInputError(err))
	assert.Zero(t, f.journal.Len())
}

func TestService_RunRecordsFailures(t *testing.T) {
	t.Run("invalid format", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		eng := mocks.NewMockEngine(ctrl)
		eng.EXPECT().ChatCompletion(gomock.Any(), gomock.Any()).Return(reply("I cannot do that"), nil)

		f := newServiceFixture(t, ctrl, eng, nil)

		_, err := f.service.Run(context.Background(), generation.Request{Source: events.SourceHTTP, Story: "story"}, nil)
		require.ErrorIs(t, err, generation.ErrInvalidFormat)

		rec := onlyRecord(t, f.journal)
		assert.Equal(t, journal.StatusInvalidFormat, rec.Status)
		assert.Equal(t, "model returned invalid format", rec.ErrorMessage)
		assert.Zero(t, rec.TaskCount)
		assert.NotEmpty(t, rec.CorrelationID)
	})

	t.Run("engine init", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		f := newServiceFixture(t, ctrl, nil, errors.New("pull failed"))

		_, err := f.service.Run(context.Background(), generation.Request{Source: events.SourceTelegram, Story: "story"}, nil)
		require.True(t, engine.IsEngineInitError(err))

		rec := onlyRecord(t, f.journal)
		assert.Equal(t, journal.StatusEngineFailed, rec.Status)
		assert.Contains(t, rec.ErrorMessage, "engine initialization failed")
	})
}

func TestService_JournalFailureDoesNotFailRun(t *testing.T) {
	ctrl := gomock.NewController(t)
	eng := mocks.NewMockEngine(ctrl)
	eng.EXPECT().ChatCompletion(gomock.Any(), gomock.Any()).Return(reply(`{"tasks":[{"id":"a","title":"A"}]}`), nil)

	f := newServiceFixture(t, ctrl, eng, nil)
	f.journal.SetCreateError(errors.New("disk full"))

	got, err := f.service.Run(context.Background(), generation.Request{Source: events.SourceHTTP, Story: "story"}, nil)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestService_WithoutJournal(t *testing.T) {
	ctrl := gomock.NewController(t)
	eng := mocks.NewMockEngine(ctrl)
	eng.EXPECT().ChatCompletion(gomock.Any(), gomock.Any()).Return(reply(`{"tasks":[{"id":"a","title":"A"}]}`), nil)

	service := generation.NewService(newClient(t, ctrl, eng, nil), events.NewMockEventBus(), nil, zaptest.NewLogger(t))

	_, err := service.Run(context.Background(), generation.Request{Source: events.SourceHTTP, Story: "story"}, nil)
	require.NoError(t, err)
	assert.Equal(t, testModel, service.Model().Name)
}

func TestService_HandlesStoryReceived(t *testing.T) {
	ctrl := gomock.NewController(t)
	eng := mocks.NewMockEngine(ctrl)
	eng.EXPECT().ChatCompletion(gomock.Any(), gomock.Any()).
		Return(reply(`{"tasks":[{"id":"a","title":"A","done":true}]}`), nil)

	f := newServiceFixture(t, ctrl, eng, nil)
	events.AssertSubscriberCount(t, f.bus, events.TopicStoryReceived, 1)

	story := events.StoryReceived{
		Event:  events.NewEventWithCorrelation("corr-tg"),
		Source: events.SourceTelegram,
		UserID: "42",
		ChatID: "1001",
		Story:  "Ship the onboarding flow",
	}
	f.bus.SimulateEventDelivery(events.TopicStoryReceived, story)

	published := f.bus.GetPublishedEvents(events.TopicTasksGenerated)
	require.Len(t, published, 1)
	generated, ok := published[0].(events.TasksGenerated)
	require.True(t, ok)
	assert.Equal(t, "corr-tg", generated.CorrelationID)
	assert.Equal(t, "1001", generated.ChatID)
	assert.Equal(t, "42", generated.UserID)
	assert.Equal(t, testModel, generated.Model)
	require.Len(t, generated.Tasks, 1)
	assert.True(t, generated.Tasks[0].Done)

	progress := f.bus.GetPublishedEvents(events.TopicGenerationProgress)
	require.NotEmpty(t, progress)
	for _, raw := range progress {
		p, ok := raw.(events.EngineProgress)
		require.True(t, ok)
		assert.Equal(t, "1001", p.ChatID)
		assert.Equal(t, "corr-tg", p.CorrelationID)
	}
	last := progress[len(progress)-1].(events.EngineProgress)
	assert.Equal(t, 1.0, last.Progress)

	assert.Empty(t, f.bus.GetPublishedEvents(events.TopicGenerationFailed))
	assert.Equal(t, journal.StatusSucceeded, onlyRecord(t, f.journal).Status)
	assert.Empty(t, f.bus.GetErrors())
}

func TestService_PublishesGenerationFailed(t *testing.T) {
	tests := []struct {
		name       string
		story      string
		content    string
		createErr  error
		wantReason string
	}{
		{"blank story", "   ", "", nil, events.ReasonInvalidInput},
		{"garbage output", "story", "no json", nil, events.ReasonInvalidFormat},
		{"engine failure", "story", "", errors.New("server down"), events.ReasonEngineFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			eng := mocks.NewMockEngine(ctrl)
			if tt.content != "" {
				eng.EXPECT().ChatCompletion(gomock.Any(), gomock.Any()).Return(reply(tt.content), nil)
			}

			f := newServiceFixture(t, ctrl, eng, tt.createErr)
			f.bus.SimulateEventDelivery(events.TopicStoryReceived, events.StoryReceived{
				Event:  events.NewEvent(),
				Source: events.SourceTelegram,
				ChatID: "7",
				Story:  tt.story,
			})

			assert.Empty(t, f.bus.GetPublishedEvents(events.TopicTasksGenerated))
			published := f.bus.GetPublishedEvents(events.TopicGenerationFailed)
			require.Len(t, published, 1)

			failed := published[0].(events.GenerationFailed)
			assert.Equal(t, tt.wantReason, failed.Reason)
			assert.Equal(t, "7", failed.ChatID)
			assert.NotEmpty(t, failed.Message)
		})
	}
}

func TestJournalStatusAndFailureReason(t *testing.T) {
	formatErr := fmt.Errorf("generate: %w", generation.ErrInvalidFormat)
	initErr := engine.NewEngineInitError(testModel, errors.New("boom"))
	inputErr := generation.ValidateStory("")
	otherErr := errors.New("connection reset")

	assert.Equal(t, journal.StatusSucceeded, generation.JournalStatus(nil))
	assert.Equal(t, journal.StatusInvalidFormat, generation.JournalStatus(formatErr))
	assert.Equal(t, journal.StatusEngineFailed, generation.JournalStatus(initErr))
	assert.Equal(t, journal.StatusFailed, generation.JournalStatus(otherErr))

	assert.Equal(t, events.ReasonInvalidInput, generation.FailureReason(inputErr))
	assert.Equal(t, events.ReasonInvalidFormat, generation.FailureReason(formatErr))
	assert.Equal(t, events.ReasonEngineFailed, generation.FailureReason(initErr))
	assert.Equal(t, events.ReasonInternal, generation.FailureReason(otherErr))
}
