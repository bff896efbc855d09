package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"story-tasker-api/internal/common"
	"story-tasker-api/internal/journal"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newGenerationsRouter(t *testing.T, repo *journal.MemoryRepository) *gin.Engine {
	router := newRouter()
	handler := NewGenerationsHandler(repo, testLogger(t))
	router.GET("/api/v1/generations", handler.List)
	router.GET("/api/v1/generations/stats", handler.Stats)
	return router
}

func seedJournal(t *testing.T) *journal.MemoryRepository {
	t.Helper()
	clock := common.NewMockClock(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
	repo := journal.NewMemoryRepository().WithClock(clock)

	for _, status := range []journal.Status{
		journal.StatusSucceeded,
		journal.StatusSucceeded,
		journal.StatusInvalidFormat,
	} {
		require.NoError(t, repo.Create(context.Background(), &journal.Record{
			Source:     "http",
			Model:      testModel.Name,
			StoryChars: 40,
			Status:     status,
			DurationMs: 700,
		}))
		clock.Advance(time.Minute)
	}
	return repo
}

func TestGenerationsHandler_List(t *testing.T) {
	router := newGenerationsRouter(t, seedJournal(t))

	w := doRequest(router, http.MethodGet, "/api/v1/generations?limit=2", "")

	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Generations []journal.Record `json:"generations"`
		Count       int              `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 2, body.Count)
	require.Len(t, body.Generations, 2)
	assert.Equal(t, journal.StatusInvalidFormat, body.Generations[0].Status)
	assert.True(t, body.Generations[0].CreatedAt.After(body.Generations[1].CreatedAt))
}

func TestGenerationsHandler_List_EmptyJournal(t *testing.T) {
	router := newGenerationsRouter(t, journal.NewMemoryRepository())

	w := doRequest(router, http.MethodGet, "/api/v1/generations", "")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"generations":[]`)
}

func TestGenerationsHandler_List_BadLimit(t *testing.T) {
	router := newGenerationsRouter(t, journal.NewMemoryRepository())

	for _, limit := range []string{"abc", "-1"} {
		w := doRequest(router, http.MethodGet, "/api/v1/generations?limit="+limit, "")
		assert.Equal(t, http.StatusBadRequest, w.Code, limit)
	}
}

func TestGenerationsHandler_List_RepositoryError(t *testing.T) {
	repo := journal.NewMemoryRepository()
	repo.SetListError(errors.New("connection lost"))
	router := newGenerationsRouter(t, repo)

	w := doRequest(router, http.MethodGet, "/api/v1/generations", "")

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "connection lost")
}

func TestGenerationsHandler_Stats(t *testing.T) {
	router := newGenerationsRouter(t, seedJournal(t))

	w := doRequest(router, http.MethodGet, "/api/v1/generations/stats", "")

	require.Equal(t, http.StatusOK, w.Code)
	var stats journal.Stats
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
	assert.Equal(t, int64(3), stats.Total)
	assert.Equal(t, int64(2), stats.ByStatus[journal.StatusSucceeded])
	assert.Equal(t, int64(1), stats.ByStatus[journal.StatusInvalidFormat])
}
