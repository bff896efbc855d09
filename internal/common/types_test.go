package common

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewID(t *testing.T) {
	id1 := NewID()
	id2 := NewID()

	assert.NotEqual(t, id1, id2)
	assert.True(t, id1.IsValid())
	assert.Len(t, id1.String(), 36)
}

func TestID_IsValid(t *testing.T) {
	tests := []struct {
		id   ID
		want bool
	}{
		{"550e8400-e29b-41d4-a716-446655440000", true},
		{"", false},
		{"550e8400-e29b-41d4-a716", false},
		{"not-a-uuid-at-all", false},
	}

	for _, tt := range tests {
		t.Run(string(tt.id), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.id.IsValid())
		})
	}
}

func TestID_JSON(t *testing.T) {
	data, err := json.Marshal(struct {
		ID ID `json:"id"`
	}{ID: "abc"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"abc"}`, string(data))
}

func TestMockClock(t *testing.T) {
	start := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	clock := NewMockClock(start)

	assert.Equal(t, start, clock.Now())

	clock.Advance(90 * time.Minute)
	assert.Equal(t, start.Add(90*time.Minute), clock.Now())

	later := start.Add(48 * time.Hour)
	clock.Set(later)
	assert.Equal(t, later, clock.Now())
}

func TestRealClock(t *testing.T) {
	var clock Clock = NewRealClock()
	before := time.Now()
	assert.False(t, clock.Now().Before(before))
}
