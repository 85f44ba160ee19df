package kafka

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nearspot/locationd/internal/domain"
	"github.com/nearspot/locationd/internal/scheduler"
)

func TestSerializeToMessage_Success(t *testing.T) {
	now := time.Date(2026, 3, 14, 8, 0, 0, 0, time.UTC)
	snapshot := domain.LocationSnapshot{
		Coordinates: &domain.Coordinates{Latitude: 38.7223, Longitude: -9.1393},
		City:        domain.CityInfo{City: "Lisbon", Country: "Portugal", Accuracy: domain.AccuracyHigh},
		Timestamp:   now,
		AcquiredAt:  now,
		Source:      domain.SourceLive,
	}

	msg, err := serializeToMessage(scheduler.Update{Snapshot: &snapshot})
	require.NoError(t, err)

	assert.Equal(t, []byte("success"), msg.Key)
	assert.Contains(t, string(msg.Value), `"outcome":"success"`)
	assert.Contains(t, string(msg.Value), `"city":"Lisbon"`)

	require.Len(t, msg.Headers, 3)
	assert.Equal(t, "outcome", msg.Headers[0].Key)
	assert.Equal(t, []byte("success"), msg.Headers[0].Value)
	assert.Equal(t, "source", msg.Headers[1].Key)
	assert.Equal(t, []byte("live"), msg.Headers[1].Value)
	assert.Equal(t, "timestamp", msg.Headers[2].Key)
	assert.Equal(t, []byte(now.Format(time.RFC3339)), msg.Headers[2].Value)
}

func TestSerializeToMessage_Failure(t *testing.T) {
	update := scheduler.Update{Err: errors.New("no usable location: position: fix timed out")}

	msg, err := serializeToMessage(update)
	require.NoError(t, err)

	assert.Equal(t, []byte("failure"), msg.Key)
	assert.Contains(t, string(msg.Value), `"outcome":"failure"`)
	assert.Contains(t, string(msg.Value), "fix timed out")
	assert.NotContains(t, string(msg.Value), `"snapshot"`)

	require.Len(t, msg.Headers, 1)
	assert.Equal(t, "outcome", msg.Headers[0].Key)
}
