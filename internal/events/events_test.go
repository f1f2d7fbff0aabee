package events

import (
	"testing"
	"time"

	"cadenza/config"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFirstDeliveryDeduplicatesByEventID(t *testing.T) {
	eb := New(nil, config.Config{})

	assert.True(t, eb.firstDelivery("event-1"))
	assert.False(t, eb.firstDelivery("event-1"), "second delivery of the same event is suppressed")
	assert.True(t, eb.firstDelivery("event-2"))
}

func TestFirstDeliveryEvictsOldestBeyondWindow(t *testing.T) {
	eb := New(nil, config.Config{})

	require.True(t, eb.firstDelivery("event-0"))
	for i := 0; i < seenEventLimit; i++ {
		require.True(t, eb.firstDelivery(uuid.New().String()))
	}

	assert.True(t, eb.firstDelivery("event-0"), "aged-out IDs are deliverable again")
}

func TestNotifyLocalHandlersRunsHandlerOncePerEvent(t *testing.T) {
	eb := New(nil, config.Config{})

	delivered := make(chan string, 4)
	eb.handlers[PLAY_EVENTS_CHANNEL] = []EventHandler{
		func(event Event) error {
			delivered <- event.ID
			return nil
		},
	}

	event := Event{ID: "dup-check", Type: PLAY_COMPLETED, Channel: PLAY_EVENTS_CHANNEL}
	eb.notifyLocalHandlers(PLAY_EVENTS_CHANNEL, event)
	eb.notifyLocalHandlers(PLAY_EVENTS_CHANNEL, event)

	select {
	case id := <-delivered:
		assert.Equal(t, "dup-check", id)
	case <-time.After(time.Second):
		t.Fatal("handler never ran")
	}

	select {
	case <-delivered:
		t.Fatal("handler ran twice for one event")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestPlayEventFromEventCarriesFullPayload(t *testing.T) {
	userID := uuid.New()
	trackID := uuid.New()
	playedAt := time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)

	event := Event{
		ID:   uuid.New().String(),
		Type: PLAY_COMPLETED,
		Data: map[string]any{
			"userId":               userID,
			"trackId":              trackID,
			"playedAt":             playedAt,
			"playDuration":         212,
			"completionPercentage": 0.92,
			"source":               "mobile",
		},
	}

	payload, err := PlayEventFromEvent(event)
	require.NoError(t, err)
	assert.Equal(t, userID, payload.UserID)
	assert.Equal(t, trackID, payload.TrackID)
	assert.Equal(t, 212, payload.PlayDuration)
	assert.Equal(t, 0.92, payload.CompletionPercentage)
	assert.Equal(t, "mobile", payload.Source)
	assert.True(t, payload.PlayedAt.Equal(playedAt))
}
