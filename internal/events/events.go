package events

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"cadenza/config"

	logger "github.com/Bparsons0904/goLogger"
	"github.com/google/uuid"
	"github.com/valkey-io/valkey-go"
)

type Channel string

func (c Channel) String() string {
	return string(c)
}

const (
	// PLAY_EVENTS_CHANNEL carries completed listening events from the external
	// play pipeline; the recommendation engine consumes them to mark
	// recommendations as consumed.
	PLAY_EVENTS_CHANNEL Channel = "play_events"

	// CACHE_INVALIDATION_CHANNEL fans cache invalidations out to other nodes.
	CACHE_INVALIDATION_CHANNEL Channel = "cache.invalidation"
)

type MessageType string

const (
	PLAY_COMPLETED     MessageType = "play_completed"
	PLAY_SKIPPED       MessageType = "play_skipped"
	CACHE_INVALIDATION MessageType = "cache_invalidation"
)

type Event struct {
	ID        string         `json:"id"`
	Type      MessageType    `json:"type"`
	Channel   Channel        `json:"channel"`
	UserID    *uuid.UUID     `json:"userId,omitempty"`
	Data      map[string]any `json:"data"`
	Timestamp time.Time      `json:"timestamp"`
}

// PlayEventData is the payload carried by PLAY_COMPLETED events.
type PlayEventData struct {
	UserID               uuid.UUID `json:"userId"`
	TrackID              uuid.UUID `json:"trackId"`
	PlayedAt             time.Time `json:"playedAt"`
	PlayDuration         int       `json:"playDuration"` // seconds
	CompletionPercentage float64   `json:"completionPercentage"`
	Source               string    `json:"source"`
}

// PlayEventFromEvent decodes the play payload out of a raw bus event.
func PlayEventFromEvent(event Event) (PlayEventData, error) {
	var payload PlayEventData

	raw, err := json.Marshal(event.Data)
	if err != nil {
		return payload, err
	}

	if err := json.Unmarshal(raw, &payload); err != nil {
		return payload, err
	}

	return payload, nil
}

type EventHandler func(event Event) error

// seenEventLimit bounds the delivery dedupe window. Old IDs age out in
// insertion order once the window is full.
const seenEventLimit = 1024

type EventBus struct {
	client    valkey.Client
	logger    logger.Logger
	config    config.Config
	handlers  map[Channel][]EventHandler
	listening map[Channel]bool
	mutex     sync.RWMutex
	seen      map[string]bool
	seenOrder []string
	seenMutex sync.Mutex
	ctx       context.Context
	cancel    context.CancelFunc
}

func New(client valkey.Client, config config.Config) *EventBus {
	ctx, cancel := context.WithCancel(context.Background())

	return &EventBus{
		client:    client,
		logger:    logger.New("EventBus"),
		config:    config,
		handlers:  make(map[Channel][]EventHandler),
		listening: make(map[Channel]bool),
		seen:      make(map[string]bool),
		ctx:       ctx,
		cancel:    cancel,
	}
}

func (eb *EventBus) Publish(channel Channel, event Event) error {
	log := eb.logger.Function("Publish")

	if event.ID == "" {
		event.ID = uuid.New().String()
	}

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	if event.Channel == "" {
		event.Channel = channel
	}

	eventData, err := json.Marshal(event)
	if err != nil {
		return log.Err("failed to marshal event", err, "eventID", event.ID)
	}

	ctx, cancel := context.WithTimeout(eb.ctx, 5*time.Second)
	defer cancel()

	err = eb.client.Do(ctx, eb.client.B().Publish().Channel(channel.String()).Message(string(eventData)).Build()).
		Error()
	if err != nil {
		return log.Err(
			"failed to publish event to valkey",
			err,
			"channel",
			channel,
			"eventID",
			event.ID,
		)
	}

	log.Info("Event published", "channel", channel, "eventID", event.ID, "eventType", event.Type)

	// The broker echoes our own publish back through the subscription,
	// so local handlers only need a direct notify on channels nobody here
	// listens to. Delivering both ways would run every handler twice.
	eb.mutex.RLock()
	subscribed := eb.listening[channel]
	eb.mutex.RUnlock()
	if !subscribed {
		eb.notifyLocalHandlers(channel, event)
	}

	return nil
}

// PublishPlayEvent publishes a completed listening event onto the play stream.
func (eb *EventBus) PublishPlayEvent(payload PlayEventData) error {
	return eb.Publish(PLAY_EVENTS_CHANNEL, Event{
		Type:   PLAY_COMPLETED,
		UserID: &payload.UserID,
		Data: map[string]any{
			"userId":               payload.UserID,
			"trackId":              payload.TrackID,
			"playedAt":             payload.PlayedAt,
			"playDuration":         payload.PlayDuration,
			"completionPercentage": payload.CompletionPercentage,
			"source":               payload.Source,
		},
	})
}

func (eb *EventBus) Subscribe(channel Channel, handler EventHandler) error {
	log := eb.logger.Function("Subscribe")

	eb.mutex.Lock()
	eb.handlers[channel] = append(eb.handlers[channel], handler)
	first := !eb.listening[channel]
	eb.listening[channel] = true
	eb.mutex.Unlock()

	log.Info("Handler subscribed to channel", "channel", channel)

	// Start listening to this channel if it's the first handler
	if first {
		go eb.listenToChannel(channel)
	}

	return nil
}

// firstDelivery records the event ID and reports whether it is new.
// Handlers on this node must see each event exactly once regardless of
// how many paths deliver it.
func (eb *EventBus) firstDelivery(eventID string) bool {
	if eventID == "" {
		return true
	}

	eb.seenMutex.Lock()
	defer eb.seenMutex.Unlock()

	if eb.seen[eventID] {
		return false
	}

	eb.seen[eventID] = true
	eb.seenOrder = append(eb.seenOrder, eventID)
	if len(eb.seenOrder) > seenEventLimit {
		delete(eb.seen, eb.seenOrder[0])
		eb.seenOrder = eb.seenOrder[1:]
	}

	return true
}

func (eb *EventBus) notifyLocalHandlers(channel Channel, event Event) {
	log := eb.logger.Function("notifyLocalHandlers")

	if !eb.firstDelivery(event.ID) {
		log.Debug("duplicate delivery suppressed", "channel", channel, "eventID", event.ID)
		return
	}

	eb.mutex.RLock()
	handlers, exists := eb.handlers[channel]
	eb.mutex.RUnlock()

	if !exists || len(handlers) == 0 {
		return
	}

	for i, handler := range handlers {
		go func(h EventHandler, handlerIndex int) {
			if err := h(event); err != nil {
				log.Er(
					"handler failed",
					err,
					"channel",
					channel,
					"eventID",
					event.ID,
					"handlerIndex",
					handlerIndex,
				)
			}
		}(handler, i)
	}
}

func (eb *EventBus) listenToChannel(channel Channel) {
	log := eb.logger.Function("listenToChannel")

	ctx, cancel := context.WithCancel(eb.ctx)
	defer cancel()

	log.Info("Starting to listen to channel", "channel", channel)

	err := eb.client.Receive(
		ctx,
		eb.client.B().Subscribe().Channel(channel.String()).Build(),
		func(msg valkey.PubSubMessage) {
			var event Event
			if err := json.Unmarshal([]byte(msg.Message), &event); err != nil {
				log.Er("failed to unmarshal event", err, "channel", channel, "message", msg.Message)
				return
			}

			eb.notifyLocalHandlers(channel, event)
		},
	)
	if err != nil {
		log.Er("failed to listen to channel", err, "channel", channel)
	}
}

func (eb *EventBus) Close() error {
	log := eb.logger.Function("Close")

	eb.cancel()

	log.Info("EventBus closed")
	return nil
}

func (eb *EventBus) PublishCacheInvalidation(
	resourceType string,
	resourceID string,
	userIDs []string,
) error {
	return eb.Publish(CACHE_INVALIDATION_CHANNEL, Event{
		Type: CACHE_INVALIDATION,
		Data: map[string]any{
			"resourceType": resourceType,
			"resourceId":   resourceID,
			"userIds":      userIDs,
		},
	})
}
