package shared

import (
	"encoding/json"
	"fmt"
	"time"
)

// EventType represents the type of domain event.
type EventType string

// Domain event types. Every write to the pool ends in EventDatasetChanged,
// the single signal that makes readers recompute from a fresh snapshot.
const (
	EventGuessSubmitted      EventType = "guess.submitted"
	EventMatchCreated        EventType = "match.created"
	EventMatchResultRecorded EventType = "match.result_recorded"
	EventMatchUpdated        EventType = "match.updated"
	EventDatasetChanged      EventType = "dataset.changed"
	EventRankingRebuilt      EventType = "ranking.rebuilt"
)

// Event is the base interface for all domain events.
type Event interface {
	EventType() EventType
	OccurredAt() time.Time
	AggregateID() string
}

// BaseEvent provides common event functionality.
type BaseEvent struct {
	Type          EventType `json:"type"`
	Timestamp     time.Time `json:"timestamp"`
	AggregateId   string    `json:"aggregate_id"`
	CorrelationID string    `json:"correlation_id,omitempty"`
}

// EventType implements Event.
func (e BaseEvent) EventType() EventType {
	return e.Type
}

// OccurredAt implements Event.
func (e BaseEvent) OccurredAt() time.Time {
	return e.Timestamp
}

// AggregateID implements Event.
func (e BaseEvent) AggregateID() string {
	return e.AggregateId
}

// NewBaseEvent creates a new base event.
func NewBaseEvent(eventType EventType, aggregateID string, at time.Time) BaseEvent {
	return BaseEvent{
		Type:        eventType,
		Timestamp:   at,
		AggregateId: aggregateID,
	}
}

// DatasetChangedEvent announces that users, matches or guesses changed.
// Version is the app-state change counter after the write.
type DatasetChangedEvent struct {
	BaseEvent
	Reason  string `json:"reason"`
	Version int64  `json:"version"`
}

// NewDatasetChangedEvent creates a dataset-changed event.
func NewDatasetChangedEvent(reason, aggregateID string, version int64, at time.Time) DatasetChangedEvent {
	return DatasetChangedEvent{
		BaseEvent: NewBaseEvent(EventDatasetChanged, aggregateID, at),
		Reason:    reason,
		Version:   version,
	}
}

// RankingRebuiltEvent is emitted after standings are recomputed and persisted.
type RankingRebuiltEvent struct {
	BaseEvent
	SnapshotID   string `json:"snapshot_id"`
	Version      int64  `json:"version"`
	Participants int    `json:"participants"`
}

// MarshalEvent serializes an event payload.
func MarshalEvent(e Event) ([]byte, error) {
	return json.Marshal(e)
}

// UnmarshalDatasetChanged decodes a dataset-changed payload.
func UnmarshalDatasetChanged(data []byte) (DatasetChangedEvent, error) {
	var e DatasetChangedEvent
	err := json.Unmarshal(data, &e)
	return e, err
}

// UnmarshalEvent decodes a payload published under eventType.
func UnmarshalEvent(eventType EventType, data []byte) (Event, error) {
	switch eventType {
	case EventDatasetChanged:
		return UnmarshalDatasetChanged(data)
	case EventRankingRebuilt:
		var e RankingRebuiltEvent
		err := json.Unmarshal(data, &e)
		return e, err
	default:
		return nil, fmt.Errorf("unknown event type %q", eventType)
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// EVENT BUS CONTRACTS
// ══════════════════════════════════════════════════════════════════════════════

// EventHandler processes one event.
type EventHandler func(event Event) error

// EventPublisher defines the interface for publishing events.
// Implementation: internal/infrastructure/messaging.Bus.
type EventPublisher interface {
	// Publish sends an event to subscribers.
	Publish(event Event) error
}

// EventSubscriber defines the interface for subscribing to events.
type EventSubscriber interface {
	// Subscribe registers a handler for an event type.
	Subscribe(eventType EventType, handler EventHandler) error
}
