package channel

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

const EventRangePromoted = "RangePromoted"

type RangePromotedEvent struct {
	EventID   string               `json:"event_id"`
	EventType string               `json:"event_type"`
	Payload   RangePromotedPayload `json:"payload"`
	Timestamp time.Time            `json:"timestamp"`
}

type RangePromotedPayload struct {
	RangeID string `json:"range_id"`
	UserID  string `json:"user_id"`
}

// Producer is satisfied by *broker.KafkaProducer.
type Producer interface {
	Publish(ctx context.Context, key string, value []byte) error
}

// Publisher announces promoted ranges. Events are keyed by range id so the
// promotions of one range stay ordered.
type Publisher struct {
	producer Producer
	now      func() time.Time
}

func NewPublisher(producer Producer) *Publisher {
	return &Publisher{producer: producer, now: time.Now}
}

func (p *Publisher) PublishRangePromoted(ctx context.Context, rangeID, userID string) error {
	event := RangePromotedEvent{
		EventID:   uuid.New().String(),
		EventType: EventRangePromoted,
		Payload:   RangePromotedPayload{RangeID: rangeID, UserID: userID},
		Timestamp: p.now().UTC(),
	}
	value, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return p.producer.Publish(ctx, rangeID, value)
}
