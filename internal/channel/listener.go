package channel

import (
	"context"
	"encoding/json"
	"time"

	"github.com/fekuna/omnipos-backoffice/internal/apperr"
	"github.com/fekuna/omnipos-backoffice/internal/catalogue"
	"github.com/fekuna/omnipos-backoffice/internal/pkg/logger"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// Consumer is satisfied by *broker.KafkaConsumer.
type Consumer interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
}

// PromotionListener pushes promoted ranges to the platform and the search
// index. A platform failure is recorded on the range, where the ranges
// validation runner reports it.
type PromotionListener struct {
	consumer  Consumer
	catalogue catalogue.UseCase
	platform  Platform
	logger    logger.ZapLogger
}

func NewPromotionListener(consumer Consumer, cat catalogue.UseCase, platform Platform, log logger.ZapLogger) *PromotionListener {
	return &PromotionListener{
		consumer:  consumer,
		catalogue: cat,
		platform:  platform,
		logger:    log,
	}
}

func (l *PromotionListener) Start(ctx context.Context) {
	l.logger.Info("Starting promotion listener")
	for {
		select {
		case <-ctx.Done():
			l.logger.Info("Stopping promotion listener")
			return
		default:
			msg, err := l.consumer.ReadMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				l.logger.Error("Failed to read kafka message", zap.Error(err))
				time.Sleep(time.Second)
				continue
			}
			l.processMessage(ctx, msg.Value)
		}
	}
}

func (l *PromotionListener) processMessage(ctx context.Context, value []byte) {
	var event RangePromotedEvent
	if err := json.Unmarshal(value, &event); err != nil {
		l.logger.Error("Failed to unmarshal event", zap.Error(err))
		return
	}
	if event.EventType != EventRangePromoted {
		return
	}
	l.Handle(ctx, event.Payload.RangeID, event.EventID)
}

// Handle pushes one promoted range to the platform and the search index.
func (l *PromotionListener) Handle(ctx context.Context, rangeID, eventID string) {
	log := l.logger.With(zap.String("range_id", rangeID), zap.String("event_id", eventID))

	detail, err := l.catalogue.GetRangeDetail(ctx, rangeID)
	if err != nil {
		log.Error("Failed to load promoted range", zap.Error(err))
		return
	}

	if err := l.platform.PushRange(ctx, detail); err != nil {
		log.Error("Failed to push range to platform", zap.Error(err))
		if rerr := l.catalogue.RecordRangeError(ctx, rangeID, apperr.Message(err)); rerr != nil {
			log.Error("Failed to record range error", zap.Error(rerr))
		}
	} else if detail.Range.ErrorMessage != "" {
		if err := l.catalogue.RecordRangeError(ctx, rangeID, ""); err != nil {
			log.Warn("Failed to clear range error", zap.Error(err))
		}
	}

	if err := l.catalogue.IndexRange(ctx, rangeID); err != nil {
		log.Warn("Failed to index range", zap.Error(err))
	}
	log.Info("Processed range promotion")
}

// DirectPublisher hands promotions straight to a listener. It stands in for
// the broker when none is configured.
type DirectPublisher struct {
	listener *PromotionListener
}

func NewDirectPublisher(l *PromotionListener) *DirectPublisher {
	return &DirectPublisher{listener: l}
}

func (p *DirectPublisher) PublishRangePromoted(ctx context.Context, rangeID, _ string) error {
	p.listener.Handle(ctx, rangeID, "")
	return nil
}
