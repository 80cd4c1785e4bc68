package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/synaptica-ai/labcollate/pkg/common/logger"
	"github.com/synaptica-ai/labcollate/pkg/common/models"
)

type Producer struct {
	writer *kafka.Writer
}

func NewProducer(brokers []string, topic string) *Producer {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		Async:        false,
		BatchSize:    100,
		BatchTimeout: 10 * time.Millisecond,
	}

	return &Producer{writer: writer}
}

func NewEvent(eventType, source string, data map[string]interface{}) models.Event {
	return models.Event{
		ID:        uuid.New().String(),
		Type:      eventType,
		Source:    source,
		Data:      data,
		Timestamp: time.Now().UTC(),
	}
}

// PublishEvents writes events in one batch. key partitions the events so
// that all events for one patient land on one partition in order.
func (p *Producer) PublishEvents(ctx context.Context, key func(models.Event) string, events ...models.Event) error {
	messages := make([]kafka.Message, 0, len(events))
	for _, event := range events {
		eventBytes, err := json.Marshal(event)
		if err != nil {
			return fmt.Errorf("failed to marshal event: %w", err)
		}
		messages = append(messages, kafka.Message{
			Key:   []byte(key(event)),
			Value: eventBytes,
			Headers: []kafka.Header{
				{Key: "event-type", Value: []byte(event.Type)},
				{Key: "source", Value: []byte(event.Source)},
			},
		})
	}

	if err := p.writer.WriteMessages(ctx, messages...); err != nil {
		logger.Log.WithError(err).WithFields(map[string]interface{}{
			"events": len(events),
			"topic":  p.writer.Topic,
		}).Error("Failed to publish events")
		return err
	}

	logger.Log.WithFields(map[string]interface{}{
		"events": len(events),
		"topic":  p.writer.Topic,
	}).Info("Events published successfully")

	return nil
}

func (p *Producer) Close() error {
	return p.writer.Close()
}
