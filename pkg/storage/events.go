package storage

import (
	"context"

	"github.com/synaptica-ai/labcollate/pkg/common/models"
)

const EventCollated = "collated"

type Publisher interface {
	PublishEvents(ctx context.Context, key func(models.Event) string, events ...models.Event) error
}

// EventSink emits one "collated" event per patient, keyed by patient id.
type EventSink struct {
	publisher Publisher
	source    string
	newEvent  func(eventType, source string, data map[string]interface{}) models.Event
}

func NewEventSink(publisher Publisher, source string, newEvent func(string, string, map[string]interface{}) models.Event) *EventSink {
	return &EventSink{publisher: publisher, source: source, newEvent: newEvent}
}

func (e *EventSink) Name() string { return "kafka" }

func (e *EventSink) Write(ctx context.Context, runID string, doc *models.Document) error {
	if len(doc.Patients) == 0 {
		return nil
	}
	events := make([]models.Event, 0, len(doc.Patients))
	for _, patient := range doc.Patients {
		event := e.newEvent(EventCollated, e.source, map[string]interface{}{
			"patient": patient,
		})
		event.Metadata = map[string]string{
			"run_id":     runID,
			"patient_id": patient.ID,
		}
		events = append(events, event)
	}
	return e.publisher.PublishEvents(ctx, func(ev models.Event) string {
		return ev.Metadata["patient_id"]
	}, events...)
}
