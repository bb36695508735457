package notifier

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/IBM/sarama"
	log "github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"

	"github.com/vladislavdragonenkov/storefront/internal/messaging/kafka"
)

func testMessage(t *testing.T, topic string, event interface{}) *sarama.ConsumerMessage {
	t.Helper()
	data, err := json.Marshal(event)
	if err != nil {
		t.Fatalf("marshal event: %v", err)
	}
	return &sarama.ConsumerMessage{Topic: topic, Value: data}
}

func TestHandlerOrderEvent(t *testing.T) {
	base, hook := test.NewNullLogger()
	handler := Handler(base.WithField("component", "event_notifier"))

	event := kafka.NewOrderEvent(kafka.EventTypeOrderCreated, "order-1", "user-1", "PREPARING", nil)
	msg := testMessage(t, kafka.TopicOrderEvents, event)

	if err := handler(context.Background(), msg); err != nil {
		t.Fatalf("handler: %v", err)
	}

	entry := hook.LastEntry()
	if entry == nil {
		t.Fatal("no log entry recorded")
	}
	if entry.Data["order_id"] != "order-1" {
		t.Errorf("order_id = %v, want order-1", entry.Data["order_id"])
	}
}

func TestHandlerStockEvent(t *testing.T) {
	base, hook := test.NewNullLogger()
	handler := Handler(base.WithField("component", "event_notifier"))

	event := kafka.NewStockEvent("product-1", -3, 7)
	msg := testMessage(t, kafka.TopicStockEvents, event)

	if err := handler(context.Background(), msg); err != nil {
		t.Fatalf("handler: %v", err)
	}

	entry := hook.LastEntry()
	if entry == nil {
		t.Fatal("no log entry recorded")
	}
	if entry.Data["remaining"] != int32(7) {
		t.Errorf("remaining = %v, want 7", entry.Data["remaining"])
	}
}

func TestHandlerMalformedPayload(t *testing.T) {
	handler := Handler(log.WithField("component", "event_notifier"))

	msg := &sarama.ConsumerMessage{Topic: kafka.TopicOrderEvents, Value: []byte("not json")}
	if err := handler(context.Background(), msg); err == nil {
		t.Fatal("expected error for malformed payload")
	}
}
