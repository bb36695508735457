package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	log "github.com/sirupsen/logrus"
)

func testConsumer(handler MessageHandler, dlq *Producer, maxRetries int) *Consumer {
	return &Consumer{
		handler:     handler,
		logger:      log.WithField("component", "kafka-consumer-test"),
		dlqProducer: dlq,
		maxRetries:  maxRetries,
	}
}

func TestConsumer_GetRetryCount(t *testing.T) {
	c := testConsumer(nil, nil, 3)

	tests := []struct {
		name    string
		headers []*sarama.RecordHeader
		want    int
	}{
		{"no headers", nil, 0},
		{
			"retry header",
			[]*sarama.RecordHeader{{Key: []byte(HeaderRetryCount), Value: []byte("2")}},
			2,
		},
		{
			"malformed header",
			[]*sarama.RecordHeader{{Key: []byte(HeaderRetryCount), Value: []byte("abc")}},
			0,
		},
		{
			"other headers ignored",
			[]*sarama.RecordHeader{{Key: []byte(HeaderOriginalTopic), Value: []byte(TopicOrderEvents)}},
			0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := &sarama.ConsumerMessage{Headers: tt.headers}
			if got := c.getRetryCount(msg); got != tt.want {
				t.Errorf("getRetryCount = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestConsumer_HandleMessageSuccess(t *testing.T) {
	called := 0
	c := testConsumer(func(ctx context.Context, message *sarama.ConsumerMessage) error {
		called++
		return nil
	}, nil, 3)

	msg := &sarama.ConsumerMessage{Topic: TopicOrderEvents, Value: []byte(`{}`)}
	if err := c.handleMessageWithRetry(context.Background(), msg); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if called != 1 {
		t.Errorf("handler called %d times, want 1", called)
	}
}

func TestConsumer_HandleMessageRetriesBeforeDLQ(t *testing.T) {
	handlerErr := errors.New("boom")
	c := testConsumer(func(ctx context.Context, message *sarama.ConsumerMessage) error {
		return handlerErr
	}, nil, 3)

	// retry count ниже лимита — ошибка возвращается наверх для повтора
	msg := &sarama.ConsumerMessage{
		Topic: TopicOrderEvents,
		Headers: []*sarama.RecordHeader{
			{Key: []byte(HeaderRetryCount), Value: []byte("1")},
		},
	}
	if err := c.handleMessageWithRetry(context.Background(), msg); !errors.Is(err, handlerErr) {
		t.Fatalf("expected handler error, got %v", err)
	}
}

func TestConsumer_HandleMessageSendsToDLQAfterMaxRetries(t *testing.T) {
	mockProducer := mocks.NewSyncProducer(t, nil)
	mockProducer.ExpectSendMessageWithCheckerFunctionAndSucceed(func(value []byte) error {
		var dlqMsg map[string]interface{}
		if err := json.Unmarshal(value, &dlqMsg); err != nil {
			return err
		}
		if dlqMsg["original_topic"] != TopicOrderEvents {
			t.Errorf("original_topic = %v", dlqMsg["original_topic"])
		}
		if dlqMsg["error_message"] != "boom" {
			t.Errorf("error_message = %v", dlqMsg["error_message"])
		}
		return nil
	})

	dlq := &Producer{
		producer: mockProducer,
		logger:   log.WithField("component", "kafka-dlq-test"),
	}
	c := testConsumer(func(ctx context.Context, message *sarama.ConsumerMessage) error {
		return errors.New("boom")
	}, dlq, 3)

	msg := &sarama.ConsumerMessage{
		Topic: TopicOrderEvents,
		Key:   []byte("order-1"),
		Value: []byte(`{"order_id":"order-1"}`),
		Headers: []*sarama.RecordHeader{
			{Key: []byte(HeaderRetryCount), Value: []byte("3")},
		},
	}

	// После исчерпания retry сообщение уходит в DLQ и считается обработанным
	if err := c.handleMessageWithRetry(context.Background(), msg); err != nil {
		t.Fatalf("expected nil after DLQ, got %v", err)
	}

	if err := mockProducer.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestConsumer_HandleMessageNoDLQConfigured(t *testing.T) {
	handlerErr := errors.New("boom")
	c := testConsumer(func(ctx context.Context, message *sarama.ConsumerMessage) error {
		return handlerErr
	}, nil, 0)

	msg := &sarama.ConsumerMessage{Topic: TopicOrderEvents}
	if err := c.handleMessageWithRetry(context.Background(), msg); !errors.Is(err, handlerErr) {
		t.Fatalf("expected handler error without DLQ, got %v", err)
	}
}

func TestParseOrderEvent(t *testing.T) {
	event := NewOrderEvent(EventTypeOrderCreated, "order-1", "user-1", "PREPARING", nil)
	data, err := json.Marshal(event)
	if err != nil {
		t.Fatal(err)
	}

	parsed, err := ParseOrderEvent(&sarama.ConsumerMessage{Value: data})
	if err != nil {
		t.Fatalf("ParseOrderEvent: %v", err)
	}
	if parsed.EventType != EventTypeOrderCreated || parsed.OrderID != "order-1" {
		t.Errorf("parsed = %+v", parsed)
	}

	if _, err := ParseOrderEvent(&sarama.ConsumerMessage{Value: []byte("not json")}); err == nil {
		t.Error("expected error for malformed payload")
	}
}

func TestParseOrderEventUnwrapsOutboxEnvelope(t *testing.T) {
	event := NewOrderEvent(EventTypeOrderCancelled, "order-2", "user-1", "CANCELLED", nil)
	payload, err := json.Marshal(event)
	if err != nil {
		t.Fatal(err)
	}

	envelope := map[string]interface{}{
		"id":             "outbox-1",
		"aggregate_type": AggregateTypeOrder,
		"aggregate_id":   "order-2",
		"event_type":     string(EventTypeOrderCancelled),
		"payload":        json.RawMessage(payload),
	}
	data, err := json.Marshal(envelope)
	if err != nil {
		t.Fatal(err)
	}

	parsed, err := ParseOrderEvent(&sarama.ConsumerMessage{Value: data})
	if err != nil {
		t.Fatalf("ParseOrderEvent: %v", err)
	}
	if parsed.OrderID != "order-2" || parsed.Status != "CANCELLED" {
		t.Errorf("parsed = %+v", parsed)
	}
}

func TestParseStockEvent(t *testing.T) {
	event := NewStockEvent("product-1", 2, 12)
	data, err := json.Marshal(event)
	if err != nil {
		t.Fatal(err)
	}

	parsed, err := ParseStockEvent(&sarama.ConsumerMessage{Value: data})
	if err != nil {
		t.Fatalf("ParseStockEvent: %v", err)
	}
	if parsed.ProductID != "product-1" || parsed.Remaining != 12 {
		t.Errorf("parsed = %+v", parsed)
	}
}
