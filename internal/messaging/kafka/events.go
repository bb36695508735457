package kafka

import "time"

// EventType определяет тип события заказа
type EventType string

const (
	// События жизненного цикла заказа
	EventTypeOrderCreated      EventType = "order.created"
	EventTypeOrderCancelled    EventType = "order.cancelled"
	EventTypeOrderLineReturned EventType = "order.line_returned"
	EventTypeOrderStatusChange EventType = "order.status_changed"

	// События каталога
	EventTypeStockAdjusted EventType = "stock.adjusted"
)

// Типы агрегатов в outbox-сообщениях. Паблишер выбирает topic по агрегату.
const (
	AggregateTypeOrder = "order"
	AggregateTypeStock = "stock"
)

// Topics для Kafka
const (
	TopicOrderEvents     = "storefront.order.events"
	TopicStockEvents     = "storefront.stock.events"
	TopicDeadLetterQueue = "storefront.dlq" // Dead Letter Queue для failed messages
)

// Kafka headers для retry логики
const (
	HeaderRetryCount    = "x-retry-count"
	HeaderOriginalTopic = "x-original-topic"
	HeaderErrorMessage  = "x-error-message"
	HeaderFailedAt      = "x-failed-at"
)

// OrderEvent представляет событие заказа
type OrderEvent struct {
	EventType EventType              `json:"event_type"`
	OrderID   string                 `json:"order_id"`
	UserID    string                 `json:"user_id,omitempty"`
	Status    string                 `json:"status,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// StockEvent представляет изменение остатка товара
type StockEvent struct {
	EventType EventType `json:"event_type"`
	ProductID string    `json:"product_id"`
	Delta     int32     `json:"delta"`
	Remaining int32     `json:"remaining"`
	Timestamp time.Time `json:"timestamp"`
}

// NewOrderEvent создает новое событие заказа
func NewOrderEvent(eventType EventType, orderID, userID, status string, metadata map[string]interface{}) *OrderEvent {
	return &OrderEvent{
		EventType: eventType,
		OrderID:   orderID,
		UserID:    userID,
		Status:    status,
		Timestamp: time.Now(),
		Metadata:  metadata,
	}
}

// NewStockEvent создает событие изменения остатка
func NewStockEvent(productID string, delta, remaining int32) *StockEvent {
	return &StockEvent{
		EventType: EventTypeStockAdjusted,
		ProductID: productID,
		Delta:     delta,
		Remaining: remaining,
		Timestamp: time.Now(),
	}
}
