package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Store — хранилище заказов с поддержкой атомарной единицы работы.
// Все мутации заказа, платежа, позиций и стока выполняются внутри
// Execute: либо фиксируются целиком, либо не видны вовсе.
type Store interface {
	// Execute выполняет fn внутри одной транзакции. Ошибка fn откатывает
	// все выполненные в ней записи.
	Execute(ctx context.Context, fn func(tx Tx) error) error
	// GetOrder возвращает заказ с позициями и платежом вне транзакции.
	GetOrder(ctx context.Context, id string) (Order, error)
	// ListOrdersByUser возвращает заказы пользователя, новые первыми.
	ListOrdersByUser(ctx context.Context, userID string, limit int) ([]Order, error)
	// ListOrders возвращает все заказы (админский обзор продаж).
	ListOrders(ctx context.Context, limit int) ([]Order, error)
}

// Tx — операции, доступные внутри единицы работы Store.Execute.
type Tx interface {
	InsertOrder(order Order) error
	InsertPayment(payment Payment) error
	// InsertLines сохраняет позиции заказа одним пакетом.
	InsertLines(lines []OrderLine) error
	// AdjustStock атомарно меняет остаток товара на delta и возвращает
	// получившееся значение. Проверка на отрицательный остаток выполняется
	// вызывающим кодом ПОСЛЕ списания, а не до него.
	AdjustStock(productID string, delta int32) (int32, error)
	GetProduct(id string) (Product, error)
	GetOrder(id string) (Order, error)
	UpdateOrderStatus(orderID string, status OrderStatus, updatedAt time.Time) error
	// TombstoneLine обнуляет количество и сумму позиции и помечает её RETURN.
	TombstoneLine(orderID, productID string) error
	// SetPaymentAmount выставляет новую сумму платежа (частичный возврат).
	SetPaymentAmount(orderID string, amount decimal.Decimal) error
	// EnqueueOutbox сохраняет событие в transactional outbox той же транзакцией.
	EnqueueOutbox(msg OutboxMessage) error
}

// ProductRepository описывает каталожные операции (админка и витрина).
type ProductRepository interface {
	CreateProduct(ctx context.Context, product Product) error
	UpdateProduct(ctx context.Context, product Product) error
	GetProduct(ctx context.Context, id string) (Product, error)
	GetProductBySlug(ctx context.Context, slug string) (Product, error)
	ListProducts(ctx context.Context) ([]Product, error)
}

// UserRepository описывает хранилище аккаунтов.
type UserRepository interface {
	CreateUser(ctx context.Context, user User) error
	GetUser(ctx context.Context, id string) (User, error)
	GetUserByEmail(ctx context.Context, email string) (User, error)
	ListUsersByRole(ctx context.Context, role Role) ([]User, error)
	// SetUserDisabled блокирует или разблокирует вход.
	SetUserDisabled(ctx context.Context, id string, disabled bool) error
	DeleteUser(ctx context.Context, id string) error
}

// StatusScheduler — отложенный переход статуса заказа. Контракт best-effort:
// сбой планирования не должен ломать создание заказа, реализация может быть
// no-op (в текущем деплое автопереход отключён).
type StatusScheduler interface {
	Schedule(orderID string, from, to OrderStatus, delay time.Duration)
}

// OutboxPublisher публикует события из transactional outbox.
type OutboxPublisher interface {
	// Publish передаёт событие наружу; должен быть идемпотентным.
	Publish(event OutboxMessage) error
}

// OutboxRepository позволяет читать и помечать события для публикации.
type OutboxRepository interface {
	Enqueue(msg OutboxMessage) (OutboxMessage, error)
	PullPending(limit int) ([]OutboxMessage, error)
	Stats() (OutboxStats, error)
	MarkSent(id string) error
	MarkFailed(id string) error
}

// TimelineRepository хранит события жизненного цикла заказа.
// История не удаляется вместе с заказом — заказы вообще не удаляются.
type TimelineRepository interface {
	Append(event TimelineEvent) error
	List(orderID string) ([]TimelineEvent, error)
}

// IdempotencyRepository хранит состояние обработки запросов по idempotency-key.
type IdempotencyRepository interface {
	CreateProcessing(key, requestHash string, ttlAt time.Time) (IdempotencyRecord, error)
	Get(key string) (IdempotencyRecord, error)
	MarkDone(key string, responseBody []byte, httpStatus int) error
	MarkFailed(key string, responseBody []byte, httpStatus int) error
	DeleteExpired(before time.Time, limit int) (int, error)
}

// OutboxMessage хранит данные для публикуемого события.
type OutboxMessage struct {
	ID            string
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}

// OutboxStats описывает текущее состояние backlog transactional outbox.
type OutboxStats struct {
	PendingCount    int
	OldestPendingAt time.Time
}
