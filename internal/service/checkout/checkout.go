package checkout

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/storefront/internal/metrics"
)

// Mode выбирает бизнес-вариант жизненного цикла заказа. Варианты взаимно
// исключающие и задаются конфигурацией деплоя, а не запросом.
type Mode string

const (
	// ModeDelivery — витрина с доставкой/самовывозом: заказ рождается в
	// PREPARING, отмена переводит его в CANCELLED с полным возвратом стока.
	ModeDelivery Mode = "delivery"
	// ModeInStore — кассовая продажа: заказ рождается в DONE, возврат
	// переводит его в RETURN и реверсирует только возвратные позиции
	// с обнулением (tombstone) и уменьшением платежа.
	ModeInStore Mode = "instore"
)

// Valid проверяет, что режим относится к поддерживаемым.
func (m Mode) Valid() bool {
	return m == ModeDelivery || m == ModeInStore
}

// InitialStatus возвращает статус новорожденного заказа для режима.
func (m Mode) InitialStatus() domain.OrderStatus {
	if m == ModeInStore {
		return domain.OrderStatusDone
	}
	return domain.OrderStatusPreparing
}

// CancelStatus возвращает терминальный статус отмены для режима.
func (m Mode) CancelStatus() domain.OrderStatus {
	if m == ModeInStore {
		return domain.OrderStatusReturn
	}
	return domain.OrderStatusCancelled
}

const (
	eventOrderCreated      = string(kafka.EventTypeOrderCreated)
	eventOrderCancelled    = string(kafka.EventTypeOrderCancelled)
	eventOrderLineReturned = string(kafka.EventTypeOrderLineReturned)

	timelineEventStatusChanged = "OrderStatusChanged"
	timelineEventOrderCanceled = "OrderCanceled"
	timelineEventLineReturned  = "OrderLineReturned"
)

// Config задаёт режим и параметры отложенного перехода статуса.
type Config struct {
	Mode Mode
	// StatusUpdateDelay — задержка автоперехода PREPARING → READY.
	StatusUpdateDelay time.Duration
}

// CartLine — позиция клиентской корзины, передаётся в CreateOrder целиком.
type CartLine struct {
	ProductID string
	Qty       int32
	// UnitPrice — снимок цены на момент наполнения корзины. Именно он,
	// а не текущая цена товара, фиксируется в позиции заказа.
	UnitPrice decimal.Decimal
}

// CreateOrderInput — параметры создания заказа от чекаута или кассы.
type CreateOrderInput struct {
	UserID string
	Lines  []CartLine
	// Amount и Tax — снимки, посчитанные вызывающей стороной из корзины.
	Amount decimal.Decimal
	Tax    decimal.Decimal
	Method domain.PaymentMethod

	// Поля режима доставки.
	Type       domain.OrderType
	Address    string
	PickupTime *time.Time

	// Поля кассового режима.
	CustomerName  string
	CustomerPhone string
}

// Manager — менеджер жизненного цикла заказа: создание, отмена и возврат
// отдельных позиций. Все мутации стока и платежа проходят через одну
// атомарную единицу работы хранилища.
type Manager struct {
	store     domain.Store
	timeline  domain.TimelineRepository
	scheduler domain.StatusScheduler
	metrics   *metrics.CheckoutMetrics
	logger    *log.Entry
	cfg       Config
}

// NewManager создаёт менеджер жизненного цикла заказов.
func NewManager(
	store domain.Store,
	timeline domain.TimelineRepository,
	scheduler domain.StatusScheduler,
	cfg Config,
	logger *log.Entry,
) *Manager {
	if logger == nil {
		logger = log.New().WithField("component", "checkout")
	}
	if !cfg.Mode.Valid() {
		cfg.Mode = ModeDelivery
	}
	return &Manager{
		store:     store,
		timeline:  timeline,
		scheduler: scheduler,
		metrics:   metrics.NewCheckoutMetrics(),
		logger:    logger,
		cfg:       cfg,
	}
}

// NewManagerWithoutMetrics создаёт менеджер без метрик (для тестов).
func NewManagerWithoutMetrics(
	store domain.Store,
	timeline domain.TimelineRepository,
	scheduler domain.StatusScheduler,
	cfg Config,
	logger *log.Entry,
) *Manager {
	m := NewManager(store, timeline, scheduler, cfg, logger)
	m.metrics = nil
	return m
}

// CreateOrder создаёт заказ, платёж и позиции и списывает сток одной
// единицей работы. Проверка остатка выполняется ПОСЛЕ списания: при
// конкурентных заказах на один товар пред-проверка оставляла бы окно
// check-then-act.
func (m *Manager) CreateOrder(ctx context.Context, input CreateOrderInput) (domain.Order, error) {
	start := time.Now()
	if m.metrics != nil {
		m.metrics.RecordCheckoutStarted()
	}
	defer func() {
		if m.metrics != nil {
			m.metrics.RecordCheckoutFinished()
			m.metrics.RecordCheckoutDuration(time.Since(start))
		}
	}()

	order, err := m.buildOrder(input)
	if err != nil {
		return domain.Order{}, err
	}

	err = m.store.Execute(ctx, func(tx domain.Tx) error {
		if err := tx.InsertOrder(order); err != nil {
			return fmt.Errorf("insert order: %w", err)
		}
		if err := tx.InsertPayment(order.Payment); err != nil {
			return fmt.Errorf("insert payment: %w", err)
		}
		if err := tx.InsertLines(order.Lines); err != nil {
			return fmt.Errorf("insert order lines: %w", err)
		}

		for _, line := range order.Lines {
			product, err := tx.GetProduct(line.ProductID)
			if err != nil {
				return fmt.Errorf("%w: %s", domain.ErrInvalidLineItem, line.ProductID)
			}

			remaining, err := tx.AdjustStock(line.ProductID, -line.Qty)
			if err != nil {
				return fmt.Errorf("decrement stock for %s: %w", line.ProductID, err)
			}
			if remaining < 0 {
				return &domain.InsufficientStockError{ProductName: product.Name}
			}
			if err := tx.EnqueueOutbox(m.stockEvent(line.ProductID, -line.Qty, remaining)); err != nil {
				return err
			}
		}

		return tx.EnqueueOutbox(m.orderEvent(eventOrderCreated, &order, map[string]interface{}{
			"amount": order.Payment.Amount.String(),
		}))
	})
	if err != nil {
		if domain.IsInsufficientStock(err) {
			if m.metrics != nil {
				m.metrics.RecordInsufficientStock()
			}
			m.logger.WithError(err).WithField("user_id", input.UserID).Warn("checkout rejected: insufficient stock")
		}
		return domain.Order{}, err
	}

	if m.metrics != nil {
		m.metrics.RecordOrderCreated(string(m.cfg.Mode))
		m.metrics.RecordOutboxEvent()
	}
	m.appendTimeline(order.ID, timelineEventStatusChanged, string(order.Status), order.CreatedAt)

	// Автопереход статуса — best effort: планировщик может быть no-op,
	// его сбой не влияет на созданный заказ.
	if m.cfg.Mode == ModeDelivery && m.scheduler != nil {
		m.scheduler.Schedule(order.ID, domain.OrderStatusPreparing, domain.OrderStatusReady, m.cfg.StatusUpdateDelay)
	}

	m.logger.WithFields(log.Fields{
		"order_id": order.ID,
		"user_id":  order.UserID,
		"lines":    len(order.Lines),
		"amount":   order.Payment.Amount.String(),
	}).Info("order created")

	return order, nil
}

// CancelOrder отменяет заказ и реверсирует эффекты по правилам режима.
// Статус, сток и платёж меняются одной единицей работы.
func (m *Manager) CancelOrder(ctx context.Context, orderID string) error {
	var cancelled domain.Order

	err := m.store.Execute(ctx, func(tx domain.Tx) error {
		order, err := tx.GetOrder(orderID)
		if err != nil {
			return err
		}

		target := m.cfg.Mode.CancelStatus()
		if !order.Status.CanTransition(target) {
			return domain.ErrOrderFinal
		}

		if m.cfg.Mode == ModeInStore {
			if err := m.returnLines(tx, &order); err != nil {
				return err
			}
		} else {
			// Полный возврат стока: каждая позиция обрабатывается ровно
			// один раз, повторная отмена отсечена терминальным статусом.
			for _, line := range order.Lines {
				if line.Qty == 0 {
					continue
				}
				remaining, err := tx.AdjustStock(line.ProductID, line.Qty)
				if err != nil {
					return fmt.Errorf("restock %s: %w", line.ProductID, err)
				}
				if err := tx.EnqueueOutbox(m.stockEvent(line.ProductID, line.Qty, remaining)); err != nil {
					return err
				}
			}
		}

		now := time.Now().UTC()
		if err := tx.UpdateOrderStatus(order.ID, target, now); err != nil {
			return err
		}
		order.Status = target
		order.UpdatedAt = now
		cancelled = order

		return tx.EnqueueOutbox(m.orderEvent(eventOrderCancelled, &order, nil))
	})
	if err != nil {
		return err
	}

	if m.metrics != nil {
		m.metrics.RecordOrderCancelled()
		m.metrics.RecordOutboxEvent()
	}
	m.appendTimeline(cancelled.ID, timelineEventOrderCanceled, string(cancelled.Status), cancelled.UpdatedAt)

	m.logger.WithFields(log.Fields{
		"order_id": cancelled.ID,
		"status":   cancelled.Status,
	}).Info("order cancelled")

	return nil
}

// CancelLine возвращает одну позицию заказа (операция персонала, только
// кассовый режим). Повторный вызов по уже возвращённой позиции
// останавливается на tombstone-признаке и не трогает сток и платёж.
func (m *Manager) CancelLine(ctx context.Context, orderID, productID string) error {
	if m.cfg.Mode != ModeInStore {
		return domain.ErrPartialReturnUnsupported
	}

	var order domain.Order

	err := m.store.Execute(ctx, func(tx domain.Tx) error {
		var err error
		order, err = tx.GetOrder(orderID)
		if err != nil {
			return err
		}

		line := order.Line(productID)
		if line == nil {
			return domain.ErrLineNotFound
		}
		if line.Returned() {
			return domain.ErrLineAlreadyReturned
		}

		product, err := tx.GetProduct(productID)
		if err != nil {
			return err
		}
		if !product.Returnable {
			return domain.ErrLineNotReturnable
		}

		remaining, err := tx.AdjustStock(productID, line.Qty)
		if err != nil {
			return fmt.Errorf("restock %s: %w", productID, err)
		}
		if err := tx.EnqueueOutbox(m.stockEvent(productID, line.Qty, remaining)); err != nil {
			return err
		}
		if err := tx.TombstoneLine(orderID, productID); err != nil {
			return err
		}
		if err := tx.SetPaymentAmount(orderID, order.Payment.Amount.Sub(line.Amount)); err != nil {
			return err
		}

		return tx.EnqueueOutbox(m.orderEvent(eventOrderLineReturned, &order, map[string]interface{}{
			"product_id": productID,
			"qty":        line.Qty,
			"amount":     line.Amount.String(),
		}))
	})
	if err != nil {
		return err
	}

	if m.metrics != nil {
		m.metrics.RecordLineReturned()
		m.metrics.RecordOutboxEvent()
	}
	m.appendTimeline(orderID, timelineEventLineReturned, productID, time.Now().UTC())

	return nil
}

// GetOrder возвращает заказ с позициями и платежом.
func (m *Manager) GetOrder(ctx context.Context, orderID string) (domain.Order, error) {
	return m.store.GetOrder(ctx, orderID)
}

// ListOrders возвращает заказы пользователя, новые первыми.
func (m *Manager) ListOrders(ctx context.Context, userID string, limit int) ([]domain.Order, error) {
	return m.store.ListOrdersByUser(ctx, userID, limit)
}

// ListAllOrders возвращает все заказы для админского обзора продаж.
func (m *Manager) ListAllOrders(ctx context.Context, limit int) ([]domain.Order, error) {
	return m.store.ListOrders(ctx, limit)
}

// Timeline возвращает историю событий заказа.
func (m *Manager) Timeline(orderID string) ([]domain.TimelineEvent, error) {
	if m.timeline == nil {
		return nil, nil
	}
	return m.timeline.List(orderID)
}

// returnLines реверсирует возвратные позиции: сток назад, позиция в
// tombstone, платёж уменьшается на сумму возвращённого. Невозвратные
// позиции и их вклад в платёж не трогаются.
func (m *Manager) returnLines(tx domain.Tx, order *domain.Order) error {
	refund := decimal.Zero
	for i := range order.Lines {
		line := &order.Lines[i]
		if line.Returned() || line.Qty == 0 {
			continue
		}

		product, err := tx.GetProduct(line.ProductID)
		if err != nil {
			return err
		}
		if !product.Returnable {
			continue
		}

		remaining, err := tx.AdjustStock(line.ProductID, line.Qty)
		if err != nil {
			return fmt.Errorf("restock %s: %w", line.ProductID, err)
		}
		if err := tx.EnqueueOutbox(m.stockEvent(line.ProductID, line.Qty, remaining)); err != nil {
			return err
		}
		if err := tx.TombstoneLine(order.ID, line.ProductID); err != nil {
			return err
		}
		refund = refund.Add(line.Amount)
	}

	if refund.IsZero() {
		return nil
	}
	return tx.SetPaymentAmount(order.ID, order.Payment.Amount.Sub(refund))
}

// buildOrder валидирует вход и собирает агрегат до начала транзакции.
// Ошибки здесь не имеют побочных эффектов.
func (m *Manager) buildOrder(input CreateOrderInput) (domain.Order, error) {
	if input.UserID == "" {
		return domain.Order{}, domain.ErrUserRequired
	}
	if len(input.Lines) == 0 {
		return domain.Order{}, domain.ErrLinesRequired
	}
	if !input.Method.Valid() {
		return domain.Order{}, domain.ErrPaymentMethodInvalid
	}
	if input.Amount.IsNegative() {
		return domain.Order{}, domain.ErrPaymentAmountNegative
	}
	if input.Tax.IsNegative() {
		return domain.Order{}, domain.ErrPaymentTaxNegative
	}

	now := time.Now().UTC()
	orderID := uuid.NewString()
	status := m.cfg.Mode.InitialStatus()

	lines := make([]domain.OrderLine, 0, len(input.Lines))
	seen := make(map[string]struct{}, len(input.Lines))
	sum := decimal.Zero
	for _, cartLine := range input.Lines {
		if cartLine.Qty <= 0 {
			return domain.Order{}, domain.ErrLineQtyInvalid
		}
		if cartLine.UnitPrice.IsNegative() {
			return domain.Order{}, domain.ErrLineAmountNegative
		}
		// Позиции заказа уникальны по товару: одинаковые товары
		// складываются в qty на стороне клиента, не в отдельные строки.
		if _, ok := seen[cartLine.ProductID]; ok {
			return domain.Order{}, domain.ErrLineDuplicateProduct
		}
		seen[cartLine.ProductID] = struct{}{}
		amount := cartLine.UnitPrice.Mul(decimal.NewFromInt32(cartLine.Qty))
		lines = append(lines, domain.OrderLine{
			OrderID:   orderID,
			ProductID: cartLine.ProductID,
			Qty:       cartLine.Qty,
			Amount:    amount,
			Status:    status,
		})
		sum = sum.Add(amount)
	}

	// Снимок суммы обязан сходиться с позициями: Σ amount + tax == amount.
	if !sum.Add(input.Tax).Equal(input.Amount) {
		return domain.Order{}, domain.ErrAmountMismatch
	}

	order := domain.Order{
		ID:            orderID,
		UserID:        input.UserID,
		Status:        status,
		Type:          input.Type,
		PickupTime:    input.PickupTime,
		CustomerName:  input.CustomerName,
		CustomerPhone: input.CustomerPhone,
		Lines:         lines,
		Payment: domain.Payment{
			OrderID:   orderID,
			Amount:    input.Amount,
			Tax:       input.Tax,
			Method:    input.Method,
			Address:   input.Address,
			CreatedAt: now,
			UpdatedAt: now,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}

	if errs := order.ValidateInvariants(); len(errs) > 0 {
		return domain.Order{}, errs[0]
	}

	return order, nil
}

func (m *Manager) orderEvent(eventType string, order *domain.Order, metadata map[string]interface{}) domain.OutboxMessage {
	event := kafka.NewOrderEvent(kafka.EventType(eventType), order.ID, order.UserID, string(order.Status), metadata)
	data, err := json.Marshal(event)
	if err != nil {
		m.logger.WithError(err).WithFields(log.Fields{
			"order_id": order.ID,
			"event":    eventType,
		}).Error("marshal event failed")
		data = []byte(`{}`)
	}

	return domain.OutboxMessage{
		AggregateType: kafka.AggregateTypeOrder,
		AggregateID:   order.ID,
		EventType:     eventType,
		Payload:       data,
	}
}

// stockEvent собирает outbox-сообщение об изменении остатка товара.
// Паблишер направит его в topic событий остатков.
func (m *Manager) stockEvent(productID string, delta, remaining int32) domain.OutboxMessage {
	event := kafka.NewStockEvent(productID, delta, remaining)
	data, err := json.Marshal(event)
	if err != nil {
		m.logger.WithError(err).WithField("product_id", productID).Error("marshal event failed")
		data = []byte(`{}`)
	}

	return domain.OutboxMessage{
		AggregateType: kafka.AggregateTypeStock,
		AggregateID:   productID,
		EventType:     string(kafka.EventTypeStockAdjusted),
		Payload:       data,
	}
}

func (m *Manager) appendTimeline(orderID, eventType, reason string, occurred time.Time) {
	if m.timeline == nil {
		return
	}
	if occurred.IsZero() {
		occurred = time.Now().UTC()
	}
	event := domain.TimelineEvent{
		OrderID:  orderID,
		Type:     eventType,
		Reason:   reason,
		Occurred: occurred,
	}
	if err := m.timeline.Append(event); err != nil {
		m.logger.WithError(err).WithFields(log.Fields{
			"order_id": orderID,
			"event":    eventType,
		}).Warn("append timeline event failed")
		return
	}
	if m.metrics != nil {
		m.metrics.RecordTimelineEvent()
	}
}
