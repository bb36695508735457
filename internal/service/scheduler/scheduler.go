package scheduler

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/messaging/kafka"
)

// Noop — заглушка планировщика: автопереход статусов отключён конфигурацией.
type Noop struct{}

// NewNoop возвращает планировщик, который ничего не планирует.
func NewNoop() *Noop {
	return &Noop{}
}

// Schedule ничего не делает.
func (*Noop) Schedule(string, domain.OrderStatus, domain.OrderStatus, time.Duration) {}

var _ domain.StatusScheduler = (*Noop)(nil)

// InProcess — планировщик на таймерах внутри процесса. Контракт best-effort:
// задания не переживают рестарт, сбой применения перехода только логируется.
// Переход применяется с проверкой текущего статуса, поэтому отменённый
// заказ таймер не тронет.
type InProcess struct {
	store  domain.Store
	logger *log.Entry

	mu     sync.Mutex
	wg     sync.WaitGroup
	timers map[string]*time.Timer
	closed bool
}

// NewInProcess создаёт планировщик поверх хранилища заказов.
func NewInProcess(store domain.Store, logger *log.Entry) *InProcess {
	if logger == nil {
		logger = log.New().WithField("component", "status_scheduler")
	}
	return &InProcess{
		store:  store,
		logger: logger,
		timers: make(map[string]*time.Timer),
	}
}

var _ domain.StatusScheduler = (*InProcess)(nil)

// Schedule ставит отложенный переход статуса заказа. Повторный вызов для
// того же заказа заменяет предыдущее задание.
func (s *InProcess) Schedule(orderID string, from, to domain.OrderStatus, delay time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}

	if prev, ok := s.timers[orderID]; ok {
		if prev.Stop() {
			s.wg.Done()
		}
	}

	s.wg.Add(1)
	s.timers[orderID] = time.AfterFunc(delay, func() {
		defer s.wg.Done()
		s.fire(orderID, from, to)

		s.mu.Lock()
		delete(s.timers, orderID)
		s.mu.Unlock()
	})
}

// Close останавливает все запланированные задания и ждёт сработавшие.
func (s *InProcess) Close() {
	s.mu.Lock()
	s.closed = true
	for orderID, timer := range s.timers {
		if timer.Stop() {
			s.wg.Done()
		}
		delete(s.timers, orderID)
	}
	s.mu.Unlock()
	s.wg.Wait()
}

func (s *InProcess) fire(orderID string, from, to domain.OrderStatus) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := s.store.Execute(ctx, func(tx domain.Tx) error {
		order, err := tx.GetOrder(orderID)
		if err != nil {
			return err
		}
		// Статус уже ушёл — заказ отменили или перевели руками.
		if order.Status != from {
			return nil
		}
		if !order.Status.CanTransition(to) {
			return domain.ErrOrderFinal
		}
		if err := tx.UpdateOrderStatus(orderID, to, time.Now().UTC()); err != nil {
			return err
		}

		payload, err := json.Marshal(kafka.NewOrderEvent(kafka.EventTypeOrderStatusChange, orderID, order.UserID, string(to), nil))
		if err != nil {
			return err
		}
		return tx.EnqueueOutbox(domain.OutboxMessage{
			AggregateType: kafka.AggregateTypeOrder,
			AggregateID:   orderID,
			EventType:     string(kafka.EventTypeOrderStatusChange),
			Payload:       payload,
		})
	})
	if err != nil && !errors.Is(err, domain.ErrOrderNotFound) {
		s.logger.WithError(err).WithFields(log.Fields{
			"order_id": orderID,
			"from":     from,
			"to":       to,
		}).Warn("deferred status transition failed")
		return
	}
	if err == nil {
		s.logger.WithFields(log.Fields{
			"order_id": orderID,
			"to":       to,
		}).Debug("deferred status transition applied")
	}
}
