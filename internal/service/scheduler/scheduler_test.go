package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/storefront/internal/storage/memory"
)

func seedOrder(t *testing.T, store *memory.Store, status domain.OrderStatus) string {
	t.Helper()

	now := time.Now().UTC()
	order := domain.Order{
		ID:     "order-1",
		UserID: "user-1",
		Status: status,
		Type:   domain.OrderTypeDelivery,
		Lines: []domain.OrderLine{{
			OrderID:   "order-1",
			ProductID: "p1",
			Qty:       1,
			Amount:    decimal.NewFromInt(5),
			Status:    status,
		}},
		Payment: domain.Payment{
			OrderID: "order-1",
			Amount:  decimal.NewFromInt(5),
			Tax:     decimal.Zero,
			Method:  domain.PaymentMethodCash,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}

	err := store.Execute(context.Background(), func(tx domain.Tx) error {
		if err := tx.InsertOrder(order); err != nil {
			return err
		}
		if err := tx.InsertPayment(order.Payment); err != nil {
			return err
		}
		return tx.InsertLines(order.Lines)
	})
	if err != nil {
		t.Fatalf("seed order: %v", err)
	}
	return order.ID
}

func waitForStatus(t *testing.T, store *memory.Store, orderID string, want domain.OrderStatus) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		order, err := store.GetOrder(context.Background(), orderID)
		if err != nil {
			t.Fatalf("GetOrder: %v", err)
		}
		if order.Status == want {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	order, _ := store.GetOrder(context.Background(), orderID)
	t.Fatalf("status = %s, want %s", order.Status, want)
}

func TestInProcessAppliesTransition(t *testing.T) {
	outbox := memory.NewOutboxRepository()
	store := memory.NewStore(outbox)
	orderID := seedOrder(t, store, domain.OrderStatusPreparing)

	s := NewInProcess(store, nil)
	defer s.Close()

	s.Schedule(orderID, domain.OrderStatusPreparing, domain.OrderStatusReady, 20*time.Millisecond)
	waitForStatus(t, store, orderID, domain.OrderStatusReady)

	pending := outbox.AllPending()
	if len(pending) != 1 || pending[0].EventType != string(kafka.EventTypeOrderStatusChange) {
		t.Fatalf("outbox = %+v, want one %s event", pending, kafka.EventTypeOrderStatusChange)
	}
}

func TestInProcessSkipsWhenStatusMoved(t *testing.T) {
	store := memory.NewStore(memory.NewOutboxRepository())
	orderID := seedOrder(t, store, domain.OrderStatusPreparing)

	s := NewInProcess(store, nil)

	s.Schedule(orderID, domain.OrderStatusPreparing, domain.OrderStatusReady, 30*time.Millisecond)

	// Заказ отменили до срабатывания таймера.
	err := store.Execute(context.Background(), func(tx domain.Tx) error {
		return tx.UpdateOrderStatus(orderID, domain.OrderStatusCancelled, time.Now().UTC())
	})
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}

	time.Sleep(80 * time.Millisecond)
	s.Close()

	order, err := store.GetOrder(context.Background(), orderID)
	if err != nil {
		t.Fatalf("GetOrder: %v", err)
	}
	if order.Status != domain.OrderStatusCancelled {
		t.Errorf("status = %s, want %s", order.Status, domain.OrderStatusCancelled)
	}
}

func TestInProcessCloseStopsPending(t *testing.T) {
	store := memory.NewStore(memory.NewOutboxRepository())
	orderID := seedOrder(t, store, domain.OrderStatusPreparing)

	s := NewInProcess(store, nil)
	s.Schedule(orderID, domain.OrderStatusPreparing, domain.OrderStatusReady, time.Hour)
	s.Close()

	order, err := store.GetOrder(context.Background(), orderID)
	if err != nil {
		t.Fatalf("GetOrder: %v", err)
	}
	if order.Status != domain.OrderStatusPreparing {
		t.Errorf("status = %s, want unchanged %s", order.Status, domain.OrderStatusPreparing)
	}

	// Schedule после Close — no-op.
	s.Schedule(orderID, domain.OrderStatusPreparing, domain.OrderStatusReady, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
}

func TestInProcessRescheduleThenClose(t *testing.T) {
	store := memory.NewStore(memory.NewOutboxRepository())
	orderID := seedOrder(t, store, domain.OrderStatusPreparing)

	s := NewInProcess(store, nil)

	// Повторный Schedule заменяет задание; остановленный таймер не должен
	// оставлять незакрытый счётчик ожидания.
	s.Schedule(orderID, domain.OrderStatusPreparing, domain.OrderStatusReady, time.Hour)
	s.Schedule(orderID, domain.OrderStatusPreparing, domain.OrderStatusReady, time.Hour)
	s.Schedule(orderID, domain.OrderStatusPreparing, domain.OrderStatusReady, time.Hour)

	done := make(chan struct{})
	go func() {
		s.Close()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Close did not return after rescheduling the same order")
	}

	order, err := store.GetOrder(context.Background(), orderID)
	if err != nil {
		t.Fatalf("GetOrder: %v", err)
	}
	if order.Status != domain.OrderStatusPreparing {
		t.Errorf("status = %s, want unchanged %s", order.Status, domain.OrderStatusPreparing)
	}
}

func TestNoopScheduler(t *testing.T) {
	s := NewNoop()
	s.Schedule("order-1", domain.OrderStatusPreparing, domain.OrderStatusReady, time.Millisecond)
}
