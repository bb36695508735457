package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus описывает жизненный цикл заказа.
//
// Витрина с доставкой: PREPARING → READY → COMPLETED, отмена возможна
// из PREPARING и READY. Кассовый режим: заказ рождается в DONE и может
// один раз перейти в RETURN. Из терминальных статусов переходов нет.
type OrderStatus string

const (
	// OrderStatusPreparing — заказ принят, собирается.
	OrderStatusPreparing OrderStatus = "PREPARING"
	// OrderStatusReady — заказ собран и ждёт выдачи или курьера.
	OrderStatusReady OrderStatus = "READY"
	// OrderStatusCompleted — заказ выдан покупателю (терминальный).
	OrderStatusCompleted OrderStatus = "COMPLETED"
	// OrderStatusCancelled — заказ отменён, сток возвращён (терминальный).
	OrderStatusCancelled OrderStatus = "CANCELLED"
	// OrderStatusDone — кассовая продажа завершена в момент создания.
	OrderStatusDone OrderStatus = "DONE"
	// OrderStatusReturn — оформлен возврат (терминальный).
	OrderStatusReturn OrderStatus = "RETURN"
)

// Terminal сообщает, является ли статус конечным.
func (s OrderStatus) Terminal() bool {
	switch s {
	case OrderStatusCompleted, OrderStatusCancelled, OrderStatusReturn:
		return true
	default:
		return false
	}
}

// CanTransition проверяет допустимость перехода в статус next.
func (s OrderStatus) CanTransition(next OrderStatus) bool {
	switch s {
	case OrderStatusPreparing:
		return next == OrderStatusReady || next == OrderStatusCancelled
	case OrderStatusReady:
		return next == OrderStatusCompleted || next == OrderStatusCancelled
	case OrderStatusDone:
		return next == OrderStatusReturn
	default:
		return false
	}
}

// OrderType описывает способ исполнения заказа в режиме витрины.
type OrderType string

const (
	OrderTypeDelivery OrderType = "DELIVERY"
	OrderTypePickup   OrderType = "PICKUP"
	OrderTypeInStore  OrderType = "IN_STORE"
)

// OrderLine — одна позиция заказа. Идентичность составная: заказ + товар.
type OrderLine struct {
	OrderID   string
	ProductID string
	// Qty — количество на момент продажи. Обнуляется при возврате
	// позиции (tombstone), чтобы исключить повторную обработку.
	Qty int32
	// Amount — исторический снимок: цена за единицу × количество на
	// момент заказа. От текущей цены товара не зависит.
	Amount decimal.Decimal
	// Status повторяет статус заказа либо выставляется в RETURN
	// независимо при возврате отдельной позиции.
	Status OrderStatus
}

// Returned сообщает, была ли позиция уже возвращена.
func (l *OrderLine) Returned() bool {
	return l.Status == OrderStatusReturn && l.Qty == 0
}

// Order агрегирует одну покупку: позиции, платёж, статус.
type Order struct {
	ID     string
	UserID string
	Status OrderStatus
	// Type заполняется в режиме витрины (DELIVERY/PICKUP/IN_STORE).
	Type OrderType
	// PickupTime заполняется для самовывоза.
	PickupTime *time.Time
	// CustomerName и CustomerPhone заполняются в кассовом режиме,
	// когда продажу оформляет сотрудник без аккаунта покупателя.
	CustomerName  string
	CustomerPhone string
	Lines         []OrderLine
	Payment       Payment
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Line возвращает позицию по товару или nil, если её нет в заказе.
func (o *Order) Line(productID string) *OrderLine {
	for i := range o.Lines {
		if o.Lines[i].ProductID == productID {
			return &o.Lines[i]
		}
	}
	return nil
}

// ValidateInvariants проверяет инварианты заказа и возвращает список замечаний.
func (o *Order) ValidateInvariants() []error {
	var errs []error

	if o.UserID == "" {
		errs = append(errs, ErrUserRequired)
	}
	if len(o.Lines) == 0 {
		errs = append(errs, ErrLinesRequired)
	}

	// Сверяем платёж с суммой позиций: Σ amount + tax == Payment.Amount.
	sum := decimal.Zero
	for i := range o.Lines {
		line := &o.Lines[i]
		if line.Qty <= 0 && !line.Returned() {
			errs = append(errs, ErrLineQtyInvalid)
		}
		if line.Amount.IsNegative() {
			errs = append(errs, ErrLineAmountNegative)
		}
		sum = sum.Add(line.Amount)
	}
	if !sum.Add(o.Payment.Tax).Equal(o.Payment.Amount) {
		errs = append(errs, ErrAmountMismatch)
	}

	return errs
}
