package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentMethod перечисляет поддерживаемые способы оплаты.
type PaymentMethod string

const (
	PaymentMethodCreditCard PaymentMethod = "CREDIT_CARD"
	PaymentMethodDebitCard  PaymentMethod = "DEBIT_CARD"
	PaymentMethodCash       PaymentMethod = "CASH"
)

// Valid проверяет, что способ оплаты относится к поддерживаемым.
func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentMethodCreditCard, PaymentMethodDebitCard, PaymentMethodCash:
		return true
	default:
		return false
	}
}

// Payment — платёжная запись заказа (строго один платёж на заказ).
// Мутируется только менеджером жизненного цикла: при частичном возврате
// Amount уменьшается на сумму возвращённых позиций.
type Payment struct {
	OrderID string
	// Amount — итоговая списанная сумма: Σ позиций + Tax.
	Amount decimal.Decimal
	// Tax — снимок налога на момент заказа; при возвратах не пересчитывается.
	Tax    decimal.Decimal
	Method PaymentMethod
	// Address заполняется для доставки.
	Address   string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Validate проверяет корректность полей платежа.
func (p *Payment) Validate() []error {
	var errs []error

	if p.OrderID == "" {
		errs = append(errs, ErrOrderIDRequired)
	}
	if !p.Method.Valid() {
		errs = append(errs, ErrPaymentMethodInvalid)
	}
	if p.Amount.IsNegative() {
		errs = append(errs, ErrPaymentAmountNegative)
	}
	if p.Tax.IsNegative() {
		errs = append(errs, ErrPaymentTaxNegative)
	}

	return errs
}
