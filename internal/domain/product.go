package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product описывает товарную позицию каталога супермаркета.
type Product struct {
	ID          string
	Name        string
	Slug        string
	Description string
	Image       string
	// Barcode — уникальный штрихкод для кассовых операций.
	Barcode string
	// Price — текущая цена за единицу. Позиции заказа фиксируют
	// собственный снимок цены и от Price не зависят.
	Price decimal.Decimal
	// Quantity — складской остаток. Инвариант: в состоянии покоя
	// между транзакциями остаток не бывает отрицательным.
	Quantity int32
	// Categories — набор тегов витрины ("Vegetables", "Dairy" и т.п.).
	Categories []string
	// Returnable определяет, участвует ли товар в частичном возврате.
	Returnable bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Validate проверяет поля товара перед сохранением.
func (p *Product) Validate() []error {
	var errs []error

	if p.Name == "" {
		errs = append(errs, ErrProductNameRequired)
	}
	if p.Price.IsNegative() {
		errs = append(errs, ErrProductPriceNegative)
	}
	if p.Quantity < 0 {
		errs = append(errs, ErrProductQuantityNegative)
	}

	return errs
}
