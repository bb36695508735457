package domain

import (
	"errors"
	"fmt"
)

var (
	// Ошибка отсутствующего идентификатора пользователя.
	ErrUserRequired = errors.New("user_id is required")
	// Ошибка отсутствия хотя бы одной позиции в заказе.
	ErrLinesRequired = errors.New("order must contain at least one line")
	// Ошибка при некорректном количестве в позиции (<= 0).
	ErrLineQtyInvalid = errors.New("line qty must be greater than zero")
	// Ошибка отрицательной суммы позиции.
	ErrLineAmountNegative = errors.New("line amount must be non-negative")
	// Ошибка повторения товара в корзине: позиции заказа уникальны по товару.
	ErrLineDuplicateProduct = errors.New("cart contains duplicate product")
	// Ошибка несоответствия суммы платежа и сумм позиций с налогом.
	ErrAmountMismatch = errors.New("payment amount does not match lines sum plus tax")
	// Ошибка отсутствующего идентификатора заказа в платеже.
	ErrOrderIDRequired = errors.New("order_id is required")
	// Ошибка неподдерживаемого способа оплаты.
	ErrPaymentMethodInvalid = errors.New("payment method is invalid")
	// Ошибка отрицательной суммы платежа.
	ErrPaymentAmountNegative = errors.New("payment amount must be non-negative")
	// Ошибка отрицательного налога.
	ErrPaymentTaxNegative = errors.New("payment tax must be non-negative")

	// Ошибки валидации товара.
	ErrProductNameRequired     = errors.New("product name is required")
	ErrProductPriceNegative    = errors.New("product price must be non-negative")
	ErrProductQuantityNegative = errors.New("product quantity must be non-negative")

	// Ошибки валидации аккаунта.
	ErrUserNameRequired  = errors.New("user name is required")
	ErrUserEmailRequired = errors.New("user email is required")
	ErrUserRoleInvalid   = errors.New("user role is invalid")

	// ErrOrderNotFound возвращается, если заказ не найден в хранилище.
	ErrOrderNotFound = errors.New("order not found")
	// ErrOrderExists возвращается при попытке вставить заказ с занятым ID.
	ErrOrderExists = errors.New("order already exists")
	// ErrProductNotFound возвращается при ссылке корзины на несуществующий товар.
	ErrProductNotFound = errors.New("product not found")
	// ErrUserNotFound возвращается, если аккаунт не найден.
	ErrUserNotFound = errors.New("user not found")
	// ErrEmailTaken возвращается при регистрации на занятый email.
	ErrEmailTaken = errors.New("email is already taken")
	// ErrSlugTaken возвращается при сохранении товара с занятым slug.
	ErrSlugTaken = errors.New("product slug is already taken")

	// ErrOrderFinal — заказ в терминальном статусе, переходы запрещены.
	ErrOrderFinal = errors.New("order is in a final status")
	// ErrLineNotFound — в заказе нет позиции с указанным товаром.
	ErrLineNotFound = errors.New("order line not found")
	// ErrLineAlreadyReturned — позиция уже возвращена, повторный возврат запрещён.
	ErrLineAlreadyReturned = errors.New("order line is already returned")
	// ErrLineNotReturnable — товар позиции не подлежит возврату.
	ErrLineNotReturnable = errors.New("product is not returnable")
	// ErrInvalidLineItem — позиция корзины ссылается на несуществующий товар.
	ErrInvalidLineItem = errors.New("cart line references unknown product")
	// ErrPartialReturnUnsupported — возврат отдельных позиций доступен
	// только в кассовом режиме.
	ErrPartialReturnUnsupported = errors.New("partial return is not supported in this mode")

	// ErrOutboxPublish — ошибка при публикации сообщения из outbox.
	ErrOutboxPublish = errors.New("outbox publish failed")

	// Ошибки слоя идемпотентности.
	ErrIdempotencyKeyRequired         = errors.New("idempotency key is required")
	ErrIdempotencyRequestHashRequired = errors.New("idempotency request hash is required")
	ErrIdempotencyKeyNotFound         = errors.New("idempotency key not found")
	// ErrIdempotencyKeyAlreadyExists — ключ уже зарегистрирован с тем же запросом.
	ErrIdempotencyKeyAlreadyExists = errors.New("idempotency key already exists")
	// ErrIdempotencyHashMismatch — ключ переиспользован с другим телом запроса.
	ErrIdempotencyHashMismatch = errors.New("idempotency key is used with a different request")
)

// InsufficientStockError сигнализирует, что списание стока увело бы остаток
// в минус. Создание заказа при этом откатывается целиком.
type InsufficientStockError struct {
	ProductName string
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("product %q has insufficient quantity", e.ProductName)
}

// IsInsufficientStock проверяет, является ли ошибка нехваткой стока.
func IsInsufficientStock(err error) bool {
	var target *InsufficientStockError
	return errors.As(err, &target)
}
