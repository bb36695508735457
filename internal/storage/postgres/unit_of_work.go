package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

const (
	opTimeout = 5 * time.Second
)

// Execute выполняет fn внутри одной SQL-транзакции: заказ, платёж,
// позиции, коррекция стока и outbox-запись фиксируются атомарно
// или не фиксируются вовсе.
func (s *Store) Execute(ctx context.Context, fn func(tx domain.Tx) error) error {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	if err := fn(&pgTx{ctx: ctx, tx: sqlTx}); err != nil {
		_ = sqlTx.Rollback()
		return err
	}

	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

type pgTx struct {
	ctx context.Context
	tx  *sql.Tx
}

var _ domain.Tx = (*pgTx)(nil)

func (t *pgTx) InsertOrder(order domain.Order) error {
	_, err := t.tx.ExecContext(t.ctx, `
		INSERT INTO orders (
			id, user_id, status, type, pickup_time, customer_name, customer_phone, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	`,
		order.ID, order.UserID, string(order.Status), string(order.Type),
		order.PickupTime, order.CustomerName, order.CustomerPhone,
		order.CreatedAt, order.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrOrderExists
		}
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}

func (t *pgTx) InsertPayment(payment domain.Payment) error {
	_, err := t.tx.ExecContext(t.ctx, `
		INSERT INTO payments (order_id, amount, tax, method, address, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
	`,
		payment.OrderID, payment.Amount, payment.Tax, string(payment.Method),
		payment.Address, payment.CreatedAt, payment.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert payment: %w", err)
	}
	return nil
}

func (t *pgTx) InsertLines(lines []domain.OrderLine) error {
	for _, line := range lines {
		if _, err := t.tx.ExecContext(t.ctx, `
			INSERT INTO order_lines (order_id, product_id, qty, amount, status)
			VALUES ($1,$2,$3,$4,$5)
		`, line.OrderID, line.ProductID, line.Qty, line.Amount, string(line.Status)); err != nil {
			return fmt.Errorf("insert order line: %w", err)
		}
	}
	return nil
}

// AdjustStock атомарно меняет остаток и возвращает получившееся значение.
// Отрицательный результат не откатывается здесь: решение принимает
// вызывающая сторона, пока транзакция открыта.
func (t *pgTx) AdjustStock(productID string, delta int32) (int32, error) {
	var remaining int32
	err := t.tx.QueryRowContext(t.ctx, `
		UPDATE products
		SET quantity = quantity + $2,
		    updated_at = NOW()
		WHERE id = $1
		RETURNING quantity
	`, productID, delta).Scan(&remaining)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, domain.ErrProductNotFound
		}
		return 0, fmt.Errorf("adjust stock: %w", err)
	}
	return remaining, nil
}

func (t *pgTx) GetProduct(id string) (domain.Product, error) {
	return scanProduct(t.tx.QueryRowContext(t.ctx, productSelect+` WHERE id = $1`, id))
}

func (t *pgTx) GetOrder(id string) (domain.Order, error) {
	order, err := scanOrder(t.tx.QueryRowContext(t.ctx, orderSelect+` WHERE o.id = $1`, id))
	if err != nil {
		return domain.Order{}, err
	}

	lines, err := loadOrderLines(t.ctx, t.tx, order.ID)
	if err != nil {
		return domain.Order{}, err
	}
	order.Lines = lines
	return order, nil
}

func (t *pgTx) UpdateOrderStatus(id string, status domain.OrderStatus, updatedAt time.Time) error {
	res, err := t.tx.ExecContext(t.ctx, `
		UPDATE orders SET status = $2, updated_at = $3 WHERE id = $1
	`, id, string(status), updatedAt)
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return domain.ErrOrderNotFound
	}
	return nil
}

// TombstoneLine обнуляет позицию: qty и amount в ноль, статус RETURN.
// Строка остаётся в заказе как след возврата.
func (t *pgTx) TombstoneLine(orderID, productID string) error {
	res, err := t.tx.ExecContext(t.ctx, `
		UPDATE order_lines
		SET qty = 0, amount = 0, status = $3
		WHERE order_id = $1 AND product_id = $2
	`, orderID, productID, string(domain.OrderStatusReturn))
	if err != nil {
		return fmt.Errorf("tombstone order line: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return domain.ErrLineNotFound
	}
	return nil
}

func (t *pgTx) SetPaymentAmount(orderID string, amount decimal.Decimal) error {
	res, err := t.tx.ExecContext(t.ctx, `
		UPDATE payments SET amount = $2, updated_at = NOW() WHERE order_id = $1
	`, orderID, amount)
	if err != nil {
		return fmt.Errorf("set payment amount: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return domain.ErrOrderNotFound
	}
	return nil
}

func (t *pgTx) EnqueueOutbox(msg domain.OutboxMessage) error {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	now := time.Now().UTC()

	_, err := t.tx.ExecContext(t.ctx, `
		INSERT INTO outbox_messages (
			id, aggregate_type, aggregate_id, event_type, payload,
			status, attempt_count, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,'pending',0,$6,$7)
	`, msg.ID, msg.AggregateType, msg.AggregateID, msg.EventType, msg.Payload, now, now)
	if err != nil {
		return fmt.Errorf("enqueue outbox message: %w", err)
	}
	return nil
}

const orderSelect = `
	SELECT o.id, o.user_id, o.status, o.type, o.pickup_time,
	       o.customer_name, o.customer_phone, o.created_at, o.updated_at,
	       p.amount, p.tax, p.method, p.address, p.created_at, p.updated_at
	FROM orders o
	JOIN payments p ON p.order_id = o.id`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (domain.Order, error) {
	var (
		order         domain.Order
		status        string
		orderType     string
		paymentMethod string
	)
	err := row.Scan(
		&order.ID, &order.UserID, &status, &orderType, &order.PickupTime,
		&order.CustomerName, &order.CustomerPhone, &order.CreatedAt, &order.UpdatedAt,
		&order.Payment.Amount, &order.Payment.Tax, &paymentMethod,
		&order.Payment.Address, &order.Payment.CreatedAt, &order.Payment.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Order{}, domain.ErrOrderNotFound
		}
		return domain.Order{}, fmt.Errorf("select order: %w", err)
	}
	order.Status = domain.OrderStatus(status)
	order.Type = domain.OrderType(orderType)
	order.Payment.OrderID = order.ID
	order.Payment.Method = domain.PaymentMethod(paymentMethod)
	return order, nil
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func loadOrderLines(ctx context.Context, q querier, orderID string) ([]domain.OrderLine, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT order_id, product_id, qty, amount, status
		FROM order_lines
		WHERE order_id = $1
		ORDER BY product_id
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("load order lines: %w", err)
	}
	defer rows.Close()

	lines := make([]domain.OrderLine, 0)
	for rows.Next() {
		var (
			line   domain.OrderLine
			status string
		)
		if err := rows.Scan(&line.OrderID, &line.ProductID, &line.Qty, &line.Amount, &status); err != nil {
			return nil, fmt.Errorf("scan order line: %w", err)
		}
		line.Status = domain.OrderStatus(status)
		lines = append(lines, line)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order lines: %w", err)
	}
	return lines, nil
}

// GetOrder возвращает заказ с платежом и позициями.
func (s *Store) GetOrder(ctx context.Context, id string) (domain.Order, error) {
	queryCtx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	order, err := scanOrder(s.db.QueryRowContext(queryCtx, orderSelect+` WHERE o.id = $1`, id))
	if err != nil {
		return domain.Order{}, err
	}
	lines, err := loadOrderLines(queryCtx, s.db, order.ID)
	if err != nil {
		return domain.Order{}, err
	}
	order.Lines = lines
	return order, nil
}

// ListOrdersByUser возвращает заказы пользователя, новые первыми.
func (s *Store) ListOrdersByUser(ctx context.Context, userID string, limit int) ([]domain.Order, error) {
	return s.listOrders(ctx, orderSelect+` WHERE o.user_id = $1 ORDER BY o.created_at DESC, o.id DESC`, []any{userID}, limit)
}

// ListOrders возвращает все заказы (админский обзор продаж).
func (s *Store) ListOrders(ctx context.Context, limit int) ([]domain.Order, error) {
	return s.listOrders(ctx, orderSelect+` ORDER BY o.created_at DESC, o.id DESC`, nil, limit)
}

func (s *Store) listOrders(ctx context.Context, query string, args []any, limit int) ([]domain.Order, error) {
	queryCtx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := s.db.QueryContext(queryCtx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	orders := make([]domain.Order, 0)
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order rows: %w", err)
	}

	for i := range orders {
		lines, err := loadOrderLines(queryCtx, s.db, orders[i].ID)
		if err != nil {
			return nil, err
		}
		orders[i].Lines = lines
	}
	return orders, nil
}

const productSelect = `
	SELECT id, name, slug, description, image, barcode, price, quantity,
	       categories, returnable, created_at, updated_at
	FROM products`

func scanProduct(row rowScanner) (domain.Product, error) {
	var (
		product    domain.Product
		categories []byte
	)
	err := row.Scan(
		&product.ID, &product.Name, &product.Slug, &product.Description,
		&product.Image, &product.Barcode, &product.Price, &product.Quantity,
		&categories, &product.Returnable, &product.CreatedAt, &product.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Product{}, domain.ErrProductNotFound
		}
		return domain.Product{}, fmt.Errorf("select product: %w", err)
	}
	if len(categories) > 0 {
		if err := json.Unmarshal(categories, &product.Categories); err != nil {
			return domain.Product{}, fmt.Errorf("decode product categories: %w", err)
		}
	}
	return product, nil
}

func encodeCategories(categories []string) ([]byte, error) {
	if categories == nil {
		categories = []string{}
	}
	data, err := json.Marshal(categories)
	if err != nil {
		return nil, fmt.Errorf("encode product categories: %w", err)
	}
	return data, nil
}

// CreateProduct сохраняет новый товар, проверяя уникальность slug.
func (s *Store) CreateProduct(ctx context.Context, product domain.Product) error {
	queryCtx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	categories, err := encodeCategories(product.Categories)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(queryCtx, `
		INSERT INTO products (
			id, name, slug, description, image, barcode, price, quantity,
			categories, returnable, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
	`,
		product.ID, product.Name, product.Slug, product.Description,
		product.Image, product.Barcode, product.Price, product.Quantity,
		categories, product.Returnable, product.CreatedAt, product.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrSlugTaken
		}
		return fmt.Errorf("insert product: %w", err)
	}
	return nil
}

// UpdateProduct обновляет товар целиком, включая остаток.
func (s *Store) UpdateProduct(ctx context.Context, product domain.Product) error {
	queryCtx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	categories, err := encodeCategories(product.Categories)
	if err != nil {
		return err
	}

	res, err := s.db.ExecContext(queryCtx, `
		UPDATE products
		SET name = $2, slug = $3, description = $4, image = $5, barcode = $6,
		    price = $7, quantity = $8, categories = $9, returnable = $10, updated_at = $11
		WHERE id = $1
	`,
		product.ID, product.Name, product.Slug, product.Description,
		product.Image, product.Barcode, product.Price, product.Quantity,
		categories, product.Returnable, product.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrSlugTaken
		}
		return fmt.Errorf("update product: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return domain.ErrProductNotFound
	}
	return nil
}

// GetProduct возвращает товар по id.
func (s *Store) GetProduct(ctx context.Context, id string) (domain.Product, error) {
	queryCtx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	return scanProduct(s.db.QueryRowContext(queryCtx, productSelect+` WHERE id = $1`, id))
}

// GetProductBySlug возвращает товар по slug для страницы витрины.
func (s *Store) GetProductBySlug(ctx context.Context, slug string) (domain.Product, error) {
	queryCtx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	return scanProduct(s.db.QueryRowContext(queryCtx, productSelect+` WHERE slug = $1`, slug))
}

// ListProducts возвращает каталог, отсортированный по имени.
func (s *Store) ListProducts(ctx context.Context) ([]domain.Product, error) {
	queryCtx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	rows, err := s.db.QueryContext(queryCtx, productSelect+` ORDER BY name, id`)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	products := make([]domain.Product, 0)
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, product)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate product rows: %w", err)
	}
	return products, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

var (
	_ domain.Store             = (*Store)(nil)
	_ domain.ProductRepository = (*Store)(nil)
)
