package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// Store — in-memory реализация domain.Store и domain.ProductRepository для
// локальной разработки и тестов. Единица работы исполняется под общим
// мьютексом на staged-копии состояния: при ошибке fn опубликованное
// состояние не меняется вовсе.
type Store struct {
	mu       sync.Mutex
	products map[string]domain.Product
	orders   map[string]domain.Order
	outbox   domain.OutboxRepository
}

// NewStore создаёт пустое in-memory хранилище. outbox может быть nil —
// тогда события единицы работы отбрасываются.
func NewStore(outbox domain.OutboxRepository) *Store {
	return &Store{
		products: make(map[string]domain.Product),
		orders:   make(map[string]domain.Order),
		outbox:   outbox,
	}
}

// Execute выполняет fn на копии состояния и публикует её только при успехе.
// Мьютекс сериализует конкурентные единицы работы: списание стока и
// post-check внутри fn не могут увидеть устаревший остаток.
func (s *Store) Execute(_ context.Context, fn func(tx domain.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := &memoryTx{
		products: cloneProducts(s.products),
		orders:   cloneOrders(s.orders),
	}

	if err := fn(t); err != nil {
		return err
	}

	s.products = t.products
	s.orders = t.orders
	if s.outbox != nil {
		for _, msg := range t.outboxQueue {
			if _, err := s.outbox.Enqueue(msg); err != nil {
				return err
			}
		}
	}

	return nil
}

// GetOrder возвращает заказ с позициями и платежом.
func (s *Store) GetOrder(_ context.Context, id string) (domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	order, ok := s.orders[id]
	if !ok {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	return cloneOrder(order), nil
}

// ListOrdersByUser возвращает заказы пользователя, новые первыми.
func (s *Store) ListOrdersByUser(_ context.Context, userID string, limit int) ([]domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := make([]domain.Order, 0, len(s.orders))
	for _, order := range s.orders {
		if order.UserID != userID {
			continue
		}
		result = append(result, cloneOrder(order))
	}
	sortOrders(result)
	return limitOrders(result, limit), nil
}

// ListOrders возвращает все заказы (админский обзор продаж).
func (s *Store) ListOrders(_ context.Context, limit int) ([]domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := make([]domain.Order, 0, len(s.orders))
	for _, order := range s.orders {
		result = append(result, cloneOrder(order))
	}
	sortOrders(result)
	return limitOrders(result, limit), nil
}

// CreateProduct сохраняет новый товар, проверяя уникальность slug.
func (s *Store) CreateProduct(_ context.Context, product domain.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.products {
		if existing.Slug != "" && existing.Slug == product.Slug && existing.ID != product.ID {
			return domain.ErrSlugTaken
		}
	}
	s.products[product.ID] = cloneProduct(product)
	return nil
}

// UpdateProduct перезаписывает товар.
func (s *Store) UpdateProduct(_ context.Context, product domain.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.products[product.ID]; !ok {
		return domain.ErrProductNotFound
	}
	s.products[product.ID] = cloneProduct(product)
	return nil
}

// GetProduct возвращает товар или ErrProductNotFound.
func (s *Store) GetProduct(_ context.Context, id string) (domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	product, ok := s.products[id]
	if !ok {
		return domain.Product{}, domain.ErrProductNotFound
	}
	return cloneProduct(product), nil
}

// GetProductBySlug возвращает товар по slug витрины.
func (s *Store) GetProductBySlug(_ context.Context, slug string) (domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, product := range s.products {
		if product.Slug == slug {
			return cloneProduct(product), nil
		}
	}
	return domain.Product{}, domain.ErrProductNotFound
}

// ListProducts возвращает каталог, отсортированный по имени.
func (s *Store) ListProducts(_ context.Context) ([]domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := make([]domain.Product, 0, len(s.products))
	for _, product := range s.products {
		result = append(result, cloneProduct(product))
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

// memoryTx — staged-копия состояния, на которой работает единица работы.
type memoryTx struct {
	products    map[string]domain.Product
	orders      map[string]domain.Order
	outboxQueue []domain.OutboxMessage
}

func (t *memoryTx) InsertOrder(order domain.Order) error {
	if _, exists := t.orders[order.ID]; exists {
		return domain.ErrOrderExists
	}
	stored := cloneOrder(order)
	stored.Lines = nil
	t.orders[order.ID] = stored
	return nil
}

func (t *memoryTx) InsertPayment(payment domain.Payment) error {
	order, ok := t.orders[payment.OrderID]
	if !ok {
		return domain.ErrOrderNotFound
	}
	order.Payment = payment
	t.orders[payment.OrderID] = order
	return nil
}

func (t *memoryTx) InsertLines(lines []domain.OrderLine) error {
	for _, line := range lines {
		order, ok := t.orders[line.OrderID]
		if !ok {
			return domain.ErrOrderNotFound
		}
		order.Lines = append(order.Lines, line)
		t.orders[line.OrderID] = order
	}
	return nil
}

// AdjustStock атомарно меняет остаток и возвращает получившееся значение.
// Отрицательный результат не является ошибкой хранилища: проверку делает
// вызывающий код после списания.
func (t *memoryTx) AdjustStock(productID string, delta int32) (int32, error) {
	product, ok := t.products[productID]
	if !ok {
		return 0, domain.ErrProductNotFound
	}
	product.Quantity += delta
	t.products[productID] = product
	return product.Quantity, nil
}

func (t *memoryTx) GetProduct(id string) (domain.Product, error) {
	product, ok := t.products[id]
	if !ok {
		return domain.Product{}, domain.ErrProductNotFound
	}
	return cloneProduct(product), nil
}

func (t *memoryTx) GetOrder(id string) (domain.Order, error) {
	order, ok := t.orders[id]
	if !ok {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	return cloneOrder(order), nil
}

func (t *memoryTx) UpdateOrderStatus(orderID string, status domain.OrderStatus, updatedAt time.Time) error {
	order, ok := t.orders[orderID]
	if !ok {
		return domain.ErrOrderNotFound
	}
	order.Status = status
	order.UpdatedAt = updatedAt
	t.orders[orderID] = order
	return nil
}

func (t *memoryTx) TombstoneLine(orderID, productID string) error {
	order, ok := t.orders[orderID]
	if !ok {
		return domain.ErrOrderNotFound
	}
	for i := range order.Lines {
		if order.Lines[i].ProductID != productID {
			continue
		}
		order.Lines[i].Qty = 0
		order.Lines[i].Amount = decimal.Zero
		order.Lines[i].Status = domain.OrderStatusReturn
		t.orders[orderID] = order
		return nil
	}
	return domain.ErrLineNotFound
}

func (t *memoryTx) SetPaymentAmount(orderID string, amount decimal.Decimal) error {
	order, ok := t.orders[orderID]
	if !ok {
		return domain.ErrOrderNotFound
	}
	order.Payment.Amount = amount
	order.Payment.UpdatedAt = time.Now().UTC()
	t.orders[orderID] = order
	return nil
}

func (t *memoryTx) EnqueueOutbox(msg domain.OutboxMessage) error {
	t.outboxQueue = append(t.outboxQueue, msg)
	return nil
}

func cloneProducts(src map[string]domain.Product) map[string]domain.Product {
	dst := make(map[string]domain.Product, len(src))
	for id, product := range src {
		dst[id] = cloneProduct(product)
	}
	return dst
}

func cloneProduct(src domain.Product) domain.Product {
	dst := src
	dst.Categories = append([]string(nil), src.Categories...)
	return dst
}

func cloneOrders(src map[string]domain.Order) map[string]domain.Order {
	dst := make(map[string]domain.Order, len(src))
	for id, order := range src {
		dst[id] = cloneOrder(order)
	}
	return dst
}

func cloneOrder(src domain.Order) domain.Order {
	dst := src
	dst.Lines = append([]domain.OrderLine(nil), src.Lines...)
	return dst
}

func sortOrders(orders []domain.Order) {
	sort.Slice(orders, func(i, j int) bool {
		if !orders[i].CreatedAt.Equal(orders[j].CreatedAt) {
			return orders[i].CreatedAt.After(orders[j].CreatedAt)
		}
		return orders[i].ID > orders[j].ID
	})
}

func limitOrders(orders []domain.Order, limit int) []domain.Order {
	if limit > 0 && len(orders) > limit {
		return orders[:limit]
	}
	return orders
}

var _ domain.Store = (*Store)(nil)
var _ domain.ProductRepository = (*Store)(nil)
