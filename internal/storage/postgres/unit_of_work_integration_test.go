package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

func TestStore_PostgresExecuteCommitsOrderAtomically(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	ctx := context.Background()

	seedIntegrationUser(t, store, "user-1")
	seedIntegrationProduct(t, store, "prod-1", "brinjals", 10)

	order := sampleStorefrontOrder("order-1", "user-1", "prod-1")

	err := store.Execute(ctx, func(tx domain.Tx) error {
		if err := tx.InsertOrder(order); err != nil {
			return err
		}
		if err := tx.InsertPayment(order.Payment); err != nil {
			return err
		}
		if err := tx.InsertLines(order.Lines); err != nil {
			return err
		}
		remaining, err := tx.AdjustStock("prod-1", -3)
		if err != nil {
			return err
		}
		if remaining != 7 {
			t.Fatalf("unexpected remaining stock inside tx: %d", remaining)
		}
		return tx.EnqueueOutbox(domain.OutboxMessage{
			AggregateType: "order",
			AggregateID:   order.ID,
			EventType:     "order.created",
			Payload:       []byte(`{"order_id":"order-1"}`),
		})
	})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}

	got, err := store.GetOrder(ctx, "order-1")
	if err != nil {
		t.Fatalf("get order: %v", err)
	}
	if got.Status != domain.OrderStatusPreparing || got.UserID != "user-1" {
		t.Fatalf("unexpected order payload: %+v", got)
	}
	if len(got.Lines) != 1 || got.Lines[0].Qty != 3 {
		t.Fatalf("unexpected order lines: %+v", got.Lines)
	}
	if !got.Payment.Amount.Equal(decimal.RequireFromString("15.45")) {
		t.Fatalf("unexpected payment amount: %s", got.Payment.Amount)
	}

	product, err := store.GetProduct(ctx, "prod-1")
	if err != nil {
		t.Fatalf("get product: %v", err)
	}
	if product.Quantity != 7 {
		t.Fatalf("expected stock 7, got %d", product.Quantity)
	}

	pending, err := NewOutboxRepository(store).PullPending(10)
	if err != nil {
		t.Fatalf("pull pending outbox: %v", err)
	}
	if len(pending) != 1 || pending[0].EventType != "order.created" {
		t.Fatalf("unexpected outbox backlog: %+v", pending)
	}
}

func TestStore_PostgresExecuteRollsBackEverythingOnError(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	ctx := context.Background()

	seedIntegrationUser(t, store, "user-1")
	seedIntegrationProduct(t, store, "prod-1", "brinjals", 2)

	order := sampleStorefrontOrder("order-1", "user-1", "prod-1")

	err := store.Execute(ctx, func(tx domain.Tx) error {
		if err := tx.InsertOrder(order); err != nil {
			return err
		}
		if err := tx.InsertPayment(order.Payment); err != nil {
			return err
		}
		if err := tx.InsertLines(order.Lines); err != nil {
			return err
		}
		remaining, err := tx.AdjustStock("prod-1", -3)
		if err != nil {
			return err
		}
		if remaining >= 0 {
			t.Fatalf("expected negative remaining, got %d", remaining)
		}
		return &domain.InsufficientStockError{ProductName: "Brinjals"}
	})

	var stockErr *domain.InsufficientStockError
	if !errors.As(err, &stockErr) {
		t.Fatalf("expected InsufficientStockError, got %v", err)
	}

	if _, err := store.GetOrder(ctx, "order-1"); !errors.Is(err, domain.ErrOrderNotFound) {
		t.Fatalf("expected rolled back order, got %v", err)
	}

	product, err := store.GetProduct(ctx, "prod-1")
	if err != nil {
		t.Fatalf("get product: %v", err)
	}
	if product.Quantity != 2 {
		t.Fatalf("expected untouched stock 2, got %d", product.Quantity)
	}
}

func TestStore_PostgresOrderMutationsAndListing(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	ctx := context.Background()

	seedIntegrationUser(t, store, "user-1")
	seedIntegrationProduct(t, store, "prod-1", "brinjals", 10)

	now := time.Now().UTC().Round(time.Microsecond)
	first := sampleStorefrontOrder("order-1", "user-1", "prod-1")
	first.CreatedAt = now.Add(-2 * time.Minute)
	first.UpdatedAt = first.CreatedAt
	second := sampleStorefrontOrder("order-2", "user-1", "prod-1")
	second.CreatedAt = now.Add(-time.Minute)
	second.UpdatedAt = second.CreatedAt

	for _, order := range []domain.Order{first, second} {
		order := order
		err := store.Execute(ctx, func(tx domain.Tx) error {
			if err := tx.InsertOrder(order); err != nil {
				return err
			}
			if err := tx.InsertPayment(order.Payment); err != nil {
				return err
			}
			return tx.InsertLines(order.Lines)
		})
		if err != nil {
			t.Fatalf("create %s: %v", order.ID, err)
		}
	}

	listed, err := store.ListOrdersByUser(ctx, "user-1", 1)
	if err != nil {
		t.Fatalf("list with limit: %v", err)
	}
	if len(listed) != 1 || listed[0].ID != "order-2" {
		t.Fatalf("unexpected list result with limit: %+v", listed)
	}

	all, err := store.ListOrders(ctx, 0)
	if err != nil {
		t.Fatalf("list all: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 orders, got %d", len(all))
	}

	err = store.Execute(ctx, func(tx domain.Tx) error {
		if err := tx.UpdateOrderStatus("order-1", domain.OrderStatusCancelled, now); err != nil {
			return err
		}
		if err := tx.TombstoneLine("order-2", "prod-1"); err != nil {
			return err
		}
		return tx.SetPaymentAmount("order-2", decimal.RequireFromString("0.45"))
	})
	if err != nil {
		t.Fatalf("mutate orders: %v", err)
	}

	cancelled, err := store.GetOrder(ctx, "order-1")
	if err != nil {
		t.Fatalf("get cancelled order: %v", err)
	}
	if cancelled.Status != domain.OrderStatusCancelled {
		t.Fatalf("unexpected status after cancel: %s", cancelled.Status)
	}

	returned, err := store.GetOrder(ctx, "order-2")
	if err != nil {
		t.Fatalf("get returned order: %v", err)
	}
	line := returned.Line("prod-1")
	if line == nil || !line.Returned() {
		t.Fatalf("expected tombstoned line, got %+v", line)
	}
	if !returned.Payment.Amount.Equal(decimal.RequireFromString("0.45")) {
		t.Fatalf("unexpected payment after return: %s", returned.Payment.Amount)
	}

	err = store.Execute(ctx, func(tx domain.Tx) error {
		return tx.InsertOrder(first)
	})
	if !errors.Is(err, domain.ErrOrderExists) {
		t.Fatalf("expected ErrOrderExists on duplicate insert, got %v", err)
	}
}

func TestStore_PostgresProductRepository(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	ctx := context.Background()

	now := time.Now().UTC().Round(time.Microsecond)
	product := domain.Product{
		ID:         "prod-1",
		Name:       "Brinjals",
		Slug:       "brinjals",
		Price:      decimal.RequireFromString("11.99"),
		Quantity:   10,
		Categories: []string{"Vegetables"},
		Returnable: true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := store.CreateProduct(ctx, product); err != nil {
		t.Fatalf("create product: %v", err)
	}

	duplicateSlug := product
	duplicateSlug.ID = "prod-2"
	if err := store.CreateProduct(ctx, duplicateSlug); !errors.Is(err, domain.ErrSlugTaken) {
		t.Fatalf("expected ErrSlugTaken, got %v", err)
	}

	bySlug, err := store.GetProductBySlug(ctx, "brinjals")
	if err != nil {
		t.Fatalf("get by slug: %v", err)
	}
	if bySlug.ID != "prod-1" || len(bySlug.Categories) != 1 || bySlug.Categories[0] != "Vegetables" {
		t.Fatalf("unexpected product by slug: %+v", bySlug)
	}

	product.Quantity = 25
	product.Returnable = false
	product.UpdatedAt = now.Add(time.Minute)
	if err := store.UpdateProduct(ctx, product); err != nil {
		t.Fatalf("update product: %v", err)
	}

	updated, err := store.GetProduct(ctx, "prod-1")
	if err != nil {
		t.Fatalf("get updated product: %v", err)
	}
	if updated.Quantity != 25 || updated.Returnable {
		t.Fatalf("unexpected product after update: %+v", updated)
	}

	if _, err := store.GetProduct(ctx, "missing"); !errors.Is(err, domain.ErrProductNotFound) {
		t.Fatalf("expected ErrProductNotFound, got %v", err)
	}

	listed, err := store.ListProducts(ctx)
	if err != nil {
		t.Fatalf("list products: %v", err)
	}
	if len(listed) != 1 {
		t.Fatalf("expected 1 product, got %d", len(listed))
	}
}

func TestStore_PostgresUserRepository(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	ctx := context.Background()

	now := time.Now().UTC().Round(time.Microsecond)
	user := domain.User{
		ID:           "user-1",
		Name:         "John Doe",
		Email:        "john@example.com",
		PasswordHash: "hash",
		Role:         domain.RoleCustomer,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := store.CreateUser(ctx, user); err != nil {
		t.Fatalf("create user: %v", err)
	}

	sameEmail := user
	sameEmail.ID = "user-2"
	sameEmail.Email = "JOHN@example.com"
	if err := store.CreateUser(ctx, sameEmail); !errors.Is(err, domain.ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken for case-insensitive duplicate, got %v", err)
	}

	byEmail, err := store.GetUserByEmail(ctx, "John@Example.Com")
	if err != nil {
		t.Fatalf("get by email: %v", err)
	}
	if byEmail.ID != "user-1" {
		t.Fatalf("unexpected user by email: %+v", byEmail)
	}

	if err := store.SetUserDisabled(ctx, "user-1", true); err != nil {
		t.Fatalf("disable user: %v", err)
	}
	disabled, err := store.GetUser(ctx, "user-1")
	if err != nil {
		t.Fatalf("get disabled user: %v", err)
	}
	if !disabled.Disabled {
		t.Fatal("expected user to be disabled")
	}

	customers, err := store.ListUsersByRole(ctx, domain.RoleCustomer)
	if err != nil {
		t.Fatalf("list customers: %v", err)
	}
	if len(customers) != 1 {
		t.Fatalf("expected 1 customer, got %d", len(customers))
	}

	if err := store.DeleteUser(ctx, "user-1"); err != nil {
		t.Fatalf("delete user: %v", err)
	}
	if _, err := store.GetUser(ctx, "user-1"); !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound after delete, got %v", err)
	}
}

func TestIsUniqueViolation(t *testing.T) {
	if !isUniqueViolation(&pgconn.PgError{Code: "23505"}) {
		t.Fatal("expected unique violation for code 23505")
	}
	if isUniqueViolation(&pgconn.PgError{Code: "22001"}) {
		t.Fatal("unexpected unique violation for non-unique code")
	}
	if isUniqueViolation(errors.New("plain error")) {
		t.Fatal("plain error must not be unique violation")
	}
}

func seedIntegrationUser(t *testing.T, store *Store, id string) {
	t.Helper()

	now := time.Now().UTC().Round(time.Microsecond)
	err := store.CreateUser(context.Background(), domain.User{
		ID:           id,
		Name:         "Integration User " + id,
		Email:        id + "@example.com",
		PasswordHash: "hash",
		Role:         domain.RoleCustomer,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		t.Fatalf("seed user %s: %v", id, err)
	}
}

func seedIntegrationProduct(t *testing.T, store *Store, id, slug string, qty int32) {
	t.Helper()

	now := time.Now().UTC().Round(time.Microsecond)
	err := store.CreateProduct(context.Background(), domain.Product{
		ID:         id,
		Name:       "Integration Product " + id,
		Slug:       slug,
		Price:      decimal.RequireFromString("5.00"),
		Quantity:   qty,
		Returnable: true,
		CreatedAt:  now,
		UpdatedAt:  now,
	})
	if err != nil {
		t.Fatalf("seed product %s: %v", id, err)
	}
}

func sampleStorefrontOrder(id, userID, productID string) domain.Order {
	now := time.Now().UTC().Round(time.Microsecond)
	return domain.Order{
		ID:     id,
		UserID: userID,
		Status: domain.OrderStatusPreparing,
		Type:   domain.OrderTypeDelivery,
		Lines: []domain.OrderLine{
			{
				OrderID:   id,
				ProductID: productID,
				Qty:       3,
				Amount:    decimal.RequireFromString("15.00"),
				Status:    domain.OrderStatusPreparing,
			},
		},
		Payment: domain.Payment{
			OrderID:   id,
			Amount:    decimal.RequireFromString("15.45"),
			Tax:       decimal.RequireFromString("0.45"),
			Method:    domain.PaymentMethodCreditCard,
			Address:   "1 Main St",
			CreatedAt: now,
			UpdatedAt: now,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}
