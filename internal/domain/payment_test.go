package domain_test

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

func TestPaymentValidate(t *testing.T) {
	payment := domain.Payment{
		OrderID: "order-1",
		Amount:  decimal.RequireFromString("15.45"),
		Tax:     decimal.RequireFromString("0.45"),
		Method:  domain.PaymentMethodCash,
	}
	if errs := payment.Validate(); len(errs) != 0 {
		t.Fatalf("expected no validation errors, got %v", errs)
	}

	cases := []struct {
		name string
		mut  func(p *domain.Payment)
		want error
	}{
		{
			name: "no order id",
			mut:  func(p *domain.Payment) { p.OrderID = "" },
			want: domain.ErrOrderIDRequired,
		},
		{
			name: "unknown method",
			mut:  func(p *domain.Payment) { p.Method = "BARTER" },
			want: domain.ErrPaymentMethodInvalid,
		},
		{
			name: "negative amount",
			mut:  func(p *domain.Payment) { p.Amount = decimal.RequireFromString("-1") },
			want: domain.ErrPaymentAmountNegative,
		},
		{
			name: "negative tax",
			mut:  func(p *domain.Payment) { p.Tax = decimal.RequireFromString("-0.01") },
			want: domain.ErrPaymentTaxNegative,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := payment
			tc.mut(&p)
			errs := p.Validate()
			found := false
			for _, err := range errs {
				if err == tc.want {
					found = true
				}
			}
			if !found {
				t.Fatalf("expected %v among validation errors, got %v", tc.want, errs)
			}
		})
	}
}

func TestPaymentMethodValid(t *testing.T) {
	for _, m := range []domain.PaymentMethod{
		domain.PaymentMethodCreditCard,
		domain.PaymentMethodDebitCard,
		domain.PaymentMethodCash,
	} {
		if !m.Valid() {
			t.Fatalf("expected %s to be valid", m)
		}
	}
	if domain.PaymentMethod("GOLD").Valid() {
		t.Fatalf("unexpected valid method")
	}
}
