package domain

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestIsInsufficientStock(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{
			name: "insufficient stock error",
			err:  &InsufficientStockError{ProductName: "Cabbage (500gm)"},
			want: true,
		},
		{
			name: "wrapped insufficient stock error",
			err:  fmt.Errorf("create order: %w", &InsufficientStockError{ProductName: "Brinjals"}),
			want: true,
		},
		{
			name: "other error",
			err:  ErrOrderNotFound,
			want: false,
		},
		{
			name: "nil error",
			err:  nil,
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := IsInsufficientStock(tt.err)
			if got != tt.want {
				t.Errorf("IsInsufficientStock() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestInsufficientStockError_NamesProduct(t *testing.T) {
	err := &InsufficientStockError{ProductName: "Brinjals (300gm)"}
	if !strings.Contains(err.Error(), "Brinjals (300gm)") {
		t.Fatalf("error message must name the offending product, got %q", err.Error())
	}
}

func TestLineAlreadyReturnedIsDistinct(t *testing.T) {
	if errors.Is(ErrLineAlreadyReturned, ErrLineNotReturnable) {
		t.Fatalf("sentinel errors must be distinct")
	}
}
