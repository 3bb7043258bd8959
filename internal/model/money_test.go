package model_test

import (
	"testing"

	"storefront-checkout/internal/model"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestToMinorUnits(t *testing.T) {
	cases := map[string]int64{
		"99.99":  9999,
		"199.99": 19999,
		"0":      0,
		"49.9":   4990,
		"0.005":  1,
		"19.994": 1999,
		"19.995": 2000,
	}
	for in, want := range cases {
		assert.Equal(t, want, model.ToMinorUnits(decimal.RequireFromString(in)), in)
	}
}

func TestOrderItemSubtotal(t *testing.T) {
	item := model.OrderItem{Price: decimal.RequireFromString("199.99"), Quantity: 2}
	assert.Equal(t, "399.98", item.Subtotal().StringFixed(2))
}

func TestOrderSessionID(t *testing.T) {
	order := model.Order{}
	assert.Equal(t, "", order.SessionID())

	sessionID := "cs_123"
	order.ProviderSessionID = &sessionID
	assert.Equal(t, "cs_123", order.SessionID())
}
