package service_test

import (
	"context"
	"errors"
	"testing"

	"storefront-checkout/internal/client"
	"storefront-checkout/internal/model"
	"storefront-checkout/internal/service"
	"storefront-checkout/internal/testutil"

	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBeginCheckout_Success(t *testing.T) {
	f := newFixture(t)
	testutil.AddProduct(t, f.db, "A", "Headphones", "99.99")
	testutil.AddProduct(t, f.db, "B", "Watch", "199.99")

	session, err := f.checkout.BeginCheckout(context.Background(), "anon:1", []service.CartLine{
		{ProductID: "A", Quantity: 1},
		{ProductID: "B", Quantity: 2},
	})
	require.NoError(t, err)
	assert.Equal(t, "cs_test_1", session.SessionID)
	assert.Equal(t, "https://checkout.example.com/cs_test_1", session.CheckoutURL)

	order := f.reload(t, session.OrderID)
	assert.Equal(t, model.OrderStatusPending, order.Status)
	assert.Equal(t, "cs_test_1", order.SessionID())

	require.Equal(t, 1, f.payment.createCalls())
	params := f.payment.created[0]
	assert.Equal(t, "https://shop.example.com/api/checkout/success?session_id={CHECKOUT_SESSION_ID}", params.SuccessURL)
	assert.Equal(t, "https://shop.example.com/?cancelled=true", params.CancelURL)
	assert.Equal(t, order.ID, params.ClientReferenceID)
	assert.Equal(t, order.ID, params.IdempotencyKey)
	assert.Equal(t, order.ID, params.Metadata["order_id"])

	require.Len(t, params.LineItems, 2)
	assert.Equal(t, client.LineItem{
		Name:        "Headphones",
		Description: "Headphones description",
		UnitAmount:  9999,
		Quantity:    1,
	}, params.LineItems[0])
	assert.EqualValues(t, 19999, params.LineItems[1].UnitAmount)
	assert.Equal(t, 2, params.LineItems[1].Quantity)

	assert.Equal(t, 1.0, promtestutil.ToFloat64(f.metrics.CheckoutSessions.WithLabelValues("created")))
}

func TestBeginCheckout_EmptyCart(t *testing.T) {
	f := newFixture(t)

	_, err := f.checkout.BeginCheckout(context.Background(), "anon:1", nil)
	assert.ErrorIs(t, err, service.ErrEmptyCart)
	assert.Zero(t, f.payment.createCalls())
	assert.Zero(t, testutil.Count(t, f.db, &model.Order{}))
}

func TestBeginCheckout_UnknownProduct(t *testing.T) {
	f := newFixture(t)
	testutil.AddProduct(t, f.db, "A", "Headphones", "99.99")

	_, err := f.checkout.BeginCheckout(context.Background(), "anon:1", []service.CartLine{
		{ProductID: "A", Quantity: 1},
		{ProductID: "ghost", Quantity: 1},
	})
	var notFound *service.ProductNotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "ghost", notFound.ProductID)

	assert.Zero(t, f.payment.createCalls())
	assert.Zero(t, testutil.Count(t, f.db, &model.Order{}))
	assert.Equal(t, 1.0, promtestutil.ToFloat64(f.metrics.CheckoutSessions.WithLabelValues("product_not_found")))
}

func TestBeginCheckout_ProviderFailureLeavesUncorrelatedOrder(t *testing.T) {
	f := newFixture(t)
	testutil.AddProduct(t, f.db, "A", "Headphones", "99.99")
	f.payment.createErr = errors.New("connection reset")

	_, err := f.checkout.BeginCheckout(context.Background(), "anon:1", []service.CartLine{
		{ProductID: "A", Quantity: 1},
	})
	require.ErrorIs(t, err, service.ErrProvider)
	assert.ErrorContains(t, err, "connection reset")

	var orders []model.Order
	require.NoError(t, f.db.Find(&orders).Error)
	require.Len(t, orders, 1)
	assert.Equal(t, model.OrderStatusPending, orders[0].Status)
	assert.Nil(t, orders[0].ProviderSessionID)
}
