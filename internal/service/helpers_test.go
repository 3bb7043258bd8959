package service_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"storefront-checkout/internal/client"
	"storefront-checkout/internal/config"
	"storefront-checkout/internal/metrics"
	"storefront-checkout/internal/model"
	"storefront-checkout/internal/repository"
	"storefront-checkout/internal/service"
	"storefront-checkout/internal/testutil"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const testWebhookSecret = "whsec_test"

type fakePaymentClient struct {
	mu        sync.Mutex
	createErr error
	getErr    error
	created   []*client.CreateSessionParams
	sessions  map[string]*client.CheckoutSession
}

var _ client.PaymentClient = (*fakePaymentClient)(nil)

func newFakePaymentClient() *fakePaymentClient {
	return &fakePaymentClient{sessions: make(map[string]*client.CheckoutSession)}
}

func (f *fakePaymentClient) CreateSession(ctx context.Context, params *client.CreateSessionParams) (*client.CheckoutSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.created = append(f.created, params)
	if f.createErr != nil {
		return nil, f.createErr
	}

	id := fmt.Sprintf("cs_test_%d", len(f.created))
	session := &client.CheckoutSession{
		ID:                id,
		URL:               "https://checkout.example.com/" + id,
		PaymentStatus:     model.SessionPaymentUnpaid,
		ClientReferenceID: params.ClientReferenceID,
	}
	f.sessions[id] = session
	return session, nil
}

func (f *fakePaymentClient) GetSession(ctx context.Context, sessionID string) (*client.CheckoutSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.getErr != nil {
		return nil, f.getErr
	}
	session, ok := f.sessions[sessionID]
	if !ok {
		return nil, &client.APIError{StatusCode: 404, Message: "No such checkout.session"}
	}
	copied := *session
	return &copied, nil
}

func (f *fakePaymentClient) setSession(session *client.CheckoutSession) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sessions[session.ID] = session
}

func (f *fakePaymentClient) createCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.created)
}

type fixture struct {
	db          *gorm.DB
	metrics     *metrics.Metrics
	payment     *fakePaymentClient
	ledger      service.LedgerService
	checkout    service.CheckoutService
	reconciler  service.ReconcileService
	fulfillment repository.FulfillmentEventRepository
}

func newFixture(t *testing.T) *fixture {
	return newFixtureWithPayment(t, config.Payment{
		WebhookSecret:      testWebhookSecret,
		SignatureTolerance: 5 * time.Minute,
	})
}

func newFixtureWithPayment(t *testing.T, paymentCfg config.Payment) *fixture {
	t.Helper()

	db := testutil.NewDB(t)
	log := testutil.Logger()
	m := metrics.New(prometheus.NewRegistry())
	payment := newFakePaymentClient()

	fulfillment := repository.NewFulfillmentEventRepository(db)
	ledger := service.NewLedgerService(log, db, m,
		repository.NewProductRepository(db),
		repository.NewOrderRepository(db),
		fulfillment,
	)

	return &fixture{
		db:          db,
		metrics:     m,
		payment:     payment,
		ledger:      ledger,
		checkout:    service.NewCheckoutService(log, ledger, payment, m, "https://shop.example.com/"),
		reconciler:  service.NewReconcileService(log, ledger, payment, repository.NewWebhookEventRepository(db), m, paymentCfg),
		fulfillment: fulfillment,
	}
}

// correlatedOrder creates a pending order for one unit of a 99.99 product and
// attaches sessionID to it.
func (f *fixture) correlatedOrder(t *testing.T, sessionID string) *model.Order {
	t.Helper()

	testutil.AddProduct(t, f.db, "prod-"+sessionID, "Product "+sessionID, "99.99")
	order, err := f.ledger.CreatePendingOrder(context.Background(), "anon:buyer", []service.CartLine{
		{ProductID: "prod-" + sessionID, Quantity: 1},
	})
	require.NoError(t, err)
	require.NoError(t, f.ledger.AttachProviderSession(context.Background(), order.ID, sessionID))
	return order
}

func (f *fixture) reload(t *testing.T, orderID string) *model.Order {
	t.Helper()

	order, err := f.ledger.GetOrder(context.Background(), service.ByOrderID(orderID))
	require.NoError(t, err)
	return order
}

func (f *fixture) fulfillmentCount(t *testing.T, orderID string) int64 {
	t.Helper()

	count, err := f.fulfillment.CountByOrder(context.Background(), orderID)
	require.NoError(t, err)
	return count
}
