package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"storefront-checkout/internal/metrics"
	"storefront-checkout/internal/model"
	"storefront-checkout/internal/repository"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// CartLine is one requested (product, quantity) pair.
type CartLine struct {
	ProductID string
	Quantity  int
}

// OrderRef addresses an order either by its id or by its checkout session id.
type OrderRef struct {
	OrderID   string
	SessionID string
}

func ByOrderID(orderID string) OrderRef     { return OrderRef{OrderID: orderID} }
func BySessionID(sessionID string) OrderRef { return OrderRef{SessionID: sessionID} }

func (r OrderRef) String() string {
	if r.SessionID != "" {
		return "session " + r.SessionID
	}
	return "order " + r.OrderID
}

type MarkPaidResult struct {
	Order *model.Order
	// true only for the call that performed the pending -> paid transition
	Transitioned bool
}

// LedgerService is the only component that mutates orders and order items.
type LedgerService interface {
	CreatePendingOrder(ctx context.Context, ownerToken string, lines []CartLine) (*model.Order, error)
	AttachProviderSession(ctx context.Context, orderID, sessionID string) error
	MarkPaid(ctx context.Context, ref OrderRef, paymentID, source string) (*MarkPaidResult, error)
	SweepUncorrelated(ctx context.Context, olderThan time.Duration) (int64, error)

	GetOrder(ctx context.Context, ref OrderRef) (*model.Order, error)
	GetOwnedOrder(ctx context.Context, ownerToken, orderID string) (*model.Order, error)
	ListPaidOrders(ctx context.Context, ownerToken string) ([]*model.Order, error)
}

type ledgerServiceImpl struct {
	log             *slog.Logger
	db              *gorm.DB
	metrics         *metrics.Metrics
	productRepo     repository.ProductRepository
	orderRepo       repository.OrderRepository
	fulfillmentRepo repository.FulfillmentEventRepository
}

func NewLedgerService(
	log *slog.Logger,
	db *gorm.DB,
	m *metrics.Metrics,
	productRepo repository.ProductRepository,
	orderRepo repository.OrderRepository,
	fulfillmentRepo repository.FulfillmentEventRepository,
) LedgerService {
	return &ledgerServiceImpl{
		log:             log,
		db:              db,
		metrics:         m,
		productRepo:     productRepo,
		orderRepo:       orderRepo,
		fulfillmentRepo: fulfillmentRepo,
	}
}

// CreatePendingOrder resolves every line and stores the order, its items and
// its total in one transaction. Lines with quantity <= 0 are skipped. If any
// product is missing nothing is stored.
func (s *ledgerServiceImpl) CreatePendingOrder(ctx context.Context, ownerToken string, lines []CartLine) (*model.Order, error) {
	const op = "service.Ledger.CreatePendingOrder"
	logger := s.log.With(slog.String("op", op), slog.String("owner", ownerToken))

	order := &model.Order{
		ID:         uuid.NewString(),
		OwnerToken: ownerToken,
		Status:     model.OrderStatusPending,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		total := decimal.Zero
		for _, line := range lines {
			if line.Quantity <= 0 {
				continue
			}

			product, err := s.productRepo.FindByID(ctx, tx, line.ProductID)
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return &ProductNotFoundError{ProductID: line.ProductID}
			}
			if err != nil {
				return fmt.Errorf("find product %s: %w", line.ProductID, err)
			}

			item := model.OrderItem{
				ProductID:          product.ID,
				ProductName:        product.Name,
				ProductDescription: product.Description,
				Quantity:           line.Quantity,
				Price:              product.Price,
			}
			order.Items = append(order.Items, item)
			total = total.Add(item.Subtotal())
		}

		if len(order.Items) == 0 {
			return ErrEmptyCart
		}
		order.TotalAmount = total

		if err := s.orderRepo.Create(ctx, tx, order); err != nil {
			return fmt.Errorf("store order in db: %w", err)
		}
		return nil
	})
	if err != nil {
		logger.Warn("pending order not created", slog.Any("error", err))
		return nil, err
	}

	logger.Info("pending order created",
		slog.String("order_id", order.ID),
		slog.Int("items", len(order.Items)),
		slog.String("total", order.TotalAmount.StringFixed(2)),
	)
	return order, nil
}

func (s *ledgerServiceImpl) AttachProviderSession(ctx context.Context, orderID, sessionID string) error {
	const op = "service.Ledger.AttachProviderSession"
	logger := s.log.With(slog.String("op", op), slog.String("order_id", orderID), slog.String("session_id", sessionID))

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		order, err := s.orderRepo.FindByID(ctx, tx, orderID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrOrderNotFound
		}
		if err != nil {
			return fmt.Errorf("find order: %w", err)
		}

		if current := order.SessionID(); current != "" {
			if current == sessionID {
				return nil
			}
			return fmt.Errorf("%w: order %s has %s", ErrAlreadyCorrelated, orderID, current)
		}

		ok, err := s.orderRepo.SetSessionID(ctx, tx, orderID, sessionID)
		if err != nil {
			return fmt.Errorf("store session id: %w", err)
		}
		if !ok {
			return fmt.Errorf("%w: order %s", ErrAlreadyCorrelated, orderID)
		}
		return nil
	})
	if err != nil {
		logger.Error("attach provider session failed", slog.Any("error", err))
		return err
	}

	logger.Info("provider session attached")
	return nil
}

// MarkPaid moves a pending order to paid exactly once. Calls for an order that
// is already paid succeed without changing anything, so both reconciliation
// paths and provider retries may call it freely. The status compare-and-swap
// is the only serialization point; the fulfillment event is written by the
// winner inside the same transaction.
func (s *ledgerServiceImpl) MarkPaid(ctx context.Context, ref OrderRef, paymentID, source string) (*MarkPaidResult, error) {
	const op = "service.Ledger.MarkPaid"
	logger := s.log.With(slog.String("op", op), slog.String("ref", ref.String()), slog.String("source", source))

	var (
		orderID      string
		transitioned bool
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		order, err := s.findByRef(ctx, tx, ref)
		if err != nil {
			return err
		}
		orderID = order.ID

		if order.IsPaid() {
			return nil
		}

		won, err := s.orderRepo.MarkPaid(ctx, tx, order.ID, paymentID)
		if err != nil {
			return fmt.Errorf("mark order paid: %w", err)
		}
		if !won {
			return nil
		}

		event, err := newOrderPaidEvent(order, paymentID, source)
		if err != nil {
			return err
		}
		if err := s.fulfillmentRepo.Insert(ctx, tx, event); err != nil {
			return fmt.Errorf("store fulfillment event: %w", err)
		}

		transitioned = true
		return nil
	})
	if err != nil {
		if !errors.Is(err, ErrOrderNotFound) {
			logger.Error("mark paid failed", slog.Any("error", err))
		}
		return nil, err
	}

	// read after commit so every caller observes the settled row
	order, err := s.orderRepo.FindByID(ctx, nil, orderID)
	if err != nil {
		return nil, fmt.Errorf("reload order: %w", err)
	}

	if transitioned {
		s.metrics.OrderTransitions.WithLabelValues(source).Inc()
		logger.Info("order paid", slog.String("order_id", order.ID), slog.String("payment_id", paymentID))
	} else {
		logger.Debug("order already paid", slog.String("order_id", order.ID))
	}

	return &MarkPaidResult{Order: order, Transitioned: transitioned}, nil
}

func (s *ledgerServiceImpl) SweepUncorrelated(ctx context.Context, olderThan time.Duration) (int64, error) {
	const op = "service.Ledger.SweepUncorrelated"
	logger := s.log.With(slog.String("op", op))

	var deleted int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		deleted, err = s.orderRepo.DeleteUncorrelatedPending(ctx, tx, time.Now().Add(-olderThan))
		return err
	})
	if err != nil {
		logger.Error("sweep failed", slog.Any("error", err))
		return 0, fmt.Errorf("sweep pending orders: %w", err)
	}

	logger.Info("swept uncorrelated pending orders", slog.Int64("deleted", deleted))
	return deleted, nil
}

func (s *ledgerServiceImpl) GetOrder(ctx context.Context, ref OrderRef) (*model.Order, error) {
	return s.findByRef(ctx, nil, ref)
}

func (s *ledgerServiceImpl) GetOwnedOrder(ctx context.Context, ownerToken, orderID string) (*model.Order, error) {
	order, err := s.orderRepo.FindByOwner(ctx, ownerToken, orderID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find order: %w", err)
	}
	return order, nil
}

func (s *ledgerServiceImpl) ListPaidOrders(ctx context.Context, ownerToken string) ([]*model.Order, error) {
	orders, err := s.orderRepo.ListByOwner(ctx, ownerToken, model.OrderStatusPaid)
	if err != nil {
		return nil, fmt.Errorf("list paid orders: %w", err)
	}
	return orders, nil
}

func (s *ledgerServiceImpl) findByRef(ctx context.Context, tx *gorm.DB, ref OrderRef) (*model.Order, error) {
	var (
		order *model.Order
		err   error
	)
	switch {
	case ref.SessionID != "":
		order, err = s.orderRepo.FindBySessionID(ctx, tx, ref.SessionID)
	case ref.OrderID != "":
		order, err = s.orderRepo.FindByID(ctx, tx, ref.OrderID)
	default:
		return nil, ErrOrderNotFound
	}

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", ref, err)
	}
	return order, nil
}

type orderPaidPayload struct {
	OrderID     string                 `json:"order_id"`
	OwnerToken  string                 `json:"owner_token"`
	SessionID   string                 `json:"session_id"`
	PaymentID   string                 `json:"payment_id"`
	TotalAmount string                 `json:"total_amount"`
	Source      string                 `json:"source"`
	PaidAt      time.Time              `json:"paid_at"`
	Items       []orderPaidPayloadItem `json:"items"`
}

type orderPaidPayloadItem struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
	Price     string `json:"price"`
}

func newOrderPaidEvent(order *model.Order, paymentID, source string) (*model.FulfillmentEvent, error) {
	payload := orderPaidPayload{
		OrderID:     order.ID,
		OwnerToken:  order.OwnerToken,
		SessionID:   order.SessionID(),
		PaymentID:   paymentID,
		TotalAmount: order.TotalAmount.StringFixed(2),
		Source:      source,
		PaidAt:      time.Now().UTC(),
	}
	for _, item := range order.Items {
		payload.Items = append(payload.Items, orderPaidPayloadItem{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			Price:     item.Price.StringFixed(2),
		})
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal fulfillment payload: %w", err)
	}

	return &model.FulfillmentEvent{
		EventID: uuid.NewString(),
		OrderID: order.ID,
		Type:    model.FulfillmentOrderPaid,
		Payload: string(data),
	}, nil
}
