package repository

import (
	"context"
	"storefront-checkout/internal/model"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type OrderRepository interface {
	Create(ctx context.Context, tx *gorm.DB, order *model.Order) error
	FindByID(ctx context.Context, tx *gorm.DB, orderID string) (*model.Order, error)
	FindBySessionID(ctx context.Context, tx *gorm.DB, sessionID string) (*model.Order, error)
	FindByOwner(ctx context.Context, ownerToken, orderID string) (*model.Order, error)
	ListByOwner(ctx context.Context, ownerToken string, status model.OrderStatus) ([]*model.Order, error)
	SetSessionID(ctx context.Context, tx *gorm.DB, orderID, sessionID string) (bool, error)
	MarkPaid(ctx context.Context, tx *gorm.DB, orderID, paymentID string) (bool, error)
	DeleteUncorrelatedPending(ctx context.Context, tx *gorm.DB, createdBefore time.Time) (int64, error)
}

type orderRepoImpl struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) OrderRepository {
	return &orderRepoImpl{
		db: db,
	}
}

// Create inserts the order together with its Items.
func (r *orderRepoImpl) Create(ctx context.Context, tx *gorm.DB, order *model.Order) error {
	return tx.WithContext(ctx).Create(order).Error
}

func (r *orderRepoImpl) FindByID(ctx context.Context, tx *gorm.DB, orderID string) (*model.Order, error) {
	var order model.Order
	err := withItems(conn(r.db, tx).WithContext(ctx)).
		Where("id = ?", orderID).
		First(&order).Error

	if err != nil {
		return nil, err
	}

	return &order, nil
}

func (r *orderRepoImpl) FindBySessionID(ctx context.Context, tx *gorm.DB, sessionID string) (*model.Order, error) {
	var order model.Order
	err := withItems(conn(r.db, tx).WithContext(ctx)).
		Where("provider_session_id = ?", sessionID).
		First(&order).Error

	if err != nil {
		return nil, err
	}

	return &order, nil
}

func (r *orderRepoImpl) FindByOwner(ctx context.Context, ownerToken, orderID string) (*model.Order, error) {
	var order model.Order
	err := withItems(r.db.WithContext(ctx)).
		Where("id = ? AND owner_token = ?", orderID, ownerToken).
		First(&order).Error

	if err != nil {
		return nil, err
	}

	return &order, nil
}

func (r *orderRepoImpl) ListByOwner(ctx context.Context, ownerToken string, status model.OrderStatus) ([]*model.Order, error) {
	var orders []*model.Order
	err := withItems(r.db.WithContext(ctx)).
		Where("owner_token = ? AND status = ?", ownerToken, status).
		Order("created_at DESC").
		Find(&orders).Error

	if err != nil {
		return nil, err
	}

	return orders, nil
}

// SetSessionID records the session id only while none is recorded yet.
func (r *orderRepoImpl) SetSessionID(ctx context.Context, tx *gorm.DB, orderID, sessionID string) (bool, error) {
	result := tx.WithContext(ctx).Model(&model.Order{}).
		Where("id = ? AND provider_session_id IS NULL", orderID).
		Updates(map[string]interface{}{
			"provider_session_id": sessionID,
			"updated_at":          time.Now(),
		})

	return result.RowsAffected == 1, result.Error
}

// MarkPaid is a compare-and-swap on status: it reports true only for the
// caller whose update moved the row out of pending.
func (r *orderRepoImpl) MarkPaid(ctx context.Context, tx *gorm.DB, orderID, paymentID string) (bool, error) {
	result := tx.WithContext(ctx).Model(&model.Order{}).
		Where("id = ? AND status = ?", orderID, model.OrderStatusPending).
		Updates(map[string]interface{}{
			"status":              model.OrderStatusPaid,
			"provider_payment_id": paymentID,
			"updated_at":          time.Now(),
		})

	return result.RowsAffected == 1, result.Error
}

// DeleteUncorrelatedPending removes pending orders that never got a checkout
// session, along with their items. Candidate rows are locked for the rest of
// tx, and items are only removed for orders that still qualify, so a session
// attached concurrently keeps its order whole.
func (r *orderRepoImpl) DeleteUncorrelatedPending(ctx context.Context, tx *gorm.DB, createdBefore time.Time) (int64, error) {
	var orderIDs []string
	err := tx.WithContext(ctx).Model(&model.Order{}).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("status = ? AND provider_session_id IS NULL AND created_at < ?", model.OrderStatusPending, createdBefore).
		Pluck("id", &orderIDs).Error
	if err != nil {
		return 0, err
	}
	if len(orderIDs) == 0 {
		return 0, nil
	}

	stillUncorrelated := tx.WithContext(ctx).Model(&model.Order{}).Select("id").
		Where("id IN ? AND status = ? AND provider_session_id IS NULL", orderIDs, model.OrderStatusPending)
	if err := tx.WithContext(ctx).Where("order_id IN (?)", stillUncorrelated).Delete(&model.OrderItem{}).Error; err != nil {
		return 0, err
	}

	result := tx.WithContext(ctx).
		Where("id IN ? AND status = ? AND provider_session_id IS NULL", orderIDs, model.OrderStatusPending).
		Delete(&model.Order{})

	return result.RowsAffected, result.Error
}

func withItems(db *gorm.DB) *gorm.DB {
	return db.Preload("Items", func(db *gorm.DB) *gorm.DB {
		return db.Order("id")
	})
}
