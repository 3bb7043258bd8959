package repository

import (
	"context"
	"storefront-checkout/internal/model"
	"time"

	"gorm.io/gorm"
)

type FulfillmentEventRepository interface {
	Insert(ctx context.Context, tx *gorm.DB, event *model.FulfillmentEvent) error
	FetchPending(ctx context.Context, limit int) ([]*model.FulfillmentEvent, error)
	MarkSent(ctx context.Context, id uint) error
	CountByOrder(ctx context.Context, orderID string) (int64, error)
}

type fulfillmentEventRepoImpl struct {
	db *gorm.DB
}

func NewFulfillmentEventRepository(db *gorm.DB) FulfillmentEventRepository {
	return &fulfillmentEventRepoImpl{
		db: db,
	}
}

func (r *fulfillmentEventRepoImpl) Insert(ctx context.Context, tx *gorm.DB, event *model.FulfillmentEvent) error {
	return tx.WithContext(ctx).Create(event).Error
}

func (r *fulfillmentEventRepoImpl) FetchPending(ctx context.Context, limit int) ([]*model.FulfillmentEvent, error) {
	var events []*model.FulfillmentEvent
	err := r.db.WithContext(ctx).
		Where("sent_at IS NULL").
		Order("id").
		Limit(limit).
		Find(&events).Error

	if err != nil {
		return nil, err
	}

	return events, nil
}

func (r *fulfillmentEventRepoImpl) MarkSent(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Model(&model.FulfillmentEvent{}).
		Where("id = ?", id).
		Update("sent_at", time.Now()).Error
}

func (r *fulfillmentEventRepoImpl) CountByOrder(ctx context.Context, orderID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.FulfillmentEvent{}).
		Where("order_id = ?", orderID).
		Count(&count).Error

	return count, err
}
