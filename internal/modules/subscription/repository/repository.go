package repository

import (
	"context"
	"errors"
	"time"

	"anoa.com/bayarin/internal/entity"
	"anoa.com/bayarin/pkg/apperror"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SubscriptionRepository is a read-only view of subscriptions, owned by the
// billing service.
type SubscriptionRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Subscription, error)
	ListRenewing(ctx context.Context, now time.Time) ([]entity.Subscription, error)
}

type subscriptionRepository struct {
	db *gorm.DB
}

func NewSubscriptionRepository(db *gorm.DB) SubscriptionRepository {
	return &subscriptionRepository{db: db}
}

func (r *subscriptionRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Subscription, error) {
	var sub entity.Subscription
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&sub).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.ErrNotFound
		}
		return nil, err
	}
	return &sub, nil
}

// ListRenewing returns recurring subscriptions that will charge again after
// now and are not on their way out.
func (r *subscriptionRepository) ListRenewing(ctx context.Context, now time.Time) ([]entity.Subscription, error) {
	var subs []entity.Subscription
	err := r.db.WithContext(ctx).
		Where(`status IN ? AND "interval" <> ? AND cancel_at_period_end = ? AND current_period_end > ?`,
			[]entity.SubscriptionStatus{entity.SubscriptionActive, entity.SubscriptionTrialing},
			entity.IntervalOneTime, false, now).
		Find(&subs).Error
	return subs, err
}
