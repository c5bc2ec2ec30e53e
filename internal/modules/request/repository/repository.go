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

// RequestRepository is a read-only view of payment requests. The billing
// service owns the table; this engine only validates eligibility against it.
type RequestRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*entity.PaymentRequest, error)
	ListAwaiting(ctx context.Context, now time.Time) ([]entity.PaymentRequest, error)
}

type requestRepository struct {
	db *gorm.DB
}

func NewRequestRepository(db *gorm.DB) RequestRepository {
	return &requestRepository{db: db}
}

func (r *requestRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.PaymentRequest, error) {
	var request entity.PaymentRequest
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&request).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.ErrNotFound
		}
		return nil, err
	}
	return &request, nil
}

// ListAwaiting returns unexpired requests still waiting on the client.
func (r *requestRepository) ListAwaiting(ctx context.Context, now time.Time) ([]entity.PaymentRequest, error) {
	var requests []entity.PaymentRequest
	err := r.db.WithContext(ctx).
		Where("status IN ? AND paid_at IS NULL AND (expires_at IS NULL OR expires_at > ?)",
			[]entity.RequestStatus{entity.RequestAwaiting, entity.RequestOpened}, now).
		Find(&requests).Error
	return requests, err
}
