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

type UserRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*entity.User, error)
	FindPreferences(ctx context.Context, userID uuid.UUID) (*entity.NotificationPreference, error)
	ListIncompleteOnboarding(ctx context.Context, signedUpBefore time.Time) ([]entity.User, error)
}

type userRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.User, error) {
	var user entity.User
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

// FindPreferences returns apperror.ErrNotFound when the user never touched
// their notification settings; callers treat that as everything enabled.
func (r *userRepository) FindPreferences(ctx context.Context, userID uuid.UUID) (*entity.NotificationPreference, error) {
	var prefs entity.NotificationPreference
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&prefs).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.ErrNotFound
		}
		return nil, err
	}
	return &prefs, nil
}

func (r *userRepository) ListIncompleteOnboarding(ctx context.Context, signedUpBefore time.Time) ([]entity.User, error) {
	var users []entity.User
	err := r.db.WithContext(ctx).
		Where("onboarding_completed = ? AND created_at < ?", false, signedUpBefore).
		Find(&users).Error
	return users, err
}
