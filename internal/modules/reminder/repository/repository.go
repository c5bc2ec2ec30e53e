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

type ReminderRepository interface {
	Create(ctx context.Context, reminder *entity.Reminder) error
	Update(ctx context.Context, reminder *entity.Reminder) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Reminder, error)
	FindByDedupKey(ctx context.Context, entityType entity.EntityType, entityID uuid.UUID, reminderType entity.ReminderType) (*entity.Reminder, error)
	ListDue(ctx context.Context, now time.Time, limit int) ([]entity.Reminder, error)
	CancelOne(ctx context.Context, entityType entity.EntityType, entityID uuid.UUID, reminderType entity.ReminderType) (int64, error)
	CancelAllForEntity(ctx context.Context, entityType entity.EntityType, entityID uuid.UUID) (int64, error)
	CountForEntity(ctx context.Context, entityType entity.EntityType, entityID uuid.UUID) (int64, error)
}

type reminderRepository struct {
	db *gorm.DB
}

func NewReminderRepository(db *gorm.DB) ReminderRepository {
	return &reminderRepository{db: db}
}

func (r *reminderRepository) Create(ctx context.Context, reminder *entity.Reminder) error {
	return r.db.WithContext(ctx).Create(reminder).Error
}

func (r *reminderRepository) Update(ctx context.Context, reminder *entity.Reminder) error {
	return r.db.WithContext(ctx).Save(reminder).Error
}

func (r *reminderRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Reminder, error) {
	var reminder entity.Reminder
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&reminder).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.ErrNotFound
		}
		return nil, err
	}
	return &reminder, nil
}

// FindByDedupKey looks up the single row for a (entity_type, entity_id, type)
// triple. Returns apperror.ErrNotFound when no row exists yet.
func (r *reminderRepository) FindByDedupKey(ctx context.Context, entityType entity.EntityType, entityID uuid.UUID, reminderType entity.ReminderType) (*entity.Reminder, error) {
	var reminder entity.Reminder
	err := r.db.WithContext(ctx).
		Where("entity_type = ? AND entity_id = ? AND type = ?", entityType, entityID, reminderType).
		First(&reminder).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.ErrNotFound
		}
		return nil, err
	}
	return &reminder, nil
}

// ListDue returns up to limit scheduled rows that are due at now, oldest due
// first. The read runs without any lease; callers must re-check each row
// after claiming it.
func (r *reminderRepository) ListDue(ctx context.Context, now time.Time, limit int) ([]entity.Reminder, error) {
	var reminders []entity.Reminder
	err := r.db.WithContext(ctx).
		Where("status = ? AND scheduled_for <= ?", entity.ReminderScheduled, now).
		Order("scheduled_for asc").
		Limit(limit).
		Find(&reminders).Error
	return reminders, err
}

func (r *reminderRepository) CancelOne(ctx context.Context, entityType entity.EntityType, entityID uuid.UUID, reminderType entity.ReminderType) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&entity.Reminder{}).
		Where("entity_type = ? AND entity_id = ? AND type = ? AND status = ?",
			entityType, entityID, reminderType, entity.ReminderScheduled).
		Update("status", entity.ReminderCanceled)
	return res.RowsAffected, res.Error
}

func (r *reminderRepository) CancelAllForEntity(ctx context.Context, entityType entity.EntityType, entityID uuid.UUID) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&entity.Reminder{}).
		Where("entity_type = ? AND entity_id = ? AND status = ?",
			entityType, entityID, entity.ReminderScheduled).
		Update("status", entity.ReminderCanceled)
	return res.RowsAffected, res.Error
}

// CountForEntity counts reminder rows of any status for an entity. Used by
// the recovery scanner to find entities with no reminder history at all.
func (r *reminderRepository) CountForEntity(ctx context.Context, entityType entity.EntityType, entityID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&entity.Reminder{}).
		Where("entity_type = ? AND entity_id = ?", entityType, entityID).
		Count(&count).Error
	return count, err
}
