package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"anoa.com/bayarin/internal/entity"
	"anoa.com/bayarin/internal/modules/reminder/repository"
	"anoa.com/bayarin/pkg/apperror"
	"anoa.com/bayarin/pkg/lock"
	"github.com/google/uuid"
)

// dedupLeaseTTL bounds the check-then-act window in Schedule. Short on
// purpose: a crashed caller only blocks duplicate schedule attempts, which
// are dropped anyway.
const dedupLeaseTTL = 10 * time.Second

// ScheduleParams describes one reminder to create or refresh. Channel is
// optional; when empty the channel router picks one.
type ScheduleParams struct {
	UserID       uuid.UUID
	EntityType   entity.EntityType
	EntityID     uuid.UUID
	Type         entity.ReminderType
	ScheduledFor time.Time
	Channel      entity.Channel
}

type ReminderService interface {
	Schedule(ctx context.Context, params ScheduleParams) error
	Cancel(ctx context.Context, entityType entity.EntityType, entityID uuid.UUID, reminderType entity.ReminderType) error
	CancelAll(ctx context.Context, entityType entity.EntityType, entityID uuid.UUID) error
}

type reminderService struct {
	repo   repository.ReminderRepository
	locker lock.Locker
	router ChannelRouter
}

func NewReminderService(repo repository.ReminderRepository, locker lock.Locker, router ChannelRouter) ReminderService {
	return &reminderService{
		repo:   repo,
		locker: locker,
		router: router,
	}
}

func dedupKey(entityType entity.EntityType, entityID uuid.UUID, reminderType entity.ReminderType) string {
	return fmt.Sprintf("reminder:dedup:%s:%s:%s", entityType, entityID, reminderType)
}

// Schedule upserts the single reminder row for the dedup triple.
//
// Schedule calls for the same event are frequently fired from multiple code
// paths, so contention on the dedup lease is normal: the losing caller drops
// its attempt instead of waiting, the winning caller has already written the
// same row.
func (s *reminderService) Schedule(ctx context.Context, params ScheduleParams) error {
	key := dedupKey(params.EntityType, params.EntityID, params.Type)

	token, ok, err := s.locker.Acquire(ctx, key, dedupLeaseTTL)
	if err != nil {
		return fmt.Errorf("acquire dedup lease: %w", err)
	}
	if !ok {
		log.Printf("duplicate schedule attempt for %s dropped", key)
		return nil
	}
	defer func() {
		if err := s.locker.Release(context.WithoutCancel(ctx), key, token); err != nil {
			log.Printf("failed to release dedup lease %s: %v", key, err)
		}
	}()

	channel := params.Channel
	if channel == "" {
		channel = s.router.BestChannel(ctx, params.UserID, params.Type)
	}

	existing, err := s.repo.FindByDedupKey(ctx, params.EntityType, params.EntityID, params.Type)
	if err != nil && !errors.Is(err, apperror.ErrNotFound) {
		return fmt.Errorf("lookup reminder: %w", err)
	}

	if existing == nil {
		reminder := &entity.Reminder{
			UserID:       params.UserID,
			EntityType:   params.EntityType,
			EntityID:     params.EntityID,
			Type:         params.Type,
			Channel:      channel,
			ScheduledFor: params.ScheduledFor,
			Status:       entity.ReminderScheduled,
		}
		if err := s.repo.Create(ctx, reminder); err != nil {
			return fmt.Errorf("create reminder: %w", err)
		}
		return nil
	}

	switch existing.Status {
	case entity.ReminderSent:
		// Never resurrect a sent reminder.
		return nil
	case entity.ReminderFailed:
		// Terminal; operator follow-up owns it now.
		return nil
	case entity.ReminderCanceled:
		// Reactivation: the business event fired again after a cancel.
		existing.Status = entity.ReminderScheduled
		existing.ScheduledFor = params.ScheduledFor
		existing.Channel = channel
	default:
		existing.ScheduledFor = params.ScheduledFor
	}

	if err := s.repo.Update(ctx, existing); err != nil {
		return fmt.Errorf("update reminder: %w", err)
	}
	return nil
}

// Cancel transitions one scheduled reminder to canceled. No-op when nothing
// matches.
func (s *reminderService) Cancel(ctx context.Context, entityType entity.EntityType, entityID uuid.UUID, reminderType entity.ReminderType) error {
	if _, err := s.repo.CancelOne(ctx, entityType, entityID, reminderType); err != nil {
		return fmt.Errorf("cancel reminder: %w", err)
	}
	return nil
}

// CancelAll cancels every scheduled reminder for an entity, e.g. when a
// request is accepted or a subscription is canceled.
func (s *reminderService) CancelAll(ctx context.Context, entityType entity.EntityType, entityID uuid.UUID) error {
	if _, err := s.repo.CancelAllForEntity(ctx, entityType, entityID); err != nil {
		return fmt.Errorf("cancel reminders: %w", err)
	}
	return nil
}
