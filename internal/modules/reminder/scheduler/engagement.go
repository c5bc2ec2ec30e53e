package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"anoa.com/bayarin/internal/entity"
	reminderService "anoa.com/bayarin/internal/modules/reminder/service"
	userRepo "anoa.com/bayarin/internal/modules/user/repository"
	"anoa.com/bayarin/pkg/apperror"
	"github.com/google/uuid"
)

type EngagementScheduler struct {
	reminders reminderService.ReminderService
	users     userRepo.UserRepository
	now       func() time.Time
}

func NewEngagementScheduler(reminders reminderService.ReminderService, users userRepo.UserRepository) *EngagementScheduler {
	return &EngagementScheduler{
		reminders: reminders,
		users:     users,
		now:       time.Now,
	}
}

// OnUserSignup schedules the onboarding nudges at 24h/72h after signup, plus
// a verification nudge for unverified accounts.
func (s *EngagementScheduler) OnUserSignup(ctx context.Context, userID uuid.UUID) error {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("load user: %w", err)
	}

	if !user.OnboardingCompleted {
		if err := s.reminders.Schedule(ctx, reminderService.ScheduleParams{
			UserID:       user.ID,
			EntityType:   entity.EntityProfile,
			EntityID:     user.ID,
			Type:         entity.ReminderOnboarding24h,
			ScheduledFor: user.CreatedAt.Add(24 * time.Hour),
		}); err != nil {
			return err
		}

		if err := s.reminders.Schedule(ctx, reminderService.ScheduleParams{
			UserID:       user.ID,
			EntityType:   entity.EntityProfile,
			EntityID:     user.ID,
			Type:         entity.ReminderOnboarding72h,
			ScheduledFor: user.CreatedAt.Add(72 * time.Hour),
		}); err != nil {
			return err
		}
	}

	if !user.Verified {
		if err := s.reminders.Schedule(ctx, reminderService.ScheduleParams{
			UserID:       user.ID,
			EntityType:   entity.EntityUser,
			EntityID:     user.ID,
			Type:         entity.ReminderVerification,
			ScheduledFor: user.CreatedAt.Add(72 * time.Hour),
		}); err != nil {
			return err
		}
	}

	return nil
}

// OnOnboardingCompleted retires the onboarding pair. The verification nudge
// stays; completing onboarding does not verify identity.
func (s *EngagementScheduler) OnOnboardingCompleted(ctx context.Context, userID uuid.UUID) error {
	if err := s.reminders.Cancel(ctx, entity.EntityProfile, userID, entity.ReminderOnboarding24h); err != nil {
		return err
	}
	return s.reminders.Cancel(ctx, entity.EntityProfile, userID, entity.ReminderOnboarding72h)
}

// OnCreatorActivated schedules the no-subscribers nudge a week after a
// creator publishes their membership page.
func (s *EngagementScheduler) OnCreatorActivated(ctx context.Context, userID uuid.UUID) error {
	return s.reminders.Schedule(ctx, reminderService.ScheduleParams{
		UserID:       userID,
		EntityType:   entity.EntityUser,
		EntityID:     userID,
		Type:         entity.ReminderNoSubscribers,
		ScheduledFor: s.now().Add(7 * 24 * time.Hour),
	})
}
