package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"anoa.com/bayarin/internal/entity"
	reminderService "anoa.com/bayarin/internal/modules/reminder/service"
	subscriptionRepo "anoa.com/bayarin/internal/modules/subscription/repository"
	"anoa.com/bayarin/pkg/apperror"
	"github.com/google/uuid"
)

type SubscriptionScheduler struct {
	reminders     reminderService.ReminderService
	subscriptions subscriptionRepo.SubscriptionRepository
	now           func() time.Time
}

func NewSubscriptionScheduler(reminders reminderService.ReminderService, subscriptions subscriptionRepo.SubscriptionRepository) *SubscriptionScheduler {
	return &SubscriptionScheduler{
		reminders:     reminders,
		subscriptions: subscriptions,
		now:           time.Now,
	}
}

// OnSubscriptionRenewed schedules the renewal pre-notices at T-7d/T-3d/T-1d
// before the new period end. These satisfy card-network advance-notice rules
// and must not be silently skipped; a notice whose slot already passed still
// gets scheduled and goes out on the next processing run.
func (s *SubscriptionScheduler) OnSubscriptionRenewed(ctx context.Context, subscriptionID uuid.UUID) error {
	sub, err := s.subscriptions.FindByID(ctx, subscriptionID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("load subscription: %w", err)
	}

	// One-time purchases, canceled and cancel-pending subscriptions never
	// charge again, so they get no pre-notices.
	if !sub.Renewing() {
		return nil
	}

	preNotices := []struct {
		reminderType entity.ReminderType
		lead         time.Duration
	}{
		{entity.ReminderRenewal7d, 7 * 24 * time.Hour},
		{entity.ReminderRenewal3d, 3 * 24 * time.Hour},
		{entity.ReminderRenewal1d, 24 * time.Hour},
	}

	for _, n := range preNotices {
		if err := s.reminders.Schedule(ctx, reminderService.ScheduleParams{
			UserID:       sub.SubscriberID,
			EntityType:   entity.EntitySubscription,
			EntityID:     sub.ID,
			Type:         n.reminderType,
			ScheduledFor: sub.CurrentPeriodEnd.Add(-n.lead),
		}); err != nil {
			return err
		}
	}

	if sub.Status == entity.SubscriptionTrialing && sub.TrialEnd != nil {
		if err := s.reminders.Schedule(ctx, reminderService.ScheduleParams{
			UserID:       sub.SubscriberID,
			EntityType:   entity.EntitySubscription,
			EntityID:     sub.ID,
			Type:         entity.ReminderTrialEnding,
			ScheduledFor: sub.TrialEnd.Add(-3 * 24 * time.Hour),
		}); err != nil {
			return err
		}
	}

	return nil
}

// OnPaymentFailed schedules an immediate payment-failed notice.
func (s *SubscriptionScheduler) OnPaymentFailed(ctx context.Context, subscriptionID uuid.UUID) error {
	sub, err := s.subscriptions.FindByID(ctx, subscriptionID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("load subscription: %w", err)
	}

	return s.reminders.Schedule(ctx, reminderService.ScheduleParams{
		UserID:       sub.SubscriberID,
		EntityType:   entity.EntitySubscription,
		EntityID:     sub.ID,
		Type:         entity.ReminderPaymentFailed,
		ScheduledFor: s.now(),
	})
}

// OnSubscriptionPastDue schedules an immediate past-due notice.
func (s *SubscriptionScheduler) OnSubscriptionPastDue(ctx context.Context, subscriptionID uuid.UUID) error {
	sub, err := s.subscriptions.FindByID(ctx, subscriptionID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("load subscription: %w", err)
	}

	return s.reminders.Schedule(ctx, reminderService.ScheduleParams{
		UserID:       sub.SubscriberID,
		EntityType:   entity.EntitySubscription,
		EntityID:     sub.ID,
		Type:         entity.ReminderPastDue,
		ScheduledFor: s.now(),
	})
}

// OnSubscriptionCanceled cancels all pending reminders for the subscription.
func (s *SubscriptionScheduler) OnSubscriptionCanceled(ctx context.Context, subscriptionID uuid.UUID) error {
	return s.reminders.CancelAll(ctx, entity.EntitySubscription, subscriptionID)
}
