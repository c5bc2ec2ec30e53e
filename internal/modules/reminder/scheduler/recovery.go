package scheduler

import (
	"context"
	"fmt"
	"log"
	"time"

	"anoa.com/bayarin/internal/entity"
	reminderRepo "anoa.com/bayarin/internal/modules/reminder/repository"
	requestRepo "anoa.com/bayarin/internal/modules/request/repository"
	subscriptionRepo "anoa.com/bayarin/internal/modules/subscription/repository"
	userRepo "anoa.com/bayarin/internal/modules/user/repository"
	"github.com/google/uuid"
)

// RecoveryScanner backfills reminder chains for entities that have no
// reminder rows at all, e.g. after an incident or a deploy that dropped
// events. Safe to re-run any number of times: scheduling is idempotent via
// the dedup key.
type RecoveryScanner struct {
	reminders     reminderRepo.ReminderRepository
	requests      requestRepo.RequestRepository
	subscriptions subscriptionRepo.SubscriptionRepository
	users         userRepo.UserRepository

	requestSched      *RequestScheduler
	engagementSched   *EngagementScheduler
	subscriptionSched *SubscriptionScheduler

	now func() time.Time
}

func NewRecoveryScanner(
	reminders reminderRepo.ReminderRepository,
	requests requestRepo.RequestRepository,
	subscriptions subscriptionRepo.SubscriptionRepository,
	users userRepo.UserRepository,
	requestSched *RequestScheduler,
	engagementSched *EngagementScheduler,
	subscriptionSched *SubscriptionScheduler,
) *RecoveryScanner {
	return &RecoveryScanner{
		reminders:         reminders,
		requests:          requests,
		subscriptions:     subscriptions,
		users:             users,
		requestSched:      requestSched,
		engagementSched:   engagementSched,
		subscriptionSched: subscriptionSched,
		now:               time.Now,
	}
}

// ScanAndScheduleMissedReminders returns how many entities got a reminder
// chain backfilled. A failure on one entity is logged and skipped; the scan
// keeps going.
func (s *RecoveryScanner) ScanAndScheduleMissedReminders(ctx context.Context) (int, error) {
	now := s.now()
	count := 0

	// 1. Requests still waiting on the client with zero reminder rows. An
	// opened request gets the opened-stage chain, not the sent-stage one.
	requests, err := s.requests.ListAwaiting(ctx, now)
	if err != nil {
		return count, fmt.Errorf("list awaiting requests: %w", err)
	}
	for _, request := range requests {
		n, err := s.reminders.CountForEntity(ctx, entity.EntityRequest, request.ID)
		if err != nil {
			log.Printf("recovery: count reminders for request %s: %v", request.ID, err)
			continue
		}
		if n > 0 {
			continue
		}
		if request.Status == entity.RequestOpened {
			err = s.requestSched.OnRequestOpened(ctx, request.ID)
		} else {
			err = s.requestSched.OnRequestSent(ctx, request.ID)
		}
		if err != nil {
			log.Printf("recovery: reschedule request %s: %v", request.ID, err)
			continue
		}
		if s.backfilled(ctx, entity.EntityRequest, request.ID) {
			count++
		}
	}

	// 2. Users past 24h with incomplete onboarding and no reminder history.
	users, err := s.users.ListIncompleteOnboarding(ctx, now.Add(-24*time.Hour))
	if err != nil {
		return count, fmt.Errorf("list incomplete onboarding: %w", err)
	}
	for _, user := range users {
		n, err := s.reminders.CountForEntity(ctx, entity.EntityProfile, user.ID)
		if err != nil {
			log.Printf("recovery: count reminders for user %s: %v", user.ID, err)
			continue
		}
		if n > 0 {
			continue
		}
		if err := s.engagementSched.OnUserSignup(ctx, user.ID); err != nil {
			log.Printf("recovery: reschedule onboarding for user %s: %v", user.ID, err)
			continue
		}
		if s.backfilled(ctx, entity.EntityProfile, user.ID) {
			count++
		}
	}

	// 3. Renewing subscriptions with no pre-notice rows.
	subscriptions, err := s.subscriptions.ListRenewing(ctx, now)
	if err != nil {
		return count, fmt.Errorf("list renewing subscriptions: %w", err)
	}
	for _, sub := range subscriptions {
		n, err := s.reminders.CountForEntity(ctx, entity.EntitySubscription, sub.ID)
		if err != nil {
			log.Printf("recovery: count reminders for subscription %s: %v", sub.ID, err)
			continue
		}
		if n > 0 {
			continue
		}
		if err := s.subscriptionSched.OnSubscriptionRenewed(ctx, sub.ID); err != nil {
			log.Printf("recovery: reschedule subscription %s: %v", sub.ID, err)
			continue
		}
		if s.backfilled(ctx, entity.EntitySubscription, sub.ID) {
			count++
		}
	}

	return count, nil
}

// backfilled re-counts after a scheduler call: the returned total only
// reflects entities that actually got rows, not entities that were enumerated
// and turned out to need nothing.
func (s *RecoveryScanner) backfilled(ctx context.Context, entityType entity.EntityType, entityID uuid.UUID) bool {
	n, err := s.reminders.CountForEntity(ctx, entityType, entityID)
	if err != nil {
		log.Printf("recovery: recount reminders for %s %s: %v", entityType, entityID, err)
		return false
	}
	return n > 0
}
