// Package scheduler holds the stateless domain schedulers: they translate
// business events into calls on the scheduling primitives and own no storage
// of their own.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"anoa.com/bayarin/internal/entity"
	reminderService "anoa.com/bayarin/internal/modules/reminder/service"
	requestRepo "anoa.com/bayarin/internal/modules/request/repository"
	"anoa.com/bayarin/pkg/apperror"
	"github.com/google/uuid"
)

type RequestScheduler struct {
	reminders reminderService.ReminderService
	requests  requestRepo.RequestRepository
	now       func() time.Time
}

func NewRequestScheduler(reminders reminderService.ReminderService, requests requestRepo.RequestRepository) *RequestScheduler {
	return &RequestScheduler{
		reminders: reminders,
		requests:  requests,
		now:       time.Now,
	}
}

// OnRequestSent schedules the full chain for a freshly sent payment request:
// unopened nudges at 24h/72h, an expiry warning, and the invoice due/overdue
// pair. Dispatch handlers re-validate, so a request resolved before any of
// these fire costs nothing.
func (s *RequestScheduler) OnRequestSent(ctx context.Context, requestID uuid.UUID) error {
	request, err := s.requests.FindByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("load request: %w", err)
	}

	// Only requests still waiting on the client get a reminder chain.
	if request.SentAt == nil || request.Status != entity.RequestAwaiting || !request.AwaitingResponse(s.now()) {
		return nil
	}

	sentAt := *request.SentAt

	if err := s.reminders.Schedule(ctx, reminderService.ScheduleParams{
		UserID:       request.UserID,
		EntityType:   entity.EntityRequest,
		EntityID:     request.ID,
		Type:         entity.ReminderRequestUnopened24h,
		ScheduledFor: sentAt.Add(24 * time.Hour),
	}); err != nil {
		return err
	}

	if err := s.reminders.Schedule(ctx, reminderService.ScheduleParams{
		UserID:       request.UserID,
		EntityType:   entity.EntityRequest,
		EntityID:     request.ID,
		Type:         entity.ReminderRequestUnopened72h,
		ScheduledFor: sentAt.Add(72 * time.Hour),
	}); err != nil {
		return err
	}

	if request.ExpiresAt != nil {
		if err := s.reminders.Schedule(ctx, reminderService.ScheduleParams{
			UserID:       request.UserID,
			EntityType:   entity.EntityRequest,
			EntityID:     request.ID,
			Type:         entity.ReminderRequestExpiring,
			ScheduledFor: request.ExpiresAt.Add(-24 * time.Hour),
		}); err != nil {
			return err
		}
	}

	if request.DueAt != nil {
		if err := s.reminders.Schedule(ctx, reminderService.ScheduleParams{
			UserID:       request.UserID,
			EntityType:   entity.EntityInvoice,
			EntityID:     request.ID,
			Type:         entity.ReminderInvoiceDue,
			ScheduledFor: *request.DueAt,
		}); err != nil {
			return err
		}

		if err := s.reminders.Schedule(ctx, reminderService.ScheduleParams{
			UserID:       request.UserID,
			EntityType:   entity.EntityInvoice,
			EntityID:     request.ID,
			Type:         entity.ReminderInvoiceOverdue,
			ScheduledFor: request.DueAt.Add(72 * time.Hour),
		}); err != nil {
			return err
		}
	}

	return nil
}

// OnRequestOpened retires the unopened nudges and starts the unpaid timer
// three days out.
func (s *RequestScheduler) OnRequestOpened(ctx context.Context, requestID uuid.UUID) error {
	request, err := s.requests.FindByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("load request: %w", err)
	}

	if err := s.reminders.Cancel(ctx, entity.EntityRequest, request.ID, entity.ReminderRequestUnopened24h); err != nil {
		return err
	}
	if err := s.reminders.Cancel(ctx, entity.EntityRequest, request.ID, entity.ReminderRequestUnopened72h); err != nil {
		return err
	}

	if request.OpenedAt == nil || request.PaidAt != nil {
		return nil
	}

	return s.reminders.Schedule(ctx, reminderService.ScheduleParams{
		UserID:       request.UserID,
		EntityType:   entity.EntityRequest,
		EntityID:     request.ID,
		Type:         entity.ReminderRequestUnpaid3d,
		ScheduledFor: request.OpenedAt.Add(72 * time.Hour),
	})
}

// OnRequestResolved cancels the entire chain once the client paid, declined,
// or the request expired. A row already claimed under a processing lease will
// finish its current attempt; its handler re-validates before sending.
func (s *RequestScheduler) OnRequestResolved(ctx context.Context, requestID uuid.UUID) error {
	if err := s.reminders.CancelAll(ctx, entity.EntityRequest, requestID); err != nil {
		return err
	}
	return s.reminders.CancelAll(ctx, entity.EntityInvoice, requestID)
}
