package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"anoa.com/bayarin/internal/entity"
	"anoa.com/bayarin/internal/modules/reminder/repository"
	"anoa.com/bayarin/pkg/lock"
	"github.com/google/uuid"
)

const (
	// processBatchSize caps one invocation; backlog beyond it waits for the
	// next cycle, keeping worst-case latency bounded.
	processBatchSize = 100

	// processLeaseTTL bounds how long a crashed worker can hold a row before
	// another run may claim it.
	processLeaseTTL = 60 * time.Second

	retryDelay  = time.Hour
	maxAttempts = 3
)

// ReminderError describes one reminder that errored during a processing run.
type ReminderError struct {
	ReminderID uuid.UUID `json:"reminder_id"`
	Message    string    `json:"message"`
}

// Result is the aggregate summary of one processing run.
type Result struct {
	Processed int             `json:"processed"`
	Sent      int             `json:"sent"`
	Failed    int             `json:"failed"`
	Errors    []ReminderError `json:"errors,omitempty"`
}

type Processor interface {
	// ProcessDueReminders claims and dispatches due reminders. A zero now
	// means the wall clock; tests pass an explicit instant.
	ProcessDueReminders(ctx context.Context, now time.Time) (*Result, error)
}

type processor struct {
	repo       repository.ReminderRepository
	locker     lock.Locker
	router     ChannelRouter
	dispatcher *Dispatcher
}

func NewProcessor(repo repository.ReminderRepository, locker lock.Locker, router ChannelRouter, dispatcher *Dispatcher) Processor {
	return &processor{
		repo:       repo,
		locker:     locker,
		router:     router,
		dispatcher: dispatcher,
	}
}

func (p *processor) ProcessDueReminders(ctx context.Context, now time.Time) (*Result, error) {
	if now.IsZero() {
		now = time.Now()
	}

	due, err := p.repo.ListDue(ctx, now, processBatchSize)
	if err != nil {
		return nil, fmt.Errorf("list due reminders: %w", err)
	}

	result := &Result{}
	for i := range due {
		// One reminder's failure never aborts the batch; everything that can
		// go wrong per row lands in result.Errors instead.
		p.processOne(ctx, due[i].ID, now, result)
	}

	return result, nil
}

func (p *processor) processOne(ctx context.Context, id uuid.UUID, now time.Time, result *Result) {
	key := fmt.Sprintf("reminder:process:%s", id)

	token, ok, err := p.locker.Acquire(ctx, key, processLeaseTTL)
	if err != nil {
		result.Errors = append(result.Errors, ReminderError{ReminderID: id, Message: err.Error()})
		return
	}
	if !ok {
		// Another worker owns this row for the current cycle.
		return
	}
	defer func() {
		if err := p.locker.Release(context.WithoutCancel(ctx), key, token); err != nil {
			log.Printf("failed to release processing lease %s: %v", key, err)
		}
	}()

	// Re-read inside the lease: the list query ran unlocked and the row may
	// have been sent or canceled since.
	reminder, err := p.repo.FindByID(ctx, id)
	if err != nil {
		result.Errors = append(result.Errors, ReminderError{ReminderID: id, Message: err.Error()})
		return
	}
	if reminder.Status != entity.ReminderScheduled {
		return
	}

	handler, known := p.dispatcher.HandlerFor(reminder.Type)
	if !known {
		// Left scheduled on purpose: the row keeps showing up every cycle
		// until the handler table covers the type.
		log.Printf("⚠️ no handler for reminder type %s (reminder %s), leaving scheduled", reminder.Type, reminder.ID)
		return
	}

	result.Processed++

	allowed, err := p.router.AllowedByPreferences(ctx, reminder.UserID, reminder.Type, reminder.Channel)
	if err != nil {
		p.recordFailure(ctx, reminder, now, err, result)
		return
	}
	if !allowed {
		reminder.Status = entity.ReminderCanceled
		if err := p.repo.Update(ctx, reminder); err != nil {
			result.Errors = append(result.Errors, ReminderError{ReminderID: id, Message: err.Error()})
		}
		return
	}

	sent, err := handler(ctx, reminder)
	if err != nil {
		p.recordFailure(ctx, reminder, now, err, result)
		return
	}

	if sent {
		reminder.Status = entity.ReminderSent
		sentAt := now
		reminder.SentAt = &sentAt
		result.Sent++
	} else {
		// Entity no longer needs the notification.
		reminder.Status = entity.ReminderCanceled
	}

	if err := p.repo.Update(ctx, reminder); err != nil {
		result.Errors = append(result.Errors, ReminderError{ReminderID: id, Message: err.Error()})
	}
}

// recordFailure applies the retry policy: bump the counter, keep the row
// scheduled one hour out, and mark it failed for operator follow-up on the
// third failed attempt. The last error message is retained even after an
// eventual success, as an audit trail of the delivery trouble.
func (p *processor) recordFailure(ctx context.Context, reminder *entity.Reminder, now time.Time, cause error, result *Result) {
	reminder.RetryCount++
	msg := cause.Error()
	reminder.ErrorMessage = &msg

	if reminder.RetryCount >= maxAttempts {
		reminder.Status = entity.ReminderFailed
		result.Failed++
	} else {
		reminder.ScheduledFor = now.Add(retryDelay)
	}

	if err := p.repo.Update(ctx, reminder); err != nil {
		result.Errors = append(result.Errors, ReminderError{ReminderID: reminder.ID, Message: err.Error()})
		return
	}

	result.Errors = append(result.Errors, ReminderError{ReminderID: reminder.ID, Message: msg})
}
