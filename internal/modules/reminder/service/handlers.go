package service

import (
	"context"
	"errors"
	"fmt"

	"anoa.com/bayarin/internal/entity"
	requestRepo "anoa.com/bayarin/internal/modules/request/repository"
	subscriptionRepo "anoa.com/bayarin/internal/modules/subscription/repository"
	userRepo "anoa.com/bayarin/internal/modules/user/repository"
	"anoa.com/bayarin/pkg/apperror"
)

// Handler re-validates the referenced entity and performs the send. The bool
// result means "was actually sent": false with a nil error marks an entity
// that no longer needs the notification.
type Handler func(ctx context.Context, reminder *entity.Reminder) (bool, error)

type EmailSender interface {
	Send(to, subject, body string) error
}

type SMSSender interface {
	Send(to, msg string) error
}

type PushSender interface {
	Send(deviceToken, title, body string) error
}

// Dispatcher maps reminder types to their handlers. Each handler validates
// its own entity, so a bug in one type cannot mis-send another.
type Dispatcher struct {
	requests      requestRepo.RequestRepository
	subscriptions subscriptionRepo.SubscriptionRepository
	users         userRepo.UserRepository
	email         EmailSender
	sms           SMSSender
	push          PushSender

	handlers map[entity.ReminderType]Handler
}

func NewDispatcher(
	requests requestRepo.RequestRepository,
	subscriptions subscriptionRepo.SubscriptionRepository,
	users userRepo.UserRepository,
	email EmailSender,
	sms SMSSender,
	push PushSender,
) *Dispatcher {
	d := &Dispatcher{
		requests:      requests,
		subscriptions: subscriptions,
		users:         users,
		email:         email,
		sms:           sms,
		push:          push,
	}

	d.handlers = map[entity.ReminderType]Handler{
		entity.ReminderRequestUnopened24h: d.handleRequestReminder,
		entity.ReminderRequestUnopened72h: d.handleRequestReminder,
		entity.ReminderRequestUnpaid3d:    d.handleRequestReminder,
		entity.ReminderRequestExpiring:    d.handleRequestReminder,
		entity.ReminderInvoiceDue:         d.handleRequestReminder,
		entity.ReminderInvoiceOverdue:     d.handleRequestReminder,

		entity.ReminderOnboarding24h: d.handleEngagementReminder,
		entity.ReminderOnboarding72h: d.handleEngagementReminder,
		entity.ReminderNoSubscribers: d.handleEngagementReminder,
		entity.ReminderVerification:  d.handleEngagementReminder,

		entity.ReminderRenewal7d:     d.handleSubscriptionReminder,
		entity.ReminderRenewal3d:     d.handleSubscriptionReminder,
		entity.ReminderRenewal1d:     d.handleSubscriptionReminder,
		entity.ReminderPaymentFailed: d.handleSubscriptionReminder,
		entity.ReminderPastDue:       d.handleSubscriptionReminder,
		entity.ReminderTrialEnding:   d.handleSubscriptionReminder,

		entity.ReminderPayoutDelayed:  d.handleAccountReminder,
		entity.ReminderPayrollDue:     d.handleAccountReminder,
		entity.ReminderPayrollOverdue: d.handleAccountReminder,
		entity.ReminderCardExpiring:   d.handleAccountReminder,
	}

	return d
}

// HandlerFor returns the handler for a reminder type. The second result is
// false for types no handler covers; the processor leaves those rows alone.
func (d *Dispatcher) HandlerFor(reminderType entity.ReminderType) (Handler, bool) {
	h, ok := d.handlers[reminderType]
	return h, ok
}

// handleRequestReminder covers the payment-request/invoice family. The
// unopened and due/overdue nudges go to the client who received the request;
// the unpaid and expiring ones go to the freelancer who sent it.
func (d *Dispatcher) handleRequestReminder(ctx context.Context, r *entity.Reminder) (bool, error) {
	request, err := d.requests.FindByID(ctx, r.EntityID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("load request %s: %w", r.EntityID, err)
	}

	switch r.Type {
	case entity.ReminderRequestUnopened24h, entity.ReminderRequestUnopened72h:
		if request.Status != entity.RequestAwaiting || request.OpenedAt != nil {
			return false, nil
		}
		subject := fmt.Sprintf("Payment request from %s is waiting", ownerName(ctx, d.users, request))
		body := fmt.Sprintf("You have an unopened payment request for %s %d. Open it to review and pay.",
			request.Currency, request.Amount)
		return d.sendToClient(request, subject, body)

	case entity.ReminderInvoiceDue:
		if request.PaidAt != nil || request.Status == entity.RequestDeclined || request.Status == entity.RequestExpired {
			return false, nil
		}
		subject := fmt.Sprintf("Invoice %q is due today", request.Title)
		body := fmt.Sprintf("Invoice %q for %s %d is due. Please complete the payment.",
			request.Title, request.Currency, request.Amount)
		return d.sendToClient(request, subject, body)

	case entity.ReminderInvoiceOverdue:
		if request.PaidAt != nil || request.Status == entity.RequestDeclined || request.Status == entity.RequestExpired {
			return false, nil
		}
		subject := fmt.Sprintf("Invoice %q is overdue", request.Title)
		body := fmt.Sprintf("Invoice %q for %s %d is past its due date. Please settle it as soon as possible.",
			request.Title, request.Currency, request.Amount)
		return d.sendToClient(request, subject, body)

	case entity.ReminderRequestUnpaid3d:
		if request.OpenedAt == nil || request.PaidAt != nil || request.Status != entity.RequestOpened {
			return false, nil
		}
		subject := "Your payment request was opened but not paid"
		body := fmt.Sprintf("%s opened your request %q three days ago but has not paid yet. Consider a follow-up.",
			clientName(request), request.Title)
		return d.sendToOwner(ctx, r, subject, body)

	case entity.ReminderRequestExpiring:
		if !request.AwaitingResponse(r.ScheduledFor) {
			return false, nil
		}
		subject := fmt.Sprintf("Payment request %q expires soon", request.Title)
		body := fmt.Sprintf("Your request to %s expires within 24 hours. Extend it if you still expect payment.",
			clientName(request))
		return d.sendToOwner(ctx, r, subject, body)
	}

	return false, fmt.Errorf("request handler received unexpected type %s", r.Type)
}

func (d *Dispatcher) handleEngagementReminder(ctx context.Context, r *entity.Reminder) (bool, error) {
	user, err := d.users.FindByID(ctx, r.UserID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("load user %s: %w", r.UserID, err)
	}

	switch r.Type {
	case entity.ReminderOnboarding24h, entity.ReminderOnboarding72h:
		if user.OnboardingCompleted {
			return false, nil
		}
		return d.send(user, r.Channel,
			"Finish setting up your Bayarin account",
			"Your account setup is almost done. Complete it to start receiving payments.")

	case entity.ReminderVerification:
		if user.Verified {
			return false, nil
		}
		return d.send(user, r.Channel,
			"Verify your identity",
			"Identity verification is still pending. Verified accounts get faster payouts.")

	case entity.ReminderNoSubscribers:
		if user.SubscriberCount > 0 {
			return false, nil
		}
		return d.send(user, r.Channel,
			"Get your first subscriber",
			"Your membership page has been live for a week. Share your link to reach your first subscriber.")
	}

	return false, fmt.Errorf("engagement handler received unexpected type %s", r.Type)
}

func (d *Dispatcher) handleSubscriptionReminder(ctx context.Context, r *entity.Reminder) (bool, error) {
	sub, err := d.subscriptions.FindByID(ctx, r.EntityID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("load subscription %s: %w", r.EntityID, err)
	}

	switch r.Type {
	case entity.ReminderRenewal7d, entity.ReminderRenewal3d, entity.ReminderRenewal1d:
		if !sub.Renewing() {
			return false, nil
		}
		subject := "Your subscription renews soon"
		body := fmt.Sprintf("Your subscription renews on %s for %s %d. No action is needed to keep it active.",
			sub.CurrentPeriodEnd.Format("2 Jan 2006"), sub.Currency, sub.Amount)
		return d.sendToOwner(ctx, r, subject, body)

	case entity.ReminderTrialEnding:
		if sub.Status != entity.SubscriptionTrialing || !sub.Renewing() {
			return false, nil
		}
		subject := "Your trial ends soon"
		body := fmt.Sprintf("Your free trial ends on %s. You will be charged %s %d unless you cancel first.",
			sub.CurrentPeriodEnd.Format("2 Jan 2006"), sub.Currency, sub.Amount)
		return d.sendToOwner(ctx, r, subject, body)

	case entity.ReminderPaymentFailed:
		if sub.Status == entity.SubscriptionCanceled {
			return false, nil
		}
		subject := "Subscription payment failed"
		body := "We could not charge your payment method. Update it to keep your subscription active."
		return d.sendToOwner(ctx, r, subject, body)

	case entity.ReminderPastDue:
		if sub.Status != entity.SubscriptionPastDue {
			return false, nil
		}
		subject := "Your subscription is past due"
		body := "Your subscription payment is still outstanding. It will be canceled unless payment succeeds soon."
		return d.sendToOwner(ctx, r, subject, body)
	}

	return false, fmt.Errorf("subscription handler received unexpected type %s", r.Type)
}

// handleAccountReminder covers payout/payroll/card kinds. Those entities live
// in the billing service and have no local store, so validation is limited to
// the owning user still existing.
func (d *Dispatcher) handleAccountReminder(ctx context.Context, r *entity.Reminder) (bool, error) {
	switch r.Type {
	case entity.ReminderPayoutDelayed:
		return d.sendToOwner(ctx, r,
			"Your payout is delayed",
			"A payout to your bank account is taking longer than usual. No action is needed; we will retry automatically.")

	case entity.ReminderPayrollDue:
		return d.sendToOwner(ctx, r,
			"Payroll run due tomorrow",
			"Your next payroll run is due tomorrow. Make sure your balance covers it.")

	case entity.ReminderPayrollOverdue:
		return d.sendToOwner(ctx, r,
			"Payroll run overdue",
			"A scheduled payroll run could not start because of insufficient balance. Top up to pay your team.")

	case entity.ReminderCardExpiring:
		return d.sendToOwner(ctx, r,
			"Your card expires soon",
			"The card on file expires at the end of the month. Add a new one to avoid failed charges.")
	}

	return false, fmt.Errorf("account handler received unexpected type %s", r.Type)
}

// sendToOwner resolves the reminder's owning user and delivers on the
// reminder's channel, falling back to email when the user has no phone or
// device token.
func (d *Dispatcher) sendToOwner(ctx context.Context, r *entity.Reminder, subject, body string) (bool, error) {
	user, err := d.users.FindByID(ctx, r.UserID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("load user %s: %w", r.UserID, err)
	}

	return d.send(user, r.Channel, subject, body)
}

func (d *Dispatcher) send(user *entity.User, channel entity.Channel, subject, body string) (bool, error) {
	switch channel {
	case entity.ChannelSMS:
		if user.Phone == "" {
			break
		}
		if err := d.sms.Send(user.Phone, body); err != nil {
			return false, err
		}
		return true, nil
	case entity.ChannelPush:
		if user.DeviceToken == "" {
			break
		}
		if err := d.push.Send(user.DeviceToken, subject, body); err != nil {
			return false, err
		}
		return true, nil
	}

	if err := d.email.Send(user.Email, subject, body); err != nil {
		return false, err
	}
	return true, nil
}

// sendToClient emails the external client of a payment request. Clients are
// not platform users, so SMS and push never apply regardless of the
// reminder's channel.
func (d *Dispatcher) sendToClient(request *entity.PaymentRequest, subject, body string) (bool, error) {
	if request.ClientEmail == "" {
		return false, nil
	}
	if err := d.email.Send(request.ClientEmail, subject, body); err != nil {
		return false, err
	}
	return true, nil
}

func clientName(request *entity.PaymentRequest) string {
	if request.ClientName != "" {
		return request.ClientName
	}
	return request.ClientEmail
}

func ownerName(ctx context.Context, users userRepo.UserRepository, request *entity.PaymentRequest) string {
	user, err := users.FindByID(ctx, request.UserID)
	if err != nil || user.FullName == "" {
		return "a Bayarin user"
	}
	return user.FullName
}
