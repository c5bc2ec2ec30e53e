package service

import (
	"context"
	"errors"
	"fmt"

	"anoa.com/bayarin/internal/entity"
	userRepo "anoa.com/bayarin/internal/modules/user/repository"
	"anoa.com/bayarin/pkg/apperror"
	"github.com/google/uuid"
)

// smsEligible lists the kinds worth an SMS: time-critical payment nudges
// where open rates matter. Everything else goes out as email.
var smsEligible = map[entity.ReminderType]bool{
	entity.ReminderRequestUnopened24h: true,
	entity.ReminderRequestUnopened72h: true,
	entity.ReminderInvoiceOverdue:     true,
	entity.ReminderPaymentFailed:      true,
	entity.ReminderPastDue:            true,
}

// smsPreferredRegions are markets where SMS outperforms email for payment
// nudges.
var smsPreferredRegions = map[string]bool{
	"ID": true,
	"PH": true,
	"IN": true,
}

// mandatoryTypes always pass the preference gate: onboarding nudges the
// platform depends on, plus renewal and dunning notices the card networks
// require us to deliver.
var mandatoryTypes = map[entity.ReminderType]bool{
	entity.ReminderOnboarding24h: true,
	entity.ReminderOnboarding72h: true,
	entity.ReminderVerification:  true,
	entity.ReminderRenewal7d:     true,
	entity.ReminderRenewal3d:     true,
	entity.ReminderRenewal1d:     true,
	entity.ReminderPaymentFailed: true,
	entity.ReminderPastDue:       true,
}

// subscriberAlertTypes belong to the subscriber-alerts preference category;
// every other non-mandatory kind is a payment alert.
var subscriberAlertTypes = map[entity.ReminderType]bool{
	entity.ReminderNoSubscribers: true,
	entity.ReminderTrialEnding:   true,
}

// ChannelRouter picks a delivery channel at schedule time and gates dispatch
// on the user's notification preferences.
type ChannelRouter interface {
	BestChannel(ctx context.Context, userID uuid.UUID, reminderType entity.ReminderType) entity.Channel
	AllowedByPreferences(ctx context.Context, userID uuid.UUID, reminderType entity.ReminderType, channel entity.Channel) (bool, error)
}

type channelRouter struct {
	users      userRepo.UserRepository
	smsEnabled bool
}

func NewChannelRouter(users userRepo.UserRepository, smsEnabled bool) ChannelRouter {
	return &channelRouter{
		users:      users,
		smsEnabled: smsEnabled,
	}
}

// BestChannel returns sms only when the kind is SMS-eligible, the SMS
// subsystem is on, and the user's region prefers SMS. Any lookup problem
// degrades to email rather than failing the schedule call.
func (c *channelRouter) BestChannel(ctx context.Context, userID uuid.UUID, reminderType entity.ReminderType) entity.Channel {
	if !c.smsEnabled || !smsEligible[reminderType] {
		return entity.ChannelEmail
	}

	user, err := c.users.FindByID(ctx, userID)
	if err != nil {
		return entity.ChannelEmail
	}
	if user.Phone == "" || !smsPreferredRegions[user.Region] {
		return entity.ChannelEmail
	}

	return entity.ChannelSMS
}

// AllowedByPreferences is evaluated by the processor immediately before
// dispatch, never at schedule time, so opt-out changes made after scheduling
// still take effect.
func (c *channelRouter) AllowedByPreferences(ctx context.Context, userID uuid.UUID, reminderType entity.ReminderType, channel entity.Channel) (bool, error) {
	if mandatoryTypes[reminderType] {
		return true, nil
	}

	prefs, err := c.users.FindPreferences(ctx, userID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			// No stored preferences means nothing was opted out.
			return true, nil
		}
		return false, fmt.Errorf("load preferences: %w", err)
	}

	switch channel {
	case entity.ChannelEmail:
		if !prefs.EmailEnabled {
			return false, nil
		}
	case entity.ChannelPush:
		if !prefs.PushEnabled {
			return false, nil
		}
	}

	if subscriberAlertTypes[reminderType] {
		return prefs.SubscriberAlerts, nil
	}
	return prefs.PaymentAlerts, nil
}
