package entity

import (
	"time"

	"github.com/google/uuid"
)

type ReminderStatus string

const (
	ReminderScheduled ReminderStatus = "scheduled"
	ReminderSent      ReminderStatus = "sent"
	ReminderCanceled  ReminderStatus = "canceled"
	ReminderFailed    ReminderStatus = "failed"
)

// IsTerminal reports whether no further transitions may happen for the status.
func (s ReminderStatus) IsTerminal() bool {
	return s == ReminderSent || s == ReminderCanceled || s == ReminderFailed
}

type Channel string

const (
	ChannelEmail Channel = "email"
	ChannelSMS   Channel = "sms"
	ChannelPush  Channel = "push"
)

// EntityType tags the business entity a reminder points at. The pair
// (EntityType, EntityID) is an opaque reference, never a database foreign key;
// the dispatch handler for the reminder type resolves and validates it.
type EntityType string

const (
	EntityRequest      EntityType = "request"
	EntityInvoice      EntityType = "invoice"
	EntityPayout       EntityType = "payout"
	EntitySubscription EntityType = "subscription"
	EntityPayroll      EntityType = "payroll"
	EntityProfile      EntityType = "profile"
	EntityUser         EntityType = "user"
)

type ReminderType string

const (
	// Payment request / invoice reminders
	ReminderRequestUnopened24h ReminderType = "request_unopened_24h"
	ReminderRequestUnopened72h ReminderType = "request_unopened_72h"
	ReminderRequestUnpaid3d    ReminderType = "request_unpaid_3d"
	ReminderRequestExpiring    ReminderType = "request_expiring"
	ReminderInvoiceDue         ReminderType = "invoice_due"
	ReminderInvoiceOverdue     ReminderType = "invoice_overdue"

	// Engagement reminders
	ReminderOnboarding24h ReminderType = "onboarding_incomplete_24h"
	ReminderOnboarding72h ReminderType = "onboarding_incomplete_72h"
	ReminderNoSubscribers ReminderType = "no_subscribers_7d"
	ReminderVerification  ReminderType = "verification_incomplete"

	// Subscription reminders
	ReminderRenewal7d     ReminderType = "subscription_renewal_7d"
	ReminderRenewal3d     ReminderType = "subscription_renewal_3d"
	ReminderRenewal1d     ReminderType = "subscription_renewal_1d"
	ReminderPaymentFailed ReminderType = "subscription_payment_failed"
	ReminderPastDue       ReminderType = "subscription_past_due"
	ReminderTrialEnding   ReminderType = "subscription_trial_ending"

	// Payout / payroll / account reminders
	ReminderPayoutDelayed  ReminderType = "payout_delayed"
	ReminderPayrollDue     ReminderType = "payroll_due"
	ReminderPayrollOverdue ReminderType = "payroll_overdue"
	ReminderCardExpiring   ReminderType = "card_expiring"
)

// Reminder is the sole persistent entity the engine owns. Rows are never
// deleted: terminal rows double as the audit trail and the dedup anchor.
type Reminder struct {
	ID           uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID       uuid.UUID      `gorm:"type:uuid;not null" json:"user_id"`
	EntityType   EntityType     `gorm:"type:varchar(50);not null;uniqueIndex:ux_reminders_dedup,priority:1" json:"entity_type"`
	EntityID     uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex:ux_reminders_dedup,priority:2" json:"entity_id"`
	Type         ReminderType   `gorm:"type:varchar(64);not null;uniqueIndex:ux_reminders_dedup,priority:3" json:"type"`
	Channel      Channel        `gorm:"type:varchar(20);not null;default:email" json:"channel"`
	ScheduledFor time.Time      `gorm:"not null;index:idx_reminders_due,priority:2" json:"scheduled_for"`
	Status       ReminderStatus `gorm:"type:varchar(20);not null;default:scheduled;index:idx_reminders_due,priority:1" json:"status"`
	RetryCount   int            `gorm:"not null;default:0" json:"retry_count"`
	ErrorMessage *string        `gorm:"type:text" json:"error_message,omitempty"`
	SentAt       *time.Time     `json:"sent_at,omitempty"`
	CreatedAt    time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
}
