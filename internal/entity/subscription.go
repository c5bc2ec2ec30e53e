package entity

import (
	"time"

	"github.com/google/uuid"
)

type SubscriptionStatus string

const (
	SubscriptionActive   SubscriptionStatus = "active"
	SubscriptionTrialing SubscriptionStatus = "trialing"
	SubscriptionPastDue  SubscriptionStatus = "past_due"
	SubscriptionCanceled SubscriptionStatus = "canceled"
)

type SubscriptionInterval string

const (
	IntervalOneTime SubscriptionInterval = "one_time"
	IntervalMonthly SubscriptionInterval = "monthly"
	IntervalYearly  SubscriptionInterval = "yearly"
)

// Subscription is a fan's recurring membership to a creator. Read-only here;
// the billing service owns writes.
type Subscription struct {
	ID                uuid.UUID            `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	CreatorID         uuid.UUID            `gorm:"type:uuid;not null" json:"creator_id"`
	SubscriberID      uuid.UUID            `gorm:"type:uuid;not null" json:"subscriber_id"`
	Status            SubscriptionStatus   `gorm:"type:varchar(32);not null;default:active" json:"status"`
	Interval          SubscriptionInterval `gorm:"type:varchar(16);not null;default:monthly" json:"interval"`
	Amount            int64                `gorm:"not null" json:"amount"`
	Currency          string               `gorm:"type:varchar(3);default:IDR" json:"currency"`
	CancelAtPeriodEnd bool                 `gorm:"default:false" json:"cancel_at_period_end"`
	CurrentPeriodEnd  time.Time            `gorm:"not null" json:"current_period_end"`
	TrialEnd          *time.Time           `json:"trial_end,omitempty"`
	CreatedAt         time.Time            `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time            `gorm:"autoUpdateTime" json:"updated_at"`
}

// Renewing reports whether the subscription will actually charge again at
// period end, which is the precondition for every renewal pre-notice.
func (s *Subscription) Renewing() bool {
	if s.Interval == IntervalOneTime {
		return false
	}
	if s.Status == SubscriptionCanceled {
		return false
	}
	return !s.CancelAtPeriodEnd
}
