package entity

import (
	"time"

	"github.com/google/uuid"
)

type RequestStatus string

const (
	RequestDraft    RequestStatus = "draft"
	RequestAwaiting RequestStatus = "awaiting_response"
	RequestOpened   RequestStatus = "opened"
	RequestAccepted RequestStatus = "accepted"
	RequestDeclined RequestStatus = "declined"
	RequestExpired  RequestStatus = "expired"
)

// PaymentRequest is the payment-request/invoice entity the reminder handlers
// validate against. This engine only reads it; the billing service owns
// writes.
type PaymentRequest struct {
	ID          uuid.UUID     `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID      uuid.UUID     `gorm:"type:uuid;not null" json:"user_id"` // the freelancer who sent it
	ClientEmail string        `gorm:"type:varchar(255);not null" json:"client_email"`
	ClientName  string        `gorm:"type:varchar(255)" json:"client_name"`
	Title       string        `gorm:"type:varchar(255)" json:"title"`
	Amount      int64         `gorm:"not null" json:"amount"` // minor units
	Currency    string        `gorm:"type:varchar(3);default:IDR" json:"currency"`
	Status      RequestStatus `gorm:"type:varchar(32);not null;default:draft" json:"status"`
	SentAt      *time.Time    `json:"sent_at,omitempty"`
	OpenedAt    *time.Time    `json:"opened_at,omitempty"`
	PaidAt      *time.Time    `json:"paid_at,omitempty"`
	DueAt       *time.Time    `json:"due_at,omitempty"`
	ExpiresAt   *time.Time    `json:"expires_at,omitempty"`
	CreatedAt   time.Time     `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time     `gorm:"autoUpdateTime" json:"updated_at"`
}

// AwaitingResponse reports whether the request is still waiting on the client
// and has not passed its expiry.
func (r *PaymentRequest) AwaitingResponse(now time.Time) bool {
	if r.Status != RequestAwaiting && r.Status != RequestOpened {
		return false
	}
	if r.ExpiresAt != nil && !now.Before(*r.ExpiresAt) {
		return false
	}
	return r.PaidAt == nil
}
