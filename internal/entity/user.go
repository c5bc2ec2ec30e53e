package entity

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID                  uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Email               string    `gorm:"type:varchar(255);unique;not null" json:"email"`
	Phone               string    `gorm:"type:varchar(32)" json:"phone"`
	FullName            string    `gorm:"type:varchar(255)" json:"full_name"`
	Region              string    `gorm:"type:varchar(2);default:ID" json:"region"` // ISO 3166-1 alpha-2
	DeviceToken         string    `gorm:"type:varchar(255)" json:"-"`               // push token, empty if the user never installed the app
	OnboardingCompleted bool      `gorm:"default:false" json:"onboarding_completed"`
	Verified            bool      `gorm:"default:false" json:"verified"`
	SubscriberCount     int       `gorm:"default:0" json:"subscriber_count"`
	CreatedAt           time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt           time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// NotificationPreference stores per-user opt-out flags. A user without a row
// gets every flag enabled.
type NotificationPreference struct {
	UserID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"user_id"`
	EmailEnabled     bool      `gorm:"default:true" json:"email_enabled"`
	PushEnabled      bool      `gorm:"default:true" json:"push_enabled"`
	PaymentAlerts    bool      `gorm:"default:true" json:"payment_alerts"`
	SubscriberAlerts bool      `gorm:"default:true" json:"subscriber_alerts"`
	UpdatedAt        time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	User *User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}
