package bootstrap

import (
	"log"
	"time"

	"anoa.com/bayarin/internal/entity"
	"gorm.io/gorm"
)

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&entity.User{},
		&entity.NotificationPreference{},
		&entity.PaymentRequest{},
		&entity.Subscription{},
		&entity.Reminder{},
	)
}

// SeedDemoData creates a demo user with a pending payment request so a fresh
// development environment has something for the processor to pick up.
func SeedDemoData(db *gorm.DB) error {
	var count int64
	if err := db.Model(&entity.User{}).
		Where("email = ?", "demo@bayarin.app").
		Count(&count).Error; err != nil {
		return err
	}

	if count > 0 {
		log.Println("Demo user already exists, skipping seed")
		return nil
	}

	demoUser := entity.User{
		Email:    "demo@bayarin.app",
		Phone:    "+6281200000001",
		FullName: "Demo Creator",
		Region:   "ID",
	}
	if err := db.Create(&demoUser).Error; err != nil {
		return err
	}

	if err := db.Create(&entity.NotificationPreference{UserID: demoUser.ID,
		EmailEnabled: true, PushEnabled: true, PaymentAlerts: true, SubscriberAlerts: true,
	}).Error; err != nil {
		return err
	}

	now := time.Now()
	due := now.Add(7 * 24 * time.Hour)
	expires := now.Add(14 * 24 * time.Hour)
	request := entity.PaymentRequest{
		UserID:      demoUser.ID,
		ClientEmail: "client@example.com",
		ClientName:  "Demo Client",
		Title:       "Logo design",
		Amount:      1500000,
		Currency:    "IDR",
		Status:      entity.RequestAwaiting,
		SentAt:      &now,
		DueAt:       &due,
		ExpiresAt:   &expires,
	}
	if err := db.Create(&request).Error; err != nil {
		return err
	}

	log.Println("✅ Demo data seeded successfully")

	return nil
}
