package dto

import "time"

type ScheduleRequest struct {
	UserID       string    `json:"user_id" binding:"required,uuid"`
	EntityType   string    `json:"entity_type" binding:"required,oneof=request invoice payout subscription payroll profile user"`
	EntityID     string    `json:"entity_id" binding:"required,uuid"`
	Type         string    `json:"type" binding:"required"`
	ScheduledFor time.Time `json:"scheduled_for" binding:"required"`
	Channel      string    `json:"channel" binding:"omitempty,oneof=email sms push"`
}

type CancelRequest struct {
	EntityType string `json:"entity_type" binding:"required,oneof=request invoice payout subscription payroll profile user"`
	EntityID   string `json:"entity_id" binding:"required,uuid"`
	Type       string `json:"type" binding:"required"`
}

type CancelAllRequest struct {
	EntityType string `json:"entity_type" binding:"required,oneof=request invoice payout subscription payroll profile user"`
	EntityID   string `json:"entity_id" binding:"required,uuid"`
}

type ProcessRequest struct {
	// EffectiveNow overrides the clock for the run; used by smoke tests and
	// backfills. Zero means wall clock.
	EffectiveNow *time.Time `json:"effective_now"`
}
