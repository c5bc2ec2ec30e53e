package handler

import (
	"net/http"
	"time"

	"anoa.com/bayarin/internal/entity"
	"anoa.com/bayarin/internal/modules/reminder/dto"
	reminderRepo "anoa.com/bayarin/internal/modules/reminder/repository"
	"anoa.com/bayarin/internal/modules/reminder/scheduler"
	reminderService "anoa.com/bayarin/internal/modules/reminder/service"
	"anoa.com/bayarin/pkg/response"
	"anoa.com/bayarin/pkg/validator"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ReminderHandler exposes the engine's operations to the rest of the
// platform: domain event handlers call schedule/cancel, the cron trigger and
// operators call process/scan.
type ReminderHandler struct {
	service   reminderService.ReminderService
	processor reminderService.Processor
	scanner   *scheduler.RecoveryScanner
	repo      reminderRepo.ReminderRepository
}

func NewReminderHandler(service reminderService.ReminderService, processor reminderService.Processor, scanner *scheduler.RecoveryScanner, repo reminderRepo.ReminderRepository) *ReminderHandler {
	return &ReminderHandler{
		service:   service,
		processor: processor,
		scanner:   scanner,
		repo:      repo,
	}
}

// GetByID is the audit read path; it never mutates, terminal rows included.
func (h *ReminderHandler) GetByID(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid uuid format"})
		return
	}

	reminder, err := h.repo.FindByID(c.Request.Context(), id)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, reminder)
}

func (h *ReminderHandler) Schedule(c *gin.Context) {
	var req dto.ScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
		return
	}

	userID, _ := uuid.Parse(req.UserID)
	entityID, _ := uuid.Parse(req.EntityID)

	err := h.service.Schedule(c.Request.Context(), reminderService.ScheduleParams{
		UserID:       userID,
		EntityType:   entity.EntityType(req.EntityType),
		EntityID:     entityID,
		Type:         entity.ReminderType(req.Type),
		ScheduledFor: req.ScheduledFor,
		Channel:      entity.Channel(req.Channel),
	})
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"message": "reminder scheduled"})
}

func (h *ReminderHandler) Cancel(c *gin.Context) {
	var req dto.CancelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
		return
	}

	entityID, _ := uuid.Parse(req.EntityID)

	err := h.service.Cancel(c.Request.Context(), entity.EntityType(req.EntityType), entityID, entity.ReminderType(req.Type))
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "reminder canceled"})
}

func (h *ReminderHandler) CancelAll(c *gin.Context) {
	var req dto.CancelAllRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
		return
	}

	entityID, _ := uuid.Parse(req.EntityID)

	err := h.service.CancelAll(c.Request.Context(), entity.EntityType(req.EntityType), entityID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "reminders canceled"})
}

// Process runs one processing cycle on demand, outside the cron schedule.
func (h *ReminderHandler) Process(c *gin.Context) {
	var req dto.ProcessRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var now time.Time
	if req.EffectiveNow != nil {
		now = *req.EffectiveNow
	}

	result, err := h.processor.ProcessDueReminders(c.Request.Context(), now)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// Scan triggers the recovery backfill.
func (h *ReminderHandler) Scan(c *gin.Context) {
	count, err := h.scanner.ScanAndScheduleMissedReminders(c.Request.Context())
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"backfilled": count})
}
