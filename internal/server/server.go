package server

import (
	"context"
	"log"
	"net/http"
	"strings"
	"time"

	"anoa.com/bayarin/internal/config"
	"anoa.com/bayarin/internal/middleware"
	"anoa.com/bayarin/pkg/lock"
	"anoa.com/bayarin/pkg/mailer"
	"anoa.com/bayarin/pkg/push"
	"anoa.com/bayarin/pkg/sms"

	reminderHttp "anoa.com/bayarin/internal/modules/reminder/delivery/http"
	reminderRepo "anoa.com/bayarin/internal/modules/reminder/repository"
	"anoa.com/bayarin/internal/modules/reminder/scheduler"
	reminderService "anoa.com/bayarin/internal/modules/reminder/service"

	requestRepo "anoa.com/bayarin/internal/modules/request/repository"
	subscriptionRepo "anoa.com/bayarin/internal/modules/subscription/repository"
	userRepo "anoa.com/bayarin/internal/modules/user/repository"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"gorm.io/gorm"
)

type Server struct {
	engine  *gin.Engine
	cron    *cron.Cron
	scanner *scheduler.RecoveryScanner
	cfg     *config.Config
}

func NewServer(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) *Server {
	// Repositories
	reminders := reminderRepo.NewReminderRepository(db)
	requests := requestRepo.NewRequestRepository(db)
	subscriptions := subscriptionRepo.NewSubscriptionRepository(db)
	users := userRepo.NewUserRepository(db)

	// Senders
	emailClient := mailer.NewClient(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.SMTPFrom)
	smsClient := sms.NewClient(cfg.SMSGatewayURL, cfg.SMSAPIKey, cfg.SMSSender)
	pushClient := push.NewClient(cfg.PushRelayURL, cfg.PushAPIKey)

	// Reminder Module
	locker := lock.NewRedisLocker(redisClient)
	router := reminderService.NewChannelRouter(users, cfg.SMSEnabled)
	reminderSvc := reminderService.NewReminderService(reminders, locker, router)
	dispatcher := reminderService.NewDispatcher(requests, subscriptions, users, emailClient, smsClient, pushClient)
	processor := reminderService.NewProcessor(reminders, locker, router, dispatcher)

	// Domain Schedulers
	requestSched := scheduler.NewRequestScheduler(reminderSvc, requests)
	engagementSched := scheduler.NewEngagementScheduler(reminderSvc, users)
	subscriptionSched := scheduler.NewSubscriptionScheduler(reminderSvc, subscriptions)
	scanner := scheduler.NewRecoveryScanner(reminders, requests, subscriptions, users,
		requestSched, engagementSched, subscriptionSched)

	reminderHandler := reminderHttp.NewReminderHandler(reminderSvc, processor, scanner, reminders)

	// Cron trigger: any number of workers may run this concurrently, the
	// per-row processing lease decides who handles what.
	c := cron.New()
	_, err := c.AddFunc(cfg.ProcessSpec, func() {
		log.Println("⏰ Processing due reminders...")
		result, err := processor.ProcessDueReminders(context.Background(), time.Time{})
		if err != nil {
			log.Printf("❌ Reminder processing failed: %v", err)
			return
		}
		log.Printf("✅ Reminder run done: processed=%d sent=%d failed=%d errors=%d",
			result.Processed, result.Sent, result.Failed, len(result.Errors))
		for _, e := range result.Errors {
			log.Printf("   reminder %s: %s", e.ReminderID, e.Message)
		}
	})
	if err != nil {
		log.Fatalf("failed to schedule reminder processor: %v", err)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(gin.Logger())
	setupCORS(engine, cfg)

	engine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := engine.Group("/api")
	api.Use(middleware.RequireAPIKey(cfg.OpsAPIKey))
	{
		api.POST("/reminders/schedule", reminderHandler.Schedule)
		api.POST("/reminders/cancel", reminderHandler.Cancel)
		api.POST("/reminders/cancel-all", reminderHandler.CancelAll)
		api.POST("/reminders/process", reminderHandler.Process)
		api.POST("/reminders/scan", reminderHandler.Scan)
		api.GET("/reminders/:id", reminderHandler.GetByID)
	}

	return &Server{
		engine:  engine,
		cron:    c,
		scanner: scanner,
		cfg:     cfg,
	}
}

// Run starts the cron loop, optionally the one-shot recovery scan, then the
// HTTP listener.
func (s *Server) Run(addr string) error {
	s.cron.Start()
	log.Printf("📅 Reminder processor scheduled with cron: %s", s.cfg.ProcessSpec)

	if s.cfg.RunRecoveryScan {
		go func() {
			log.Println("🧹 Running recovery scan for missed reminders...")
			count, err := s.scanner.ScanAndScheduleMissedReminders(context.Background())
			if err != nil {
				log.Printf("❌ Recovery scan failed: %v", err)
				return
			}
			log.Printf("✅ Recovery scan completed, backfilled %d entities", count)
		}()
	}

	return s.engine.Run(addr)
}

// Stop halts the cron loop and waits for a running job to finish, up to the
// configured shutdown timeout.
func (s *Server) Stop() {
	ctx := s.cron.Stop()
	select {
	case <-ctx.Done():
	case <-time.After(s.cfg.ShutdownTimeout):
		log.Println("⚠️ shutdown timeout reached with a reminder run still in flight")
	}
}

func setupCORS(router *gin.Engine, cfg *config.Config) {
	origins := strings.Split(cfg.AllowedOrigins, ",")

	router.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "X-Internal-Api-Key"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
}
