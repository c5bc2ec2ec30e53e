package main

import (
	"log"

	"anoa.com/bayarin/internal/bootstrap"
	"anoa.com/bayarin/internal/config"
	"anoa.com/bayarin/internal/server"
	"anoa.com/bayarin/pkg/database"
	"github.com/redis/go-redis/v9"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	db := database.Connect()
	if err := bootstrap.Migrate(db); err != nil {
		log.Fatalf("migration failed: %v", err)
	}

	if cfg.AppEnv == "development" {
		if err := bootstrap.SeedDemoData(db); err != nil {
			log.Fatalf("failed to seed demo data: %v", err)
		}
	}

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})

	srv := server.NewServer(cfg, db, redisClient)
	defer srv.Stop()

	if err := srv.Run(":" + cfg.Port); err != nil {
		log.Fatalf("server exited with error: %v", err)
	}
}
