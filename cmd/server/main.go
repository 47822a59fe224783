package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/stackswars/backend/internal/config"
	"github.com/stackswars/backend/internal/database"
	"github.com/stackswars/backend/internal/game"
	"github.com/stackswars/backend/internal/middleware"
	"github.com/stackswars/backend/internal/migrations"
	"github.com/stackswars/backend/internal/redis"
	"github.com/stackswars/backend/internal/store"
	"github.com/stackswars/backend/internal/ws"
)

func main() {
	cfg := config.Load()

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if os.Getenv("MIGRATE_ON_START") == "true" {
		log.Println("Running DB migrations on startup...")
		if err := migrations.RunMigrations(cfg.DatabaseURL); err != nil {
			log.Fatalf("Failed to run migrations: %v", err)
		}
	}

	rdb, err := redis.Connect(cfg.RedisURL)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer rdb.Close()

	st := store.NewRedisStore(rdb)

	if cfg.DictionaryPath != "" {
		if err := game.LoadDictionary(context.Background(), st, cfg.DictionaryPath); err != nil {
			log.Printf("[GAME] dictionary load skipped: %v", err)
		}
	}

	hub := ws.NewHub(st, time.Duration(cfg.OfflineQueueTTLSecs)*time.Second)
	reporter := game.NewStatsReporter(db)
	coord := game.NewCoordinator(cfg, st, hub, reporter)
	single := game.NewSingleManager(cfg, st, hub)

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.Default()
	router.Use(middleware.CORSMiddleware(cfg))
	router.Use(middleware.WebSocketCORSCheck(cfg))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	router.GET("/leaderboard", func(c *gin.Context) {
		entries, err := reporter.TopPlayers(c.Request.Context(), 50)
		if err != nil {
			log.Printf("[DB] leaderboard query failed: %v", err)
			c.JSON(500, gin.H{"error": "leaderboard unavailable"})
			return
		}
		c.JSON(200, gin.H{"leaderboard": entries})
	})

	ws.NewRoutes(cfg, hub, st, coord, single).Register(router)

	port := cfg.Port
	if port == "" {
		port = "8080"
	}

	log.Printf("Starting StacksWars server on port %s", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
