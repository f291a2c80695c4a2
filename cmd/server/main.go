// Package main - Face Diagnosis Bot entry point
// Wires configuration, stores, gateways and the webhook dispatcher
package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/redis/go-redis/v9"

	"facebot/internal/adapters/gateway"
	"facebot/internal/adapters/handler"
	"facebot/internal/adapters/repository"
	"facebot/internal/config"
	"facebot/internal/core/services"
)

func main() {
	fmt.Println("=== Face Diagnosis Bot - Initialization ===")

	// 1. Load Configuration from Environment
	fmt.Println("[1/5] Loading configuration...")
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	fmt.Printf("✓ Config loaded (DB: %s@%s:%d, Redis: %s)\n",
		cfg.DB.User, cfg.DB.Host, cfg.DB.Port, cfg.Redis.Addr)

	// 2. Connect to MariaDB with Retry Logic
	// Docker containers may not be ready immediately, so we retry
	fmt.Println("[2/5] Connecting to MariaDB...")
	db := connectMariaDB(cfg.DB, 5, 2*time.Second)
	defer db.Close()
	fmt.Println("✓ MariaDB connection established")

	// 3. Connect to Redis with Retry Logic
	fmt.Println("[3/5] Connecting to Redis...")
	rdb := connectRedis(cfg.Redis, 5, 2*time.Second)
	defer rdb.Close()
	fmt.Println("✓ Redis connection established")

	// 4. Initialize adapters and core services
	fmt.Println("[4/5] Initializing services...")

	auditRepo := repository.NewMariaDBRepository(db)
	userRepo := repository.NewRedisRepository(rdb)

	lineClient := gateway.NewLineClient(cfg.Line.APIEndpoint, cfg.Line.DataEndpoint, cfg.Line.ChannelToken)
	faceClient := gateway.NewFaceClient(cfg.Face.Endpoint, cfg.Face.APIKey, cfg.Face.APISecret)

	dispatcher := services.NewDispatcher(
		lineClient, // ContentFetcher
		faceClient, // FaceAnalyzer
		lineClient, // ReplySender
		userRepo,   // UserStateRepository
		auditRepo,  // AuditRepository
	)

	fmt.Println("✓ Services initialized")

	// 5. HTTP handlers
	fmt.Println("[5/5] Initializing HTTP handlers...")

	webhookHandler := handler.NewWebhookHandler(dispatcher, auditRepo, cfg.Line.ChannelSecret)
	statusHandler := handler.NewStatusHandler()

	fmt.Println("✓ Handlers initialized")
	fmt.Println("\n✅ Infrastructure Ready")

	// Start the audit retention watchdog
	services.RunWatchdog(auditRepo)

	// Start HTTP Server
	startHTTPServer(cfg.App.Port, webhookHandler, statusHandler)
}

// connectMariaDB attempts to connect to MariaDB with retry logic
func connectMariaDB(cfg config.DBConfig, maxRetries int, retryDelay time.Duration) *sql.DB {
	dsn := cfg.GetDSN()

	var db *sql.DB
	var err error

	for i := 1; i <= maxRetries; i++ {
		db, err = sql.Open("mysql", dsn)
		if err != nil {
			log.Printf("  Attempt %d/%d: Failed to configure DB driver: %v", i, maxRetries, err)
			time.Sleep(retryDelay)
			continue
		}

		// Test the connection with Ping
		err = db.Ping()
		if err == nil {
			return db
		}

		log.Printf("  Attempt %d/%d: Cannot ping MariaDB: %v", i, maxRetries, err)
		db.Close()

		if i < maxRetries {
			time.Sleep(retryDelay)
		}
	}

	log.Fatalf("Cannot connect to MariaDB after %d attempts: %v", maxRetries, err)
	return nil // unreachable
}

// connectRedis attempts to connect to Redis with retry logic
func connectRedis(cfg config.RedisConfig, maxRetries int, retryDelay time.Duration) *redis.Client {
	rdb := redis.NewClient(&redis.Options{
		Addr: cfg.Addr,
	})

	ctx := context.Background()
	var err error

	for i := 1; i <= maxRetries; i++ {
		err = rdb.Ping(ctx).Err()
		if err == nil {
			return rdb
		}

		log.Printf("  Attempt %d/%d: Cannot ping Redis: %v", i, maxRetries, err)

		if i < maxRetries {
			time.Sleep(retryDelay)
		}
	}

	log.Fatalf("Cannot connect to Redis after %d attempts: %v", maxRetries, err)
	return nil // unreachable
}

// startHTTPServer starts the HTTP server with the webhook and status endpoints
func startHTTPServer(port int, webhookHandler *handler.WebhookHandler, statusHandler *handler.StatusHandler) {
	// Liveness endpoint
	http.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		statusHandler.HandleHealth(w, r)
	})

	// System metrics
	http.HandleFunc("/status", statusHandler.HandleMetrics)

	// POST /webhook/line - platform event deliveries
	http.HandleFunc("/webhook/line", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			webhookHandler.HandleEvent(w, r)
		} else {
			http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		}
	})

	addr := fmt.Sprintf(":%d", port)
	fmt.Printf("[HTTP] Server listening on %s\n", addr)
	fmt.Printf("[HTTP] Webhook: http://localhost%s/webhook/line\n", addr)
	fmt.Println("[READY] Press Ctrl+C to stop")

	if err := http.ListenAndServe(addr, nil); err != nil {
		log.Fatalf("HTTP server failed: %v", err)
	}
}
