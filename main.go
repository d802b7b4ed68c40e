package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/memochat/memochat/api"
	"github.com/memochat/memochat/auth"
	"github.com/memochat/memochat/chat"
	"github.com/memochat/memochat/config"
	"github.com/memochat/memochat/memory"
	"github.com/memochat/memochat/policy"
	"github.com/memochat/memochat/store"
)

func main() {
	// Load configuration
	cfg := config.Load()

	log.Printf("Starting memochat...")
	log.Printf("HTTP Port: %d", cfg.HTTPPort)
	log.Printf("Database: %s", cfg.DatabaseURL)
	log.Printf("Provider URL: %s", cfg.ProviderBaseURL)

	// Initialize store
	db, err := store.NewSQLiteStore(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to initialize store: %v", err)
	}
	defer db.Close()

	// Initialize policy engine
	ctx := context.Background()
	policyEngine, err := policy.NewEngine(ctx, policy.DefaultPolicy)
	if err != nil {
		log.Fatalf("Failed to initialize policy engine: %v", err)
	}

	// Initialize session memory, background tasks and the chat engine
	sessions := memory.NewSessionStore()
	tasks := chat.NewRunner(4)
	engine := chat.NewEngine(db, sessions, tasks, cfg)

	// Initialize auth
	authManager := auth.NewManager(cfg.JWTSecret, cfg.TokenTTL)

	// Initialize handler
	h := api.NewHandler(db, engine, authManager, policyEngine, cfg)

	// Create Echo server
	server := echo.New()
	server.HideBanner = true

	// Middleware
	server.Use(middleware.Logger())
	server.Use(middleware.Recover())
	server.Use(middleware.CORS())

	// Register routes
	h.RegisterRoutes(server)

	// Start server
	go func() {
		addr := fmt.Sprintf(":%d", cfg.HTTPPort)
		if err := server.Start(addr); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	log.Printf("API started on port %d", cfg.HTTPPort)

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down memochat...")

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Failed to shutdown server gracefully: %v", err)
	}

	// Let in-flight finalize and summarize work land before closing the
	// database.
	tasks.Shutdown()

	log.Println("Memochat stopped")
}
