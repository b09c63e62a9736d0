package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/cloud-platform/recipe-store/internal/recipe-store/server"
	"github.com/cloud-platform/recipe-store/shared/config"
	"github.com/cloud-platform/recipe-store/shared/logger"
	"github.com/gin-gonic/gin"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	appLogger, err := logger.NewZapLogger(cfg.Log.ToLoggerConfig())
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer appLogger.Sync()

	srv, err := server.New(*cfg, appLogger)
	if err != nil {
		appLogger.Fatalf("Failed to create server: %v", err)
	}

	ln, err := srv.Listen()
	if err != nil {
		appLogger.Fatalf("Failed to start server: %v", err)
	}

	urls := srv.DisplayURLs()
	fmt.Println("Server running at:")
	fmt.Printf("- Local: %s\n", urls.Local)
	fmt.Printf("- Network: %s\n", urls.Network)
	fmt.Println("Press Ctrl+C to stop")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := srv.Serve(ctx, ln); err != nil {
		appLogger.Fatalf("Server error: %v", err)
	}

	fmt.Println("\nShutting down server...")
}
