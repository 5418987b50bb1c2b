package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/Therealpare/Bookstore/internal/account"
	"github.com/Therealpare/Bookstore/internal/catalog"
	"github.com/Therealpare/Bookstore/internal/checkout"
	"github.com/Therealpare/Bookstore/internal/config"
	"github.com/Therealpare/Bookstore/internal/events"
	"github.com/Therealpare/Bookstore/internal/gateway"
	"github.com/Therealpare/Bookstore/internal/httpapi"
	"github.com/Therealpare/Bookstore/internal/identity"
	"github.com/Therealpare/Bookstore/internal/wishlist"
	"github.com/Therealpare/Bookstore/pkg/logger"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize logger
	log := logger.New(cfg.ServiceName, cfg.LogLevel)
	defer log.Sync()

	log.Info("Storefront service starting")

	// Connect to the remote data gateway
	gw, err := openGateway(cfg, log)
	if err != nil {
		log.Fatal("Failed to open data gateway", zap.Error(err))
	}
	defer gw.Close()

	sessionTTL, err := time.ParseDuration(cfg.SessionTTL)
	if err != nil {
		log.Fatal("Invalid SESSION_TTL", zap.Error(err))
	}

	// Identity and profile services
	ids := identity.NewGatewayProvider(gw, nil, cfg.JWTSecret, sessionTTL, log)
	accounts := account.NewService(gw, ids, log)
	wishlists := wishlist.NewService(gw, log)

	// Live catalog view
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	cat, err := catalog.NewView(ctx, gw, log)
	cancel()
	if err != nil {
		log.Fatal("Failed to load catalog", zap.Error(err))
	}
	defer cat.Close()

	// Connect to RabbitMQ; order events are best-effort
	var publisher checkout.EventPublisher
	rabbit, err := events.NewPublisher(cfg.RabbitMQURL, log)
	if err != nil {
		log.Warn("RabbitMQ unavailable, order events disabled", zap.Error(err))
	} else {
		publisher = rabbit
		defer rabbit.Close()
	}

	// Checkout orchestrator with metrics
	registry := prometheus.NewRegistry()
	orchestrator := checkout.NewOrchestrator(gw, publisher, checkout.NewMetrics(registry), log)

	// HTTP server
	server := httpapi.NewServer(log, gw, cat, ids, accounts, wishlists, orchestrator, registry)
	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.HTTPPort),
		Handler:      server.Router(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Info("Starting HTTP server", zap.String("address", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to serve HTTP", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown error", zap.Error(err))
	}

	log.Info("Server stopped")
}

func openGateway(cfg *config.Config, log *zap.Logger) (gateway.Gateway, error) {
	switch cfg.GatewayBackend {
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		return gateway.NewRedis(client, log)
	case "postgres":
		return gateway.ConnectPostgres(cfg.PGDSN, log)
	case "memory":
		return gateway.NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown gateway backend %q", cfg.GatewayBackend)
	}
}
