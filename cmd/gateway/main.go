package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/newsletter-gateway/internal/application/subscription"
	"github.com/newsletter-gateway/internal/application/verification"
	"github.com/newsletter-gateway/internal/config"
	"github.com/newsletter-gateway/internal/infrastructure/sendlix"
	"github.com/newsletter-gateway/internal/infrastructure/templates"
	"github.com/newsletter-gateway/internal/pkg/async"
	"github.com/newsletter-gateway/internal/pkg/cooldown"
	transporthttp "github.com/newsletter-gateway/internal/transport/http"
	"github.com/newsletter-gateway/internal/transport/ws"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, reading from environment")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("configuration error: %v", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// Probe once so a bad API key fails at startup.
	client, err := sendlix.NewClient(cfg.APIBaseURL, cfg.APIKey, logger)
	if err != nil {
		log.Fatalf("sendlix client: %v", err)
	}
	defer client.Close()

	probeCtx, probeCancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := client.Probe(probeCtx); err != nil {
		probeCancel()
		log.Fatalf("sendlix credentials rejected: %v", err)
	}
	probeCancel()
	log.Println("Access token initialized successfully")

	tmpl, err := templates.Load(cfg.TemplatesDir)
	if err != nil {
		log.Fatalf("email templates: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	limiter := cooldown.New(time.Duration(cfg.RateLimitSeconds) * time.Second)
	go limiter.Run(ctx)
	log.Printf("Rate limiter initialized with %d seconds cooldown", cfg.RateLimitSeconds)

	pool := async.New(cfg.Workers, cfg.QueueDepth)
	defer pool.Shutdown()

	svc := subscription.NewService(subscription.Deps{
		API:       client,
		Limiter:   limiter,
		Registry:  verification.NewRegistry(),
		Templates: tmpl,
		Notifier:  nil, // set below, the hub dispatches back into the service
		Messenger: subscription.NewLogMessenger(logger),
		Pool:      pool,
		Config:    cfg,
		Log:       logger,
	})

	hub := ws.NewHub(svc, cfg.AllowedOrigins, logger)
	defer hub.Close()
	svc.SetNotifier(hub)

	router := transporthttp.NewRouter(cfg, &transporthttp.Deps{
		Subscriptions: svc,
		WireChannel:   hub.Handler(),
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.AppPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Gateway starting on :%s (env=%s)", cfg.AppPort, cfg.AppEnv)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down gateway...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("forced shutdown: %v", err)
	}
	log.Println("Gateway stopped")
}
