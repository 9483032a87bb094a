// cmd/bot/main.go
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/beeshaker/whatsapp-eats-backend/internal/audit"
	"github.com/beeshaker/whatsapp-eats-backend/internal/backend"
	"github.com/beeshaker/whatsapp-eats-backend/internal/classifier"
	"github.com/beeshaker/whatsapp-eats-backend/internal/common/config"
	"github.com/beeshaker/whatsapp-eats-backend/internal/common/database"
	"github.com/beeshaker/whatsapp-eats-backend/internal/common/logger"
	"github.com/beeshaker/whatsapp-eats-backend/internal/common/observability"
	"github.com/beeshaker/whatsapp-eats-backend/internal/recommend"
	"github.com/beeshaker/whatsapp-eats-backend/internal/router"
	"github.com/beeshaker/whatsapp-eats-backend/internal/store"
	"github.com/beeshaker/whatsapp-eats-backend/internal/webhook"
	"github.com/beeshaker/whatsapp-eats-backend/internal/whatsapp"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2 // Exponential backoff
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	zapLog := logger.New("info", "console")
	defer zapLog.Sync()

	zapLog.Info("Starting whatsapp-eats bot...")

	cfg, err := config.Load()
	if err != nil {
		zapLog.Fatal("config load failed", zap.Error(err))
	}

	// Rebuild the logger with the configured level/format.
	zapLog = logger.New(cfg.Logging.Level, cfg.Logging.Format)
	log := logger.NewZapAdapter(zapLog)

	obs := observability.New(cfg.App.Name)
	defer obs.Shutdown()

	ctx := context.Background()

	// --- Stores: Redis when configured, in-memory otherwise ---
	dedupTTL := store.DefaultDedupTTL
	if cfg.Dedup.TTL > 0 {
		dedupTTL = time.Duration(cfg.Dedup.TTL) * time.Second
	}

	var (
		dedup    store.DedupStore
		states   store.StateStore
		profiles store.ProfileStore
	)
	if cfg.Database.Redis.Address != "" {
		var redisClient *database.RedisClient
		err = retryWithBackoff(func() error {
			var err error
			redisClient, err = database.NewRedis(cfg.Database.Redis)
			if err != nil {
				return err
			}
			return redisClient.Ping(ctx)
		}, 10, 2*time.Second, zapLog, "Redis connection")
		if err != nil {
			zapLog.Fatal("redis unavailable", zap.Error(err))
		}
		defer redisClient.Close()

		dedup = store.NewRedisDedupStore(redisClient, dedupTTL)
		states = store.NewRedisStateStore(redisClient)
		profiles = store.NewRedisProfileStore(redisClient, cfg.Dedup.CoordinatePlaces)
		zapLog.Info("using redis-backed stores", zap.String("address", cfg.Database.Redis.Address))
	} else {
		dedup = store.NewMemoryDedupStore(dedupTTL, cfg.Dedup.SweepEveryInserts)
		states = store.NewMemoryStateStore()
		profiles = store.NewMemoryProfileStore(cfg.Dedup.CoordinatePlaces)
		zapLog.Warn("redis not configured, using in-memory stores; state is lost on restart")
	}

	// --- Outbound clients ---
	backendClient := backend.NewClient(&backend.Config{
		BaseURL:      cfg.Backend.BaseURL,
		TenantID:     cfg.Backend.TenantID,
		APIKey:       cfg.Backend.APIKey,
		RestaurantID: cfg.Backend.RestaurantID,
		Timeout:      time.Duration(cfg.Backend.Timeout) * time.Millisecond,
		OrderTimeout: time.Duration(cfg.Backend.OrderTimeout) * time.Millisecond,
	}, log)

	intentClient := classifier.NewClient(&classifier.Config{
		BaseURL:    cfg.Classifier.BaseURL,
		APIKey:     cfg.Classifier.APIKey,
		Model:      cfg.Classifier.Model,
		Timeout:    time.Duration(cfg.Classifier.Timeout) * time.Millisecond,
		MaxRetries: cfg.Classifier.MaxRetries,
	}, log)

	auditSink := audit.NewSink(&audit.Config{
		BaseURL:  cfg.Backend.BaseURL,
		TenantID: cfg.Backend.TenantID,
		Timeout:  time.Duration(cfg.Backend.AuditTimeout) * time.Millisecond,
	}, dedup, log)

	sender := whatsapp.NewSender(&whatsapp.Config{
		AccessToken:   cfg.WhatsApp.AccessToken,
		PhoneNumberID: cfg.WhatsApp.PhoneNumberID,
		GraphBaseURL:  cfg.WhatsApp.GraphBaseURL,
		SendTimeout:   time.Duration(cfg.WhatsApp.SendTimeout) * time.Millisecond,
	}, log, func(ctx context.Context, rec whatsapp.OutboundRecord) {
		auditSink.LogOutbound(ctx, rec)
	})

	// --- Router and webhook ---
	bot := router.New(&router.Config{
		PublicBaseURL: cfg.WhatsApp.PublicBaseURL,
		RestaurantID:  cfg.Backend.RestaurantID,
	}, backendClient, intentClient, sender, states, profiles,
		recommend.New(cfg.Recommend.Limit), log)

	hook := webhook.NewHandler(&webhook.Config{
		VerifyToken:  cfg.WhatsApp.VerifyToken,
		MaxBodyBytes: cfg.Server.MaxBodyBytes,
	}, dedup, bot, auditSink, sender, log)

	mux := chi.NewRouter()
	mux.Mount("/", hook.Routes())
	mux.Handle("/metrics", promhttp.Handler())
	mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	server := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      mux,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Millisecond,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Millisecond,
	}

	go func() {
		zapLog.Info("webhook server listening", zap.String("address", cfg.Server.Address))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLog.Fatal("server failed", zap.Error(err))
		}
	}()

	// --- Graceful shutdown ---
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	zapLog.Info("shutting down...")
	shutdownCtx, cancel := context.WithTimeout(ctx, time.Duration(cfg.Server.ShutdownTimeout)*time.Millisecond)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("graceful shutdown failed", zap.Error(err))
	}
	zapLog.Info("shutdown complete")
}
