package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"

	_ "github.com/mkravets/contacts-api/api/swagger"
	"github.com/mkravets/contacts-api/internal/migrations"
	"github.com/mkravets/contacts-api/internal/repository"
	"github.com/mkravets/contacts-api/internal/router"
	"github.com/mkravets/contacts-api/internal/service"
	"github.com/mkravets/contacts-api/internal/token"
	"github.com/mkravets/contacts-api/pkg/cache"
	"github.com/mkravets/contacts-api/pkg/config"
	"github.com/mkravets/contacts-api/pkg/database"
	"github.com/mkravets/contacts-api/pkg/jobs"
	"github.com/mkravets/contacts-api/pkg/logger"
	"github.com/mkravets/contacts-api/pkg/mailer"
	"github.com/mkravets/contacts-api/pkg/storage"
)

// @title Contacts API
// @version 1.0.0
// @description Contact management REST service with token-based authentication
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck
	sugar := logr.Sugar()

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		sugar.Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	migrateCtx, cancelMigrate := context.WithTimeout(context.Background(), time.Minute)
	if err := migrations.Up(migrateCtx, db.DB); err != nil {
		cancelMigrate()
		sugar.Fatalw("failed to apply migrations", "error", err)
	}
	cancelMigrate()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		sugar.Fatalw("failed to connect to redis", "error", err)
	}
	defer redisClient.Close()

	codec, err := token.NewCodec(token.Config{
		Secret:     cfg.Auth.Secret,
		Issuer:     cfg.Auth.Issuer,
		AccessTTL:  cfg.Auth.AccessTTL,
		RefreshTTL: cfg.Auth.RefreshTTL,
		ConfirmTTL: cfg.Auth.ConfirmationTTL,
	})
	if err != nil {
		sugar.Fatalw("failed to build token codec", "error", err)
	}

	avatarStore, err := storage.NewLocalStorage(cfg.Avatars.StorageDir)
	if err != nil {
		sugar.Fatalw("failed to init avatar storage", "error", err)
	}
	signer := storage.NewSignedURLSigner(cfg.Avatars.SignedURLSecret, cfg.Avatars.SignedURLTTL)

	var sender mailer.Sender
	if cfg.Mail.PostmarkServerToken != "" {
		sender, err = mailer.NewPostmarkSender(cfg.Mail.PostmarkServerToken, cfg.Mail.SenderEmail)
		if err != nil {
			sugar.Fatalw("failed to init postmark sender", "error", err)
		}
	} else {
		sugar.Warnw("no postmark token configured, using dev mail sender")
		sender = mailer.NewDevSender(logr)
	}

	userRepo := repository.NewUserRepository(db)
	confirmationRepo := repository.NewConfirmationRepository(db)
	sessionRepo := repository.NewSessionRepository(redisClient)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	contactRepo := repository.NewContactRepository(db)
	channelRepo := repository.NewChannelRepository(db)
	assocRepo := repository.NewContactChannelRepository(db)

	validate := validator.New()
	metrics := service.NewMetricsService()

	mailSvc := service.NewMailService(sender, logr, service.MailConfig{
		PublicBaseURL: cfg.Mail.PublicBaseURL,
		QueueConfig: jobs.QueueConfig{
			Workers:    cfg.Mailer.Workers,
			BufferSize: cfg.Mailer.BufferSize,
			MaxRetries: cfg.Mailer.MaxRetries,
			RetryDelay: cfg.Mailer.RetryDelay,
			Logger:     logr,
		},
	})
	mailSvc.Start(context.Background())
	defer mailSvc.Stop()

	authSvc := service.NewAuthService(
		userRepo, confirmationRepo, sessionRepo, cacheRepo, mailSvc,
		codec, validate, logr,
		service.AuthConfig{
			RefreshTTL:   cfg.Auth.RefreshTTL,
			ConfirmTTL:   cfg.Auth.ConfirmationTTL,
			UserCacheTTL: cfg.Auth.UserCacheTTL,
		},
	).WithMetrics(metrics)

	profileSvc := service.NewUserService(userRepo, cacheRepo, sessionRepo, avatarStore, signer, logr)
	contactSvc := service.NewContactService(contactRepo, assocRepo, validate, logr)
	channelSvc := service.NewChannelService(channelRepo, validate, logr)
	assocSvc := service.NewContactChannelService(assocRepo, contactRepo, channelRepo, validate, logr)

	engine := router.New(router.Deps{
		Config:          cfg,
		Logger:          logr,
		Redis:           redisClient,
		UserRepo:        userRepo,
		Auth:            authSvc,
		Profile:         profileSvc,
		Contacts:        contactSvc,
		Channels:        channelSvc,
		ContactChannels: assocSvc,
		Metrics:         metrics,
		Ready: func() error {
			if err := db.Ping(); err != nil {
				return fmt.Errorf("postgres: %w", err)
			}
			pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if err := redisClient.Ping(pingCtx).Err(); err != nil {
				return fmt.Errorf("redis: %w", err)
			}
			return nil
		},
	})

	janitorCtx, cancelJanitor := context.WithCancel(context.Background())
	defer cancelJanitor()
	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-janitorCtx.Done():
				return
			case <-ticker.C:
				purged, err := confirmationRepo.DeleteExpired(janitorCtx, time.Now())
				if err != nil {
					sugar.Warnw("confirmation token cleanup failed", "error", err)
					continue
				}
				if purged > 0 {
					sugar.Infow("purged expired confirmation tokens", "count", purged)
				}
			}
		}
	}()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		sugar.Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			sugar.Fatalw("server failed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	sugar.Infow("server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		sugar.Errorw("graceful shutdown failed", "error", err)
	}
}
