package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/example/couture/internal/config"
	"github.com/example/couture/internal/database"
	"github.com/example/couture/internal/logging"
	"github.com/example/couture/internal/routes"
	"github.com/example/couture/internal/services"
	"github.com/example/couture/internal/storage"
	"github.com/example/couture/internal/utils"
)

func main() {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.Debug)
	if err != nil {
		log.Fatalf("build logger: %v", err)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

func openStore(cfg *config.Config, logger *zap.Logger) (storage.Store, error) {
	if cfg.UseMemoryStore {
		logger.Warn("using in-memory store, data is lost on restart")
		return storage.NewMemoryStore(), nil
	}
	db, err := database.Connect(cfg.DatabaseURL, cfg.Debug, logger)
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(db); err != nil {
		return nil, err
	}
	return storage.NewDatabaseStore(db), nil
}

func run(cfg *config.Config, logger *zap.Logger) error {
	store, err := openStore(cfg, logger)
	if err != nil {
		return err
	}

	var mailer services.Mailer = services.NewLogMailer(logger)
	if cfg.SMTPEnabled() {
		mailer = services.NewSMTPMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword, cfg.DefaultFromEmail)
	} else {
		logger.Warn("SMTP_HOST not set, emails are written to the log")
	}
	templates, err := services.NewEmailTemplates(cfg.CompanyName, cfg.SupportEmail)
	if err != nil {
		return err
	}
	images, err := services.NewLocalImageStore(cfg.MediaRoot, cfg.MediaURL, cfg.MaxUploadSize)
	if err != nil {
		return err
	}

	tokens := utils.NewJWTIssuer(cfg.JWTSecret, cfg.AccessTTL, cfg.RefreshTTL, cfg.ResetTokenTTL)
	telegram := services.NewTelegramService(cfg.TelegramBotToken, cfg.TelegramAdminChat, logger)
	otp := services.NewOTPService(store, mailer, templates, tokens, services.OTPConfig{TTL: cfg.OTPTTL, Cooldown: cfg.OTPResendAfter}, logger)

	app := routes.NewApp(cfg, routes.Services{
		Store:      store,
		Tokens:     tokens,
		Accounts:   services.NewAccountService(store, otp, tokens, logger),
		OTP:        otp,
		Catalog:    services.NewCatalogService(store, logger),
		Carts:      services.NewCartService(store, logger),
		OrderCarts: services.NewOrderCartService(store, logger),
		Orders:     services.NewCustomOrderService(store, images, telegram, services.CustomOrderConfig{MaxImageSize: cfg.MaxUploadSize}, logger),
	}, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server", zap.String("port", cfg.AppPort))
		errCh <- app.Listen(":" + cfg.AppPort)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	return app.ShutdownWithTimeout(10 * time.Second)
}
