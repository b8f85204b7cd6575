package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"clauseease/internal/app"
	"clauseease/internal/config"
	"clauseease/internal/ratelimit"
	"clauseease/internal/server"
	"clauseease/internal/util"
	"clauseease/pkg/mail"
	"clauseease/pkg/sms"
	"clauseease/pkg/storage"
)

func main() {
	cfg, err := config.Load(config.ConfigPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	sessionTTL, err := config.ParseDuration(cfg.SessionTTL, 7*24*time.Hour)
	if err != nil {
		log.Fatalf("failed to parse session TTL: %v", err)
	}
	otpTTL, err := config.ParseDuration(cfg.OTPTTL, 10*time.Minute)
	if err != nil {
		log.Fatalf("failed to parse OTP TTL: %v", err)
	}
	resendCooldown, err := config.ParseDuration(cfg.OTPResendCooldown, time.Minute)
	if err != nil {
		log.Fatalf("failed to parse resend cooldown: %v", err)
	}
	resetTokenTTL, err := config.ParseDuration(cfg.ResetTokenTTL, 30*time.Minute)
	if err != nil {
		log.Fatalf("failed to parse reset token TTL: %v", err)
	}
	cleanupInterval, err := config.ParseDuration(cfg.CleanupInterval, time.Hour)
	if err != nil {
		log.Fatalf("failed to parse cleanup interval: %v", err)
	}

	logger := util.InitLogger(cfg.LogLevel)

	var mailer mail.Mailer = mail.DevMailer{}
	if !cfg.MailDryRun {
		mailer = mail.NewSMTPMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword, cfg.SMTPFrom)
	}
	smsSender := sms.NewClient(cfg.SMSAPIKey, cfg.SMSSenderID, cfg.SMSDryRun)

	objects, err := storage.NewMinioStore(cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey, cfg.MinioBucket, cfg.MinioUseSSL)
	if err != nil {
		log.Fatalf("failed to init object storage: %v", err)
	}

	appCore, err := app.New(app.Config{
		DatabaseURL:       cfg.DatabaseURL,
		RedisAddr:         cfg.RedisAddr,
		RedisPassword:     cfg.RedisPassword,
		SessionTTL:        sessionTTL,
		OTPTTL:            otpTTL,
		OTPResendCooldown: resendCooldown,
		ResetTokenSecret:  cfg.ResetTokenSecret,
		ResetTokenTTL:     resetTokenTTL,
		Objects:           objects,
		Mailer:            mailer,
		SMS:               smsSender,
	})
	if err != nil {
		log.Fatalf("failed to init app: %v", err)
	}

	trustedProxies, err := util.NewTrustedProxies(cfg.TrustedProxies)
	if err != nil {
		log.Fatalf("failed to parse trusted proxies: %v", err)
	}
	var loginLimiter, otpLimiter *ratelimit.FixedWindowLimiter
	if cfg.LoginRateLimitPerMinute > 0 {
		loginLimiter, err = ratelimit.NewRedisFixedWindowLimiter(cfg.RedisAddr, cfg.RedisPassword, "clauseease:ratelimit:login", cfg.LoginRateLimitPerMinute, time.Minute)
		if err != nil {
			log.Fatalf("failed to init login rate limiter: %v", err)
		}
	}
	if cfg.OTPRateLimitPerMinute > 0 {
		otpLimiter, err = ratelimit.NewRedisFixedWindowLimiter(cfg.RedisAddr, cfg.RedisPassword, "clauseease:ratelimit:otp", cfg.OTPRateLimitPerMinute, time.Minute)
		if err != nil {
			log.Fatalf("failed to init otp rate limiter: %v", err)
		}
	}

	httpServer := server.New(server.Config{
		App:            appCore,
		MaxUploadBytes: int64(cfg.MaxUploadMB) << 20,
		LoginLimiter:   loginLimiter,
		OTPLimiter:     otpLimiter,
		TrustedProxies: trustedProxies,
	})

	handler := util.WithRequestID(
		util.WithRequestLog(trustedProxies,
			util.WithSecurityHeaders(
				util.WithCORS(cfg.CORSOrigins, httpServer.Router()))))

	addr := ":" + cfg.Port
	srv := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		return runCodeSweeper(gctx, appCore, cleanupInterval)
	})

	if err := g.Wait(); err != nil {
		logger.Error("server error", "err", err)
	}
}

// runCodeSweeper periodically clears expired verification codes so stale
// codes do not linger on user rows.
func runCodeSweeper(ctx context.Context, a *app.App, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			cleared, err := a.ClearExpiredCodes(time.Now().UTC())
			if err != nil {
				slog.Error("clear expired codes", "error", err)
				continue
			}
			if cleared > 0 {
				slog.Info("cleared expired verification codes", "count", cleared)
			}
		}
	}
}
