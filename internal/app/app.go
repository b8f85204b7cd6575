// Package app implements the core account, document, and chat workflows.
package app

import (
	"fmt"
	"strings"
	"time"

	"clauseease/pkg/auth"
	"clauseease/pkg/mail"
	"clauseease/pkg/sms"
	"clauseease/pkg/storage"
	"clauseease/pkg/store"
)

// Config holds runtime configuration for the core application.
type Config struct {
	DatabaseURL   string
	RedisAddr     string
	RedisPassword string

	SessionTTL        time.Duration
	OTPTTL            time.Duration
	OTPResendCooldown time.Duration

	ResetTokenSecret string
	ResetTokenTTL    time.Duration

	// Optional injected collaborators, used by tests and local runs.
	Store     store.Store
	Sessions  store.SessionStore
	Objects   storage.ObjectStore
	Mailer    mail.Mailer
	SMS       sms.Sender
	Cooldowns Cooldown
}

// App is the core application service wiring storage, delivery, and auth.
type App struct {
	store       store.Store
	sessions    store.SessionStore
	objects     storage.ObjectStore
	mailer      mail.Mailer
	sms         sms.Sender
	cooldowns   Cooldown
	resetSigner *auth.ResetTokenSigner

	otpTTL         time.Duration
	resendCooldown time.Duration
}

// New constructs the application with database storage and session management.
func New(cfg Config) (*App, error) {
	if cfg.SessionTTL == 0 {
		cfg.SessionTTL = 7 * 24 * time.Hour
	}
	if cfg.OTPTTL == 0 {
		cfg.OTPTTL = 10 * time.Minute
	}
	if cfg.OTPResendCooldown == 0 {
		cfg.OTPResendCooldown = time.Minute
	}
	if cfg.ResetTokenTTL == 0 {
		cfg.ResetTokenTTL = auth.DefaultResetTokenTTL
	}

	dataStore := cfg.Store
	if dataStore == nil {
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("database URL required")
		}
		var err error
		dataStore, err = store.NewGormStore(cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("init postgres store: %w", err)
		}
	}

	sessionStore := cfg.Sessions
	if sessionStore == nil {
		if strings.TrimSpace(cfg.RedisAddr) == "" {
			return nil, fmt.Errorf("redisAddr is required for sessions")
		}
		sessionStore = store.NewRedisSessionStore(cfg.RedisAddr, cfg.RedisPassword, cfg.SessionTTL)
	}

	cooldowns := cfg.Cooldowns
	if cooldowns == nil {
		if strings.TrimSpace(cfg.RedisAddr) == "" {
			return nil, fmt.Errorf("redisAddr is required for resend cooldowns")
		}
		cooldowns = NewRedisCooldown(cfg.RedisAddr, cfg.RedisPassword)
	}

	resetSigner, err := auth.NewResetTokenSigner(cfg.ResetTokenSecret, cfg.ResetTokenTTL)
	if err != nil {
		return nil, fmt.Errorf("init reset token signer: %w", err)
	}

	mailer := cfg.Mailer
	if mailer == nil {
		mailer = mail.DevMailer{}
	}
	smsSender := cfg.SMS
	if smsSender == nil {
		smsSender = sms.NewClient("", "", true)
	}

	return &App{
		store:          dataStore,
		sessions:       sessionStore,
		objects:        cfg.Objects,
		mailer:         mailer,
		sms:            smsSender,
		cooldowns:      cooldowns,
		resetSigner:    resetSigner,
		otpTTL:         cfg.OTPTTL,
		resendCooldown: cfg.OTPResendCooldown,
	}, nil
}

// Store exposes the persistence layer for maintenance tasks.
func (a *App) Store() store.Store {
	return a.store
}
