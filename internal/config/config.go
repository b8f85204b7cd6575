// Package config loads service configuration from YAML with environment
// overrides for deployment secrets.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ConfigPath is the default config file location.
const ConfigPath = "config.yaml"

// FileConfig represents configuration loaded from YAML.
type FileConfig struct {
	Port     string `yaml:"port"`
	LogLevel string `yaml:"logLevel"`

	DatabaseURL   string `yaml:"databaseURL"`
	RedisAddr     string `yaml:"redisAddr"`
	RedisPassword string `yaml:"redisPassword"`

	SessionTTL        string `yaml:"sessionTTL"`
	OTPTTL            string `yaml:"otpTTL"`
	OTPResendCooldown string `yaml:"otpResendCooldown"`

	ResetTokenSecret string `yaml:"resetTokenSecret"`
	ResetTokenTTL    string `yaml:"resetTokenTTL"`

	SMTPHost     string `yaml:"smtpHost"`
	SMTPPort     int    `yaml:"smtpPort"`
	SMTPUsername string `yaml:"smtpUsername"`
	SMTPPassword string `yaml:"smtpPassword"`
	SMTPFrom     string `yaml:"smtpFrom"`
	MailDryRun   bool   `yaml:"mailDryRun"`

	SMSAPIKey   string `yaml:"smsApiKey"`
	SMSSenderID string `yaml:"smsSenderId"`
	SMSDryRun   bool   `yaml:"smsDryRun"`

	MinioEndpoint  string `yaml:"minioEndpoint"`
	MinioAccessKey string `yaml:"minioAccessKey"`
	MinioSecretKey string `yaml:"minioSecretKey"`
	MinioBucket    string `yaml:"minioBucket"`
	MinioUseSSL    bool   `yaml:"minioUseSSL"`

	MaxUploadMB             int    `yaml:"maxUploadMB"`
	LoginRateLimitPerMinute int    `yaml:"loginRateLimitPerMinute"`
	OTPRateLimitPerMinute   int    `yaml:"otpRateLimitPerMinute"`
	CleanupInterval         string `yaml:"cleanupInterval"`

	TrustedProxies []string `yaml:"trustedProxies"`
	CORSOrigins    []string `yaml:"corsOrigins"`
}

// Load reads config from path (defaults to config.yaml).
func Load(path string) (FileConfig, error) {
	cfg := FileConfig{}
	if path == "" {
		path = ConfigPath
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	// Override with environment variables
	if v := os.Getenv("PORT"); v != "" {
		cfg.Port = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.DatabaseURL = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.RedisAddr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.RedisPassword = v
	}
	if v := os.Getenv("RESET_TOKEN_SECRET"); v != "" {
		cfg.ResetTokenSecret = v
	}
	if v := os.Getenv("SMTP_HOST"); v != "" {
		cfg.SMTPHost = v
	}
	if v := os.Getenv("SMTP_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.SMTPPort = n
		}
	}
	if v := os.Getenv("SMTP_USERNAME"); v != "" {
		cfg.SMTPUsername = v
	}
	if v := os.Getenv("SMTP_PASSWORD"); v != "" {
		cfg.SMTPPassword = v
	}
	if v := os.Getenv("SMTP_FROM"); v != "" {
		cfg.SMTPFrom = v
	}
	if v := os.Getenv("SMS_API_KEY"); v != "" {
		cfg.SMSAPIKey = v
	}
	if v := os.Getenv("SMS_SENDER_ID"); v != "" {
		cfg.SMSSenderID = v
	}
	if v := os.Getenv("MINIO_ENDPOINT"); v != "" {
		cfg.MinioEndpoint = v
	}
	if v := os.Getenv("MINIO_ACCESS_KEY"); v != "" {
		cfg.MinioAccessKey = v
	}
	if v := os.Getenv("MINIO_SECRET_KEY"); v != "" {
		cfg.MinioSecretKey = v
	}
	if v := os.Getenv("MINIO_BUCKET"); v != "" {
		cfg.MinioBucket = v
	}
	if v := os.Getenv("MAX_UPLOAD_MB"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.MaxUploadMB = n
		}
	}
	if v := os.Getenv("LOGIN_RATE_LIMIT_PER_MINUTE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.LoginRateLimitPerMinute = n
		}
	}
	if v := os.Getenv("OTP_RATE_LIMIT_PER_MINUTE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.OTPRateLimitPerMinute = n
		}
	}
	if err := validateConfig(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func validateConfig(cfg FileConfig) error {
	if cfg.Port == "" {
		return errors.New("config: port is required (set in config.yaml)")
	}
	if cfg.DatabaseURL == "" {
		return errors.New("config: databaseURL is required (set DATABASE_URL)")
	}
	if strings.TrimSpace(cfg.RedisAddr) == "" {
		return errors.New("config: redisAddr is required for sessions and rate limits")
	}
	if strings.TrimSpace(cfg.ResetTokenSecret) == "" {
		return errors.New("config: resetTokenSecret is required (set RESET_TOKEN_SECRET)")
	}
	if !cfg.MailDryRun && (cfg.SMTPHost == "" || cfg.SMTPFrom == "") {
		return errors.New("config: smtpHost and smtpFrom are required unless mailDryRun is set")
	}
	if !cfg.SMSDryRun && cfg.SMSAPIKey == "" {
		return errors.New("config: smsApiKey is required unless smsDryRun is set")
	}
	if cfg.MinioEndpoint == "" || cfg.MinioBucket == "" {
		return errors.New("config: minioEndpoint and minioBucket are required")
	}
	if cfg.MaxUploadMB < 0 {
		return errors.New("config: maxUploadMB must be >= 0")
	}
	if cfg.LoginRateLimitPerMinute < 0 || cfg.OTPRateLimitPerMinute < 0 {
		return errors.New("config: rate limits must be >= 0")
	}
	return nil
}

// ParseDuration parses an optional duration string, returning fallback
// when empty.
func ParseDuration(raw string, fallback time.Duration) (time.Duration, error) {
	if strings.TrimSpace(raw) == "" {
		return fallback, nil
	}
	dur, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	return dur, nil
}
