package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	defaultAppName         = "PaySync"
	defaultAppEnv          = "development"
	defaultPort            = "5000"
	defaultLogLevel        = "info"
	defaultLogFormat       = "json"
	defaultShutdownDelay   = 10 * time.Second
	defaultIdempotencyTTL  = 24 * time.Hour
	defaultAccessTokenTTL  = 15 * time.Minute
	defaultRefreshTokenTTL = 7 * 24 * time.Hour
	defaultJWTSecret       = "dev-access-secret"
	defaultRefreshSecret   = "dev-refresh-secret"
	defaultBcryptCost      = 12

	defaultOTPTTL            = 5 * time.Minute
	defaultOTPMaxAttempts    = 5
	defaultOTPResendCooldown = 30 * time.Second
	defaultOTPConsumedGrace  = time.Minute
	defaultResetTokenTTL     = 10 * time.Minute
	defaultOTPCallTimeout    = 5 * time.Second
	defaultOTPSweepInterval  = time.Minute
)

// Delivery channels for OTP codes.
const (
	DeliveryLog     = "log"
	DeliverySMTP    = "smtp"
	DeliveryWebhook = "webhook"
)

// Password hashing algorithms.
const (
	HasherBcrypt   = "bcrypt"
	HasherArgon2id = "argon2id"
)

// Config captures application runtime configuration loaded from the environment
// and an optional .env file.
type Config struct {
	AppName        string
	Env            string
	Port           string
	LogLevel       string
	LogFormat      string
	DatabaseURL    string
	RedisURL       string
	ShutdownPeriod time.Duration
	IdempotencyTTL time.Duration

	JWTSecret       string
	RefreshSecret   string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
	PasswordHasher  string
	BcryptCost      int
	LoginRateLimit  int

	OTP  OTPConfig
	SMTP SMTPConfig

	WebhookURL   string
	WebhookToken string
}

// OTPConfig is the password reset policy.
type OTPConfig struct {
	TTL            time.Duration
	MaxAttempts    int
	ResendCooldown time.Duration
	ConsumedGrace  time.Duration
	ResetTokenTTL  time.Duration
	CallTimeout    time.Duration
	SweepInterval  time.Duration
	Delivery       string
	RateLimit      int
}

// SMTPConfig holds outgoing mail settings used by the smtp delivery channel.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	FromName string
	TLS      bool
}

// Load reads .env (if present), then the environment, and returns a validated Config.
func Load() (Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	if err := v.ReadInConfig(); err != nil && !isMissingConfig(err) {
		return Config{}, fmt.Errorf("read .env: %w", err)
	}
	v.AutomaticEnv()

	setDefaults(v)
	return fromViper(v)
}

func isMissingConfig(err error) bool {
	var notFound viper.ConfigFileNotFoundError
	return errors.As(err, &notFound) || errors.Is(err, fs.ErrNotExist)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_NAME", defaultAppName)
	v.SetDefault("APP_ENV", defaultAppEnv)
	v.SetDefault("PORT", defaultPort)
	v.SetDefault("LOG_LEVEL", defaultLogLevel)
	v.SetDefault("LOG_FORMAT", defaultLogFormat)
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("REDIS_URL", "")
	v.SetDefault("SHUTDOWN_TIMEOUT", defaultShutdownDelay)
	v.SetDefault("IDEMPOTENCY_TTL", defaultIdempotencyTTL)
	v.SetDefault("JWT_SECRET", defaultJWTSecret)
	v.SetDefault("REFRESH_SECRET", defaultRefreshSecret)
	v.SetDefault("ACCESS_TOKEN_TTL", defaultAccessTokenTTL)
	v.SetDefault("REFRESH_TOKEN_TTL", defaultRefreshTokenTTL)
	v.SetDefault("PASSWORD_HASHER", HasherBcrypt)
	v.SetDefault("BCRYPT_COST", defaultBcryptCost)
	v.SetDefault("LOGIN_RATE_LIMIT", 5)

	v.SetDefault("OTP_TTL", defaultOTPTTL)
	v.SetDefault("OTP_MAX_ATTEMPTS", defaultOTPMaxAttempts)
	v.SetDefault("OTP_RESEND_COOLDOWN", defaultOTPResendCooldown)
	v.SetDefault("OTP_CONSUMED_GRACE", defaultOTPConsumedGrace)
	v.SetDefault("RESET_TOKEN_TTL", defaultResetTokenTTL)
	v.SetDefault("OTP_CALL_TIMEOUT", defaultOTPCallTimeout)
	v.SetDefault("OTP_SWEEP_INTERVAL", defaultOTPSweepInterval)
	v.SetDefault("OTP_DELIVERY", DeliveryLog)
	v.SetDefault("OTP_RATE_LIMIT", 5)

	v.SetDefault("SMTP_HOST", "")
	v.SetDefault("SMTP_PORT", 587)
	v.SetDefault("SMTP_USERNAME", "")
	v.SetDefault("SMTP_PASSWORD", "")
	v.SetDefault("SMTP_FROM", "")
	v.SetDefault("SMTP_FROM_NAME", defaultAppName)
	v.SetDefault("SMTP_TLS", true)

	v.SetDefault("OTP_WEBHOOK_URL", "")
	v.SetDefault("OTP_WEBHOOK_TOKEN", "")
}

func fromViper(v *viper.Viper) (Config, error) {
	cfg := Config{
		AppName:         v.GetString("APP_NAME"),
		Env:             strings.ToLower(v.GetString("APP_ENV")),
		Port:            v.GetString("PORT"),
		LogLevel:        strings.ToLower(v.GetString("LOG_LEVEL")),
		LogFormat:       strings.ToLower(v.GetString("LOG_FORMAT")),
		DatabaseURL:     v.GetString("DATABASE_URL"),
		RedisURL:        v.GetString("REDIS_URL"),
		ShutdownPeriod:  v.GetDuration("SHUTDOWN_TIMEOUT"),
		IdempotencyTTL:  v.GetDuration("IDEMPOTENCY_TTL"),
		JWTSecret:       v.GetString("JWT_SECRET"),
		RefreshSecret:   v.GetString("REFRESH_SECRET"),
		AccessTokenTTL:  v.GetDuration("ACCESS_TOKEN_TTL"),
		RefreshTokenTTL: v.GetDuration("REFRESH_TOKEN_TTL"),
		PasswordHasher:  strings.ToLower(v.GetString("PASSWORD_HASHER")),
		BcryptCost:      v.GetInt("BCRYPT_COST"),
		LoginRateLimit:  v.GetInt("LOGIN_RATE_LIMIT"),
		OTP: OTPConfig{
			TTL:            v.GetDuration("OTP_TTL"),
			MaxAttempts:    v.GetInt("OTP_MAX_ATTEMPTS"),
			ResendCooldown: v.GetDuration("OTP_RESEND_COOLDOWN"),
			ConsumedGrace:  v.GetDuration("OTP_CONSUMED_GRACE"),
			ResetTokenTTL:  v.GetDuration("RESET_TOKEN_TTL"),
			CallTimeout:    v.GetDuration("OTP_CALL_TIMEOUT"),
			SweepInterval:  v.GetDuration("OTP_SWEEP_INTERVAL"),
			Delivery:       strings.ToLower(v.GetString("OTP_DELIVERY")),
			RateLimit:      v.GetInt("OTP_RATE_LIMIT"),
		},
		SMTP: SMTPConfig{
			Host:     v.GetString("SMTP_HOST"),
			Port:     v.GetInt("SMTP_PORT"),
			Username: v.GetString("SMTP_USERNAME"),
			Password: v.GetString("SMTP_PASSWORD"),
			From:     v.GetString("SMTP_FROM"),
			FromName: v.GetString("SMTP_FROM_NAME"),
			TLS:      v.GetBool("SMTP_TLS"),
		},
		WebhookURL:   v.GetString("OTP_WEBHOOK_URL"),
		WebhookToken: v.GetString("OTP_WEBHOOK_TOKEN"),
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT must be set")
	}
	if c.ShutdownPeriod <= 0 {
		return fmt.Errorf("invalid SHUTDOWN_TIMEOUT: %s", c.ShutdownPeriod)
	}

	switch c.PasswordHasher {
	case HasherBcrypt, HasherArgon2id:
	default:
		return fmt.Errorf("invalid PASSWORD_HASHER %q: want bcrypt or argon2id", c.PasswordHasher)
	}
	if c.BcryptCost < 4 || c.BcryptCost > 31 {
		return fmt.Errorf("BCRYPT_COST must be between 4 and 31")
	}

	if c.OTP.TTL <= 0 || c.OTP.ResetTokenTTL <= 0 || c.OTP.CallTimeout <= 0 {
		return fmt.Errorf("OTP_TTL, RESET_TOKEN_TTL and OTP_CALL_TIMEOUT must be positive")
	}
	if c.OTP.MaxAttempts <= 0 {
		return fmt.Errorf("OTP_MAX_ATTEMPTS must be positive")
	}
	if c.OTP.ResendCooldown < 0 || c.OTP.ConsumedGrace < 0 {
		return fmt.Errorf("OTP_RESEND_COOLDOWN and OTP_CONSUMED_GRACE must not be negative")
	}

	switch c.OTP.Delivery {
	case DeliveryLog:
		if !c.IsDev() {
			return fmt.Errorf("OTP_DELIVERY=log is not allowed when APP_ENV=%s", c.Env)
		}
	case DeliverySMTP:
		if c.SMTP.Host == "" || c.SMTP.From == "" {
			return fmt.Errorf("SMTP_HOST and SMTP_FROM must be set when OTP_DELIVERY=smtp")
		}
	case DeliveryWebhook:
		if c.WebhookURL == "" {
			return fmt.Errorf("OTP_WEBHOOK_URL must be set when OTP_DELIVERY=webhook")
		}
	default:
		return fmt.Errorf("invalid OTP_DELIVERY %q", c.OTP.Delivery)
	}

	if c.IsDev() {
		return nil
	}
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL must be set")
	}
	if c.RedisURL == "" {
		return fmt.Errorf("REDIS_URL must be set")
	}
	if c.JWTSecret == defaultJWTSecret || c.RefreshSecret == defaultRefreshSecret {
		return fmt.Errorf("JWT_SECRET and REFRESH_SECRET must be set when APP_ENV=%s", c.Env)
	}
	return nil
}

// IsDev reports whether the app runs in a local development environment.
func (c Config) IsDev() bool {
	switch c.Env {
	case "dev", "development", "local", "test":
		return true
	default:
		return false
	}
}

// Address returns the listen address in the format Fiber expects.
func (c Config) Address() string {
	if strings.HasPrefix(c.Port, ":") {
		return c.Port
	}
	return fmt.Sprintf(":%s", c.Port)
}
