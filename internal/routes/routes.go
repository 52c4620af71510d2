package routes

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/paysync/paysync/internal/auth"
	"github.com/paysync/paysync/internal/config"
	"github.com/paysync/paysync/internal/identity"
	"github.com/paysync/paysync/internal/middleware"
	"github.com/paysync/paysync/internal/notification"
	"github.com/paysync/paysync/internal/otp"
	"github.com/paysync/paysync/internal/security"
)

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
	Cfg    config.Config
	DB     *pgxpool.Pool
	Cache  *redis.Client
	Logger *slog.Logger
	// Notifier overrides the delivery channel chosen by Cfg.OTP.Delivery.
	Notifier notification.Notifier
}

// Setup configures middlewares and all application routes. Background work
// started here (the in-memory OTP janitor) stops when ctx is cancelled.
func Setup(ctx context.Context, app *fiber.App, d Deps) error {
	// Enforce DB/Redis presence outside of dev, even though config also checks.
	if !d.Cfg.IsDev() {
		if d.DB == nil {
			return fmt.Errorf("database is required when APP_ENV=%s", d.Cfg.Env)
		}
		if d.Cache == nil {
			return fmt.Errorf("redis is required when APP_ENV=%s", d.Cfg.Env)
		}
	}

	app.Use(recover.New())
	app.Use(middleware.RequestID())
	if d.Cfg.LogFormat == "text" {
		// [HH:MM:SS] 200 -  145ms METHOD /path
		app.Use(logger.New(logger.Config{
			Format:     "[${time}] ${status} -  ${latency} ${method} ${path}\n",
			TimeFormat: "15:04:05",
			TimeZone:   "Local",
		}))
	}
	app.Use(middleware.Audit(d.Logger))

	RegisterHealthRoutes(app, d)

	hasher, err := security.NewHasher(d.Cfg.PasswordHasher, d.Cfg.BcryptCost)
	if err != nil {
		return err
	}

	var identityRepo identity.Repository
	if d.DB != nil {
		identityRepo = identity.NewPostgresRepository(d.DB)
	} else {
		identityRepo = identity.NewMemoryRepository()
	}
	identitySvc := identity.NewService(identityRepo, hasher)
	authSvc := auth.NewService(d.Cfg, identityRepo)

	notifier := d.Notifier
	if notifier == nil {
		notifier, err = newNotifier(d.Cfg, d.Logger)
		if err != nil {
			return err
		}
	}

	var store otp.Store
	if d.Cache != nil {
		store = otp.NewRedisStore(d.Cache, d.Cfg.OTP.ConsumedGrace)
	} else {
		mem := otp.NewMemoryStore(d.Cfg.OTP.ConsumedGrace)
		go otp.RunJanitor(ctx, d.Cfg.OTP.SweepInterval, d.Logger, mem)
		store = mem
	}
	otpSvc := otp.NewService(store, identityRepo, hasher,
		otp.NewNotifierSender(notifier, d.Cfg.OTP.TTL), policyFrom(d.Cfg), d.Logger)

	identityHandler := identity.NewHandler(identitySvc)
	RegisterIdentityRoutes(app, identityHandler,
		middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, d.Logger))

	jwtmw := middleware.JWTAuth(authSvc)
	loginLimiter := middleware.RateLimit(d.Cache, middleware.RateLimitConfig{
		Name:    "login",
		Field:   "email",
		Limit:   d.Cfg.LoginRateLimit,
		Message: "too many login attempts, try again later",
	}, d.Logger)
	RegisterAuthRoutes(app, auth.NewHandler(identitySvc, authSvc), loginLimiter, jwtmw)

	otpLimiter := middleware.RateLimit(d.Cache, middleware.RateLimitConfig{
		Name:    "otp",
		Field:   "identity",
		Limit:   d.Cfg.OTP.RateLimit,
		Message: "too many code requests, try again later",
	}, d.Logger)
	RegisterOTPRoutes(app, otp.NewHandler(otpSvc), otpLimiter)

	app.Get("/users/:id", jwtmw, identityHandler.Profile)

	return nil
}

func policyFrom(cfg config.Config) otp.Policy {
	return otp.Policy{
		CodeTTL:          cfg.OTP.TTL,
		MaxAttempts:      cfg.OTP.MaxAttempts,
		ResendCooldown:   cfg.OTP.ResendCooldown,
		AuthorizationTTL: cfg.OTP.ResetTokenTTL,
		CallTimeout:      cfg.OTP.CallTimeout,
	}
}

func newNotifier(cfg config.Config, logger *slog.Logger) (notification.Notifier, error) {
	switch cfg.OTP.Delivery {
	case config.DeliverySMTP:
		return notification.NewMailSender(notification.MailConfig{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			Username: cfg.SMTP.Username,
			Password: cfg.SMTP.Password,
			From:     cfg.SMTP.From,
			FromName: cfg.SMTP.FromName,
			TLS:      cfg.SMTP.TLS,
		})
	case config.DeliveryWebhook:
		return notification.NewWebhookSender(cfg.WebhookURL, cfg.WebhookToken)
	default:
		return notification.NewLoggerNotifier(logger), nil
	}
}
