package handlers

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/FyliaCare/calibration-mvp-sub000/internal/config"
	"github.com/FyliaCare/calibration-mvp-sub000/internal/middleware"
	"github.com/FyliaCare/calibration-mvp-sub000/internal/models"
	"github.com/FyliaCare/calibration-mvp-sub000/internal/notify"
	"github.com/FyliaCare/calibration-mvp-sub000/internal/repository"
	"github.com/FyliaCare/calibration-mvp-sub000/internal/service"
)

type HandlerSet struct {
	log            zerolog.Logger
	cfg            *config.AppConfig
	db             *pgxpool.Pool
	cache          *redis.Client
	recorder       *service.ActivityRecorder
	authService    *service.AuthService
	otpService     *service.OTPService
	accountService *service.AccountService
}

func NewHandlerSet(log zerolog.Logger, db *pgxpool.Pool, cache *redis.Client, notifier notify.Notifier, cfg *config.AppConfig) HandlerSet {
	accountRepo := repository.NewAccountRepository(db)
	tokenRepo := repository.NewTokenRepository(db)
	otpRepo := repository.NewOTPRepository(db)
	activityRepo := repository.NewActivityRepository(db)

	recorder := service.NewActivityRecorder(activityRepo, log, 256)
	limiter := service.NewOTPLimiter(cache, cfg.Auth.OTPMaxAttempts, cfg.Auth.OTPAttemptWindow, log)

	auth := service.NewAuthService(accountRepo, tokenRepo, recorder, cfg, log)
	otp := service.NewOTPService(accountRepo, otpRepo, limiter, notifier, recorder, cfg, log)
	accounts := service.NewAccountService(accountRepo, tokenRepo, activityRepo, notifier, recorder, cfg, log)

	return HandlerSet{
		log:            log,
		cfg:            cfg,
		db:             db,
		cache:          cache,
		recorder:       recorder,
		authService:    auth,
		otpService:     otp,
		accountService: accounts,
	}
}

// Bootstrap seeds the first admin on an empty store.
func (h HandlerSet) Bootstrap(ctx context.Context) error {
	return h.accountService.Bootstrap(ctx)
}

// Close drains the activity recorder.
func (h HandlerSet) Close() {
	h.recorder.Close()
}

func (h HandlerSet) Register(router *gin.RouterGroup) {
	router.GET("/healthz", h.Health)

	v1 := router.Group("/v1")
	{
		auth := v1.Group("/auth")
		auth.POST("/login", h.Login)
		auth.POST("/logout", h.Logout)
		auth.POST("/otp/request", h.RequestOTP)
		auth.POST("/otp/verify", h.VerifyOTP)
		auth.POST("/password/forgot", h.ForgotPassword)
		auth.POST("/password/reset", h.ResetPassword)
		auth.POST("/verify-email", h.VerifyEmail)

		protected := v1.Group("/auth")
		protected.Use(middleware.Authenticate(h.authService, h.log))
		protected.GET("/me", h.Me)
		protected.POST("/password/change", h.ChangePassword)
		protected.POST("/verify-email/request", h.RequestEmailVerification)
	}

	admin := v1.Group("/admin")
	admin.Use(
		middleware.Authenticate(h.authService, h.log),
		middleware.RequireRoles(models.RoleAdmin, models.RoleLeadCalibrator),
	)
	admin.POST("/accounts", h.CreateAccount)
	admin.PATCH("/accounts/:id/unlock", h.UnlockAccount)
	admin.PATCH("/accounts/:id/active", h.SetAccountActive)
	admin.GET("/accounts/:id/activity", h.AccountActivity)
}
