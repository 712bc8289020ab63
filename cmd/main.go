package main

import (
	"net/http"
	"os"
	"time"

	"outdoortracker/api/handler"
	apiMiddleware "outdoortracker/api/middleware"
	"outdoortracker/api/routes"
	"outdoortracker/config"
	"outdoortracker/internal/metrics"
	"outdoortracker/internal/presence"
	"outdoortracker/internal/repository"
	"outdoortracker/internal/service"
	"outdoortracker/internal/utils"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"
)

func main() {
	cfg := config.Load()
	validate := validator.New()

	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)

	if cfg.JWTSecret == "" {
		logger.Fatal("JWT_SECRET is required")
	}

	db := config.ConnectionDb()
	if err := config.Migrate(db); err != nil {
		logger.WithError(err).Fatal("migration failed")
	}

	accessManager := utils.JWTManager{
		Secret:         []byte(cfg.JWTSecret),
		Issuer:         cfg.JWTIssuer,
		AccessTokenTTL: 24 * time.Hour,
	}
	accessIssuer := service.JWTAccessIssuer{Manager: &accessManager}
	mfaIssuer := service.MFATokenIssuerJWT{
		Secret: []byte(cfg.JWTSecret),
		Issuer: cfg.JWTIssuer,
		TTL:    5 * time.Minute,
	}

	userRepo := repository.NewUserRepository(db)
	locationRepo := repository.NewLocationRepository(db)
	sessionRepo := repository.NewSessionRepository(db)
	verificationRepo := repository.NewVerificationTokenRepository(db)
	mfaRepo := repository.NewMFASecretRepository(db)
	auditRepo := repository.NewAuditLogRepository(db)

	emailSender := service.NewResendEmailSender(cfg.ResendAPIKey, cfg.EmailFrom, cfg.AppBaseURL)

	authService := service.NewAuthService(
		userRepo,
		sessionRepo,
		verificationRepo,
		mfaRepo,
		auditRepo,
		emailSender,
		service.BcryptPasswordHasher{},
		accessIssuer,
		mfaIssuer,
		service.NewTOTPProvider(cfg.JWTIssuer),
		service.RealClock{},
		service.AuthConfig{
			AccessTokenTTL:       24 * time.Hour,
			RefreshTokenTTL:      30 * 24 * time.Hour,
			VerificationTokenTTL: 24 * time.Hour,
			ResetTokenTTL:        30 * time.Minute,
			MFATokenTTL:          5 * time.Minute,
			MFAIssuer:            cfg.JWTIssuer,
		},
	)
	userService := service.NewUserService(userRepo, auditRepo)

	hub := presence.NewHub(presence.JWTVerifier{Manager: &accessManager}, userRepo, logger)
	locationService := service.NewLocationService(locationRepo, userRepo, hub, service.RealClock{})

	authHandler := handler.NewAuthHandler(authService, validate)
	authHandler.CookieDomain = cfg.CookieDomain
	authHandler.SecureCookies = cfg.SecureCookies
	userHandler := handler.NewUserHandler(userService)
	adminHandler := handler.NewAdminHandler(userService)
	locationHandler := handler.NewLocationHandler(locationService, validate)
	wsHandler := handler.NewWSHandler(hub, logger)

	metrics.Register()

	app := echo.New()
	app.HideBanner = true
	app.HidePort = true
	app.Use(echoMiddleware.Recover())
	app.Use(echoMiddleware.CORS())
	app.Use(metrics.HTTPMiddleware())
	app.Use(echoMiddleware.RequestLoggerWithConfig(echoMiddleware.RequestLoggerConfig{
		LogStatus:   true,
		LogMethod:   true,
		LogURI:      true,
		LogRemoteIP: true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v echoMiddleware.RequestLoggerValues) error {
			entry := logger.WithFields(logrus.Fields{
				"status": v.Status,
				"method": v.Method,
				"uri":    v.URI,
				"ip":     v.RemoteIP,
			})
			if v.Error != nil {
				entry.WithError(v.Error).Error("request")
				return nil
			}
			entry.Info("request")
			return nil
		},
	}))

	authMiddleware := apiMiddleware.AuthMiddleware{JWT: &accessManager}
	router := routes.NewRouter(app, authHandler, userHandler, adminHandler, locationHandler, wsHandler, authMiddleware)
	router.RegisterRoutes()

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		ReadHeaderTimeout: 5 * time.Second,
	}

	logger.WithField("addr", cfg.HTTPAddr).Info("server started")
	if err := app.StartServer(server); err != nil {
		logger.WithError(err).Fatal("server stopped")
	}
}
