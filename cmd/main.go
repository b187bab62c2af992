package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"signature-web-server/config"
	_ "signature-web-server/docs"
	"signature-web-server/internal/handler"
	"signature-web-server/internal/metrics"
	"signature-web-server/internal/notifier"
	"signature-web-server/internal/ports"
	"signature-web-server/internal/repository"
	"signature-web-server/internal/security"
	"signature-web-server/internal/service"
	"signature-web-server/internal/signing"
	"signature-web-server/internal/storage"
	"signature-web-server/internal/util"
	"signature-web-server/migrations"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"
	"go.uber.org/zap"
)

// @title Signature-web-server
// @version 1.0
// @description REST API сервиса электронной подписи документов

// @host localhost:8080

// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name Authorization
func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logEnv := os.Getenv(config.EnvPrefix + "LOG_ENV")
	logger, err := util.InitLogger(logEnv)
	if err != nil {
		panic(err)
	}

	cfg, err := config.LoadConfig(ctx, "config.yaml")
	if err != nil {
		logger.Fatal("ошибка загрузки конфигурации", zap.Error(err))
	}
	if cfg.Log.Env != logEnv {
		if logger, err = util.InitLogger(cfg.Log.Env); err != nil {
			panic(err)
		}
	}
	defer func() { _ = logger.Sync() }()

	db, err := config.SetupDatabase(cfg.Database)
	if err != nil {
		logger.Fatal("не удалось подключиться к БД", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Warn("ошибка при закрытии БД", zap.Error(err))
		}
	}()

	if cfg.Database.RunMigrations {
		if err := db.RunMigrations(migrations.Files); err != nil {
			logger.Fatal("ошибка применения миграций", zap.Error(err))
		}
	}

	redisClient, err := config.SetupRedis(ctx, &cfg.Redis)
	if err != nil {
		logger.Fatal("ошибка подключения к Redis", zap.Error(err))
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("ошибка при закрытии Redis", zap.Error(err))
		}
	}()

	artifactStorage, err := setupStorage(ctx, cfg)
	if err != nil {
		logger.Fatal("ошибка инициализации хранилища", zap.Error(err))
	}
	stamper, err := setupTimeStamper(cfg)
	if err != nil {
		logger.Fatal("ошибка инициализации службы меток времени", zap.Error(err))
	}

	m := metrics.New(prometheus.DefaultRegisterer)
	srv, router := config.SetupServer(cfg.Server)

	tx := repository.NewTxManager(db)
	userRepo := repository.NewUserRepository(db)
	jwtRepo := repository.NewJWTRepository(db)
	docRepo := repository.NewDocumentRepository(db)
	fieldRepo := repository.NewFieldRepository(db)
	signatureRepo := repository.NewSignatureRepository(db)
	settingsRepo := repository.NewSettingsRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, cfg.Cache.TTL.Duration)
	limiter := repository.NewRateLimiter(redisClient, cfg.RateLimit)

	jwtService := security.NewJWTService(&cfg.JWT)
	quota := service.NewQuotaPolicy(settingsRepo, &cfg.Quota)

	userService := service.NewUserService(tx, userRepo, jwtService, jwtRepo, auditRepo, quota)
	authService := service.NewAuthenticationService(tx, jwtRepo, jwtService, userRepo, auditRepo,
		security.NewGoogleVerifier(&cfg.OAuth), notifier.NewWebhookNotifier(&cfg.Webhook))
	docService := service.NewDocumentService(tx, docRepo, fieldRepo, auditRepo, artifactStorage, cacheRepo, m, cfg.Upload.MaxBytes)
	signatureService := service.NewSignatureService(service.SignatureDeps{
		Tx:        tx,
		Documents: docRepo,
		Requests:  signatureRepo,
		Users:     userRepo,
		Audit:     auditRepo,
		Storage:   artifactStorage,
		Signer:    signing.NewElectronicSigner(),
		Stamper:   stamper,
		Quota:     quota,
		Queue:     notifier.NewRedisQueue(redisClient, cfg.Notifications),
		Cache:     cacheRepo,
		Metrics:   m,
		BaseURL:   cfg.Server.BaseURL,
	})
	verificationService := service.NewVerificationService(tx, docRepo, signatureRepo, auditRepo, artifactStorage, m)
	auditService := service.NewAuditService(tx, auditRepo, docRepo, signatureRepo, artifactStorage)
	settingsService := service.NewSettingsService(tx, settingsRepo)

	authHandler := handler.NewAuthenticationHandler(authService)
	userHandler := handler.NewUserHandler(userService)
	docHandler := handler.NewDocumentHandler(docService, cfg.Upload.MaxBytes)
	signatureHandler := handler.NewSignatureHandler(signatureService, verificationService)
	auditHandler := handler.NewAuditHandler(auditService)
	settingsHandler := handler.NewSettingsHandler(settingsService)

	jwtMiddleware := security.JWTMiddleware(jwtService, jwtRepo)
	limit := func(route string) func(http.Handler) http.Handler {
		return handler.RateLimit(limiter, m, route)
	}

	router.Use(middleware.RequestID)
	router.Use(middleware.Recoverer)
	router.Use(handler.AccessLog(logger))
	router.Use(m.Middleware)

	router.Get("/swagger/*", httpSwagger.WrapHandler)
	router.Handle("/metrics", promhttp.Handler())
	router.Get("/health", handler.Health(map[string]handler.Pinger{
		"database": db.PingContext,
		"redis":    func(ctx context.Context) error { return redisClient.Client.Ping(ctx).Err() },
	}, 2*time.Second))

	setupAuthRoutes(router, authHandler, userHandler, jwtMiddleware, limit)
	setupUserRoutes(router, userHandler, jwtMiddleware)
	setupDocumentRoutes(router, docHandler, signatureHandler, jwtMiddleware, limit)
	setupSignatureRoutes(router, signatureHandler, jwtMiddleware, limit)
	setupAuditRoutes(router, auditHandler, jwtMiddleware)
	setupAdminRoutes(router, settingsHandler, jwtMiddleware)

	runServer(ctx, srv, logger)
}

func setupStorage(ctx context.Context, cfg *config.AppConfig) (ports.ArtifactStorage, error) {
	if cfg.Storage.Backend == "s3" {
		return storage.NewS3Storage(ctx, &cfg.Storage.S3)
	}
	return storage.NewLocalStorage(cfg.Storage.RootDir)
}

// setupTimeStamper : без адреса TSA метка времени выдаётся локально
func setupTimeStamper(cfg *config.AppConfig) (ports.TimeStamper, error) {
	if cfg.Timestamp.TSAURL == "" {
		return signing.NewLocalTimeStamper(), nil
	}
	return signing.NewTSATimeStamper(&cfg.Timestamp)
}

type middlewareFunc = func(http.Handler) http.Handler

func setupAuthRoutes(r chi.Router, h *handler.AuthenticationHandler, users *handler.UserHandler, jwt middlewareFunc, limit func(string) middlewareFunc) {
	r.Route("/api/auth", func(r chi.Router) {
		r.With(limit("register")).Post("/register", users.RegisterUser)
		r.With(limit("login")).Post("/login", h.Login)
		r.With(limit("google")).Post("/google", h.GoogleLogin)
		r.With(limit("forgot-password")).Post("/forgot-password", users.ForgotPassword)

		r.Group(func(r chi.Router) {
			r.Use(jwt)
			r.Post("/refresh", h.RefreshToken)
			r.Post("/logout", h.Logout)
			r.Get("/me", h.GetCurrentUser)
		})
	})
}

func setupUserRoutes(r chi.Router, h *handler.UserHandler, jwt middlewareFunc) {
	r.Group(func(r chi.Router) {
		r.Use(jwt)
		r.Get("/api/profile", h.GetProfile)
		r.Put("/api/profile", h.UpdateProfile)
		r.With(security.RequireAdmin).Get("/api/users", h.ListUsers)
	})
}

func setupDocumentRoutes(r chi.Router, h *handler.DocumentHandler, signatures *handler.SignatureHandler, jwt middlewareFunc, limit func(string) middlewareFunc) {
	r.Route("/api/documents", func(r chi.Router) {
		r.With(limit("verify")).Get("/{id}/verify", signatures.VerifyDocument)

		r.Group(func(r chi.Router) {
			r.Use(jwt)
			r.Get("/", h.ListDocuments)
			r.Post("/", h.UploadDocument)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.GetDocument)
				r.Delete("/", h.DeleteDocument)
				r.Put("/fields", h.ReplaceFields)
				r.Get("/download", h.DownloadDocument)
				r.Get("/preview", h.PreviewDocument)
				r.Post("/signature-requests", signatures.CreateSignatureRequest)
				r.Get("/signature-requests", signatures.ListSignatureRequests)
			})
		})
	})
}

func setupSignatureRoutes(r chi.Router, h *handler.SignatureHandler, jwt middlewareFunc, limit func(string) middlewareFunc) {
	r.Route("/api/signature-requests/{id}", func(r chi.Router) {
		r.Get("/", h.GetSignatureRequest)
		r.With(limit("sign")).Post("/sign", h.Sign)

		r.Group(func(r chi.Router) {
			r.Use(jwt)
			r.Post("/resend", h.ResendSignatureRequest)
			r.Post("/cancel", h.CancelSignatureRequest)
		})
	})
}

func setupAuditRoutes(r chi.Router, h *handler.AuditHandler, jwt middlewareFunc) {
	r.Route("/api/audit", func(r chi.Router) {
		r.Use(jwt)
		r.Get("/logs", h.ListLogs)
		r.Get("/logs/{id}", h.GetLog)
		r.Get("/stats", h.Stats)
		r.Get("/export", h.Export)
		r.Get("/document/{id}/timeline", h.Timeline)
		r.Post("/integrity-check", h.IntegrityCheck)
	})
}

func setupAdminRoutes(r chi.Router, h *handler.SettingsHandler, jwt middlewareFunc) {
	r.Route("/api/admin/settings", func(r chi.Router) {
		r.Use(jwt, security.RequireAdmin)
		r.Get("/", h.ListSettings)
		r.Put("/{key}", h.UpdateSetting)
	})
}

func runServer(ctx context.Context, server *http.Server, logger *zap.Logger) {
	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("сервер запущен", zap.String("addr", server.Addr))
		serverErrors <- server.ListenAndServe()
	}()

	signalChannel := make(chan os.Signal, 1)
	signal.Notify(signalChannel, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("ошибка работы сервера", zap.Error(err))
		}
	case sig := <-signalChannel:
		logger.Info("получен сигнал остановки работы сервера", zap.String("signal", sig.String()))
	}

	shutDownCtx, shutDownCancel := context.WithTimeout(ctx, 5*time.Second)
	defer shutDownCancel()

	if err := server.Shutdown(shutDownCtx); err != nil {
		logger.Error("ошибка при остановке сервера", zap.Error(err))
	} else {
		logger.Info("сервер успешно остановлен")
	}
}
