package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"civicsync-api/config"
	"civicsync-api/controllers"
	"civicsync-api/logger"
	"civicsync-api/mailer"
	"civicsync-api/middlewares"
	"civicsync-api/routes"
	"civicsync-api/services"
	"civicsync-api/storage"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	envErr := godotenv.Load()
	cfg := config.Load()
	l := logger.New(cfg.Env)
	if envErr != nil {
		l.Debug().Msg("no .env file found")
	}
	if cfg.JWTSecret == "" {
		l.Fatal().Msg("JWT_SECRET is not set")
	}

	ctx := context.Background()

	store, err := config.OpenStore(ctx, cfg, l)
	if err != nil {
		l.Fatal().Err(err).Msg("db connect failed")
	}
	defer store.Close(context.Background())

	var counter middlewares.Counter = middlewares.NewMemoryCounter()
	if cfg.RedisAddress != "" {
		rdb, err := config.ConnectRedis(ctx, cfg.RedisAddress, cfg.RedisPassword)
		if err != nil {
			l.Fatal().Err(err).Msg("redis connect failed")
		}
		defer rdb.Close()
		counter = middlewares.NewRedisCounter(rdb)
		l.Info().Str("addr", cfg.RedisAddress).Msg("connected to Redis")
	}

	files, err := storage.Open(ctx, storage.Config{
		Driver:    cfg.StorageDriver,
		UploadDir: cfg.UploadDir,
		BaseURL:   cfg.BackendURL,
		Minio: storage.MinioConfig{
			Endpoint:  cfg.MinioEndpoint,
			AccessKey: cfg.MinioAccessKey,
			SecretKey: cfg.MinioSecretKey,
			Bucket:    cfg.MinioBucket,
			UseSSL:    cfg.MinioUseSSL,
			PublicURL: cfg.MinioPublicURL,
		},
	})
	if err != nil {
		l.Fatal().Err(err).Msg("file storage init failed")
	}

	mail := mailer.New(mailer.SMTPConfig{
		Host:     cfg.EmailHost,
		Port:     cfg.EmailPort,
		User:     cfg.EmailUser,
		Password: cfg.EmailPassword,
		From:     cfg.EmailFrom,
	}, l)

	notifications := services.NewNotificationService(store.Notifications, store.Users)
	issues := services.NewIssueService(services.IssueServiceDeps{
		Issues:        store.Issues,
		Users:         store.Users,
		Files:         files,
		Mailer:        mail,
		Notifications: notifications,
		Log:           l,
	})
	queries := services.NewQueryService(store.Issues, store.Users)
	auth := services.NewAuthService(store.Users, mail, cfg.JWTSecret, l)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(middlewares.Recoverer(l))
	r.Use(middlewares.RequestLogger(l))
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{cfg.FrontendURL},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	r.Use(middlewares.APIRateLimiter(counter, cfg.RateLimitMax, cfg.RateLimitWindow, l))

	deps := routes.Deps{
		Log:           l,
		JWTSecret:     cfg.JWTSecret,
		Counter:       counter,
		IssueQueue:    cfg.IssueLimitQueue,
		IssueDayLimit: cfg.IssueDailyLimit,
		Issues:        controllers.NewIssueController(issues, queries, l),
		Auth: controllers.NewAuthController(auth, controllers.CookieSettings{
			Domain: cfg.CookieDomain,
			Secure: cfg.IsProduction(),
		}, l),
		Notifications: controllers.NewNotificationController(notifications, l),
		Ping:          store.Ping,
	}
	if local, ok := files.(*storage.LocalStorage); ok {
		deps.UploadDir = local.Root()
	}
	routes.Register(r, deps)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		l.Info().Str("addr", srv.Addr).Str("env", cfg.Env).Msg("api listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			l.Fatal().Err(err).Msg("server error")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
	l.Info().Msg("shutdown complete")
}
