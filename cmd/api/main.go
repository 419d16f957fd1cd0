package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/account-academy/backoffice-api/internal/handler"
	"github.com/account-academy/backoffice-api/internal/integration"
	"github.com/account-academy/backoffice-api/internal/middleware"
	"github.com/account-academy/backoffice-api/internal/repository"
	"github.com/account-academy/backoffice-api/internal/service"
	"github.com/account-academy/backoffice-api/pkg/cache"
	"github.com/account-academy/backoffice-api/pkg/config"
	"github.com/account-academy/backoffice-api/pkg/database"
	"github.com/account-academy/backoffice-api/pkg/jobs"
	"github.com/account-academy/backoffice-api/pkg/logger"
	"github.com/account-academy/backoffice-api/pkg/mail"
	corsmiddleware "github.com/account-academy/backoffice-api/pkg/middleware/cors"
	reqidmiddleware "github.com/account-academy/backoffice-api/pkg/middleware/requestid"
	"github.com/account-academy/backoffice-api/pkg/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck
	sugar := logr.Sugar()

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		sugar.Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		sugar.Warnw("redis unavailable, caching disabled", "error", err)
		redisClient = nil
	}
	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	defer cacheRepo.Close()

	validate := validator.New()

	userRepo := repository.NewUserRepository(db)
	coachRepo := repository.NewCoachRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	lectureRepo := repository.NewLectureRepository(db)
	eventRepo := repository.NewEventRepository(db)
	productRepo := repository.NewProductRepository(db)
	financeRepo := repository.NewFinanceRepository(db)
	invoiceRepo := repository.NewInvoiceRepository(db)

	var mailer mail.Mailer = mail.NopMailer{}
	if cfg.Mail.SendGridKey != "" {
		mailer = mail.NewSendGridMailer(cfg.Mail.SendGridKey, cfg.Mail.FromName, cfg.Mail.FromEmail, cfg.Mail.UILink)
	}
	notifications := service.NewNotificationService(mailer, jobs.QueueConfig{
		Workers:    cfg.MailQueue.Workers,
		MaxRetries: cfg.MailQueue.MaxRetries,
		RetryDelay: cfg.MailQueue.RetryDelay,
		Logger:     logr,
	}, logr)
	notifications.Start(context.Background())
	defer notifications.Stop()

	var calendarClient integration.CalendarProvider = integration.NopCalendar{}
	if cfg.Calendar.BaseURL != "" {
		calendarClient = integration.NewCalendarClient(cfg.Calendar, logr)
	}
	var meetingClient integration.MeetingProvider = integration.NopConferencing{}
	if cfg.Conferencing.BaseURL != "" {
		meetingClient = integration.NewConferencingClient(cfg.Conferencing, logr)
	}
	var videoClient integration.VideoProvider = integration.NopVideo{}
	if cfg.Video.BaseURL != "" {
		videoClient = integration.NewVideoClient(cfg.Video, logr)
	}

	exportStore, err := storage.NewLocalStorage(cfg.Exports.StorageDir)
	if err != nil {
		sugar.Fatalw("failed to init export storage", "error", err)
	}
	signer := storage.NewSignedURLSigner(cfg.Exports.SignedURLSecret, cfg.Exports.SignedURLTTL)

	metricsSvc := service.NewMetricsService()
	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		Secret:             cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "backoffice-api",
	})
	userSvc := service.NewUserService(userRepo, validate, logr)
	coachSvc := service.NewCoachService(coachRepo, studentRepo, userRepo, notifications, validate, logr)
	studentSvc := service.NewStudentService(studentRepo, courseRepo, userRepo, notifications, validate, logr)
	courseSvc := service.NewCourseService(courseRepo, studentRepo, lectureRepo, cacheRepo, cfg.Dashboard.CacheTTL, validate, logr)
	lectureSvc := service.NewLectureService(lectureRepo, courseRepo, videoClient, cacheRepo, validate, logr)
	eventSvc := service.NewEventService(eventRepo, calendarClient, meetingClient, validate, logr)
	productSvc := service.NewProductService(productRepo, validate, logr)
	financeSvc := service.NewFinanceService(financeRepo, validate, logr)
	invoiceSvc := service.NewInvoiceService(invoiceRepo, validate, logr)
	exportSvc := service.NewExportService(productRepo, financeRepo, invoiceRepo, exportStore, signer, logr)
	dashboardSvc := service.NewDashboardService(userRepo, courseRepo, financeRepo, invoiceRepo, cacheRepo, cfg.Dashboard.CacheTTL, logr)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	handlers := handler.Handlers{
		Auth:      handler.NewAuthHandler(authSvc, userSvc),
		Users:     handler.NewUserHandler(userSvc),
		Coaches:   handler.NewCoachHandler(coachSvc, metricsSvc),
		Students:  handler.NewStudentHandler(studentSvc, coachSvc),
		Courses:   handler.NewCourseHandler(courseSvc, metricsSvc),
		Lectures:  handler.NewLectureHandler(lectureSvc, metricsSvc),
		Events:    handler.NewEventHandler(eventSvc),
		Products:  handler.NewProductHandler(productSvc),
		Finances:  handler.NewFinanceHandler(financeSvc),
		Invoices:  handler.NewInvoiceHandler(invoiceSvc),
		Exports:   handler.NewExportHandler(exportSvc),
		Dashboard: handler.NewDashboardHandler(dashboardSvc),
		Metrics:   handler.NewMetricsHandler(metricsSvc),
	}
	handler.RegisterRoutes(r, handlers, authSvc)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: r,
	}

	go func() {
		sugar.Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			sugar.Fatalw("server failed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	sugar.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		sugar.Errorw("forced shutdown", "error", err)
	}
}
