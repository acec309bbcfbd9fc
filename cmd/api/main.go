package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/miqat/umrah-bookings/internal/availability"
	"github.com/miqat/umrah-bookings/internal/clock"
	"github.com/miqat/umrah-bookings/internal/http/handlers"
	httpmw "github.com/miqat/umrah-bookings/internal/http/middleware"
	"github.com/miqat/umrah-bookings/internal/notify"
	"github.com/miqat/umrah-bookings/internal/pricing"
	"github.com/miqat/umrah-bookings/internal/repo/postgres"
	contentsvc "github.com/miqat/umrah-bookings/internal/service/content"
	"github.com/miqat/umrah-bookings/internal/service/leads"
	"github.com/miqat/umrah-bookings/internal/service/receipts"
	"github.com/miqat/umrah-bookings/internal/storage"
	"github.com/miqat/umrah-bookings/internal/tasks"
	"github.com/miqat/umrah-bookings/pkg/auth"
	"github.com/miqat/umrah-bookings/pkg/config"
	"github.com/miqat/umrah-bookings/pkg/database"
	"github.com/miqat/umrah-bookings/pkg/events"
	"github.com/miqat/umrah-bookings/pkg/logger"
	mw "github.com/miqat/umrah-bookings/pkg/middleware"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	ctx := context.Background()
	pool, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	eventBus, err := events.NewNATSEventBus(cfg.NATS.URL)
	if err != nil {
		logger.Error("Failed to connect to NATS", "error", err)
		os.Exit(1)
	}
	defer eventBus.Close()

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer rdb.Close()

	receiptStore, err := storage.NewS3Store(ctx, cfg.Storage)
	if err != nil {
		logger.Error("Failed to initialize receipt storage", "error", err)
		os.Exit(1)
	}

	// Repositories
	leadsRepo := postgres.NewLeadsRepository(pool)
	hotelsRepo := postgres.NewHotelsRepository(pool)
	usersRepo := postgres.NewUsersRepository(pool)
	contentRepo := postgres.NewContentRepository(pool)

	// Services
	rates := pricing.Table{
		3: cfg.Booking.Rate3Star,
		4: cfg.Booking.Rate4Star,
		5: cfg.Booking.Rate5Star,
	}
	resolver := availability.NewResolver(hotelsRepo)
	leadsSvc := leads.NewService(
		leadsRepo,
		resolver,
		pricing.NewCalculator(rates),
		clock.System(),
		eventBus,
		cfg.Booking.VoucherTTL,
		cfg.Booking.SweepBatch,
	)
	intake := receipts.NewIntake(leadsRepo, receiptStore, clock.System(), eventBus)
	contentSvc := contentsvc.NewService(contentRepo)

	// Handlers
	guestH := handlers.NewGuestHandler(leadsSvc, intake, cfg.Auth)
	adminH := handlers.NewAdminHandler(leadsSvc)
	authH := handlers.NewAuthHandler(usersRepo, cfg.Auth)
	partnerH := handlers.NewPartnerHandler(hotelsRepo)
	contentH := handlers.NewContentHandler(contentSvc)

	submitLimiter := httpmw.NewRateLimiter(pool, httpmw.RateLimitConfig{
		Requests: cfg.Booking.SubmitLimit,
		Window:   cfg.Booking.SubmitWindow,
		KeyFunc:  httpmw.LeadSubmitKeyFunc,
		SkipFunc: func(r *http.Request) bool { return r.Method != http.MethodPost },
	})

	r := chi.NewRouter()
	r.Use(mw.RequestID)
	r.Use(mw.Component("api"))
	r.Use(mw.Logging)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.Server.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(mw.Health)
	r.Use(mw.Metrics)

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.With(submitLimiter.Middleware()).Mount("/leads", guestH.Routes())
		r.Mount("/content", contentH.PublicRoutes())
		r.Mount("/auth", authH.Routes())

		r.Route("/admin", func(r chi.Router) {
			r.Use(httpmw.RequireJWT(cfg.Auth.JWTSecret, auth.RoleAdmin))
			r.Mount("/leads", adminH.Routes())
			r.Mount("/content", contentH.AdminRoutes())
		})

		r.Route("/partner", func(r chi.Router) {
			r.Use(httpmw.RequireJWT(cfg.Auth.JWTSecret, auth.RolePartner))
			r.Mount("/", partnerH.Routes())
		})
	})

	// Background workers
	processor := tasks.NewProcessor(leadsSvc)
	taskServer := tasks.NewServer(rdb)
	go func() {
		if err := taskServer.Run(tasks.NewMux(processor)); err != nil {
			logger.Error("Task server stopped", "error", err)
			os.Exit(1)
		}
	}()

	scheduler, err := tasks.NewScheduler(rdb, cfg.Booking)
	if err != nil {
		logger.Error("Failed to build scheduler", "error", err)
		os.Exit(1)
	}
	go func() {
		if err := scheduler.Run(); err != nil {
			logger.Error("Scheduler stopped", "error", err)
			os.Exit(1)
		}
	}()

	mailer := notify.NewMailer(cfg.Email)
	consumer := notify.NewConsumer(eventBus, mailer)
	if err := consumer.Start(); err != nil {
		logger.Error("Failed to start notification consumer", "error", err)
		os.Exit(1)
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		logger.Info("Shutting down api...")

		taskServer.Shutdown()
		scheduler.Shutdown()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
	}()

	logger.Info("Starting api", "port", cfg.Server.Port)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", "error", err)
		os.Exit(1)
	}
}
