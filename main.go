package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"coursehub/config"
	courseControllers "coursehub/controllers/course"
	paymentController "coursehub/controllers/payment"
	"coursehub/database"
	"coursehub/guard"
	applog "coursehub/logger"
	"coursehub/payment"
	courseRoutes "coursehub/routers/courseRoutes"
	paymentRoutes "coursehub/routers/paymentRoutes"
	"coursehub/services/catalog"
	"coursehub/services/checkout"
	"coursehub/services/content"
	"coursehub/services/enrollment"
	"coursehub/services/webhook"
	"coursehub/tracing"
	"coursehub/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
)

func main() {
	config.LoadConfig()
	cfg := config.AppConfig

	appLog, err := applog.New(cfg.LogMode)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer appLog.Sync()

	shutdownTracing := tracing.Init(context.Background(), appLog, cfg.OtelEnabled, cfg.OtelServiceName)

	if err := database.ConnectDb(); err != nil {
		appLog.Fatal("failed to connect to database", "error", err)
	}
	db := database.Database.Db

	var counter guard.Counter = guard.NewMemoryCounter()
	if cfg.RedisAddr != "" {
		redisCounter, err := guard.NewRedisCounter(cfg.RedisAddr, appLog)
		if err != nil {
			appLog.Fatal("failed to connect to redis", "addr", cfg.RedisAddr, "error", err)
		}
		defer redisCounter.Close()
		counter = redisCounter
	} else {
		appLog.Warn("REDIS_ADDR not set, rate limits are per process")
	}
	rules, err := guard.LoadRules(cfg.RateLimitFile)
	if err != nil {
		appLog.Fatal("failed to load rate limit rules", "file", cfg.RateLimitFile, "error", err)
	}
	g := guard.New(counter, guard.Options{
		Mode:     guard.Mode(cfg.RateLimitMode),
		FailOpen: cfg.RateLimitFailOpen,
	}, appLog)

	mailer := utils.NewMailer(cfg.SendGridAPIKey, cfg.EmailSender, appLog)
	gateway := payment.NewClient(cfg.GatewayBaseURL, cfg.GatewaySecretKey, cfg.GatewayTimeout, appLog)
	enrollments := enrollment.NewService(db, appLog)

	courseHandler := &courseControllers.Handler{
		Catalog:     catalog.NewService(db, appLog),
		Content:     content.NewService(db, appLog),
		Enrollments: enrollments,
		Checkout:    checkout.NewService(db, gateway, enrollments, cfg.AppURL, appLog),
		Log:         appLog,
		Timeout:     cfg.RequestTimeout,
	}
	webhookHandler := &paymentController.WebhookHandler{
		Service: webhook.NewService(db, enrollments, mailer, webhook.Config{
			Secret:    cfg.GatewayWebhookSecret,
			Tolerance: cfg.GatewayWebhookTolerance,
		}, appLog),
		Log: appLog,
	}

	app := fiber.New()

	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE",        // Allowed HTTP methods
		AllowHeaders: "Content-Type,Authorization", // Allowed headers
	}))

	// Enable the built-in logger middleware to log all requests
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${ip} ${method} ${path} ${status} ${latency}\n",
	}))

	courseRoutes.SetupCourseRoutes(app, courseHandler, g, rules)
	courseRoutes.SetupAdminCourseRoutes(app, courseHandler, db, g, rules)
	paymentRoutes.SetupPaymentRoutes(app, webhookHandler)

	janitor := utils.NewWebhookJanitor(db, cfg.WebhookRetentionDays, appLog)
	if err := janitor.Start(cfg.JanitorSchedule); err != nil {
		appLog.Fatal("invalid janitor schedule", "schedule", cfg.JanitorSchedule, "error", err)
	}

	go func() {
		appLog.Info("server is running", "port", cfg.Port, "rate_limit_mode", cfg.RateLimitMode)
		if err := app.Listen(":" + cfg.Port); err != nil {
			appLog.Error("server stopped", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	appLog.Info("shutting down")

	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		appLog.Error("server shutdown failed", "error", err)
	}
	janitor.Stop()
	mailer.Wait()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := shutdownTracing(ctx); err != nil {
		appLog.Warn("tracing shutdown failed", "error", err)
	}
}
