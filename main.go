package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"
	_ "time/tzdata"

	"onam_fest/config"
	"onam_fest/database"
	"onam_fest/handler"
	"onam_fest/helper"
	"onam_fest/router"
	"onam_fest/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	redisstore "github.com/gofiber/storage/redis/v3"
	"go.mongodb.org/mongo-driver/mongo"
)

func main() {
	settings := config.Load()
	if err := utils.InitLogger(settings.IsProduction()); err != nil {
		log.Fatal(err)
	}
	defer utils.SyncLogger()

	utils.HideInternalErrors = settings.IsProduction()
	if settings.JWTSecret == "" {
		utils.Log.Fatal("JWT_SECRET is required")
	}
	helper.ConfigureTokens(settings.JWTSecret, settings.JWTExpiresIn)

	ctx := context.Background()

	db, err := database.ConnectDB(settings)
	if err != nil {
		utils.Log.Fatalw("database connection failed", "error", err)
	}

	rdb, err := database.ConnectRedis(ctx, settings)
	if err != nil {
		utils.Log.Fatalw("redis connection failed", "error", err)
	}
	var storage fiber.Storage
	if rdb != nil {
		defer rdb.Close()
		storage = redisstore.NewFromConnection(rdb)
	}

	mdb, err := connectMongoIfNeeded(ctx, settings)
	if err != nil {
		utils.Log.Fatalw("mongo connection failed", "error", err)
	}
	if mdb != nil {
		defer func() { _ = mdb.Client().Disconnect(context.Background()) }()
	}

	counters, err := database.NewCounterStore(settings.CounterStore, db, rdb, mdb)
	if err != nil {
		utils.Log.Fatalw("counter store", "error", err)
	}
	if settings.CounterStore == "memory" {
		utils.Log.Warn("COUNTER_STORE=memory: order numbers are only unique within this process")
	}

	location, err := time.LoadLocation(settings.Timezone)
	if err != nil {
		utils.Log.Warnw("unknown TIMEZONE, using local time", "timezone", settings.Timezone, "error", err)
		location = time.Local
	}

	metrics := utils.NewMetrics()
	allocator := helper.NewOrderNumberAllocator(counters, helper.AllocatorConfig{
		Prefix:   settings.OrderPrefix,
		Width:    settings.OrderSequenceWidth,
		Location: location,
		Timeout:  settings.CounterTimeout,
		Metrics:  metrics,
	})

	mailer := utils.NewMailer(utils.MailConfig{
		Host:     settings.SMTPHost,
		Port:     settings.SMTPPort,
		Username: settings.SMTPUsername,
		Password: settings.SMTPPassword,
		From:     settings.SMTPFrom,
		Timeout:  settings.EmailTimeout,
	}, metrics)
	defer mailer.Close()
	if !mailer.Enabled() {
		utils.Log.Warn("SMTP_HOST not set, confirmation emails are disabled")
	}

	users := database.NewGormUserStore(db)
	if err := database.SeedAdmin(ctx, users, settings.AdminEmail, settings.AdminPassword); err != nil {
		utils.Log.Errorw("seed admin failed", "error", err)
	}

	h := handler.NewHandler(database.NewGormOrderStore(db), users, allocator, mailer, metrics, settings)

	app := fiber.New(fiber.Config{
		BodyLimit:    1 * 1024 * 1024,
		ErrorHandler: utils.FiberErrorHandler,
	})
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     strings.Join(strings.Fields(strings.ReplaceAll(settings.CorsOrigins, ",", " ")), ","),
		AllowMethods:     "GET,POST,PUT,DELETE,PATCH,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Authorization, Accept, X-Csrf-Token",
		AllowCredentials: true,
		MaxAge:           600,
	}))

	router.SetupRoutes(app, h, settings, storage)

	go func() {
		utils.Log.Infow("server starting", "port", settings.Port, "env", settings.AppEnv, "counterStore", settings.CounterStore)
		if err := app.Listen(":" + settings.Port); err != nil {
			utils.Log.Fatalw("server stopped", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	utils.Log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), settings.EmailTimeout+5*time.Second)
	defer cancel()
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		utils.Log.Errorw("server shutdown", "error", err)
	}
	if err := h.WaitForEmails(shutdownCtx); err != nil {
		utils.Log.Warnw("pending emails abandoned", "error", err)
	}
}

func connectMongoIfNeeded(ctx context.Context, settings config.Settings) (*mongo.Database, error) {
	if settings.CounterStore != "mongo" {
		return nil, nil
	}
	return database.ConnectMongo(ctx, settings)
}
