package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"onam_fest/config"
	"onam_fest/model"
	"onam_fest/utils"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var (
	ErrNotFound    = errors.New("record not found")
	ErrDuplicate   = errors.New("duplicate record")
	ErrUnavailable = errors.New("storage unavailable")

	ErrInvalidTransition = errors.New("status transition not allowed")
)

func ConnectDB(cfg config.Settings) (*gorm.DB, error) {
	logLevel := logger.Warn
	if !cfg.IsProduction() {
		logLevel = logger.Info
	}
	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logLevel),
	})
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	utils.Log.Infow("connection opened to database", "host", cfg.DBHost, "db", cfg.DBName)
	if err := db.AutoMigrate(
		&model.User{},
		&model.Order{},
		&model.Counter{},
	); err != nil {
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	utils.Log.Info("database migrated")

	return db, nil
}

// classify maps driver errors to the package sentinels. A failure while the
// database does not answer a ping is reported as ErrUnavailable.
func classify(ctx context.Context, db *gorm.DB, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%w: %v", ErrDuplicate, err)
	case errors.Is(err, model.ErrInvalidOrder):
		return err
	}
	pingCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
	defer cancel()
	if pingErr := PingDB(pingCtx, db); pingErr != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return err
}

func PingDB(ctx context.Context, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// ConnectRedis returns nil when REDIS_ADDR is unset.
func ConnectRedis(ctx context.Context, cfg config.Settings) (*redis.Client, error) {
	if cfg.RedisAddr == "" {
		return nil, nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	utils.Log.Infow("connection opened to redis", "addr", cfg.RedisAddr)
	return client, nil
}

func ConnectMongo(ctx context.Context, cfg config.Settings) (*mongo.Database, error) {
	if cfg.MongoURI == "" {
		return nil, errors.New("MONGO_URI is required for the mongo counter store")
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	utils.Log.Infow("connection opened to mongo", "db", cfg.MongoDB)
	return client.Database(cfg.MongoDB), nil
}
