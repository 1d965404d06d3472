package main

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/yinan077/PassGate/config"
	appmodel "github.com/yinan077/PassGate/internal/app/model"
	apprepository "github.com/yinan077/PassGate/internal/app/repository"
	appserver "github.com/yinan077/PassGate/internal/app/server"
	appservice "github.com/yinan077/PassGate/internal/app/service"
	"github.com/yinan077/PassGate/internal/infra/logger"
	infraNATS "github.com/yinan077/PassGate/internal/infra/nats"
	infraPostgres "github.com/yinan077/PassGate/internal/infra/postgres"
	infraPrometheus "github.com/yinan077/PassGate/internal/infra/prometheus"
	infraRedis "github.com/yinan077/PassGate/internal/infra/redis"
	"go.uber.org/zap"
)

func main() {
	ctx := context.Background()

	isDev := os.Getenv("APP_ENV") != "production"
	log := logger.MustInit(logger.Config{
		Development: isDev,
		Level:       os.Getenv("LOG_LEVEL"),
	})
	defer func() { _ = logger.Sync() }()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config", zap.Error(err))
	}

	log.Info("Configuration loaded successfully",
		zap.Int("server_port", cfg.Server.Port),
		zap.String("postgres_user", cfg.Postgres.User),
		zap.String("postgres_host", cfg.Postgres.Host),
		zap.Int("postgres_port", cfg.Postgres.Port),
		zap.String("postgres_db", cfg.Postgres.Database),
		zap.String("redis_host", cfg.Redis.Host),
		zap.Int("redis_port", cfg.Redis.Port),
		zap.String("nats_host", cfg.NATS.Host),
		zap.Int("nats_port", cfg.NATS.Port),
	)

	gormDB, err := infraPostgres.NewGorm(cfg.Postgres)
	if err != nil {
		log.Fatal("Failed to open GORM connection", zap.Error(err))
	}
	sqlDB, err := gormDB.DB()
	if err != nil {
		log.Fatal("Failed to access underlying SQL DB", zap.Error(err))
	}
	defer sqlDB.Close()

	if err := infraPostgres.AutoMigrate(ctx, gormDB, &appmodel.Visitor{}, &appmodel.VisitEvent{}); err != nil {
		log.Fatal("Failed to run database migrations", zap.Error(err))
	}

	pool, err := infraPostgres.NewPool(ctx, cfg.Postgres)
	if err != nil {
		log.Fatal("Failed to connect to Postgres", zap.Error(err))
	}
	defer pool.Close()

	log.Info("Connected to Postgres successfully")

	redisClient, err := infraRedis.NewClient(ctx, cfg.Redis)
	if err != nil {
		log.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer redisClient.Close()
	log.Info("Connected to Redis successfully")

	natsConn, js, err := infraNATS.Connect(cfg.NATS)
	if err != nil {
		log.Fatal("Failed to connect to NATS", zap.Error(err))
	}
	defer natsConn.Drain()
	log.Info("Connected to NATS successfully", zap.Bool("jetstream_ready", js != nil))

	if !isDev {
		promServer := infraPrometheus.NewServer(cfg.Prometheus)
		go func() {
			log.Info("Starting Prometheus metrics server",
				zap.Int("port", cfg.Prometheus.Port))
			if err := promServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("Prometheus metrics server stopped unexpectedly", zap.Error(err))
			}
		}()
		defer func() {
			if err := promServer.Close(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Warn("Failed to close Prometheus server", zap.Error(err))
			}
		}()
	} else {
		log.Info("Skipping Prometheus metrics server in development mode")
	}

	visitorRepo := apprepository.NewVisitorRepository(gormDB)
	eventRepo := apprepository.NewVisitEventRepository(gormDB)

	cache := infraRedis.NewVisitorCache(redisClient, parseDuration(cfg.Gate.CacheTTL, 30*time.Second), log)
	visitors := appservice.NewVisitorService(visitorRepo, cache)

	known := appservice.NewKnownPasses(cfg.Gate.ExpectedPasses, 0.01)
	if err := known.Seed(ctx, visitorRepo); err != nil {
		log.Fatal("Failed to seed pass filter", zap.Error(err))
	}

	publisher := appservice.NewVisitPublisher(js)

	consumer := appservice.NewVisitConsumer(js, log, eventRepo)
	if err := consumer.Start(); err != nil {
		log.Fatal("Failed to start visit consumer", zap.Error(err))
	}

	retention := appservice.NewVisitRetention(log, eventRepo, parseDuration(cfg.Gate.EventRetention, 30*24*time.Hour))
	retention.Start()
	defer retention.Stop()

	server := appserver.New(appserver.Dependencies{
		Logger:             log,
		Postgres:           pool,
		Redis:              redisClient,
		NATS:               natsConn,
		JetStream:          js,
		Visitors:           visitors,
		Events:             eventRepo,
		Known:              known,
		Publisher:          publisher,
		GrantSecret:        grantSecret(cfg, log),
		GrantTTL:           parseDuration(cfg.Gate.GrantTTL, 60*time.Second),
		RateLimitPerMinute: cfg.Gate.RateLimitPerMinute,
	})

	if err := server.Listen(fmt.Sprintf(":%d", cfg.Server.Port)); err != nil {
		log.Fatal("Fiber server exited", zap.Error(err))
	}
}

func parseDuration(value string, fallback time.Duration) time.Duration {
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return d
}

// grantSecret returns the configured signing secret, or an ephemeral one when
// none is set. Ephemeral secrets invalidate outstanding grants on restart.
func grantSecret(cfg *config.Config, log *zap.Logger) []byte {
	if cfg.Gate.GrantSecret != "" {
		return []byte(cfg.Gate.GrantSecret)
	}

	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		log.Fatal("Failed to generate grant secret", zap.Error(err))
	}
	log.Warn("GATE_GRANT_SECRET not set, using ephemeral secret")
	return secret
}
