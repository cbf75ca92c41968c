package main // Entry point package

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-xray-sdk-go/xray"
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/table-reservation/internal/config"
	"github.com/iliyamo/table-reservation/internal/database"
	"github.com/iliyamo/table-reservation/internal/handler"
	"github.com/iliyamo/table-reservation/internal/logging"
	"github.com/iliyamo/table-reservation/internal/middleware"
	"github.com/iliyamo/table-reservation/internal/queue"
	"github.com/iliyamo/table-reservation/internal/repository"
	"github.com/iliyamo/table-reservation/internal/router"
	"github.com/iliyamo/table-reservation/internal/service"
)

// store is everything the server needs from the store of record.
type store interface {
	service.Store
	service.UserStore
	handler.RestaurantStore
	handler.Pinger
}

func main() {
	_ = godotenv.Load() // .env is optional; real environment wins
	cfg := config.Load()

	logCfg := logging.FromEnv()
	w, closeLog, err := logging.Open(logCfg)
	if err != nil {
		log.Fatalf("log: %v", err)
	}
	defer closeLog()
	logger := logging.New(w, logCfg).With("env", cfg.Env)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.XRayEnabled {
		if err := xray.Configure(xray.Config{ServiceVersion: cfg.Env}); err != nil {
			logger.Error("xray configure failed", "error", err)
			os.Exit(1)
		}
	}

	st, closeDB, err := openStore(ctx, cfg, logger)
	if err != nil {
		logger.Error("store unavailable", "driver", cfg.DB.Driver, "error", err)
		os.Exit(1)
	}
	defer closeDB()

	users := service.NewUserService(st, cfg.JWTSecret, time.Duration(cfg.AccessTTLMin)*time.Minute, cfg.BcryptCost, logger)
	if cfg.AdminENumber != 0 {
		if err := users.EnsureAdmin(ctx, cfg.AdminENumber, cfg.AdminPassword); err != nil {
			logger.Error("admin bootstrap failed", "e_number", cfg.AdminENumber, "error", err)
			os.Exit(1)
		}
	}

	reservations := service.NewReservationService(st, service.Options{
		SlotMinutes: cfg.SlotLengthMin,
		Location:    cfg.Location,
		Logger:      logger,
	})

	rdb, err := config.NewRedisClient(config.LoadRedisConfig())
	if err != nil {
		// Rate limiting and caching are optional; run without them.
		logger.Warn("redis unavailable", "error", err)
	}
	if rdb != nil {
		defer rdb.Close()
	}

	pub := newPublisher(cfg.Broker)
	defer pub.Close()
	events := queue.NewNotifier(pub, logger)
	defer events.Close() // drains queued events before the publisher closes
	if cfg.Broker.ConsumerEnabled {
		go runConsumer(ctx, cfg.Broker, logger)
	}

	cache := middleware.NewResponseCache(config.LoadCacheConfig(), rdb, logger)

	e := echo.New()
	e.HideBanner = true
	router.Register(e, router.Handlers{
		Health:       handler.Health(st),
		Auth:         handler.NewAuthHandler(users, logger),
		Restaurants:  handler.NewRestaurantHandler(st, cache, logger),
		Reservations: handler.NewReservationHandler(reservations, st, events, cfg.Location, logger),
	}, router.Options{
		JWTSecret: cfg.JWTSecret,
		RateLimit: middleware.RateLimit(config.LoadRateLimitConfig(), rdb, logger),
		Cache:     cache.Middleware(),
	})

	var h http.Handler = e
	if cfg.XRayEnabled {
		h = xray.Handler(xray.NewFixedSegmentNamer("table-reservation"), e)
	}
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("listening", "addr", srv.Addr, "driver", cfg.DB.Driver, "timezone", cfg.Location.String())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server stopped", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("graceful shutdown failed", "error", err)
	}
	logger.Info("shutdown complete")
}

// openStore returns the configured store and its closer.
func openStore(ctx context.Context, cfg config.Config, logger *slog.Logger) (store, func(), error) {
	if cfg.DB.Driver == config.DriverMemory {
		logger.Warn("using in-memory store; data is lost on restart")
		return repository.NewMemoryStore(), func() {}, nil
	}

	db, err := database.Open(ctx, cfg.DB, cfg.XRayEnabled)
	if err != nil {
		return nil, nil, err
	}
	if cfg.DB.AutoMigrate {
		if err := database.Migrate(ctx, db); err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		logger.Info("schema applied", "driver", cfg.DB.Driver)
	}
	return repository.NewStore(db), func() { _ = db.Close() }, nil
}

func newPublisher(cfg config.BrokerConfig) queue.Publisher {
	switch cfg.Kind {
	case config.BrokerRabbitMQ:
		return queue.NewAMQPPublisher(cfg.RabbitURL, cfg.Queue)
	case config.BrokerKafka:
		return queue.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
	default:
		return queue.NopPublisher{}
	}
}

// runConsumer tails the event stream into the booking log until ctx ends.
func runConsumer(ctx context.Context, cfg config.BrokerConfig, logger *slog.Logger) {
	sink := queue.NewBookingLog(cfg.ConsumerLogFile)
	var err error
	switch cfg.Kind {
	case config.BrokerRabbitMQ:
		err = queue.RunAMQPConsumer(ctx, cfg.RabbitURL, cfg.Queue, sink, logger)
	case config.BrokerKafka:
		err = queue.RunKafkaConsumer(ctx, cfg.KafkaBrokers, cfg.KafkaTopic, cfg.KafkaGroupID, sink, logger)
	default:
		return
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("consumer stopped", "error", err)
	}
}
