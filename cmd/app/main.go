package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Domenick1991/carrental/config"
	"github.com/Domenick1991/carrental/internal/bootstrap"
	"github.com/Domenick1991/carrental/internal/cache"
	"github.com/Domenick1991/carrental/internal/kafka"
	"github.com/Domenick1991/carrental/internal/logger"
	gateway "github.com/Domenick1991/carrental/internal/payment"
	"github.com/Domenick1991/carrental/internal/repository"
	"github.com/Domenick1991/carrental/internal/service/booking"
	"github.com/Domenick1991/carrental/internal/service/cars"
	"github.com/Domenick1991/carrental/internal/service/payment"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()

	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}

	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	zlog, err := logger.New(cfg.Log)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer zlog.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.Database.DSN())
	if err != nil {
		zlog.Fatal("connect postgres", zap.Error(err))
	}
	defer pool.Close()

	if err := repository.Migrate(ctx, pool); err != nil {
		zlog.Fatal("migrate", zap.Error(err))
	}

	redisCache := cache.NewRedisCache(cfg.Redis, cfg.Booking.CarsCacheTTLDuration())
	defer redisCache.Close()
	if err := redisCache.Ping(ctx); err != nil {
		zlog.Fatal("connect redis", zap.Error(err))
	}

	producer := kafka.NewProducer(cfg.Kafka.Brokers, zlog)
	defer producer.Close()
	checkCtx, cancelCheck := context.WithTimeout(ctx, 5*time.Second)
	if err := producer.CheckConnection(checkCtx); err != nil {
		zlog.Warn("kafka unreachable at startup", zap.Error(err))
	}
	cancelCheck()

	provider, err := gateway.NewProvider(cfg.Payment, zlog)
	if err != nil {
		zlog.Fatal("payment provider", zap.Error(err))
	}

	carRepo := repository.NewCarRepository(pool)
	bookingRepo := repository.NewBookingRepository(pool)
	paymentRepo := repository.NewPaymentRepository(pool)
	events := booking.NewEventPublisher(producer, zlog, cfg.Kafka.PublishRetries, cfg.Kafka.BookingTopic, cfg.Kafka.NotificationsTopic)

	carService := cars.NewCarService(carRepo, redisCache, zlog)
	bookingService := booking.NewBookingService(
		bookingRepo,
		paymentRepo,
		carService,
		redisCache,
		events,
		cfg.Booking.DraftTTL(),
		zlog,
	)
	paymentService := payment.NewPaymentService(bookingRepo, paymentRepo, provider, events, cfg.Payment, zlog)

	services := bootstrap.Services{
		Cars:     carService,
		Bookings: bookingService,
		Payments: paymentService,
	}
	if err := bootstrap.Run(ctx, cfg, services, zlog); err != nil {
		zlog.Fatal("server error", zap.Error(err))
	}
}
