package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/Domenick1991/carrental/config"
	"github.com/Domenick1991/carrental/internal/email"
	"github.com/Domenick1991/carrental/internal/kafka"
	"github.com/Domenick1991/carrental/internal/logger"
	gateway "github.com/Domenick1991/carrental/internal/payment"
	"github.com/Domenick1991/carrental/internal/repository"
	"github.com/Domenick1991/carrental/internal/service/booking"
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

	producer := kafka.NewProducer(cfg.Kafka.Brokers, zlog)
	defer producer.Close()

	provider, err := gateway.NewProvider(cfg.Payment, zlog)
	if err != nil {
		zlog.Fatal("payment provider", zap.Error(err))
	}

	events := booking.NewEventPublisher(producer, zlog, cfg.Kafka.PublishRetries, cfg.Kafka.BookingTopic, cfg.Kafka.NotificationsTopic)
	paymentService := payment.NewPaymentService(
		repository.NewBookingRepository(pool),
		repository.NewPaymentRepository(pool),
		provider,
		events,
		cfg.Payment,
		zlog,
	)

	consumer := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.GroupID, cfg.Kafka.NotificationsTopic, zlog)
	defer consumer.Close()
	sender := email.NewSender(zlog)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		if err := consumer.ConsumeBookingEvents(ctx, sender.Send); err != nil {
			zlog.Error("consumer stopped", zap.Error(err))
		}
	}()
	go func() {
		defer wg.Done()
		runSweeper(ctx, paymentService, cfg.Worker, zlog)
	}()

	<-ctx.Done()
	zlog.Info("shutting down")
	wg.Wait()
}

// runSweeper periodically reconciles checkouts that never came back to the success URL.
func runSweeper(ctx context.Context, svc payment.PaymentUseCase, cfg config.WorkerConfig, log *zap.Logger) {
	if cfg.ReconcileSweepMinutes <= 0 {
		log.Info("reconcile sweep disabled")
		return
	}
	ticker := time.NewTicker(time.Duration(cfg.ReconcileSweepMinutes) * time.Minute)
	defer ticker.Stop()
	staleAfter := time.Duration(cfg.StaleAfterMinutes) * time.Minute

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			report, err := svc.SweepStale(ctx, staleAfter)
			if err != nil {
				log.Error("reconcile sweep failed", zap.Error(err))
				continue
			}
			if report.Checked > 0 {
				log.Info("reconcile sweep",
					zap.Int("checked", report.Checked),
					zap.Int("paid", report.Paid),
					zap.Int("cancelled", report.Cancelled),
					zap.Int("failed", report.Failed))
			}
		}
	}
}
