package main

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/m04kA/SMC-GarageBooking/internal/config"
	"github.com/m04kA/SMC-GarageBooking/internal/infra/cache"
	"github.com/m04kA/SMC-GarageBooking/internal/infra/kafka"
	"github.com/m04kA/SMC-GarageBooking/internal/infra/migrations"
	anomalyRepo "github.com/m04kA/SMC-GarageBooking/internal/infra/storage/anomaly"
	bookingRepo "github.com/m04kA/SMC-GarageBooking/internal/infra/storage/booking"
	"github.com/m04kA/SMC-GarageBooking/internal/infra/storage/memory"
	outboxRepo "github.com/m04kA/SMC-GarageBooking/internal/infra/storage/outbox"
	paymentRepo "github.com/m04kA/SMC-GarageBooking/internal/infra/storage/payment"
	"github.com/m04kA/SMC-GarageBooking/internal/integrations/catalogservice"
	"github.com/m04kA/SMC-GarageBooking/internal/outbox"
	anomaliesService "github.com/m04kA/SMC-GarageBooking/internal/service/anomalies"
	bookingsService "github.com/m04kA/SMC-GarageBooking/internal/service/bookings"
	"github.com/m04kA/SMC-GarageBooking/internal/service/lifecycle"
	paymentsService "github.com/m04kA/SMC-GarageBooking/internal/service/payments"
	"github.com/m04kA/SMC-GarageBooking/internal/service/reservation"
	createBookingUC "github.com/m04kA/SMC-GarageBooking/internal/usecase/create_booking"
	getAvailableSlotsUC "github.com/m04kA/SMC-GarageBooking/internal/usecase/get_available_slots"
	reconcilePaymentUC "github.com/m04kA/SMC-GarageBooking/internal/usecase/reconcile_payment"
	refundPaymentUC "github.com/m04kA/SMC-GarageBooking/internal/usecase/refund_payment"
	"github.com/m04kA/SMC-GarageBooking/pkg/dbmetrics"
	"github.com/m04kA/SMC-GarageBooking/pkg/logger"
	"github.com/m04kA/SMC-GarageBooking/pkg/metrics"
	"github.com/m04kA/SMC-GarageBooking/pkg/txmanager"
)

// Объединения контрактов всех потребителей: оба backend хранилища обязаны реализовать каждый из них

type bookingStore interface {
	reservation.BookingRepository
	lifecycle.BookingRepository
	bookingsService.BookingRepository
	paymentsService.BookingRepository
	createBookingUC.BookingRepository
	getAvailableSlotsUC.BookingRepository
	reconcilePaymentUC.BookingRepository
	refundPaymentUC.BookingRepository
}

type paymentStore interface {
	lifecycle.PaymentRepository
	paymentsService.PaymentRepository
	createBookingUC.PaymentRepository
	reconcilePaymentUC.PaymentRepository
	refundPaymentUC.PaymentRepository
}

type anomalyStore interface {
	anomaliesService.AnomalyRepository
	reconcilePaymentUC.AnomalyRepository
}

type outboxStore interface {
	lifecycle.OutboxRepository
	reconcilePaymentUC.OutboxRepository
	refundPaymentUC.OutboxRepository
	outbox.Repository
}

type transactionManager interface {
	Do(ctx context.Context, fn func(ctx context.Context) error) error
}

type availabilityCache interface {
	getAvailableSlotsUC.AvailabilityCache
	reservation.AvailabilityCache
	lifecycle.AvailabilityCache
}

type producer interface {
	outbox.Producer
	Close() error
}

// storage репозитории выбранного backend
type storage struct {
	bookings  bookingStore
	payments  paymentStore
	anomalies anomalyStore
	outbox    outboxStore
	txManager transactionManager
	close     func()
}

// openStorage подключает postgres (с миграциями) или создает хранилище в памяти
func openStorage(cfg *config.Config, m *metrics.Metrics, log *logger.Logger) (*storage, error) {
	if cfg.Storage.Driver == config.StorageDriverMemory {
		log.Warn("Using in-memory storage: data is lost on restart, run a single instance only")
		store := memory.NewStore()
		return &storage{
			bookings:  store.Bookings(),
			payments:  store.Payments(),
			anomalies: store.Anomalies(),
			outbox:    store.Outbox(),
			txManager: store.TxManager(),
			close:     func() {},
		}, nil
	}

	db, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(time.Duration(cfg.Database.ConnMaxLifetime) * time.Second)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	log.Info("Successfully connected to database (host=%s, port=%d, db=%s)",
		cfg.Database.Host, cfg.Database.Port, cfg.Database.DBName)

	if cfg.Database.MigrateOnStart {
		if err := migrations.Run(db, cfg.Database.DBName); err != nil {
			_ = db.Close()
			return nil, err
		}
		log.Info("Database migrations applied")
	}

	stopStats := make(chan struct{})
	var wrapped *dbmetrics.DB
	if m != nil {
		wrapped = dbmetrics.WrapWithDefault(db, m, stopStats)
		log.Info("Database metrics collection started")
	} else {
		wrapped = dbmetrics.Wrap(db, nil)
	}

	return &storage{
		bookings:  bookingRepo.NewRepository(wrapped),
		payments:  paymentRepo.NewRepository(wrapped),
		anomalies: anomalyRepo.NewRepository(wrapped),
		outbox:    outboxRepo.NewRepository(wrapped),
		txManager: txmanager.NewTransactionManager(wrapped),
		close: func() {
			close(stopStats)
			_ = db.Close()
		},
	}, nil
}

// openCache возвращает redis кеш доступности или пустую заглушку
func openCache(ctx context.Context, cfg config.RedisConfig, log *logger.Logger) (availabilityCache, func(), error) {
	if !cfg.Enabled {
		log.Info("Availability cache disabled")
		return cache.NopCache{}, func() {}, nil
	}

	client, err := cache.NewRedisClient(ctx, cfg.Addr, cfg.Password, cfg.DB)
	if err != nil {
		return nil, nil, err
	}
	log.Info("Availability cache enabled (redis=%s, ttl=%ds)", cfg.Addr, cfg.TTL)

	return cache.NewAvailabilityCache(client, time.Duration(cfg.TTL)*time.Second), func() { _ = client.Close() }, nil
}

// openProducer возвращает kafka продюсер или логирующую заглушку
func openProducer(cfg config.KafkaConfig, log *logger.Logger) producer {
	if !cfg.Enabled {
		log.Info("Kafka disabled: outbox events are written to the log")
		return kafka.NewLogProducer(log)
	}
	log.Info("Kafka producer enabled (brokers=%v)", cfg.Brokers)
	return kafka.NewProducer(cfg.Brokers, log)
}

// catalogClient возвращает HTTP клиент каталога или статический каталог из конфигурации
func catalogClient(cfg config.CatalogServiceConfig, log *logger.Logger) (createBookingUC.CatalogClient, error) {
	if cfg.URL != "" {
		log.Info("Catalog client initialized (url=%s, timeout=%ds)", cfg.URL, cfg.Timeout)
		return catalogservice.NewClient(cfg.URL, time.Duration(cfg.Timeout)*time.Second, log), nil
	}

	services := make([]catalogservice.Service, 0, len(cfg.Services))
	for _, s := range cfg.Services {
		price, err := decimal.NewFromString(s.Price)
		if err != nil {
			return nil, fmt.Errorf("catalog service id=%d: invalid price %q: %w", s.ID, s.Price, err)
		}
		services = append(services, catalogservice.Service{
			ID:              s.ID,
			Name:            s.Name,
			Price:           price,
			DurationMinutes: s.DurationMinutes,
			IsActive:        s.Active,
		})
	}
	log.Info("Static catalog initialized (%d services)", len(services))
	return catalogservice.NewStaticCatalog(services), nil
}
