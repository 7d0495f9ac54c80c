package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	assignStaffHandler "github.com/m04kA/SMC-GarageBooking/internal/api/handlers/assign_staff"
	cancelBookingHandler "github.com/m04kA/SMC-GarageBooking/internal/api/handlers/cancel_booking"
	createBookingHandler "github.com/m04kA/SMC-GarageBooking/internal/api/handlers/create_booking"
	getAvailableSlotsHandler "github.com/m04kA/SMC-GarageBooking/internal/api/handlers/get_available_slots"
	getBookingHandler "github.com/m04kA/SMC-GarageBooking/internal/api/handlers/get_booking"
	getBookingsByDateHandler "github.com/m04kA/SMC-GarageBooking/internal/api/handlers/get_bookings_by_date"
	getCustomerBookingsHandler "github.com/m04kA/SMC-GarageBooking/internal/api/handlers/get_customer_bookings"
	getPaymentHandler "github.com/m04kA/SMC-GarageBooking/internal/api/handlers/get_payment"
	listAnomaliesHandler "github.com/m04kA/SMC-GarageBooking/internal/api/handlers/list_anomalies"
	listBookingPaymentsHandler "github.com/m04kA/SMC-GarageBooking/internal/api/handlers/list_booking_payments"
	mpesaCallbackHandler "github.com/m04kA/SMC-GarageBooking/internal/api/handlers/mpesa_callback"
	refundPaymentHandler "github.com/m04kA/SMC-GarageBooking/internal/api/handlers/refund_payment"
	resolveAnomalyHandler "github.com/m04kA/SMC-GarageBooking/internal/api/handlers/resolve_anomaly"
	updateBookingStatusHandler "github.com/m04kA/SMC-GarageBooking/internal/api/handlers/update_booking_status"
	"github.com/m04kA/SMC-GarageBooking/internal/api/middleware"
	"github.com/m04kA/SMC-GarageBooking/internal/config"
	"github.com/m04kA/SMC-GarageBooking/internal/domain"
	"github.com/m04kA/SMC-GarageBooking/internal/integrations/mpesa"
	"github.com/m04kA/SMC-GarageBooking/internal/outbox"
	anomaliesService "github.com/m04kA/SMC-GarageBooking/internal/service/anomalies"
	bookingsService "github.com/m04kA/SMC-GarageBooking/internal/service/bookings"
	"github.com/m04kA/SMC-GarageBooking/internal/service/lifecycle"
	paymentsService "github.com/m04kA/SMC-GarageBooking/internal/service/payments"
	"github.com/m04kA/SMC-GarageBooking/internal/service/reservation"
	"github.com/m04kA/SMC-GarageBooking/internal/service/schedule"
	createBookingUC "github.com/m04kA/SMC-GarageBooking/internal/usecase/create_booking"
	getAvailableSlotsUC "github.com/m04kA/SMC-GarageBooking/internal/usecase/get_available_slots"
	reconcilePaymentUC "github.com/m04kA/SMC-GarageBooking/internal/usecase/reconcile_payment"
	refundPaymentUC "github.com/m04kA/SMC-GarageBooking/internal/usecase/refund_payment"
	"github.com/m04kA/SMC-GarageBooking/pkg/logger"
	"github.com/m04kA/SMC-GarageBooking/pkg/metrics"
	"github.com/m04kA/SMC-GarageBooking/pkg/tracing"
)

const defaultConfigPath = "config.toml"

func main() {
	configPath := defaultConfigPath
	if path := os.Getenv("BOOKING_CONFIG_PATH"); path != "" {
		configPath = path
	}

	// Загружаем конфигурацию
	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Инициализируем логгер
	log, err := logger.New(cfg.Logs.File, cfg.Logs.Level)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Close()

	log.Info("Starting SMC-GarageBooking...")
	log.Info("Configuration loaded from %s", configPath)

	ctx := context.Background()

	// Метрики (nil коллектор безопасен и ничего не пишет)
	var metricsCollector *metrics.Metrics
	if cfg.Metrics.Enabled {
		metricsCollector = metrics.New(cfg.Metrics.ServiceName)
		log.Info("Metrics enabled at %s", cfg.Metrics.Path)
	}

	// Трейсинг
	if cfg.Tracing.Enabled {
		shutdownTracer, err := tracing.InitTracer(ctx, tracing.Config{
			ServiceName: cfg.Metrics.ServiceName,
			Endpoint:    cfg.Tracing.Endpoint,
			Environment: cfg.Tracing.Environment,
			SampleRatio: cfg.Tracing.SampleRatio,
		})
		if err != nil {
			log.Fatal("Failed to initialize tracing: %v", err)
		}
		defer func() {
			if err := shutdownTracer(context.Background()); err != nil {
				log.Error("Failed to flush traces: %v", err)
			}
		}()
		log.Info("Tracing enabled (endpoint=%s)", cfg.Tracing.Endpoint)
	}

	// Расписание гаража
	policy, err := schedule.NewPolicy(schedule.Settings{
		Timezone:           cfg.Schedule.Timezone,
		SlotMinutes:        cfg.Schedule.SlotMinutes,
		AdvanceBookingDays: cfg.Schedule.AdvanceBookingDays,
		HoldMinutes:        cfg.Schedule.HoldMinutes,
		MinNoticeMinutes:   cfg.Schedule.MinNoticeMinutes,
		Weekly:             cfg.Schedule.Hours.ByWeekday(),
		ClosedDates:        cfg.Schedule.ClosedDates,
	})
	if err != nil {
		log.Fatal("Invalid schedule: %v", err)
	}

	// Хранилище, кеш, брокер
	store, err := openStorage(cfg, metricsCollector, log)
	if err != nil {
		log.Fatal("Failed to open storage: %v", err)
	}
	defer store.close()

	availability, closeCache, err := openCache(ctx, cfg.Redis, log)
	if err != nil {
		log.Fatal("Failed to connect to redis: %v", err)
	}
	defer closeCache()

	eventProducer := openProducer(cfg.Kafka, log)
	defer func() {
		if err := eventProducer.Close(); err != nil {
			log.Error("Failed to close producer: %v", err)
		}
	}()

	// Интеграции
	catalog, err := catalogClient(cfg.CatalogService, log)
	if err != nil {
		log.Fatal("Failed to initialize catalog: %v", err)
	}

	gateway := mpesa.NewClient(mpesa.Config{
		BaseURL:         cfg.Mpesa.BaseURL,
		ConsumerKey:     cfg.Mpesa.ConsumerKey,
		ConsumerSecret:  cfg.Mpesa.ConsumerSecret,
		ShortCode:       cfg.Mpesa.ShortCode,
		Passkey:         cfg.Mpesa.Passkey,
		CallbackURL:     cfg.Mpesa.CallbackURL,
		TransactionType: cfg.Mpesa.TransactionType,
		Timeout:         time.Duration(cfg.Mpesa.Timeout) * time.Second,
		Location:        policy.Location,
	}, log)
	log.Info("M-Pesa client initialized (base_url=%s, short_code=%s)", cfg.Mpesa.BaseURL, cfg.Mpesa.ShortCode)

	// Сервисы
	machine := lifecycle.NewMachine(store.bookings, store.payments, store.outbox, availability, store.txManager, nil, log)
	guard := reservation.NewGuard(store.bookings, machine, availability, store.txManager, metricsCollector, policy.HoldWindow, nil, log)
	validator := schedule.NewValidator(policy, nil)
	generator := schedule.NewGenerator(policy)

	bookingSvc := bookingsService.NewService(store.bookings, machine, nil, log)
	paymentSvc := paymentsService.NewService(store.payments, store.bookings, log)
	anomalySvc := anomaliesService.NewService(store.anomalies, nil, log)

	// Use cases
	getAvailableSlotsUseCase := getAvailableSlotsUC.NewUseCase(
		store.bookings,
		validator,
		generator,
		availability,
		policy.MinNotice,
		nil,
		log,
	)

	createBookingUseCase := createBookingUC.NewUseCase(
		validator,
		generator,
		catalog,
		guard,
		store.bookings,
		store.payments,
		gateway,
		machine,
		store.txManager,
		policy.MinNotice,
		nil,
		log,
	)

	reconcilePaymentUseCase := reconcilePaymentUC.NewUseCase(
		store.payments,
		store.bookings,
		store.anomalies,
		store.outbox,
		machine,
		store.txManager,
		metricsCollector,
		nil,
		log,
	)

	refundPaymentUseCase := refundPaymentUC.NewUseCase(
		store.payments,
		store.bookings,
		store.outbox,
		machine,
		store.txManager,
		nil,
		log,
	)

	// Handlers
	getAvailableSlots := getAvailableSlotsHandler.NewHandler(getAvailableSlotsUseCase, log)
	createBooking := createBookingHandler.NewHandler(createBookingUseCase, log)
	getBooking := getBookingHandler.NewHandler(bookingSvc, log)
	cancelBooking := cancelBookingHandler.NewHandler(bookingSvc, log)
	updateBookingStatus := updateBookingStatusHandler.NewHandler(bookingSvc, log)
	assignStaff := assignStaffHandler.NewHandler(bookingSvc, log)
	getCustomerBookings := getCustomerBookingsHandler.NewHandler(bookingSvc, log)
	getBookingsByDate := getBookingsByDateHandler.NewHandler(bookingSvc, log)
	getPayment := getPaymentHandler.NewHandler(paymentSvc, log)
	listBookingPayments := listBookingPaymentsHandler.NewHandler(paymentSvc, log)
	refundPayment := refundPaymentHandler.NewHandler(refundPaymentUseCase, log)
	mpesaCallback := mpesaCallbackHandler.NewHandler(reconcilePaymentUseCase, policy.Location, log)
	listAnomalies := listAnomaliesHandler.NewHandler(anomalySvc, log)
	resolveAnomaly := resolveAnomalyHandler.NewHandler(anomalySvc, log)

	// Настраиваем роутер
	r := mux.NewRouter()

	if cfg.Tracing.Enabled {
		r.Use(middleware.TracingMiddleware())
	}

	if cfg.Metrics.Enabled {
		r.Use(middleware.MetricsMiddleware(metricsCollector))
		r.Handle(cfg.Metrics.Path, promhttp.Handler()).Methods(http.MethodGet)
		log.Info("Prometheus metrics endpoint exposed at %s", cfg.Metrics.Path)
	}

	rateLimit := func(next http.Handler) http.Handler { return next }
	if cfg.RateLimit.Enabled {
		limiter := middleware.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst, log)
		rateLimit = limiter.Middleware
		log.Info("Rate limit enabled (%.1f rps, burst %d)", cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)
	}

	auth := middleware.NewAuth(cfg.Auth.JWTSecret, log)

	api := r.PathPrefix("/api/v1").Subrouter()

	// ============================================================
	// PUBLIC ROUTES (без аутентификации)
	// ============================================================

	// Доступные слоты на дату
	api.Handle("/availability", rateLimit(http.HandlerFunc(getAvailableSlots.Handle))).Methods(http.MethodGet)

	// Уведомление M-Pesa о результате оплаты
	api.HandleFunc("/payments/mpesa/callback", mpesaCallback.Handle).Methods(http.MethodPost)

	// ============================================================
	// PROTECTED ROUTES (Bearer JWT)
	// ============================================================

	protected := api.NewRoute().Subrouter()
	protected.Use(auth.Middleware)

	// --- Бронирования ---
	protected.Handle("/bookings", rateLimit(http.HandlerFunc(createBooking.Handle))).Methods(http.MethodPost)
	protected.HandleFunc("/bookings/{bookingId}", getBooking.Handle).Methods(http.MethodGet)
	protected.HandleFunc("/bookings/{bookingId}/cancel", cancelBooking.Handle).Methods(http.MethodPatch)
	protected.HandleFunc("/bookings/{bookingId}/payments", listBookingPayments.Handle).Methods(http.MethodGet)
	protected.HandleFunc("/customers/{customerId}/bookings", getCustomerBookings.Handle).Methods(http.MethodGet)

	// --- Платежи ---
	protected.HandleFunc("/payments/{paymentId}", getPayment.Handle).Methods(http.MethodGet)

	// ============================================================
	// STAFF ROUTES (staff, admin)
	// ============================================================

	staff := protected.NewRoute().Subrouter()
	staff.Use(middleware.RequireRole(domain.RoleStaff, domain.RoleAdmin))

	staff.HandleFunc("/bookings", getBookingsByDate.Handle).Methods(http.MethodGet)
	staff.HandleFunc("/bookings/{bookingId}/status", updateBookingStatus.Handle).Methods(http.MethodPatch)
	staff.HandleFunc("/bookings/{bookingId}/staff", assignStaff.Handle).Methods(http.MethodPatch)
	staff.HandleFunc("/payments/{paymentId}/refund", refundPayment.Handle).Methods(http.MethodPost)
	staff.HandleFunc("/anomalies", listAnomalies.Handle).Methods(http.MethodGet)
	staff.HandleFunc("/anomalies/{anomalyId}/resolve", resolveAnomaly.Handle).Methods(http.MethodPatch)

	// Relay outbox -> kafka
	relayCtx, stopRelay := context.WithCancel(ctx)
	relayDone := make(chan struct{})
	processor := outbox.NewProcessor(
		store.outbox,
		eventProducer,
		store.txManager,
		outbox.Topics{
			Booking: cfg.Kafka.BookingTopic,
			Payment: cfg.Kafka.PaymentTopic,
			Anomaly: cfg.Kafka.AnomalyTopic,
		},
		time.Duration(cfg.Outbox.PollInterval)*time.Millisecond,
		cfg.Outbox.BatchSize,
		metricsCollector,
		nil,
		log,
	)
	go func() {
		defer close(relayDone)
		processor.Run(relayCtx)
	}()

	// Создаем HTTP сервер
	addr := fmt.Sprintf(":%d", cfg.Server.HTTPPort)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	// Graceful shutdown
	go func() {
		log.Info("Starting server on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Server failed to start: %v", err)
		}
	}()

	// Ожидаем сигнал завершения
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(
		context.Background(),
		time.Duration(cfg.Server.ShutdownTimeout)*time.Second,
	)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown: %v", err)
	}

	// Relay останавливается после сервера, чтобы дослать события последних запросов
	stopRelay()
	<-relayDone

	log.Info("Server stopped gracefully")
}
