package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// envPrefix префикс переменных окружения, переопределяющих значения из toml
// (например BOOKING_DATABASE_PASSWORD, BOOKING_MPESA_PASSKEY)
const envPrefix = "BOOKING"

// ErrInvalidConfig возвращается при некорректной конфигурации
var ErrInvalidConfig = errors.New("config: invalid configuration")

// Config конфигурация сервиса
type Config struct {
	Server         ServerConfig         `toml:"server" split_words:"true"`
	Database       DatabaseConfig       `toml:"database" split_words:"true"`
	Storage        StorageConfig        `toml:"storage" split_words:"true"`
	Logs           LogsConfig           `toml:"logs" split_words:"true"`
	Metrics        MetricsConfig        `toml:"metrics" split_words:"true"`
	Tracing        TracingConfig        `toml:"tracing" split_words:"true"`
	Redis          RedisConfig          `toml:"redis" split_words:"true"`
	Kafka          KafkaConfig          `toml:"kafka" split_words:"true"`
	Outbox         OutboxConfig         `toml:"outbox" split_words:"true"`
	Auth           AuthConfig           `toml:"auth" split_words:"true"`
	RateLimit      RateLimitConfig      `toml:"rate_limit" split_words:"true"`
	Schedule       ScheduleConfig       `toml:"schedule" split_words:"true"`
	CatalogService CatalogServiceConfig `toml:"catalog_service" split_words:"true"`
	Mpesa          MpesaConfig          `toml:"mpesa" split_words:"true"`
}

// ServerConfig настройки HTTP сервера (таймауты в секундах)
type ServerConfig struct {
	HTTPPort        int `toml:"http_port" split_words:"true"`
	ReadTimeout     int `toml:"read_timeout" split_words:"true"`
	WriteTimeout    int `toml:"write_timeout" split_words:"true"`
	IdleTimeout     int `toml:"idle_timeout" split_words:"true"`
	ShutdownTimeout int `toml:"shutdown_timeout" split_words:"true"`
}

// DatabaseConfig настройки подключения к PostgreSQL
type DatabaseConfig struct {
	Host            string `toml:"host" split_words:"true"`
	Port            int    `toml:"port" split_words:"true"`
	User            string `toml:"user" split_words:"true"`
	Password        string `toml:"password" split_words:"true"`
	DBName          string `toml:"dbname" split_words:"true"`
	SSLMode         string `toml:"sslmode" split_words:"true"`
	MaxOpenConns    int    `toml:"max_open_conns" split_words:"true"`
	MaxIdleConns    int    `toml:"max_idle_conns" split_words:"true"`
	ConnMaxLifetime int    `toml:"conn_max_lifetime" split_words:"true"` // секунды
	MigrateOnStart  bool   `toml:"migrate_on_start" split_words:"true"`
}

// DSN строка подключения для lib/pq
func (d DatabaseConfig) DSN() string {
	sslMode := d.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, sslMode)
}

// Storage drivers
const (
	StorageDriverPostgres = "postgres"
	StorageDriverMemory   = "memory"
)

// StorageConfig выбор backend хранилища
type StorageConfig struct {
	Driver string `toml:"driver" split_words:"true"`
}

// LogsConfig настройки логирования
type LogsConfig struct {
	Level string `toml:"level" split_words:"true"`
	File  string `toml:"file" split_words:"true"`
}

// MetricsConfig настройки prometheus
type MetricsConfig struct {
	Enabled     bool   `toml:"enabled" split_words:"true"`
	Path        string `toml:"path" split_words:"true"`
	ServiceName string `toml:"service_name" split_words:"true"`
}

// TracingConfig настройки OpenTelemetry
type TracingConfig struct {
	Enabled     bool    `toml:"enabled" split_words:"true"`
	Endpoint    string  `toml:"endpoint" split_words:"true"`
	Environment string  `toml:"environment" split_words:"true"`
	SampleRatio float64 `toml:"sample_ratio" split_words:"true"`
}

// RedisConfig настройки кеша доступности
type RedisConfig struct {
	Enabled  bool   `toml:"enabled" split_words:"true"`
	Addr     string `toml:"addr" split_words:"true"`
	Password string `toml:"password" split_words:"true"`
	DB       int    `toml:"db" split_words:"true"`
	TTL      int    `toml:"ttl" split_words:"true"` // секунды
}

// KafkaConfig настройки публикации событий
type KafkaConfig struct {
	Enabled      bool     `toml:"enabled" split_words:"true"`
	Brokers      []string `toml:"brokers" split_words:"true"`
	BookingTopic string   `toml:"booking_topic" split_words:"true"`
	PaymentTopic string   `toml:"payment_topic" split_words:"true"`
	AnomalyTopic string   `toml:"anomaly_topic" split_words:"true"`
}

// OutboxConfig настройки relay outbox
type OutboxConfig struct {
	PollInterval int `toml:"poll_interval" split_words:"true"` // миллисекунды
	BatchSize    int `toml:"batch_size" split_words:"true"`
}

// AuthConfig настройки проверки JWT
type AuthConfig struct {
	JWTSecret string `toml:"jwt_secret" split_words:"true"`
}

// RateLimitConfig ограничение запросов на IP
type RateLimitConfig struct {
	Enabled           bool    `toml:"enabled" split_words:"true"`
	RequestsPerSecond float64 `toml:"requests_per_second" split_words:"true"`
	Burst             int     `toml:"burst" split_words:"true"`
}

// ScheduleConfig расписание гаража
type ScheduleConfig struct {
	Timezone           string      `toml:"timezone" split_words:"true"`
	SlotMinutes        int         `toml:"slot_minutes" split_words:"true"`
	AdvanceBookingDays int         `toml:"advance_booking_days" split_words:"true"` // 0 = без ограничения
	HoldMinutes        int         `toml:"hold_minutes" split_words:"true"`
	MinNoticeMinutes   int         `toml:"min_notice_minutes" split_words:"true"`
	ClosedDates        []string    `toml:"closed_dates" split_words:"true"`
	Hours              WeeklyHours `toml:"hours" split_words:"true"`
}

// WeeklyHours часы работы по дням недели в формате "08:00-18:00", пустая строка = выходной
type WeeklyHours struct {
	Monday    string `toml:"monday" split_words:"true"`
	Tuesday   string `toml:"tuesday" split_words:"true"`
	Wednesday string `toml:"wednesday" split_words:"true"`
	Thursday  string `toml:"thursday" split_words:"true"`
	Friday    string `toml:"friday" split_words:"true"`
	Saturday  string `toml:"saturday" split_words:"true"`
	Sunday    string `toml:"sunday" split_words:"true"`
}

// ByWeekday возвращает часы работы, индексированные time.Weekday
func (w WeeklyHours) ByWeekday() map[time.Weekday]string {
	return map[time.Weekday]string{
		time.Monday:    w.Monday,
		time.Tuesday:   w.Tuesday,
		time.Wednesday: w.Wednesday,
		time.Thursday:  w.Thursday,
		time.Friday:    w.Friday,
		time.Saturday:  w.Saturday,
		time.Sunday:    w.Sunday,
	}
}

// CatalogServiceConfig клиент каталога услуг (таймаут в секундах).
// Без url используется статический список services.
type CatalogServiceConfig struct {
	URL      string           `toml:"url" split_words:"true"`
	Timeout  int              `toml:"timeout" split_words:"true"`
	Services []CatalogService `toml:"services" ignored:"true"`
}

// CatalogService услуга статического каталога; цена строкой ("4999.50")
type CatalogService struct {
	ID              int64  `toml:"id"`
	Name            string `toml:"name"`
	Price           string `toml:"price"`
	DurationMinutes int    `toml:"duration_minutes"`
	Active          bool   `toml:"active"`
}

// MpesaConfig настройки Daraja API
type MpesaConfig struct {
	BaseURL         string `toml:"base_url" split_words:"true"`
	ConsumerKey     string `toml:"consumer_key" split_words:"true"`
	ConsumerSecret  string `toml:"consumer_secret" split_words:"true"`
	ShortCode       string `toml:"short_code" split_words:"true"`
	Passkey         string `toml:"passkey" split_words:"true"`
	CallbackURL     string `toml:"callback_url" split_words:"true"`
	TransactionType string `toml:"transaction_type" split_words:"true"`
	Timeout         int    `toml:"timeout" split_words:"true"` // секунды
}

// Load читает toml файл, затем .env (если есть) и переменные окружения BOOKING_*
func Load(path string) (*Config, error) {
	cfg := defaults()

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("config: failed to decode %s: %w", path, err)
	}

	// .env опционален, отсутствие файла не ошибка
	_ = godotenv.Load()

	if err := envconfig.Process(envPrefix, cfg); err != nil {
		return nil, fmt.Errorf("config: failed to apply environment overrides: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func defaults() *Config {
	return &Config{
		Server: ServerConfig{
			HTTPPort:        8080,
			ReadTimeout:     10,
			WriteTimeout:    10,
			IdleTimeout:     60,
			ShutdownTimeout: 15,
		},
		Database: DatabaseConfig{
			Port:            5432,
			SSLMode:         "disable",
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 300,
			MigrateOnStart:  true,
		},
		Storage: StorageConfig{Driver: StorageDriverPostgres},
		Logs:    LogsConfig{Level: "info"},
		Metrics: MetricsConfig{Path: "/metrics", ServiceName: "garage-booking"},
		Tracing: TracingConfig{Environment: "dev", SampleRatio: 1},
		Redis:   RedisConfig{TTL: 30},
		Kafka: KafkaConfig{
			BookingTopic: "garage.bookings",
			PaymentTopic: "garage.payments",
			AnomalyTopic: "garage.anomalies",
		},
		Outbox:    OutboxConfig{PollInterval: 1000, BatchSize: 50},
		RateLimit: RateLimitConfig{RequestsPerSecond: 5, Burst: 10},
		Schedule: ScheduleConfig{
			Timezone:           "Africa/Nairobi",
			SlotMinutes:        60,
			AdvanceBookingDays: 30,
			HoldMinutes:        15,
			MinNoticeMinutes:   60,
		},
		CatalogService: CatalogServiceConfig{Timeout: 5},
		Mpesa: MpesaConfig{
			BaseURL:         "https://sandbox.safaricom.co.ke",
			TransactionType: "CustomerPayBillOnline",
			Timeout:         15,
		},
	}
}

// Validate проверяет обязательные параметры
func (c *Config) Validate() error {
	var problems []string

	if c.Server.HTTPPort <= 0 {
		problems = append(problems, "server.http_port must be positive")
	}

	switch c.Storage.Driver {
	case StorageDriverPostgres:
		if c.Database.Host == "" || c.Database.DBName == "" {
			problems = append(problems, "database.host and database.dbname are required for postgres storage")
		}
	case StorageDriverMemory:
	default:
		problems = append(problems, fmt.Sprintf("storage.driver %q is not supported", c.Storage.Driver))
	}

	if c.Auth.JWTSecret == "" {
		problems = append(problems, "auth.jwt_secret is required")
	}
	if c.Schedule.SlotMinutes <= 0 {
		problems = append(problems, "schedule.slot_minutes must be positive")
	}
	if c.Schedule.HoldMinutes <= 0 {
		problems = append(problems, "schedule.hold_minutes must be positive")
	}
	if _, err := time.LoadLocation(c.Schedule.Timezone); err != nil {
		problems = append(problems, fmt.Sprintf("schedule.timezone %q: %v", c.Schedule.Timezone, err))
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		problems = append(problems, "kafka.brokers is required when kafka is enabled")
	}
	if c.Redis.Enabled && c.Redis.Addr == "" {
		problems = append(problems, "redis.addr is required when redis is enabled")
	}
	if c.Tracing.Enabled && c.Tracing.Endpoint == "" {
		problems = append(problems, "tracing.endpoint is required when tracing is enabled")
	}
	if c.CatalogService.URL == "" && len(c.CatalogService.Services) == 0 {
		problems = append(problems, "catalog_service.url or catalog_service.services is required")
	}
	if c.Mpesa.ShortCode == "" || c.Mpesa.CallbackURL == "" {
		problems = append(problems, "mpesa.short_code and mpesa.callback_url are required")
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(problems, "; "))
	}
	return nil
}
