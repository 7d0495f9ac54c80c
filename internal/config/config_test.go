package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testConfig = `
[database]
host = "db"
dbname = "garage_booking"
user = "garage"
password = "from-file"

[auth]
jwt_secret = "file-secret"

[schedule]
slot_minutes = 30
closed_dates = ["2026-12-25"]

[schedule.hours]
monday = "08:00-18:00"
sunday = ""

[mpesa]
short_code = "174379"
callback_url = "https://garage.example.com/api/v1/payments/mpesa/callback"

[catalog_service]
url = ""

[[catalog_service.services]]
id = 1
name = "Full service"
price = "4999.50"
duration_minutes = 60
active = true
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_FileAndDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, testConfig))
	require.NoError(t, err)

	assert.Equal(t, "db", cfg.Database.Host)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, StorageDriverPostgres, cfg.Storage.Driver)
	assert.Equal(t, 30, cfg.Schedule.SlotMinutes)
	assert.Equal(t, 15, cfg.Schedule.HoldMinutes)
	assert.Equal(t, []string{"2026-12-25"}, cfg.Schedule.ClosedDates)
	assert.Equal(t, "08:00-18:00", cfg.Schedule.Hours.ByWeekday()[time.Monday])
	assert.Empty(t, cfg.Schedule.Hours.ByWeekday()[time.Sunday])
	assert.Equal(t, "CustomerPayBillOnline", cfg.Mpesa.TransactionType)

	require.Len(t, cfg.CatalogService.Services, 1)
	assert.Equal(t, "4999.50", cfg.CatalogService.Services[0].Price)
	assert.True(t, cfg.CatalogService.Services[0].Active)
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Setenv("BOOKING_DATABASE_PASSWORD", "from-env")
	t.Setenv("BOOKING_AUTH_JWT_SECRET", "env-secret")
	t.Setenv("BOOKING_KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("BOOKING_SCHEDULE_HOLD_MINUTES", "20")

	cfg, err := Load(writeConfig(t, testConfig))
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.Database.Password)
	assert.Equal(t, "env-secret", cfg.Auth.JWTSecret)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, 20, cfg.Schedule.HoldMinutes)
	assert.Equal(t, "garage", cfg.Database.User, "unrelated USER variable must not leak into config")
}

func TestLoad_Invalid(t *testing.T) {
	_, err := Load(writeConfig(t, `
[storage]
driver = "sqlite"
`))
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}

func TestDatabaseConfig_DSN(t *testing.T) {
	d := DatabaseConfig{Host: "db", Port: 5432, User: "u", Password: "p", DBName: "garage"}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=garage sslmode=disable", d.DSN())
}
