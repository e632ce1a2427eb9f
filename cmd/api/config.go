package main

import (
	"log/slog"
	"time"

	"github.com/fastprodman/walletledger/internal/config"
)

type apiConfig struct {
	Port            uint16        `env:"APP_PORT" envDefault:"8080"`
	LogLevel        slog.Level    `env:"APP_LOG_LEVEL" envDefault:"info"`
	ShutdownTimeout time.Duration `env:"APP_SHUTDOWN_TIMEOUT" envDefault:"10s"`
	StoreDriver     string        `env:"STORE_DRIVER" envDefault:"postgres"`
	AllowedOrigins  []string      `env:"CORS_ALLOWED_ORIGINS" envDefault:"*"`

	Postgres    config.PostgresConfig
	SQLite      config.SQLiteConfig
	Idempotency config.IdempotencyConfig
	Kafka       config.KafkaConfig
}
