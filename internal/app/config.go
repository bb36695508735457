package app

import (
	"os"
	"strings"
	"time"

	"github.com/vladislavdragonenkov/storefront/internal/service/checkout"
)

// Config описывает настройки запуска приложения. Все значения читаются
// из переменных окружения с префиксом STOREFRONT_.
type Config struct {
	// HTTPAddr — адрес HTTP API (включая /metrics и health-эндпоинты).
	HTTPAddr string
	// PostgresDSN — строка подключения. Пустая строка означает
	// in-memory хранилище (локальная разработка и тесты).
	PostgresDSN string
	// JWTSecret — секрет подписи токенов. Обязателен.
	JWTSecret string
	// TokenTTL — время жизни выданных токенов.
	TokenTTL time.Duration
	// KafkaBrokers — список брокеров через запятую. Пустая строка
	// отключает публикацию событий из outbox.
	KafkaBrokers string
	// Mode — вариант деплоя: витрина с доставкой или кассовый терминал.
	Mode checkout.Mode
	// StatusUpdateDelay — задержка автоперехода PREPARING → READY.
	StatusUpdateDelay time.Duration
	// OutboxPollInterval — период опроса transactional outbox.
	OutboxPollInterval time.Duration
	// IdempotencyCleanupInterval — период удаления истёкших idempotency-ключей.
	IdempotencyCleanupInterval time.Duration
}

// DefaultConfig возвращает конфигурацию для локального запуска.
func DefaultConfig() Config {
	return Config{
		HTTPAddr:                   ":8080",
		TokenTTL:                   24 * time.Hour,
		Mode:                       checkout.ModeDelivery,
		StatusUpdateDelay:          10 * time.Second,
		OutboxPollInterval:         2 * time.Second,
		IdempotencyCleanupInterval: time.Hour,
	}
}

// ConfigFromEnv собирает конфигурацию из окружения поверх значений по умолчанию.
func ConfigFromEnv() Config {
	cfg := DefaultConfig()

	if v := strings.TrimSpace(os.Getenv("STOREFRONT_HTTP_ADDR")); v != "" {
		cfg.HTTPAddr = v
	}
	cfg.PostgresDSN = strings.TrimSpace(os.Getenv("STOREFRONT_POSTGRES_DSN"))
	cfg.JWTSecret = strings.TrimSpace(os.Getenv("STOREFRONT_JWT_SECRET"))
	cfg.KafkaBrokers = strings.TrimSpace(os.Getenv("STOREFRONT_KAFKA_BROKERS"))

	if v := strings.TrimSpace(os.Getenv("STOREFRONT_MODE")); v != "" {
		cfg.Mode = checkout.Mode(v)
	}
	// Нулевая задержка — осознанное отключение автоперехода, поэтому 0
	// здесь валиден в отличие от остальных интервалов.
	if d, err := time.ParseDuration(os.Getenv("STOREFRONT_STATUS_DELAY")); err == nil && d >= 0 {
		cfg.StatusUpdateDelay = d
	}
	if d, err := time.ParseDuration(os.Getenv("STOREFRONT_TOKEN_TTL")); err == nil && d > 0 {
		cfg.TokenTTL = d
	}
	if d, err := time.ParseDuration(os.Getenv("STOREFRONT_OUTBOX_POLL_INTERVAL")); err == nil && d > 0 {
		cfg.OutboxPollInterval = d
	}
	if d, err := time.ParseDuration(os.Getenv("STOREFRONT_IDEMPOTENCY_CLEANUP_INTERVAL")); err == nil && d > 0 {
		cfg.IdempotencyCleanupInterval = d
	}

	return cfg
}
