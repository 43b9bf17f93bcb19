package shared

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	StorageMySQL  = "mysql"
	StorageMemory = "memory"
)

type Config struct {
	AppEnv      string
	LogLevel    string
	HTTPAddr    string
	MetricsAddr string

	StorageDriver string
	MySQLDSN      string

	RedisAddr string
	RedisDB   int
	RedisPass string
	CacheTTL  time.Duration

	PolicyID         string
	PaymentTolerance int64
	PaymentRefMarker string
	WebhookAPIKey    string
	WebhookRPS       int

	NotifyBase string
	NotifyKey  string
	NotifyRPS  int
	AMQPURL    string

	CalendarDaysAhead int
	CalendarWorkers   int
}

func Load() Config {
	atoi := func(k string, def int) int {
		if v := os.Getenv(k); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				return n
			}
			log.Warn().Str("key", k).Str("value", v).Msg("ignoring non-numeric env value")
		}
		return def
	}
	c := Config{
		AppEnv:      env("APP_ENV", "prod"),
		LogLevel:    env("LOG_LEVEL", "info"),
		HTTPAddr:    env("HTTP_ADDR", ":8080"),
		MetricsAddr: env("METRICS_ADDR", ":9100"),

		StorageDriver: strings.ToLower(env("STORAGE_DRIVER", StorageMySQL)),
		MySQLDSN:      env("MYSQL_DSN", "root:root@tcp(localhost:3306)/booking?parseTime=true&charset=utf8mb4,utf8&loc=UTC"),

		RedisAddr: env("REDIS_ADDR", ""),
		RedisPass: env("REDIS_PASSWORD", ""),
		RedisDB:   atoi("REDIS_DB", 0),
		CacheTTL:  time.Duration(atoi("CACHE_TTL_SECONDS", 300)) * time.Second,

		PolicyID:         env("POLICY_ID", "default"),
		PaymentTolerance: int64(atoi("PAYMENT_TOLERANCE", 1000)),
		PaymentRefMarker: env("PAYMENT_REF_MARKER", "BOOKING"),
		WebhookAPIKey:    env("WEBHOOK_API_KEY", ""),
		WebhookRPS:       atoi("WEBHOOK_RPS", 20),

		NotifyBase: env("NOTIFY_BASE_URL", ""),
		NotifyKey:  env("NOTIFY_API_KEY", ""),
		NotifyRPS:  atoi("NOTIFY_RPS", 5),
		AMQPURL:    env("AMQP_URL", ""),

		CalendarDaysAhead: atoi("CALENDAR_DAYS_AHEAD", 365),
		CalendarWorkers:   atoi("CALENDAR_WORKERS", 8),
	}
	if c.StorageDriver != StorageMySQL && c.StorageDriver != StorageMemory {
		log.Warn().Str("driver", c.StorageDriver).Msg("unknown STORAGE_DRIVER, using mysql")
		c.StorageDriver = StorageMySQL
	}
	if c.WebhookAPIKey == "" {
		log.Warn().Msg("WEBHOOK_API_KEY is empty; payment webhook is unauthenticated")
	}
	return c
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
