package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	DriverMemory = "memory"
	DriverMongo  = "mongo"
)

// Config aggregates application configuration. Values come from an optional
// config.yaml in . or ./config, overlaid by environment variables.
type Config struct {
	Env                   string        `mapstructure:"APP_ENV"`
	LogLevel              string        `mapstructure:"LOG_LEVEL"`
	HTTPAddr              string        `mapstructure:"HTTP_ADDR"`
	StorageDriver         string        `mapstructure:"STORAGE_DRIVER"`
	MongoURI              string        `mapstructure:"MONGO_URI"`
	MongoDB               string        `mapstructure:"MONGO_DB"`
	KafkaBrokersRaw       string        `mapstructure:"KAFKA_BROKERS"`
	KafkaTopicPrefix      string        `mapstructure:"KAFKA_TOPIC_PREFIX"`
	KafkaPaymentsTopic    string        `mapstructure:"KAFKA_PAYMENTS_TOPIC"`
	KafkaConsumerGroup    string        `mapstructure:"KAFKA_CONSUMER_GROUP"`
	RedisAddr             string        `mapstructure:"REDIS_ADDR"`
	RedisPassword         string        `mapstructure:"REDIS_PASSWORD"`
	RedisLockDB           int           `mapstructure:"REDIS_LOCK_DB"`
	RedisTasksDB          int           `mapstructure:"REDIS_TASKS_DB"`
	HoldDuration          time.Duration `mapstructure:"HOLD_DURATION"`
	PendingPaymentTTL     time.Duration `mapstructure:"PENDING_PAYMENT_TTL"`
	LockTTL               time.Duration `mapstructure:"LOCK_TTL"`
	SuggestionHorizonDays int           `mapstructure:"SUGGESTION_HORIZON_DAYS"`
	SweepInterval         time.Duration `mapstructure:"SWEEP_INTERVAL"`
	OutboxPollInterval    time.Duration `mapstructure:"OUTBOX_POLL_INTERVAL"`
	IdempotencyTTL        time.Duration `mapstructure:"IDEMP_TTL"`
	RetryBackoffRaw       string        `mapstructure:"RETRY_BACKOFF"`
	RateLimitPerMin       int           `mapstructure:"RATE_LIMIT_PER_MIN"`
	DisplayRatesRaw       string        `mapstructure:"DISPLAY_RATES"`
	DisplayBaseCurrency   string        `mapstructure:"DISPLAY_BASE_CURRENCY"`
	FixturesPath          string        `mapstructure:"FIXTURES_PATH"`

	KafkaBrokers []string           `mapstructure:"-"`
	RetryBackoff []time.Duration    `mapstructure:"-"`
	DisplayRates map[string]float64 `mapstructure:"-"`
}

var defaults = map[string]any{
	"APP_ENV":                 "dev",
	"LOG_LEVEL":               "info",
	"HTTP_ADDR":               ":8080",
	"STORAGE_DRIVER":          DriverMemory,
	"MONGO_URI":               "",
	"MONGO_DB":                "rentalspot",
	"KAFKA_BROKERS":           "",
	"KAFKA_TOPIC_PREFIX":      "",
	"KAFKA_PAYMENTS_TOPIC":    "payments.callbacks.v1",
	"KAFKA_CONSUMER_GROUP":    "rentalspot-payments",
	"REDIS_ADDR":              "",
	"REDIS_PASSWORD":          "",
	"REDIS_LOCK_DB":           0,
	"REDIS_TASKS_DB":          1,
	"HOLD_DURATION":           "24h",
	"PENDING_PAYMENT_TTL":     "30m",
	"LOCK_TTL":                "10s",
	"SUGGESTION_HORIZON_DAYS": 60,
	"SWEEP_INTERVAL":          "1m",
	"OUTBOX_POLL_INTERVAL":    "500ms",
	"IDEMP_TTL":               "168h",
	"RETRY_BACKOFF":           "100ms,500ms,2s",
	"RATE_LIMIT_PER_MIN":      120,
	"DISPLAY_RATES":           "",
	"DISPLAY_BASE_CURRENCY":   "USD",
	"FIXTURES_PATH":           "data/fixtures.json",
}

// Load reads configuration and validates it.
func Load() (Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AutomaticEnv()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	}
	return decode(v)
}

func decode(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	cfg.StorageDriver = strings.ToLower(strings.TrimSpace(cfg.StorageDriver))
	cfg.KafkaBrokers = splitList(cfg.KafkaBrokersRaw)

	backoff, err := ParseBackoff(cfg.RetryBackoffRaw)
	if err != nil {
		return Config{}, err
	}
	cfg.RetryBackoff = backoff

	rates, err := ParseRates(cfg.DisplayRatesRaw)
	if err != nil {
		return Config{}, err
	}
	cfg.DisplayRates = rates
	cfg.DisplayBaseCurrency = strings.ToUpper(strings.TrimSpace(cfg.DisplayBaseCurrency))

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	var errs []error
	switch c.StorageDriver {
	case DriverMemory:
	case DriverMongo:
		if c.MongoURI == "" {
			errs = append(errs, errors.New("MONGO_URI is required for the mongo driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown STORAGE_DRIVER %q", c.StorageDriver))
	}
	if c.HoldDuration <= 0 {
		errs = append(errs, errors.New("HOLD_DURATION must be positive"))
	}
	if c.PendingPaymentTTL <= 0 {
		errs = append(errs, errors.New("PENDING_PAYMENT_TTL must be positive"))
	}
	if c.LockTTL <= 0 {
		errs = append(errs, errors.New("LOCK_TTL must be positive"))
	}
	if c.SweepInterval <= 0 {
		errs = append(errs, errors.New("SWEEP_INTERVAL must be positive"))
	}
	if c.SuggestionHorizonDays <= 0 {
		errs = append(errs, errors.New("SUGGESTION_HORIZON_DAYS must be positive"))
	}
	return errors.Join(errs...)
}

func (c Config) KafkaEnabled() bool { return len(c.KafkaBrokers) > 0 }

func (c Config) RedisEnabled() bool { return c.RedisAddr != "" }

// ParseBackoff reads a comma separated list of durations.
func ParseBackoff(raw string) ([]time.Duration, error) {
	var out []time.Duration
	for _, part := range splitList(raw) {
		d, err := time.ParseDuration(part)
		if err != nil {
			return nil, fmt.Errorf("invalid RETRY_BACKOFF component %q: %w", part, err)
		}
		out = append(out, d)
	}
	return out, nil
}

// ParseRates reads "EUR:0.92,GBP:0.79" into a currency to rate map.
func ParseRates(raw string) (map[string]float64, error) {
	out := map[string]float64{}
	for _, part := range splitList(raw) {
		code, value, ok := strings.Cut(part, ":")
		if !ok {
			return nil, fmt.Errorf("invalid DISPLAY_RATES entry %q", part)
		}
		rate, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil || rate <= 0 {
			return nil, fmt.Errorf("invalid DISPLAY_RATES rate in %q", part)
		}
		out[strings.ToUpper(strings.TrimSpace(code))] = rate
	}
	return out, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
