package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/nathanyu/account-ledger/internal/telemetry"
)

// Notification sink names accepted by -notify-sinks
const (
	SinkLog   = "log"
	SinkSpool = "spool"
	SinkNATS  = "nats"
	SinkRedis = "redis"
)

// Config holds application configuration
type Config struct {
	Port         int
	MetricsPort  int
	GinMode      string
	LogLevel     string
	Environment  string
	OTLPEndpoint string

	LockStripes   int
	EnableReset   bool
	NotifySinks   []string
	NotifyWorkers int
	NotifyQueue   int
	SpoolPath     string

	NATSUrl       string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

// Load parses args (without the program name). Flags override environment
// variables, which override defaults.
func Load(args []string) (*Config, error) {
	cfg := &Config{}
	var sinks string

	fs := flag.NewFlagSet("account-ledger", flag.ContinueOnError)
	fs.IntVar(&cfg.Port, "port", getEnvInt("PORT", 8080), "HTTP server port")
	fs.IntVar(&cfg.MetricsPort, "metrics-port", getEnvInt("METRICS_PORT", 9090), "Metrics server port")
	fs.StringVar(&cfg.GinMode, "gin-mode", getEnv("GIN_MODE", "release"), "Gin mode (debug/release)")
	fs.StringVar(&cfg.LogLevel, "log-level", getEnv("LOG_LEVEL", "info"), "Log level (debug/info/warn/error)")
	fs.StringVar(&cfg.Environment, "environment", getEnv("ENVIRONMENT", "development"), "Deployment environment reported on spans")
	fs.StringVar(&cfg.OTLPEndpoint, "otel-endpoint", getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"), "OTLP gRPC endpoint, empty disables tracing")
	fs.IntVar(&cfg.LockStripes, "lock-stripes", getEnvInt("LOCK_STRIPES", 256), "Number of account lock stripes")
	fs.BoolVar(&cfg.EnableReset, "enable-reset", getEnvBool("ENABLE_RESET", false), "Serve DELETE /v1/accounts")
	fs.StringVar(&sinks, "notify-sinks", getEnv("NOTIFY_SINKS", SinkLog), "Comma separated notification sinks (log,spool,nats,redis)")
	fs.IntVar(&cfg.NotifyWorkers, "notify-workers", getEnvInt("NOTIFY_WORKERS", 4), "Notification delivery workers")
	fs.IntVar(&cfg.NotifyQueue, "notify-queue", getEnvInt("NOTIFY_QUEUE_SIZE", 1024), "Notification queue size")
	fs.StringVar(&cfg.SpoolPath, "spool-path", getEnv("NOTIFY_SPOOL_PATH", "data/notifications.log"), "Notification spool file path")
	fs.StringVar(&cfg.NATSUrl, "nats-url", getEnv("NATS_URL", ""), "NATS server URL, empty disables the command gateway")
	fs.StringVar(&cfg.RedisAddr, "redis-addr", getEnv("REDIS_ADDR", ""), "Redis address for the notification stream")
	fs.StringVar(&cfg.RedisPassword, "redis-password", getEnv("REDIS_PASSWORD", ""), "Redis password")
	fs.IntVar(&cfg.RedisDB, "redis-db", getEnvInt("REDIS_DB", 0), "Redis database")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	cfg.NotifySinks = parseList(sinks)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for values the server cannot run with
func (c *Config) Validate() error {
	var errs []error

	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("invalid port %d", c.Port))
	}
	if c.MetricsPort <= 0 || c.MetricsPort > 65535 {
		errs = append(errs, fmt.Errorf("invalid metrics port %d", c.MetricsPort))
	}
	if c.LockStripes <= 0 {
		errs = append(errs, fmt.Errorf("lock stripes must be positive, got %d", c.LockStripes))
	}
	if c.NotifyWorkers <= 0 {
		errs = append(errs, fmt.Errorf("notify workers must be positive, got %d", c.NotifyWorkers))
	}
	if c.NotifyQueue <= 0 {
		errs = append(errs, fmt.Errorf("notify queue size must be positive, got %d", c.NotifyQueue))
	}
	if _, err := telemetry.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}

	for _, sink := range c.NotifySinks {
		switch sink {
		case SinkLog:
		case SinkSpool:
			if c.SpoolPath == "" {
				errs = append(errs, errors.New("spool sink requires a spool path"))
			}
		case SinkNATS:
			if c.NATSUrl == "" {
				errs = append(errs, errors.New("nats sink requires a NATS URL"))
			}
		case SinkRedis:
			if c.RedisAddr == "" {
				errs = append(errs, errors.New("redis sink requires a Redis address"))
			}
		default:
			errs = append(errs, fmt.Errorf("unknown notification sink %q", sink))
		}
	}

	return errors.Join(errs...)
}

// HasSink reports whether the named sink is enabled
func (c *Config) HasSink(name string) bool {
	for _, s := range c.NotifySinks {
		if s == name {
			return true
		}
	}
	return false
}

func parseList(s string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, part := range strings.Split(s, ",") {
		part = strings.ToLower(strings.TrimSpace(part))
		if part == "" || seen[part] {
			continue
		}
		seen[part] = true
		out = append(out, part)
	}
	return out
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var v int
		if _, err := fmt.Sscanf(value, "%d", &v); err == nil {
			return v
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if v, err := strconv.ParseBool(value); err == nil {
			return v
		}
	}
	return defaultValue
}
