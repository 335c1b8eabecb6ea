package app

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ouvidoriag/ogdash2/internal/data/db"
	"github.com/ouvidoriag/ogdash2/internal/observability"
	"github.com/ouvidoriag/ogdash2/internal/platform/envutil"
	"github.com/ouvidoriag/ogdash2/internal/platform/logger"
	"github.com/ouvidoriag/ogdash2/internal/platform/sendgrid"
	"github.com/ouvidoriag/ogdash2/internal/reporting/deadline"
)

const (
	CacheBackendDB    = "db"
	CacheBackendRedis = "redis"
)

type CacheConfig struct {
	Backend          string        `yaml:"backend"`
	RedisAddr        string        `yaml:"redis_addr"`
	RedisPassword    string        `yaml:"-"`
	RedisDB          int           `yaml:"redis_db"`
	MemoryEnabled    bool          `yaml:"memory_enabled"`
	MemoryMaxEntries int           `yaml:"memory_max_entries"`
	Timeout          time.Duration `yaml:"timeout"`
	ComputeTimeout   time.Duration `yaml:"compute_timeout"`
	AggregateTTL     time.Duration `yaml:"aggregate_ttl"`
	FilterTTL        time.Duration `yaml:"filter_ttl"`
	DeadlineTTL      time.Duration `yaml:"deadline_ttl"`
}

type NotifyConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Schedule    string `yaml:"schedule"`
	Timezone    string `yaml:"timezone"`
	Concurrency int    `yaml:"concurrency"`
	// Recipients maps an organ (secretaria) to the addresses responsible
	// for it. DefaultRecipients catches every other organ.
	Recipients        map[string][]string `yaml:"recipients"`
	DefaultRecipients []string            `yaml:"default_recipients"`
}

type TracingConfig struct {
	Enabled     bool              `yaml:"enabled"`
	Endpoint    string            `yaml:"endpoint"`
	Headers     map[string]string `yaml:"-"`
	Insecure    bool              `yaml:"insecure"`
	SampleRatio float64           `yaml:"sample_ratio"`
}

type Config struct {
	LogMode         string        `yaml:"-"`
	Environment     string        `yaml:"environment"`
	Port            string        `yaml:"port"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	CORSOrigins     []string      `yaml:"cors_origins"`
	StoreTimeout    time.Duration `yaml:"store_timeout"`

	DB       db.Config       `yaml:"-"`
	SendGrid sendgrid.Config `yaml:"-"`

	Cache        CacheConfig       `yaml:"cache"`
	Deadline     deadline.Policy   `yaml:"deadline"`
	FieldAliases map[string]string `yaml:"field_aliases"`
	Notify       NotifyConfig      `yaml:"notify"`
	Tracing      TracingConfig     `yaml:"tracing"`
}

// LoadConfig reads the environment, then overlays CONFIG_FILE when set.
// Secrets stay environment-only.
func LoadConfig(log *logger.Logger) (Config, error) {
	cfg := Config{
		LogMode:         envutil.String("LOG_MODE", "development"),
		Environment:     envutil.String("APP_ENV", "development"),
		Port:            envutil.String("PORT", "8080"),
		ShutdownTimeout: envutil.Duration("SHUTDOWN_TIMEOUT", 15*time.Second),
		CORSOrigins:     splitList(envutil.String("CORS_ORIGINS", "")),
		StoreTimeout:    envutil.Duration("STORE_TIMEOUT", 15*time.Second),
		DB: db.Config{
			Driver:           envutil.String("DATABASE_DRIVER", db.DriverPostgres),
			PostgresHost:     envutil.String("POSTGRES_HOST", "localhost"),
			PostgresPort:     envutil.String("POSTGRES_PORT", "5432"),
			PostgresUser:     envutil.String("POSTGRES_USER", "postgres"),
			PostgresPassword: envutil.String("POSTGRES_PASSWORD", ""),
			PostgresName:     envutil.String("POSTGRES_NAME", "ouvidoria"),
			PostgresSSLMode:  envutil.String("POSTGRES_SSLMODE", "disable"),
			SQLitePath:       envutil.String("SQLITE_PATH", "ogdash.db"),
			MaxOpenConns:     envutil.Int("DATABASE_MAX_OPEN_CONNS", 20),
			MaxIdleConns:     envutil.Int("DATABASE_MAX_IDLE_CONNS", 5),
		},
		SendGrid: sendgrid.ConfigFromEnv(),
		Cache: CacheConfig{
			Backend:          envutil.String("CACHE_BACKEND", CacheBackendDB),
			RedisAddr:        envutil.String("REDIS_ADDR", "localhost:6379"),
			RedisPassword:    envutil.String("REDIS_PASSWORD", ""),
			RedisDB:          envutil.Int("REDIS_DB", 0),
			MemoryEnabled:    envutil.Bool("CACHE_MEMORY_ENABLED", true),
			MemoryMaxEntries: envutil.Int("CACHE_MEMORY_MAX_ENTRIES", 512),
			Timeout:          envutil.Duration("CACHE_TIMEOUT", 2*time.Second),
			ComputeTimeout:   envutil.Duration("CACHE_COMPUTE_TIMEOUT", time.Minute),
			AggregateTTL:     envutil.Duration("CACHE_AGGREGATE_TTL", 10*time.Minute),
			FilterTTL:        envutil.Duration("CACHE_FILTER_TTL", 5*time.Minute),
			DeadlineTTL:      envutil.Duration("CACHE_DEADLINE_TTL", 30*time.Minute),
		},
		Deadline: deadline.DefaultPolicy(),
		Notify: NotifyConfig{
			Enabled:           envutil.Bool("NOTIFY_ENABLED", false),
			Schedule:          envutil.String("NOTIFY_SCHEDULE", "0 8 * * *"),
			Timezone:          envutil.String("NOTIFY_TIMEZONE", "America/Sao_Paulo"),
			Concurrency:       envutil.Int("NOTIFY_CONCURRENCY", 4),
			DefaultRecipients: splitList(envutil.String("NOTIFY_DEFAULT_RECIPIENTS", "")),
		},
		Tracing: TracingConfig{
			Enabled:     envutil.Bool("OTEL_ENABLED", false),
			Endpoint:    envutil.String("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
			Headers:     observability.ParseHeaders(envutil.String("OTEL_EXPORTER_OTLP_HEADERS", "")),
			Insecure:    envutil.Bool("OTEL_EXPORTER_OTLP_INSECURE", false),
			SampleRatio: envutil.Float("OTEL_SAMPLER_RATIO", 0.1),
		},
	}

	path := envutil.String("CONFIG_FILE", "")
	if path == "" {
		return cfg, cfg.validate()
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config file %s: %w", path, err)
	}
	if log != nil {
		log.Info("config file loaded", "path", path)
	}
	return cfg, cfg.validate()
}

func (c Config) validate() error {
	switch strings.ToLower(c.Cache.Backend) {
	case CacheBackendDB, CacheBackendRedis:
	default:
		return fmt.Errorf("unsupported CACHE_BACKEND %q", c.Cache.Backend)
	}
	if c.StoreTimeout <= 0 {
		return fmt.Errorf("store timeout must be positive")
	}
	if _, err := time.LoadLocation(c.Notify.Timezone); err != nil {
		return fmt.Errorf("invalid notification timezone %q: %w", c.Notify.Timezone, err)
	}
	return nil
}

// Location is the zone "today" is evaluated in.
func (c Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Notify.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func splitList(raw string) []string {
	var out []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
