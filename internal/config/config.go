package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	envPrefix              = "GOFOOD"
	defaultHTTPAddress     = "0.0.0.0:8080"
	defaultDatabaseDriver  = "sqlite"
	defaultDatabasePath    = "gofood.db"
	defaultLogLevel        = "info"
	defaultLogFormat       = "json"
	defaultCookieName      = "gofood_session"
	defaultIssuer          = "gofood-auth"
	defaultTokenTTLMinutes = 720
	defaultKafkaTopic      = "reservation-events"
	defaultRedisChannel    = "gofood:reservations-changed"
	defaultRatePerMinute   = 20
	defaultRateBurst       = 5
	defaultSweepMinutes    = 60
	defaultHeartbeatSecs   = 25
	defaultMetricsPrefix   = "gofood"
)

// AppConfig captures runtime configuration for the API server.
type AppConfig struct {
	HTTPAddress       string
	AllowedOrigins    []string
	DatabaseDriver    string
	DatabaseDSN       string
	DatabasePath      string
	LogLevel          string
	LogFormat         string
	SigningSecret     string
	SessionIssuer     string
	SessionCookieName string
	TokenTTL          time.Duration
	KafkaBrokers      []string
	KafkaTopic        string
	RedisAddress      string
	RedisChannel      string
	BookingRatePerMin int
	BookingBurst      int
	SweepInterval     time.Duration
	HeartbeatInterval time.Duration
	MetricsPrefix     string
}

// NewViper returns a viper instance with defaults and env bindings configured.
func NewViper() *viper.Viper {
	configViper := viper.New()
	ApplyDefaults(configViper)
	return configViper
}

// ApplyDefaults configures defaults and env bindings on the provided viper instance.
func ApplyDefaults(configViper *viper.Viper) {
	configViper.SetEnvPrefix(envPrefix)
	configViper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	configViper.AutomaticEnv()

	configViper.SetDefault("http.address", defaultHTTPAddress)
	configViper.SetDefault("http.allowed_origins", "")
	configViper.SetDefault("database.driver", defaultDatabaseDriver)
	configViper.SetDefault("database.path", defaultDatabasePath)
	configViper.SetDefault("database.dsn", "")
	configViper.SetDefault("log.level", defaultLogLevel)
	configViper.SetDefault("log.format", defaultLogFormat)
	configViper.SetDefault("auth.issuer", defaultIssuer)
	configViper.SetDefault("auth.cookie_name", defaultCookieName)
	configViper.SetDefault("auth.token_ttl_minutes", defaultTokenTTLMinutes)
	configViper.SetDefault("kafka.brokers", "")
	configViper.SetDefault("kafka.topic", defaultKafkaTopic)
	configViper.SetDefault("redis.address", "")
	configViper.SetDefault("redis.channel", defaultRedisChannel)
	configViper.SetDefault("booking.rate_per_minute", defaultRatePerMinute)
	configViper.SetDefault("booking.burst", defaultRateBurst)
	configViper.SetDefault("sweep.interval_minutes", defaultSweepMinutes)
	configViper.SetDefault("realtime.heartbeat_seconds", defaultHeartbeatSecs)
	configViper.SetDefault("metrics.prefix", defaultMetricsPrefix)
}

// Load parses runtime configuration from viper.
func Load(configViper *viper.Viper) (AppConfig, error) {
	cfg := AppConfig{
		HTTPAddress:       configViper.GetString("http.address"),
		AllowedOrigins:    splitList(configViper.GetString("http.allowed_origins")),
		DatabaseDriver:    strings.ToLower(strings.TrimSpace(configViper.GetString("database.driver"))),
		DatabaseDSN:       configViper.GetString("database.dsn"),
		DatabasePath:      configViper.GetString("database.path"),
		LogLevel:          configViper.GetString("log.level"),
		LogFormat:         configViper.GetString("log.format"),
		SigningSecret:     configViper.GetString("auth.signing_secret"),
		SessionIssuer:     configViper.GetString("auth.issuer"),
		SessionCookieName: configViper.GetString("auth.cookie_name"),
		TokenTTL:          time.Duration(configViper.GetInt("auth.token_ttl_minutes")) * time.Minute,
		KafkaBrokers:      splitList(configViper.GetString("kafka.brokers")),
		KafkaTopic:        configViper.GetString("kafka.topic"),
		RedisAddress:      strings.TrimSpace(configViper.GetString("redis.address")),
		RedisChannel:      configViper.GetString("redis.channel"),
		BookingRatePerMin: configViper.GetInt("booking.rate_per_minute"),
		BookingBurst:      configViper.GetInt("booking.burst"),
		SweepInterval:     time.Duration(configViper.GetInt("sweep.interval_minutes")) * time.Minute,
		HeartbeatInterval: time.Duration(configViper.GetInt("realtime.heartbeat_seconds")) * time.Second,
		MetricsPrefix:     configViper.GetString("metrics.prefix"),
	}

	if err := cfg.validate(); err != nil {
		return AppConfig{}, err
	}

	return cfg, nil
}

func (c AppConfig) validate() error {
	if strings.TrimSpace(c.SigningSecret) == "" {
		return fmt.Errorf("auth.signing_secret is required")
	}
	if strings.TrimSpace(c.SessionCookieName) == "" {
		return fmt.Errorf("auth.cookie_name is required")
	}
	if c.TokenTTL <= 0 {
		return fmt.Errorf("auth.token_ttl_minutes must be positive")
	}
	switch c.DatabaseDriver {
	case "sqlite":
		if strings.TrimSpace(c.DatabasePath) == "" {
			return fmt.Errorf("database.path is required for sqlite")
		}
	case "postgres", "mysql":
		if strings.TrimSpace(c.DatabaseDSN) == "" {
			return fmt.Errorf("database.dsn is required for %s", c.DatabaseDriver)
		}
	default:
		return fmt.Errorf("database.driver %q is not supported", c.DatabaseDriver)
	}
	if c.BookingRatePerMin <= 0 || c.BookingBurst <= 0 {
		return fmt.Errorf("booking.rate_per_minute and booking.burst must be positive")
	}
	if c.HeartbeatInterval <= 0 {
		return fmt.Errorf("realtime.heartbeat_seconds must be positive")
	}
	return nil
}

func splitList(raw string) []string {
	values := make([]string, 0)
	for _, item := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			values = append(values, trimmed)
		}
	}
	return values
}
