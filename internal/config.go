package internal

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	Environment   string              `mapstructure:"environment" env:"APP_ENV" envDefault:"development"`
	Server        ServerConfig        `mapstructure:"http_server" envPrefix:"SERVER_"`
	Database      DatabaseConfig      `mapstructure:"database" envPrefix:"DATABASE_"`
	Security      SecurityConfig      `mapstructure:"security" envPrefix:"SECURITY_"`
	Ledger        LedgerConfig        `mapstructure:"ledger" envPrefix:"LEDGER_"`
	Marketplace   MarketplaceConfig   `mapstructure:"marketplace" envPrefix:"MARKETPLACE_"`
	Notification  NotificationConfig  `mapstructure:"notification" envPrefix:"NOTIFICATION_"`
	Observability ObservabilityConfig `mapstructure:"observability" envPrefix:"OBSERVABILITY_"`
}

type ServerConfig struct {
	Port              int           `mapstructure:"port" env:"PORT" envDefault:"8080"`
	BaseURL           string        `mapstructure:"base_url" env:"BASE_URL"`
	AllowedOrigins    string        `mapstructure:"allowed_origins" env:"ALLOWED_ORIGINS"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" env:"READ_HEADER_TIMEOUT" envDefault:"5s"`
	ReadTimeout       time.Duration `mapstructure:"read_timeout" env:"READ_TIMEOUT" envDefault:"15s"`
	IdleTimeout       time.Duration `mapstructure:"idle_timeout" env:"IDLE_TIMEOUT" envDefault:"60s"`
	WriteTimeout      time.Duration `mapstructure:"write_timeout" env:"WRITE_TIMEOUT" envDefault:"15s"`
}

type DatabaseConfig struct {
	MaxOpenConns    int           `mapstructure:"max_open_conns" env:"MAX_OPEN_CONNS" envDefault:"20"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns" env:"MAX_IDLE_CONNS" envDefault:"5"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime" env:"CONN_MAX_LIFETIME" envDefault:"30m"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time" env:"CONN_MAX_IDLE_TIME" envDefault:"5m"`
	Source          string        `mapstructure:"source" env:"SOURCE"`
}

type SecurityConfig struct {
	AccessTokenSecret    string        `mapstructure:"access_token_secret" env:"ACCESS_TOKEN_SECRET"`
	RefreshTokenSecret   string        `mapstructure:"refresh_token_secret" env:"REFRESH_TOKEN_SECRET"`
	AccessTokenDuration  time.Duration `mapstructure:"access_token_duration" env:"ACCESS_TOKEN_DURATION" envDefault:"15m"`
	RefreshTokenDuration time.Duration `mapstructure:"refresh_token_duration" env:"REFRESH_TOKEN_DURATION" envDefault:"168h"`
	BCryptCost           int           `mapstructure:"bcrypt_cost" env:"BCRYPT_COST" envDefault:"10"`
}

// LedgerConfig points at the external accounting system the dispatcher syncs
// approved expenses into.
type LedgerConfig struct {
	APIURL         string        `mapstructure:"api_url" env:"API_URL"`
	APIKey         string        `mapstructure:"api_key" env:"API_KEY"`
	AccountMapping string        `mapstructure:"account_mapping" env:"ACCOUNT_MAPPING" envDefault:"default=6900"`
	Timeout        time.Duration `mapstructure:"timeout" env:"TIMEOUT" envDefault:"30s"`
}

// ParseAccountMapping parses "category=account,category=account" pairs. The
// "default" key catches categories without an explicit account.
func (c *LedgerConfig) ParseAccountMapping() map[string]string {
	mapping := make(map[string]string)
	for _, pair := range strings.Split(c.AccountMapping, ",") {
		parts := strings.SplitN(strings.TrimSpace(pair), "=", 2)
		if len(parts) != 2 || parts[0] == "" {
			continue
		}
		mapping[parts[0]] = parts[1]
	}
	return mapping
}

type MarketplaceConfig struct {
	APIURL         string        `mapstructure:"api_url" env:"API_URL"`
	APIKey         string        `mapstructure:"api_key" env:"API_KEY"`
	BuyerCookie    string        `mapstructure:"buyer_cookie" env:"BUYER_COOKIE"`
	CallbackURL    string        `mapstructure:"callback_url" env:"CALLBACK_URL"`
	OrderTimeout   time.Duration `mapstructure:"order_timeout" env:"ORDER_TIMEOUT" envDefault:"30s"`
	MaxWorkers     int           `mapstructure:"max_workers" env:"MAX_WORKERS" envDefault:"10"`
	JobQueueSize   int           `mapstructure:"job_queue_size" env:"JOB_QUEUE_SIZE" envDefault:"100"`
	WorkerPoolSize int           `mapstructure:"worker_pool_size" env:"WORKER_POOL_SIZE"`
}

type NotificationConfig struct {
	APIURL      string        `mapstructure:"api_url" env:"API_URL"`
	FromAddress string        `mapstructure:"from_address" env:"FROM_ADDRESS" envDefault:"no-reply@spendflow.io"`
	Timeout     time.Duration `mapstructure:"timeout" env:"TIMEOUT" envDefault:"10s"`
}

type ObservabilityConfig struct {
	Logging LoggingConfig `mapstructure:"logging" envPrefix:"LOGGING_"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level" env:"LEVEL" envDefault:"info"`
	Format string `mapstructure:"format" env:"FORMAT" envDefault:"text"`
}

// LoadConfigFromEnv builds the configuration purely from environment
// variables, used for container deployments where no config file is mounted.
func LoadConfigFromEnv() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse environment config: %w", err)
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	var errs []string

	if err := c.Server.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("server config: %v", err))
	}
	if err := c.Database.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("database config: %v", err))
	}
	if err := c.Security.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("security config: %v", err))
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

func (c *ServerConfig) Validate() error {
	if c.AllowedOrigins != "" {
		origins := strings.Split(c.AllowedOrigins, ",")
		for _, origin := range origins {
			origin = strings.TrimSpace(origin)
			if origin == "*" {
				continue
			}
			if _, err := url.Parse(origin); err != nil {
				return fmt.Errorf("invalid allowed origin %s: %w", origin, err)
			}
		}
	}
	if c.ReadTimeout < c.ReadHeaderTimeout {
		return errors.New("read_timeout must be >= read_header_timeout")
	}
	return nil
}

func (c *DatabaseConfig) Validate() error {
	if c.Source == "" {
		return errors.New("source is required")
	}
	if c.MaxIdleConns > c.MaxOpenConns {
		return errors.New("max_idle_conns cannot be greater than max_open_conns")
	}
	return nil
}

func (c *DatabaseConfig) GetDSN() string {
	return c.Source
}

func (c *SecurityConfig) Validate() error {
	if len(c.AccessTokenSecret) < 32 {
		return errors.New("access token secret must be at least 32 characters")
	}
	if len(c.RefreshTokenSecret) < 32 {
		return errors.New("refresh token secret must be at least 32 characters")
	}
	if c.BCryptCost < 10 || c.BCryptCost > 15 {
		return errors.New("bcrypt cost must be between 10 and 15")
	}
	return nil
}
