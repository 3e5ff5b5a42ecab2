package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the quote fetch pipeline.
type Config struct {
	// Fetch orchestration
	MaxWorkers       int           `mapstructure:"max_workers"`
	MaxAttempts      int           `mapstructure:"max_attempts"`
	RequestTimeout   time.Duration `mapstructure:"request_timeout"`
	PerSymbolTimeout time.Duration `mapstructure:"per_symbol_timeout"`
	MaxRuntime       time.Duration `mapstructure:"max_runtime"`

	// Scheduling
	ScheduleInterval time.Duration `mapstructure:"schedule_interval"`

	// Quality gate
	MinSuccessRatio float64       `mapstructure:"min_success_ratio"`
	StaleAfter      time.Duration `mapstructure:"stale_after"`

	// Provider
	QuoteBaseURL      string  `mapstructure:"quote_base_url"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`

	// Proxies
	UseProxies    bool          `mapstructure:"use_proxies"`
	ProxyFile     string        `mapstructure:"proxy_file"`
	ProxyCooldown time.Duration `mapstructure:"proxy_cooldown"`

	// Universe
	TickerFile string `mapstructure:"ticker_file"`
	MaxTickers int    `mapstructure:"max_tickers"`

	// Persistence and output
	SaveToDB     bool   `mapstructure:"save_to_db"`
	DryRun       bool   `mapstructure:"dry_run"`
	DatabasePath string `mapstructure:"database_path"`
	OutputDir    string `mapstructure:"output_dir"`
}

// NewViper creates a viper instance with the pipeline's defaults, env
// bindings, and optional config file support. main binds its flags onto
// the same instance so flags override env, which overrides the file.
func NewViper() *viper.Viper {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("max_workers", 24)
	v.SetDefault("max_attempts", 3)
	v.SetDefault("request_timeout", 8*time.Second)
	v.SetDefault("per_symbol_timeout", 30*time.Second)
	v.SetDefault("max_runtime", 180*time.Second)
	v.SetDefault("schedule_interval", 15*time.Minute)
	v.SetDefault("min_success_ratio", 0.97)
	v.SetDefault("stale_after", 300*time.Second)
	v.SetDefault("quote_base_url", "https://query1.finance.yahoo.com")
	v.SetDefault("requests_per_second", 4.0)
	v.SetDefault("use_proxies", true)
	v.SetDefault("proxy_cooldown", 5*time.Minute)
	v.SetDefault("proxy_file", "proxies.txt")
	v.SetDefault("ticker_file", "tickers.txt")
	v.SetDefault("max_tickers", 0)
	v.SetDefault("save_to_db", true)
	v.SetDefault("dry_run", false)
	v.SetDefault("database_path", "quotes.db")
	v.SetDefault("output_dir", "output")

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.quotefetcher")

	// Read config file (ignore if not found)
	_ = v.ReadInConfig()

	v.BindEnv("max_workers", "MAX_WORKERS")
	v.BindEnv("max_attempts", "MAX_ATTEMPTS")
	v.BindEnv("request_timeout", "REQUEST_TIMEOUT")
	v.BindEnv("per_symbol_timeout", "PER_SYMBOL_TIMEOUT")
	v.BindEnv("max_runtime", "MAX_RUNTIME")
	v.BindEnv("schedule_interval", "SCHEDULE_INTERVAL")
	v.BindEnv("min_success_ratio", "MIN_SUCCESS_RATIO")
	v.BindEnv("quote_base_url", "QUOTE_BASE_URL")
	v.BindEnv("use_proxies", "USE_PROXIES")
	v.BindEnv("proxy_file", "PROXY_FILE")
	v.BindEnv("ticker_file", "TICKER_FILE")
	v.BindEnv("max_tickers", "MAX_TICKERS")
	v.BindEnv("save_to_db", "SAVE_TO_DB")
	v.BindEnv("dry_run", "DRY_RUN")
	v.BindEnv("database_path", "DATABASE_PATH")
	v.BindEnv("output_dir", "OUTPUT_DIR")

	return v
}

// Load reads configuration from environment variables and an optional
// config.yaml.
func Load() (*Config, error) {
	return FromViper(NewViper())
}

// FromViper unmarshals and validates a prepared viper instance.
func FromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks field ranges.
func (c *Config) Validate() error {
	if c.MaxWorkers <= 0 {
		return fmt.Errorf("max_workers must be positive, got %d", c.MaxWorkers)
	}
	if c.MaxAttempts <= 0 {
		return fmt.Errorf("max_attempts must be positive, got %d", c.MaxAttempts)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("request_timeout must be positive, got %s", c.RequestTimeout)
	}
	if c.PerSymbolTimeout <= 0 {
		return fmt.Errorf("per_symbol_timeout must be positive, got %s", c.PerSymbolTimeout)
	}
	if c.MaxRuntime <= 0 {
		return fmt.Errorf("max_runtime must be positive, got %s", c.MaxRuntime)
	}
	if c.MinSuccessRatio < 0 || c.MinSuccessRatio > 1 {
		return fmt.Errorf("min_success_ratio must be in [0,1], got %g", c.MinSuccessRatio)
	}
	if c.MaxTickers < 0 {
		return fmt.Errorf("max_tickers must not be negative, got %d", c.MaxTickers)
	}
	if c.TickerFile == "" {
		return fmt.Errorf("ticker_file must be set")
	}
	return nil
}
