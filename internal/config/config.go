package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"dropwatch/internal/logging"
)

// Config materialises application configuration.
type Config struct {
	App        AppConfig        `mapstructure:"app"`
	Logging    logging.Config   `mapstructure:"logging"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Scheduler  SchedulerConfig  `mapstructure:"scheduler"`
	Monitor    MonitorConfig    `mapstructure:"monitor"`
	Extraction ExtractionConfig `mapstructure:"extraction"`
	AI         AIConfig         `mapstructure:"ai"`
	Alerting   AlertingConfig   `mapstructure:"alerting"`
	Resilience ResilienceConfig `mapstructure:"resilience"`
	Export     ExportConfig     `mapstructure:"export"`
}

// AppConfig general metadata.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
}

// DatabaseConfig encapsulates PostgreSQL connectivity.
type DatabaseConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	MigrationsPath  string        `mapstructure:"migrations_path"`
}

// SchedulerConfig governs check cadences.
type SchedulerConfig struct {
	CheckCron   string `mapstructure:"check_cron"`
	SummaryCron string `mapstructure:"summary_cron"`
}

// MonitorConfig tunes the per-item check loop.
type MonitorConfig struct {
	CheckDelay       time.Duration `mapstructure:"check_delay"`
	FailureThreshold int           `mapstructure:"failure_threshold"`
}

// ExtractionConfig covers outbound retail fetches.
type ExtractionConfig struct {
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	UserAgent      string        `mapstructure:"user_agent"`
	MaxImages      int           `mapstructure:"max_images"`
}

// AIConfig parameterises the inference-service fallback.
type AIConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	BaseURL        string        `mapstructure:"base_url"`
	APIKey         string        `mapstructure:"api_key"`
	Model          string        `mapstructure:"model"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	MaxHTMLChars   int           `mapstructure:"max_html_chars"`
}

// AlertingConfig defines alert dispatch routing.
type AlertingConfig struct {
	Enabled  bool           `mapstructure:"enabled"`
	Telegram TelegramConfig `mapstructure:"telegram"`
}

// TelegramConfig holds Telegram delivery parameters.
type TelegramConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	BotToken string `mapstructure:"bot_token"`
	ChatID   string `mapstructure:"chat_id"`
	APIBase  string `mapstructure:"api_base"`
}

// ResilienceConfig tunes breaker and retry behaviour.
type ResilienceConfig struct {
	ReadFailureThreshold  int           `mapstructure:"read_failure_threshold"`
	ReadOpenTimeout       time.Duration `mapstructure:"read_open_timeout"`
	WriteFailureThreshold int           `mapstructure:"write_failure_threshold"`
	WriteOpenTimeout      time.Duration `mapstructure:"write_open_timeout"`
	RetryAttempts         int           `mapstructure:"retry_attempts"`
	RetryInitialDelay     time.Duration `mapstructure:"retry_initial_delay"`
}

// ExportConfig sets CLI export behaviour.
type ExportConfig struct {
	MaxDataPoints int `mapstructure:"max_data_points"`
}

// Load builds configuration from file, environment, and defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("DROPWATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := readConfig(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, decodeHook()); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func readConfig(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "dropwatch")
	v.SetDefault("app.environment", "development")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("scheduler.check_cron", "@hourly")
	v.SetDefault("scheduler.summary_cron", "@daily")

	v.SetDefault("monitor.check_delay", "2s")
	v.SetDefault("monitor.failure_threshold", 3)

	v.SetDefault("extraction.request_timeout", "15s")
	v.SetDefault("extraction.user_agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36")
	v.SetDefault("extraction.max_images", 5)

	v.SetDefault("ai.enabled", false)
	v.SetDefault("ai.base_url", "https://api.openai.com/v1")
	v.SetDefault("ai.model", "gpt-4o-mini")
	v.SetDefault("ai.request_timeout", "30s")
	v.SetDefault("ai.max_html_chars", 40000)

	v.SetDefault("alerting.enabled", false)
	v.SetDefault("alerting.telegram.enabled", false)
	v.SetDefault("alerting.telegram.api_base", "https://api.telegram.org")

	v.SetDefault("resilience.read_failure_threshold", 5)
	v.SetDefault("resilience.read_open_timeout", "15s")
	v.SetDefault("resilience.write_failure_threshold", 3)
	v.SetDefault("resilience.write_open_timeout", "60s")
	v.SetDefault("resilience.retry_attempts", 3)
	v.SetDefault("resilience.retry_initial_delay", "200ms")

	v.SetDefault("export.max_data_points", 10000)

	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "30m")
	v.SetDefault("database.migrations_path", "migrations")
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}

// Validate performs basic sanity checks on the configuration values.
func (c *Config) Validate() error {
	if c.Scheduler.CheckCron == "" {
		return fmt.Errorf("scheduler.check_cron is required")
	}
	if c.Scheduler.SummaryCron == "" {
		return fmt.Errorf("scheduler.summary_cron is required")
	}
	if c.Monitor.CheckDelay < 0 {
		return fmt.Errorf("monitor.check_delay cannot be negative")
	}
	if c.Monitor.FailureThreshold <= 0 {
		return fmt.Errorf("monitor.failure_threshold must be greater than zero")
	}
	if c.Extraction.RequestTimeout <= 0 {
		return fmt.Errorf("extraction.request_timeout must be greater than zero")
	}
	if c.Export.MaxDataPoints <= 0 {
		return fmt.Errorf("export.max_data_points must be greater than zero")
	}
	if c.AI.Enabled && c.AI.APIKey == "" {
		return fmt.Errorf("ai.api_key is required when ai.enabled is true")
	}
	if c.Alerting.Telegram.Enabled {
		if c.Alerting.Telegram.BotToken == "" {
			return fmt.Errorf("alerting.telegram.bot_token is required")
		}
		if c.Alerting.Telegram.ChatID == "" {
			return fmt.Errorf("alerting.telegram.chat_id is required")
		}
	}
	return nil
}

// ResolveMaxPoints returns either the CLI override or config default.
func (c *Config) ResolveMaxPoints(override int) int {
	if override > 0 {
		return override
	}
	return c.Export.MaxDataPoints
}
