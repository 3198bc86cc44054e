package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/clearledger/claimflow/internal/policy"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	OpenAI   OpenAIConfig   `mapstructure:"openai"`
	Lark     LarkConfig     `mapstructure:"lark"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Tenant   TenantConfig   `mapstructure:"tenant"`
	Logger   LoggerConfig   `mapstructure:"logger"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Path            string        `mapstructure:"path"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	MigrationsDir   string        `mapstructure:"migrations_dir"`
}

// OpenAIConfig holds receipt extraction API configuration
type OpenAIConfig struct {
	APIKey      string        `mapstructure:"api_key"`
	Model       string        `mapstructure:"model"`
	Temperature float32       `mapstructure:"temperature"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// LarkConfig holds Lark notification configuration
type LarkConfig struct {
	AppID            string        `mapstructure:"app_id"`
	AppSecret        string        `mapstructure:"app_secret"`
	DispatchInterval time.Duration `mapstructure:"dispatch_interval"`
}

// StorageConfig holds file storage configuration
type StorageConfig struct {
	UploadDir string `mapstructure:"upload_dir"`
	ExportDir string `mapstructure:"export_dir"`
}

// TenantConfig holds the defaults applied to tenants without saved settings
type TenantConfig struct {
	FiscalYearStart       string  `mapstructure:"fiscal_year_start"`
	AutoApprovalEnabled   bool    `mapstructure:"auto_approval_enabled"`
	AutoApprovalThreshold float64 `mapstructure:"auto_approval_threshold"`
	MaxAutoApprovalAmount float64 `mapstructure:"max_auto_approval_amount"`
	AutoSkipAfterManager  bool    `mapstructure:"auto_skip_after_manager"`
}

// LoggerConfig holds logger configuration
type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	OutputPath string `mapstructure:"output_path"`
	Format     string `mapstructure:"format"`
}

// FiscalYearStartMonth resolves the configured fiscal year start month name
func (t TenantConfig) FiscalYearStartMonth() time.Month {
	if m, ok := policy.MonthFromName(t.FiscalYearStart); ok {
		return m
	}
	return policy.DefaultFiscalYearStartMonth
}

// Load loads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	bindEnvVars()

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values
func setDefaults() {
	// Server defaults
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", 30*time.Second)
	viper.SetDefault("server.write_timeout", 30*time.Second)

	// Database defaults
	viper.SetDefault("database.path", "data/claimflow.db")
	viper.SetDefault("database.max_open_conns", 25)
	viper.SetDefault("database.max_idle_conns", 5)
	viper.SetDefault("database.conn_max_lifetime", 5*time.Minute)
	viper.SetDefault("database.migrations_dir", "migrations")

	// OpenAI defaults
	viper.SetDefault("openai.model", "gpt-4o")
	viper.SetDefault("openai.temperature", 0.2)
	viper.SetDefault("openai.timeout", 60*time.Second)

	// Lark defaults
	viper.SetDefault("lark.dispatch_interval", 30*time.Second)

	// Storage defaults
	viper.SetDefault("storage.upload_dir", "uploads")
	viper.SetDefault("storage.export_dir", "exports")

	// Tenant defaults
	viper.SetDefault("tenant.fiscal_year_start", "april")
	viper.SetDefault("tenant.auto_approval_enabled", false)
	viper.SetDefault("tenant.auto_approval_threshold", 95)
	viper.SetDefault("tenant.max_auto_approval_amount", 1000)
	viper.SetDefault("tenant.auto_skip_after_manager", false)

	// Logger defaults
	viper.SetDefault("logger.level", "info")
	viper.SetDefault("logger.output_path", "stdout")
	viper.SetDefault("logger.format", "json")
}

// bindEnvVars binds environment variables to configuration
func bindEnvVars() {
	// Sensitive credentials from environment
	viper.BindEnv("openai.api_key", "OPENAI_API_KEY")
	viper.BindEnv("lark.app_id", "LARK_APP_ID")
	viper.BindEnv("lark.app_secret", "LARK_APP_SECRET")
	viper.BindEnv("database.path", "DATABASE_PATH")
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.OpenAI.APIKey == "" {
		return fmt.Errorf("openai.api_key is required")
	}

	if c.Lark.AppID == "" {
		return fmt.Errorf("lark.app_id is required")
	}
	if c.Lark.AppSecret == "" {
		return fmt.Errorf("lark.app_secret is required")
	}

	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}

	if _, ok := policy.MonthFromName(c.Tenant.FiscalYearStart); !ok {
		return fmt.Errorf("tenant.fiscal_year_start %q is not a month name", c.Tenant.FiscalYearStart)
	}
	if c.Tenant.AutoApprovalThreshold < 0 || c.Tenant.AutoApprovalThreshold > 100 {
		return fmt.Errorf("tenant.auto_approval_threshold must be between 0 and 100")
	}

	return nil
}
