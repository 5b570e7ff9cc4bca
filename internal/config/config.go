package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// EnvPrefix namespaces every environment variable read by Load.
const EnvPrefix = "LEADPULSE"

// Config represents the complete application configuration
type Config struct {
	Server    ServerConfig    `yaml:"server" envconfig:"SERVER"`
	Security  SecurityConfig  `yaml:"security" envconfig:"SECURITY"`
	Logging   LoggingConfig   `yaml:"logging" envconfig:"LOGGING"`
	Schema    SchemaConfig    `yaml:"schema" envconfig:"SCHEMA"`
	Export    ExportConfig    `yaml:"export" envconfig:"EXPORT"`
	Telemetry TelemetryConfig `yaml:"telemetry" envconfig:"TELEMETRY"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port            int           `yaml:"port" envconfig:"PORT"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT"`
	RequestTimeout  time.Duration `yaml:"request_timeout" envconfig:"REQUEST_TIMEOUT"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT"`
	MaxUploadBytes  int64         `yaml:"max_upload_bytes" envconfig:"MAX_UPLOAD_BYTES"`
}

// SecurityConfig contains security-related configuration
type SecurityConfig struct {
	AllowedOrigins []string        `yaml:"allowed_origins" envconfig:"ALLOWED_ORIGINS"`
	EnableCORS     bool            `yaml:"enable_cors" envconfig:"ENABLE_CORS"`
	RateLimit      RateLimitConfig `yaml:"rate_limit" envconfig:"RATE_LIMIT"`
}

// RateLimitConfig contains rate limiting configuration
type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled" envconfig:"ENABLED"`
	RPS     float64 `yaml:"rps" envconfig:"RPS"`
	Burst   int     `yaml:"burst" envconfig:"BURST"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL"`
	Format   string `yaml:"format" envconfig:"FORMAT"`
	Output   string `yaml:"output" envconfig:"OUTPUT"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH"`
}

// SchemaConfig names the input columns the normalizer binds to. Names are
// compared after case-folding and '.' to '_' replacement.
type SchemaConfig struct {
	AttributionColumn string `yaml:"attribution_column" envconfig:"ATTRIBUTION_COLUMN"`
	AttributionPrefix string `yaml:"attribution_prefix" envconfig:"ATTRIBUTION_PREFIX"`
	SourceKey         string `yaml:"source_key" envconfig:"SOURCE_KEY"`
	CampaignKey       string `yaml:"campaign_key" envconfig:"CAMPAIGN_KEY"`
	DepositColumn     string `yaml:"deposit_column" envconfig:"DEPOSIT_COLUMN"`
	JoinColumn        string `yaml:"join_column" envconfig:"JOIN_COLUMN"`
	Sentinel          string `yaml:"sentinel" envconfig:"SENTINEL"`
}

// ExportConfig controls export artifacts
type ExportConfig struct {
	DefaultFormat string `yaml:"default_format" envconfig:"DEFAULT_FORMAT"`
	BOM           bool   `yaml:"bom" envconfig:"BOM"`
	DetailSheet   string `yaml:"detail_sheet" envconfig:"DETAIL_SHEET"`
	SummarySheet  string `yaml:"summary_sheet" envconfig:"SUMMARY_SHEET"`
	FileBaseName  string `yaml:"file_base_name" envconfig:"FILE_BASE_NAME"`
}

// TelemetryConfig controls OpenTelemetry providers
type TelemetryConfig struct {
	EnableTracing bool    `yaml:"enable_tracing" envconfig:"ENABLE_TRACING"`
	EnableMetrics bool    `yaml:"enable_metrics" envconfig:"ENABLE_METRICS"`
	TraceExporter string  `yaml:"trace_exporter" envconfig:"TRACE_EXPORTER"`
	SampleRatio   float64 `yaml:"sample_ratio" envconfig:"SAMPLE_RATIO"`
	Environment   string  `yaml:"environment" envconfig:"ENVIRONMENT"`
}

// Load loads configuration from defaults, the config file if one exists,
// and environment variables, in increasing order of precedence.
func Load() (*Config, error) {
	return LoadFrom(getConfigFilePath())
}

// LoadFrom is Load with an explicit config file path. An empty path skips
// the file layer.
func LoadFrom(configFile string) (*Config, error) {
	cfg := Default()

	if configFile != "" {
		if err := loadFromFile(configFile, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	// Fields without a matching variable keep their current value
	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// loadFromFile overlays a YAML file onto cfg
func loadFromFile(filePath string, cfg *Config) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// validate validates the configuration
func (c *Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("server read timeout must be positive")
	}

	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server write timeout must be positive")
	}

	if c.Server.MaxUploadBytes <= 0 {
		return fmt.Errorf("server max upload bytes must be positive")
	}

	if c.Security.RateLimit.Enabled && c.Security.RateLimit.RPS <= 0 {
		return fmt.Errorf("rate limit rps must be positive when enabled")
	}

	switch strings.ToLower(c.Logging.Format) {
	case "text":
		c.Logging.Format = "text"
	default:
		c.Logging.Format = "json"
	}
	switch strings.ToLower(c.Logging.Output) {
	case "console", "file", "both":
		c.Logging.Output = strings.ToLower(c.Logging.Output)
	default:
		c.Logging.Output = "console"
	}
	if c.Logging.Output != "console" && c.Logging.FilePath == "" {
		c.Logging.FilePath = "logs/leadpulse.log"
	}

	if err := c.Schema.Validate(); err != nil {
		return err
	}

	switch c.Export.DefaultFormat {
	case "csv", "xlsx", "pdf":
	default:
		return fmt.Errorf("unsupported export format: %q", c.Export.DefaultFormat)
	}
	if c.Export.DetailSheet == "" || c.Export.SummarySheet == "" {
		return fmt.Errorf("export sheet names must not be empty")
	}
	if c.Export.DetailSheet == c.Export.SummarySheet {
		return fmt.Errorf("export sheet names must differ")
	}

	return nil
}

// Validate checks that every bound column name is present.
func (s SchemaConfig) Validate() error {
	fields := map[string]string{
		"attribution_column": s.AttributionColumn,
		"attribution_prefix": s.AttributionPrefix,
		"source_key":         s.SourceKey,
		"campaign_key":       s.CampaignKey,
		"deposit_column":     s.DepositColumn,
		"join_column":        s.JoinColumn,
		"sentinel":           s.Sentinel,
	}
	for name, value := range fields {
		if strings.TrimSpace(value) == "" {
			return fmt.Errorf("schema %s must not be empty", name)
		}
	}
	return nil
}

// getConfigFilePath returns the path to the config file
func getConfigFilePath() string {
	if path := os.Getenv(EnvPrefix + "_CONFIG_FILE"); path != "" {
		return path
	}

	locations := []string{
		"leadpulse.yaml",
		"configs/leadpulse.yaml",
	}

	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			return location
		}
	}

	return "" // No config file found, use env vars only
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    60 * time.Second,
			IdleTimeout:     60 * time.Second,
			RequestTimeout:  60 * time.Second,
			ShutdownTimeout: 15 * time.Second,
			MaxUploadBytes:  32 << 20, // 32MB
		},
		Security: SecurityConfig{
			AllowedOrigins: []string{"http://localhost:8080"},
			EnableCORS:     true,
			RateLimit: RateLimitConfig{
				Enabled: true,
				RPS:     20,
				Burst:   40,
			},
		},
		Logging: LoggingConfig{
			Level:    "info",
			Format:   "json",
			Output:   "console",
			FilePath: "logs/leadpulse.log",
		},
		Schema: DefaultSchema(),
		Export: ExportConfig{
			DefaultFormat: "xlsx",
			BOM:           true,
			DetailSheet:   "Detailed Data",
			SummarySheet:  "Summary",
			FileBaseName:  "filtered_campaign_data",
		},
		Telemetry: TelemetryConfig{
			EnableTracing: false,
			EnableMetrics: true,
			TraceExporter: "stdout",
			SampleRatio:   1.0,
			Environment:   "development",
		},
	}
}

// DefaultSchema returns the column bindings of the standard user export.
func DefaultSchema() SchemaConfig {
	return SchemaConfig{
		AttributionColumn: "utm_hit",
		AttributionPrefix: "utm_hit_",
		SourceKey:         "utmsource",
		CampaignKey:       "utmcampaign",
		DepositColumn:     "deposits_total_in_usd",
		JoinColumn:        "created_at",
		Sentinel:          "UNKNOWN",
	}
}
