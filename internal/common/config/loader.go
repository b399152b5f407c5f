// internal/common/config/loader.go
package config

import (
	"fmt"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Load reads configs/config.yaml, merges config.<APP_ENVIRONMENT>.yaml on top and applies
// environment overrides.
func Load() (*Config, error) {
	loadEnvFile()

	v := newViper()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath("../../configs")
	v.AddConfigPath(".")

	env := os.Getenv("APP_ENVIRONMENT")
	if env == "" {
		env = "development"
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading base config: %w", err)
		}
	}

	v.SetConfigName(fmt.Sprintf("config.%s", env))
	_ = v.MergeInConfig() // overlay is optional

	return build(v)
}

// LoadFromFile loads configuration from a specific file path
func LoadFromFile(path string) (*Config, error) {
	loadEnvFile()

	v := newViper()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	return build(v)
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	setDefaults(v)
	// bound without a default so that absence stays distinguishable from false
	_ = v.BindEnv("notifications.admin_enabled")
	return v
}

func build(v *viper.Viper) (*Config, error) {
	expandEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	overrideEmptyConfig(&cfg)
	applyDefaults(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func loadEnvFile() {
	possiblePaths := []string{".env", "../.env", "../../.env"}
	if rootDir := findProjectRoot(); rootDir != "" {
		possiblePaths = append(possiblePaths, filepath.Join(rootDir, ".env"))
	}

	for _, path := range possiblePaths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err == nil {
				return
			}
		}
	}
}

// Find project root by looking for go.mod
func findProjectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "assessment-pipeline")
	v.SetDefault("app.environment", "development")

	v.SetDefault("server.address", ":8080")
	v.SetDefault("server.public_base_url", "http://localhost:8080")
	v.SetDefault("server.read_timeout", 10000)
	v.SetDefault("server.write_timeout", 30000)
	v.SetDefault("server.shutdown_timeout", 30000)

	v.SetDefault("database.backend", BackendPostgres)
	v.SetDefault("database.postgres.port", 5432)
	v.SetDefault("database.sqlite.path", "data/assessments.db")
	v.SetDefault("database.elasticsearch.index", "assessment-submissions")
	v.SetDefault("database.redis.address", "localhost:6379")

	v.SetDefault("analysis.max_tokens", 2500)
	v.SetDefault("analysis.temperature", 0.4)
	v.SetDefault("analysis.timeout", 45000)
	v.SetDefault("analysis.default_endpoint", "https://api.openai.com/v1/chat/completions")
	v.SetDefault("analysis.default_model", "gpt-4o-mini")

	v.SetDefault("reports.dir", "reports")
	v.SetDefault("reports.public_base_url", "http://localhost:8080/reports")
	v.SetDefault("reports.renderer", RendererAuto)
	v.SetDefault("reports.render_timeout", 60000)

	v.SetDefault("tokens.ttl_seconds", 604800)
	v.SetDefault("tokens.process_ttl_seconds", 3600)

	v.SetDefault("notifications.transport", TransportSMTP)
	v.SetDefault("notifications.subject_prefix", "Compliance Assessment")
	v.SetDefault("notifications.from_name", "Compliance Assessment")

	v.SetDefault("integrations.aws.region", "us-east-1")
	v.SetDefault("integrations.smtp.port", 587)
	v.SetDefault("integrations.smtp.use_tls", true)

	v.SetDefault("dispatch.mode", DispatchInProcess)
	v.SetDefault("dispatch.workers", 4)
	v.SetDefault("dispatch.queue_size", 100)
	v.SetDefault("dispatch.stage2_timeout", 300000)
	v.SetDefault("dispatch.lock", LockRedis)
	v.SetDefault("dispatch.lock_ttl", 360000)

	v.SetDefault("camunda.process_id", "assessment-stage2")
	v.SetDefault("camunda.job_type", "process-submission")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stdout")
}

func expandEnvVars(v *viper.Viper) {
	for _, key := range v.AllKeys() {
		strVal, ok := v.Get(key).(string)
		if !ok {
			continue
		}
		if strings.Contains(strVal, "${") || (strings.HasPrefix(strVal, "$") && len(strVal) > 1) {
			// unset variables expand to "" so overrideEmptyConfig and validation see them as missing
			if expanded := os.ExpandEnv(strVal); expanded != strVal {
				v.Set(key, expanded)
			}
		}
	}
}

// overrideEmptyConfig fills secrets from their conventional variable names when the file left them blank.
func overrideEmptyConfig(cfg *Config) {
	if cfg.Tokens.Secret == "" {
		cfg.Tokens.Secret = os.Getenv("ASSESSMENT_TOKEN_SECRET")
	}
	if cfg.Database.Postgres.User == "" {
		cfg.Database.Postgres.User = os.Getenv("DB_USER")
	}
	if cfg.Database.Postgres.Password == "" {
		cfg.Database.Postgres.Password = os.Getenv("DB_PASSWORD")
	}
	if cfg.Integrations.SMTP.Password == "" {
		cfg.Integrations.SMTP.Password = os.Getenv("SMTP_PASSWORD")
	}
	for i := range cfg.Providers {
		if cfg.Providers[i].Credential == "" {
			cfg.Providers[i].Credential = os.Getenv(fmt.Sprintf("PROVIDER_%d_API_KEY", i+1))
		}
	}
}

// applyDefaults fills values that depend on other fields.
func applyDefaults(cfg *Config) {
	for i := range cfg.Providers {
		p := &cfg.Providers[i]
		if strings.TrimSpace(p.Name) == "" {
			p.Name = fmt.Sprintf("provider-%d", i+1)
		}
		if p.Endpoint == "" {
			p.Endpoint = cfg.Analysis.DefaultEndpoint
		}
		if p.Model == "" {
			p.Model = cfg.Analysis.DefaultModel
		}
		if p.Timeout == 0 {
			p.Timeout = cfg.Analysis.Timeout
		}
	}

	if cfg.Camunda.MaxJobsActive == 0 {
		cfg.Camunda.MaxJobsActive = cfg.Dispatch.Workers
	}
	if cfg.Camunda.Timeout == 0 {
		cfg.Camunda.Timeout = cfg.Dispatch.Stage2Timeout
	}
	if cfg.Camunda.RequestTimeout == 0 {
		cfg.Camunda.RequestTimeout = 30000
	}

	if cfg.Database.Postgres.MaxConnections == 0 {
		cfg.Database.Postgres.MaxConnections = 25
	}
	if cfg.Database.Postgres.MaxIdle == 0 {
		cfg.Database.Postgres.MaxIdle = 5
	}
	if cfg.Database.Postgres.SSLMode == "" {
		cfg.Database.Postgres.SSLMode = "disable"
	}
	if cfg.Database.SQLite.BusyTimeout == 0 {
		cfg.Database.SQLite.BusyTimeout = 5000
	}

	cfg.Reports.PublicBaseURL = strings.TrimRight(cfg.Reports.PublicBaseURL, "/")
	cfg.Server.PublicBaseURL = strings.TrimRight(cfg.Server.PublicBaseURL, "/")
	if cfg.Notifications.FromEmail == "" {
		cfg.Notifications.FromEmail = "no-reply@localhost"
	}
}

func validateConfig(cfg *Config) error {
	if len(cfg.Tokens.Secret) < 16 {
		return fmt.Errorf("tokens.secret must be at least 16 characters")
	}
	if cfg.Tokens.TTLSeconds <= 0 {
		return fmt.Errorf("tokens.ttl_seconds must be positive")
	}

	switch cfg.Database.Backend {
	case BackendPostgres:
		if cfg.Database.Postgres.Host == "" {
			return fmt.Errorf("database.postgres.host is required")
		}
		if cfg.Database.Postgres.Database == "" {
			return fmt.Errorf("database.postgres.database is required")
		}
		if cfg.Database.Postgres.User == "" {
			return fmt.Errorf("database.postgres.user is required")
		}
	case BackendSQLite:
		if cfg.Database.SQLite.Path == "" {
			return fmt.Errorf("database.sqlite.path is required")
		}
	case BackendElasticsearch:
		if len(cfg.Database.Elasticsearch.Addresses) == 0 {
			return fmt.Errorf("database.elasticsearch.addresses is required")
		}
	case BackendMemory:
	default:
		return fmt.Errorf("unknown database.backend %q", cfg.Database.Backend)
	}

	if cfg.Database.Redis.Address == "" {
		return fmt.Errorf("database.redis.address is required")
	}

	switch cfg.Reports.Renderer {
	case RendererAuto, RendererPDF, RendererMarkup:
	default:
		return fmt.Errorf("unknown reports.renderer %q", cfg.Reports.Renderer)
	}
	if cfg.Reports.Dir == "" {
		return fmt.Errorf("reports.dir is required")
	}

	switch cfg.Notifications.Transport {
	case TransportSES:
		if cfg.Integrations.AWS.Region == "" {
			return fmt.Errorf("integrations.aws.region is required for the ses transport")
		}
	case TransportSMTP:
		if cfg.Integrations.SMTP.Host == "" {
			return fmt.Errorf("integrations.smtp.host is required for the smtp transport")
		}
	default:
		return fmt.Errorf("unknown notifications.transport %q", cfg.Notifications.Transport)
	}
	if _, err := mail.ParseAddress(cfg.Notifications.FromEmail); err != nil {
		return fmt.Errorf("notifications.from_email is invalid: %w", err)
	}

	switch cfg.Dispatch.Mode {
	case DispatchInProcess:
		if cfg.Dispatch.Workers <= 0 || cfg.Dispatch.QueueSize <= 0 {
			return fmt.Errorf("dispatch.workers and dispatch.queue_size must be positive")
		}
	case DispatchCamunda:
		if cfg.Camunda.BrokerAddress == "" {
			return fmt.Errorf("camunda.broker_address is required for camunda dispatch")
		}
	default:
		return fmt.Errorf("unknown dispatch.mode %q", cfg.Dispatch.Mode)
	}

	switch cfg.Dispatch.Lock {
	case LockRedis, LockLocal:
	default:
		return fmt.Errorf("unknown dispatch.lock %q", cfg.Dispatch.Lock)
	}

	return nil
}

// GetDuration converts milliseconds from config to time.Duration
func GetDuration(milliseconds int) time.Duration {
	return time.Duration(milliseconds) * time.Millisecond
}
