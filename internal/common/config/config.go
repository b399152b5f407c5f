// internal/common/config/config.go
package config

import (
	"fmt"
	"time"
)

// Config is built once at startup and handed to each component.
type Config struct {
	App           AppConfig          `mapstructure:"app"`
	Server        ServerConfig       `mapstructure:"server"`
	Camunda       CamundaConfig      `mapstructure:"camunda"`
	Database      DatabaseConfig     `mapstructure:"database"`
	Providers     []ProviderConfig   `mapstructure:"providers"`
	Analysis      AnalysisConfig     `mapstructure:"analysis"`
	Reports       ReportsConfig      `mapstructure:"reports"`
	Tokens        TokensConfig       `mapstructure:"tokens"`
	Notifications NotificationConfig `mapstructure:"notifications"`
	Integrations  IntegrationConfig  `mapstructure:"integrations"`
	Dispatch      DispatchConfig     `mapstructure:"dispatch"`
	Catalog       CatalogConfig      `mapstructure:"catalog"`
	Logging       LoggingConfig      `mapstructure:"logging"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type ServerConfig struct {
	Address         string `mapstructure:"address"`
	PublicBaseURL   string `mapstructure:"public_base_url"` // base for /download links in emails
	ReadTimeout     int    `mapstructure:"read_timeout"`    // milliseconds
	WriteTimeout    int    `mapstructure:"write_timeout"`   // milliseconds
	ShutdownTimeout int    `mapstructure:"shutdown_timeout"`
}

type CamundaConfig struct {
	BrokerAddress  string `mapstructure:"broker_address"`
	ProcessID      string `mapstructure:"process_id"`
	JobType        string `mapstructure:"job_type"`
	MaxJobsActive  int    `mapstructure:"max_jobs_active"`
	Timeout        int    `mapstructure:"timeout"`         // milliseconds
	RequestTimeout int    `mapstructure:"request_timeout"` // milliseconds
	UsePlaintext   bool   `mapstructure:"use_plaintext"`
}

// Storage backends for submissions.
const (
	BackendPostgres      = "postgres"
	BackendSQLite        = "sqlite"
	BackendElasticsearch = "elasticsearch"
	BackendMemory        = "memory"
)

type DatabaseConfig struct {
	Backend       string              `mapstructure:"backend"`
	Postgres      PostgresConfig      `mapstructure:"postgres"`
	SQLite        SQLiteConfig        `mapstructure:"sqlite"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	Redis         RedisConfig         `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// GetDSN returns the PostgreSQL connection string
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type SQLiteConfig struct {
	Path        string `mapstructure:"path"`
	BusyTimeout int    `mapstructure:"busy_timeout"` // milliseconds
}

type ElasticsearchConfig struct {
	Addresses []string `mapstructure:"addresses"`
	Username  string   `mapstructure:"username"`
	Password  string   `mapstructure:"password"`
	Index     string   `mapstructure:"index"`
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// ProviderConfig is one entry of the ordered generative-text provider list.
type ProviderConfig struct {
	Name       string `mapstructure:"name"`
	Credential string `mapstructure:"credential"`
	Endpoint   string `mapstructure:"endpoint"`
	Model      string `mapstructure:"model"`
	Timeout    int    `mapstructure:"timeout"` // milliseconds
}

type AnalysisConfig struct {
	MaxTokens       int     `mapstructure:"max_tokens"`
	Temperature     float64 `mapstructure:"temperature"`
	Timeout         int     `mapstructure:"timeout"` // milliseconds, per provider call
	DefaultEndpoint string  `mapstructure:"default_endpoint"`
	DefaultModel    string  `mapstructure:"default_model"`
}

// Renderer selections.
const (
	RendererAuto   = "auto"
	RendererPDF    = "pdf"
	RendererMarkup = "markup"
)

type ReportsConfig struct {
	Dir           string `mapstructure:"dir"`
	PublicBaseURL string `mapstructure:"public_base_url"`
	Renderer      string `mapstructure:"renderer"`
	ChromePath    string `mapstructure:"chrome_path"`
	RenderTimeout int    `mapstructure:"render_timeout"` // milliseconds
}

type TokensConfig struct {
	Secret            string `mapstructure:"secret"`
	TTLSeconds        int    `mapstructure:"ttl_seconds"`
	ProcessTTLSeconds int    `mapstructure:"process_ttl_seconds"`
}

// TTL is the download token lifetime.
func (t TokensConfig) TTL() time.Duration {
	return time.Duration(t.TTLSeconds) * time.Second
}

func (t TokensConfig) ProcessTTL() time.Duration {
	return time.Duration(t.ProcessTTLSeconds) * time.Second
}

// Mail transports.
const (
	TransportSES  = "ses"
	TransportSMTP = "smtp"
)

type NotificationConfig struct {
	// AdminEnabled stays nil when the key is absent, which counts as enabled.
	AdminEnabled    *bool  `mapstructure:"admin_enabled"`
	AdminRecipients string `mapstructure:"admin_recipients"`
	FromEmail       string `mapstructure:"from_email"`
	FromName        string `mapstructure:"from_name"`
	Transport       string `mapstructure:"transport"`
	SubjectPrefix   string `mapstructure:"subject_prefix"`
}

// AdminNotificationsEnabled treats an absent toggle as true and only an explicit false as off.
func (n NotificationConfig) AdminNotificationsEnabled() bool {
	if n.AdminEnabled == nil {
		return true
	}
	return *n.AdminEnabled
}

// IntegrationConfig holds settings for the mail transports.
type IntegrationConfig struct {
	AWS struct {
		Region string `mapstructure:"region"`
	} `mapstructure:"aws"`

	SMTP struct {
		Host     string `mapstructure:"host"`
		Port     int    `mapstructure:"port"`
		Username string `mapstructure:"username"`
		Password string `mapstructure:"password"`
		UseTLS   bool   `mapstructure:"use_tls"`
	} `mapstructure:"smtp"`
}

// Dispatch modes for Stage 2.
const (
	DispatchInProcess = "inprocess"
	DispatchCamunda   = "camunda"
)

// Lock modes for per-submission Stage 2 serialization.
const (
	LockRedis = "redis"
	LockLocal = "local"
)

type DispatchConfig struct {
	Mode          string `mapstructure:"mode"`
	Workers       int    `mapstructure:"workers"`
	QueueSize     int    `mapstructure:"queue_size"`
	Stage2Timeout int    `mapstructure:"stage2_timeout"` // milliseconds
	Lock          string `mapstructure:"lock"`
	LockTTL       int    `mapstructure:"lock_ttl"` // milliseconds
}

type CatalogConfig struct {
	Path string `mapstructure:"path"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}
