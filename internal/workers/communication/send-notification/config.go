package sendnotification

import (
	"fmt"
	"time"

	"assessment-pipeline/internal/common/config"
)

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	UseTLS   bool
}

type Config struct {
	AdminEnabled    bool
	AdminRecipients string
	FromEmail       string
	FromName        string
	SubjectPrefix   string
	Transport       string
	AWSRegion       string
	SMTP            SMTPConfig
	SendTimeout     time.Duration
}

func DefaultConfig() *Config {
	return &Config{
		AdminEnabled: true,
		FromEmail:    "no-reply@localhost",
		Transport:    config.TransportSMTP,
		SMTP:         SMTPConfig{Port: 587, UseTLS: true},
		SendTimeout:  30 * time.Second,
	}
}

func LoadConfig(cfg *config.Config) *Config {
	c := DefaultConfig()
	c.AdminEnabled = cfg.Notifications.AdminNotificationsEnabled()
	c.AdminRecipients = cfg.Notifications.AdminRecipients
	if cfg.Notifications.FromEmail != "" {
		c.FromEmail = cfg.Notifications.FromEmail
	}
	c.FromName = cfg.Notifications.FromName
	c.SubjectPrefix = cfg.Notifications.SubjectPrefix
	if cfg.Notifications.Transport != "" {
		c.Transport = cfg.Notifications.Transport
	}
	c.AWSRegion = cfg.Integrations.AWS.Region
	c.SMTP = SMTPConfig{
		Host:     cfg.Integrations.SMTP.Host,
		Port:     cfg.Integrations.SMTP.Port,
		Username: cfg.Integrations.SMTP.Username,
		Password: cfg.Integrations.SMTP.Password,
		UseTLS:   cfg.Integrations.SMTP.UseTLS,
	}
	return c
}

func (c *Config) Validate() error {
	if c.FromEmail == "" {
		return fmt.Errorf("from_email is required")
	}
	switch c.Transport {
	case config.TransportSES:
		if c.AWSRegion == "" {
			return fmt.Errorf("aws region is required for the ses transport")
		}
	case config.TransportSMTP:
		if c.SMTP.Host == "" {
			return fmt.Errorf("smtp host is required")
		}
		if c.SMTP.Port <= 0 || c.SMTP.Port > 65535 {
			return fmt.Errorf("smtp port must be between 1 and 65535")
		}
	default:
		return fmt.Errorf("unknown mail transport %q", c.Transport)
	}
	return nil
}
