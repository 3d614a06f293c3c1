package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Env         string `mapstructure:"ENV"`
	Port        string `mapstructure:"PORT"`
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	AdminKey    string `mapstructure:"ADMIN_KEY"`
	CORSAllowed string `mapstructure:"CORS_ALLOWED_ORIGINS"`
	LogLevel    string `mapstructure:"LOG_LEVEL"`

	GmailBaseURL     string `mapstructure:"GMAIL_BASE_URL"`
	GmailAccessToken string `mapstructure:"GMAIL_ACCESS_TOKEN"`
	MailPageSize     int    `mapstructure:"MAIL_PAGE_SIZE"`

	OpenAIBaseURL string `mapstructure:"OPENAI_BASE_URL"`
	OpenAIAPIKey  string `mapstructure:"OPENAI_API_KEY"`
	OpenAIModel   string `mapstructure:"OPENAI_MODEL"`

	SendGridBaseURL string `mapstructure:"SENDGRID_BASE_URL"`
	SendGridAPIKey  string `mapstructure:"SENDGRID_API_KEY"`
	FromAddress     string `mapstructure:"FROM_ADDRESS"`
	FromName        string `mapstructure:"FROM_NAME"`

	EscalationRecipients string `mapstructure:"ESCALATION_RECIPIENTS"`
	RetentionRecipient   string `mapstructure:"RETENTION_RECIPIENT"`

	MonitorEnabled  bool          `mapstructure:"MONITOR_ENABLED"`
	MonitorInterval time.Duration `mapstructure:"MONITOR_INTERVAL"`
	MonitorTimeout  time.Duration `mapstructure:"MONITOR_TIMEOUT"`
}

func Load() (Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	_ = v.ReadInConfig()

	v.SetDefault("ENV", "dev")
	v.SetDefault("PORT", "8080")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("CORS_ALLOWED_ORIGINS", "*")
	v.SetDefault("GMAIL_BASE_URL", "https://gmail.googleapis.com")
	v.SetDefault("MAIL_PAGE_SIZE", 20)
	v.SetDefault("OPENAI_BASE_URL", "https://api.openai.com/v1")
	v.SetDefault("OPENAI_MODEL", "gpt-4")
	v.SetDefault("SENDGRID_BASE_URL", "https://api.sendgrid.com")
	v.SetDefault("FROM_ADDRESS", "support@inboxpilot.app")
	v.SetDefault("FROM_NAME", "Client Support")
	v.SetDefault("ESCALATION_RECIPIENTS", "chris@inboxpilot.app,ops@inboxpilot.app")
	v.SetDefault("RETENTION_RECIPIENT", "retention@inboxpilot.app")
	v.SetDefault("MONITOR_ENABLED", true)
	v.SetDefault("MONITOR_INTERVAL", "2m")
	v.SetDefault("MONITOR_TIMEOUT", "90s")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// EscalationList splits the comma-separated escalation recipients.
func (c Config) EscalationList() []string {
	parts := strings.Split(c.EscalationRecipients, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
