package config

import (
	"github.com/spf13/viper"
)

// Config holds the configuration for the application. Everything the engines
// and integrations need is threaded in explicitly from here; nothing reads
// ambient environment at call time.
type Config struct {
	DB struct {
		Host     string `mapstructure:"host"`
		Port     int    `mapstructure:"port"`
		User     string `mapstructure:"user"`
		Password string `mapstructure:"password"`
		Name     string `mapstructure:"name"`
		SSLMode  string `mapstructure:"sslmode"`
	} `mapstructure:"db"`
	HTTP struct {
		Port int `mapstructure:"port"`
	} `mapstructure:"http"`
	Slack struct {
		WebhookURL string `mapstructure:"webhook_url"`
	} `mapstructure:"slack"`
	Email   EmailConfig `mapstructure:"email"`
	Cleanup struct {
		IntervalMinutes int  `mapstructure:"interval_minutes"`
		DeleteExpired   bool `mapstructure:"delete_expired"`
	} `mapstructure:"cleanup"`
	Frontend struct {
		// BaseURL is where approve/reject/view links in outbound
		// notifications point.
		BaseURL string `mapstructure:"base_url"`
	} `mapstructure:"frontend"`
	TLS struct {
		Enable    bool     `mapstructure:"enable"`
		CertFile  string   `mapstructure:"cert_file"`
		KeyFile   string   `mapstructure:"key_file"`
		Hostnames []string `mapstructure:"hostnames"`
	} `mapstructure:"tls"`
}

// EmailConfig holds SMTP delivery settings. Email notifications are disabled
// when Host is empty.
type EmailConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
	// Admin receives workflow-level rollback notifications when the
	// workflow context names no recipients.
	Admin string `mapstructure:"admin"`
}

// LoadConfig loads the configuration from a file and the environment.
func LoadConfig() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AutomaticEnv()

	viper.SetDefault("db.host", "localhost")
	viper.SetDefault("db.port", 5432)
	viper.SetDefault("db.sslmode", "disable")
	viper.SetDefault("http.port", 8080)
	viper.SetDefault("email.port", 587)
	viper.SetDefault("cleanup.interval_minutes", 5)
	viper.SetDefault("cleanup.delete_expired", false)
	viper.SetDefault("frontend.base_url", "http://localhost:5173")

	if err := viper.ReadInConfig(); err != nil {
		// Config file is optional; defaults plus environment cover
		// local development.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	return &config, nil
}
