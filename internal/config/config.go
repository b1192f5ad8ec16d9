// Package config provides configuration management for the application.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Square     SquareConfig
	Forwarding ForwardingConfig
	RabbitMQ   RabbitMQConfig
	Auth       AuthConfig
	Logging    LoggingConfig
}

// ServerConfig contains HTTP server configuration.
type ServerConfig struct {
	Port            int
	ShutdownTimeout time.Duration
}

// DatabaseConfig contains database connection configuration.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type DatabaseConfig struct {
	Host           string
	Name           string
	User           string
	Password       string
	SSLMode        string
	Port           int
	MaxConnections int
	MinConnections int
	MaxIdleTime    time.Duration
	MaxLifetime    time.Duration
}

// SquareConfig contains Square API credentials and client options.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type SquareConfig struct {
	AccessToken         string
	Environment         string
	WebhookSignatureKey string
	Timeout             time.Duration
	MaxRetries          int
}

// ForwardingConfig contains outbound webhook targets for the chat relay.
type ForwardingConfig struct {
	SlackWebhookURL   string
	ChatWebhookURL    string
	ChatBearerToken   string
	EmailWebhookURL   string
	PushWebhookURL    string
	PrimaryInboxEmail string
}

// RabbitMQConfig contains RabbitMQ connection and exchange configuration.
// An empty Host disables event publishing.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type RabbitMQConfig struct {
	Host       string
	User       string
	Password   string
	Exchange   string
	Queue      string
	RoutingKey string
	Port       int
}

// AuthConfig contains API key configuration for the management endpoints.
type AuthConfig struct {
	APIKeys []string
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	Level string
	File  string
}

// Load loads configuration from file and environment variables.
func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	setDefaults()

	viper.AutomaticEnv()
	viper.SetEnvPrefix("APP")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// Config file not found, use defaults and env vars
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

func setDefaults() {
	// Server
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.shutdowntimeout", 30*time.Second)

	// Database
	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.name", "sacredflow")
	viper.SetDefault("database.user", "postgres")
	viper.SetDefault("database.password", "postgres")
	viper.SetDefault("database.sslmode", "disable")
	viper.SetDefault("database.maxconnections", 25)
	viper.SetDefault("database.minconnections", 5)
	viper.SetDefault("database.maxidletime", 30*time.Minute)
	viper.SetDefault("database.maxlifetime", 1*time.Hour)

	// Square
	viper.SetDefault("square.accesstoken", "")
	viper.SetDefault("square.environment", "sandbox")
	viper.SetDefault("square.webhooksignaturekey", "")
	viper.SetDefault("square.timeout", 10*time.Second)
	viper.SetDefault("square.maxretries", 3)

	// Forwarding
	viper.SetDefault("forwarding.slackwebhookurl", "")
	viper.SetDefault("forwarding.chatwebhookurl", "")
	viper.SetDefault("forwarding.chatbearertoken", "")
	viper.SetDefault("forwarding.emailwebhookurl", "")
	viper.SetDefault("forwarding.pushwebhookurl", "")
	viper.SetDefault("forwarding.primaryinboxemail", "")

	// RabbitMQ (disabled unless a host is configured)
	viper.SetDefault("rabbitmq.host", "")
	viper.SetDefault("rabbitmq.port", 5672)
	viper.SetDefault("rabbitmq.user", "guest")
	viper.SetDefault("rabbitmq.password", "guest")
	viper.SetDefault("rabbitmq.exchange", "sacredflow.events")
	viper.SetDefault("rabbitmq.queue", "sacredflow.events.webhooks")
	viper.SetDefault("rabbitmq.routingkey", "webhook.processed")

	// Auth
	viper.SetDefault("auth.apikeys", []string{})

	// Logging
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.file", "")
}
