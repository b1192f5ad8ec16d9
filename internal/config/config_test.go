package config

import (
	"os"
	"testing"
	"time"

	"github.com/spf13/viper"
)

func TestLoadDefaults(t *testing.T) {
	viper.Reset()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Server.ShutdownTimeout != 30*time.Second {
		t.Errorf("Server.ShutdownTimeout = %v, want 30s", cfg.Server.ShutdownTimeout)
	}
	if cfg.Database.Host != "localhost" {
		t.Errorf("Database.Host = %s, want localhost", cfg.Database.Host)
	}
	if cfg.Database.Name != "sacredflow" {
		t.Errorf("Database.Name = %s, want sacredflow", cfg.Database.Name)
	}
	if cfg.Square.Environment != "sandbox" {
		t.Errorf("Square.Environment = %s, want sandbox", cfg.Square.Environment)
	}
	if cfg.Square.Timeout != 10*time.Second {
		t.Errorf("Square.Timeout = %v, want 10s", cfg.Square.Timeout)
	}
	if cfg.Square.MaxRetries != 3 {
		t.Errorf("Square.MaxRetries = %d, want 3", cfg.Square.MaxRetries)
	}
	if cfg.RabbitMQ.Host != "" {
		t.Errorf("RabbitMQ.Host = %s, want empty (publishing disabled)", cfg.RabbitMQ.Host)
	}
	if cfg.RabbitMQ.Exchange != "sacredflow.events" {
		t.Errorf("RabbitMQ.Exchange = %s, want sacredflow.events", cfg.RabbitMQ.Exchange)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("Logging.Level = %s, want info", cfg.Logging.Level)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	viper.Reset()

	envs := map[string]string{
		"APP_SERVER_PORT":        "9090",
		"APP_DATABASE_HOST":      "db.internal",
		"APP_SQUARE_ACCESSTOKEN": "sq0atp-test",
		"APP_SQUARE_ENVIRONMENT": "production",
		"APP_RABBITMQ_HOST":      "mq.internal",
	}
	for k, v := range envs {
		os.Setenv(k, v)
	}
	t.Cleanup(func() {
		for k := range envs {
			os.Unsetenv(k)
		}
		viper.Reset()
	})

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("Server.Port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.Database.Host != "db.internal" {
		t.Errorf("Database.Host = %s, want db.internal", cfg.Database.Host)
	}
	if cfg.Square.AccessToken != "sq0atp-test" {
		t.Errorf("Square.AccessToken = %s, want sq0atp-test", cfg.Square.AccessToken)
	}
	if cfg.Square.Environment != "production" {
		t.Errorf("Square.Environment = %s, want production", cfg.Square.Environment)
	}
	if cfg.RabbitMQ.Host != "mq.internal" {
		t.Errorf("RabbitMQ.Host = %s, want mq.internal", cfg.RabbitMQ.Host)
	}
}
