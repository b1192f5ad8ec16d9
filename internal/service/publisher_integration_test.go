//go:build integration
// +build integration

package service

import (
	"context"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/rabbitmq"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/sacredflow/backend-go/internal/config"
)

func setupTestRabbitMQ(t *testing.T) (*config.RabbitMQConfig, func()) {
	ctx := context.Background()

	rabbitmqContainer, err := rabbitmq.Run(ctx,
		"rabbitmq:3.13-alpine",
		testcontainers.WithWaitStrategy(
			wait.ForLog("Server startup complete").
				WithStartupTimeout(60*time.Second)),
	)
	if err != nil {
		t.Fatalf("Failed to start rabbitmq container: %v", err)
	}

	host, err := rabbitmqContainer.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get host: %v", err)
	}

	port, err := rabbitmqContainer.MappedPort(ctx, "5672/tcp")
	if err != nil {
		t.Fatalf("Failed to get port: %v", err)
	}

	cfg := &config.RabbitMQConfig{
		Host:       host,
		Port:       port.Int(),
		User:       "guest",
		Password:   "guest",
		Exchange:   "test.events",
		Queue:      "test.queue",
		RoutingKey: "webhook.processed",
	}

	cleanup := func() {
		if err := rabbitmqContainer.Terminate(ctx); err != nil {
			t.Logf("Failed to terminate container: %v", err)
		}
	}

	return cfg, cleanup
}

func TestMessagePublisher_Publish(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test")
	}

	cfg, cleanup := setupTestRabbitMQ(t)
	defer cleanup()

	time.Sleep(2 * time.Second)

	mp, err := NewMessagePublisher(cfg)
	if err != nil {
		t.Fatalf("NewMessagePublisher() error = %v", err)
	}
	defer mp.Close()

	if !mp.IsHealthy() {
		t.Fatal("publisher reports unhealthy after connect")
	}

	body := []byte(`{"event_id":"evt-int-1","event_type":"payment.updated","status":"processed"}`)
	if err := mp.Publish(context.Background(), cfg.RoutingKey, body); err != nil {
		t.Errorf("Publish() error = %v", err)
	}
}

func TestMessagePublisher_CloseIsIdempotentEnough(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test")
	}

	cfg, cleanup := setupTestRabbitMQ(t)
	defer cleanup()

	time.Sleep(2 * time.Second)

	mp, err := NewMessagePublisher(cfg)
	if err != nil {
		t.Fatalf("NewMessagePublisher() error = %v", err)
	}

	if err := mp.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	if mp.IsHealthy() {
		t.Error("publisher reports healthy after close")
	}
}
