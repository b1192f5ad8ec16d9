//go:build integration
// +build integration

package repository

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/sacredflow/backend-go/internal/db"
	"github.com/sacredflow/backend-go/internal/db/models"
)

func setupTestDB(t *testing.T) (*pgxpool.Pool, func()) {
	ctx := context.Background()

	postgresContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	if err != nil {
		t.Fatalf("Failed to start postgres container: %v", err)
	}

	connStr, err := postgresContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("Failed to get connection string: %v", err)
	}

	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		t.Fatalf("Failed to connect to database: %v", err)
	}

	applyMigrations(t, ctx, pool)

	cleanup := func() {
		pool.Close()
		if err := postgresContainer.Terminate(ctx); err != nil {
			t.Logf("Failed to terminate container: %v", err)
		}
	}

	return pool, cleanup
}

func applyMigrations(t *testing.T, ctx context.Context, pool *pgxpool.Pool) {
	t.Helper()

	files, err := filepath.Glob(filepath.Join("..", "..", "..", "migrations", "*.up.sql"))
	require.NoError(t, err)
	require.NotEmpty(t, files)
	sort.Strings(files)

	for _, file := range files {
		ddl, err := os.ReadFile(file)
		require.NoError(t, err)
		_, err = pool.Exec(ctx, string(ddl))
		require.NoError(t, err, "migration %s", file)
	}
}

func TestWebhookEventRepository(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test")
	}

	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	repo := NewWebhookEventRepository(pool)

	event := models.NewWebhookEvent("evt-int-1", "payment.updated", "LOC1", true,
		json.RawMessage(`{"event_id":"evt-int-1"}`))
	require.NoError(t, repo.Insert(ctx, event))

	// Unique constraint turns a second insert into ErrDuplicateKey.
	dup := models.NewWebhookEvent("evt-int-1", "payment.updated", "", true, json.RawMessage(`{}`))
	err := repo.Insert(ctx, dup)
	assert.ErrorIs(t, err, db.ErrDuplicateKey)

	stored, err := repo.GetByEventID(ctx, "evt-int-1")
	require.NoError(t, err)
	assert.Equal(t, models.EventStatusReceived, stored.Status)
	assert.Equal(t, "payment.updated", stored.EventType)
	require.NotNil(t, stored.LocationID)
	assert.Equal(t, "LOC1", *stored.LocationID)

	stored.SetOutcome(models.EventStatusProcessed, "")
	require.NoError(t, repo.UpdateOutcome(ctx, stored))

	reread, err := repo.GetByEventID(ctx, "evt-int-1")
	require.NoError(t, err)
	assert.Equal(t, models.EventStatusProcessed, reread.Status)
	assert.NotNil(t, reread.ProcessedAt)

	_, err = repo.GetByEventID(ctx, "missing")
	assert.ErrorIs(t, err, db.ErrNotFound)
}

func TestWebhookEventRepository_TxRollback(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test")
	}

	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	repo := NewWebhookEventRepository(pool)
	runner := db.NewTxRunner(pool)

	err := runner.RunInTx(ctx, func(tx pgx.Tx) error {
		if err := repo.WithTx(tx).Insert(ctx, models.NewWebhookEvent("evt-rollback", "payment.updated", "", true, json.RawMessage(`{}`))); err != nil {
			return err
		}
		return assert.AnError
	})
	require.Error(t, err)

	_, err = repo.GetByEventID(ctx, "evt-rollback")
	assert.ErrorIs(t, err, db.ErrNotFound)
}

func TestPaymentRepository(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test")
	}

	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	repo := NewPaymentRepository(pool)

	id := uuid.New()
	_, err := pool.Exec(ctx, `
		INSERT INTO payments (id, square_payment_id, customer_email, plan_type, amount, status, extra_data)
		VALUES ($1, 'pay-int-1', 'guest@example.com', 'bundle', 2500, 'pending', '{}')
	`, id)
	require.NoError(t, err)

	payment, err := repo.GetBySquarePaymentID(ctx, "pay-int-1")
	require.NoError(t, err)
	assert.Equal(t, id, payment.ID)
	assert.Equal(t, int64(2500), payment.Amount)

	payment.Status = models.PaymentStatusCompleted
	payment.AppendWebhookHistory(time.Now(), map[string]any{"status": "COMPLETED"})
	require.NoError(t, repo.Update(ctx, payment))

	updated, err := repo.GetBySquarePaymentID(ctx, "pay-int-1")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusCompleted, updated.Status)
	assert.Contains(t, updated.ExtraData, "webhook_history")

	_, err = repo.GetBySquarePaymentID(ctx, "pay-missing")
	assert.ErrorIs(t, err, db.ErrNotFound)
}

func TestCatalogItemRepository(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test")
	}

	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	items := NewCatalogItemRepository(pool)
	products := NewProductRepository(pool)

	now := time.Now().UTC()
	product := &models.Product{
		ID:         uuid.New(),
		Name:       "Candle",
		PriceCents: 500,
		Currency:   "USD",
		IsActive:   true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	require.NoError(t, products.Insert(ctx, product))

	price := int64(500)
	currency := "USD"
	item := &models.CatalogItem{
		ID:         uuid.New(),
		SquareID:   "ITM-int-1",
		Name:       "Candle",
		PriceCents: &price,
		Currency:   &currency,
		Version:    1,
		RawPayload: json.RawMessage(`{"type":"ITEM","id":"ITM-int-1"}`),
		ProductID:  &product.ID,
		SyncedAt:   now,
		UpdatedAt:  now,
	}
	require.NoError(t, items.Insert(ctx, item))

	all, err := items.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	require.NotNil(t, all[0].ProductID)
	assert.Equal(t, product.ID, *all[0].ProductID)

	// Soft-deleted items are excluded unless asked for.
	item.IsDeleted = true
	item.SyncedAt = time.Now().UTC()
	require.NoError(t, items.Update(ctx, item))

	active, err := items.List(ctx, 10, 0, false)
	require.NoError(t, err)
	assert.Empty(t, active)

	withDeleted, err := items.List(ctx, 10, 0, true)
	require.NoError(t, err)
	assert.Len(t, withDeleted, 1)

	everything, err := items.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, everything, 1)
}

func TestCommunicationRepository(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test")
	}

	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	repo := NewCommunicationRepository(pool)

	now := time.Now().UTC()
	inbound := &models.Communication{
		ID:        uuid.New(),
		Channel:   "chat",
		Direction: models.CommunicationDirectionInbound,
		Status:    "received",
		Body:      "first message",
		Meta:      map[string]any{"source": "widget"},
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, repo.Create(ctx, inbound))

	outbound := &models.Communication{
		ID:        uuid.New(),
		Channel:   "email",
		Direction: models.CommunicationDirectionOutbound,
		Status:    "sent",
		Body:      "reply",
		IsRead:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, repo.Create(ctx, outbound))

	chat := "chat"
	filtered, err := repo.List(ctx, &CommunicationFilters{Channel: &chat, Limit: 10})
	require.NoError(t, err)
	require.Len(t, filtered, 1)
	assert.Equal(t, inbound.ID, filtered[0].ID)

	count, err := repo.UnreadCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	got, err := repo.GetByID(ctx, inbound.ID)
	require.NoError(t, err)
	got.IsRead = true
	got.Status = "handled"
	require.NoError(t, repo.Update(ctx, got))

	count, err = repo.UnreadCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}
