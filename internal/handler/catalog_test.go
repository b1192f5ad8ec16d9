package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sacredflow/backend-go/internal/db/models"
	"github.com/sacredflow/backend-go/internal/db/repository"
	"github.com/sacredflow/backend-go/internal/service"
)

type fakeSyncer struct {
	stats *service.SyncStats
	err   error
}

func (f *fakeSyncer) Sync(ctx context.Context) (*service.SyncStats, error) {
	return f.stats, f.err
}

type mockCatalogItemRepo struct {
	mock.Mock
}

func (m *mockCatalogItemRepo) WithTx(tx pgx.Tx) repository.CatalogItemRepository {
	m.Called(tx)
	return m
}

func (m *mockCatalogItemRepo) ListAll(ctx context.Context) ([]*models.CatalogItem, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.CatalogItem), args.Error(1)
}

func (m *mockCatalogItemRepo) List(ctx context.Context, limit, offset int, includeDeleted bool) ([]*models.CatalogItem, error) {
	args := m.Called(ctx, limit, offset, includeDeleted)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.CatalogItem), args.Error(1)
}

func (m *mockCatalogItemRepo) Insert(ctx context.Context, item *models.CatalogItem) error {
	args := m.Called(ctx, item)
	return args.Error(0)
}

func (m *mockCatalogItemRepo) Update(ctx context.Context, item *models.CatalogItem) error {
	args := m.Called(ctx, item)
	return args.Error(0)
}

func getCatalogItems(t *testing.T, h *CatalogHandler, query string) *httptest.ResponseRecorder {
	t.Helper()

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/square/catalog/items"+query, nil)

	h.ListItems(c)
	return w
}

func TestCatalogHandler_TriggerSync(t *testing.T) {
	syncer := &fakeSyncer{stats: &service.SyncStats{Processed: 5, Created: 2, Environment: "sandbox"}}
	h := NewCatalogHandler(syncer, new(mockCatalogItemRepo))

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/square/catalog/sync", nil)

	h.TriggerSync(c)

	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Contains(t, w.Body.String(), `"processed":5`)
	assert.Contains(t, w.Body.String(), `"environment":"sandbox"`)
}

func TestCatalogHandler_TriggerSync_Conflict(t *testing.T) {
	h := NewCatalogHandler(&fakeSyncer{err: service.ErrSyncInProgress}, new(mockCatalogItemRepo))

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/square/catalog/sync", nil)

	h.TriggerSync(c)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestCatalogHandler_TriggerSync_DatabaseError(t *testing.T) {
	h := NewCatalogHandler(&fakeSyncer{err: assert.AnError}, new(mockCatalogItemRepo))

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/square/catalog/sync", nil)

	h.TriggerSync(c)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestCatalogHandler_TriggerSync_ListingFailureStillAccepted(t *testing.T) {
	syncer := &fakeSyncer{stats: &service.SyncStats{Errors: []string{"square api unreachable"}, Environment: "sandbox"}}
	h := NewCatalogHandler(syncer, new(mockCatalogItemRepo))

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/square/catalog/sync", nil)

	h.TriggerSync(c)

	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Contains(t, w.Body.String(), "square api unreachable")
}

func TestCatalogHandler_ListItems_Defaults(t *testing.T) {
	items := new(mockCatalogItemRepo)
	items.On("List", mock.Anything, 100, 0, false).Return([]*models.CatalogItem{}, nil)

	h := NewCatalogHandler(&fakeSyncer{}, items)

	w := getCatalogItems(t, h, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"count":0`)
	items.AssertExpectations(t)
}

func TestCatalogHandler_ListItems_ParamsPassedThrough(t *testing.T) {
	items := new(mockCatalogItemRepo)
	items.On("List", mock.Anything, 50, 10, true).Return([]*models.CatalogItem{{Name: "Candle"}}, nil)

	h := NewCatalogHandler(&fakeSyncer{}, items)

	w := getCatalogItems(t, h, "?limit=50&offset=10&includeDeleted=true")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Candle")
	items.AssertExpectations(t)
}

func TestCatalogHandler_ListItems_InvalidParams(t *testing.T) {
	h := NewCatalogHandler(&fakeSyncer{}, new(mockCatalogItemRepo))

	tests := []struct {
		name  string
		query string
	}{
		{"limit zero", "?limit=0"},
		{"limit too large", "?limit=501"},
		{"limit not a number", "?limit=abc"},
		{"negative offset", "?offset=-1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := getCatalogItems(t, h, tt.query)
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}
