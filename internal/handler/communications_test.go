package handler

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sacredflow/backend-go/internal/db"
	"github.com/sacredflow/backend-go/internal/db/models"
	"github.com/sacredflow/backend-go/internal/db/repository"
	"github.com/sacredflow/backend-go/internal/service"
)

type mockCommunicationRepo struct {
	mock.Mock
}

func (m *mockCommunicationRepo) Create(ctx context.Context, comm *models.Communication) error {
	args := m.Called(ctx, comm)
	return args.Error(0)
}

func (m *mockCommunicationRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Communication, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Communication), args.Error(1)
}

func (m *mockCommunicationRepo) List(ctx context.Context, filters *repository.CommunicationFilters) ([]*models.Communication, error) {
	args := m.Called(ctx, filters)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Communication), args.Error(1)
}

func (m *mockCommunicationRepo) Update(ctx context.Context, comm *models.Communication) error {
	args := m.Called(ctx, comm)
	return args.Error(0)
}

func (m *mockCommunicationRepo) UnreadCount(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

type fakeForwarder struct {
	warnings []string
}

func (f *fakeForwarder) ForwardChatMessage(ctx context.Context, comm *models.Communication) []string {
	return f.warnings
}

func newCommsHandler(repo repository.CommunicationRepository, forwarder service.ChatForwarder) *CommunicationsHandler {
	return NewCommunicationsHandler(repo, service.NewCommunicationService(repo, forwarder))
}

func doJSON(t *testing.T, handler gin.HandlerFunc, method, target, body string, params gin.Params) *httptest.ResponseRecorder {
	t.Helper()

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(method, target, bytes.NewReader([]byte(body)))
	c.Request.Header.Set("Content-Type", "application/json")
	c.Params = params

	handler(c)
	return w
}

func TestCommunicationsHandler_ChatIntake(t *testing.T) {
	repo := new(mockCommunicationRepo)
	repo.On("Create", mock.Anything, mock.MatchedBy(func(comm *models.Communication) bool {
		return comm.Channel == "chat" && comm.Direction == models.CommunicationDirectionInbound
	})).Return(nil)

	h := newCommsHandler(repo, &fakeForwarder{})

	w := doJSON(t, h.ChatIntake, http.MethodPost, "/communications/chat/intake",
		`{"body":"hello","contact_email":"guest@example.com"}`, nil)

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.NotContains(t, w.Body.String(), "warnings")
	repo.AssertExpectations(t)
}

func TestCommunicationsHandler_ChatIntake_WarningsSurfaced(t *testing.T) {
	repo := new(mockCommunicationRepo)
	repo.On("Create", mock.Anything, mock.Anything).Return(nil)

	h := newCommsHandler(repo, &fakeForwarder{warnings: []string{"chat forward failed: timeout"}})

	w := doJSON(t, h.ChatIntake, http.MethodPost, "/communications/chat/intake", `{"body":"hello"}`, nil)

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), "chat forward failed")
}

func TestCommunicationsHandler_ChatIntake_MissingBody(t *testing.T) {
	h := newCommsHandler(new(mockCommunicationRepo), &fakeForwarder{})

	w := doJSON(t, h.ChatIntake, http.MethodPost, "/communications/chat/intake", `{"contact_name":"x"}`, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCommunicationsHandler_Create_Validation(t *testing.T) {
	h := newCommsHandler(new(mockCommunicationRepo), &fakeForwarder{})

	w := doJSON(t, h.Create, http.MethodPost, "/communications",
		`{"channel":"email","direction":"sideways","body":"hi"}`, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCommunicationsHandler_Get_NotFound(t *testing.T) {
	repo := new(mockCommunicationRepo)
	repo.On("GetByID", mock.Anything, mock.Anything).Return(nil, db.ErrNotFound)

	h := newCommsHandler(repo, &fakeForwarder{})

	w := doJSON(t, h.Get, http.MethodGet, "/communications/x", "",
		gin.Params{{Key: "id", Value: uuid.NewString()}})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCommunicationsHandler_Get_InvalidID(t *testing.T) {
	h := newCommsHandler(new(mockCommunicationRepo), &fakeForwarder{})

	w := doJSON(t, h.Get, http.MethodGet, "/communications/x", "",
		gin.Params{{Key: "id", Value: "not-a-uuid"}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCommunicationsHandler_Patch(t *testing.T) {
	existing := &models.Communication{
		ID:        uuid.New(),
		Channel:   "chat",
		Direction: models.CommunicationDirectionInbound,
		Status:    "received",
		Body:      "hello",
	}

	repo := new(mockCommunicationRepo)
	repo.On("GetByID", mock.Anything, existing.ID).Return(existing, nil)
	repo.On("Update", mock.Anything, mock.MatchedBy(func(comm *models.Communication) bool {
		return comm.Status == "handled" && comm.IsRead
	})).Return(nil)

	h := newCommsHandler(repo, &fakeForwarder{})

	w := doJSON(t, h.Patch, http.MethodPatch, "/communications/"+existing.ID.String(),
		`{"status":"handled","is_read":true}`,
		gin.Params{{Key: "id", Value: existing.ID.String()}})

	require.Equal(t, http.StatusOK, w.Code)
	repo.AssertExpectations(t)
}

func TestCommunicationsHandler_UnreadCount(t *testing.T) {
	repo := new(mockCommunicationRepo)
	repo.On("UnreadCount", mock.Anything).Return(7, nil)

	h := newCommsHandler(repo, &fakeForwarder{})

	w := doJSON(t, h.UnreadCount, http.MethodGet, "/communications/unread-count", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"unread":7`)
}

func TestCommunicationsHandler_List_FiltersFromQuery(t *testing.T) {
	repo := new(mockCommunicationRepo)
	repo.On("List", mock.Anything, mock.MatchedBy(func(f *repository.CommunicationFilters) bool {
		return f.Channel != nil && *f.Channel == "chat" &&
			f.IsRead != nil && !*f.IsRead &&
			f.Limit == 25 && f.Offset == 5
	})).Return([]*models.Communication{}, nil)

	h := newCommsHandler(repo, &fakeForwarder{})

	w := doJSON(t, h.List, http.MethodGet, "/communications?channel=chat&is_read=false&limit=25&offset=5", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	repo.AssertExpectations(t)
}
