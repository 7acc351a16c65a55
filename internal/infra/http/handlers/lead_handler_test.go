package handlers

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/James-lakeshore/generac-crm-backend/internal/entity"
	"github.com/James-lakeshore/generac-crm-backend/internal/usecase"
)

type MockLeadRepository struct {
	mock.Mock
}

func (m *MockLeadRepository) Create(ctx context.Context, lead *entity.Lead) error {
	args := m.Called(ctx, lead)
	return args.Error(0)
}

func (m *MockLeadRepository) CreateIdempotent(ctx context.Context, lead *entity.Lead) (*entity.Lead, bool, error) {
	args := m.Called(ctx, lead)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).(*entity.Lead), args.Bool(1), args.Error(2)
}

func (m *MockLeadRepository) FindByID(ctx context.Context, id string) (*entity.Lead, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Lead), args.Error(1)
}

func (m *MockLeadRepository) List(ctx context.Context, filter entity.LeadFilter) ([]*entity.Lead, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entity.Lead), args.Error(1)
}

func (m *MockLeadRepository) UpdateStatus(ctx context.Context, id, status string) (*entity.Lead, error) {
	args := m.Called(ctx, id, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Lead), args.Error(1)
}

var testStatuses = entity.ParseStatusSet("")

func newLeadHandler(repo entity.LeadRepositoryInterface) *LeadHandler {
	createUC := usecase.NewCreateLeadUseCase(repo, testStatuses, nil)
	return NewLeadHandler(repo, createUC, testStatuses)
}

// routeRequest runs the request through a chi router so URL params resolve.
func routeRequest(h *LeadHandler, r *http.Request) *httptest.ResponseRecorder {
	router := chi.NewRouter()
	router.Get("/api/leads", h.List)
	router.Get("/api/leads.csv", h.ExportCSV)
	router.Get("/api/leads/{id}", h.Get)
	router.Post("/api/leads", h.Create)
	router.Patch("/api/leads/{id}", h.UpdateStatus)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)
	return w
}

func TestListNoStore(t *testing.T) {
	h := newLeadHandler(nil)
	w := routeRequest(h, httptest.NewRequest("GET", "/api/leads", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"ok":true,"count":0,"leads":[]}`, w.Body.String())
}

func TestListPassesFilter(t *testing.T) {
	repo := new(MockLeadRepository)
	repo.On("List", mock.Anything, entity.LeadFilter{Status: "contacted", Query: "ann", Limit: 200}).
		Return([]*entity.Lead{{ID: "lead-1", Name: "Ann", Meta: entity.Meta{}}}, nil)

	h := newLeadHandler(repo)
	w := routeRequest(h, httptest.NewRequest("GET", "/api/leads?status=contacted&q=ann", nil))

	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		OK    bool           `json:"ok"`
		Count int            `json:"count"`
		Leads []*entity.Lead `json:"leads"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.True(t, resp.OK)
	assert.Equal(t, 1, resp.Count)
	assert.Equal(t, "Ann", resp.Leads[0].Name)
	repo.AssertExpectations(t)
}

func TestGetUnknownID(t *testing.T) {
	repo := new(MockLeadRepository)
	id := uuid.New().String()
	repo.On("FindByID", mock.Anything, id).Return(nil, entity.ErrLeadNotFound)

	h := newLeadHandler(repo)
	w := routeRequest(h, httptest.NewRequest("GET", "/api/leads/"+id, nil))

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetMalformedID(t *testing.T) {
	repo := new(MockLeadRepository)
	h := newLeadHandler(repo)

	w := routeRequest(h, httptest.NewRequest("GET", "/api/leads/not-a-uuid", nil))

	assert.Equal(t, http.StatusNotFound, w.Code)
	repo.AssertNotCalled(t, "FindByID", mock.Anything, mock.Anything)
}

func TestCreateNoStore(t *testing.T) {
	h := newLeadHandler(nil)
	body := bytes.NewReader([]byte(`{"name":"Ann"}`))

	w := routeRequest(h, httptest.NewRequest("POST", "/api/leads", body))

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestCreateLead(t *testing.T) {
	repo := new(MockLeadRepository)
	repo.On("Create", mock.Anything, mock.MatchedBy(func(l *entity.Lead) bool {
		return l.Name == "Ann" && l.Source == entity.SourceAPI && l.Status == "new"
	})).Return(nil)

	h := newLeadHandler(repo)
	body := bytes.NewReader([]byte(`{"name":"Ann","email":"a@x.com"}`))
	w := routeRequest(h, httptest.NewRequest("POST", "/api/leads", body))

	assert.Equal(t, http.StatusCreated, w.Code)
	repo.AssertExpectations(t)
}

func TestCreateBadJSON(t *testing.T) {
	h := newLeadHandler(new(MockLeadRepository))
	w := routeRequest(h, httptest.NewRequest("POST", "/api/leads", bytes.NewReader([]byte("{nope"))))

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUpdateStatusValidation(t *testing.T) {
	repo := new(MockLeadRepository)
	h := newLeadHandler(repo)
	id := uuid.New().String()

	for name, body := range map[string]string{
		"missing status": `{}`,
		"invalid status": `{"status":"archived"}`,
		"wrong type":     `{"status":""}`,
	} {
		t.Run(name, func(t *testing.T) {
			w := routeRequest(h, httptest.NewRequest("PATCH", "/api/leads/"+id, bytes.NewReader([]byte(body))))
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}

	// Invalid transitions never touch the store.
	repo.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything)
}

func TestUpdateStatus(t *testing.T) {
	repo := new(MockLeadRepository)
	id := uuid.New().String()
	repo.On("UpdateStatus", mock.Anything, id, "contacted").
		Return(&entity.Lead{ID: id, Status: "contacted", Meta: entity.Meta{}}, nil)

	h := newLeadHandler(repo)
	w := routeRequest(h, httptest.NewRequest("PATCH", "/api/leads/"+id, bytes.NewReader([]byte(`{"status":"contacted"}`))))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"contacted"`)
}

func TestUpdateStatusUnknownLead(t *testing.T) {
	repo := new(MockLeadRepository)
	id := uuid.New().String()
	repo.On("UpdateStatus", mock.Anything, id, "contacted").Return(nil, entity.ErrLeadNotFound)

	h := newLeadHandler(repo)
	w := routeRequest(h, httptest.NewRequest("PATCH", "/api/leads/"+id, bytes.NewReader([]byte(`{"status":"contacted"}`))))

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestExportCSVNoStore(t *testing.T) {
	h := newLeadHandler(nil)
	w := routeRequest(h, httptest.NewRequest("GET", "/api/leads.csv", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "no data", w.Body.String())
}

func TestExportCSVQuotingRoundTrip(t *testing.T) {
	tricky := "hello, \"world\"\nsecond line"
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)

	repo := new(MockLeadRepository)
	repo.On("List", mock.Anything, entity.LeadFilter{Limit: 5000}).Return([]*entity.Lead{
		{
			ID: "lead-1", Name: tricky, Email: "a@x.com", Message: "plain",
			Source: "tally", Status: "new", CreatedAt: now, UpdatedAt: now,
		},
	}, nil)

	h := newLeadHandler(repo)
	w := routeRequest(h, httptest.NewRequest("GET", "/api/leads.csv", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/csv", w.Header().Get("Content-Type"))

	records, err := csv.NewReader(bytes.NewReader(w.Body.Bytes())).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, []string{"id", "name", "email", "phone", "message", "source", "status", "createdAt", "updatedAt"}, records[0])
	assert.Equal(t, tricky, records[1][1], "quoted value must survive a round trip")
	assert.Equal(t, "2026-09-01T12:00:00Z", records[1][7])
}
