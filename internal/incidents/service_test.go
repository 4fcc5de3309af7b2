package incidents

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bissquit/statusboard/internal/catalog"
	"github.com/bissquit/statusboard/internal/domain"
	"github.com/bissquit/statusboard/internal/pkg/httputil"
	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockRepository struct {
	logs       []domain.IncidentLog
	lastFilter LogFilter
	listErr    error
}

func (m *mockRepository) CreateLogTx(_ context.Context, _ pgx.Tx, _ *domain.IncidentLog) error {
	return errors.New("not supported")
}

func (m *mockRepository) GetOpenLogTx(_ context.Context, _ pgx.Tx, _, _ string) (*domain.IncidentLog, error) {
	return nil, errors.New("not supported")
}

func (m *mockRepository) CloseLogTx(_ context.Context, _ pgx.Tx, _ *domain.IncidentLog, _ time.Time) error {
	return errors.New("not supported")
}

func (m *mockRepository) ListLogsByService(_ context.Context, companyID, serviceID string, filter LogFilter) ([]domain.IncidentLog, error) {
	m.lastFilter = filter
	if m.listErr != nil {
		return nil, m.listErr
	}
	result := make([]domain.IncidentLog, 0)
	for _, l := range m.logs {
		if l.CompanyID == companyID && l.ServiceID == serviceID {
			result = append(result, l)
		}
	}
	return result, nil
}

func (m *mockRepository) CountLogsByService(ctx context.Context, companyID, serviceID string) (int, error) {
	logs, err := m.ListLogsByService(ctx, companyID, serviceID, LogFilter{})
	return len(logs), err
}

func (m *mockRepository) ListLogsByCompany(_ context.Context, companyID string, filter LogFilter) ([]Event, error) {
	m.lastFilter = filter
	result := make([]Event, 0)
	for _, l := range m.logs {
		if l.CompanyID == companyID {
			result = append(result, Event{IncidentLog: l, ServiceName: "API"})
		}
	}
	if filter.Offset >= len(result) {
		return []Event{}, nil
	}
	result = result[filter.Offset:]
	if filter.Limit > 0 && filter.Limit < len(result) {
		result = result[:filter.Limit]
	}
	return result, nil
}

func (m *mockRepository) CountLogsByCompany(_ context.Context, companyID string) (int, error) {
	count := 0
	for _, l := range m.logs {
		if l.CompanyID == companyID {
			count++
		}
	}
	return count, nil
}

type stubServices struct {
	known map[string]string // service id -> company id
}

func (s *stubServices) GetService(_ context.Context, companyID, id string) (*domain.Service, error) {
	if owner, ok := s.known[id]; !ok || owner != companyID {
		return nil, catalog.ErrServiceNotFound
	}
	return &domain.Service{}, nil
}

func newLog(companyID, serviceID string) domain.IncidentLog {
	return domain.IncidentLog{
		CompanyScoped: domain.CompanyScoped{CompanyID: companyID},
		ServiceID:     serviceID,
		StartedAt:     time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Status:        domain.ServiceStatusMajorOutage,
	}
}

func TestListServiceLogs(t *testing.T) {
	repo := &mockRepository{logs: []domain.IncidentLog{
		newLog("c1", "s1"),
		newLog("c1", "s1"),
		newLog("c1", "s2"),
	}}
	svc := NewService(repo, &stubServices{known: map[string]string{"s1": "c1"}})

	page, err := svc.ListServiceLogs(context.Background(), "c1", "s1", httputil.Pagination{Limit: 50, Offset: 5})
	require.NoError(t, err)

	assert.Len(t, page.Logs, 2)
	assert.Equal(t, 2, page.Total)
	assert.Equal(t, 50, page.Limit)
	assert.Equal(t, 5, page.Offset)
	assert.Equal(t, LogFilter{Limit: 50, Offset: 5}, repo.lastFilter)
}

func TestListServiceLogs_ForeignService(t *testing.T) {
	svc := NewService(&mockRepository{}, &stubServices{known: map[string]string{"s1": "c1"}})

	_, err := svc.ListServiceLogs(context.Background(), "c2", "s1", httputil.Pagination{Limit: 10})
	assert.ErrorIs(t, err, catalog.ErrServiceNotFound)
}

func TestListServiceLogs_RepositoryError(t *testing.T) {
	repo := &mockRepository{listErr: errors.New("boom")}
	svc := NewService(repo, &stubServices{known: map[string]string{"s1": "c1"}})

	_, err := svc.ListServiceLogs(context.Background(), "c1", "s1", httputil.Pagination{Limit: 10})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "list service logs")
}

func TestRecentEvents_PassesLimit(t *testing.T) {
	repo := &mockRepository{logs: []domain.IncidentLog{newLog("c1", "s1"), newLog("c2", "s1")}}
	svc := NewService(repo, &stubServices{})

	events, err := svc.RecentEvents(context.Background(), "c1", 10)
	require.NoError(t, err)

	require.Len(t, events, 1)
	assert.Equal(t, "API", events[0].ServiceName)
	assert.Equal(t, 10, repo.lastFilter.Limit)
}

func TestHandler_ListEvents_InvalidLimit(t *testing.T) {
	h := NewHandler(NewService(&mockRepository{}, &stubServices{}))
	r := chi.NewRouter()
	h.RegisterRoutes(r)

	req := httptest.NewRequest(http.MethodGet, "/events?limit=0", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandler_ListEvents_CapsLimit(t *testing.T) {
	repo := &mockRepository{}
	h := NewHandler(NewService(repo, &stubServices{}))
	r := chi.NewRouter()
	h.RegisterRoutes(r)

	req := httptest.NewRequest(http.MethodGet, "/events?limit=500", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, MaxEventsLimit, repo.lastFilter.Limit)
}

func TestHandler_ListServiceLogs_NotFound(t *testing.T) {
	h := NewHandler(NewService(&mockRepository{}, &stubServices{}))
	r := chi.NewRouter()
	h.RegisterRoutes(r)

	req := httptest.NewRequest(http.MethodGet, "/services/unknown/logs", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListCompanyEvents(t *testing.T) {
	logs := make([]domain.IncidentLog, 0, 15)
	for i := 0; i < 15; i++ {
		logs = append(logs, newLog("c1", "s1"))
	}
	logs = append(logs, newLog("c2", "s1"))
	svc := NewService(&mockRepository{logs: logs}, &stubServices{})

	t.Run("zero limit returns full history", func(t *testing.T) {
		page, err := svc.ListCompanyEvents(context.Background(), "c1", httputil.Pagination{})
		require.NoError(t, err)
		assert.Len(t, page.Events, 15)
		assert.Equal(t, 15, page.Total)
	})

	t.Run("limit and offset", func(t *testing.T) {
		page, err := svc.ListCompanyEvents(context.Background(), "c1", httputil.Pagination{Limit: 10, Offset: 10})
		require.NoError(t, err)
		assert.Len(t, page.Events, 5)
		assert.Equal(t, 15, page.Total)
		assert.Equal(t, 10, page.Limit)
		assert.Equal(t, 10, page.Offset)
	})
}
