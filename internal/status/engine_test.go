package status

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bissquit/statusboard/internal/catalog"
	"github.com/bissquit/statusboard/internal/domain"
	"github.com/bissquit/statusboard/internal/incidents"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeTx buffers writes until Commit, so a rolled back call leaves the store untouched.
type fakeTx struct {
	pgx.Tx
	pending    []func()
	committed  bool
	rolledBack bool
	commitErr  error
}

func (tx *fakeTx) Commit(_ context.Context) error {
	if tx.commitErr != nil {
		return tx.commitErr
	}
	for _, apply := range tx.pending {
		apply()
	}
	tx.committed = true
	return nil
}

func (tx *fakeTx) Rollback(_ context.Context) error {
	if tx.committed || tx.rolledBack {
		return pgx.ErrTxClosed
	}
	tx.rolledBack = true
	tx.pending = nil
	return nil
}

// fakeStore implements ServiceStore and LogStore in memory.
type fakeStore struct {
	services map[string]domain.Service
	logs     []domain.IncidentLog

	txs    []*fakeTx
	writes int

	beginErr     error
	createLogErr error
	casConflict  bool
	commitErr    error
}

func newFakeStore(services ...domain.Service) *fakeStore {
	s := &fakeStore{services: make(map[string]domain.Service)}
	for _, svc := range services {
		s.services[svc.ID] = svc
	}
	return s
}

func (s *fakeStore) BeginTx(_ context.Context) (pgx.Tx, error) {
	if s.beginErr != nil {
		return nil, s.beginErr
	}
	tx := &fakeTx{commitErr: s.commitErr}
	s.txs = append(s.txs, tx)
	return tx, nil
}

func (s *fakeStore) lastTx() *fakeTx {
	if len(s.txs) == 0 {
		return nil
	}
	return s.txs[len(s.txs)-1]
}

func (s *fakeStore) GetServiceForUpdateTx(_ context.Context, _ pgx.Tx, companyID, id string) (*domain.Service, error) {
	svc, ok := s.services[id]
	if !ok || svc.CompanyID != companyID || svc.IsDeleted() {
		return nil, catalog.ErrServiceNotFound
	}
	return &svc, nil
}

func (s *fakeStore) UpdateServiceStatusTx(_ context.Context, tx pgx.Tx, service *domain.Service, expected domain.ServiceStatus) error {
	s.writes++
	if s.casConflict || s.services[service.ID].Status != expected {
		return catalog.ErrStatusChanged
	}
	updated := *service
	ftx := tx.(*fakeTx)
	ftx.pending = append(ftx.pending, func() { s.services[updated.ID] = updated })
	return nil
}

func (s *fakeStore) CreateLogTx(_ context.Context, tx pgx.Tx, log *domain.IncidentLog) error {
	s.writes++
	if s.createLogErr != nil {
		return s.createLogErr
	}
	created := *log
	ftx := tx.(*fakeTx)
	ftx.pending = append(ftx.pending, func() { s.logs = append(s.logs, created) })
	return nil
}

func (s *fakeStore) GetOpenLogTx(_ context.Context, _ pgx.Tx, companyID, serviceID string) (*domain.IncidentLog, error) {
	for _, l := range s.logs {
		if l.CompanyID == companyID && l.ServiceID == serviceID && l.IsOpen() {
			found := l
			return &found, nil
		}
	}
	return nil, incidents.ErrLogNotFound
}

func (s *fakeStore) CloseLogTx(_ context.Context, tx pgx.Tx, log *domain.IncidentLog, finishedAt time.Time) error {
	s.writes++
	id := log.ID
	log.FinishedAt = &finishedAt
	ftx := tx.(*fakeTx)
	ftx.pending = append(ftx.pending, func() {
		for i := range s.logs {
			if s.logs[i].ID == id {
				s.logs[i].FinishedAt = &finishedAt
			}
		}
	})
	return nil
}

func (s *fakeStore) openLogs(serviceID string) []domain.IncidentLog {
	var open []domain.IncidentLog
	for _, l := range s.logs {
		if l.ServiceID == serviceID && l.IsOpen() {
			open = append(open, l)
		}
	}
	return open
}

type recordingNotifier struct {
	transitions []Transition
	err         error
}

func (n *recordingNotifier) OnStatusChanged(_ context.Context, t Transition) error {
	n.transitions = append(n.transitions, t)
	return n.err
}

var baseTime = time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

func testService(status domain.ServiceStatus) domain.Service {
	return domain.Service{
		CompanyScoped: domain.CompanyScoped{
			AuditRecord: domain.AuditRecord{ID: "svc-1"},
			CompanyID:   "company-1",
		},
		Name:   "API",
		Status: status,
	}
}

func newTestEngine(store *fakeStore, notifiers ...ChangeNotifier) (*Engine, *time.Time) {
	clock := baseTime
	e := NewEngine(store, store, notifiers...)
	e.now = func() time.Time { return clock }
	return e, &clock
}

func TestChangeStatus_OperationalToDegradedOpensLog(t *testing.T) {
	store := newFakeStore(testService(domain.ServiceStatusOperational))
	notifier := &recordingNotifier{}
	engine, _ := newTestEngine(store, notifier)

	svc, err := engine.ChangeStatus(context.Background(), "company-1", "svc-1", ChangeStatusInput{
		Status:    domain.ServiceStatusMajorOutage,
		Reason:    "db down",
		ChangedBy: "user-1",
	})
	require.NoError(t, err)

	assert.Equal(t, domain.ServiceStatusMajorOutage, svc.Status)
	assert.Equal(t, domain.ServiceStatusMajorOutage, store.services["svc-1"].Status)
	assert.True(t, store.lastTx().committed)

	require.Len(t, store.logs, 1)
	log := store.logs[0]
	assert.NotEmpty(t, log.ID)
	assert.Equal(t, "company-1", log.CompanyID)
	assert.Equal(t, "svc-1", log.ServiceID)
	assert.Equal(t, baseTime, log.StartedAt)
	assert.Nil(t, log.FinishedAt)
	assert.Equal(t, "db down", log.Reason)
	assert.Equal(t, domain.ServiceStatusMajorOutage, log.Status)

	require.Len(t, notifier.transitions, 1)
	tr := notifier.transitions[0]
	assert.Equal(t, domain.ServiceStatusOperational, tr.From)
	assert.Equal(t, domain.ServiceStatusMajorOutage, tr.To)
	assert.Equal(t, "user-1", tr.ChangedBy)
	assert.NotNil(t, tr.Opened)
	assert.Nil(t, tr.Closed)
}

func TestChangeStatus_SameStatusIsNoChange(t *testing.T) {
	store := newFakeStore(testService(domain.ServiceStatusPartialOutage))
	engine, _ := newTestEngine(store)

	_, err := engine.ChangeStatus(context.Background(), "company-1", "svc-1", ChangeStatusInput{
		Status: domain.ServiceStatusPartialOutage,
		Reason: "still broken",
	})
	assert.ErrorIs(t, err, ErrNoChange)
	assert.Zero(t, store.writes)
	assert.Empty(t, store.logs)
	assert.True(t, store.lastTx().rolledBack)
}

func TestChangeStatus_DegradingRequiresReason(t *testing.T) {
	for _, reason := range []string{"", "   ", "<b></b>"} {
		store := newFakeStore(testService(domain.ServiceStatusOperational))
		engine, _ := newTestEngine(store)

		_, err := engine.ChangeStatus(context.Background(), "company-1", "svc-1", ChangeStatusInput{
			Status: domain.ServiceStatusDegradedPerformance,
			Reason: reason,
		})
		assert.ErrorIs(t, err, ErrReasonRequired, "reason %q", reason)
		assert.Zero(t, store.writes)
		assert.Empty(t, store.logs)
		assert.Equal(t, domain.ServiceStatusOperational, store.services["svc-1"].Status)
	}
}

func TestChangeStatus_RecoveryClosesOpenLog(t *testing.T) {
	store := newFakeStore(testService(domain.ServiceStatusOperational))
	engine, clock := newTestEngine(store)

	_, err := engine.ChangeStatus(context.Background(), "company-1", "svc-1", ChangeStatusInput{
		Status: domain.ServiceStatusPartialOutage,
		Reason: "packet loss",
	})
	require.NoError(t, err)

	*clock = baseTime.Add(90 * time.Minute)
	svc, err := engine.ChangeStatus(context.Background(), "company-1", "svc-1", ChangeStatusInput{
		Status: domain.ServiceStatusOperational,
	})
	require.NoError(t, err)

	assert.Equal(t, domain.ServiceStatusOperational, svc.Status)
	require.Len(t, store.logs, 1)
	require.NotNil(t, store.logs[0].FinishedAt)
	assert.Equal(t, baseTime.Add(90*time.Minute), *store.logs[0].FinishedAt)
	assert.Empty(t, store.openLogs("svc-1"))
}

func TestChangeStatus_RecoveryWithoutOpenLog(t *testing.T) {
	store := newFakeStore(testService(domain.ServiceStatusMajorOutage))
	engine, _ := newTestEngine(store)

	svc, err := engine.ChangeStatus(context.Background(), "company-1", "svc-1", ChangeStatusInput{
		Status: domain.ServiceStatusOperational,
	})
	require.NoError(t, err)

	assert.Equal(t, domain.ServiceStatusOperational, svc.Status)
	assert.Empty(t, store.logs)
}

func TestChangeStatus_DegradedToDegradedReopens(t *testing.T) {
	store := newFakeStore(testService(domain.ServiceStatusOperational))
	notifier := &recordingNotifier{}
	engine, clock := newTestEngine(store, notifier)

	_, err := engine.ChangeStatus(context.Background(), "company-1", "svc-1", ChangeStatusInput{
		Status: domain.ServiceStatusDegradedPerformance,
		Reason: "slow queries",
	})
	require.NoError(t, err)

	*clock = baseTime.Add(time.Hour)
	_, err = engine.ChangeStatus(context.Background(), "company-1", "svc-1", ChangeStatusInput{
		Status: domain.ServiceStatusMajorOutage,
	})
	require.NoError(t, err)

	require.Len(t, store.logs, 2)
	first, second := store.logs[0], store.logs[1]

	require.NotNil(t, first.FinishedAt)
	assert.Equal(t, baseTime.Add(time.Hour), *first.FinishedAt)
	assert.Equal(t, domain.ServiceStatusDegradedPerformance, first.Status)

	assert.Nil(t, second.FinishedAt)
	assert.Equal(t, baseTime.Add(time.Hour), second.StartedAt)
	assert.Equal(t, domain.ServiceStatusMajorOutage, second.Status)
	assert.Equal(t, "slow queries", second.Reason)

	assert.Len(t, store.openLogs("svc-1"), 1)

	tr := notifier.transitions[1]
	assert.NotNil(t, tr.Opened)
	assert.NotNil(t, tr.Closed)
	assert.Equal(t, "slow queries", tr.Reason)
}

func TestChangeStatus_DegradedToDegradedWithNewReason(t *testing.T) {
	store := newFakeStore(testService(domain.ServiceStatusOperational))
	engine, _ := newTestEngine(store)

	_, err := engine.ChangeStatus(context.Background(), "company-1", "svc-1", ChangeStatusInput{
		Status: domain.ServiceStatusPartialOutage,
		Reason: "one region",
	})
	require.NoError(t, err)

	_, err = engine.ChangeStatus(context.Background(), "company-1", "svc-1", ChangeStatusInput{
		Status: domain.ServiceStatusMajorOutage,
		Reason: "all regions",
	})
	require.NoError(t, err)

	open := store.openLogs("svc-1")
	require.Len(t, open, 1)
	assert.Equal(t, "all regions", open[0].Reason)
}

func TestChangeStatus_InvalidStatus(t *testing.T) {
	store := newFakeStore(testService(domain.ServiceStatusOperational))
	engine, _ := newTestEngine(store)

	for _, status := range []domain.ServiceStatus{"", "maintenance", "OPERATIONAL"} {
		_, err := engine.ChangeStatus(context.Background(), "company-1", "svc-1", ChangeStatusInput{
			Status: status,
			Reason: "x",
		})
		assert.ErrorIs(t, err, ErrInvalidStatus)
	}
	assert.Empty(t, store.txs)
}

func TestChangeStatus_ServiceNotFound(t *testing.T) {
	deleted := testService(domain.ServiceStatusOperational)
	deleted.ID = "svc-deleted"
	deletedAt := baseTime
	deleted.DeletedAt = &deletedAt

	store := newFakeStore(testService(domain.ServiceStatusOperational), deleted)
	engine, _ := newTestEngine(store)

	tests := []struct {
		name      string
		companyID string
		serviceID string
	}{
		{"unknown id", "company-1", "missing"},
		{"foreign tenant", "company-2", "svc-1"},
		{"deleted", "company-1", "svc-deleted"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := engine.ChangeStatus(context.Background(), tt.companyID, tt.serviceID, ChangeStatusInput{
				Status: domain.ServiceStatusMajorOutage,
				Reason: "db down",
			})
			assert.ErrorIs(t, err, ErrServiceNotFound)
		})
	}
	assert.Zero(t, store.writes)
}

func TestChangeStatus_LostCompareAndSwap(t *testing.T) {
	store := newFakeStore(testService(domain.ServiceStatusOperational))
	store.casConflict = true
	engine, _ := newTestEngine(store)

	_, err := engine.ChangeStatus(context.Background(), "company-1", "svc-1", ChangeStatusInput{
		Status: domain.ServiceStatusMajorOutage,
		Reason: "db down",
	})
	assert.ErrorIs(t, err, ErrConcurrentModification)
	assert.True(t, store.lastTx().rolledBack)
	assert.Empty(t, store.logs)
	assert.Equal(t, domain.ServiceStatusOperational, store.services["svc-1"].Status)
}

func TestChangeStatus_DuplicateOpenLog(t *testing.T) {
	store := newFakeStore(testService(domain.ServiceStatusOperational))
	store.createLogErr = incidents.ErrOpenLogExists
	engine, _ := newTestEngine(store)

	_, err := engine.ChangeStatus(context.Background(), "company-1", "svc-1", ChangeStatusInput{
		Status: domain.ServiceStatusMajorOutage,
		Reason: "db down",
	})
	assert.ErrorIs(t, err, ErrConcurrentModification)
	assert.Equal(t, domain.ServiceStatusOperational, store.services["svc-1"].Status)
}

func TestChangeStatus_PersistenceErrors(t *testing.T) {
	boom := errors.New("connection reset")

	tests := []struct {
		name  string
		setup func(s *fakeStore)
		op    string
	}{
		{"begin", func(s *fakeStore) { s.beginErr = boom }, "begin transaction"},
		{"create log", func(s *fakeStore) { s.createLogErr = boom }, "open incident"},
		{"commit", func(s *fakeStore) { s.commitErr = boom }, "commit"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newFakeStore(testService(domain.ServiceStatusOperational))
			tt.setup(store)
			engine, _ := newTestEngine(store)

			_, err := engine.ChangeStatus(context.Background(), "company-1", "svc-1", ChangeStatusInput{
				Status: domain.ServiceStatusMajorOutage,
				Reason: "db down",
			})

			var pe *PersistenceError
			require.ErrorAs(t, err, &pe)
			assert.Equal(t, tt.op, pe.Op)
			assert.ErrorIs(t, err, boom)
			assert.Empty(t, store.logs)
			assert.Equal(t, domain.ServiceStatusOperational, store.services["svc-1"].Status)
		})
	}
}

func TestChangeStatus_NotifierFailureDoesNotFail(t *testing.T) {
	store := newFakeStore(testService(domain.ServiceStatusOperational))
	failing := &recordingNotifier{err: errors.New("webhook down")}
	second := &recordingNotifier{}
	engine, _ := newTestEngine(store, failing, second)

	_, err := engine.ChangeStatus(context.Background(), "company-1", "svc-1", ChangeStatusInput{
		Status: domain.ServiceStatusMajorOutage,
		Reason: "db down",
	})
	require.NoError(t, err)
	assert.Len(t, failing.transitions, 1)
	assert.Len(t, second.transitions, 1)
}

func TestChangeStatus_SanitizesReason(t *testing.T) {
	store := newFakeStore(testService(domain.ServiceStatusOperational))
	engine, _ := newTestEngine(store)

	_, err := engine.ChangeStatus(context.Background(), "company-1", "svc-1", ChangeStatusInput{
		Status: domain.ServiceStatusMajorOutage,
		Reason: `<a href="x">db</a> & cache <script>x()</script>`,
	})
	require.NoError(t, err)
	require.Len(t, store.logs, 1)
	assert.Equal(t, "db & cache", store.logs[0].Reason)
}

func TestChangeStatus_AtMostOneOpenLog(t *testing.T) {
	store := newFakeStore(testService(domain.ServiceStatusOperational))
	engine, clock := newTestEngine(store)

	sequence := []domain.ServiceStatus{
		domain.ServiceStatusDegradedPerformance,
		domain.ServiceStatusPartialOutage,
		domain.ServiceStatusPartialOutage,
		domain.ServiceStatusMajorOutage,
		domain.ServiceStatusOperational,
		domain.ServiceStatusOperational,
		domain.ServiceStatusMajorOutage,
		domain.ServiceStatusDegradedPerformance,
		domain.ServiceStatusOperational,
	}

	for i, status := range sequence {
		*clock = baseTime.Add(time.Duration(i) * time.Minute)
		_, err := engine.ChangeStatus(context.Background(), "company-1", "svc-1", ChangeStatusInput{
			Status: status,
			Reason: "step",
		})
		if err != nil {
			require.ErrorIs(t, err, ErrNoChange)
		}

		open := store.openLogs("svc-1")
		assert.LessOrEqual(t, len(open), 1, "step %d", i)
		assert.Equal(t, store.services["svc-1"].Status.IsDegraded(), len(open) == 1, "step %d", i)
	}
}
