package uptime

import (
	"testing"
	"time"

	"github.com/bissquit/statusboard/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2024, 5, 20, 12, 0, 0, 0, time.UTC)

func incident(start, end time.Duration, status domain.ServiceStatus) domain.IncidentLog {
	log := domain.IncidentLog{
		StartedAt: now.Add(-start),
		Status:    status,
	}
	if end >= 0 {
		finished := now.Add(-end)
		log.FinishedAt = &finished
	}
	return log
}

// openFor returns an ongoing incident started the given duration ago.
func openFor(d time.Duration) domain.IncidentLog {
	return incident(d, -1, domain.ServiceStatusMajorOutage)
}

func TestCompute(t *testing.T) {
	const window = 240 * time.Hour

	tests := []struct {
		name         string
		logs         []domain.IncidentLog
		wantPercent  float64
		wantDowntime float64
	}{
		{
			name:        "no logs",
			wantPercent: 100,
		},
		{
			name:         "open log spanning the window",
			logs:         []domain.IncidentLog{openFor(300 * time.Hour)},
			wantPercent:  0,
			wantDowntime: 240,
		},
		{
			name:         "closed log inside the window",
			logs:         []domain.IncidentLog{incident(48*time.Hour, 24*time.Hour, domain.ServiceStatusPartialOutage)},
			wantPercent:  90,
			wantDowntime: 24,
		},
		{
			name:         "log clipped at window start",
			logs:         []domain.IncidentLog{incident(250*time.Hour, 238*time.Hour, domain.ServiceStatusMajorOutage)},
			wantPercent:  99.17,
			wantDowntime: 2,
		},
		{
			name:         "open log counts until now",
			logs:         []domain.IncidentLog{openFor(6 * time.Hour)},
			wantPercent:  97.5,
			wantDowntime: 6,
		},
		{
			name:        "log before the window is ignored",
			logs:        []domain.IncidentLog{incident(400*time.Hour, 300*time.Hour, domain.ServiceStatusMajorOutage)},
			wantPercent: 100,
		},
		{
			name:         "one hour rounds to two places",
			logs:         []domain.IncidentLog{incident(2*time.Hour, time.Hour, domain.ServiceStatusDegradedPerformance)},
			wantPercent:  99.58,
			wantDowntime: 1,
		},
		{
			name: "overlapping logs are clamped at zero",
			logs: []domain.IncidentLog{
				openFor(500 * time.Hour),
				incident(400*time.Hour, 0, domain.ServiceStatusPartialOutage),
			},
			wantPercent:  0,
			wantDowntime: 480,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			report := Compute(tt.logs, now, window)
			assert.Equal(t, 240, report.WindowHours)
			assert.InDelta(t, tt.wantPercent, report.UptimePercent, 0.0001)
			assert.InDelta(t, tt.wantDowntime, report.DowntimeHours, 0.0001)
		})
	}
}

func TestCompute_RoundsHalfAwayFromZero(t *testing.T) {
	// 1h of 3h down: 66.666...%
	report := Compute([]domain.IncidentLog{incident(time.Hour, 0, domain.ServiceStatusMajorOutage)}, now, 3*time.Hour)
	assert.InDelta(t, 66.67, report.UptimePercent, 0.0001)

	// 9 minutes of 24h down: 99.375%
	report = Compute([]domain.IncidentLog{incident(9*time.Minute, 0, domain.ServiceStatusMajorOutage)}, now, 24*time.Hour)
	assert.InDelta(t, 99.38, report.UptimePercent, 0.0001)
}

func TestCompute_EmptyWindow(t *testing.T) {
	report := Compute([]domain.IncidentLog{openFor(time.Hour)}, now, 0)
	assert.Equal(t, 100.0, report.UptimePercent)
}

func TestResolveWindow(t *testing.T) {
	hours, err := ResolveWindow(0)
	require.NoError(t, err)
	assert.Equal(t, DefaultWindowHours, hours)

	hours, err = ResolveWindow(-5)
	require.NoError(t, err)
	assert.Equal(t, DefaultWindowHours, hours)

	hours, err = ResolveWindow(MaxWindowHours)
	require.NoError(t, err)
	assert.Equal(t, MaxWindowHours, hours)

	_, err = ResolveWindow(MaxWindowHours + 1)
	assert.ErrorIs(t, err, ErrInvalidWindow)
}

func TestTimeline_NoLogs(t *testing.T) {
	buckets := Timeline(nil, now, 240*time.Hour)

	require.Len(t, buckets, 240)
	assert.Equal(t, now.Add(-240*time.Hour), buckets[0].Start)
	assert.Equal(t, now.Add(-time.Hour), buckets[239].Start)
	for _, b := range buckets {
		assert.Equal(t, domain.ServiceStatusOperational, b.Status)
	}
}

func TestTimeline_MarksOverlappedHours(t *testing.T) {
	logs := []domain.IncidentLog{
		incident(150*time.Minute, 90*time.Minute, domain.ServiceStatusMajorOutage),
	}

	buckets := Timeline(logs, now, 3*time.Hour)

	require.Len(t, buckets, 3)
	assert.Equal(t, domain.ServiceStatusMajorOutage, buckets[0].Status)
	assert.Equal(t, domain.ServiceStatusMajorOutage, buckets[1].Status)
	assert.Equal(t, domain.ServiceStatusOperational, buckets[2].Status)
}

func TestTimeline_MostSevereWins(t *testing.T) {
	logs := []domain.IncidentLog{
		incident(50*time.Minute, 40*time.Minute, domain.ServiceStatusPartialOutage),
		incident(30*time.Minute, 20*time.Minute, domain.ServiceStatusDegradedPerformance),
	}

	buckets := Timeline(logs, now, 2*time.Hour)

	require.Len(t, buckets, 2)
	assert.Equal(t, domain.ServiceStatusOperational, buckets[0].Status)
	assert.Equal(t, domain.ServiceStatusPartialOutage, buckets[1].Status)
}

func TestTimeline_BoundaryIsExclusive(t *testing.T) {
	logs := []domain.IncidentLog{
		incident(3*time.Hour, 2*time.Hour, domain.ServiceStatusMajorOutage),
	}

	buckets := Timeline(logs, now, 3*time.Hour)

	assert.Equal(t, domain.ServiceStatusMajorOutage, buckets[0].Status)
	assert.Equal(t, domain.ServiceStatusOperational, buckets[1].Status)
}

func TestTimeline_OpenIncidentReachesNow(t *testing.T) {
	buckets := Timeline([]domain.IncidentLog{openFor(90 * time.Minute)}, now, 4*time.Hour)

	require.Len(t, buckets, 4)
	assert.Equal(t, domain.ServiceStatusOperational, buckets[1].Status)
	assert.Equal(t, domain.ServiceStatusMajorOutage, buckets[2].Status)
	assert.Equal(t, domain.ServiceStatusMajorOutage, buckets[3].Status)
}
