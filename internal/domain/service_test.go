package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestServiceStatus_IsValid(t *testing.T) {
	tests := []struct {
		status ServiceStatus
		want   bool
	}{
		{ServiceStatusOperational, true},
		{ServiceStatusDegradedPerformance, true},
		{ServiceStatusPartialOutage, true},
		{ServiceStatusMajorOutage, true},
		{"", false},
		{"maintenance", false},
		{"OPERATIONAL", false},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.status.IsValid())
		})
	}
}

func TestServiceStatus_IsDegraded(t *testing.T) {
	assert.False(t, ServiceStatusOperational.IsDegraded())
	assert.True(t, ServiceStatusDegradedPerformance.IsDegraded())
	assert.True(t, ServiceStatusPartialOutage.IsDegraded())
	assert.True(t, ServiceStatusMajorOutage.IsDegraded())
	assert.False(t, ServiceStatus("bogus").IsDegraded())
}

func TestServiceStatus_SeverityOrdering(t *testing.T) {
	assert.Less(t, ServiceStatusOperational.Severity(), ServiceStatusDegradedPerformance.Severity())
	assert.Less(t, ServiceStatusDegradedPerformance.Severity(), ServiceStatusPartialOutage.Severity())
	assert.Less(t, ServiceStatusPartialOutage.Severity(), ServiceStatusMajorOutage.Severity())
}

func TestIncidentLog_EndOr(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	finished := now.Add(-time.Hour)

	open := IncidentLog{StartedAt: now.Add(-2 * time.Hour)}
	closed := IncidentLog{StartedAt: now.Add(-2 * time.Hour), FinishedAt: &finished}

	assert.True(t, open.IsOpen())
	assert.Equal(t, now, open.EndOr(now))
	assert.False(t, closed.IsOpen())
	assert.Equal(t, finished, closed.EndOr(now))
}

func TestRole_HasPermission(t *testing.T) {
	assert.True(t, RoleAdmin.HasPermission(RoleMember))
	assert.True(t, RoleAdmin.HasPermission(RoleAdmin))
	assert.True(t, RoleMember.HasPermission(RoleMember))
	assert.False(t, RoleMember.HasPermission(RoleAdmin))
	assert.False(t, Role("").HasPermission(RoleMember))
}

func TestAuditRecord_IsDeleted(t *testing.T) {
	r := AuditRecord{}
	assert.False(t, r.IsDeleted())

	now := time.Now()
	r.DeletedAt = &now
	assert.True(t, r.IsDeleted())
}
