//go:build integration

package app_test

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/bissquit/statusboard/internal/testutil"
)

const testPassword = "correct-horse-battery"

type tenant struct {
	client    *testutil.Client
	companyID string
	email     string
}

// registerTenant creates a fresh company so tests never share state.
func registerTenant(t *testing.T, name string) tenant {
	t.Helper()

	email := fmt.Sprintf("admin-%s@example.com", uuid.NewString()[:8])
	client, companyID := newTestClient(t).Register(t, name, email, testPassword)
	return tenant{client: client, companyID: companyID, email: email}
}

type serviceBody struct {
	ID          string `json:"id"`
	CompanyID   string `json:"company_id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Status      string `json:"status"`
}

type logBody struct {
	ID          string     `json:"id"`
	ServiceID   string     `json:"service_id"`
	ServiceName string     `json:"service_name"`
	StartedAt   time.Time  `json:"started_at"`
	FinishedAt  *time.Time `json:"finished_at"`
	Reason      string     `json:"reason"`
	Status      string     `json:"status"`
}

func createService(t *testing.T, client *testutil.Client, name string) serviceBody {
	t.Helper()

	resp, err := client.POST("/api/v1/services", map[string]string{
		"name":        name,
		"description": name + " description",
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var result struct {
		Data serviceBody `json:"data"`
	}
	testutil.DecodeJSON(t, resp, &result)
	return result.Data
}

func changeStatus(t *testing.T, client *testutil.Client, serviceID, status, reason string) *http.Response {
	t.Helper()

	body := map[string]string{"status": status}
	if reason != "" {
		body["reason"] = reason
	}
	resp, err := client.PATCH("/api/v1/services/"+serviceID, body)
	require.NoError(t, err)
	return resp
}

func listLogs(t *testing.T, client *testutil.Client, serviceID string) []logBody {
	t.Helper()

	resp, err := client.GET("/api/v1/services/" + serviceID + "/logs")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var result struct {
		Data struct {
			Logs  []logBody `json:"logs"`
			Total int       `json:"total"`
		} `json:"data"`
	}
	testutil.DecodeJSON(t, resp, &result)
	require.Len(t, result.Data.Logs, result.Data.Total)
	return result.Data.Logs
}

// countOpenLogs reads the database directly, bypassing every application layer.
func countOpenLogs(t *testing.T, serviceID string) int {
	t.Helper()

	var n int
	err := testDB.QueryRow(context.Background(),
		`SELECT COUNT(*) FROM incident_logs WHERE service_id = $1 AND finished_at IS NULL`, serviceID,
	).Scan(&n)
	require.NoError(t, err)
	return n
}
