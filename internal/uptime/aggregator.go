package uptime

import (
	"context"
	"fmt"
	"time"

	"github.com/bissquit/statusboard/internal/domain"
	"github.com/bissquit/statusboard/internal/incidents"
)

// ServiceReader resolves a tenant's service.
type ServiceReader interface {
	GetService(ctx context.Context, companyID, id string) (*domain.Service, error)
}

// LogReader reads incident history.
type LogReader interface {
	ListLogsByService(ctx context.Context, companyID, serviceID string, filter incidents.LogFilter) ([]domain.IncidentLog, error)
	ListLogsByCompany(ctx context.Context, companyID string, filter incidents.LogFilter) ([]incidents.Event, error)
}

// Aggregator computes uptime reports from stored incident logs.
type Aggregator struct {
	services ServiceReader
	logs     LogReader
	now      func() time.Time
}

// NewAggregator creates a new uptime aggregator.
func NewAggregator(services ServiceReader, logs LogReader) *Aggregator {
	return &Aggregator{
		services: services,
		logs:     logs,
		now:      time.Now,
	}
}

// ComputeUptime returns the uptime report and hourly timeline of one service.
// A non-positive windowHours selects DefaultWindowHours.
func (a *Aggregator) ComputeUptime(ctx context.Context, companyID, serviceID string, windowHours int) (*Report, error) {
	hours, err := ResolveWindow(windowHours)
	if err != nil {
		return nil, err
	}

	if _, err := a.services.GetService(ctx, companyID, serviceID); err != nil {
		return nil, err
	}

	now := a.now().UTC()
	window := time.Duration(hours) * time.Hour
	since := now.Add(-window)

	logs, err := a.logs.ListLogsByService(ctx, companyID, serviceID, incidents.LogFilter{Since: &since})
	if err != nil {
		return nil, fmt.Errorf("list incident logs: %w", err)
	}

	report := Compute(logs, now, window)
	report.ServiceID = serviceID
	report.Timeline = Timeline(logs, now, window)
	return &report, nil
}

// ComputeCompany returns reports for the given services with a single log query.
// Services without incidents in the window get a 100% report.
func (a *Aggregator) ComputeCompany(ctx context.Context, companyID string, serviceIDs []string, windowHours int) (map[string]*Report, error) {
	hours, err := ResolveWindow(windowHours)
	if err != nil {
		return nil, err
	}

	now := a.now().UTC()
	window := time.Duration(hours) * time.Hour
	since := now.Add(-window)

	events, err := a.logs.ListLogsByCompany(ctx, companyID, incidents.LogFilter{Since: &since})
	if err != nil {
		return nil, fmt.Errorf("list company incident logs: %w", err)
	}

	byService := make(map[string][]domain.IncidentLog, len(serviceIDs))
	for _, e := range events {
		byService[e.ServiceID] = append(byService[e.ServiceID], e.IncidentLog)
	}

	reports := make(map[string]*Report, len(serviceIDs))
	for _, id := range serviceIDs {
		logs := byService[id]
		report := Compute(logs, now, window)
		report.ServiceID = id
		report.Timeline = Timeline(logs, now, window)
		reports[id] = &report
	}
	return reports, nil
}
