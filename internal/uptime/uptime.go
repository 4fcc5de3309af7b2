// Package uptime derives availability figures from incident history.
package uptime

import (
	"errors"
	"time"

	"github.com/bissquit/statusboard/internal/domain"
	"github.com/shopspring/decimal"
)

// Window limits in hours.
const (
	DefaultWindowHours = 240
	MaxWindowHours     = 2160
)

// ErrInvalidWindow is returned for windows longer than MaxWindowHours.
var ErrInvalidWindow = errors.New("window_hours must not exceed 2160")

var hundred = decimal.NewFromInt(100)

// Report is the availability of one service over a trailing window.
type Report struct {
	ServiceID     string   `json:"service_id"`
	WindowHours   int      `json:"window_hours"`
	DowntimeHours float64  `json:"downtime_hours"`
	UptimePercent float64  `json:"uptime_percent"`
	Timeline      []Bucket `json:"timeline,omitempty"`
}

// Bucket is one hour of a timeline with the most severe status seen in it.
type Bucket struct {
	Start  time.Time            `json:"start"`
	Status domain.ServiceStatus `json:"status"`
}

// ResolveWindow applies the default to non-positive values and rejects oversized windows.
func ResolveWindow(hours int) (int, error) {
	if hours <= 0 {
		return DefaultWindowHours, nil
	}
	if hours > MaxWindowHours {
		return 0, ErrInvalidWindow
	}
	return hours, nil
}

// Compute returns the uptime over [now-window, now].
// Each log is clipped to the window and open logs count until now. Overlapping logs
// are summed as they are; the result is clamped to [0, 100] and rounded to 2 places.
func Compute(logs []domain.IncidentLog, now time.Time, window time.Duration) Report {
	report := Report{
		WindowHours:   int(window / time.Hour),
		UptimePercent: 100,
	}
	if window <= 0 {
		return report
	}

	windowStart := now.Add(-window)

	var down time.Duration
	for i := range logs {
		start, end, ok := clip(&logs[i], windowStart, now)
		if ok {
			down += end.Sub(start)
		}
	}

	downHours := decimal.NewFromInt(int64(down)).Div(decimal.NewFromInt(int64(time.Hour)))
	windowHours := decimal.NewFromInt(int64(window)).Div(decimal.NewFromInt(int64(time.Hour)))

	percent := windowHours.Sub(downHours).Div(windowHours).Mul(hundred)
	if percent.LessThan(decimal.Zero) {
		percent = decimal.Zero
	}
	if percent.GreaterThan(hundred) {
		percent = hundred
	}

	report.DowntimeHours = downHours.Round(2).InexactFloat64()
	report.UptimePercent = percent.Round(2).InexactFloat64()
	return report
}

// Timeline splits [now-window, now] into hourly buckets, oldest first.
// A bucket takes the most severe status of any log overlapping it.
func Timeline(logs []domain.IncidentLog, now time.Time, window time.Duration) []Bucket {
	count := int((window + time.Hour - 1) / time.Hour)
	if count <= 0 {
		return []Bucket{}
	}

	windowStart := now.Add(-time.Duration(count) * time.Hour)
	buckets := make([]Bucket, count)
	for i := range buckets {
		buckets[i] = Bucket{
			Start:  windowStart.Add(time.Duration(i) * time.Hour),
			Status: domain.ServiceStatusOperational,
		}
	}

	for i := range logs {
		start, end, ok := clip(&logs[i], windowStart, now)
		if !ok {
			continue
		}

		first := int(start.Sub(windowStart) / time.Hour)
		last := int((end.Sub(windowStart) - 1) / time.Hour)
		if last >= count {
			last = count - 1
		}

		for b := first; b <= last; b++ {
			if logs[i].Status.Severity() > buckets[b].Status.Severity() {
				buckets[b].Status = logs[i].Status
			}
		}
	}

	return buckets
}

// clip bounds a log's interval to [from, to] and reports whether anything is left.
func clip(log *domain.IncidentLog, from, to time.Time) (time.Time, time.Time, bool) {
	start := log.StartedAt
	end := log.EndOr(to)

	if start.Before(from) {
		start = from
	}
	if end.After(to) {
		end = to
	}
	return start, end, end.After(start)
}
