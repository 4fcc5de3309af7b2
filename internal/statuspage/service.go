// Package statuspage serves the public, unauthenticated view of a company's services.
package statuspage

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/bissquit/statusboard/internal/catalog"
	"github.com/bissquit/statusboard/internal/domain"
	"github.com/bissquit/statusboard/internal/incidents"
	"github.com/bissquit/statusboard/internal/pkg/httputil"
	"github.com/bissquit/statusboard/internal/pkg/metrics"
	"github.com/bissquit/statusboard/internal/status"
	"github.com/bissquit/statusboard/internal/uptime"
	"github.com/jellydator/ttlcache/v3"
)

// CompanyReader resolves a company by id.
type CompanyReader interface {
	GetCompany(ctx context.Context, id string) (*domain.Company, error)
}

// ServiceLister lists a company's services.
type ServiceLister interface {
	ListServices(ctx context.Context, companyID string, filter catalog.ServiceFilter) ([]domain.Service, error)
}

// UptimeSource computes uptime for many services at once.
type UptimeSource interface {
	ComputeCompany(ctx context.Context, companyID string, serviceIDs []string, windowHours int) (map[string]*uptime.Report, error)
}

// EventSource pages through a company's incident history.
type EventSource interface {
	ListCompanyEvents(ctx context.Context, companyID string, page httputil.Pagination) (*incidents.CompanyEvents, error)
}

// CompanySummary is the public part of a company.
type CompanySummary struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ServiceEntry is one service on a status page.
type ServiceEntry struct {
	Service  domain.Service  `json:"service"`
	Uptime   uptime.Report   `json:"uptime"`
	Timeline []uptime.Bucket `json:"timeline"`
}

// Page is the public status page of a company.
type Page struct {
	Company        CompanySummary    `json:"company"`
	AllOperational bool              `json:"all_operational"`
	Services       []ServiceEntry    `json:"services"`
	// Events is the company's full incident history, newest first.
	Events         []incidents.Event `json:"events"`
	GeneratedAt    time.Time         `json:"generated_at"`
}

// Config configures the status page service.
type Config struct {
	CacheTTL           time.Duration
	DefaultWindowHours int
}

// Service assembles and caches public status pages.
type Service struct {
	companies CompanyReader
	services  ServiceLister
	uptime    UptimeSource
	events    EventSource
	cfg       Config
	cache     *ttlcache.Cache[string, *Page]
	now       func() time.Time

	mu      sync.Mutex
	running bool

	// genMu guards generations and orders cache writes against Invalidate.
	genMu       sync.Mutex
	generations map[string]uint64
}

// NewService creates a new status page service. A zero CacheTTL disables caching.
func NewService(companies CompanyReader, services ServiceLister, uptimeSource UptimeSource, events EventSource, cfg Config) *Service {
	if cfg.DefaultWindowHours <= 0 {
		cfg.DefaultWindowHours = uptime.DefaultWindowHours
	}
	return &Service{
		companies: companies,
		services:  services,
		uptime:    uptimeSource,
		events:    events,
		cfg:       cfg,
		cache:     ttlcache.New(ttlcache.WithTTL[string, *Page](cfg.CacheTTL)),
		now:       time.Now,

		generations: make(map[string]uint64),
	}
}

// Start runs expired cache item cleanup in the background until Stop is called.
func (s *Service) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	s.running = true
	go s.cache.Start()
}

// Stop ends cache cleanup. It is a no-op when cleanup is not running.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	s.running = false
	s.cache.Stop()
}

// GetPage returns the status page of a company over a window of windowHours.
// A non-positive windowHours selects the configured default.
func (s *Service) GetPage(ctx context.Context, companyID string, windowHours int) (*Page, error) {
	if windowHours <= 0 {
		windowHours = s.cfg.DefaultWindowHours
	}
	if windowHours > uptime.MaxWindowHours {
		return nil, uptime.ErrInvalidWindow
	}

	key := cacheKey(companyID, windowHours)
	if s.cfg.CacheTTL > 0 {
		if item := s.cache.Get(key); item != nil {
			metrics.StatusPageCache.WithLabelValues("hit").Inc()
			return item.Value(), nil
		}
		metrics.StatusPageCache.WithLabelValues("miss").Inc()
	}

	gen := s.generation(companyID)
	page, err := s.buildPage(ctx, companyID, windowHours)
	if err != nil {
		return nil, err
	}

	if s.cfg.CacheTTL > 0 {
		s.store(companyID, key, gen, page)
	}
	return page, nil
}

func (s *Service) generation(companyID string) uint64 {
	s.genMu.Lock()
	defer s.genMu.Unlock()
	return s.generations[companyID]
}

// store caches page unless the company was invalidated after gen was read.
func (s *Service) store(companyID, key string, gen uint64, page *Page) {
	s.genMu.Lock()
	defer s.genMu.Unlock()
	if s.generations[companyID] != gen {
		return
	}
	s.cache.Set(key, page, ttlcache.DefaultTTL)
}

// ListEvents returns a page of a company's incident history for the public feed.
// A zero page.Limit returns everything from page.Offset on.
func (s *Service) ListEvents(ctx context.Context, companyID string, page httputil.Pagination) (*incidents.CompanyEvents, error) {
	if _, err := s.companies.GetCompany(ctx, companyID); err != nil {
		return nil, err
	}
	return s.events.ListCompanyEvents(ctx, companyID, page)
}

func (s *Service) buildPage(ctx context.Context, companyID string, windowHours int) (*Page, error) {
	company, err := s.companies.GetCompany(ctx, companyID)
	if err != nil {
		return nil, err
	}

	services, err := s.services.ListServices(ctx, companyID, catalog.ServiceFilter{})
	if err != nil {
		return nil, fmt.Errorf("list services: %w", err)
	}

	ids := make([]string, 0, len(services))
	for _, svc := range services {
		ids = append(ids, svc.ID)
	}

	reports, err := s.uptime.ComputeCompany(ctx, companyID, ids, windowHours)
	if err != nil {
		return nil, fmt.Errorf("compute uptime: %w", err)
	}

	history, err := s.events.ListCompanyEvents(ctx, companyID, httputil.Pagination{})
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}

	page := &Page{
		Company:        CompanySummary{ID: company.ID, Name: company.Name},
		AllOperational: true,
		Services:       make([]ServiceEntry, 0, len(services)),
		Events:         history.Events,
		GeneratedAt:    s.now().UTC(),
	}

	for _, svc := range services {
		if svc.Status != domain.ServiceStatusOperational {
			page.AllOperational = false
		}

		entry := ServiceEntry{Service: svc, Timeline: []uptime.Bucket{}}
		if report, ok := reports[svc.ID]; ok {
			entry.Uptime = *report
			entry.Timeline = report.Timeline
			entry.Uptime.Timeline = nil
		}
		page.Services = append(page.Services, entry)
	}

	return page, nil
}

// Invalidate drops every cached page of a company.
func (s *Service) Invalidate(companyID string) {
	s.genMu.Lock()
	defer s.genMu.Unlock()
	s.generations[companyID]++

	prefix := companyID + ":"
	for _, key := range s.cache.Keys() {
		if strings.HasPrefix(key, prefix) {
			s.cache.Delete(key)
		}
	}
}

// OnStatusChanged invalidates the company's pages after a status transition.
func (s *Service) OnStatusChanged(_ context.Context, t status.Transition) error {
	s.Invalidate(t.Service.CompanyID)
	return nil
}

// ServicesChanged invalidates the company's pages after its service list changed.
func (s *Service) ServicesChanged(companyID string) {
	s.Invalidate(companyID)
}

// CompanyChanged invalidates the company's pages after its profile was updated.
func (s *Service) CompanyChanged(companyID string) {
	s.Invalidate(companyID)
}

func cacheKey(companyID string, windowHours int) string {
	return fmt.Sprintf("%s:%d", companyID, windowHours)
}
