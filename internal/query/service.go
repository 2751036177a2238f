package query

import (
	"context"
	"sort"

	"github.com/rpattn/ctedash/internal/auth"
	"github.com/rpattn/ctedash/internal/domain"
	"github.com/rpattn/ctedash/internal/repository"
	"github.com/rpattn/ctedash/internal/tenantloader"
	"github.com/rs/zerolog"
)

// SummaryCache holds ledger summaries per tenant. Implementations may be
// unavailable; cache errors are logged and never fail a query.
type SummaryCache interface {
	Get(ctx context.Context, tenant domain.TenantID) (domain.Summary, bool, error)
	Set(ctx context.Context, tenant domain.TenantID, summary domain.Summary) error
	Invalidate(ctx context.Context, tenant domain.TenantID) error
}

// Dashboard is the tenant view: filtered records plus headline metrics.
type Dashboard struct {
	Tenant             domain.TenantID          `json:"tenant"`
	Filter             domain.RecordFilter      `json:"-"`
	Records            []domain.CanonicalRecord `json:"records"`
	Summary            domain.Summary           `json:"summary"`
	TripsByDestination []domain.GroupCount      `json:"trips_by_destination"`
	LitersByProduct    []domain.GroupSum        `json:"liters_by_product"`
}

// Service reads tenant data on behalf of an authenticated session.
type Service struct {
	store  repository.TenantStore
	ledger repository.LedgerRepository
	users  repository.UserRepository
	cache  SummaryCache
	logger zerolog.Logger
}

// NewService wires the query service. users and cache may be nil.
func NewService(store repository.TenantStore, ledger repository.LedgerRepository, users repository.UserRepository, cache SummaryCache, logger zerolog.Logger) *Service {
	return &Service{store: store, ledger: ledger, users: users, cache: cache, logger: logger}
}

// Load returns every record of tenant in insertion order. The whole table is
// held in memory.
func (s *Service) Load(ctx context.Context, tenant domain.TenantID) ([]domain.CanonicalRecord, error) {
	if err := auth.EnforceTenantScope(ctx, tenant); err != nil {
		return nil, err
	}
	return s.store.Load(ctx, tenant)
}

// Records returns the tenant's records that match filter.
func (s *Service) Records(ctx context.Context, tenant domain.TenantID, filter domain.RecordFilter) ([]domain.CanonicalRecord, error) {
	records, err := s.Load(ctx, tenant)
	if err != nil {
		return nil, err
	}
	return Filter(records, filter), nil
}

// Dashboard filters the tenant's records and computes the dashboard metrics.
func (s *Service) Dashboard(ctx context.Context, tenant domain.TenantID, filter domain.RecordFilter) (Dashboard, error) {
	records, err := s.Records(ctx, tenant, filter)
	if err != nil {
		return Dashboard{}, err
	}
	return BuildDashboard(tenant, filter, records), nil
}

// BuildDashboard computes the dashboard metrics of already filtered records.
func BuildDashboard(tenant domain.TenantID, filter domain.RecordFilter, records []domain.CanonicalRecord) Dashboard {
	return Dashboard{
		Tenant:             tenant,
		Filter:             filter,
		Records:            records,
		Summary:            Aggregate(records),
		TripsByDestination: GroupCount(records, GroupByDestination),
		LitersByProduct:    GroupSumLiters(records, GroupByProduct),
	}
}

// Ledger returns the consolidated ledger. Administrators only.
func (s *Service) Ledger(ctx context.Context) ([]domain.LedgerRecord, error) {
	if _, err := auth.RequirePrivileged(ctx); err != nil {
		return nil, err
	}
	return s.ledger.Load(ctx)
}

// TenantOverview summarizes the ledger rows of every known tenant, ordered by
// tenant name. Administrators only.
func (s *Service) TenantOverview(ctx context.Context) ([]domain.TenantSummary, error) {
	if _, err := auth.RequirePrivileged(ctx); err != nil {
		return nil, err
	}

	tenants, err := s.knownTenants(ctx)
	if err != nil {
		return nil, err
	}

	summaries := make([]domain.TenantSummary, len(tenants))
	var misses []int
	for i, tenant := range tenants {
		summaries[i].Tenant = tenant
		if summary, ok := s.cachedSummary(ctx, tenant); ok {
			summaries[i].Summary = summary
			continue
		}
		misses = append(misses, i)
	}
	if len(misses) == 0 {
		return summaries, nil
	}

	loader := tenantloader.FromContext(ctx)
	if loader == nil {
		loader = tenantloader.NewTenantLoader(s.ledger)
	}
	missing := make([]domain.TenantID, len(misses))
	for j, i := range misses {
		missing[j] = tenants[i]
	}
	loaded, err := loader.LoadMany(ctx, missing)
	if err != nil {
		return nil, err
	}
	for j, i := range misses {
		summary := Aggregate(loaded[j])
		summaries[i].Summary = summary
		s.storeSummary(ctx, tenants[i], summary)
	}
	return summaries, nil
}

func (s *Service) knownTenants(ctx context.Context) ([]domain.TenantID, error) {
	seen := map[domain.TenantID]struct{}{}
	var tenants []domain.TenantID
	add := func(tenant domain.TenantID) {
		if _, ok := seen[tenant]; ok {
			return
		}
		seen[tenant] = struct{}{}
		tenants = append(tenants, tenant)
	}

	fromLedger, err := s.ledger.Tenants(ctx)
	if err != nil {
		return nil, err
	}
	for _, tenant := range fromLedger {
		add(tenant)
	}

	if s.users != nil {
		users, err := s.users.List(ctx)
		if err != nil {
			return nil, err
		}
		for _, user := range users {
			add(user.Tenant)
		}
	}

	sort.Slice(tenants, func(i, j int) bool { return tenants[i].String() < tenants[j].String() })
	return tenants, nil
}

func (s *Service) cachedSummary(ctx context.Context, tenant domain.TenantID) (domain.Summary, bool) {
	if s.cache == nil {
		return domain.Summary{}, false
	}
	summary, ok, err := s.cache.Get(ctx, tenant)
	if err != nil {
		s.logger.Warn().Err(err).Str("tenant", tenant.String()).Msg("summary cache read failed")
		return domain.Summary{}, false
	}
	return summary, ok
}

func (s *Service) storeSummary(ctx context.Context, tenant domain.TenantID, summary domain.Summary) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, tenant, summary); err != nil {
		s.logger.Warn().Err(err).Str("tenant", tenant.String()).Msg("summary cache write failed")
	}
}
