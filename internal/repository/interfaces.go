package repository

import (
	"context"

	"github.com/rpattn/ctedash/internal/domain"

	"github.com/google/uuid"
)

// TenantStore persists canonical records into one table per tenant. Tenant
// identifiers are validated before they reach a store (domain.TenantID), so
// implementations only ever quote known-good names.
type TenantStore interface {
	// EnsureTable provisions the tenant's table; calling it again is a no-op.
	EnsureTable(ctx context.Context, tenant domain.TenantID) error
	// Append writes all records in one transaction: either every row is
	// visible afterwards or none is.
	Append(ctx context.Context, tenant domain.TenantID, records []domain.CanonicalRecord) (int, error)
	// Load returns every persisted record in insertion order. A tenant whose
	// table was never provisioned has no records.
	Load(ctx context.Context, tenant domain.TenantID) ([]domain.CanonicalRecord, error)
}

// LedgerRepository is the consolidated cross-tenant, append-only ledger.
type LedgerRepository interface {
	// Append writes the records tagged with tenant in its own transaction,
	// independent of any tenant-table write.
	Append(ctx context.Context, tenant domain.TenantID, records []domain.CanonicalRecord) (int, error)
	Load(ctx context.Context) ([]domain.LedgerRecord, error)
	LoadByTenants(ctx context.Context, tenants []domain.TenantID) (map[domain.TenantID][]domain.CanonicalRecord, error)
	// Tenants lists every tenant with at least one ledger row, by name.
	Tenants(ctx context.Context) ([]domain.TenantID, error)
}

// UserRepository stores application logins.
type UserRepository interface {
	Create(ctx context.Context, user domain.User) (domain.User, error)
	GetByUsername(ctx context.Context, username string) (domain.User, error)
	List(ctx context.Context) ([]domain.User, error)
	Delete(ctx context.Context, username string) error
	Count(ctx context.Context) (int64, error)
}

// IngestionLogRepository stores skipped documents for observability.
type IngestionLogRepository interface {
	Record(ctx context.Context, entry domain.IngestionLogEntry) error
	List(ctx context.Context, tenant domain.TenantID, batchID *uuid.UUID, limit int, offset int) ([]domain.IngestionLogEntry, error)
}
