package tenantloader

import (
	"context"
	"fmt"
	"time"

	"github.com/rpattn/ctedash/internal/domain"
	"github.com/rpattn/ctedash/internal/repository"

	"github.com/graph-gophers/dataloader"
)

// TenantLoader batches per-tenant ledger reads issued within one request.
type TenantLoader struct {
	Loader *dataloader.Loader
}

func NewTenantLoader(ledger repository.LedgerRepository) *TenantLoader {
	batchFn := func(ctx context.Context, keys dataloader.Keys) []*dataloader.Result {
		// Convert keys to tenant ids
		tenants := make([]domain.TenantID, len(keys))
		for i, k := range keys {
			tenant, err := domain.ParseTenantID(k.String())
			if err != nil {
				return failAll(len(keys), fmt.Errorf("invalid tenant key: %w", err))
			}
			tenants[i] = tenant
		}

		byTenant, err := ledger.LoadByTenants(ctx, tenants)
		if err != nil {
			return failAll(len(keys), err)
		}

		// Build results in the same order as keys
		results := make([]*dataloader.Result, len(keys))
		for i, tenant := range tenants {
			records := byTenant[tenant]
			if records == nil {
				records = []domain.CanonicalRecord{}
			}
			results[i] = &dataloader.Result{Data: records}
		}

		return results
	}

	loader := dataloader.NewBatchedLoader(batchFn, dataloader.WithWait(5*time.Millisecond))

	return &TenantLoader{Loader: loader}
}

// LoadMany resolves the ledger records of every tenant, in the order given.
func (l *TenantLoader) LoadMany(ctx context.Context, tenants []domain.TenantID) ([][]domain.CanonicalRecord, error) {
	keys := make([]string, len(tenants))
	for i, tenant := range tenants {
		keys[i] = tenant.String()
	}

	values, errs := l.Loader.LoadMany(ctx, dataloader.NewKeysFromStrings(keys))()
	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	out := make([][]domain.CanonicalRecord, len(values))
	for i, value := range values {
		records, ok := value.([]domain.CanonicalRecord)
		if !ok {
			return nil, fmt.Errorf("unexpected loader value %T for tenant %s", value, tenants[i])
		}
		out[i] = records
	}
	return out, nil
}

func failAll(n int, err error) []*dataloader.Result {
	results := make([]*dataloader.Result, n)
	for i := range results {
		results[i] = &dataloader.Result{Error: err}
	}
	return results
}

type ctxKey string

const loaderKey ctxKey = "tenantLoader"

// WithLoader stores the loader in ctx.
func WithLoader(ctx context.Context, loader *TenantLoader) context.Context {
	return context.WithValue(ctx, loaderKey, loader)
}

// FromContext retrieves the loader from ctx, if any.
func FromContext(ctx context.Context) *TenantLoader {
	if l, ok := ctx.Value(loaderKey).(*TenantLoader); ok {
		return l
	}
	return nil
}
