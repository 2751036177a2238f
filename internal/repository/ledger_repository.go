package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/rpattn/ctedash/internal/db"
	"github.com/rpattn/ctedash/internal/domain"
)

const ledgerTable = "cte_ledger"

type ledgerRepository struct {
	conn *db.Connection
}

// NewLedgerRepository wires the consolidated ledger backed by pgx.
func NewLedgerRepository(conn *db.Connection) LedgerRepository {
	return &ledgerRepository{conn: conn}
}

func (r *ledgerRepository) Append(ctx context.Context, tenant domain.TenantID, records []domain.CanonicalRecord) (int, error) {
	if tenant.IsZero() {
		return 0, fmt.Errorf("%w: tenant id is required", domain.ErrInvalidIdentifier)
	}
	if len(records) == 0 {
		return 0, nil
	}

	columns := append([]string{"tenant"}, RecordColumns...)
	rows := make([][]any, len(records))
	for i, record := range records {
		rows[i] = append([]any{tenant.String()}, recordValues(record)...)
	}

	var written int64
	err := r.conn.WithTx(ctx, func(tx pgx.Tx) error {
		n, err := tx.CopyFrom(ctx, pgx.Identifier{ledgerTable}, columns, pgx.CopyFromRows(rows))
		if err != nil {
			return err
		}
		written = n
		return nil
	})
	if err != nil {
		return 0, storageError(fmt.Sprintf("failed to append %d ledger records for tenant %s", len(records), tenant), err)
	}
	return int(written), nil
}

func (r *ledgerRepository) Load(ctx context.Context) ([]domain.LedgerRecord, error) {
	rows, err := r.conn.Pool.Query(ctx, fmt.Sprintf("SELECT tenant, %s FROM %s ORDER BY id", recordSelectList, ledgerTable))
	if err != nil {
		return nil, storageError("failed to load ledger", err)
	}
	return scanLedgerRows(rows)
}

func (r *ledgerRepository) LoadByTenants(ctx context.Context, tenants []domain.TenantID) (map[domain.TenantID][]domain.CanonicalRecord, error) {
	result := make(map[domain.TenantID][]domain.CanonicalRecord, len(tenants))
	if len(tenants) == 0 {
		return result, nil
	}

	names := make([]string, len(tenants))
	for i, tenant := range tenants {
		names[i] = tenant.String()
		result[tenant] = []domain.CanonicalRecord{}
	}

	rows, err := r.conn.Pool.Query(
		ctx,
		fmt.Sprintf("SELECT tenant, %s FROM %s WHERE tenant = ANY($1) ORDER BY id", recordSelectList, ledgerTable),
		names,
	)
	if err != nil {
		return nil, storageError("failed to load ledger by tenant", err)
	}

	entries, err := scanLedgerRows(rows)
	if err != nil {
		return nil, err
	}
	for _, entry := range entries {
		result[entry.Tenant] = append(result[entry.Tenant], entry.Record)
	}
	return result, nil
}

func (r *ledgerRepository) Tenants(ctx context.Context) ([]domain.TenantID, error) {
	rows, err := r.conn.Pool.Query(ctx, fmt.Sprintf("SELECT DISTINCT tenant FROM %s ORDER BY tenant", ledgerTable))
	if err != nil {
		return nil, storageError("failed to list ledger tenants", err)
	}
	names, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, storageError("failed to scan ledger tenants", err)
	}
	return parseTenantNames(names)
}

func parseTenantNames(names []string) ([]domain.TenantID, error) {
	tenants := make([]domain.TenantID, 0, len(names))
	for _, name := range names {
		tenant, err := domain.ParseTenantID(name)
		if err != nil {
			return nil, storageError("ledger holds an invalid tenant id", err)
		}
		tenants = append(tenants, tenant)
	}
	return tenants, nil
}

func scanLedgerRows(rows pgx.Rows) ([]domain.LedgerRecord, error) {
	defer rows.Close()

	entries := []domain.LedgerRecord{}
	for rows.Next() {
		var (
			tenantName string
			scanner    recordScanner
		)
		targets := append([]any{&tenantName}, scanner.targets()...)
		if err := rows.Scan(targets...); err != nil {
			return nil, storageError("failed to scan ledger record", err)
		}
		tenant, err := domain.ParseTenantID(tenantName)
		if err != nil {
			return nil, storageError("ledger holds an invalid tenant id", err)
		}
		entries = append(entries, domain.LedgerRecord{Tenant: tenant, Record: scanner.result()})
	}
	if err := rows.Err(); err != nil {
		return nil, storageError("failed to iterate ledger", err)
	}
	return entries, nil
}
