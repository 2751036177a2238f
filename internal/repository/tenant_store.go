package repository

import (
	"context"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/rpattn/ctedash/internal/db"
	"github.com/rpattn/ctedash/internal/domain"
)

type tenantStore struct {
	conn        *db.Connection
	provisioned sync.Map
}

// NewTenantStore returns a TenantStore keeping one Postgres table per tenant.
func NewTenantStore(conn *db.Connection) TenantStore {
	return &tenantStore{conn: conn}
}

func (s *tenantStore) EnsureTable(ctx context.Context, tenant domain.TenantID) error {
	if tenant.IsZero() {
		return fmt.Errorf("%w: tenant id is required", domain.ErrInvalidIdentifier)
	}
	if _, ok := s.provisioned.Load(tenant); ok {
		return nil
	}

	ddl := fmt.Sprintf(tenantTableDDL, quoteTable(tenant))
	if _, err := s.conn.Pool.Exec(ctx, ddl); err != nil {
		return storageError(fmt.Sprintf("failed to provision table for tenant %s", tenant), err)
	}
	s.provisioned.Store(tenant, struct{}{})
	return nil
}

func (s *tenantStore) Append(ctx context.Context, tenant domain.TenantID, records []domain.CanonicalRecord) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}
	if err := s.EnsureTable(ctx, tenant); err != nil {
		return 0, err
	}

	rows := make([][]any, len(records))
	for i, record := range records {
		rows[i] = recordValues(record)
	}

	var written int64
	err := s.conn.WithTx(ctx, func(tx pgx.Tx) error {
		n, err := tx.CopyFrom(ctx, pgx.Identifier{tenant.TableName()}, RecordColumns, pgx.CopyFromRows(rows))
		if err != nil {
			return err
		}
		written = n
		return nil
	})
	if err != nil {
		return 0, storageError(fmt.Sprintf("failed to append %d records for tenant %s", len(records), tenant), err)
	}
	return int(written), nil
}

func (s *tenantStore) Load(ctx context.Context, tenant domain.TenantID) ([]domain.CanonicalRecord, error) {
	if tenant.IsZero() {
		return nil, fmt.Errorf("%w: tenant id is required", domain.ErrInvalidIdentifier)
	}

	query := fmt.Sprintf("SELECT %s FROM %s ORDER BY id", recordSelectList, quoteTable(tenant))
	rows, err := s.conn.Pool.Query(ctx, query)
	if err != nil {
		if isUndefinedTable(err) {
			return []domain.CanonicalRecord{}, nil
		}
		return nil, storageError(fmt.Sprintf("failed to load records for tenant %s", tenant), err)
	}
	records, err := scanRecords(rows)
	if err != nil && isUndefinedTable(err) {
		return []domain.CanonicalRecord{}, nil
	}
	return records, err
}

func quoteTable(tenant domain.TenantID) string {
	return pgx.Identifier{tenant.TableName()}.Sanitize()
}
