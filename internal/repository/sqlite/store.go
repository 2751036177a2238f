// Package sqlite is a single-file TenantStore and LedgerRepository used by
// ctectl in offline mode and by tests. It mirrors the Postgres layout: one
// table per tenant plus the cte_ledger table.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rpattn/ctedash/internal/domain"
	"github.com/rpattn/ctedash/internal/repository"
)

const (
	dateLayout  = "2006-01-02"
	ledgerTable = "cte_ledger"
)

const tableColumns = `id INTEGER PRIMARY KEY AUTOINCREMENT,
    %s
    issue_date TEXT,
    issue_month TEXT,
    document_number TEXT,
    carrier TEXT,
    plates TEXT,
    product TEXT,
    origin_city TEXT,
    destination_city TEXT,
    volume_liters REAL,
    freight_value REAL,
    created_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP`

// DB owns the sqlite handle shared by the tenant store and the ledger.
type DB struct {
	sql         *sql.DB
	mu          sync.Mutex
	provisioned map[domain.TenantID]struct{}
}

// Open opens (or creates) the database at dsn, for example "cte.db" or
// ":memory:", and creates the ledger table.
func Open(ctx context.Context, dsn string) (*DB, error) {
	handle, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// every connection to :memory: is a new database
	handle.SetMaxOpenConns(1)

	if err := handle.PingContext(ctx); err != nil {
		handle.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	ddl := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", quoteIdent(ledgerTable), fmt.Sprintf(tableColumns, "tenant TEXT NOT NULL,"))
	if _, err := handle.ExecContext(ctx, ddl); err != nil {
		handle.Close()
		return nil, storageError("failed to create ledger table", err)
	}

	return &DB{sql: handle, provisioned: map[domain.TenantID]struct{}{}}, nil
}

// Close releases the handle.
func (d *DB) Close() error {
	return d.sql.Close()
}

// TenantStore returns the per-tenant table store.
func (d *DB) TenantStore() repository.TenantStore {
	return &tenantStore{db: d}
}

// Ledger returns the consolidated ledger.
func (d *DB) Ledger() repository.LedgerRepository {
	return &ledger{db: d}
}

type tenantStore struct {
	db *DB
}

var _ repository.TenantStore = (*tenantStore)(nil)

func (s *tenantStore) EnsureTable(ctx context.Context, tenant domain.TenantID) error {
	if tenant.IsZero() {
		return fmt.Errorf("%w: tenant id is required", domain.ErrInvalidIdentifier)
	}

	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if _, ok := s.db.provisioned[tenant]; ok {
		return nil
	}

	ddl := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", quoteIdent(tableName(tenant)), fmt.Sprintf(tableColumns, ""))
	if _, err := s.db.sql.ExecContext(ctx, ddl); err != nil {
		return storageError(fmt.Sprintf("failed to provision table for tenant %s", tenant), err)
	}
	s.db.provisioned[tenant] = struct{}{}
	return nil
}

func (s *tenantStore) Append(ctx context.Context, tenant domain.TenantID, records []domain.CanonicalRecord) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}
	if err := s.EnsureTable(ctx, tenant); err != nil {
		return 0, err
	}
	written, err := s.db.insert(ctx, tableName(tenant), nil, records)
	if err != nil {
		return 0, storageError(fmt.Sprintf("failed to append %d records for tenant %s", len(records), tenant), err)
	}
	return written, nil
}

func (s *tenantStore) Load(ctx context.Context, tenant domain.TenantID) ([]domain.CanonicalRecord, error) {
	if tenant.IsZero() {
		return nil, fmt.Errorf("%w: tenant id is required", domain.ErrInvalidIdentifier)
	}

	exists, err := s.db.tableExists(ctx, tableName(tenant))
	if err != nil {
		return nil, err
	}
	if !exists {
		return []domain.CanonicalRecord{}, nil
	}

	query := fmt.Sprintf("SELECT %s FROM %s ORDER BY id", strings.Join(repository.RecordColumns, ", "), quoteIdent(tableName(tenant)))
	rows, err := s.db.sql.QueryContext(ctx, query)
	if err != nil {
		return nil, storageError(fmt.Sprintf("failed to load records for tenant %s", tenant), err)
	}
	defer rows.Close()

	records := []domain.CanonicalRecord{}
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, storageError("failed to iterate records", err)
	}
	return records, nil
}

type ledger struct {
	db *DB
}

var _ repository.LedgerRepository = (*ledger)(nil)

func (l *ledger) Append(ctx context.Context, tenant domain.TenantID, records []domain.CanonicalRecord) (int, error) {
	if tenant.IsZero() {
		return 0, fmt.Errorf("%w: tenant id is required", domain.ErrInvalidIdentifier)
	}
	if len(records) == 0 {
		return 0, nil
	}
	written, err := l.db.insert(ctx, ledgerTable, &tenant, records)
	if err != nil {
		return 0, storageError(fmt.Sprintf("failed to append %d ledger records for tenant %s", len(records), tenant), err)
	}
	return written, nil
}

func (l *ledger) Load(ctx context.Context) ([]domain.LedgerRecord, error) {
	return l.query(ctx, "")
}

func (l *ledger) LoadByTenants(ctx context.Context, tenants []domain.TenantID) (map[domain.TenantID][]domain.CanonicalRecord, error) {
	result := make(map[domain.TenantID][]domain.CanonicalRecord, len(tenants))
	if len(tenants) == 0 {
		return result, nil
	}

	placeholders := make([]string, len(tenants))
	args := make([]any, len(tenants))
	for i, tenant := range tenants {
		placeholders[i] = "?"
		args[i] = tenant.String()
		result[tenant] = []domain.CanonicalRecord{}
	}

	entries, err := l.query(ctx, "WHERE tenant IN ("+strings.Join(placeholders, ", ")+")", args...)
	if err != nil {
		return nil, err
	}
	for _, entry := range entries {
		result[entry.Tenant] = append(result[entry.Tenant], entry.Record)
	}
	return result, nil
}

func (l *ledger) Tenants(ctx context.Context) ([]domain.TenantID, error) {
	rows, err := l.db.sql.QueryContext(ctx, fmt.Sprintf("SELECT DISTINCT tenant FROM %s ORDER BY tenant", ledgerTable))
	if err != nil {
		return nil, storageError("failed to list ledger tenants", err)
	}
	defer rows.Close()

	tenants := []domain.TenantID{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, storageError("failed to scan ledger tenant", err)
		}
		tenant, err := domain.ParseTenantID(name)
		if err != nil {
			return nil, storageError("ledger holds an invalid tenant id", err)
		}
		tenants = append(tenants, tenant)
	}
	if err := rows.Err(); err != nil {
		return nil, storageError("failed to iterate ledger tenants", err)
	}
	return tenants, nil
}

func (l *ledger) query(ctx context.Context, where string, args ...any) ([]domain.LedgerRecord, error) {
	query := fmt.Sprintf("SELECT tenant, %s FROM %s %s ORDER BY id", strings.Join(repository.RecordColumns, ", "), ledgerTable, where)
	rows, err := l.db.sql.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storageError("failed to load ledger", err)
	}
	defer rows.Close()

	entries := []domain.LedgerRecord{}
	for rows.Next() {
		var tenantName string
		record, err := scanRecord(rows, &tenantName)
		if err != nil {
			return nil, err
		}
		tenant, err := domain.ParseTenantID(tenantName)
		if err != nil {
			return nil, storageError("ledger holds an invalid tenant id", err)
		}
		entries = append(entries, domain.LedgerRecord{Tenant: tenant, Record: record})
	}
	if err := rows.Err(); err != nil {
		return nil, storageError("failed to iterate ledger", err)
	}
	return entries, nil
}

// insert writes records in one transaction. When tenant is set its name is
// stored in a leading tenant column.
func (d *DB) insert(ctx context.Context, table string, tenant *domain.TenantID, records []domain.CanonicalRecord) (int, error) {
	columns := repository.RecordColumns
	if tenant != nil {
		columns = append([]string{"tenant"}, columns...)
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(columns)), ", ")
	statement := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", quoteIdent(table), strings.Join(columns, ", "), placeholders)

	tx, err := d.sql.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, statement)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	for _, record := range records {
		values := recordValues(record)
		if tenant != nil {
			values = append([]any{tenant.String()}, values...)
		}
		if _, err := stmt.ExecContext(ctx, values...); err != nil {
			return 0, err
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return len(records), nil
}

func (d *DB) tableExists(ctx context.Context, table string) (bool, error) {
	var count int
	err := d.sql.QueryRowContext(ctx, "SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?", table).Scan(&count)
	if err != nil {
		return false, storageError("failed to inspect schema", err)
	}
	return count > 0, nil
}

func recordValues(record domain.CanonicalRecord) []any {
	var issueDate, issueMonth, plates any
	if record.IssueDate != nil {
		issueDate = record.IssueDate.Format(dateLayout)
	}
	if record.IssueMonth != "" {
		issueMonth = record.IssueMonth
	}
	if !record.Plates.IsEmpty() {
		plates = record.Plates.String()
	}
	return []any{
		issueDate,
		issueMonth,
		record.DocumentNumber,
		record.Carrier,
		plates,
		record.Product,
		record.OriginCity,
		record.DestinationCity,
		record.VolumeLiters,
		record.FreightValue,
	}
}

func scanRecord(rows *sql.Rows, leading ...any) (domain.CanonicalRecord, error) {
	var (
		record                        domain.CanonicalRecord
		issueDate, issueMonth, plates *string
	)
	targets := append(leading,
		&issueDate,
		&issueMonth,
		&record.DocumentNumber,
		&record.Carrier,
		&plates,
		&record.Product,
		&record.OriginCity,
		&record.DestinationCity,
		&record.VolumeLiters,
		&record.FreightValue,
	)
	if err := rows.Scan(targets...); err != nil {
		return domain.CanonicalRecord{}, storageError("failed to scan record", err)
	}

	if issueDate != nil {
		parsed, err := time.Parse(dateLayout, *issueDate)
		if err != nil {
			return domain.CanonicalRecord{}, storageError("failed to parse stored issue date", err)
		}
		record.IssueDate = &parsed
	}
	if issueMonth != nil {
		record.IssueMonth = *issueMonth
	}
	if plates != nil {
		record.Plates = domain.ParsePlates(*plates)
	} else {
		record.Plates = domain.HeuristicPlates(nil)
	}
	return record, nil
}

// tableName maps a tenant to its table. SQLite compares identifiers without
// regard to case, so every upper-case letter is written as '^' followed by its
// lower-case form: Empresa_A and empresa_a get the tables "^empresa_^a" and
// "empresa_a". Tenant ids are ASCII and never contain '^', so the mapping is
// one-to-one.
func tableName(tenant domain.TenantID) string {
	name := tenant.TableName()
	var b strings.Builder
	b.Grow(len(name) + 4)
	for i := 0; i < len(name); i++ {
		c := name[i]
		if 'A' <= c && c <= 'Z' {
			b.WriteByte('^')
			c += 'a' - 'A'
		}
		b.WriteByte(c)
	}
	return b.String()
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func storageError(message string, err error) error {
	return fmt.Errorf("%w: %s: %w", domain.ErrStorageFailure, message, err)
}
