package repository

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rpattn/ctedash/internal/domain"
)

// RecordColumns lists the persisted CanonicalRecord columns in table order.
var RecordColumns = []string{
	"issue_date",
	"issue_month",
	"document_number",
	"carrier",
	"plates",
	"product",
	"origin_city",
	"destination_city",
	"volume_liters",
	"freight_value",
}

// tenantTableDDL is formatted with an already quoted identifier.
const tenantTableDDL = `CREATE TABLE IF NOT EXISTS %s (
    id BIGSERIAL PRIMARY KEY,
    issue_date DATE,
    issue_month VARCHAR(20),
    document_number VARCHAR(40),
    carrier VARCHAR(200),
    plates VARCHAR(100),
    product VARCHAR(200),
    origin_city VARCHAR(150),
    destination_city VARCHAR(150),
    volume_liters DOUBLE PRECISION,
    freight_value NUMERIC(14, 2),
    created_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

const undefinedTableCode = "42P01"

// recordSelectList reads freight back as float8 so NUMERIC scans into *float64.
var recordSelectList = strings.Join([]string{
	"issue_date",
	"issue_month",
	"document_number",
	"carrier",
	"plates",
	"product",
	"origin_city",
	"destination_city",
	"volume_liters",
	"freight_value::float8",
}, ", ")

func recordValues(record domain.CanonicalRecord) []any {
	var issueDate any
	if record.IssueDate != nil {
		issueDate = *record.IssueDate
	}
	return []any{
		issueDate,
		nullableString(record.IssueMonth),
		record.DocumentNumber,
		record.Carrier,
		nullableString(record.Plates.String()),
		record.Product,
		record.OriginCity,
		record.DestinationCity,
		record.VolumeLiters,
		record.FreightValue,
	}
}

// recordScanner collects the scan destinations of one row and turns them
// back into a CanonicalRecord.
type recordScanner struct {
	issueDate  *time.Time
	issueMonth *string
	plates     *string
	record     domain.CanonicalRecord
}

func (s *recordScanner) targets() []any {
	return []any{
		&s.issueDate,
		&s.issueMonth,
		&s.record.DocumentNumber,
		&s.record.Carrier,
		&s.plates,
		&s.record.Product,
		&s.record.OriginCity,
		&s.record.DestinationCity,
		&s.record.VolumeLiters,
		&s.record.FreightValue,
	}
}

func (s *recordScanner) result() domain.CanonicalRecord {
	record := s.record
	if s.issueDate != nil {
		date := time.Date(s.issueDate.Year(), s.issueDate.Month(), s.issueDate.Day(), 0, 0, 0, 0, time.UTC)
		record.IssueDate = &date
	}
	if s.issueMonth != nil {
		record.IssueMonth = *s.issueMonth
	}
	if s.plates != nil {
		record.Plates = domain.ParsePlates(*s.plates)
	} else {
		record.Plates = domain.HeuristicPlates(nil)
	}
	return record
}

func scanRecords(rows pgx.Rows) ([]domain.CanonicalRecord, error) {
	defer rows.Close()

	records := []domain.CanonicalRecord{}
	for rows.Next() {
		var scanner recordScanner
		if err := rows.Scan(scanner.targets()...); err != nil {
			return nil, storageError("failed to scan record", err)
		}
		records = append(records, scanner.result())
	}
	if err := rows.Err(); err != nil {
		return nil, storageError("failed to iterate records", err)
	}
	return records, nil
}

func nullableString(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}

func isUndefinedTable(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == undefinedTableCode
}

func storageError(message string, err error) error {
	return fmt.Errorf("%w: %s: %w", domain.ErrStorageFailure, message, err)
}
