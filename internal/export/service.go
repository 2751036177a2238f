package export

import (
	"context"
	"fmt"
	"io"

	"github.com/rpattn/ctedash/internal/domain"
	"github.com/rpattn/ctedash/internal/repository"

	"github.com/xuri/excelize/v2"
)

// SheetName is the single worksheet of every export.
const SheetName = "CTe"

const dateLayout = "2006-01-02"

// RecordSource supplies scope-checked records to export.
type RecordSource interface {
	Records(ctx context.Context, tenant domain.TenantID, filter domain.RecordFilter) ([]domain.CanonicalRecord, error)
	Ledger(ctx context.Context) ([]domain.LedgerRecord, error)
}

// Service renders records as xlsx workbooks.
type Service struct {
	source RecordSource
}

func NewService(source RecordSource) *Service {
	return &Service{source: source}
}

// ExportTenant writes the tenant's filtered records to w.
func (s *Service) ExportTenant(ctx context.Context, tenant domain.TenantID, filter domain.RecordFilter, w io.Writer) (int, error) {
	records, err := s.source.Records(ctx, tenant, filter)
	if err != nil {
		return 0, err
	}
	if err := WriteRecords(w, records); err != nil {
		return 0, err
	}
	return len(records), nil
}

// ExportLedger writes the whole consolidated ledger to w.
func (s *Service) ExportLedger(ctx context.Context, w io.Writer) (int, error) {
	entries, err := s.source.Ledger(ctx)
	if err != nil {
		return 0, err
	}
	if err := WriteLedger(w, entries); err != nil {
		return 0, err
	}
	return len(entries), nil
}

// FileName is the download name of a tenant export.
func FileName(tenant domain.TenantID) string {
	return tenant.String() + "_cte_export.xlsx"
}

// LedgerFileName is the download name of the ledger export.
const LedgerFileName = "cte_ledger_export.xlsx"

// WriteRecords writes a workbook with a header row followed by one row per
// record, columns in record order. Absent values are empty cells.
func WriteRecords(w io.Writer, records []domain.CanonicalRecord) error {
	rows := make([][]any, len(records))
	for i, record := range records {
		rows[i] = recordRow(record)
	}
	return writeWorkbook(w, headerRow(false), rows)
}

// WriteLedger is WriteRecords with a leading tenant column.
func WriteLedger(w io.Writer, entries []domain.LedgerRecord) error {
	rows := make([][]any, len(entries))
	for i, entry := range entries {
		rows[i] = append([]any{entry.Tenant.String()}, recordRow(entry.Record)...)
	}
	return writeWorkbook(w, headerRow(true), rows)
}

func headerRow(withTenant bool) []any {
	header := make([]any, 0, len(repository.RecordColumns)+1)
	if withTenant {
		header = append(header, "tenant")
	}
	for _, column := range repository.RecordColumns {
		header = append(header, column)
	}
	return header
}

func recordRow(record domain.CanonicalRecord) []any {
	var issueDate any
	if record.IssueDate != nil {
		issueDate = record.IssueDate.Format(dateLayout)
	}
	return []any{
		issueDate,
		record.IssueMonth,
		text(record.DocumentNumber),
		text(record.Carrier),
		record.Plates.String(),
		text(record.Product),
		text(record.OriginCity),
		text(record.DestinationCity),
		number(record.VolumeLiters),
		number(record.FreightValue),
	}
}

func text(value *string) any {
	if value == nil {
		return nil
	}
	return *value
}

func number(value *float64) any {
	if value == nil {
		return nil
	}
	return *value
}

func writeWorkbook(w io.Writer, header []any, rows [][]any) (err error) {
	f := excelize.NewFile()
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("close workbook: %w", closeErr)
		}
	}()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	stream, err := f.NewStreamWriter(SheetName)
	if err != nil {
		return fmt.Errorf("open stream writer: %w", err)
	}

	if err := stream.SetRow("A1", header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := stream.SetRow(cell, row); err != nil {
			return fmt.Errorf("write row %d: %w", i+1, err)
		}
	}
	if err := stream.Flush(); err != nil {
		return fmt.Errorf("flush workbook: %w", err)
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}
