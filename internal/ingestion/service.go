package ingestion

import (
	"context"
	"fmt"

	"github.com/rpattn/ctedash/internal/auth"
	"github.com/rpattn/ctedash/internal/cte"
	"github.com/rpattn/ctedash/internal/domain"
	"github.com/rpattn/ctedash/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// SummaryInvalidator drops cached aggregates once a tenant's data changes.
type SummaryInvalidator interface {
	Invalidate(ctx context.Context, tenant domain.TenantID) error
}

// Service turns uploaded CT-e documents into persisted records.
type Service struct {
	store   repository.TenantStore
	ledger  repository.LedgerRepository
	logRepo repository.IngestionLogRepository
	cache   SummaryInvalidator
	logger  zerolog.Logger
}

// NewService creates a new ingestion service. logRepo and cache may be nil.
func NewService(
	store repository.TenantStore,
	ledger repository.LedgerRepository,
	logRepo repository.IngestionLogRepository,
	cache SummaryInvalidator,
	logger zerolog.Logger,
) *Service {
	return &Service{
		store:   store,
		ledger:  ledger,
		logRepo: logRepo,
		cache:   cache,
		logger:  logger,
	}
}

// Request describes the ingestion input.
type Request struct {
	Tenant    domain.TenantID
	Documents []cte.RawDocument
}

// DocumentError reports one skipped document.
type DocumentError struct {
	FileName string `json:"file_name"`
	Error    string `json:"error"`
}

// Summary returns ingestion level metrics. When the ledger write fails the
// summary still reports the tenant rows that were committed.
type Summary struct {
	BatchID           uuid.UUID                `json:"batch_id"`
	Tenant            domain.TenantID          `json:"tenant"`
	TotalDocuments    int                      `json:"total_documents"`
	ParsedDocuments   int                      `json:"parsed_documents"`
	FailedDocuments   int                      `json:"failed_documents"`
	TenantRowsWritten int                      `json:"tenant_rows_written"`
	LedgerRowsWritten int                      `json:"ledger_rows_written"`
	Failures          []DocumentError          `json:"failures"`
	Records           []domain.CanonicalRecord `json:"records"`
}

// Preview extracts the documents without persisting anything.
func (s *Service) Preview(docs []cte.RawDocument) Summary {
	batch := cte.Assemble(docs)
	summary := Summary{
		BatchID:         uuid.New(),
		TotalDocuments:  len(docs),
		ParsedDocuments: len(batch.Records),
		FailedDocuments: len(batch.Failures),
		Failures:        make([]DocumentError, 0, len(batch.Failures)),
		Records:         batch.Records,
	}
	for _, failure := range batch.Failures {
		summary.Failures = append(summary.Failures, DocumentError{FileName: failure.Name, Error: failure.Err.Error()})
	}
	return summary
}

// Ingest extracts every document, appends the parsed records to the tenant's
// table and then mirrors them into the ledger. Unparseable documents are
// reported and skipped. Storage failures are returned with the summary so far.
func (s *Service) Ingest(ctx context.Context, req Request) (Summary, error) {
	if err := auth.EnforceTenantScope(ctx, req.Tenant); err != nil {
		return Summary{}, err
	}

	summary := s.Preview(req.Documents)
	summary.Tenant = req.Tenant

	logger := s.logger.With().Str("tenant", req.Tenant.String()).Str("batch_id", summary.BatchID.String()).Logger()
	for _, failure := range summary.Failures {
		logger.Warn().Str("file", failure.FileName).Str("error", failure.Error).Msg("skipping document")
		s.logIngestionError(ctx, req.Tenant, summary.BatchID, failure)
	}

	if len(summary.Records) == 0 {
		logger.Info().Int("documents", summary.TotalDocuments).Msg("nothing to persist")
		return summary, nil
	}

	if err := s.store.EnsureTable(ctx, req.Tenant); err != nil {
		return summary, err
	}

	written, err := s.store.Append(ctx, req.Tenant, summary.Records)
	if err != nil {
		logger.Error().Err(err).Msg("tenant append failed")
		return summary, err
	}
	summary.TenantRowsWritten = written

	mirrored, err := s.ledger.Append(ctx, req.Tenant, summary.Records)
	if err != nil {
		logger.Error().Err(err).Int("tenant_rows_written", written).Msg("ledger append failed after tenant commit")
		s.invalidate(ctx, logger, req.Tenant)
		return summary, fmt.Errorf("%w: %d tenant rows already committed: %w", domain.ErrLedgerWrite, written, err)
	}
	summary.LedgerRowsWritten = mirrored
	s.invalidate(ctx, logger, req.Tenant)

	logger.Info().
		Int("documents", summary.TotalDocuments).
		Int("parsed", summary.ParsedDocuments).
		Int("failed", summary.FailedDocuments).
		Msg("batch ingested")
	return summary, nil
}

func (s *Service) invalidate(ctx context.Context, logger zerolog.Logger, tenant domain.TenantID) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, tenant); err != nil {
		logger.Warn().Err(err).Msg("failed to invalidate summary cache")
	}
}

func (s *Service) logIngestionError(ctx context.Context, tenant domain.TenantID, batchID uuid.UUID, failure DocumentError) {
	if s.logRepo == nil {
		return
	}
	entry := domain.IngestionLogEntry{
		ID:           uuid.New(),
		Tenant:       tenant,
		BatchID:      batchID,
		FileName:     failure.FileName,
		ErrorMessage: failure.Error,
	}
	if err := s.logRepo.Record(ctx, entry); err != nil {
		s.logger.Warn().Err(err).Str("file", failure.FileName).Msg("failed to record ingestion log")
	}
}

// Logs lists recorded document failures of tenant, newest first.
func (s *Service) Logs(ctx context.Context, tenant domain.TenantID, batchID *uuid.UUID, limit, offset int) ([]domain.IngestionLogEntry, error) {
	if err := auth.EnforceTenantScope(ctx, tenant); err != nil {
		return nil, err
	}
	if s.logRepo == nil {
		return []domain.IngestionLogEntry{}, nil
	}
	return s.logRepo.List(ctx, tenant, batchID, limit, offset)
}
