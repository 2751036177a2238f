package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rpattn/ctedash/internal/domain"
)

type ingestionLogRepository struct {
	pool *pgxpool.Pool
}

// NewIngestionLogRepository wires a repository backed by pgxpool.
func NewIngestionLogRepository(pool *pgxpool.Pool) IngestionLogRepository {
	return &ingestionLogRepository{pool: pool}
}

func (r *ingestionLogRepository) Record(ctx context.Context, entry domain.IngestionLogEntry) error {
	if r.pool == nil {
		return fmt.Errorf("ingestion log repository not initialized")
	}
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}

	_, err := r.pool.Exec(
		ctx,
		`INSERT INTO ingestion_logs (id, tenant, batch_id, file_name, error_message)
		 VALUES ($1, $2, $3, $4, $5)`,
		entry.ID,
		entry.Tenant.String(),
		entry.BatchID,
		entry.FileName,
		entry.ErrorMessage,
	)
	if err != nil {
		return storageError("failed to record ingestion log", err)
	}

	return nil
}

func (r *ingestionLogRepository) List(ctx context.Context, tenant domain.TenantID, batchID *uuid.UUID, limit int, offset int) ([]domain.IngestionLogEntry, error) {
	if r.pool == nil {
		return nil, fmt.Errorf("ingestion log repository not initialized")
	}

	if limit <= 0 {
		limit = 200
	}
	if offset < 0 {
		offset = 0
	}

	var batch any
	if batchID != nil {
		batch = *batchID
	}

	rows, err := r.pool.Query(
		ctx,
		`SELECT id, batch_id, file_name, error_message, created_at
		 FROM ingestion_logs
		 WHERE tenant = $1
		   AND ($2::uuid IS NULL OR batch_id = $2::uuid)
		 ORDER BY created_at DESC
		 LIMIT $3 OFFSET $4`,
		tenant.String(),
		batch,
		limit,
		offset,
	)
	if err != nil {
		return nil, storageError("failed to list ingestion logs", err)
	}
	defer rows.Close()

	logs := []domain.IngestionLogEntry{}
	for rows.Next() {
		var (
			entry     domain.IngestionLogEntry
			createdAt pgtype.Timestamptz
		)
		if scanErr := rows.Scan(
			&entry.ID,
			&entry.BatchID,
			&entry.FileName,
			&entry.ErrorMessage,
			&createdAt,
		); scanErr != nil {
			return nil, storageError("failed to scan ingestion log", scanErr)
		}

		entry.Tenant = tenant
		if createdAt.Valid {
			entry.CreatedAt = createdAt.Time
		}

		logs = append(logs, entry)
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, storageError("failed to iterate ingestion logs", rowsErr)
	}

	return logs, nil
}
