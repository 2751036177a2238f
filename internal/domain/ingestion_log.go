package domain

import (
	"time"

	"github.com/google/uuid"
)

// IngestionLogEntry captures a document that was skipped during ingestion.
type IngestionLogEntry struct {
	ID           uuid.UUID `json:"id"`
	Tenant       TenantID  `json:"tenant"`
	BatchID      uuid.UUID `json:"batch_id"`
	FileName     string    `json:"file_name"`
	ErrorMessage string    `json:"error_message"`
	CreatedAt    time.Time `json:"created_at"`
}
