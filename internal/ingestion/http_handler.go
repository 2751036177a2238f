package ingestion

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/rpattn/ctedash/internal/auth"
	"github.com/rpattn/ctedash/internal/cte"
	"github.com/rpattn/ctedash/internal/domain"
	"github.com/rpattn/ctedash/internal/respond"

	"github.com/google/uuid"
)

const (
	maxMemory = 32 << 20
	formField = "files"
)

// Handler exposes ingestion as an HTTP endpoint.
type Handler struct {
	service *Service
}

// NewHTTPHandler wraps the service: POST uploads a batch, GET lists the
// recorded failures.
func NewHTTPHandler(service *Service) http.Handler {
	return &Handler{service: service}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.Method == http.MethodPost:
		h.handleIngest(w, r)
	case r.Method == http.MethodGet && strings.HasSuffix(r.URL.Path, "/logs"):
		h.handleListLogs(w, r)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *Handler) handleIngest(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxMemory); err != nil {
		respond.Error(w, fmt.Errorf("%w: invalid form data: %v", domain.ErrInvalidInput, err))
		return
	}
	defer r.MultipartForm.RemoveAll()

	headers := r.MultipartForm.File[formField]
	if len(headers) == 0 {
		respond.Error(w, fmt.Errorf("%w: at least one file is required in %q", domain.ErrInvalidInput, formField))
		return
	}
	docs := make([]cte.RawDocument, len(headers))
	for i, header := range headers {
		docs[i] = uploadedDocument(header)
	}

	if preview, _ := strconv.ParseBool(r.URL.Query().Get("preview")); preview {
		respond.JSON(w, http.StatusOK, h.service.Preview(docs))
		return
	}

	tenant, err := requestTenant(r)
	if err != nil {
		respond.Error(w, err)
		return
	}

	summary, err := h.service.Ingest(r.Context(), Request{Tenant: tenant, Documents: docs})
	if err != nil {
		if errors.Is(err, domain.ErrLedgerWrite) {
			respond.JSON(w, http.StatusInternalServerError, map[string]any{
				"error":   "records were stored for the tenant but the consolidated ledger write failed",
				"summary": summary,
			})
			return
		}
		respond.Error(w, err)
		return
	}

	respond.JSON(w, http.StatusOK, summary)
}

func (h *Handler) handleListLogs(w http.ResponseWriter, r *http.Request) {
	tenant, err := requestTenant(r)
	if err != nil {
		respond.Error(w, err)
		return
	}

	query := r.URL.Query()
	var batchID *uuid.UUID
	if raw := strings.TrimSpace(query.Get("batchId")); raw != "" {
		parsed, err := uuid.Parse(raw)
		if err != nil {
			respond.Error(w, fmt.Errorf("%w: invalid batch id: %v", domain.ErrInvalidInput, err))
			return
		}
		batchID = &parsed
	}
	limit, _ := strconv.Atoi(query.Get("limit"))
	offset, _ := strconv.Atoi(query.Get("offset"))

	logs, err := h.service.Logs(r.Context(), tenant, batchID, limit, offset)
	if err != nil {
		respond.Error(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, logs)
}

// requestTenant is the session's tenant unless an explicit tenant is given;
// the service decides whether the caller may use it.
func requestTenant(r *http.Request) (domain.TenantID, error) {
	if raw := strings.TrimSpace(r.FormValue("tenant")); raw != "" {
		return domain.ParseTenantID(raw)
	}
	session, ok := auth.SessionFromContext(r.Context())
	if !ok {
		return domain.TenantID{}, domain.ErrUnauthorized
	}
	return session.Tenant, nil
}

func uploadedDocument(header *multipart.FileHeader) cte.RawDocument {
	return cte.RawDocument{
		Name: header.Filename,
		Open: func() (io.ReadCloser, error) {
			return header.Open()
		},
	}
}
