package export

import (
	"bytes"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rpattn/ctedash/internal/auth"
	"github.com/rpattn/ctedash/internal/domain"
	"github.com/rpattn/ctedash/internal/query"
	"github.com/rpattn/ctedash/internal/respond"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type Handler struct {
	service *Service
}

func NewHTTPHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// TenantExport serves GET /api/export for the caller's tenant (or ?tenant=
// for administrators) with the dashboard filter parameters.
func (h *Handler) TenantExport(w http.ResponseWriter, r *http.Request) {
	tenant, err := requestTenant(r)
	if err != nil {
		respond.Error(w, err)
		return
	}
	filter, err := query.ParseFilter(r.URL.Query())
	if err != nil {
		respond.Error(w, err)
		return
	}

	var buf bytes.Buffer
	if _, err := h.service.ExportTenant(r.Context(), tenant, filter, &buf); err != nil {
		respond.Error(w, err)
		return
	}
	writeAttachment(w, FileName(tenant), buf.Bytes())
}

// LedgerExport serves GET /api/admin/ledger/export.
func (h *Handler) LedgerExport(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if _, err := h.service.ExportLedger(r.Context(), &buf); err != nil {
		respond.Error(w, err)
		return
	}
	writeAttachment(w, LedgerFileName, buf.Bytes())
}

// Routes mounts both exports on r.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/api/export", h.TenantExport)
	r.Get("/api/admin/ledger/export", h.LedgerExport)
}

func writeAttachment(w http.ResponseWriter, fileName string, payload []byte) {
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+fileName+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(payload)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(payload)
}

func requestTenant(r *http.Request) (domain.TenantID, error) {
	if raw := r.URL.Query().Get("tenant"); raw != "" {
		return domain.ParseTenantID(raw)
	}
	session, ok := auth.SessionFromContext(r.Context())
	if !ok {
		return domain.TenantID{}, domain.ErrUnauthorized
	}
	return session.Tenant, nil
}
