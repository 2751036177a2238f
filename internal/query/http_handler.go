package query

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rpattn/ctedash/internal/auth"
	"github.com/rpattn/ctedash/internal/domain"
	"github.com/rpattn/ctedash/internal/respond"
)

// Handler serves records, dashboards and the admin tenant overview.
type Handler struct {
	service *Service
}

func NewHTTPHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Routes mounts the read endpoints on r.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/api/records", h.records)
	r.Get("/api/dashboard", h.dashboard)
	r.Get("/api/admin/tenants", h.tenants)
}

func (h *Handler) records(w http.ResponseWriter, r *http.Request) {
	tenant, filter, err := scopedRequest(r)
	if err != nil {
		respond.Error(w, err)
		return
	}
	records, err := h.service.Records(r.Context(), tenant, filter)
	if err != nil {
		respond.Error(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, records)
}

func (h *Handler) dashboard(w http.ResponseWriter, r *http.Request) {
	tenant, filter, err := scopedRequest(r)
	if err != nil {
		respond.Error(w, err)
		return
	}
	dashboard, err := h.service.Dashboard(r.Context(), tenant, filter)
	if err != nil {
		respond.Error(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, dashboard)
}

func (h *Handler) tenants(w http.ResponseWriter, r *http.Request) {
	overview, err := h.service.TenantOverview(r.Context())
	if err != nil {
		respond.Error(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, overview)
}

// scopedRequest resolves the target tenant (the session's, or ?tenant= for
// administrators) and the filter parameters.
func scopedRequest(r *http.Request) (domain.TenantID, domain.RecordFilter, error) {
	values := r.URL.Query()
	filter, err := ParseFilter(values)
	if err != nil {
		return domain.TenantID{}, domain.RecordFilter{}, err
	}
	if raw := values.Get("tenant"); raw != "" {
		tenant, err := domain.ParseTenantID(raw)
		return tenant, filter, err
	}
	session, ok := auth.SessionFromContext(r.Context())
	if !ok {
		return domain.TenantID{}, domain.RecordFilter{}, domain.ErrUnauthorized
	}
	return session.Tenant, filter, nil
}
