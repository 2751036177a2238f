package query

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/rpattn/ctedash/internal/auth"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(svc *Service, session *auth.Session) http.Handler {
	r := chi.NewRouter()
	if session != nil {
		r.Use(func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
				next.ServeHTTP(w, req.WithContext(auth.ContextWithSession(req.Context(), *session)))
			})
		})
	}
	NewHTTPHandler(svc).Routes(r)
	return r
}

func TestHandler_DashboardAppliesFilters(t *testing.T) {
	svc, _, _, _ := newTestService()
	router := newTestRouter(svc, &auth.Session{Username: "ana", Tenant: alpha})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/dashboard?destination=CAMPINAS&product=All", nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var body struct {
		Summary struct {
			Count int `json:"count"`
		} `json:"summary"`
		TripsByDestination []struct {
			Key   string `json:"key"`
			Count int    `json:"count"`
		} `json:"trips_by_destination"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 3, body.Summary.Count)
	require.Len(t, body.TripsByDestination, 1)
	assert.Equal(t, "CAMPINAS", body.TripsByDestination[0].Key)
}

func TestHandler_RecordsStatusCodes(t *testing.T) {
	svc, _, _, _ := newTestService()

	rec := httptest.NewRecorder()
	newTestRouter(svc, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/records", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	router := newTestRouter(svc, &auth.Session{Username: "ana", Tenant: alpha})

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/records?tenant=beta", nil))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/records?from=yesterday", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/records", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	var records []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &records))
	assert.Len(t, records, 5)
}

func TestHandler_TenantsIsAdminOnly(t *testing.T) {
	svc, _, _, _ := newTestService()

	rec := httptest.NewRecorder()
	newTestRouter(svc, &auth.Session{Username: "ana", Tenant: alpha}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/admin/tenants", nil))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = httptest.NewRecorder()
	newTestRouter(svc, &auth.Session{Username: "root", Tenant: alpha, Privileged: true}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/admin/tenants", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var overview []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &overview))
	assert.Len(t, overview, 3)
}
