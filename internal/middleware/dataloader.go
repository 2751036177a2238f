package middleware

import (
	"net/http"

	"github.com/rpattn/ctedash/internal/repository"
	"github.com/rpattn/ctedash/internal/tenantloader"
)

// DataLoaderMiddleware attaches a fresh tenant loader to each request context
func DataLoaderMiddleware(ledger repository.LedgerRepository) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			loader := tenantloader.NewTenantLoader(ledger)
			ctx := tenantloader.WithLoader(r.Context(), loader)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
