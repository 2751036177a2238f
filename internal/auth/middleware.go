package auth

import (
	"fmt"
	"net/http"

	"github.com/rpattn/ctedash/internal/domain"
	"github.com/rpattn/ctedash/internal/respond"
)

var errMissingCredentials = fmt.Errorf("%w: credentials required", domain.ErrUnauthorized)

// BasicAuth authenticates every request with HTTP basic credentials and
// attaches the resulting Session to its context.
func BasicAuth(service *Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			username, password, ok := r.BasicAuth()
			if !ok {
				respond.Error(w, errMissingCredentials)
				return
			}
			session, err := service.Authenticate(r.Context(), username, password)
			if err != nil {
				respond.Error(w, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(ContextWithSession(r.Context(), session)))
		})
	}
}
