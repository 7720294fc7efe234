package auth

import (
	"net/http"
	"strings"

	"github.com/polymerwire/modelhub/common/httputil"
	"github.com/polymerwire/modelhub/common/logging"
	"github.com/polymerwire/modelhub/common/middleware"
)

// AnonymousSubject is attached to requests when auth is disabled.
const AnonymousSubject = "anonymous"

// Verifier validates a raw bearer token.
type Verifier interface {
	Verify(token string) (*Claims, error)
}

// RequireAuth rejects requests without a valid bearer token and stores the
// token subject in the request context. A nil verifier lets every request
// through as AnonymousSubject.
func RequireAuth(v Verifier, logger *logging.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if v == nil {
				next.ServeHTTP(w, r.WithContext(middleware.WithSubject(r.Context(), AnonymousSubject)))
				return
			}

			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				httputil.WriteError(w, http.StatusUnauthorized, "missing authorization header")
				return
			}
			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
				httputil.WriteError(w, http.StatusUnauthorized, "invalid authorization header")
				return
			}

			claims, err := v.Verify(parts[1])
			if err != nil {
				logger.WithContext(r.Context()).DebugContext(r.Context(), "token rejected", logging.Error(err))
				httputil.WriteError(w, http.StatusUnauthorized, "invalid or expired token")
				return
			}

			next.ServeHTTP(w, r.WithContext(middleware.WithSubject(r.Context(), claims.Subject)))
		})
	}
}
