package auth

import (
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/maplewind/maplewind-api/internal/user"
)

// RequireUser rejects requests without a valid bearer access token and stores
// the resolved user on the request context.
func RequireUser(svc *Service, logger *zap.SugaredLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				writeError(w, logger, ErrInvalidToken, accessMessages)
				return
			}
			u, err := svc.Authenticate(r.Context(), token)
			if err != nil {
				writeError(w, logger, err, accessMessages)
				return
			}
			next.ServeHTTP(w, r.WithContext(user.WithCurrent(r.Context(), u)))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	if len(h) < len("bearer ") || !strings.EqualFold(h[:len("bearer ")], "bearer ") {
		return "", false
	}
	t := strings.TrimSpace(h[len("bearer "):])
	return t, t != ""
}
