package middleware

import (
	"context"
	"net/http"
	"strings"

	adminauth "github.com/420website/CRM-sub000"
)

type sessionContextKey struct{}

// SessionFromContext returns the session info injected by a guard, if the
// request passed one.
func SessionFromContext(ctx context.Context) (*adminauth.SessionInfo, bool) {
	info, ok := ctx.Value(sessionContextKey{}).(*adminauth.SessionInfo)
	return info, ok
}

// Guard returns middleware that rejects requests whose session is missing,
// invalid, expired, or below the required trust level. The response never
// says which.
func Guard(engine *adminauth.Engine, required adminauth.TrustLevel) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine == nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			info, err := engine.Validate(r.Context(), token, required)
			if err != nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), sessionContextKey{}, info)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if !strings.HasPrefix(value, bearer) {
		return "", false
	}

	token := value[len(bearer):]
	if token == "" {
		return "", false
	}

	return token, true
}
