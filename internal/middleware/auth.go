package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"atrium/internal/auth"
	"atrium/internal/httputil"
)

// Auth validates the Bearer token on every request and stores the verified
// user id in the request context. EventSource clients cannot set headers,
// so SSE connections may pass the token as an access_token query parameter.
func Auth(verifier auth.TokenVerifier, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				token = r.URL.Query().Get("access_token")
			}
			if token == "" {
				httputil.RespondError(w, http.StatusUnauthorized, "missing access token")
				return
			}

			claims, err := verifier.VerifyToken(token)
			if err != nil {
				logger.Debug("token rejected", "path", r.URL.Path)
				httputil.RespondError(w, http.StatusUnauthorized, "invalid access token")
				return
			}

			next.ServeHTTP(w, httputil.WithUserID(r, claims.GetUserID()))
		})
	}
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
