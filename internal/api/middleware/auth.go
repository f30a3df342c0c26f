package middleware

import (
	"net/http"
	"strings"

	"github.com/sellerhub/backend/internal/auth"
	"github.com/sellerhub/backend/internal/pkg/errors"
	"github.com/sellerhub/backend/internal/pkg/utils"
)

// SessionAuth returns a middleware that requires a valid dashboard
// session token, from the Authorization header or the session cookie
func SessionAuth(jwtSecret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var tokenStr string

			authHeader := r.Header.Get("Authorization")
			if authHeader != "" {
				parts := strings.Split(authHeader, " ")
				if len(parts) == 2 && parts[0] == "Bearer" {
					tokenStr = parts[1]
				}
			} else if cookie, err := r.Cookie("session"); err == nil {
				tokenStr = cookie.Value
			}

			if tokenStr == "" {
				utils.WriteError(w, errors.Unauthorized("missing session token"))
				return
			}

			if _, err := auth.ParseClaims(tokenStr, jwtSecret); err != nil {
				utils.WriteError(w, errors.Unauthorized("invalid or expired session token"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
