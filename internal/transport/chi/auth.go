package chi

import (
	"net/http"
	"strings"
)

const bearerPrefix = "Bearer "

// authExempt lists paths that never require a token. Probes and
// scrapers do not carry credentials.
var authExempt = map[string]struct{}{
	"/health":  {},
	"/metrics": {},
}

// BearerAuthMiddleware validates Bearer tokens against the configured
// API keys. With no keys configured authentication is disabled and every
// request passes through.
func BearerAuthMiddleware(apiKeys []string) func(http.Handler) http.Handler {
	valid := make(map[string]struct{}, len(apiKeys))
	for _, k := range apiKeys {
		if k != "" {
			valid[k] = struct{}{}
		}
	}

	return func(next http.Handler) http.Handler {
		if len(valid) == 0 {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := authExempt[r.URL.Path]; ok {
				next.ServeHTTP(w, r)
				return
			}

			header := r.Header.Get("Authorization")
			switch {
			case header == "":
				writeError(w, http.StatusUnauthorized, "missing authorization header")
			case !strings.HasPrefix(header, bearerPrefix):
				writeError(w, http.StatusUnauthorized, "authorization header must use Bearer scheme")
			default:
				if _, ok := valid[header[len(bearerPrefix):]]; !ok {
					writeError(w, http.StatusUnauthorized, "invalid api key")
					return
				}
				next.ServeHTTP(w, r)
			}
		})
	}
}
