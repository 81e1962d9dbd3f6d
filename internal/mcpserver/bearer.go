package mcpserver

import (
	"log/slog"
	"net"
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// BearerAuth rejects requests whose bearer token does not match the
// bcrypt hash tokenHash.
func BearerAuth(tokenHash string, logger *slog.Logger) func(http.Handler) http.Handler {
	hash := []byte(tokenHash)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip, _, err := net.SplitHostPort(r.RemoteAddr)
			if err != nil {
				ip = r.RemoteAddr
			}

			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || token == "" {
				logger.Debug("mcp: no bearer token", slog.String("ip", ip), slog.String("path", r.URL.Path))
				w.Header().Set("WWW-Authenticate", "Bearer")
				w.WriteHeader(http.StatusUnauthorized)

				return
			}

			if bcrypt.CompareHashAndPassword(hash, []byte(token)) != nil {
				logger.Warn("mcp: invalid bearer token", slog.String("ip", ip), slog.String("path", r.URL.Path))
				w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token"`)
				w.WriteHeader(http.StatusUnauthorized)

				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
