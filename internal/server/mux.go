// Package server builds the HTTP surface of ghost-sync-mcp.
package server

import (
	"log/slog"
	"net/http"

	"github.com/alexjbarnes/ghost-sync/internal/mcpserver"
)

// MuxConfig holds dependencies for building the HTTP mux.
type MuxConfig struct {
	MCPHandler http.Handler
	TokenHash  string
	Logger     *slog.Logger
}

// NewMux builds the HTTP mux with a health check and the MCP endpoint.
// The MCP endpoint is protected by bearer token middleware.
func NewMux(cfg MuxConfig) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})

	mux.Handle("/mcp", mcpserver.BearerAuth(cfg.TokenHash, cfg.Logger)(cfg.MCPHandler))

	return mux
}
