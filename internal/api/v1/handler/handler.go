package handler

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"mcptoolbox/internal/config"
	"mcptoolbox/pkg/response"
)

const (
	MCPEndpoint = "/mcp"
	SSEEndpoint = "/sse"
)

// advertisedEndpoint is the MCP route a client should connect to for the
// configured transport.
func advertisedEndpoint(transport string) string {
	if transport == config.TransportSSE {
		return SSEEndpoint
	}
	return MCPEndpoint
}

type StatusResponse struct {
	Name        string `json:"name"`
	Version     string `json:"version"`
	MCPEndpoint string `json:"mcp_endpoint"`
	Status      string `json:"status"`
}

type HealthResponse struct {
	Status string `json:"status"`
	Name   string `json:"name"`
}

// RootHandler reports server identity on "/" and 404s every other path the
// mux falls through to.
func RootHandler(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			NotFoundHandler(w, r)
			return
		}
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			w.Header().Set("Allow", "GET, HEAD")
			response.Error(w, http.StatusMethodNotAllowed, "Method Not Allowed")
			return
		}
		response.Raw(w, http.StatusOK, StatusResponse{
			Name:        cfg.MCPName,
			Version:     cfg.MCPVersion,
			MCPEndpoint: advertisedEndpoint(cfg.Transport),
			Status:      "running",
		})
	}
}

func HealthCheckHandler(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			w.Header().Set("Allow", "GET, HEAD")
			response.Error(w, http.StatusMethodNotAllowed, "Method Not Allowed")
			return
		}
		response.Raw(w, http.StatusOK, HealthResponse{Status: "ok", Name: cfg.MCPName})
	}
}

func NotFoundHandler(w http.ResponseWriter, r *http.Request) {
	response.Error(w, http.StatusNotFound, "Not found")
}

func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
