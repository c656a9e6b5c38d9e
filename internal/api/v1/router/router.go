package router

import (
	"net/http"

	"mcptoolbox/internal/api/v1/handler"
	"mcptoolbox/internal/api/v1/middleware"
	"mcptoolbox/internal/auth"
	"mcptoolbox/internal/config"
	"mcptoolbox/internal/log"
	"mcptoolbox/pkg/response"
)

const healthPath = "/health"

// MCPHandlers are the transport handlers mounted under /mcp and /sse.
type MCPHandlers struct {
	Streamable http.Handler
	SSE        http.Handler
}

// New builds the public router. MCP endpoints sit behind bearer auth when v
// is non-nil; status and health stay open.
func New(cfg *config.Config, mcp MCPHandlers, v auth.Verifier, limiter *middleware.RateLimiter) http.Handler {
	mux := http.NewServeMux()
	requireAuth := middleware.BearerAuth(v)

	mux.HandleFunc("/", handler.RootHandler(cfg))
	mux.HandleFunc(healthPath, handler.HealthCheckHandler(cfg))
	if mcp.Streamable != nil {
		mux.Handle(handler.MCPEndpoint, requireAuth(mcp.Streamable))
	}
	if mcp.SSE != nil {
		mux.Handle(handler.SSEEndpoint, requireAuth(mcp.SSE))
	}

	return middleware.RecoverPanic(
		log.Logger,
		func(w http.ResponseWriter, r *http.Request, err error) {
			response.Error(w, http.StatusInternalServerError, "Internal Server Error")
		},
		middleware.SecureHeaders(
			middleware.Logging(
				middleware.Metrics("/", healthPath, handler.MCPEndpoint, handler.SSEEndpoint)(
					middleware.CORS(
						limiter.Middleware(mux),
					),
				),
			),
		),
	)
}

// NewMetricsRouter serves Prometheus metrics on the internal listener.
func NewMetricsRouter() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", handler.MetricsHandler())
	return mux
}
