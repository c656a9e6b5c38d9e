package middleware

import (
	"net/http"

	sdkauth "github.com/modelcontextprotocol/go-sdk/auth"
	"go.uber.org/zap"
	"mcptoolbox/internal/auth"
	"mcptoolbox/internal/log"
	"mcptoolbox/pkg/response"
)

// BearerAuth guards next with the configured verifier. A nil verifier means
// authentication is off and requests run as the anonymous principal.
//
// Requests without a bearer credential are rejected here with a JSON error;
// the rest go through the SDK middleware, which verifies the token and
// attaches its TokenInfo for the tool handlers.
func BearerAuth(v auth.Verifier) func(http.Handler) http.Handler {
	if v == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	verify := sdkauth.RequireBearerToken(auth.TokenVerifier(v), nil)
	return func(next http.Handler) http.Handler {
		verified := verify(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if auth.ExtractBearerToken(r.Header.Get("Authorization")) == "" {
				log.Logger.Debug("missing bearer token", zap.String("path", r.URL.Path))
				w.Header().Set("WWW-Authenticate", "Bearer")
				response.Error(w, http.StatusUnauthorized, "missing bearer token")
				return
			}
			verified.ServeHTTP(w, r)
		})
	}
}
