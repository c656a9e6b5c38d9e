package auth

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	sdkauth "github.com/modelcontextprotocol/go-sdk/auth"
	"go.uber.org/zap"
	"mcptoolbox/internal/config"
	"mcptoolbox/internal/log"
)

var ErrUnauthorized = errors.New("unauthorized")

const (
	MethodAPIKey   = "api_key"
	MethodSupabase = "supabase"
	MethodNone     = "none"

	AnonymousUserID = "anonymous"

	principalKey = "principal"

	// API keys carry no expiry of their own; the bearer middleware still
	// requires one on every token.
	apiKeyTokenLifetime = time.Hour
)

// Principal is the caller identity resolved from a bearer token.
type Principal struct {
	UserID string `json:"user_id"`
	Email  string `json:"email,omitempty"`
	Role   string `json:"role,omitempty"`
	Method string `json:"method"`
}

var anonymous = &Principal{UserID: AnonymousUserID, Method: MethodNone}

func Anonymous() *Principal {
	p := *anonymous
	return &p
}

// Verifier turns a raw bearer token into a Principal.
type Verifier interface {
	Verify(ctx context.Context, token string) (*Principal, time.Time, error)
}

// ExtractBearerToken returns the token from an Authorization header value,
// or "" when the header is not a bearer credential.
func ExtractBearerToken(header string) string {
	header = strings.TrimSpace(header)
	const prefix = "bearer "
	if len(header) < len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}

type APIKeyVerifier struct {
	keys [][]byte
	now  func() time.Time
}

func NewAPIKeyVerifier(keys []string) *APIKeyVerifier {
	v := &APIKeyVerifier{now: time.Now}
	for _, k := range keys {
		if k = strings.TrimSpace(k); k != "" {
			v.keys = append(v.keys, []byte(k))
		}
	}
	return v
}

func (v *APIKeyVerifier) Verify(_ context.Context, token string) (*Principal, time.Time, error) {
	if token == "" {
		return nil, time.Time{}, fmt.Errorf("%w: empty API key", ErrUnauthorized)
	}
	candidate := []byte(token)
	matched := 0
	// every key is compared so timing does not depend on which one matches
	for _, k := range v.keys {
		matched |= subtle.ConstantTimeCompare(candidate, k)
	}
	if matched != 1 {
		return nil, time.Time{}, fmt.Errorf("%w: unknown API key", ErrUnauthorized)
	}
	return &Principal{UserID: apiKeyUserID(token), Method: MethodAPIKey}, v.now().Add(apiKeyTokenLifetime), nil
}

func apiKeyUserID(key string) string {
	sum := sha256.Sum256([]byte(key))
	return "apikey:" + hex.EncodeToString(sum[:8])
}

type supabaseClaims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// SupabaseVerifier validates HS256 access tokens signed with the project JWT secret.
type SupabaseVerifier struct {
	secret []byte
	parser *jwt.Parser
}

func NewSupabaseVerifier(secret, audience string) (*SupabaseVerifier, error) {
	if secret == "" {
		return nil, errors.New("supabase JWT secret is not configured")
	}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if audience != "" {
		opts = append(opts, jwt.WithAudience(audience))
	}
	return &SupabaseVerifier{secret: []byte(secret), parser: jwt.NewParser(opts...)}, nil
}

func (v *SupabaseVerifier) Verify(_ context.Context, token string) (*Principal, time.Time, error) {
	if token == "" {
		return nil, time.Time{}, fmt.Errorf("%w: empty token", ErrUnauthorized)
	}
	claims := &supabaseClaims{}
	_, err := v.parser.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return v.secret, nil
	})
	if errors.Is(err, jwt.ErrTokenExpired) {
		return nil, time.Time{}, fmt.Errorf("%w: token has expired", ErrUnauthorized)
	}
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	if claims.Subject == "" {
		return nil, time.Time{}, fmt.Errorf("%w: token has no subject", ErrUnauthorized)
	}
	return &Principal{
		UserID: claims.Subject,
		Email:  claims.Email,
		Role:   claims.Role,
		Method: MethodSupabase,
	}, claims.ExpiresAt.Time, nil
}

// NewVerifier builds the verifier for the configured auth mode. It returns
// nil when authentication is disabled.
func NewVerifier(cfg *config.Config) (Verifier, error) {
	switch cfg.AuthMode {
	case config.AuthNone, "":
		return nil, nil
	case config.AuthAPIKey:
		keys := cfg.APIKeyList()
		if len(keys) == 0 {
			return nil, errors.New("auth mode api_key requires MCP_API_KEYS")
		}
		return NewAPIKeyVerifier(keys), nil
	case config.AuthSupabase:
		return NewSupabaseVerifier(cfg.SupabaseJWTSecret, cfg.SupabaseJWTAudience)
	default:
		return nil, fmt.Errorf("unknown auth mode %q", cfg.AuthMode)
	}
}

// TokenVerifier adapts v to the bearer middleware of the MCP SDK. Rejections
// surface as auth.ErrInvalidToken only, the reason goes to the log.
func TokenVerifier(v Verifier) sdkauth.TokenVerifier {
	return func(ctx context.Context, token string, r *http.Request) (*sdkauth.TokenInfo, error) {
		p, exp, err := v.Verify(ctx, token)
		if err != nil {
			log.Logger.Info("bearer token rejected",
				zap.String("path", r.URL.Path),
				zap.Error(err),
			)
			return nil, sdkauth.ErrInvalidToken
		}
		return &sdkauth.TokenInfo{
			Expiration: exp,
			Extra:      map[string]any{principalKey: p},
		}, nil
	}
}

// FromTokenInfo returns the principal stored by TokenVerifier, or the
// anonymous principal when the request carried none.
func FromTokenInfo(info *sdkauth.TokenInfo) *Principal {
	if info == nil || info.Extra == nil {
		return Anonymous()
	}
	if p, ok := info.Extra[principalKey].(*Principal); ok && p != nil {
		return p
	}
	return Anonymous()
}
