package auth

import (
	"crypto/rsa"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Authentication errors.
var (
	ErrNoCredentials      = errors.New("auth: no credentials")
	ErrInvalidCredentials = errors.New("auth: invalid credentials")
	ErrExpiredCredentials = errors.New("auth: credentials expired")
)

// JWTConfig configures bearer token validation.
type JWTConfig struct {
	// Secret enables HS256 validation.
	Secret []byte
	// PublicKey enables RS256 validation, the algorithm an OIDC provider signs with.
	PublicKey *rsa.PublicKey
	Issuer    string
	Audience  string
	Leeway    time.Duration
}

// JWTAuthenticator validates bearer tokens and turns their claims into a Principal.
type JWTAuthenticator struct {
	parser  *jwt.Parser
	keyfunc jwt.Keyfunc
	logger  *slog.Logger
}

// NewJWTAuthenticator constructs a JWTAuthenticator. Exactly one of Secret or
// PublicKey must be configured.
func NewJWTAuthenticator(cfg JWTConfig, logger *slog.Logger) (*JWTAuthenticator, error) {
	if logger == nil {
		logger = slog.Default()
	}
	var (
		methods []string
		key     any
	)
	switch {
	case cfg.PublicKey != nil && len(cfg.Secret) > 0:
		return nil, errors.New("auth: configure either a jwt secret or a public key, not both")
	case cfg.PublicKey != nil:
		methods = []string{jwt.SigningMethodRS256.Alg()}
		key = cfg.PublicKey
	case len(cfg.Secret) > 0:
		methods = []string{jwt.SigningMethodHS256.Alg()}
		key = cfg.Secret
	default:
		return nil, errors.New("auth: jwt secret or public key required")
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods(methods),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(cfg.Leeway),
	}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	if cfg.Audience != "" {
		opts = append(opts, jwt.WithAudience(cfg.Audience))
	}
	return &JWTAuthenticator{
		parser:  jwt.NewParser(opts...),
		keyfunc: func(*jwt.Token) (any, error) { return key, nil },
		logger:  logger,
	}, nil
}

// ParseRSAPublicKey parses a PEM encoded RSA public key.
func ParseRSAPublicKey(pem string) (*rsa.PublicKey, error) {
	key, err := jwt.ParseRSAPublicKeyFromPEM([]byte(pem))
	if err != nil {
		return nil, fmt.Errorf("auth: parse public key: %w", err)
	}
	return key, nil
}

// Authenticate validates the bearer token on the request.
func (a *JWTAuthenticator) Authenticate(r *http.Request) (*Principal, error) {
	raw := bearerToken(r)
	if raw == "" {
		return nil, ErrNoCredentials
	}
	claims := jwt.MapClaims{}
	if _, err := a.parser.ParseWithClaims(raw, claims, a.keyfunc); err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredCredentials
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidCredentials, err)
	}
	subject, _ := claims.GetSubject()
	return NewPrincipal(subject, ClaimsFromMap(claims)), nil
}

// Middleware attaches the principal to the request context. Requests without
// valid credentials continue as anonymous; the authorization step decides
// whether that is acceptable.
func (a *JWTAuthenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		principal, err := a.Authenticate(r)
		if err != nil {
			if !errors.Is(err, ErrNoCredentials) {
				a.logger.DebugContext(r.Context(), "bearer token rejected", slog.Any("error", err))
			}
			principal = Anonymous()
		}
		next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), principal)))
	})
}

func bearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// ClaimsFromMap flattens token claims. Arrays become multiple values and nested
// objects are kept as their JSON text, which is how realm_access reaches the
// admin role check.
func ClaimsFromMap(m map[string]any) Claims {
	claims := make(Claims, len(m))
	for name, value := range m {
		switch v := value.(type) {
		case []any:
			for _, item := range v {
				if s, ok := claimString(item); ok {
					claims.Add(name, s)
				}
			}
		default:
			if s, ok := claimString(v); ok {
				claims.Add(name, s)
			}
		}
	}
	return claims
}

func claimString(v any) (string, bool) {
	switch t := v.(type) {
	case nil:
		return "", false
	case string:
		return t, true
	case bool:
		return strconv.FormatBool(t), true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case json.Number:
		return t.String(), true
	default:
		raw, err := json.Marshal(t)
		if err != nil {
			return "", false
		}
		return string(raw), true
	}
}
