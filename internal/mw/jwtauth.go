package mw

import (
	"crypto/ecdsa"
	"crypto/rsa"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/hyperapi/gateway/internal/config"
	"github.com/hyperapi/gateway/internal/reqctx"
)

// JWTValidator implements spec.md §4.5: extracts the configured header
// (default Authorization, default scheme Bearer), verifies the signature
// against one of the configured public keys under one of the configured
// algorithms (ES256 is the exemplar, per the original Python test client),
// and checks exp/iat-with-clock-skew/required claims. On success the "sub"
// claim becomes the request principal.
type JWTValidator struct {
	header         string
	scheme         string
	algorithms     []string
	keys           []any // *ecdsa.PublicKey or *rsa.PublicKey
	requiredClaims []string
	clockSkew      time.Duration
}

func NewJWTValidator(cfg config.JWTConfig) (*JWTValidator, error) {
	header := cfg.Header
	if header == "" {
		header = "Authorization"
	}
	scheme := cfg.Scheme
	if scheme == "" {
		scheme = "Bearer"
	}
	algs := cfg.Algorithms
	if len(algs) == 0 {
		algs = []string{"ES256"}
	}
	skew := cfg.ClockSkewSec
	if skew == 0 {
		skew = 30
	}

	keys := make([]any, 0, len(cfg.Keys))
	for i, pemStr := range cfg.Keys {
		key, err := parsePublicKeyPEM(pemStr)
		if err != nil {
			return nil, fmt.Errorf("jwt key %d: %w", i, err)
		}
		keys = append(keys, key)
	}
	if len(keys) == 0 {
		return nil, errors.New("jwt middleware requires at least one verification key")
	}

	return &JWTValidator{
		header:         header,
		scheme:         scheme,
		algorithms:     algs,
		keys:           keys,
		requiredClaims: cfg.RequiredClaims,
		clockSkew:      time.Duration(skew) * time.Second,
	}, nil
}

func parsePublicKeyPEM(pemStr string) (any, error) {
	if key, err := jwt.ParseECPublicKeyFromPEM([]byte(pemStr)); err == nil {
		return key, nil
	}
	if key, err := jwt.ParseRSAPublicKeyFromPEM([]byte(pemStr)); err == nil {
		return key, nil
	}
	return nil, errors.New("unsupported or malformed public key PEM (expected EC or RSA)")
}

func (v *JWTValidator) Stage(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sub, err := v.validate(r)
		if err != nil {
			writeUnauthorized(w)
			return
		}
		ctx := reqctx.WithPrincipal(r.Context(), sub)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// extractBearerToken pulls the token out of the configured header under the
// configured scheme prefix (default Authorization: Bearer). Shared by all
// three jwt auth modes (static-key, JWKS, HMAC).
func extractBearerToken(r *http.Request, header, scheme string) (string, error) {
	raw := r.Header.Get(header)
	if raw == "" {
		return "", errors.New("missing auth header")
	}
	prefix := scheme + " "
	if !strings.HasPrefix(raw, prefix) {
		return "", errors.New("missing scheme prefix")
	}
	return strings.TrimSpace(strings.TrimPrefix(raw, prefix)), nil
}

// ValidateBearer satisfies the AuthHandler interface RequireAuth/OptionalAuth
// (require_auth.go) are built against.
func (v *JWTValidator) ValidateBearer(r *http.Request) (string, error) {
	return v.validate(r)
}

func (v *JWTValidator) validate(r *http.Request) (string, error) {
	tokStr, err := extractBearerToken(r, v.header, v.scheme)
	if err != nil {
		return "", err
	}

	var lastErr error
	for _, key := range v.keys {
		claims := jwt.MapClaims{}
		parser := jwt.NewParser(
			jwt.WithValidMethods(v.algorithms),
			jwt.WithLeeway(v.clockSkew),
		)
		tok, err := parser.ParseWithClaims(tokStr, claims, func(t *jwt.Token) (any, error) {
			switch key.(type) {
			case *ecdsa.PublicKey, *rsa.PublicKey:
				return key, nil
			default:
				return nil, errors.New("unsupported key type")
			}
		})
		if err != nil || tok == nil || !tok.Valid {
			lastErr = err
			continue
		}
		for _, c := range v.requiredClaims {
			if _, ok := claims[c]; !ok {
				return "", fmt.Errorf("missing required claim %q", c)
			}
		}
		if iat, ok := extractNumericClaim(claims["iat"]); ok {
			if time.Unix(int64(iat), 0).After(time.Now().Add(v.clockSkew)) {
				return "", errors.New("iat in the future")
			}
		}
		sub, _ := claims["sub"].(string)
		if sub == "" {
			return "", errors.New("missing sub claim")
		}
		return sub, nil
	}
	if lastErr == nil {
		lastErr = errors.New("no configured key validated the token")
	}
	return "", lastErr
}

func extractNumericClaim(v any) (float64, bool) {
	f, ok := v.(float64)
	return f, ok
}
