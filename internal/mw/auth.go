package mw

import (
	"errors"
	"net/http"

	"github.com/golang-jwt/jwt/v5"
	"github.com/hyperapi/gateway/internal/reqctx"
)

type Authenticator struct {
	Mode       string // "hmac"
	HMACSecret []byte
}

func (a Authenticator) ValidateBearer(r *http.Request) (string, error) {
	tokStr, err := extractBearerToken(r, "Authorization", "Bearer")
	if err != nil {
		return "", err
	}
	return a.validateToken(tokStr)
}

func (a Authenticator) validateToken(tokStr string) (string, error) {
	tok, err := jwt.Parse(tokStr, func(token *jwt.Token) (any, error) {
		if a.Mode != "hmac" {
			return nil, errors.New("unsupported auth mode")
		}
		if token.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, errors.New("unexpected jwt alg")
		}
		return a.HMACSecret, nil
	})
	if err != nil || !tok.Valid {
		return "", errors.New("invalid token")
	}
	claims, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return "", errors.New("invalid claims")
	}
	sub, _ := claims["sub"].(string)
	if sub == "" {
		return "", errors.New("missing sub")
	}
	return sub, nil
}

// Stage adapts ValidateBearer into the jwt-type Stage shape used by
// service.buildStages, so the HMAC/HS256 auth mode wires in the same way
// JWTValidator and JWKSValidator do.
func (a Authenticator) Stage(header, scheme string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokStr, err := extractBearerToken(r, header, scheme)
			if err != nil {
				writeUnauthorized(w)
				return
			}
			sub, err := a.validateToken(tokStr)
			if err != nil {
				writeUnauthorized(w)
				return
			}
			ctx := reqctx.WithPrincipal(r.Context(), sub)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func WithSubject(next http.Handler, sub string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := reqctx.WithPrincipal(r.Context(), sub)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
