package mw

import (
	"net/http"

	"github.com/hyperapi/gateway/internal/reqctx"
)

// JWKSStage adapts a JWKSValidator (RS256-over-remote-JWKS) into the same
// Stage shape as JWTValidator.Stage, so the dispatcher's service wiring can
// treat all three jwt auth modes identically.
func JWKSStage(v *JWKSValidator, header, scheme string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokStr, err := extractBearerToken(r, header, scheme)
			if err != nil {
				writeUnauthorized(w)
				return
			}
			sub, err := v.Validate(r.Context(), tokStr)
			if err != nil {
				writeUnauthorized(w)
				return
			}
			ctx := reqctx.WithPrincipal(r.Context(), sub)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
