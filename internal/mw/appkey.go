package mw

import (
	"net/http"

	"github.com/hyperapi/gateway/internal/config"
	"github.com/hyperapi/gateway/internal/reqctx"
)

// AppKey implements spec.md §4.4: reads cfg.Header (default X-APP-KEY),
// rejects with 401 if missing or not in cfg.ValidKeys, and otherwise
// attaches the key itself as the request principal.
func AppKey(cfg config.AppKeyConfig, next http.Handler) http.Handler {
	valid := make(map[string]struct{}, len(cfg.ValidKeys))
	for _, k := range cfg.ValidKeys {
		valid[k] = struct{}{}
	}
	header := cfg.Header
	if header == "" {
		header = "X-APP-KEY"
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Header.Get(header)
		if key == "" {
			writeUnauthorized(w)
			return
		}
		if _, ok := valid[key]; !ok {
			writeUnauthorized(w)
			return
		}
		ctx := reqctx.WithPrincipal(r.Context(), key)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func writeUnauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"unauthorized"}`))
}
