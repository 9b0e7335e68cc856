package mw

import (
	"net/http"
	"strings"

	"github.com/hyperapi/gateway/internal/config"
)

// ACL implements spec.md §4.3: an allow list wins over a deny list when
// both are configured. A request whose path matches no allow prefix (when
// allow prefixes are configured), or that matches a deny prefix (when no
// allow prefix matches), is rejected with 404 and an empty body — no
// upstream call is made.
func ACL(cfg config.ACLConfig, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path

		if len(cfg.AllowPrefixes) > 0 {
			if hasPrefixMatch(path, cfg.AllowPrefixes) {
				next.ServeHTTP(w, r)
				return
			}
			w.WriteHeader(http.StatusNotFound)
			return
		}

		if hasPrefixMatch(path, cfg.DenyPrefixes) {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func hasPrefixMatch(path string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}
