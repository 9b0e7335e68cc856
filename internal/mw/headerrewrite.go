package mw

import (
	"net/http"

	"github.com/hyperapi/gateway/internal/config"
)

// HeaderRewrite implements spec.md §4.2's configured portion: remove then
// add/overwrite request headers before the call leaves the gateway, and the
// mirror operation on the response headers once the upstream replies. The
// universal Server-strip/Powered-By/X-Upstream-Id handling is NOT here —
// that runs once in the dispatcher's response finalizer regardless of
// whether a service configures this stage at all.
func HeaderRewrite(cfg config.HeaderRewriteConfig, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for _, h := range cfg.RequestRemove {
			r.Header.Del(h)
		}
		for k, v := range cfg.RequestAdd {
			r.Header.Set(k, v)
		}

		next.ServeHTTP(w, r)

		for _, h := range cfg.ResponseRemove {
			w.Header().Del(h)
		}
		for k, v := range cfg.ResponseAdd {
			w.Header().Set(k, v)
		}
	})
}
