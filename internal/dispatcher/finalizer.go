package dispatcher

import "github.com/hyperapi/gateway/internal/reqctx"

// finalize applies spec.md §7's universal HTTP contract to every response
// the gateway produces, short-circuited or proxied: strip the upstream's
// hop-by-hop Server header, stamp Powered-By, and emit X-Upstream-Id only
// when an upstream actually served the request.
func finalize(bw *bufferedWriter, state *reqctx.RequestState) {
	bw.header.Del("Server")
	bw.header.Set("Powered-By", "hyperapi")
	if state.Served && state.UpstreamID != "" {
		bw.header.Set("X-Upstream-Id", state.UpstreamID)
	} else {
		bw.header.Del("X-Upstream-Id")
	}
}
