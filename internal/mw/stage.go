// Package mw holds the gateway's composable HTTP middleware: both the
// ambient stack (request id, recovery, access log, metrics) that wraps the
// whole server, and the per-service stages (header rewrite, ACL, app-key,
// JWT, rate limit) that internal/dispatcher assembles from a service's
// config.MiddlewareSpec list.
package mw

import "net/http"

// Stage is a per-service middleware: an ordinary http.Handler wrapper.
// Request-phase work runs before calling next.ServeHTTP; response-phase
// work runs after it returns. Composing stages in declared order (each
// wrapping the next) makes response-phase work unwind in the reverse of
// declared order for free, per spec.md §4.1.
type Stage func(next http.Handler) http.Handler

// Chain composes stages so that stages[0] is outermost: its request-phase
// code runs first and its response-phase code runs last.
func Chain(core http.Handler, stages ...Stage) http.Handler {
	h := core
	for i := len(stages) - 1; i >= 0; i-- {
		h = stages[i](h)
	}
	return h
}
