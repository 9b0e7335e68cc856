// Package reqctx holds the request-scoped values shared between
// internal/mw and internal/dispatcher: request id, the matched service,
// the authenticated principal, and the mutable RequestState the dispatcher
// uses to learn — after its middleware chain has fully unwound — whether
// and by which upstream the request was actually served. A shared package
// avoids an import cycle between mw and dispatcher.
package reqctx

import "context"

type key int

const (
	requestIDKey key = iota
	serviceIDKey
	principalKey
	stateKey
)

func WithRequestID(ctx context.Context, rid string) context.Context {
	return context.WithValue(ctx, requestIDKey, rid)
}

func RequestID(ctx context.Context) string {
	v, _ := ctx.Value(requestIDKey).(string)
	return v
}

func WithServiceID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, serviceIDKey, id)
}

func ServiceID(ctx context.Context) string {
	v, _ := ctx.Value(serviceIDKey).(string)
	if v == "" {
		return "unknown"
	}
	return v
}

func WithPrincipal(ctx context.Context, sub string) context.Context {
	return context.WithValue(ctx, principalKey, sub)
}

func Principal(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(principalKey).(string)
	return v, ok
}

// RequestState is created once per request by the dispatcher and threaded
// down through the middleware chain by pointer. The core handler (the
// innermost stage, which actually performs the upstream call) mutates it
// directly; the dispatcher reads it back after the whole chain returns,
// since a context.Context value set deep in the chain never flows back up
// to the caller — only a shared pointer does.
type RequestState struct {
	Served     bool
	UpstreamID string
}

func WithRequestState(ctx context.Context, st *RequestState) context.Context {
	return context.WithValue(ctx, stateKey, st)
}

func GetRequestState(ctx context.Context) *RequestState {
	st, _ := ctx.Value(stateKey).(*RequestState)
	if st == nil {
		return &RequestState{}
	}
	return st
}
