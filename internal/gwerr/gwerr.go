// Package gwerr is the gateway's short-circuit error taxonomy. The
// dispatcher writes its own terminal responses (no route, breaker open,
// concurrency reject, upstream timeout or transport error) through Write;
// the ACL, app-key, jwt and rate-limit stages write theirs directly. In
// both cases Powered-By/X-Upstream-Id handling is left to the dispatcher's
// response finalizer.
package gwerr

import "net/http"

type Kind int

const (
	KindNoRoute Kind = iota
	KindACLDeny
	KindAuth
	KindRateLimited
	KindBreakerOpen
	KindConcurrencyReject
	KindUpstreamTimeout
	KindUpstreamTransport
)

// Error is a terminal gateway response: a status, optional JSON body bytes,
// and optional extra headers (e.g. X-CB-State, Retry-After).
type Error struct {
	Kind    Kind
	Status  int
	Body    []byte
	Headers map[string]string
}

func (e *Error) Error() string { return http.StatusText(e.Status) }

func NoRoute() *Error {
	return &Error{Kind: KindNoRoute, Status: http.StatusNotFound, Body: []byte(`{"error":"not found"}`)}
}

// ACLDeny matches spec: 404 with an empty body (no JSON), unlike NoRoute.
func ACLDeny() *Error {
	return &Error{Kind: KindACLDeny, Status: http.StatusNotFound}
}

func Unauthorized() *Error {
	return &Error{Kind: KindAuth, Status: http.StatusUnauthorized, Body: []byte(`{"error":"unauthorized"}`)}
}

func RateLimited() *Error {
	return &Error{Kind: KindRateLimited, Status: http.StatusTooManyRequests}
}

func BreakerOpen() *Error {
	return &Error{
		Kind:    KindBreakerOpen,
		Status:  http.StatusBadGateway,
		Headers: map[string]string{"X-CB-State": "open"},
	}
}

func ConcurrencyReject() *Error {
	return &Error{Kind: KindConcurrencyReject, Status: http.StatusBadGateway}
}

// UpstreamTimeout status is configurable per service: 504 by default, 502
// for the legacy mapping some configs still use.
func UpstreamTimeout(status int) *Error {
	if status == 0 {
		status = http.StatusGatewayTimeout
	}
	return &Error{Kind: KindUpstreamTimeout, Status: status}
}

func UpstreamTransport() *Error {
	return &Error{Kind: KindUpstreamTransport, Status: http.StatusBadGateway}
}

// Write emits a terminal response. It never sets X-Upstream-Id; the
// dispatcher's response finalizer is responsible for Powered-By/Server
// handling regardless of which stage produced the error.
func (e *Error) Write(w http.ResponseWriter) {
	for k, v := range e.Headers {
		w.Header().Set(k, v)
	}
	if len(e.Body) > 0 {
		w.Header().Set("Content-Type", "application/json")
	}
	w.WriteHeader(e.Status)
	if len(e.Body) > 0 {
		_, _ = w.Write(e.Body)
	}
}
