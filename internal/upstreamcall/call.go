// Package upstreamcall makes the gateway's single outbound hop: a
// timeout-bound request to a chosen upstream, classified into exactly one
// of pass-through status, timeout, transport error, or client disconnect
// (spec.md §4.10)
// before the response middleware chain runs. Built on an explicit
// http.Client.Do under context.WithTimeout — deliberately not
// httputil.ReverseProxy — so those outcomes stay distinguishable at
// the call site, matching the teacher's single-call proxy path.
package upstreamcall

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"
)

// Outcome classifies how the call ended, driving both the circuit breaker's
// success/failure bookkeeping (spec.md §4.8) and the status code returned
// to the client.
type Outcome int

const (
	OutcomeSuccess Outcome = iota
	OutcomeUpstreamStatus            // upstream responded with status >= 500
	OutcomeTimeout
	OutcomeTransportError
	OutcomeClientDisconnected // context.Canceled: the caller went away first
)

type Result struct {
	Outcome    Outcome
	Response   *http.Response
	LatencyMS  float64
	Err        error
}

// IsFailure reports whether this outcome should count against the
// upstream's circuit breaker, per spec.md §4.8's failure definition:
// status >= 500, transport error, or timeout. A client disconnect is
// neither success nor failure and must not be recorded at all.
func (r Result) IsFailure() bool {
	switch r.Outcome {
	case OutcomeUpstreamStatus, OutcomeTimeout, OutcomeTransportError:
		return true
	default:
		return false
	}
}

// Do sends method to targetURL through client with a copy of header and the
// already-read body bytes, under a hard deadline of timeout (none when
// timeout is 0). It does not retry.
func Do(ctx context.Context, client *http.Client, method, targetURL string, header http.Header, body []byte, timeout time.Duration) Result {
	start := time.Now()

	cctx := ctx
	var cancel context.CancelFunc
	if timeout > 0 {
		cctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	var bodyReader io.Reader
	if len(body) > 0 {
		bodyReader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(cctx, method, targetURL, bodyReader)
	if err != nil {
		return Result{Outcome: OutcomeTransportError, Err: err, LatencyMS: elapsedMS(start)}
	}
	req.Header = header.Clone()

	resp, err := client.Do(req)
	latency := elapsedMS(start)
	if err != nil {
		if errors.Is(ctx.Err(), context.Canceled) {
			return Result{Outcome: OutcomeClientDisconnected, Err: err, LatencyMS: latency}
		}
		if errors.Is(cctx.Err(), context.DeadlineExceeded) {
			return Result{Outcome: OutcomeTimeout, Err: err, LatencyMS: latency}
		}
		return Result{Outcome: OutcomeTransportError, Err: err, LatencyMS: latency}
	}

	if resp.StatusCode >= 500 {
		return Result{Outcome: OutcomeUpstreamStatus, Response: resp, LatencyMS: latency}
	}
	return Result{Outcome: OutcomeSuccess, Response: resp, LatencyMS: latency}
}

// BuildURL joins an upstream base URL with the (already prefix-stripped)
// request path and query string.
func BuildURL(base, path, rawQuery string) string {
	b := strings.TrimRight(base, "/")
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	u := b + path
	if rawQuery != "" {
		u += "?" + rawQuery
	}
	return u
}

func elapsedMS(start time.Time) float64 {
	return float64(time.Since(start)) / float64(time.Millisecond)
}
