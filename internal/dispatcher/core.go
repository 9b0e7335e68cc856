package dispatcher

import (
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hyperapi/gateway/internal/gwerr"
	"github.com/hyperapi/gateway/internal/reqctx"
	"github.com/hyperapi/gateway/internal/upstreamcall"
)

// core performs "LB pick -> circuit-breaker admission -> concurrency gate ->
// outbound call with timeout" once the request has survived the service's
// middleware chain. It is the innermost handler the stage chain wraps, so
// its writes land in the shared bufferedWriter before any outer stage's
// response-phase code runs.
func (sr *ServiceRuntime) core() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		up, ok := sr.balancer.Pick(sr.upstreams, r)
		if !ok {
			gwerr.NoRoute().Write(w)
			return
		}

		if up.Breaker != nil && !up.Breaker.Allow(time.Now()) {
			gwerr.BreakerOpen().Write(w)
			return
		}

		if !sr.sem.TryAcquire() {
			if up.Breaker != nil {
				up.Breaker.Abandon()
			}
			gwerr.ConcurrencyReject().Write(w)
			return
		}
		defer sr.sem.Release()

		up.IncInflight()
		defer up.DecInflight()

		path := stripPrefix(r.URL.Path, sr.cfg.StripPrefix)
		targetURL := upstreamcall.BuildURL(up.URL, path, r.URL.RawQuery)

		var body []byte
		if r.Body != nil {
			var err error
			body, err = io.ReadAll(r.Body)
			if err != nil {
				if up.Breaker != nil {
					up.Breaker.Abandon()
				}
				status := http.StatusBadRequest
				var tooLarge *http.MaxBytesError
				if errors.As(err, &tooLarge) {
					status = http.StatusRequestEntityTooLarge
				}
				w.WriteHeader(status)
				return
			}
		}

		result := upstreamcall.Do(r.Context(), sr.client, r.Method, targetURL, r.Header, body, sr.timeout)

		switch result.Outcome {
		case upstreamcall.OutcomeClientDisconnected:
			if up.Breaker != nil {
				up.Breaker.Abandon()
			}
			return

		case upstreamcall.OutcomeTimeout:
			if up.Breaker != nil {
				up.Breaker.Done(false)
			}
			up.RecordLatency(float64(sr.timeout / time.Millisecond))
			markServed(r, up.ID)
			gwerr.UpstreamTimeout(sr.timeoutStatus).Write(w)

		case upstreamcall.OutcomeTransportError:
			if up.Breaker != nil {
				up.Breaker.Done(false)
			}
			up.RecordLatency(float64(sr.timeout / time.Millisecond))
			markServed(r, up.ID)
			gwerr.UpstreamTransport().Write(w)

		default: // OutcomeSuccess, OutcomeUpstreamStatus: pass status/body through unchanged
			success := result.Outcome == upstreamcall.OutcomeSuccess
			if up.Breaker != nil {
				up.Breaker.Done(success)
			}
			up.RecordLatency(result.LatencyMS)
			markServed(r, up.ID)

			resp := result.Response
			for k, vv := range resp.Header {
				w.Header()[k] = vv
			}
			w.WriteHeader(resp.StatusCode)
			_, _ = io.Copy(w, resp.Body)
			_ = resp.Body.Close()
		}
	})
}

func markServed(r *http.Request, upstreamID string) {
	st := reqctx.GetRequestState(r.Context())
	st.Served = true
	st.UpstreamID = upstreamID
}

// stripPrefix mirrors the teacher's proxy.StripPath: trims the configured
// prefix from the request path, leaving "/" rather than an empty string.
func stripPrefix(path, prefix string) string {
	if prefix == "" || !strings.HasPrefix(path, prefix) {
		return path
	}
	trimmed := strings.TrimPrefix(path, prefix)
	if trimmed == "" {
		trimmed = "/"
	}
	return trimmed
}
