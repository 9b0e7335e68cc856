package dispatcher

import "net/http"

// bufferedWriter stands in for the real http.ResponseWriter while a
// service's stage chain runs. Response-phase stages (see internal/mw.Stage)
// mutate headers after calling next.ServeHTTP — on a real ResponseWriter
// that's too late once WriteHeader has been called. Buffering status,
// headers and body here lets every stage's response-phase code run to
// completion before anything is actually written to the client, so
// response-phase rewrites apply regardless of which stage produced the
// final body (a short-circuit or a proxied upstream response).
type bufferedWriter struct {
	header http.Header
	status int
	body   []byte
}

func newBufferedWriter() *bufferedWriter {
	return &bufferedWriter{header: make(http.Header)}
}

func (b *bufferedWriter) Header() http.Header { return b.header }

func (b *bufferedWriter) WriteHeader(status int) {
	if b.status == 0 {
		b.status = status
	}
}

func (b *bufferedWriter) Write(p []byte) (int, error) {
	if b.status == 0 {
		b.status = http.StatusOK
	}
	b.body = append(b.body, p...)
	return len(p), nil
}

// flush commits the buffered response to the real client-facing writer.
func (b *bufferedWriter) flush(w http.ResponseWriter) {
	dst := w.Header()
	for k, v := range b.header {
		dst[k] = v
	}
	status := b.status
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)
	_, _ = w.Write(b.body)
}
