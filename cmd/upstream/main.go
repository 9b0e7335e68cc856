package main

import (
	"encoding/json"
	"flag"
	"net/http"
	"strconv"
	"time"
)

func main() {
	var addr string
	var name string
	var delayMS int
	flag.StringVar(&addr, "addr", ":9001", "listen address")
	flag.StringVar(&name, "name", "upstream", "service name")
	flag.IntVar(&delayMS, "delay-ms", 0, "artificial delay per request")
	flag.Parse()

	mux := http.NewServeMux()

	mux.HandleFunc("/error/{code}", func(w http.ResponseWriter, r *http.Request) {
		if delayMS > 0 {
			time.Sleep(time.Duration(delayMS) * time.Millisecond)
		}
		code, err := strconv.Atoi(r.PathValue("code"))
		if err != nil || code < 100 || code > 599 {
			code = 500
		}
		w.WriteHeader(code)
	})

	mux.HandleFunc("/timeout/{seconds}", func(w http.ResponseWriter, r *http.Request) {
		seconds, err := strconv.Atoi(r.PathValue("seconds"))
		if err != nil || seconds < 0 {
			seconds = 1
		}
		time.Sleep(time.Duration(seconds) * time.Second)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"sleep": seconds})
	})

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if delayMS > 0 {
			time.Sleep(time.Duration(delayMS) * time.Millisecond)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"service": name,
			"method":  r.Method,
			"path":    r.URL.Path,
			"query":   r.URL.RawQuery,
			"headers": r.Header,
		})
	})

	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	_ = srv.ListenAndServe()
}
