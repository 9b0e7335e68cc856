package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"github.com/hyperapi/gateway/internal/config"
	"github.com/hyperapi/gateway/internal/dispatcher"
	"github.com/hyperapi/gateway/internal/logging"
	"github.com/hyperapi/gateway/internal/mw"
)

// maxRequestBodyBytes caps inbound request bodies the gateway will buffer
// before forwarding upstream; not part of spec.md's config model, a fixed
// ambient safety net the way the teacher's cmd/gateway applied one.
const maxRequestBodyBytes = 10 << 20

// opsRateLimit caps /metrics and /-/status scrape traffic; these sit outside
// the per-service config-driven rate limiter entirely (they're not proxied
// service traffic), so a small fixed x/time/rate budget is enough to stop a
// runaway scraper from competing with request-handling goroutines.
const (
	opsRateLimitPerSec = 5
	opsRateLimitBurst  = 10
)

func rateLimitOps(next http.Handler) http.Handler {
	lim := rate.NewLimiter(rate.Limit(opsRateLimitPerSec), opsRateLimitBurst)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !lim.Allow() {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func main() {
	os.Exit(run(os.Args[1:]))
}

// run wires the whole gateway and blocks until shutdown, returning the
// process exit code per spec.md §6: 0 graceful, 1 runtime fatal, 2 bad CLI,
// 3 config parse/validate error.
func run(args []string) int {
	fs := flag.NewFlagSet("hyperapi", flag.ContinueOnError)
	var listen, configPath string
	fs.StringVar(&listen, "listen", "", "listen address, overrides the config file's listen")
	fs.StringVar(&configPath, "config", "./config/config.example.yaml", "path to yaml config")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	log := logging.New()

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Error("config load failed", slog.String("error", err.Error()))
		return 3
	}
	if listen != "" {
		cfg.Listen = listen
	}

	d, err := dispatcher.New(cfg)
	if err != nil {
		log.Error("dispatcher init failed", slog.String("error", err.Error()))
		return 3
	}
	defer d.Close()

	reg := prometheus.NewRegistry()
	metrics := mw.NewMetrics(reg)

	mux := http.NewServeMux()
	mux.Handle("/metrics", rateLimitOps(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})

	startedAt := time.Now()
	adminKey := os.Getenv("APIGW_ADMIN_KEY")
	mux.Handle("/-/status", rateLimitOps(mw.RequireAdminKey(adminKey, statusHandler(cfg, startedAt))))

	var handler http.Handler = d
	handler = mw.AccessLog(log, handler)
	handler = mw.Instrument(metrics, handler)
	handler = mw.Recover(handler)
	handler = mw.RequestID(handler)
	handler = mw.MaxBodyBytes(maxRequestBodyBytes, handler)
	mux.Handle("/", handler)

	srv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info("hyperapi listening", slog.String("addr", cfg.Listen))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		log.Error("server error", slog.String("error", err.Error()))
		return 1
	case <-stop:
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("shutdown error", slog.String("error", err.Error()))
		return 1
	}
	log.Info("shutdown complete")
	return 0
}

func statusHandler(cfg *config.Config, startedAt time.Time) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		info, _ := debug.ReadBuildInfo()
		goVer := ""
		if info != nil {
			goVer = info.GoVersion
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"time_utc":        time.Now().UTC().Format(time.RFC3339),
			"uptime_seconds":  int(time.Since(startedAt).Seconds()),
			"listen_addr":     cfg.Listen,
			"go_version":      goVer,
			"rate_backend":    cfg.RateLimit.Backend,
			"services_count":  len(cfg.Services),
			"services_loaded": serviceIDs(cfg),
		})
	})
}

func serviceIDs(cfg *config.Config) []string {
	ids := make([]string, 0, len(cfg.Services))
	for _, s := range cfg.Services {
		ids = append(ids, s.ID)
	}
	return ids
}
